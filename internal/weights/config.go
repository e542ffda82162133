package weights

import (
	"fmt"
	"path/filepath"
	"strings"

	"eta/internal/serial"
)

// Config locates a weights file in the local cache and where to fetch it
// from when it is missing.
type Config struct {
	Cache                string `json:"weights_cache"`
	Filename             string `json:"weights_filename"`
	URL                  string `json:"weights_url"`
	LargeGoogleDriveFile bool   `json:"weights_large_google_drive_file_flag"`
}

// ConfigFromMap decodes a module config map. weights_filename is required;
// weights_cache falls back to defaultCache.
func ConfigFromMap(m serial.Map, defaultCache string) (Config, error) {
	cfg := Config{Cache: defaultCache}
	if err := serial.Decode(m, &cfg); err != nil {
		return Config{}, fmt.Errorf("weights config: %w", err)
	}
	cfg.Cache = strings.TrimSpace(cfg.Cache)
	cfg.Filename = strings.TrimSpace(cfg.Filename)
	cfg.URL = strings.TrimSpace(cfg.URL)
	if cfg.Cache == "" {
		cfg.Cache = defaultCache
	}
	if cfg.Filename == "" {
		return Config{}, fmt.Errorf("%w: weights_filename", ErrMissingField)
	}
	if filepath.Base(cfg.Filename) != cfg.Filename {
		return Config{}, fmt.Errorf("weights config: weights_filename %q must not contain a directory", cfg.Filename)
	}
	return cfg, nil
}

// Path returns the cached location of the weights file.
func (c Config) Path() string {
	return filepath.Join(c.Cache, c.Filename)
}

// ToMap implements serial.Serializable.
func (c Config) ToMap() (serial.Map, error) {
	m := serial.Map{
		"weights_cache":                        c.Cache,
		"weights_filename":                     c.Filename,
		"weights_large_google_drive_file_flag": c.LargeGoogleDriveFile,
	}
	if c.URL != "" {
		m["weights_url"] = c.URL
	}
	return m, nil
}
