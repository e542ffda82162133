package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultDataDir         = "~/.local/share/eta"
	defaultLogDir          = "~/.local/share/eta/logs"
	defaultCatalogPath     = "~/.local/share/eta/catalog.db"
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	defaultWeightsTimeout  = 600
	defaultRecordsFilename = "records.json"
	defaultRecordsFormat   = "json"
	defaultCatalogEnabled  = true
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Weights: Weights{
			CacheDir:       defaultWeightsCacheDir(),
			TimeoutSeconds: defaultWeightsTimeout,
		},
		Catalog: Catalog{
			Enabled: defaultCatalogEnabled,
			Path:    defaultCatalogPath,
		},
		Records: Records{
			DefaultFilename: defaultRecordsFilename,
			Format:          defaultRecordsFormat,
		},
	}
}

func defaultWeightsCacheDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "eta", "weights")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.cache/eta/weights"
	}
	return filepath.Join(home, ".cache", "eta", "weights")
}
