package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"eta/internal/config"
	"eta/internal/data"
	"eta/internal/geometry"
	"eta/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	cfg.Logging.OutputPaths = []string{filepath.Join(cfg.Paths.LogDir, "eta-test.log")}

	configPath := filepath.Join(base, "eta.toml")
	encoded, err := cfg.Encode()
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(configPath, []byte(encoded), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func writeSampleRecords(t *testing.T, dir string) string {
	t.Helper()
	grouped := data.NewLabeledVideoRecord("/v/3.mp4", "cat")
	grouped.Group.Set("g1")
	recs := data.NewRecords(data.LabeledVideoRecordType,
		data.NewLabeledVideoRecord("/v/0.mp4", "cat"),
		data.NewLabeledVideoRecord("/v/1.mp4", "dog"),
		data.NewLabeledVideoRecord("/v/2.mp4", "bird"),
		grouped,
	)
	path := filepath.Join(dir, "records.json")
	if err := data.Write(path, recs); err != nil {
		t.Fatalf("write records: %v", err)
	}
	return path
}

func writeSamplePoints(t *testing.T, dir string) string {
	t.Helper()
	c := geometry.NewLabeledPointContainer(
		geometry.NewLabeledPoint("nose", 0.5, 0.25),
		geometry.NewLabeledPoint("tail", 0.1, 0.9),
	)
	path := filepath.Join(dir, "points.yaml")
	if err := data.Write(path, c); err != nil {
		t.Fatalf("write points: %v", err)
	}
	return path
}
