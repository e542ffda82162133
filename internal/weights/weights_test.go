package weights

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gofrs/flock"
	"github.com/google/go-cmp/cmp"

	"eta/internal/serial"
)

func TestConfigFromMapDefaults(t *testing.T) {
	cfg, err := ConfigFromMap(serial.Map{"weights_filename": "model.npz"}, "/cache")
	if err != nil {
		t.Fatalf("ConfigFromMap: %v", err)
	}
	want := Config{Cache: "/cache", Filename: "model.npz"}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
	if got := cfg.Path(); got != filepath.Join("/cache", "model.npz") {
		t.Fatalf("Path = %q", got)
	}
}

func TestConfigFromMapOverrides(t *testing.T) {
	cfg, err := ConfigFromMap(serial.Map{
		"weights_cache":                        "/elsewhere",
		"weights_filename":                     "vgg16.npz",
		"weights_url":                          "https://example.com/vgg16.npz",
		"weights_large_google_drive_file_flag": true,
	}, "/cache")
	if err != nil {
		t.Fatalf("ConfigFromMap: %v", err)
	}
	if cfg.Cache != "/elsewhere" || !cfg.LargeGoogleDriveFile || cfg.URL == "" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	m, err := cfg.ToMap()
	if err != nil {
		t.Fatalf("ToMap: %v", err)
	}
	again, err := ConfigFromMap(m, "/cache")
	if err != nil {
		t.Fatalf("ConfigFromMap round trip: %v", err)
	}
	if diff := cmp.Diff(cfg, again); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestConfigFromMapErrors(t *testing.T) {
	tests := []struct {
		name string
		m    serial.Map
	}{
		{"missing filename", serial.Map{}},
		{"blank filename", serial.Map{"weights_filename": "  "}},
		{"filename with directory", serial.Map{"weights_filename": "a/b.npz"}},
		{"wrong type", serial.Map{"weights_filename": 3}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ConfigFromMap(tc.m, "/cache"); err == nil {
				t.Fatal("expected error")
			}
		})
	}
	if _, err := ConfigFromMap(serial.Map{}, "/cache"); !errors.Is(err, ErrMissingField) {
		t.Fatalf("expected ErrMissingField, got %v", err)
	}
}

func TestEnsureDownloadsOnce(t *testing.T) {
	payload := bytes.Repeat([]byte("w"), 4096)
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	cfg := Config{Cache: filepath.Join(t.TempDir(), "weights"), Filename: "model.npz", URL: srv.URL + "/model.npz"}
	var last int64
	f := NewFetcher(WithProgress(func(written, total int64) { last = written }))

	path, downloaded, err := f.Ensure(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if !downloaded {
		t.Fatal("expected first call to download")
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read weights: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("weights content mismatch: %d bytes", len(got))
	}
	if last != int64(len(payload)) {
		t.Fatalf("progress reported %d bytes, want %d", last, len(payload))
	}

	_, downloaded, err = f.Ensure(context.Background(), cfg)
	if err != nil {
		t.Fatalf("second Ensure: %v", err)
	}
	if downloaded {
		t.Fatal("expected cached weights to skip download")
	}
	if hits.Load() != 1 {
		t.Fatalf("server hit %d times, want 1", hits.Load())
	}
	// The lock file stays on disk so every waiter contends on the same inode,
	// but it must be released.
	if _, err := os.Stat(path + ".lock"); err != nil {
		t.Fatalf("lock file: %v", err)
	}
	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil || !locked {
		t.Fatalf("lock still held after Ensure: locked=%v err=%v", locked, err)
	}
	_ = lock.Unlock()
	if !Cached(cfg) {
		t.Fatal("Cached should report the downloaded file")
	}
}

func TestEnsureCachedWithoutURL(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "model.npz"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	path, downloaded, err := NewFetcher().Ensure(context.Background(), Config{Cache: dir, Filename: "model.npz"})
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if downloaded || path != filepath.Join(dir, "model.npz") {
		t.Fatalf("unexpected result path=%q downloaded=%v", path, downloaded)
	}
}

func TestEnsureMissingURL(t *testing.T) {
	_, _, err := NewFetcher().Ensure(context.Background(), Config{Cache: t.TempDir(), Filename: "model.npz"})
	if !errors.Is(err, ErrMissingURL) {
		t.Fatalf("expected ErrMissingURL, got %v", err)
	}
}

func TestEnsureHTTPErrorLeavesNoFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	dir := t.TempDir()
	cfg := Config{Cache: dir, Filename: "model.npz", URL: srv.URL}
	_, _, err := NewFetcher().Ensure(context.Background(), cfg)
	if !errors.Is(err, ErrDownloadFailed) {
		t.Fatalf("expected ErrDownloadFailed, got %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty cache, found %d entries", len(entries))
	}
}

func TestEnsureCacheNotWritable(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	dir := filepath.Join(t.TempDir(), "ro")
	if err := os.Mkdir(dir, 0o555); err != nil {
		t.Fatal(err)
	}
	_, _, err := NewFetcher().Ensure(context.Background(), Config{Cache: dir, Filename: "m.npz", URL: "http://127.0.0.1:1/m"})
	if !errors.Is(err, ErrCacheNotWritable) {
		t.Fatalf("expected ErrCacheNotWritable, got %v", err)
	}
}

func TestEnsureGoogleDriveConfirmToken(t *testing.T) {
	tests := []struct {
		name    string
		warning func(w http.ResponseWriter)
	}{
		{
			name: "cookie",
			warning: func(w http.ResponseWriter) {
				http.SetCookie(w, &http.Cookie{Name: "download_warning_123", Value: "tok"})
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				_, _ = w.Write([]byte("<html>too large</html>"))
			},
		},
		{
			name: "html body",
			warning: func(w http.ResponseWriter) {
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				_, _ = w.Write([]byte(`<a href="/uc?export=download&amp;confirm=tok&amp;id=1">Download anyway</a>`))
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Query().Get("confirm") != "tok" {
					tc.warning(w)
					return
				}
				w.Header().Set("Content-Type", "application/octet-stream")
				_, _ = w.Write([]byte("weights"))
			}))
			defer srv.Close()

			cfg := Config{Cache: t.TempDir(), Filename: "big.npz", URL: srv.URL + "/uc?id=1", LargeGoogleDriveFile: true}
			path, _, err := NewFetcher().Ensure(context.Background(), cfg)
			if err != nil {
				t.Fatalf("Ensure: %v", err)
			}
			got, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != "weights" {
				t.Fatalf("content = %q", got)
			}
		})
	}
}

func TestEnsureConcurrentCallersShareDownload(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("weights"))
	}))
	defer srv.Close()

	cfg := Config{Cache: t.TempDir(), Filename: "model.npz", URL: srv.URL}
	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := NewFetcher().Ensure(context.Background(), cfg)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Ensure: %v", err)
		}
	}
	if hits.Load() != 1 {
		t.Fatalf("server hit %d times, want 1", hits.Load())
	}
}
