// Package weights keeps model weight files in a local cache, downloading
// them on first use. Concurrent fetches of the same file, including from
// other processes, are serialized with a lock file next to the target.
package weights

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sys/unix"

	"eta/internal/logging"
)

const (
	defaultTimeout    = 10 * time.Minute
	lockRetryInterval = 250 * time.Millisecond
)

// Progress receives the number of bytes written so far and the expected
// total, which is -1 when the server does not report a length.
type Progress func(written, total int64)

// Fetcher downloads weights files into their cache.
type Fetcher struct {
	client   *http.Client
	logger   *slog.Logger
	progress Progress
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the default client.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) { f.client = client }
}

// WithTimeout sets the timeout of the default client.
func WithTimeout(timeout time.Duration) Option {
	return func(f *Fetcher) {
		if timeout > 0 {
			f.client = &http.Client{Timeout: timeout}
		}
	}
}

// WithLogger sets the fetcher's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) { f.logger = logger }
}

// WithProgress reports download progress to fn.
func WithProgress(fn Progress) Option {
	return func(f *Fetcher) { f.progress = fn }
}

// NewFetcher returns a Fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{client: &http.Client{Timeout: defaultTimeout}}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = logging.NewComponentLogger(f.logger, "weights")
	return f
}

// Ensure makes sure cfg's weights file is in the cache and returns its path.
// downloaded reports whether this call fetched it.
func (f *Fetcher) Ensure(ctx context.Context, cfg Config) (path string, downloaded bool, err error) {
	path = cfg.Path()
	if cached(path) {
		f.logger.Debug("weights cached", logging.String(logging.FieldPath, path))
		return path, false, nil
	}
	if cfg.URL == "" {
		return "", false, fmt.Errorf("%w: %s", ErrMissingURL, path)
	}
	if err := ensureWritable(cfg.Cache); err != nil {
		return "", false, err
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLockContext(ctx, lockRetryInterval)
	if err != nil {
		return "", false, fmt.Errorf("lock %s: %w", path, err)
	}
	if !locked {
		return "", false, fmt.Errorf("lock %s: not acquired", path)
	}
	defer func() {
		if unlockErr := lock.Unlock(); unlockErr != nil {
			logging.WarnWithContext(f.logger, "failed to release weights lock", "weights_unlock_failed",
				logging.String(logging.FieldPath, lock.Path()),
				logging.Error(unlockErr),
			)
		}
	}()

	// Another process may have finished the download while we waited.
	if cached(path) {
		return path, false, nil
	}

	f.logger.Info("downloading weights",
		logging.String(logging.FieldPath, path),
		logging.String("url", cfg.URL),
		logging.Bool("large_google_drive_file", cfg.LargeGoogleDriveFile),
	)
	start := time.Now()
	written, err := f.download(ctx, cfg, path)
	if err != nil {
		return "", false, err
	}
	f.logger.Info("weights downloaded",
		logging.String(logging.FieldPath, path),
		logging.Int64("bytes", written),
		logging.Duration("duration", time.Since(start)),
	)
	return path, true, nil
}

func cached(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func ensureWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCacheNotWritable, dir, err)
	}
	if err := unix.Access(dir, unix.W_OK|unix.X_OK); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCacheNotWritable, dir, err)
	}
	return nil
}

func (f *Fetcher) download(ctx context.Context, cfg Config, path string) (int64, error) {
	resp, err := f.get(ctx, cfg.URL)
	if err != nil {
		return 0, err
	}
	if cfg.LargeGoogleDriveFile {
		if token, ok := driveConfirmToken(resp); ok {
			resp.Body.Close()
			if resp, err = f.get(ctx, withConfirmToken(cfg.URL, token)); err != nil {
				return 0, err
			}
		}
	}
	defer resp.Body.Close()

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCacheNotWritable, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if _, statErr := os.Stat(tmpPath); statErr == nil {
			_ = os.Remove(tmpPath)
		}
	}()

	counter := &progressWriter{total: resp.ContentLength, report: f.progress, sampler: logging.NewProgressSampler(0), logger: f.logger}
	written, err := io.Copy(io.MultiWriter(tmp, counter), resp.Body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return written, fmt.Errorf("%w: %s: %v", ErrDownloadFailed, cfg.URL, err)
	}
	if resp.ContentLength >= 0 && written != resp.ContentLength {
		return written, fmt.Errorf("%w: %s: got %d of %d bytes", ErrDownloadFailed, cfg.URL, written, resp.ContentLength)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return written, fmt.Errorf("install weights %s: %w", path, err)
	}
	return written, nil
}

func (f *Fetcher) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s: unexpected status %d", ErrDownloadFailed, rawURL, resp.StatusCode)
	}
	return resp, nil
}

var confirmPattern = regexp.MustCompile(`confirm=([0-9A-Za-z_-]+)`)

// driveConfirmToken extracts the token Google Drive requires before serving
// files too large for its virus scan. The token arrives either as a
// download_warning cookie or embedded in the interstitial HTML page.
func driveConfirmToken(resp *http.Response) (string, bool) {
	for _, c := range resp.Cookies() {
		if strings.HasPrefix(c.Name, "download_warning") && c.Value != "" {
			return c.Value, true
		}
	}
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html") {
		return "", false
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", false
	}
	m := confirmPattern.FindSubmatch(body)
	if m == nil {
		return "", false
	}
	return string(m[1]), true
}

func withConfirmToken(rawURL, token string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	q.Set("confirm", token)
	u.RawQuery = q.Encode()
	return u.String()
}

type progressWriter struct {
	written int64
	total   int64
	report  Progress
	sampler *logging.ProgressSampler
	logger  *slog.Logger
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.written += int64(len(p))
	if w.report != nil {
		w.report(w.written, w.total)
	}
	percent := -1.0
	if w.total > 0 {
		percent = float64(w.written) * 100 / float64(w.total)
	}
	if w.sampler.ShouldLog(percent, "download") {
		w.logger.Debug("weights download progress",
			logging.Int64("bytes", w.written),
			logging.Float64("percent", percent),
		)
	}
	return len(p), nil
}

// Cached reports whether the weights file of cfg is already in the cache.
func Cached(cfg Config) bool {
	return cached(cfg.Path())
}
