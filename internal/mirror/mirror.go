package mirror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/loykin/dreamlauncher/internal/metrics"
)

const (
	DefaultPrimary   = "https://www.byond.com/download/build"
	DefaultSecondary = "https://spacestation13.github.io/byond-builds"
	DefaultTimeout   = 6 * time.Second

	// SubDir is created under the application data dir to hold installers.
	SubDir = "byond_installer"
)

// ErrHTTPStatus marks a mirror that answered with a non-2xx status.
var ErrHTTPStatus = errors.New("unexpected HTTP status")

// Outcome is the terminal result of an acquisition attempt. InstallerPath is
// only meaningful when Success is true.
type Outcome struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	InstallerPath string `json:"installer_path"`
	Source        string `json:"source"`
}

// DownloadError carries both mirror failures so neither diagnostic is lost.
type DownloadError struct {
	Primary   error
	Secondary error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("failed to download BYOND installer from both sources. Primary error: %v, Backup error: %v", e.Primary, e.Secondary)
}

func (e *DownloadError) Unwrap() []error { return []error{e.Primary, e.Secondary} }

// FileName is the local installer name for a version.
func FileName(major, minor uint32) string {
	return fmt.Sprintf("byond_%d.%d_byond.exe", major, minor)
}

// URL builds {base}/{major}/{major}.{minor}_byond.exe.
func URL(base string, major, minor uint32) string {
	return fmt.Sprintf("%s/%d/%d.%d_byond.exe", strings.TrimRight(base, "/"), major, major, minor)
}

// Downloader fetches installers from a primary mirror with one fallback.
type Downloader struct {
	Primary   string
	Secondary string
	Dir       string        // destination directory, created on demand
	Timeout   time.Duration // per fetch, default 6s
	Client    *http.Client
	Logger    *slog.Logger
}

// Download fetches the installer for major.minor into d.Dir. The secondary
// mirror is only tried when the primary fails.
func (d *Downloader) Download(ctx context.Context, major, minor uint32) (Outcome, error) {
	if err := os.MkdirAll(d.Dir, 0o750); err != nil {
		return Outcome{}, fmt.Errorf("failed to create download directory: %w", err)
	}
	dest := filepath.Join(d.Dir, FileName(major, minor))
	log := d.logger()

	primaryErr := d.fetch(ctx, "primary", URL(valOr(d.Primary, DefaultPrimary), major, minor), dest)
	if primaryErr == nil {
		return Outcome{
			Success:       true,
			Message:       fmt.Sprintf("Successfully downloaded BYOND %d.%d installer", major, minor),
			InstallerPath: dest,
			Source:        "primary",
		}, nil
	}
	log.Warn("Primary mirror failed", "version", fmt.Sprintf("%d.%d", major, minor), "error", primaryErr)

	secondaryErr := d.fetch(ctx, "secondary", URL(valOr(d.Secondary, DefaultSecondary), major, minor), dest)
	if secondaryErr == nil {
		return Outcome{
			Success:       true,
			Message:       fmt.Sprintf("Successfully downloaded BYOND %d.%d installer from backup source", major, minor),
			InstallerPath: dest,
			Source:        "secondary",
		}, nil
	}
	log.Error("Secondary mirror failed", "version", fmt.Sprintf("%d.%d", major, minor), "error", secondaryErr)
	return Outcome{}, &DownloadError{Primary: primaryErr, Secondary: secondaryErr}
}

func (d *Downloader) fetch(ctx context.Context, source, url, dest string) (err error) {
	started := time.Now()
	defer func() { metrics.ObserveDownload(source, err == nil, time.Since(started).Seconds()) }()

	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := d.client().Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s from %s", ErrHTTPStatus, resp.Status, url)
	}
	// the installer is executed next, so the file keeps the exec bit
	// #nosec G302 G304 -- dest is built from the configured data dir
	f, err := os.OpenFile(dest, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o750)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	// a failed fetch never leaves a truncated installer behind
	defer func() {
		if err != nil {
			_ = os.Remove(dest)
		}
	}()
	n, err := io.Copy(f, resp.Body)
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to get response bytes: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	d.logger().Info("Downloaded installer", "source", source, "url", url, "bytes", n)
	return nil
}

func (d *Downloader) client() *http.Client {
	if d.Client != nil {
		return d.Client
	}
	return http.DefaultClient
}

func (d *Downloader) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

func valOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
