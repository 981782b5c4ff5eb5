// Package dreamlauncher is the public facade over the launcher internals:
// configuration, the launcher service, its HTTP router and metrics.
package dreamlauncher

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/loykin/dreamlauncher/internal/auth"
	"github.com/loykin/dreamlauncher/internal/config"
	"github.com/loykin/dreamlauncher/internal/history"
	"github.com/loykin/dreamlauncher/internal/history/factory"
	"github.com/loykin/dreamlauncher/internal/installer"
	"github.com/loykin/dreamlauncher/internal/launcher"
	"github.com/loykin/dreamlauncher/internal/logger"
	"github.com/loykin/dreamlauncher/internal/metrics"
	"github.com/loykin/dreamlauncher/internal/mirror"
	"github.com/loykin/dreamlauncher/internal/presence"
	"github.com/loykin/dreamlauncher/internal/process"
	iapi "github.com/loykin/dreamlauncher/internal/server"
	"github.com/loykin/dreamlauncher/internal/version"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Config = config.Config

type Service = launcher.Service

type Status = launcher.Status

type RuntimeStatus = process.Status

type Version = version.Version

type VersionStatus = version.Status

type DownloadOutcome = mirror.Outcome

type InstallOutcome = installer.Outcome

type Option = launcher.Option

type LogConfig = logger.Config

type HistorySink = history.Sink

type HistoryEvent = history.Event

// APIOption configures the local API router.
type APIOption = iapi.Option

// TokenIssuer signs the bearer tokens the local API accepts.
type TokenIssuer = auth.Issuer

const (
	LaunchDirect = config.LaunchDirect
	LaunchPager  = config.LaunchPager
)

var (
	WithLogger         = launcher.WithLogger
	WithHTTPClient     = launcher.WithHTTPClient
	WithPresenceDialer = launcher.WithPresenceDialer
	WithDetector       = launcher.WithDetector
	WithHistory        = launcher.WithHistory

	// ErrPresenceUnavailable matches every presence failure that left the update unsent.
	ErrPresenceUnavailable = presence.ErrUnavailable
	ErrPresenceReconnected = presence.ErrReconnected

	WithAPIAuth        = iapi.WithAuth
	WithAllowedOrigins = iapi.WithAllowedOrigins

	NewTokenIssuer = auth.NewIssuer
	WriteTokenFile = auth.WriteTokenFile
	ReadTokenFile  = auth.ReadTokenFile
)

// New builds a launcher service. See launcher.New.
func New(cfg *Config, opts ...Option) (*Service, error) { return launcher.New(cfg, opts...) }

func LoadConfig(path string) (*Config, error) { return config.Load(path) }

// NewLogger builds the console (and optional rotated file) logger described
// by cfg. Close the returned closer on exit.
func NewLogger(cfg LogConfig) (*slog.Logger, io.Closer, error) { return logger.New(cfg) }

// OpenHistory opens one sink per DSN. On error the sinks opened so far are
// returned so the caller can close them.
func OpenHistory(dsns []string) ([]HistorySink, error) { return factory.NewSinks(dsns) }

// NewHTTPHandler returns the local API as an http.Handler, routed under basePath.
func NewHTTPHandler(svc *Service, basePath string, opts ...APIOption) http.Handler {
	return iapi.NewRouter(svc, basePath, opts...).Handler()
}

// NewHTTPServer returns an unstarted server for the local API.
func NewHTTPServer(addr, basePath string, svc *Service, opts ...APIOption) *http.Server {
	return iapi.NewServer(addr, basePath, svc, opts...)
}

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }

// NewMetricsServer returns an unstarted server exposing /metrics from the default registry.
func NewMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// ServeMetrics runs a metrics server on addr in the caller goroutine.
func ServeMetrics(addr string) error {
	return NewMetricsServer(addr).ListenAndServe()
}
