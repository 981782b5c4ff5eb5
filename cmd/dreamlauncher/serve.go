package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/loykin/dreamlauncher"
)

const shutdownTimeout = 5 * time.Second

// runServe runs the local API, the optional metrics endpoint and the
// liveness watch until ctx is done.
func runServe(ctx context.Context, configPath string, out io.Writer) error {
	cfg, err := dreamlauncher.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	log, logCloser, err := dreamlauncher.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logCloser.Close() }()

	opts := []dreamlauncher.Option{dreamlauncher.WithLogger(log)}
	if cfg.History.Enabled {
		sinks, err := dreamlauncher.OpenHistory(cfg.HistoryDSNs())
		if err != nil {
			for _, s := range sinks {
				if c, ok := s.(io.Closer); ok {
					_ = c.Close()
				}
			}
			return fmt.Errorf("failed to open history sinks: %w", err)
		}
		opts = append(opts, dreamlauncher.WithHistory(sinks...))
	}

	svc, err := dreamlauncher.New(cfg, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			log.Warn("Failed to close launcher", "error", err)
		}
	}()

	errCh := make(chan error, 2)
	var servers []*http.Server

	if cfg.Metrics.Enabled {
		if err := dreamlauncher.RegisterMetricsDefault(); err != nil {
			log.Warn("Failed to register metrics", "error", err)
		}
		if cfg.Metrics.Listen != "" {
			ms := dreamlauncher.NewMetricsServer(cfg.Metrics.Listen)
			servers = append(servers, ms)
			go listen(ms, errCh)
			log.Info("Serving metrics", "listen", cfg.Metrics.Listen)
		}
	}

	issuer, err := dreamlauncher.NewTokenIssuer()
	if err != nil {
		return err
	}
	token, err := issuer.Issue("cli", 0)
	if err != nil {
		return err
	}
	tokenPath := cfg.TokenPath()
	if err := dreamlauncher.WriteTokenFile(tokenPath, token); err != nil {
		return err
	}
	defer func() {
		if err := os.Remove(tokenPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn("Failed to remove API token file", "path", tokenPath, "error", err)
		}
	}()
	log.Info("Wrote API token", "path", tokenPath)

	api := dreamlauncher.NewHTTPServer(cfg.Server.Listen, cfg.Server.BasePath, svc,
		dreamlauncher.WithAPIAuth(issuer),
		dreamlauncher.WithAllowedOrigins(cfg.Server.AllowedOrigins...),
	)
	servers = append(servers, api)
	go listen(api, errCh)
	_, _ = fmt.Fprintf(out, "Starting dreamlauncher API on %s%s\n", cfg.Server.Listen, cfg.Server.BasePath)

	watchCtx, stopWatch := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		svc.Watch(watchCtx, cfg.Server.PollInterval)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	_, _ = fmt.Fprintln(out, "Shutting down...")
	stopWatch()
	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, s := range servers {
		if err := s.Shutdown(shutdownCtx); err != nil {
			log.Warn("Server shutdown failed", "addr", s.Addr, "error", err)
		}
	}
	return runErr
}

func listen(s *http.Server, errCh chan<- error) {
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		errCh <- fmt.Errorf("server on %s: %w", s.Addr, err)
	}
}
