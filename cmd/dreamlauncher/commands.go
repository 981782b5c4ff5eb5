package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/loykin/dreamlauncher"
	"github.com/loykin/dreamlauncher/pkg/client"
)

type command struct {
	configPath string
	out        io.Writer
}

// service builds an in-process launcher for stateless commands. Presence is
// left off since the process exits right away.
func (c command) service() (*dreamlauncher.Service, func(), error) {
	cfg, err := dreamlauncher.LoadConfig(c.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("error loading config: %w", err)
	}
	cfg.Presence.Enabled = false
	log, closer, err := dreamlauncher.NewLogger(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	svc, err := dreamlauncher.New(cfg, dreamlauncher.WithLogger(log))
	if err != nil {
		_ = closer.Close()
		return nil, nil, err
	}
	return svc, func() {
		_ = svc.Close()
		_ = closer.Close()
	}, nil
}

// apiClient connects to a running launcher. Without --api-url the address
// comes from the [server] section of the config, and without --api-token the
// token comes from the file serve wrote.
func (c command) apiClient(ctx context.Context, f APIFlags) (*client.Client, error) {
	url, token := f.URL, f.Token
	tokenPath := ""
	if url == "" || token == "" {
		cfg, err := dreamlauncher.LoadConfig(c.configPath)
		if err != nil {
			return nil, fmt.Errorf("error loading config: %w", err)
		}
		if url == "" {
			url = "http://" + cfg.Server.Listen + cfg.Server.BasePath
		}
		if token == "" {
			tokenPath = cfg.TokenPath()
			token, err = dreamlauncher.ReadTokenFile(tokenPath)
			if err != nil && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read API token: %w", err)
			}
		}
	}
	cl := client.New(client.Config{BaseURL: url, Token: token, Timeout: f.Timeout, Logger: slog.Default()})
	err := cl.Ping(ctx)
	var apiErr *client.APIError
	switch {
	case err == nil:
		return cl, nil
	case errors.As(err, &apiErr) && apiErr.Code == http.StatusUnauthorized:
		if tokenPath != "" {
			return nil, fmt.Errorf("launcher at %s rejected the API token from %s - pass --api-token or check [server] token_file", url, tokenPath)
		}
		return nil, fmt.Errorf("launcher at %s rejected the API token", url)
	default:
		return nil, fmt.Errorf("launcher not reachable at %s - please start it first with 'dreamlauncher serve'", url)
	}
}

func (c command) Probe(f ProbeFlags) error {
	svc, done, err := c.service()
	if err != nil {
		return err
	}
	defer done()

	v, err := svc.ProbeVersion(f.InstallDir)
	if err != nil {
		return err
	}
	printJSON(c.out, map[string]any{"major": v.Major, "minor": v.Minor, "version": v.String()})
	return nil
}

func (c command) Check(ctx context.Context, f CheckFlags) error {
	svc, done, err := c.service()
	if err != nil {
		return err
	}
	defer done()

	st, err := svc.CheckVersion(ctx, f.InstallDir)
	if err != nil {
		return err
	}
	printJSON(c.out, st)
	return nil
}

// resolveVersion fills in the required version when none was given.
func resolveVersion(ctx context.Context, svc *dreamlauncher.Service, f VersionFlags) (uint32, uint32, error) {
	if f.Major != 0 || f.Minor != 0 {
		return f.Major, f.Minor, nil
	}
	v, err := svc.RequiredVersion(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("no --major/--minor given and required version unavailable: %w", err)
	}
	return v.Major, v.Minor, nil
}

func (c command) Download(ctx context.Context, f VersionFlags) error {
	svc, done, err := c.service()
	if err != nil {
		return err
	}
	defer done()

	major, minor, err := resolveVersion(ctx, svc, f)
	if err != nil {
		return err
	}
	out, err := svc.Download(ctx, major, minor)
	if err != nil {
		return err
	}
	printJSON(c.out, out)
	return nil
}

func (c command) Install(f InstallFlags) error {
	if f.InstallerPath == "" {
		return errors.New("installer path is required")
	}
	svc, done, err := c.service()
	if err != nil {
		return err
	}
	defer done()

	out, err := svc.Install(f.InstallerPath)
	if err != nil {
		return err
	}
	printJSON(c.out, out)
	return nil
}

func (c command) Acquire(ctx context.Context, f VersionFlags) error {
	svc, done, err := c.service()
	if err != nil {
		return err
	}
	defer done()

	major, minor, err := resolveVersion(ctx, svc, f)
	if err != nil {
		return err
	}
	out, err := svc.AcquireAndInstall(ctx, major, minor)
	if err != nil {
		return err
	}
	printJSON(c.out, out)
	return nil
}

// Launch goes through the API so the running launcher owns the handle.
func (c command) Launch(ctx context.Context, f LaunchFlags) error {
	if f.Address == "" {
		return errors.New("server address is required")
	}
	cl, err := c.apiClient(ctx, f.API)
	if err != nil {
		return err
	}
	msg, err := cl.Launch(ctx, client.LaunchRequest{Address: f.Address, InstallDir: f.InstallDir})
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(c.out, msg)
	return nil
}

func (c command) Running(ctx context.Context, f RunningFlags) error {
	cl, err := c.apiClient(ctx, f.API)
	if err != nil {
		return err
	}
	query := cl.IsRunning
	if f.Anywhere {
		query = cl.IsRunningAnywhere
	}
	running, err := query(ctx)
	if err != nil {
		return err
	}
	printJSON(c.out, map[string]bool{"running": running})
	return nil
}

func (c command) Status(ctx context.Context, f StatusFlags) error {
	cl, err := c.apiClient(ctx, f.API)
	if err != nil {
		return err
	}
	st, err := cl.Status(ctx)
	if err != nil {
		return err
	}
	printJSON(c.out, st)
	return nil
}

// PresenceSet publishes an update. An unavailable channel is reported but
// is not a command failure.
func (c command) PresenceSet(ctx context.Context, f PresenceFlags) error {
	if f.Activity == "" && f.State == "" {
		return errors.New("either --activity or --state is required")
	}
	cl, err := c.apiClient(ctx, f.API)
	if err != nil {
		return err
	}
	err = cl.SetPresence(ctx, client.PresenceRequest{
		State:    f.State,
		Details:  f.Details,
		Activity: f.Activity,
		Server:   f.Server,
	})
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusServiceUnavailable {
		_, _ = fmt.Fprintf(c.out, "presence not updated: %s\n", apiErr.Message)
		return nil
	}
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(c.out, "presence updated")
	return nil
}

func (c command) PresenceClear(ctx context.Context, f PresenceFlags) error {
	cl, err := c.apiClient(ctx, f.API)
	if err != nil {
		return err
	}
	if err := cl.ClearPresence(ctx); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(c.out, "presence cleared")
	return nil
}
