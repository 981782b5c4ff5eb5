// Package launcher composes version probing, installer acquisition, runtime
// launch, liveness and presence into one service owned by the application.
package launcher

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
	"sync"

	"github.com/loykin/dreamlauncher/internal/config"
	"github.com/loykin/dreamlauncher/internal/detector"
	"github.com/loykin/dreamlauncher/internal/history"
	"github.com/loykin/dreamlauncher/internal/installer"
	"github.com/loykin/dreamlauncher/internal/mirror"
	"github.com/loykin/dreamlauncher/internal/presence"
	"github.com/loykin/dreamlauncher/internal/process"
	"github.com/loykin/dreamlauncher/internal/version"
)

// ErrPresenceDisabled is returned by presence calls when presence is off.
var ErrPresenceDisabled = fmt.Errorf("%w: disabled by configuration", presence.ErrUnavailable)

// Status is the combined view served to the UI.
type Status struct {
	InstallDir   string         `json:"install_dir"`
	LaunchMethod string         `json:"launch_method"`
	Runtime      process.Status `json:"runtime"`
	Presence     string         `json:"presence"`
}

// Service owns the runtime handle and the presence connection. Construct one
// per application and share it by pointer.
type Service struct {
	cfg    config.Config
	logger *slog.Logger
	client *http.Client

	prober     version.Prober
	downloader *mirror.Downloader
	verifier   *installer.Verifier
	procs      *process.Manager
	presence   *presence.Client
	sinks      []history.Sink

	mu         sync.Mutex
	installDir string
	lastServer string

	// in-flight presence updates started by Launch
	pending sync.WaitGroup
}

type options struct {
	logger        *slog.Logger
	client        *http.Client
	dialer        presence.Dialer
	finder        detector.Detector
	sinks         []history.Sink
	registryProbe func(string) bool
}

// Option customizes New.
type Option func(*options)

func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

func WithHTTPClient(c *http.Client) Option { return func(o *options) { o.client = c } }

// WithPresenceDialer replaces the Discord IPC transport.
func WithPresenceDialer(d presence.Dialer) Option { return func(o *options) { o.dialer = d } }

// WithDetector replaces the process-table search used by enumeration liveness.
func WithDetector(d detector.Detector) Option { return func(o *options) { o.finder = d } }

// WithHistory adds sinks for launch and exit events. Sinks implementing
// io.Closer are closed by Close.
func WithHistory(sinks ...history.Sink) Option {
	return func(o *options) { o.sinks = append(o.sinks, sinks...) }
}

// WithRegistryProbe replaces the installer's registry check.
func WithRegistryProbe(f func(string) bool) Option { return func(o *options) { o.registryProbe = f } }

// New builds a Service from cfg. cfg is copied.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("launcher: nil config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := options{}
	for _, fn := range opts {
		fn(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.client == nil {
		o.client = &http.Client{}
	}
	if o.finder == nil {
		o.finder = detector.ProcessNameDetector{Name: cfg.Runtime.ProcessName}
	}

	s := &Service{
		cfg:    *cfg,
		logger: o.logger,
		client: o.client,
		prober: version.Prober{
			Executable: cfg.Runtime.ProbeExecutable,
			Arg:        cfg.Runtime.VersionArg,
			Logger:     o.logger,
		},
		downloader: &mirror.Downloader{
			Primary:   cfg.Mirrors.Primary,
			Secondary: cfg.Mirrors.Secondary,
			Dir:       filepath.Join(cfg.DataDir, mirror.SubDir),
			Timeout:   cfg.Mirrors.Timeout,
			Client:    o.client,
			Logger:    o.logger,
		},
		verifier: &installer.Verifier{
			InstallDir:         cfg.Runtime.DefaultInstallDir,
			LauncherExecutable: cfg.Runtime.LauncherExecutable,
			RegistryKey:        cfg.Runtime.RegistryKey,
			RegistryProbe:      o.registryProbe,
			Logger:             o.logger,
		},
		procs:      process.NewManager(o.finder, o.logger),
		sinks:      o.sinks,
		installDir: cfg.EffectiveInstallDir(),
	}
	s.procs.SetHistory(o.sinks...)

	if cfg.Presence.Enabled {
		dial := o.dialer
		if dial == nil {
			dial = presence.DiscordDialer(cfg.Presence.ApplicationID)
		}
		s.presence = presence.New(dial, o.logger)
	}
	return s, nil
}

// InstallerDir is where downloaded installers are stored. Install only
// accepts installers from here when called over the API.
func (s *Service) InstallerDir() string { return s.downloader.Dir }

// InstallDir is the directory used when a call passes an empty one.
func (s *Service) InstallDir() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.installDir
}

// SetInstallDir changes the default install directory.
func (s *Service) SetInstallDir(dir string) {
	s.mu.Lock()
	s.installDir = dir
	s.mu.Unlock()
}

func (s *Service) dirOr(dir string) string {
	if dir != "" {
		return dir
	}
	return s.InstallDir()
}

// ProbeVersion reads the installed runtime version from dir.
func (s *Service) ProbeVersion(dir string) (version.Version, error) {
	return s.prober.Probe(s.dirOr(dir))
}

// RequiredVersion fetches the version the game servers expect.
func (s *Service) RequiredVersion(ctx context.Context) (version.Version, error) {
	return version.FetchRequired(ctx, s.client, s.cfg.Mirrors.RequiredVersionURL)
}

// CheckVersion compares the runtime in dir against the required version.
func (s *Service) CheckVersion(ctx context.Context, dir string) (version.Status, error) {
	return version.Check(ctx, s.prober, s.client, s.cfg.Mirrors.RequiredVersionURL, s.dirOr(dir))
}

// Download fetches the installer for major.minor.
func (s *Service) Download(ctx context.Context, major, minor uint32) (mirror.Outcome, error) {
	return s.downloader.Download(ctx, major, minor)
}

// Install runs a downloaded installer and verifies the result.
func (s *Service) Install(installerPath string) (installer.Outcome, error) {
	return s.verifier.Install(installerPath)
}

// AcquireAndInstall downloads and installs major.minor. When the current
// install dir has no runtime afterwards, the default install dir is adopted.
func (s *Service) AcquireAndInstall(ctx context.Context, major, minor uint32) (installer.Outcome, error) {
	dl, err := s.Download(ctx, major, minor)
	if err != nil {
		return installer.Outcome{}, err
	}
	out, err := s.Install(dl.InstallerPath)
	if err != nil {
		return installer.Outcome{}, err
	}
	cur := s.InstallDir()
	if _, err := os.Stat(s.prober.ExecutablePath(cur)); err != nil && cur != s.cfg.Runtime.DefaultInstallDir {
		s.logger.Info("Switching install dir to default after install", "from", cur, "to", s.cfg.Runtime.DefaultInstallDir)
		s.SetInstallDir(s.cfg.Runtime.DefaultInstallDir)
	}
	return out, nil
}

// Launch starts the runtime for address using the configured launch method
// and switches presence to in-game in the background. Presence failures are
// only logged.
func (s *Service) Launch(dir, address string) (string, error) {
	dir = s.dirOr(dir)
	var (
		msg string
		err error
	)
	switch s.cfg.Runtime.LaunchMethod {
	case config.LaunchPager:
		msg, err = s.procs.OpenLink(dir, s.cfg.Runtime.PagerExecutable, address)
	default:
		msg, err = s.procs.Launch(process.Spec{
			InstallDir: dir,
			Executable: s.cfg.Runtime.LauncherExecutable,
			Address:    address,
		})
	}
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.lastServer = address
	s.mu.Unlock()
	if s.presence != nil {
		s.pending.Add(1)
		go func() {
			defer s.pending.Done()
			if perr := s.SetInGameActivity(address); perr != nil {
				s.logger.Debug("Presence update after launch failed", "error", perr)
			}
		}()
	}
	return msg, nil
}

// waitPresence blocks until background presence updates have finished.
func (s *Service) waitPresence() { s.pending.Wait() }

// IsRunning is the handle-based liveness query.
func (s *Service) IsRunning() bool { return s.procs.IsRunning() }

// IsRunningAnywhere is the enumeration-based liveness query.
func (s *Service) IsRunningAnywhere() bool { return s.procs.IsRunningAnywhere() }

// Running uses the handle when one is tracked and enumeration otherwise.
func (s *Service) Running() bool {
	if s.procs.HasHandle() {
		return s.procs.IsRunning()
	}
	return s.procs.IsRunningAnywhere()
}

// Status returns install, runtime and presence state.
func (s *Service) Status() Status {
	st := Status{
		InstallDir:   s.InstallDir(),
		LaunchMethod: s.cfg.Runtime.LaunchMethod,
		Runtime:      s.procs.Status(),
		Presence:     "disabled",
	}
	if s.presence != nil {
		st.Presence = s.presence.State().String()
	}
	return st
}

// PublishPresence sends a raw presence update. The error is informational.
func (s *Service) PublishPresence(state, details string) error {
	if s.presence == nil {
		return ErrPresenceDisabled
	}
	return s.presence.Publish(state, details)
}

// SetLauncherActivity publishes the "in launcher" presence.
func (s *Service) SetLauncherActivity() error {
	return s.PublishPresence(s.cfg.Presence.LauncherState, s.cfg.Presence.LauncherDetails)
}

// SetInGameActivity publishes the "in game" presence for server.
func (s *Service) SetInGameActivity(server string) error {
	details := s.cfg.Presence.InGameDetails
	if strings.Contains(details, "%s") {
		details = fmt.Sprintf(details, server)
	}
	return s.PublishPresence(s.cfg.Presence.InGameState, details)
}

// ClearPresence closes the presence connection; the next publish reconnects.
func (s *Service) ClearPresence() {
	if s.presence != nil {
		s.presence.Shutdown()
	}
}

// Close waits for background presence updates, then releases presence and
// history sinks.
func (s *Service) Close() error {
	s.waitPresence()
	s.ClearPresence()
	var errs []error
	for _, sink := range s.sinks {
		if c, ok := sink.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
