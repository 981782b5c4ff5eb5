package version

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
)

const (
	DefaultProbeExecutable = "dd.exe"
	DefaultVersionArg      = "-version"
)

// Prober asks an installed runtime for its own version.
type Prober struct {
	Executable string // file name under <install_dir>/bin, default dd.exe
	Arg        string // version query flag, default -version
	Logger     *slog.Logger
}

// ExecutablePath returns the probe executable location for installDir.
func (p Prober) ExecutablePath(installDir string) string {
	exe := p.Executable
	if exe == "" {
		exe = DefaultProbeExecutable
	}
	return filepath.Join(installDir, "bin", exe)
}

// Probe runs the probe executable and parses its stdout. A non-zero exit
// status is tolerated because dd.exe exits non-zero on -version; only a
// failure to run the process at all is reported.
func (p Prober) Probe(installDir string) (Version, error) {
	path := p.ExecutablePath(installDir)
	if _, err := os.Stat(path); err != nil {
		return Version{}, fmt.Errorf("dream daemon executable not found at %s: %w", path, os.ErrNotExist)
	}
	arg := p.Arg
	if arg == "" {
		arg = DefaultVersionArg
	}

	// #nosec G204 -- path is derived from the configured install dir
	cmd := exec.Command(path, arg)
	hideWindow(cmd)
	out, err := cmd.Output()
	if err != nil {
		var ee *exec.ExitError
		if !errors.As(err, &ee) {
			return Version{}, fmt.Errorf("failed to execute %s: %w", filepath.Base(path), err)
		}
		p.logger().Debug("Version probe exited non-zero", "path", path, "status", ee.ProcessState.String())
	}
	v, err := Parse(string(out))
	if err != nil {
		return Version{}, err
	}
	p.logger().Debug("Probed runtime version", "path", path, "version", v.String())
	return v, nil
}

func (p Prober) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}
