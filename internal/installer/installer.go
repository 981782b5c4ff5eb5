package installer

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/loykin/dreamlauncher/internal/metrics"
)

const (
	DefaultInstallDir         = `C:\Program Files (x86)\BYOND`
	DefaultLauncherExecutable = "dreamseeker.exe"
	DefaultRegistryKey        = `Software\Dantom\BYOND`
)

// ErrUnverified is returned when the installer ran but neither the install
// path nor the registry key shows a runtime.
var ErrUnverified = errors.New("BYOND installation could not be verified. The installation may have been cancelled or failed")

// Outcome is the terminal result of running an installer.
type Outcome struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Verifier runs a downloaded installer and decides whether it worked.
// The installer exit code is ignored: it is non-zero on harmless cancels and
// zero on some runs that install nothing. Success is the OR of a filesystem
// probe and a registry probe.
type Verifier struct {
	InstallDir         string // probed read-only, default DefaultInstallDir
	LauncherExecutable string
	RegistryKey        string
	// RegistryProbe reports whether the key exists; nil uses the platform probe.
	RegistryProbe func(key string) bool
	Logger        *slog.Logger
}

// Install executes installerPath, waits for it without a deadline and
// verifies the result.
func (v *Verifier) Install(installerPath string) (Outcome, error) {
	if _, err := os.Stat(installerPath); err != nil {
		return Outcome{}, fmt.Errorf("installer not found at %s: %w", installerPath, os.ErrNotExist)
	}
	log := v.logger()

	// #nosec G204 -- installer path comes from our own download dir
	cmd := exec.Command(installerPath)
	if err := cmd.Run(); err != nil {
		var ee *exec.ExitError
		if !errors.As(err, &ee) {
			metrics.IncInstall(false)
			return Outcome{}, fmt.Errorf("failed to execute installer: %w", err)
		}
		log.Warn("Installer exited non-zero, verifying anyway", "path", installerPath, "status", ee.ProcessState.String())
	}

	dir := valOr(v.InstallDir, DefaultInstallDir)
	onDisk := v.pathInstalled(dir)
	inRegistry := v.registryInstalled()
	log.Info("Verified installation", "path_probe", onDisk, "registry_probe", inRegistry)

	if !onDisk && !inRegistry {
		metrics.IncInstall(false)
		return Outcome{}, ErrUnverified
	}
	metrics.IncInstall(true)
	return Outcome{
		Success: true,
		Message: fmt.Sprintf("BYOND installed successfully at %s", dir),
	}, nil
}

func (v *Verifier) pathInstalled(dir string) bool {
	exe := valOr(v.LauncherExecutable, DefaultLauncherExecutable)
	_, err := os.Stat(filepath.Join(dir, "bin", exe))
	return err == nil
}

func (v *Verifier) registryInstalled() bool {
	probe := v.RegistryProbe
	if probe == nil {
		probe = registryKeyExists
	}
	return probe(valOr(v.RegistryKey, DefaultRegistryKey))
}

func (v *Verifier) logger() *slog.Logger {
	if v.Logger != nil {
		return v.Logger
	}
	return slog.Default()
}

func valOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
