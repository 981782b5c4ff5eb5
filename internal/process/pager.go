package process

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/loykin/dreamlauncher/internal/metrics"
)

const DefaultPagerExecutable = "byond.exe"

// Link returns the protocol-handler URL for a server address.
func Link(address string) string { return "byond://" + address }

// OpenLink hands the address to the pager, which starts the runtime itself.
// No handle is tracked; only enumeration can see the resulting runtime.
func (m *Manager) OpenLink(installDir, pager, address string) (string, error) {
	if pager == "" {
		pager = DefaultPagerExecutable
	}
	path := filepath.Join(installDir, "bin", pager)
	if _, err := os.Stat(path); err != nil {
		metrics.IncLaunch(false)
		return "", fmt.Errorf("pager executable not found at %s: %w", path, os.ErrNotExist)
	}
	link := Link(address)
	// #nosec G204 -- no shell; the link is a single argv entry
	cmd := exec.Command(path, link)
	configureSysProcAttr(cmd)
	if err := cmd.Start(); err != nil {
		metrics.IncLaunch(false)
		return "", fmt.Errorf("failed to open %s: %w", link, err)
	}
	go func() { _ = cmd.Wait() }()
	metrics.IncLaunch(true)
	m.logger.Info("Opened server link with pager", "link", link, "pid", cmd.Process.Pid)
	return fmt.Sprintf("Started BYOND pager for %s", address), nil
}
