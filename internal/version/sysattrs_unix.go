//go:build !windows

package version

import "os/exec"

func hideWindow(*exec.Cmd) {}
