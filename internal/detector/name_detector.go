package detector

import (
	"fmt"
	"strings"

	gopsproc "github.com/shirou/gopsutil/v4/process"
)

// ProcessNameDetector scans the OS process table for an executable name,
// compared case-insensitively. It finds runtimes started outside this
// process, e.g. by a protocol handler. Cost is O(processes); poll it at UI
// cadence, not in a loop.
type ProcessNameDetector struct {
	Name string
}

func (d ProcessNameDetector) Alive() (bool, error) {
	procs, err := gopsproc.Processes()
	if err != nil {
		return false, fmt.Errorf("list processes: %w", err)
	}
	for _, p := range procs {
		name, err := p.Name()
		if err != nil {
			continue // exited or not permitted
		}
		if matches(name, d.Name) {
			return true, nil
		}
	}
	return false, nil
}

func (d ProcessNameDetector) Describe() string { return "name:" + d.Name }

// matches compares a process table name to the wanted executable name. On
// Linux the kernel reports names without the .exe a Windows build carries, so
// an .exe suffix on either side is not significant.
func matches(have, want string) bool {
	if want == "" {
		return false
	}
	if strings.EqualFold(have, want) {
		return true
	}
	trim := func(s string) string {
		if len(s) > 4 && strings.EqualFold(s[len(s)-4:], ".exe") {
			return s[:len(s)-4]
		}
		return s
	}
	return strings.EqualFold(trim(have), trim(want))
}
