//go:build !windows

package presence

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"
)

func socketDir() string {
	for _, k := range []string{"XDG_RUNTIME_DIR", "TMPDIR", "TMP", "TEMP"} {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return "/tmp"
}

func dialSocket(n int) (net.Conn, error) {
	path := filepath.Join(socketDir(), fmt.Sprintf("discord-ipc-%d", n))
	return net.DialTimeout("unix", path, 2*time.Second)
}
