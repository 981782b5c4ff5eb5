//go:build windows

package presence

import (
	"fmt"
	"net"
	"time"

	"github.com/Microsoft/go-winio"
)

func dialSocket(n int) (net.Conn, error) {
	timeout := 2 * time.Second
	return winio.DialPipe(fmt.Sprintf(`\\.\pipe\discord-ipc-%d`, n), &timeout)
}
