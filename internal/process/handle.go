package process

import (
	"errors"
	"os/exec"
	"time"
)

// handle owns one spawned runtime. A single goroutine reaps it and closes done;
// err and state are written before done is closed and read only after.
type handle struct {
	cmd       *exec.Cmd
	spec      Spec
	startedAt time.Time
	done      chan struct{}
	err       error
	stoppedAt time.Time
}

func startHandle(cmd *exec.Cmd, spec Spec) (*handle, error) {
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	h := &handle{cmd: cmd, spec: spec, startedAt: time.Now(), done: make(chan struct{})}
	go func() {
		h.err = cmd.Wait()
		h.stoppedAt = time.Now()
		close(h.done)
	}()
	return h, nil
}

func (h *handle) pid() int {
	if h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}

// poll is the non-blocking status check. exited is true once the process is
// gone; failed is true when the wait itself broke rather than the process
// exiting.
func (h *handle) poll() (exited, failed bool) {
	select {
	case <-h.done:
		var ee *exec.ExitError
		if h.err != nil && !errors.As(h.err, &ee) {
			return true, true
		}
		return true, false
	default:
		return false, false
	}
}

func (h *handle) exitErr() string {
	if h.err == nil {
		return ""
	}
	return h.err.Error()
}
