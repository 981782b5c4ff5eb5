package launcher

import (
	"context"
	"time"

	"github.com/loykin/dreamlauncher/internal/metrics"
)

// Watch polls liveness every interval until ctx is done and moves presence
// between launcher and in-game on each edge. It publishes the launcher
// activity once at start.
func (s *Service) Watch(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = s.cfg.Server.PollInterval
	}
	if err := s.SetLauncherActivity(); err != nil {
		s.logger.Debug("Initial presence update failed", "error", err)
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	running := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			running = s.step(running)
		}
	}
}

// step runs one poll and returns the new running state.
func (s *Service) step(wasRunning bool) bool {
	running := s.Running()
	metrics.SetRuntimeRunning(running)
	if running == wasRunning {
		return running
	}

	var err error
	if running {
		s.mu.Lock()
		server := s.lastServer
		s.mu.Unlock()
		if server == "" {
			server = "a server"
		}
		s.logger.Info("Runtime detected", "server", server)
		err = s.SetInGameActivity(server)
	} else {
		s.logger.Info("Runtime no longer running")
		err = s.SetLauncherActivity()
	}
	if err != nil {
		s.logger.Debug("Presence update failed", "error", err)
	}
	return running
}
