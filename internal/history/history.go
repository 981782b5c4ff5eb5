package history

import (
	"context"
	"log/slog"
	"time"
)

// EventType defines the kind of session event.
type EventType string

const (
	EventLaunch EventType = "launch"
	EventExit   EventType = "exit"
)

// Record describes one runtime session as seen at the time of the event.
type Record struct {
	Name      string    `json:"name"`
	PID       int       `json:"pid"`
	Address   string    `json:"address"`
	StartedAt time.Time `json:"started_at"`
	StoppedAt time.Time `json:"stopped_at,omitempty"`
	ExitErr   string    `json:"exit_error,omitempty"`
}

// Event is a session lifecycle event exported to external systems.
type Event struct {
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Record     Record    `json:"record"`
}

// Sink is a destination for history events.
// Implementations must be safe for concurrent use.
type Sink interface {
	Send(ctx context.Context, e Event) error
}

// SendTimeout bounds a single Dispatch.
const SendTimeout = 5 * time.Second

// Dispatch delivers e to every sink. History is advisory: failures are logged
// and never returned.
func Dispatch(logger *slog.Logger, sinks []Sink, e Event) {
	if len(sinks) == 0 {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithTimeout(context.Background(), SendTimeout)
	defer cancel()
	for _, s := range sinks {
		if err := s.Send(ctx, e); err != nil {
			logger.Warn("Failed to record history event", "type", e.Type, "pid", e.Record.PID, "error", err)
		}
	}
}
