package process

import "time"

// Status is a snapshot of the tracked runtime session.
type Status struct {
	Name       string    `json:"name"`
	Running    bool      `json:"running"`
	PID        int       `json:"pid"`
	Address    string    `json:"address"`
	StartedAt  time.Time `json:"started_at"`
	StoppedAt  time.Time `json:"stopped_at"`
	ExitErr    string    `json:"exit_error,omitempty"`
	DetectedBy string    `json:"detected_by"` // "handle", the enumeration detector, or empty
}
