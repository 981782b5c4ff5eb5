// Package presence publishes launcher status to a local rich-presence service.
// Every failure degrades to "no update happened"; callers log and move on.
package presence

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/loykin/dreamlauncher/internal/metrics"
)

var (
	// ErrUnavailable wraps failures to reach the presence service.
	ErrUnavailable = errors.New("presence channel unavailable")
	// ErrReconnected means the send failed but the connection was re-established;
	// the update is dropped and the next Publish uses the primed connection.
	ErrReconnected = errors.New("presence update dropped after reconnect")
)

// Activity is the payload of one presence update.
type Activity struct {
	State   string    `json:"state"`
	Details string    `json:"details"`
	Start   time.Time `json:"start"`
}

// Transport is one connection to the presence service.
type Transport interface {
	Connect() error
	Send(a Activity) error
	Reconnect() error
	Close() error
}

// Dialer creates an unconnected Transport.
type Dialer func() (Transport, error)

// State is the connection state of a Client.
type State int

const (
	Disconnected State = iota
	Connected
)

func (s State) String() string {
	if s == Connected {
		return "connected"
	}
	return "disconnected"
}

// onPublishFailure runs after a send on an existing connection failed. It tries
// one in-place reconnect; on failure the connection is closed and dropped.
func onPublishFailure(t Transport, log *slog.Logger) State {
	if err := t.Reconnect(); err != nil {
		log.Debug("Presence reconnect failed, dropping connection", "error", err)
		if cerr := t.Close(); cerr != nil {
			log.Debug("Presence close failed", "error", cerr)
		}
		return Disconnected
	}
	return Connected
}

// Client owns at most one Transport and guards it with a mutex.
type Client struct {
	mu     sync.Mutex
	dial   Dialer
	conn   Transport
	logger *slog.Logger
	now    func() time.Time
}

func New(dial Dialer, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{dial: dial, logger: logger, now: time.Now}
}

// State reports whether a connection is currently held.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return Connected
	}
	return Disconnected
}

// Publish sends state and details with a start timestamp taken now.
func (c *Client) Publish(state, details string) error {
	err := c.publish(state, details)
	metrics.IncPresencePublish(err == nil)
	return err
}

func (c *Client) publish(state, details string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	a := Activity{State: state, Details: details, Start: c.now()}

	if c.conn != nil {
		err := c.conn.Send(a)
		if err == nil {
			return nil
		}
		c.logger.Debug("Presence send failed", "error", err)
		if onPublishFailure(c.conn, c.logger) == Connected {
			return fmt.Errorf("%w: %v", ErrReconnected, err)
		}
		c.conn = nil
	}

	if c.dial == nil {
		return fmt.Errorf("%w: no transport configured", ErrUnavailable)
	}
	t, err := c.dial()
	if err != nil {
		return fmt.Errorf("%w: failed to create presence client: %v", ErrUnavailable, err)
	}
	if err := t.Connect(); err != nil {
		return fmt.Errorf("%w: failed to connect: %v", ErrUnavailable, err)
	}
	if err := t.Send(a); err != nil {
		_ = t.Close()
		return fmt.Errorf("%w: failed to set activity: %v", ErrUnavailable, err)
	}
	c.conn = t
	return nil
}

// Shutdown closes the held connection, if any. It is idempotent and close
// failures are only logged.
func (c *Client) Shutdown() {
	c.mu.Lock()
	t := c.conn
	c.conn = nil
	c.mu.Unlock()
	if t == nil {
		return
	}
	if err := t.Close(); err != nil {
		c.logger.Warn("Failed to close presence connection", "error", err)
	}
}
