package history

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

type memSink struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (m *memSink) Send(_ context.Context, e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, e)
	return nil
}

func TestDispatchDeliversToAllSinksAndLogsFailures(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	good := &memSink{}
	bad := &memSink{err: errors.New("disk full")}
	e := Event{Type: EventLaunch, OccurredAt: time.Now(), Record: Record{Name: "dreamseeker.exe", PID: 42, Address: "goon1.goonhub.com:26100"}}

	Dispatch(logger, []Sink{bad, good}, e)

	if len(good.events) != 1 || good.events[0].Record.PID != 42 {
		t.Fatalf("good sink got %+v", good.events)
	}
	if !strings.Contains(buf.String(), "disk full") {
		t.Fatalf("expected failure to be logged, got %q", buf.String())
	}
}

func TestDispatchWithoutSinks(t *testing.T) {
	Dispatch(nil, nil, Event{Type: EventExit}) // must not panic
}
