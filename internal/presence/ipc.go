package presence

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultApplicationID is the Discord application the launcher reports as.
const DefaultApplicationID = "1377501813862961244"

const (
	opHandshake uint32 = 0
	opFrame     uint32 = 1
	opClose     uint32 = 2

	maxSockets = 10
	ioTimeout  = 5 * time.Second
	maxFrame   = 1 << 20
)

// IPC speaks the Discord local RPC framing: a little-endian opcode and
// length followed by a JSON body.
type IPC struct {
	ClientID string
	// Dial opens socket n; nil uses the platform socket or named pipe.
	Dial func(n int) (net.Conn, error)

	mu   sync.Mutex
	conn net.Conn
}

// NewIPC returns an unconnected transport for clientID.
func NewIPC(clientID string) *IPC {
	if clientID == "" {
		clientID = DefaultApplicationID
	}
	return &IPC{ClientID: clientID}
}

// DiscordDialer returns a Dialer producing IPC transports.
func DiscordDialer(clientID string) Dialer {
	return func() (Transport, error) { return NewIPC(clientID), nil }
}

type rpcMessage struct {
	Cmd   string          `json:"cmd,omitempty"`
	Evt   string          `json:"evt,omitempty"`
	Nonce string          `json:"nonce,omitempty"`
	Args  any             `json:"args,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type activityArgs struct {
	PID      int             `json:"pid"`
	Activity activityPayload `json:"activity"`
}

type activityPayload struct {
	State      string `json:"state,omitempty"`
	Details    string `json:"details,omitempty"`
	Timestamps struct {
		Start int64 `json:"start,omitempty"`
	} `json:"timestamps"`
}

func (c *IPC) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked()
}

func (c *IPC) connectLocked() error {
	if c.conn != nil {
		return nil
	}
	dial := c.Dial
	if dial == nil {
		dial = dialSocket
	}
	var dialErr, hsErr error
	for n := 0; n < maxSockets; n++ {
		conn, err := dial(n)
		if err != nil {
			dialErr = err
			continue
		}
		if err := handshake(conn, c.ClientID); err != nil {
			_ = conn.Close()
			hsErr = err
			continue
		}
		c.conn = conn
		return nil
	}
	// a reachable but unhappy peer says more than a missing socket
	if hsErr != nil {
		return hsErr
	}
	if dialErr == nil {
		dialErr = errors.New("no discord-ipc socket found")
	}
	return dialErr
}

func handshake(conn net.Conn, clientID string) error {
	_ = conn.SetDeadline(time.Now().Add(ioTimeout))
	defer func() { _ = conn.SetDeadline(time.Time{}) }()

	if err := writeFrame(conn, opHandshake, map[string]any{"v": 1, "client_id": clientID}); err != nil {
		return err
	}
	op, body, err := readFrame(conn)
	if err != nil {
		return err
	}
	if op == opClose {
		return fmt.Errorf("handshake rejected: %s", body)
	}
	var msg rpcMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("bad handshake reply: %w", err)
	}
	if msg.Evt != "READY" {
		return fmt.Errorf("unexpected handshake event %q", msg.Evt)
	}
	return nil
}

func (c *IPC) Send(a Activity) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return errors.New("not connected")
	}

	var p activityPayload
	p.State = a.State
	p.Details = a.Details
	if !a.Start.IsZero() {
		p.Timestamps.Start = a.Start.Unix()
	}
	req := rpcMessage{
		Cmd:   "SET_ACTIVITY",
		Nonce: uuid.NewString(),
		Args:  activityArgs{PID: os.Getpid(), Activity: p},
	}

	_ = c.conn.SetDeadline(time.Now().Add(ioTimeout))
	defer func() { _ = c.conn.SetDeadline(time.Time{}) }()
	if err := writeFrame(c.conn, opFrame, req); err != nil {
		return err
	}
	op, body, err := readFrame(c.conn)
	if err != nil {
		return err
	}
	if op == opClose {
		return fmt.Errorf("connection closed by peer: %s", body)
	}
	var resp rpcMessage
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("bad response: %w", err)
	}
	if resp.Evt == "ERROR" {
		var e rpcError
		_ = json.Unmarshal(resp.Data, &e)
		return fmt.Errorf("set activity failed: %s (code %d)", e.Message, e.Code)
	}
	if resp.Nonce != req.Nonce {
		return fmt.Errorf("response nonce mismatch")
	}
	return nil
}

func (c *IPC) Reconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
	return c.connectLocked()
}

func (c *IPC) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked()
}

func (c *IPC) closeLocked() error {
	if c.conn == nil {
		return nil
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(time.Second))
	_ = writeFrame(c.conn, opClose, map[string]any{})
	err := c.conn.Close()
	c.conn = nil
	return err
}

func writeFrame(w io.Writer, op uint32, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf := make([]byte, 8+len(body))
	binary.LittleEndian.PutUint32(buf[0:4], op)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(body)))
	copy(buf[8:], body)
	_, err = w.Write(buf)
	return err
}

func readFrame(r io.Reader) (uint32, []byte, error) {
	var hdr [8]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return 0, nil, err
	}
	op := binary.LittleEndian.Uint32(hdr[0:4])
	n := binary.LittleEndian.Uint32(hdr[4:8])
	if n > maxFrame {
		return 0, nil, fmt.Errorf("frame too large: %d bytes", n)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return 0, nil, err
	}
	return op, body, nil
}
