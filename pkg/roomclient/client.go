// Package roomclient is a reconnecting client for the room coordinator.
// It owns a durable session id, redials with exponential backoff after
// unexpected closure, and re-sends hello on every (re)connection so the
// coordinator reconciles it against its existing seat instead of
// treating it as a new player.
package roomclient

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/undercover-game/backend/pkg/protocol"
)

var ErrNotConnected = errors.New("not connected")

type ConnStatus string

const (
	StatusConnecting   ConnStatus = "connecting"
	StatusOpen         ConnStatus = "open"
	StatusReconnecting ConnStatus = "reconnecting"
	StatusClosed       ConnStatus = "closed"
	StatusFailed       ConnStatus = "failed"
)

type EventType string

const (
	EventState  EventType = "state"
	EventError  EventType = "error"
	EventStatus EventType = "status"
)

// Event is one notification from the client: a fresh room state, a
// rejected command's message, or a connection status change. Only the
// field matching Type is meaningful.
type Event struct {
	Type    EventType
	State   protocol.StateData
	Message string
	Status  ConnStatus
}

type Option func(*Client)

// WithSessionID sets the durable session id, e.g. one restored from
// client-side storage. Defaults to a fresh uuid.
func WithSessionID(id string) Option {
	return func(c *Client) { c.sessionID = id }
}

func WithBackoff(base, max time.Duration) Option {
	return func(c *Client) {
		c.baseDelay = base
		c.maxDelay = max
	}
}

type Client struct {
	url       string
	sessionID string
	baseDelay time.Duration
	maxDelay  time.Duration

	mu        sync.Mutex
	conn      *websocket.Conn
	state     protocol.StateData
	status    ConnStatus
	closing   bool
	listeners map[int]func(Event)
	nextID    int

	cancel context.CancelFunc
	done   chan struct{}
}

func New(url string, opts ...Option) *Client {
	c := &Client{
		url:       url,
		sessionID: uuid.NewString(),
		baseDelay: 250 * time.Millisecond,
		maxDelay:  4 * time.Second,
		status:    StatusClosed,
		state:     protocol.StateData{Status: "Idle"},
		listeners: map[int]func(Event){},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect starts the dial/read loop in the background. It returns
// immediately; observe progress through On.
func (c *Client) Connect(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()

	go func() {
		defer close(done)
		c.run(ctx)
	}()
}

// Close stops reconnecting and drops the connection.
func (c *Client) Close() {
	c.mu.Lock()
	c.closing = true
	cancel := c.cancel
	conn := c.conn
	done := c.done
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "bye")
	}
	if done != nil {
		<-done
	}
}

// On registers a listener for all events and returns its unsubscribe.
func (c *Client) On(fn func(Event)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

func (c *Client) SessionID() string { return c.sessionID }

func (c *Client) Status() ConnStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// State returns the last room state received.
func (c *Client) State() protocol.StateData {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) ClaimHost() error { return c.send(protocol.MsgClaimHost) }
func (c *Client) Join() error      { return c.send(protocol.MsgJoin) }
func (c *Client) StartGame() error { return c.send(protocol.MsgStartGame) }
func (c *Client) EndGame() error   { return c.send(protocol.MsgEndGame) }
func (c *Client) Leave() error     { return c.send(protocol.MsgLeave) }

func (c *Client) run(ctx context.Context) {
	attempt := 0
	c.setStatus(StatusConnecting)

	for {
		conn, _, err := websocket.Dial(ctx, c.url, nil)
		if err == nil {
			attempt = 0
			c.mu.Lock()
			c.conn = conn
			c.mu.Unlock()
			// hello goes out before the open status so a command fired
			// from a status listener cannot overtake the registration
			c.sendHello(ctx)
			c.setStatus(StatusOpen)

			c.readLoop(ctx, conn)

			c.mu.Lock()
			c.conn = nil
			c.mu.Unlock()
		}

		if ctx.Err() != nil {
			c.setStatus(c.terminalStatus())
			return
		}

		attempt++
		if attempt == 1 {
			c.setStatus(StatusReconnecting)
		}
		select {
		case <-time.After(backoffDelay(c.baseDelay, c.maxDelay, attempt)):
		case <-ctx.Done():
			c.setStatus(c.terminalStatus())
			return
		}
	}
}

// terminalStatus distinguishes a requested Close from the dial context
// dying under the client: only the former ends at "closed".
func (c *Client) terminalStatus() ConnStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closing {
		return StatusClosed
	}
	return StatusFailed
}

// backoffDelay doubles from base on each attempt, capped at max. The
// first retry waits base; resetting attempt to zero on a successful
// connection restarts the schedule.
func backoffDelay(base, max time.Duration, attempt int) time.Duration {
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}

		var sm protocol.ServerMessage
		if err := json.Unmarshal(data, &sm); err != nil {
			continue
		}

		switch sm.Type {
		case protocol.MsgState:
			var st protocol.StateData
			if err := json.Unmarshal(sm.Data, &st); err != nil {
				continue
			}
			c.mu.Lock()
			c.state = st
			c.mu.Unlock()
			c.emit(Event{Type: EventState, State: st})

		case protocol.MsgError:
			var ed protocol.ErrorData
			if err := json.Unmarshal(sm.Data, &ed); err != nil {
				continue
			}
			c.emit(Event{Type: EventError, Message: ed.Message})
		}
	}
}

func (c *Client) sendHello(ctx context.Context) {
	frame, err := json.Marshal(protocol.ClientMessage{
		Type: protocol.MsgHello,
		Data: &protocol.HelloData{SessionID: c.sessionID},
	})
	if err != nil {
		return
	}
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return
	}
	wctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_ = conn.Write(wctx, websocket.MessageText, frame)
}

func (c *Client) send(msgType string) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	frame, err := json.Marshal(protocol.ClientMessage{Type: msgType})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, frame)
}

func (c *Client) setStatus(status ConnStatus) {
	c.mu.Lock()
	if c.status == status {
		c.mu.Unlock()
		return
	}
	c.status = status
	c.mu.Unlock()
	c.emit(Event{Type: EventStatus, Status: status})
}

func (c *Client) emit(ev Event) {
	c.mu.Lock()
	fns := make([]func(Event), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}
