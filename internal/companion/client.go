// Package companion speaks the command/event protocol of the native
// companion process over a WebSocket.
//
// Every call is a single request frame answered by exactly one response
// frame with the same id:
//
//	→ {"id":"…","cmd":"list_ports","args":{…}}
//	← {"id":"…","result":…}            success
//	← {"id":"…","error":…}             failure, any JSON value
//
// The companion may also push events at any time:
//
//	← {"event":"compile-progress","payload":{…}}
package companion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/buckleypaul/boardbridge/internal/device"
)

// ErrClosed is returned for calls made on, or interrupted by, a closed connection.
var ErrClosed = errors.New("companion connection closed")

// RemoteError is a failure value reported by the companion for one command.
type RemoteError struct {
	Command string
	Value   json.RawMessage
}

func (e *RemoteError) Error() string {
	return e.Message()
}

// Message returns the normalized failure text.
func (e *RemoteError) Message() string {
	return device.ErrorMessage(e.Decoded())
}

// Decoded returns the failure value as generic JSON data.
func (e *RemoteError) Decoded() any {
	return device.DecodeErrorValue(e.Value)
}

// EventHandler receives the raw payload of a pushed event.
type EventHandler func(payload json.RawMessage)

type request struct {
	ID   string `json:"id"`
	Cmd  string `json:"cmd"`
	Args any    `json:"args,omitempty"`
}

type frame struct {
	ID      string          `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   json.RawMessage `json:"error,omitempty"`
	Event   string          `json:"event,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type listener struct {
	id uint64
	fn EventHandler
}

// Client is a connection to the companion process. It is safe for
// concurrent use; calls in flight are independent of each other.
type Client struct {
	conn *websocket.Conn
	log  zerolog.Logger

	writeMu sync.Mutex

	mu         sync.Mutex
	pending    map[string]chan frame
	listeners  map[string][]listener
	nextListen uint64
	closed     bool
	err        error
	done       chan struct{}
}

// Dial connects to the companion at url.
func Dial(ctx context.Context, url string, log zerolog.Logger) (*Client, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial companion %s: %s: %w", url, resp.Status, err)
		}
		return nil, fmt.Errorf("dial companion %s: %w", url, err)
	}
	log.Debug().Str("url", url).Msg("Connected to companion")
	return NewClient(conn, log), nil
}

// NewClient wraps an established connection and starts reading from it.
func NewClient(conn *websocket.Conn, log zerolog.Logger) *Client {
	c := &Client{
		conn:      conn,
		log:       log,
		pending:   make(map[string]chan frame),
		listeners: make(map[string][]listener),
		done:      make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// Invoke sends cmd with args and waits for its response. On success the
// result is decoded into result when result is non-nil. A failure reported
// by the companion is returned as *RemoteError.
func (c *Client) Invoke(ctx context.Context, cmd string, args, result any) error {
	id := uuid.NewString()
	ch := make(chan frame, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("%s: %w", cmd, ErrClosed)
	}
	c.pending[id] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := c.send(ctx, request{ID: id, Cmd: cmd, Args: args}); err != nil {
		return fmt.Errorf("send %s: %w", cmd, err)
	}

	select {
	case resp := <-ch:
		return decodeResponse(cmd, resp, result)
	case <-ctx.Done():
		c.log.Debug().Str("cmd", cmd).Str("id", id).Err(ctx.Err()).Msg("Abandoned companion call")
		return fmt.Errorf("%s: %w", cmd, ctx.Err())
	case <-c.done:
		select {
		case resp := <-ch:
			return decodeResponse(cmd, resp, result)
		default:
		}
		return fmt.Errorf("%s: %w", cmd, ErrClosed)
	}
}

func decodeResponse(cmd string, resp frame, result any) error {
	if hasValue(resp.Error) {
		return &RemoteError{Command: cmd, Value: resp.Error}
	}
	if result == nil || !hasValue(resp.Result) {
		return nil
	}
	if err := json.Unmarshal(resp.Result, result); err != nil {
		return fmt.Errorf("decode %s result: %w", cmd, err)
	}
	return nil
}

func hasValue(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

func (c *Client) send(ctx context.Context, req request) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Time{}
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.conn.WriteJSON(req)
}

// Listen registers fn for events named event. Handlers run synchronously on
// the connection's read goroutine. The returned function removes the
// handler and is safe to call more than once.
func (c *Client) Listen(event string, fn EventHandler) (unlisten func()) {
	c.mu.Lock()
	c.nextListen++
	id := c.nextListen
	c.listeners[event] = append(c.listeners[event], listener{id: id, fn: fn})
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			ls := c.listeners[event]
			for i, l := range ls {
				if l.id == id {
					c.listeners[event] = append(ls[:i:i], ls[i+1:]...)
					break
				}
			}
			if len(c.listeners[event]) == 0 {
				delete(c.listeners, event)
			}
		})
	}
}

// Done is closed when the connection ends.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err returns the reason the connection ended, if it has.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close ends the connection. Pending calls fail with ErrClosed.
func (c *Client) Close() error {
	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()

	err := c.conn.Close()
	c.shutdown(ErrClosed)
	return err
}

func (c *Client) shutdown(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.err = err
	close(c.done)
}

func (c *Client) readLoop() {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Warn().Err(err).Msg("Companion connection lost")
			}
			c.shutdown(fmt.Errorf("%w: %v", ErrClosed, err))
			return
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			c.log.Warn().Err(err).Msg("Dropping malformed companion frame")
			continue
		}

		if f.Event != "" {
			c.dispatch(f.Event, f.Payload)
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[f.ID]
		c.mu.Unlock()
		if !ok {
			c.log.Debug().Str("id", f.ID).Msg("Response for unknown or abandoned call")
			continue
		}
		select {
		case ch <- f:
		default:
		}
	}
}

func (c *Client) dispatch(event string, payload json.RawMessage) {
	c.mu.Lock()
	ls := append([]listener(nil), c.listeners[event]...)
	c.mu.Unlock()

	for _, l := range ls {
		l.fn(payload)
	}
}
