package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/krshsl/praxis/interviewer/session"
)

type Options struct {
	ReadLimit  int64
	PongWait   time.Duration
	PingPeriod time.Duration
	WriteWait  time.Duration
	// CloseGrace is how long Close waits for the peer to answer the close frame.
	CloseGrace time.Duration
}

func DefaultOptions() Options {
	return Options{
		ReadLimit:  10 * 1024 * 1024,
		PongWait:   60 * time.Second,
		PingPeriod: 54 * time.Second,
		WriteWait:  10 * time.Second,
		CloseGrace: time.Second,
	}
}

type outbound struct {
	kind int
	data []byte
	done chan error
}

// Conn is a session.Channel over one websocket connection. A single write
// pump owns every write, so frames reach the peer in the order they were
// sent and pings never interleave with a data frame.
type Conn struct {
	ws   *websocket.Conn
	opts Options

	out       chan outbound
	in        chan session.Inbound
	readDone  chan struct{}
	writeDone chan struct{}
	closeOnce sync.Once
	closeErr  error
}

var _ session.Channel = (*Conn)(nil)

func NewConn(ws *websocket.Conn, opts Options) *Conn {
	c := &Conn{
		ws:        ws,
		opts:      opts,
		out:       make(chan outbound),
		in:        make(chan session.Inbound, 4),
		readDone:  make(chan struct{}),
		writeDone: make(chan struct{}),
	}
	go c.readPump()
	go c.writePump()
	return c
}

func (c *Conn) readPump() {
	defer func() {
		close(c.in)
		close(c.readDone)
	}()

	c.ws.SetReadLimit(c.opts.ReadLimit)
	c.ws.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	})

	for {
		kind, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				slog.Warn("WebSocket read error", "error", err)
			}
			return
		}
		// A frame counts as activity just like a pong.
		c.ws.SetReadDeadline(time.Now().Add(c.opts.PongWait))

		select {
		case c.in <- session.Inbound{Binary: kind == websocket.BinaryMessage, Data: data}:
		case <-c.writeDone:
			return
		}
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(c.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		close(c.writeDone)
	}()

	for {
		select {
		case msg := <-c.out:
			c.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			err := c.ws.WriteMessage(msg.kind, msg.data)
			msg.done <- err
			if err != nil || msg.kind == websocket.CloseMessage {
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.readDone:
			return
		}
	}
}

func (c *Conn) write(ctx context.Context, kind int, data []byte) error {
	msg := outbound{kind: kind, data: data, done: make(chan error, 1)}
	select {
	case c.out <- msg:
	case <-c.writeDone:
		return session.ErrChannelClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-msg.done:
		if err != nil {
			return fmt.Errorf("%w: %v", session.ErrChannelClosed, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Conn) SendJSON(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return c.write(ctx, websocket.TextMessage, data)
}

func (c *Conn) SendBinary(ctx context.Context, data []byte) error {
	return c.write(ctx, websocket.BinaryMessage, data)
}

func (c *Conn) Receive(ctx context.Context) (session.Inbound, error) {
	select {
	case in, ok := <-c.in:
		if !ok {
			return session.Inbound{}, session.ErrChannelClosed
		}
		return in, nil
	case <-ctx.Done():
		return session.Inbound{}, ctx.Err()
	}
}

// Close sends a close frame with code and reason, waits briefly for the peer
// to acknowledge and releases the connection. Later calls are no-ops.
func (c *Conn) Close(code int, reason string) error {
	c.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.opts.WriteWait)
		defer cancel()

		err := c.write(ctx, websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
		if err == nil {
			select {
			case <-c.readDone:
			case <-time.After(c.opts.CloseGrace):
			}
		}
		if cerr := c.ws.Close(); cerr != nil && !errors.Is(cerr, websocket.ErrCloseSent) {
			err = errors.Join(err, cerr)
		}
		c.closeErr = err
	})
	return c.closeErr
}
