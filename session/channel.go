package session

import (
	"context"
	"errors"
)

// ErrChannelClosed is returned by a Channel once the peer is gone.
var ErrChannelClosed = errors.New("channel closed")

// Inbound is one frame received from the peer.
type Inbound struct {
	Binary bool
	Data   []byte
}

// Channel is the single-stream, message-framed connection a session runs on.
// Frames are delivered to the peer in the order they are sent.
type Channel interface {
	SendJSON(ctx context.Context, v any) error
	SendBinary(ctx context.Context, data []byte) error
	Receive(ctx context.Context) (Inbound, error)
	Close(code int, reason string) error
}
