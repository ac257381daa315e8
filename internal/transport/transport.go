// Package transport abstracts the reliable, ordered message channels between
// the host and its peers.
package transport

import (
	"context"
	"errors"

	"github.com/DoyleJ11/bluffparty/internal/wire"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomTaken    = errors.New("room already has a listener")
	ErrClosed       = errors.New("channel closed")
)

// Channel is one bidirectional link. Send and Receive may be called from
// different goroutines, but each from at most one at a time.
type Channel interface {
	ID() string
	Send(ctx context.Context, e wire.Envelope) error
	Receive(ctx context.Context) (wire.Envelope, error)
	// Done is closed once the channel can no longer carry messages.
	Done() <-chan struct{}
	IsOpen() bool
	Close() error
}

type Listener interface {
	Accept(ctx context.Context) (Channel, error)
	Addr() string
	Close() error
}

// Network opens a listening identity under a room code, or dials the room's
// current listener.
type Network interface {
	Listen(ctx context.Context, room string) (Listener, error)
	Dial(ctx context.Context, room string) (Channel, error)
}
