// Package memnet is an in-process transport. Rooms are keyed by code in a
// shared Network value.
package memnet

import (
	"context"
	"fmt"
	"sync"

	"github.com/DoyleJ11/bluffparty/internal/transport"
	"github.com/DoyleJ11/bluffparty/internal/wire"
	"github.com/google/uuid"
)

const queueSize = 64

type Network struct {
	mu    sync.Mutex
	rooms map[string]*listener
}

func New() *Network {
	return &Network{rooms: make(map[string]*listener)}
}

func (n *Network) Listen(_ context.Context, room string) (transport.Listener, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.rooms[room]; ok {
		return nil, fmt.Errorf("listen %s: %w", room, transport.ErrRoomTaken)
	}
	l := &listener{
		net:     n,
		room:    room,
		pending: make(chan *channel, queueSize),
		done:    make(chan struct{}),
	}
	n.rooms[room] = l
	return l, nil
}

func (n *Network) Dial(ctx context.Context, room string) (transport.Channel, error) {
	n.mu.Lock()
	l, ok := n.rooms[room]
	n.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("dial %s: %w", room, transport.ErrRoomNotFound)
	}

	local, remote := pipe()
	select {
	case l.pending <- remote:
		return local, nil
	case <-l.done:
		return nil, fmt.Errorf("dial %s: %w", room, transport.ErrRoomNotFound)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Drop closes the room's listener and every channel it accepted, simulating
// the host process vanishing.
func (n *Network) Drop(room string) {
	n.mu.Lock()
	l, ok := n.rooms[room]
	n.mu.Unlock()
	if ok {
		l.drop()
	}
}

type listener struct {
	net     *Network
	room    string
	pending chan *channel
	done    chan struct{}

	mu       sync.Mutex
	closed   bool
	accepted []*channel
}

func (l *listener) Accept(ctx context.Context) (transport.Channel, error) {
	select {
	case c := <-l.pending:
		l.mu.Lock()
		l.accepted = append(l.accepted, c)
		l.mu.Unlock()
		return c, nil
	case <-l.done:
		return nil, transport.ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *listener) Addr() string { return "mem://" + l.room }

func (l *listener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	close(l.done)

	l.net.mu.Lock()
	if l.net.rooms[l.room] == l {
		delete(l.net.rooms, l.room)
	}
	l.net.mu.Unlock()
	return nil
}

func (l *listener) drop() {
	_ = l.Close()
	l.mu.Lock()
	chans := l.accepted
	l.accepted = nil
	l.mu.Unlock()
	for _, c := range chans {
		_ = c.Close()
	}
}

// link is the shared close state of the two ends of a pipe.
type link struct {
	once sync.Once
	done chan struct{}
}

type channel struct {
	id   string
	in   chan wire.Envelope
	out  chan wire.Envelope
	link *link
}

func pipe() (*channel, *channel) {
	ab := make(chan wire.Envelope, queueSize)
	ba := make(chan wire.Envelope, queueSize)
	lk := &link{done: make(chan struct{})}
	id := uuid.NewString()
	return &channel{id: id, in: ba, out: ab, link: lk},
		&channel{id: id, in: ab, out: ba, link: lk}
}

func (c *channel) ID() string { return c.id }

func (c *channel) Send(ctx context.Context, e wire.Envelope) error {
	if !c.IsOpen() {
		return transport.ErrClosed
	}
	select {
	case c.out <- e:
		return nil
	case <-c.link.done:
		return transport.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *channel) Receive(ctx context.Context) (wire.Envelope, error) {
	// Drain what was sent before the close.
	select {
	case e := <-c.in:
		return e, nil
	default:
	}
	select {
	case e := <-c.in:
		return e, nil
	case <-c.link.done:
		return wire.Envelope{}, transport.ErrClosed
	case <-ctx.Done():
		return wire.Envelope{}, ctx.Err()
	}
}

func (c *channel) Done() <-chan struct{} { return c.link.done }

func (c *channel) IsOpen() bool {
	select {
	case <-c.link.done:
		return false
	default:
		return true
	}
}

func (c *channel) Close() error {
	c.link.once.Do(func() { close(c.link.done) })
	return nil
}
