// Package peer runs the non-host side of a room: one channel to the host,
// snapshots checked by a membership.Replica, actions forwarded upstream.
package peer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/DoyleJ11/bluffparty/internal/game"
	"github.com/DoyleJ11/bluffparty/internal/membership"
	"github.com/DoyleJ11/bluffparty/internal/transport"
	"github.com/DoyleJ11/bluffparty/internal/wire"
	"go.uber.org/zap"
)

const (
	DefaultRecoveryWindow = 30 * time.Second
	DefaultHostProbe      = 2 * time.Second
	defaultBaseBackoff    = 250 * time.Millisecond
	defaultMaxBackoff     = 4 * time.Second
)

var (
	ErrEvicted = errors.New("removed from the room")
	// ErrPromoted means the host is gone and this peer must take over. The
	// last accepted session is available from Last.
	ErrPromoted = errors.New("promoted to host")
	ErrHostLost = errors.New("host did not come back")
)

type Options struct {
	Room    string
	Self    game.Player
	Network transport.Network
	Logger  *zap.Logger

	// RecoveryWindow bounds how long the client redials a lost host.
	RecoveryWindow time.Duration
	// HostProbe is how long the client tries to get back to the host before
	// concluding it is gone and considering promotion.
	HostProbe   time.Duration
	BaseBackoff time.Duration
	MaxBackoff     time.Duration
}

type Client struct {
	opts    Options
	log     *zap.Logger
	replica *membership.Replica
	updates chan game.Session

	mu sync.Mutex
	ch transport.Channel
	// last is a copy of the replica's session readable from other goroutines.
	last    game.Session
	hasLast bool
}

func New(opts Options) *Client {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.RecoveryWindow <= 0 {
		opts.RecoveryWindow = DefaultRecoveryWindow
	}
	if opts.HostProbe <= 0 {
		opts.HostProbe = DefaultHostProbe
	}
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = defaultBaseBackoff
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = defaultMaxBackoff
	}
	opts.Self.IsHost = false
	return &Client{
		opts:    opts,
		log:     opts.Logger.With(zap.String("room", opts.Room), zap.String("player", opts.Self.ID)),
		replica: membership.NewReplica(opts.Self.ID),
		updates: make(chan game.Session, 1),
	}
}

// Updates yields accepted sessions. Only the latest is kept if the reader
// falls behind.
func (c *Client) Updates() <-chan game.Session { return c.updates }

// Last is the most recent accepted session.
func (c *Client) Last() (game.Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last.Clone(), c.hasLast
}

// Dispatch forwards a to the host.
func (c *Client) Dispatch(ctx context.Context, a game.Action) error {
	c.mu.Lock()
	ch := c.ch
	c.mu.Unlock()
	if ch == nil {
		return transport.ErrClosed
	}
	e, err := wire.EncodeAction(a)
	if err != nil {
		return err
	}
	return ch.Send(ctx, e)
}

// Run joins the room and follows the host until ctx ends or a terminal
// condition: ErrEvicted, ErrPromoted, ErrHostLost, or
// transport.ErrRoomNotFound on the first join.
func (c *Client) Run(ctx context.Context) error {
	ch, err := c.opts.Network.Dial(ctx, c.opts.Room)
	if err != nil {
		return err
	}
	for {
		err := c.session(ctx, ch)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, ErrEvicted) {
			return err
		}

		c.log.Info("link to host lost, reconnecting", zap.Error(err))
		// A live host is rejoined; only a host that stays unreachable is
		// replaced.
		if ch, err = c.redial(ctx, c.opts.HostProbe); err == nil {
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		last, ok := c.Last()
		if ok && membership.ShouldPromote(last, c.opts.Self.ID) {
			c.log.Info("host unreachable, taking over")
			return ErrPromoted
		}
		if ch, err = c.redial(ctx, c.opts.RecoveryWindow); err != nil {
			return err
		}
	}
}

// session joins over ch and consumes snapshots until the channel fails.
func (c *Client) session(ctx context.Context, ch transport.Channel) error {
	c.mu.Lock()
	c.ch = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.ch = nil
		c.mu.Unlock()
		_ = ch.Close()
	}()

	if err := c.Dispatch(ctx, game.Join{Player: c.opts.Self}); err != nil {
		return err
	}
	for {
		e, err := ch.Receive(ctx)
		if err != nil {
			return err
		}
		if !e.IsSync() {
			continue
		}
		snap, err := wire.DecodeSnapshot(e)
		if err != nil {
			c.log.Debug("bad snapshot", zap.Error(err))
			continue
		}

		switch v := c.replica.Accept(snap.Version, snap.State); v {
		case membership.Accepted:
			s, _ := c.replica.Session()
			c.mu.Lock()
			c.last, c.hasLast = s, true
			c.mu.Unlock()
			publish(c.updates, s)
		case membership.Evicted:
			c.log.Info("evicted by host")
			return ErrEvicted
		default:
			c.log.Debug("snapshot ignored", zap.Stringer("verdict", v))
		}
	}
}

// redial retries the room with exponential backoff until window passes.
// Room-not-found is expected while a new host registers.
func (c *Client) redial(ctx context.Context, window time.Duration) (transport.Channel, error) {
	deadline := time.Now().Add(window)
	backoff := c.opts.BaseBackoff
	for {
		ch, err := c.opts.Network.Dial(ctx, c.opts.Room)
		if err == nil {
			return ch, nil
		}
		if time.Now().Add(backoff).After(deadline) {
			return nil, fmt.Errorf("%w: %v", ErrHostLost, err)
		}
		t := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
		backoff = min(backoff*2, c.opts.MaxBackoff)
	}
}

func publish(ch chan game.Session, s game.Session) {
	select {
	case ch <- s:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- s:
	default:
	}
}
