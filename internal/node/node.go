// Package node runs one participant's process in a room. It starts as host or
// peer and switches to host when the peer side is promoted.
package node

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/DoyleJ11/bluffparty/internal/authority"
	"github.com/DoyleJ11/bluffparty/internal/bots"
	"github.com/DoyleJ11/bluffparty/internal/content"
	"github.com/DoyleJ11/bluffparty/internal/deadline"
	"github.com/DoyleJ11/bluffparty/internal/game"
	"github.com/DoyleJ11/bluffparty/internal/membership"
	"github.com/DoyleJ11/bluffparty/internal/peer"
	"github.com/DoyleJ11/bluffparty/internal/store"
	"github.com/DoyleJ11/bluffparty/internal/transport"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Config struct {
	Room    string
	Self    game.Player
	Network transport.Network
	// Store holds sessions and credentials. Nil keeps nothing across restarts.
	Store    store.Store
	Profile  string
	Producer content.Producer
	Logger   *zap.Logger

	HeartbeatInterval time.Duration
	InitialSendDelay  time.Duration
	PlayerTimeout     time.Duration
	RecoveryWindow    time.Duration
	HostProbe         time.Duration
	// Bots tunes bot pacing; Producer and Logger are filled in from above.
	Bots bots.Options
}

type dispatcher interface {
	Dispatch(ctx context.Context, a game.Action) error
}

type Node struct {
	cfg     Config
	log     *zap.Logger
	updates chan game.Session

	mu     sync.Mutex
	out    dispatcher
	isHost bool
}

func New(cfg Config) *Node {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Producer == nil {
		cfg.Producer = content.NewStatic(uint64(time.Now().UnixNano()))
	}
	return &Node{
		cfg:     cfg,
		log:     cfg.Logger.With(zap.String("room", cfg.Room), zap.String("player", cfg.Self.ID)),
		updates: make(chan game.Session, 1),
	}
}

// Updates yields the local view of the session, latest-wins.
func (n *Node) Updates() <-chan game.Session { return n.updates }

func (n *Node) IsHost() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.isHost
}

// Dispatch submits a local action to whichever side is running.
func (n *Node) Dispatch(ctx context.Context, a game.Action) error {
	n.mu.Lock()
	out := n.out
	n.mu.Unlock()
	if out == nil {
		return transport.ErrClosed
	}
	return out.Dispatch(ctx, a)
}

func (n *Node) setRole(out dispatcher, host bool) {
	n.mu.Lock()
	n.out, n.isHost = out, host
	n.mu.Unlock()
}

// Run plays until ctx ends or the room is lost. Room-not-found on first
// join and eviction discard the stored credentials.
func (n *Node) Run(ctx context.Context) error {
	if n.cfg.Self.IsHost {
		initial := n.loadSession(ctx)
		n.saveCredentials(ctx, true)
		return n.runHost(ctx, initial, "")
	}

	n.saveCredentials(ctx, false)
	last, lost, err := n.runPeer(ctx)
	switch {
	case errors.Is(err, peer.ErrPromoted):
		n.saveCredentials(ctx, true)
		return n.runHost(ctx, last, lost)
	case errors.Is(err, transport.ErrRoomNotFound), errors.Is(err, peer.ErrEvicted):
		n.clearCredentials(ctx)
	}
	return err
}

func (n *Node) runPeer(ctx context.Context) (game.Session, string, error) {
	c := peer.New(peer.Options{
		Room:           n.cfg.Room,
		Self:           n.cfg.Self,
		Network:        n.cfg.Network,
		Logger:         n.cfg.Logger,
		RecoveryWindow: n.cfg.RecoveryWindow,
		HostProbe:      n.cfg.HostProbe,
	})
	n.setRole(c, false)
	watch := deadline.NewWatcher(c, n.log)
	defer watch.Stop()

	pctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(pctx)
	g.Go(func() error {
		defer cancel()
		return c.Run(gctx)
	})
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case s := <-c.Updates():
				watch.Observe(gctx, s, deadline.Watched(s, n.cfg.Self.ID, false))
				publish(n.updates, s)
			}
		}
	})
	err := g.Wait()

	if !errors.Is(err, peer.ErrPromoted) {
		return game.Session{}, "", err
	}
	last, _ := c.Last()
	lost, _ := membership.LostHost(last)
	return last, lost, err
}

// runHost owns the room: authority loop, listener, bots and deadlines. A
// non-empty lost names the previous host, removed once the loop is up so the
// migration rule hands the host flag to us.
func (n *Node) runHost(ctx context.Context, initial game.Session, lost string) error {
	loop := authority.New(ctx, initial, authority.Options{
		Room:              n.cfg.Room,
		Store:             n.cfg.Store,
		Logger:            n.cfg.Logger,
		HeartbeatInterval: n.cfg.HeartbeatInterval,
		InitialSendDelay:  n.cfg.InitialSendDelay,
		PlayerTimeout:     n.cfg.PlayerTimeout,
	})
	ln, err := n.cfg.Network.Listen(ctx, n.cfg.Room)
	if err != nil {
		loop.Inbox() <- authority.Shutdown{}
		return fmt.Errorf("open room %s: %w", n.cfg.Room, err)
	}
	n.setRole(loop, true)
	n.log.Info("hosting", zap.String("addr", ln.Addr()), zap.Bool("promoted", lost != ""))

	subs := make(chan authority.Snapshot, 1)
	if err := loop.Send(ctx, authority.Subscribe{ID: "node", Outbox: subs}); err != nil {
		return multierr.Append(err, ln.Close())
	}

	if lost != "" {
		err = loop.Dispatch(ctx, game.RemovePlayer{PlayerID: lost})
	} else {
		self := n.cfg.Self
		self.IsHost = true
		err = loop.Dispatch(ctx, game.Join{Player: self})
	}
	if err != nil {
		return multierr.Append(err, ln.Close())
	}

	botOpts := n.cfg.Bots
	botOpts.Producer = content.WithFallback(n.cfg.Producer, content.NewStatic(uint64(time.Now().UnixNano())), n.cfg.Logger)
	botOpts.Logger = n.cfg.Logger
	driver := bots.New(loop, botOpts)
	watch := deadline.NewWatcher(loop, n.log)
	defer watch.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			ch, err := ln.Accept(gctx)
			if err != nil {
				if gctx.Err() != nil || errors.Is(err, transport.ErrClosed) {
					return nil
				}
				return err
			}
			if err := loop.Send(gctx, authority.Attach{Channel: ch}); err != nil {
				_ = ch.Close()
				return nil
			}
		}
	})
	g.Go(func() error {
		for snap := range subs {
			driver.Observe(gctx, snap.State)
			watch.Observe(gctx, snap.State, deadline.Watched(snap.State, n.cfg.Self.ID, true))
			publish(n.updates, snap.State)
		}
		return nil
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-loop.Done():
		}
		_ = loop.Send(context.Background(), authority.Shutdown{})
		<-loop.Done()
		return ln.Close()
	})

	err = g.Wait()
	n.setRole(nil, false)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (n *Node) loadSession(ctx context.Context) game.Session {
	if n.cfg.Store == nil {
		return game.NewSession()
	}
	s, err := n.cfg.Store.LoadSession(ctx, n.cfg.Room)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			n.log.Warn("load session", zap.Error(err))
		}
		return game.NewSession()
	}
	n.log.Info("resuming stored session", zap.Int("players", len(s.Players)))
	return s
}

func (n *Node) saveCredentials(ctx context.Context, host bool) {
	if n.cfg.Store == nil || n.cfg.Profile == "" {
		return
	}
	err := n.cfg.Store.SaveCredentials(ctx, n.cfg.Profile, store.Credentials{
		PlayerID: n.cfg.Self.ID,
		RoomCode: n.cfg.Room,
		Name:     n.cfg.Self.Name,
		Avatar:   n.cfg.Self.Avatar,
		IsHost:   host,
	})
	if err != nil {
		n.log.Warn("save credentials", zap.Error(err))
	}
}

func (n *Node) clearCredentials(ctx context.Context) {
	if n.cfg.Store == nil || n.cfg.Profile == "" {
		return
	}
	if err := n.cfg.Store.ClearCredentials(ctx, n.cfg.Profile); err != nil {
		n.log.Warn("clear credentials", zap.Error(err))
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
