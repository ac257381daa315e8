// Package authority runs the host's canonical session. One goroutine owns the
// session; everything else talks to it through the inbox.
package authority

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/DoyleJ11/bluffparty/internal/game"
	"github.com/DoyleJ11/bluffparty/internal/store"
	"github.com/DoyleJ11/bluffparty/internal/transport"
	"github.com/DoyleJ11/bluffparty/internal/wire"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultHeartbeat        = 4 * time.Second
	DefaultInitialSendDelay = 500 * time.Millisecond
	defaultOutboxSize       = 16
	writeTimeout            = 3 * time.Second
	persistTimeout          = 2 * time.Second
)

var ErrStopped = errors.New("authority stopped")

type Options struct {
	Room   string
	Store  store.Store // nil disables persistence
	Logger *zap.Logger

	HeartbeatInterval time.Duration
	InitialSendDelay  time.Duration
	// PlayerTimeout removes a player whose channel closed and did not come
	// back in time. Zero disables it.
	PlayerTimeout time.Duration
	OutboxSize    int

	Now   func() time.Time
	Rand  *rand.Rand
	NewID func() string
}

func (o *Options) defaults() {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = DefaultHeartbeat
	}
	if o.InitialSendDelay <= 0 {
		o.InitialSendDelay = DefaultInitialSendDelay
	}
	if o.OutboxSize <= 0 {
		o.OutboxSize = defaultOutboxSize
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if o.NewID == nil {
		o.NewID = uuid.NewString
	}
}

// conn is an attached channel and the writer feeding it.
type conn struct {
	ch       transport.Channel
	outbox   chan wire.Envelope
	playerID string
}

type Loop struct {
	opts    Options
	log     *zap.Logger
	inbox   chan Msg
	state   game.Session
	version int

	conns   map[string]*conn
	subs    map[string]chan Snapshot
	expiry  map[string]*time.Timer
	ticker  *time.Ticker
	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}
}

// New starts a loop owning initial. Pass a session loaded from storage to
// resume a room.
func New(parent context.Context, initial game.Session, opts Options) *Loop {
	opts.defaults()
	ctx, cancel := context.WithCancel(parent)

	l := &Loop{
		opts:    opts,
		log:     opts.Logger.With(zap.String("room", opts.Room)),
		inbox:   make(chan Msg, 64),
		state:   initial.Clone(),
		conns:   make(map[string]*conn),
		subs:    make(map[string]chan Snapshot),
		expiry:  make(map[string]*time.Timer),
		ticker:  time.NewTicker(opts.HeartbeatInterval),
		ctx:     ctx,
		cancel:  cancel,
		stopped: make(chan struct{}),
	}

	go l.loop()
	return l
}

func (l *Loop) Inbox() chan<- Msg { return l.inbox }

// Done is closed once the loop has shut down.
func (l *Loop) Done() <-chan struct{} { return l.stopped }

// Send delivers m unless the loop has stopped or ctx ends first.
func (l *Loop) Send(ctx context.Context, m Msg) error {
	select {
	case <-l.stopped:
		return ErrStopped
	default:
	}
	select {
	case l.inbox <- m:
		return nil
	case <-l.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dispatch submits an action on behalf of the host's local player.
func (l *Loop) Dispatch(ctx context.Context, a game.Action) error {
	return l.Send(ctx, Dispatch{Action: a})
}

// State returns the current snapshot.
func (l *Loop) State(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	if err := l.Send(ctx, GetState{Reply: reply}); err != nil {
		return View{}, err
	}
	select {
	case v := <-reply:
		return v, nil
	case <-l.stopped:
		return View{}, ErrStopped
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}

func (l *Loop) loop() {
	defer close(l.stopped)
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case <-l.ticker.C:
			if len(l.conns) > 0 {
				l.broadcast()
			}

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Dispatch:
				l.handleDispatch(msg)

			case Attach:
				l.attach(msg.Channel)

			case Detach:
				l.detach(msg.ChannelID)

			case primeSend:
				if c, ok := l.conns[msg.channelID]; ok {
					l.sendTo(c, l.snapshotEnvelope())
				}

			case expire:
				delete(l.expiry, msg.playerID)
				if !l.bound(msg.playerID) {
					l.log.Info("player timed out", zap.String("player", msg.playerID))
					l.apply(game.RemovePlayer{PlayerID: msg.playerID})
				}

			case Subscribe:
				l.subs[msg.ID] = msg.Outbox
				offer(msg.Outbox, Snapshot{Version: l.version, State: l.state.Clone()})

			case Unsubscribe:
				if ch, ok := l.subs[msg.ID]; ok {
					close(ch)
					delete(l.subs, msg.ID)
				}

			case GetState:
				bindings := make(map[string]string, len(l.conns))
				for id, c := range l.conns {
					bindings[id] = c.playerID
				}
				msg.Reply <- View{
					Version:        l.version,
					NumChannels:    len(l.conns),
					NumSubscribers: len(l.subs),
					Bindings:       bindings,
					State:          l.state.Clone(),
				}

			case Shutdown:
				l.shutdown()
				return
			}
		}
	}
}

func (l *Loop) handleDispatch(msg Dispatch) {
	if join, ok := msg.Action.(game.Join); ok && msg.From != "" {
		if c, ok := l.conns[msg.From]; ok && join.ID != "" {
			c.playerID = join.ID
			if t, ok := l.expiry[join.ID]; ok {
				t.Stop()
				delete(l.expiry, join.ID)
			}
		}
	}
	l.apply(msg.Action)
}

func (l *Loop) apply(a game.Action) {
	a = l.stamp(a)
	next, dirty := game.Apply(l.state, a)
	if !dirty {
		return
	}
	l.state = next
	l.version++
	l.log.Debug("applied",
		zap.String("action", string(a.Kind())),
		zap.Int("version", l.version),
		zap.String("phase", string(next.Phase)))

	l.persist()
	l.broadcast()
	l.notify()
}

// stamp fills in everything the reducer must not invent: seeds, ids and the
// clock. Seeds and times are always overwritten so peers cannot pick them.
func (l *Loop) stamp(a game.Action) game.Action {
	switch act := a.(type) {
	case game.SubmitFake:
		if act.AnswerID == "" {
			act.AnswerID = l.opts.NewID()
		}
		act.Seed = l.opts.Rand.Uint64()
		return act
	case game.RemovePlayer:
		act.Seed = l.opts.Rand.Uint64()
		return act
	case game.SkipPhase:
		act.Seed = l.opts.Rand.Uint64()
		return act
	case game.StartTimer:
		act.At = l.opts.Now().UnixMilli()
		return act
	case game.AddBot:
		if act.BotID == "" {
			act.BotID = "bot-" + l.opts.NewID()
		}
		return act
	}
	return a
}

func (l *Loop) persist() {
	if l.opts.Store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(l.ctx, persistTimeout)
	defer cancel()
	if err := l.opts.Store.SaveSession(ctx, l.opts.Room, l.state); err != nil {
		l.log.Warn("persist session", zap.Error(err))
	}
}

func (l *Loop) snapshotEnvelope() wire.Envelope {
	e, err := wire.EncodeSnapshot(l.version, l.state)
	if err != nil {
		// Session is plain data; this only fails on a programming error.
		l.log.Error("encode snapshot", zap.Error(err))
	}
	return e
}

func (l *Loop) broadcast() {
	if len(l.conns) == 0 {
		return
	}
	e := l.snapshotEnvelope()
	for _, c := range l.conns {
		l.sendTo(c, e)
	}
}

// sendTo queues e for c's writer. A full outbox means the peer is not keeping
// up and is dropped.
func (l *Loop) sendTo(c *conn, e wire.Envelope) {
	select {
	case c.outbox <- e:
	default:
		l.log.Warn("dropping slow channel", zap.String("channel", c.ch.ID()))
		l.detach(c.ch.ID())
	}
}

func (l *Loop) notify() {
	snap := Snapshot{Version: l.version, State: l.state}
	for _, ch := range l.subs {
		offer(ch, Snapshot{Version: snap.Version, State: snap.State.Clone()})
	}
}

// offer replaces whatever ch is holding with snap. An unbuffered ch with no
// reader waiting misses the update.
func offer(ch chan Snapshot, snap Snapshot) {
	select {
	case ch <- snap:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snap:
	default:
	}
}

func (l *Loop) attach(ch transport.Channel) {
	id := ch.ID()
	if _, dup := l.conns[id]; dup {
		return
	}
	c := &conn{ch: ch, outbox: make(chan wire.Envelope, l.opts.OutboxSize)}
	l.conns[id] = c
	l.log.Debug("channel attached", zap.String("channel", id))

	go l.write(c)
	go l.read(ch)
	time.AfterFunc(l.opts.InitialSendDelay, func() {
		_ = l.Send(l.ctx, primeSend{channelID: id})
	})
}

func (l *Loop) detach(id string) {
	c, ok := l.conns[id]
	if !ok {
		return
	}
	delete(l.conns, id)
	close(c.outbox)
	_ = c.ch.Close()
	l.log.Debug("channel detached", zap.String("channel", id), zap.String("player", c.playerID))

	if c.playerID == "" || l.opts.PlayerTimeout <= 0 || l.bound(c.playerID) {
		return
	}
	if _, pending := l.expiry[c.playerID]; pending {
		return
	}
	pid := c.playerID
	l.expiry[pid] = time.AfterFunc(l.opts.PlayerTimeout, func() {
		_ = l.Send(l.ctx, expire{playerID: pid})
	})
}

func (l *Loop) bound(playerID string) bool {
	for _, c := range l.conns {
		if c.playerID == playerID {
			return true
		}
	}
	return false
}

func (l *Loop) write(c *conn) {
	for e := range c.outbox {
		ctx, cancel := context.WithTimeout(l.ctx, writeTimeout)
		err := c.ch.Send(ctx, e)
		cancel()
		if err != nil {
			// The reader sees the close and detaches.
			_ = c.ch.Close()
			return
		}
	}
}

func (l *Loop) read(ch transport.Channel) {
	defer func() { _ = l.Send(l.ctx, Detach{ChannelID: ch.ID()}) }()
	for {
		e, err := ch.Receive(l.ctx)
		if err != nil {
			return
		}
		if e.IsSync() {
			continue
		}
		a, err := wire.DecodeAction(e)
		if err != nil {
			l.log.Debug("bad envelope", zap.String("channel", ch.ID()), zap.Error(err))
			continue
		}
		if err := l.Send(l.ctx, Dispatch{Action: a, From: ch.ID()}); err != nil {
			return
		}
	}
}

func (l *Loop) shutdown() {
	l.ticker.Stop()
	for id := range l.conns {
		c := l.conns[id]
		delete(l.conns, id)
		close(c.outbox)
		_ = c.ch.Close()
	}
	for id, ch := range l.subs {
		close(ch)
		delete(l.subs, id)
	}
	for id, t := range l.expiry {
		t.Stop()
		delete(l.expiry, id)
	}
	l.cancel()
}
