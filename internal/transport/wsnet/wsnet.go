// Package wsnet carries channels over websockets. The host serves
// /rooms/{code}/ws and advertises its address in the directory; peers look
// the room up and dial it.
package wsnet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/DoyleJ11/bluffparty/internal/directory"
	"github.com/DoyleJ11/bluffparty/internal/transport"
	"github.com/DoyleJ11/bluffparty/internal/wire"
	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const readLimit = 1 << 20

// Directory is the part of directory.Client the network needs.
type Directory interface {
	Register(ctx context.Context, room, addr string) error
	Lookup(ctx context.Context, room string) (directory.Entry, error)
}

type Network struct {
	dir  Directory
	log  *zap.Logger
	bind string
	// advertise overrides the host part of the address put in the
	// directory. Empty means the listener's own address.
	advertise string
}

func New(dir Directory, bind, advertise string, log *zap.Logger) *Network {
	if log == nil {
		log = zap.NewNop()
	}
	if bind == "" {
		bind = ":0"
	}
	return &Network{dir: dir, log: log, bind: bind, advertise: advertise}
}

var _ transport.Network = (*Network)(nil)

func (n *Network) Listen(ctx context.Context, room string) (transport.Listener, error) {
	nl, err := net.Listen("tcp", n.bind)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", n.bind, err)
	}
	addr := nl.Addr().String()
	if n.advertise != "" {
		_, port, _ := net.SplitHostPort(addr)
		addr = net.JoinHostPort(n.advertise, port)
	}

	l := &listener{
		room:     room,
		addr:     addr,
		log:      n.log.With(zap.String("room", room)),
		accepted: make(chan transport.Channel),
		closed:   make(chan struct{}),
		chans:    make(map[string]*channel),
	}
	r := chi.NewRouter()
	r.Get("/rooms/{code}/ws", l.serveWS)
	l.srv = &http.Server{Handler: r}
	go func() {
		if err := l.srv.Serve(nl); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.log.Warn("room server stopped", zap.Error(err))
		}
	}()

	if err := n.dir.Register(ctx, room, addr); err != nil {
		_ = l.Close()
		return nil, err
	}
	l.log.Info("listening", zap.String("addr", addr))
	return l, nil
}

func (n *Network) Dial(ctx context.Context, room string) (transport.Channel, error) {
	e, err := n.dir.Lookup(ctx, room)
	if err != nil {
		return nil, err
	}
	url := "ws://" + e.Addr + "/rooms/" + room + "/ws"
	c, resp, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", transport.ErrRoomNotFound, room)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return newChannel(c), nil
}

type listener struct {
	room     string
	addr     string
	log      *zap.Logger
	srv      *http.Server
	accepted chan transport.Channel

	mu     sync.Mutex
	chans  map[string]*channel
	once   sync.Once
	closed chan struct{}
}

func (l *listener) serveWS(w http.ResponseWriter, r *http.Request) {
	if !strings.EqualFold(chi.URLParam(r, "code"), l.room) {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		return
	}
	ch := newChannel(conn)

	l.mu.Lock()
	l.chans[ch.id] = ch
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		delete(l.chans, ch.id)
		l.mu.Unlock()
	}()

	select {
	case l.accepted <- ch:
	case <-l.closed:
		_ = ch.Close()
		return
	}
	<-ch.Done()
}

func (l *listener) Accept(ctx context.Context) (transport.Channel, error) {
	select {
	case ch := <-l.accepted:
		return ch, nil
	case <-l.closed:
		return nil, transport.ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *listener) Addr() string { return l.addr }

// Close stops the server and drops every channel it accepted.
func (l *listener) Close() error {
	var err error
	l.once.Do(func() {
		close(l.closed)
		err = l.srv.Close()
		l.mu.Lock()
		for _, ch := range l.chans {
			_ = ch.Close()
		}
		l.mu.Unlock()
	})
	return err
}

type channel struct {
	id   string
	conn *websocket.Conn
	once sync.Once
	done chan struct{}
}

func newChannel(c *websocket.Conn) *channel {
	c.SetReadLimit(readLimit)
	return &channel{id: uuid.NewString(), conn: c, done: make(chan struct{})}
}

func (c *channel) ID() string { return c.id }

func (c *channel) Send(ctx context.Context, e wire.Envelope) error {
	if !c.IsOpen() {
		return transport.ErrClosed
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if err := c.conn.Write(ctx, websocket.MessageText, data); err != nil {
		c.markDone()
		return fmt.Errorf("%w: %v", transport.ErrClosed, err)
	}
	return nil
}

func (c *channel) Receive(ctx context.Context) (wire.Envelope, error) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			c.markDone()
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return wire.Envelope{}, transport.ErrClosed
			}
			if ctx.Err() != nil {
				return wire.Envelope{}, ctx.Err()
			}
			return wire.Envelope{}, fmt.Errorf("%w: %v", transport.ErrClosed, err)
		}
		var e wire.Envelope
		if err := json.Unmarshal(data, &e); err != nil || e.Type == "" {
			continue
		}
		return e, nil
	}
}

func (c *channel) Done() <-chan struct{} { return c.done }

func (c *channel) IsOpen() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

func (c *channel) markDone() { c.once.Do(func() { close(c.done) }) }

func (c *channel) Close() error {
	c.markDone()
	// A second close, or one racing the peer's, reports an error we do not
	// care about.
	_ = c.conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}
