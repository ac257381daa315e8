// Package directory maps room codes to the address of the host currently
// listening for that room. It is the discovery service peers consult before
// dialing, and the place a promoted peer re-registers the room.
package directory

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"time"
)

// RoomCodeChars leaves out letters and digits that are easy to confuse.
const (
	RoomCodeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	RoomCodeLen   = 4
)

var ErrNoCode = errors.New("no free room code")

func GenerateCode() (string, error) {
	code := make([]byte, RoomCodeLen)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(RoomCodeChars))))
		if err != nil {
			return "", err
		}
		code[i] = RoomCodeChars[num.Int64()]
	}
	return string(code), nil
}

type Entry struct {
	Code      string    `json:"code"`
	Addr      string    `json:"addr,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Msg interface{ isDirectoryMsg() }

// Allocate reserves an unused code with no host yet.
type Allocate struct {
	Reply chan AllocateResult
}

type AllocateResult struct {
	Code string
	Err  error
}

// Register points code at addr, replacing any previous host.
type Register struct {
	Code string
	Addr string
}

type Lookup struct {
	Code  string
	Reply chan Entry // zero Entry when unknown
}

type Remove struct {
	Code string
}

type Shutdown struct{}

func (Allocate) isDirectoryMsg() {}
func (Register) isDirectoryMsg() {}
func (Lookup) isDirectoryMsg()   {}
func (Remove) isDirectoryMsg()   {}
func (Shutdown) isDirectoryMsg() {}

const allocateAttempts = 32

type Registry struct {
	inbox  chan Msg
	rooms  map[string]Entry
	now    func() time.Time
	ctx    context.Context
	cancel context.CancelFunc
}

func NewRegistry(parent context.Context) *Registry {
	ctx, cancel := context.WithCancel(parent)
	r := &Registry{
		inbox:  make(chan Msg, 64),
		rooms:  make(map[string]Entry),
		now:    time.Now,
		ctx:    ctx,
		cancel: cancel,
	}
	go r.loop()
	return r
}

func (r *Registry) Inbox() chan<- Msg { return r.inbox }

func (r *Registry) loop() {
	for {
		select {
		case <-r.ctx.Done():
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Allocate:
				msg.Reply <- r.allocate()

			case Register:
				r.rooms[msg.Code] = Entry{Code: msg.Code, Addr: msg.Addr, UpdatedAt: r.now()}

			case Lookup:
				msg.Reply <- r.rooms[msg.Code]

			case Remove:
				delete(r.rooms, msg.Code)

			case Shutdown:
				clear(r.rooms)
				r.cancel()
				return
			}
		}
	}
}

func (r *Registry) allocate() AllocateResult {
	for range allocateAttempts {
		code, err := GenerateCode()
		if err != nil {
			return AllocateResult{Err: err}
		}
		if _, taken := r.rooms[code]; taken {
			continue
		}
		r.rooms[code] = Entry{Code: code, UpdatedAt: r.now()}
		return AllocateResult{Code: code}
	}
	return AllocateResult{Err: ErrNoCode}
}
