// Package store persists the host's session and each profile's rejoin
// credentials. Both are plain JSON values keyed by room code or profile name.
package store

import (
	"context"
	"errors"

	"github.com/DoyleJ11/bluffparty/internal/game"
)

var ErrNotFound = errors.New("not found")

// Credentials are what a process needs to rejoin a room after a restart.
type Credentials struct {
	PlayerID string `json:"playerId"`
	RoomCode string `json:"roomCode"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar"`
	IsHost   bool   `json:"isHost"`
}

type Store interface {
	SaveSession(ctx context.Context, room string, s game.Session) error
	LoadSession(ctx context.Context, room string) (game.Session, error)
	SaveCredentials(ctx context.Context, profile string, c Credentials) error
	LoadCredentials(ctx context.Context, profile string) (Credentials, error)
	ClearCredentials(ctx context.Context, profile string) error
	Close() error
}
