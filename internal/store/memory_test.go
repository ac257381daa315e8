package store

import (
	"context"
	"testing"

	"github.com/DoyleJ11/bluffparty/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_Sessions(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.LoadSession(ctx, "ABCD")
	require.ErrorIs(t, err, ErrNotFound)

	s := game.NewSession()
	s.Players = append(s.Players, game.Player{ID: "p1", Name: "Ada"})
	require.NoError(t, m.SaveSession(ctx, "ABCD", s))

	// Mutating the caller's copy must not leak into the store.
	s.Players[0].Name = "changed"

	got, err := m.LoadSession(ctx, "ABCD")
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Players[0].Name)
}

func TestMemory_Credentials(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	c := Credentials{PlayerID: "p1", RoomCode: "ABCD", Name: "Ada", IsHost: true}

	require.NoError(t, m.SaveCredentials(ctx, "default", c))
	got, err := m.LoadCredentials(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, c, got)

	require.NoError(t, m.ClearCredentials(ctx, "default"))
	_, err = m.LoadCredentials(ctx, "default")
	assert.ErrorIs(t, err, ErrNotFound)
}
