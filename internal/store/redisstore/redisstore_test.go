package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/DoyleJ11/bluffparty/internal/game"
	"github.com/DoyleJ11/bluffparty/internal/store"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, ttl time.Duration) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := New(context.Background(), Options{Addr: mr.Addr(), SessionTTL: ttl})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestSession_SaveLoad(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t, 0)

	_, err := s.LoadSession(ctx, "ABCD")
	require.ErrorIs(t, err, store.ErrNotFound)

	sess := game.NewSession()
	sess.Players = append(sess.Players, game.Player{ID: "p1", Name: "Ada", IsHost: true})
	sess.Phase = game.PhaseGMInput
	require.NoError(t, s.SaveSession(ctx, "ABCD", sess))

	got, err := s.LoadSession(ctx, "ABCD")
	require.NoError(t, err)
	assert.Equal(t, sess, got)
}

func TestSession_TTL(t *testing.T) {
	ctx := context.Background()
	s, mr := newStore(t, time.Minute)

	require.NoError(t, s.SaveSession(ctx, "ABCD", game.NewSession()))
	mr.FastForward(2 * time.Minute)

	_, err := s.LoadSession(ctx, "ABCD")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCredentials(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t, 0)
	c := store.Credentials{PlayerID: "p1", RoomCode: "ABCD", Name: "Ada"}

	require.NoError(t, s.SaveCredentials(ctx, "laptop", c))
	got, err := s.LoadCredentials(ctx, "laptop")
	require.NoError(t, err)
	assert.Equal(t, c, got)

	require.NoError(t, s.ClearCredentials(ctx, "laptop"))
	_, err = s.LoadCredentials(ctx, "laptop")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestNew_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := New(context.Background(), Options{Addr: addr})
	assert.Error(t, err)
}
