package memnet

import (
	"context"
	"testing"
	"time"

	"github.com/DoyleJ11/bluffparty/internal/transport"
	"github.com/DoyleJ11/bluffparty/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDial_UnknownRoom(t *testing.T) {
	_, err := New().Dial(context.Background(), "NOPE")
	assert.ErrorIs(t, err, transport.ErrRoomNotFound)
}

func TestListen_Twice(t *testing.T) {
	n := New()
	_, err := n.Listen(context.Background(), "ABCD")
	require.NoError(t, err)
	_, err = n.Listen(context.Background(), "ABCD")
	assert.ErrorIs(t, err, transport.ErrRoomTaken)
}

func TestPipe_OrderedBothWays(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	n := New()
	l, err := n.Listen(ctx, "ABCD")
	require.NoError(t, err)
	client, err := n.Dial(ctx, "ABCD")
	require.NoError(t, err)
	server, err := l.Accept(ctx)
	require.NoError(t, err)
	assert.Equal(t, client.ID(), server.ID())

	for _, typ := range []string{"A", "B", "C"} {
		require.NoError(t, client.Send(ctx, wire.Envelope{Type: typ}))
	}
	for _, want := range []string{"A", "B", "C"} {
		e, err := server.Receive(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, e.Type)
	}

	require.NoError(t, server.Send(ctx, wire.Envelope{Type: "SYNC_STATE"}))
	e, err := client.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "SYNC_STATE", e.Type)
}

func TestDrop_ClosesAcceptedChannels(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	n := New()
	l, err := n.Listen(ctx, "ABCD")
	require.NoError(t, err)
	client, err := n.Dial(ctx, "ABCD")
	require.NoError(t, err)
	_, err = l.Accept(ctx)
	require.NoError(t, err)

	n.Drop("ABCD")

	select {
	case <-client.Done():
	case <-ctx.Done():
		t.Fatal("client channel still open after drop")
	}
	assert.False(t, client.IsOpen())
	assert.ErrorIs(t, client.Send(ctx, wire.Envelope{Type: "PING"}), transport.ErrClosed)

	_, err = n.Dial(ctx, "ABCD")
	assert.ErrorIs(t, err, transport.ErrRoomNotFound)
}
