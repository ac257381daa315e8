package authority

import (
	"github.com/DoyleJ11/bluffparty/internal/game"
	"github.com/DoyleJ11/bluffparty/internal/transport"
)

type Msg interface{ isAuthorityMsg() }

// Dispatch asks the loop to apply an action. From is the channel id it
// arrived on, or empty for the host's own player.
type Dispatch struct {
	Action game.Action
	From   string
}

func (Dispatch) isAuthorityMsg() {}

// Attach hands an accepted channel to the loop. The loop owns it afterwards.
type Attach struct {
	Channel transport.Channel
}

func (Attach) isAuthorityMsg() {}

type Detach struct{ ChannelID string }

func (Detach) isAuthorityMsg() {}

// Subscribe registers a local observer. Outbox should have capacity 1; only
// the newest snapshot is kept.
type Subscribe struct {
	ID     string
	Outbox chan Snapshot
}

func (Subscribe) isAuthorityMsg() {}

type Unsubscribe struct{ ID string }

func (Unsubscribe) isAuthorityMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isAuthorityMsg() {}

type Shutdown struct{}

func (Shutdown) isAuthorityMsg() {}

// Internal timer messages.
type primeSend struct{ channelID string }

func (primeSend) isAuthorityMsg() {}

type expire struct{ playerID string }

func (expire) isAuthorityMsg() {}

type Snapshot struct {
	Version int
	State   game.Session
}

type View struct {
	Version        int
	NumChannels    int
	NumSubscribers int
	// Bindings maps channel id to the player that joined on it.
	Bindings map[string]string
	State    game.Session
}
