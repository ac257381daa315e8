package wire

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/DoyleJ11/bluffparty/internal/game"
)

const TypeSyncState = "SYNC_STATE"

var ErrMalformed = errors.New("malformed envelope")

type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type Snapshot struct {
	Version int          `json:"version"`
	State   game.Session `json:"state"`
}

// IsSync reports whether e carries a full session snapshot.
func (e Envelope) IsSync() bool { return e.Type == TypeSyncState }

func EncodeAction(a game.Action) (Envelope, error) {
	if u, ok := a.(game.Unknown); ok {
		return Envelope{Type: u.Type}, nil
	}
	payload, err := json.Marshal(a)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s: %w", a.Kind(), err)
	}
	return Envelope{Type: string(a.Kind()), Payload: payload}, nil
}

func EncodeSnapshot(version int, s game.Session) (Envelope, error) {
	payload, err := json.Marshal(Snapshot{Version: version, State: s})
	if err != nil {
		return Envelope{}, fmt.Errorf("encode snapshot: %w", err)
	}
	return Envelope{Type: TypeSyncState, Payload: payload}, nil
}

func DecodeSnapshot(e Envelope) (Snapshot, error) {
	if !e.IsSync() {
		return Snapshot{}, fmt.Errorf("%w: %q is not %s", ErrMalformed, e.Type, TypeSyncState)
	}
	var snap Snapshot
	if err := json.Unmarshal(e.Payload, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return snap, nil
}

// DecodeAction maps an envelope to its action. Tags this build does not know
// decode to game.Unknown rather than failing.
func DecodeAction(e Envelope) (game.Action, error) {
	switch game.Kind(e.Type) {
	case game.KindJoin:
		return decode[game.Join](e)
	case game.KindUpdatePlayer:
		return decode[game.UpdatePlayer](e)
	case game.KindRemovePlayer:
		return decode[game.RemovePlayer](e)
	case game.KindAddBot:
		return decode[game.AddBot](e)
	case game.KindToggleTrollMode:
		return decode[game.ToggleTrollMode](e)
	case game.KindToggleHPMode:
		return decode[game.ToggleHPMode](e)
	case game.KindToggleRules:
		return decode[game.ToggleRules](e)
	case game.KindStartGame:
		return decode[game.StartGame](e)
	case game.KindSubmitGm:
		return decode[game.SubmitGm](e)
	case game.KindSubmitFake:
		return decode[game.SubmitFake](e)
	case game.KindVote:
		return decode[game.Vote](e)
	case game.KindAwardPoint:
		return decode[game.AwardPoint](e)
	case game.KindManageScore:
		return decode[game.ManageScore](e)
	case game.KindRevealAnswer:
		return decode[game.RevealAnswer](e)
	case game.KindNextRound:
		return game.NextRound{}, nil
	case game.KindEndGame:
		return game.EndGame{}, nil
	case game.KindResetGame:
		return game.ResetGame{}, nil
	case game.KindStartTimer:
		return decode[game.StartTimer](e)
	case game.KindSetRoast:
		return decode[game.SetRoast](e)
	case game.KindSetFinalRoast:
		return decode[game.SetFinalRoast](e)
	case game.KindSkipPhase:
		return decode[game.SkipPhase](e)
	case game.KindPing:
		return game.Ping{}, nil
	default:
		return game.Unknown{Type: e.Type}, nil
	}
}

func decode[T game.Action](e Envelope) (game.Action, error) {
	var v T
	if len(e.Payload) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(e.Payload, &v); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, e.Type, err)
	}
	return v, nil
}
