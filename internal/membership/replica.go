// Package membership holds the peer-side rules for accepting host snapshots
// and deciding who takes over when the host disappears.
package membership

import "github.com/DoyleJ11/bluffparty/internal/game"

type Verdict int

const (
	Accepted Verdict = iota
	// RejectedStaleEmpty is an empty roster arriving after we joined a
	// populated one, typically from a host that just restarted from nothing.
	RejectedStaleEmpty
	// Evicted means we had joined and the host's roster no longer has us.
	Evicted
)

func (v Verdict) String() string {
	switch v {
	case Accepted:
		return "accepted"
	case RejectedStaleEmpty:
		return "rejected-stale-empty"
	case Evicted:
		return "evicted"
	default:
		return "unknown"
	}
}

// Replica is a peer's copy of the host session. Not safe for concurrent use.
type Replica struct {
	selfID  string
	session game.Session
	version int
	has     bool
	joined  bool
}

func NewReplica(selfID string) *Replica {
	return &Replica{selfID: selfID}
}

// Accept runs one host snapshot through the guards. An accepted snapshot
// replaces the local copy wholesale.
func (r *Replica) Accept(version int, s game.Session) Verdict {
	_, present := s.Player(r.selfID)

	if r.joined && len(s.Players) == 0 && r.has && len(r.session.Players) > 0 {
		return RejectedStaleEmpty
	}
	if r.joined && !present {
		return Evicted
	}

	r.session = s.Clone()
	r.version = version
	r.has = true
	if present {
		r.joined = true
	}
	return Accepted
}

// Session is the last accepted snapshot.
func (r *Replica) Session() (game.Session, bool) {
	if !r.has {
		return game.Session{}, false
	}
	return r.session.Clone(), true
}

func (r *Replica) Version() int { return r.version }

// Joined reports whether we have ever appeared in an accepted roster.
func (r *Replica) Joined() bool { return r.joined }

// SelfID is the player id this replica belongs to.
func (r *Replica) SelfID() string { return r.selfID }
