package membership

import "github.com/DoyleJ11/bluffparty/internal/game"

// LostHost is the host in the last snapshot, if any.
func LostHost(last game.Session) (string, bool) {
	h, ok := last.Host()
	return h.ID, ok
}

// Successor is the peer that must take over when the host named in last
// goes away: the human with the smallest id other than that host. Every
// peer holding the same snapshot picks the same one.
func Successor(last game.Session) (string, bool) {
	lost, _ := LostHost(last)
	remaining := make([]game.Player, 0, len(last.Players))
	for _, p := range last.Players {
		if p.ID != lost {
			remaining = append(remaining, p)
		}
	}
	return game.HostSuccessor(remaining)
}

// ShouldPromote reports whether selfID takes over host authority.
func ShouldPromote(last game.Session, selfID string) bool {
	succ, ok := Successor(last)
	return ok && succ == selfID
}
