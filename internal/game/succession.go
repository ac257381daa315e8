package game

// HostSuccessor picks the remaining human with the lexicographically smallest
// id. Every process computing this over the same roster agrees.
func HostSuccessor(players []Player) (string, bool) {
	best := ""
	for _, p := range players {
		if !p.Human() {
			continue
		}
		if best == "" || p.ID < best {
			best = p.ID
		}
	}
	return best, best != ""
}

// firstEligible is the earliest-joined player that may act as game master.
func (s Session) firstEligible() string {
	for _, p := range s.byJoinOrder() {
		if !p.IsHeckler {
			return p.ID
		}
	}
	return ""
}

// NextGameMaster is the GM for the round after the current one.
func NextGameMaster(s Session) string {
	switch s.GameMode {
	case ModeAI:
		return AIGameMasterID
	case ModeHost:
		if h, ok := s.Host(); ok {
			return h.ID
		}
		return s.firstEligible()
	}

	order := s.byJoinOrder()
	if len(order) == 0 {
		return ""
	}
	cur := -1
	for i, p := range order {
		if p.ID == s.GameMasterID {
			cur = i
			break
		}
	}
	for step := 1; step <= len(order); step++ {
		next := order[(cur+step+len(order))%len(order)]
		if !next.IsHeckler {
			return next.ID
		}
	}
	return ""
}

// failoverGameMaster chooses a replacement for a GM that left mid-round. s is
// the roster after removal.
func failoverGameMaster(s Session, removedID string) string {
	var next string
	switch s.GameMode {
	case ModeAI:
		return AIGameMasterID
	case ModeHost:
		if h, ok := s.Host(); ok {
			next = h.ID
		} else {
			next = s.firstEligible()
		}
	default:
		next = s.firstEligible()
	}

	// The removed player can never be chosen, and the candidate must still be
	// on the roster and eligible.
	if next == removedID {
		return ""
	}
	if p, ok := s.Player(next); !ok || p.IsHeckler {
		return ""
	}
	return next
}
