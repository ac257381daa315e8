package game

import (
	"maps"
	"math/rand/v2"
	"slices"
	"strings"
)

const DefaultCategory = "words"

func NewSession() Session {
	return Session{
		Players:           []Player{},
		Phase:             PhaseLobby,
		Category:          DefaultCategory,
		ParticipantIDs:    []string{},
		SubmittedAnswers:  []Answer{},
		Votes:             map[string]string{},
		RevealedAnswerIDs: []string{},
		AwardedBonusIDs:   []string{},
		History:           []RoundHistory{},
		GameMode:          ModeClassic,
	}
}

// Clone returns a deep copy; Apply never shares backing storage with its input.
func (s Session) Clone() Session {
	c := s
	c.Players = slices.Clone(s.Players)
	c.ParticipantIDs = slices.Clone(s.ParticipantIDs)
	c.SubmittedAnswers = slices.Clone(s.SubmittedAnswers)
	c.Votes = maps.Clone(s.Votes)
	c.RevealedAnswerIDs = slices.Clone(s.RevealedAnswerIDs)
	c.AwardedBonusIDs = slices.Clone(s.AwardedBonusIDs)
	if s.History != nil {
		c.History = make([]RoundHistory, len(s.History))
		for i, h := range s.History {
			h.Answers = slices.Clone(h.Answers)
			h.Votes = maps.Clone(h.Votes)
			c.History[i] = h
		}
	}
	if s.RoastData != nil {
		r := *s.RoastData
		c.RoastData = &r
	}
	if c.Votes == nil {
		c.Votes = map[string]string{}
	}
	return c
}

func (s Session) Player(id string) (Player, bool) {
	i := s.playerIndex(id)
	if i < 0 {
		return Player{}, false
	}
	return s.Players[i], true
}

func (s Session) Host() (Player, bool) {
	for _, p := range s.Players {
		if p.IsHost {
			return p, true
		}
	}
	return Player{}, false
}

func (s Session) Heckler() (Player, bool) {
	for _, p := range s.Players {
		if p.IsHeckler {
			return p, true
		}
	}
	return Player{}, false
}

func (s Session) Answer(id string) (Answer, bool) {
	for _, a := range s.SubmittedAnswers {
		if a.ID == id {
			return a, true
		}
	}
	return Answer{}, false
}

func (s Session) IsParticipant(id string) bool {
	return slices.Contains(s.ParticipantIDs, id)
}

func (s Session) HasSubmitted(id string) bool {
	return slices.ContainsFunc(s.SubmittedAnswers, func(a Answer) bool { return a.AuthorID == id })
}

func (s Session) playerIndex(id string) int {
	return slices.IndexFunc(s.Players, func(p Player) bool { return p.ID == id })
}

// byJoinOrder returns the roster sorted by join order.
func (s Session) byJoinOrder() []Player {
	ps := slices.Clone(s.Players)
	slices.SortStableFunc(ps, func(a, b Player) int { return a.JoinOrder - b.JoinOrder })
	return ps
}

func (s Session) allSubmitted() bool {
	if len(s.ParticipantIDs) == 0 {
		return false
	}
	for _, id := range s.ParticipantIDs {
		if !s.HasSubmitted(id) {
			return false
		}
	}
	return true
}

func (s Session) allVoted() bool {
	if len(s.ParticipantIDs) == 0 {
		return false
	}
	for _, id := range s.ParticipantIDs {
		if _, ok := s.Votes[id]; !ok {
			return false
		}
	}
	return true
}

func (s *Session) clearTimer() {
	s.TimerEndTime = 0
	s.TimerDuration = 0
}

func (s *Session) clearRound() {
	s.Question = ""
	s.CorrectAnswerText = ""
	s.GMFakeAnswer = ""
	s.SubmittedAnswers = []Answer{}
	s.Votes = map[string]string{}
	s.RevealedAnswerIDs = []string{}
	s.AwardedBonusIDs = []string{}
	s.RoastData = nil
	s.clearTimer()
}

func (s Session) historyEntry() RoundHistory {
	h := RoundHistory{
		Question:          s.Question,
		CorrectAnswerText: s.CorrectAnswerText,
		Answers:           slices.Clone(s.SubmittedAnswers),
		Votes:             maps.Clone(s.Votes),
	}
	if s.RoastData != nil {
		h.RoastTargetID = s.RoastData.TargetID
	}
	if h.Answers == nil {
		h.Answers = []Answer{}
	}
	if h.Votes == nil {
		h.Votes = map[string]string{}
	}
	return h
}

// shuffled is a Fisher-Yates shuffle driven by seed, so the same seed always
// produces the same order.
func shuffled(answers []Answer, seed uint64) []Answer {
	out := slices.Clone(answers)
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	r.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// CleanAnswer trims whitespace and trailing periods.
func CleanAnswer(text string) string {
	return strings.TrimRight(strings.TrimSpace(text), ".")
}
