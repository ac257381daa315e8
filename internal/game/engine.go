package game

import (
	"slices"
	"strings"
)

const (
	HecklerName   = "Troll Torben"
	HecklerAvatar = "https://robohash.org/Troll?set=set2"
)

// Apply returns the session that results from a, and whether the host must
// broadcast. Apply is pure: s is never modified, and the same (s, a) always
// yields the same result. Stale or malformed actions return (s, false).
func Apply(s Session, a Action) (Session, bool) {
	switch act := a.(type) {
	case Join:
		return applyJoin(s, act)
	case UpdatePlayer:
		return applyUpdatePlayer(s, act)
	case RemovePlayer:
		return applyRemovePlayer(s, act)
	case AddBot:
		return applyAddBot(s, act)
	case ToggleTrollMode:
		return applyToggleTroll(s, act)
	case ToggleHPMode:
		if s.IsHarryPotterMode == act.Enable {
			return s, false
		}
		next := s.Clone()
		next.IsHarryPotterMode = act.Enable
		return next, true
	case ToggleRules:
		if s.ShowRules == act.Show {
			return s, false
		}
		next := s.Clone()
		next.ShowRules = act.Show
		return next, true
	case StartGame:
		return applyStartGame(s, act)
	case SubmitGm:
		return applySubmitGm(s, act)
	case SubmitFake:
		return applySubmitFake(s, act)
	case Vote:
		return applyVote(s, act)
	case RevealAnswer:
		return applyReveal(s, act)
	case AwardPoint:
		return applyAward(s, act)
	case ManageScore:
		return applyManageScore(s, act)
	case NextRound:
		return applyNextRound(s)
	case EndGame:
		if s.Phase != PhaseResolution {
			return s, false
		}
		next := s.Clone()
		next.History = append(next.History, s.historyEntry())
		next.Phase = PhaseFinalLeaderboard
		next.clearTimer()
		return next, true
	case ResetGame:
		return applyReset(s)
	case StartTimer:
		if s.Phase != PhasePlayerInput || s.TimerEndTime != 0 || act.Duration <= 0 {
			return s, false
		}
		next := s.Clone()
		next.TimerEndTime = act.At + int64(act.Duration)*1000
		next.TimerDuration = act.Duration
		return next, true
	case SetRoast:
		if s.Phase != PhaseVoting && s.Phase != PhaseResolution {
			return s, false
		}
		next := s.Clone()
		r := act.Roast
		next.RoastData = &r
		return next, true
	case SetFinalRoast:
		if s.Phase != PhaseFinalLeaderboard {
			return s, false
		}
		next := s.Clone()
		next.FinalRoast = act.Text
		return next, true
	case SkipPhase:
		return applySkip(s, act)
	default:
		// Ping, Unknown and anything added later without a rule.
		return s, false
	}
}

func applyJoin(s Session, act Join) (Session, bool) {
	if act.ID == "" {
		return s, false
	}
	if _, ok := s.Player(act.ID); ok {
		// Rejoin: nothing changes, but the peer needs a fresh snapshot.
		return s, true
	}

	next := s.Clone()
	p := act.Player
	p.JoinOrder = next.NextJoinOrder
	next.NextJoinOrder++
	if p.Score < 0 {
		p.Score = 0
	}
	if _, hasHost := next.Host(); hasHost || !p.Human() {
		p.IsHost = false
	}
	if next.CreatedBy == "" && p.Human() {
		next.CreatedBy = p.ID
	}
	next.Players = append(next.Players, p)
	return next, true
}

func applyUpdatePlayer(s Session, act UpdatePlayer) (Session, bool) {
	i := s.playerIndex(act.PlayerID)
	if i < 0 || (act.Name == "" && act.Avatar == "") {
		return s, false
	}
	next := s.Clone()
	if act.Name != "" {
		next.Players[i].Name = act.Name
	}
	if act.Avatar != "" {
		next.Players[i].Avatar = act.Avatar
	}
	return next, true
}

func applyAddBot(s Session, act AddBot) (Session, bool) {
	if act.BotID == "" {
		return s, false
	}
	if _, ok := s.Player(act.BotID); ok {
		return s, false
	}
	personality := act.Personality
	if personality == "" {
		personality = PersonalityPro
	}
	next := s.Clone()
	next.Players = append(next.Players, Player{
		ID:             act.BotID,
		Name:           act.Name,
		Avatar:         act.Avatar,
		IsBot:          true,
		BotPersonality: personality,
		JoinOrder:      next.NextJoinOrder,
	})
	next.NextJoinOrder++
	return next, true
}

func applyToggleTroll(s Session, act ToggleTrollMode) (Session, bool) {
	_, has := s.Heckler()
	if act.Enable {
		if has {
			return s, false
		}
		next := s.Clone()
		next.Players = append(next.Players, Player{
			ID:             HecklerID,
			Name:           HecklerName,
			Avatar:         HecklerAvatar,
			IsBot:          true,
			IsHeckler:      true,
			BotPersonality: PersonalityTroll,
			JoinOrder:      next.NextJoinOrder,
		})
		next.NextJoinOrder++
		return next, true
	}
	if !has {
		return s, false
	}
	next := s.Clone()
	next.Players = slices.DeleteFunc(next.Players, func(p Player) bool { return p.IsHeckler })
	return next, true
}

func applyStartGame(s Session, act StartGame) (Session, bool) {
	if s.Phase != PhaseLobby {
		return s, false
	}
	mode := act.Mode
	switch mode {
	case ModeClassic, ModeHost, ModeAI:
	case "":
		mode = ModeClassic
	default:
		return s, false
	}

	gm := AIGameMasterID
	if mode != ModeAI {
		gm = s.firstEligible()
		if h, ok := s.Host(); ok && mode == ModeHost {
			gm = h.ID
		}
		if gm == "" {
			return s, false
		}
	}

	next := s.Clone()
	next.Phase = PhaseGMInput
	next.GameMode = mode
	next.GameMasterID = gm
	next.CurrentRound = 1
	next.History = []RoundHistory{}
	next.ShowRules = false
	next.ParticipantIDs = []string{}
	next.clearRound()
	next.FinalRoast = ""
	return next, true
}

func applySubmitGm(s Session, act SubmitGm) (Session, bool) {
	if s.Phase != PhaseGMInput || strings.TrimSpace(act.Question) == "" || strings.TrimSpace(act.Correct) == "" {
		return s, false
	}
	next := s.Clone()
	var humans, bots []string
	for _, p := range next.byJoinOrder() {
		if p.ID == s.GameMasterID || p.IsHeckler {
			continue
		}
		if p.IsBot {
			bots = append(bots, p.ID)
		} else {
			humans = append(humans, p.ID)
		}
	}
	next.ParticipantIDs = append(append([]string{}, humans...), bots...)
	next.clearRound()
	next.Question = act.Question
	next.CorrectAnswerText = act.Correct
	next.GMFakeAnswer = act.Fake
	if act.Category != "" {
		next.Category = act.Category
	}
	next.Phase = PhasePlayerInput
	return next, true
}

func applySubmitFake(s Session, act SubmitFake) (Session, bool) {
	if s.Phase != PhasePlayerInput || !s.IsParticipant(act.PlayerID) || s.HasSubmitted(act.PlayerID) {
		return s, false
	}
	id := act.AnswerID
	if id == "" || id == CorrectAnswerID || id == GMFakeAnswerID {
		id = "ans-" + act.PlayerID
	}
	if _, taken := s.Answer(id); taken {
		return s, false
	}
	next := s.Clone()
	next.SubmittedAnswers = append(next.SubmittedAnswers, Answer{
		ID:       id,
		Text:     act.Text,
		AuthorID: act.PlayerID,
	})
	if next.allSubmitted() {
		next.beginVoting(act.Seed)
	}
	return next, true
}

// beginVoting assembles the final answer set and moves to VOTING.
func (s *Session) beginVoting(seed uint64) {
	final := make([]Answer, 0, len(s.SubmittedAnswers)+2)
	final = append(final, Answer{ID: CorrectAnswerID, Text: s.CorrectAnswerText, AuthorID: AuthorGame, IsCorrect: true})
	final = append(final, s.SubmittedAnswers...)
	if strings.TrimSpace(s.GMFakeAnswer) != "" {
		final = append(final, Answer{ID: GMFakeAnswerID, Text: s.GMFakeAnswer, AuthorID: AuthorAI})
	}
	s.SubmittedAnswers = shuffled(final, seed)
	s.Phase = PhaseVoting
	s.Votes = map[string]string{}
	s.clearTimer()
}

func applyVote(s Session, act Vote) (Session, bool) {
	if s.Phase != PhaseVoting || !s.IsParticipant(act.PlayerID) {
		return s, false
	}
	if _, ok := s.Answer(act.AnswerID); !ok {
		return s, false
	}
	if s.Votes[act.PlayerID] == act.AnswerID {
		return s, false
	}
	next := s.Clone()
	next.Votes[act.PlayerID] = act.AnswerID
	if next.allVoted() {
		next.resolve()
	}
	return next, true
}

// resolve scores the round and moves to RESOLUTION.
func (s *Session) resolve() {
	s.Players = ScoreRound(s.Players, s.SubmittedAnswers, s.Votes)
	s.Phase = PhaseResolution
	s.RevealedAnswerIDs = []string{}
	s.AwardedBonusIDs = []string{}
}

func applyReveal(s Session, act RevealAnswer) (Session, bool) {
	if s.Phase != PhaseResolution || slices.Contains(s.RevealedAnswerIDs, act.AnswerID) {
		return s, false
	}
	if _, ok := s.Answer(act.AnswerID); !ok {
		return s, false
	}
	next := s.Clone()
	next.RevealedAnswerIDs = append(next.RevealedAnswerIDs, act.AnswerID)
	return next, true
}

func applyAward(s Session, act AwardPoint) (Session, bool) {
	if s.Phase != PhaseResolution || slices.Contains(s.AwardedBonusIDs, act.PlayerID) {
		return s, false
	}
	i := s.playerIndex(act.PlayerID)
	if i < 0 {
		return s, false
	}
	eligible := slices.ContainsFunc(s.SubmittedAnswers, func(a Answer) bool {
		return a.AuthorID == act.PlayerID && !a.IsCorrect && slices.Contains(s.RevealedAnswerIDs, a.ID)
	})
	if !eligible {
		return s, false
	}
	next := s.Clone()
	next.Players[i].Score++
	next.AwardedBonusIDs = append(next.AwardedBonusIDs, act.PlayerID)
	return next, true
}

func applyManageScore(s Session, act ManageScore) (Session, bool) {
	i := s.playerIndex(act.PlayerID)
	if i < 0 || act.Amount == 0 {
		return s, false
	}
	score := max(s.Players[i].Score+act.Amount, 0)
	if score == s.Players[i].Score {
		return s, false
	}
	next := s.Clone()
	next.Players[i].Score = score
	return next, true
}

func applyNextRound(s Session) (Session, bool) {
	if s.Phase != PhaseResolution {
		return s, false
	}
	next := s.Clone()
	next.History = append(next.History, s.historyEntry())
	next.GameMasterID = NextGameMaster(s)
	next.CurrentRound++
	next.clearRound()
	next.ParticipantIDs = []string{}
	next.Phase = PhaseGMInput
	return next, true
}

func applyReset(s Session) (Session, bool) {
	next := NewSession()
	next.Players = slices.Clone(s.Players)
	for i := range next.Players {
		next.Players[i].Score = 0
	}
	next.CreatedBy = s.CreatedBy
	next.NextJoinOrder = s.NextJoinOrder
	return next, true
}

func applySkip(s Session, act SkipPhase) (Session, bool) {
	switch s.Phase {
	case PhasePlayerInput:
		next := s.Clone()
		next.beginVoting(act.Seed)
		return next, true
	case PhaseVoting:
		next := s.Clone()
		next.resolve()
		return next, true
	default:
		return s, false
	}
}

func applyRemovePlayer(s Session, act RemovePlayer) (Session, bool) {
	pid := act.PlayerID
	removed, ok := s.Player(pid)
	if !ok {
		return s, false
	}

	next := s.Clone()
	next.Players = slices.DeleteFunc(next.Players, func(p Player) bool { return p.ID == pid })

	// Host migration.
	if removed.IsHost {
		if succ, ok := HostSuccessor(next.Players); ok {
			next.Players[next.playerIndex(succ)].IsHost = true
		}
	}

	// A departing GM never leaves the round stuck.
	if s.GameMasterID == pid && s.Phase.InRound() {
		next.GameMasterID = failoverGameMaster(next, pid)
		next.Phase = PhaseGMInput
		next.CurrentRound++
		next.clearRound()
		next.ParticipantIDs = []string{}
		return next, true
	}
	if s.GameMasterID == pid {
		next.GameMasterID = next.firstEligible()
	}

	next.ParticipantIDs = slices.DeleteFunc(next.ParticipantIDs, func(id string) bool { return id == pid })
	next.SubmittedAnswers = slices.DeleteFunc(next.SubmittedAnswers, func(a Answer) bool { return a.AuthorID == pid })
	delete(next.Votes, pid)
	// Votes for the departed player's answer now point nowhere.
	for voter, aid := range next.Votes {
		if _, ok := next.Answer(aid); !ok {
			delete(next.Votes, voter)
		}
	}

	switch s.Phase {
	case PhasePlayerInput:
		if next.allSubmitted() {
			next.beginVoting(act.Seed)
		}
	case PhaseVoting:
		if next.allVoted() {
			next.resolve()
		}
	}
	return next, true
}
