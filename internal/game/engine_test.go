package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func human(id string) Player { return Player{ID: id, Name: id} }

func bot(id string) Player {
	return Player{ID: id, Name: id, IsBot: true, BotPersonality: PersonalityPro}
}

// step applies a and fails the test if any invariant breaks.
func step(t *testing.T, s Session, a Action) Session {
	t.Helper()
	next, _ := Apply(s, a)
	require.NoError(t, CheckInvariants(next), "after %s", a.Kind())
	return next
}

func lobbyWith(t *testing.T, players ...Player) Session {
	t.Helper()
	s := NewSession()
	for i, p := range players {
		if i == 0 && p.Human() {
			p.IsHost = true
		}
		s = step(t, s, Join{Player: p})
	}
	return s
}

// inputPhase starts a classic game with the first player as GM and submits
// the GM's content.
func inputPhase(t *testing.T, fake string, players ...Player) Session {
	t.Helper()
	s := lobbyWith(t, players...)
	s = step(t, s, StartGame{Mode: ModeClassic})
	return step(t, s, SubmitGm{Question: "What is a quokka?", Correct: "A marsupial", Fake: fake, Category: "animals"})
}

func submitAll(t *testing.T, s Session, ids ...string) Session {
	t.Helper()
	for i, id := range ids {
		s = step(t, s, SubmitFake{PlayerID: id, Text: "lie from " + id, AnswerID: "ans-" + id, Seed: uint64(i + 1)})
	}
	return s
}

func answerIDs(s Session) []string {
	ids := make([]string, 0, len(s.SubmittedAnswers))
	for _, a := range s.SubmittedAnswers {
		ids = append(ids, a.ID)
	}
	return ids
}

func TestApply_Deterministic(t *testing.T) {
	s := inputPhase(t, "A kind of hat", human("gm"), human("b"), human("c"))
	s = submitAll(t, s, "b")
	act := SubmitFake{PlayerID: "c", Text: "A tree", AnswerID: "x1", Seed: 42}

	first, dirty1 := Apply(s, act)
	second, dirty2 := Apply(s, act)

	assert.True(t, dirty1)
	assert.Equal(t, dirty1, dirty2)
	assert.Equal(t, first, second)
	assert.Equal(t, PhaseVoting, first.Phase)
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	s := inputPhase(t, "", human("gm"), human("b"), human("c"))
	before := s.Clone()

	_, _ = Apply(s, SubmitFake{PlayerID: "b", Text: "lie", AnswerID: "x"})
	_, _ = Apply(s, RemovePlayer{PlayerID: "c"})
	_, _ = Apply(s, ManageScore{PlayerID: "b", Amount: 3})

	assert.Equal(t, before, s)
}

func TestApply_UnknownActionIsNoop(t *testing.T) {
	s := lobbyWith(t, human("a"), human("b"))

	for _, act := range []Action{Unknown{Type: "DANCE"}, Ping{}} {
		next, dirty := Apply(s, act)
		assert.False(t, dirty, act.Kind())
		assert.Equal(t, s, next, act.Kind())
	}
}

func TestJoin_Idempotent(t *testing.T) {
	s := lobbyWith(t, human("a"))
	p := human("b")

	once, _ := Apply(s, Join{Player: p})
	twice, dirty := Apply(once, Join{Player: p})

	assert.True(t, dirty, "rejoin must still trigger a resync")
	assert.Equal(t, once, twice)
	count := 0
	for _, q := range twice.Players {
		if q.ID == "b" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestJoin_AssignsJoinOrderAndSingleHost(t *testing.T) {
	s := lobbyWith(t, human("a"))
	imposter := human("b")
	imposter.IsHost = true
	s = step(t, s, Join{Player: imposter})
	s = step(t, s, Join{Player: human("c")})

	assert.Equal(t, "a", s.CreatedBy)
	require.Len(t, s.Players, 3)
	for i, p := range s.Players {
		assert.Equal(t, i, p.JoinOrder)
	}
	host, ok := s.Host()
	require.True(t, ok)
	assert.Equal(t, "a", host.ID)
}

func TestManageScore_NeverNegative(t *testing.T) {
	s := lobbyWith(t, human("a"))
	for _, amt := range []int{2, -1, -5, 3, -10, 1} {
		s = step(t, s, ManageScore{PlayerID: "a", Amount: amt})
		p, _ := s.Player("a")
		assert.GreaterOrEqual(t, p.Score, 0)
	}
	p, _ := s.Player("a")
	assert.Equal(t, 1, p.Score)
}

func TestSubmitGm_ParticipantsExcludeGMAndHeckler(t *testing.T) {
	s := lobbyWith(t, human("gm"), bot("bot-1"), human("b"))
	s = step(t, s, ToggleTrollMode{Enable: true})
	s = step(t, s, StartGame{Mode: ModeClassic})
	s = step(t, s, SubmitGm{Question: "q", Correct: "a"})

	assert.Equal(t, PhasePlayerInput, s.Phase)
	assert.Equal(t, []string{"b", "bot-1"}, s.ParticipantIDs)
}

func TestSubmitFake_FirstSubmissionWins(t *testing.T) {
	s := inputPhase(t, "", human("gm"), human("b"), human("c"))
	s = step(t, s, SubmitFake{PlayerID: "b", Text: "first", AnswerID: "b1"})

	next, dirty := Apply(s, SubmitFake{PlayerID: "b", Text: "second", AnswerID: "b2"})
	assert.False(t, dirty)
	assert.Equal(t, s, next)

	_, dirty = Apply(s, SubmitFake{PlayerID: "gm", Text: "not a participant"})
	assert.False(t, dirty)
}

func TestSubmitFake_AssemblesAnswersOnLastSubmission(t *testing.T) {
	s := inputPhase(t, "A hat", human("gm"), human("b"), human("c"))
	s = submitAll(t, s, "b", "c")

	assert.Equal(t, PhaseVoting, s.Phase)
	assert.ElementsMatch(t, []string{CorrectAnswerID, "ans-b", "ans-c", GMFakeAnswerID}, answerIDs(s))
	correct, ok := s.Answer(CorrectAnswerID)
	require.True(t, ok)
	assert.True(t, correct.IsCorrect)
	assert.Equal(t, AuthorGame, correct.AuthorID)
	fake, _ := s.Answer(GMFakeAnswerID)
	assert.Equal(t, AuthorAI, fake.AuthorID)
}

func TestVote_IgnoresMissingAnswerAndOutsiders(t *testing.T) {
	s := inputPhase(t, "", human("gm"), human("b"), human("c"))
	s = submitAll(t, s, "b", "c")

	cases := []Vote{
		{PlayerID: "b", AnswerID: "nope"},
		{PlayerID: "gm", AnswerID: CorrectAnswerID},
		{PlayerID: "ghost", AnswerID: CorrectAnswerID},
	}
	for _, v := range cases {
		next, dirty := Apply(s, v)
		assert.False(t, dirty, "%+v", v)
		assert.Equal(t, s, next)
	}
}

func TestScoring_Example(t *testing.T) {
	s := inputPhase(t, "", human("G"), human("A"), human("B"), human("C"))
	s = submitAll(t, s, "A", "B", "C")
	require.Equal(t, PhaseVoting, s.Phase)

	s = step(t, s, Vote{PlayerID: "A", AnswerID: CorrectAnswerID})
	s = step(t, s, Vote{PlayerID: "B", AnswerID: "ans-C"})
	s = step(t, s, Vote{PlayerID: "C", AnswerID: CorrectAnswerID})

	require.Equal(t, PhaseResolution, s.Phase)
	want := map[string]int{"G": 0, "A": 1, "B": 0, "C": 2}
	for id, score := range want {
		p, _ := s.Player(id)
		assert.Equal(t, score, p.Score, id)
	}
}

func TestScoring_SelfVoteDoesNotCount(t *testing.T) {
	players := []Player{{ID: "a"}, {ID: "b"}}
	answers := []Answer{{ID: "x", AuthorID: "a"}, {ID: CorrectAnswerID, AuthorID: AuthorGame, IsCorrect: true}}
	votes := map[string]string{"a": "x", "b": "x"}

	got := ScoreRound(players, answers, votes)
	assert.Equal(t, 1, got[0].Score)
	assert.Equal(t, 0, got[1].Score)
}

func finishRound(t *testing.T, s Session) Session {
	t.Helper()
	s = step(t, s, SubmitGm{Question: "q", Correct: "a"})
	s = step(t, s, SkipPhase{Seed: 7})
	s = step(t, s, SkipPhase{})
	require.Equal(t, PhaseResolution, s.Phase)
	return s
}

func TestNextRound_ClassicRotationSkipsHeckler(t *testing.T) {
	s := lobbyWith(t, human("P1"), human("P2"))
	s = step(t, s, ToggleTrollMode{Enable: true})
	s = step(t, s, Join{Player: human("P3")})
	s = step(t, s, StartGame{Mode: ModeClassic})
	require.Equal(t, "P1", s.GameMasterID)

	for _, want := range []string{"P2", "P3", "P1"} {
		s = finishRound(t, s)
		s = step(t, s, NextRound{})
		assert.Equal(t, want, s.GameMasterID)
		assert.Equal(t, PhaseGMInput, s.Phase)
	}
	assert.Equal(t, 4, s.CurrentRound)
	assert.Len(t, s.History, 3)
}

func TestNextRound_HostAndAIModesKeepGM(t *testing.T) {
	cases := []struct {
		mode Mode
		want string
	}{
		{ModeHost, "P1"},
		{ModeAI, AIGameMasterID},
	}
	for _, tc := range cases {
		t.Run(string(tc.mode), func(t *testing.T) {
			s := lobbyWith(t, human("P1"), human("P2"), human("P3"))
			s = step(t, s, StartGame{Mode: tc.mode})
			s = finishRound(t, s)
			s = step(t, s, NextRound{})
			assert.Equal(t, tc.want, s.GameMasterID)
		})
	}
}

func TestRemovePlayer_AutoAdvanceToVoting(t *testing.T) {
	s := inputPhase(t, "A GM lie", human("gm"), human("b"), human("c"), human("d"))
	s = submitAll(t, s, "b", "c")
	require.Equal(t, PhasePlayerInput, s.Phase)

	s = step(t, s, RemovePlayer{PlayerID: "d", Seed: 3})

	assert.Equal(t, PhaseVoting, s.Phase)
	assert.Equal(t, []string{"b", "c"}, s.ParticipantIDs)
	assert.ElementsMatch(t, []string{CorrectAnswerID, "ans-b", "ans-c", GMFakeAnswerID}, answerIDs(s))
}

func TestRemovePlayer_OrderInsensitiveAdvance(t *testing.T) {
	s := inputPhase(t, "", human("gm"), human("b"), human("c"), human("d"))
	s = submitAll(t, s, "b")

	submitThenLeave := step(t, step(t, s, SubmitFake{PlayerID: "c", Text: "x", AnswerID: "ans-c"}), RemovePlayer{PlayerID: "d", Seed: 9})
	leaveThenSubmit := step(t, step(t, s, RemovePlayer{PlayerID: "d", Seed: 9}), SubmitFake{PlayerID: "c", Text: "x", AnswerID: "ans-c", Seed: 9})

	assert.Equal(t, PhaseVoting, submitThenLeave.Phase)
	assert.Equal(t, submitThenLeave.Phase, leaveThenSubmit.Phase)
	assert.ElementsMatch(t, answerIDs(submitThenLeave), answerIDs(leaveThenSubmit))
}

func TestRemovePlayer_AutoAdvanceToResolution(t *testing.T) {
	s := inputPhase(t, "", human("gm"), human("b"), human("c"), human("d"))
	s = submitAll(t, s, "b", "c", "d")
	s = step(t, s, Vote{PlayerID: "b", AnswerID: CorrectAnswerID})
	s = step(t, s, Vote{PlayerID: "c", AnswerID: "ans-b"})

	s = step(t, s, RemovePlayer{PlayerID: "d"})

	require.Equal(t, PhaseResolution, s.Phase)
	b, _ := s.Player("b")
	assert.Equal(t, 2, b.Score)
	_, found := s.Answer("ans-d")
	assert.False(t, found)
}

func TestRemovePlayer_GameMasterFailover(t *testing.T) {
	phases := []Phase{PhaseGMInput, PhasePlayerInput, PhaseVoting, PhaseResolution}
	modes := []Mode{ModeClassic, ModeHost}

	for _, mode := range modes {
		for _, phase := range phases {
			t.Run(string(mode)+"/"+string(phase), func(t *testing.T) {
				s := lobbyWith(t, human("a"), human("b"), human("c"))
				s = step(t, s, StartGame{Mode: mode})
				switch phase {
				case PhasePlayerInput:
					s = step(t, s, SubmitGm{Question: "q", Correct: "a"})
				case PhaseVoting:
					s = step(t, s, SubmitGm{Question: "q", Correct: "a"})
					s = step(t, s, SkipPhase{})
				case PhaseResolution:
					s = finishRound(t, s)
				}
				require.Equal(t, phase, s.Phase)
				round := s.CurrentRound

				s = step(t, s, RemovePlayer{PlayerID: "a"})

				assert.Equal(t, "b", s.GameMasterID)
				assert.Equal(t, PhaseGMInput, s.Phase)
				assert.Equal(t, round+1, s.CurrentRound)
				assert.Empty(t, s.SubmittedAnswers)
				assert.Empty(t, s.Votes)
				assert.Empty(t, s.Question)
			})
		}
	}
}

func TestRemovePlayer_GameMasterFailoverWithoutCandidates(t *testing.T) {
	s := lobbyWith(t, human("a"))
	s = step(t, s, ToggleTrollMode{Enable: true})
	s = step(t, s, StartGame{Mode: ModeClassic})

	s = step(t, s, RemovePlayer{PlayerID: "a"})

	assert.Empty(t, s.GameMasterID)
	assert.Equal(t, PhaseGMInput, s.Phase)
}

func TestRemovePlayer_HostMigration(t *testing.T) {
	s := lobbyWith(t, human("m"), bot("a-bot"), human("z"), human("k"))
	s = step(t, s, ToggleTrollMode{Enable: true})

	s = step(t, s, RemovePlayer{PlayerID: "m"})

	hosts := 0
	for _, p := range s.Players {
		if p.IsHost {
			hosts++
			assert.Equal(t, "k", p.ID)
		}
	}
	assert.Equal(t, 1, hosts)
}

func TestRemovePlayer_UnknownIDIsNoop(t *testing.T) {
	s := lobbyWith(t, human("a"))
	next, dirty := Apply(s, RemovePlayer{PlayerID: "ghost"})
	assert.False(t, dirty)
	assert.Equal(t, s, next)
}

func TestAwardPoint_OnlyForRevealedBluffs(t *testing.T) {
	s := inputPhase(t, "", human("gm"), human("b"), human("c"))
	s = submitAll(t, s, "b", "c")
	s = step(t, s, SkipPhase{})
	require.Equal(t, PhaseResolution, s.Phase)

	_, dirty := Apply(s, AwardPoint{PlayerID: "b"})
	assert.False(t, dirty, "unrevealed")

	s = step(t, s, RevealAnswer{AnswerID: "ans-b"})
	s = step(t, s, RevealAnswer{AnswerID: CorrectAnswerID})
	s = step(t, s, AwardPoint{PlayerID: "b"})
	_, dirty = Apply(s, AwardPoint{PlayerID: "b"})
	assert.False(t, dirty, "awarded twice")

	b, _ := s.Player("b")
	assert.Equal(t, 1, b.Score)
	assert.Equal(t, []string{"b"}, s.AwardedBonusIDs)
	assert.Equal(t, []string{"ans-b", CorrectAnswerID}, s.RevealedAnswerIDs)
}

func TestEndAndReset(t *testing.T) {
	s := inputPhase(t, "", human("gm"), human("b"))
	s = submitAll(t, s, "b")
	s = step(t, s, Vote{PlayerID: "b", AnswerID: CorrectAnswerID})
	s = step(t, s, EndGame{})
	require.Equal(t, PhaseFinalLeaderboard, s.Phase)
	require.Len(t, s.History, 1)

	s = step(t, s, SetFinalRoast{Text: "lost"})
	s = step(t, s, ResetGame{})

	assert.Equal(t, PhaseLobby, s.Phase)
	assert.Len(t, s.Players, 2)
	for _, p := range s.Players {
		assert.Zero(t, p.Score)
	}
	assert.Empty(t, s.History)
	assert.Empty(t, s.FinalRoast)
	assert.Empty(t, s.GameMasterID)
}

func TestStartTimer(t *testing.T) {
	s := inputPhase(t, "", human("gm"), human("b"))
	s = step(t, s, StartTimer{Duration: 30, At: 1_000})

	assert.Equal(t, int64(31_000), s.TimerEndTime)
	assert.Equal(t, 30, s.TimerDuration)

	_, dirty := Apply(s, StartTimer{Duration: 10, At: 2_000})
	assert.False(t, dirty, "timer already running")

	s = submitAll(t, s, "b")
	assert.Zero(t, s.TimerEndTime)
}

func TestToggleTrollMode_NoDuplicateHeckler(t *testing.T) {
	s := lobbyWith(t, human("a"))
	s = step(t, s, ToggleTrollMode{Enable: true})
	next, dirty := Apply(s, ToggleTrollMode{Enable: true})
	assert.False(t, dirty)
	assert.Len(t, next.Players, 2)

	s = step(t, s, ToggleTrollMode{Enable: false})
	_, ok := s.Heckler()
	assert.False(t, ok)
}

func TestStartGame_RequiresEligibleGM(t *testing.T) {
	s := NewSession()
	s = step(t, s, ToggleTrollMode{Enable: true})
	_, dirty := Apply(s, StartGame{Mode: ModeClassic})
	assert.False(t, dirty)

	s = step(t, s, StartGame{Mode: ModeAI})
	assert.Equal(t, AIGameMasterID, s.GameMasterID)
}

func TestCleanAnswer(t *testing.T) {
	assert.Equal(t, "A marsupial", CleanAnswer("  A marsupial... "))
	assert.Equal(t, "", CleanAnswer(""))
}
