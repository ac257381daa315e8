package bots

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/DoyleJ11/bluffparty/internal/content"
	"github.com/DoyleJ11/bluffparty/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder chan game.Action

func (r recorder) Dispatch(_ context.Context, a game.Action) error {
	r <- a
	return nil
}

func recvAction(t *testing.T, ch <-chan game.Action, within time.Duration) game.Action {
	t.Helper()
	select {
	case a := <-ch:
		return a
	case <-time.After(within):
		t.Fatalf("timed out waiting for action")
		return nil
	}
}

func recvNoAction(t *testing.T, ch <-chan game.Action, within time.Duration) {
	t.Helper()
	select {
	case a := <-ch:
		t.Fatalf("unexpected action %s", a.Kind())
	case <-time.After(within):
	}
}

func newDriver(out recorder) *Driver {
	return New(out, Options{
		Producer:      content.NewStatic(1),
		GMDelay:       time.Millisecond,
		AnswerStagger: time.Millisecond,
		VoteDelay:     time.Millisecond,
		Rand:          rand.New(rand.NewPCG(1, 1)),
	})
}

func apply(t *testing.T, s game.Session, acts ...game.Action) game.Session {
	t.Helper()
	for _, a := range acts {
		s, _ = game.Apply(s, a)
	}
	return s
}

func botGame(t *testing.T, mode game.Mode) game.Session {
	return apply(t, game.NewSession(),
		game.Join{Player: game.Player{ID: "human", Name: "Ada", IsHost: true}},
		game.AddBot{BotID: "bot-1", Name: "Robo", Personality: game.PersonalityPro},
		game.AddBot{BotID: "bot-2", Name: "Dumbo", Personality: game.PersonalityBeginner},
		game.StartGame{Mode: mode},
	)
}

func TestDriver_AIGameMasterSubmitsOncePerRound(t *testing.T) {
	out := make(recorder, 8)
	d := newDriver(out)
	s := botGame(t, game.ModeAI)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d.Observe(ctx, s)
	d.Observe(ctx, s)

	a := recvAction(t, out, time.Second)
	gm, ok := a.(game.SubmitGm)
	require.True(t, ok, "got %s", a.Kind())
	assert.NotEmpty(t, gm.Question)
	assert.NotEmpty(t, gm.Correct)
	recvNoAction(t, out, 50*time.Millisecond)
}

func TestDriver_HumanGameMasterIsLeftAlone(t *testing.T) {
	out := make(recorder, 8)
	d := newDriver(out)
	s := botGame(t, game.ModeClassic)
	require.Equal(t, "human", s.GameMasterID)

	d.Observe(context.Background(), s)
	recvNoAction(t, out, 50*time.Millisecond)
}

func TestDriver_BotsAnswerThenVoteForOthers(t *testing.T) {
	out := make(recorder, 8)
	d := newDriver(out)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := apply(t, botGame(t, game.ModeAI), game.SubmitGm{Question: "What is a zarf?", Correct: "A cup holder"})
	d.Observe(ctx, s)

	got := map[string]bool{}
	for range 2 {
		a := recvAction(t, out, time.Second)
		fake, ok := a.(game.SubmitFake)
		require.True(t, ok)
		assert.NotEmpty(t, fake.Text)
		got[fake.PlayerID] = true
		s = apply(t, s, game.SubmitFake{PlayerID: fake.PlayerID, Text: fake.Text, AnswerID: "ans-" + fake.PlayerID})
	}
	assert.Equal(t, map[string]bool{"bot-1": true, "bot-2": true}, got)
	recvNoAction(t, out, 20*time.Millisecond)

	s = apply(t, s, game.SubmitFake{PlayerID: "human", Text: "a tiny hat", AnswerID: "ans-human"})
	require.Equal(t, game.PhaseVoting, s.Phase)
	d.Observe(ctx, s)

	for range 2 {
		a := recvAction(t, out, time.Second)
		v, ok := a.(game.Vote)
		require.True(t, ok)
		chosen, ok := s.Answer(v.AnswerID)
		require.True(t, ok)
		assert.NotEqual(t, v.PlayerID, chosen.AuthorID, "bots never vote for their own answer")
	}
}

func TestDriver_HecklerRoastsFooledHuman(t *testing.T) {
	out := make(recorder, 8)
	d := newDriver(out)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := apply(t, game.NewSession(),
		game.Join{Player: game.Player{ID: "gm", Name: "Gus", IsHost: true}},
		game.Join{Player: game.Player{ID: "ada", Name: "Ada"}},
		game.Join{Player: game.Player{ID: "bo", Name: "Bo"}},
		game.ToggleTrollMode{Enable: true},
		game.StartGame{},
		game.SubmitGm{Question: "q", Correct: "truth"},
		game.SubmitFake{PlayerID: "ada", Text: "lie a", AnswerID: "A"},
		game.SubmitFake{PlayerID: "bo", Text: "lie b", AnswerID: "B"},
		game.Vote{PlayerID: "ada", AnswerID: "B"},
	)
	require.Equal(t, game.PhaseVoting, s.Phase)

	d.Observe(ctx, s)
	a := recvAction(t, out, time.Second)
	roast, ok := a.(game.SetRoast)
	require.True(t, ok, "got %s", a.Kind())
	assert.Equal(t, "Ada", roast.TargetName)
	assert.Equal(t, "B", roast.AnswerID)
	assert.Equal(t, game.HecklerName, roast.BotName)

	d.Observe(ctx, s)
	recvNoAction(t, out, 30*time.Millisecond)
}

func TestDriver_FinalRoastTargetsLastHuman(t *testing.T) {
	out := make(recorder, 8)
	d := newDriver(out)
	s := game.NewSession()
	s.Phase = game.PhaseFinalLeaderboard
	s.Players = []game.Player{
		{ID: "a", Name: "Ada", Score: 5, JoinOrder: 0},
		{ID: "b", Name: "Bo", Score: 1, JoinOrder: 1},
		{ID: "bot", Name: "Robo", IsBot: true, JoinOrder: 2},
		{ID: game.HecklerID, Name: game.HecklerName, IsBot: true, IsHeckler: true, JoinOrder: 3},
	}

	d.Observe(context.Background(), s)
	a := recvAction(t, out, time.Second)
	final, ok := a.(game.SetFinalRoast)
	require.True(t, ok)
	assert.Contains(t, final.Text, "Bo")
}

func TestLastPlace(t *testing.T) {
	p, ok := lastPlace([]game.Player{
		{ID: "a", Score: 2, JoinOrder: 0},
		{ID: "b", Score: 2, JoinOrder: 1},
		{ID: "x", Score: 0, IsBot: true},
	})
	require.True(t, ok)
	assert.Equal(t, "b", p.ID)

	_, ok = lastPlace(nil)
	assert.False(t, ok)
}

// votingWithBot is a classic round where ada, c and bot-1 have answered.
func votingWithBot(t *testing.T) game.Session {
	s := apply(t, game.NewSession(),
		game.Join{Player: game.Player{ID: "gm", Name: "Gus", IsHost: true}},
		game.Join{Player: game.Player{ID: "ada", Name: "Ada"}},
		game.Join{Player: game.Player{ID: "c", Name: "Cy"}},
		game.AddBot{BotID: "bot-1", Name: "Robo", Personality: game.PersonalityPro},
		game.StartGame{Mode: game.ModeClassic},
		game.SubmitGm{Question: "q", Correct: "truth"},
		game.SubmitFake{PlayerID: "ada", Text: "lie a", AnswerID: "A"},
		game.SubmitFake{PlayerID: "c", Text: "lie c", AnswerID: "C"},
		game.SubmitFake{PlayerID: "bot-1", Text: "lie b", AnswerID: "B"},
	)
	require.Equal(t, game.PhaseVoting, s.Phase)
	return s
}

func TestDriver_BotVotesAgainAfterDepartureWipesVote(t *testing.T) {
	out := make(recorder, 8)
	d := newDriver(out)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := apply(t, votingWithBot(t), game.Vote{PlayerID: "bot-1", AnswerID: "C"})
	d.Observe(ctx, s)
	recvNoAction(t, out, 20*time.Millisecond)

	s = apply(t, s, game.RemovePlayer{PlayerID: "c"})
	require.Equal(t, game.PhaseVoting, s.Phase)
	_, voted := s.Votes["bot-1"]
	require.False(t, voted)

	d.Observe(ctx, s)
	a := recvAction(t, out, time.Second)
	v, ok := a.(game.Vote)
	require.True(t, ok, "got %s", a.Kind())
	assert.Equal(t, "bot-1", v.PlayerID)
	assert.Contains(t, []string{game.CorrectAnswerID, "A"}, v.AnswerID)

	s = apply(t, s, v, game.Vote{PlayerID: "ada", AnswerID: game.CorrectAnswerID})
	assert.Equal(t, game.PhaseResolution, s.Phase)
}

func TestDriver_DelayedVoteSkipsWithdrawnAnswer(t *testing.T) {
	for seed := range uint64(12) {
		out := make(recorder, 8)
		d := New(out, Options{
			Producer:  content.NewStatic(1),
			VoteDelay: 20 * time.Millisecond,
			Rand:      rand.New(rand.NewPCG(seed, seed)),
		})
		ctx, cancel := context.WithCancel(context.Background())

		s := votingWithBot(t)
		d.Observe(ctx, s)
		d.Observe(ctx, apply(t, s, game.RemovePlayer{PlayerID: "c"}))

		v, ok := recvAction(t, out, time.Second).(game.Vote)
		require.True(t, ok)
		assert.NotEqual(t, "C", v.AnswerID, "seed %d", seed)
		assert.NotEqual(t, "B", v.AnswerID, "seed %d", seed)
		cancel()
	}
}
