// Package bots plays the host's bot players and the heckler. It watches
// session updates and answers with ordinary actions, so everything it does
// goes through the reducer like a human's input.
package bots

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/DoyleJ11/bluffparty/internal/content"
	"github.com/DoyleJ11/bluffparty/internal/game"
	"go.uber.org/zap"
)

const (
	DefaultGMDelay       = 1500 * time.Millisecond
	DefaultAnswerStagger = 800 * time.Millisecond
	DefaultVoteDelay     = 1500 * time.Millisecond
	producerTimeout      = 20 * time.Second
)

type Dispatcher interface {
	Dispatch(ctx context.Context, a game.Action) error
}

type Options struct {
	Producer      content.Producer
	Logger        *zap.Logger
	GMDelay       time.Duration
	AnswerStagger time.Duration
	VoteDelay     time.Duration
	Rand          *rand.Rand
}

type Driver struct {
	out  Dispatcher
	opts Options
	log  *zap.Logger
	// done records tasks already started, keyed by task and round.
	done map[string]bool

	mu sync.Mutex
	// latest is the last observed session; a delayed vote is chosen from it.
	latest game.Session
	// voting marks bots with a vote scheduled and not yet sent.
	voting map[string]bool
}

func New(out Dispatcher, opts Options) *Driver {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Producer == nil {
		opts.Producer = content.NewStatic(rand.Uint64())
	}
	if opts.GMDelay <= 0 {
		opts.GMDelay = DefaultGMDelay
	}
	if opts.AnswerStagger <= 0 {
		opts.AnswerStagger = DefaultAnswerStagger
	}
	if opts.VoteDelay <= 0 {
		opts.VoteDelay = DefaultVoteDelay
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Driver{out: out, opts: opts, log: opts.Logger, done: map[string]bool{}, voting: map[string]bool{}}
}

// Run observes every session from updates until it closes or ctx ends.
func (d *Driver) Run(ctx context.Context, updates <-chan game.Session) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s, ok := <-updates:
			if !ok {
				return nil
			}
			d.Observe(ctx, s)
		}
	}
}

// Observe starts whatever bot work s calls for. It must be called from a
// single goroutine.
func (d *Driver) Observe(ctx context.Context, s game.Session) {
	d.mu.Lock()
	d.latest = s
	d.mu.Unlock()

	switch s.Phase {
	case game.PhaseLobby:
		clear(d.done)
	case game.PhaseGMInput:
		d.gameMaster(ctx, s)
	case game.PhasePlayerInput:
		d.answers(ctx, s)
	case game.PhaseVoting:
		d.votes(ctx, s)
		d.roast(ctx, s)
	case game.PhaseResolution:
		d.roast(ctx, s)
	case game.PhaseFinalLeaderboard:
		d.finalRoast(ctx, s)
	}
}

func (d *Driver) once(task string, round int) bool {
	key := fmt.Sprintf("%s:%d", task, round)
	if d.done[key] {
		return false
	}
	d.done[key] = true
	return true
}

func (d *Driver) dispatch(ctx context.Context, a game.Action) {
	if err := d.out.Dispatch(ctx, a); err != nil && ctx.Err() == nil {
		d.log.Warn("bot dispatch", zap.String("action", string(a.Kind())), zap.Error(err))
	}
}

// after runs fn once delay has passed, unless ctx ends first.
func after(ctx context.Context, delay time.Duration, fn func()) {
	go func() {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
		case <-t.C:
			fn()
		}
	}()
}

func (d *Driver) gameMaster(ctx context.Context, s game.Session) {
	personality := game.PersonalityPro
	if s.GameMasterID != game.AIGameMasterID {
		gm, ok := s.Player(s.GameMasterID)
		if !ok || !gm.IsBot {
			return
		}
		if gm.BotPersonality != "" {
			personality = gm.BotPersonality
		}
	}
	if !d.once("gm", s.CurrentRound) {
		return
	}
	req := content.RoundRequest{Category: "random", Personality: personality, HarryPotter: s.IsHarryPotterMode}
	after(ctx, d.opts.GMDelay, func() {
		pctx, cancel := context.WithTimeout(ctx, producerTimeout)
		defer cancel()
		c, err := d.opts.Producer.GenerateRoundContent(pctx, req)
		if err != nil {
			d.log.Warn("round content", zap.Error(err))
			return
		}
		d.dispatch(ctx, game.SubmitGm{Question: c.Question, Correct: c.Correct, Category: c.Category})
	})
}

// pending lists bot participants in join order for which has reports false.
func pending(s game.Session, has func(string) bool) []game.Player {
	var out []game.Player
	for _, id := range s.ParticipantIDs {
		p, ok := s.Player(id)
		if ok && p.IsBot && !p.IsHeckler && !has(id) {
			out = append(out, p)
		}
	}
	return out
}

func (d *Driver) answers(ctx context.Context, s game.Session) {
	bots := pending(s, s.HasSubmitted)
	if len(bots) == 0 || !d.once("answers", s.CurrentRound) {
		return
	}
	go func() {
		pctx, cancel := context.WithTimeout(ctx, producerTimeout)
		defer cancel()
		texts, err := d.opts.Producer.GenerateBotAnswers(pctx, bots, s.Question, s.IsHarryPotterMode)
		if err != nil {
			d.log.Warn("bot answers", zap.Error(err))
			return
		}
		for i, b := range bots {
			text, ok := texts[b.ID]
			if !ok {
				continue
			}
			act := game.SubmitFake{PlayerID: b.ID, Text: text}
			after(ctx, time.Duration(i+1)*d.opts.AnswerStagger, func() { d.dispatch(ctx, act) })
		}
	}()
}

// votes schedules a vote for every bot participant without one. It runs on
// each VOTING snapshot, so a bot whose vote was wiped by a departure votes
// again.
func (d *Driver) votes(ctx context.Context, s game.Session) {
	bots := pending(s, func(id string) bool { _, voted := s.Votes[id]; return voted })
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, b := range bots {
		if d.voting[b.ID] {
			continue
		}
		d.voting[b.ID] = true
		n++
		id := b.ID
		after(ctx, time.Duration(n)*d.opts.VoteDelay, func() { d.castVote(ctx, id) })
	}
}

// castVote picks from the latest session, so an answer withdrawn during the
// delay is never chosen.
func (d *Driver) castVote(ctx context.Context, botID string) {
	d.mu.Lock()
	delete(d.voting, botID)
	s := d.latest
	_, voted := s.Votes[botID]
	if s.Phase != game.PhaseVoting || !s.IsParticipant(botID) || voted {
		d.mu.Unlock()
		return
	}
	choices := slices.DeleteFunc(slices.Clone(s.SubmittedAnswers), func(a game.Answer) bool { return a.AuthorID == botID })
	if len(choices) == 0 {
		d.mu.Unlock()
		return
	}
	act := game.Vote{PlayerID: botID, AnswerID: choices[d.opts.Rand.IntN(len(choices))].ID}
	d.mu.Unlock()
	d.dispatch(ctx, act)
}

type victim struct {
	player game.Player
	answer game.Answer
}

// roast picks a human who fell for a lie this round.
func (d *Driver) roast(ctx context.Context, s game.Session) {
	heckler, ok := s.Heckler()
	if !ok || s.RoastData != nil || d.done[fmt.Sprintf("roast:%d", s.CurrentRound)] {
		return
	}
	var victims []victim
	for _, p := range s.Players {
		if !p.Human() {
			continue
		}
		aid, voted := s.Votes[p.ID]
		if !voted {
			continue
		}
		if a, ok := s.Answer(aid); ok && !a.IsCorrect {
			victims = append(victims, victim{player: p, answer: a})
		}
	}
	if len(victims) == 0 {
		return
	}
	d.once("roast", s.CurrentRound)
	d.mu.Lock()
	v := victims[d.opts.Rand.IntN(len(victims))]
	d.mu.Unlock()
	req := content.RoastRequest{Question: s.Question, TargetName: v.player.Name, AnswerText: v.answer.Text}
	go func() {
		pctx, cancel := context.WithTimeout(ctx, producerTimeout)
		defer cancel()
		text, err := d.opts.Producer.GenerateRoast(pctx, req)
		if err != nil {
			d.log.Warn("roast", zap.Error(err))
			return
		}
		d.dispatch(ctx, game.SetRoast{Roast: game.Roast{
			TargetName: v.player.Name,
			BotName:    heckler.Name,
			Text:       text,
			AnswerID:   v.answer.ID,
			TargetID:   v.player.ID,
		}})
	}()
}

func (d *Driver) finalRoast(ctx context.Context, s game.Session) {
	if _, ok := s.Heckler(); !ok || s.FinalRoast != "" || !d.once("final", s.CurrentRound) {
		return
	}
	req := content.RoastRequest{Final: true}
	if loser, ok := lastPlace(s.Players); ok {
		req.TargetName, req.Score = loser.Name, loser.Score
	}
	go func() {
		pctx, cancel := context.WithTimeout(ctx, producerTimeout)
		defer cancel()
		text, err := d.opts.Producer.GenerateRoast(pctx, req)
		if err != nil {
			d.log.Warn("final roast", zap.Error(err))
			return
		}
		d.dispatch(ctx, game.SetFinalRoast{Text: text})
	}()
}

// lastPlace is the human with the lowest score, the latest joiner on ties.
func lastPlace(players []game.Player) (game.Player, bool) {
	var (
		loser game.Player
		found bool
	)
	for _, p := range players {
		if !p.Human() {
			continue
		}
		if !found || p.Score < loser.Score || (p.Score == loser.Score && p.JoinOrder > loser.JoinOrder) {
			loser, found = p, true
		}
	}
	return loser, found
}
