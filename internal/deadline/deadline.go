// Package deadline submits a fallback answer for anyone still typing when
// the shared input timer runs out.
package deadline

import (
	"context"
	"time"

	"github.com/DoyleJ11/bluffparty/internal/game"
	"go.uber.org/zap"
)

const FallbackText = "No answer"

type Dispatcher interface {
	Dispatch(ctx context.Context, a game.Action) error
}

// Due returns when playerID's answer is due, if a deadline applies.
func Due(s game.Session, playerID string) (time.Time, bool) {
	if s.Phase != game.PhasePlayerInput || s.TimerEndTime == 0 {
		return time.Time{}, false
	}
	if !s.IsParticipant(playerID) || s.HasSubmitted(playerID) {
		return time.Time{}, false
	}
	return time.UnixMilli(s.TimerEndTime), true
}

// Watched lists whose deadlines a process enforces: its own player, and on
// the host every bot as well.
func Watched(s game.Session, localID string, host bool) []string {
	ids := []string{}
	if localID != "" {
		ids = append(ids, localID)
	}
	if !host {
		return ids
	}
	for _, p := range s.Players {
		if p.IsBot && !p.IsHeckler && p.ID != localID {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

type armed struct {
	round int
	end   int64
	timer *time.Timer
}

// Watcher keeps one timer per watched player. Observe must be called from a
// single goroutine.
type Watcher struct {
	out    Dispatcher
	log    *zap.Logger
	timers map[string]armed
}

func NewWatcher(out Dispatcher, log *zap.Logger) *Watcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{out: out, log: log, timers: map[string]armed{}}
}

func (w *Watcher) Observe(ctx context.Context, s game.Session, ids []string) {
	live := map[string]bool{}
	for _, id := range ids {
		due, ok := Due(s, id)
		if !ok {
			continue
		}
		live[id] = true
		if a, ok := w.timers[id]; ok && a.round == s.CurrentRound && a.end == s.TimerEndTime {
			continue
		}
		w.stop(id)

		pid := id
		w.timers[id] = armed{
			round: s.CurrentRound,
			end:   s.TimerEndTime,
			timer: time.AfterFunc(time.Until(due), func() {
				if ctx.Err() != nil {
					return
				}
				w.log.Debug("deadline passed", zap.String("player", pid))
				if err := w.out.Dispatch(ctx, game.SubmitFake{PlayerID: pid, Text: FallbackText}); err != nil {
					w.log.Warn("fallback submit", zap.String("player", pid), zap.Error(err))
				}
			}),
		}
	}
	for id := range w.timers {
		if !live[id] {
			w.stop(id)
		}
	}
}

func (w *Watcher) stop(id string) {
	if a, ok := w.timers[id]; ok {
		a.timer.Stop()
		delete(w.timers, id)
	}
}

// Stop cancels every pending timer.
func (w *Watcher) Stop() {
	for id := range w.timers {
		w.stop(id)
	}
}
