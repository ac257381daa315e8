package content

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/DoyleJ11/bluffparty/internal/game"
)

// Static draws everything from built-in pools. It never fails.
type Static struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewStatic(seed uint64) *Static {
	return &Static{rng: rand.New(rand.NewPCG(seed, seed>>1|1))}
}

func (s *Static) intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

func (s *Static) GenerateRoundContent(_ context.Context, req RoundRequest) (RoundContent, error) {
	if req.HarryPotter {
		it := harryPotterPool[s.intn(len(harryPotterPool))]
		return RoundContent{Question: it.Q, Correct: game.CleanAnswer(it.A), Category: CategoryHarryPotter}, nil
	}
	cat := req.Category
	pool, ok := pools[cat]
	if !ok {
		cat = categories[s.intn(len(categories))]
		pool = pools[cat]
	}
	it := pool[s.intn(len(pool))]
	return RoundContent{Question: it.Q, Correct: game.CleanAnswer(it.A), Category: cat}, nil
}

// GenerateBotAnswers gives every bot a different lie from its personality's
// pool while the pool lasts.
func (s *Static) GenerateBotAnswers(_ context.Context, bots []game.Player, _ string, _ bool) (map[string]string, error) {
	out := make(map[string]string, len(bots))
	used := map[string][]string{}
	for _, b := range bots {
		key := string(b.BotPersonality)
		pool, ok := lies[key]
		if !ok {
			key = string(game.PersonalityPro)
			pool = lies[key]
		}
		free := slices.DeleteFunc(slices.Clone(pool), func(l string) bool { return slices.Contains(used[key], l) })
		if len(free) == 0 {
			free = pool
		}
		pick := free[s.intn(len(free))]
		used[key] = append(used[key], pick)
		out[b.ID] = pick
	}
	return out, nil
}

func (s *Static) GenerateRoast(_ context.Context, req RoastRequest) (string, error) {
	if req.Final {
		name := req.TargetName
		if name == "" {
			name = "somebody"
		}
		return fmt.Sprintf(finalRoasts[s.intn(len(finalRoasts))], name, req.Score), nil
	}
	return fmt.Sprintf(roundRoasts[s.intn(len(roundRoasts))], req.TargetName, req.AnswerText), nil
}

var _ Producer = (*Static)(nil)
