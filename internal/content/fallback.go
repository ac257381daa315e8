package content

import (
	"context"

	"github.com/DoyleJ11/bluffparty/internal/game"
	"go.uber.org/zap"
)

type fallback struct {
	primary Producer
	backup  Producer
	log     *zap.Logger
}

// WithFallback serves from primary and switches to backup on any error or
// unusable result. Harry Potter rounds for non-troll game masters always come
// from backup's pool.
func WithFallback(primary, backup Producer, log *zap.Logger) Producer {
	if log == nil {
		log = zap.NewNop()
	}
	return &fallback{primary: primary, backup: backup, log: log}
}

func (f *fallback) GenerateRoundContent(ctx context.Context, req RoundRequest) (RoundContent, error) {
	if req.HarryPotter && req.Personality != game.PersonalityTroll {
		return f.backup.GenerateRoundContent(ctx, req)
	}
	c, err := f.primary.GenerateRoundContent(ctx, req)
	if err == nil {
		err = validRound(c)
	}
	if err != nil {
		f.log.Warn("round content failed, using fallback", zap.Error(err))
		return f.backup.GenerateRoundContent(ctx, req)
	}
	c.Correct = game.CleanAnswer(c.Correct)
	return c, nil
}

func (f *fallback) GenerateBotAnswers(ctx context.Context, bots []game.Player, question string, hp bool) (map[string]string, error) {
	out, err := f.primary.GenerateBotAnswers(ctx, bots, question, hp)
	if err != nil {
		f.log.Warn("bot answers failed, using fallback", zap.Error(err))
		return f.backup.GenerateBotAnswers(ctx, bots, question, hp)
	}
	if out == nil {
		out = make(map[string]string, len(bots))
	}
	var missing []game.Player
	for _, b := range bots {
		text, ok := out[b.ID]
		if !ok || game.CleanAnswer(text) == "" {
			missing = append(missing, b)
			continue
		}
		out[b.ID] = game.CleanAnswer(text)
	}
	if len(missing) > 0 {
		extra, err := f.backup.GenerateBotAnswers(ctx, missing, question, hp)
		if err != nil {
			return out, nil
		}
		for id, text := range extra {
			out[id] = text
		}
	}
	return out, nil
}

func (f *fallback) GenerateRoast(ctx context.Context, req RoastRequest) (string, error) {
	text, err := f.primary.GenerateRoast(ctx, req)
	if err != nil || text == "" {
		f.log.Warn("roast failed, using fallback", zap.Error(err))
		return f.backup.GenerateRoast(ctx, req)
	}
	return text, nil
}
