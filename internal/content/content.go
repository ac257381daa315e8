// Package content supplies questions, bot bluffs and heckler roasts. Hosts
// wrap whatever producer they use with WithFallback so a round never stalls
// on a failing producer.
package content

import (
	"context"
	"errors"
	"fmt"

	"github.com/DoyleJ11/bluffparty/internal/game"
)

var ErrInvalidContent = errors.New("invalid content")

type RoundRequest struct {
	Category    string
	Personality game.Personality
	HarryPotter bool
}

type RoundContent struct {
	Question string
	Correct  string
	Category string
}

type RoastRequest struct {
	// Final selects the end-of-game roast of the last-placed human.
	Final      bool
	Question   string
	TargetName string
	AnswerText string
	Score      int
}

type Producer interface {
	GenerateRoundContent(ctx context.Context, req RoundRequest) (RoundContent, error)
	// GenerateBotAnswers returns bluff text keyed by bot id. Bots missing
	// from the result simply do not submit.
	GenerateBotAnswers(ctx context.Context, bots []game.Player, question string, harryPotter bool) (map[string]string, error)
	GenerateRoast(ctx context.Context, req RoastRequest) (string, error)
}

func validRound(c RoundContent) error {
	if len(c.Question) < 3 {
		return fmt.Errorf("%w: question too short", ErrInvalidContent)
	}
	if c.Correct == "" {
		return fmt.Errorf("%w: empty answer", ErrInvalidContent)
	}
	return nil
}
