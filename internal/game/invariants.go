package game

import (
	"errors"
	"fmt"
	"slices"

	"go.uber.org/multierr"
)

var (
	ErrDuplicateAuthor   = errors.New("more than one answer per author")
	ErrStrayVote         = errors.New("vote from a non-participant or for a missing answer")
	ErrMultipleHosts     = errors.New("more than one host")
	ErrHecklerGameMaster = errors.New("heckler is game master")
	ErrInvalidBonus      = errors.New("bonus awarded without a revealed bluff")
	ErrNegativeScore     = errors.New("negative score")
)

// CheckInvariants reports every violated session invariant. A non-nil result
// means a reducer bug, never bad input.
func CheckInvariants(s Session) error {
	var err error

	authors := map[string]bool{}
	for _, a := range s.SubmittedAnswers {
		if a.AuthorID == AuthorGame || a.AuthorID == AuthorAI {
			continue
		}
		if authors[a.AuthorID] {
			err = multierr.Append(err, fmt.Errorf("%w: %s", ErrDuplicateAuthor, a.AuthorID))
		}
		authors[a.AuthorID] = true
	}

	for voter, aid := range s.Votes {
		if _, ok := s.Answer(aid); !ok || !s.IsParticipant(voter) {
			err = multierr.Append(err, fmt.Errorf("%w: %s -> %s", ErrStrayVote, voter, aid))
		}
	}

	hosts := 0
	for _, p := range s.Players {
		if p.IsHost {
			hosts++
		}
		if p.Score < 0 {
			err = multierr.Append(err, fmt.Errorf("%w: %s", ErrNegativeScore, p.ID))
		}
		if p.IsHeckler && p.ID == s.GameMasterID {
			err = multierr.Append(err, ErrHecklerGameMaster)
		}
	}
	if hosts > 1 {
		err = multierr.Append(err, fmt.Errorf("%w: %d", ErrMultipleHosts, hosts))
	}

	for _, pid := range s.AwardedBonusIDs {
		ok := slices.ContainsFunc(s.SubmittedAnswers, func(a Answer) bool {
			return a.AuthorID == pid && !a.IsCorrect && slices.Contains(s.RevealedAnswerIDs, a.ID)
		})
		if !ok {
			err = multierr.Append(err, fmt.Errorf("%w: %s", ErrInvalidBonus, pid))
		}
	}

	return err
}
