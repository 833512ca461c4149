package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Nutr1t07/cpbot/internal/models"
	"github.com/Nutr1t07/cpbot/internal/store"
)

// CheckService asks the judge whether anyone has solved the duel task yet and
// finishes the duel when a winner is determined.
type CheckService struct {
	store store.Store
	judge Judge
	duels *DuelService
}

func NewCheckService(st store.Store, judge Judge, duels *DuelService) *CheckService {
	return &CheckService{store: st, judge: judge, duels: duels}
}

// Outcome is the result of a check. Winner is nil while nobody has an
// accepted submission; the duel stays active and the check can be repeated.
type Outcome struct {
	Duel     *models.Duel
	Winner   *models.Account // rating as of before the delta was applied
	Loser    *models.Account
	Delta    int
	SolvedAt time.Time
}

// Check polls the judge once per current participant of the caller's duel.
// Participants are the accounts still pointing at the duel, which can be just
// one after a skip. A timeout on any query aborts the whole check with no
// partial result; the winner is the participant with the strictly earliest
// accepted submission (first encountered on the astronomically unlikely tie).
func (s *CheckService) Check(ctx context.Context, caller int64) (*Outcome, error) {
	acc, err := s.store.Accounts().Get(ctx, caller)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotInDuel
	} else if err != nil {
		return nil, err
	}
	if acc.ActiveDuelID == nil {
		return nil, ErrNotInDuel
	}
	duel, err := s.store.Duels().Get(ctx, *acc.ActiveDuelID)
	if err != nil {
		return nil, err
	}
	participants, err := s.store.Accounts().ByActiveDuel(ctx, duel.ID)
	if err != nil {
		return nil, err
	}

	var winner *models.Account
	var fastest time.Time
	for i := range participants {
		p := &participants[i]
		solvedAt, ok, err := s.judge.EarliestAC(ctx, p.Handle, duel.ContestID, duel.ProblemIndex)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrJudgeUnavailable, err)
		}
		if ok && (winner == nil || solvedAt.Before(fastest)) {
			winner = p
			fastest = solvedAt
		}
	}
	if winner == nil {
		return &Outcome{Duel: duel}, nil
	}

	loserQID := duel.Other(winner.QID)
	loser, err := s.store.Accounts().Get(ctx, loserQID)
	if err != nil {
		return nil, err
	}
	delta, err := s.duels.Complete(ctx, duel.ID, winner.QID, loserQID)
	if err != nil {
		return nil, err
	}
	return &Outcome{
		Duel:     duel,
		Winner:   winner,
		Loser:    loser,
		Delta:    delta,
		SolvedAt: fastest,
	}, nil
}
