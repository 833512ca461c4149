package services

import (
	"context"
	"errors"
	"time"

	"github.com/Nutr1t07/cpbot/internal/models"
	"github.com/Nutr1t07/cpbot/internal/rating"
	"github.com/Nutr1t07/cpbot/internal/store"
)

// DuelService owns the duel state machine and is the only writer of
// Account.ActiveDuelID. Every mutation runs inside one store transaction with
// row locks on the accounts involved, so overlapping commands that touch the
// same account serialize and at most one non-terminal duel can ever reference
// an account.
type DuelService struct {
	store    store.Store
	notifier Notifier
}

func NewDuelService(st store.Store, notifier Notifier) *DuelService {
	return &DuelService{store: st, notifier: notifier}
}

func (s *DuelService) notify(event string, data interface{}) {
	if s.notifier != nil {
		s.notifier.Notify(event, data)
	}
}

// Invite creates a pending duel between challenger and opponent over a task
// drawn uniformly from the difficulty band [lo, hi]. lo == hi == 0 selects
// the default band [min(r1,r2)-500, max(r1,r2)+200].
func (s *DuelService) Invite(ctx context.Context, challenger, opponent int64, lo, hi int) (*models.Duel, error) {
	if challenger == opponent {
		return nil, ErrSelfInvite
	}

	var duel *models.Duel
	err := s.store.Transact(ctx, func(tx store.Store) error {
		if err := tx.LockAccounts(ctx, challenger, opponent); err != nil {
			return err
		}

		p1, err := tx.Accounts().Get(ctx, challenger)
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotBound
		} else if err != nil {
			return err
		}
		if p1.ActiveDuelID != nil {
			return ErrChallengerBusy
		}
		if conflict, err := tx.Duels().PendingInvolving(ctx, challenger); err == nil {
			return &PendingInviteError{Duel: conflict}
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		p2, err := tx.Accounts().Get(ctx, opponent)
		if errors.Is(err, store.ErrNotFound) {
			return ErrOpponentNotBound
		} else if err != nil {
			return err
		}
		if p2.ActiveDuelID != nil {
			return ErrOpponentBusy
		}
		if conflict, err := tx.Duels().PendingInvolving(ctx, opponent); err == nil {
			return &PendingInviteError{Duel: conflict, Opponent: true}
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		if lo == 0 && hi == 0 {
			lo = min(p1.Rating, p2.Rating) - 500
			hi = max(p1.Rating, p2.Rating) + 200
		}
		task, err := tx.Problems().RandomInRange(ctx, lo, hi)
		if errors.Is(err, store.ErrNotFound) {
			return &NoTaskInRangeError{Lo: lo, Hi: hi}
		} else if err != nil {
			return err
		}

		duel = &models.Duel{
			ContestID:    task.ContestID,
			ProblemIndex: task.Index,
			ProblemName:  task.Name,
			Difficulty:   *task.Rating,
			Player1:      challenger,
			Player2:      opponent,
			Status:       models.DuelStatusPending,
		}
		return tx.Duels().Create(ctx, duel)
	})
	if err != nil {
		return nil, err
	}
	s.notify("invited", duel)
	return duel, nil
}

// Accept turns the invite addressed to responder into an active duel: stamps
// the start time, points both accounts at the duel and records attendance.
func (s *DuelService) Accept(ctx context.Context, responder int64) (*models.Duel, error) {
	var duel *models.Duel
	err := s.store.Transact(ctx, func(tx store.Store) error {
		found, err := tx.Duels().PendingFor(ctx, responder)
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotInvited
		} else if err != nil {
			return err
		}
		if err := tx.LockAccounts(ctx, found.Player1, found.Player2); err != nil {
			return err
		}
		// re-read under the locks; the invite may have been cancelled since
		duel, err = tx.Duels().Get(ctx, found.ID)
		if err != nil {
			return err
		}
		if duel.Status != models.DuelStatusPending {
			return ErrNotInvited
		}

		duel.Status = models.DuelStatusActive
		duel.StartedAt = time.Now()
		if err := tx.Duels().Save(ctx, duel); err != nil {
			return err
		}
		for _, qid := range []int64{duel.Player1, duel.Player2} {
			if err := tx.Accounts().SetActiveDuel(ctx, qid, &duel.ID); err != nil {
				return err
			}
			if err := tx.Events().Append(ctx, qid, models.EventAttended); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify("accepted", duel)
	return duel, nil
}

// Decline rejects the invite addressed to responder.
func (s *DuelService) Decline(ctx context.Context, responder int64) (*models.Duel, error) {
	return s.closePending(ctx, "declined", models.DuelStatusDeclined, func(tx store.Store) (*models.Duel, error) {
		return tx.Duels().PendingFor(ctx, responder)
	})
}

// Cancel withdraws the invite created by inviter.
func (s *DuelService) Cancel(ctx context.Context, inviter int64) (*models.Duel, error) {
	return s.closePending(ctx, "cancelled", models.DuelStatusCancelled, func(tx store.Store) (*models.Duel, error) {
		return tx.Duels().PendingBy(ctx, inviter)
	})
}

func (s *DuelService) closePending(ctx context.Context, event, status string, find func(store.Store) (*models.Duel, error)) (*models.Duel, error) {
	var duel *models.Duel
	err := s.store.Transact(ctx, func(tx store.Store) error {
		found, err := find(tx)
		if errors.Is(err, store.ErrNotFound) {
			return ErrNoSuchInvite
		} else if err != nil {
			return err
		}
		if err := tx.LockAccounts(ctx, found.Player1, found.Player2); err != nil {
			return err
		}
		duel, err = tx.Duels().Get(ctx, found.ID)
		if err != nil {
			return err
		}
		if duel.Status != models.DuelStatusPending {
			return ErrNoSuchInvite
		}
		duel.Status = status
		return tx.Duels().Save(ctx, duel)
	})
	if err != nil {
		return nil, err
	}
	s.notify(event, duel)
	return duel, nil
}

// Skip detaches the caller from their active duel and records the skip. The
// duel itself stays active: the remaining player can still win by submitting.
func (s *DuelService) Skip(ctx context.Context, participant int64) (*models.Duel, time.Duration, error) {
	var duel *models.Duel
	var elapsed time.Duration
	err := s.store.Transact(ctx, func(tx store.Store) error {
		if err := tx.LockAccounts(ctx, participant); err != nil {
			return err
		}
		acc, err := tx.Accounts().Get(ctx, participant)
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotInDuel
		} else if err != nil {
			return err
		}
		if acc.ActiveDuelID == nil {
			return ErrNotInDuel
		}
		duel, err = tx.Duels().Get(ctx, *acc.ActiveDuelID)
		if err != nil {
			return err
		}
		elapsed = time.Since(duel.StartedAt)
		if err := tx.Accounts().SetActiveDuel(ctx, participant, nil); err != nil {
			return err
		}
		return tx.Events().Append(ctx, participant, models.EventSkipped)
	})
	if err != nil {
		return nil, 0, err
	}
	s.notify("skipped", duel)
	return duel, elapsed, nil
}

// Complete finishes the duel in favor of winner, applying the rating delta to
// the winner only. It is safe against retries: once a winner is set every
// further call fails with ErrAlreadyFinished and nothing is re-applied.
func (s *DuelService) Complete(ctx context.Context, duelID, winner, loser int64) (int, error) {
	var delta int
	var duel *models.Duel
	err := s.store.Transact(ctx, func(tx store.Store) error {
		if err := tx.LockAccounts(ctx, winner, loser); err != nil {
			return err
		}
		var err error
		duel, err = tx.Duels().Get(ctx, duelID)
		if err != nil {
			return err
		}
		if duel.WinnerQID != nil || duel.Terminal() {
			return ErrAlreadyFinished
		}

		w, err := tx.Accounts().Get(ctx, winner)
		if err != nil {
			return err
		}
		l, err := tx.Accounts().Get(ctx, loser)
		if err != nil {
			return err
		}
		delta = rating.Delta(w.Rating, l.Rating, duel.Difficulty)

		if err := tx.Accounts().AddRating(ctx, winner, delta); err != nil {
			return err
		}
		// detach both sides, but only from this duel: a skipper may already
		// be in a newer one
		for _, acc := range []*models.Account{w, l} {
			if acc.ActiveDuelID != nil && *acc.ActiveDuelID == duelID {
				if err := tx.Accounts().SetActiveDuel(ctx, acc.QID, nil); err != nil {
					return err
				}
			}
		}
		if err := tx.Events().Append(ctx, winner, models.EventWon); err != nil {
			return err
		}
		duel.WinnerQID = &winner
		duel.Status = models.DuelStatusFinished
		return tx.Duels().Save(ctx, duel)
	})
	if err != nil {
		return 0, err
	}
	s.notify("finished", duel)
	return delta, nil
}

// ListByStatus is used by the admin API.
func (s *DuelService) ListByStatus(ctx context.Context, status string, limit int) ([]models.Duel, error) {
	return s.store.Duels().ListByStatus(ctx, status, limit)
}
