package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Nutr1t07/cpbot/internal/models"
	"github.com/Nutr1t07/cpbot/internal/store"
)

type AccountService struct {
	store store.Store
	judge Judge
}

func NewAccountService(st store.Store, judge Judge) *AccountService {
	return &AccountService{store: st, judge: judge}
}

// Bind attaches a Codeforces handle to the sender's account, seeding the
// rating from the judge. Re-binding is allowed and overwrites the handle and
// rating; a handle held by a different account is rejected. The rating lookup
// happens before the transaction so a judge timeout commits nothing.
func (s *AccountService) Bind(ctx context.Context, sender, claimedQID int64, handle string) (*models.Account, error) {
	if claimedQID != sender {
		return nil, ErrIdentityMismatch
	}

	owner, err := s.store.Accounts().GetByHandle(ctx, handle)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if owner != nil && owner.QID != sender {
		return nil, ErrHandleTaken
	}

	rt, err := s.judge.UserRating(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrJudgeUnavailable, err)
	}

	var acc *models.Account
	err = s.store.Transact(ctx, func(tx store.Store) error {
		if err := tx.LockAccounts(ctx, sender); err != nil {
			return err
		}
		// re-check under the transaction: another bind may have raced us
		owner, err := tx.Accounts().GetByHandle(ctx, handle)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if owner != nil && owner.QID != sender {
			return ErrHandleTaken
		}

		acc, err = tx.Accounts().Get(ctx, sender)
		if errors.Is(err, store.ErrNotFound) {
			acc = &models.Account{QID: sender}
		} else if err != nil {
			return err
		}
		acc.Handle = handle
		acc.Rating = rt
		return tx.Accounts().Save(ctx, acc)
	})
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// Get returns the account, or ErrNotBound if the qid never bound a handle.
func (s *AccountService) Get(ctx context.Context, qid int64) (*models.Account, error) {
	acc, err := s.store.Accounts().Get(ctx, qid)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotBound
	}
	return acc, err
}

// GetByHandle resolves a handle (case-insensitive) to an account.
func (s *AccountService) GetByHandle(ctx context.Context, handle string) (*models.Account, error) {
	acc, err := s.store.Accounts().GetByHandle(ctx, handle)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotBound
	}
	return acc, err
}

type Stats struct {
	Wins     int64 `json:"wins"`
	Skips    int64 `json:"skips"`
	Attended int64 `json:"attended"`
}

// Stats aggregates the account's history events.
func (s *AccountService) Stats(ctx context.Context, qid int64) (Stats, error) {
	if _, err := s.Get(ctx, qid); err != nil {
		return Stats{}, err
	}
	var st Stats
	var err error
	if st.Wins, err = s.store.Events().Count(ctx, qid, models.EventWon); err != nil {
		return Stats{}, err
	}
	if st.Skips, err = s.store.Events().Count(ctx, qid, models.EventSkipped); err != nil {
		return Stats{}, err
	}
	if st.Attended, err = s.store.Events().Count(ctx, qid, models.EventAttended); err != nil {
		return Stats{}, err
	}
	return st, nil
}
