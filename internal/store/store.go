// Package store defines the typed persistence interfaces for accounts, duels,
// history events and the cached problemset, with a Postgres (gorm) and an
// in-memory implementation. All read-modify-write sequences in the duel
// lifecycle go through Transact plus LockAccounts so that two overlapping
// commands touching the same account serialize instead of both succeeding.
package store

import (
	"context"
	"errors"

	"github.com/Nutr1t07/cpbot/internal/models"
)

// ErrNotFound is returned for lookups that match no row.
var ErrNotFound = errors.New("store: record not found")

type AccountStore interface {
	Get(ctx context.Context, qid int64) (*models.Account, error)
	// GetByHandle matches case-insensitively.
	GetByHandle(ctx context.Context, handle string) (*models.Account, error)
	// Save creates or fully replaces the account row.
	Save(ctx context.Context, a *models.Account) error
	SetActiveDuel(ctx context.Context, qid int64, duelID *int64) error
	AddRating(ctx context.Context, qid int64, delta int) error
	// ByActiveDuel returns the accounts whose active-duel pointer references
	// duelID, ordered by qid. After a skip this can be a single account.
	ByActiveDuel(ctx context.Context, duelID int64) ([]models.Account, error)
	Leaderboard(ctx context.Context, limit int) ([]models.Account, error)
}

type DuelStore interface {
	Create(ctx context.Context, d *models.Duel) error
	Get(ctx context.Context, id int64) (*models.Duel, error)
	// PendingFor finds the pending duel inviting qid (qid is player2).
	PendingFor(ctx context.Context, qid int64) (*models.Duel, error)
	// PendingBy finds the pending duel created by qid (qid is player1).
	PendingBy(ctx context.Context, qid int64) (*models.Duel, error)
	// PendingInvolving finds a pending duel with qid on either side.
	PendingInvolving(ctx context.Context, qid int64) (*models.Duel, error)
	Save(ctx context.Context, d *models.Duel) error
	// FinishedBetween returns every finished duel contested by exactly the
	// pair (a, b), in either seating order.
	FinishedBetween(ctx context.Context, a, b int64) ([]models.Duel, error)
	ListByStatus(ctx context.Context, status string, limit int) ([]models.Duel, error)
}

type EventStore interface {
	Append(ctx context.Context, qid int64, kind string) error
	Count(ctx context.Context, qid int64, kind string) (int64, error)
}

type ProblemStore interface {
	// RandomInRange draws one problem uniformly at random with
	// lo <= rating <= hi. Unrated problems never match.
	RandomInRange(ctx context.Context, lo, hi int) (*models.Problem, error)
	UpsertAll(ctx context.Context, ps []models.Problem) error
	Count(ctx context.Context) (int64, error)
}

// Store aggregates the repositories behind one transactional handle.
type Store interface {
	Accounts() AccountStore
	Duels() DuelStore
	Events() EventStore
	Problems() ProblemStore

	// Transact runs fn against a transactional view of the store. If fn
	// returns an error nothing it did is visible afterwards.
	Transact(ctx context.Context, fn func(Store) error) error

	// LockAccounts takes exclusive locks on the given account rows, in
	// ascending qid order. Only meaningful inside Transact; the locks are
	// released when the transaction ends.
	LockAccounts(ctx context.Context, qids ...int64) error
}
