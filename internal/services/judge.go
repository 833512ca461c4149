package services

import (
	"context"
	"time"

	"github.com/Nutr1t07/cpbot/internal/models"
)

// Judge is the slice of the Codeforces API the services consume. The real
// implementation is internal/codeforces; tests substitute a fake.
type Judge interface {
	UserRating(ctx context.Context, handle string) (int, error)
	Problems(ctx context.Context) ([]models.Problem, error)
	EarliestAC(ctx context.Context, handle string, contestID int, index string) (time.Time, bool, error)
}

// Notifier receives duel lifecycle events for the live feed. Implemented by
// the ws hub; a nil notifier disables the feed.
type Notifier interface {
	Notify(event string, data interface{})
}
