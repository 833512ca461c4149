package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Nutr1t07/cpbot/internal/models"
	"github.com/Nutr1t07/cpbot/internal/store"

	"github.com/go-co-op/gocron/v2"
)

// gimmeBand is the half-width of the difficulty band used by a plain gimme.
const gimmeBand = 200

// ProblemService serves tasks out of the locally cached problemset and keeps
// the cache refreshed from the judge.
type ProblemService struct {
	store store.Store
	judge Judge
}

func NewProblemService(st store.Store, judge Judge) *ProblemService {
	return &ProblemService{store: st, judge: judge}
}

// Pick draws one task uniformly at random with difficulty in [lo, hi].
func (s *ProblemService) Pick(ctx context.Context, lo, hi int) (*models.Problem, error) {
	p, err := s.store.Problems().RandomInRange(ctx, lo, hi)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &NoTaskInRangeError{Lo: lo, Hi: hi}
	}
	return p, err
}

// Gimme picks a practice task for qid: around their own rating by default, or
// at exactly the requested difficulty.
func (s *ProblemService) Gimme(ctx context.Context, qid int64, difficulty int) (*models.Problem, error) {
	acc, err := s.store.Accounts().Get(ctx, qid)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotBound
	} else if err != nil {
		return nil, err
	}
	lo, hi := difficulty, difficulty
	if difficulty == 0 {
		lo, hi = acc.Rating-gimmeBand, acc.Rating+gimmeBand
	}
	return s.Pick(ctx, lo, hi)
}

// Sync replaces the cached problemset with the judge's current one.
func (s *ProblemService) Sync(ctx context.Context) error {
	problems, err := s.judge.Problems(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrJudgeUnavailable, err)
	}
	if err := s.store.Problems().UpsertAll(ctx, problems); err != nil {
		return err
	}
	log.Printf("[ProblemSync] cached %d problems", len(problems))
	return nil
}

// StartSyncScheduler refreshes the cache immediately and then on every tick.
// The returned scheduler is shut down by the caller on exit.
func (s *ProblemService) StartSyncScheduler(interval time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if err := s.Sync(context.Background()); err != nil {
				log.Printf("[ProblemSync] refresh failed: %v", err)
			}
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return nil, err
	}
	sched.Start()
	return sched, nil
}
