package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Nutr1t07/cpbot/internal/models"
	"github.com/Nutr1t07/cpbot/internal/store"
)

// fakeJudge substitutes the Codeforces client in tests.
type fakeJudge struct {
	ratings  map[string]int
	acs      map[string]time.Time // handle -> earliest AC for any queried task
	problems []models.Problem
	err      error
}

func (f *fakeJudge) UserRating(ctx context.Context, handle string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	for h, r := range f.ratings {
		if strings.EqualFold(h, handle) {
			return r, nil
		}
	}
	return 0, fmt.Errorf("handle %q not found", handle)
}

func (f *fakeJudge) Problems(ctx context.Context) ([]models.Problem, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.problems, nil
}

func (f *fakeJudge) EarliestAC(ctx context.Context, handle string, contestID int, index string) (time.Time, bool, error) {
	if f.err != nil {
		return time.Time{}, false, f.err
	}
	t, ok := f.acs[handle]
	return t, ok, nil
}

type env struct {
	store    *store.Memory
	judge    *fakeJudge
	accounts *AccountService
	duels    *DuelService
	checker  *CheckService
	history  *HistoryService
	problems *ProblemService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	st := store.NewMemory()
	judge := &fakeJudge{
		ratings: map[string]int{},
		acs:     map[string]time.Time{},
	}
	duels := NewDuelService(st, nil)
	return &env{
		store:    st,
		judge:    judge,
		accounts: NewAccountService(st, judge),
		duels:    duels,
		checker:  NewCheckService(st, judge, duels),
		history:  NewHistoryService(st),
		problems: NewProblemService(st, judge),
	}
}

func (e *env) seedAccount(t *testing.T, qid int64, handle string, rating int) {
	t.Helper()
	err := e.store.Accounts().Save(context.Background(), &models.Account{
		QID: qid, Handle: handle, Rating: rating,
	})
	if err != nil {
		t.Fatalf("seed account %d: %v", qid, err)
	}
}

func (e *env) seedProblem(t *testing.T, name string, contestID int, index string, rating int) {
	t.Helper()
	r := rating
	err := e.store.Problems().UpsertAll(context.Background(), []models.Problem{{
		Name: name, ContestID: contestID, Index: index, Rating: &r,
	}})
	if err != nil {
		t.Fatalf("seed problem %s: %v", name, err)
	}
}

func (e *env) account(t *testing.T, qid int64) *models.Account {
	t.Helper()
	acc, err := e.store.Accounts().Get(context.Background(), qid)
	if err != nil {
		t.Fatalf("get account %d: %v", qid, err)
	}
	return acc
}

func (e *env) eventCount(t *testing.T, qid int64, kind string) int64 {
	t.Helper()
	n, err := e.store.Events().Count(context.Background(), qid, kind)
	if err != nil {
		t.Fatalf("count events: %v", err)
	}
	return n
}

// activeDuel seeds a pair of bound accounts, a matching problem, and walks
// invite+accept so tests can start from a running duel.
func (e *env) activeDuel(t *testing.T) *models.Duel {
	t.Helper()
	e.seedAccount(t, 1, "alice", 1500)
	e.seedAccount(t, 2, "bob", 1400)
	e.seedProblem(t, "Watermelon", 4, "A", 1600)

	if _, err := e.duels.Invite(context.Background(), 1, 2, 0, 0); err != nil {
		t.Fatalf("invite: %v", err)
	}
	duel, err := e.duels.Accept(context.Background(), 2)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	return duel
}

func mustBeNotFoundFree(t *testing.T, err error) {
	t.Helper()
	if errors.Is(err, store.ErrNotFound) {
		t.Fatalf("store.ErrNotFound leaked through the service layer: %v", err)
	}
}
