package store

import (
	"context"
	"math/rand"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Nutr1t07/cpbot/internal/models"
)

// Memory is a store kept entirely in process memory, used by tests and by
// local runs with DB_DRIVER=memory. A single mutex serializes transactions,
// which trivially satisfies the account-locking contract; rollback is
// implemented by snapshotting the data before running the transaction body.
type Memory struct {
	mu sync.Mutex
	d  *memData
}

type memData struct {
	accounts  map[int64]models.Account
	duels     map[int64]models.Duel
	events    []models.Event
	problems  map[string]models.Problem
	nextDuel  int64
	nextEvent int64
}

func NewMemory() *Memory {
	return &Memory{d: &memData{
		accounts: make(map[int64]models.Account),
		duels:    make(map[int64]models.Duel),
		problems: make(map[string]models.Problem),
		nextDuel: 1, nextEvent: 1,
	}}
}

func (d *memData) clone() *memData {
	c := &memData{
		accounts:  make(map[int64]models.Account, len(d.accounts)),
		duels:     make(map[int64]models.Duel, len(d.duels)),
		events:    slices.Clone(d.events),
		problems:  d.problems,
		nextDuel:  d.nextDuel,
		nextEvent: d.nextEvent,
	}
	for k, v := range d.accounts {
		c.accounts[k] = v
	}
	for k, v := range d.duels {
		c.duels[k] = v
	}
	return c
}

func (m *Memory) Accounts() AccountStore { return memAccounts{m: m} }
func (m *Memory) Duels() DuelStore       { return memDuels{m: m} }
func (m *Memory) Events() EventStore     { return memEvents{m: m} }
func (m *Memory) Problems() ProblemStore { return memProblems{m: m} }

func (m *Memory) Transact(ctx context.Context, fn func(Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.d.clone()
	if err := fn(&memTx{d: m.d}); err != nil {
		m.d = snap
		return err
	}
	return nil
}

func (m *Memory) LockAccounts(ctx context.Context, qids ...int64) error { return nil }

// memTx is the view handed to Transact bodies; the transaction mutex is
// already held, so its repositories operate without locking.
type memTx struct {
	d *memData
}

func (t *memTx) Accounts() AccountStore { return memAccounts{d: t.d} }
func (t *memTx) Duels() DuelStore       { return memDuels{d: t.d} }
func (t *memTx) Events() EventStore     { return memEvents{d: t.d} }
func (t *memTx) Problems() ProblemStore { return memProblems{d: t.d} }

func (t *memTx) Transact(ctx context.Context, fn func(Store) error) error { return fn(t) }

func (t *memTx) LockAccounts(ctx context.Context, qids ...int64) error { return nil }

// data returns the shared state, taking the store mutex when the repository
// was obtained outside a transaction.
func lockData(m *Memory, d *memData) (*memData, func()) {
	if d != nil {
		return d, func() {}
	}
	m.mu.Lock()
	return m.d, m.mu.Unlock
}

type memAccounts struct {
	m *Memory
	d *memData
}

func (r memAccounts) Get(ctx context.Context, qid int64) (*models.Account, error) {
	d, unlock := lockData(r.m, r.d)
	defer unlock()
	a, ok := d.accounts[qid]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (r memAccounts) GetByHandle(ctx context.Context, handle string) (*models.Account, error) {
	d, unlock := lockData(r.m, r.d)
	defer unlock()
	for _, a := range d.accounts {
		if strings.EqualFold(a.Handle, handle) {
			return &a, nil
		}
	}
	return nil, ErrNotFound
}

func (r memAccounts) Save(ctx context.Context, a *models.Account) error {
	d, unlock := lockData(r.m, r.d)
	defer unlock()
	cp := *a
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	cp.UpdatedAt = time.Now()
	d.accounts[cp.QID] = cp
	return nil
}

func (r memAccounts) SetActiveDuel(ctx context.Context, qid int64, duelID *int64) error {
	d, unlock := lockData(r.m, r.d)
	defer unlock()
	a, ok := d.accounts[qid]
	if !ok {
		return nil
	}
	a.ActiveDuelID = duelID
	d.accounts[qid] = a
	return nil
}

func (r memAccounts) AddRating(ctx context.Context, qid int64, delta int) error {
	d, unlock := lockData(r.m, r.d)
	defer unlock()
	a, ok := d.accounts[qid]
	if !ok {
		return nil
	}
	a.Rating += delta
	d.accounts[qid] = a
	return nil
}

func (r memAccounts) ByActiveDuel(ctx context.Context, duelID int64) ([]models.Account, error) {
	d, unlock := lockData(r.m, r.d)
	defer unlock()
	var out []models.Account
	for _, a := range d.accounts {
		if a.ActiveDuelID != nil && *a.ActiveDuelID == duelID {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(x, y models.Account) int {
		return int(x.QID - y.QID)
	})
	return out, nil
}

func (r memAccounts) Leaderboard(ctx context.Context, limit int) ([]models.Account, error) {
	d, unlock := lockData(r.m, r.d)
	defer unlock()
	out := make([]models.Account, 0, len(d.accounts))
	for _, a := range d.accounts {
		out = append(out, a)
	}
	slices.SortFunc(out, func(x, y models.Account) int {
		return y.Rating - x.Rating
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memDuels struct {
	m *Memory
	d *memData
}

func (r memDuels) Create(ctx context.Context, duel *models.Duel) error {
	d, unlock := lockData(r.m, r.d)
	defer unlock()
	cp := *duel
	cp.ID = d.nextDuel
	d.nextDuel++
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	d.duels[cp.ID] = cp
	*duel = cp
	return nil
}

func (r memDuels) Get(ctx context.Context, id int64) (*models.Duel, error) {
	d, unlock := lockData(r.m, r.d)
	defer unlock()
	duel, ok := d.duels[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &duel, nil
}

func (r memDuels) findPending(d *memData, match func(models.Duel) bool) (*models.Duel, error) {
	var best *models.Duel
	for _, duel := range d.duels {
		if duel.Status != models.DuelStatusPending || !match(duel) {
			continue
		}
		if best == nil || duel.ID < best.ID {
			cp := duel
			best = &cp
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	return best, nil
}

func (r memDuels) PendingFor(ctx context.Context, qid int64) (*models.Duel, error) {
	d, unlock := lockData(r.m, r.d)
	defer unlock()
	return r.findPending(d, func(x models.Duel) bool { return x.Player2 == qid })
}

func (r memDuels) PendingBy(ctx context.Context, qid int64) (*models.Duel, error) {
	d, unlock := lockData(r.m, r.d)
	defer unlock()
	return r.findPending(d, func(x models.Duel) bool { return x.Player1 == qid })
}

func (r memDuels) PendingInvolving(ctx context.Context, qid int64) (*models.Duel, error) {
	d, unlock := lockData(r.m, r.d)
	defer unlock()
	return r.findPending(d, func(x models.Duel) bool { return x.Player1 == qid || x.Player2 == qid })
}

func (r memDuels) Save(ctx context.Context, duel *models.Duel) error {
	d, unlock := lockData(r.m, r.d)
	defer unlock()
	d.duels[duel.ID] = *duel
	return nil
}

func (r memDuels) FinishedBetween(ctx context.Context, a, b int64) ([]models.Duel, error) {
	d, unlock := lockData(r.m, r.d)
	defer unlock()
	var out []models.Duel
	for _, duel := range d.duels {
		if duel.Status != models.DuelStatusFinished {
			continue
		}
		if (duel.Player1 == a && duel.Player2 == b) || (duel.Player1 == b && duel.Player2 == a) {
			out = append(out, duel)
		}
	}
	slices.SortFunc(out, func(x, y models.Duel) int { return int(x.ID - y.ID) })
	return out, nil
}

func (r memDuels) ListByStatus(ctx context.Context, status string, limit int) ([]models.Duel, error) {
	d, unlock := lockData(r.m, r.d)
	defer unlock()
	var out []models.Duel
	for _, duel := range d.duels {
		if status == "" || duel.Status == status {
			out = append(out, duel)
		}
	}
	slices.SortFunc(out, func(x, y models.Duel) int { return int(y.ID - x.ID) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memEvents struct {
	m *Memory
	d *memData
}

func (r memEvents) Append(ctx context.Context, qid int64, kind string) error {
	d, unlock := lockData(r.m, r.d)
	defer unlock()
	d.events = append(d.events, models.Event{
		ID:        d.nextEvent,
		QID:       qid,
		Kind:      kind,
		CreatedAt: time.Now(),
	})
	d.nextEvent++
	return nil
}

func (r memEvents) Count(ctx context.Context, qid int64, kind string) (int64, error) {
	d, unlock := lockData(r.m, r.d)
	defer unlock()
	var n int64
	for _, e := range d.events {
		if e.QID == qid && e.Kind == kind {
			n++
		}
	}
	return n, nil
}

type memProblems struct {
	m *Memory
	d *memData
}

func (r memProblems) RandomInRange(ctx context.Context, lo, hi int) (*models.Problem, error) {
	d, unlock := lockData(r.m, r.d)
	defer unlock()
	var matches []models.Problem
	for _, p := range d.problems {
		if p.Rating != nil && *p.Rating >= lo && *p.Rating <= hi {
			matches = append(matches, p)
		}
	}
	if len(matches) == 0 {
		return nil, ErrNotFound
	}
	p := matches[rand.Intn(len(matches))]
	return &p, nil
}

func (r memProblems) UpsertAll(ctx context.Context, ps []models.Problem) error {
	d, unlock := lockData(r.m, r.d)
	defer unlock()
	next := make(map[string]models.Problem, len(d.problems)+len(ps))
	for k, v := range d.problems {
		next[k] = v
	}
	for _, p := range ps {
		next[p.Name] = p
	}
	// problems map is shared with snapshots, so replace it wholesale.
	d.problems = next
	return nil
}

func (r memProblems) Count(ctx context.Context) (int64, error) {
	d, unlock := lockData(r.m, r.d)
	defer unlock()
	return int64(len(d.problems)), nil
}
