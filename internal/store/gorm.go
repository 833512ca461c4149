package store

import (
	"context"
	"errors"
	"slices"

	"github.com/Nutr1t07/cpbot/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Gorm is the Postgres-backed store.
type Gorm struct {
	db *gorm.DB
}

func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

func (s *Gorm) Accounts() AccountStore { return gormAccounts{s.db} }
func (s *Gorm) Duels() DuelStore       { return gormDuels{s.db} }
func (s *Gorm) Events() EventStore     { return gormEvents{s.db} }
func (s *Gorm) Problems() ProblemStore { return gormProblems{s.db} }

func (s *Gorm) Transact(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Gorm{db: tx})
	})
}

// LockAccounts acquires SELECT ... FOR UPDATE locks on the account rows in
// ascending qid order, so two transactions locking overlapping sets cannot
// deadlock.
func (s *Gorm) LockAccounts(ctx context.Context, qids ...int64) error {
	if len(qids) == 0 {
		return nil
	}
	ids := slices.Clone(qids)
	slices.Sort(ids)
	var locked []models.Account
	return s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("qid IN ?", ids).
		Order("qid").
		Find(&locked).Error
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

type gormAccounts struct{ db *gorm.DB }

func (r gormAccounts) Get(ctx context.Context, qid int64) (*models.Account, error) {
	var a models.Account
	if err := r.db.WithContext(ctx).First(&a, "qid = ?", qid).Error; err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (r gormAccounts) GetByHandle(ctx context.Context, handle string) (*models.Account, error) {
	var a models.Account
	err := r.db.WithContext(ctx).Where("LOWER(handle) = LOWER(?)", handle).First(&a).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (r gormAccounts) Save(ctx context.Context, a *models.Account) error {
	return r.db.WithContext(ctx).Save(a).Error
}

func (r gormAccounts) SetActiveDuel(ctx context.Context, qid int64, duelID *int64) error {
	return r.db.WithContext(ctx).Model(&models.Account{}).
		Where("qid = ?", qid).
		Update("active_duel_id", duelID).Error
}

func (r gormAccounts) AddRating(ctx context.Context, qid int64, delta int) error {
	return r.db.WithContext(ctx).Model(&models.Account{}).
		Where("qid = ?", qid).
		Update("rating", gorm.Expr("rating + ?", delta)).Error
}

func (r gormAccounts) ByActiveDuel(ctx context.Context, duelID int64) ([]models.Account, error) {
	var accs []models.Account
	err := r.db.WithContext(ctx).
		Where("active_duel_id = ?", duelID).
		Order("qid").
		Find(&accs).Error
	return accs, err
}

func (r gormAccounts) Leaderboard(ctx context.Context, limit int) ([]models.Account, error) {
	var accs []models.Account
	err := r.db.WithContext(ctx).Order("rating DESC").Limit(limit).Find(&accs).Error
	return accs, err
}

type gormDuels struct{ db *gorm.DB }

func (r gormDuels) Create(ctx context.Context, d *models.Duel) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r gormDuels) Get(ctx context.Context, id int64) (*models.Duel, error) {
	var d models.Duel
	if err := r.db.WithContext(ctx).First(&d, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}

func (r gormDuels) pending(ctx context.Context, cond string, args ...interface{}) (*models.Duel, error) {
	var d models.Duel
	err := r.db.WithContext(ctx).
		Where("status = ?", models.DuelStatusPending).
		Where(cond, args...).
		First(&d).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}

func (r gormDuels) PendingFor(ctx context.Context, qid int64) (*models.Duel, error) {
	return r.pending(ctx, "player2 = ?", qid)
}

func (r gormDuels) PendingBy(ctx context.Context, qid int64) (*models.Duel, error) {
	return r.pending(ctx, "player1 = ?", qid)
}

func (r gormDuels) PendingInvolving(ctx context.Context, qid int64) (*models.Duel, error) {
	return r.pending(ctx, "player1 = ? OR player2 = ?", qid, qid)
}

func (r gormDuels) Save(ctx context.Context, d *models.Duel) error {
	return r.db.WithContext(ctx).Save(d).Error
}

func (r gormDuels) FinishedBetween(ctx context.Context, a, b int64) ([]models.Duel, error) {
	var duels []models.Duel
	err := r.db.WithContext(ctx).
		Where("status = ?", models.DuelStatusFinished).
		Where("(player1 = ? AND player2 = ?) OR (player1 = ? AND player2 = ?)", a, b, b, a).
		Order("id").
		Find(&duels).Error
	return duels, err
}

func (r gormDuels) ListByStatus(ctx context.Context, status string, limit int) ([]models.Duel, error) {
	var duels []models.Duel
	q := r.db.WithContext(ctx).Order("id DESC").Limit(limit)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Find(&duels).Error
	return duels, err
}

type gormEvents struct{ db *gorm.DB }

func (r gormEvents) Append(ctx context.Context, qid int64, kind string) error {
	return r.db.WithContext(ctx).Create(&models.Event{QID: qid, Kind: kind}).Error
}

func (r gormEvents) Count(ctx context.Context, qid int64, kind string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Event{}).
		Where("qid = ? AND kind = ?", qid, kind).
		Count(&n).Error
	return n, err
}

type gormProblems struct{ db *gorm.DB }

func (r gormProblems) RandomInRange(ctx context.Context, lo, hi int) (*models.Problem, error) {
	var p models.Problem
	err := r.db.WithContext(ctx).
		Where("rating >= ? AND rating <= ?", lo, hi).
		Order("random()").
		First(&p).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r gormProblems) UpsertAll(ctx context.Context, ps []models.Problem) error {
	if len(ps) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		CreateInBatches(ps, 500).Error
}

func (r gormProblems) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Problem{}).Count(&n).Error
	return n, err
}
