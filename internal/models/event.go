package models

import "time"

// Event is one append-only history row per duel-relevant action per account.
// Rows are never updated or deleted; statistics are aggregate counts over them.
type Event struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	QID       int64     `gorm:"not null;index:idx_event_qid_kind" json:"qid"`
	Kind      string    `gorm:"size:16;not null;index:idx_event_qid_kind" json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	EventAttended = "attended"
	EventWon      = "won"
	EventSkipped  = "skipped"
)
