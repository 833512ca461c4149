package models

import "time"

// Account binds a chat identity (QID) to a Codeforces handle. The rating is
// seeded from Codeforces at bind time and afterwards only adjusted by duel
// results. ActiveDuelID is owned by the duel service: it is set on accept and
// cleared on skip or completion.
type Account struct {
	QID          int64     `gorm:"primaryKey" json:"qid"`
	Handle       string    `gorm:"size:64;not null;uniqueIndex" json:"handle"`
	Rating       int       `gorm:"not null" json:"rating"`
	ActiveDuelID *int64    `gorm:"index" json:"active_duel_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
