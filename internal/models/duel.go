package models

import "time"

// Duel is a head-to-head contest over one problem. Player1 is the inviter,
// Player2 the invited side. StartedAt is stamped when the invite is accepted.
type Duel struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	ContestID    int       `gorm:"not null" json:"contest_id"`
	ProblemIndex string    `gorm:"size:8;not null" json:"problem_index"`
	ProblemName  string    `gorm:"size:255" json:"problem_name"`
	Difficulty   int       `gorm:"not null" json:"difficulty"`
	Player1      int64     `gorm:"not null;index" json:"player1"`
	Player2      int64     `gorm:"not null;index" json:"player2"`
	WinnerQID    *int64    `json:"winner_qid,omitempty"`
	Status       string    `gorm:"size:16;not null;default:'pending'" json:"status"`
	StartedAt    time.Time `json:"started_at"`
	CreatedAt    time.Time `json:"created_at"`
}

const (
	DuelStatusPending   = "pending"
	DuelStatusActive    = "active"
	DuelStatusFinished  = "finished"
	DuelStatusCancelled = "cancelled"
	DuelStatusDeclined  = "declined"
)

// Other returns the opposing player of qid, assuming qid is a participant.
func (d *Duel) Other(qid int64) int64 {
	if d.Player1 == qid {
		return d.Player2
	}
	return d.Player1
}

// Terminal reports whether the duel can no longer change state.
func (d *Duel) Terminal() bool {
	return d.Status == DuelStatusFinished || d.Status == DuelStatusCancelled || d.Status == DuelStatusDeclined
}
