package models

import "fmt"

// Problem is one entry of the locally cached Codeforces problemset. The cache
// is refreshed in bulk from the judge; rows are keyed by problem name, which
// is what the judge treats as stable across contest divisions. Rating is nil
// for problems the judge has not rated yet; those never match a range query.
type Problem struct {
	Name           string  `gorm:"primaryKey;size:255" json:"name"`
	ContestID      int     `json:"contest_id"`
	ProblemsetName string  `gorm:"size:64" json:"problemset_name,omitempty"`
	Index          string  `gorm:"size:8" json:"index"`
	Type           string  `gorm:"size:32" json:"type,omitempty"`
	Points         float64 `json:"points,omitempty"`
	Rating         *int    `gorm:"index" json:"rating,omitempty"`
	Tags           string  `gorm:"type:text" json:"tags,omitempty"`
}

// URL returns the public judge link for the problem.
func (p *Problem) URL() string {
	return fmt.Sprintf("https://codeforces.com/contest/%d/problem/%s", p.ContestID, p.Index)
}
