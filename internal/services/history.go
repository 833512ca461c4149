package services

import (
	"context"

	"github.com/Nutr1t07/cpbot/internal/store"
)

// HistoryService reads the head-to-head record of a pair of accounts out of
// their finished duels.
type HistoryService struct {
	store store.Store
}

func NewHistoryService(st store.Store) *HistoryService {
	return &HistoryService{store: st}
}

type HeadToHead struct {
	AWins         int `json:"a_wins"`
	BWins         int `json:"b_wins"`
	Duels         int `json:"duels"`
	AvgDifficulty int `json:"avg_difficulty"`
}

// HeadToHead counts wins per side and the average task difficulty over every
// finished duel contested by exactly the pair (a, b). Pending and abandoned
// invites never count.
func (s *HistoryService) HeadToHead(ctx context.Context, a, b int64) (HeadToHead, error) {
	duels, err := s.store.Duels().FinishedBetween(ctx, a, b)
	if err != nil {
		return HeadToHead{}, err
	}
	var h2h HeadToHead
	var totalDifficulty int
	for _, d := range duels {
		h2h.Duels++
		totalDifficulty += d.Difficulty
		if d.WinnerQID == nil {
			continue
		}
		switch *d.WinnerQID {
		case a:
			h2h.AWins++
		case b:
			h2h.BWins++
		}
	}
	if h2h.Duels > 0 {
		h2h.AvgDifficulty = totalDifficulty / h2h.Duels
	}
	return h2h, nil
}
