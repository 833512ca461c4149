package handlers

import (
	"net/http"
	"strconv"

	"github.com/Nutr1t07/cpbot/internal/models"
	"github.com/Nutr1t07/cpbot/internal/services"
	"github.com/Nutr1t07/cpbot/internal/store"

	"github.com/gin-gonic/gin"
)

// StatsHandler is the read-only admin API over accounts, duels and history.
type StatsHandler struct {
	st       store.Store
	accounts *services.AccountService
	duels    *services.DuelService
	history  *services.HistoryService
}

func NewStatsHandler(st store.Store, accounts *services.AccountService, duels *services.DuelService, history *services.HistoryService) *StatsHandler {
	return &StatsHandler{st: st, accounts: accounts, duels: duels, history: history}
}

func (h *StatsHandler) Leaderboard(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	accounts, err := h.st.Accounts().Leaderboard(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, accounts)
}

func (h *StatsHandler) ListDuels(c *gin.Context) {
	status := c.Query("status")
	switch status {
	case "", models.DuelStatusPending, models.DuelStatusActive, models.DuelStatusFinished,
		models.DuelStatusCancelled, models.DuelStatusDeclined:
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unknown status"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	duels, err := h.duels.ListByStatus(c.Request.Context(), status, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, duels)
}

type PlayerResponse struct {
	Account *models.Account `json:"account"`
	Stats   services.Stats  `json:"stats"`
}

func (h *StatsHandler) GetPlayer(c *gin.Context) {
	acc, err := h.accounts.GetByHandle(c.Request.Context(), c.Param("handle"))
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "player not found"})
		return
	}
	stats, err := h.accounts.Stats(c.Request.Context(), acc.QID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, PlayerResponse{Account: acc, Stats: stats})
}

func (h *StatsHandler) HeadToHead(c *gin.Context) {
	a, err := h.accounts.GetByHandle(c.Request.Context(), c.Param("h1"))
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "first player not found"})
		return
	}
	b, err := h.accounts.GetByHandle(c.Request.Context(), c.Param("h2"))
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "second player not found"})
		return
	}
	h2h, err := h.history.HeadToHead(c.Request.Context(), a.QID, b.QID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"a":            a.Handle,
		"b":            b.Handle,
		"head_to_head": h2h,
	})
}
