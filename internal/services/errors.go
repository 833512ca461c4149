package services

import (
	"errors"
	"fmt"

	"github.com/Nutr1t07/cpbot/internal/models"
)

var (
	// bind
	ErrIdentityMismatch = errors.New("claimed qid does not match the sender")
	ErrHandleTaken      = errors.New("handle already bound to another account")

	// duel lifecycle
	ErrSelfInvite       = errors.New("cannot duel yourself")
	ErrNotBound         = errors.New("account has no bound handle")
	ErrOpponentNotBound = errors.New("opponent has no bound handle")
	ErrChallengerBusy   = errors.New("challenger already has a duel in progress")
	ErrOpponentBusy     = errors.New("opponent already has a duel in progress")
	ErrNotInvited       = errors.New("no pending invite for this account")
	ErrNoSuchInvite     = errors.New("no matching pending invite")
	ErrNotInDuel        = errors.New("account is not in a duel")
	ErrAlreadyFinished  = errors.New("duel already finished")

	// external service
	ErrJudgeUnavailable = errors.New("judge unavailable")
)

// PendingInviteError rejects an invite because one side already has an
// outstanding invite; it carries the conflicting duel so the reply can point
// at it.
type PendingInviteError struct {
	Duel     *models.Duel
	Opponent bool // the conflict is on the invited side, not the challenger
}

func (e *PendingInviteError) Error() string {
	side := "challenger"
	if e.Opponent {
		side = "opponent"
	}
	return fmt.Sprintf("%s has an outstanding invite on duel %d", side, e.Duel.ID)
}

// NoTaskInRangeError means the problem cache holds nothing inside the
// requested difficulty band.
type NoTaskInRangeError struct {
	Lo, Hi int
}

func (e *NoTaskInRangeError) Error() string {
	return fmt.Sprintf("no task of difficulty [%d, %d]", e.Lo, e.Hi)
}
