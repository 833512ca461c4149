// Package bot maps tokenized chat commands onto the duel services and
// renders one plain-text reply per command. Unrecognized input produces an
// empty reply, which the transport drops.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Nutr1t07/cpbot/internal/services"
)

type Router struct {
	accounts *services.AccountService
	duels    *services.DuelService
	checker  *services.CheckService
	problems *services.ProblemService
	history  *services.HistoryService
}

func NewRouter(
	accounts *services.AccountService,
	duels *services.DuelService,
	checker *services.CheckService,
	problems *services.ProblemService,
	history *services.HistoryService,
) *Router {
	return &Router{
		accounts: accounts,
		duels:    duels,
		checker:  checker,
		problems: problems,
		history:  history,
	}
}

// Process handles one inbound group message and returns the reply text, or
// "" for input that is not a command.
func (r *Router) Process(ctx context.Context, sender int64, text string) string {
	txt := strings.Fields(text)
	switch {
	case len(txt) == 0:
		return ""
	case len(txt) == 3 && txt[0] == "bind":
		return r.cmdBind(ctx, sender, txt)
	case len(txt) == 1 && txt[0] == "ping":
		return "pong!"
	case len(txt) == 1 && txt[0] == "gimme":
		return r.cmdGimme(ctx, sender, 0)
	case len(txt) == 2 && txt[0] == "gimme":
		d, err := strconv.Atoi(txt[1])
		if err != nil || d <= 0 {
			return "difficulty must be a positive number"
		}
		return r.cmdGimme(ctx, sender, d)
	case len(txt) == 1 && txt[0] == "accept":
		return r.cmdAccept(ctx, sender)
	case len(txt) == 1 && txt[0] == "decline":
		return r.cmdDecline(ctx, sender)
	case len(txt) == 1 && txt[0] == "cancel":
		return r.cmdCancel(ctx, sender)
	case len(txt) == 1 && txt[0] == "skip":
		return r.cmdSkip(ctx, sender)
	case len(txt) == 1 && txt[0] == "check":
		return r.cmdCheck(ctx, sender)
	case len(txt) == 1 && txt[0] == "info":
		return r.cmdInfo(ctx, sender)
	case len(txt) == 4 && txt[0] == "duel" && txt[1] == "history":
		return r.cmdHistory(ctx, txt[2], txt[3])
	case len(txt) == 2 && txt[0] == "duel":
		return r.cmdInvite(ctx, sender, txt[1], 0, 0)
	case len(txt) == 4 && txt[0] == "duel":
		lo, err1 := strconv.Atoi(txt[1])
		hi, err2 := strconv.Atoi(txt[2])
		if err1 != nil || err2 != nil || lo <= 0 || hi < lo {
			return "difficulty must be a positive number"
		}
		return r.cmdInvite(ctx, sender, txt[3], lo, hi)
	}
	return ""
}

// resolveRef turns an opponent reference (mention or bare handle) into a qid.
// mentioned reports which form was used; replies flip between mention and
// handle accordingly.
func (r *Router) resolveRef(ctx context.Context, token string) (qid int64, mentioned, ok bool) {
	if qid, isAt := ParseAt(token); isAt {
		return qid, true, true
	}
	acc, err := r.accounts.GetByHandle(ctx, token)
	if err != nil {
		return 0, false, false
	}
	return acc.QID, false, true
}

func (r *Router) cmdBind(ctx context.Context, sender int64, txt []string) string {
	qid, err := strconv.ParseInt(txt[1], 10, 64)
	if err != nil {
		return "your qid is incorrect"
	}
	acc, err := r.accounts.Bind(ctx, sender, qid, txt[2])
	switch {
	case errors.Is(err, services.ErrJudgeUnavailable):
		return "timeout. unable to access codeforces."
	case errors.Is(err, services.ErrHandleTaken):
		return "the handle is already used"
	case errors.Is(err, services.ErrIdentityMismatch):
		return "your qid is incorrect"
	case err != nil:
		return "something went wrong, try again"
	}
	return fmt.Sprintf("%s(%d): done.", acc.Handle, acc.Rating)
}

func (r *Router) cmdGimme(ctx context.Context, sender int64, difficulty int) string {
	p, err := r.problems.Gimme(ctx, sender, difficulty)
	var noTask *services.NoTaskInRangeError
	switch {
	case errors.Is(err, services.ErrNotBound):
		return "bind your cf handle first"
	case errors.As(err, &noTask):
		return "problem of that difficulty not found"
	case err != nil:
		return "something went wrong, try again"
	}
	return fmt.Sprintf("task: %s\ndifficulty: %d\n%s", p.Name, *p.Rating, p.URL())
}

func (r *Router) cmdInvite(ctx context.Context, sender int64, ref string, lo, hi int) string {
	opponent, mentioned, ok := r.resolveRef(ctx, ref)
	if !ok {
		return "not found"
	}
	duel, err := r.duels.Invite(ctx, sender, opponent, lo, hi)
	var pending *services.PendingInviteError
	var noTask *services.NoTaskInRangeError
	switch {
	case errors.Is(err, services.ErrSelfInvite):
		return "?"
	case errors.Is(err, services.ErrNotBound):
		return "bind your cf handle first"
	case errors.Is(err, services.ErrChallengerBusy):
		return "you have a duel in-progress"
	case errors.Is(err, services.ErrOpponentNotBound):
		return "they have not bind their cf handle yet"
	case errors.Is(err, services.ErrOpponentBusy):
		return "they have a duel in-progress"
	case errors.As(err, &pending):
		who := "you are"
		if pending.Opponent {
			who = "they are"
		}
		return fmt.Sprintf("%s already involved in pending Duel%d, which involve [%s] and [%s].",
			who, pending.Duel.ID, At(pending.Duel.Player1), At(pending.Duel.Player2))
	case errors.As(err, &noTask):
		return fmt.Sprintf("not proper task of difficulty [%d, %d] found.", noTask.Lo, noTask.Hi)
	case err != nil:
		return "something went wrong, try again"
	}

	// mirror the reference bot: a mention invite replies with the handle,
	// a handle invite replies with a mention
	to := At(opponent)
	if mentioned {
		if acc, err := r.accounts.Get(ctx, opponent); err == nil {
			to = acc.Handle
		}
	}
	return fmt.Sprintf("invitation to %s sent\nduel difficulty is [%d]", to, duel.Difficulty)
}

func (r *Router) cmdAccept(ctx context.Context, sender int64) string {
	duel, err := r.duels.Accept(ctx, sender)
	if errors.Is(err, services.ErrNotInvited) {
		return "you are not invited by anyone"
	} else if err != nil {
		return "something went wrong, try again"
	}
	return fmt.Sprintf("ok, [%s] and [%s] are now in duel.\ntask: https://codeforces.com/contest/%d/problem/%s",
		At(duel.Player1), At(duel.Player2), duel.ContestID, duel.ProblemIndex)
}

func (r *Router) cmdDecline(ctx context.Context, sender int64) string {
	duel, err := r.duels.Decline(ctx, sender)
	if errors.Is(err, services.ErrNoSuchInvite) {
		return "you are not being invited"
	} else if err != nil {
		return "something went wrong, try again"
	}
	return fmt.Sprintf("Duel%d between [%s] and [%s] is now rejected",
		duel.ID, At(duel.Player1), At(duel.Player2))
}

func (r *Router) cmdCancel(ctx context.Context, sender int64) string {
	duel, err := r.duels.Cancel(ctx, sender)
	if errors.Is(err, services.ErrNoSuchInvite) {
		return "you are not inviting anyone"
	} else if err != nil {
		return "something went wrong, try again"
	}
	return fmt.Sprintf("Duel%d between [%s] and [%s] is now cancelled",
		duel.ID, At(duel.Player1), At(duel.Player2))
}

func (r *Router) cmdSkip(ctx context.Context, sender int64) string {
	duel, elapsed, err := r.duels.Skip(ctx, sender)
	if errors.Is(err, services.ErrNotInDuel) {
		return "you are not in duel"
	} else if err != nil {
		return "something went wrong, try again"
	}
	return fmt.Sprintf("you skip Duel%d after %s", duel.ID, elapsed.Truncate(time.Second))
}

func (r *Router) cmdCheck(ctx context.Context, sender int64) string {
	outcome, err := r.checker.Check(ctx, sender)
	switch {
	case errors.Is(err, services.ErrNotInDuel):
		return "you are not in duel"
	case errors.Is(err, services.ErrJudgeUnavailable):
		return "timeout. unable to access codeforces."
	case errors.Is(err, services.ErrAlreadyFinished):
		return "this duel is already finished"
	case err != nil:
		return "something went wrong, try again"
	}
	if outcome.Winner == nil {
		return "there is no winner yet"
	}

	w, l := outcome.Winner, outcome.Loser
	solveTime := outcome.SolvedAt.Sub(outcome.Duel.StartedAt).Truncate(time.Second)
	return fmt.Sprintf("on Duel%d: [%s] VS [%s(%d)]\nwinner: %s\ntime: %s\nrating: %d → %d (Δ: +%d)\n[%s]",
		outcome.Duel.ID, w.Handle, l.Handle, l.Rating,
		w.Handle, solveTime,
		w.Rating, w.Rating+outcome.Delta, outcome.Delta,
		At(l.QID))
}

func (r *Router) cmdInfo(ctx context.Context, sender int64) string {
	acc, err := r.accounts.Get(ctx, sender)
	if err != nil {
		return "bind your cf handle first"
	}
	st, err := r.accounts.Stats(ctx, sender)
	if err != nil {
		return "something went wrong, try again"
	}
	return fmt.Sprintf("%s(%d)\nduel: %d wins, %d skips, %d total",
		acc.Handle, acc.Rating, st.Wins, st.Skips, st.Attended)
}

func (r *Router) cmdHistory(ctx context.Context, ref1, ref2 string) string {
	p1, _, ok := r.resolveRef(ctx, ref1)
	if !ok {
		return fmt.Sprintf("%s not found", ref1)
	}
	p2, _, ok := r.resolveRef(ctx, ref2)
	if !ok {
		return fmt.Sprintf("%s not found", ref2)
	}
	u1, err := r.accounts.Get(ctx, p1)
	if err != nil {
		return fmt.Sprintf("%s not found", ref1)
	}
	u2, err := r.accounts.Get(ctx, p2)
	if err != nil {
		return fmt.Sprintf("%s not found", ref2)
	}
	h2h, err := r.history.HeadToHead(ctx, p1, p2)
	if err != nil {
		return "something went wrong, try again"
	}
	return fmt.Sprintf("%s(%d) - %s(%d)\nscore: %d-%d\navg. dc.: %d",
		u1.Handle, u1.Rating, u2.Handle, u2.Rating,
		h2h.AWins, h2h.BWins, h2h.AvgDifficulty)
}
