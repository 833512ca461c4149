package services

import (
	"context"
	"errors"
	"testing"

	"github.com/Nutr1t07/cpbot/internal/models"
	"github.com/Nutr1t07/cpbot/internal/rating"
)

func TestInvitePreconditions(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	if _, err := e.duels.Invite(ctx, 1, 1, 0, 0); !errors.Is(err, ErrSelfInvite) {
		t.Errorf("self invite: want ErrSelfInvite, got %v", err)
	}
	if _, err := e.duels.Invite(ctx, 1, 2, 0, 0); !errors.Is(err, ErrNotBound) {
		t.Errorf("unbound challenger: want ErrNotBound, got %v", err)
	}

	e.seedAccount(t, 1, "alice", 1500)
	if _, err := e.duels.Invite(ctx, 1, 2, 0, 0); !errors.Is(err, ErrOpponentNotBound) {
		t.Errorf("unbound opponent: want ErrOpponentNotBound, got %v", err)
	}
}

func TestInviteDefaultBand(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedAccount(t, 1, "alice", 1500)
	e.seedAccount(t, 2, "bob", 1400)
	// default band is [1400-500, 1500+200]; only one problem inside it
	e.seedProblem(t, "Too Easy", 1, "A", 800)
	e.seedProblem(t, "Just Right", 2, "B", 1600)
	e.seedProblem(t, "Too Hard", 3, "C", 2000)

	duel, err := e.duels.Invite(ctx, 1, 2, 0, 0)
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	if duel.ProblemName != "Just Right" || duel.Difficulty != 1600 {
		t.Errorf("drew %q (%d), want the only problem inside [900, 1700]", duel.ProblemName, duel.Difficulty)
	}
	if duel.Status != models.DuelStatusPending {
		t.Errorf("new duel status = %q, want pending", duel.Status)
	}
}

func TestInviteNoTaskInRange(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedAccount(t, 1, "alice", 1500)
	e.seedAccount(t, 2, "bob", 1400)
	e.seedProblem(t, "Watermelon", 4, "A", 800)

	_, err := e.duels.Invite(ctx, 1, 2, 2000, 2200)
	var noTask *NoTaskInRangeError
	if !errors.As(err, &noTask) {
		t.Fatalf("want NoTaskInRangeError, got %v", err)
	}
	if noTask.Lo != 2000 || noTask.Hi != 2200 {
		t.Errorf("error band = [%d, %d], want [2000, 2200]", noTask.Lo, noTask.Hi)
	}
}

func TestInviteChallengerBusy(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.activeDuel(t)
	e.seedAccount(t, 3, "carol", 1450)

	if _, err := e.duels.Invite(ctx, 1, 3, 0, 0); !errors.Is(err, ErrChallengerBusy) {
		t.Errorf("want ErrChallengerBusy, got %v", err)
	}
	if _, err := e.duels.Invite(ctx, 3, 1, 0, 0); !errors.Is(err, ErrOpponentBusy) {
		t.Errorf("want ErrOpponentBusy, got %v", err)
	}
	// no extra duel row may exist
	duels, err := e.store.Duels().ListByStatus(ctx, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(duels) != 1 {
		t.Errorf("got %d duel rows, want 1", len(duels))
	}
}

func TestInvitePendingConflictEitherParty(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedAccount(t, 1, "alice", 1500)
	e.seedAccount(t, 2, "bob", 1400)
	e.seedAccount(t, 3, "carol", 1450)
	e.seedProblem(t, "Watermelon", 4, "A", 1500)

	first, err := e.duels.Invite(ctx, 1, 2, 0, 0)
	if err != nil {
		t.Fatalf("invite: %v", err)
	}

	var pending *PendingInviteError
	// the inviter is blocked too, not only the invited side
	if _, err := e.duels.Invite(ctx, 1, 3, 0, 0); !errors.As(err, &pending) {
		t.Fatalf("inviter conflict: want PendingInviteError, got %v", err)
	}
	if pending.Duel.ID != first.ID || pending.Opponent {
		t.Errorf("conflict = %+v, want challenger side of duel %d", pending, first.ID)
	}
	if _, err := e.duels.Invite(ctx, 2, 3, 0, 0); !errors.As(err, &pending) {
		t.Fatalf("invited party as challenger: want PendingInviteError, got %v", err)
	}
	if _, err := e.duels.Invite(ctx, 3, 2, 0, 0); !errors.As(err, &pending) {
		t.Fatalf("invited party as opponent: want PendingInviteError, got %v", err)
	}
	if !pending.Opponent {
		t.Error("conflict should be flagged on the opponent side")
	}
}

func TestAcceptActivatesDuel(t *testing.T) {
	e := newEnv(t)
	duel := e.activeDuel(t)

	if duel.Status != models.DuelStatusActive {
		t.Errorf("status = %q, want active", duel.Status)
	}
	if duel.StartedAt.IsZero() {
		t.Error("StartedAt not stamped on accept")
	}
	for _, qid := range []int64{1, 2} {
		acc := e.account(t, qid)
		if acc.ActiveDuelID == nil || *acc.ActiveDuelID != duel.ID {
			t.Errorf("account %d active duel = %v, want %d", qid, acc.ActiveDuelID, duel.ID)
		}
		if n := e.eventCount(t, qid, models.EventAttended); n != 1 {
			t.Errorf("account %d attended events = %d, want 1", qid, n)
		}
	}
}

func TestAcceptRequiresInvite(t *testing.T) {
	e := newEnv(t)
	e.seedAccount(t, 1, "alice", 1500)
	if _, err := e.duels.Accept(context.Background(), 1); !errors.Is(err, ErrNotInvited) {
		t.Errorf("want ErrNotInvited, got %v", err)
	}
}

func TestCancelAndDecline(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedAccount(t, 1, "alice", 1500)
	e.seedAccount(t, 2, "bob", 1400)
	e.seedProblem(t, "Watermelon", 4, "A", 1500)

	if _, err := e.duels.Invite(ctx, 1, 2, 0, 0); err != nil {
		t.Fatalf("invite: %v", err)
	}
	// only the invited side may decline, only the inviter may cancel
	if _, err := e.duels.Decline(ctx, 1); !errors.Is(err, ErrNoSuchInvite) {
		t.Errorf("inviter declining: want ErrNoSuchInvite, got %v", err)
	}
	if _, err := e.duels.Cancel(ctx, 2); !errors.Is(err, ErrNoSuchInvite) {
		t.Errorf("invited cancelling: want ErrNoSuchInvite, got %v", err)
	}

	duel, err := e.duels.Cancel(ctx, 1)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if duel.Status != models.DuelStatusCancelled {
		t.Errorf("status = %q, want cancelled", duel.Status)
	}
	// terminal: accept no longer possible, both players free again
	if _, err := e.duels.Accept(ctx, 2); !errors.Is(err, ErrNotInvited) {
		t.Errorf("accept after cancel: want ErrNotInvited, got %v", err)
	}

	if _, err := e.duels.Invite(ctx, 1, 2, 0, 0); err != nil {
		t.Fatalf("re-invite after cancel: %v", err)
	}
	duel, err = e.duels.Decline(ctx, 2)
	if err != nil {
		t.Fatalf("decline: %v", err)
	}
	if duel.Status != models.DuelStatusDeclined {
		t.Errorf("status = %q, want declined", duel.Status)
	}
	// no events for abandoned invites
	for _, qid := range []int64{1, 2} {
		if n := e.eventCount(t, qid, models.EventAttended); n != 0 {
			t.Errorf("account %d attended events = %d, want 0", qid, n)
		}
	}
}

func TestSkipDetachesButKeepsDuelActive(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	duel := e.activeDuel(t)

	skipped, elapsed, err := e.duels.Skip(ctx, 1)
	if err != nil {
		t.Fatalf("skip: %v", err)
	}
	if skipped.ID != duel.ID {
		t.Errorf("skipped duel %d, want %d", skipped.ID, duel.ID)
	}
	if elapsed < 0 {
		t.Errorf("elapsed = %v, want >= 0", elapsed)
	}

	if acc := e.account(t, 1); acc.ActiveDuelID != nil {
		t.Error("skipper still linked to the duel")
	}
	if acc := e.account(t, 2); acc.ActiveDuelID == nil || *acc.ActiveDuelID != duel.ID {
		t.Error("remaining player must stay linked")
	}
	got, err := e.store.Duels().Get(ctx, duel.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.DuelStatusActive {
		t.Errorf("duel status = %q, want active after one-sided skip", got.Status)
	}
	if n := e.eventCount(t, 1, models.EventSkipped); n != 1 {
		t.Errorf("skip events = %d, want 1", n)
	}

	// a second skip by the same player has nothing to detach from
	if _, _, err := e.duels.Skip(ctx, 1); !errors.Is(err, ErrNotInDuel) {
		t.Errorf("second skip: want ErrNotInDuel, got %v", err)
	}
}

func TestCompleteAppliesRatingOnce(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	duel := e.activeDuel(t)

	wantDelta := rating.Delta(1500, 1400, 1600)
	delta, err := e.duels.Complete(ctx, duel.ID, 1, 2)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if delta != wantDelta {
		t.Errorf("delta = %d, want %d", delta, wantDelta)
	}

	winner := e.account(t, 1)
	loser := e.account(t, 2)
	if winner.Rating != 1500+wantDelta {
		t.Errorf("winner rating = %d, want %d", winner.Rating, 1500+wantDelta)
	}
	if loser.Rating != 1400 {
		t.Errorf("loser rating = %d, want unchanged 1400", loser.Rating)
	}
	if winner.ActiveDuelID != nil || loser.ActiveDuelID != nil {
		t.Error("participants still linked after completion")
	}

	got, err := e.store.Duels().Get(ctx, duel.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.DuelStatusFinished || got.WinnerQID == nil || *got.WinnerQID != 1 {
		t.Errorf("duel after completion = %+v", got)
	}
	if n := e.eventCount(t, 1, models.EventWon); n != 1 {
		t.Errorf("won events = %d, want 1", n)
	}

	// retry must fail cleanly and not double-apply
	if _, err := e.duels.Complete(ctx, duel.ID, 1, 2); !errors.Is(err, ErrAlreadyFinished) {
		t.Errorf("second complete: want ErrAlreadyFinished, got %v", err)
	}
	if acc := e.account(t, 1); acc.Rating != 1500+wantDelta {
		t.Errorf("rating re-applied on retry: %d", acc.Rating)
	}
	if n := e.eventCount(t, 1, models.EventWon); n != 1 {
		t.Errorf("won events after retry = %d, want 1", n)
	}
}

func TestCompleteDoesNotClobberNewerDuel(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	first := e.activeDuel(t)

	// alice skips the first duel and starts a fresh one with carol
	if _, _, err := e.duels.Skip(ctx, 1); err != nil {
		t.Fatalf("skip: %v", err)
	}
	e.seedAccount(t, 3, "carol", 1450)
	if _, err := e.duels.Invite(ctx, 1, 3, 0, 0); err != nil {
		t.Fatalf("second invite: %v", err)
	}
	second, err := e.duels.Accept(ctx, 3)
	if err != nil {
		t.Fatalf("second accept: %v", err)
	}

	// bob wins the first duel; alice's link to the second must survive
	if _, err := e.duels.Complete(ctx, first.ID, 2, 1); err != nil {
		t.Fatalf("complete first: %v", err)
	}
	if acc := e.account(t, 1); acc.ActiveDuelID == nil || *acc.ActiveDuelID != second.ID {
		t.Errorf("alice active duel = %v, want %d", acc.ActiveDuelID, second.ID)
	}
}

// The one-active-duel invariant: at any point at most one non-terminal duel
// references an account, and the pointer agrees with it.
func TestOneActiveDuelInvariant(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	duel := e.activeDuel(t)
	e.seedAccount(t, 3, "carol", 1450)

	// every second duel attempt involving a busy account must fail
	if _, err := e.duels.Invite(ctx, 3, 1, 0, 0); err == nil {
		t.Fatal("invite to busy account must fail")
	}
	if _, err := e.duels.Invite(ctx, 1, 3, 0, 0); err == nil {
		t.Fatal("invite by busy account must fail")
	}

	nonTerminal := 0
	duels, err := e.store.Duels().ListByStatus(ctx, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range duels {
		if d.Terminal() {
			continue
		}
		if d.Player1 == 1 || d.Player2 == 1 {
			nonTerminal++
		}
	}
	if nonTerminal != 1 {
		t.Errorf("non-terminal duels referencing account 1 = %d, want 1", nonTerminal)
	}
	if acc := e.account(t, 1); acc.ActiveDuelID == nil || *acc.ActiveDuelID != duel.ID {
		t.Errorf("pointer disagrees with the active duel: %v", acc.ActiveDuelID)
	}
}
