package lifecycle

import (
	"context"
	"testing"

	"github.com/dukerupert/chorehub/internal/apperr"
	"github.com/dukerupert/chorehub/internal/model"
	"github.com/dukerupert/chorehub/internal/store"
)

func TestDirectCancelBeforeWorkStarts(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()
	cancellations := store.NewCancellationStore(f.db)

	c := f.publishedChore(t)
	c, err := f.engine.CancelChore(ctx, c.ID, f.customer.ID, "plans changed")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if c.Status != model.ChoreCancelled {
		t.Fatalf("status = %s, want cancelled", c.Status)
	}

	// The audit row is born resolved.
	reqs, err := cancellations.ListByChore(c.ID)
	if err != nil {
		t.Fatalf("list requests: %v", err)
	}
	if len(reqs) != 1 || reqs[0].Status != model.IssueResolved {
		t.Errorf("audit rows = %+v, want one resolved row", reqs)
	}
}

func TestDirectCancelRefusedOnceWorkStarts(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()

	c := f.publishedChore(t)
	if _, err := f.engine.AssignWorker(ctx, c.ID, f.customer.ID, f.worker.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	f.fund(t, c.ID)
	if _, err := f.engine.StartWork(ctx, c.ID, f.worker.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	_, err := f.engine.CancelChore(ctx, c.ID, f.customer.ID, "too late")
	e := wantCode(t, err, apperr.CodeInvalidTransition)
	if e.Actual != string(model.ChoreInProgress) {
		t.Errorf("actual = %s, want in_progress", e.Actual)
	}
	f.runner.Wait()
}

func TestWorkerCancellationRequestFlow(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()

	c := f.publishedChore(t)
	if _, err := f.engine.AssignWorker(ctx, c.ID, f.customer.ID, f.worker.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}

	req, err := f.engine.RequestCancellation(ctx, c.ID, f.worker.ID, "double booked")
	if err != nil {
		t.Fatalf("request cancellation: %v", err)
	}
	if req.Status != model.IssueOpen {
		t.Fatalf("request status = %s, want open", req.Status)
	}

	// Only one active request at a time.
	_, err = f.engine.RequestCancellation(ctx, c.ID, f.worker.ID, "again")
	wantCode(t, err, apperr.CodeValidation)

	// Only the owner resolves it.
	_, err = f.engine.ResolveCancellation(ctx, req.ID, f.worker.ID, true)
	wantCode(t, err, apperr.CodeForbidden)

	req, err = f.engine.ResolveCancellation(ctx, req.ID, f.customer.ID, true)
	if err != nil {
		t.Fatalf("resolve cancellation: %v", err)
	}
	if req.Status != model.IssueResolved {
		t.Errorf("request status = %s, want resolved", req.Status)
	}

	chore, _ := f.chores.GetByID(c.ID)
	if chore.Status != model.ChoreCancelled {
		t.Errorf("chore status = %s, want cancelled", chore.Status)
	}

	// Settled requests stay settled.
	_, err = f.engine.ResolveCancellation(ctx, req.ID, f.customer.ID, false)
	wantCode(t, err, apperr.CodeValidation)
	f.runner.Wait()
}

func TestDeniedCancellationKeepsChoreAssigned(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()

	c := f.publishedChore(t)
	if _, err := f.engine.AssignWorker(ctx, c.ID, f.customer.ID, f.worker.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}

	req, err := f.engine.RequestCancellation(ctx, c.ID, f.worker.ID, "double booked")
	if err != nil {
		t.Fatalf("request cancellation: %v", err)
	}
	if _, err := f.engine.ResolveCancellation(ctx, req.ID, f.customer.ID, false); err != nil {
		t.Fatalf("deny cancellation: %v", err)
	}

	chore, _ := f.chores.GetByID(c.ID)
	if chore.Status != model.ChoreAssigned {
		t.Errorf("chore status = %s, want assigned after denial", chore.Status)
	}
	f.runner.Wait()
}

func TestDisputeResolvedComplete(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()

	c := f.publishedChore(t)
	if _, err := f.engine.AssignWorker(ctx, c.ID, f.customer.ID, f.worker.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	f.fund(t, c.ID)
	if _, err := f.engine.StartWork(ctx, c.ID, f.worker.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	d, err := f.engine.RaiseDispute(ctx, c.ID, f.customer.ID, "work not as described")
	if err != nil {
		t.Fatalf("raise dispute: %v", err)
	}
	chore, _ := f.chores.GetByID(c.ID)
	if chore.Status != model.ChoreClientReview {
		t.Fatalf("chore status = %s, want client_review", chore.Status)
	}

	// The chore already left the disputable statuses.
	_, err = f.engine.RaiseDispute(ctx, c.ID, f.customer.ID, "again")
	wantCode(t, err, apperr.CodeInvalidTransition)

	if _, err := f.engine.ReviewDispute(ctx, d.ID, f.customer.ID); err != nil {
		t.Fatalf("review dispute: %v", err)
	}
	d, err = f.engine.ResolveDispute(ctx, d.ID, f.customer.ID, model.DisputeOutcomeComplete)
	if err != nil {
		t.Fatalf("resolve dispute: %v", err)
	}
	if d.Status != model.IssueResolved || d.Outcome != model.DisputeOutcomeComplete {
		t.Errorf("dispute = %s/%q, want resolved/complete", d.Status, d.Outcome)
	}

	chore, _ = f.chores.GetByID(c.ID)
	if chore.Status != model.ChoreCompleted {
		t.Errorf("chore status = %s, want completed", chore.Status)
	}

	// Completion through dispute resolution still pays the worker.
	f.runner.Wait()
	if ids := f.payouts.choreIDs(); len(ids) != 1 || ids[0] != c.ID {
		t.Errorf("payout calls = %v, want [%d]", ids, c.ID)
	}
}

func TestDisputeResolvedCancel(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()

	c := f.publishedChore(t)
	if _, err := f.engine.AssignWorker(ctx, c.ID, f.customer.ID, f.worker.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	f.fund(t, c.ID)

	d, err := f.engine.RaiseDispute(ctx, c.ID, f.customer.ID, "changed my mind")
	if err != nil {
		t.Fatalf("raise dispute: %v", err)
	}
	if _, err := f.engine.ResolveDispute(ctx, d.ID, f.customer.ID, model.DisputeOutcomeCancel); err != nil {
		t.Fatalf("resolve dispute: %v", err)
	}

	chore, _ := f.chores.GetByID(c.ID)
	if chore.Status != model.ChoreCancelled {
		t.Errorf("chore status = %s, want cancelled", chore.Status)
	}

	f.runner.Wait()
	if ids := f.payouts.choreIDs(); len(ids) != 0 {
		t.Errorf("payout calls = %v, cancellation must not pay", ids)
	}
}

func TestResolveDisputeValidatesOutcome(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()

	c := f.publishedChore(t)
	if _, err := f.engine.AssignWorker(ctx, c.ID, f.customer.ID, f.worker.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	f.fund(t, c.ID)
	d, err := f.engine.RaiseDispute(ctx, c.ID, f.customer.ID, "reason")
	if err != nil {
		t.Fatalf("raise dispute: %v", err)
	}

	_, err = f.engine.ResolveDispute(ctx, d.ID, f.customer.ID, "split")
	wantCode(t, err, apperr.CodeValidation)

	if _, err := f.engine.ResolveDispute(ctx, d.ID, f.customer.ID, model.DisputeOutcomeCancel); err != nil {
		t.Fatalf("resolve dispute: %v", err)
	}
	_, err = f.engine.ResolveDispute(ctx, d.ID, f.customer.ID, model.DisputeOutcomeComplete)
	wantCode(t, err, apperr.CodeValidation)
	f.runner.Wait()
}

func TestDisputeDecisionsAreOwnerOnly(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()

	c := f.publishedChore(t)
	if _, err := f.engine.AssignWorker(ctx, c.ID, f.customer.ID, f.worker.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	f.fund(t, c.ID)
	d, err := f.engine.RaiseDispute(ctx, c.ID, f.customer.ID, "work not as described")
	if err != nil {
		t.Fatalf("raise dispute: %v", err)
	}

	// The worker the dispute was raised against gets no say in it.
	_, err = f.engine.ReviewDispute(ctx, d.ID, f.worker.ID)
	wantCode(t, err, apperr.CodeForbidden)
	_, err = f.engine.ResolveDispute(ctx, d.ID, f.worker.ID, model.DisputeOutcomeComplete)
	wantCode(t, err, apperr.CodeForbidden)

	chore, _ := f.chores.GetByID(c.ID)
	if chore.Status != model.ChoreClientReview {
		t.Errorf("chore status = %s, want client_review untouched", chore.Status)
	}
	dispute, _ := f.disputes.GetByID(d.ID)
	if dispute.Status != model.IssueOpen {
		t.Errorf("dispute status = %s, want open untouched", dispute.Status)
	}

	f.runner.Wait()
	if ids := f.payouts.choreIDs(); len(ids) != 0 {
		t.Errorf("payout calls = %v, a refused resolution must not pay", ids)
	}
}
