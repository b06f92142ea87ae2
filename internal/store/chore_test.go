package store

import (
	"testing"

	"github.com/dukerupert/chorehub/internal/model"
)

func TestChoreHappyPathMarks(t *testing.T) {
	db := setupTestDB(t)
	customer, worker := seedUsers(t, db)
	chores := NewChoreStore(db)

	c, err := chores.Create("Mow the lawn", "", 30000, customer.ID, model.ChoreDraft)
	if err != nil {
		t.Fatalf("create chore: %v", err)
	}
	if c.Status != model.ChoreDraft || c.PaymentStatus != model.PaymentUnpaid {
		t.Fatalf("new chore = %s/%s, want draft/unpaid", c.Status, c.PaymentStatus)
	}

	if ok, err := chores.MarkPublished(db, c.ID); err != nil || !ok {
		t.Fatalf("publish: ok=%v err=%v", ok, err)
	}
	if ok, err := chores.MarkAssigned(db, c.ID, worker.ID); err != nil || !ok {
		t.Fatalf("assign: ok=%v err=%v", ok, err)
	}
	if ok, err := chores.MarkFunded(db, c.ID); err != nil || !ok {
		t.Fatalf("fund: ok=%v err=%v", ok, err)
	}
	if ok, err := chores.MarkStarted(db, c.ID); err != nil || !ok {
		t.Fatalf("start: ok=%v err=%v", ok, err)
	}
	if ok, err := chores.MarkCompleted(db, c.ID); err != nil || !ok {
		t.Fatalf("complete: ok=%v err=%v", ok, err)
	}

	c, err = chores.GetByID(c.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if c.Status != model.ChoreCompleted {
		t.Errorf("status = %s, want completed", c.Status)
	}
	if c.PaymentStatus != model.PaymentFunded {
		t.Errorf("payment_status = %s, want funded", c.PaymentStatus)
	}
	if c.AssignedWorkerID == nil || *c.AssignedWorkerID != worker.ID {
		t.Errorf("assigned_worker_id = %v, want %d", c.AssignedWorkerID, worker.ID)
	}
	if c.AssignedAt == nil || c.StartedAt == nil || c.CompletedAt == nil {
		t.Errorf("timestamps not all set: assigned=%v started=%v completed=%v", c.AssignedAt, c.StartedAt, c.CompletedAt)
	}
}

func TestGuardedMarksRefuseWrongStatus(t *testing.T) {
	db := setupTestDB(t)
	customer, worker := seedUsers(t, db)
	chores := NewChoreStore(db)

	c, err := chores.Create("Paint the gate", "", 20000, customer.ID, model.ChoreDraft)
	if err != nil {
		t.Fatalf("create chore: %v", err)
	}

	// Out-of-order edges update zero rows.
	if ok, _ := chores.MarkAssigned(db, c.ID, worker.ID); ok {
		t.Error("assign from draft should refuse")
	}
	if ok, _ := chores.MarkFunded(db, c.ID); ok {
		t.Error("fund from draft should refuse")
	}
	if ok, _ := chores.MarkStarted(db, c.ID); ok {
		t.Error("start from draft should refuse")
	}
	if ok, _ := chores.MarkCompleted(db, c.ID); ok {
		t.Error("complete from draft should refuse")
	}

	if ok, err := chores.MarkPublished(db, c.ID); err != nil || !ok {
		t.Fatalf("publish: ok=%v err=%v", ok, err)
	}
	// Replaying the same edge loses the guard.
	if ok, _ := chores.MarkPublished(db, c.ID); ok {
		t.Error("second publish should refuse")
	}

	c, _ = chores.GetByID(c.ID)
	if c.Status != model.ChorePublished {
		t.Errorf("status = %s, want published", c.Status)
	}
}

func TestMarkStartedRequiresFundedPayment(t *testing.T) {
	db := setupTestDB(t)
	customer, worker := seedUsers(t, db)
	chores := NewChoreStore(db)

	c := choreAt(t, db, model.ChoreAssigned, customer.ID, worker.ID)

	// Force the status forward without the payment axis. MarkStarted must
	// still refuse because payment_status is unpaid.
	if _, err := db.Exec(`UPDATE chores SET status = ? WHERE id = ?`, model.ChoreFunded, c.ID); err != nil {
		t.Fatalf("force status: %v", err)
	}
	if ok, err := chores.MarkStarted(db, c.ID); err != nil {
		t.Fatalf("start: %v", err)
	} else if ok {
		t.Error("start with unpaid escrow should refuse")
	}
}

func TestMarkFundedIsSingleShot(t *testing.T) {
	db := setupTestDB(t)
	customer, worker := seedUsers(t, db)
	chores := NewChoreStore(db)

	c := choreAt(t, db, model.ChoreAssigned, customer.ID, worker.ID)

	if ok, err := chores.MarkFunded(db, c.ID); err != nil || !ok {
		t.Fatalf("first fund: ok=%v err=%v", ok, err)
	}
	if ok, err := chores.MarkFunded(db, c.ID); err != nil {
		t.Fatalf("second fund: %v", err)
	} else if ok {
		t.Error("second fund should refuse")
	}
}

func TestMarkCancelledUsesObservedStatus(t *testing.T) {
	db := setupTestDB(t)
	customer, worker := seedUsers(t, db)
	chores := NewChoreStore(db)

	c := choreAt(t, db, model.ChorePublished, customer.ID, worker.ID)

	// A stale observation refuses: the chore is published, not draft.
	if ok, _ := chores.MarkCancelled(db, c.ID, model.ChoreDraft); ok {
		t.Error("cancel with stale status should refuse")
	}
	if ok, err := chores.MarkCancelled(db, c.ID, model.ChorePublished); err != nil || !ok {
		t.Fatalf("cancel: ok=%v err=%v", ok, err)
	}

	c, _ = chores.GetByID(c.ID)
	if c.Status != model.ChoreCancelled {
		t.Errorf("status = %s, want cancelled", c.Status)
	}
}

func TestMarkReviewOutcome(t *testing.T) {
	db := setupTestDB(t)
	customer, worker := seedUsers(t, db)
	chores := NewChoreStore(db)

	c := choreAt(t, db, model.ChoreInProgress, customer.ID, worker.ID)
	if ok, err := chores.MarkClientReview(db, c.ID, model.ChoreInProgress); err != nil || !ok {
		t.Fatalf("client review: ok=%v err=%v", ok, err)
	}

	if ok, err := chores.MarkReviewOutcome(db, c.ID, model.ChoreCompleted); err != nil || !ok {
		t.Fatalf("review outcome: ok=%v err=%v", ok, err)
	}
	// The chore already left client_review.
	if ok, _ := chores.MarkReviewOutcome(db, c.ID, model.ChoreCancelled); ok {
		t.Error("second review outcome should refuse")
	}

	c, _ = chores.GetByID(c.ID)
	if c.Status != model.ChoreCompleted {
		t.Errorf("status = %s, want completed", c.Status)
	}
}

func TestListScopes(t *testing.T) {
	db := setupTestDB(t)
	customer, worker := seedUsers(t, db)
	chores := NewChoreStore(db)

	choreAt(t, db, model.ChorePublished, customer.ID, worker.ID)
	choreAt(t, db, model.ChoreAssigned, customer.ID, worker.ID)

	created, err := chores.ListByCreator(customer.ID)
	if err != nil {
		t.Fatalf("list by creator: %v", err)
	}
	if len(created) != 2 {
		t.Errorf("creator list = %d chores, want 2", len(created))
	}

	assigned, err := chores.ListByWorker(worker.ID)
	if err != nil {
		t.Fatalf("list by worker: %v", err)
	}
	if len(assigned) != 1 {
		t.Errorf("worker list = %d chores, want 1", len(assigned))
	}

	published, err := chores.ListByStatus(model.ChorePublished)
	if err != nil {
		t.Fatalf("list by status: %v", err)
	}
	if len(published) != 1 {
		t.Errorf("published list = %d chores, want 1", len(published))
	}
}

func TestUpdateFields(t *testing.T) {
	db := setupTestDB(t)
	customer, worker := seedUsers(t, db)
	chores := NewChoreStore(db)

	c := choreAt(t, db, model.ChoreDraft, customer.ID, worker.ID)
	if err := chores.UpdateFields(c.ID, "Fix the whole fence", "All panels", 80000); err != nil {
		t.Fatalf("update fields: %v", err)
	}

	c, _ = chores.GetByID(c.ID)
	if c.Title != "Fix the whole fence" || c.Description != "All panels" || c.Budget != 80000 {
		t.Errorf("fields = %q/%q/%d after update", c.Title, c.Description, c.Budget)
	}
}
