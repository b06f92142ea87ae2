package store

import (
	"testing"

	"github.com/dukerupert/chorehub/internal/model"
)

func TestPaymentMarkSuccessIsSingleShot(t *testing.T) {
	db := setupTestDB(t)
	customer, worker := seedUsers(t, db)
	payments := NewPaymentStore(db)

	c := choreAt(t, db, model.ChoreAssigned, customer.ID, worker.ID)
	p, err := payments.Create(c.ID, "order_abc", c.Budget)
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}
	if p.Status != model.EscrowPaymentPending {
		t.Fatalf("status = %s, want pending", p.Status)
	}

	meta := map[string]string{"verified_at": "2026-08-31T10:00:00Z"}
	ok, err := payments.MarkSuccess(db, p.ID, "pay_xyz", "sig", meta)
	if err != nil {
		t.Fatalf("mark success: %v", err)
	}
	if !ok {
		t.Fatal("first mark success should apply")
	}

	// Replay updates zero rows.
	ok, err = payments.MarkSuccess(db, p.ID, "pay_other", "sig2", nil)
	if err != nil {
		t.Fatalf("replay mark success: %v", err)
	}
	if ok {
		t.Error("replay should not apply")
	}

	p, err = payments.GetByOrderReference("order_abc")
	if err != nil {
		t.Fatalf("get by order reference: %v", err)
	}
	if p.Status != model.EscrowPaymentSuccess {
		t.Errorf("status = %s, want success", p.Status)
	}
	if p.PaymentReference != "pay_xyz" {
		t.Errorf("payment_reference = %q, want pay_xyz", p.PaymentReference)
	}
	if p.Meta["verified_at"] != "2026-08-31T10:00:00Z" {
		t.Errorf("meta = %v, missing verified_at", p.Meta)
	}
}

func TestPendingLookupIgnoresSettledPayments(t *testing.T) {
	db := setupTestDB(t)
	customer, worker := seedUsers(t, db)
	payments := NewPaymentStore(db)

	c := choreAt(t, db, model.ChoreAssigned, customer.ID, worker.ID)
	p, err := payments.Create(c.ID, "order_1", c.Budget)
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}

	pending, err := payments.GetPendingByChore(c.ID)
	if err != nil {
		t.Fatalf("get pending: %v", err)
	}
	if pending == nil || pending.ID != p.ID {
		t.Fatalf("pending = %v, want payment %d", pending, p.ID)
	}

	if err := payments.MarkFailed(p.ID, "pay_bad", "bad_sig"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	pending, err = payments.GetPendingByChore(c.ID)
	if err != nil {
		t.Fatalf("get pending after failure: %v", err)
	}
	if pending != nil {
		t.Errorf("pending = %v, want nil after failure", pending)
	}
}

func TestMarkFailedOnlyTouchesPending(t *testing.T) {
	db := setupTestDB(t)
	customer, worker := seedUsers(t, db)
	payments := NewPaymentStore(db)

	c := choreAt(t, db, model.ChoreAssigned, customer.ID, worker.ID)
	p, err := payments.Create(c.ID, "order_2", c.Budget)
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}
	if _, err := payments.MarkSuccess(db, p.ID, "pay_ok", "sig", nil); err != nil {
		t.Fatalf("mark success: %v", err)
	}

	if err := payments.MarkFailed(p.ID, "pay_late", "sig_late"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	p, _ = payments.GetByID(p.ID)
	if p.Status != model.EscrowPaymentSuccess {
		t.Errorf("status = %s, success must not be overwritten", p.Status)
	}
}
