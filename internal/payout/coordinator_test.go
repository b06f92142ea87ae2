package payout

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"testing"

	"github.com/dukerupert/chorehub/internal/apperr"
	"github.com/dukerupert/chorehub/internal/database"
	"github.com/dukerupert/chorehub/internal/gateway"
	"github.com/dukerupert/chorehub/internal/model"
	"github.com/dukerupert/chorehub/internal/store"
)

type transferCall struct {
	Destination string
	Amount      int64
	Key         string
}

// fakeTransfers pops one scripted error per call; an exhausted script succeeds.
type fakeTransfers struct {
	calls  []transferCall
	script []error
}

func (f *fakeTransfers) CreateTransfer(ctx context.Context, destination string, amount int64, idempotencyKey string) (*gateway.Transfer, error) {
	f.calls = append(f.calls, transferCall{Destination: destination, Amount: amount, Key: idempotencyKey})
	if len(f.script) > 0 {
		err := f.script[0]
		f.script = f.script[1:]
		if err != nil {
			return nil, err
		}
	}
	return &gateway.Transfer{ExternalID: "po_test", State: gateway.TransferSucceeded}, nil
}

func (f *fakeTransfers) GetTransferState(ctx context.Context, externalID string) (gateway.TransferState, error) {
	return gateway.TransferSucceeded, nil
}

type fixture struct {
	db        *sql.DB
	coord     *Coordinator
	payouts   *store.PayoutStore
	chores    *store.ChoreStore
	users     *store.UserStore
	transfers *fakeTransfers

	workerID int64
	choreID  int64
}

// setup walks a chore to completed with funded escrow, the payable baseline.
func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		db:        db,
		payouts:   store.NewPayoutStore(db),
		chores:    store.NewChoreStore(db),
		users:     store.NewUserStore(db),
		transfers: &fakeTransfers{},
	}
	f.coord = NewCoordinator(f.payouts, f.chores, f.users, f.transfers, slog.New(slog.DiscardHandler))

	customer, err := f.users.Create("Priya", "priya@example.com", model.RoleCustomer)
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}
	worker, err := f.users.Create("Ravi", "ravi@example.com", model.RoleWorker)
	if err != nil {
		t.Fatalf("create worker: %v", err)
	}
	if err := f.users.SetPayoutDestination(worker.ID, "ba_test_ravi"); err != nil {
		t.Fatalf("set payout destination: %v", err)
	}
	f.workerID = worker.ID

	c, err := f.chores.Create("Fix the fence", "", 50000, customer.ID, model.ChorePublished)
	if err != nil {
		t.Fatalf("create chore: %v", err)
	}
	for _, mark := range []func() (bool, error){
		func() (bool, error) { return f.chores.MarkAssigned(db, c.ID, worker.ID) },
		func() (bool, error) { return f.chores.MarkFunded(db, c.ID) },
		func() (bool, error) { return f.chores.MarkStarted(db, c.ID) },
		func() (bool, error) { return f.chores.MarkCompleted(db, c.ID) },
	} {
		if ok, err := mark(); err != nil || !ok {
			t.Fatalf("advance chore: ok=%v err=%v", ok, err)
		}
	}
	f.choreID = c.ID
	return f
}

func TestCreatePayoutHappyPath(t *testing.T) {
	f := setup(t)

	rec, err := f.coord.CreatePayout(context.Background(), f.choreID)
	if err != nil {
		t.Fatalf("create payout: %v", err)
	}
	if rec.Status != model.PayoutSuccess {
		t.Errorf("status = %s, want success", rec.Status)
	}
	if rec.Amount != 45000 {
		t.Errorf("amount = %d, want budget minus the 10%% fee", rec.Amount)
	}
	if rec.ExternalReference != "po_test" {
		t.Errorf("external_reference = %q, want po_test", rec.ExternalReference)
	}

	if len(f.transfers.calls) != 1 {
		t.Fatalf("transfer calls = %d, want 1", len(f.transfers.calls))
	}
	call := f.transfers.calls[0]
	if call.Destination != "ba_test_ravi" || call.Amount != 45000 {
		t.Errorf("transfer = %+v", call)
	}
	if call.Key != rec.IdempotencyKey {
		t.Errorf("gateway key = %q, row key = %q", call.Key, rec.IdempotencyKey)
	}
}

func TestCreatePayoutRefusesUnlessCompleted(t *testing.T) {
	f := setup(t)

	// Roll the chore back to in_progress behind the coordinator's back.
	if _, err := f.db.Exec(`UPDATE chores SET status = ? WHERE id = ?`, model.ChoreInProgress, f.choreID); err != nil {
		t.Fatalf("force status: %v", err)
	}

	_, err := f.coord.CreatePayout(context.Background(), f.choreID)
	if e, _ := apperr.As(err); e == nil || e.Code != apperr.CodeInvalidTransition {
		t.Fatalf("err = %v, want invalid_state_transition", err)
	}
}

func TestCreatePayoutRefusesUnfundedEscrow(t *testing.T) {
	f := setup(t)

	if _, err := f.db.Exec(`UPDATE chores SET payment_status = ? WHERE id = ?`, model.PaymentUnpaid, f.choreID); err != nil {
		t.Fatalf("force payment status: %v", err)
	}

	_, err := f.coord.CreatePayout(context.Background(), f.choreID)
	e, _ := apperr.As(err)
	if e == nil || e.Code != apperr.CodeValidation || !strings.Contains(e.Message, "funded") {
		t.Fatalf("err = %v, want the unfunded-escrow refusal", err)
	}
}

func TestCreatePayoutRefusesMissingDestination(t *testing.T) {
	f := setup(t)

	if _, err := f.db.Exec(`UPDATE users SET payout_destination = '' WHERE id = ?`, f.workerID); err != nil {
		t.Fatalf("clear destination: %v", err)
	}

	_, err := f.coord.CreatePayout(context.Background(), f.choreID)
	e, _ := apperr.As(err)
	if e == nil || e.Code != apperr.CodeValidation || !strings.Contains(e.Message, "destination") {
		t.Fatalf("err = %v, want the missing-destination refusal", err)
	}
}

func TestCreatePayoutRefusesDuplicates(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	if _, err := f.coord.CreatePayout(ctx, f.choreID); err != nil {
		t.Fatalf("first payout: %v", err)
	}
	_, err := f.coord.CreatePayout(ctx, f.choreID)
	if e, _ := apperr.As(err); e == nil || e.Code != apperr.CodeValidation {
		t.Fatalf("err = %v, want validation for duplicate payout", err)
	}
	if len(f.transfers.calls) != 1 {
		t.Errorf("transfer calls = %d, duplicate must not reach the gateway", len(f.transfers.calls))
	}
}

func TestTransferFailureIsRecorded(t *testing.T) {
	f := setup(t)
	f.transfers.script = []error{apperr.External("transfer rejected", false, nil)}

	rec, err := f.coord.CreatePayout(context.Background(), f.choreID)
	if err == nil {
		t.Fatal("want transfer error")
	}
	if rec == nil || rec.Status != model.PayoutFailed {
		t.Fatalf("record = %+v, want a failed payout row", rec)
	}
	if rec.ErrorMessage == "" {
		t.Error("failed payout missing error message")
	}
}

func TestCreatePayoutReusesFailedRow(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.transfers.script = []error{apperr.External("transfer rejected", false, nil)}

	failed, err := f.coord.CreatePayout(ctx, f.choreID)
	if err == nil {
		t.Fatal("want first attempt to fail")
	}

	rec, err := f.coord.CreatePayout(ctx, f.choreID)
	if err != nil {
		t.Fatalf("re-create payout: %v", err)
	}
	if rec.ID != failed.ID {
		t.Errorf("re-create made row %d, want the failed row %d reused", rec.ID, failed.ID)
	}
	if rec.Status != model.PayoutSuccess {
		t.Errorf("status = %s, want success", rec.Status)
	}
	// The original key is burned on the cached failure; reusing it would
	// replay that failure at the gateway.
	if rec.IdempotencyKey == failed.IdempotencyKey {
		t.Error("re-attempt reused the burned idempotency key")
	}

	var count int
	if err := f.db.QueryRow(`SELECT COUNT(*) FROM worker_payouts WHERE chore_id = ?`, f.choreID).Scan(&count); err != nil {
		t.Fatalf("count payout rows: %v", err)
	}
	if count != 1 {
		t.Errorf("payout rows = %d, want exactly one per chore", count)
	}
}

func TestRetryableErrorsAreRetried(t *testing.T) {
	f := setup(t)
	f.transfers.script = []error{apperr.External("gateway timeout", true, nil)}

	rec, err := f.coord.CreatePayout(context.Background(), f.choreID)
	if err != nil {
		t.Fatalf("create payout: %v", err)
	}
	if rec.Status != model.PayoutSuccess {
		t.Errorf("status = %s, want success after retry", rec.Status)
	}
	if len(f.transfers.calls) != 2 {
		t.Fatalf("transfer calls = %d, want 2", len(f.transfers.calls))
	}
	// Retries within one attempt reuse the key so the gateway deduplicates.
	if f.transfers.calls[0].Key != f.transfers.calls[1].Key {
		t.Errorf("keys differ across retry: %q vs %q", f.transfers.calls[0].Key, f.transfers.calls[1].Key)
	}
}

func TestRetryPayoutReusesRowWithFreshKey(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.transfers.script = []error{apperr.External("transfer rejected", false, nil)}

	failed, err := f.coord.CreatePayout(ctx, f.choreID)
	if err == nil {
		t.Fatal("want first attempt to fail")
	}

	rec, err := f.coord.RetryPayout(ctx, failed.ID)
	if err != nil {
		t.Fatalf("retry payout: %v", err)
	}
	if rec.ID != failed.ID {
		t.Errorf("retry created row %d, want the original %d mutated", rec.ID, failed.ID)
	}
	if rec.Status != model.PayoutSuccess {
		t.Errorf("status = %s, want success", rec.Status)
	}
	if rec.IdempotencyKey == failed.IdempotencyKey {
		t.Error("retry must use a fresh idempotency key")
	}
	if !strings.HasPrefix(rec.IdempotencyKey, failed.IdempotencyKey+"-retry-") {
		t.Errorf("retry key = %q, want %q prefix", rec.IdempotencyKey, failed.IdempotencyKey+"-retry-")
	}

	// Only failed payouts can be retried.
	_, err = f.coord.RetryPayout(ctx, rec.ID)
	if e, _ := apperr.As(err); e == nil || e.Code != apperr.CodeValidation {
		t.Fatalf("err = %v, want validation for retrying a settled payout", err)
	}
}

func TestFeeMath(t *testing.T) {
	cases := []struct {
		budget int64
		fee    int64
		payout int64
	}{
		{50000, 5000, 45000},
		{999, 99, 900},
		{1, 0, 1},
	}
	for _, tc := range cases {
		if got := PlatformFee(tc.budget); got != tc.fee {
			t.Errorf("PlatformFee(%d) = %d, want %d", tc.budget, got, tc.fee)
		}
		if got := PayoutAmount(tc.budget); got != tc.payout {
			t.Errorf("PayoutAmount(%d) = %d, want %d", tc.budget, got, tc.payout)
		}
	}
}
