package store

import (
	"database/sql"
	"testing"

	"github.com/dukerupert/chorehub/internal/database"
	"github.com/dukerupert/chorehub/internal/model"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// seedUsers creates one customer and one worker with a payout destination.
func seedUsers(t *testing.T, db *sql.DB) (customer, worker *model.User) {
	t.Helper()
	users := NewUserStore(db)

	customer, err := users.Create("Priya", "priya@example.com", model.RoleCustomer)
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}
	worker, err = users.Create("Ravi", "ravi@example.com", model.RoleWorker)
	if err != nil {
		t.Fatalf("create worker: %v", err)
	}
	if err := users.SetPayoutDestination(worker.ID, "ba_test_ravi"); err != nil {
		t.Fatalf("set payout destination: %v", err)
	}
	worker, err = users.GetByID(worker.ID)
	if err != nil {
		t.Fatalf("reload worker: %v", err)
	}
	return customer, worker
}

// choreAt walks a fresh chore to the given status through the guarded marks.
func choreAt(t *testing.T, db *sql.DB, status model.ChoreStatus, createdBy, workerID int64) *model.Chore {
	t.Helper()
	chores := NewChoreStore(db)

	c, err := chores.Create("Fix the fence", "Back fence, two broken panels", 50000, createdBy, model.ChoreDraft)
	if err != nil {
		t.Fatalf("create chore: %v", err)
	}

	steps := []struct {
		target model.ChoreStatus
		mark   func() (bool, error)
	}{
		{model.ChorePublished, func() (bool, error) { return chores.MarkPublished(db, c.ID) }},
		{model.ChoreAssigned, func() (bool, error) { return chores.MarkAssigned(db, c.ID, workerID) }},
		{model.ChoreFunded, func() (bool, error) { return chores.MarkFunded(db, c.ID) }},
		{model.ChoreInProgress, func() (bool, error) { return chores.MarkStarted(db, c.ID) }},
		{model.ChoreCompleted, func() (bool, error) { return chores.MarkCompleted(db, c.ID) }},
	}
	for _, step := range steps {
		if c.Status == status {
			break
		}
		ok, err := step.mark()
		if err != nil {
			t.Fatalf("advance chore to %s: %v", step.target, err)
		}
		if !ok {
			t.Fatalf("advance chore to %s: guard refused", step.target)
		}
		c, err = chores.GetByID(c.ID)
		if err != nil {
			t.Fatalf("reload chore: %v", err)
		}
	}
	if c.Status != status {
		t.Fatalf("chore status = %s, want %s", c.Status, status)
	}
	return c
}
