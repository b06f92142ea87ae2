package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/chorehub/internal/model"
)

type ChoreStore struct {
	db *sql.DB
}

func NewChoreStore(db *sql.DB) *ChoreStore {
	return &ChoreStore{db: db}
}

func scanChore(scanner interface{ Scan(...any) error }) (*model.Chore, error) {
	var c model.Chore
	var assignedWorker sql.NullInt64
	var assignedAt, startedAt, completedAt sql.NullTime

	err := scanner.Scan(
		&c.ID, &c.Title, &c.Description, &c.Budget, &c.Status, &c.PaymentStatus,
		&c.CreatedBy, &assignedWorker, &assignedAt, &startedAt, &completedAt,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if assignedWorker.Valid {
		c.AssignedWorkerID = &assignedWorker.Int64
	}
	if assignedAt.Valid {
		t := assignedAt.Time
		c.AssignedAt = &t
	}
	if startedAt.Valid {
		t := startedAt.Time
		c.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		c.CompletedAt = &t
	}
	return &c, nil
}

const choreCols = `id, title, description, budget, status, payment_status, created_by, assigned_worker_id, assigned_at, started_at, completed_at, created_at, updated_at`

func (s *ChoreStore) Create(title, description string, budget int64, createdBy int64, status model.ChoreStatus) (*model.Chore, error) {
	result, err := s.db.Exec(
		`INSERT INTO chores (title, description, budget, created_by, status) VALUES (?, ?, ?, ?, ?)`,
		title, description, budget, createdBy, status,
	)
	if err != nil {
		return nil, fmt.Errorf("insert chore: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ChoreStore) GetByID(id int64) (*model.Chore, error) {
	return s.get(s.db, id)
}

// GetTx reads the chore inside a caller-owned transaction.
func (s *ChoreStore) GetTx(q dbtx, id int64) (*model.Chore, error) {
	return s.get(q, id)
}

func (s *ChoreStore) get(q dbtx, id int64) (*model.Chore, error) {
	row := q.QueryRow(`SELECT `+choreCols+` FROM chores WHERE id = ?`, id)
	c, err := scanChore(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chore: %w", err)
	}
	return c, nil
}

func (s *ChoreStore) ListByCreator(userID int64) ([]model.Chore, error) {
	return s.list(`SELECT `+choreCols+` FROM chores WHERE created_by = ? ORDER BY created_at DESC`, userID)
}

func (s *ChoreStore) ListByWorker(workerID int64) ([]model.Chore, error) {
	return s.list(`SELECT `+choreCols+` FROM chores WHERE assigned_worker_id = ? ORDER BY created_at DESC`, workerID)
}

func (s *ChoreStore) ListByStatus(status model.ChoreStatus) ([]model.Chore, error) {
	return s.list(`SELECT `+choreCols+` FROM chores WHERE status = ? ORDER BY created_at DESC`, status)
}

func (s *ChoreStore) list(query string, args ...any) ([]model.Chore, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list chores: %w", err)
	}
	defer rows.Close()

	var chores []model.Chore
	for rows.Next() {
		c, err := scanChore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chore: %w", err)
		}
		chores = append(chores, *c)
	}
	return chores, rows.Err()
}

// UpdateFields writes the edit-window fields. Which fields the caller is
// allowed to touch is decided by the lifecycle engine, not here.
func (s *ChoreStore) UpdateFields(id int64, title, description string, budget int64) error {
	_, err := s.db.Exec(
		`UPDATE chores SET title = ?, description = ?, budget = ?, updated_at = datetime('now') WHERE id = ?`,
		title, description, budget, id,
	)
	if err != nil {
		return fmt.Errorf("update chore fields: %w", err)
	}
	return nil
}

// The Mark* methods below are the only writers of chore status. Each carries
// its source-status guard in the WHERE clause so that concurrent transitions
// race safely: the loser updates zero rows and the caller reports an invalid
// transition.

// MarkPublished moves draft -> published.
func (s *ChoreStore) MarkPublished(q dbtx, id int64) (bool, error) {
	return guarded(q.Exec(
		`UPDATE chores SET status = ?, updated_at = datetime('now') WHERE id = ? AND status = ?`,
		model.ChorePublished, id, model.ChoreDraft,
	))
}

// MarkAssigned moves published -> assigned and pins the worker.
func (s *ChoreStore) MarkAssigned(q dbtx, id, workerID int64) (bool, error) {
	return guarded(q.Exec(
		`UPDATE chores SET status = ?, assigned_worker_id = ?, assigned_at = datetime('now'), updated_at = datetime('now')
		 WHERE id = ? AND status = ?`,
		model.ChoreAssigned, workerID, id, model.ChorePublished,
	))
}

// MarkFunded moves assigned -> funded on both status axes. The payment_status
// guard makes double-funding a no-op at the row level.
func (s *ChoreStore) MarkFunded(q dbtx, id int64) (bool, error) {
	return guarded(q.Exec(
		`UPDATE chores SET status = ?, payment_status = ?, updated_at = datetime('now')
		 WHERE id = ? AND status = ? AND payment_status != ?`,
		model.ChoreFunded, model.PaymentFunded, id, model.ChoreAssigned, model.PaymentFunded,
	))
}

// MarkStarted moves funded -> in_progress. Requires the escrow to be funded.
func (s *ChoreStore) MarkStarted(q dbtx, id int64) (bool, error) {
	return guarded(q.Exec(
		`UPDATE chores SET status = ?, started_at = datetime('now'), updated_at = datetime('now')
		 WHERE id = ? AND status = ? AND payment_status = ?`,
		model.ChoreInProgress, id, model.ChoreFunded, model.PaymentFunded,
	))
}

// MarkCompleted moves in_progress -> completed.
func (s *ChoreStore) MarkCompleted(q dbtx, id int64) (bool, error) {
	return guarded(q.Exec(
		`UPDATE chores SET status = ?, completed_at = datetime('now'), updated_at = datetime('now')
		 WHERE id = ? AND status = ?`,
		model.ChoreCompleted, id, model.ChoreInProgress,
	))
}

// MarkClientReview moves the chore into dispute review from the observed
// status. The caller supplies from so the guard catches concurrent movement.
func (s *ChoreStore) MarkClientReview(q dbtx, id int64, from model.ChoreStatus) (bool, error) {
	return guarded(q.Exec(
		`UPDATE chores SET status = ?, updated_at = datetime('now') WHERE id = ? AND status = ?`,
		model.ChoreClientReview, id, from,
	))
}

// MarkCancelled moves the chore to cancelled from the observed status.
func (s *ChoreStore) MarkCancelled(q dbtx, id int64, from model.ChoreStatus) (bool, error) {
	return guarded(q.Exec(
		`UPDATE chores SET status = ?, updated_at = datetime('now') WHERE id = ? AND status = ?`,
		model.ChoreCancelled, id, from,
	))
}

// MarkReviewOutcome moves client_review to the resolution status.
func (s *ChoreStore) MarkReviewOutcome(q dbtx, id int64, to model.ChoreStatus) (bool, error) {
	return guarded(q.Exec(
		`UPDATE chores SET status = ?, updated_at = datetime('now') WHERE id = ? AND status = ?`,
		to, id, model.ChoreClientReview,
	))
}

func guarded(result sql.Result, err error) (bool, error) {
	if err != nil {
		return false, fmt.Errorf("update chore status: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}
