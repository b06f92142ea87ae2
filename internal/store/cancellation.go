package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/chorehub/internal/model"
)

type CancellationStore struct {
	db *sql.DB
}

func NewCancellationStore(db *sql.DB) *CancellationStore {
	return &CancellationStore{db: db}
}

func scanCancellation(scanner interface{ Scan(...any) error }) (*model.CancellationRequest, error) {
	var c model.CancellationRequest
	var resolvedAt sql.NullTime
	err := scanner.Scan(&c.ID, &c.ChoreID, &c.RequestedBy, &c.Reason, &c.Status, &c.CreatedAt, &resolvedAt)
	if err != nil {
		return nil, err
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		c.ResolvedAt = &t
	}
	return &c, nil
}

const cancellationCols = `id, chore_id, requested_by, reason, status, created_at, resolved_at`

// Create inserts a cancellation request. Direct owner cancellations insert an
// already-resolved row for audit; worker requests insert open rows.
func (s *CancellationStore) Create(q dbtx, choreID, requestedBy int64, reason string, status model.IssueStatus) (*model.CancellationRequest, error) {
	var result sql.Result
	var err error
	if status == model.IssueResolved {
		result, err = q.Exec(
			`INSERT INTO cancellation_requests (chore_id, requested_by, reason, status, resolved_at) VALUES (?, ?, ?, ?, datetime('now'))`,
			choreID, requestedBy, reason, status,
		)
	} else {
		result, err = q.Exec(
			`INSERT INTO cancellation_requests (chore_id, requested_by, reason, status) VALUES (?, ?, ?, ?)`,
			choreID, requestedBy, reason, status,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("insert cancellation request: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := q.QueryRow(`SELECT `+cancellationCols+` FROM cancellation_requests WHERE id = ?`, id)
	return scanCancellation(row)
}

func (s *CancellationStore) GetByID(id int64) (*model.CancellationRequest, error) {
	row := s.db.QueryRow(`SELECT `+cancellationCols+` FROM cancellation_requests WHERE id = ?`, id)
	c, err := scanCancellation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cancellation request: %w", err)
	}
	return c, nil
}

// GetActiveByChore returns the chore's open or in-review request, if any.
func (s *CancellationStore) GetActiveByChore(choreID int64) (*model.CancellationRequest, error) {
	row := s.db.QueryRow(
		`SELECT `+cancellationCols+` FROM cancellation_requests WHERE chore_id = ? AND status IN (?, ?) LIMIT 1`,
		choreID, model.IssueOpen, model.IssueInReview,
	)
	c, err := scanCancellation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active cancellation request: %w", err)
	}
	return c, nil
}

func (s *CancellationStore) ListByChore(choreID int64) ([]model.CancellationRequest, error) {
	rows, err := s.db.Query(
		`SELECT `+cancellationCols+` FROM cancellation_requests WHERE chore_id = ? ORDER BY created_at DESC`,
		choreID,
	)
	if err != nil {
		return nil, fmt.Errorf("list cancellation requests: %w", err)
	}
	defer rows.Close()

	var reqs []model.CancellationRequest
	for rows.Next() {
		c, err := scanCancellation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cancellation request: %w", err)
		}
		reqs = append(reqs, *c)
	}
	return reqs, rows.Err()
}

// Resolve closes the request. Guarded on non-resolved status.
func (s *CancellationStore) Resolve(q dbtx, id int64) (bool, error) {
	result, err := q.Exec(
		`UPDATE cancellation_requests SET status = ?, resolved_at = datetime('now') WHERE id = ? AND status != ?`,
		model.IssueResolved, id, model.IssueResolved,
	)
	if err != nil {
		return false, fmt.Errorf("resolve cancellation request: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}
