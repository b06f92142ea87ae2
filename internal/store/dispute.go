package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/chorehub/internal/model"
)

type DisputeStore struct {
	db *sql.DB
}

func NewDisputeStore(db *sql.DB) *DisputeStore {
	return &DisputeStore{db: db}
}

func scanDispute(scanner interface{ Scan(...any) error }) (*model.Dispute, error) {
	var d model.Dispute
	var resolvedAt sql.NullTime
	err := scanner.Scan(&d.ID, &d.ChoreID, &d.RaisedBy, &d.Reason, &d.Status, &d.Outcome, &d.CreatedAt, &resolvedAt)
	if err != nil {
		return nil, err
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		d.ResolvedAt = &t
	}
	return &d, nil
}

const disputeCols = `id, chore_id, raised_by, reason, status, outcome, created_at, resolved_at`

// Create inserts an open dispute. Runs inside the same transaction as the
// chore's move to client_review.
func (s *DisputeStore) Create(q dbtx, choreID, raisedBy int64, reason string) (*model.Dispute, error) {
	result, err := q.Exec(
		`INSERT INTO disputes (chore_id, raised_by, reason) VALUES (?, ?, ?)`,
		choreID, raisedBy, reason,
	)
	if err != nil {
		return nil, fmt.Errorf("insert dispute: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := q.QueryRow(`SELECT `+disputeCols+` FROM disputes WHERE id = ?`, id)
	return scanDispute(row)
}

func (s *DisputeStore) GetByID(id int64) (*model.Dispute, error) {
	row := s.db.QueryRow(`SELECT `+disputeCols+` FROM disputes WHERE id = ?`, id)
	d, err := scanDispute(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get dispute: %w", err)
	}
	return d, nil
}

// GetActiveByChore returns the chore's open or in-review dispute, if any.
func (s *DisputeStore) GetActiveByChore(choreID int64) (*model.Dispute, error) {
	row := s.db.QueryRow(
		`SELECT `+disputeCols+` FROM disputes WHERE chore_id = ? AND status IN (?, ?) LIMIT 1`,
		choreID, model.IssueOpen, model.IssueInReview,
	)
	d, err := scanDispute(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active dispute: %w", err)
	}
	return d, nil
}

func (s *DisputeStore) ListByChore(choreID int64) ([]model.Dispute, error) {
	rows, err := s.db.Query(
		`SELECT `+disputeCols+` FROM disputes WHERE chore_id = ? ORDER BY created_at DESC`,
		choreID,
	)
	if err != nil {
		return nil, fmt.Errorf("list disputes: %w", err)
	}
	defer rows.Close()

	var disputes []model.Dispute
	for rows.Next() {
		d, err := scanDispute(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dispute: %w", err)
		}
		disputes = append(disputes, *d)
	}
	return disputes, rows.Err()
}

// MarkInReview moves an open dispute into review.
func (s *DisputeStore) MarkInReview(id int64) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE disputes SET status = ? WHERE id = ? AND status = ?`,
		model.IssueInReview, id, model.IssueOpen,
	)
	if err != nil {
		return false, fmt.Errorf("mark dispute in review: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

// Resolve closes the dispute with an outcome. Guarded on non-resolved status
// and runs inside the same transaction as the chore's exit from review.
func (s *DisputeStore) Resolve(q dbtx, id int64, outcome string) (bool, error) {
	result, err := q.Exec(
		`UPDATE disputes SET status = ?, outcome = ?, resolved_at = datetime('now') WHERE id = ? AND status != ?`,
		model.IssueResolved, outcome, id, model.IssueResolved,
	)
	if err != nil {
		return false, fmt.Errorf("resolve dispute: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}
