package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/chorehub/internal/model"
)

type ApplicationStore struct {
	db *sql.DB
}

func NewApplicationStore(db *sql.DB) *ApplicationStore {
	return &ApplicationStore{db: db}
}

func scanApplication(scanner interface{ Scan(...any) error }) (*model.Application, error) {
	var a model.Application
	err := scanner.Scan(
		&a.ID, &a.ChoreID, &a.WorkerID, &a.BidAmount, &a.Message, &a.Status,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

const applicationCols = `id, chore_id, worker_id, bid_amount, message, status, created_at, updated_at`

func (s *ApplicationStore) Create(choreID, workerID, bidAmount int64, message string) (*model.Application, error) {
	result, err := s.db.Exec(
		`INSERT INTO applications (chore_id, worker_id, bid_amount, message) VALUES (?, ?, ?, ?)`,
		choreID, workerID, bidAmount, message,
	)
	if err != nil {
		return nil, fmt.Errorf("insert application: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ApplicationStore) GetByID(id int64) (*model.Application, error) {
	row := s.db.QueryRow(`SELECT `+applicationCols+` FROM applications WHERE id = ?`, id)
	a, err := scanApplication(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get application: %w", err)
	}
	return a, nil
}

func (s *ApplicationStore) GetByChoreWorker(choreID, workerID int64) (*model.Application, error) {
	row := s.db.QueryRow(
		`SELECT `+applicationCols+` FROM applications WHERE chore_id = ? AND worker_id = ?`,
		choreID, workerID,
	)
	a, err := scanApplication(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get application by chore/worker: %w", err)
	}
	return a, nil
}

func (s *ApplicationStore) ListByChore(choreID int64) ([]model.Application, error) {
	rows, err := s.db.Query(
		`SELECT `+applicationCols+` FROM applications WHERE chore_id = ? ORDER BY created_at ASC`,
		choreID,
	)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	var apps []model.Application
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		apps = append(apps, *a)
	}
	return apps, rows.Err()
}

// AcceptAndReject marks the chosen worker's pending application accepted and
// every other pending application for the chore rejected. It must run inside
// the same transaction as the chore's assignment update so an assigned chore
// always has exactly one accepted application.
func (s *ApplicationStore) AcceptAndReject(q dbtx, choreID, workerID int64) error {
	result, err := q.Exec(
		`UPDATE applications SET status = ?, updated_at = datetime('now')
		 WHERE chore_id = ? AND worker_id = ? AND status = ?`,
		model.ApplicationAccepted, choreID, workerID, model.ApplicationPending,
	)
	if err != nil {
		return fmt.Errorf("accept application: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("accept application: expected 1 pending application for worker %d, updated %d", workerID, n)
	}

	if _, err := q.Exec(
		`UPDATE applications SET status = ?, updated_at = datetime('now')
		 WHERE chore_id = ? AND status = ?`,
		model.ApplicationRejected, choreID, model.ApplicationPending,
	); err != nil {
		return fmt.Errorf("reject sibling applications: %w", err)
	}
	return nil
}
