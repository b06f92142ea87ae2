package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/chorehub/internal/model"
)

type PayoutStore struct {
	db *sql.DB
}

func NewPayoutStore(db *sql.DB) *PayoutStore {
	return &PayoutStore{db: db}
}

func scanPayout(scanner interface{ Scan(...any) error }) (*model.WorkerPayout, error) {
	var p model.WorkerPayout
	err := scanner.Scan(
		&p.ID, &p.ChoreID, &p.WorkerID, &p.Amount, &p.Status,
		&p.ExternalReference, &p.IdempotencyKey, &p.ErrorMessage,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

const payoutCols = `id, chore_id, worker_id, amount, status, external_reference, idempotency_key, error_message, created_at, updated_at`

// Create inserts the chore's payout row. A unique index on chore_id makes
// the row singular; a second insert fails with a unique violation.
func (s *PayoutStore) Create(choreID, workerID, amount int64, idempotencyKey string) (*model.WorkerPayout, error) {
	result, err := s.db.Exec(
		`INSERT INTO worker_payouts (chore_id, worker_id, amount, idempotency_key) VALUES (?, ?, ?, ?)`,
		choreID, workerID, amount, idempotencyKey,
	)
	if err != nil {
		return nil, fmt.Errorf("insert payout: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *PayoutStore) GetByID(id int64) (*model.WorkerPayout, error) {
	row := s.db.QueryRow(`SELECT `+payoutCols+` FROM worker_payouts WHERE id = ?`, id)
	p, err := scanPayout(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get payout: %w", err)
	}
	return p, nil
}

func (s *PayoutStore) GetByChore(choreID int64) (*model.WorkerPayout, error) {
	row := s.db.QueryRow(
		`SELECT `+payoutCols+` FROM worker_payouts WHERE chore_id = ?`,
		choreID,
	)
	p, err := scanPayout(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get payout by chore: %w", err)
	}
	return p, nil
}

// UpdateResult records the outcome of a transfer attempt on the existing row.
func (s *PayoutStore) UpdateResult(id int64, status model.PayoutStatus, externalReference, idempotencyKey, errorMessage string) (*model.WorkerPayout, error) {
	_, err := s.db.Exec(
		`UPDATE worker_payouts SET status = ?, external_reference = ?, idempotency_key = ?, error_message = ?, updated_at = datetime('now')
		 WHERE id = ?`,
		status, externalReference, idempotencyKey, errorMessage, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update payout result: %w", err)
	}
	return s.GetByID(id)
}
