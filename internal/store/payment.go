package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dukerupert/chorehub/internal/model"
)

type PaymentStore struct {
	db *sql.DB
}

func NewPaymentStore(db *sql.DB) *PaymentStore {
	return &PaymentStore{db: db}
}

func scanPayment(scanner interface{ Scan(...any) error }) (*model.EscrowPayment, error) {
	var p model.EscrowPayment
	var meta string
	err := scanner.Scan(
		&p.ID, &p.ChoreID, &p.OrderReference, &p.PaymentReference, &p.Signature,
		&p.Amount, &p.Status, &meta, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(meta), &p.Meta); err != nil {
		return nil, fmt.Errorf("decode payment meta: %w", err)
	}
	return &p, nil
}

const paymentCols = `id, chore_id, order_reference, payment_reference, signature, amount, status, meta, created_at, updated_at`

func (s *PaymentStore) Create(choreID int64, orderReference string, amount int64) (*model.EscrowPayment, error) {
	result, err := s.db.Exec(
		`INSERT INTO escrow_payments (chore_id, order_reference, amount) VALUES (?, ?, ?)`,
		choreID, orderReference, amount,
	)
	if err != nil {
		return nil, fmt.Errorf("insert escrow payment: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *PaymentStore) GetByID(id int64) (*model.EscrowPayment, error) {
	row := s.db.QueryRow(`SELECT `+paymentCols+` FROM escrow_payments WHERE id = ?`, id)
	return s.one(row, "get escrow payment")
}

func (s *PaymentStore) GetByOrderReference(orderReference string) (*model.EscrowPayment, error) {
	row := s.db.QueryRow(
		`SELECT `+paymentCols+` FROM escrow_payments WHERE order_reference = ?`,
		orderReference,
	)
	return s.one(row, "get escrow payment by order reference")
}

// GetPendingByChore returns the chore's open payment intent, if any. Intent
// creation reuses this row instead of issuing a second order.
func (s *PaymentStore) GetPendingByChore(choreID int64) (*model.EscrowPayment, error) {
	row := s.db.QueryRow(
		`SELECT `+paymentCols+` FROM escrow_payments WHERE chore_id = ? AND status = ? ORDER BY created_at DESC LIMIT 1`,
		choreID, model.EscrowPaymentPending,
	)
	return s.one(row, "get pending escrow payment")
}

func (s *PaymentStore) ListByChore(choreID int64) ([]model.EscrowPayment, error) {
	rows, err := s.db.Query(
		`SELECT `+paymentCols+` FROM escrow_payments WHERE chore_id = ? ORDER BY created_at DESC`,
		choreID,
	)
	if err != nil {
		return nil, fmt.Errorf("list escrow payments: %w", err)
	}
	defer rows.Close()

	var payments []model.EscrowPayment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan escrow payment: %w", err)
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

// MarkSuccess records capture details and the audit meta. Guarded on pending
// so the verification step applies exactly once; a replay updates zero rows.
func (s *PaymentStore) MarkSuccess(q dbtx, id int64, paymentReference, signature string, meta map[string]string) (bool, error) {
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return false, fmt.Errorf("encode payment meta: %w", err)
	}
	result, err := q.Exec(
		`UPDATE escrow_payments SET status = ?, payment_reference = ?, signature = ?, meta = ?, updated_at = datetime('now')
		 WHERE id = ? AND status = ?`,
		model.EscrowPaymentSuccess, paymentReference, signature, string(metaJSON), id, model.EscrowPaymentPending,
	)
	if err != nil {
		return false, fmt.Errorf("mark payment success: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

func (s *PaymentStore) MarkFailed(id int64, paymentReference, signature string) error {
	_, err := s.db.Exec(
		`UPDATE escrow_payments SET status = ?, payment_reference = ?, signature = ?, updated_at = datetime('now')
		 WHERE id = ? AND status = ?`,
		model.EscrowPaymentFailed, paymentReference, signature, id, model.EscrowPaymentPending,
	)
	if err != nil {
		return fmt.Errorf("mark payment failed: %w", err)
	}
	return nil
}

func (s *PaymentStore) one(row *sql.Row, op string) (*model.EscrowPayment, error) {
	p, err := scanPayment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}
