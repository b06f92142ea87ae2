package model

import "time"

type EscrowPaymentStatus string

const (
	EscrowPaymentPending EscrowPaymentStatus = "pending"
	EscrowPaymentSuccess EscrowPaymentStatus = "success"
	EscrowPaymentFailed  EscrowPaymentStatus = "failed"
)

// EscrowPayment records one gateway payment intent for a chore. The record is
// moved to success or failed exactly once by verification and never deleted.
type EscrowPayment struct {
	ID               int64               `json:"id"`
	ChoreID          int64               `json:"chore_id"`
	OrderReference   string              `json:"order_reference"`
	PaymentReference string              `json:"payment_reference"`
	Signature        string              `json:"-"`
	Amount           int64               `json:"amount"`
	Status           EscrowPaymentStatus `json:"status"`
	// Meta is an opaque audit trail (verification timestamps, gateway echoes).
	Meta      map[string]string `json:"meta"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}
