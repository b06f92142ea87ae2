package model

import "time"

type PayoutStatus string

const (
	PayoutPending PayoutStatus = "pending"
	PayoutSuccess PayoutStatus = "success"
	PayoutFailed  PayoutStatus = "failed"
)

// WorkerPayout is the single payout record for a chore. A failed payout is
// retried in place with a fresh idempotency key rather than duplicated.
type WorkerPayout struct {
	ID                int64        `json:"id"`
	ChoreID           int64        `json:"chore_id"`
	WorkerID          int64        `json:"worker_id"`
	Amount            int64        `json:"amount"`
	Status            PayoutStatus `json:"status"`
	ExternalReference string       `json:"external_reference"`
	IdempotencyKey    string       `json:"idempotency_key"`
	ErrorMessage      string       `json:"error_message"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}
