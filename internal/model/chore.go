package model

import "time"

// ChoreStatus is the lifecycle state of a chore. Transitions are owned by
// the lifecycle engine; nothing else writes status.
type ChoreStatus string

const (
	ChoreDraft        ChoreStatus = "draft"
	ChorePublished    ChoreStatus = "published"
	ChoreAssigned     ChoreStatus = "assigned"
	ChoreFunded       ChoreStatus = "funded"
	ChoreInProgress   ChoreStatus = "in_progress"
	ChoreCompleted    ChoreStatus = "completed"
	ChoreClientReview ChoreStatus = "client_review"
	ChoreCancelled    ChoreStatus = "cancelled"
)

// PaymentStatus tracks the escrow axis independently of the lifecycle status.
type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentFunded   PaymentStatus = "funded"
	PaymentRefunded PaymentStatus = "refunded"
)

type Chore struct {
	ID            int64         `json:"id"`
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	Budget        int64         `json:"budget"` // paise
	Status        ChoreStatus   `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	CreatedBy     int64         `json:"created_by"`
	// AssignedWorkerID is nil before ASSIGNED and set for every status after.
	AssignedWorkerID *int64     `json:"assigned_worker_id"`
	AssignedAt       *time.Time `json:"assigned_at"`
	StartedAt        *time.Time `json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}
