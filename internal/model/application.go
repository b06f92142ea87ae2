package model

import "time"

// ApplicationStatus is terminal once the chore leaves open bidding:
// exactly one application is accepted by assignment, siblings are rejected.
type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationAccepted ApplicationStatus = "accepted"
	ApplicationRejected ApplicationStatus = "rejected"
)

type Application struct {
	ID        int64             `json:"id"`
	ChoreID   int64             `json:"chore_id"`
	WorkerID  int64             `json:"worker_id"`
	BidAmount int64             `json:"bid_amount"`
	Message   string            `json:"message"`
	Status    ApplicationStatus `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}
