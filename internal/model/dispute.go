package model

import "time"

// IssueStatus is shared by cancellation requests and disputes.
type IssueStatus string

const (
	IssueOpen     IssueStatus = "open"
	IssueInReview IssueStatus = "in_review"
	IssueResolved IssueStatus = "resolved"
)

const (
	DisputeOutcomeComplete = "complete"
	DisputeOutcomeCancel   = "cancel"
)

type CancellationRequest struct {
	ID          int64       `json:"id"`
	ChoreID     int64       `json:"chore_id"`
	RequestedBy int64       `json:"requested_by"`
	Reason      string      `json:"reason"`
	Status      IssueStatus `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
	ResolvedAt  *time.Time  `json:"resolved_at"`
}

type Dispute struct {
	ID        int64       `json:"id"`
	ChoreID   int64       `json:"chore_id"`
	RaisedBy  int64       `json:"raised_by"`
	Reason    string      `json:"reason"`
	Status    IssueStatus `json:"status"`
	// Outcome is set on resolution: "complete" releases the chore to the
	// worker, "cancel" cancels it.
	Outcome    string     `json:"outcome,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at"`
}
