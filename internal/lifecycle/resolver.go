package lifecycle

import (
	"context"
	"fmt"

	"github.com/dukerupert/chorehub/internal/apperr"
	"github.com/dukerupert/chorehub/internal/model"
	"github.com/dukerupert/chorehub/internal/store"
)

// Cancellation and dispute handling. Both produce side records anchored to
// the chore; only disputes and approved cancellations move its status, and
// always through the same guarded updates as every other edge.

// CancelChore is the customer-direct cancellation, legal strictly before work
// starts. A resolved cancellation request is recorded for audit.
func (e *Engine) CancelChore(ctx context.Context, choreID, actorID int64, reason string) (*model.Chore, error) {
	chore, err := e.loadChore(choreID)
	if err != nil {
		return nil, err
	}
	if err := authorize(actionCancelDirect, chore, actorID); err != nil {
		return nil, err
	}

	tx, err := e.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	ok, err := e.chores.MarkCancelled(tx, choreID, chore.Status)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, e.raceError(choreID, actionCancelDirect)
	}
	if _, err := e.cancellations.Create(tx, choreID, actorID, reason, model.IssueResolved); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit cancel: %w", err)
	}

	if chore.AssignedWorkerID != nil {
		e.notifyUser(*chore.AssignedWorkerID, "chore_cancelled", map[string]any{"chore_id": choreID})
	}
	e.broadcast(choreID, model.ChoreCancelled)
	return e.chores.GetByID(choreID)
}

// RequestCancellation records a worker's request to be released from an
// assigned chore. The chore status does not change until the owner resolves
// the request.
func (e *Engine) RequestCancellation(ctx context.Context, choreID, actorID int64, reason string) (*model.CancellationRequest, error) {
	chore, err := e.loadChore(choreID)
	if err != nil {
		return nil, err
	}
	if err := authorize(actionCancelRequest, chore, actorID); err != nil {
		return nil, err
	}

	active, err := e.cancellations.GetActiveByChore(choreID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, apperr.Validation("an active cancellation request already exists for this chore")
	}

	req, err := e.cancellations.Create(e.db, choreID, actorID, reason, model.IssueOpen)
	if err != nil {
		// A concurrent request won the insert; the partial unique index
		// allows one unresolved row per chore.
		if store.IsUniqueViolation(err) {
			return nil, apperr.Validation("an active cancellation request already exists for this chore")
		}
		return nil, err
	}

	e.notifyUser(chore.CreatedBy, "cancellation_requested", map[string]any{"chore_id": choreID, "request_id": req.ID})
	return req, nil
}

// ResolveCancellation closes a worker's cancellation request. Approval
// cancels the chore under the same status boundary as a direct cancel.
func (e *Engine) ResolveCancellation(ctx context.Context, requestID, actorID int64, approve bool) (*model.CancellationRequest, error) {
	req, err := e.cancellations.GetByID(requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, apperr.NotFound("cancellation request")
	}
	if req.Status == model.IssueResolved {
		return nil, apperr.Validation("cancellation request is already resolved")
	}

	chore, err := e.loadChore(req.ChoreID)
	if err != nil {
		return nil, err
	}
	if chore.CreatedBy != actorID {
		return nil, apperr.NotOwner()
	}

	tx, err := e.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if approve {
		if err := authorize(actionCancelDirect, chore, actorID); err != nil {
			return nil, err
		}
		ok, err := e.chores.MarkCancelled(tx, chore.ID, chore.Status)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, e.raceError(chore.ID, actionCancelDirect)
		}
	}
	if _, err := e.cancellations.Resolve(tx, requestID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit resolve cancellation: %w", err)
	}

	if approve {
		if chore.AssignedWorkerID != nil {
			e.notifyUser(*chore.AssignedWorkerID, "chore_cancelled", map[string]any{"chore_id": chore.ID})
		}
		e.broadcast(chore.ID, model.ChoreCancelled)
	}
	return e.cancellations.GetByID(requestID)
}

// RaiseDispute escalates a chore into client review. The dispute row and the
// status change commit together.
func (e *Engine) RaiseDispute(ctx context.Context, choreID, actorID int64, reason string) (*model.Dispute, error) {
	chore, err := e.loadChore(choreID)
	if err != nil {
		return nil, err
	}
	if err := authorize(actionDispute, chore, actorID); err != nil {
		return nil, err
	}

	active, err := e.disputes.GetActiveByChore(choreID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, apperr.Validation("an active dispute already exists for this chore")
	}

	tx, err := e.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	ok, err := e.chores.MarkClientReview(tx, choreID, chore.Status)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, e.raceError(choreID, actionDispute)
	}
	dispute, err := e.disputes.Create(tx, choreID, actorID, reason)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit dispute: %w", err)
	}

	if chore.AssignedWorkerID != nil {
		e.notifyUser(*chore.AssignedWorkerID, "dispute_raised", map[string]any{"chore_id": choreID, "dispute_id": dispute.ID})
	}
	e.broadcast(choreID, model.ChoreClientReview)
	return dispute, nil
}

// ReviewDispute moves an open dispute into review. Only the chore's owner
// decides on disputes, the same boundary as resolution.
func (e *Engine) ReviewDispute(ctx context.Context, disputeID, actorID int64) (*model.Dispute, error) {
	dispute, err := e.disputes.GetByID(disputeID)
	if err != nil {
		return nil, err
	}
	if dispute == nil {
		return nil, apperr.NotFound("dispute")
	}
	chore, err := e.loadChore(dispute.ChoreID)
	if err != nil {
		return nil, err
	}
	if chore.CreatedBy != actorID {
		return nil, apperr.NotOwner()
	}

	ok, err := e.disputes.MarkInReview(disputeID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Validation("dispute is not open")
	}
	return e.disputes.GetByID(disputeID)
}

// ResolveDispute closes a dispute and moves the chore out of client review:
// outcome "complete" releases the chore to the worker, "cancel" cancels it.
// Owner only; this edge moves money, so the worker it was raised against
// never decides it.
func (e *Engine) ResolveDispute(ctx context.Context, disputeID, actorID int64, outcome string) (*model.Dispute, error) {
	var target model.ChoreStatus
	switch outcome {
	case model.DisputeOutcomeComplete:
		target = model.ChoreCompleted
	case model.DisputeOutcomeCancel:
		target = model.ChoreCancelled
	default:
		return nil, apperr.Validation("outcome must be complete or cancel")
	}

	dispute, err := e.disputes.GetByID(disputeID)
	if err != nil {
		return nil, err
	}
	if dispute == nil {
		return nil, apperr.NotFound("dispute")
	}

	chore, err := e.loadChore(dispute.ChoreID)
	if err != nil {
		return nil, err
	}
	if chore.CreatedBy != actorID {
		return nil, apperr.NotOwner()
	}
	if dispute.Status == model.IssueResolved {
		return nil, apperr.Validation("dispute is already resolved")
	}

	tx, err := e.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	ok, err := e.chores.MarkReviewOutcome(tx, dispute.ChoreID, target)
	if err != nil {
		return nil, err
	}
	if !ok {
		actual := string(chore.Status)
		if current, err := e.chores.GetByID(dispute.ChoreID); err == nil && current != nil {
			actual = string(current.Status)
		}
		return nil, apperr.InvalidTransition(string(model.ChoreClientReview), actual)
	}
	if _, err := e.disputes.Resolve(tx, disputeID, outcome); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit resolve dispute: %w", err)
	}

	if outcome == model.DisputeOutcomeComplete {
		e.attemptPayout(dispute.ChoreID)
	}
	if chore.AssignedWorkerID != nil {
		e.notifyUser(*chore.AssignedWorkerID, "dispute_resolved", map[string]any{"chore_id": dispute.ChoreID, "outcome": outcome})
	}
	e.broadcast(dispute.ChoreID, target)
	return e.disputes.GetByID(disputeID)
}
