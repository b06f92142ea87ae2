// Package payout releases escrowed funds to workers once a chore completes.
// Each chore gets exactly one payout row, enforced by a unique index; failed
// attempts are retried in place with a fresh idempotency key.
package payout

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dukerupert/chorehub/internal/apperr"
	"github.com/dukerupert/chorehub/internal/gateway"
	"github.com/dukerupert/chorehub/internal/model"
	"github.com/dukerupert/chorehub/internal/store"
)

type Coordinator struct {
	payouts   *store.PayoutStore
	chores    *store.ChoreStore
	users     *store.UserStore
	transfers gateway.TransferGateway
	logger    *slog.Logger
}

func NewCoordinator(
	payouts *store.PayoutStore,
	chores *store.ChoreStore,
	users *store.UserStore,
	transfers gateway.TransferGateway,
	logger *slog.Logger,
) *Coordinator {
	return &Coordinator{
		payouts:   payouts,
		chores:    chores,
		users:     users,
		transfers: transfers,
		logger:    logger,
	}
}

// CreatePayout pays the assigned worker for a completed, funded chore. Each
// chore gets exactly one payout row, backed by a unique index: a pending or
// successful row refuses the call, a failed row is re-attempted in place with
// a fresh idempotency key so the gateway does not replay the cached failure.
// The transfer outcome is persisted on the payout row either way, and the
// row is returned alongside any transfer error so callers can surface both.
func (c *Coordinator) CreatePayout(ctx context.Context, choreID int64) (*model.WorkerPayout, error) {
	chore, worker, err := c.eligibleChore(choreID)
	if err != nil {
		return nil, err
	}

	existing, err := c.payouts.GetByChore(choreID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.Status != model.PayoutFailed {
			return nil, apperr.Validation("a payout already exists for this chore")
		}
		return c.attempt(ctx, existing, worker.PayoutDestination, retryKey(choreID))
	}

	amount := PayoutAmount(chore.Budget)
	key := fmt.Sprintf("chore-%d", choreID)
	rec, err := c.payouts.Create(choreID, worker.ID, amount, key)
	if err != nil {
		// A concurrent creation won the insert; the unique index holds
		// the one-row invariant.
		if store.IsUniqueViolation(err) {
			return nil, apperr.Validation("a payout already exists for this chore")
		}
		return nil, err
	}

	return c.attempt(ctx, rec, worker.PayoutDestination, key)
}

// RetryPayout re-runs a failed payout on the same row with a fresh
// idempotency key, so the gateway treats it as a new transfer.
func (c *Coordinator) RetryPayout(ctx context.Context, payoutID int64) (*model.WorkerPayout, error) {
	rec, err := c.payouts.GetByID(payoutID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, apperr.NotFound("payout")
	}
	if rec.Status != model.PayoutFailed {
		return nil, apperr.Validation("only failed payouts can be retried")
	}

	_, worker, err := c.eligibleChore(rec.ChoreID)
	if err != nil {
		return nil, err
	}

	return c.attempt(ctx, rec, worker.PayoutDestination, retryKey(rec.ChoreID))
}

// retryKey mints a fresh idempotency key for a re-attempt. The original
// chore-scoped key is burned on the failed transfer.
func retryKey(choreID int64) string {
	return fmt.Sprintf("chore-%d-retry-%d", choreID, time.Now().Unix())
}

// eligibleChore checks the payout preconditions and returns the chore and
// its assigned worker. Each refusal carries a distinct error so callers can
// tell an unfunded chore from a missing destination.
func (c *Coordinator) eligibleChore(choreID int64) (*model.Chore, *model.User, error) {
	chore, err := c.chores.GetByID(choreID)
	if err != nil {
		return nil, nil, err
	}
	if chore == nil {
		return nil, nil, apperr.NotFound("chore")
	}
	if chore.Status != model.ChoreCompleted {
		return nil, nil, apperr.InvalidTransition(string(model.ChoreCompleted), string(chore.Status))
	}
	if chore.PaymentStatus != model.PaymentFunded {
		return nil, nil, apperr.Validation("escrow is not funded")
	}
	if chore.AssignedWorkerID == nil {
		return nil, nil, apperr.Validation("chore has no assigned worker")
	}

	worker, err := c.users.GetByID(*chore.AssignedWorkerID)
	if err != nil {
		return nil, nil, err
	}
	if worker == nil {
		return nil, nil, apperr.NotFound("worker")
	}
	if worker.PayoutDestination == "" {
		return nil, nil, apperr.Validation("worker has no payout destination configured")
	}
	return chore, worker, nil
}

// attempt runs one transfer and records its outcome on the payout row.
func (c *Coordinator) attempt(ctx context.Context, rec *model.WorkerPayout, destination, key string) (*model.WorkerPayout, error) {
	transfer, transferErr := c.transfer(ctx, destination, rec.Amount, key)
	if transferErr != nil {
		c.logger.Error("payout transfer failed",
			"payout_id", rec.ID,
			"chore_id", rec.ChoreID,
			"error", transferErr,
		)
		updated, err := c.payouts.UpdateResult(rec.ID, model.PayoutFailed, "", key, transferErr.Error())
		if err != nil {
			return nil, err
		}
		return updated, transferErr
	}

	status := model.PayoutPending
	if transfer.State == gateway.TransferSucceeded {
		status = model.PayoutSuccess
	} else if transfer.State == gateway.TransferFailed {
		status = model.PayoutFailed
	}
	updated, err := c.payouts.UpdateResult(rec.ID, status, transfer.ExternalID, key, "")
	if err != nil {
		return nil, err
	}
	c.logger.Info("payout transfer created",
		"payout_id", rec.ID,
		"chore_id", rec.ChoreID,
		"external_reference", transfer.ExternalID,
		"status", status,
	)
	return updated, nil
}

// transfer calls the gateway with bounded exponential backoff. Only errors
// the gateway marks retryable are retried; the idempotency key makes the
// repeat calls safe.
func (c *Coordinator) transfer(ctx context.Context, destination string, amount int64, key string) (*gateway.Transfer, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	var out *gateway.Transfer
	backoff := retry.WithMaxRetries(2, retry.NewExponential(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		t, err := c.transfers.CreateTransfer(ctx, destination, amount, key)
		if err != nil {
			if apperr.IsRetryable(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
