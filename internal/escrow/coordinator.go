// Package escrow mediates the funding step: it creates capture-gateway
// payment intents for assigned chores and verifies the gateway's signed
// callback, funding the chore exactly once.
package escrow

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/chorehub/internal/apperr"
	"github.com/dukerupert/chorehub/internal/gateway"
	"github.com/dukerupert/chorehub/internal/model"
	"github.com/dukerupert/chorehub/internal/store"
	"github.com/dukerupert/chorehub/internal/ws"
)

type Coordinator struct {
	db       *sql.DB
	chores   *store.ChoreStore
	payments *store.PaymentStore
	orders   gateway.OrderGateway
	signer   *gateway.Signer
	hub      *ws.Hub
	logger   *slog.Logger
}

func NewCoordinator(
	db *sql.DB,
	chores *store.ChoreStore,
	payments *store.PaymentStore,
	orders gateway.OrderGateway,
	signer *gateway.Signer,
	hub *ws.Hub,
	logger *slog.Logger,
) *Coordinator {
	return &Coordinator{
		db:       db,
		chores:   chores,
		payments: payments,
		orders:   orders,
		signer:   signer,
		hub:      hub,
		logger:   logger,
	}
}

// CreateIntent opens a payment order for an assigned chore's budget and
// records it as a pending escrow payment. Idempotent per chore: an existing
// pending intent is returned instead of creating a second order.
func (c *Coordinator) CreateIntent(ctx context.Context, choreID, actorID int64) (*model.EscrowPayment, error) {
	chore, err := c.chores.GetByID(choreID)
	if err != nil {
		return nil, err
	}
	if chore == nil {
		return nil, apperr.NotFound("chore")
	}
	if chore.CreatedBy != actorID {
		return nil, apperr.NotOwner()
	}
	if chore.PaymentStatus == model.PaymentFunded {
		return nil, apperr.Validation("escrow is already funded")
	}
	if chore.Status != model.ChoreAssigned {
		return nil, apperr.InvalidTransition(string(model.ChoreAssigned), string(chore.Status))
	}

	existing, err := c.payments.GetPendingByChore(choreID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	receipt := fmt.Sprintf("chore-%d-%s", choreID, uuid.NewString()[:8])
	order, err := c.orders.CreateOrder(ctx, chore.Budget, receipt)
	if err != nil {
		return nil, err
	}

	return c.payments.Create(choreID, order.Reference, chore.Budget)
}

// VerifyResult reports whether the verification call funded the chore.
// Funded is also true for replays of an already-applied verification.
type VerifyResult struct {
	Funded bool `json:"funded"`
}

// Verify checks the gateway's callback signature and, on first success,
// marks the payment captured and funds the chore in one transaction.
// Replays are no-ops that still report success.
func (c *Coordinator) Verify(ctx context.Context, orderReference, paymentReference, signature string) (*VerifyResult, error) {
	if !c.signer.Verify(orderReference, paymentReference, signature) {
		record, err := c.payments.GetByOrderReference(orderReference)
		if err != nil {
			return nil, err
		}
		if record != nil && record.Status == model.EscrowPaymentPending {
			if err := c.payments.MarkFailed(record.ID, paymentReference, signature); err != nil {
				return nil, err
			}
		}
		return nil, apperr.InvalidSignature()
	}

	record, err := c.payments.GetByOrderReference(orderReference)
	if err != nil {
		return nil, err
	}
	if record == nil {
		// The gateway captured money we have no intent for. Cryptographic
		// success takes precedence; the bookkeeping gap is logged, not
		// surfaced as a caller failure.
		c.logger.Warn("verified payment has no escrow record",
			"order_reference", orderReference,
			"payment_reference", paymentReference,
		)
		return &VerifyResult{Funded: false}, nil
	}

	if record.Status == model.EscrowPaymentSuccess {
		return &VerifyResult{Funded: true}, nil
	}
	if record.Status == model.EscrowPaymentFailed {
		return nil, apperr.Validation("escrow payment is already marked failed")
	}

	tx, err := c.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	meta := map[string]string{
		"verified_at":       time.Now().UTC().Format(time.RFC3339),
		"payment_reference": paymentReference,
	}
	applied, err := c.payments.MarkSuccess(tx, record.ID, paymentReference, signature, meta)
	if err != nil {
		return nil, err
	}
	if !applied {
		// A concurrent verification won the guard and funded the chore.
		return &VerifyResult{Funded: true}, nil
	}

	funded, err := c.chores.MarkFunded(tx, record.ChoreID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit verify: %w", err)
	}

	if funded {
		if c.hub != nil {
			c.hub.Broadcast(ws.NewEvent("chore", "status_changed", record.ChoreID, string(model.ChoreFunded)))
		}
	} else {
		c.logger.Warn("payment captured but chore not fundable",
			"chore_id", record.ChoreID,
			"order_reference", orderReference,
		)
	}
	return &VerifyResult{Funded: funded}, nil
}
