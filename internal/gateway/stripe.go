package gateway

import (
	"context"
	"errors"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/payout"

	"github.com/dukerupert/chorehub/internal/apperr"
)

// StripeGateway implements TransferGateway on Stripe payouts. The idempotency
// key is forwarded so the gateway deduplicates repeated transfer calls.
type StripeGateway struct{}

func NewStripeGateway(secretKey string) *StripeGateway {
	stripe.Key = secretKey
	return &StripeGateway{}
}

func (g *StripeGateway) CreateTransfer(ctx context.Context, destination string, amount int64, idempotencyKey string) (*Transfer, error) {
	params := &stripe.PayoutParams{
		Amount:      stripe.Int64(amount),
		Currency:    stripe.String(string(stripe.CurrencyINR)),
		Destination: stripe.String(destination),
	}
	params.Context = ctx
	params.SetIdempotencyKey(idempotencyKey)

	p, err := payout.New(params)
	if err != nil {
		return nil, classifyStripeErr("create transfer", err)
	}
	return &Transfer{ExternalID: p.ID, State: mapPayoutStatus(p.Status)}, nil
}

func (g *StripeGateway) GetTransferState(ctx context.Context, externalID string) (TransferState, error) {
	params := &stripe.PayoutParams{}
	params.Context = ctx

	p, err := payout.Get(externalID, params)
	if err != nil {
		return "", classifyStripeErr("get transfer", err)
	}
	return mapPayoutStatus(p.Status), nil
}

func mapPayoutStatus(s stripe.PayoutStatus) TransferState {
	switch s {
	case stripe.PayoutStatusPaid:
		return TransferSucceeded
	case stripe.PayoutStatusPending, stripe.PayoutStatusInTransit:
		return TransferPending
	default:
		// failed, canceled
		return TransferFailed
	}
}

// classifyStripeErr maps Stripe failures onto the retryable/terminal split:
// API-side and transport problems are retryable, request problems are not.
func classifyStripeErr(op string, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		retryable := stripeErr.Type == stripe.ErrorTypeAPI
		return apperr.External(op+": "+string(stripeErr.Code), retryable, err)
	}
	return apperr.External(op+" failed", true, err)
}
