// Package gateway holds the clients for the external payment rails: the
// capture gateway that collects escrow from customers (order + signed
// callback) and the transfer gateway that pays workers out.
package gateway

import "context"

// Order is a capture-gateway payment intent.
type Order struct {
	Reference string
	Amount    int64
}

// OrderGateway creates externally-addressable payment orders.
type OrderGateway interface {
	CreateOrder(ctx context.Context, amount int64, receipt string) (*Order, error)
}

// TransferState is the gateway's view of an outbound transfer.
type TransferState string

const (
	TransferPending   TransferState = "pending"
	TransferSucceeded TransferState = "succeeded"
	TransferFailed    TransferState = "failed"
)

// Transfer is the result of a payout transfer call.
type Transfer struct {
	ExternalID string
	State      TransferState
}

// TransferGateway moves escrowed funds to a worker's destination. Duplicate
// calls with the same idempotency key are deduplicated by the gateway.
type TransferGateway interface {
	CreateTransfer(ctx context.Context, destination string, amount int64, idempotencyKey string) (*Transfer, error)
	GetTransferState(ctx context.Context, externalID string) (TransferState, error)
}
