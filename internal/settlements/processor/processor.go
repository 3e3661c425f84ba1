package processor

import "context"

// Processor is the external payment capability the settlement layer
// orchestrates. Every call reports success or failure explicitly; callers must
// not assume idempotency and gate double capture/transfer on booking state.
type Processor interface {
	// Authorize places a hold on the payer's funds and returns the
	// authorization reference.
	Authorize(ctx context.Context, amount int64, currency, payerRef string) (string, error)

	// Capture converts a held authorization into an actual charge.
	Capture(ctx context.Context, authorizationRef string) (string, error)

	// Cancel releases a held authorization.
	Cancel(ctx context.Context, authorizationRef string) error

	// Transfer moves funds to the given payout destination and returns the
	// transfer reference.
	Transfer(ctx context.Context, destinationRef string, amount int64) (string, error)
}
