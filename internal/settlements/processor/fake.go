package processor

import "context"

// Fake is a func-field test double for the Processor capability. Unset
// functions succeed with canned references.
type Fake struct {
	AuthorizeFunc func(ctx context.Context, amount int64, currency, payerRef string) (string, error)
	CaptureFunc   func(ctx context.Context, authorizationRef string) (string, error)
	CancelFunc    func(ctx context.Context, authorizationRef string) error
	TransferFunc  func(ctx context.Context, destinationRef string, amount int64) (string, error)
}

func (f *Fake) Authorize(ctx context.Context, amount int64, currency, payerRef string) (string, error) {
	if f.AuthorizeFunc != nil {
		return f.AuthorizeFunc(ctx, amount, currency, payerRef)
	}
	return "auth_fake", nil
}

func (f *Fake) Capture(ctx context.Context, authorizationRef string) (string, error) {
	if f.CaptureFunc != nil {
		return f.CaptureFunc(ctx, authorizationRef)
	}
	return "capture_fake", nil
}

func (f *Fake) Cancel(ctx context.Context, authorizationRef string) error {
	if f.CancelFunc != nil {
		return f.CancelFunc(ctx, authorizationRef)
	}
	return nil
}

func (f *Fake) Transfer(ctx context.Context, destinationRef string, amount int64) (string, error) {
	if f.TransferFunc != nil {
		return f.TransferFunc(ctx, destinationRef, amount)
	}
	return "transfer_fake", nil
}
