package processor

import (
	"context"
	"fmt"

	"github.com/omise/omise-go"
	"github.com/omise/omise-go/operations"
)

// omiseProcessor binds the Processor capability to Omise: a charge created
// with DontCapture is the authorization hold, CaptureCharge and ReverseCharge
// settle it, and CreateTransfer pays the provider's recipient.
type omiseProcessor struct {
	client *omise.Client
}

func NewOmiseProcessor(publicKey, secretKey string) (Processor, error) {
	client, err := omise.NewClient(publicKey, secretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create omise client: %w", err)
	}
	client.SetDebug(false)
	return &omiseProcessor{client: client}, nil
}

func (p *omiseProcessor) Authorize(ctx context.Context, amount int64, currency, payerRef string) (string, error) {
	charge := &omise.Charge{}
	err := p.client.Do(charge, &operations.CreateCharge{
		Amount:      amount,
		Currency:    currency,
		Card:        payerRef,
		DontCapture: true,
	})
	if err != nil {
		return "", fmt.Errorf("authorize failed: %w", err)
	}
	return charge.ID, nil
}

func (p *omiseProcessor) Capture(ctx context.Context, authorizationRef string) (string, error) {
	charge := &omise.Charge{}
	err := p.client.Do(charge, &operations.CaptureCharge{
		ChargeID: authorizationRef,
	})
	if err != nil {
		return "", fmt.Errorf("capture failed: %w", err)
	}
	return charge.ID, nil
}

func (p *omiseProcessor) Cancel(ctx context.Context, authorizationRef string) error {
	charge := &omise.Charge{}
	err := p.client.Do(charge, &operations.ReverseCharge{
		ChargeID: authorizationRef,
	})
	if err != nil {
		return fmt.Errorf("cancel failed: %w", err)
	}
	return nil
}

func (p *omiseProcessor) Transfer(ctx context.Context, destinationRef string, amount int64) (string, error) {
	transfer := &omise.Transfer{}
	err := p.client.Do(transfer, &operations.CreateTransfer{
		Amount:    amount,
		Recipient: destinationRef,
	})
	if err != nil {
		return "", fmt.Errorf("transfer failed: %w", err)
	}
	return transfer.ID, nil
}
