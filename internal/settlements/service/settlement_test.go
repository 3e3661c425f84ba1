package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"meetproof/internal/settlements/processor"
	"meetproof/pkg/client"
	"meetproof/pkg/config"
	apperrors "meetproof/pkg/errors"
	"meetproof/pkg/events"
	"meetproof/pkg/logger"
	"meetproof/pkg/model"

	mongotx "meetproof/pkg/db/mongo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

const testBookingID = "64a1f0aa1234567890abcdef"

type mockBookingRepo struct {
	booking *model.Booking
}

func (m *mockBookingRepo) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	copied := *m.booking
	return &copied, nil
}

func (m *mockBookingRepo) Update(ctx context.Context, id string, booking *model.Booking) (*mongo.UpdateResult, error) {
	m.booking = booking
	return &mongo.UpdateResult{MatchedCount: 1}, nil
}

func (m *mockBookingRepo) FindDisputed(ctx context.Context, now time.Time, limit int, offset int64) ([]*model.Booking, error) {
	return nil, nil
}

func (m *mockBookingRepo) CountDisputed(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

func (m *mockBookingRepo) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(nil)
}

type mockPayouts struct {
	account *client.PayoutAccount
	err     error
}

func (m *mockPayouts) GetPayoutAccount(providerID string) (*client.PayoutAccount, error) {
	return m.account, m.err
}

type capturePublisher struct {
	published []events.Event
}

func (p *capturePublisher) Publish(ctx context.Context, event events.Event) {
	p.published = append(p.published, event)
}

func testConfig() *config.Config {
	return &config.Config{
		Log: logger.New(logger.Config{Output: io.Discard}),
	}
}

func authorizedBooking() *model.Booking {
	return &model.Booking{
		ID:               testBookingID,
		RequesterID:      "user-requester",
		ProviderID:       "user-provider",
		Status:           model.BookingPaymentHeld,
		PaymentStatus:    model.PaymentAuthorized,
		AuthorizationRef: "auth_1",
		TotalAmount:      10000,
		PlatformFee:      1500,
		Currency:         "thb",
	}
}

func newService(booking *model.Booking, proc processor.Processor, payouts PayoutDirectory) (SettlementService, *mockBookingRepo, *capturePublisher) {
	repo := &mockBookingRepo{booking: booking}
	publisher := &capturePublisher{}
	if payouts == nil {
		payouts = &mockPayouts{}
	}
	svc := NewSettlementService(repo, proc, payouts, publisher, testConfig())
	return svc, repo, publisher
}

func TestCancelAuthorization_RefundsAndCancels(t *testing.T) {
	var reversed string
	proc := &processor.Fake{
		CancelFunc: func(ctx context.Context, ref string) error {
			reversed = ref
			return nil
		},
	}
	svc, repo, publisher := newService(authorizedBooking(), proc, nil)

	err := svc.CancelAuthorization(context.Background(), testBookingID, "system", model.CancelReasonLocationFailed)
	require.NoError(t, err)

	assert.Equal(t, "auth_1", reversed)
	assert.Equal(t, model.PaymentRefunded, repo.booking.PaymentStatus)
	assert.Equal(t, model.BookingCancelled, repo.booking.Status)
	assert.Equal(t, model.CancelReasonLocationFailed, repo.booking.CancelReason)
	require.NotNil(t, repo.booking.CancelledAt)
	require.Len(t, publisher.published, 1)
	assert.Equal(t, events.TypeBookingCancelled, publisher.published[0].Type)
}

func TestCancelAuthorization_AlreadyRefundedIsNoOp(t *testing.T) {
	booking := authorizedBooking()
	booking.PaymentStatus = model.PaymentRefunded
	procCalls := 0
	proc := &processor.Fake{
		CancelFunc: func(ctx context.Context, ref string) error {
			procCalls++
			return nil
		},
	}
	svc, _, publisher := newService(booking, proc, nil)

	err := svc.CancelAuthorization(context.Background(), testBookingID, "admin-1", "admin_refund")
	require.NoError(t, err)
	assert.Zero(t, procCalls, "processor must not be called again")
	assert.Empty(t, publisher.published)
}

func TestCancelAuthorization_RequiresAuthorizationRef(t *testing.T) {
	booking := authorizedBooking()
	booking.AuthorizationRef = ""
	svc, _, _ := newService(booking, &processor.Fake{}, nil)

	err := svc.CancelAuthorization(context.Background(), testBookingID, "system", "x")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidState))
}

func TestCancelAuthorization_ProcessorFailureLeavesStateUntouched(t *testing.T) {
	proc := &processor.Fake{
		CancelFunc: func(ctx context.Context, ref string) error {
			return errors.New("gateway timeout")
		},
	}
	booking := authorizedBooking()
	svc, _, _ := newService(booking, proc, nil)

	err := svc.CancelAuthorization(context.Background(), testBookingID, "system", "x")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeProcessorFailure))
	assert.Equal(t, model.PaymentAuthorized, booking.PaymentStatus)
}

func TestCapturePayment_Captures(t *testing.T) {
	svc, repo, _ := newService(authorizedBooking(), &processor.Fake{}, nil)

	err := svc.CapturePayment(context.Background(), testBookingID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentCaptured, repo.booking.PaymentStatus)
}

func TestCapturePayment_GatesOnPaymentStatus(t *testing.T) {
	booking := authorizedBooking()
	booking.PaymentStatus = model.PaymentRefunded
	svc, _, _ := newService(booking, &processor.Fake{}, nil)

	err := svc.CapturePayment(context.Background(), testBookingID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidState))
}

func TestCapturePayment_AlreadyCapturedIsNoOp(t *testing.T) {
	booking := authorizedBooking()
	booking.PaymentStatus = model.PaymentCaptured
	procCalls := 0
	proc := &processor.Fake{
		CaptureFunc: func(ctx context.Context, ref string) (string, error) {
			procCalls++
			return "capture_1", nil
		},
	}
	svc, _, _ := newService(booking, proc, nil)

	require.NoError(t, svc.CapturePayment(context.Background(), testBookingID))
	assert.Zero(t, procCalls, "double capture must be prevented by state gating")
}

func TestTransferToProvider_PaysProviderEarnings(t *testing.T) {
	booking := authorizedBooking()
	booking.PaymentStatus = model.PaymentCaptured
	var transferred int64
	proc := &processor.Fake{
		TransferFunc: func(ctx context.Context, dest string, amount int64) (string, error) {
			transferred = amount
			return "trsf_1", nil
		},
	}
	payouts := &mockPayouts{account: &client.PayoutAccount{
		ProviderID:   "user-provider",
		RecipientRef: "recp_1",
		Active:       true,
	}}
	svc, repo, publisher := newService(booking, proc, payouts)

	result, err := svc.TransferToProvider(context.Background(), testBookingID)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, int64(8500), result.ProviderEarnings)
	assert.Equal(t, int64(8500), transferred, "transfer amount must be total minus platform fee")
	assert.Equal(t, "trsf_1", result.TransferRef)
	assert.Equal(t, model.PaymentTransferCompleted, repo.booking.PaymentStatus)
	assert.Equal(t, "trsf_1", repo.booking.TransferRef)
	require.Len(t, publisher.published, 1)
	assert.Equal(t, events.TypeTransferCompleted, publisher.published[0].Type)
}

func TestTransferToProvider_MissingPayoutDestination(t *testing.T) {
	booking := authorizedBooking()
	booking.PaymentStatus = model.PaymentCaptured
	svc, repo, publisher := newService(booking, &processor.Fake{}, &mockPayouts{account: nil})

	result, err := svc.TransferToProvider(context.Background(), testBookingID)
	require.NoError(t, err, "a failed transfer is a structured result, not an error")

	assert.False(t, result.Success)
	assert.True(t, result.RequiresManualProcessing)
	assert.Contains(t, result.Reason, "payout destination")
	assert.Equal(t, model.PaymentTransferFailed, repo.booking.PaymentStatus)
	require.Len(t, publisher.published, 1)
	assert.Equal(t, events.TypeTransferFailed, publisher.published[0].Type)
}

func TestTransferToProvider_ProcessorFailureRoutesToManual(t *testing.T) {
	booking := authorizedBooking()
	booking.PaymentStatus = model.PaymentCaptured
	proc := &processor.Fake{
		TransferFunc: func(ctx context.Context, dest string, amount int64) (string, error) {
			return "", errors.New("recipient suspended")
		},
	}
	payouts := &mockPayouts{account: &client.PayoutAccount{RecipientRef: "recp_1", Active: true}}
	svc, repo, _ := newService(booking, proc, payouts)

	result, err := svc.TransferToProvider(context.Background(), testBookingID)
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.True(t, result.RequiresManualProcessing)
	assert.Contains(t, result.Reason, "recipient suspended")
	assert.Equal(t, model.PaymentTransferFailed, repo.booking.PaymentStatus)
}

func TestTransferToProvider_RetryAfterFailureSucceeds(t *testing.T) {
	booking := authorizedBooking()
	booking.PaymentStatus = model.PaymentTransferFailed
	payouts := &mockPayouts{account: &client.PayoutAccount{RecipientRef: "recp_1", Active: true}}
	svc, repo, _ := newService(booking, &processor.Fake{}, payouts)

	result, err := svc.TransferToProvider(context.Background(), testBookingID)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, model.PaymentTransferCompleted, repo.booking.PaymentStatus)
}

func TestTransferToProvider_AlreadyCompletedIsIdempotent(t *testing.T) {
	booking := authorizedBooking()
	booking.PaymentStatus = model.PaymentTransferCompleted
	booking.TransferRef = "trsf_done"
	procCalls := 0
	proc := &processor.Fake{
		TransferFunc: func(ctx context.Context, dest string, amount int64) (string, error) {
			procCalls++
			return "trsf_dup", nil
		},
	}
	svc, _, _ := newService(booking, proc, nil)

	result, err := svc.TransferToProvider(context.Background(), testBookingID)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "trsf_done", result.TransferRef)
	assert.Zero(t, procCalls, "completed transfers must never run again")
}

func TestTransferToProvider_GatesOnPaymentStatus(t *testing.T) {
	svc, _, _ := newService(authorizedBooking(), &processor.Fake{}, nil)

	_, err := svc.TransferToProvider(context.Background(), testBookingID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidState))
}

func TestMarkManualTransfer_RecordsOutcomeAndNote(t *testing.T) {
	booking := authorizedBooking()
	booking.PaymentStatus = model.PaymentTransferFailed
	svc, repo, publisher := newService(booking, &processor.Fake{}, nil)

	err := svc.MarkManualTransfer(context.Background(), testBookingID, ManualOutcomeCompleted, "admin-1", "paid via bank wire")
	require.NoError(t, err)

	assert.Equal(t, model.PaymentTransferCompleted, repo.booking.PaymentStatus)
	assert.Contains(t, repo.booking.AdminResolutionNotes, "paid via bank wire")
	assert.Contains(t, repo.booking.AdminResolutionNotes, "admin-1")
	require.Len(t, publisher.published, 1)
	assert.Equal(t, events.TypeTransferCompleted, publisher.published[0].Type)
}

func TestMarkManualTransfer_RejectsUnknownOutcome(t *testing.T) {
	svc, _, _ := newService(authorizedBooking(), &processor.Fake{}, nil)

	err := svc.MarkManualTransfer(context.Background(), testBookingID, "reversed", "admin-1", "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))
}

func TestMarkManualTransfer_GatesOnPaymentStatus(t *testing.T) {
	svc, _, _ := newService(authorizedBooking(), &processor.Fake{}, nil)

	err := svc.MarkManualTransfer(context.Background(), testBookingID, ManualOutcomeCompleted, "admin-1", "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidState))
}
