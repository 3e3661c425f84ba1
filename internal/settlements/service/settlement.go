package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"meetproof/internal/settlements/processor"
	verrors "meetproof/internal/verifications/errors"
	"meetproof/internal/verifications/repository"
	"meetproof/pkg/client"
	"meetproof/pkg/config"
	apperrors "meetproof/pkg/errors"
	"meetproof/pkg/events"
	"meetproof/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

// Manual transfer outcomes accepted by MarkManualTransfer.
const (
	ManualOutcomeCompleted = "completed"
	ManualOutcomeFailed    = "failed"
)

// TransferResult is the structured outcome of a payout attempt. A failed
// transfer is reported here, not as an error, so callers can route it to
// manual handling.
type TransferResult struct {
	Success                  bool   `json:"success"`
	RequiresManualProcessing bool   `json:"requires_manual_processing"`
	Reason                   string `json:"reason,omitempty"`
	TransferRef              string `json:"transfer_ref,omitempty"`
	ProviderEarnings         int64  `json:"provider_earnings,omitempty"`
}

// PayoutDirectory resolves a provider's payout destination. Returns
// (nil, nil) when the provider has none.
type PayoutDirectory interface {
	GetPayoutAccount(providerID string) (*client.PayoutAccount, error)
}

// SettlementService wraps the payment processor capability and keeps the
// booking's financial fields in step with it. All mutations run inside
// booking-row transactions; state gating prevents double capture or transfer.
// Processor errors are recorded and only retried by explicit admin action.
type SettlementService interface {
	CancelAuthorization(ctx context.Context, bookingID, cancelledBy, reason string) error
	CapturePayment(ctx context.Context, bookingID string) error
	TransferToProvider(ctx context.Context, bookingID string) (*TransferResult, error)
	MarkManualTransfer(ctx context.Context, bookingID, outcome, resolverID, note string) error
}

type settlementService struct {
	bookingRepo repository.BookingRepository
	processor   processor.Processor
	payouts     PayoutDirectory
	publisher   events.Publisher
	cfg         *config.Config
}

func NewSettlementService(
	bookingRepo repository.BookingRepository,
	proc processor.Processor,
	payouts PayoutDirectory,
	publisher events.Publisher,
	cfg *config.Config,
) SettlementService {
	return &settlementService{
		bookingRepo: bookingRepo,
		processor:   proc,
		payouts:     payouts,
		publisher:   publisher,
		cfg:         cfg,
	}
}

// CancelAuthorization releases the held authorization and cancels the booking.
// Already-refunded bookings are a no-op so retries stay safe.
func (s *settlementService) CancelAuthorization(ctx context.Context, bookingID, cancelledBy, reason string) error {
	var cancelled bool

	err := s.bookingRepo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		booking, err := s.loadBooking(sessCtx, bookingID)
		if err != nil {
			return err
		}

		if booking.PaymentStatus == model.PaymentRefunded {
			return nil
		}
		if booking.AuthorizationRef == "" {
			return apperrors.InvalidState("Booking has no payment authorization to release")
		}
		if booking.PaymentStatus != model.PaymentAuthorized {
			return apperrors.InvalidState(fmt.Sprintf("Cannot release authorization in payment status %q", booking.PaymentStatus))
		}

		if err := s.processor.Cancel(sessCtx, booking.AuthorizationRef); err != nil {
			return apperrors.ProcessorFailure("Failed to release payment authorization", err)
		}

		now := time.Now().UTC().Truncate(time.Millisecond)
		booking.PaymentStatus = model.PaymentRefunded
		booking.Status = model.BookingCancelled
		booking.CancelledBy = cancelledBy
		booking.CancelReason = reason
		booking.CancelledAt = &now

		if _, err := s.bookingRepo.Update(sessCtx, bookingID, booking); err != nil {
			return apperrors.Internal("Failed to record refund", err)
		}
		cancelled = true
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to cancel authorization", "booking_id", bookingID, "error", err)
		return err
	}

	if cancelled {
		s.cfg.Log.Info("Authorization released and booking cancelled",
			"booking_id", bookingID,
			"cancelled_by", cancelledBy,
			"reason", reason,
		)
		s.publisher.Publish(ctx, events.Event{
			Type:      events.TypeBookingCancelled,
			BookingID: bookingID,
			Payload: map[string]any{
				"cancelled_by":  cancelledBy,
				"cancel_reason": reason,
			},
		})
	}
	return nil
}

// CapturePayment converts the held authorization into a charge. Callers are
// responsible for only invoking it after a verified outcome or an explicit
// admin override.
func (s *settlementService) CapturePayment(ctx context.Context, bookingID string) error {
	err := s.bookingRepo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		booking, err := s.loadBooking(sessCtx, bookingID)
		if err != nil {
			return err
		}

		if booking.PaymentStatus == model.PaymentCaptured {
			return nil
		}
		if booking.AuthorizationRef == "" {
			return apperrors.InvalidState("Booking has no payment authorization to capture")
		}
		if booking.PaymentStatus != model.PaymentAuthorized {
			return apperrors.InvalidState(fmt.Sprintf("Cannot capture in payment status %q", booking.PaymentStatus))
		}

		if _, err := s.processor.Capture(sessCtx, booking.AuthorizationRef); err != nil {
			return apperrors.ProcessorFailure("Failed to capture payment", err)
		}

		booking.PaymentStatus = model.PaymentCaptured
		if _, err := s.bookingRepo.Update(sessCtx, bookingID, booking); err != nil {
			return apperrors.Internal("Failed to record capture", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to capture payment", "booking_id", bookingID, "error", err)
		return err
	}

	s.cfg.Log.Info("Payment captured", "booking_id", bookingID)
	return nil
}

// TransferToProvider pays out the provider's earnings (amount minus platform
// fee). Processor failures and a missing payout destination come back as a
// structured result with RequiresManualProcessing set, never as an error, and
// leave the booking in transfer_failed for the dispute layer.
func (s *settlementService) TransferToProvider(ctx context.Context, bookingID string) (*TransferResult, error) {
	var result *TransferResult

	err := s.bookingRepo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		booking, err := s.loadBooking(sessCtx, bookingID)
		if err != nil {
			return err
		}

		if booking.PaymentStatus == model.PaymentTransferCompleted {
			result = &TransferResult{
				Success:          true,
				TransferRef:      booking.TransferRef,
				ProviderEarnings: booking.ProviderEarnings(),
			}
			return nil
		}
		if booking.PaymentStatus != model.PaymentCaptured && booking.PaymentStatus != model.PaymentTransferFailed {
			return apperrors.InvalidState(fmt.Sprintf("Cannot transfer in payment status %q", booking.PaymentStatus))
		}

		account, err := s.payouts.GetPayoutAccount(booking.ProviderID)
		if err != nil {
			return apperrors.Internal("Failed to look up payout destination", err)
		}
		if account == nil || !account.Active {
			result = s.recordTransferFailure(sessCtx, booking, "provider has no active payout destination")
			return nil
		}

		earnings := booking.ProviderEarnings()
		transferRef, err := s.processor.Transfer(sessCtx, account.RecipientRef, earnings)
		if err != nil {
			result = s.recordTransferFailure(sessCtx, booking, fmt.Sprintf("processor transfer failed: %v", err))
			return nil
		}

		booking.PaymentStatus = model.PaymentTransferCompleted
		booking.TransferRef = transferRef
		if _, err := s.bookingRepo.Update(sessCtx, bookingID, booking); err != nil {
			return apperrors.Internal("Failed to record transfer", err)
		}
		result = &TransferResult{
			Success:          true,
			TransferRef:      transferRef,
			ProviderEarnings: earnings,
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to transfer to provider", "booking_id", bookingID, "error", err)
		return nil, err
	}

	if result.Success {
		s.cfg.Log.Info("Transfer completed",
			"booking_id", bookingID,
			"transfer_ref", result.TransferRef,
			"provider_earnings", result.ProviderEarnings,
		)
		s.publisher.Publish(ctx, events.Event{
			Type:      events.TypeTransferCompleted,
			BookingID: bookingID,
			Payload: map[string]any{
				"transfer_ref":      result.TransferRef,
				"provider_earnings": result.ProviderEarnings,
			},
		})
	} else {
		s.cfg.Log.Warn("Transfer requires manual processing",
			"booking_id", bookingID,
			"reason", result.Reason,
		)
		s.publisher.Publish(ctx, events.Event{
			Type:      events.TypeTransferFailed,
			BookingID: bookingID,
			Payload: map[string]any{
				"reason": result.Reason,
			},
		})
	}
	return result, nil
}

// recordTransferFailure flips the booking to transfer_failed inside the
// running transaction. An update failure here is logged but the structured
// result is returned regardless: the money did not move either way.
func (s *settlementService) recordTransferFailure(sessCtx mongo.SessionContext, booking *model.Booking, reason string) *TransferResult {
	booking.PaymentStatus = model.PaymentTransferFailed
	if _, err := s.bookingRepo.Update(sessCtx, booking.ID, booking); err != nil {
		s.cfg.Log.Error("Failed to record transfer failure", "booking_id", booking.ID, "error", err)
	}
	return &TransferResult{
		Success:                  false,
		RequiresManualProcessing: true,
		Reason:                   reason,
	}
}

// MarkManualTransfer records a transfer settled outside the automated path,
// without calling the processor.
func (s *settlementService) MarkManualTransfer(ctx context.Context, bookingID, outcome, resolverID, note string) error {
	if outcome != ManualOutcomeCompleted && outcome != ManualOutcomeFailed {
		return apperrors.InvalidInput(fmt.Sprintf("Manual transfer outcome must be %q or %q", ManualOutcomeCompleted, ManualOutcomeFailed))
	}

	err := s.bookingRepo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		booking, err := s.loadBooking(sessCtx, bookingID)
		if err != nil {
			return err
		}

		switch booking.PaymentStatus {
		case model.PaymentCaptured, model.PaymentTransferPending, model.PaymentTransferFailed:
		default:
			return apperrors.InvalidState(fmt.Sprintf("Cannot mark manual transfer in payment status %q", booking.PaymentStatus))
		}

		if outcome == ManualOutcomeCompleted {
			booking.PaymentStatus = model.PaymentTransferCompleted
		} else {
			booking.PaymentStatus = model.PaymentTransferFailed
		}
		booking.AdminResolutionNotes = appendAuditNote(booking.AdminResolutionNotes,
			fmt.Sprintf("manual transfer %s by %s: %s", outcome, resolverID, note))

		if _, err := s.bookingRepo.Update(sessCtx, bookingID, booking); err != nil {
			return apperrors.Internal("Failed to record manual transfer", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to mark manual transfer", "booking_id", bookingID, "error", err)
		return err
	}

	s.cfg.Log.Info("Manual transfer recorded",
		"booking_id", bookingID,
		"outcome", outcome,
		"resolver_id", resolverID,
	)
	eventType := events.TypeTransferCompleted
	if outcome == ManualOutcomeFailed {
		eventType = events.TypeTransferFailed
	}
	s.publisher.Publish(ctx, events.Event{
		Type:      eventType,
		BookingID: bookingID,
		Payload: map[string]any{
			"manual":      true,
			"resolver_id": resolverID,
		},
	})
	return nil
}

func (s *settlementService) loadBooking(ctx context.Context, bookingID string) (*model.Booking, error) {
	booking, err := s.bookingRepo.FindByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, verrors.ErrBookingNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", bookingID)
		}
		if errors.Is(err, verrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid booking ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}
	return booking, nil
}

func appendAuditNote(existing, note string) string {
	if existing == "" {
		return note
	}
	return existing + "; " + note
}
