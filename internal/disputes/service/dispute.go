package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	settlements "meetproof/internal/settlements/service"
	verrors "meetproof/internal/verifications/errors"
	"meetproof/internal/verifications/repository"
	"meetproof/pkg/config"
	apperrors "meetproof/pkg/errors"
	"meetproof/pkg/events"
	"meetproof/pkg/model"
	"meetproof/pkg/sanitizer"

	"go.mongodb.org/mongo-driver/mongo"
)

// CancelReasonAdminRefund marks bookings cancelled by an admin refund
// resolution.
const CancelReasonAdminRefund = "admin_refund"

// Resolution is the admin input for resolving a disputed booking.
type Resolution struct {
	BookingID  string `json:"-" validate:"required,mongodb"`
	ResolverID string `json:"resolver_id" validate:"required"`
	Notes      string `json:"notes,omitempty"`
}

// DisputeService surfaces bookings stuck past their meeting window with funds
// still held, and exposes the manual resolutions. Each booking resolves
// exactly once: the admin_resolved latch is one-way.
type DisputeService interface {
	ListDisputed(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error)
	ResolveRefund(ctx context.Context, res *Resolution) error
	ResolveCapturePay(ctx context.Context, res *Resolution) (*settlements.TransferResult, error)
	ResolveNoAction(ctx context.Context, res *Resolution) error
	RetryTransfer(ctx context.Context, bookingID, resolverID string) (*settlements.TransferResult, error)
	Sweep(ctx context.Context) error
}

type disputeService struct {
	bookingRepo repository.BookingRepository
	lockRepo    repository.VerificationLockRepository
	settlement  settlements.SettlementService
	payouts     settlements.PayoutDirectory
	publisher   events.Publisher
	cfg         *config.Config
}

func NewDisputeService(
	bookingRepo repository.BookingRepository,
	lockRepo repository.VerificationLockRepository,
	settlement settlements.SettlementService,
	payouts settlements.PayoutDirectory,
	publisher events.Publisher,
	cfg *config.Config,
) DisputeService {
	return &disputeService{
		bookingRepo: bookingRepo,
		lockRepo:    lockRepo,
		settlement:  settlement,
		payouts:     payouts,
		publisher:   publisher,
		cfg:         cfg,
	}
}

func (s *disputeService) ListDisputed(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error) {
	now := time.Now().UTC()

	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.bookingRepo.CountDisputed(ctx, now)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count disputed bookings", "error", errCount)
			errCount = apperrors.Internal("Failed to count disputed bookings", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		bookings, errFind = s.bookingRepo.FindDisputed(ctx, now, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list disputed bookings", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve disputed bookings", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return bookings, count, nil
}

// ResolveRefund releases the authorization and cancels the booking.
func (s *disputeService) ResolveRefund(ctx context.Context, res *Resolution) error {
	return s.resolve(ctx, res, model.ResolutionRefunded, func(ctx context.Context) error {
		return s.settlement.CancelAuthorization(ctx, res.BookingID, res.ResolverID, CancelReasonAdminRefund)
	})
}

// ResolveCapturePay captures the held payment and pays the provider. A
// transfer failure after a successful capture still records the resolution:
// the booking is completed and the payout stays in transfer_failed for manual
// handling.
func (s *disputeService) ResolveCapturePay(ctx context.Context, res *Resolution) (*settlements.TransferResult, error) {
	var transferResult *settlements.TransferResult

	err := s.resolve(ctx, res, model.ResolutionPaidProvider, func(ctx context.Context) error {
		booking, err := s.loadBooking(ctx, res.BookingID)
		if err != nil {
			return err
		}
		account, err := s.payouts.GetPayoutAccount(booking.ProviderID)
		if err != nil {
			return apperrors.Internal("Failed to look up payout destination", err)
		}
		if account == nil || !account.Active {
			return apperrors.PayoutDestinationMissing(booking.ProviderID)
		}

		if err := s.settlement.CapturePayment(ctx, res.BookingID); err != nil {
			return err
		}

		transferResult, err = s.settlement.TransferToProvider(ctx, res.BookingID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return transferResult, nil
}

// ResolveNoAction closes the dispute without touching the financial fields.
func (s *disputeService) ResolveNoAction(ctx context.Context, res *Resolution) error {
	return s.resolve(ctx, res, model.ResolutionNoAction, nil)
}

// resolve runs the shared resolution protocol: serialize per booking via the
// advisory lock, check the one-way latch, run the financial action, then
// record the resolution. A failed financial action leaves the latch unset so
// the admin can retry.
func (s *disputeService) resolve(ctx context.Context, res *Resolution, resolutionType string, action func(ctx context.Context) error) error {
	lockID, err := s.acquireResolutionLock(ctx, res.BookingID)
	if err != nil {
		return err
	}
	defer func() {
		if releaseErr := s.lockRepo.Delete(ctx, lockID); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release resolution lock", "lock_id", lockID, "error", releaseErr)
		}
	}()

	booking, err := s.loadBooking(ctx, res.BookingID)
	if err != nil {
		return err
	}
	if booking.AdminResolved {
		return apperrors.AlreadyResolved(fmt.Sprintf("Booking already resolved as %q", booking.AdminResolutionType))
	}

	if action != nil {
		if err := action(ctx); err != nil {
			return err
		}
	}

	err = s.bookingRepo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		booking, err := s.loadBooking(sessCtx, res.BookingID)
		if err != nil {
			return err
		}
		if booking.AdminResolved {
			return apperrors.AlreadyResolved(fmt.Sprintf("Booking already resolved as %q", booking.AdminResolutionType))
		}

		now := time.Now().UTC().Truncate(time.Millisecond)
		booking.AdminResolved = true
		booking.AdminResolutionType = resolutionType
		booking.AdminResolvedBy = res.ResolverID
		booking.AdminResolutionNotes = sanitizer.SanitizeNote(res.Notes)
		booking.AdminResolvedAt = &now

		switch resolutionType {
		case model.ResolutionPaidProvider, model.ResolutionNoAction:
			booking.Status = model.BookingCompleted
		}

		if _, err := s.bookingRepo.Update(sessCtx, res.BookingID, booking); err != nil {
			return apperrors.Internal("Failed to record resolution", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to record dispute resolution",
			"booking_id", res.BookingID,
			"resolution_type", resolutionType,
			"error", err,
		)
		return err
	}

	s.cfg.Log.Info("Dispute resolved",
		"booking_id", res.BookingID,
		"resolution_type", resolutionType,
		"resolver_id", res.ResolverID,
	)
	if resolutionType == model.ResolutionPaidProvider || resolutionType == model.ResolutionNoAction {
		s.publisher.Publish(ctx, events.Event{
			Type:      events.TypeBookingCompleted,
			BookingID: res.BookingID,
			Payload: map[string]any{
				"resolution_type": resolutionType,
				"resolver_id":     res.ResolverID,
			},
		})
	}
	return nil
}

// RetryTransfer re-runs a failed payout on explicit admin request; transfers
// are never retried automatically.
func (s *disputeService) RetryTransfer(ctx context.Context, bookingID, resolverID string) (*settlements.TransferResult, error) {
	booking, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.PaymentStatus != model.PaymentTransferFailed {
		return nil, apperrors.InvalidState(fmt.Sprintf("Cannot retry transfer in payment status %q", booking.PaymentStatus))
	}

	s.cfg.Log.Info("Retrying transfer", "booking_id", bookingID, "resolver_id", resolverID)
	return s.settlement.TransferToProvider(ctx, bookingID)
}

// Sweep runs the dispute detection query and publishes a flag event for each
// booking currently stuck. Consumers deduplicate on booking id.
func (s *disputeService) Sweep(ctx context.Context) error {
	now := time.Now().UTC()

	count, err := s.bookingRepo.CountDisputed(ctx, now)
	if err != nil {
		return apperrors.Internal("Dispute sweep count failed", err)
	}
	if count == 0 {
		return nil
	}

	const sweepPageSize = 100
	var offset int64
	for {
		bookings, err := s.bookingRepo.FindDisputed(ctx, now, sweepPageSize, offset)
		if err != nil {
			return apperrors.Internal("Dispute sweep query failed", err)
		}
		if len(bookings) == 0 {
			break
		}

		for _, booking := range bookings {
			s.publisher.Publish(ctx, events.Event{
				Type:      events.TypeDisputeFlagged,
				BookingID: booking.ID,
				Payload: map[string]any{
					"status":         booking.Status,
					"payment_status": booking.PaymentStatus,
					"end_time":       booking.EndTime,
				},
			})
		}
		offset += int64(len(bookings))
	}

	s.cfg.Log.Info("Dispute sweep completed", "flagged", count)
	return nil
}

func (s *disputeService) loadBooking(ctx context.Context, bookingID string) (*model.Booking, error) {
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

func (s *disputeService) acquireResolutionLock(ctx context.Context, bookingID string) (string, error) {
	lockID := fmt.Sprintf("resolution_lock_%s", bookingID)

	lock := &model.VerificationLock{
		ID:        lockID,
		ExpiresAt: time.Now().Add(s.cfg.VerificationLockTTL),
	}

	if _, err := s.lockRepo.Create(ctx, lock); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", apperrors.Conflict("Another resolution for this booking is in progress. Please try again.")
		}
		return "", apperrors.Internal("Failed to acquire resolution lock", err)
	}

	return lockID, nil
}
