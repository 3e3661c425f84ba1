package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	verrors "meetproof/internal/verifications/errors"
	"meetproof/internal/verifications/repository"
	"meetproof/internal/verifications/validator"
	"meetproof/pkg/config"
	apperrors "meetproof/pkg/errors"
	"meetproof/pkg/events"
	"meetproof/pkg/geo"
	"meetproof/pkg/model"
	"meetproof/pkg/sealer"

	"go.mongodb.org/mongo-driver/mongo"
)

// Submission outcomes. WrongCode is a recorded, rate-limited outcome rather
// than an error: the caller gets the remaining attempt count back.
const (
	OutcomeWrongCode       = "wrong_code"
	OutcomeWaitingForOther = "waiting_for_other"
	OutcomeVerified        = "verified"
	OutcomeFailed          = "failed"
)

// SubmissionResult is the caller-visible outcome of one code submission.
// Distances are rounded to whole meters.
type SubmissionResult struct {
	Outcome           string   `json:"outcome"`
	RemainingAttempts *int     `json:"remaining_attempts,omitempty"`
	RequesterDistance *float64 `json:"requester_distance,omitempty"`
	ProviderDistance  *float64 `json:"provider_distance,omitempty"`
	RadiusMeters      float64  `json:"radius_meters,omitempty"`
	Reason            string   `json:"reason,omitempty"`
}

// Settler is the slice of the settlement layer the verification engine needs:
// releasing the held authorization after a terminal failure.
type Settler interface {
	CancelAuthorization(ctx context.Context, bookingID, cancelledBy, reason string) error
}

type VerificationService interface {
	SubmitCode(ctx context.Context, sub *model.CodeSubmission) (*SubmissionResult, error)
	GetStatus(ctx context.Context, bookingID, actorID string) (*model.VerificationRecord, error)
}

type verificationService struct {
	bookingRepo repository.BookingRepository
	verRepo     repository.VerificationRepository
	lockRepo    repository.VerificationLockRepository
	validator   *validator.VerificationValidator
	settler     Settler
	publisher   events.Publisher
	cfg         *config.Config
}

func NewVerificationService(
	bookingRepo repository.BookingRepository,
	verRepo repository.VerificationRepository,
	lockRepo repository.VerificationLockRepository,
	validator *validator.VerificationValidator,
	settler Settler,
	publisher events.Publisher,
	cfg *config.Config,
) VerificationService {
	return &verificationService{
		bookingRepo: bookingRepo,
		verRepo:     verRepo,
		lockRepo:    lockRepo,
		validator:   validator,
		settler:     settler,
		publisher:   publisher,
		cfg:         cfg,
	}
}

// SubmitCode runs one party's proof submission. The whole read-modify-write
// sequence executes inside an advisory lock plus a mongo transaction so that
// concurrent submissions for the same booking serialize; submissions for
// different bookings never contend. The auto-refund on terminal failure and
// event publication happen after commit, best-effort.
func (s *verificationService) SubmitCode(ctx context.Context, sub *model.CodeSubmission) (*SubmissionResult, error) {
	if err := s.validator.ValidateSubmission(sub); err != nil {
		s.cfg.Log.Warn("Code submission validation failed", "booking_id", sub.BookingID, "error", err)
		return nil, apperrors.Validation("Invalid submission", map[string]any{"error": err.Error()})
	}

	lockID, err := s.acquireBookingLock(ctx, sub.BookingID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if releaseErr := s.releaseBookingLock(ctx, lockID); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release verification lock", "lock_id", lockID, "error", releaseErr)
		}
	}()

	var result *SubmissionResult

	err = s.bookingRepo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		booking, err := s.loadBooking(sessCtx, sub.BookingID)
		if err != nil {
			return err
		}
		if !booking.IsParty(sub.ActorID) {
			return apperrors.Forbidden("Actor is not a party to this booking")
		}
		if !booking.Verifiable() {
			return apperrors.InvalidState(fmt.Sprintf("Booking in status %q cannot be verified", booking.Status))
		}
		if !booking.HasMeetingCoordinates() {
			return apperrors.InvalidState("Booking has no meeting coordinates")
		}

		record, err := s.verRepo.FindByBookingID(sessCtx, sub.BookingID)
		if err != nil {
			if errors.Is(err, verrors.ErrRecordNotFound) {
				return apperrors.NotFoundWithID("Verification record", sub.BookingID)
			}
			return apperrors.Internal("Failed to load verification record", err)
		}
		if record.Terminal() {
			return apperrors.AlreadyResolved(fmt.Sprintf("Verification is already %s", record.Status))
		}

		role := model.RoleProvider
		if sub.ActorID == booking.RequesterID {
			role = model.RoleRequester
		}
		party := record.Party(role)

		if party.Attempts() >= s.cfg.MaxCodeAttempts {
			return apperrors.AttemptsExceeded(fmt.Sprintf("No attempts remaining (max %d)", s.cfg.MaxCodeAttempts))
		}
		if party.Entered() {
			return apperrors.AlreadySubmitted("Code already entered for this party")
		}

		expected, err := sealer.Open(party.ExpectedCode())
		if err != nil {
			return apperrors.Internal("Failed to unseal verification code", err)
		}

		if sub.Code != expected {
			party.IncrementAttempts()
			if _, err := s.verRepo.Update(sessCtx, record.ID, record); err != nil {
				return apperrors.Internal("Failed to record attempt", err)
			}
			remaining := max(0, s.cfg.MaxCodeAttempts-party.Attempts())
			result = &SubmissionResult{
				Outcome:           OutcomeWrongCode,
				RemainingAttempts: &remaining,
			}
			return nil
		}

		party.MarkEntered(sub.Lat, sub.Lng)

		if !record.BothEntered() {
			if _, err := s.verRepo.Update(sessCtx, record.ID, record); err != nil {
				return apperrors.Internal("Failed to record submission", err)
			}
			result = &SubmissionResult{Outcome: OutcomeWaitingForOther}
			return nil
		}

		result = s.decideOutcome(booking, record)
		if _, err := s.verRepo.Update(sessCtx, record.ID, record); err != nil {
			return apperrors.Internal("Failed to record verification outcome", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, sub.BookingID, result)
	return result, nil
}

// decideOutcome runs once both parties have entered their counterpart's code:
// both distances from the meeting location are computed and compared to the
// configured radius. Either way the record turns terminal here.
func (s *verificationService) decideOutcome(booking *model.Booking, record *model.VerificationRecord) *SubmissionResult {
	radius := s.cfg.VerificationRadiusMeters

	for _, role := range []model.Role{model.RoleRequester, model.RoleProvider} {
		party := record.Party(role)
		lat, lng, _ := party.Location()
		party.SetDistance(geo.Distance(lat, lng, *booking.MeetingLat, *booking.MeetingLng))
	}

	reqDistance := roundMeters(*record.RequesterDistance)
	provDistance := roundMeters(*record.ProviderDistance)

	if *record.RequesterDistance <= radius && *record.ProviderDistance <= radius {
		now := time.Now().UTC().Truncate(time.Millisecond)
		record.Status = model.VerificationVerified
		record.LocationVerified = true
		record.VerifiedAt = &now
		return &SubmissionResult{
			Outcome:           OutcomeVerified,
			RequesterDistance: &reqDistance,
			ProviderDistance:  &provDistance,
			RadiusMeters:      radius,
		}
	}

	record.Status = model.VerificationFailed
	record.FailureReason = failureReason(*record.RequesterDistance, *record.ProviderDistance, radius)
	return &SubmissionResult{
		Outcome:           OutcomeFailed,
		RequesterDistance: &reqDistance,
		ProviderDistance:  &provDistance,
		RadiusMeters:      radius,
		Reason:            record.FailureReason,
	}
}

// afterCommit runs the best-effort side effects of a terminal outcome. A
// refund failure here is logged and leaves the booking for the dispute layer;
// it never reopens the verification.
func (s *verificationService) afterCommit(ctx context.Context, bookingID string, result *SubmissionResult) {
	switch result.Outcome {
	case OutcomeVerified:
		s.cfg.Log.Info("Verification succeeded",
			"booking_id", bookingID,
			"requester_distance", *result.RequesterDistance,
			"provider_distance", *result.ProviderDistance,
		)
		s.publisher.Publish(ctx, events.Event{
			Type:      events.TypeVerificationVerified,
			BookingID: bookingID,
			Payload: map[string]any{
				"requester_distance": *result.RequesterDistance,
				"provider_distance":  *result.ProviderDistance,
				"radius_meters":      result.RadiusMeters,
			},
		})
	case OutcomeFailed:
		s.cfg.Log.Warn("Verification failed",
			"booking_id", bookingID,
			"reason", result.Reason,
		)
		s.publisher.Publish(ctx, events.Event{
			Type:      events.TypeVerificationFailed,
			BookingID: bookingID,
			Payload: map[string]any{
				"requester_distance": *result.RequesterDistance,
				"provider_distance":  *result.ProviderDistance,
				"radius_meters":      result.RadiusMeters,
				"reason":             result.Reason,
			},
		})
		if err := s.settler.CancelAuthorization(ctx, bookingID, "system", model.CancelReasonLocationFailed); err != nil {
			s.cfg.Log.Error("Auto-refund after failed verification did not complete; booking left for dispute handling",
				"booking_id", bookingID,
				"error", err,
			)
		}
	}
}

func (s *verificationService) GetStatus(ctx context.Context, bookingID, actorID string) (*model.VerificationRecord, error) {
	if bookingID == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !booking.IsParty(actorID) {
		return nil, apperrors.Forbidden("Actor is not a party to this booking")
	}

	record, err := s.verRepo.FindByBookingID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, verrors.ErrRecordNotFound) {
			return nil, apperrors.NotFoundWithID("Verification record", bookingID)
		}
		return nil, apperrors.Internal("Failed to load verification record", err)
	}

	return record, nil
}

func (s *verificationService) loadBooking(ctx context.Context, bookingID string) (*model.Booking, error) {
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

// failureReason names the offending party (or both) with how far out they were.
func failureReason(reqDistance, provDistance, radius float64) string {
	reqOut := reqDistance > radius
	provOut := provDistance > radius

	switch {
	case reqOut && provOut:
		return fmt.Sprintf("both parties were outside the %.0fm radius: requester %.0fm, provider %.0fm",
			radius, reqDistance, provDistance)
	case reqOut:
		return fmt.Sprintf("requester was %.0fm from the meeting location (allowed %.0fm)", reqDistance, radius)
	default:
		return fmt.Sprintf("provider was %.0fm from the meeting location (allowed %.0fm)", provDistance, radius)
	}
}

func roundMeters(meters float64) float64 {
	return math.Round(meters)
}

// acquireBookingLock creates an advisory lock so concurrent submissions for
// the same booking serialize. Returns conflict if the lock is already held.
func (s *verificationService) acquireBookingLock(ctx context.Context, bookingID string) (string, error) {
	lockID := fmt.Sprintf("verification_lock_%s", bookingID)

	lock := &model.VerificationLock{
		ID:        lockID,
		ExpiresAt: time.Now().Add(s.cfg.VerificationLockTTL),
	}

	_, err := s.lockRepo.Create(ctx, lock)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", apperrors.Conflict("Another submission for this booking is in progress. Please try again.")
		}
		return "", apperrors.Internal("Failed to acquire verification lock", err)
	}

	return lockID, nil
}

func (s *verificationService) releaseBookingLock(ctx context.Context, lockID string) error {
	return s.lockRepo.Delete(ctx, lockID)
}
