package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"meetproof/internal/verifications/validator"
	"meetproof/pkg/config"
	apperrors "meetproof/pkg/errors"
	"meetproof/pkg/events"
	"meetproof/pkg/logger"
	"meetproof/pkg/model"
	"meetproof/pkg/sealer"

	mongotx "meetproof/pkg/db/mongo"

	"go.mongodb.org/mongo-driver/mongo"
)

const (
	testBookingID = "64a1f0aa1234567890abcdef"
	testRecordID  = "64a1f0aa1234567890abcd00"
	requesterID   = "user-requester"
	providerID    = "user-provider"
	requesterCode = "111111"
	providerCode  = "222222"
)

type mockBookingRepo struct {
	booking *model.Booking
}

func (m *mockBookingRepo) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	return m.booking, nil
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

type mockVerificationRepo struct {
	record  *model.VerificationRecord
	updates int
}

func (m *mockVerificationRepo) Create(ctx context.Context, record *model.VerificationRecord) error {
	m.record = record
	return nil
}

func (m *mockVerificationRepo) FindByBookingID(ctx context.Context, bookingID string) (*model.VerificationRecord, error) {
	return m.record, nil
}

func (m *mockVerificationRepo) Update(ctx context.Context, id string, record *model.VerificationRecord) (*mongo.UpdateResult, error) {
	m.record = record
	m.updates++
	return &mongo.UpdateResult{MatchedCount: 1}, nil
}

type mockLockRepo struct {
	createErr error
	created   []string
	deleted   []string
}

func (m *mockLockRepo) Create(ctx context.Context, lock *model.VerificationLock) (*model.VerificationLock, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.created = append(m.created, lock.ID)
	return lock, nil
}

func (m *mockLockRepo) Delete(ctx context.Context, lockID string) error {
	m.deleted = append(m.deleted, lockID)
	return nil
}

type mockSettler struct {
	calls  int
	reason string
	err    error
}

func (m *mockSettler) CancelAuthorization(ctx context.Context, bookingID, cancelledBy, reason string) error {
	m.calls++
	m.reason = reason
	return m.err
}

type capturePublisher struct {
	published []events.Event
}

func (p *capturePublisher) Publish(ctx context.Context, event events.Event) {
	p.published = append(p.published, event)
}

func testConfig() *config.Config {
	return &config.Config{
		VerificationRadiusMeters: 100,
		OTPCodeLength:            6,
		MaxCodeAttempts:          3,
		VerificationLockTTL:      10 * time.Second,
		Log:                      logger.New(logger.Config{Output: io.Discard}),
	}
}

func sealedCode(t *testing.T, code string) string {
	t.Helper()
	sealed, err := sealer.Seal(code)
	if err != nil {
		t.Fatalf("failed to seal code: %v", err)
	}
	return sealed
}

type fixture struct {
	service   VerificationService
	bookings  *mockBookingRepo
	records   *mockVerificationRepo
	locks     *mockLockRepo
	settler   *mockSettler
	publisher *capturePublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testConfig()

	lat, lng := 0.0, 0.0
	bookings := &mockBookingRepo{
		booking: &model.Booking{
			ID:               testBookingID,
			RequesterID:      requesterID,
			ProviderID:       providerID,
			Status:           model.BookingPaymentHeld,
			PaymentStatus:    model.PaymentAuthorized,
			AuthorizationRef: "auth_1",
			MeetingLat:       &lat,
			MeetingLng:       &lng,
			TotalAmount:      10000,
			PlatformFee:      1500,
			Currency:         "thb",
		},
	}
	records := &mockVerificationRepo{
		record: &model.VerificationRecord{
			ID:            testRecordID,
			BookingID:     testBookingID,
			RequesterCode: sealedCode(t, requesterCode),
			ProviderCode:  sealedCode(t, providerCode),
			Status:        model.VerificationPending,
		},
	}
	locks := &mockLockRepo{}
	settler := &mockSettler{}
	publisher := &capturePublisher{}

	svc := NewVerificationService(
		bookings,
		records,
		locks,
		validator.NewVerificationValidator(cfg.Log, cfg.OTPCodeLength),
		settler,
		publisher,
		cfg,
	)

	return &fixture{
		service:   svc,
		bookings:  bookings,
		records:   records,
		locks:     locks,
		settler:   settler,
		publisher: publisher,
	}
}

func submission(actorID, code string, lat, lng float64) *model.CodeSubmission {
	return &model.CodeSubmission{
		BookingID: testBookingID,
		ActorID:   actorID,
		Code:      code,
		Lat:       lat,
		Lng:       lng,
	}
}

func TestSubmitCode_WrongCodeReturnsRemainingAttempts(t *testing.T) {
	f := newFixture(t)

	// Requester must enter the provider's code; their own is wrong.
	result, err := f.service.SubmitCode(context.Background(), submission(requesterID, requesterCode, 0, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Outcome != OutcomeWrongCode {
		t.Fatalf("outcome = %q, want %q", result.Outcome, OutcomeWrongCode)
	}
	if result.RemainingAttempts == nil || *result.RemainingAttempts != 2 {
		t.Fatalf("remaining attempts = %v, want 2", result.RemainingAttempts)
	}
	if f.records.record.RequesterAttempts != 1 {
		t.Errorf("requester attempts = %d, want 1", f.records.record.RequesterAttempts)
	}
}

func TestSubmitCode_ThirdWrongAttemptReportsZeroThenBlocked(t *testing.T) {
	f := newFixture(t)

	var last *SubmissionResult
	for i := 0; i < 3; i++ {
		result, err := f.service.SubmitCode(context.Background(), submission(requesterID, "999999", 0, 0))
		if err != nil {
			t.Fatalf("attempt %d: unexpected error: %v", i+1, err)
		}
		last = result
	}
	if last.RemainingAttempts == nil || *last.RemainingAttempts != 0 {
		t.Fatalf("third attempt remaining = %v, want 0", last.RemainingAttempts)
	}

	_, err := f.service.SubmitCode(context.Background(), submission(requesterID, "999999", 0, 0))
	if !apperrors.HasCode(err, apperrors.CodeAttemptsExceeded) {
		t.Fatalf("fourth attempt error = %v, want ATTEMPTS_EXCEEDED", err)
	}
	if f.records.record.RequesterAttempts != 3 {
		t.Errorf("attempt counter = %d, must never exceed 3", f.records.record.RequesterAttempts)
	}
}

func TestSubmitCode_FirstCorrectSubmissionWaits(t *testing.T) {
	f := newFixture(t)

	result, err := f.service.SubmitCode(context.Background(), submission(requesterID, providerCode, 0, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Outcome != OutcomeWaitingForOther {
		t.Fatalf("outcome = %q, want %q", result.Outcome, OutcomeWaitingForOther)
	}
	if !f.records.record.RequesterEntered {
		t.Error("requester entered flag not set")
	}
	if f.records.record.Terminal() {
		t.Error("record must stay pending until both parties enter")
	}
	if len(f.publisher.published) != 0 {
		t.Errorf("no events expected yet, got %d", len(f.publisher.published))
	}
}

func TestSubmitCode_BothWithinRadiusVerifies(t *testing.T) {
	f := newFixture(t)

	if _, err := f.service.SubmitCode(context.Background(), submission(requesterID, providerCode, 0, 0)); err != nil {
		t.Fatalf("requester submission: %v", err)
	}

	// ~55m from the meeting point.
	result, err := f.service.SubmitCode(context.Background(), submission(providerID, requesterCode, 0, 0.0005))
	if err != nil {
		t.Fatalf("provider submission: %v", err)
	}

	if result.Outcome != OutcomeVerified {
		t.Fatalf("outcome = %q, want %q", result.Outcome, OutcomeVerified)
	}
	if *result.RequesterDistance > 100 || *result.ProviderDistance > 100 {
		t.Errorf("distances (%v, %v) must both be within 100m", *result.RequesterDistance, *result.ProviderDistance)
	}
	rec := f.records.record
	if rec.Status != model.VerificationVerified || !rec.LocationVerified || rec.VerifiedAt == nil {
		t.Errorf("record not finalized as verified: status=%q location_verified=%v verified_at=%v",
			rec.Status, rec.LocationVerified, rec.VerifiedAt)
	}
	if f.settler.calls != 0 {
		t.Error("no refund expected on success")
	}
	if len(f.publisher.published) != 1 || f.publisher.published[0].Type != events.TypeVerificationVerified {
		t.Errorf("expected a single %s event, got %+v", events.TypeVerificationVerified, f.publisher.published)
	}
}

func TestSubmitCode_PartyOutsideRadiusFails(t *testing.T) {
	f := newFixture(t)

	if _, err := f.service.SubmitCode(context.Background(), submission(requesterID, providerCode, 0, 0)); err != nil {
		t.Fatalf("requester submission: %v", err)
	}

	// ~222m from the meeting point.
	result, err := f.service.SubmitCode(context.Background(), submission(providerID, requesterCode, 0, 0.002))
	if err != nil {
		t.Fatalf("provider submission: %v", err)
	}

	if result.Outcome != OutcomeFailed {
		t.Fatalf("outcome = %q, want %q", result.Outcome, OutcomeFailed)
	}
	if !strings.Contains(result.Reason, "provider") {
		t.Errorf("reason %q must identify the provider as the offending party", result.Reason)
	}
	if result.RadiusMeters != 100 {
		t.Errorf("radius = %v, want 100", result.RadiusMeters)
	}
	if f.records.record.Status != model.VerificationFailed {
		t.Errorf("record status = %q, want failed", f.records.record.Status)
	}
	if f.settler.calls != 1 {
		t.Fatalf("refund attempts = %d, want 1", f.settler.calls)
	}
	if f.settler.reason != model.CancelReasonLocationFailed {
		t.Errorf("cancel reason = %q, want %q", f.settler.reason, model.CancelReasonLocationFailed)
	}
	if len(f.publisher.published) != 1 || f.publisher.published[0].Type != events.TypeVerificationFailed {
		t.Errorf("expected a single %s event, got %+v", events.TypeVerificationFailed, f.publisher.published)
	}
}

func TestSubmitCode_RefundFailureDoesNotReopenVerification(t *testing.T) {
	f := newFixture(t)
	f.settler.err = apperrors.ProcessorFailure("processor down", nil)

	if _, err := f.service.SubmitCode(context.Background(), submission(requesterID, providerCode, 0, 0)); err != nil {
		t.Fatalf("requester submission: %v", err)
	}
	result, err := f.service.SubmitCode(context.Background(), submission(providerID, requesterCode, 0, 0.002))
	if err != nil {
		t.Fatalf("refund failure must not surface to the submitter: %v", err)
	}
	if result.Outcome != OutcomeFailed {
		t.Fatalf("outcome = %q, want %q", result.Outcome, OutcomeFailed)
	}
	if f.records.record.Status != model.VerificationFailed {
		t.Error("verification outcome must stay failed regardless of settlement success")
	}
}

func TestSubmitCode_TerminalRecordRejected(t *testing.T) {
	f := newFixture(t)
	f.records.record.Status = model.VerificationVerified

	_, err := f.service.SubmitCode(context.Background(), submission(requesterID, providerCode, 0, 0))
	if !apperrors.HasCode(err, apperrors.CodeAlreadyResolved) {
		t.Fatalf("error = %v, want ALREADY_RESOLVED", err)
	}
}

func TestSubmitCode_ResubmissionRejected(t *testing.T) {
	f := newFixture(t)

	if _, err := f.service.SubmitCode(context.Background(), submission(requesterID, providerCode, 0, 0)); err != nil {
		t.Fatalf("first submission: %v", err)
	}
	_, err := f.service.SubmitCode(context.Background(), submission(requesterID, providerCode, 0, 0))
	if !apperrors.HasCode(err, apperrors.CodeAlreadySubmitted) {
		t.Fatalf("error = %v, want ALREADY_SUBMITTED", err)
	}
}

func TestSubmitCode_NonPartyForbidden(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.SubmitCode(context.Background(), submission("user-stranger", providerCode, 0, 0))
	if !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Fatalf("error = %v, want FORBIDDEN", err)
	}
}

func TestSubmitCode_UnverifiableStatusRejected(t *testing.T) {
	f := newFixture(t)
	f.bookings.booking.Status = model.BookingCancelled

	_, err := f.service.SubmitCode(context.Background(), submission(requesterID, providerCode, 0, 0))
	if !apperrors.HasCode(err, apperrors.CodeInvalidState) {
		t.Fatalf("error = %v, want INVALID_STATE", err)
	}
}

func TestSubmitCode_MissingCoordinatesRejected(t *testing.T) {
	f := newFixture(t)
	f.bookings.booking.MeetingLng = nil

	_, err := f.service.SubmitCode(context.Background(), submission(requesterID, providerCode, 0, 0))
	if !apperrors.HasCode(err, apperrors.CodeInvalidState) {
		t.Fatalf("error = %v, want INVALID_STATE", err)
	}
}

func TestSubmitCode_MalformedCodeRejected(t *testing.T) {
	f := newFixture(t)

	for _, code := range []string{"12345", "1234567", "12a456", ""} {
		_, err := f.service.SubmitCode(context.Background(), submission(requesterID, code, 0, 0))
		if !apperrors.HasCode(err, apperrors.CodeValidation) {
			t.Errorf("code %q: error = %v, want VALIDATION_ERROR", code, err)
		}
	}
}

func TestSubmitCode_ConcurrentSubmissionConflicts(t *testing.T) {
	f := newFixture(t)
	f.locks.createErr = mongo.WriteException{
		WriteErrors: mongo.WriteErrors{{Code: 11000}},
	}

	_, err := f.service.SubmitCode(context.Background(), submission(requesterID, providerCode, 0, 0))
	if !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Fatalf("error = %v, want CONFLICT", err)
	}
}

func TestSubmitCode_ReleasesLockOnEveryPath(t *testing.T) {
	f := newFixture(t)

	if _, err := f.service.SubmitCode(context.Background(), submission(requesterID, providerCode, 0, 0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.service.SubmitCode(context.Background(), submission(requesterID, providerCode, 0, 0)); err == nil {
		t.Fatal("expected ALREADY_SUBMITTED error")
	}

	if len(f.locks.created) != len(f.locks.deleted) {
		t.Errorf("locks created (%d) and released (%d) must match", len(f.locks.created), len(f.locks.deleted))
	}
}
