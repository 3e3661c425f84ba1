package model

import (
	"time"
)

// Booking lifecycle statuses.
const (
	BookingPending        = "pending"
	BookingConfirmed      = "confirmed"
	BookingPaymentHeld    = "payment_held"
	BookingMeetingStarted = "meeting_started"
	BookingCompleted      = "completed"
	BookingCancelled      = "cancelled"
	BookingNoShow         = "no_show"
)

// Payment statuses.
const (
	PaymentUnauthorized      = "unauthorized"
	PaymentAuthorized        = "authorized"
	PaymentCaptured          = "captured"
	PaymentRefunded          = "refunded"
	PaymentTransferPending   = "transfer_pending"
	PaymentTransferCompleted = "transfer_completed"
	PaymentTransferFailed    = "transfer_failed"
)

// Admin resolution types for disputed bookings.
const (
	ResolutionRefunded     = "refunded"
	ResolutionPaidProvider = "paid_provider"
	ResolutionNoAction     = "no_action"
)

// CancelReasonLocationFailed marks bookings cancelled because location
// verification produced a terminal failure.
const CancelReasonLocationFailed = "location_verification_failed"

type Booking struct {
	ID             string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	RequesterID    string    `json:"requester_id" bson:"requester_id" validate:"required"`
	ProviderID     string    `json:"provider_id" bson:"provider_id" validate:"required"`
	ScheduledDate  time.Time `json:"scheduled_date" bson:"scheduled_date" validate:"required"`
	StartTime      time.Time `json:"start_time" bson:"start_time" validate:"required"`
	EndTime        time.Time `json:"end_time" bson:"end_time" validate:"required,gtfield=StartTime"`
	MeetingAddress string    `json:"meeting_address" bson:"meeting_address" validate:"required,min=2,max=300"`
	MeetingLat     *float64  `json:"meeting_lat,omitempty" bson:"meeting_lat,omitempty" validate:"omitempty,latitude"`
	MeetingLng     *float64  `json:"meeting_lng,omitempty" bson:"meeting_lng,omitempty" validate:"omitempty,longitude"`

	// Amounts are in the currency's minor unit.
	TotalAmount int64  `json:"total_amount" bson:"total_amount" validate:"required,min=1"`
	PlatformFee int64  `json:"platform_fee" bson:"platform_fee" validate:"min=0,ltefield=TotalAmount"`
	Currency    string `json:"currency" bson:"currency" validate:"required,len=3"`

	Status        string `json:"status" bson:"status" validate:"required,oneof=pending confirmed payment_held meeting_started completed cancelled no_show"`
	PaymentStatus string `json:"payment_status" bson:"payment_status" validate:"required,oneof=unauthorized authorized captured refunded transfer_pending transfer_completed transfer_failed"`

	AuthorizationRef string `json:"authorization_ref,omitempty" bson:"authorization_ref,omitempty"`
	TransferRef      string `json:"transfer_ref,omitempty" bson:"transfer_ref,omitempty"`

	CancelledBy  string     `json:"cancelled_by,omitempty" bson:"cancelled_by,omitempty"`
	CancelReason string     `json:"cancel_reason,omitempty" bson:"cancel_reason,omitempty"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty" bson:"cancelled_at,omitempty"`

	AdminResolved        bool       `json:"admin_resolved" bson:"admin_resolved"`
	AdminResolutionType  string     `json:"admin_resolution_type,omitempty" bson:"admin_resolution_type,omitempty" validate:"omitempty,oneof=refunded paid_provider no_action"`
	AdminResolvedBy      string     `json:"admin_resolved_by,omitempty" bson:"admin_resolved_by,omitempty"`
	AdminResolutionNotes string     `json:"admin_resolution_notes,omitempty" bson:"admin_resolution_notes,omitempty"`
	AdminResolvedAt      *time.Time `json:"admin_resolved_at,omitempty" bson:"admin_resolved_at,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}

// Verifiable reports whether the booking may enter the verification engine.
func (b *Booking) Verifiable() bool {
	return b.Status == BookingConfirmed || b.Status == BookingPaymentHeld
}

// HasMeetingCoordinates reports whether the meeting location carries a full
// coordinate pair. Verification cannot begin without one.
func (b *Booking) HasMeetingCoordinates() bool {
	return b.MeetingLat != nil && b.MeetingLng != nil
}

// IsParty reports whether the given actor is the requester or the provider.
func (b *Booking) IsParty(actorID string) bool {
	return actorID == b.RequesterID || actorID == b.ProviderID
}

// ProviderEarnings is the payout amount after the platform fee.
func (b *Booking) ProviderEarnings() int64 {
	return b.TotalAmount - b.PlatformFee
}
