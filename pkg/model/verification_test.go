package model

import "testing"

func TestRole_Other(t *testing.T) {
	if RoleRequester.Other() != RoleProvider {
		t.Error("requester counterpart should be provider")
	}
	if RoleProvider.Other() != RoleRequester {
		t.Error("provider counterpart should be requester")
	}
}

func TestPartyView_ExpectedCodeIsCounterparts(t *testing.T) {
	rec := &VerificationRecord{
		RequesterCode: "sealed-req",
		ProviderCode:  "sealed-prov",
	}
	if got := rec.Party(RoleRequester).ExpectedCode(); got != "sealed-prov" {
		t.Errorf("requester must enter the provider's code, got %q", got)
	}
	if got := rec.Party(RoleProvider).ExpectedCode(); got != "sealed-req" {
		t.Errorf("provider must enter the requester's code, got %q", got)
	}
}

func TestPartyView_AttemptsAndEnteredAreRoleScoped(t *testing.T) {
	rec := &VerificationRecord{Status: VerificationPending}

	req := rec.Party(RoleRequester)
	req.IncrementAttempts()
	req.IncrementAttempts()
	if req.Attempts() != 2 {
		t.Errorf("requester attempts = %d, want 2", req.Attempts())
	}
	if rec.Party(RoleProvider).Attempts() != 0 {
		t.Error("provider attempts must be untouched by requester increments")
	}

	req.MarkEntered(12.5, -7.25)
	if !rec.RequesterEntered {
		t.Error("MarkEntered did not set the requester flag")
	}
	if rec.ProviderEntered {
		t.Error("MarkEntered leaked into the provider flag")
	}
	lat, lng, ok := req.Location()
	if !ok || lat != 12.5 || lng != -7.25 {
		t.Errorf("Location() = (%v, %v, %v), want (12.5, -7.25, true)", lat, lng, ok)
	}
	if _, _, ok := rec.Party(RoleProvider).Location(); ok {
		t.Error("provider location should be unset")
	}
}

func TestVerificationRecord_Terminal(t *testing.T) {
	for status, want := range map[string]bool{
		VerificationPending:  false,
		VerificationVerified: true,
		VerificationFailed:   true,
	} {
		rec := &VerificationRecord{Status: status}
		if rec.Terminal() != want {
			t.Errorf("Terminal() with status %q = %v, want %v", status, rec.Terminal(), want)
		}
	}
}

func TestBooking_Helpers(t *testing.T) {
	lat, lng := 10.0, 20.0
	b := &Booking{
		RequesterID: "u1",
		ProviderID:  "u2",
		TotalAmount: 10000,
		PlatformFee: 1500,
		Status:      BookingPaymentHeld,
		MeetingLat:  &lat,
		MeetingLng:  &lng,
	}
	if !b.Verifiable() {
		t.Error("payment_held booking should be verifiable")
	}
	b.Status = BookingCompleted
	if b.Verifiable() {
		t.Error("completed booking should not be verifiable")
	}
	if !b.HasMeetingCoordinates() {
		t.Error("expected coordinates present")
	}
	b.MeetingLng = nil
	if b.HasMeetingCoordinates() {
		t.Error("half a coordinate pair is not a location")
	}
	if !b.IsParty("u1") || !b.IsParty("u2") || b.IsParty("u3") {
		t.Error("IsParty misidentified booking parties")
	}
	if b.ProviderEarnings() != 8500 {
		t.Errorf("ProviderEarnings() = %d, want 8500", b.ProviderEarnings())
	}
}
