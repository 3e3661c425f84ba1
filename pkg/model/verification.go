package model

import "time"

// Verification statuses. Once verified or failed the record is terminal.
const (
	VerificationPending  = "pending"
	VerificationVerified = "verified"
	VerificationFailed   = "failed"
)

// Role identifies which side of a booking an actor is on.
type Role string

const (
	RoleRequester Role = "requester"
	RoleProvider  Role = "provider"
)

// Other returns the counterpart role.
func (r Role) Other() Role {
	if r == RoleRequester {
		return RoleProvider
	}
	return RoleRequester
}

// VerificationRecord is the one-to-one companion of a booking tracking the
// dual-party one-time-code exchange. Codes are stored sealed (see pkg/sealer).
type VerificationRecord struct {
	ID        string `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	BookingID string `json:"booking_id" bson:"booking_id" validate:"required,mongodb"`

	RequesterCode string `json:"-" bson:"requester_code" validate:"required"`
	ProviderCode  string `json:"-" bson:"provider_code" validate:"required"`

	RequesterEntered  bool `json:"requester_entered" bson:"requester_entered"`
	ProviderEntered   bool `json:"provider_entered" bson:"provider_entered"`
	RequesterAttempts int  `json:"requester_attempts" bson:"requester_attempts" validate:"min=0,max=3"`
	ProviderAttempts  int  `json:"provider_attempts" bson:"provider_attempts" validate:"min=0,max=3"`

	RequesterLat *float64 `json:"requester_lat,omitempty" bson:"requester_lat,omitempty" validate:"omitempty,latitude"`
	RequesterLng *float64 `json:"requester_lng,omitempty" bson:"requester_lng,omitempty" validate:"omitempty,longitude"`
	ProviderLat  *float64 `json:"provider_lat,omitempty" bson:"provider_lat,omitempty" validate:"omitempty,latitude"`
	ProviderLng  *float64 `json:"provider_lng,omitempty" bson:"provider_lng,omitempty" validate:"omitempty,longitude"`

	// Distances from the meeting location in meters, computed once both
	// parties have entered their codes.
	RequesterDistance *float64 `json:"requester_distance,omitempty" bson:"requester_distance,omitempty"`
	ProviderDistance  *float64 `json:"provider_distance,omitempty" bson:"provider_distance,omitempty"`

	Status           string     `json:"verification_status" bson:"verification_status" validate:"required,oneof=pending verified failed"`
	LocationVerified bool       `json:"location_verified" bson:"location_verified"`
	FailureReason    string     `json:"failure_reason,omitempty" bson:"failure_reason,omitempty"`
	VerifiedAt       *time.Time `json:"verified_at,omitempty" bson:"verified_at,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}

// Terminal reports whether the verification outcome has been decided.
func (v *VerificationRecord) Terminal() bool {
	return v.Status == VerificationVerified || v.Status == VerificationFailed
}

// BothEntered reports whether both parties have entered their counterpart's code.
func (v *VerificationRecord) BothEntered() bool {
	return v.RequesterEntered && v.ProviderEntered
}

// Party returns a role-keyed view over the record's per-party columns, so
// callers never pick fields by string comparison at runtime.
func (v *VerificationRecord) Party(role Role) PartyView {
	return PartyView{rec: v, role: role}
}

// PartyView maps one role onto its slice of a VerificationRecord: the code it
// must enter (the counterpart's), its attempt counter, entered flag, and
// submitted coordinates.
type PartyView struct {
	rec  *VerificationRecord
	role Role
}

func (p PartyView) Role() Role { return p.role }

// ExpectedCode is the sealed code this party must have received in person,
// i.e. the code issued to the counterpart.
func (p PartyView) ExpectedCode() string {
	if p.role == RoleRequester {
		return p.rec.ProviderCode
	}
	return p.rec.RequesterCode
}

func (p PartyView) Entered() bool {
	if p.role == RoleRequester {
		return p.rec.RequesterEntered
	}
	return p.rec.ProviderEntered
}

func (p PartyView) Attempts() int {
	if p.role == RoleRequester {
		return p.rec.RequesterAttempts
	}
	return p.rec.ProviderAttempts
}

func (p PartyView) IncrementAttempts() {
	if p.role == RoleRequester {
		p.rec.RequesterAttempts++
		return
	}
	p.rec.ProviderAttempts++
}

// MarkEntered flips the party's entered flag and records where they were
// standing when they submitted.
func (p PartyView) MarkEntered(lat, lng float64) {
	if p.role == RoleRequester {
		p.rec.RequesterEntered = true
		p.rec.RequesterLat = &lat
		p.rec.RequesterLng = &lng
		return
	}
	p.rec.ProviderEntered = true
	p.rec.ProviderLat = &lat
	p.rec.ProviderLng = &lng
}

// Location returns the party's submitted coordinates, if any.
func (p PartyView) Location() (lat, lng float64, ok bool) {
	if p.role == RoleRequester {
		if p.rec.RequesterLat == nil || p.rec.RequesterLng == nil {
			return 0, 0, false
		}
		return *p.rec.RequesterLat, *p.rec.RequesterLng, true
	}
	if p.rec.ProviderLat == nil || p.rec.ProviderLng == nil {
		return 0, 0, false
	}
	return *p.rec.ProviderLat, *p.rec.ProviderLng, true
}

func (p PartyView) SetDistance(meters float64) {
	if p.role == RoleRequester {
		p.rec.RequesterDistance = &meters
		return
	}
	p.rec.ProviderDistance = &meters
}

func (p PartyView) Distance() *float64 {
	if p.role == RoleRequester {
		return p.rec.RequesterDistance
	}
	return p.rec.ProviderDistance
}
