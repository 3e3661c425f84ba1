package model

// CodeSubmission is one party's attempt to prove the meeting: the counterpart's
// one-time code plus the GPS reading taken at submission time. BookingID comes
// from the URL, never the body.
type CodeSubmission struct {
	BookingID string  `json:"-" validate:"required,mongodb"`
	ActorID   string  `json:"actor_id" validate:"required"`
	Code      string  `json:"code" validate:"required,otp_code"`
	Lat       float64 `json:"lat" validate:"latitude"`
	Lng       float64 `json:"lng" validate:"longitude"`
}
