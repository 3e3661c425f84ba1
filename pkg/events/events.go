package events

import (
	"context"
	"time"

	"meetproof/pkg/kafka"
	"meetproof/pkg/logger"
)

// Event types emitted by the verification and settlement flows.
const (
	TypeVerificationVerified = "verification.verified"
	TypeVerificationFailed   = "verification.failed"
	TypeBookingCompleted     = "booking.completed"
	TypeBookingCancelled     = "booking.cancelled"
	TypeTransferCompleted    = "transfer.completed"
	TypeTransferFailed       = "transfer.failed"
	TypeDisputeFlagged       = "dispute.flagged"
)

// SchemaVersion is stamped on every emitted event.
const SchemaVersion = "1"

// Event is the payload published to the booking events topic. Payload holds
// event-type specific fields (distances, refs, reasons).
type Event struct {
	Type       string         `json:"type"`
	BookingID  string         `json:"booking_id"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// Publisher emits domain events. Implementations must never fail the calling
// operation: publishing is best-effort and errors are logged, not returned.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// KafkaPublisher publishes events through a Kafka producer, keyed by
// booking ID so per-booking ordering is preserved.
type KafkaPublisher struct {
	producer *kafka.Producer
	source   string
	logger   *logger.Logger
}

func NewKafkaPublisher(producer *kafka.Producer, source string, log *logger.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		producer: producer,
		source:   source,
		logger:   log,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	msg := kafka.NewMessage().
		WithKey(event.BookingID).
		WithValue(event).
		WithEventID("").
		WithEventType(event.Type).
		WithSchemaVersion(SchemaVersion).
		WithSource(p.source).
		Build()

	if err := p.producer.Publish(ctx, msg); err != nil {
		p.logger.Error("failed to publish event",
			"event_type", event.Type,
			"booking_id", event.BookingID,
			"error", err)
	}
}

// NoopPublisher discards events. Used when Kafka is not configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, event Event) {}
