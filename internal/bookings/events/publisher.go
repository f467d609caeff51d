// Package events carries booking lifecycle notifications out of the service and
// listing deletions into it.
package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"nestbook/pkg/kafka"
	"nestbook/pkg/model"
	"nestbook/pkg/obs"

	"github.com/google/uuid"
)

const (
	Source        = "nestbook-bookings"
	SchemaVersion = "1"

	// Routing headers let consumers filter without decoding the payload.
	HeaderBookingKind = "booking-kind"
	HeaderListingID   = "listing-id"
	HeaderTraceID     = "trace-id"
)

// Publisher emits booking events after the owning unit of work committed.
type Publisher interface {
	Publish(ctx context.Context, eventType string, booking *model.Booking) error
}

type messageSink interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

type kafkaPublisher struct {
	sink          messageSink
	correlationID func(ctx context.Context) string
	now           func() time.Time
}

// NewKafkaPublisher keys every message by booking id so events of one booking stay ordered.
func NewKafkaPublisher(sink messageSink, now func() time.Time, correlationID func(ctx context.Context) string) Publisher {
	if now == nil {
		now = time.Now
	}
	return &kafkaPublisher{sink: sink, now: now, correlationID: correlationID}
}

func (p *kafkaPublisher) Publish(ctx context.Context, eventType string, booking *model.Booking) error {
	event := model.BookingEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: p.now().UTC(),
		Booking:    booking,
	}

	builder := kafka.NewMessage().
		WithKey(booking.ID).
		WithValue(event).
		WithEventID(event.ID).
		WithEventType(eventType).
		WithSchemaVersion(SchemaVersion).
		WithSource(Source).
		WithTimestamp(event.OccurredAt).
		WithHeader(HeaderBookingKind, string(booking.Kind)).
		WithHeader(HeaderListingID, booking.ListingID())
	if traceID := obs.TraceID(ctx); traceID != "" {
		builder.WithHeader(HeaderTraceID, traceID)
	}
	if p.correlationID != nil {
		builder.WithCorrelationID(p.correlationID(ctx))
	}

	msg, err := builder.Build()
	if err != nil {
		return err
	}
	if err := p.sink.Publish(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s for booking %s: %w", eventType, booking.ID, err)
	}
	return nil
}

type noopPublisher struct{}

// NewNoopPublisher is used when Kafka is disabled.
func NewNoopPublisher() Publisher {
	return noopPublisher{}
}

func (noopPublisher) Publish(context.Context, string, *model.Booking) error {
	return nil
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []model.BookingEvent
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(ctx context.Context, eventType string, booking *model.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, model.BookingEvent{Type: eventType, Booking: booking.Clone()})
	return nil
}

func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func (r *Recorder) Events() []model.BookingEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.BookingEvent(nil), r.events...)
}
