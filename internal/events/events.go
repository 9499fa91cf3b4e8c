package events

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	NewBooking           = "new_booking"
	BookingStatusUpdated = "booking_status_updated"
	BookingDeleted       = "booking_deleted"
)

// Sink receives domain events. Publishing is best effort; callers log failures
// and never fail the originating request because of them.
type Sink interface {
	Publish(ctx context.Context, name string, payload any) error
}

// Envelope is the wire form of an event.
type Envelope struct {
	Event      string    `json:"event"`
	Payload    any       `json:"payload"`
	OccurredAt time.Time `json:"occurredAt"`
}

func NewEnvelope(name string, payload any) Envelope {
	return Envelope{Event: name, Payload: payload, OccurredAt: time.Now().UTC()}
}

// LogSink writes events to the application log.
type LogSink struct{}

func (LogSink) Publish(ctx context.Context, name string, payload any) error {
	log.Info().Str("event", name).Interface("payload", payload).Msg("Domain event")
	return nil
}

// NopSink discards events.
type NopSink struct{}

func (NopSink) Publish(context.Context, string, any) error { return nil }

// MultiSink fans an event out to every sink and joins their errors.
type MultiSink []Sink

func (m MultiSink) Publish(ctx context.Context, name string, payload any) error {
	var errs []error
	for _, s := range m {
		if err := s.Publish(ctx, name, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
