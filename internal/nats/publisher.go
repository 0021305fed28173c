package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
)

// Publisher provides typed methods for publishing events to NATS JetStream.
type Publisher struct {
	js jetstream.JetStream
}

// NewPublisher creates a new Publisher.
func NewPublisher(js jetstream.JetStream) *Publisher {
	return &Publisher{js: js}
}

// PublishAnalysisEvent publishes the outcome of a meal photo analysis.
func (p *Publisher) PublishAnalysisEvent(ctx context.Context, event AnalysisEvent) error {
	return p.publish(ctx, SubjectAnalysisEvent, event)
}

// PublishMealEvent publishes a meal record change.
func (p *Publisher) PublishMealEvent(ctx context.Context, event MealEvent) error {
	return p.publish(ctx, SubjectMealEvent, event)
}

// PublishAuditEvent publishes an audit event.
func (p *Publisher) PublishAuditEvent(ctx context.Context, event AuditEvent) error {
	return p.publish(ctx, SubjectAuditEvent, event)
}

func (p *Publisher) publish(ctx context.Context, subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling event for %s: %w", subject, err)
	}
	_, err = p.js.Publish(ctx, subject, payload)
	if err != nil {
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}
	return nil
}
