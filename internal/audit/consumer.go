package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	inats "github.com/mealtrack/mealtrack/internal/nats"
)

// Consumer listens on the event stream and persists an audit trail.
// Analysis and meal events are folded into audit rows alongside the
// explicit audit subject.
type Consumer struct {
	repo        *Repository
	consumerMgr *inats.ConsumerManager
}

// NewConsumer creates a new audit event Consumer.
func NewConsumer(repo *Repository, consumerMgr *inats.ConsumerManager) *Consumer {
	return &Consumer{
		repo:        repo,
		consumerMgr: consumerMgr,
	}
}

// Start begins the consume loop. Blocks until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	consumer, err := c.consumerMgr.EnsureConsumer(ctx, inats.StreamEvents, "audit-persister", "mealtrack.events.>")
	if err != nil {
		return err
	}

	slog.Info("audit consumer started", "consumer", "audit-persister")

	for {
		msgs, err := consumer.Fetch(10, jetstream.FetchMaxWait(inats.FetchTimeout))
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Debug("audit consumer: fetching events", "error", err)
			continue
		}

		for msg := range msgs.Messages() {
			c.handleEvent(ctx, msg)
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}

func (c *Consumer) handleEvent(ctx context.Context, msg jetstream.Msg) {
	log, err := convertEvent(msg.Subject(), msg.Data())
	if err != nil {
		slog.Error("audit consumer: converting event", "subject", msg.Subject(), "error", err)
		_ = msg.Nak()
		return
	}

	if err := c.repo.Insert(ctx, log); err != nil {
		slog.Error("audit consumer: persisting audit log", "error", err, "event_type", log.EventType)
		_ = msg.Nak()
		return
	}

	_ = msg.Ack()

	slog.Debug("audit consumer: persisted event",
		"event_type", log.EventType,
		"user_id", log.UserID,
		"resource_id", log.ResourceID,
	)
}

// convertEvent maps a stream message to an audit row based on its subject.
func convertEvent(subject string, data []byte) (*Log, error) {
	switch subject {
	case inats.SubjectAnalysisEvent:
		var event inats.AnalysisEvent
		if err := json.Unmarshal(data, &event); err != nil {
			return nil, fmt.Errorf("unmarshaling analysis event: %w", err)
		}
		return analysisLog(event), nil

	case inats.SubjectMealEvent:
		var event inats.MealEvent
		if err := json.Unmarshal(data, &event); err != nil {
			return nil, fmt.Errorf("unmarshaling meal event: %w", err)
		}
		return mealLog(event), nil

	case inats.SubjectAuditEvent:
		var event inats.AuditEvent
		if err := json.Unmarshal(data, &event); err != nil {
			return nil, fmt.Errorf("unmarshaling audit event: %w", err)
		}
		return auditLog(event), nil

	default:
		return nil, fmt.Errorf("unknown event subject %q", subject)
	}
}

func analysisLog(event inats.AnalysisEvent) *Log {
	eventType := "analysis_completed"
	severity := "info"
	if !event.Success {
		eventType = "analysis_failed"
		severity = "warn"
	}
	details, _ := json.Marshal(map[string]any{
		"item_count":  event.ItemCount,
		"had_audio":   event.HadAudio,
		"duration_ms": event.DurationMS,
	})
	return &Log{
		ID:           uuid.New(),
		UserID:       event.UserID,
		EventType:    eventType,
		Severity:     severity,
		ResourceType: "analysis",
		ResourceID:   event.RequestID,
		Details:      details,
		CreatedAt:    event.Timestamp,
	}
}

func mealLog(event inats.MealEvent) *Log {
	return &Log{
		ID:           uuid.New(),
		UserID:       event.UserID,
		EventType:    "meal_" + event.Action,
		Severity:     "info",
		ResourceType: "meal",
		ResourceID:   event.MealID,
		Details:      json.RawMessage(`{}`),
		CreatedAt:    event.Timestamp,
	}
}

func auditLog(event inats.AuditEvent) *Log {
	details, _ := json.Marshal(map[string]string{"message": event.Details})
	return &Log{
		ID:           uuid.New(),
		UserID:       event.UserID,
		EventType:    event.EventType,
		Severity:     event.Severity,
		ResourceType: event.ResourceType,
		ResourceID:   event.ResourceID,
		Details:      details,
		CreatedAt:    event.Timestamp,
	}
}
