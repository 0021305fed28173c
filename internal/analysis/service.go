package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mealtrack/mealtrack/internal/metrics"
	"github.com/mealtrack/mealtrack/internal/nats"
	"github.com/mealtrack/mealtrack/internal/quota"
)

// QuotaDeniedError reports which admission gate refused the request.
type QuotaDeniedError struct {
	Gate string
}

func (e *QuotaDeniedError) Error() string {
	return fmt.Sprintf("quota denied by %s gate", e.Gate)
}

// Service runs the full analysis pipeline: admission, optional audio
// transcription, image preparation, and the vision model call.
type Service struct {
	quota       *quota.Service
	vision      Vision
	transcriber Transcriber
	publisher   *nats.Publisher
}

// NewService creates the analysis service. transcriber and publisher
// may be nil; audio notes are then ignored and events are not emitted.
func NewService(quotaSvc *quota.Service, vision Vision, transcriber Transcriber, publisher *nats.Publisher) *Service {
	return &Service{
		quota:       quotaSvc,
		vision:      vision,
		transcriber: transcriber,
		publisher:   publisher,
	}
}

// Analyze admits the request against the user's quota, then forwards
// the meal photo (and transcript of the audio note, if any) to the
// vision model. A failed transcription never fails the analysis.
func (s *Service) Analyze(ctx context.Context, userID uuid.UUID, image []byte, audio []byte, audioName string) (*Result, error) {
	started := time.Now()

	decision, err := s.quota.Admit(ctx, userID, started)
	if err != nil {
		return nil, fmt.Errorf("admitting request: %w", err)
	}
	if !decision.Allowed {
		s.publishDenied(ctx, userID, decision.Gate)
		return nil, &QuotaDeniedError{Gate: decision.Gate}
	}

	transcript := ""
	if len(audio) > 0 && s.transcriber != nil {
		transcript, err = s.transcriber.Transcribe(ctx, audioName, audio)
		if err != nil {
			slog.Warn("transcription failed, continuing without transcript",
				"user_id", userID, "error", err)
			metrics.TranscriptionsTotal.WithLabelValues("error").Inc()
			transcript = ""
		} else {
			metrics.TranscriptionsTotal.WithLabelValues("ok").Inc()
		}
	}

	prepared, err := PrepareImage(image)
	if err != nil {
		metrics.AnalysesTotal.WithLabelValues("bad_image").Inc()
		return nil, fmt.Errorf("preparing image: %w", err)
	}

	result, err := s.vision.Analyze(ctx, prepared, transcript)
	if err != nil {
		metrics.AnalysesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("analyzing image: %w", err)
	}
	result.Transcript = transcript

	if result.Success {
		metrics.AnalysesTotal.WithLabelValues("ok").Inc()
	} else {
		metrics.AnalysesTotal.WithLabelValues("no_food").Inc()
	}

	s.publishEvent(ctx, userID, result, len(audio) > 0, time.Since(started))
	return result, nil
}

func (s *Service) publishDenied(ctx context.Context, userID uuid.UUID, gate string) {
	if s.publisher == nil {
		return
	}
	event := nats.AuditEvent{
		UserID:       userID,
		EventType:    "quota_denied",
		Severity:     "warn",
		ResourceType: "quota",
		ResourceID:   gate,
		Details:      fmt.Sprintf("analysis request denied by %s gate", gate),
		Timestamp:    time.Now(),
	}
	if err := s.publisher.PublishAuditEvent(ctx, event); err != nil {
		slog.Warn("publishing quota denial event", "error", err)
	}
}

func (s *Service) publishEvent(ctx context.Context, userID uuid.UUID, result *Result, hadAudio bool, elapsed time.Duration) {
	if s.publisher == nil {
		return
	}
	event := nats.AnalysisEvent{
		UserID:     userID,
		RequestID:  result.RequestID,
		Success:    result.Success,
		ItemCount:  len(result.Items),
		HadAudio:   hadAudio,
		DurationMS: elapsed.Milliseconds(),
		Timestamp:  time.Now(),
	}
	if err := s.publisher.PublishAnalysisEvent(ctx, event); err != nil {
		slog.Warn("publishing analysis event", "error", err)
	}
}
