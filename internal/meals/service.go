package meals

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mealtrack/mealtrack/internal/metrics"
	"github.com/mealtrack/mealtrack/internal/nats"
)

// ErrIDConflict is returned when a meal id already belongs to a
// different user. This is a genuine data-integrity conflict, not a
// transient race, and must never be resolved by overwriting.
var ErrIDConflict = errors.New("meal id owned by another user")

type Service struct {
	repo      Repository
	publisher *nats.Publisher
}

// NewService creates the meals service. publisher may be nil; record
// change events are then not emitted.
func NewService(repo Repository, publisher *nats.Publisher) *Service {
	return &Service{repo: repo, publisher: publisher}
}

// Upsert stores a finalized meal with insert-or-update semantics. A
// client that retries the identical submission any number of times,
// concurrently or sequentially, converges on exactly one row. The
// caller's view is authoritative: on the update path all mutable fields
// are overwritten with the input.
func (s *Service) Upsert(ctx context.Context, userID uuid.UUID, id string, req *UpsertMealRequest) (*Meal, error) {
	row, err := s.requestToRow(userID, id, req)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByIDAndUser(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		row.CreatedAt = existing.CreatedAt
		if err := s.repo.Update(ctx, row); err != nil {
			return nil, err
		}
		s.publishMealEvent(ctx, userID, id, "updated")
		return s.rowToMeal(row)
	}

	err = s.repo.Insert(ctx, row)
	if err == nil {
		s.publishMealEvent(ctx, userID, id, "created")
		return s.rowToMeal(row)
	}
	if !errors.Is(err, ErrDuplicateID) {
		return nil, err
	}

	// The id landed between our lookup and the insert. If the row is ours
	// a concurrent retry won the race: apply the update path. If it
	// belongs to someone else the collision is unresolvable.
	existing, err = s.repo.GetByIDAndUser(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		metrics.MealUpsertConflictsTotal.Inc()
		return nil, ErrIDConflict
	}

	row.CreatedAt = existing.CreatedAt
	if err := s.repo.Update(ctx, row); err != nil {
		return nil, err
	}
	s.publishMealEvent(ctx, userID, id, "updated")
	return s.rowToMeal(row)
}

func (s *Service) GetByID(ctx context.Context, userID uuid.UUID, id string) (*Meal, error) {
	row, err := s.repo.GetByIDAndUser(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	return s.rowToMeal(row)
}

func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID, params ListMealsParams) ([]*Meal, int64, error) {
	offset := (params.Page - 1) * params.PageSize

	rows, err := s.repo.ListByUser(ctx, userID, params.PageSize, offset)
	if err != nil {
		return nil, 0, err
	}

	count, err := s.repo.CountByUser(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	result := make([]*Meal, 0, len(rows))
	for _, row := range rows {
		meal, err := s.rowToMeal(row)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, meal)
	}
	return result, count, nil
}

func (s *Service) Delete(ctx context.Context, userID uuid.UUID, id string) error {
	if err := s.repo.Delete(ctx, id, userID); err != nil {
		return err
	}
	s.publishMealEvent(ctx, userID, id, "deleted")
	return nil
}

func (s *Service) publishMealEvent(ctx context.Context, userID uuid.UUID, mealID, action string) {
	if s.publisher == nil {
		return
	}
	event := nats.MealEvent{
		UserID:    userID,
		MealID:    mealID,
		Action:    action,
		Timestamp: time.Now(),
	}
	if err := s.publisher.PublishMealEvent(ctx, event); err != nil {
		slog.Warn("publishing meal event", "meal_id", mealID, "error", err)
	}
}

func (s *Service) requestToRow(userID uuid.UUID, id string, req *UpsertMealRequest) (*MealRow, error) {
	nutritionJSON, err := json.Marshal(req.Nutrition)
	if err != nil {
		return nil, fmt.Errorf("marshaling nutrition: %w", err)
	}
	qualityJSON, err := json.Marshal(req.Quality)
	if err != nil {
		return nil, fmt.Errorf("marshaling quality: %w", err)
	}

	now := time.Now()
	return &MealRow{
		ID:            id,
		UserID:        userID,
		Timestamp:     req.Timestamp,
		Category:      req.Category,
		Name:          req.Name,
		ImageRef:      req.ImageRef,
		AudioRef:      req.AudioRef,
		Transcription: req.Transcription,
		Nutrition:     nutritionJSON,
		Quality:       qualityJSON,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func (s *Service) rowToMeal(row *MealRow) (*Meal, error) {
	meal := &Meal{
		ID:            row.ID,
		UserID:        row.UserID,
		Timestamp:     row.Timestamp,
		Category:      row.Category,
		Name:          row.Name,
		ImageRef:      row.ImageRef,
		AudioRef:      row.AudioRef,
		Transcription: row.Transcription,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
	if len(row.Nutrition) > 0 {
		if err := json.Unmarshal(row.Nutrition, &meal.Nutrition); err != nil {
			return nil, fmt.Errorf("unmarshaling nutrition: %w", err)
		}
	}
	if len(row.Quality) > 0 {
		if err := json.Unmarshal(row.Quality, &meal.Quality); err != nil {
			return nil, fmt.Errorf("unmarshaling quality: %w", err)
		}
	}
	return meal, nil
}
