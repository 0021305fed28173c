package meals

import (
	"time"

	"github.com/google/uuid"
)

// Meal categories accepted from clients.
const (
	CategoryBreakfast = "Breakfast"
	CategoryLunch     = "Lunch"
	CategoryDinner    = "Dinner"
	CategorySnack     = "Snack"
	CategoryOther     = "Other"
)

// Nutrition holds the per-meal macro totals.
type Nutrition struct {
	Calories float64 `json:"calories" validate:"gte=0"`
	Carbs    float64 `json:"carbs" validate:"gte=0"`
	Sugar    float64 `json:"sugar" validate:"gte=0"`
	Protein  float64 `json:"protein" validate:"gte=0"`
	Fat      float64 `json:"fat" validate:"gte=0"`
}

// Quality holds the derived meal-quality scores.
type Quality struct {
	CalorieDensity    float64 `json:"calorie_density" validate:"gte=0"`
	GoalFitPercentage float64 `json:"goal_fit_percentage" validate:"gte=0,lte=100"`
	MealQualityScore  float64 `json:"meal_quality_score" validate:"gte=1,lte=10"`
}

// Meal is a finalized meal record. The id is generated by the client so
// offline retries of the same submission converge on one row; it is
// globally unique, not scoped per user.
type Meal struct {
	ID            string    `json:"id"`
	UserID        uuid.UUID `json:"user_id"`
	Timestamp     int64     `json:"timestamp"`
	Category      string    `json:"category"`
	Name          string    `json:"name,omitempty"`
	ImageRef      string    `json:"image_ref,omitempty"`
	AudioRef      string    `json:"audio_ref,omitempty"`
	Transcription string    `json:"transcription,omitempty"`
	Nutrition     Nutrition `json:"nutrition"`
	Quality       Quality   `json:"quality"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// MealRow is the database representation with the JSONB fields as raw bytes.
type MealRow struct {
	ID            string
	UserID        uuid.UUID
	Timestamp     int64
	Category      string
	Name          string
	ImageRef      string
	AudioRef      string
	Transcription string
	Nutrition     []byte
	Quality       []byte
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// UpsertMealRequest is the client payload for finalizing a meal. The id
// travels in the URL path; everything else is mutable on retry.
type UpsertMealRequest struct {
	Timestamp     int64     `json:"timestamp" validate:"required,gt=0"`
	Category      string    `json:"category" validate:"required,oneof=Breakfast Lunch Dinner Snack Other"`
	Name          string    `json:"name" validate:"max=255"`
	ImageRef      string    `json:"image_ref" validate:"max=1024"`
	AudioRef      string    `json:"audio_ref" validate:"max=1024"`
	Transcription string    `json:"transcription" validate:"max=10000"`
	Nutrition     Nutrition `json:"nutrition" validate:"required"`
	Quality       Quality   `json:"quality" validate:"required"`
}

// ListMealsParams holds pagination for meal listings.
type ListMealsParams struct {
	Page     int
	PageSize int
}

func DefaultListParams() ListMealsParams {
	return ListMealsParams{
		Page:     1,
		PageSize: 20,
	}
}
