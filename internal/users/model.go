package users

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	Name          string    `json:"name,omitempty"`
	Age           int       `json:"age,omitempty"`
	Gender        string    `json:"gender,omitempty"`
	HeightCM      float64   `json:"height_cm,omitempty"`
	WeightKG      float64   `json:"weight_kg,omitempty"`
	ActivityLevel string    `json:"activity_level,omitempty"`
	Goal          string    `json:"goal,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Profile struct {
	Name          string  `json:"name" validate:"omitempty,max=120"`
	Age           int     `json:"age" validate:"omitempty,gte=0,lte=150"`
	Gender        string  `json:"gender" validate:"omitempty,oneof=male female other"`
	HeightCM      float64 `json:"height_cm" validate:"omitempty,gte=0,lte=300"`
	WeightKG      float64 `json:"weight_kg" validate:"omitempty,gte=0,lte=700"`
	ActivityLevel string  `json:"activity_level" validate:"omitempty,oneof=sedentary light moderate active very_active"`
	Goal          string  `json:"goal" validate:"omitempty,oneof=lose_weight maintain gain_muscle"`
}
