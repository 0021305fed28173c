package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, p Profile) (*User, error)
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

const userColumns = `id, email, password_hash,
	COALESCE(name, ''), COALESCE(age, 0), COALESCE(gender, ''),
	COALESCE(height_cm, 0), COALESCE(weight_kg, 0),
	COALESCE(activity_level, ''), COALESCE(goal, ''),
	created_at, updated_at`

// Create inserts the user together with its quota row so that a
// registered account is immediately admissible.
func (r *postgresRepository) Create(ctx context.Context, user *User) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`,
		user.ID, user.Email, user.PasswordHash, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO user_quotas (user_id, quota_count, last_reset_date, updated_at)
		VALUES ($1, 0, CURRENT_DATE, NOW())`,
		user.ID)
	if err != nil {
		return fmt.Errorf("inserting user quota: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing user creation: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user := &User{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Email, &user.PasswordHash,
		&user.Name, &user.Age, &user.Gender,
		&user.HeightCM, &user.WeightKG,
		&user.ActivityLevel, &user.Goal,
		&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying user by id: %w", err)
	}
	return user, nil
}

func (r *postgresRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user := &User{}
	err := r.pool.QueryRow(ctx, query, email).Scan(
		&user.ID, &user.Email, &user.PasswordHash,
		&user.Name, &user.Age, &user.Gender,
		&user.HeightCM, &user.WeightKG,
		&user.ActivityLevel, &user.Goal,
		&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying user by email: %w", err)
	}
	return user, nil
}

func (r *postgresRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`

	var exists bool
	err := r.pool.QueryRow(ctx, query, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking email existence: %w", err)
	}
	return exists, nil
}

func (r *postgresRepository) UpdateProfile(ctx context.Context, id uuid.UUID, p Profile) (*User, error) {
	query := `
		UPDATE users
		SET name = NULLIF($2, ''), age = NULLIF($3, 0), gender = NULLIF($4, ''),
		    height_cm = NULLIF($5, 0.0), weight_kg = NULLIF($6, 0.0),
		    activity_level = NULLIF($7, ''), goal = NULLIF($8, ''),
		    updated_at = NOW()
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query,
		id, p.Name, p.Age, p.Gender, p.HeightCM, p.WeightKG, p.ActivityLevel, p.Goal)
	if err != nil {
		return nil, fmt.Errorf("updating user profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}
