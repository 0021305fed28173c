package meals

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrDuplicateID is returned by Insert when the primary key already
// exists. The unique constraint, not a preceding existence check, is the
// arbiter under concurrent retries.
var ErrDuplicateID = errors.New("meal id already exists")

type Repository interface {
	GetByIDAndUser(ctx context.Context, id string, userID uuid.UUID) (*MealRow, error)
	Insert(ctx context.Context, row *MealRow) error
	Update(ctx context.Context, row *MealRow) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*MealRow, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	Delete(ctx context.Context, id string, userID uuid.UUID) error
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) GetByIDAndUser(ctx context.Context, id string, userID uuid.UUID) (*MealRow, error) {
	query := `
		SELECT id, user_id, meal_timestamp, category, name, image_ref, audio_ref, transcription, nutrition, quality, created_at, updated_at
		FROM meals
		WHERE id = $1 AND user_id = $2`

	row := &MealRow{}
	err := r.pool.QueryRow(ctx, query, id, userID).Scan(
		&row.ID, &row.UserID, &row.Timestamp, &row.Category, &row.Name,
		&row.ImageRef, &row.AudioRef, &row.Transcription,
		&row.Nutrition, &row.Quality, &row.CreatedAt, &row.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying meal by id: %w", err)
	}
	return row, nil
}

func (r *postgresRepository) Insert(ctx context.Context, row *MealRow) error {
	query := `
		INSERT INTO meals (id, user_id, meal_timestamp, category, name, image_ref, audio_ref, transcription, nutrition, quality, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.pool.Exec(ctx, query,
		row.ID, row.UserID, row.Timestamp, row.Category, row.Name,
		row.ImageRef, row.AudioRef, row.Transcription,
		row.Nutrition, row.Quality, row.CreatedAt, row.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateID
		}
		return fmt.Errorf("inserting meal: %w", err)
	}
	return nil
}

func (r *postgresRepository) Update(ctx context.Context, row *MealRow) error {
	query := `
		UPDATE meals
		SET meal_timestamp = $3, category = $4, name = $5, image_ref = $6, audio_ref = $7, transcription = $8, nutrition = $9, quality = $10, updated_at = $11
		WHERE id = $1 AND user_id = $2`

	result, err := r.pool.Exec(ctx, query,
		row.ID, row.UserID, row.Timestamp, row.Category, row.Name,
		row.ImageRef, row.AudioRef, row.Transcription,
		row.Nutrition, row.Quality, row.UpdatedAt)
	if err != nil {
		return fmt.Errorf("updating meal: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("meal not found")
	}
	return nil
}

func (r *postgresRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*MealRow, error) {
	query := `
		SELECT id, user_id, meal_timestamp, category, name, image_ref, audio_ref, transcription, nutrition, quality, created_at, updated_at
		FROM meals
		WHERE user_id = $1
		ORDER BY meal_timestamp DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing meals: %w", err)
	}
	defer rows.Close()

	var result []*MealRow
	for rows.Next() {
		row := &MealRow{}
		err := rows.Scan(
			&row.ID, &row.UserID, &row.Timestamp, &row.Category, &row.Name,
			&row.ImageRef, &row.AudioRef, &row.Transcription,
			&row.Nutrition, &row.Quality, &row.CreatedAt, &row.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning meal row: %w", err)
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func (r *postgresRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM meals WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting meals: %w", err)
	}
	return count, nil
}

func (r *postgresRepository) Delete(ctx context.Context, id string, userID uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM meals WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting meal: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("meal not found")
	}
	return nil
}
