package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"studybuddy-backend/internal/models"
)

type QuizRepo struct {
	pool *pgxpool.Pool
}

func NewQuizRepo(pool *pgxpool.Pool) *QuizRepo {
	return &QuizRepo{pool: pool}
}

// RecordAttempt stores a submitted quiz and credits the awarded XP to the
// user's profile in one transaction. Submitting the same session twice
// records it once; the replay reports false and credits nothing.
func (r *QuizRepo) RecordAttempt(ctx context.Context, a *models.QuizAttempt, levelFor func(xp int) int) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin attempt transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	a.ID = uuid.New()
	tag, err := tx.Exec(ctx, `
		INSERT INTO quiz_attempts (id, user_id, session_id, score, correct_count, total, integrity_flags, xp_awarded, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (session_id) DO NOTHING
	`, a.ID, a.UserID, a.SessionID, a.Score, a.CorrectCount, a.Total, a.IntegrityFlags, a.XPAwarded, a.SubmittedAt)
	if err != nil {
		return false, fmt.Errorf("failed to insert quiz attempt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, tx.Commit(ctx)
	}

	var xp int
	err = tx.QueryRow(ctx, `
		UPDATE user_profiles SET xp = xp + $1, updated_at = NOW()
		WHERE user_id = $2
		RETURNING xp
	`, a.XPAwarded, a.UserID).Scan(&xp)
	if err != nil {
		return false, fmt.Errorf("failed to credit xp: %w", notFound(err))
	}

	if _, err := tx.Exec(ctx, "UPDATE user_profiles SET level = $1 WHERE user_id = $2", levelFor(xp), a.UserID); err != nil {
		return false, fmt.Errorf("failed to update level: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit quiz attempt: %w", err)
	}
	return true, nil
}

func (r *QuizRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.QuizAttempt, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, session_id, score, correct_count, total, integrity_flags, xp_awarded, submitted_at
		FROM quiz_attempts WHERE user_id = $1
		ORDER BY submitted_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attempts := []*models.QuizAttempt{}
	for rows.Next() {
		a := &models.QuizAttempt{}
		if err := rows.Scan(&a.ID, &a.UserID, &a.SessionID, &a.Score, &a.CorrectCount, &a.Total,
			&a.IntegrityFlags, &a.XPAwarded, &a.SubmittedAt); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}
