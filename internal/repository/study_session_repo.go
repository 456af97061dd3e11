package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"studybuddy-backend/internal/models"
)

type StudySessionRepo struct {
	pool *pgxpool.Pool
}

func NewStudySessionRepo(pool *pgxpool.Pool) *StudySessionRepo {
	return &StudySessionRepo{pool: pool}
}

func (r *StudySessionRepo) Start(ctx context.Context, s *models.StudySession) error {
	if len(s.ClientMetaJSON) == 0 {
		s.ClientMetaJSON = json.RawMessage("{}")
	}

	// Close previous active session for same user/activity/resource (idempotent behavior)
	_, _ = r.pool.Exec(ctx, `
		UPDATE study_sessions
		SET ended_at = NOW(),
			duration_seconds = GREATEST(0, LEAST(43200, EXTRACT(EPOCH FROM (NOW() - started_at))::INT)),
			last_heartbeat_at = NOW()
		WHERE user_id = $1
		  AND activity_type = $2
		  AND resource_id = $3
		  AND ended_at IS NULL
	`, s.UserID, s.ActivityType, s.ResourceID)

	query := `
		INSERT INTO study_sessions (user_id, activity_type, resource_id, client_meta_json)
		VALUES ($1, $2, $3, $4)
		RETURNING id, started_at, last_heartbeat_at, created_at
	`

	return r.pool.QueryRow(ctx, query, s.UserID, s.ActivityType, s.ResourceID, s.ClientMetaJSON).Scan(
		&s.ID,
		&s.StartedAt,
		&s.LastHeartbeatAt,
		&s.CreatedAt,
	)
}

// Heartbeat marks an open session as alive. A missing, foreign or already
// closed session is ErrNotFound.
func (r *StudySessionRepo) Heartbeat(ctx context.Context, sessionID, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE study_sessions
		SET last_heartbeat_at = NOW()
		WHERE id = $1
		  AND user_id = $2
		  AND ended_at IS NULL
	`, sessionID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *StudySessionRepo) Stop(ctx context.Context, sessionID, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE study_sessions
		SET ended_at = CASE WHEN ended_at IS NULL THEN NOW() ELSE ended_at END,
			last_heartbeat_at = NOW(),
			duration_seconds = CASE
				WHEN ended_at IS NULL THEN GREATEST(0, LEAST(43200, EXTRACT(EPOCH FROM (NOW() - started_at))::INT))
				ELSE duration_seconds
			END
		WHERE id = $1
		  AND user_id = $2
	`, sessionID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CloseStale ends open sessions whose last heartbeat is older than
// heartbeatBefore. Duration is measured up to the last heartbeat.
func (r *StudySessionRepo) CloseStale(ctx context.Context, heartbeatBefore time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE study_sessions
		SET ended_at = last_heartbeat_at,
			duration_seconds = GREATEST(0, LEAST(43200, EXTRACT(EPOCH FROM (last_heartbeat_at - started_at))::INT))
		WHERE ended_at IS NULL
		  AND last_heartbeat_at < $1
	`, heartbeatBefore)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// TotalSeconds sums closed session time for a user.
func (r *StudySessionRepo) TotalSeconds(ctx context.Context, userID uuid.UUID) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx,
		"SELECT COALESCE(SUM(duration_seconds), 0)::INT FROM study_sessions WHERE user_id = $1 AND ended_at IS NOT NULL",
		userID,
	).Scan(&total)
	return total, err
}
