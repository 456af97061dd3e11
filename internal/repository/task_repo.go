package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"studybuddy-backend/internal/models"
)

type TaskRepo struct {
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{pool: pool}
}

func (r *TaskRepo) Create(ctx context.Context, t *models.Task) error {
	t.ID = uuid.New()
	return r.pool.QueryRow(ctx, `
		INSERT INTO tasks (id, user_id, course_id, title, due_date, is_completed)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at
	`, t.ID, t.UserID, t.CourseID, t.Title, t.DueDate, t.IsCompleted).Scan(&t.CreatedAt)
}

// ListByUser returns tasks ordered by due date, undated tasks last.
func (r *TaskRepo) ListByUser(ctx context.Context, userID uuid.UUID, includeCompleted bool) ([]*models.Task, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, course_id, title, due_date, is_completed, created_at
		FROM tasks
		WHERE user_id = $1 AND ($2 OR is_completed = FALSE)
		ORDER BY due_date ASC NULLS LAST, created_at ASC
	`, userID, includeCompleted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []*models.Task{}
	for rows.Next() {
		t := &models.Task{}
		if err := rows.Scan(&t.ID, &t.UserID, &t.CourseID, &t.Title, &t.DueDate, &t.IsCompleted, &t.CreatedAt); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (r *TaskRepo) Update(ctx context.Context, t *models.Task) error {
	err := r.pool.QueryRow(ctx, `
		UPDATE tasks SET course_id = $1, title = $2, due_date = $3, is_completed = $4
		WHERE id = $5 AND user_id = $6
		RETURNING created_at
	`, t.CourseID, t.Title, t.DueDate, t.IsCompleted, t.ID, t.UserID).Scan(&t.CreatedAt)
	return notFound(err)
}

func (r *TaskRepo) Delete(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM tasks WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
