package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"studybuddy-backend/internal/models"
)

type CourseRepo struct {
	pool *pgxpool.Pool
}

func NewCourseRepo(pool *pgxpool.Pool) *CourseRepo {
	return &CourseRepo{pool: pool}
}

func (r *CourseRepo) Create(ctx context.Context, c *models.Course) error {
	c.ID = uuid.New()
	return r.pool.QueryRow(ctx, `
		INSERT INTO courses (id, user_id, course_name, course_code, progress)
		VALUES ($1, $2, $3, $4, $5) RETURNING created_at
	`, c.ID, c.UserID, c.CourseName, c.CourseCode, c.Progress).Scan(&c.CreatedAt)
}

func (r *CourseRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Course, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, course_name, course_code, progress, created_at
		FROM courses WHERE user_id = $1 ORDER BY created_at ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	courses := []*models.Course{}
	for rows.Next() {
		c := &models.Course{}
		if err := rows.Scan(&c.ID, &c.UserID, &c.CourseName, &c.CourseCode, &c.Progress, &c.CreatedAt); err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

func (r *CourseRepo) Update(ctx context.Context, c *models.Course) error {
	err := r.pool.QueryRow(ctx, `
		UPDATE courses SET course_name = $1, course_code = $2, progress = $3
		WHERE id = $4 AND user_id = $5
		RETURNING created_at
	`, c.CourseName, c.CourseCode, c.Progress, c.ID, c.UserID).Scan(&c.CreatedAt)
	return notFound(err)
}

func (r *CourseRepo) Delete(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM courses WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
