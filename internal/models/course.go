package models

import (
	"time"

	"github.com/google/uuid"
)

type Course struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	CourseName string    `json:"course_name"`
	CourseCode string    `json:"course_code"`
	Progress   int       `json:"progress"`
	CreatedAt  time.Time `json:"created_at"`
}

type CourseRequest struct {
	CourseName string `json:"course_name" validate:"required,notblank,max=120"`
	CourseCode string `json:"course_code" validate:"max=20"`
	Progress   int    `json:"progress" validate:"min=0,max=100"`
}

type Task struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	CourseID    *uuid.UUID `json:"course_id"`
	Title       string     `json:"title"`
	DueDate     *time.Time `json:"due_date"`
	IsCompleted bool       `json:"is_completed"`
	CreatedAt   time.Time  `json:"created_at"`
}

type TaskRequest struct {
	Title       string     `json:"title" validate:"required,notblank,max=200"`
	CourseID    *uuid.UUID `json:"course_id"`
	DueDate     *time.Time `json:"due_date"`
	IsCompleted bool       `json:"is_completed"`
}

// StudyPlanItem is one block of the generated daily plan.
type StudyPlanItem struct {
	CourseID        uuid.UUID `json:"course_id"`
	Title           string    `json:"title"`
	TimeSlot        string    `json:"time_slot"`
	DurationMinutes int       `json:"duration_minutes"`
	Progress        int       `json:"progress"`
}
