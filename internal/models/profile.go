package models

import (
	"time"

	"github.com/google/uuid"
)

type UserProfile struct {
	UserID      uuid.UUID `json:"user_id"`
	Username    string    `json:"username"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Bio         *string   `json:"bio"`
	College     *string   `json:"college"`
	Semester    *int      `json:"semester"`
	Level       int       `json:"level"`
	XP          int       `json:"xp"`
	LoginStreak int       `json:"login_streak"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type UpdateProfileRequest struct {
	Username *string `json:"username" validate:"omitempty,min=3,max=32,username"`
	Name     *string `json:"name" validate:"omitempty,notblank,max=100"`
	Bio      *string `json:"bio" validate:"omitempty,max=500"`
	College  *string `json:"college" validate:"omitempty,max=200"`
	Semester *int    `json:"semester" validate:"omitempty,min=1,max=12"`
}

type LeaderboardEntry struct {
	Rank         int       `json:"rank"`
	UserID       uuid.UUID `json:"user_id"`
	Username     string    `json:"username"`
	XP           int       `json:"xp"`
	Level        int       `json:"level"`
	QuizzesTaken int       `json:"quizzes_taken"`
	AverageScore float64   `json:"average_score"`
}
