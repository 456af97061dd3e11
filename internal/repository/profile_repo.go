package repository

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"studybuddy-backend/internal/models"
)

var ErrUsernameTaken = errors.New("username is already taken")

type ProfileRepo struct {
	pool *pgxpool.Pool
}

func NewProfileRepo(pool *pgxpool.Pool) *ProfileRepo {
	return &ProfileRepo{pool: pool}
}

const profileColumns = `user_id, username, name, email, bio, college, semester, level, xp, login_streak, created_at, updated_at`

func scanProfile(row interface{ Scan(dest ...any) error }) (*models.UserProfile, error) {
	p := &models.UserProfile{}
	err := row.Scan(&p.UserID, &p.Username, &p.Name, &p.Email, &p.Bio, &p.College, &p.Semester,
		&p.Level, &p.XP, &p.LoginStreak, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

func (r *ProfileRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error) {
	return scanProfile(r.pool.QueryRow(ctx, "SELECT "+profileColumns+" FROM user_profiles WHERE user_id = $1", userID))
}

// GetOrCreate returns the user's profile, creating one from the token email
// on first access. The username defaults to the email's local part plus a
// short suffix of the user id.
func (r *ProfileRepo) GetOrCreate(ctx context.Context, userID uuid.UUID, email string) (*models.UserProfile, error) {
	username := defaultUsername(userID, email)
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_profiles (user_id, username, name, email)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, username, strings.SplitN(email, "@", 2)[0], email)
	if err != nil {
		return nil, err
	}
	return r.GetByUserID(ctx, userID)
}

// defaultUsername derives "{local}-{id prefix}" from the email, keeping only
// characters a username may contain.
func defaultUsername(userID uuid.UUID, email string) string {
	local := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			return r
		}
		return -1
	}, strings.SplitN(email, "@", 2)[0])
	if local == "" {
		local = "student"
	}
	if r := []rune(local); len(r) > 24 {
		local = string(r[:24])
	}
	return local + "-" + userID.String()[:6]
}

func (r *ProfileRepo) Update(ctx context.Context, p *models.UserProfile) error {
	err := r.pool.QueryRow(ctx, `
		UPDATE user_profiles
		SET username = $1, name = $2, bio = $3, college = $4, semester = $5, updated_at = NOW()
		WHERE user_id = $6
		RETURNING updated_at
	`, p.Username, p.Name, p.Bio, p.College, p.Semester, p.UserID).Scan(&p.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrUsernameTaken
		}
		return notFound(err)
	}
	return nil
}

// TouchLogin advances the daily login streak. Consecutive days increment it,
// a gap resets it to one and repeat visits on the same day leave it alone.
func (r *ProfileRepo) TouchLogin(ctx context.Context, userID uuid.UUID) (int, error) {
	var streak int
	err := r.pool.QueryRow(ctx, `
		UPDATE user_profiles
		SET login_streak = CASE
				WHEN last_login_date = CURRENT_DATE THEN login_streak
				WHEN last_login_date = CURRENT_DATE - 1 THEN login_streak + 1
				ELSE 1
			END,
			last_login_date = CURRENT_DATE
		WHERE user_id = $1
		RETURNING login_streak
	`, userID).Scan(&streak)
	return streak, notFound(err)
}

func (r *ProfileRepo) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.user_id, p.username, p.xp, p.level,
			COUNT(a.id)::INT AS quizzes_taken,
			COALESCE(AVG(a.score), 0)::FLOAT8 AS average_score
		FROM user_profiles p
		LEFT JOIN quiz_attempts a ON a.user_id = p.user_id
		GROUP BY p.user_id, p.username, p.xp, p.level
		ORDER BY p.xp DESC, p.username ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.LeaderboardEntry{}
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Username, &e.XP, &e.Level, &e.QuizzesTaken, &e.AverageScore); err != nil {
			return nil, err
		}
		e.Rank = len(entries) + 1
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
