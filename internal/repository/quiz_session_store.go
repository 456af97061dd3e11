package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"studybuddy-backend/internal/models"
)

// ErrConcurrentUpdate is returned when a quiz session changed while an
// update was being applied and the retries ran out.
var ErrConcurrentUpdate = errors.New("quiz session was modified concurrently")

const sessionUpdateAttempts = 5

func quizSessionKey(id uuid.UUID) string {
	return "quiz_session:" + id.String()
}

type QuizSessionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewQuizSessionStore(rdb *redis.Client, ttl time.Duration) *QuizSessionStore {
	return &QuizSessionStore{rdb: rdb, ttl: ttl}
}

func (s *QuizSessionStore) Create(ctx context.Context, qs *models.QuizSession) error {
	data, err := json.Marshal(qs)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, quizSessionKey(qs.ID), data, s.ttl).Err()
}

func (s *QuizSessionStore) Get(ctx context.Context, id uuid.UUID) (*models.QuizSession, error) {
	return getSession(ctx, s.rdb, id)
}

func getSession(ctx context.Context, c redis.Cmdable, id uuid.UUID) (*models.QuizSession, error) {
	data, err := c.Get(ctx, quizSessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var qs models.QuizSession
	if err := json.Unmarshal(data, &qs); err != nil {
		return nil, err
	}
	return &qs, nil
}

// Update loads the session, applies fn and writes it back under WATCH so
// concurrent answer updates never overwrite each other. An error from fn
// aborts the update and is returned as is.
func (s *QuizSessionStore) Update(ctx context.Context, id uuid.UUID, fn func(*models.QuizSession) error) (*models.QuizSession, error) {
	key := quizSessionKey(id)
	var updated *models.QuizSession

	txf := func(tx *redis.Tx) error {
		qs, err := getSession(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(qs); err != nil {
			return err
		}
		data, err := json.Marshal(qs)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, redis.KeepTTL)
			return nil
		})
		if err == nil {
			updated = qs
		}
		return err
	}

	for i := 0; i < sessionUpdateAttempts; i++ {
		err := s.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return updated, err
	}
	return nil, ErrConcurrentUpdate
}
