package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func generationSeqKey(userID uuid.UUID) string {
	return "generation_seq:" + userID.String()
}

// GenerationSequence numbers a user's generation requests so that only the
// newest request's result is kept.
type GenerationSequence struct {
	rdb *redis.Client
}

func NewGenerationSequence(rdb *redis.Client) *GenerationSequence {
	return &GenerationSequence{rdb: rdb}
}

func (s *GenerationSequence) Next(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.rdb.Incr(ctx, generationSeqKey(userID)).Result()
}

func (s *GenerationSequence) Latest(ctx context.Context, userID uuid.UUID) (int64, error) {
	n, err := s.rdb.Get(ctx, generationSeqKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}
