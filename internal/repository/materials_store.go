package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"studybuddy-backend/internal/models"
)

func materialsKey(jobID uuid.UUID) string {
	return "materials:" + jobID.String()
}

// MaterialsStore keeps generated study materials in Redis. Materials are
// not persisted beyond the TTL.
type MaterialsStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewMaterialsStore(rdb *redis.Client, ttl time.Duration) *MaterialsStore {
	return &MaterialsStore{rdb: rdb, ttl: ttl}
}

func (s *MaterialsStore) Save(ctx context.Context, jobID uuid.UUID, m *models.StudyMaterials) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, materialsKey(jobID), data, s.ttl).Err()
}

func (s *MaterialsStore) Get(ctx context.Context, jobID uuid.UUID) (*models.StudyMaterials, error) {
	data, err := s.rdb.Get(ctx, materialsKey(jobID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var m models.StudyMaterials
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("corrupt materials for job %s: %w", jobID, err)
	}
	return &m, nil
}
