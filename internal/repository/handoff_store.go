package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrHandoffNotFound means the token is unknown, expired, already used or
// belongs to someone else.
var ErrHandoffNotFound = errors.New("handoff token not found")

// Handoff carries a document summary from the analyze step to material
// generation.
type Handoff struct {
	DocumentID uuid.UUID `json:"document_id"`
	Summary    string    `json:"summary"`
}

func handoffKey(ownerID uuid.UUID, token string) string {
	return "handoff:" + ownerID.String() + ":" + token
}

type HandoffStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewHandoffStore(rdb *redis.Client, ttl time.Duration) *HandoffStore {
	return &HandoffStore{rdb: rdb, ttl: ttl}
}

func (s *HandoffStore) TTL() time.Duration {
	return s.ttl
}

// Put stores h and returns the single-use token that retrieves it.
func (s *HandoffStore) Put(ctx context.Context, ownerID uuid.UUID, h Handoff) (string, error) {
	data, err := json.Marshal(h)
	if err != nil {
		return "", err
	}
	token := uuid.NewString()
	if err := s.rdb.Set(ctx, handoffKey(ownerID, token), data, s.ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// Take returns the handoff and deletes it atomically, so a token can be
// redeemed once.
func (s *HandoffStore) Take(ctx context.Context, ownerID uuid.UUID, token string) (*Handoff, error) {
	data, err := s.rdb.GetDel(ctx, handoffKey(ownerID, token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrHandoffNotFound
	}
	if err != nil {
		return nil, err
	}
	var h Handoff
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, err
	}
	return &h, nil
}
