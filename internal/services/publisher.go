package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"studybuddy-backend/internal/logger"
	"studybuddy-backend/internal/models"
)

// UserChannel is the pub/sub channel the WebSocket hub forwards to a user.
func UserChannel(userID uuid.UUID) string {
	return fmt.Sprintf("user_updates:%s", userID.String())
}

type Publisher struct {
	redis *redis.Client
	log   *logger.Logger
}

func NewPublisher(redisClient *redis.Client, log *logger.Logger) *Publisher {
	return &Publisher{redis: redisClient, log: log.With("service", "Publisher")}
}

// PublishUpdate sends a WebSocket update via Redis pub/sub
func (p *Publisher) PublishUpdate(ctx context.Context, userID uuid.UUID, msg models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		p.log.Error("failed to marshal ws message", "type", msg.Type, "error", err)
		return
	}
	if err := p.redis.Publish(ctx, UserChannel(userID), string(data)).Err(); err != nil {
		p.log.Warn("failed to publish ws message", "type", msg.Type, "error", err)
	}
}
