package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisConnectTimeout = 10 * time.Second

// RedisClients holds two connection pools to the same Redis server.
//
// Queue carries every request/response command: the job list (LPUSH and the
// workers' BLPOP), per-job processing locks, and the short-lived keys behind
// summary handoffs, study materials, quiz sessions and the generation
// sequence. BLPOP holds a connection for up to its timeout, so Queue is sized
// for that.
//
// PubSub carries PUBLISH to user_updates:{id} and the hub's long-lived
// SUBSCRIBE connections. Keeping subscriptions off Queue means a burst of
// WebSocket clients cannot starve the workers of connections.
type RedisClients struct {
	Queue  *redis.Client
	PubSub *redis.Client
}

func NewRedisClients(ctx context.Context, redisURL string) (*RedisClients, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, redisConnectTimeout)
	defer cancel()

	queue, err := connectRedis(ctx, opt, "queue")
	if err != nil {
		return nil, err
	}

	// Each client keeps its own copy of the options.
	pubsubOpt := *opt
	pubsub, err := connectRedis(ctx, &pubsubOpt, "pubsub")
	if err != nil {
		queue.Close()
		return nil, err
	}

	return &RedisClients{Queue: queue, PubSub: pubsub}, nil
}

func connectRedis(ctx context.Context, opt *redis.Options, role string) (*redis.Client, error) {
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis (%s): %w", role, err)
	}
	return client, nil
}

// Close shuts both pools, reporting every failure.
func (r *RedisClients) Close() error {
	return errors.Join(r.Queue.Close(), r.PubSub.Close())
}
