// Package redis persists thread history in Redis so conversations survive
// process restarts.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"taskpilot/core"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "taskpilot:thread:"

// Saver stores each thread's full message list as one JSON value.
type Saver struct {
	client *redis.Client
	ttl    time.Duration
}

// Config holds Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int

	// TTL expires idle threads. Zero keeps them forever.
	TTL time.Duration
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg Config) (*Saver, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Saver{client: client, ttl: cfg.TTL}, nil
}

// Load returns the thread's messages, or empty for an unknown thread.
func (s *Saver) Load(ctx context.Context, threadID string) ([]core.Message, error) {
	data, err := s.client.Get(ctx, keyPrefix+threadID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get thread %s: %w", threadID, err)
	}

	var messages []core.Message
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("decode thread %s: %w", threadID, err)
	}
	return messages, nil
}

// Save replaces the thread's messages.
func (s *Saver) Save(ctx context.Context, threadID string, messages []core.Message) error {
	data, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("encode thread %s: %w", threadID, err)
	}
	if err := s.client.Set(ctx, keyPrefix+threadID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("set thread %s: %w", threadID, err)
	}
	return nil
}

// Close releases the Redis client.
func (s *Saver) Close() error {
	return s.client.Close()
}
