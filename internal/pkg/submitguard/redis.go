package submitguard

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/commandinlaw/academy/internal/pkg/logger"
)

const keyPrefix = "academy:form-token:"

// RedisGuard shares tokens between application instances.
type RedisGuard struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisGuard creates a RedisGuard on client.
func NewRedisGuard(client redis.Cmdable, ttl time.Duration) *RedisGuard {
	return &RedisGuard{client: client, ttl: ttl}
}

// NewRedisClient connects to addr and verifies the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return client, nil
}

func (g *RedisGuard) Issue(ctx context.Context) (string, error) {
	token := uuid.New().String()
	if err := g.client.Set(ctx, keyPrefix+token, 1, g.ttl).Err(); err != nil {
		logger.Error().Err(err).Msg("Failed to store form token")
		return "", fmt.Errorf("failed to store form token: %w", err)
	}
	return token, nil
}

// Consume deletes the token; only the caller whose DEL removed it wins.
func (g *RedisGuard) Consume(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	n, err := g.client.Del(ctx, keyPrefix+token).Result()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to consume form token")
		return false, fmt.Errorf("failed to consume form token: %w", err)
	}
	return n == 1, nil
}
