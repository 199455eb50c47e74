package credential

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/training-scheduler/internal/application"
)

// DefaultRedisKey is the key holding the credential record.
const DefaultRedisKey = "trainingctl:credentials"

// RedisConfig configures the Redis backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Key      string
	// TTL expires the record server side; zero keeps it until Clear.
	TTL time.Duration
}

// Redis keeps the credential record under a single key so several
// workstations can share a sign-in.
type Redis struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	sealer *Sealer
}

// OpenRedis connects to cfg.Addr and verifies the server answers.
func OpenRedis(ctx context.Context, cfg RedisConfig, sealer *Sealer) (*Redis, error) {
	addr := cfg.Addr
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to reach redis at %s: %w", addr, err)
	}
	return NewRedis(client, cfg.Key, cfg.TTL, sealer), nil
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client, key string, ttl time.Duration, sealer *Sealer) *Redis {
	if key == "" {
		key = DefaultRedisKey
	}
	return &Redis{client: client, key: key, ttl: ttl, sealer: sealer}
}

func (r *Redis) load(ctx context.Context) (*record, error) {
	raw, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}
	rec, err := decodeRecord(r.sealer, raw)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CurrentUser returns the persisted user, or nil when signed out.
func (r *Redis) CurrentUser(ctx context.Context) (*application.User, error) {
	rec, err := r.load(ctx)
	if err != nil || rec == nil {
		return nil, err
	}
	return &rec.User, nil
}

// AuthToken returns the persisted token, or "" when signed out.
func (r *Redis) AuthToken(ctx context.Context) (string, error) {
	rec, err := r.load(ctx)
	if err != nil || rec == nil {
		return "", err
	}
	return rec.Token, nil
}

// Persist stores user and token under the configured key.
func (r *Redis) Persist(ctx context.Context, user application.User, token string) error {
	payload, err := encodeRecord(r.sealer, user, token)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key, payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to persist credentials: %w", err)
	}
	return nil
}

// Clear deletes the key.
func (r *Redis) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}

// Close closes the client.
func (r *Redis) Close() error {
	return r.client.Close()
}
