// Package session provides refresh-token storage backends. Redis is the
// primary backend; the Postgres store implements the same interface as a
// fallback when no Redis URL is configured.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"corkboard/internal/store"
)

// Store is the refresh-session contract shared by the Redis backend and
// the Postgres fallback.
type Store interface {
	SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
}

type tokenData struct {
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// RedisStore keeps refresh sessions in Redis with a TTL matching the
// session expiry, so revocation-by-expiry needs no sweeper.
type RedisStore struct {
	client *redis.Client
	prefix string
	users  userReader
}

// userReader resolves the stored user id back to a full user row so a
// refresh returns current profile data, not the snapshot at sign-in.
type userReader interface {
	GetUserByID(ctx context.Context, userID string) (store.User, error)
}

func NewRedisStore(redisURL string, users userReader) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisStore{client: client, prefix: "refresh:", users: users}, nil
}

// NewRedisStoreWithClient builds a store from an existing client. Used by
// tests that run against miniredis.
func NewRedisStoreWithClient(client *redis.Client, users userReader) *RedisStore {
	return &RedisStore{client: client, prefix: "refresh:", users: users}
}

func (s *RedisStore) key(tokenHash string) string {
	return s.prefix + tokenHash
}

func (s *RedisStore) SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	data := tokenData{
		UserID:    userID,
		CreatedAt: time.Now(),
	}
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal token data: %w", err)
	}

	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}

	if err := s.client.Set(ctx, s.key(tokenHash), jsonData, ttl).Err(); err != nil {
		return fmt.Errorf("save refresh token: %w", err)
	}
	return nil
}

func (s *RedisStore) LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error) {
	jsonData, err := s.client.Get(ctx, s.key(tokenHash)).Result()
	if err == redis.Nil {
		return store.User{}, fmt.Errorf("token not found or expired")
	}
	if err != nil {
		return store.User{}, fmt.Errorf("lookup refresh token: %w", err)
	}

	var data tokenData
	if err := json.Unmarshal([]byte(jsonData), &data); err != nil {
		return store.User{}, fmt.Errorf("unmarshal token data: %w", err)
	}

	if s.users != nil {
		user, err := s.users.GetUserByID(ctx, data.UserID)
		if err == nil {
			return user, nil
		}
	}
	return store.User{ID: data.UserID, Email: data.Email, DisplayName: data.DisplayName}, nil
}

func (s *RedisStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	if err := s.client.Del(ctx, s.key(tokenHash)).Err(); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
