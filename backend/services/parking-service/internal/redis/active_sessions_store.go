package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"parkspot/backend/services/parking-service/internal/models"
)

const defaultTTL = 24 * time.Hour

// Store caches each user's open session in redis.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore returns redis-backed store.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Store{client: client, ttl: ttl}
}

func key(userID int64) string {
	return fmt.Sprintf("parking:sessions:open:%d", userID)
}

// Save caches the session under its owner.
func (s *Store) Save(ctx context.Context, session models.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return s.client.Set(ctx, key(session.UserID), data, s.ttl).Err()
}

// Get returns the cached open session, or nil when nothing is cached.
func (s *Store) Get(ctx context.Context, userID int64) (*models.Session, error) {
	result, err := s.client.Get(ctx, key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var session models.Session
	if err := json.Unmarshal(result, &session); err != nil {
		// stale entry from an older format
		_ = s.client.Del(ctx, key(userID)).Err()
		return nil, nil
	}
	if !session.Status.Open() {
		return nil, nil
	}
	return &session, nil
}

// Delete drops the cached session.
func (s *Store) Delete(ctx context.Context, userID int64) error {
	return s.client.Del(ctx, key(userID)).Err()
}
