package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"parkspot/backend/services/parking-service/internal/models"
)

func TestKeyIsScopedPerUser(t *testing.T) {
	if got := key(42); got != "parking:sessions:open:42" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestUnreachableRedisSurfacesErrors(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	defer client.Close()
	store := NewStore(client, 0)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := store.Save(ctx, models.Session{UserID: 1, Status: models.SessionActive}); err == nil {
		t.Fatal("expected save error")
	}
	if session, err := store.Get(ctx, 1); err == nil || session != nil {
		t.Fatalf("expected read error, got %v %v", session, err)
	}
}
