package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestIdempotencyStore_KeyFormat(t *testing.T) {
	s := NewIdempotencyStore(nil, 0)
	if got := s.key("alice@x.com:k-1"); got != "idem:task:alice@x.com:k-1" {
		t.Fatalf("unexpected key: %s", got)
	}
	if s.ttl != defaultIdempotencyTTL {
		t.Fatalf("expected default ttl, got %s", s.ttl)
	}
}

func TestIdempotencyStore_UnreachableServer(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()
	s := NewIdempotencyStore(client, time.Minute)

	if _, _, err := s.Lookup(context.Background(), "k"); err == nil {
		t.Fatalf("expected lookup error against closed port")
	}
	if err := s.Remember(context.Background(), "k", 1); err == nil {
		t.Fatalf("expected remember error against closed port")
	}
}
