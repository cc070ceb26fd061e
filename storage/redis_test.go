package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisBackend(t *testing.T) (*Redis, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedis(client, "talim-test"), func() {
		client.Close()
		mr.Close()
	}
}

func TestRedisRoundTrip(t *testing.T) {
	backend, done := newRedisBackend(t)
	defer done()
	ctx := context.Background()

	if err := backend.Set(ctx, "session:auth", []byte("payload")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := backend.Get(ctx, "session:auth")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "payload" {
		t.Fatalf("unexpected value: %s", got)
	}
}

func TestRedisMissingKey(t *testing.T) {
	backend, done := newRedisBackend(t)
	defer done()

	_, err := backend.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRedisDelete(t *testing.T) {
	backend, done := newRedisBackend(t)
	defer done()
	ctx := context.Background()

	if err := backend.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := backend.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := backend.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestRedisUnavailable(t *testing.T) {
	backend, done := newRedisBackend(t)
	done() // shut down before use

	err := backend.Set(context.Background(), "k", []byte("v"))
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
