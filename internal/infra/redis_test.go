package infra

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestNewRedisClient(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	client, err := NewRedisClient(context.Background(), "redis://"+mr.Addr()+"/0", "")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()

	if got := client.Options().ReadTimeout; got != redisIOTimeout {
		t.Fatalf("expected read timeout %v, got %v", redisIOTimeout, got)
	}
}

func TestNewRedisClientRequiresURL(t *testing.T) {
	if _, err := NewRedisClient(context.Background(), "", "ivr"); err == nil {
		t.Fatalf("expected missing url to fail")
	}
}

func TestNewPostgresPoolRequiresURL(t *testing.T) {
	if _, err := NewPostgresPool(context.Background(), "", "ivr"); err == nil {
		t.Fatalf("expected missing url to fail")
	}
}
