package redisclient

import (
	"testing"
	"time"
)

func TestClientOptions_Defaults(t *testing.T) {
	got := ClientOptions{Addr: "cache:6379"}.redisOptions()

	if got.Addr != "cache:6379" || got.DB != 0 {
		t.Fatalf("unexpected address settings %s/%d", got.Addr, got.DB)
	}
	if got.PoolSize != defaultPoolSize {
		t.Fatalf("expected pool size %d, got %d", defaultPoolSize, got.PoolSize)
	}
	if got.ReadTimeout != defaultTimeout || got.WriteTimeout != defaultTimeout || got.DialTimeout != defaultTimeout {
		t.Fatalf("expected %s timeouts, got %+v", defaultTimeout, got)
	}
}

func TestClientOptions_Overrides(t *testing.T) {
	got := ClientOptions{
		Addr:     "cache:6380",
		Username: "booker",
		Password: "s3cret",
		DB:       3,
		PoolSize: 40,
		Timeout:  250 * time.Millisecond,
	}.redisOptions()

	if got.Username != "booker" || got.Password != "s3cret" || got.DB != 3 {
		t.Fatalf("unexpected credentials %+v", got)
	}
	if got.PoolSize != 40 || got.ReadTimeout != 250*time.Millisecond || got.PoolTimeout != 250*time.Millisecond {
		t.Fatalf("overrides not applied: %+v", got)
	}
}
