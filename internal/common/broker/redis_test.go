package broker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestBroker(t *testing.T) (*RedisBroker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	b, err := NewRedisBrokerWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	if err != nil {
		t.Fatalf("new broker: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b, mr
}

func TestRedisBrokerListIsFIFO(t *testing.T) {
	b, _ := newTestBroker(t)
	ctx := context.Background()

	if err := b.LPush(ctx, "q", "first"); err != nil {
		t.Fatalf("lpush: %v", err)
	}
	if err := b.LPush(ctx, "q", "second"); err != nil {
		t.Fatalf("lpush: %v", err)
	}

	got, err := b.BRPop(ctx, time.Second, "q")
	if err != nil {
		t.Fatalf("brpop: %v", err)
	}
	if got != "first" {
		t.Fatalf("expected first, got %q", got)
	}
	n, err := b.LLen(ctx, "q")
	if err != nil || n != 1 {
		t.Fatalf("expected 1 remaining, got %d (%v)", n, err)
	}
}

func TestRedisBrokerRPushFeedsBRPopInFIFOOrder(t *testing.T) {
	b, _ := newTestBroker(t)
	ctx := context.Background()

	// Producers RPUSH onto the ingress list; consumers BRPOP the tail.
	if err := b.RPush(ctx, "ingress", "a", "b"); err != nil {
		t.Fatalf("rpush: %v", err)
	}
	got, err := b.BRPop(ctx, time.Second, "ingress")
	if err != nil {
		t.Fatalf("brpop: %v", err)
	}
	if got != "b" {
		t.Fatalf("expected tail element b, got %q", got)
	}
}

func TestRedisBrokerBRPopTimeout(t *testing.T) {
	b, _ := newTestBroker(t)

	start := time.Now()
	_, err := b.BRPop(context.Background(), time.Second, "empty")
	if !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
	if time.Since(start) < 500*time.Millisecond {
		t.Fatalf("expected brpop to block until the timeout")
	}
}

func TestRedisBrokerRPop(t *testing.T) {
	b, _ := newTestBroker(t)
	ctx := context.Background()

	if _, err := b.RPop(ctx, "q"); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
	_ = b.LPush(ctx, "q", "first")
	_ = b.LPush(ctx, "q", "second")
	if got, err := b.RPop(ctx, "q"); err != nil || got != "first" {
		t.Fatalf("expected first, got %q (%v)", got, err)
	}
}

func TestRedisConfigDedicated(t *testing.T) {
	cfg := DefaultRedisConfig()
	cfg.Addr = "127.0.0.1:6379"
	d := cfg.Dedicated()
	if d.PoolSize != 1 || d.MinIdleConns != 0 || d.Addr != cfg.Addr {
		t.Fatalf("unexpected dedicated config %+v", d)
	}
	if cfg.PoolSize != 10 {
		t.Fatalf("expected source config untouched, got pool %d", cfg.PoolSize)
	}
}

func TestRedisBrokerPublishSubscribe(t *testing.T) {
	b, _ := newTestBroker(t)
	ctx := context.Background()

	sub, err := b.Subscribe(ctx, "results")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	if err := b.Publish(ctx, "results", `{"status":"success"}`); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case msg := <-sub.Messages():
		if msg != `{"status":"success"}` {
			t.Fatalf("unexpected payload %q", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no message received")
	}
}

func TestRedisBrokerGetMissingKey(t *testing.T) {
	b, _ := newTestBroker(t)
	ctx := context.Background()

	v, err := b.Get(ctx, "missing")
	if err != nil || v != "" {
		t.Fatalf("expected empty value, got %q (%v)", v, err)
	}
	if err := b.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if v, _ := b.Get(ctx, "k"); v != "v" {
		t.Fatalf("expected v, got %q", v)
	}
}

func TestRegistryGetUnknownRole(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.Get(RoleIngress); err == nil {
		t.Fatalf("expected error for unregistered role")
	}

	b, _ := newTestBroker(t)
	reg.Register(RoleLocal, b)
	got, err := reg.Get(RoleLocal)
	if err != nil || got != b {
		t.Fatalf("expected registered broker, got %v (%v)", got, err)
	}
	if err := reg.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := &RedisConfig{Addr: "x:6379", PoolSize: 3}
	cfg.ApplyDefaults()
	if cfg.PoolSize != 3 {
		t.Fatalf("expected explicit pool size, got %d", cfg.PoolSize)
	}
	if cfg.DialTimeout != 5*time.Second {
		t.Fatalf("expected default dial timeout, got %v", cfg.DialTimeout)
	}
}
