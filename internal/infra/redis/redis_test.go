//go:build !integration

package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"masterclass-reconciler/internal/domain/model"
)

// fakeClient is an in-memory RedisClient; expirations are recorded, not enforced.
type fakeClient struct {
	mu      sync.Mutex
	vals    map[string]string
	counts  map[string]int64
	expires map[string]time.Duration
}

func newFakeClient() *fakeClient {
	return &fakeClient{vals: map[string]string{}, counts: map[string]int64{}, expires: map[string]time.Duration{}}
}

func (f *fakeClient) Ping(ctx context.Context) error { return nil }
func (f *fakeClient) Set(ctx context.Context, key string, value interface{}, exp time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vals[key] = "set"
	f.expires[key] = exp
	return nil
}
func (f *fakeClient) SetNX(ctx context.Context, key string, value interface{}, exp time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.vals[key]; ok {
		return false, nil
	}
	f.vals[key] = "set"
	f.expires[key] = exp
	return true, nil
}
func (f *fakeClient) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.vals[key], nil
}
func (f *fakeClient) Incr(ctx context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[key]++
	return f.counts[key], nil
}
func (f *fakeClient) Expire(ctx context.Context, key string, exp time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expires[key] = exp
	return nil
}
func (f *fakeClient) Del(ctx context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.vals, k)
	}
	return nil
}
func (f *fakeClient) Close() error { return nil }

func TestRateLimiter_Allow(t *testing.T) {
	t.Run("should allow up to limit and set expiry once", func(t *testing.T) {
		// --- Arrange ---
		c := newFakeClient()
		rl := NewRateLimiter(c)
		key := "rate_limit:u1:verify"

		// --- Act ---
		var allowed int
		for i := 0; i < 5; i++ {
			ok, err := rl.Allow(context.Background(), key, 3, time.Minute)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ok {
				allowed++
			}
		}

		// --- Assert ---
		if allowed != 3 {
			t.Errorf("expected 3 allowed calls, got %d", allowed)
		}
		if c.expires[key] != time.Minute {
			t.Errorf("expected window expiry to be set, got %s", c.expires[key])
		}
	})
}

func TestReminderLog(t *testing.T) {
	t.Run("should claim once and allow reclaim after release", func(t *testing.T) {
		c := newFakeClient()
		log := NewReminderLog(c, time.Hour)
		ctx := context.Background()

		first, _ := log.Claim(ctx, "mc_1", model.Window24h, "u1")
		second, _ := log.Claim(ctx, "mc_1", model.Window24h, "u1")
		otherWindow, _ := log.Claim(ctx, "mc_1", model.Window2h, "u1")
		_ = log.Release(ctx, "mc_1", model.Window24h, "u1")
		third, _ := log.Claim(ctx, "mc_1", model.Window24h, "u1")

		if !first || second || !otherWindow || !third {
			t.Errorf("unexpected claims first=%v second=%v other=%v third=%v", first, second, otherWindow, third)
		}
		if c.expires["reminder:mc_1:24h:u1"] != time.Hour {
			t.Errorf("expected claim ttl of 1h, got %s", c.expires["reminder:mc_1:24h:u1"])
		}
	})
}
