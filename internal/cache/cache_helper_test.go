package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestManager(t *testing.T) (*CacheManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewCacheManager(client), mr
}

type bankEntry struct {
	ID   string `json:"id"`
	Tier string `json:"tier"`
}

func TestCacheHelper_GetSetDelete(t *testing.T) {
	cm, mr := newTestManager(t)
	ctx := context.Background()

	var out []bankEntry
	if err := cm.Bank.Get(ctx, "Go Backend", &out); !errors.Is(err, ErrCacheNotFound) {
		t.Fatalf("Get() on empty cache error = %v, want ErrCacheNotFound", err)
	}

	in := []bankEntry{{ID: "GB001", Tier: "easy"}}
	if err := cm.Bank.Set(ctx, "Go Backend", in, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if !mr.Exists("bank:Go Backend") {
		t.Fatal("expected prefixed key in redis")
	}
	if err := cm.Bank.Get(ctx, "Go Backend", &out); err != nil || len(out) != 1 || out[0].ID != "GB001" {
		t.Fatalf("Get() = %v, %v", out, err)
	}

	InvalidateBankCache(ctx, cm, "Go Backend")
	if mr.Exists("bank:Go Backend") {
		t.Error("key should be removed after invalidation")
	}
}

func TestCacheHelper_InvalidatePattern(t *testing.T) {
	cm, mr := newTestManager(t)
	ctx := context.Background()

	for _, bank := range []string{"Go Backend", "Python Scripting", "Java Core"} {
		if err := cm.Bank.Set(ctx, bank, []bankEntry{}, time.Minute); err != nil {
			t.Fatal(err)
		}
	}
	_ = cm.Stats.Set(ctx, "Go Backend", 3, time.Minute)

	InvalidateAllBanks(ctx, cm)
	if keys := mr.Keys(); len(keys) != 0 {
		t.Errorf("keys left after invalidation: %v", keys)
	}
}

func TestCacheHelper_CacheOrExecute(t *testing.T) {
	cm, mr := newTestManager(t)
	ctx := context.Background()

	calls := 0
	fetch := func() (interface{}, error) {
		calls++
		return []bankEntry{{ID: "PS001", Tier: "hard"}}, nil
	}

	var out []bankEntry
	if err := cm.Bank.CacheOrExecute(ctx, "Python Scripting", &out, time.Minute, fetch); err != nil {
		t.Fatalf("CacheOrExecute() error = %v", err)
	}
	if calls != 1 || len(out) != 1 {
		t.Fatalf("calls = %d, out = %v", calls, out)
	}

	if !mr.Exists("bank:Python Scripting") {
		t.Fatal("value was not cached")
	}

	out = nil
	if err := cm.Bank.CacheOrExecute(ctx, "Python Scripting", &out, time.Minute, fetch); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("fetch called %d times, want 1 (served from cache)", calls)
	}
	if len(out) != 1 || out[0].ID != "PS001" {
		t.Errorf("cached value = %v", out)
	}

	fetchErr := errors.New("db down")
	err := cm.Bank.CacheOrExecute(ctx, "Other Bank", &out, time.Minute, func() (interface{}, error) { return nil, fetchErr })
	if !errors.Is(err, fetchErr) {
		t.Errorf("CacheOrExecute() error = %v, want %v", err, fetchErr)
	}
}

func TestCacheHelper_CacheOrExecuteSkipsStaleStore(t *testing.T) {
	cm, mr := newTestManager(t)
	ctx := context.Background()

	calls := 0
	// A write lands and invalidates the bank while the first fetch is still reading.
	fetch := func() (interface{}, error) {
		calls++
		if calls == 1 {
			InvalidateBankCache(ctx, cm, "Go Backend")
			return []bankEntry{{ID: "GB001", Tier: "easy"}}, nil
		}
		return []bankEntry{{ID: "GB001", Tier: "easy"}, {ID: "GB002", Tier: "hard"}}, nil
	}

	var out []bankEntry
	if err := cm.Bank.CacheOrExecute(ctx, "Go Backend", &out, time.Minute, fetch); err != nil {
		t.Fatalf("CacheOrExecute() error = %v", err)
	}
	if len(out) != 1 {
		t.Errorf("first result = %v", out)
	}
	if mr.Exists("bank:Go Backend") {
		t.Fatal("stale list was cached after invalidation")
	}

	out = nil
	if err := cm.Bank.CacheOrExecute(ctx, "Go Backend", &out, time.Minute, fetch); err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 || !mr.Exists("bank:Go Backend") {
		t.Errorf("fresh list not cached: %v", out)
	}

	out = nil
	if err := cm.Bank.Get(ctx, "Go Backend", &out); err != nil || len(out) != 2 {
		t.Errorf("Get() = %v, %v", out, err)
	}
}

func TestCacheManager_NilClient(t *testing.T) {
	cm := NewCacheManager(nil)
	ctx := context.Background()

	if cm.Enabled() {
		t.Error("Enabled() = true for nil client")
	}
	if err := cm.HealthCheck(ctx); !errors.Is(err, ErrCacheNotAvailable) {
		t.Errorf("HealthCheck() = %v", err)
	}
	if err := cm.Bank.Set(ctx, "x", 1, time.Minute); err != nil {
		t.Errorf("Set() on nil client = %v", err)
	}

	var out int
	calls := 0
	for i := 0; i < 2; i++ {
		_ = cm.Bank.CacheOrExecute(ctx, "x", &out, time.Minute, func() (interface{}, error) {
			calls++
			return 5, nil
		})
	}
	if calls != 2 || out != 5 {
		t.Errorf("calls = %d, out = %d", calls, out)
	}
}
