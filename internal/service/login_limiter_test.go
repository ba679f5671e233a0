package service

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type mockLimiterRedis struct {
	counts     map[string]int64
	lastScript string
	lastArgs   []interface{}
	err        error
}

func newMockLimiterRedis() *mockLimiterRedis {
	return &mockLimiterRedis{counts: make(map[string]int64)}
}

func (m *mockLimiterRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	if m.err != nil {
		cmd.SetErr(m.err)
		return cmd
	}
	n, ok := m.counts[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(strconv.FormatInt(n, 10))
	return cmd
}

func (m *mockLimiterRedis) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	m.lastScript = script
	m.lastArgs = args
	cmd := redis.NewCmd(ctx)
	if m.err != nil {
		cmd.SetErr(m.err)
		return cmd
	}
	m.counts[keys[0]]++
	cmd.SetVal(m.counts[keys[0]])
	return cmd
}

func (m *mockLimiterRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	for _, k := range keys {
		delete(m.counts, k)
	}
	cmd.SetVal(int64(len(keys)))
	return cmd
}

func TestLoginKey(t *testing.T) {
	if got := LoginKey(" alice@example.com ", "203.0.113.7"); got != "alice@example.com|203.0.113.7" {
		t.Fatalf("unexpected key %q", got)
	}
	if LoginKey("alice@example.com", "203.0.113.7") == LoginKey("alice@example.com", "198.51.100.2") {
		t.Fatalf("expected different client IPs to use different keys")
	}
}

func TestLoginLimiter_CountsFailuresInWindow(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	now := base
	l := NewLoginLimiter(time.Minute, 2).(*failureWindow)
	l.now = func() time.Time { return now }

	key := LoginKey("a@example.com", "10.0.0.1")
	if l.Locked(key) {
		t.Fatalf("expected fresh key unlocked")
	}
	l.RecordFailure(key)
	if l.Locked(key) {
		t.Fatalf("expected one failure to stay under the limit")
	}
	l.RecordFailure(key)
	if !l.Locked(key) {
		t.Fatalf("expected key locked after two failures")
	}
	if l.Locked(LoginKey("a@example.com", "10.0.0.2")) {
		t.Fatalf("expected other client IP unaffected")
	}

	now = base.Add(61 * time.Second)
	if l.Locked(key) {
		t.Fatalf("expected key unlocked after window")
	}
}

func TestLoginLimiter_ResetClearsFailures(t *testing.T) {
	l := NewLoginLimiter(time.Minute, 2).(*failureWindow)
	l.RecordFailure("k")
	l.RecordFailure("k")
	l.Reset("k")
	if l.Locked("k") {
		t.Fatalf("expected reset key unlocked")
	}
	if len(l.failures) != 0 {
		t.Fatalf("expected reset to drop the key, got %d entries", len(l.failures))
	}
}

func TestLoginLimiter_EvictsStaleKeys(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	now := base
	l := NewLoginLimiter(time.Minute, 3).(*failureWindow)
	l.now = func() time.Time { return now }

	for i := 0; i < 1000; i++ {
		l.RecordFailure(LoginKey(strconv.Itoa(i)+"@example.com", "10.0.0.1"))
	}
	if len(l.failures) != 1000 {
		t.Fatalf("expected 1000 tracked keys, got %d", len(l.failures))
	}

	// Una sola falla tras la ventana barre todas las claves vencidas.
	now = base.Add(2 * time.Minute)
	l.RecordFailure("fresh")
	if len(l.failures) != 1 {
		t.Fatalf("expected stale keys evicted, got %d entries", len(l.failures))
	}

	// Consultar una clave vencida tambien la elimina.
	l.RecordFailure("old")
	now = now.Add(2 * time.Minute)
	l.Locked("old")
	if _, ok := l.failures["old"]; ok {
		t.Fatalf("expected expired key removed on lookup")
	}
}

func TestLoginLimiter_Defaults(t *testing.T) {
	l := NewLoginLimiter(0, 0).(*failureWindow)
	if l.max != 1 || l.window != time.Minute {
		t.Fatalf("unexpected defaults: max=%d window=%v", l.max, l.window)
	}
}

func TestRedisLoginLimiter(t *testing.T) {
	newLimiter := func(client *mockLimiterRedis, window time.Duration) *redisLoginLimiter {
		return &redisLoginLimiter{client: client, window: window, max: 2, prefix: "auth:login_failures:"}
	}

	t.Run("nil client yields no limiter", func(t *testing.T) {
		if NewRedisLoginLimiter(nil, time.Minute, 3) != nil {
			t.Fatalf("expected nil limiter for nil client")
		}
	})

	t.Run("locks after max failures", func(t *testing.T) {
		mock := newMockLimiterRedis()
		l := newLimiter(mock, 15*time.Minute)
		if l.Locked("a|1") {
			t.Fatalf("expected missing counter to read as unlocked")
		}
		l.RecordFailure("a|1")
		l.RecordFailure("a|1")
		if !l.Locked("a|1") {
			t.Fatalf("expected key locked after two failures")
		}
		if mock.counts["auth:login_failures:a|1"] != 2 {
			t.Fatalf("unexpected counters %+v", mock.counts)
		}
		if mock.lastScript != redisLoginFailureScript {
			t.Fatalf("expected failure script")
		}
		if len(mock.lastArgs) != 1 || mock.lastArgs[0] != 900 {
			t.Fatalf("expected TTL seconds=900, got %+v", mock.lastArgs)
		}
	})

	t.Run("reset deletes counter", func(t *testing.T) {
		mock := newMockLimiterRedis()
		l := newLimiter(mock, time.Minute)
		l.RecordFailure("a|1")
		l.RecordFailure("a|1")
		l.Reset("a|1")
		if l.Locked("a|1") {
			t.Fatalf("expected key unlocked after reset")
		}
	})

	t.Run("redis error fails open", func(t *testing.T) {
		mock := newMockLimiterRedis()
		mock.err = errors.New("redis down")
		l := newLimiter(mock, time.Minute)
		l.RecordFailure("a|1")
		if l.Locked("a|1") {
			t.Fatalf("expected fail-open on redis errors")
		}
	})
}
