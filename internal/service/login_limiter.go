package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginLimiter cuenta solo los intentos fallidos por clave (email + IP).
// Un login correcto limpia el contador de su clave.
type LoginLimiter interface {
	Locked(key string) bool
	RecordFailure(key string)
	Reset(key string)
}

// LoginKey arma la clave de throttling. Un tercero en otra IP no puede bloquear la cuenta.
func LoginKey(email, clientIP string) string {
	return strings.TrimSpace(email) + "|" + strings.TrimSpace(clientIP)
}

type failureWindow struct {
	mu        sync.Mutex
	window    time.Duration
	max       int
	failures  map[string][]time.Time
	lastSweep time.Time
	now       func() time.Time
}

// NewLoginLimiter crea el limitador en memoria de ventana deslizante.
func NewLoginLimiter(window time.Duration, max int) LoginLimiter {
	if max <= 0 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &failureWindow{
		window:   window,
		max:      max,
		failures: make(map[string][]time.Time),
		now:      time.Now,
	}
}

func (l *failureWindow) Locked(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.prune(key, l.now())) >= l.max
}

func (l *failureWindow) RecordFailure(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	l.failures[key] = append(l.prune(key, now), now)
	if now.Sub(l.lastSweep) >= l.window {
		l.sweep(now)
	}
}

func (l *failureWindow) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.failures, key)
}

// prune descarta fallos fuera de la ventana y borra la clave si queda vacia.
func (l *failureWindow) prune(key string, now time.Time) []time.Time {
	entries, ok := l.failures[key]
	if !ok {
		return nil
	}
	cutoff := now.Add(-l.window)
	kept := entries[:0]
	for _, ts := range entries {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) == 0 {
		delete(l.failures, key)
		return nil
	}
	l.failures[key] = kept
	return kept
}

// sweep recorre todas las claves; acota el mapa a los fallos de la ultima ventana.
func (l *failureWindow) sweep(now time.Time) {
	for key := range l.failures {
		l.prune(key, now)
	}
	l.lastSweep = now
}

const redisLoginFailureScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return current
`

type redisLimiterClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// redisLoginLimiter usa ventana fija: la primera falla abre la ventana y el TTL la cierra.
type redisLoginLimiter struct {
	client redisLimiterClient
	window time.Duration
	max    int
	prefix string
}

// NewRedisLoginLimiter comparte los contadores entre instancias; ante errores de redis no bloquea.
func NewRedisLoginLimiter(client *redis.Client, window time.Duration, max int) LoginLimiter {
	if client == nil {
		return nil
	}
	if window <= 0 {
		window = time.Minute
	}
	if max <= 0 {
		max = 1
	}
	return &redisLoginLimiter{
		client: client,
		window: window,
		max:    max,
		prefix: "auth:login_failures:",
	}
}

func (l *redisLoginLimiter) Locked(key string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	// redis.Nil (sin fallos) y errores de red caen aqui: no se bloquea.
	count, err := l.client.Get(ctx, l.prefix+key).Int()
	if err != nil {
		return false
	}
	return count >= l.max
}

func (l *redisLoginLimiter) RecordFailure(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	seconds := int(l.window.Seconds())
	if seconds <= 0 {
		seconds = 60
	}
	_ = l.client.Eval(ctx, redisLoginFailureScript, []string{l.prefix + key}, seconds).Err()
}

func (l *redisLoginLimiter) Reset(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	_ = l.client.Del(ctx, l.prefix+key).Err()
}
