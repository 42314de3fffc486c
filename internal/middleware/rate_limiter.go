package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"cajaescolar/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Limitador counts hits per key in a fixed window.
type Limitador interface {
	// Permitir registers one hit for key and reports whether it is within the
	// limit, plus how long until the window resets.
	Permitir(ctx context.Context, key string) (bool, time.Duration, error)
}

// RateLimit rejects requests once the caller's IP exceeds l's limit. A
// limiter error lets the request through.
func RateLimit(l Limitador, prefijo, mensaje string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, reset, err := l.Permitir(c.Request.Context(), prefijo+c.ClientIP())
		if err != nil {
			log.Warn().Err(err).Str("request_id", c.GetString(RequestIDKey)).Msg("rate limiter unavailable")
			c.Next()
			return
		}
		if !ok {
			c.Header("Retry-After", strconv.Itoa(int(reset.Seconds())+1))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New(mensaje))
			return
		}
		c.Next()
	}
}

// ── Redis ─────────────────────────────────────────────────────────────────────
// Shared between instances: INCR on a key that expires with the window.

type RedisLimitador struct {
	rdb    *redis.Client
	limit  int64
	window time.Duration
}

func NewRedisLimitador(rdb *redis.Client, limit int, window time.Duration) *RedisLimitador {
	return &RedisLimitador{rdb: rdb, limit: int64(limit), window: window}
}

func (l *RedisLimitador) Permitir(ctx context.Context, key string) (bool, time.Duration, error) {
	key = "ratelimit:" + key
	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, l.window)
	ttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, err
	}
	return incr.Val() <= l.limit, ttl.Val(), nil
}

// ── In-memory ─────────────────────────────────────────────────────────────────
// Used in tests and when Redis is not configured.

type ventana struct {
	count int
	fin   time.Time
}

type MemoriaLimitador struct {
	mu       sync.Mutex
	limit    int
	window   time.Duration
	entradas map[string]*ventana
	now      func() time.Time
}

func NewMemoriaLimitador(limit int, window time.Duration) *MemoriaLimitador {
	return &MemoriaLimitador{
		limit:    limit,
		window:   window,
		entradas: make(map[string]*ventana),
		now:      time.Now,
	}
}

func (l *MemoriaLimitador) Permitir(_ context.Context, key string) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.entradas[key]
	if !ok || now.After(e.fin) {
		l.purgar(now)
		e = &ventana{fin: now.Add(l.window)}
		l.entradas[key] = e
	}
	e.count++
	return e.count <= l.limit, e.fin.Sub(now), nil
}

// purgar drops expired windows so IPs that never come back do not pile up.
func (l *MemoriaLimitador) purgar(now time.Time) {
	for k, e := range l.entradas {
		if now.After(e.fin) {
			delete(l.entradas, k)
		}
	}
}
