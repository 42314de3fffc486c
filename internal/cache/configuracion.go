package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cajaescolar/internal/model"
	"cajaescolar/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const configuracionKeyPrefix = "plantel:config:"

// Store is the key/value backend of the cache. *redis.Client satisfies it
// through RedisStore; tests use an in-memory map.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// Loader reads the source of truth for a plantel's settings.
type Loader interface {
	FindConfiguracion(ctx context.Context, plantelID uuid.UUID) (*model.ConfiguracionPlantel, error)
}

// ConfiguracionCache is a read-through cache of per-plantel settings.
// It is built once in the composition root and injected; Refresh is the only
// invalidation entry point.
type ConfiguracionCache struct {
	store             Store
	loader            Loader
	ttl               time.Duration
	toleranciaDefecto decimal.Decimal
}

func NewConfiguracionCache(store Store, loader Loader, ttl time.Duration, toleranciaDefecto decimal.Decimal) *ConfiguracionCache {
	return &ConfiguracionCache{store: store, loader: loader, ttl: ttl, toleranciaDefecto: toleranciaDefecto}
}

func configuracionKey(plantelID uuid.UUID) string {
	return configuracionKeyPrefix + plantelID.String()
}

// Get returns the settings for plantelID. A plantel without a stored row gets
// the defaults. Cache errors are logged and fall through to the loader.
func (c *ConfiguracionCache) Get(ctx context.Context, plantelID uuid.UUID) (*model.ConfiguracionPlantel, error) {
	key := configuracionKey(plantelID)
	if raw, ok, err := c.store.Get(ctx, key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("config_cache: read failed, falling back to db")
	} else if ok {
		var cfg model.ConfiguracionPlantel
		if jsonErr := json.Unmarshal(raw, &cfg); jsonErr == nil {
			return &cfg, nil
		}
	}
	return c.Refresh(ctx, plantelID)
}

// Refresh drops the cached entry, reloads it from the loader and stores it again.
func (c *ConfiguracionCache) Refresh(ctx context.Context, plantelID uuid.UUID) (*model.ConfiguracionPlantel, error) {
	key := configuracionKey(plantelID)
	if err := c.store.Del(ctx, key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("config_cache: delete failed")
	}

	cfg, err := c.loader.FindConfiguracion(ctx, plantelID)
	switch {
	case errors.Is(err, repository.ErrNoEncontrado):
		cfg = c.porDefecto(plantelID)
	case err != nil:
		return nil, fmt.Errorf("config_cache: load %s: %w", plantelID, err)
	}
	c.completar(cfg)

	if b, jsonErr := json.Marshal(cfg); jsonErr == nil {
		if setErr := c.store.Set(ctx, key, b, c.ttl); setErr != nil {
			log.Warn().Err(setErr).Str("key", key).Msg("config_cache: write failed")
		}
	}
	return cfg, nil
}

func (c *ConfiguracionCache) porDefecto(plantelID uuid.UUID) *model.ConfiguracionPlantel {
	return &model.ConfiguracionPlantel{PlantelID: plantelID, ToleranciaCierre: c.toleranciaDefecto}
}

func (c *ConfiguracionCache) completar(cfg *model.ConfiguracionPlantel) {
	if len(cfg.Denominaciones) == 0 {
		cfg.Denominaciones = append([]string(nil), model.DenominacionesMXN...)
	}
	if cfg.ToleranciaCierre.IsNegative() {
		cfg.ToleranciaCierre = c.toleranciaDefecto
	}
}

// RedisStore adapts a go-redis client to Store.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore { return &RedisStore{rdb: rdb} }

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.rdb.Set(ctx, key, value, ttl).Err()
}

func (s *RedisStore) Del(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}
