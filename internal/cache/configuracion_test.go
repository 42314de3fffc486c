package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cajaescolar/internal/model"
	"cajaescolar/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
	fail bool
}

func newMemStore() *memStore { return &memStore{data: map[string][]byte{}} }

func (m *memStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, false, errors.New("redis caido")
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("redis caido")
	}
	m.data[key] = value
	return nil
}

func (m *memStore) Del(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

type stubLoader struct {
	cfgs  map[uuid.UUID]*model.ConfiguracionPlantel
	calls int
	err   error
}

func (l *stubLoader) FindConfiguracion(_ context.Context, id uuid.UUID) (*model.ConfiguracionPlantel, error) {
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	cfg, ok := l.cfgs[id]
	if !ok {
		return nil, repository.ErrNoEncontrado
	}
	cp := *cfg
	return &cp, nil
}

func TestConfiguracionCache_ReadThrough(t *testing.T) {
	plantel := uuid.New()
	loader := &stubLoader{cfgs: map[uuid.UUID]*model.ConfiguracionPlantel{
		plantel: {PlantelID: plantel, NombreMostrado: "Plantel Centro", ToleranciaCierre: decimal.RequireFromString("0.50")},
	}}
	c := NewConfiguracionCache(newMemStore(), loader, time.Minute, decimal.RequireFromString("0.01"))

	cfg, err := c.Get(context.Background(), plantel)
	require.NoError(t, err)
	assert.Equal(t, "Plantel Centro", cfg.NombreMostrado)
	assert.Equal(t, model.DenominacionesMXN, cfg.Denominaciones)

	_, err = c.Get(context.Background(), plantel)
	require.NoError(t, err)
	assert.Equal(t, 1, loader.calls, "second Get must be served from the store")
}

func TestConfiguracionCache_Refresh(t *testing.T) {
	plantel := uuid.New()
	loader := &stubLoader{cfgs: map[uuid.UUID]*model.ConfiguracionPlantel{
		plantel: {PlantelID: plantel, NombreMostrado: "Antes"},
	}}
	c := NewConfiguracionCache(newMemStore(), loader, time.Minute, decimal.RequireFromString("0.01"))

	_, err := c.Get(context.Background(), plantel)
	require.NoError(t, err)

	loader.cfgs[plantel].NombreMostrado = "Despues"
	cfg, err := c.Get(context.Background(), plantel)
	require.NoError(t, err)
	assert.Equal(t, "Antes", cfg.NombreMostrado)

	cfg, err = c.Refresh(context.Background(), plantel)
	require.NoError(t, err)
	assert.Equal(t, "Despues", cfg.NombreMostrado)

	cfg, err = c.Get(context.Background(), plantel)
	require.NoError(t, err)
	assert.Equal(t, "Despues", cfg.NombreMostrado)
}

func TestConfiguracionCache_SinFilaUsaDefaults(t *testing.T) {
	c := NewConfiguracionCache(newMemStore(), &stubLoader{}, time.Minute, decimal.RequireFromString("0.05"))
	plantel := uuid.New()

	cfg, err := c.Get(context.Background(), plantel)
	require.NoError(t, err)
	assert.Equal(t, plantel, cfg.PlantelID)
	assert.Equal(t, "0.05", cfg.ToleranciaCierre.String())
}

func TestConfiguracionCache_StoreCaido(t *testing.T) {
	plantel := uuid.New()
	store := newMemStore()
	store.fail = true
	loader := &stubLoader{cfgs: map[uuid.UUID]*model.ConfiguracionPlantel{plantel: {PlantelID: plantel}}}
	c := NewConfiguracionCache(store, loader, time.Minute, decimal.Zero)

	cfg, err := c.Get(context.Background(), plantel)
	require.NoError(t, err)
	assert.Equal(t, plantel, cfg.PlantelID)
}

func TestConfiguracionCache_ErrorDelLoader(t *testing.T) {
	c := NewConfiguracionCache(newMemStore(), &stubLoader{err: errors.New("db caida")}, time.Minute, decimal.Zero)
	_, err := c.Get(context.Background(), uuid.New())
	assert.ErrorContains(t, err, "db caida")
}
