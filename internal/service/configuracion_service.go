package service

import (
	"context"
	"fmt"

	"cajaescolar/internal/dto"
	"cajaescolar/internal/model"
	"cajaescolar/internal/repository"

	"github.com/google/uuid"
)

// ConfiguracionCache is satisfied by *cache.ConfiguracionCache.
type ConfiguracionCache interface {
	ConfiguracionProvider
	Refresh(ctx context.Context, plantelID uuid.UUID) (*model.ConfiguracionPlantel, error)
}

type ConfiguracionService interface {
	Obtener(ctx context.Context, plantelID uuid.UUID) (*model.ConfiguracionPlantel, error)
	Actualizar(ctx context.Context, plantelID uuid.UUID, req dto.ActualizarConfiguracionRequest) (*model.ConfiguracionPlantel, error)
	Refrescar(ctx context.Context, plantelID uuid.UUID) (*model.ConfiguracionPlantel, error)
}

type configuracionService struct {
	repo  repository.PlantelRepository
	cache ConfiguracionCache
}

func NewConfiguracionService(repo repository.PlantelRepository, cache ConfiguracionCache) ConfiguracionService {
	return &configuracionService{repo: repo, cache: cache}
}

func (s *configuracionService) Obtener(ctx context.Context, plantelID uuid.UUID) (*model.ConfiguracionPlantel, error) {
	return s.cache.Get(ctx, plantelID)
}

// Actualizar patches the stored settings and refreshes the cached copy so the
// next read sees the change.
func (s *configuracionService) Actualizar(ctx context.Context, plantelID uuid.UUID, req dto.ActualizarConfiguracionRequest) (*model.ConfiguracionPlantel, error) {
	actual, err := s.cache.Get(ctx, plantelID)
	if err != nil {
		return nil, err
	}
	cfg := *actual
	cfg.PlantelID = plantelID
	if req.NombreMostrado != "" {
		cfg.NombreMostrado = req.NombreMostrado
	}
	if req.EmailNotificaciones != nil {
		cfg.EmailNotificaciones = req.EmailNotificaciones
	}
	if req.ToleranciaCierre != nil {
		cfg.ToleranciaCierre = req.ToleranciaCierre.Round(2)
	}
	if len(req.Denominaciones) > 0 {
		cfg.Denominaciones = req.Denominaciones
	}

	if err := s.repo.GuardarConfiguracion(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("guardar configuracion: %w", err)
	}
	return s.cache.Refresh(ctx, plantelID)
}

func (s *configuracionService) Refrescar(ctx context.Context, plantelID uuid.UUID) (*model.ConfiguracionPlantel, error) {
	return s.cache.Refresh(ctx, plantelID)
}
