package repository

import (
	"context"

	"cajaescolar/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PlantelRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Plantel, error)
	FindConfiguracion(ctx context.Context, plantelID uuid.UUID) (*model.ConfiguracionPlantel, error)
	GuardarConfiguracion(ctx context.Context, cfg *model.ConfiguracionPlantel) error
}

type plantelRepo struct{ db *gorm.DB }

func NewPlantelRepository(db *gorm.DB) PlantelRepository { return &plantelRepo{db: db} }

func (r *plantelRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Plantel, error) {
	var p model.Plantel
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, traducir(err)
	}
	return &p, nil
}

func (r *plantelRepo) FindConfiguracion(ctx context.Context, plantelID uuid.UUID) (*model.ConfiguracionPlantel, error) {
	var cfg model.ConfiguracionPlantel
	if err := r.db.WithContext(ctx).First(&cfg, "plantel_id = ?", plantelID).Error; err != nil {
		return nil, traducir(err)
	}
	return &cfg, nil
}

// GuardarConfiguracion upserts the settings row for cfg.PlantelID.
func (r *plantelRepo) GuardarConfiguracion(ctx context.Context, cfg *model.ConfiguracionPlantel) error {
	return traducir(r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "plantel_id"}},
			UpdateAll: true,
		}).
		Create(cfg).Error)
}
