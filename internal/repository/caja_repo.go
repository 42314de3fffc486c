package repository

import (
	"context"

	"cajaescolar/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CajaRepository interface {
	CreateCaja(ctx context.Context, c *model.Caja) error
	FindCajaByID(ctx context.Context, id uuid.UUID) (*model.Caja, error)
	FindCajaAbiertaPorPlantel(ctx context.Context, plantelID uuid.UUID) (*model.Caja, error)
	FindUltimaCerrada(ctx context.Context, plantelID uuid.UUID) (*model.Caja, error)
	CerrarCaja(ctx context.Context, c *model.Caja) error
	CreateTransaccion(ctx context.Context, t *model.Transaccion) error
	CreateGasto(ctx context.Context, g *model.Gasto) error
	ListCajas(ctx context.Context, plantelID uuid.UUID, page, limit int) ([]model.Caja, int64, error)
}

type cajaRepo struct{ db *gorm.DB }

func NewCajaRepository(db *gorm.DB) CajaRepository { return &cajaRepo{db: db} }

// conMovimientos preloads both collections in chronological order.
func conMovimientos(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Transactions", func(tx *gorm.DB) *gorm.DB { return tx.Order("created_at ASC") }).
		Preload("Gastos", func(tx *gorm.DB) *gorm.DB { return tx.Order("created_at ASC") })
}

func (r *cajaRepo) CreateCaja(ctx context.Context, c *model.Caja) error {
	return traducir(r.db.WithContext(ctx).Omit(clause.Associations).Create(c).Error)
}

func (r *cajaRepo) FindCajaByID(ctx context.Context, id uuid.UUID) (*model.Caja, error) {
	var c model.Caja
	err := conMovimientos(r.db.WithContext(ctx)).First(&c, "id = ?", id).Error
	if err != nil {
		return nil, traducir(err)
	}
	return &c, nil
}

func (r *cajaRepo) FindCajaAbiertaPorPlantel(ctx context.Context, plantelID uuid.UUID) (*model.Caja, error) {
	var c model.Caja
	err := conMovimientos(r.db.WithContext(ctx)).
		Where("plantel_id = ? AND status = ?", plantelID, model.EstadoAbierta).
		First(&c).Error
	if err != nil {
		return nil, traducir(err)
	}
	return &c, nil
}

func (r *cajaRepo) FindUltimaCerrada(ctx context.Context, plantelID uuid.UUID) (*model.Caja, error) {
	var c model.Caja
	err := r.db.WithContext(ctx).
		Where("plantel_id = ? AND status = ?", plantelID, model.EstadoCerrada).
		Order("closed_at DESC NULLS LAST").
		First(&c).Error
	if err != nil {
		return nil, traducir(err)
	}
	return &c, nil
}

// CerrarCaja writes the close-out only while the row is still abierta.
// A concurrent close that got there first yields ErrConflicto.
func (r *cajaRepo) CerrarCaja(ctx context.Context, c *model.Caja) error {
	res := r.db.WithContext(ctx).
		Model(&model.Caja{}).
		Where("id = ? AND status = ?", c.ID, model.EstadoAbierta).
		Updates(map[string]interface{}{
			"status":        model.EstadoCerrada,
			"final_amount":  c.FinalAmount,
			"next_day":      c.NextDay,
			"observaciones": c.Observaciones,
			"closed_at":     c.ClosedAt,
		})
	if res.Error != nil {
		return traducir(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConflicto
	}
	return nil
}

// Transactions and gastos are append-only: there is no Update/Delete.

func (r *cajaRepo) CreateTransaccion(ctx context.Context, t *model.Transaccion) error {
	return r.enCajaAbierta(ctx, t.CajaID, func(tx *gorm.DB) error {
		return tx.Create(t).Error
	})
}

func (r *cajaRepo) CreateGasto(ctx context.Context, g *model.Gasto) error {
	return r.enCajaAbierta(ctx, g.CajaID, func(tx *gorm.DB) error {
		return tx.Create(g).Error
	})
}

// enCajaAbierta runs fn with the caja row locked FOR UPDATE, so a close
// cannot commit between the status check and the insert.
func (r *cajaRepo) enCajaAbierta(ctx context.Context, cajaID uuid.UUID, fn func(tx *gorm.DB) error) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c model.Caja
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "status").
			First(&c, "id = ?", cajaID).Error
		if err != nil {
			return err
		}
		if c.Status != model.EstadoAbierta {
			return ErrConflicto
		}
		return fn(tx)
	})
	return traducir(err)
}

func (r *cajaRepo) ListCajas(ctx context.Context, plantelID uuid.UUID, page, limit int) ([]model.Caja, int64, error) {
	var total int64
	base := r.db.WithContext(ctx).Model(&model.Caja{}).Where("plantel_id = ?", plantelID)
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, traducir(err)
	}

	var cajas []model.Caja
	err := conMovimientos(r.db.WithContext(ctx)).
		Where("plantel_id = ?", plantelID).
		Order("opened_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&cajas).Error
	return cajas, total, traducir(err)
}
