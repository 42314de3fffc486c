package infra

import (
	"fmt"
	"time"

	"cajaescolar/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase opens a GORM connection backed by pgx and brings the schema up
// to date.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// RunMigrations creates/updates every table and applies the patches GORM
// cannot express. Safe to run on every start.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Plantel{},
		&model.ConfiguracionPlantel{},
		&model.Usuario{},
		&model.Caja{},
		&model.Transaccion{},
		&model.Gasto{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL that AutoMigrate cannot handle
// (partial indexes, check constraints).
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		// at most one open caja per plantel; a concurrent second Abrir fails with 23505
		{"uniq open caja per plantel", `
CREATE UNIQUE INDEX IF NOT EXISTS idx_cajas_plantel_abierta
    ON cajas (plantel_id) WHERE status = 'abierta'`},
		{"cajas history index", `
CREATE INDEX IF NOT EXISTS idx_cajas_plantel_opened
    ON cajas (plantel_id, opened_at DESC)`},
		{"cajas status check", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_cajas_status') THEN
    ALTER TABLE cajas ADD CONSTRAINT chk_cajas_status CHECK (status IN ('abierta', 'cerrada'));
  END IF;
END $$`},
		{"transacciones payment method check", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_transacciones_payment_method') THEN
    ALTER TABLE transacciones ADD CONSTRAINT chk_transacciones_payment_method
      CHECK (payment_method IN ('cash', 'card', 'transfer'));
  END IF;
END $$`},
	}
	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
