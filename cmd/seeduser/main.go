// seeduser creates (or resets) a demo plantel and its admin and cashier users.
// Usage: go run ./cmd/seeduser
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"cajaescolar/internal/config"
	"cajaescolar/internal/infra"
	"cajaescolar/internal/model"
	"cajaescolar/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect error")
	}
	ctx := context.Background()

	plantel := model.Plantel{Nombre: "Plantel Demo", Clave: "DEMO", Activo: true}
	if err := db.WithContext(ctx).Where(model.Plantel{Clave: plantel.Clave}).FirstOrCreate(&plantel).Error; err != nil {
		log.Fatal().Err(err).Msg("plantel")
	}

	plantelRepo := repository.NewPlantelRepository(db)
	if _, err := plantelRepo.FindConfiguracion(ctx, plantel.ID); errors.Is(err, repository.ErrNoEncontrado) {
		err = plantelRepo.GuardarConfiguracion(ctx, &model.ConfiguracionPlantel{
			PlantelID:        plantel.ID,
			NombreMostrado:   plantel.Nombre,
			ToleranciaCierre: decimal.New(1, -2),
			Denominaciones:   model.DenominacionesMXN,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("configuracion")
		}
	}

	usuarios := []struct {
		username, nombre, rol, password string
		plantel                         *uuid.UUID
	}{
		{"admin", "Administrador Demo", "administrador", "admin1234", nil},
		{"cajero", "Cajero Demo", "cajero", "cajero1234", &plantel.ID},
	}
	for _, u := range usuarios {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), 12)
		if err != nil {
			log.Fatal().Err(err).Msg("bcrypt")
		}
		if err := upsertUsuario(ctx, db, &model.Usuario{
			Username:     u.username,
			Nombre:       u.nombre,
			PasswordHash: string(hash),
			Rol:          u.rol,
			PlantelID:    u.plantel,
			Activo:       true,
		}); err != nil {
			log.Fatal().Err(err).Str("username", u.username).Msg("usuario")
		}
		fmt.Printf("usuario %q (%s) listo, password %q\n", u.username, u.rol, u.password)
	}
	fmt.Printf("plantel %q id=%s\n", plantel.Nombre, plantel.ID)
}

func upsertUsuario(ctx context.Context, db *gorm.DB, u *model.Usuario) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "username"}},
		DoUpdates: clause.AssignmentColumns([]string{"nombre", "password_hash", "rol", "plantel_id", "activo"}),
	}).Create(u).Error
}
