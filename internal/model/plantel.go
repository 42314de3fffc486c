package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Plantel is a campus. Every caja, user and setting is scoped to one.
type Plantel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Nombre    string    `gorm:"not null" json:"nombre"`
	Clave     string    `gorm:"uniqueIndex;not null" json:"clave"`
	Activo    bool      `gorm:"not null;default:true" json:"activo"`
	CreatedAt time.Time `json:"created_at"`
}

func (Plantel) TableName() string { return "planteles" }

// ConfiguracionPlantel holds the per-plantel settings the dashboard reads on
// every render. Served through cache.ConfiguracionCache.
type ConfiguracionPlantel struct {
	PlantelID           uuid.UUID       `gorm:"type:uuid;primaryKey" json:"plantel_id"`
	NombreMostrado      string          `gorm:"not null;default:''" json:"nombre_mostrado"`
	EmailNotificaciones *string         `json:"email_notificaciones"`
	ToleranciaCierre    decimal.Decimal `gorm:"type:decimal(8,2);not null;default:0.01" json:"tolerancia_cierre"`
	// Denominaciones lists the face values offered in the counting dialog
	Denominaciones []string  `gorm:"type:jsonb;serializer:json" json:"denominaciones"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (ConfiguracionPlantel) TableName() string { return "configuracion_planteles" }

// DenominacionesMXN is used when a plantel has not configured its own list.
var DenominacionesMXN = []string{"1000", "500", "200", "100", "50", "20", "10", "5", "2", "1", "0.5"}
