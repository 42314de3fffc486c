package worker

// Builds the close-out PDF of a closed caja and mails it to the plantel's
// notification address. SMTP calls go through the circuit breaker.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cajaescolar/internal/caja"
	"cajaescolar/internal/infra"
	"cajaescolar/internal/model"
	"cajaescolar/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type CierreJobPayload struct {
	CajaID       string `json:"caja_id"`
	Destinatario string `json:"destinatario"`
}

type CajaLoader interface {
	FindCajaByID(ctx context.Context, id uuid.UUID) (*model.Caja, error)
}

type PlantelLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Plantel, error)
}

// EnviadorCorte is satisfied by *infra.Mailer.
type EnviadorCorte interface {
	Configurado() bool
	EnviarCorte(to, subject, body, pdfPath string) error
}

type CierreWorker struct {
	cajas      CajaLoader
	planteles  PlantelLoader
	mailer     EnviadorCorte
	cb         *infra.CircuitBreaker
	pdfDir     string
	reintentos int
	espera     time.Duration
}

func NewCierreWorker(cajas CajaLoader, planteles PlantelLoader, mailer EnviadorCorte, cb *infra.CircuitBreaker, pdfDir string) *CierreWorker {
	return &CierreWorker{
		cajas:      cajas,
		planteles:  planteles,
		mailer:     mailer,
		cb:         cb,
		pdfDir:     pdfDir,
		reintentos: 3,
		espera:     time.Second,
	}
}

func (w *CierreWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload CierreJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Permanente(fmt.Errorf("cierre_worker: invalid payload: %w", err))
	}
	cajaID, err := uuid.Parse(payload.CajaID)
	if err != nil {
		return Permanente(fmt.Errorf("cierre_worker: invalid caja_id %q", payload.CajaID))
	}
	if payload.Destinatario == "" {
		log.Warn().Str("caja_id", payload.CajaID).Msg("cierre_worker: empty destinatario, skipping")
		return nil
	}

	c, err := w.cajas.FindCajaByID(ctx, cajaID)
	if errors.Is(err, repository.ErrNoEncontrado) {
		return Permanente(fmt.Errorf("cierre_worker: caja %s not found", cajaID))
	}
	if err != nil {
		return err
	}
	if c.Status != model.EstadoCerrada {
		return Permanente(fmt.Errorf("cierre_worker: caja %s is %s", cajaID, c.Status))
	}

	nombre := "Plantel"
	if p, err := w.planteles.FindByID(ctx, c.PlantelID); err == nil {
		nombre = p.Nombre
	}

	procesada := caja.ProcesarCaja(*c)
	pdfPath, err := infra.GenerarCortePDF(procesada, nombre, w.pdfDir)
	if err != nil {
		return err
	}

	if !w.mailer.Configurado() {
		log.Warn().Str("caja_id", payload.CajaID).Str("pdf", pdfPath).Msg("cierre_worker: SMTP not configured, PDF kept on disk")
		return nil
	}

	subject := fmt.Sprintf("Corte de caja %s - %s", nombre, fechaCierre(procesada))
	body := cuerpoCorte(procesada)
	err = withRetry(ctx, w.reintentos, w.espera, func(int) error {
		return w.cb.Execute(func() error {
			return w.mailer.EnviarCorte(payload.Destinatario, subject, body, pdfPath)
		})
	})
	if err != nil {
		return fmt.Errorf("cierre_worker: send: %w", err)
	}

	log.Info().Str("caja_id", payload.CajaID).Str("to", payload.Destinatario).Msg("cierre_worker: corte sent")
	return nil
}

func fechaCierre(p caja.CajaProcesada) string {
	if p.ClosedAt == nil {
		return "-"
	}
	return p.ClosedAt.Format("02/01/2006")
}

func cuerpoCorte(p caja.CajaProcesada) string {
	diff := "-"
	if p.Diferencia != nil {
		diff = p.Diferencia.StringFixed(2)
	}
	final := "-"
	if p.FinalAmount != nil {
		final = p.FinalAmount.StringFixed(2)
	}
	return fmt.Sprintf(
		"Efectivo esperado: $%s\nEfectivo declarado: $%s\nDiferencia: $%s\n\nSe adjunta el corte de caja en PDF.",
		p.BalanceFinal.StringFixed(2), final, diff,
	)
}
