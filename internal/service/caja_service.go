package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cajaescolar/internal/caja"
	"cajaescolar/internal/dto"
	"cajaescolar/internal/model"
	"cajaescolar/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type CajaService interface {
	Abrir(ctx context.Context, usuarioID, plantelID uuid.UUID, req dto.AbrirCajaRequest) (*caja.CajaProcesada, error)
	RegistrarTransaccion(ctx context.Context, cajaID uuid.UUID, req dto.RegistrarTransaccionRequest) (*model.Transaccion, error)
	RegistrarGasto(ctx context.Context, cajaID uuid.UUID, req dto.RegistrarGastoRequest) (*model.Gasto, error)
	Cerrar(ctx context.Context, cajaID uuid.UUID, req dto.CerrarCajaRequest) (*dto.CierreCajaResponse, error)
	Obtener(ctx context.Context, cajaID uuid.UUID) (*caja.CajaProcesada, error)
	Activa(ctx context.Context, plantelID uuid.UUID) (*caja.CajaProcesada, error)
	Listar(ctx context.Context, plantelID uuid.UUID, page, limit int) (*dto.ListaCajasResponse, error)
}

// ConfiguracionProvider is satisfied by *cache.ConfiguracionCache.
type ConfiguracionProvider interface {
	Get(ctx context.Context, plantelID uuid.UUID) (*model.ConfiguracionPlantel, error)
}

// NotificadorCierre queues the close-out report for delivery.
// Implemented by *worker.Dispatcher.
type NotificadorCierre interface {
	EncolarCierre(ctx context.Context, cajaID uuid.UUID, destinatario string) error
}

type cajaService struct {
	repo        repository.CajaRepository
	config      ConfiguracionProvider
	notificador NotificadorCierre
}

func NewCajaService(repo repository.CajaRepository, config ConfiguracionProvider, notificador NotificadorCierre) CajaService {
	return &cajaService{repo: repo, config: config, notificador: notificador}
}

// ── Abrir ─────────────────────────────────────────────────────────────────────

func (s *cajaService) Abrir(ctx context.Context, usuarioID, plantelID uuid.UUID, req dto.AbrirCajaRequest) (*caja.CajaProcesada, error) {
	existing, err := s.repo.FindCajaAbiertaPorPlantel(ctx, plantelID)
	switch {
	case err == nil && existing != nil:
		return nil, ErrCajaAbiertaExistente
	case err != nil && !errors.Is(err, repository.ErrNoEncontrado):
		return nil, err
	}

	monto, err := s.montoInicial(ctx, plantelID, req.MontoInicial)
	if err != nil {
		return nil, err
	}

	denominaciones := req.Denominaciones
	if denominaciones == nil {
		denominaciones = model.Denominaciones{}
	}
	now := time.Now().UTC()
	c := &model.Caja{
		PlantelID:         plantelID,
		UsuarioID:         usuarioID,
		Status:            model.EstadoAbierta,
		InitialAmount:     monto.Round(2),
		InitialAmountCash: denominaciones,
		OpenedAt:          &now,
	}
	if err := s.repo.CreateCaja(ctx, c); err != nil {
		// partial unique index on (plantel_id) WHERE status = 'abierta'
		if errors.Is(err, repository.ErrDuplicado) {
			return nil, ErrCajaAbiertaExistente
		}
		return nil, err
	}

	log.Info().
		Str("caja_id", c.ID.String()).
		Str("plantel_id", plantelID.String()).
		Str("initial_amount", c.InitialAmount.StringFixed(2)).
		Msg("caja abierta")

	p := caja.ProcesarCaja(*c)
	return &p, nil
}

// montoInicial carries over next_day from the last closed caja when the
// request does not set an amount.
func (s *cajaService) montoInicial(ctx context.Context, plantelID uuid.UUID, solicitado *decimal.Decimal) (decimal.Decimal, error) {
	if solicitado != nil {
		return *solicitado, nil
	}
	prev, err := s.repo.FindUltimaCerrada(ctx, plantelID)
	switch {
	case errors.Is(err, repository.ErrNoEncontrado):
		return decimal.Zero, nil
	case err != nil:
		return decimal.Zero, err
	case prev.NextDay == nil:
		return decimal.Zero, nil
	}
	return *prev.NextDay, nil
}

// ── Movimientos ───────────────────────────────────────────────────────────────
// Transactions and gastos are only accepted while the caja is open.

func (s *cajaService) RegistrarTransaccion(ctx context.Context, cajaID uuid.UUID, req dto.RegistrarTransaccionRequest) (*model.Transaccion, error) {
	if _, err := s.cajaAbierta(ctx, cajaID); err != nil {
		return nil, err
	}

	metodo := model.MetodoPago(req.PaymentMethod)
	if !metodo.Valid() {
		return nil, ErrMetodoPagoInvalido
	}
	tipo := model.TipoIngreso
	if req.TransactionType != "" {
		tipo = model.TipoTransaccion(req.TransactionType)
	}
	paid := model.Flag(1)
	if req.Paid != nil && !*req.Paid {
		paid = 0
	}

	t := &model.Transaccion{
		CajaID:          cajaID,
		Amount:          req.Amount.Round(2),
		PaymentMethod:   metodo,
		TransactionType: tipo,
		Paid:            paid,
		Concept:         req.Concept,
	}
	if req.AlumnoID != "" {
		alumno, err := uuid.Parse(req.AlumnoID)
		if err != nil {
			return nil, fmt.Errorf("student_id inválido: %w", err)
		}
		t.AlumnoID = &alumno
	}
	if err := s.repo.CreateTransaccion(ctx, t); err != nil {
		return nil, errorMovimiento(err)
	}
	return t, nil
}

func (s *cajaService) RegistrarGasto(ctx context.Context, cajaID uuid.UUID, req dto.RegistrarGastoRequest) (*model.Gasto, error) {
	if _, err := s.cajaAbierta(ctx, cajaID); err != nil {
		return nil, err
	}

	fecha := time.Now().UTC().Truncate(24 * time.Hour)
	if req.Date != nil {
		fecha = req.Date.UTC()
	}
	g := &model.Gasto{
		CajaID:   cajaID,
		Amount:   req.Amount.Round(2),
		Method:   req.Method, // stored verbatim, see caja.EsGastoEfectivo
		Date:     fecha,
		Category: strings.TrimSpace(req.Category),
		Concept:  req.Concept,
	}
	if err := s.repo.CreateGasto(ctx, g); err != nil {
		return nil, errorMovimiento(err)
	}
	return g, nil
}

// ── Cerrar ────────────────────────────────────────────────────────────────────

func (s *cajaService) Cerrar(ctx context.Context, cajaID uuid.UUID, req dto.CerrarCajaRequest) (*dto.CierreCajaResponse, error) {
	if req.FinalAmount == nil {
		return nil, ErrMontoFinalRequerido
	}
	actual, err := s.buscar(ctx, cajaID)
	if err != nil {
		return nil, err
	}
	if !actual.Status.PuedePasarA(model.EstadoCerrada) {
		return nil, ErrCajaCerrada
	}

	c := *actual
	final := req.FinalAmount.Round(2)
	now := time.Now().UTC()
	c.Status = model.EstadoCerrada
	c.FinalAmount = &final
	c.ClosedAt = &now
	c.Observaciones = req.Observaciones
	if req.NextDay != nil {
		nd := req.NextDay.Round(2)
		c.NextDay = &nd
	}
	if err := s.repo.CerrarCaja(ctx, &c); err != nil {
		if errors.Is(err, repository.ErrConflicto) {
			return nil, ErrCajaCerrada
		}
		return nil, err
	}

	cfg := s.configuracion(ctx, c.PlantelID)
	procesada := caja.ProcesarCaja(c)
	validacion := caja.ValidarBalance(final, procesada.BalanceFinal, cfg.ToleranciaCierre)

	evt := log.Info()
	if !validacion.Valido {
		evt = log.Warn()
	}
	evt.Str("caja_id", c.ID.String()).
		Str("final_balance", procesada.BalanceFinal.StringFixed(2)).
		Str("final_amount", final.StringFixed(2)).
		Str("difference", validacion.Diferencia.StringFixed(2)).
		Bool("is_valid", validacion.Valido).
		Msg("caja cerrada")

	if cfg.EmailNotificaciones != nil && *cfg.EmailNotificaciones != "" && s.notificador != nil {
		if err := s.notificador.EncolarCierre(ctx, c.ID, *cfg.EmailNotificaciones); err != nil {
			log.Error().Err(err).Str("caja_id", c.ID.String()).Msg("failed to enqueue cierre email")
		}
	}

	return &dto.CierreCajaResponse{Caja: procesada, Validacion: validacion}, nil
}

// configuracion never fails: a cache/db error falls back to the default
// tolerance and no notification.
func (s *cajaService) configuracion(ctx context.Context, plantelID uuid.UUID) *model.ConfiguracionPlantel {
	cfg, err := s.config.Get(ctx, plantelID)
	if err != nil || cfg == nil {
		log.Warn().Err(err).Str("plantel_id", plantelID.String()).Msg("configuracion no disponible, usando tolerancia por defecto")
		return &model.ConfiguracionPlantel{PlantelID: plantelID, ToleranciaCierre: caja.ToleranciaPredeterminada}
	}
	return cfg
}

// ── Consultas ─────────────────────────────────────────────────────────────────

func (s *cajaService) Obtener(ctx context.Context, cajaID uuid.UUID) (*caja.CajaProcesada, error) {
	c, err := s.buscar(ctx, cajaID)
	if err != nil {
		return nil, err
	}
	p := caja.ProcesarCaja(*c)
	return &p, nil
}

func (s *cajaService) Activa(ctx context.Context, plantelID uuid.UUID) (*caja.CajaProcesada, error) {
	c, err := s.repo.FindCajaAbiertaPorPlantel(ctx, plantelID)
	if errors.Is(err, repository.ErrNoEncontrado) {
		return nil, ErrSinCajaAbierta
	}
	if err != nil {
		return nil, err
	}
	p := caja.ProcesarCaja(*c)
	return &p, nil
}

func (s *cajaService) Listar(ctx context.Context, plantelID uuid.UUID, page, limit int) (*dto.ListaCajasResponse, error) {
	cajas, total, err := s.repo.ListCajas(ctx, plantelID, page, limit)
	if err != nil {
		return nil, err
	}
	filas := make([]caja.FilaTabla, len(cajas))
	for i, c := range cajas {
		filas[i] = caja.FormatearParaTabla(c)
	}
	return &dto.ListaCajasResponse{Data: filas, Total: total, Page: page, Limit: limit}, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func (s *cajaService) buscar(ctx context.Context, cajaID uuid.UUID) (*model.Caja, error) {
	c, err := s.repo.FindCajaByID(ctx, cajaID)
	if errors.Is(err, repository.ErrNoEncontrado) {
		return nil, ErrCajaNoEncontrada
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// errorMovimiento maps insert failures from the locked caja row.
func errorMovimiento(err error) error {
	switch {
	case errors.Is(err, repository.ErrConflicto):
		return ErrCajaCerrada
	case errors.Is(err, repository.ErrNoEncontrado):
		return ErrCajaNoEncontrada
	}
	return err
}

func (s *cajaService) cajaAbierta(ctx context.Context, cajaID uuid.UUID) (*model.Caja, error) {
	c, err := s.buscar(ctx, cajaID)
	if err != nil {
		return nil, err
	}
	if c.Status != model.EstadoAbierta {
		return nil, ErrCajaCerrada
	}
	return c, nil
}
