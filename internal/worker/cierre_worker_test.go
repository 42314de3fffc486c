package worker

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"cajaescolar/internal/infra"
	"cajaescolar/internal/model"
	"cajaescolar/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCajas map[uuid.UUID]*model.Caja

func (s stubCajas) FindCajaByID(_ context.Context, id uuid.UUID) (*model.Caja, error) {
	c, ok := s[id]
	if !ok {
		return nil, repository.ErrNoEncontrado
	}
	return c, nil
}

type stubPlanteles struct{}

func (stubPlanteles) FindByID(_ context.Context, id uuid.UUID) (*model.Plantel, error) {
	return &model.Plantel{ID: id, Nombre: "Plantel Sur"}, nil
}

type envioCorte struct{ to, subject, pdfPath string }

type stubMailer struct {
	configurado bool
	fallos      int
	enviados    []envioCorte
}

func (m *stubMailer) Configurado() bool { return m.configurado }

func (m *stubMailer) EnviarCorte(to, subject, _ string, pdfPath string) error {
	if m.fallos > 0 {
		m.fallos--
		return errors.New("smtp: connection refused")
	}
	m.enviados = append(m.enviados, envioCorte{to, subject, pdfPath})
	return nil
}

func nuevaCajaCerrada() *model.Caja {
	final := decimal.RequireFromString("1300")
	closed := time.Date(2026, 3, 4, 18, 0, 0, 0, time.UTC)
	opened := closed.Add(-10 * time.Hour)
	return &model.Caja{
		ID:            uuid.New(),
		PlantelID:     uuid.New(),
		Status:        model.EstadoCerrada,
		InitialAmount: decimal.RequireFromString("1000"),
		FinalAmount:   &final,
		OpenedAt:      &opened,
		ClosedAt:      &closed,
		Transactions: []model.Transaccion{
			{Amount: decimal.RequireFromString("500"), PaymentMethod: model.MetodoEfectivo, TransactionType: model.TipoIngreso, Paid: 1, Concept: "Colegiatura"},
		},
		Gastos: []model.Gasto{{Amount: decimal.RequireFromString("200"), Method: "Efectivo", Category: "Mantenimiento", Concept: "Foco"}},
	}
}

func payloadCierre(t *testing.T, cajaID uuid.UUID, to string) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(CierreJobPayload{CajaID: cajaID.String(), Destinatario: to})
	require.NoError(t, err)
	return b
}

func nuevoWorker(t *testing.T, cajas stubCajas, m *stubMailer) *CierreWorker {
	w := NewCierreWorker(cajas, stubPlanteles{}, m, infra.NewCircuitBreaker(infra.SMTPBreakerConfig()), t.TempDir())
	w.espera = time.Millisecond
	return w
}

func TestCierreWorkerEnviaCorte(t *testing.T) {
	c := nuevaCajaCerrada()
	m := &stubMailer{configurado: true}
	w := nuevoWorker(t, stubCajas{c.ID: c}, m)

	err := w.Process(context.Background(), payloadCierre(t, c.ID, "direccion@escuela.mx"))
	require.NoError(t, err)

	require.Len(t, m.enviados, 1)
	assert.Equal(t, "direccion@escuela.mx", m.enviados[0].to)
	assert.Contains(t, m.enviados[0].subject, "Plantel Sur")
	assert.Contains(t, m.enviados[0].subject, "04/03/2026")
	_, statErr := os.Stat(m.enviados[0].pdfPath)
	assert.NoError(t, statErr)
}

func TestCierreWorkerReintentaSMTP(t *testing.T) {
	c := nuevaCajaCerrada()
	m := &stubMailer{configurado: true, fallos: 2}
	w := nuevoWorker(t, stubCajas{c.ID: c}, m)

	require.NoError(t, w.Process(context.Background(), payloadCierre(t, c.ID, "a@b.mx")))
	assert.Len(t, m.enviados, 1)
}

func TestCierreWorkerSinSMTPNoFalla(t *testing.T) {
	c := nuevaCajaCerrada()
	m := &stubMailer{configurado: false}
	w := nuevoWorker(t, stubCajas{c.ID: c}, m)

	require.NoError(t, w.Process(context.Background(), payloadCierre(t, c.ID, "a@b.mx")))
	assert.Empty(t, m.enviados)
}

func TestCierreWorkerErroresPermanentes(t *testing.T) {
	abierta := nuevaCajaCerrada()
	abierta.Status = model.EstadoAbierta
	w := nuevoWorker(t, stubCajas{abierta.ID: abierta}, &stubMailer{configurado: true})
	ctx := context.Background()

	tests := []struct {
		name string
		raw  json.RawMessage
	}{
		{"payload invalido", json.RawMessage(`{`)},
		{"caja_id invalido", json.RawMessage(`{"caja_id":"x","destinatario":"a@b.mx"}`)},
		{"caja inexistente", payloadCierre(t, uuid.New(), "a@b.mx")},
		{"caja abierta", payloadCierre(t, abierta.ID, "a@b.mx")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := w.Process(ctx, tc.raw)
			require.Error(t, err)
			assert.True(t, esPermanente(err))
		})
	}
}

func TestSiguientePaso(t *testing.T) {
	transitorio := errors.New("timeout")

	assert.Equal(t, pasoHecho, siguientePaso(Job{Attempts: 1}, nil))
	assert.Equal(t, pasoReintentar, siguientePaso(Job{Attempts: 1}, transitorio))
	assert.Equal(t, pasoDLQ, siguientePaso(Job{Attempts: MaxCierreIntentos}, transitorio))
	assert.Equal(t, pasoDLQ, siguientePaso(Job{Attempts: 1}, Permanente(transitorio)))
}

func TestWithRetryCortaEnPermanente(t *testing.T) {
	llamadas := 0
	err := withRetry(context.Background(), 5, time.Millisecond, func(int) error {
		llamadas++
		return Permanente(errors.New("bad"))
	})
	require.Error(t, err)
	assert.Equal(t, 1, llamadas)
}
