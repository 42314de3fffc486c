package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"cajaescolar/internal/caja"
	"cajaescolar/internal/dto"
	"cajaescolar/internal/handler"
	"cajaescolar/internal/middleware"
	"cajaescolar/internal/model"
	"cajaescolar/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

// ── Stub CajaService ─────────────────────────────────────────────────────────

type stubCajaService struct {
	cajas      map[uuid.UUID]caja.CajaProcesada
	abrirErr   error
	abiertaEn  uuid.UUID
	cerrarReqs []dto.CerrarCajaRequest
}

func newStubCajaService() *stubCajaService {
	return &stubCajaService{cajas: make(map[uuid.UUID]caja.CajaProcesada)}
}

func (s *stubCajaService) agregar(plantel uuid.UUID) caja.CajaProcesada {
	c := model.Caja{
		ID:            uuid.New(),
		PlantelID:     plantel,
		Status:        model.EstadoAbierta,
		InitialAmount: decimal.NewFromInt(1000),
	}
	p := caja.ProcesarCaja(c)
	s.cajas[c.ID] = p
	return p
}

func (s *stubCajaService) Abrir(_ context.Context, _, plantelID uuid.UUID, _ dto.AbrirCajaRequest) (*caja.CajaProcesada, error) {
	if s.abrirErr != nil {
		return nil, s.abrirErr
	}
	s.abiertaEn = plantelID
	p := s.agregar(plantelID)
	return &p, nil
}

func (s *stubCajaService) RegistrarTransaccion(_ context.Context, cajaID uuid.UUID, req dto.RegistrarTransaccionRequest) (*model.Transaccion, error) {
	return &model.Transaccion{ID: uuid.New(), CajaID: cajaID, Amount: req.Amount, PaymentMethod: model.MetodoPago(req.PaymentMethod)}, nil
}

func (s *stubCajaService) RegistrarGasto(_ context.Context, cajaID uuid.UUID, req dto.RegistrarGastoRequest) (*model.Gasto, error) {
	return &model.Gasto{ID: uuid.New(), CajaID: cajaID, Amount: req.Amount, Method: req.Method}, nil
}

func (s *stubCajaService) Cerrar(_ context.Context, cajaID uuid.UUID, req dto.CerrarCajaRequest) (*dto.CierreCajaResponse, error) {
	s.cerrarReqs = append(s.cerrarReqs, req)
	p := s.cajas[cajaID]
	return &dto.CierreCajaResponse{Caja: p, Validacion: caja.ValidarBalance(*req.FinalAmount, p.BalanceFinal)}, nil
}

func (s *stubCajaService) Obtener(_ context.Context, cajaID uuid.UUID) (*caja.CajaProcesada, error) {
	p, ok := s.cajas[cajaID]
	if !ok {
		return nil, service.ErrCajaNoEncontrada
	}
	return &p, nil
}

func (s *stubCajaService) Activa(_ context.Context, _ uuid.UUID) (*caja.CajaProcesada, error) {
	return nil, service.ErrSinCajaAbierta
}

func (s *stubCajaService) Listar(_ context.Context, plantelID uuid.UUID, page, limit int) (*dto.ListaCajasResponse, error) {
	var filas []caja.FilaTabla
	for _, p := range s.cajas {
		if p.PlantelID == plantelID {
			filas = append(filas, caja.FilaTabla{ID: p.ID.String()})
		}
	}
	return &dto.ListaCajasResponse{Data: filas, Total: int64(len(filas)), Page: page, Limit: limit}, nil
}

type stubConfig struct{}

func (stubConfig) Get(_ context.Context, plantelID uuid.UUID) (*model.ConfiguracionPlantel, error) {
	return &model.ConfiguracionPlantel{PlantelID: plantelID, NombreMostrado: "Plantel Centro"}, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func conClaims(claims *middleware.JWTClaims) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ClaimsKey, claims)
		c.Next()
	}
}

func cajeroDe(plantel uuid.UUID) *middleware.JWTClaims {
	return &middleware.JWTClaims{UserID: uuid.NewString(), Rol: middleware.RolCajero, PlantelID: plantel.String(), Typ: "access"}
}

func setupCajaRouter(svc service.CajaService, claims *middleware.JWTClaims) *gin.Engine {
	h := handler.NewCajaHandler(svc, stubConfig{})
	r := gin.New()
	g := r.Group("/v1/cajas", conClaims(claims))
	g.POST("/abrir", h.Abrir)
	g.GET("", h.Listar)
	g.GET("/activa", h.Activa)
	g.POST("/validar", h.Validar)
	g.GET("/:id", h.Obtener)
	g.POST("/:id/transacciones", h.RegistrarTransaccion)
	g.POST("/:id/gastos", h.RegistrarGasto)
	g.POST("/:id/cerrar", h.Cerrar)
	g.GET("/:id/corte", h.Corte)
	return r
}

func doJSON(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ── Tests ─────────────────────────────────────────────────────────────────────

func TestAbrirUsaPlantelDelToken(t *testing.T) {
	plantel := uuid.New()
	svc := newStubCajaService()
	r := setupCajaRouter(svc, cajeroDe(plantel))

	w := doJSON(r, http.MethodPost, "/v1/cajas/abrir", map[string]interface{}{"initial_amount": "1000"})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, plantel, svc.abiertaEn)
}

func TestAbrirOtroPlantelProhibido(t *testing.T) {
	svc := newStubCajaService()
	r := setupCajaRouter(svc, cajeroDe(uuid.New()))

	w := doJSON(r, http.MethodPost, "/v1/cajas/abrir", map[string]interface{}{"plantel_id": uuid.NewString()})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAbrirDuplicadaConflict(t *testing.T) {
	svc := newStubCajaService()
	svc.abrirErr = service.ErrCajaAbiertaExistente
	r := setupCajaRouter(svc, cajeroDe(uuid.New()))

	w := doJSON(r, http.MethodPost, "/v1/cajas/abrir", map[string]interface{}{})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "ya existe una caja abierta")
}

func TestObtenerCajaDeOtroPlantel(t *testing.T) {
	svc := newStubCajaService()
	ajena := svc.agregar(uuid.New())
	r := setupCajaRouter(svc, cajeroDe(uuid.New()))

	w := doJSON(r, http.MethodGet, "/v1/cajas/"+ajena.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestObtenerCajaSupervisor(t *testing.T) {
	svc := newStubCajaService()
	p := svc.agregar(uuid.New())
	r := setupCajaRouter(svc, &middleware.JWTClaims{Rol: middleware.RolSupervisor, Typ: "access"})

	w := doJSON(r, http.MethodGet, "/v1/cajas/"+p.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "1000", body["final_balance"])
	assert.Equal(t, "abierta", body["status"])
}

func TestObtenerIDInvalido(t *testing.T) {
	r := setupCajaRouter(newStubCajaService(), cajeroDe(uuid.New()))
	w := doJSON(r, http.MethodGet, "/v1/cajas/no-es-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegistrarTransaccionValidacion(t *testing.T) {
	plantel := uuid.New()
	svc := newStubCajaService()
	p := svc.agregar(plantel)
	r := setupCajaRouter(svc, cajeroDe(plantel))

	w := doJSON(r, http.MethodPost, "/v1/cajas/"+p.ID.String()+"/transacciones", map[string]interface{}{
		"amount":         "0",
		"payment_method": "cheque",
		"concept":        "Colegiatura",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "PaymentMethod")

	w = doJSON(r, http.MethodPost, "/v1/cajas/"+p.ID.String()+"/transacciones", map[string]interface{}{
		"amount":         "350.00",
		"payment_method": "cash",
		"concept":        "Colegiatura",
	})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestRegistrarGasto(t *testing.T) {
	plantel := uuid.New()
	svc := newStubCajaService()
	p := svc.agregar(plantel)
	r := setupCajaRouter(svc, cajeroDe(plantel))

	w := doJSON(r, http.MethodPost, "/v1/cajas/"+p.ID.String()+"/gastos", map[string]interface{}{
		"amount":   "120.50",
		"method":   "Efectivo",
		"category": "Papeleria",
		"concept":  "Copias",
	})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestCerrarCaja(t *testing.T) {
	plantel := uuid.New()
	svc := newStubCajaService()
	p := svc.agregar(plantel)
	r := setupCajaRouter(svc, cajeroDe(plantel))

	w := doJSON(r, http.MethodPost, "/v1/cajas/"+p.ID.String()+"/cerrar", map[string]interface{}{
		"final_amount": "950",
		"next_day":     "500",
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, svc.cerrarReqs, 1)
	require.NotNil(t, svc.cerrarReqs[0].NextDay)
	assert.True(t, svc.cerrarReqs[0].NextDay.Equal(decimal.NewFromInt(500)))

	var resp struct {
		Validacion caja.Validacion `json:"validacion"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Validacion.Valido)
	assert.Equal(t, "Hay un faltante de $50.00", resp.Validacion.Mensaje)
}

func TestCerrarCajaSinMontoFinal(t *testing.T) {
	plantel := uuid.New()
	svc := newStubCajaService()
	p := svc.agregar(plantel)
	r := setupCajaRouter(svc, cajeroDe(plantel))

	w := doJSON(r, http.MethodPost, "/v1/cajas/"+p.ID.String()+"/cerrar", map[string]interface{}{})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "required")
	assert.Empty(t, svc.cerrarReqs)

	w = doJSON(r, http.MethodPost, "/v1/cajas/"+p.ID.String()+"/cerrar", map[string]interface{}{"final_amount": "-1"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Empty(t, svc.cerrarReqs)
}

func TestCerrarCajaMontoCeroEsValido(t *testing.T) {
	plantel := uuid.New()
	svc := newStubCajaService()
	p := svc.agregar(plantel)
	r := setupCajaRouter(svc, cajeroDe(plantel))

	w := doJSON(r, http.MethodPost, "/v1/cajas/"+p.ID.String()+"/cerrar", map[string]interface{}{"final_amount": "0"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, svc.cerrarReqs, 1)
	require.NotNil(t, svc.cerrarReqs[0].FinalAmount)
	assert.True(t, svc.cerrarReqs[0].FinalAmount.IsZero())
}

func TestCortePDF(t *testing.T) {
	plantel := uuid.New()
	svc := newStubCajaService()
	p := svc.agregar(plantel)
	r := setupCajaRouter(svc, cajeroDe(plantel))

	w := doJSON(r, http.MethodGet, "/v1/cajas/"+p.ID.String()+"/corte", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "corte_"+p.ID.String()+".pdf")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))
}

func TestValidarBalance(t *testing.T) {
	r := setupCajaRouter(newStubCajaService(), cajeroDe(uuid.New()))

	tests := []struct {
		name    string
		body    map[string]interface{}
		valido  bool
		mensaje string
	}{
		{"cuadra", map[string]interface{}{"final_amount": "100", "expected_amount": "100"}, true, ""},
		{"sobrante", map[string]interface{}{"final_amount": "105", "expected_amount": "100"}, false, "Hay un sobrante de $5.00"},
		{"faltante", map[string]interface{}{"final_amount": "95", "expected_amount": "100"}, false, "Hay un faltante de $5.00"},
		{"tolerancia", map[string]interface{}{"final_amount": "105", "expected_amount": "100", "tolerance": "10"}, true, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(r, http.MethodPost, "/v1/cajas/validar", tc.body)
			require.Equal(t, http.StatusOK, w.Code)
			var v caja.Validacion
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
			assert.Equal(t, tc.valido, v.Valido)
			assert.Equal(t, tc.mensaje, v.Mensaje)
		})
	}
}

func TestActivaSinCajaNotFound(t *testing.T) {
	r := setupCajaRouter(newStubCajaService(), cajeroDe(uuid.New()))
	w := doJSON(r, http.MethodGet, "/v1/cajas/activa", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListarRequierePlantelParaAdmin(t *testing.T) {
	r := setupCajaRouter(newStubCajaService(), &middleware.JWTClaims{Rol: middleware.RolAdministrador, Typ: "access"})

	w := doJSON(r, http.MethodGet, "/v1/cajas", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodGet, "/v1/cajas?plantel_id="+uuid.NewString()+"&limit=500", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp dto.ListaCajasResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 20, resp.Limit)
}
