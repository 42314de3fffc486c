package handler

import (
	"bytes"
	"net/http"

	"cajaescolar/internal/apierror"
	"cajaescolar/internal/caja"
	"cajaescolar/internal/dto"
	"cajaescolar/internal/infra"
	"cajaescolar/internal/middleware"
	"cajaescolar/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type CajaHandler struct {
	svc    service.CajaService
	config service.ConfiguracionProvider
}

func NewCajaHandler(svc service.CajaService, config service.ConfiguracionProvider) *CajaHandler {
	return &CajaHandler{svc: svc, config: config}
}

// Abrir godoc
// @Summary Abre la caja del plantel
// @Tags cajas
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.AbrirCajaRequest true "Datos de apertura"
// @Success 201 {object} caja.CajaProcesada
// @Failure 409 {object} apierror.APIError
// @Router /v1/cajas/abrir [post]
func (h *CajaHandler) Abrir(c *gin.Context) {
	var req dto.AbrirCajaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	plantelID, ok := plantelAutorizado(c, req.PlantelID)
	if !ok {
		return
	}
	claims := middleware.GetClaims(c)

	resp, err := h.svc.Abrir(c.Request.Context(), claims.UsuarioID(), plantelID, req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Listar godoc
// @Summary Historial de cajas del plantel, en formato de tabla
// @Tags cajas
// @Produce json
// @Security BearerAuth
// @Param plantel_id query string false "Plantel (solo usuarios sin plantel asignado)"
// @Param page query int false "Pagina"
// @Param limit query int false "Filas por pagina (max 100)"
// @Success 200 {object} dto.ListaCajasResponse
// @Router /v1/cajas [get]
func (h *CajaHandler) Listar(c *gin.Context) {
	plantelID, ok := plantelAutorizado(c, c.Query("plantel_id"))
	if !ok {
		return
	}
	page, limit := paginacion(c)
	resp, err := h.svc.Listar(c.Request.Context(), plantelID, page, limit)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Activa returns the open caja of the caller's plantel.
func (h *CajaHandler) Activa(c *gin.Context) {
	plantelID, ok := plantelAutorizado(c, c.Query("plantel_id"))
	if !ok {
		return
	}
	resp, err := h.svc.Activa(c.Request.Context(), plantelID)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Obtener godoc
// @Summary Caja procesada: totales, desglose y diferencia
// @Tags cajas
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de caja"
// @Success 200 {object} caja.CajaProcesada
// @Failure 404 {object} apierror.APIError
// @Router /v1/cajas/{id} [get]
func (h *CajaHandler) Obtener(c *gin.Context) {
	p, ok := h.cajaAutorizada(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *CajaHandler) RegistrarTransaccion(c *gin.Context) {
	var req dto.RegistrarTransaccionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	p, ok := h.cajaAutorizada(c)
	if !ok {
		return
	}
	t, err := h.svc.RegistrarTransaccion(c.Request.Context(), p.ID, req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (h *CajaHandler) RegistrarGasto(c *gin.Context) {
	var req dto.RegistrarGastoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	p, ok := h.cajaAutorizada(c)
	if !ok {
		return
	}
	g, err := h.svc.RegistrarGasto(c.Request.Context(), p.ID, req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, g)
}

// Cerrar godoc
// @Summary Cierra la caja y valida el efectivo declarado
// @Tags cajas
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de caja"
// @Param body body dto.CerrarCajaRequest true "Efectivo declarado"
// @Success 200 {object} dto.CierreCajaResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/cajas/{id}/cerrar [post]
func (h *CajaHandler) Cerrar(c *gin.Context) {
	var req dto.CerrarCajaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	p, ok := h.cajaAutorizada(c)
	if !ok {
		return
	}
	resp, err := h.svc.Cerrar(c.Request.Context(), p.ID, req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Corte godoc
// @Summary Descarga el corte de caja en PDF
// @Tags cajas
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "ID de caja"
// @Success 200 {file} file
// @Router /v1/cajas/{id}/corte [get]
func (h *CajaHandler) Corte(c *gin.Context) {
	p, ok := h.cajaAutorizada(c)
	if !ok {
		return
	}

	nombre := "Plantel"
	if cfg, err := h.config.Get(c.Request.Context(), p.PlantelID); err == nil && cfg.NombreMostrado != "" {
		nombre = cfg.NombreMostrado
	}

	var buf bytes.Buffer
	if err := infra.EscribirCortePDF(&buf, *p, nombre); err != nil {
		responderError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+infra.CorteFileName(*p)+`"`)
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

// Validar godoc
// @Summary Compara un monto declarado contra el esperado
// @Tags cajas
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.ValidarBalanceRequest true "Montos"
// @Success 200 {object} caja.Validacion
// @Router /v1/cajas/validar [post]
func (h *CajaHandler) Validar(c *gin.Context) {
	var req dto.ValidarBalanceRequest
	if !bindAndValidate(c, &req) {
		return
	}
	var v caja.Validacion
	if req.Tolerancia != nil {
		v = caja.ValidarBalance(req.FinalAmount, req.ExpectedAmount, *req.Tolerancia)
	} else {
		v = caja.ValidarBalance(req.FinalAmount, req.ExpectedAmount)
	}
	c.JSON(http.StatusOK, v)
}

// cajaAutorizada loads the caja in the :id param and checks the caller may see
// its plantel. A caja from another plantel answers 404, as if it did not exist.
func (h *CajaHandler) cajaAutorizada(c *gin.Context) (*caja.CajaProcesada, bool) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return nil, false
	}
	p, err := h.svc.Obtener(c.Request.Context(), id)
	if err != nil {
		responderError(c, err)
		return nil, false
	}
	claims := middleware.GetClaims(c)
	if !claims.PuedeOperar(p.PlantelID) {
		log.Warn().
			Str("request_id", c.GetString(middleware.RequestIDKey)).
			Str("user_id", claims.UserID).
			Str("caja_id", id.String()).
			Msg("caja de otro plantel")
		c.JSON(http.StatusNotFound, apierror.New(service.ErrCajaNoEncontrada.Error()))
		return nil, false
	}
	return p, true
}

