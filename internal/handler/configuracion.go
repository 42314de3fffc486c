package handler

import (
	"net/http"

	"cajaescolar/internal/apierror"
	"cajaescolar/internal/dto"
	"cajaescolar/internal/middleware"
	"cajaescolar/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ConfiguracionHandler struct{ svc service.ConfiguracionService }

func NewConfiguracionHandler(svc service.ConfiguracionService) *ConfiguracionHandler {
	return &ConfiguracionHandler{svc: svc}
}

// Obtener godoc
// @Summary Configuracion del plantel
// @Tags planteles
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de plantel"
// @Success 200 {object} model.ConfiguracionPlantel
// @Router /v1/planteles/{id}/configuracion [get]
func (h *ConfiguracionHandler) Obtener(c *gin.Context) {
	id, ok := h.plantel(c)
	if !ok {
		return
	}
	cfg, err := h.svc.Obtener(c.Request.Context(), id)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (h *ConfiguracionHandler) Actualizar(c *gin.Context) {
	var req dto.ActualizarConfiguracionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	id, ok := h.plantel(c)
	if !ok {
		return
	}
	cfg, err := h.svc.Actualizar(c.Request.Context(), id, req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// Refrescar drops the cached copy and reloads it from the database.
func (h *ConfiguracionHandler) Refrescar(c *gin.Context) {
	id, ok := h.plantel(c)
	if !ok {
		return
	}
	cfg, err := h.svc.Refrescar(c.Request.Context(), id)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (h *ConfiguracionHandler) plantel(c *gin.Context) (uuid.UUID, bool) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return uuid.Nil, false
	}
	if !middleware.GetClaims(c).PuedeOperar(id) {
		c.JSON(http.StatusForbidden, apierror.New("No tiene acceso a este plantel"))
		return uuid.Nil, false
	}
	return id, true
}
