package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"

	"cajaescolar/internal/apierror"
	"cajaescolar/internal/middleware"
	"cajaescolar/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// decimal.Decimal is validated as a float so min=0, gt=0 and required work
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds the JSON body and runs the validator tags. On failure
// it writes the response and returns false.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("JSON invalido: "+err.Error()))
		return false
	}
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
			return false
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID inválido"))
		return uuid.Nil, false
	}
	return id, true
}

func paginacion(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}

// plantelAutorizado resolves the plantel a request acts on: the caller's own
// plantel, or the requested one for users not bound to a plantel.
func plantelAutorizado(c *gin.Context, solicitado string) (uuid.UUID, bool) {
	claims := middleware.GetClaims(c)
	if propio, ok := claims.Plantel(); ok && solicitado == "" {
		return propio, true
	}
	id, err := uuid.Parse(solicitado)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("plantel_id requerido"))
		return uuid.Nil, false
	}
	if !claims.PuedeOperar(id) {
		c.JSON(http.StatusForbidden, apierror.New("No tiene acceso a este plantel"))
		return uuid.Nil, false
	}
	return id, true
}

// responderError maps service errors to status codes. Anything unknown is a
// 500 with a generic body and is logged with the request id.
func responderError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrCajaNoEncontrada), errors.Is(err, service.ErrSinCajaAbierta):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrCajaCerrada), errors.Is(err, service.ErrCajaAbiertaExistente):
		status = http.StatusConflict
	case errors.Is(err, service.ErrMetodoPagoInvalido), errors.Is(err, service.ErrMontoFinalRequerido):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrCredenciales), errors.Is(err, service.ErrTokenInvalido):
		status = http.StatusUnauthorized
	}

	if status == http.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("request_id", c.GetString(middleware.RequestIDKey)).
			Str("path", c.FullPath()).
			Msg("request failed")
		c.JSON(status, apierror.Interno())
		return
	}
	c.JSON(status, apierror.New(err.Error()))
}
