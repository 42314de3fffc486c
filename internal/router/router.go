package router

import (
	"time"

	"cajaescolar/internal/config"
	"cajaescolar/internal/handler"
	"cajaescolar/internal/infra"
	"cajaescolar/internal/middleware"
	"cajaescolar/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the services built in the composition root (cmd/server).
type Deps struct {
	DB     *gorm.DB
	Redis  *redis.Client
	SMTPCB *infra.CircuitBreaker

	Auth          service.AuthService
	Cajas         service.CajaService
	Configuracion service.ConfiguracionService
	// ConfigCache feeds the plantel name into the corte PDF
	ConfigCache service.ConfiguracionProvider

	APILimiter   middleware.Limitador
	LoginLimiter middleware.Limitador
}

// New returns the Gin engine with every route mounted.
func New(cfg *config.Config, d Deps) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// order matters: request id first so every later log line carries it
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimit(d.APILimiter, "api:", "Demasiadas solicitudes. Intente nuevamente en un momento."))

	authH := handler.NewAuthHandler(d.Auth)
	cajaH := handler.NewCajaHandler(d.Cajas, d.ConfigCache)
	configH := handler.NewConfiguracionHandler(d.Configuracion)

	// Public
	r.GET("/health", handler.Health(d.DB, d.Redis, d.SMTPCB))

	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.RateLimit(d.LoginLimiter, "login:", "Demasiados intentos de login. Intente en 1 minuto."), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Protected
	todos := middleware.RequireRole(middleware.RolCajero, middleware.RolSupervisor, middleware.RolAdministrador)
	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret))
	{
		cajas := v1.Group("/cajas", todos)
		{
			cajas.POST("/abrir", cajaH.Abrir)
			cajas.GET("", cajaH.Listar)
			cajas.GET("/activa", cajaH.Activa)
			cajas.POST("/validar", cajaH.Validar)
			cajas.GET("/:id", cajaH.Obtener)
			cajas.POST("/:id/transacciones", cajaH.RegistrarTransaccion)
			cajas.POST("/:id/gastos", cajaH.RegistrarGasto)
			cajas.POST("/:id/cerrar", cajaH.Cerrar)
			cajas.GET("/:id/corte", cajaH.Corte)
		}

		planteles := v1.Group("/planteles/:id/configuracion")
		{
			planteles.GET("", todos, configH.Obtener)
			planteles.PUT("", middleware.RequireRole(middleware.RolAdministrador), configH.Actualizar)
			planteles.POST("/refresh", middleware.RequireRole(middleware.RolSupervisor, middleware.RolAdministrador), configH.Refrescar)
		}
	}

	// Swagger UI only outside production
	if !cfg.IsProduction() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}

// DefaultLimiters are the in-process limiters used when no shared store is
// wired: 1000 req/min for the API and 20 login attempts/min per IP.
func DefaultLimiters() (api, login middleware.Limitador) {
	return middleware.NewMemoriaLimitador(1000, time.Minute), middleware.NewMemoriaLimitador(20, time.Minute)
}
