package middleware

import (
	"net/http"
	"strings"

	"cajaescolar/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	ClaimsKey = "claims"
)

// Roles
const (
	RolCajero        = "cajero"
	RolSupervisor    = "supervisor"
	RolAdministrador = "administrador"
)

// JWTClaims are the custom claims embedded in every access token.
type JWTClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Rol      string `json:"rol"`
	// PlantelID is empty for users that may operate any plantel
	PlantelID string `json:"plantel_id,omitempty"`
	Typ       string `json:"typ"`
	jwt.RegisteredClaims
}

// JWTAuth validates the Bearer token on every protected route.
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Autenticacion requerida"))
			return
		}

		tokenStr := strings.TrimPrefix(header, "Bearer ")
		claims := &JWTClaims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})

		// refresh tokens only work on /auth/refresh
		if err != nil || !token.Valid || claims.Typ != "access" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Token invalido o expirado"))
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// RequireRole rejects requests whose JWT role is not in the allowed list.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		claims, ok := c.MustGet(ClaimsKey).(*JWTClaims)
		if !ok || !allowed[claims.Rol] {
			c.AbortWithStatusJSON(http.StatusForbidden, apierror.New("Permisos insuficientes"))
			return
		}
		c.Next()
	}
}

// GetClaims is a helper to retrieve typed claims from the Gin context.
func GetClaims(c *gin.Context) *JWTClaims {
	claims, _ := c.MustGet(ClaimsKey).(*JWTClaims)
	return claims
}

// UsuarioID returns the caller's id, or uuid.Nil if the claim is malformed.
func (cl *JWTClaims) UsuarioID() uuid.UUID {
	id, err := uuid.Parse(cl.UserID)
	if err != nil {
		return uuid.Nil
	}
	return id
}

// Plantel returns the plantel the caller is bound to, if any.
func (cl *JWTClaims) Plantel() (uuid.UUID, bool) {
	if cl.PlantelID == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(cl.PlantelID)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// PuedeOperar reports whether the caller may act on plantelID. Cajeros are
// limited to their own plantel; supervisors and admins without a plantel
// claim see all of them.
func (cl *JWTClaims) PuedeOperar(plantelID uuid.UUID) bool {
	propio, ok := cl.Plantel()
	if ok {
		return propio == plantelID
	}
	return cl.Rol != RolCajero
}
