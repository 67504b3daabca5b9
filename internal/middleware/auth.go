package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"schoolbooking/internal/domain"
	"schoolbooking/internal/pkg/jwt"
	"schoolbooking/internal/pkg/response"
)

const (
	CtxUserID = "user_id"
	CtxRole   = "role"
)

// JWTAuth validates "Authorization: Bearer <token>" and stores user_id and role
// in the gin context.
func JWTAuth(jwtService *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Abort(c, http.StatusUnauthorized, "AUTH_HEADER_MISSING", "Authorization header is required")
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
			response.Abort(c, http.StatusUnauthorized, "INVALID_AUTH_FORMAT", "Authorization header must be 'Bearer <token>'")
			return
		}

		claims, err := jwtService.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			response.Abort(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
			return
		}

		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxRole, claims.Role)
		c.Next()
	}
}

// CurrentActor reads what JWTAuth stored. ok is false on unauthenticated requests.
func CurrentActor(c *gin.Context) (domain.Actor, bool) {
	id := c.GetInt64(CtxUserID)
	if id == 0 {
		return domain.Actor{}, false
	}
	return domain.Actor{UserID: id, Role: domain.UserRole(c.GetString(CtxRole))}, true
}
