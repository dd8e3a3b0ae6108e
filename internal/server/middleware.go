package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	authdomain "github.com/courierlog/payroll/internal/auth/domain"
)

const (
	contextUserIDKey     = "user_id"
	contextRoleKey       = "role"
	contextDriverCodeKey = "driver_code"
)

func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		claims, err := s.authsvc.ParseToken(strings.TrimSpace(token))
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(contextUserIDKey, claims.Subject)
		c.Set(contextRoleKey, string(claims.Role))
		c.Set(contextDriverCodeKey, claims.DriverCode)
		c.Next()
	}
}

func RequireRole(roles ...authdomain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		current := authdomain.Role(c.GetString(contextRoleKey))
		for _, role := range roles {
			if current == role {
				c.Next()
				return
			}
		}
		AbortWithError(c, ErrForbidden)
	}
}

// canAccessDriver allows admins everywhere and drivers only their own records.
func canAccessDriver(c *gin.Context, driverCode string) bool {
	if authdomain.Role(c.GetString(contextRoleKey)) == authdomain.RoleAdmin {
		return true
	}
	own := c.GetString(contextDriverCodeKey)
	return own != "" && own == driverCode
}
