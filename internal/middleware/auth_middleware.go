package middleware

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/newedenfaces-api/pkg/auth"
)

// AuthMiddleware защищает административные маршруты
type AuthMiddleware struct {
	jwtService *auth.JWTService
}

// NewAuthMiddleware создает новый middleware
func NewAuthMiddleware(jwtService *auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{jwtService: jwtService}
}

// RequireAdmin пропускает только запросы с действующим Bearer-токеном и role=admin
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.jwtService.Enabled() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Admin access is disabled."})
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Authorization header is required."})
			return
		}

		// Проверяем формат заголовка Bearer {token}
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Authorization header format must be Bearer {token}."})
			return
		}

		claims, err := m.jwtService.ParseToken(parts[1])
		if err != nil {
			msg := "Invalid or expired token."
			if errors.Is(err, auth.ErrTokenExpired) {
				msg = "Token is expired."
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": msg})
			return
		}

		if claims.Role != auth.RoleAdmin {
			log.Printf("[AuthMiddleware] Отказ в доступе: sub=%s role=%q path=%s", claims.Subject, claims.Role, c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Admin role is required."})
			return
		}

		c.Set("admin_subject", claims.Subject)
		c.Next()
	}
}
