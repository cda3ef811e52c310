package middleware

import (
	"net/http"
	"strings"

	"connect/services"

	"github.com/gin-gonic/gin"
)

// SessionCookieName - cookie с токеном сессии, выданным на OAuth callback
const SessionCookieName = "connect_session"

var userService = services.NewUserService()

func sessionToken(c *gin.Context) string {
	if cookie, err := c.Cookie(SessionCookieName); err == nil && cookie != "" {
		return cookie
	}
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

// RequireAuth - middleware для обязательной аутентификации. Кладет
// user_id в контекст; без валидной сессии запрос не проходит.
// Принципал всегда явный, константных заглушек нет.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := sessionToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			c.Abort()
			return
		}

		user, err := userService.ResolveSession(c.Request.Context(), token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session"})
			c.Abort()
			return
		}

		c.Set("user_id", user.ID)
		c.Next()
	}
}

// OptionalAuth - middleware для опциональной аутентификации: user_id
// кладется в контекст только при валидной сессии, анонимные запросы
// проходят дальше
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := sessionToken(c)
		if token != "" {
			if user, err := userService.ResolveSession(c.Request.Context(), token); err == nil {
				c.Set("user_id", user.ID)
			}
		}
		c.Next()
	}
}
