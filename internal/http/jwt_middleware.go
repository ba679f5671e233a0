package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"veinwise/internal/domain"
	"veinwise/internal/service"
)

const currentUserKey = "current_user"

// RequireUser valida el bearer token de la cookie auth_token y guarda el usuario en el contexto.
// Las rutas API no pasan por el gate, asi que cada una se protege con este middleware.
func RequireUser(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if auth == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "auth not configured"})
			c.Abort()
			return
		}

		user := auth.GetCurrentUser(c.Request)
		if user == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
			c.Abort()
			return
		}

		c.Set(currentUserKey, *user)
		c.Next()
	}
}

// GetCurrentUser obtiene el usuario autenticado desde el contexto.
func GetCurrentUser(c *gin.Context) (domain.User, bool) {
	val, ok := c.Get(currentUserKey)
	if !ok {
		return domain.User{}, false
	}
	user, ok := val.(domain.User)
	return user, ok
}
