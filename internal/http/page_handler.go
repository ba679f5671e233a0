package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"veinwise/internal/domain"
	"veinwise/internal/service"
)

// PageHandler sirve los descriptores de pagina. El render queda del lado del cliente.
type PageHandler struct {
	logger *zap.Logger
	auth   *service.AuthService
}

func NewPageHandler(logger *zap.Logger, auth *service.AuthService) *PageHandler {
	return &PageHandler{logger: logger, auth: auth}
}

// Public responde la pagina con el usuario de sesion si existe.
func (h *PageHandler) Public(page string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var summary *domain.Summary
		if user := h.auth.GetServerUser(c.Request.Context()); user != nil {
			s := user.Summary()
			summary = &s
		}
		c.JSON(http.StatusOK, gin.H{"page": page, "user": summary})
	}
}

// Protected hace el chequeo fino de sesion; sin sesion vigente redirige al login.
// El token se borra junto con la redireccion: si no, el gate devolveria /login al destino.
func (h *PageHandler) Protected(page string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := h.auth.GetServerUser(c.Request.Context())
		if user == nil {
			h.logger.Debug("page without session", zap.String("page", page))
			h.auth.ClearAuthCookie(c.Writer)
			c.Redirect(http.StatusFound, LoginRedirect(c.Request.URL.Path))
			return
		}
		body := gin.H{"page": page, "user": user.Summary()}
		if id := c.Param("id"); id != "" {
			body["id"] = id
		}
		c.JSON(http.StatusOK, body)
	}
}
