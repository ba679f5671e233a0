package http

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"veinwise/internal/metrics"
	"veinwise/internal/service"
)

// GateAction es el resultado terminal del gate para una navegacion.
type GateAction string

const (
	GateAllow    GateAction = "allow"
	GateRedirect GateAction = "redirect"
)

// GateDecision describe que hacer con la peticion. ClearCookie indica que el token
// presentado estaba malformado y debe borrarse, sea cual sea la accion.
type GateDecision struct {
	Action      GateAction
	Location    string
	ClearCookie bool
}

// Label es la etiqueta de metricas de la decision.
func (d GateDecision) Label() string {
	if d.Action == GateAllow && d.ClearCookie {
		return "allow_clear_cookie"
	}
	return string(d.Action)
}

var (
	publicPaths    = map[string]struct{}{"/": {}, "/login": {}, "/register": {}}
	protectedPaths = map[string]struct{}{
		"/dashboard": {},
		"/upload":    {},
		"/results":   {},
		"/profile":   {},
		"/settings":  {},
		"/scans":     {},
	}
)

// MatchesGate indica si el gate aplica a la ruta. Todo lo demas (API incluida) lo saltea.
func MatchesGate(path string) bool {
	if IsPublicPath(path) {
		return true
	}
	if _, ok := protectedPaths[path]; ok {
		return true
	}
	return strings.HasPrefix(path, "/scans/")
}

func IsPublicPath(path string) bool {
	_, ok := publicPaths[path]
	return ok
}

// StructurallyValid comprueba solo la forma del token: tres segmentos no vacios separados por punto.
// No verifica firma ni expiracion.
func StructurallyValid(token string) bool {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
	}
	return true
}

// EvaluateGate aplica la tabla de decision a una ruta ya matcheada.
func EvaluateGate(path, token string) GateDecision {
	var decision GateDecision
	authenticated := false
	if token != "" {
		if StructurallyValid(token) {
			authenticated = true
		} else {
			decision.ClearCookie = true
		}
	}

	public := IsPublicPath(path)
	switch {
	case public && authenticated:
		decision.Action = GateRedirect
		decision.Location = "/dashboard"
	case !public && !authenticated:
		decision.Action = GateRedirect
		decision.Location = LoginRedirect(path)
	default:
		decision.Action = GateAllow
	}
	return decision
}

var slashUnescaper = strings.NewReplacer("%2F", "/")

// LoginRedirect arma /login?redirect=<path>.
func LoginRedirect(path string) string {
	return "/login?redirect=" + slashUnescaper.Replace(url.QueryEscape(path))
}

// EdgeGate es el filtro grueso de navegacion. La verificacion real ocurre en cada handler.
func EdgeGate(auth *service.AuthService, logger *zap.Logger, authMetrics *metrics.AuthMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if !MatchesGate(path) {
			c.Next()
			return
		}

		token := ""
		if cookie, err := c.Request.Cookie(service.AuthCookieName); err == nil {
			token = cookie.Value
		}

		decision := EvaluateGate(path, token)
		authMetrics.ObserveGate(decision.Label())
		if decision.ClearCookie {
			logger.Debug("clearing malformed auth cookie", zap.String("path", path))
			auth.ClearAuthCookie(c.Writer)
		}
		if decision.Action == GateRedirect {
			c.Redirect(http.StatusFound, decision.Location)
			c.Abort()
			return
		}
		c.Next()
	}
}
