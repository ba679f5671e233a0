package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"veinwise/internal/metrics"
	"veinwise/internal/service"
	"veinwise/internal/session"
)

// NewRouter configura el router de Gin con middlewares y rutas.
// metricsHandler nil deshabilita /metrics.
func NewRouter(
	logger *zap.Logger,
	auth *service.AuthService,
	authMetrics *metrics.AuthMetrics,
	metricsHandler http.Handler,
) *gin.Engine {
	r := gin.New()
	authH := NewAuthHandler(logger, auth)
	pageH := NewPageHandler(logger, auth)

	// Middlewares basicos: logging, recovery, cookie jar por peticion y gate de navegacion.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), cookieJarMiddleware(), EdgeGate(auth, logger, authMetrics))

	api := r.Group("/api/auth")
	api.POST("/register", authH.Register)
	api.POST("/login", authH.Login)
	api.POST("/logout", authH.Logout)
	api.GET("/me", RequireUser(auth), authH.Me)

	r.GET("/healthz", authH.Health)
	if metricsHandler != nil {
		r.GET("/metrics", gin.WrapH(metricsHandler))
	}

	r.GET("/", pageH.Public("home"))
	r.GET("/login", pageH.Public("login"))
	r.GET("/register", pageH.Public("register"))
	r.GET("/dashboard", pageH.Protected("dashboard"))
	r.GET("/upload", pageH.Protected("upload"))
	r.GET("/results", pageH.Protected("results"))
	r.GET("/profile", pageH.Protected("profile"))
	r.GET("/settings", pageH.Protected("settings"))
	r.GET("/scans", pageH.Protected("scans"))
	r.GET("/scans/:id", pageH.Protected("scan"))

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// cookieJarMiddleware adjunta el Jar de la peticion al contexto para la sesion sellada.
func cookieJarMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		jar := session.NewJar(c.Writer, c.Request)
		c.Request = c.Request.WithContext(session.WithJar(c.Request.Context(), jar))
		c.Next()
	}
}
