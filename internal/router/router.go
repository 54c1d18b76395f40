package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"crparser/internal/handler"
	"crparser/internal/middleware"
)

// Options holds the optional cross-cutting pieces of the router.
type Options struct {
	// Verifier enables bearer auth on job routes when set.
	Verifier *middleware.TokenVerifier
	// Limiter rate limits submissions when set.
	Limiter *middleware.RateLimiter
	// Metrics is served at /metrics when set.
	Metrics http.Handler
}

// Setup configures the Gin engine with all routes and middleware.
func Setup(jobH *handler.JobHandler, healthH *handler.HealthHandler, opts Options) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)
	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics))
	}

	auth := middleware.AuthMiddleware(opts.Verifier)
	limit := middleware.RateLimit(opts.Limiter)

	// Legacy ingress path kept for existing clients.
	r.POST("/cr_parse", limit, auth, jobH.Submit)

	v1 := r.Group("/api/v1")
	jobs := v1.Group("/jobs")
	jobs.Use(auth)
	jobs.POST("", limit, jobH.Submit)
	jobs.GET("/:id", jobH.Get)
	jobs.GET("/:id/tables", jobH.Tables)
	jobs.GET("/:id/export", jobH.Export)

	return r
}
