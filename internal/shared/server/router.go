package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-analyzer/internal/shared/config"
	"resume-analyzer/internal/shared/metrics"
	"resume-analyzer/internal/shared/server/middleware"
	"resume-analyzer/internal/shared/server/respond"
)

const (
	groupDefault = "DEFAULT"
	groupPolling = "POLLING"
	groupUpload  = "UPLOAD"
	groupAuth    = "AUTH"
)

// RouteRegistrar is implemented by every feature handler.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// RouterDeps lists the handlers mounted under /api/v1. Nil handlers are skipped.
type RouterDeps struct {
	Config        config.Config
	ResumeHandler RouteRegistrar
	AuthHandler   RouteRegistrar
	GoogleAuth    RouteRegistrar
	UserHandler   RouteRegistrar
	HealthHandler RouteRegistrar
	RateLimits    map[string]middleware.RateLimitRule
}

// DefaultRateLimits allows frequent progress polling while keeping uploads
// and credential endpoints tight.
func DefaultRateLimits() map[string]middleware.RateLimitRule {
	return map[string]middleware.RateLimitRule{
		groupDefault: {Rate: 5, Burst: 30},
		groupPolling: {Rate: 10, Burst: 40},
		groupUpload:  {Rate: 0.5, Burst: 10},
		groupAuth:    {Rate: 0.2, Burst: 10},
	}
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	rules := deps.RateLimits
	if rules == nil {
		rules = DefaultRateLimits()
	}

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.Auth(deps.Config.Env),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules:        rules,
			DefaultGroup: groupDefault,
			GroupFor:     rateLimitGroup,
		}),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	for _, h := range []RouteRegistrar{
		deps.HealthHandler,
		deps.AuthHandler,
		deps.GoogleAuth,
		deps.UserHandler,
		deps.ResumeHandler,
	} {
		if h != nil {
			h.RegisterRoutes(api)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		respond.Error(c, http.StatusNotFound, "not_found", "route not found", nil)
	})

	return r
}

func rateLimitGroup(c *gin.Context) string {
	path := c.FullPath()
	switch {
	case c.Request.Method == http.MethodGet && path == "/api/v1/resumes/:id/progress":
		return groupPolling
	case c.Request.Method == http.MethodPost && (path == "/api/v1/resumes" || path == "/api/v1/resumes/:id/analyze"):
		return groupUpload
	case c.Request.Method == http.MethodPost && strings.HasPrefix(path, "/api/v1/auth/"):
		return groupAuth
	case path == "/api/v1/health" || path == "/metrics":
		return ""
	default:
		return groupDefault
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
