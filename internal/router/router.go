package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/patient-records/internal/middleware"
	"github.com/jwalitptl/patient-records/pkg/httputil"
	"github.com/jwalitptl/patient-records/pkg/metrics"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type HealthHandler interface {
	RegisterRoutes(gin.IRouter)
}

type Router struct {
	engine   *gin.Engine
	patientH Handler
	healthH  HealthHandler
	config   RouterConfig
}

type RouterConfig struct {
	RateLimitEnabled bool
	RateLimit        rate.Limit
	RateBurst        int
	RateClientTTL    time.Duration
	MetricsPath      string
	MaxBodySize      int64
	Metrics          *metrics.Metrics
	// Gatherer serves MetricsPath; nil uses the default registry.
	Gatherer prometheus.Gatherer
	Log      zerolog.Logger
}

func NewRouter(patientH Handler, healthH HealthHandler, config RouterConfig) *Router {
	engine := gin.New() // Use New() instead of Default() for more control

	r := &Router{
		engine:   engine,
		patientH: patientH,
		healthH:  healthH,
		config:   config,
	}

	// Add core middlewares
	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(config.Log),
		middleware.Logger(config.Log),
		middleware.ErrorHandler(config.Log),
	)
	if config.Metrics != nil {
		engine.Use(middleware.Metrics(config.Metrics))
	}

	// Configure rate limiter
	if config.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:      config.RateLimit,
			Burst:     config.RateBurst,
			ClientTTL: config.RateClientTTL,
		})
		engine.Use(rateLimiter.RateLimit())
	}

	engine.NoRoute(func(c *gin.Context) {
		httputil.RespondWithMessage(c, http.StatusNotFound, "route not found")
	})

	return r
}

func (r *Router) Setup() {
	r.healthH.RegisterRoutes(r.engine)

	metricsPath := r.config.MetricsPath
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	gatherer := r.config.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.engine.GET(metricsPath, gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	api := r.engine.Group("/api/v1")

	// Add version header
	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})
	api.Use(middleware.SizeLimit(r.config.MaxBodySize))

	r.patientH.RegisterRoutes(api)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
