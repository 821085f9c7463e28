package router

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/telehealth-api/internal/handler"
	appointmentHandler "github.com/jwalitptl/telehealth-api/internal/handler/appointment"
	authHandler "github.com/jwalitptl/telehealth-api/internal/handler/auth"
	doctorHandler "github.com/jwalitptl/telehealth-api/internal/handler/doctor"
	doctorScheduleHandler "github.com/jwalitptl/telehealth-api/internal/handler/doctorschedule"
	paymentHandler "github.com/jwalitptl/telehealth-api/internal/handler/payment"
	scheduleHandler "github.com/jwalitptl/telehealth-api/internal/handler/schedule"
	"github.com/jwalitptl/telehealth-api/internal/middleware"
	"github.com/jwalitptl/telehealth-api/internal/model"
)

type Router struct {
	engine          *gin.Engine
	auth            *middleware.AuthMiddleware
	h               *handler.Handler
	authH           *authHandler.Handler
	doctorH         *doctorHandler.Handler
	scheduleH       *scheduleHandler.Handler
	doctorScheduleH *doctorScheduleHandler.Handler
	appointmentH    *appointmentHandler.Handler
	paymentH        *paymentHandler.Handler
	metrics         *routerMetrics
}

type routerMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
}

type Config struct {
	RateLimit     rate.Limit
	RateBurst     int
	CORSConfig    middleware.CORSConfig
	MetricsPrefix string
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	h *handler.Handler,
	authH *authHandler.Handler,
	doctorH *doctorHandler.Handler,
	scheduleH *scheduleHandler.Handler,
	doctorScheduleH *doctorScheduleHandler.Handler,
	appointmentH *appointmentHandler.Handler,
	paymentH *paymentHandler.Handler,
	config Config,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	r := &Router{
		engine:          engine,
		auth:            auth,
		h:               h,
		authH:           authH,
		doctorH:         doctorH,
		scheduleH:       scheduleH,
		doctorScheduleH: doctorScheduleH,
		appointmentH:    appointmentH,
		paymentH:        paymentH,
		metrics:         initRouterMetrics(config.MetricsPrefix),
	}

	engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.ErrorLogger(),
		r.metricsMiddleware(),
		middleware.CORS(config.CORSConfig),
	)

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:  config.RateLimit,
		Burst: config.RateBurst,
	})
	engine.Use(rateLimiter.RateLimit())

	return r
}

func (r *Router) Setup() {
	api := r.engine.Group("/api/v1")

	r.setupHealthCheck(api)
	r.setupPublicRoutes(api)

	protected := api.Group("")
	protected.Use(r.auth.Authenticate())
	r.setupProtectedRoutes(protected)
}

func (r *Router) setupHealthCheck(rg *gin.RouterGroup) {
	health := rg.Group("/health")
	{
		health.GET("", r.h.HealthCheck)
		health.GET("/live", r.h.LivenessCheck)
		health.GET("/ready", r.h.ReadinessCheck)
		health.GET("/metrics", r.h.MetricsHandler)
	}
}

func (r *Router) setupPublicRoutes(rg *gin.RouterGroup) {
	r.authH.RegisterRoutes(rg)
	r.doctorH.RegisterRoutes(rg)
	// Gateway callbacks authenticate via server-side validation, not JWT.
	r.paymentH.RegisterCallbackRoutes(rg)
}

func (r *Router) setupProtectedRoutes(rg *gin.RouterGroup) {
	r.scheduleH.RegisterRoutes(rg)
	r.appointmentH.RegisterRoutes(rg)
	r.paymentH.RegisterRoutes(rg)

	doctors := rg.Group("")
	doctors.Use(r.auth.RequireRole(model.UserRoleDoctor))
	r.doctorScheduleH.RegisterRoutes(doctors)

	admin := rg.Group("")
	admin.Use(r.auth.RequireRole(model.UserRoleAdmin))
	r.scheduleH.RegisterAdminRoutes(admin)
	r.doctorH.RegisterAdminRoutes(admin)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func initRouterMetrics(prefix string) *routerMetrics {
	return &routerMetrics{
		requestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: prefix + "_request_duration_seconds",
				Help: "Duration of HTTP requests in seconds",
			},
			[]string{"method", "path", "status"},
		),
		requestTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
	}
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()

		c.Next()

		status := fmt.Sprintf("%d", c.Writer.Status())
		r.metrics.requestDuration.WithLabelValues(c.Request.Method, path, status).
			Observe(time.Since(start).Seconds())
		r.metrics.requestTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	}
}
