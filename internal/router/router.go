package router

import (
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/teleclinic/consult-api/internal/config"
	"github.com/teleclinic/consult-api/internal/handler/admin"
	"github.com/teleclinic/consult-api/internal/handler/auth"
	"github.com/teleclinic/consult-api/internal/handler/consultation"
	"github.com/teleclinic/consult-api/internal/handler/export"
	"github.com/teleclinic/consult-api/internal/handler/health"
	"github.com/teleclinic/consult-api/internal/handler/payment"
	"github.com/teleclinic/consult-api/internal/handler/record"
	"github.com/teleclinic/consult-api/internal/handler/template"
	"github.com/teleclinic/consult-api/internal/middleware"
	"github.com/teleclinic/consult-api/internal/model"
	"github.com/teleclinic/consult-api/pkg/metrics"
)

type Handlers struct {
	Health       *health.Handler
	Auth         *auth.Handler
	Consultation *consultation.Handler
	Record       *record.Handler
	Template     *template.Handler
	Admin        *admin.Handler
	Payment      *payment.Handler
	Export       *export.Handler
}

// New assembles the gin engine: global middleware, the public booking
// surface, and the authenticated API behind the bearer-token check.
func New(
	cfg *config.Config,
	log *zerolog.Logger,
	authMW *middleware.AuthMiddleware,
	m *metrics.Metrics,
	registry *prometheus.Registry,
	h Handlers,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("consultation_type", func(fl validator.FieldLevel) bool {
			return model.ConsultationType(fl.Field().String()).Valid()
		})
	}

	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(log),
		middleware.Logger(log),
		middleware.Metrics(m),
		middleware.CORS(middleware.DefaultCORSConfig()),
		middleware.SecurityHeaders(middleware.DefaultSecurityConfig(cfg.Jitsi.Domain)),
	)

	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	api := engine.Group("/api/v1")
	h.Health.RegisterRoutes(api)
	h.Auth.RegisterRoutes(api)

	public := api.Group("")
	if cfg.RateLimit.Enabled {
		rl := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
		public.Use(rl.Handle())
	}
	h.Consultation.RegisterPublicRoutes(public)
	h.Payment.RegisterPublicRoutes(public)

	authed := api.Group("")
	authed.Use(authMW.Authenticate())
	h.Consultation.RegisterRoutes(authed)
	h.Record.RegisterRoutes(authed)
	h.Template.RegisterRoutes(authed)
	h.Admin.RegisterRoutes(authed)
	h.Payment.RegisterRoutes(authed)
	h.Export.RegisterRoutes(authed)

	return engine
}
