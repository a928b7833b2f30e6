package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kurumart/kurumart-backend/api/controllers"
	"github.com/kurumart/kurumart-backend/api/middleware"
	"github.com/kurumart/kurumart-backend/internal/auth"
	"github.com/kurumart/kurumart-backend/internal/catalog"
	"github.com/kurumart/kurumart-backend/pkg/auth/session"
	"github.com/kurumart/kurumart-backend/pkg/config"
	"github.com/kurumart/kurumart-backend/pkg/db"
	"github.com/kurumart/kurumart-backend/pkg/enums"
	"github.com/kurumart/kurumart-backend/pkg/logger"
	"github.com/kurumart/kurumart-backend/pkg/pubsub"
	"github.com/kurumart/kurumart-backend/pkg/redis"
)

// RouterParams carries everything the HTTP surface depends on.
type RouterParams struct {
	Config         *config.Config
	Logger         *logger.Logger
	DB             db.Pinger
	Redis          *redis.Client
	PubSub         *pubsub.Client
	SessionManager session.AccessSessionChecker
	AuthService    auth.Service
	CatalogService catalog.Service
	Engine         controllers.BidEngine
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.CORS(),
		middleware.Logging(logg),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readyChecks(p)))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/auth", func(r chi.Router) {
		loginLimiter := passthrough
		if p.Redis != nil {
			loginLimiter = middleware.AuthRateLimit(loginPolicy, p.Redis, logg)
		}
		r.With(loginLimiter).Post("/login", controllers.AuthLogin(p.AuthService, logg))
		r.Post("/refresh", controllers.AuthRefresh(p.AuthService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, p.SessionManager, logg))
		if p.Redis != nil {
			r.Use(middleware.Idempotency(p.Redis, logg))
			r.Use(middleware.RateLimit(p.Redis, logg))
		}

		r.Post("/auth/logout", controllers.AuthLogout(p.AuthService, logg))

		r.Route("/groups", func(r chi.Router) {
			r.Get("/", controllers.GroupsList(p.CatalogService, logg))
			r.Get("/live", controllers.GroupsLive(p.Engine, logg))
			r.Get("/{groupID}", controllers.GroupDetail(p.CatalogService, logg))
			r.Get("/{groupID}/live", controllers.GroupLive(p.Engine, logg))
			r.Post("/{groupID}/select", controllers.GroupSelect(p.Engine, logg))
		})

		r.Route("/bids", func(r chi.Router) {
			r.Post("/", controllers.BidSubmit(p.Engine, logg))
			r.Put("/{bidID}", controllers.BidUpdate(p.Engine, logg))
			r.Post("/{bidID}/cancel", controllers.BidCancel(p.Engine, logg))
		})

		r.Get("/connection", controllers.ConnectionState(p.Engine, logg))
		r.Get("/stream", controllers.Stream(p.Engine, logg))
	})

	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, p.SessionManager, logg))
		r.Use(middleware.RequireRole(string(enums.RoleAdmin), logg))
		if p.Redis != nil {
			r.Use(middleware.Idempotency(p.Redis, logg))
		}
		r.Post("/groups", controllers.AdminImportGroup(p.CatalogService, p.Engine, logg))
	})

	return r
}

// passthrough stands in for redis-backed middlewares when no client is wired.
func passthrough(next http.Handler) http.Handler {
	return next
}

func readyChecks(p RouterParams) map[string]controllers.Pinger {
	checks := map[string]controllers.Pinger{
		"postgres": nil,
		"redis":    nil,
		"pubsub":   nil,
	}
	if p.DB != nil {
		checks["postgres"] = p.DB
	}
	if p.Redis != nil {
		checks["redis"] = p.Redis
	}
	if p.PubSub != nil {
		checks["pubsub"] = p.PubSub
	}
	return checks
}
