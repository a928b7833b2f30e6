package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/kurumart/kurumart-backend/api/responses"
	"github.com/kurumart/kurumart-backend/pkg/config"
	pkgerrors "github.com/kurumart/kurumart-backend/pkg/errors"
	"github.com/kurumart/kurumart-backend/pkg/logger"
)

const readyCheckTimeout = 3 * time.Second

// Pinger is a dependency that can report its own availability.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Kurumart-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every hard dependency. Pingers passed as nil are treated
// as not wired and skipped.
func HealthReady(cfg *config.Config, logg *logger.Logger, checks map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Kurumart-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
		defer cancel()

		statuses := map[string]string{}
		for name, check := range checks {
			if check == nil {
				statuses[name] = "skipped"
				continue
			}
			if err := check.Ping(ctx); err != nil {
				statuses[name] = "down"
				if logg != nil {
					logg.Error(logg.WithField(ctx, "dependency", name), "health.ready.failed", err)
				}
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "dependency unavailable").
					WithDetails(map[string]any{"dependency": name}))
				return
			}
			statuses[name] = "up"
		}

		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": statuses})
	}
}
