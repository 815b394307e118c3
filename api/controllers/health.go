package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const readinessTimeout = 2 * time.Second

// Pinger is any dependency the readiness check pings.
type Pinger interface {
	Ping(context.Context) error
}

func envTagged(cfg *config.Config, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Storefront-Env", cfg.App.Env)
		next(w, r)
	}
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return envTagged(cfg, responses.Handle(nil, func(*http.Request) (int, any, error) {
		return responses.OK(map[string]string{"status": "live"})
	}))
}

// HealthReady pings each dependency under one shared deadline; any failure
// makes the instance not ready.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return envTagged(cfg, responses.Handle(logg, func(r *http.Request) (int, any, error) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				return responses.Fail(pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable").
					WithDetails(map[string]any{"dependency": name}))
			}
		}
		return responses.OK(map[string]string{"status": "ready"})
	}))
}
