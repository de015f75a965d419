package httpserver

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/vivhq/viv/pkg/logger"
)

// HealthCheckHandler returns an HTTP handler for liveness and readiness probes.
//
//   - Liveness: with no dependency functions it returns 200 with {"status":"ok"}.
//   - Readiness: each dependency function is executed; if all succeed the
//     handler returns 200 with {"status":"ok"}, otherwise 500 with
//     {"status":"unavailable"}.
func HealthCheckHandler(ctx context.Context, log *slog.Logger, funcs ...func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		for _, f := range funcs {
			if err := f(ctx); err != nil {
				log.ErrorContext(ctx, "readiness check failed", logger.Error(err))
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"status":"unavailable"}`))
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}
}
