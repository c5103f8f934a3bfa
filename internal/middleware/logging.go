package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmynk/settlebot/internal/conversation"
)

// Logging logs every handled event with its stage, kind and duration.
func Logging() Middleware {
	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, ev conversation.Event) (conversation.Dispatch, error) {
			start := time.Now()

			d, err := next.Handle(ctx, ev)

			duration := time.Since(start).Milliseconds()
			switch {
			case err != nil:
				slog.Error("Event failed",
					"stage", d.Stage.String(),
					"kind", d.Kind.String(),
					"error", err,
					"user_id", GetUserID(ctx),
					"duration_ms", duration,
				)
			case d.Ignored:
				slog.Debug("Event ignored",
					"user_id", GetUserID(ctx),
				)
			default:
				slog.Info("Event ok",
					"stage", d.Stage.String(),
					"kind", d.Kind.String(),
					"user_id", GetUserID(ctx),
					"duration_ms", duration,
				)
			}

			return d, err
		})
	}
}

// HTTPLogging logs requests to the metrics endpoint.
func HTTPLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		slog.Debug("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
