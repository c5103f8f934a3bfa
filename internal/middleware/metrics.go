package middleware

import (
	"context"
	"time"

	"github.com/mmynk/settlebot/internal/conversation"
	"github.com/mmynk/settlebot/internal/metrics"
)

// Outcome labels.
const (
	outcomeOK      = "ok"
	outcomeError   = "error"
	outcomeIgnored = "ignored"
)

// Metrics counts events by stage, kind and outcome and observes how long
// each took.
func Metrics() Middleware {
	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, ev conversation.Event) (conversation.Dispatch, error) {
			start := time.Now()

			d, err := next.Handle(ctx, ev)

			if d.Ignored {
				metrics.Events.WithLabelValues("", "", outcomeIgnored).Inc()
				return d, err
			}
			outcome := outcomeOK
			if err != nil {
				outcome = outcomeError
			}
			metrics.Events.WithLabelValues(d.Stage.String(), d.Kind.String(), outcome).Inc()
			metrics.EventDuration.WithLabelValues(d.Kind.String()).Observe(time.Since(start).Seconds())
			return d, err
		})
	}
}
