package middleware

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mmynk/settlebot/internal/conversation"
	"github.com/mmynk/settlebot/internal/metrics"
	"github.com/mmynk/settlebot/internal/models"
)

func TestChainOrderAndSender(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next Handler) Handler {
			return HandlerFunc(func(ctx context.Context, ev conversation.Event) (conversation.Dispatch, error) {
				order = append(order, name)
				return next.Handle(ctx, ev)
			})
		}
	}

	var seen int64
	h := Chain(HandlerFunc(func(ctx context.Context, ev conversation.Event) (conversation.Dispatch, error) {
		seen = GetUserID(ctx)
		return conversation.Dispatch{}, nil
	}), mark("outer"), WithSender(), mark("inner"))

	ev := conversation.TextEvent{Sender: conversation.Sender{SenderID: 42, ChatID: 42}, Text: "hi"}
	if _, err := h.Handle(context.Background(), ev); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	if len(order) != 2 || order[0] != "outer" || order[1] != "inner" {
		t.Errorf("order = %v", order)
	}
	if seen != 42 {
		t.Errorf("GetUserID = %d, want 42", seen)
	}
	if GetUserID(context.Background()) != 0 {
		t.Error("GetUserID on a bare context should be 0")
	}
}

func TestMetricsAndLoggingPassThrough(t *testing.T) {
	errBoom := errors.New("boom")
	tests := []struct {
		name     string
		dispatch conversation.Dispatch
		err      error
		labels   []string
	}{
		{
			name:     "ok",
			dispatch: conversation.Dispatch{Stage: models.StagePayment, Kind: conversation.KindText},
			labels:   []string{"payment", "text", outcomeOK},
		},
		{
			name:     "error",
			dispatch: conversation.Dispatch{Stage: models.StageProductSelection, Kind: conversation.KindClaim},
			err:      errBoom,
			labels:   []string{"product_selection", "claim", outcomeError},
		},
		{
			name:     "ignored",
			dispatch: conversation.Dispatch{Ignored: true},
			labels:   []string{"", "", outcomeIgnored},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counter := metrics.Events.WithLabelValues(tt.labels...)
			before := testutil.ToFloat64(counter)

			h := Chain(HandlerFunc(func(context.Context, conversation.Event) (conversation.Dispatch, error) {
				return tt.dispatch, tt.err
			}), WithSender(), Logging(), Metrics())

			d, err := h.Handle(context.Background(), conversation.PhotoEvent{})
			if !errors.Is(err, tt.err) {
				t.Errorf("err = %v, want %v", err, tt.err)
			}
			if d != tt.dispatch {
				t.Errorf("dispatch = %+v, want %+v", d, tt.dispatch)
			}
			if got := testutil.ToFloat64(counter); got != before+1 {
				t.Errorf("events%v = %v, want %v", tt.labels, got, before+1)
			}
		})
	}
}
