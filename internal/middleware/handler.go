// Package middleware wraps the conversation handler with cross-cutting
// concerns: sender context, logging and metrics.
package middleware

import (
	"context"

	"github.com/mmynk/settlebot/internal/conversation"
)

// Handler handles one inbound chat event.
type Handler interface {
	Handle(ctx context.Context, ev conversation.Event) (conversation.Dispatch, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, ev conversation.Event) (conversation.Dispatch, error)

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, ev conversation.Event) (conversation.Dispatch, error) {
	return f(ctx, ev)
}

// Middleware decorates a Handler.
type Middleware func(next Handler) Handler

// Chain wraps h so that the first middleware is the outermost.
func Chain(h Handler, mws ...Middleware) Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// UserIDKey is the context key for the sender of the event being handled.
const UserIDKey contextKey = "user_id"

// GetUserID extracts the sender ID from the context.
// Returns 0 if not found.
func GetUserID(ctx context.Context) int64 {
	userID, _ := ctx.Value(UserIDKey).(int64)
	return userID
}

// WithSender stores the event's sender ID in the context.
func WithSender() Middleware {
	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, ev conversation.Event) (conversation.Dispatch, error) {
			ctx = context.WithValue(ctx, UserIDKey, ev.From().SenderID)
			return next.Handle(ctx, ev)
		})
	}
}
