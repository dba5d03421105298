// Package middleware wraps the dispatch step with cross-cutting concerns:
// logging, metrics, rate limiting, timeouts, panic recovery.
package middleware

import (
	"context"

	"framerpc/envelope"
)

// HandlerFunc processes one decoded request into a response. The dispatcher
// is the terminal HandlerFunc of the chain.
type HandlerFunc func(ctx context.Context, req *envelope.Request) envelope.Response

// Middleware wraps a HandlerFunc with additional behavior.
type Middleware func(next HandlerFunc) HandlerFunc

// Chain combines middlewares into one. Chain(A, B, C)(h) runs A outermost:
// A.before → B.before → C.before → h → C.after → B.after → A.after.
func Chain(middlewares ...Middleware) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}
