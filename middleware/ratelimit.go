package middleware

import (
	"context"

	"golang.org/x/time/rate"

	"framerpc/envelope"
)

// RateLimit applies a token-bucket limiter across all connections. Rejected
// requests get a well-formed error envelope; the connection stays open.
func RateLimit(r float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *envelope.Request) envelope.Response {
			if !limiter.Allow() {
				return envelope.Failure("rate limit exceeded")
			}
			return next(ctx, req)
		}
	}
}
