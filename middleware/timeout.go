package middleware

import (
	"context"
	"time"

	"framerpc/envelope"
)

// Timeout bounds handler execution. The handler keeps running in its
// goroutine after the deadline (it receives the cancellation via ctx), but
// the caller gets an error envelope immediately.
func Timeout(timeout time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *envelope.Request) envelope.Response {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			done := make(chan envelope.Response, 1)
			go func() {
				done <- next(ctx, req)
			}()

			select {
			case resp := <-done:
				return resp
			case <-ctx.Done():
				return envelope.Failure("request timed out")
			}
		}
	}
}
