package middleware

import (
	"context"
	"time"

	"framerpc/envelope"
	"framerpc/observability"
)

// Metrics records a prometheus counter and duration histogram per request.
func Metrics() Middleware {
	observability.RegisterMetrics()
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *envelope.Request) envelope.Response {
			start := time.Now()
			resp := next(ctx, req)
			status := "success"
			if !resp.OK {
				status = "error"
			}
			observability.RecordRequest(req.Function, status, time.Since(start))
			return resp
		}
	}
}
