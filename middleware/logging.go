package middleware

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"framerpc/envelope"
)

// Logging logs every dispatched request with its duration and outcome.
func Logging(log zerolog.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *envelope.Request) envelope.Response {
			start := time.Now()
			resp := next(ctx, req)
			ev := log.Debug()
			if !resp.OK {
				ev = log.Warn().Str("error", resp.Message)
			}
			ev.Str("function", req.Function).
				Dur("duration", time.Since(start)).
				Msg("dispatched request")
			return resp
		}
	}
}
