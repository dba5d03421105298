package middleware

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"framerpc/envelope"
)

// Recovery converts a panic anywhere below it in the chain into an error
// envelope, so one bad request cannot take down the connection goroutine.
func Recovery(log zerolog.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *envelope.Request) (resp envelope.Response) {
			defer func() {
				if r := recover(); r != nil {
					log.Error().Str("function", req.Function).Interface("panic", r).Msg("recovered panic in dispatch chain")
					resp = envelope.Failure(fmt.Sprintf("Execution error: %v", r))
				}
			}()
			return next(ctx, req)
		}
	}
}
