package server

import (
	"context"
	"fmt"

	"framerpc/envelope"
	"framerpc/registry"
)

// dispatch is the terminal HandlerFunc of the middleware chain: resolve the
// function, invoke it, wrap the outcome. A handler failure never propagates
// to the connection loop — one bad call must not terminate the connection.
func (s *Server) dispatch(ctx context.Context, req *envelope.Request) envelope.Response {
	h, ok := s.registry.Lookup(req.Function)
	if !ok {
		return envelope.Failure("Function not found")
	}

	result, err := invoke(ctx, h, req.Args)
	if err != nil {
		return envelope.Failure("Execution error: " + err.Error())
	}
	return envelope.Success(result)
}

// invoke calls the handler, converting a panic into an ordinary error so
// the dispatcher's contract holds even for buggy handlers.
func invoke(ctx context.Context, h registry.Handler, args []any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return h(ctx, args)
}
