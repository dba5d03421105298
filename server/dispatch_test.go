package server

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"framerpc/envelope"
)

func newDispatchServer(t *testing.T) *Server {
	t.Helper()
	svr := New(zerolog.Nop())
	must := func(err error) {
		if err != nil {
			t.Fatalf("Register failed: %v", err)
		}
	}
	must(svr.Register("ok", func(ctx context.Context, args []any) (any, error) {
		return "done", nil
	}))
	must(svr.Register("fail", func(ctx context.Context, args []any) (any, error) {
		return nil, errors.New("boom")
	}))
	must(svr.Register("panic", func(ctx context.Context, args []any) (any, error) {
		panic("unexpected state")
	}))
	return svr
}

func TestDispatchSuccess(t *testing.T) {
	svr := newDispatchServer(t)
	resp := svr.dispatch(context.Background(), &envelope.Request{Function: "ok", Args: []any{}})
	if !resp.OK || resp.Result != "done" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestDispatchNotFound(t *testing.T) {
	svr := newDispatchServer(t)
	resp := svr.dispatch(context.Background(), &envelope.Request{Function: "missing", Args: []any{}})
	if resp.OK {
		t.Fatal("expected failure")
	}
	if resp.Message != "Function not found" {
		t.Errorf("unexpected message: %q", resp.Message)
	}
}

func TestDispatchHandlerError(t *testing.T) {
	svr := newDispatchServer(t)
	resp := svr.dispatch(context.Background(), &envelope.Request{Function: "fail", Args: []any{}})
	if resp.OK {
		t.Fatal("expected failure")
	}
	if resp.Message != "Execution error: boom" {
		t.Errorf("unexpected message: %q", resp.Message)
	}
}

func TestDispatchRecoversPanic(t *testing.T) {
	svr := newDispatchServer(t)
	resp := svr.dispatch(context.Background(), &envelope.Request{Function: "panic", Args: []any{}})
	if resp.OK {
		t.Fatal("expected failure")
	}
	if resp.Message != "Execution error: unexpected state" {
		t.Errorf("unexpected message: %q", resp.Message)
	}
}
