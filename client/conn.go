// Package client provides the calling side of the protocol: a half-duplex
// connection stub, a borrow/return connection pool, and a discovery-aware
// client that picks server instances through a balancer.
package client

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"

	"framerpc/envelope"
	"framerpc/frame"
)

// ServerError is an error envelope returned by the server. The connection
// itself is still healthy when this is returned.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return "framerpc: server error: " + e.Message
}

// IsFunctionNotFound reports whether err is the server's unknown-function
// response.
func IsFunctionNotFound(err error) bool {
	var se *ServerError
	return errors.As(err, &se) && se.Message == "Function not found"
}

// IsExecutionError reports whether err is a handler failure on the server.
func IsExecutionError(err error) bool {
	var se *ServerError
	return errors.As(err, &se) && strings.HasPrefix(se.Message, "Execution error:")
}

// Conn is one client connection. The protocol is half-duplex — one request,
// then its response — so concurrent Calls on the same Conn are serialized
// by an internal mutex.
type Conn struct {
	mu sync.Mutex
	tr *frame.Transport
}

// Dial connects to a server at addr ("host:port").
func Dial(addr string) (*Conn, error) {
	netConn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", addr, err)
	}
	return &Conn{tr: frame.New(netConn)}, nil
}

// NewConn wraps an already-established connection. Useful for tests and
// custom transports.
func NewConn(tr *frame.Transport) *Conn {
	return &Conn{tr: tr}
}

// Call invokes a remote function and returns its decoded result. A server
// error envelope comes back as *ServerError; any other error means the
// connection is no longer usable.
func (c *Conn) Call(function string, args ...any) (any, error) {
	if args == nil {
		args = []any{}
	}
	payload, err := envelope.EncodeRequest(&envelope.Request{Function: function, Args: args})
	if err != nil {
		return nil, fmt.Errorf("client: encode request: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.tr.WriteFrame(payload); err != nil {
		return nil, err
	}
	respPayload, err := c.tr.ReadFrame()
	if err != nil {
		return nil, err
	}

	resp, err := envelope.DecodeResponse(respPayload)
	if err != nil {
		return nil, fmt.Errorf("client: decode response: %w", err)
	}
	if !resp.OK {
		return nil, &ServerError{Message: resp.Message}
	}
	return resp.Result, nil
}

// Close releases the connection. Idempotent.
func (c *Conn) Close() error {
	return c.tr.Close()
}
