// Package server implements the RPC server: function registration, the
// accept loop, per-connection request/response cycles, and graceful
// shutdown.
//
// Request processing pipeline:
//
//	Accept conn → handleConn (one goroutine per connection)
//	  → loop: frame.ReadFrame → envelope.DecodeRequest
//	    → Middleware Chain → dispatch (registry lookup + invoke)
//	    → envelope.EncodeResponse → frame.WriteFrame
//
// Within one connection, requests are strictly sequential: the wire
// protocol carries no sequence numbers, so the next read must not begin
// before the previous response has been fully written.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"framerpc/discovery"
	"framerpc/envelope"
	"framerpc/frame"
	"framerpc/middleware"
	"framerpc/observability"
	"framerpc/registry"
)

// Server owns the listening endpoint and the function registry. Configure
// (Register, Use, MaxPayloadBytes) before calling Serve; the registry is
// frozen at the Listening→Serving transition.
type Server struct {
	// MaxPayloadBytes bounds a single advertised frame length. Zero means
	// the frame package default. Set before Serve.
	MaxPayloadBytes uint32

	registry    *registry.Registry
	log         zerolog.Logger
	middlewares []middleware.Middleware
	handler     middleware.HandlerFunc

	mu            sync.Mutex
	listener      net.Listener
	disc          discovery.Registry // nil when discovery is not used
	advertiseAddr string

	wg       sync.WaitGroup // in-flight requests, for graceful shutdown
	shutdown atomic.Bool    // suppresses the Accept error caused by Shutdown
}

// New creates a server with an empty function registry.
func New(log zerolog.Logger) *Server {
	return &Server{
		registry: registry.New(log),
		log:      log,
	}
}

// Register adds a remote-callable function. Only permitted before Serve;
// a duplicate name is a warning and a no-op (first registration wins).
func (s *Server) Register(name string, h registry.Handler) error {
	return s.registry.Register(name, h)
}

// Use appends a middleware. Middlewares run in the order they are added,
// outermost first, around the dispatcher.
func (s *Server) Use(mw middleware.Middleware) {
	s.middlewares = append(s.middlewares, mw)
}

// Functions returns the registered function names, sorted.
func (s *Server) Functions() []string {
	return s.registry.Names()
}

// Addr returns the bound listen address, or nil before Serve has bound it.
// Useful with ":0" listens in tests.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve binds the address and runs the accept loop until Shutdown. A bind
// failure is returned immediately; an Accept failure during shutdown is
// swallowed and Serve returns nil.
//
// advertiseAddr is the address published to the discovery backend (a
// routable host:port, unlike a ":8080" listen address). Pass a nil disc to
// skip discovery.
func (s *Server) Serve(network, address string, advertiseAddr string, disc discovery.Registry) error {
	listener, err := net.Listen(network, address)
	if err != nil {
		return fmt.Errorf("server: listen %s %s: %w", network, address, err)
	}

	// Build the middleware chain once, not per-request:
	// Chain(A, B, C)(dispatch) → A(B(C(dispatch))).
	s.handler = middleware.Chain(s.middlewares...)(s.dispatch)

	// Listening → Serving: the registry is read-only from here on. Freeze
	// before the listener is visible, so a caller that has seen Addr can
	// rely on Register being rejected.
	s.registry.Freeze()

	// Publish the listener (and the discovery state Shutdown needs) before
	// anything that can block, so a concurrent Shutdown always finds a
	// listener to close. A Shutdown that already ran wins: release the
	// socket and stop here.
	s.mu.Lock()
	if s.shutdown.Load() {
		s.mu.Unlock()
		listener.Close()
		return nil
	}
	s.listener = listener
	s.disc = disc
	s.advertiseAddr = advertiseAddr
	s.mu.Unlock()

	if disc != nil {
		for _, name := range s.registry.Names() {
			// Shutdown may land mid-registration; stop publishing and let
			// the lease TTL reap anything already written.
			if s.shutdown.Load() {
				break
			}
			if err := disc.Register(name, discovery.Instance{Addr: advertiseAddr, Weight: 1}, 10); err != nil {
				s.log.Warn().Err(err).Str("function", name).Msg("discovery registration failed")
			}
		}
	}

	s.log.Info().
		Str("addr", listener.Addr().String()).
		Strs("functions", s.registry.Names()).
		Msg("serving")

	for {
		conn, err := listener.Accept()
		if err != nil {
			// Shutdown closes the listener to unblock Accept; only then is
			// the resulting error expected.
			if s.shutdown.Load() {
				return nil
			}
			return fmt.Errorf("server: accept: %w", err)
		}
		go s.handleConn(conn)
	}
}

// handleConn services one connection: read a frame, process it, write the
// response, repeat until the peer disconnects or framing fails. Errors on
// this connection never affect other connections.
func (s *Server) handleConn(conn net.Conn) {
	observability.ConnOpened()
	defer observability.ConnClosed()

	remote := conn.RemoteAddr().String()
	log := s.log.With().Str("remote", remote).Logger()
	log.Debug().Msg("connection opened")

	tr := frame.NewWithLimit(conn, s.MaxPayloadBytes)
	defer tr.Close()

	for {
		payload, err := tr.ReadFrame()
		if err != nil {
			if errors.Is(err, frame.ErrClosed) {
				log.Debug().Msg("peer disconnected")
			} else {
				log.Warn().Err(err).Msg("closing connection after framing error")
			}
			return
		}

		s.wg.Add(1)
		resp := s.process(payload)
		out, err := envelope.EncodeResponse(resp)
		if err != nil {
			// Unreachable for JSON-model values; a handler returning
			// something unencodable is the one way here.
			s.wg.Done()
			log.Error().Err(err).Msg("failed to encode response")
			return
		}
		err = tr.WriteFrame(out)
		s.wg.Done()
		if err != nil {
			log.Warn().Err(err).Msg("closing connection after write failure")
			return
		}
	}
}

// process turns one request payload into a response envelope. A decode
// failure becomes an error envelope; the connection continues.
func (s *Server) process(payload []byte) envelope.Response {
	req, err := envelope.DecodeRequest(payload)
	if err != nil {
		var derr *envelope.DecodeError
		if errors.As(err, &derr) {
			return envelope.Failure(derr.Message)
		}
		return envelope.Failure(err.Error())
	}
	return s.handler(context.Background(), req)
}

// Shutdown performs graceful shutdown:
//  1. Set the shutdown flag so Serve stops, whatever phase it is in
//  2. Deregister from discovery so clients stop routing here
//  3. Close the listener to unblock Accept
//  4. Wait for in-flight requests, bounded by timeout
//
// Safe to call at any point relative to Serve, including before it binds.
//
// Connection goroutines are not forcibly cancelled; they drain on their
// next read failure or finish their current cycle.
func (s *Server) Shutdown(timeout time.Duration) error {
	// Flag before close: otherwise Accept's error races the flag and Serve
	// reports a spurious failure. It also stops a Serve still in startup
	// from entering the accept loop.
	s.shutdown.Store(true)

	s.mu.Lock()
	disc, advertiseAddr := s.disc, s.advertiseAddr
	s.mu.Unlock()

	if disc != nil {
		for _, name := range s.registry.Names() {
			if err := disc.Deregister(name, advertiseAddr); err != nil {
				s.log.Warn().Err(err).Str("function", name).Msg("discovery deregistration failed")
			}
		}
	}

	s.mu.Lock()
	if s.listener != nil {
		s.listener.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info().Msg("server stopped")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("server: timeout waiting for in-flight requests")
	}
}
