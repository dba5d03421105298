// Connection pool. The protocol is half-duplex, so connections are used
// exclusively — one call at a time per connection — which makes a
// borrow/return pool the natural fit.
//
// Pool design: a buffered channel as a FIFO queue. Buffered channels are
// concurrency-safe, and blocking on empty is built-in.

package client

import (
	"errors"
	"fmt"
	"sync"
)

// ErrPoolClosed is returned by Get once the pool has been closed.
var ErrPoolClosed = errors.New("client: pool is closed")

// Pool manages reusable connections to a single address.
type Pool struct {
	mu       sync.Mutex
	conns    chan *PoolConn // buffered channel as pool
	addr     string
	maxConns int
	curConns int  // created so far (may be < maxConns)
	closed   bool // guards conns against use after Close
	factory  func() (*Conn, error)
}

// PoolConn wraps a Conn with pool bookkeeping.
type PoolConn struct {
	*Conn
	unusable bool // set when the connection hits a transport error
}

// Call invokes through the pooled connection, marking it unusable on
// transport failure. Server error envelopes leave the connection healthy.
func (pc *PoolConn) Call(function string, args ...any) (any, error) {
	result, err := pc.Conn.Call(function, args...)
	if err != nil {
		var se *ServerError
		if !errors.As(err, &se) {
			pc.unusable = true
		}
	}
	return result, err
}

// NewPool creates a pool of at most maxConns connections to addr.
// Connections are created lazily: the pool starts empty and grows on
// demand.
func NewPool(addr string, maxConns int, factory func() (*Conn, error)) *Pool {
	if factory == nil {
		factory = func() (*Conn, error) { return Dial(addr) }
	}
	return &Pool{
		conns:    make(chan *PoolConn, maxConns),
		addr:     addr,
		maxConns: maxConns,
		factory:  factory,
	}
}

// Get retrieves a connection:
//  1. an idle one from the channel if available
//  2. a fresh one if under the limit
//  3. otherwise block until one is returned
//
// Unusable connections never re-enter the channel (Put discards them), so
// whatever Get receives is healthy.
func (p *Pool) Get() (*PoolConn, error) {
	select {
	case conn, ok := <-p.conns:
		if !ok {
			return nil, ErrPoolClosed
		}
		return conn, nil
	default:
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	under := p.curConns < p.maxConns
	p.mu.Unlock()
	if under {
		return p.createNew()
	}
	conn, ok := <-p.conns
	if !ok {
		return nil, ErrPoolClosed
	}
	return conn, nil
}

// Put returns a connection to the pool. Unusable connections are closed
// and discarded so the next Get dials a replacement; after Close every
// returned connection is closed.
func (p *Pool) Put(conn *PoolConn) {
	if conn.unusable {
		conn.Close()
		p.mu.Lock()
		p.curConns--
		p.mu.Unlock()
		return
	}
	// The send stays under the lock so Close cannot slip in between the
	// closed check and the send. It never blocks: the channel's capacity
	// is maxConns, an upper bound on live connections.
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		conn.Close()
		p.curConns--
		return
	}
	p.conns <- conn
}

// Close shuts down the pool and closes all idle connections. Idempotent.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	close(p.conns)
	for conn := range p.conns {
		conn.Close()
		p.curConns--
	}
	return nil
}

// createNew dials a fresh connection, respecting maxConns.
func (p *Pool) createNew() (*PoolConn, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	if p.curConns >= p.maxConns {
		p.mu.Unlock()
		return nil, fmt.Errorf("client: connection pool exhausted")
	}
	p.curConns++
	p.mu.Unlock()

	conn, err := p.factory()
	if err != nil {
		p.mu.Lock()
		p.curConns--
		p.mu.Unlock()
		return nil, err
	}
	return &PoolConn{Conn: conn}, nil
}
