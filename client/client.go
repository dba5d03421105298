package client

import (
	"fmt"
	"sync"

	"framerpc/balance"
	"framerpc/discovery"
)

// Client routes calls through service discovery: for each call it discovers
// the instances serving the function, picks one via the balancer, and
// borrows a pooled connection to that instance.
type Client struct {
	disc     discovery.Registry
	balancer balance.Balancer

	mu       sync.Mutex
	pools    map[string]*Pool // per-instance connection pools
	poolSize int
}

// New creates a discovery-backed client. poolSize bounds the connections
// kept per server instance.
func New(disc discovery.Registry, bal balance.Balancer, poolSize int) *Client {
	if poolSize <= 0 {
		poolSize = 1
	}
	return &Client{
		disc:     disc,
		balancer: bal,
		pools:    make(map[string]*Pool),
		poolSize: poolSize,
	}
}

// Call discovers an instance serving function, picks one, and invokes it.
func (c *Client) Call(function string, args ...any) (any, error) {
	instances, err := c.disc.Discover(function)
	if err != nil {
		return nil, fmt.Errorf("client: discover %s: %w", function, err)
	}
	instance, err := c.balancer.Pick(instances)
	if err != nil {
		return nil, fmt.Errorf("client: pick instance for %s: %w", function, err)
	}

	pool := c.pool(instance.Addr)
	conn, err := pool.Get()
	if err != nil {
		return nil, err
	}
	defer pool.Put(conn)

	return conn.Call(function, args...)
}

// Close shuts down all pools.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.pools {
		p.Close()
	}
	c.pools = make(map[string]*Pool)
	return nil
}

func (c *Client) pool(addr string) *Pool {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pools[addr]
	if !ok {
		p = NewPool(addr, c.poolSize, nil)
		c.pools[addr] = p
	}
	return p
}
