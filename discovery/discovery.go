// Package discovery publishes serving endpoints so clients can find them.
// The server registers its advertised address under each function name it
// serves; clients discover instances per function and pick one via a
// balancer.
package discovery

// Instance is one serving endpoint for a function.
type Instance struct {
	Addr    string
	Weight  int // Weight for load balancing
	Version string
}

// Registry is the discovery backend interface.
type Registry interface {
	// Register publishes an instance under the given function name with a
	// TTL in seconds. The entry disappears automatically if the process
	// stops renewing it.
	Register(function string, instance Instance, ttl int64) error

	// Deregister removes an instance. Called during graceful shutdown so
	// clients stop routing here before the listener closes.
	Deregister(function string, addr string) error

	// Discover returns all currently registered instances for a function.
	Discover(function string) ([]Instance, error)

	// Watch emits updated instance lists whenever registrations change.
	Watch(function string) <-chan []Instance
}
