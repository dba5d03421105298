// Package balance provides load balancing strategies for spreading calls
// across multiple discovered server instances.
//
// Three strategies are implemented:
//   - RoundRobin:      equal-capacity instances
//   - WeightedRandom:  heterogeneous instances (different CPU/memory)
//   - ConsistentHash:  key affinity (e.g. by function name)
package balance

import "framerpc/discovery"

// Balancer selects one instance from the available list. Called on every
// RPC call — must be goroutine-safe.
type Balancer interface {
	Pick(instances []discovery.Instance) (*discovery.Instance, error)

	// Name returns the strategy name (for logging/debugging).
	Name() string
}
