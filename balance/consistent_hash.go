package balance

import (
	"fmt"
	"hash/crc32"
	"sort"

	"framerpc/discovery"
)

// ConsistentHashBalancer maps keys to instances using a hash ring, so the
// same key (e.g. a function name) always lands on the same instance until
// the ring changes.
//
// Each real instance is placed on the ring as N virtual nodes; without
// them a handful of instances could cluster and skew the distribution.
//
// Note: Pick takes a string key rather than an instance list, so this type
// does not implement the Balancer interface directly — populate the ring
// with Add and route per-key.
type ConsistentHashBalancer struct {
	replicas int                            // Virtual nodes per real instance
	ring     []uint32                       // Sorted hash values on the ring
	nodes    map[uint32]*discovery.Instance // Hash value → instance
}

// NewConsistentHashBalancer creates a hash ring with 100 virtual nodes per
// instance.
func NewConsistentHashBalancer() *ConsistentHashBalancer {
	return &ConsistentHashBalancer{
		replicas: 100,
		ring:     []uint32{},
		nodes:    make(map[uint32]*discovery.Instance),
	}
}

// Add places an instance onto the hash ring. Each virtual node is hashed
// from "{addr}#{i}" to spread evenly across the ring.
func (b *ConsistentHashBalancer) Add(instance *discovery.Instance) {
	for i := 0; i < b.replicas; i++ {
		key := fmt.Sprintf("%s#%d", instance.Addr, i)
		hash := crc32.ChecksumIEEE([]byte(key))
		b.ring = append(b.ring, hash)
		b.nodes[hash] = instance
	}
	// Keep the ring sorted for binary search in Pick.
	sort.Slice(b.ring, func(i, j int) bool {
		return b.ring[i] < b.ring[j]
	})
}

// Pick finds the instance responsible for the key: hash it, then binary
// search for the first node at or past that hash, wrapping to the first
// node past the top of the ring.
func (b *ConsistentHashBalancer) Pick(key string) (*discovery.Instance, error) {
	if len(b.ring) == 0 {
		return nil, fmt.Errorf("no instances available")
	}
	hash := crc32.ChecksumIEEE([]byte(key))

	idx := sort.Search(len(b.ring), func(i int) bool {
		return b.ring[i] >= hash
	})
	if idx == len(b.ring) {
		idx = 0
	}

	return b.nodes[b.ring[idx]], nil
}

func (b *ConsistentHashBalancer) Name() string {
	return "ConsistentHash"
}
