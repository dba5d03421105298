// etcd-backed Registry. etcd gives strong consistency (Raft) and TTL-based
// leases: if the server crashes, the lease expires and the entry is removed
// automatically, preventing ghost instances.
//
//	Key:   /framerpc/{function}/{addr}
//	Value: JSON-encoded Instance

package discovery

import (
	"context"
	"encoding/json"

	clientv3 "go.etcd.io/etcd/client/v3"
)

const keyPrefix = "/framerpc/"

// EtcdRegistry implements Registry on etcd v3.
type EtcdRegistry struct {
	client *clientv3.Client // thread-safe, shared across goroutines
}

// NewEtcdRegistry connects to the given etcd endpoints.
func NewEtcdRegistry(endpoints []string) (*EtcdRegistry, error) {
	c, err := clientv3.New(clientv3.Config{
		Endpoints: endpoints,
	})
	if err != nil {
		return nil, err
	}
	return &EtcdRegistry{client: c}, nil
}

// Register publishes the instance with a TTL lease and starts background
// renewal. The lease ID stays local to the call so one EtcdRegistry can be
// shared by several servers without a data race.
func (r *EtcdRegistry) Register(function string, instance Instance, ttl int64) error {
	ctx := context.Background()

	lease, err := r.client.Grant(ctx, ttl)
	if err != nil {
		return err
	}

	val, err := json.Marshal(instance)
	if err != nil {
		return err
	}

	_, err = r.client.Put(ctx, keyPrefix+function+"/"+instance.Addr, string(val), clientv3.WithLease(lease.ID))
	if err != nil {
		return err
	}

	ch, err := r.client.KeepAlive(ctx, lease.ID)
	if err != nil {
		return err
	}

	// Drain KeepAlive responses so the channel never fills up.
	go func() {
		for range ch {
		}
	}()
	return nil
}

// Deregister removes the instance entry.
func (r *EtcdRegistry) Deregister(function string, addr string) error {
	_, err := r.client.Delete(context.Background(), keyPrefix+function+"/"+addr)
	return err
}

// Discover lists all instances currently registered for a function.
func (r *EtcdRegistry) Discover(function string) ([]Instance, error) {
	prefix := keyPrefix + function + "/"

	resp, err := r.client.Get(context.Background(), prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}

	instances := make([]Instance, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var instance Instance
		if err := json.Unmarshal(kv.Value, &instance); err != nil {
			continue // Skip malformed entries
		}
		instances = append(instances, instance)
	}
	return instances, nil
}

// Watch re-fetches the full instance list on every change under the
// function's prefix (simpler than applying individual watch events).
func (r *EtcdRegistry) Watch(function string) <-chan []Instance {
	ch := make(chan []Instance, 1)
	prefix := keyPrefix + function + "/"

	go func() {
		watchChan := r.client.Watch(context.Background(), prefix, clientv3.WithPrefix())
		for range watchChan {
			instances, _ := r.Discover(function)
			ch <- instances
		}
	}()

	return ch
}

// Close releases the etcd client connection.
func (r *EtcdRegistry) Close() error {
	return r.client.Close()
}
