package test

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"framerpc/balance"
	"framerpc/client"
	"framerpc/discovery"
	"framerpc/funcs"
	"framerpc/server"
)

// ---- Mock discovery registry (no etcd dependency) ----

type mockRegistry struct {
	mu        sync.Mutex
	instances map[string][]discovery.Instance
}

func newMockRegistry() *mockRegistry {
	return &mockRegistry{instances: make(map[string][]discovery.Instance)}
}

func (m *mockRegistry) Register(function string, inst discovery.Instance, ttl int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.instances[function] = append(m.instances[function], inst)
	return nil
}

func (m *mockRegistry) Deregister(function string, addr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	insts := m.instances[function]
	for i, inst := range insts {
		if inst.Addr == addr {
			m.instances[function] = append(insts[:i], insts[i+1:]...)
			break
		}
	}
	return nil
}

func (m *mockRegistry) Discover(function string) ([]discovery.Instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]discovery.Instance(nil), m.instances[function]...), nil
}

func (m *mockRegistry) Watch(function string) <-chan []discovery.Instance {
	ch := make(chan []discovery.Instance)
	close(ch)
	return ch
}

// ---- Setup ----

func startServer(t testing.TB, reg discovery.Registry) *server.Server {
	t.Helper()
	svr := server.New(zerolog.Nop())
	require.NoError(t, funcs.RegisterAll(svr))

	go svr.Serve("tcp", "127.0.0.1:0", "", nil)
	deadline := time.Now().Add(2 * time.Second)
	for svr.Addr() == nil {
		if time.Now().After(deadline) {
			t.Fatal("server did not start")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if reg != nil {
		addr := svr.Addr().String()
		for _, name := range svr.Functions() {
			require.NoError(t, reg.Register(name, discovery.Instance{Addr: addr, Weight: 1}, 10))
		}
	}

	t.Cleanup(func() { svr.Shutdown(time.Second) })
	return svr
}

// ---- End-to-end tests ----
// Full chain: Client → discovery → balancer → pool → frame → envelope →
// middleware → dispatch → handler.

func TestFullCallChain(t *testing.T) {
	reg := newMockRegistry()
	startServer(t, reg)

	cli := client.New(reg, &balance.RoundRobinBalancer{}, 4)
	defer cli.Close()

	result, err := cli.Call("add", 2, 3)
	require.NoError(t, err)
	assert.Equal(t, float64(5), result)

	result, err = cli.Call("greet", "World")
	require.NoError(t, err)
	assert.Equal(t, "Hello, World!", result)

	result, err = cli.Call("sum_array", []any{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, float64(10), result)

	result, err = cli.Call("get_greetings", []any{"Ada", "Bo"})
	require.NoError(t, err)
	assert.Equal(t, []any{"Hello, Ada!", "Hello, Bo!"}, result)

	result, err = cli.Call("echo", map[string]any{"nested": []any{float64(1), "two", nil}})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"nested": []any{float64(1), "two", nil}}, result)

	result, err = cli.Call("no_return")
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestErrorEnvelopesOverFullChain(t *testing.T) {
	reg := newMockRegistry()
	svr := startServer(t, reg)

	// Route the unknown function to the same instance so the call reaches
	// a server instead of failing at discovery.
	require.NoError(t, reg.Register("nope", discovery.Instance{Addr: svr.Addr().String(), Weight: 1}, 10))

	cli := client.New(reg, &balance.RoundRobinBalancer{}, 2)
	defer cli.Close()

	_, err := cli.Call("divide", 10, 0)
	require.Error(t, err)
	assert.True(t, client.IsExecutionError(err))
	assert.EqualError(t, err, "framerpc: server error: Execution error: Division by zero")

	_, err = cli.Call("nope")
	require.Error(t, err)
	assert.True(t, client.IsFunctionNotFound(err))

	// Server errors never poison the pooled connection.
	result, err := cli.Call("divide", 10, 2)
	require.NoError(t, err)
	assert.Equal(t, float64(5), result)
}

func TestMultiInstanceLoadBalancing(t *testing.T) {
	reg := newMockRegistry()
	startServer(t, reg)
	startServer(t, reg)

	cli := client.New(reg, &balance.RoundRobinBalancer{}, 2)
	defer cli.Close()

	for i := 1; i <= 10; i++ {
		result, err := cli.Call("add", i, i*10)
		require.NoError(t, err, "request %d", i)
		assert.Equal(t, float64(i+i*10), result, "request %d", i)
	}
}

func TestConcurrentClients(t *testing.T) {
	reg := newMockRegistry()
	startServer(t, reg)

	cli := client.New(reg, &balance.RoundRobinBalancer{}, 8)
	defer cli.Close()

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := cli.Call("add", i, 1)
			if err != nil {
				errs <- err
				return
			}
			if result != float64(i+1) {
				errs <- assert.AnError
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestGracefulShutdownStopsAccepting(t *testing.T) {
	svr := startServer(t, nil)
	addr := svr.Addr().String()

	conn, err := client.Dial(addr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Call("add", 1, 1)
	require.NoError(t, err)

	require.NoError(t, svr.Shutdown(time.Second))

	// No new connections after shutdown.
	_, err = client.Dial(addr)
	assert.Error(t, err)
}

func TestServeDeregistersOnShutdown(t *testing.T) {
	reg := newMockRegistry()
	// Fixed advertise address and discovery wired through Serve itself.
	svr := server.New(zerolog.Nop())
	require.NoError(t, funcs.RegisterAll(svr))
	go svr.Serve("tcp", "127.0.0.1:0", "10.0.0.5:9090", reg)
	for svr.Addr() == nil {
		time.Sleep(5 * time.Millisecond)
	}

	// Serve registers with discovery just before entering the accept loop;
	// poll until the entries land.
	var instances []discovery.Instance
	deadline := time.Now().Add(2 * time.Second)
	for {
		var err error
		instances, err = reg.Discover("add")
		require.NoError(t, err)
		if len(instances) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("discovery registration did not happen")
		}
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, "10.0.0.5:9090", instances[0].Addr)

	require.NoError(t, svr.Shutdown(time.Second))

	instances, err := reg.Discover("add")
	require.NoError(t, err)
	assert.Empty(t, instances)
}
