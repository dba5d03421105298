// Command framerpc-client calls a framerpc server.
//
// One-shot call, arguments parsed as JSON values (bare words fall back to
// strings):
//
//	framerpc-client -addr 127.0.0.1:9090 add 2 3
//	framerpc-client -addr 127.0.0.1:9090 greet World
//
// Without a function argument it runs a smoke sequence against the
// built-in function set. -bench N measures round-trip latency over N
// add calls.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"framerpc/client"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:9090", "server address")
	bench := flag.Int("bench", 0, "measure round-trip latency over N add calls")
	flag.Parse()

	conn, err := client.Dial(*addr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer conn.Close()

	switch {
	case *bench > 0:
		runBench(conn, *bench)
	case flag.NArg() > 0:
		runCall(conn, flag.Arg(0), flag.Args()[1:])
	default:
		runSmoke(conn)
	}
}

func runCall(conn *client.Conn, function string, rawArgs []string) {
	args := make([]any, len(rawArgs))
	for i, raw := range rawArgs {
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw // bare word: treat as string
		}
		args[i] = v
	}

	result, err := conn.Call(function, args...)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	out, _ := json.Marshal(result)
	fmt.Println(string(out))
}

func runSmoke(conn *client.Conn) {
	calls := []struct {
		function string
		args     []any
	}{
		{"add", []any{42, 58}},
		{"greet", []any{"World"}},
		{"is_positive", []any{5}},
		{"is_positive", []any{-5}},
		{"echo", []any{map[string]any{"k": []any{1, "two", nil}}}},
		{"no_return", nil},
		{"divide", []any{10, 3}},
		{"divide", []any{10, 0}}, // expected failure
		{"sum_array", []any{[]any{1, 2, 3, 4}}},
		{"process_person", []any{map[string]any{"name": "Ada", "age": 36, "is_student": false}}},
		{"get_greetings", []any{[]any{"Ada", "Bo"}}},
		{"nope", nil}, // expected failure
	}

	for _, c := range calls {
		result, err := conn.Call(c.function, c.args...)
		if err != nil {
			fmt.Printf("%-16s -> error: %v\n", c.function, err)
			continue
		}
		out, _ := json.Marshal(result)
		fmt.Printf("%-16s -> %s\n", c.function, out)
	}
}

func runBench(conn *client.Conn, n int) {
	// Warmup
	for i := 0; i < 10; i++ {
		if _, err := conn.Call("add", 1, 1); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	durations := make([]time.Duration, 0, n)
	for i := 0; i < n; i++ {
		start := time.Now()
		if _, err := conn.Call("add", i, i); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		durations = append(durations, time.Since(start))
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	var total time.Duration
	for _, d := range durations {
		total += d
	}
	fmt.Printf("calls:  %d\n", n)
	fmt.Printf("min:    %v\n", durations[0])
	fmt.Printf("median: %v\n", durations[n/2])
	fmt.Printf("avg:    %v\n", total/time.Duration(n))
	fmt.Printf("max:    %v\n", durations[n-1])
}
