// Package funcs provides the built-in remote-callable functions. Each
// handler validates its own argument arity and types, per the dispatch
// contract, and returns a descriptive error when they are unsuitable.
//
// Arguments arrive as decoded JSON values, so all numbers are float64;
// integer parameters accept any float64 with no fractional part.
package funcs

import (
	"context"
	"errors"
	"fmt"

	"framerpc/registry"
)

// Registrar is the registration surface; *server.Server and
// *registry.Registry both satisfy it.
type Registrar interface {
	Register(name string, h registry.Handler) error
}

// RegisterAll registers every built-in function. It fails only if the
// registrar rejects a registration (e.g. already serving).
func RegisterAll(r Registrar) error {
	for name, h := range map[string]registry.Handler{
		"add":            Add,
		"greet":          Greet,
		"is_positive":    IsPositive,
		"echo":           Echo,
		"no_return":      NoReturn,
		"divide":         Divide,
		"sum_array":      SumArray,
		"process_person": ProcessPerson,
		"get_greetings":  GetGreetings,
	} {
		if err := r.Register(name, h); err != nil {
			return err
		}
	}
	return nil
}

// asInt accepts a JSON number with no fractional part.
func asInt(v any) (int64, bool) {
	f, ok := v.(float64)
	if !ok || f != float64(int64(f)) {
		return 0, false
	}
	return int64(f), true
}

// Add returns the sum of two integers.
func Add(ctx context.Context, args []any) (any, error) {
	if len(args) != 2 {
		return nil, errors.New("add requires two integer arguments")
	}
	a, okA := asInt(args[0])
	b, okB := asInt(args[1])
	if !okA || !okB {
		return nil, errors.New("add requires two integer arguments")
	}
	return a + b, nil
}

// Greet formats a greeting for one name.
func Greet(ctx context.Context, args []any) (any, error) {
	if len(args) != 1 {
		return nil, errors.New("greet requires one string argument")
	}
	name, ok := args[0].(string)
	if !ok {
		return nil, errors.New("greet requires one string argument")
	}
	return "Hello, " + name + "!", nil
}

// IsPositive reports whether a number is strictly positive.
func IsPositive(ctx context.Context, args []any) (any, error) {
	if len(args) != 1 {
		return nil, errors.New("is_positive requires one numeric argument")
	}
	num, ok := args[0].(float64)
	if !ok {
		return nil, errors.New("is_positive requires one numeric argument")
	}
	return num > 0, nil
}

// Echo returns its single argument unchanged.
func Echo(ctx context.Context, args []any) (any, error) {
	if len(args) != 1 {
		return nil, errors.New("echo requires exactly one argument")
	}
	return args[0], nil
}

// NoReturn takes no arguments and produces a null result.
func NoReturn(ctx context.Context, args []any) (any, error) {
	if len(args) != 0 {
		return nil, errors.New("no_return takes no arguments")
	}
	return nil, nil
}

// Divide performs integer division. Division by zero is a handler error,
// surfaced to the caller as "Execution error: Division by zero".
func Divide(ctx context.Context, args []any) (any, error) {
	if len(args) != 2 {
		return nil, errors.New("divide requires two integers")
	}
	numerator, okN := asInt(args[0])
	denominator, okD := asInt(args[1])
	if !okN || !okD {
		return nil, errors.New("divide requires two integers")
	}
	if denominator == 0 {
		return nil, errors.New("Division by zero")
	}
	return numerator / denominator, nil
}

// SumArray sums one array of integers.
func SumArray(ctx context.Context, args []any) (any, error) {
	if len(args) != 1 {
		return nil, errors.New("sum_array requires one array of integers")
	}
	items, ok := args[0].([]any)
	if !ok {
		return nil, errors.New("sum_array requires one array of integers")
	}
	var sum int64
	for _, item := range items {
		n, ok := asInt(item)
		if !ok {
			return nil, errors.New("All array elements must be integers")
		}
		sum += n
	}
	return sum, nil
}

// ProcessPerson describes a person object with name, age and is_student
// fields.
func ProcessPerson(ctx context.Context, args []any) (any, error) {
	if len(args) != 1 {
		return nil, errors.New("process_person requires one object")
	}
	obj, ok := args[0].(map[string]any)
	if !ok {
		return nil, errors.New("process_person requires one object")
	}
	name, okName := obj["name"].(string)
	age, okAge := asInt(obj["age"])
	isStudent, okStudent := obj["is_student"].(bool)
	if !okName || !okAge || !okStudent {
		return nil, errors.New("Person object requires name (string), age (int), is_student (bool)")
	}
	status := "not a student"
	if isStudent {
		status = "a student"
	}
	return fmt.Sprintf("Processed person: %s, age %d, is %s.", name, age, status), nil
}

// GetGreetings greets each name in one array of strings.
func GetGreetings(ctx context.Context, args []any) (any, error) {
	if len(args) != 1 {
		return nil, errors.New("get_greetings requires one array of strings")
	}
	items, ok := args[0].([]any)
	if !ok {
		return nil, errors.New("get_greetings requires one array of strings")
	}
	greetings := make([]string, 0, len(items))
	for _, item := range items {
		name, ok := item.(string)
		if !ok {
			return nil, errors.New("All elements must be strings")
		}
		greetings = append(greetings, "Hello, "+name+"!")
	}
	return greetings, nil
}
