package funcs

import (
	"context"
	"reflect"
	"testing"

	"github.com/rs/zerolog"

	"framerpc/registry"
)

var ctx = context.Background()

func TestAdd(t *testing.T) {
	got, err := Add(ctx, []any{float64(2), float64(3)})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if got != int64(5) {
		t.Errorf("Add(2, 3) = %v, want 5", got)
	}
}

func TestAddRejectsBadArgs(t *testing.T) {
	cases := [][]any{
		{},
		{float64(1)},
		{float64(1), float64(2), float64(3)},
		{"1", float64(2)},
		{float64(1.5), float64(2)},
	}
	for _, args := range cases {
		if _, err := Add(ctx, args); err == nil {
			t.Errorf("Add(%v) should fail", args)
		}
	}
}

func TestGreet(t *testing.T) {
	got, err := Greet(ctx, []any{"World"})
	if err != nil {
		t.Fatalf("Greet failed: %v", err)
	}
	if got != "Hello, World!" {
		t.Errorf("Greet(World) = %v", got)
	}

	if _, err := Greet(ctx, []any{float64(7)}); err == nil {
		t.Error("Greet with non-string should fail")
	}
}

func TestIsPositive(t *testing.T) {
	for _, tc := range []struct {
		num  float64
		want bool
	}{
		{5, true},
		{-5, false},
		{0, false},
		{0.1, true},
	} {
		got, err := IsPositive(ctx, []any{tc.num})
		if err != nil {
			t.Fatalf("IsPositive(%v) failed: %v", tc.num, err)
		}
		if got != tc.want {
			t.Errorf("IsPositive(%v) = %v, want %v", tc.num, got, tc.want)
		}
	}
}

func TestEcho(t *testing.T) {
	value := map[string]any{"nested": []any{float64(1), "two", nil}}
	got, err := Echo(ctx, []any{value})
	if err != nil {
		t.Fatalf("Echo failed: %v", err)
	}
	if !reflect.DeepEqual(got, value) {
		t.Errorf("Echo mismatch: got %#v", got)
	}

	if _, err := Echo(ctx, []any{}); err == nil {
		t.Error("Echo with no args should fail")
	}
}

func TestNoReturn(t *testing.T) {
	got, err := NoReturn(ctx, []any{})
	if err != nil {
		t.Fatalf("NoReturn failed: %v", err)
	}
	if got != nil {
		t.Errorf("NoReturn returned %v, want nil", got)
	}

	if _, err := NoReturn(ctx, []any{float64(1)}); err == nil {
		t.Error("NoReturn with args should fail")
	}
}

func TestDivide(t *testing.T) {
	got, err := Divide(ctx, []any{float64(10), float64(3)})
	if err != nil {
		t.Fatalf("Divide failed: %v", err)
	}
	if got != int64(3) {
		t.Errorf("Divide(10, 3) = %v, want 3", got)
	}
}

func TestDivideByZero(t *testing.T) {
	_, err := Divide(ctx, []any{float64(10), float64(0)})
	if err == nil {
		t.Fatal("Divide by zero should fail")
	}
	if err.Error() != "Division by zero" {
		t.Errorf("unexpected message: %q", err.Error())
	}
}

func TestSumArray(t *testing.T) {
	got, err := SumArray(ctx, []any{[]any{float64(1), float64(2), float64(3)}})
	if err != nil {
		t.Fatalf("SumArray failed: %v", err)
	}
	if got != int64(6) {
		t.Errorf("SumArray = %v, want 6", got)
	}

	if _, err := SumArray(ctx, []any{[]any{float64(1), "two"}}); err == nil {
		t.Error("SumArray with a non-integer element should fail")
	}
}

func TestProcessPerson(t *testing.T) {
	person := map[string]any{"name": "Ada", "age": float64(36), "is_student": false}
	got, err := ProcessPerson(ctx, []any{person})
	if err != nil {
		t.Fatalf("ProcessPerson failed: %v", err)
	}
	want := "Processed person: Ada, age 36, is not a student."
	if got != want {
		t.Errorf("ProcessPerson = %q, want %q", got, want)
	}

	student := map[string]any{"name": "Bo", "age": float64(20), "is_student": true}
	got, err = ProcessPerson(ctx, []any{student})
	if err != nil {
		t.Fatalf("ProcessPerson failed: %v", err)
	}
	if got != "Processed person: Bo, age 20, is a student." {
		t.Errorf("ProcessPerson = %q", got)
	}

	if _, err := ProcessPerson(ctx, []any{map[string]any{"name": "X"}}); err == nil {
		t.Error("ProcessPerson with missing fields should fail")
	}
}

func TestGetGreetings(t *testing.T) {
	got, err := GetGreetings(ctx, []any{[]any{"Ada", "Bo"}})
	if err != nil {
		t.Fatalf("GetGreetings failed: %v", err)
	}
	want := []string{"Hello, Ada!", "Hello, Bo!"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("GetGreetings = %#v, want %#v", got, want)
	}

	if _, err := GetGreetings(ctx, []any{[]any{"Ada", float64(2)}}); err == nil {
		t.Error("GetGreetings with a non-string element should fail")
	}
}

func TestRegisterAll(t *testing.T) {
	reg := registry.New(zerolog.Nop())
	if err := RegisterAll(reg); err != nil {
		t.Fatalf("RegisterAll failed: %v", err)
	}
	for _, name := range []string{"add", "greet", "is_positive", "echo", "no_return", "divide", "sum_array", "process_person", "get_greetings"} {
		if _, ok := reg.Lookup(name); !ok {
			t.Errorf("function %q not registered", name)
		}
	}
}
