package loom

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestInvokePositional(t *testing.T) {
	add := func(a, b int) int { return a + b }

	got, err := invoke(add, []any{2, 3}, nil)
	if err != nil {
		t.Fatalf("invoke error = %v", err)
	}
	if got != 5 {
		t.Errorf("invoke = %v, want 5", got)
	}
}

func TestInvokeArityMismatch(t *testing.T) {
	one := func(a int) int { return a }

	_, err := invoke(one, []any{1, 2}, nil)

	var callErr *CallError
	if !errors.As(err, &callErr) {
		t.Fatalf("error = %v, want *CallError", err)
	}
	if callErr.Want != 1 || callErr.Got != 2 {
		t.Errorf("CallError want/got = %d/%d, want 1/2", callErr.Want, callErr.Got)
	}
}

func TestInvokeZeroArgFunctionRejectsValue(t *testing.T) {
	noArgs := func() string { return "egg" }

	_, err := invoke(noArgs, []any{nil}, nil)

	var callErr *CallError
	if !errors.As(err, &callErr) {
		t.Fatalf("error = %v, want *CallError", err)
	}
}

func TestInvokeVariadic(t *testing.T) {
	sum := func(vs ...int) int {
		total := 0
		for _, v := range vs {
			total += v
		}
		return total
	}

	got, err := invoke(sum, []any{1, 2, 3, 4}, nil)
	if err != nil {
		t.Fatalf("invoke error = %v", err)
	}
	if got != 10 {
		t.Errorf("invoke = %v, want 10", got)
	}

	got, err = invoke(sum, nil, nil)
	if err != nil {
		t.Fatalf("invoke with no args error = %v", err)
	}
	if got != 0 {
		t.Errorf("invoke = %v, want 0", got)
	}
}

func TestInvokeKwargsParameter(t *testing.T) {
	var seen Kwargs
	fn := func(v int, kw Kwargs) int {
		seen = kw
		return v
	}

	got, err := invoke(fn, []any{7}, map[string]any{"mode": "fast"})
	if err != nil {
		t.Fatalf("invoke error = %v", err)
	}
	if got != 7 {
		t.Errorf("invoke = %v, want 7", got)
	}
	if seen["mode"] != "fast" {
		t.Errorf("kwargs = %v, want mode=fast", seen)
	}
}

func TestInvokeKwargsIgnoredWithoutParameter(t *testing.T) {
	fn := func(v int) int { return v * 2 }

	got, err := invoke(fn, []any{5}, map[string]any{"unused": true})
	if err != nil {
		t.Fatalf("invoke error = %v", err)
	}
	if got != 10 {
		t.Errorf("invoke = %v, want 10", got)
	}
}

func TestInvokeErrorResult(t *testing.T) {
	boom := errors.New("boom")
	fn := func() (int, error) { return 0, boom }

	_, err := invoke(fn, nil, nil)
	if !errors.Is(err, boom) {
		t.Errorf("error = %v, want %v", err, boom)
	}

	ok := func() (int, error) { return 9, nil }
	got, err := invoke(ok, nil, nil)
	if err != nil {
		t.Fatalf("invoke error = %v", err)
	}
	if got != 9 {
		t.Errorf("invoke = %v, want 9", got)
	}
}

func TestInvokeZeroResults(t *testing.T) {
	called := false
	fn := func() { called = true }

	got, err := invoke(fn, nil, nil)
	if err != nil {
		t.Fatalf("invoke error = %v", err)
	}
	if got != nil {
		t.Errorf("invoke = %v, want nil", got)
	}
	if !called {
		t.Error("function was not called")
	}
}

func TestInvokeMultipleResultsSpread(t *testing.T) {
	fn := func() (int, string) { return 1, "two" }

	got, err := invoke(fn, nil, nil)
	if err != nil {
		t.Fatalf("invoke error = %v", err)
	}
	pack, ok := got.(*ArgsPack)
	if !ok {
		t.Fatalf("invoke = %T, want *ArgsPack", got)
	}
	if !reflect.DeepEqual(pack.Args, []any{1, "two"}) {
		t.Errorf("pack args = %v, want [1 two]", pack.Args)
	}
}

func TestInvokeNumericConversion(t *testing.T) {
	fn := func(v float64) float64 { return v * 2 }

	got, err := invoke(fn, []any{5}, nil)
	if err != nil {
		t.Fatalf("invoke error = %v", err)
	}
	if got != 10.0 {
		t.Errorf("invoke = %v, want 10", got)
	}
}

func TestInvokeTypeMismatch(t *testing.T) {
	fn := func(s string) string { return s }

	_, err := invoke(fn, []any{struct{}{}}, nil)

	var callErr *CallError
	if !errors.As(err, &callErr) {
		t.Fatalf("error = %v, want *CallError", err)
	}
	if !strings.Contains(callErr.Error(), "argument 0") {
		t.Errorf("error = %q, want mention of argument 0", callErr.Error())
	}
}

func TestInvokeNotCallable(t *testing.T) {
	_, err := invoke("not a function", nil, nil)

	var callErr *CallError
	if !errors.As(err, &callErr) {
		t.Fatalf("error = %v, want *CallError", err)
	}
}

func namedForTest(v int) int { return v }

func TestFuncName(t *testing.T) {
	if got := FuncName(namedForTest); got != "namedForTest" {
		t.Errorf("FuncName = %q, want %q", got, "namedForTest")
	}
	if got := FuncName(42); got != "int" {
		t.Errorf("FuncName(42) = %q, want %q", got, "int")
	}
}
