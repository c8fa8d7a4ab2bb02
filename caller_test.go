package loom

import (
	"strings"
	"testing"
)

func TestAsCallerShapes(t *testing.T) {
	u := NewUnit(add1)
	edge := MakeEdge(add1, add2)
	partial := edge.Partial()

	cases := []struct {
		in   any
		want CallerKind
	}{
		{nil, CallerEmpty},
		{u, CallerNode},
		{edge, CallerEdge},
		{partial, CallerPartial},
		{add1, CallerFunc},
		{"text", CallerInvalid},
		{42, CallerInvalid},
	}

	for _, tc := range cases {
		if got := AsCaller(tc.in).Kind(); got != tc.want {
			t.Errorf("AsCaller(%T).Kind() = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestAsCallerIdempotent(t *testing.T) {
	c := NodeCaller(NewUnit(add1))

	if got := AsCaller(c); got != c {
		t.Errorf("AsCaller(Caller) = %v, want the same caller", got)
	}
}

func TestCallerZeroValueIsEmpty(t *testing.T) {
	var c Caller

	if c.Kind() != CallerEmpty {
		t.Errorf("zero Caller kind = %s, want empty", c.Kind())
	}
	if c.id() != "" {
		t.Errorf("empty caller id = %q, want empty string", c.id())
	}
}

func TestCallerAccessors(t *testing.T) {
	u := NewUnit(add1)
	edge := MakeEdge(add1, add2)

	if got := NodeCaller(u).Unit(); got != u {
		t.Errorf("Unit() = %v, want %v", got, u)
	}
	if got := EdgeCaller(edge).Edge(); got != edge {
		t.Errorf("Edge() = %v, want %v", got, edge)
	}
	if got := NodeCaller(u).Edge(); got != nil {
		t.Errorf("Edge() on node caller = %v, want nil", got)
	}
}

func TestCallerMergeNode(t *testing.T) {
	merge := NewUnit(add1, WithMerge())
	plain := NewUnit(add2)

	if !NodeCaller(merge).MergeNode() {
		t.Error("merge unit caller not flagged")
	}
	if NodeCaller(plain).MergeNode() {
		t.Error("plain unit caller flagged as merge")
	}
	if EmptyCaller().MergeNode() {
		t.Error("empty caller flagged as merge")
	}

	// Edge callers address A; partials address B.
	edge := NewConnection(merge, plain)
	if !EdgeCaller(edge).MergeNode() {
		t.Error("edge caller ignores A's merge flag")
	}
	if PartialCaller(edge.Partial()).MergeNode() {
		t.Error("partial caller uses A's flag, want B's")
	}
}

func TestCallerIDDistinguishesKinds(t *testing.T) {
	u := NewUnit(add1, WithID("u1"))

	if got := NodeCaller(u).id(); got != "u1" {
		t.Errorf("node caller id = %q, want u1", got)
	}

	fnID := FuncCaller(add1).id()
	if !strings.HasPrefix(fnID, "fn:") {
		t.Errorf("func caller id = %q, want fn: prefix", fnID)
	}
	if fnID != FuncCaller(add1).id() {
		t.Error("func caller id is not stable for the same function")
	}
	if fnID == FuncCaller(add2).id() {
		t.Error("distinct functions share a caller id")
	}
}

func TestCallerDisplayName(t *testing.T) {
	if got := EmptyCaller().DisplayName(); got != "<end>" {
		t.Errorf("empty DisplayName = %q, want <end>", got)
	}
	u := NewUnit(add1, WithName("alpha"))
	if got := NodeCaller(u).DisplayName(); got != "alpha" {
		t.Errorf("node DisplayName = %q, want alpha", got)
	}
	if got := AsCaller(42).DisplayName(); !strings.Contains(got, "invalid") {
		t.Errorf("invalid DisplayName = %q, want invalid marker", got)
	}
}
