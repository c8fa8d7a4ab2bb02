package loom

import (
	"fmt"
	"reflect"
)

// CallerKind identifies the shape of a stepper target. The set is closed:
// the stepper dispatches over it exhaustively instead of probing values
// for callability at runtime.
type CallerKind int

const (
	// CallerEmpty is the absent target: the row terminates.
	CallerEmpty CallerKind = iota

	// CallerNode targets a Unit.
	CallerNode

	// CallerEdge targets a Connection used directly as a raw target.
	CallerEdge

	// CallerPartial targets the wire+B remainder of a half-run edge.
	CallerPartial

	// CallerFunc targets a raw callable that was never wrapped.
	CallerFunc

	// CallerInvalid is anything else. Not an error: such rows fall
	// through to a terminal row on their next execution.
	CallerInvalid
)

// String returns the kind's name.
func (k CallerKind) String() string {
	switch k {
	case CallerEmpty:
		return "empty"
	case CallerNode:
		return "node"
	case CallerEdge:
		return "edge"
	case CallerPartial:
		return "partial"
	case CallerFunc:
		return "func"
	default:
		return "invalid"
	}
}

// Caller is a stepper target: one half of a Row. The zero value is the
// empty caller.
type Caller struct {
	kind    CallerKind
	unit    *Unit
	edge    *Connection
	partial *PartialConnection
	fn      any
	raw     any
}

// EmptyCaller returns the absent target.
func EmptyCaller() Caller {
	return Caller{kind: CallerEmpty}
}

// NodeCaller targets a unit.
func NodeCaller(u *Unit) Caller {
	return Caller{kind: CallerNode, unit: u}
}

// EdgeCaller targets a connection directly.
func EdgeCaller(c *Connection) Caller {
	return Caller{kind: CallerEdge, edge: c}
}

// PartialCaller targets a reified edge remainder.
func PartialCaller(p *PartialConnection) Caller {
	return Caller{kind: CallerPartial, partial: p}
}

// FuncCaller targets a raw callable.
func FuncCaller(fn any) Caller {
	return Caller{kind: CallerFunc, fn: fn}
}

// AsCaller detects the shape of an arbitrary target value. Unrecognized
// non-callable values produce a CallerInvalid target, which the stepper
// turns into a terminal row rather than an error.
func AsCaller(v any) Caller {
	switch t := v.(type) {
	case nil:
		return EmptyCaller()
	case Caller:
		return t
	case *Unit:
		return NodeCaller(t)
	case *Connection:
		return EdgeCaller(t)
	case *PartialConnection:
		return PartialCaller(t)
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Func {
		return FuncCaller(v)
	}
	return Caller{kind: CallerInvalid, raw: v}
}

// Kind returns the caller's shape.
func (c Caller) Kind() CallerKind {
	return c.kind
}

// Unit returns the targeted unit, or nil for other kinds.
func (c Caller) Unit() *Unit {
	return c.unit
}

// Edge returns the targeted connection, or nil for other kinds.
func (c Caller) Edge() *Connection {
	return c.edge
}

// Partial returns the targeted remainder, or nil for other kinds.
func (c Caller) Partial() *PartialConnection {
	return c.partial
}

// Func returns the targeted raw callable, or nil for other kinds.
func (c Caller) Func() any {
	return c.fn
}

// MergeNode reports whether rows addressed to this caller consolidate.
func (c Caller) MergeNode() bool {
	switch c.kind {
	case CallerNode:
		return c.unit.MergeNode
	case CallerEdge:
		return c.edge.MergeNode()
	case CallerPartial:
		return c.partial.MergeNode()
	default:
		return false
	}
}

// id returns the caller's stash/consolidation key. Empty callers share a
// single key; each partial keeps its own instance identity here (value
// addressing for merges goes through wireB instead).
func (c Caller) id() string {
	switch c.kind {
	case CallerNode:
		return c.unit.ID()
	case CallerEdge:
		return c.edge.ID()
	case CallerPartial:
		return c.partial.ID()
	case CallerFunc:
		return fmt.Sprintf("fn:%x", funcPointer(c.fn))
	case CallerEmpty:
		return ""
	default:
		return fmt.Sprintf("invalid:%T", c.raw)
	}
}

// DisplayName names the caller for events and rendering.
func (c Caller) DisplayName() string {
	switch c.kind {
	case CallerNode:
		return c.unit.DisplayName()
	case CallerEdge:
		return c.edge.String()
	case CallerPartial:
		return c.partial.String()
	case CallerFunc:
		return FuncName(c.fn)
	case CallerEmpty:
		return "<end>"
	default:
		return fmt.Sprintf("<invalid %T>", c.raw)
	}
}

func (c Caller) String() string {
	return fmt.Sprintf("%s:%s", c.kind, c.DisplayName())
}
