package loom

import (
	"fmt"
	"reflect"

	"github.com/google/uuid"
)

// unsetType is the type of the Unset marker. A distinct struct type keeps
// the marker from ever comparing equal to caller-supplied data.
type unsetType struct{}

func (unsetType) String() string { return "<unset>" }

// Unset is the default sentinel for units that have not configured one.
// No ordinary value compares equal to it, so sentinel suppression is
// inert until a unit opts in via WithSentinel.
var Unset any = unsetType{}

// Unit wraps a callable with identity, a display name, a merge flag, and a
// sentinel value for no-argument suppression. Units are the nodes of a
// graph; two units are the same node iff their IDs match.
type Unit struct {
	fn any
	id string

	// Name overrides the display name derived from the wrapped function.
	Name string

	// MergeNode marks this unit as a fan-in consolidation point: a
	// concat-aware stepper collapses all rows addressed to it within one
	// generation into a single call.
	MergeNode bool

	// Sentinel is the unit's "no value" marker. A call with exactly one
	// positional argument equal to it invokes the callable with zero
	// arguments instead.
	Sentinel any
}

// UnitOption configures a Unit at construction.
type UnitOption func(*Unit)

// WithID assigns an explicit identity instead of the generated one.
func WithID(id string) UnitOption {
	return func(u *Unit) { u.id = id }
}

// WithName sets the display name.
func WithName(name string) UnitOption {
	return func(u *Unit) { u.Name = name }
}

// WithMerge marks the unit as a merge node.
func WithMerge() UnitOption {
	return func(u *Unit) { u.MergeNode = true }
}

// WithSentinel configures the unit's "no value" marker. Passing nil is
// valid and makes a propagated nil suppress arguments.
func WithSentinel(v any) UnitOption {
	return func(u *Unit) { u.Sentinel = v }
}

// NewUnit wraps a callable in a fresh Unit with a generated identity.
func NewUnit(fn any, opts ...UnitOption) *Unit {
	u := &Unit{
		fn:       fn,
		id:       uuid.NewString(),
		Sentinel: Unset,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// AsUnit converts a value to a Unit. An existing *Unit is returned
// unchanged; anything else is wrapped.
func AsUnit(v any, opts ...UnitOption) *Unit {
	if u, ok := v.(*Unit); ok {
		return u
	}
	return NewUnit(v, opts...)
}

// AsUnits converts a list of values via AsUnit.
func AsUnits(vs ...any) []*Unit {
	units := make([]*Unit, len(vs))
	for i, v := range vs {
		units[i] = AsUnit(v)
	}
	return units
}

// ID returns the unit's stable identity.
func (u *Unit) ID() string {
	return u.id
}

// Func returns the wrapped callable.
func (u *Unit) Func() any {
	return u.fn
}

// DisplayName returns the configured name, falling back to the wrapped
// function's runtime name.
func (u *Unit) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return FuncName(u.fn)
}

// Process invokes the wrapped callable. If exactly one positional argument
// is supplied and it equals the sentinel, the callable is invoked with zero
// arguments: the marker signals "nothing to pass" and must not be
// misread as real input by a downstream zero-argument function.
func (u *Unit) Process(args []any, kwargs map[string]any) (any, error) {
	if len(args) == 1 && sentinelMatch(args[0], u.Sentinel) {
		args = nil
	}
	return invoke(u.fn, args, kwargs)
}

// Call is Process over a pack.
func (u *Unit) Call(akw *ArgsPack) (any, error) {
	return u.Process(akw.Args, akw.Kwargs)
}

// Leaf handles the tip of a branch: this unit has no outgoing edges, so it
// has not been processed through any connection yet. Process it here and
// hand the packed result to the stepper's terminal handler.
func (u *Unit) Leaf(s *Stepper, akw *ArgsPack) ([]Row, error) {
	res, err := u.Call(akw)
	if err != nil {
		return nil, err
	}
	return s.endBranch(NodeCaller(u), Pack(res)), nil
}

func (u *Unit) String() string {
	return fmt.Sprintf("Unit(%s)", u.DisplayName())
}

// sentinelMatch reports whether v equals the sentinel. Uncomparable values
// never match; a nil sentinel matches a nil value.
func sentinelMatch(v, sentinel any) bool {
	if v == nil || sentinel == nil {
		return v == nil && sentinel == nil
	}
	if vt := reflect.TypeOf(v); !vt.Comparable() {
		return false
	}
	if st := reflect.TypeOf(sentinel); !st.Comparable() {
		return false
	}
	return v == sentinel
}
