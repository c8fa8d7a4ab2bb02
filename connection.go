package loom

import (
	"fmt"

	"github.com/google/uuid"
)

// Connection is a directed edge A -> [wire] -> B: call A, optionally
// transform A's result through the wire function, then call B.
//
// Execution is split in two phases so a stepper can discover successors
// between them: StepperCall / HalfCall run only the A side, and the
// reified PartialConnection carries the unexecuted wire+B remainder.
type Connection struct {
	id string

	// A is the source unit, executed in the first phase.
	A *Unit

	// B is the destination unit, executed in the second phase.
	B *Unit

	// Name labels the edge for rendering and debugging.
	Name string

	// Through is the optional wire function applied between A's result
	// and B's input.
	Through any
}

// ConnectionOption configures a Connection at construction.
type ConnectionOption func(*Connection)

// EdgeName labels the connection.
func EdgeName(name string) ConnectionOption {
	return func(c *Connection) { c.Name = name }
}

// Through sets the wire function applied between A and B.
func Through(fn any) ConnectionOption {
	return func(c *Connection) { c.Through = fn }
}

// EdgeID assigns an explicit edge identity.
func EdgeID(id string) ConnectionOption {
	return func(c *Connection) { c.id = id }
}

// NewConnection creates an edge between two units.
func NewConnection(a, b *Unit, opts ...ConnectionOption) *Connection {
	c := &Connection{
		id: uuid.NewString(),
		A:  a,
		B:  b,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MakeEdge creates an edge between two values, wrapping them as units
// where needed.
func MakeEdge(a, b any, opts ...ConnectionOption) *Connection {
	return NewConnection(AsUnit(a), AsUnit(b), opts...)
}

// ID returns the edge's stable identity.
func (c *Connection) ID() string {
	return c.id
}

// MergeNode reports whether the edge addresses a merge destination before
// its A side has run, which is A's own merge status.
func (c *Connection) MergeNode() bool {
	return c.A.MergeNode
}

// StepperCall executes only the A side and returns its raw result. Used
// when the connection itself is the walk's current caller.
func (c *Connection) StepperCall(akw *ArgsPack) (any, error) {
	return c.A.Call(akw)
}

// HalfCall executes the A side and returns the reified remainder plus A's
// packed result. The stepper uses the remainder to look up what follows B
// before committing to the back half.
func (c *Connection) HalfCall(akw *ArgsPack) (*PartialConnection, *ArgsPack, error) {
	res, err := c.A.Call(akw)
	if err != nil {
		return nil, nil, err
	}
	return c.Partial(), Pack(res), nil
}

// Partial returns the unexecuted wire+B remainder of this edge.
func (c *Connection) Partial() *PartialConnection {
	return &PartialConnection{
		id:     uuid.NewString(),
		parent: c,
	}
}

// CallThrough applies the wire function if present, else wraps the inputs
// unchanged into a pack.
func (c *Connection) CallThrough(args []any, kwargs map[string]any) (*ArgsPack, error) {
	if c.Through == nil {
		return PackKwargs(args, kwargs), nil
	}
	res, err := invoke(c.Through, args, kwargs)
	if err != nil {
		return nil, err
	}
	return Pack(res), nil
}

// Process applies the wire function then calls B. The A side is not
// executed; this is the back half, used after A has already run.
func (c *Connection) Process(args []any, kwargs map[string]any) (any, error) {
	akw, err := c.CallThrough(args, kwargs)
	if err != nil {
		return nil, err
	}
	return c.B.Call(akw)
}

// Pluck performs a synchronous single-shot A -> wire -> B execution. It is
// meant for direct testing of one edge, not stepper-driven walks.
func (c *Connection) Pluck(args ...any) (any, error) {
	res, err := c.A.Process(args, nil)
	if err != nil {
		return nil, err
	}
	akw := Pack(res)
	return c.Process(akw.Args, akw.Kwargs)
}

func (c *Connection) String() string {
	through := ""
	if c.Through != nil {
		through = fmt.Sprintf(" through=%s", FuncName(c.Through))
	}
	return fmt.Sprintf("Connection(%s -> %s%s)", c.A.DisplayName(), c.B.DisplayName(), through)
}

// PartialConnection is the reified second half of a Connection whose A
// side has already run: the wire function plus B, pending execution.
type PartialConnection struct {
	id     string
	parent *Connection
}

// ID returns the partial's own identity. Each HalfCall produces a distinct
// partial; merge addressing therefore goes through wireB, not this ID.
func (p *PartialConnection) ID() string {
	return p.id
}

// Parent returns the connection this partial was split from.
func (p *PartialConnection) Parent() *Connection {
	return p.parent
}

// B returns the pending destination unit.
func (p *PartialConnection) B() *Unit {
	return p.parent.B
}

// MergeNode reports the pending destination's merge status. This is the
// intentional asymmetry from Connection: after A has run, fan-in
// addressing cares about B, not A.
func (p *PartialConnection) MergeNode() bool {
	return p.parent.B.MergeNode
}

// Connections returns the outgoing edges of the parent's B node: what
// comes after B, not after the partial itself.
func (p *PartialConnection) Connections(g *Graph) []*Connection {
	return g.ConnectionsFor(p.parent.B)
}

// StepperCall applies the wire function to the packed arguments, then
// calls B, returning B's raw result.
func (p *PartialConnection) StepperCall(akw *ArgsPack) (any, error) {
	return p.Process(akw.Args, akw.Kwargs)
}

// Process runs the parent's back half: wire then B.
func (p *PartialConnection) Process(args []any, kwargs map[string]any) (any, error) {
	return p.parent.Process(args, kwargs)
}

// wireB returns the (wire function, B identity) pair that addresses this
// partial by value. Distinct partial instances heading into the same
// wire+B must consolidate as one destination.
func (p *PartialConnection) wireB() wireBKey {
	return wireBKey{
		wire: funcPointer(p.parent.Through),
		b:    p.parent.B.ID(),
	}
}

// wireBKey is the value identity of a partial's destination.
type wireBKey struct {
	wire uintptr
	b    string
}

func (p *PartialConnection) String() string {
	return fmt.Sprintf("Partial(-> %s)", p.parent.B.DisplayName())
}
