package loom

import (
	"fmt"
	"sort"
	"strings"
)

// ArgsPack is the argument bundle passed between any two execution steps.
// It carries positional values in order plus named values, mirroring a
// call frame: the next callable receives Args positionally and Kwargs
// through a trailing Kwargs parameter if it declares one.
//
// Packs are treated as immutable once handed to a stepper; helpers that
// combine packs always allocate a new one.
type ArgsPack struct {
	// Args holds positional values. Order is significant and preserved.
	Args []any

	// Kwargs holds named values. Keys are unique; ordering is not.
	Kwargs map[string]any
}

// NewArgsPack creates an empty pack with an initialized Kwargs map.
func NewArgsPack() *ArgsPack {
	return &ArgsPack{
		Args:   make([]any, 0),
		Kwargs: make(map[string]any),
	}
}

// PackArgs creates a pack from positional values only.
func PackArgs(args ...any) *ArgsPack {
	p := NewArgsPack()
	p.Args = append(p.Args, args...)
	return p
}

// PackKwargs creates a pack from positional values and named values.
// The kwargs map is copied so later mutation of the source does not leak in.
func PackKwargs(args []any, kwargs map[string]any) *ArgsPack {
	p := PackArgs(args...)
	for k, v := range kwargs {
		p.Kwargs[k] = v
	}
	return p
}

// Pack converts a raw result into a pack, applying the chaining rules:
//
//   - an existing *ArgsPack is returned unchanged (Pack is idempotent)
//   - a []any of exactly two elements whose first element is itself a
//     []any and whose second is a map[string]any unpacks directly into
//     (Args, Kwargs)
//   - anything else becomes a single positional value
//
// The two-element form lets a callable expand its result into an arbitrary
// argument set for the next call without importing pack constructors.
func Pack(result any) *ArgsPack {
	if p, ok := result.(*ArgsPack); ok {
		return p
	}

	if pair, ok := result.([]any); ok && len(pair) == 2 {
		if args, ok := pair[0].([]any); ok {
			if kwargs, ok := pair[1].(map[string]any); ok {
				return PackKwargs(args, kwargs)
			}
		}
	}

	return PackArgs(result)
}

// Merge concatenates the positional values of all given packs, in order,
// into a single pack.
//
// Keyword values are NOT carried over: merged packs have always produced
// positional-only bundles, and the historical test suite pins that exact
// behavior. Callers that need named values across a merge must re-pack
// them downstream. See TestMergeDropsKwargs.
func Merge(packs ...*ArgsPack) *ArgsPack {
	r := NewArgsPack()
	for _, p := range packs {
		if p == nil {
			continue
		}
		r.Args = append(r.Args, p.Args...)
	}
	return r
}

// A returns the positional values. Shorthand accessor.
func (p *ArgsPack) A() []any {
	return p.Args
}

// KW returns the named values. Shorthand accessor.
func (p *ArgsPack) KW() map[string]any {
	return p.Kwargs
}

// String renders the pack for debugging. Kwargs keys are sorted so the
// output is stable.
func (p *ArgsPack) String() string {
	var b strings.Builder
	b.WriteString("ArgsPack(")
	for i, a := range p.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%v", a)
	}
	if len(p.Kwargs) > 0 {
		keys := make([]string, 0, len(p.Kwargs))
		for k := range p.Kwargs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if b.Len() > len("ArgsPack(") {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%v", k, p.Kwargs[k])
		}
	}
	b.WriteString(")")
	return b.String()
}
