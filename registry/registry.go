// Package registry provides a global operator registry for loom. It maps
// operator names to metadata and unit factories used by the loader, the
// CLI validator, and graph assembly from declarative definitions.
package registry

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/petal-labs/loom"
)

// BuildFunc constructs a unit from an operand. Operand-less operators
// ignore the value.
type BuildFunc func(operand float64) *loom.Unit

// OpDef describes a registered operator.
type OpDef struct {
	// Name is the operator's registry key, e.g. "add".
	Name string

	// DisplayName is the human-facing label.
	DisplayName string

	// Description explains what the operator does.
	Description string

	// NeedsOperand reports whether a "name:operand" spec must carry a
	// numeric operand.
	NeedsOperand bool

	// Build constructs a unit instance.
	Build BuildFunc
}

var (
	global     *Registry
	globalOnce sync.Once
)

// Global returns the singleton registry instance. On first call it
// initializes the registry and auto-registers all built-in operators.
func Global() *Registry {
	globalOnce.Do(func() {
		global = New()
		registerBuiltins(global)
	})
	return global
}

// Registry holds all known operators.
type Registry struct {
	mu    sync.RWMutex
	ops   map[string]OpDef
	order []string // preserves registration order
}

// New creates an empty registry. Most callers want Global instead.
func New() *Registry {
	return &Registry{
		ops: make(map[string]OpDef),
	}
}

// Register adds an operator definition. If an operator with the same name
// already exists it is overwritten.
func (r *Registry) Register(def OpDef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.ops[def.Name]; !exists {
		r.order = append(r.order, def.Name)
	}
	r.ops[def.Name] = def
}

// Get returns an operator definition by name.
func (r *Registry) Get(name string) (OpDef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.ops[name]
	return def, ok
}

// Has returns true if the operator name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.ops[name]
	return ok
}

// All returns all registered operators in registration order.
func (r *Registry) All() []OpDef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]OpDef, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.ops[name])
	}
	return result
}

// Len returns the number of registered operators.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ops)
}

// Build constructs a unit from a compact "name:operand" spec, resolving
// the operator through this registry. Operand-less operators take the
// bare name, e.g. "sum".
func (r *Registry) Build(spec string) (*loom.Unit, error) {
	name, operandText, hasOperand := strings.Cut(spec, ":")
	name = strings.TrimSpace(name)

	def, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("op %q: unknown operator %q", spec, name)
	}

	operand := 0.0
	if def.NeedsOperand {
		if !hasOperand {
			return nil, fmt.Errorf("op %q: missing operand", spec)
		}
		n, err := strconv.ParseFloat(strings.TrimSpace(operandText), 64)
		if err != nil {
			return nil, fmt.Errorf("op %q: %w", spec, err)
		}
		operand = n
	}

	return def.Build(operand), nil
}
