package registry

import "github.com/petal-labs/loom"

// registerBuiltins registers all built-in loom operators. Called once by
// Global() during singleton initialization.
func registerBuiltins(r *Registry) {
	r.Register(OpDef{
		Name:         "add",
		DisplayName:  "Add",
		Description:  "Add a constant to the input",
		NeedsOperand: true,
		Build:        loom.Add,
	})

	r.Register(OpDef{
		Name:         "sub",
		DisplayName:  "Subtract",
		Description:  "Subtract a constant from the input",
		NeedsOperand: true,
		Build:        loom.Sub,
	})

	r.Register(OpDef{
		Name:         "mul",
		DisplayName:  "Multiply",
		Description:  "Multiply the input by a constant",
		NeedsOperand: true,
		Build:        loom.Mul,
	})

	r.Register(OpDef{
		Name:         "div",
		DisplayName:  "Divide",
		Description:  "Divide the input by a constant",
		NeedsOperand: true,
		Build:        loom.Div,
	})

	r.Register(OpDef{
		Name:        "sum",
		DisplayName: "Sum",
		Description: "Sum every positional input, typically as a merge destination",
		Build:       func(float64) *loom.Unit { return loom.Sum() },
	})

	r.Register(OpDef{
		Name:        "identity",
		DisplayName: "Identity",
		Description: "Pass the input through unchanged",
		Build:       func(float64) *loom.Unit { return loom.Identity() },
	})
}
