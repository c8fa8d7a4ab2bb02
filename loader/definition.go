package loader

import (
	"fmt"

	"github.com/petal-labs/loom"
	"github.com/petal-labs/loom/registry"
)

// Diagnostic represents a validation error or warning produced by
// definition validation.
type Diagnostic struct {
	Code     string `json:"code"`           // e.g. "GD-001"
	Severity string `json:"severity"`       // "error" or "warning"
	Message  string `json:"message"`        // human-readable description
	Path     string `json:"path,omitempty"` // JSON path to offending field
}

const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// HasErrors returns true if any diagnostic has error severity.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Errors returns only the error-severity diagnostics.
func Errors(diags []Diagnostic) []Diagnostic {
	var errs []Diagnostic
	for _, d := range diags {
		if d.Severity == SeverityError {
			errs = append(errs, d)
		}
	}
	return errs
}

// Definition is the serializable representation of a loom graph plus the
// walk parameters to run it with. JSON and YAML files both decode into
// this type; Build turns it into an executable graph.
type Definition struct {
	Name  string    `json:"name"`
	Nodes []NodeDef `json:"nodes"`
	Edges []EdgeDef `json:"edges"`

	// Start names the node ids the walk begins at.
	Start []string `json:"start,omitempty"`

	// Args are the initial positional values for the walk.
	Args []any `json:"args,omitempty"`

	// Concat enables merge-node consolidation on the built stepper.
	Concat bool `json:"concat,omitempty"`
}

// NodeDef is a serializable node within a Definition.
type NodeDef struct {
	ID string `json:"id"`

	// Op is a registry spec, e.g. "add:5" or "sum".
	Op string `json:"op"`

	// Name overrides the operator's derived display name.
	Name string `json:"name,omitempty"`

	// Merge marks the node as a fan-in consolidation point.
	Merge bool `json:"merge,omitempty"`

	// NilSentinel makes a propagated nil suppress the node's arguments.
	NilSentinel bool `json:"nil_sentinel,omitempty"`
}

// EdgeDef is a serializable edge within a Definition.
type EdgeDef struct {
	From string `json:"from"`
	To   string `json:"to"`

	// Through is an optional registry spec for the edge's wire function.
	Through string `json:"through,omitempty"`

	// Name labels the edge.
	Name string `json:"name,omitempty"`
}

// Validate checks the definition for structural problems against the
// given operator registry. It returns all diagnostics rather than
// stopping at the first.
func (d *Definition) Validate(reg *registry.Registry) []Diagnostic {
	var diags []Diagnostic

	if len(d.Nodes) == 0 {
		diags = append(diags, Diagnostic{
			Code: "GD-001", Severity: SeverityError,
			Message: "definition has no nodes", Path: "nodes",
		})
	}

	ids := make(map[string]bool)
	for i, n := range d.Nodes {
		path := fmt.Sprintf("nodes[%d]", i)
		if n.ID == "" {
			diags = append(diags, Diagnostic{
				Code: "GD-002", Severity: SeverityError,
				Message: "node has no id", Path: path,
			})
			continue
		}
		if ids[n.ID] {
			diags = append(diags, Diagnostic{
				Code: "GD-003", Severity: SeverityError,
				Message: fmt.Sprintf("duplicate node id %q", n.ID), Path: path,
			})
		}
		ids[n.ID] = true

		if n.Op == "" {
			diags = append(diags, Diagnostic{
				Code: "GD-004", Severity: SeverityError,
				Message: fmt.Sprintf("node %q has no op", n.ID), Path: path + ".op",
			})
		} else if _, err := reg.Build(n.Op); err != nil {
			diags = append(diags, Diagnostic{
				Code: "GD-005", Severity: SeverityError,
				Message: fmt.Sprintf("node %q: %v", n.ID, err), Path: path + ".op",
			})
		}
	}

	if len(d.Edges) == 0 && len(d.Nodes) > 1 {
		diags = append(diags, Diagnostic{
			Code: "GD-006", Severity: SeverityWarning,
			Message: "definition has nodes but no edges", Path: "edges",
		})
	}

	for i, e := range d.Edges {
		path := fmt.Sprintf("edges[%d]", i)
		if !ids[e.From] {
			diags = append(diags, Diagnostic{
				Code: "GD-007", Severity: SeverityError,
				Message: fmt.Sprintf("edge references unknown node %q", e.From), Path: path + ".from",
			})
		}
		if !ids[e.To] {
			diags = append(diags, Diagnostic{
				Code: "GD-007", Severity: SeverityError,
				Message: fmt.Sprintf("edge references unknown node %q", e.To), Path: path + ".to",
			})
		}
		if e.Through != "" {
			if _, err := reg.Build(e.Through); err != nil {
				diags = append(diags, Diagnostic{
					Code: "GD-008", Severity: SeverityError,
					Message: fmt.Sprintf("edge through: %v", err), Path: path + ".through",
				})
			}
		}
	}

	for i, id := range d.Start {
		if !ids[id] {
			diags = append(diags, Diagnostic{
				Code: "GD-009", Severity: SeverityError,
				Message: fmt.Sprintf("start references unknown node %q", id),
				Path:    fmt.Sprintf("start[%d]", i),
			})
		}
	}

	return diags
}

// Build materializes the definition into a graph. The returned start
// units correspond to the definition's Start ids, in order; when Start is
// empty and the definition has nodes, the first node is the start.
func (d *Definition) Build(reg *registry.Registry) (*loom.Graph, []*loom.Unit, error) {
	if diags := d.Validate(reg); HasErrors(diags) {
		return nil, nil, &DiagnosticError{Diagnostics: diags}
	}

	units := make(map[string]*loom.Unit, len(d.Nodes))
	for _, n := range d.Nodes {
		opts := []loom.UnitOption{loom.WithID(n.ID)}
		if n.Name != "" {
			opts = append(opts, loom.WithName(n.Name))
		}
		if n.Merge {
			opts = append(opts, loom.WithMerge())
		}
		if n.NilSentinel {
			opts = append(opts, loom.WithSentinel(nil))
		}

		base, err := reg.Build(n.Op)
		if err != nil {
			return nil, nil, fmt.Errorf("node %q: %w", n.ID, err)
		}
		u := loom.NewUnit(base.Func(), opts...)
		if u.Name == "" {
			u.Name = base.DisplayName()
		}
		units[n.ID] = u
	}

	name := d.Name
	if name == "" {
		name = "definition"
	}
	g := loom.NewGraph(name)

	for _, e := range d.Edges {
		var opts []loom.ConnectionOption
		if e.Name != "" {
			opts = append(opts, loom.EdgeName(e.Name))
		}
		if e.Through != "" {
			wire, err := reg.Build(e.Through)
			if err != nil {
				return nil, nil, fmt.Errorf("edge %s -> %s: %w", e.From, e.To, err)
			}
			opts = append(opts, loom.Through(wire.Func()))
		}
		g.Add(units[e.From], units[e.To], opts...)
	}

	starts := make([]*loom.Unit, 0, len(d.Start))
	for _, id := range d.Start {
		starts = append(starts, units[id])
	}
	if len(starts) == 0 && len(d.Nodes) > 0 {
		starts = append(starts, units[d.Nodes[0].ID])
	}

	return g, starts, nil
}

// Stepper builds the graph and returns a stepper already prepared with
// the definition's args and start nodes.
func (d *Definition) Stepper(reg *registry.Registry) (*loom.Stepper, error) {
	g, starts, err := d.Build(reg)
	if err != nil {
		return nil, err
	}

	s := g.Stepper()
	s.ConcatAware = d.Concat

	targets := make([]any, len(starts))
	for i, u := range starts {
		targets[i] = u
	}
	s.Prepare(loom.PackArgs(d.Args...), targets...)
	return s, nil
}
