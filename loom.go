// Package loom assembles plain functions into a directed graph of units
// connected by wires, and executes that graph one generation at a time.
//
// The execution engine is a hand-rolled trampoline: instead of recursing
// through the graph, a Stepper reifies the current call frontier as an
// ordered list of (caller, pack) rows, executes them, and produces the
// next frontier. Because "what to call next" is data, a walk can be
// paused, inspected, consolidated at merge nodes, or abandoned between
// any two steps.
//
//	g := loom.NewGraph("pipeline")
//	g.Connect(loom.Add(1), loom.Add(2), loom.Add(4))
//
//	s := g.Stepper()
//	s.Prepare(loom.PackArgs(1.0), g.Edges()[0].A)
//	it := s.Iterator()
//	for rows, ok := it.Next(); ok; rows, ok = it.Next() {
//		_ = rows // inspect the frontier between generations
//	}
//
// Connections execute in two phases so the stepper can discover what
// follows B before committing to the wire and B themselves; see
// Connection.HalfCall and PartialConnection.
package loom
