package loom

// Graph projections for debugging and printing. These flatten execution
// order per hop, so parallel chains come out interleaved; they are not a
// substitute for walking the graph.

// ThinGraph projects the adjacency store down to source id -> destination
// ids, in edge insertion order.
func ThinGraph(g *Graph) map[string][]string {
	res := make(map[string][]string)
	for _, c := range g.Edges() {
		res[c.A.ID()] = append(res[c.A.ID()], c.B.ID())
	}
	return res
}

// FlatGraph returns every edge as an (idA, idB) pair in insertion order.
func FlatGraph(g *Graph) [][2]string {
	res := make([][2]string, 0, len(g.Edges()))
	for _, c := range g.Edges() {
		res = append(res, [2]string{c.A.ID(), c.B.ID()})
	}
	return res
}

// LinearChain reads forward from a node, one row per hop. Each row holds
// the units reached at that hop; when withThrough is set, a hop's wire
// functions precede the unit they feed. The wire of an edge only appears
// when the walk enters through that edge's A side, which is why starting
// one node later drops it.
//
// Rows mix *Unit and wire function values; callers format them.
func LinearChain(g *Graph, start any, withThrough bool) [][]any {
	unit := AsUnit(start)
	conns := g.ConnectionsFor(unit)
	res := [][]any{{unit}}

	for len(conns) > 0 {
		var row []any
		var next []*Connection
		for _, c := range conns {
			if withThrough && c.Through != nil {
				row = append(row, c.Through)
			}
			row = append(row, c.B)
			next = append(next, g.ConnectionsFor(c.B)...)
		}
		res = append(res, row)
		conns = next
	}
	return res
}

// TreeChain reads forward from a node preserving branch structure: a node
// with one successor extends the current sequence, while multiple
// successors nest as sub-sequences. Wire functions are included ahead of
// the unit they feed when withThrough is set.
func TreeChain(g *Graph, start any, withThrough bool) []any {
	unit := AsUnit(start)
	conns := g.ConnectionsFor(unit)
	res := []any{unit}

	single := len(conns) == 1
	for _, c := range conns {
		branch := connBranch(g, c, withThrough)
		if single {
			res = append(res, branch...)
			continue
		}
		res = append(res, branch)
	}
	return res
}

func connBranch(g *Graph, c *Connection, withThrough bool) []any {
	var branch []any
	if withThrough && c.Through != nil {
		branch = append(branch, c.Through)
	}
	return append(branch, TreeChain(g, c.B, withThrough)...)
}
