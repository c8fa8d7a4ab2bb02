package loom

// Graph is the adjacency store for a set of connections. An edge is
// indexed under both its own identity and its source unit's identity, so
// "what does this edge do next" and "what are this node's outgoing edges"
// resolve from the same map.
//
// Graphs are append-only: edges are never removed, and a graph handed to a
// stepper is read-only for the duration of the walk. Absence of outgoing
// edges is always represented as an empty slice; there is no second
// "missing" form.
type Graph struct {
	name  string
	adj   map[string][]*Connection
	edges []*Connection

	// byFunc indexes units by their wrapped callable, letting a
	// raw-callable caller find its own outgoing edges without
	// re-wrapping into a fresh identity.
	byFunc map[uintptr]*Unit
}

// NewGraph creates an empty graph with the given name.
func NewGraph(name string) *Graph {
	return &Graph{
		name:   name,
		adj:    make(map[string][]*Connection),
		edges:  make([]*Connection, 0),
		byFunc: make(map[uintptr]*Unit),
	}
}

// Name returns the graph's identifier.
func (g *Graph) Name() string {
	return g.name
}

// AddEdge indexes an edge under its own identity and its source unit's
// identity.
func (g *Graph) AddEdge(c *Connection) {
	g.adj[c.ID()] = append(g.adj[c.ID()], c)
	g.adj[c.A.ID()] = append(g.adj[c.A.ID()], c)
	g.edges = append(g.edges, c)
	g.indexUnit(c.A)
	g.indexUnit(c.B)
}

func (g *Graph) indexUnit(u *Unit) {
	ptr := funcPointer(u.Func())
	if ptr == 0 {
		return
	}
	if _, ok := g.byFunc[ptr]; !ok {
		g.byFunc[ptr] = u
	}
}

// Add builds a connection from a to b into the graph and returns it.
// Values that are not units are wrapped.
func (g *Graph) Add(a, b any, opts ...ConnectionOption) *Connection {
	c := MakeEdge(a, b, opts...)
	g.AddEdge(c)
	return c
}

// Connect chains many nodes pairwise: each adjacent pair becomes one
// connection. Returns the connections in chain order.
func (g *Graph) Connect(nodes ...any) []*Connection {
	return g.connectPairs(nil, nodes)
}

// ConnectThrough chains many nodes pairwise, applying the same wire
// function to every produced connection.
func (g *Graph) ConnectThrough(through any, nodes ...any) []*Connection {
	return g.connectPairs(through, nodes)
}

func (g *Graph) connectPairs(through any, nodes []any) []*Connection {
	units := AsUnits(nodes...)
	conns := make([]*Connection, 0)
	for i := 0; i+1 < len(units); i++ {
		var opts []ConnectionOption
		if through != nil {
			opts = append(opts, Through(through))
		}
		conns = append(conns, g.Add(units[i], units[i+1], opts...))
	}
	return conns
}

// ConnectionsFor returns the outgoing edges of a unit. A nil or empty
// result means the unit has none.
func (g *Graph) ConnectionsFor(u *Unit) []*Connection {
	if u == nil {
		return nil
	}
	return g.connectionsForID(u.ID())
}

func (g *Graph) connectionsForID(id string) []*Connection {
	return g.adj[id]
}

// Resolve returns the connections indexed under an identity: the outgoing
// edges for a unit id, or the edge itself for an edge id.
func (g *Graph) Resolve(id string) []*Connection {
	return g.connectionsForID(id)
}

// unitForFunc resolves the unit wrapping a raw callable, if any edge in
// the graph references it.
func (g *Graph) unitForFunc(fn any) (*Unit, bool) {
	u, ok := g.byFunc[funcPointer(fn)]
	return u, ok
}

// Edges returns every connection in insertion order.
func (g *Graph) Edges() []*Connection {
	return g.edges
}

// Nodes returns every distinct unit referenced by an edge, in first-seen
// order.
func (g *Graph) Nodes() []*Unit {
	seen := make(map[string]bool)
	nodes := make([]*Unit, 0, len(g.edges))
	for _, c := range g.edges {
		for _, u := range [...]*Unit{c.A, c.B} {
			if !seen[u.ID()] {
				seen[u.ID()] = true
				nodes = append(nodes, u)
			}
		}
	}
	return nodes
}

// NodeInfo is one entry of the read-only extraction contract consumed by
// external renderers.
type NodeInfo struct {
	ID   string
	Name string
}

// NodesAndEdges returns the render contract: every node as (id, display
// name) and every edge as an (idA, idB) pair, both in first-seen order.
// The core exposes this pair but performs no rendering itself.
func (g *Graph) NodesAndEdges() ([]NodeInfo, [][2]string) {
	nodes := make([]NodeInfo, 0)
	edges := make([][2]string, 0, len(g.edges))
	seen := make(map[string]bool)

	for _, c := range g.edges {
		edges = append(edges, [2]string{c.A.ID(), c.B.ID()})
		for _, u := range [...]*Unit{c.A, c.B} {
			if !seen[u.ID()] {
				seen[u.ID()] = true
				nodes = append(nodes, NodeInfo{ID: u.ID(), Name: u.DisplayName()})
			}
		}
	}
	return nodes, edges
}

// Stepper creates an execution engine bound to this graph. Prime it with
// Prepare before stepping.
func (g *Graph) Stepper() *Stepper {
	return NewStepper(g)
}
