package loom

import (
	"reflect"
	"testing"
)

func TestAddEdgeIndexesBothIdentities(t *testing.T) {
	g := NewGraph("t")
	edge := g.Add(add1, add2)

	bySource := g.ConnectionsFor(edge.A)
	if len(bySource) != 1 || bySource[0] != edge {
		t.Errorf("lookup by source = %v, want [%v]", bySource, edge)
	}

	byEdge := g.Resolve(edge.ID())
	if len(byEdge) != 1 || byEdge[0] != edge {
		t.Errorf("lookup by edge id = %v, want [%v]", byEdge, edge)
	}
}

func TestConnectionsForNoEdges(t *testing.T) {
	g := NewGraph("t")
	u := NewUnit(add1)

	if conns := g.ConnectionsFor(u); len(conns) != 0 {
		t.Errorf("ConnectionsFor(unconnected) = %v, want empty", conns)
	}
	if conns := g.ConnectionsFor(nil); len(conns) != 0 {
		t.Errorf("ConnectionsFor(nil) = %v, want empty", conns)
	}
}

func TestConnectChainsPairwise(t *testing.T) {
	g := NewGraph("t")
	conns := g.Connect(add1, add2, add4)

	if len(conns) != 2 {
		t.Fatalf("Connect produced %d edges, want 2", len(conns))
	}
	if conns[0].B != conns[1].A {
		t.Error("chain is not linked: edge 0's B is not edge 1's A")
	}
}

func TestConnectThroughAppliesWireToEveryEdge(t *testing.T) {
	g := NewGraph("t")
	conns := g.ConnectThrough(double, add1, add2, add4)

	for i, c := range conns {
		if c.Through == nil {
			t.Errorf("edge %d has no wire function", i)
		}
	}
}

func TestConnectSingleNodeProducesNoEdges(t *testing.T) {
	g := NewGraph("t")

	if conns := g.Connect(add1); len(conns) != 0 {
		t.Errorf("Connect(one node) = %v, want no edges", conns)
	}
}

func TestGraphFanOut(t *testing.T) {
	g := NewGraph("t")
	a := NewUnit(add1)
	g.Add(a, add2)
	g.Add(a, add4)

	conns := g.ConnectionsFor(a)
	if len(conns) != 2 {
		t.Errorf("fan-out edge count = %d, want 2", len(conns))
	}
}

func TestNodesFirstSeenOrder(t *testing.T) {
	g := NewGraph("t")
	conns := g.Connect(Add(1), Add(2), Add(3))

	nodes := g.Nodes()
	if len(nodes) != 3 {
		t.Fatalf("node count = %d, want 3", len(nodes))
	}
	if nodes[0] != conns[0].A || nodes[1] != conns[0].B {
		t.Error("nodes are not in first-seen order")
	}
}

func TestNodesAndEdgesContract(t *testing.T) {
	g := NewGraph("t")
	a, b, c := Add(1), Add(2), Add(3)
	g.Connect(a, b, c)

	nodes, edges := g.NodesAndEdges()

	if len(nodes) != 3 {
		t.Fatalf("node count = %d, want 3", len(nodes))
	}
	if nodes[0].Name != "add_1" {
		t.Errorf("nodes[0].Name = %q, want add_1", nodes[0].Name)
	}

	wantEdges := [][2]string{{a.ID(), b.ID()}, {b.ID(), c.ID()}}
	if !reflect.DeepEqual(edges, wantEdges) {
		t.Errorf("edges = %v, want %v", edges, wantEdges)
	}
}

func TestUnitForFunc(t *testing.T) {
	g := NewGraph("t")
	edge := g.Add(add1, add2)

	u, ok := g.unitForFunc(add1)
	if !ok {
		t.Fatal("unitForFunc did not resolve a graph callable")
	}
	if u != edge.A {
		t.Errorf("unitForFunc = %v, want %v", u, edge.A)
	}

	if _, ok := g.unitForFunc(double); ok {
		t.Error("unitForFunc resolved a callable that is not in the graph")
	}
}
