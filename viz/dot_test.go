package viz

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/petal-labs/loom"
)

func chainGraph() (*loom.Graph, *loom.Unit, *loom.Unit) {
	g := loom.NewGraph("demo")
	a := loom.NewUnit(func(v float64) float64 { return v + 1 }, loom.WithID("a"), loom.WithName("add_1"))
	b := loom.NewUnit(func(v float64) float64 { return v * 2 }, loom.WithID("b"), loom.WithName("mul_2"))
	g.Add(a, b)
	return g, a, b
}

func TestDOTStructure(t *testing.T) {
	g, _, _ := chainGraph()

	out := DOT(g, "", Options{})

	if !strings.HasPrefix(out, `digraph "demo" {`) {
		t.Errorf("output does not open with the graph name:\n%s", out)
	}
	if !strings.HasSuffix(out, "}\n") {
		t.Errorf("output does not close the digraph:\n%s", out)
	}
	for _, want := range []string{
		`rankdir="TB";`,
		`"a" [label="add_1"];`,
		`"b" [label="mul_2"];`,
		`"a" -> "b";`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestDOTTitleOverride(t *testing.T) {
	g, _, _ := chainGraph()

	out := DOT(g, "custom", Options{})
	if !strings.Contains(out, `digraph "custom" {`) {
		t.Errorf("output does not use the custom title:\n%s", out)
	}
}

func TestDOTOptions(t *testing.T) {
	g, _, _ := chainGraph()

	out := DOT(g, "", Options{Direction: "LR", NodeShape: "circle"})
	if !strings.Contains(out, `rankdir="LR";`) {
		t.Errorf("output missing LR direction:\n%s", out)
	}
	if !strings.Contains(out, `shape="circle"`) {
		t.Errorf("output missing circle shape:\n%s", out)
	}
	// Unset options keep their defaults.
	if !strings.Contains(out, `fontname="Arial"`) {
		t.Errorf("output missing default font:\n%s", out)
	}
}

func TestDOTDeterministic(t *testing.T) {
	g, _, _ := chainGraph()

	if DOT(g, "", Options{}) != DOT(g, "", Options{}) {
		t.Error("repeated renders of the same graph differ")
	}
}

func TestDOTEscapesQuotes(t *testing.T) {
	g := loom.NewGraph(`say "hi"`)
	a := loom.NewUnit(func() {}, loom.WithID("a"), loom.WithName(`quo"ted`))
	g.Add(a, loom.NewUnit(func() {}, loom.WithID("b")))

	out := DOT(g, "", Options{})
	if !strings.Contains(out, `digraph "say \"hi\"" {`) {
		t.Errorf("title quotes not escaped:\n%s", out)
	}
	if !strings.Contains(out, `label="quo\"ted"`) {
		t.Errorf("label quotes not escaped:\n%s", out)
	}
}

func TestWriteFile(t *testing.T) {
	g, _, _ := chainGraph()
	path := filepath.Join(t.TempDir(), "demo.dot")

	if err := WriteFile(path, g, "", Options{}); err != nil {
		t.Fatalf("WriteFile error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if string(data) != DOT(g, "", Options{}) {
		t.Error("file contents differ from direct render")
	}
}
