// Package viz renders loom graphs as Graphviz DOT text. It consumes the
// graph's node/edge extraction contract and performs no graph traversal of
// its own, so any tool that reads DOT can lay out and render the result.
package viz

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/petal-labs/loom"
)

// Options control the generated DOT attributes. The zero value produces
// the default style: top-to-bottom rounded boxes.
type Options struct {
	// Direction is the rank direction, "TB" or "LR". Defaults to "TB".
	Direction string

	// NodeShape defaults to "box".
	NodeShape string

	// NodeStyle defaults to "rounded".
	NodeStyle string

	// FontName defaults to "Arial".
	FontName string

	// NodeColor defaults to "#2299FF".
	NodeColor string

	// FontColor defaults to "#DDD".
	FontColor string
}

func (o Options) withDefaults() Options {
	if o.Direction == "" {
		o.Direction = "TB"
	}
	if o.NodeShape == "" {
		o.NodeShape = "box"
	}
	if o.NodeStyle == "" {
		o.NodeStyle = "rounded"
	}
	if o.FontName == "" {
		o.FontName = "Arial"
	}
	if o.NodeColor == "" {
		o.NodeColor = "#2299FF"
	}
	if o.FontColor == "" {
		o.FontColor = "#DDD"
	}
	return o
}

// DOT renders the graph as DOT text. Nodes and edges appear in the
// graph's first-seen order, so output is deterministic for a given graph.
func DOT(g *loom.Graph, title string, opts Options) string {
	var b strings.Builder
	writeDOT(&b, g, title, opts.withDefaults())
	return b.String()
}

// Write renders the graph as DOT text to a writer.
func Write(w io.Writer, g *loom.Graph, title string, opts Options) error {
	var b strings.Builder
	writeDOT(&b, g, title, opts.withDefaults())
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteFile renders the graph as DOT text to a file.
func WriteFile(path string, g *loom.Graph, title string, opts Options) error {
	f, err := os.Create(path) // #nosec G304 -- path from caller
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	if err := Write(f, g, title, opts); err != nil {
		return err
	}
	return f.Close()
}

func writeDOT(b *strings.Builder, g *loom.Graph, title string, opts Options) {
	if title == "" {
		title = g.Name()
	}

	fmt.Fprintf(b, "digraph %s {\n", quote(title))
	fmt.Fprintf(b, "\trankdir=%s;\n", quote(opts.Direction))
	fmt.Fprintf(b, "\tnode [shape=%s style=%s fontname=%s color=%s fontcolor=%s];\n",
		quote(opts.NodeShape), quote(opts.NodeStyle), quote(opts.FontName),
		quote(opts.NodeColor), quote(opts.FontColor))

	nodes, edges := g.NodesAndEdges()
	for _, n := range nodes {
		fmt.Fprintf(b, "\t%s [label=%s];\n", quote(n.ID), quote(n.Name))
	}
	for _, e := range edges {
		fmt.Fprintf(b, "\t%s -> %s;\n", quote(e[0]), quote(e[1]))
	}
	b.WriteString("}\n")
}

// quote wraps a value as a DOT double-quoted string, escaping embedded
// quotes.
func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
