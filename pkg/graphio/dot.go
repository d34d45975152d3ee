package graphio

import (
	"fmt"
	"io"
	"strings"

	"github.com/docfoundry/docgraph/pkg/graph"
)

// edgeStyles maps relationship types to Graphviz edge attributes.
// Structural types render solid, annotative types dashed.
var edgeStyles = map[graph.RelType]string{
	graph.DependsOn:  `style=solid`,
	graph.Implements: `style=solid,color=blue`,
	graph.Validates:  `style=solid,color=darkgreen`,
	graph.References: `style=dashed`,
	graph.Documents:  `style=dashed,color=gray`,
}

// WriteDOT renders the graph as Graphviz DOT text.
//
// Output is deterministic (same ordering as [WriteJSON]) so it diffs cleanly
// under version control. Render it with any Graphviz installation:
//
//	dot -Tsvg suite.dot -o suite.svg
func WriteDOT(g *graph.Graph, w io.Writer) error {
	p := snapshot(g)

	var b strings.Builder
	b.WriteString("digraph docgraph {\n")
	b.WriteString("  rankdir=BT;\n")
	b.WriteString("  node [shape=box,fontname=\"Helvetica\"];\n")

	for _, d := range p.Nodes {
		fmt.Fprintf(&b, "  %s;\n", quoteID(d.ID))
	}
	for _, r := range p.Edges {
		style := edgeStyles[graph.RelType(r.Type)]
		fmt.Fprintf(&b, "  %s -> %s [label=%q,%s];\n",
			quoteID(r.From), quoteID(r.To), r.Type, style)
	}
	b.WriteString("}\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// quoteID wraps an ID in DOT quotes, escaping embedded quotes.
func quoteID(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `\"`) + `"`
}
