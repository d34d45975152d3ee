package graph_test

import (
	"fmt"

	"github.com/docfoundry/docgraph/pkg/graph"
)

func Example() {
	g := graph.New(graph.Options{})
	g.AddNode("guide/setup", nil)
	g.AddNode("spec/auth", nil)
	g.AddNode("api/tokens", nil)

	_ = g.AddEdge(graph.Edge{From: "guide/setup", To: "spec/auth", Type: graph.DependsOn, Strength: 0.9})
	_ = g.AddEdge(graph.Edge{From: "api/tokens", To: "spec/auth", Type: graph.Implements, Strength: 1.0})

	// spec/auth cannot depend on a document that depends on it.
	err := g.AddEdge(graph.Edge{From: "spec/auth", To: "guide/setup", Type: graph.DependsOn, Strength: 0.5})
	fmt.Println(err)

	for _, e := range g.Dependents("spec/auth") {
		fmt.Printf("%s %s spec/auth\n", e.From, e.Type)
	}

	// Unordered output:
	// circular reference: edge spec/auth -> guide/setup would close the path guide/setup -> spec/auth
	// guide/setup depends_on spec/auth
	// api/tokens implements spec/auth
}
