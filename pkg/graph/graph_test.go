package graph

import (
	"errors"
	"testing"

	derrors "github.com/docfoundry/docgraph/pkg/errors"
)

func newTestGraph(t *testing.T, ids ...string) *Graph {
	t.Helper()
	g := New(Options{})
	for _, id := range ids {
		g.AddNode(id, nil)
	}
	return g
}

func TestAddNodeIdempotent(t *testing.T) {
	g := New(Options{})
	if created := g.AddNode("doc_a", Metadata{"title": "v1"}); !created {
		t.Error("first AddNode should report created")
	}
	if created := g.AddNode("doc_a", Metadata{"title": "v2"}); created {
		t.Error("second AddNode should report updated, not created")
	}
	if g.NodeCount() != 1 {
		t.Errorf("node count should be 1, got %d", g.NodeCount())
	}
	n, ok := g.Node("doc_a")
	if !ok {
		t.Fatal("node should exist")
	}
	if n.Meta["title"] != "v2" {
		t.Errorf("metadata should be updated, got %v", n.Meta["title"])
	}
}

func TestAddEdgeAndLookups(t *testing.T) {
	g := newTestGraph(t, "doc_a", "doc_b")
	err := g.AddEdge(Edge{From: "doc_a", To: "doc_b", Type: DependsOn, Strength: 0.8})
	if err != nil {
		t.Fatalf("AddEdge error: %v", err)
	}

	if !g.HasEdge("doc_a", "doc_b", DependsOn) {
		t.Error("HasEdge should be true after AddEdge")
	}
	if g.HasEdge("doc_b", "doc_a", DependsOn) {
		t.Error("edges are directed")
	}
	if g.HasEdge("doc_a", "doc_b", References) {
		t.Error("HasEdge is type-sensitive")
	}

	deps := g.Dependencies("doc_a")
	if len(deps) != 1 || deps[0].To != "doc_b" {
		t.Errorf("Dependencies unexpected: %+v", deps)
	}
	dependents := g.Dependents("doc_b")
	if len(dependents) != 1 || dependents[0].From != "doc_a" {
		t.Errorf("Dependents unexpected: %+v", dependents)
	}
	if e := deps[0]; e.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set on insertion")
	}
}

func TestAddEdgeUnknownEndpoints(t *testing.T) {
	g := newTestGraph(t, "doc_a")
	if err := g.AddEdge(Edge{From: "ghost", To: "doc_a", Type: DependsOn}); !errors.Is(err, ErrUnknownSourceNode) {
		t.Errorf("expected ErrUnknownSourceNode, got %v", err)
	}
	if err := g.AddEdge(Edge{From: "doc_a", To: "ghost", Type: DependsOn}); !errors.Is(err, ErrUnknownTargetNode) {
		t.Errorf("expected ErrUnknownTargetNode, got %v", err)
	}
}

func TestAddEdgeUpdatesInPlace(t *testing.T) {
	g := newTestGraph(t, "doc_a", "doc_b")
	if err := g.AddEdge(Edge{From: "doc_a", To: "doc_b", Type: DependsOn, Strength: 0.5}); err != nil {
		t.Fatalf("AddEdge error: %v", err)
	}
	if err := g.AddEdge(Edge{From: "doc_a", To: "doc_b", Type: DependsOn, Strength: 0.9}); err != nil {
		t.Fatalf("re-AddEdge error: %v", err)
	}
	if g.EdgeCount() != 1 {
		t.Errorf("re-adding the same typed edge must not duplicate, count=%d", g.EdgeCount())
	}
	if deps := g.Dependencies("doc_a"); deps[0].Strength != 0.9 {
		t.Errorf("strength should be updated, got %v", deps[0].Strength)
	}
}

func TestRemoveEdge(t *testing.T) {
	g := newTestGraph(t, "doc_a", "doc_b")
	if g.RemoveEdge("doc_a", "doc_b", DependsOn) {
		t.Error("removing an absent edge should return false")
	}
	if err := g.AddEdge(Edge{From: "doc_a", To: "doc_b", Type: DependsOn}); err != nil {
		t.Fatalf("AddEdge error: %v", err)
	}
	if !g.RemoveEdge("doc_a", "doc_b", DependsOn) {
		t.Error("removing an existing edge should return true")
	}
	if g.HasEdge("doc_a", "doc_b", DependsOn) {
		t.Error("edge should be gone")
	}
	if len(g.Dependents("doc_b")) != 0 {
		t.Error("reverse adjacency should be cleaned up")
	}
}

func TestVersionBumps(t *testing.T) {
	g := New(Options{})
	v0 := g.Version()

	g.AddNode("doc_a", nil)
	g.AddNode("doc_b", nil)
	if g.Version() != v0+2 {
		t.Errorf("node adds should bump version, got %d", g.Version())
	}

	v := g.Version()
	if err := g.AddEdge(Edge{From: "doc_a", To: "doc_b", Type: DependsOn}); err != nil {
		t.Fatalf("AddEdge error: %v", err)
	}
	if g.Version() != v+1 {
		t.Error("edge add should bump version")
	}

	v = g.Version()
	g.RemoveEdge("doc_a", "doc_b", DependsOn)
	if g.Version() != v+1 {
		t.Error("edge remove should bump version")
	}

	// A rejected mutation must not bump the version.
	v = g.Version()
	if err := g.AddEdge(Edge{From: "doc_a", To: "ghost", Type: DependsOn}); err == nil {
		t.Fatal("expected error")
	}
	if g.Version() != v {
		t.Error("rejected mutation must leave version unchanged")
	}
}

func TestCloneIsolation(t *testing.T) {
	g := newTestGraph(t, "doc_a", "doc_b", "doc_c")
	if err := g.AddEdge(Edge{From: "doc_a", To: "doc_b", Type: DependsOn, Strength: 0.7}); err != nil {
		t.Fatalf("AddEdge error: %v", err)
	}

	clone := g.Clone()
	if clone.ID() != g.ID() || clone.Version() != g.Version() {
		t.Error("clone should share id and version")
	}

	// Mutating the original must not leak into the clone.
	if err := g.AddEdge(Edge{From: "doc_b", To: "doc_c", Type: DependsOn}); err != nil {
		t.Fatalf("AddEdge error: %v", err)
	}
	g.RemoveEdge("doc_a", "doc_b", DependsOn)

	if !clone.HasEdge("doc_a", "doc_b", DependsOn) {
		t.Error("clone lost an edge after original mutation")
	}
	if clone.HasEdge("doc_b", "doc_c", DependsOn) {
		t.Error("clone gained an edge after original mutation")
	}
}

func TestParseRelType(t *testing.T) {
	for _, s := range []string{"depends_on", "references", "implements", "validates", "documents"} {
		if _, err := ParseRelType(s); err != nil {
			t.Errorf("ParseRelType(%q) unexpected error: %v", s, err)
		}
	}
	if _, err := ParseRelType("links_to"); err == nil {
		t.Error("unknown type should fail")
	}
}

func TestStructuralConfiguration(t *testing.T) {
	// With References configured structural, a reference cycle is rejected.
	g := New(Options{StructuralTypes: []RelType{References}})
	g.AddNode("doc_a", nil)
	g.AddNode("doc_b", nil)
	if err := g.AddEdge(Edge{From: "doc_a", To: "doc_b", Type: References}); err != nil {
		t.Fatalf("AddEdge error: %v", err)
	}
	err := g.AddEdge(Edge{From: "doc_b", To: "doc_a", Type: References})
	if !derrors.Is(err, derrors.ErrCodeCircularReference) {
		t.Errorf("expected CIRCULAR_REFERENCE, got %v", err)
	}
	// DependsOn is not structural in this configuration.
	if err := g.AddEdge(Edge{From: "doc_b", To: "doc_a", Type: DependsOn}); err != nil {
		t.Errorf("non-structural cycle should be allowed: %v", err)
	}
}
