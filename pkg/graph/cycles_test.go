package graph

import (
	stderrors "errors"
	"fmt"
	"slices"
	"testing"

	derrors "github.com/docfoundry/docgraph/pkg/errors"
)

func TestCycleGuardRejectsWithPath(t *testing.T) {
	g := newTestGraph(t, "A", "B", "C", "D")
	mustAddEdge(t, g, "A", "B", DependsOn)
	mustAddEdge(t, g, "B", "C", DependsOn)
	mustAddEdge(t, g, "A", "D", References)

	before := g.Version()
	err := g.AddEdge(Edge{From: "C", To: "A", Type: DependsOn})
	var cre *derrors.CircularReferenceError
	if !stderrors.As(err, &cre) {
		t.Fatalf("expected CircularReferenceError, got %v", err)
	}
	if !slices.Equal(cre.Path, []string{"A", "B", "C"}) {
		t.Errorf("path unexpected: %v", cre.Path)
	}
	if g.Version() != before {
		t.Error("rejected edge must not bump version")
	}
	if g.HasEdge("C", "A", DependsOn) {
		t.Error("rejected edge must not be applied")
	}
}

func TestCycleGuardSelfLoop(t *testing.T) {
	g := newTestGraph(t, "A")
	err := g.AddEdge(Edge{From: "A", To: "A", Type: DependsOn})
	if !derrors.Is(err, derrors.ErrCodeCircularReference) {
		t.Errorf("self loop should be rejected, got %v", err)
	}
}

func TestCycleGuardAllowsAnnotativeCycles(t *testing.T) {
	g := newTestGraph(t, "A", "B")
	mustAddEdge(t, g, "A", "B", References)
	if err := g.AddEdge(Edge{From: "B", To: "A", Type: References}); err != nil {
		t.Errorf("reference cycles are legitimate: %v", err)
	}
	// Cross-type: a structural edge opposing a reference edge is fine too.
	if err := g.AddEdge(Edge{From: "B", To: "A", Type: DependsOn}); err != nil {
		t.Errorf("structural edge against annotative back-edge should pass: %v", err)
	}
}

func TestCycleGuardDeepChain(t *testing.T) {
	// A 1,000-node chain is well within the default bound and must not
	// overflow anything.
	g := New(Options{})
	for i := 0; i < 1000; i++ {
		g.AddNode(fmt.Sprintf("doc_%d", i), nil)
	}
	for i := 0; i < 999; i++ {
		mustAddEdge(t, g, fmt.Sprintf("doc_%d", i), fmt.Sprintf("doc_%d", i+1), DependsOn)
	}
	// Closing the chain end-to-start is a cycle through all 1,000 nodes.
	err := g.AddEdge(Edge{From: "doc_999", To: "doc_0", Type: DependsOn})
	var cre *derrors.CircularReferenceError
	if !stderrors.As(err, &cre) {
		t.Fatalf("expected CircularReferenceError, got %v", err)
	}
	if len(cre.Path) != 1000 {
		t.Errorf("path should span the whole chain, got %d nodes", len(cre.Path))
	}
}

func TestCycleGuardFailsClosedOnDepth(t *testing.T) {
	g := New(Options{MaxTraversalDepth: 5})
	batch := make([]Edge, 0, 9)
	for i := 0; i < 10; i++ {
		g.AddNode(fmt.Sprintf("doc_%d", i), nil)
	}
	for i := 0; i < 9; i++ {
		batch = append(batch, Edge{
			From: fmt.Sprintf("doc_%d", i), To: fmt.Sprintf("doc_%d", i+1),
			Type: DependsOn, Strength: 1.0,
		})
	}
	// Batch commit bypasses the per-edge guard, so the 9-hop chain goes in
	// despite the tiny depth limit.
	if err := g.ApplyBatch(batch); err != nil {
		t.Fatalf("ApplyBatch error: %v", err)
	}
	// doc_9 -> doc_0 closes a 10-node cycle, but finding it requires a
	// 9-hop walk. The guard must fail closed with RESOURCE_LIMIT rather
	// than report a false "no cycle".
	err := g.AddEdge(Edge{From: "doc_9", To: "doc_0", Type: DependsOn})
	if !derrors.Is(err, derrors.ErrCodeResourceLimit) {
		t.Errorf("expected RESOURCE_LIMIT, got %v", err)
	}
	if g.HasEdge("doc_9", "doc_0", DependsOn) {
		t.Error("edge must not be applied when the guard fails closed")
	}
}

func TestFindCycles(t *testing.T) {
	g := newTestGraph(t, "A", "B", "C", "D")
	mustAddEdge(t, g, "A", "B", DependsOn)
	mustAddEdge(t, g, "B", "C", DependsOn)

	cycles, err := g.FindCycles()
	if err != nil {
		t.Fatalf("FindCycles error: %v", err)
	}
	if len(cycles) != 0 {
		t.Errorf("acyclic graph should report no cycles: %v", cycles)
	}

	// Annotative cycles are allowed in, and FindCycles surfaces them.
	mustAddEdge(t, g, "C", "D", References)
	mustAddEdge(t, g, "D", "B", References)
	cycles, err = g.FindCycles()
	if err != nil {
		t.Fatalf("FindCycles error: %v", err)
	}
	if len(cycles) != 1 {
		t.Fatalf("expected one cycle, got %v", cycles)
	}
	if !slices.Equal(cycles[0], []string{"B", "C", "D"}) {
		t.Errorf("cycle unexpected: %v", cycles[0])
	}
}

func TestApplyBatchAllOrNothing(t *testing.T) {
	g := New(Options{})
	const n = 1000
	for i := 0; i < n; i++ {
		g.AddNode(fmt.Sprintf("doc_%d", i), nil)
	}

	edgesBefore := g.EdgeCount()
	versionBefore := g.Version()

	// 999 valid chain edges plus one that closes the loop.
	batch := make([]Edge, 0, n)
	for i := 0; i < n-1; i++ {
		batch = append(batch, Edge{
			From: fmt.Sprintf("doc_%d", i), To: fmt.Sprintf("doc_%d", i+1),
			Type: DependsOn, Strength: 1.0,
		})
	}
	batch = append(batch, Edge{From: fmt.Sprintf("doc_%d", n-1), To: "doc_0", Type: DependsOn, Strength: 1.0})

	err := g.ApplyBatch(batch)
	if !derrors.Is(err, derrors.ErrCodeCircularReference) {
		t.Fatalf("expected CIRCULAR_REFERENCE, got %v", err)
	}
	if g.EdgeCount() != edgesBefore {
		t.Errorf("batch must commit zero edges on failure, got %d", g.EdgeCount())
	}
	if g.Version() != versionBefore {
		t.Error("failed batch must not bump version")
	}
}

func TestApplyBatchCommit(t *testing.T) {
	g := newTestGraph(t, "A", "B", "C")
	versionBefore := g.Version()

	batch := []Edge{
		{From: "A", To: "B", Type: DependsOn, Strength: 0.9},
		{From: "B", To: "C", Type: DependsOn, Strength: 0.9},
		{From: "A", To: "C", Type: References, Strength: 0.3},
	}
	if err := g.ApplyBatch(batch); err != nil {
		t.Fatalf("ApplyBatch error: %v", err)
	}
	if g.EdgeCount() != 3 {
		t.Errorf("expected 3 edges, got %d", g.EdgeCount())
	}
	if g.Version() != versionBefore+1 {
		t.Errorf("batch commit must bump version exactly once, got %d (was %d)", g.Version(), versionBefore)
	}
}

func TestCycleGuardActiveAfterBatch(t *testing.T) {
	g := newTestGraph(t, "A", "B", "C")
	if err := g.ApplyBatch([]Edge{
		{From: "A", To: "B", Type: DependsOn, Strength: 1.0},
		{From: "B", To: "C", Type: DependsOn, Strength: 1.0},
	}); err != nil {
		t.Fatalf("ApplyBatch error: %v", err)
	}
	// The first post-batch single edge runs the guard as usual.
	err := g.AddEdge(Edge{From: "C", To: "A", Type: DependsOn})
	if !derrors.Is(err, derrors.ErrCodeCircularReference) {
		t.Errorf("expected CIRCULAR_REFERENCE, got %v", err)
	}
}

func TestApplyBatchUnknownEndpoint(t *testing.T) {
	g := newTestGraph(t, "A")
	err := g.ApplyBatch([]Edge{{From: "A", To: "ghost", Type: DependsOn}})
	if !stderrors.Is(err, ErrUnknownTargetNode) {
		t.Errorf("expected ErrUnknownTargetNode, got %v", err)
	}
	if g.EdgeCount() != 0 {
		t.Error("failed batch must commit nothing")
	}
}

func mustAddEdge(t *testing.T, g *Graph, from, to string, typ RelType) {
	t.Helper()
	if err := g.AddEdge(Edge{From: from, To: to, Type: typ, Strength: 1.0}); err != nil {
		t.Fatalf("AddEdge %s->%s: %v", from, to, err)
	}
}
