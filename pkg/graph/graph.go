package graph

import (
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrUnknownSourceNode is returned by [Graph.AddEdge] when the From node
	// does not exist in the graph.
	ErrUnknownSourceNode = errors.New("unknown source node")

	// ErrUnknownTargetNode is returned by [Graph.AddEdge] when the To node
	// does not exist in the graph.
	ErrUnknownTargetNode = errors.New("unknown target node")
)

// Graph is a directed relationship graph with forward and reverse adjacency
// indexes. The zero value is not usable - use New.
//
// Graph is not safe for concurrent use without external synchronization.
type Graph struct {
	id      string
	nodes   map[string]*Node
	out     map[string][]*Edge // from -> outgoing edges (dependencies)
	in      map[string][]*Edge // to -> incoming edges (dependents)
	version uint64

	maxDepth   int
	structural map[RelType]bool
}

// New creates an empty graph with the given options.
func New(opts Options) *Graph {
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	maxDepth := opts.MaxTraversalDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxTraversalDepth
	}
	types := opts.StructuralTypes
	if types == nil {
		types = DefaultStructuralTypes()
	}
	structural := make(map[RelType]bool, len(types))
	for _, t := range types {
		structural[t] = true
	}
	return &Graph{
		id:         id,
		nodes:      make(map[string]*Node),
		out:        make(map[string][]*Edge),
		in:         make(map[string][]*Edge),
		maxDepth:   maxDepth,
		structural: structural,
	}
}

// ID returns the graph instance identifier. Together with Version it forms
// the cache key namespace, so results from a replaced graph can never be
// served for its successor.
func (g *Graph) ID() string { return g.id }

// Version returns the monotonic mutation counter. Every successful
// structural mutation increments it; it is the sole signal caches rely on
// for invalidation.
func (g *Graph) Version() uint64 { return g.version }

// Structural reports whether the relationship type participates in the DAG
// invariant.
func (g *Graph) Structural(t RelType) bool { return g.structural[t] }

// AddNode adds a document node, or updates its metadata if it already
// exists. Returns true if the node was created. Re-adding never duplicates.
// The id and metadata are assumed validated by the caller.
func (g *Graph) AddNode(id string, meta Metadata) bool {
	if meta == nil {
		meta = Metadata{}
	}
	if n, ok := g.nodes[id]; ok {
		n.Meta = meta
		g.version++
		return false
	}
	g.nodes[id] = &Node{ID: id, Meta: meta}
	g.version++
	return true
}

// Node returns a copy of the node with the given id.
func (g *Graph) Node(id string) (Node, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// HasNode reports whether a node with the given id exists.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Nodes returns copies of all nodes. The order is not guaranteed.
func (g *Graph) Nodes() []Node {
	nodes := make([]Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		nodes = append(nodes, *n)
	}
	return nodes
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, edges := range g.out {
		count += len(edges)
	}
	return count
}

// Edges returns copies of all edges. The order is not guaranteed.
func (g *Graph) Edges() []Edge {
	var edges []Edge
	for _, list := range g.out {
		for _, e := range list {
			edges = append(edges, *e)
		}
	}
	return edges
}

// AddEdge adds a directed relationship between two existing nodes.
//
// Returns ErrUnknownSourceNode or ErrUnknownTargetNode if an endpoint is
// missing. For structural relationship types the cycle guard runs before any
// mutation: if the edge would close a cycle the graph is left unchanged and
// a *derrors.CircularReferenceError carrying the offending path is returned.
//
// At most one edge exists per (from, to, type) triple; re-adding updates
// strength and metadata in place. Every successful call bumps the version.
func (g *Graph) AddEdge(e Edge) error {
	if _, ok := g.nodes[e.From]; !ok {
		return ErrUnknownSourceNode
	}
	if _, ok := g.nodes[e.To]; !ok {
		return ErrUnknownTargetNode
	}

	if g.structural[e.Type] {
		if err := g.checkCycle(e.From, e.To); err != nil {
			return err
		}
	}

	g.applyEdge(e)
	g.version++
	return nil
}

// applyEdge inserts or updates the edge without guard checks or version
// bookkeeping. Callers are responsible for both.
func (g *Graph) applyEdge(e Edge) {
	if e.Meta == nil {
		e.Meta = Metadata{}
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	for _, existing := range g.out[e.From] {
		if existing.To == e.To && existing.Type == e.Type {
			existing.Strength = e.Strength
			existing.Meta = e.Meta
			return
		}
	}
	edge := &e
	g.out[e.From] = append(g.out[e.From], edge)
	g.in[e.To] = append(g.in[e.To], edge)
}

// RemoveEdge removes the edge (from, to, type) if it exists.
// Returns false without error if the edge is absent.
func (g *Graph) RemoveEdge(from, to string, t RelType) bool {
	match := func(e *Edge) bool { return e.From == from && e.To == to && e.Type == t }
	before := len(g.out[from])
	g.out[from] = slices.DeleteFunc(g.out[from], match)
	if len(g.out[from]) == before {
		return false
	}
	g.in[to] = slices.DeleteFunc(g.in[to], match)
	g.version++
	return true
}

// HasEdge reports whether the edge (from, to, type) exists.
func (g *Graph) HasEdge(from, to string, t RelType) bool {
	for _, e := range g.out[from] {
		if e.To == to && e.Type == t {
			return true
		}
	}
	return false
}

// Dependencies returns copies of the outgoing edges of a node: the
// relationships this document holds toward others.
func (g *Graph) Dependencies(id string) []Edge {
	return copyEdges(g.out[id])
}

// Dependents returns copies of the incoming edges of a node: the
// relationships other documents hold toward this one. This is the reverse
// adjacency used by impact analysis, and is an O(degree) direct read.
func (g *Graph) Dependents(id string) []Edge {
	return copyEdges(g.in[id])
}

func copyEdges(list []*Edge) []Edge {
	if len(list) == 0 {
		return nil
	}
	edges := make([]Edge, len(list))
	for i, e := range list {
		edges[i] = *e
	}
	return edges
}

// Clone returns a deep copy of the graph's topology sharing the same
// instance id and version. Metadata maps are shared between the original and
// the clone; they are treated as immutable after sanitization.
//
// Clones give long-running analyses a consistent snapshot without holding
// the writer lock for their full duration.
func (g *Graph) Clone() *Graph {
	clone := &Graph{
		id:         g.id,
		nodes:      make(map[string]*Node, len(g.nodes)),
		out:        make(map[string][]*Edge, len(g.out)),
		in:         make(map[string][]*Edge, len(g.in)),
		version:    g.version,
		maxDepth:   g.maxDepth,
		structural: g.structural,
	}
	for id, n := range g.nodes {
		copied := *n
		clone.nodes[id] = &copied
	}
	for _, list := range g.out {
		for _, e := range list {
			copied := *e
			clone.out[copied.From] = append(clone.out[copied.From], &copied)
			clone.in[copied.To] = append(clone.in[copied.To], &copied)
		}
	}
	return clone
}
