package graph

import (
	"slices"
	"sort"

	derrors "github.com/docfoundry/docgraph/pkg/errors"
)

// checkCycle rejects the proposed edge (from, to) if a structural path
// already leads from to back to from.
//
// The search is an iterative, explicit-stack DFS over forward structural
// edges; parent links reconstruct the offending path for diagnostics. If the
// traversal exceeds the configured depth bound it fails closed with a
// RESOURCE_LIMIT error rather than reporting "no cycle".
func (g *Graph) checkCycle(from, to string) error {
	if from == to {
		return &derrors.CircularReferenceError{From: from, To: to, Path: []string{from}}
	}

	type frame struct {
		id    string
		depth int
	}
	visited := make(map[string]bool)
	parent := make(map[string]string)
	stack := []frame{{id: to, depth: 0}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.depth > g.maxDepth {
			return derrors.New(derrors.ErrCodeResourceLimit,
				"cycle check exceeded maximum traversal depth %d", g.maxDepth)
		}
		if f.id == from {
			return &derrors.CircularReferenceError{From: from, To: to, Path: g.tracePath(parent, to, from)}
		}
		if visited[f.id] {
			continue
		}
		visited[f.id] = true

		for _, e := range g.out[f.id] {
			if !g.structural[e.Type] || visited[e.To] {
				continue
			}
			if _, seen := parent[e.To]; !seen {
				parent[e.To] = f.id
			}
			stack = append(stack, frame{id: e.To, depth: f.depth + 1})
		}
	}
	return nil
}

// tracePath rebuilds the discovered path start -> ... -> end from parent
// links recorded during the reachability search.
func (g *Graph) tracePath(parent map[string]string, start, end string) []string {
	path := []string{end}
	for cur := end; cur != start; {
		prev, ok := parent[cur]
		if !ok {
			break
		}
		path = append(path, prev)
		cur = prev
	}
	slices.Reverse(path)
	return path
}

// FindCycles enumerates cycles in the graph for diagnostics.
//
// All relationship types are scanned, not just structural ones: structural
// cycles indicate a broken invariant (possible only through batch staging),
// while annotative cycles are legitimate but often worth surfacing.
//
// The traversal is an iterative three-state (unvisited, in-progress, done)
// DFS with an explicit frame stack, so deep chains cannot overflow the call
// stack. One cycle is reported per back edge. Exceeding the configured depth
// bound returns a RESOURCE_LIMIT error.
func (g *Graph) FindCycles() ([][]string, error) {
	const (
		white = iota
		gray
		black
	)

	type frame struct {
		id   string
		next int
	}

	// Deterministic start order keeps cycle output stable across runs.
	starts := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		starts = append(starts, id)
	}
	sort.Strings(starts)

	color := make(map[string]int, len(g.nodes))
	var cycles [][]string

	for _, start := range starts {
		if color[start] != white {
			continue
		}
		stack := []frame{{id: start}}
		color[start] = gray
		path := []string{start}

		for len(stack) > 0 {
			if len(stack) > g.maxDepth {
				return nil, derrors.New(derrors.ErrCodeResourceLimit,
					"cycle enumeration exceeded maximum traversal depth %d", g.maxDepth)
			}
			f := &stack[len(stack)-1]
			children := g.out[f.id]
			if f.next < len(children) {
				child := children[f.next].To
				f.next++
				switch color[child] {
				case white:
					color[child] = gray
					stack = append(stack, frame{id: child})
					path = append(path, child)
				case gray:
					// Back edge: the cycle is the path suffix from child.
					if idx := slices.Index(path, child); idx >= 0 {
						cycles = append(cycles, slices.Clone(path[idx:]))
					}
				}
				continue
			}
			color[f.id] = black
			stack = stack[:len(stack)-1]
			path = path[:len(path)-1]
		}
	}
	return cycles, nil
}

// ApplyBatch commits a set of staged edges atomically.
//
// Each edge must reference existing nodes. Instead of running the per-edge
// cycle guard (O(edges * graph) for bulk loads), the staged structural edges
// are checked once against the union of the committed graph and the batch:
// if any cycle exists in the union, the entire batch is rejected with the
// offending path and the graph is left byte-for-byte unchanged.
//
// On success all edges are applied through the guard-free insertion path and
// the version is bumped exactly once.
func (g *Graph) ApplyBatch(edges []Edge) error {
	for _, e := range edges {
		if _, ok := g.nodes[e.From]; !ok {
			return ErrUnknownSourceNode
		}
		if _, ok := g.nodes[e.To]; !ok {
			return ErrUnknownTargetNode
		}
	}

	if path := g.unionCycle(edges); path != nil {
		// The cycle closes from the last path element back to the first.
		return &derrors.CircularReferenceError{From: path[len(path)-1], To: path[0], Path: path}
	}

	for _, e := range edges {
		g.applyEdge(e)
	}
	g.version++
	return nil
}

// unionCycle runs a three-color DFS over the structural edges of the
// committed graph plus the staged edges, returning the first cycle found.
func (g *Graph) unionCycle(staged []Edge) []string {
	adj := make(map[string][]string, len(g.nodes))
	for from, list := range g.out {
		for _, e := range list {
			if g.structural[e.Type] {
				adj[from] = append(adj[from], e.To)
			}
		}
	}
	for _, e := range staged {
		if g.structural[e.Type] {
			adj[e.From] = append(adj[e.From], e.To)
		}
	}

	const (
		white = iota
		gray
		black
	)
	type frame struct {
		id   string
		next int
	}

	starts := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		starts = append(starts, id)
	}
	sort.Strings(starts)

	color := make(map[string]int, len(g.nodes))
	for _, start := range starts {
		if color[start] != white {
			continue
		}
		stack := []frame{{id: start}}
		color[start] = gray
		path := []string{start}

		for len(stack) > 0 {
			f := &stack[len(stack)-1]
			children := adj[f.id]
			if f.next < len(children) {
				child := children[f.next]
				f.next++
				switch color[child] {
				case white:
					color[child] = gray
					stack = append(stack, frame{id: child})
					path = append(path, child)
				case gray:
					if idx := slices.Index(path, child); idx >= 0 {
						return slices.Clone(path[idx:])
					}
				}
				continue
			}
			color[f.id] = black
			stack = stack[:len(stack)-1]
			path = path[:len(path)-1]
		}
	}
	return nil
}
