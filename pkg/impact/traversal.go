package impact

import (
	"context"
	"time"

	derrors "github.com/docfoundry/docgraph/pkg/errors"
	"github.com/docfoundry/docgraph/pkg/graph"
)

// basicTraversal is the default strategy: breadth-first over reverse
// adjacency, bounded by hop depth.
type basicTraversal struct{}

func (basicTraversal) String() string { return string(StrategyBasic) }

func (b *basicTraversal) Analyze(ctx context.Context, g *graph.Graph, docID string, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	started := time.Now()

	if !g.HasNode(docID) {
		return nil, derrors.New(derrors.ErrCodeInvalidID, "unknown document: %s", docID)
	}

	res := &Result{DocumentID: docID, ChangeType: opts.ChangeType, Strategy: StrategyBasic}

	// The visited set also guards against cycles: batch staging may have
	// temporarily broken the DAG invariant for annotative edges.
	visited := map[string]bool{docID: true}
	frontier := []string{docID}

	var direct, indirect []string
	var strengthSum float64
	var edgeCount int

	for depth := 1; depth <= opts.MaxDepth && len(frontier) > 0; depth++ {
		if err := ctx.Err(); err != nil {
			return nil, derrors.Wrap(derrors.ErrCodeResourceLimit, err,
				"impact analysis cancelled at depth %d", depth)
		}
		var next []string
		for _, id := range frontier {
			for _, e := range g.Dependents(id) {
				strengthSum += e.Strength
				edgeCount++
				if visited[e.From] {
					continue
				}
				visited[e.From] = true
				next = append(next, e.From)
				if depth == 1 {
					direct = append(direct, e.From)
				} else {
					indirect = append(indirect, e.From)
				}
			}
		}
		frontier = next
	}

	finalize(res, direct, indirect, strengthSum, edgeCount, opts, started)
	return res, nil
}

// weightedTraversal shares the BFS skeleton but expands a path only while
// the product of relationship strengths along it stays at or above the
// strength threshold. Weakly coupled chains stop propagating even inside
// the depth bound, which still applies as a hard safety stop.
type weightedTraversal struct{}

func (weightedTraversal) String() string { return string(StrategyWeighted) }

func (w *weightedTraversal) Analyze(ctx context.Context, g *graph.Graph, docID string, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	started := time.Now()

	if !g.HasNode(docID) {
		return nil, derrors.New(derrors.ErrCodeInvalidID, "unknown document: %s", docID)
	}

	res := &Result{DocumentID: docID, ChangeType: opts.ChangeType, Strategy: StrategyWeighted}

	type entry struct {
		id       string
		strength float64 // cumulative product along the strongest discovered path
	}

	visited := map[string]bool{docID: true}
	frontier := []entry{{id: docID, strength: 1.0}}

	var direct, indirect []string
	var strengthSum float64
	var edgeCount int

	for depth := 1; depth <= opts.MaxDepth && len(frontier) > 0; depth++ {
		if err := ctx.Err(); err != nil {
			return nil, derrors.Wrap(derrors.ErrCodeResourceLimit, err,
				"impact analysis cancelled at depth %d", depth)
		}
		var next []entry
		for _, cur := range frontier {
			for _, e := range g.Dependents(cur.id) {
				strengthSum += e.Strength
				edgeCount++
				cumulative := cur.strength * e.Strength
				// The direct set is always exact: the threshold only
				// gates propagation beyond level 1.
				if depth > 1 && cumulative < opts.StrengthThreshold {
					continue
				}
				if visited[e.From] {
					continue
				}
				visited[e.From] = true
				if depth == 1 {
					direct = append(direct, e.From)
				} else {
					indirect = append(indirect, e.From)
				}
				if cumulative >= opts.StrengthThreshold {
					next = append(next, entry{id: e.From, strength: cumulative})
				}
			}
		}
		frontier = next
	}

	finalize(res, direct, indirect, strengthSum, edgeCount, opts, started)
	return res, nil
}
