package engine

import (
	"context"
	"time"

	"github.com/docfoundry/docgraph/pkg/graph"
	"github.com/docfoundry/docgraph/pkg/observability"
)

// batchState holds relationships staged between EnableBatchMode and commit.
type batchState struct {
	caller string
	staged []graph.Edge
}

// EnableBatchMode starts staging relationship additions instead of applying
// them. Staged edges are validated individually on add but cycle-checked
// only at commit, against the union of the committed graph and the batch.
// Only one batch may be open at a time.
func (e *Engine) EnableBatchMode(ctx context.Context, caller string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.batch != nil {
		return ErrBatchActive
	}
	e.batch = &batchState{caller: caller}
	e.logger.Debug("batch opened", "caller", caller)
	return nil
}

// CommitBatch applies every staged relationship atomically. If any cycle
// exists in the union, nothing is applied, the error carries the offending
// path, and the batch stays open so the caller can inspect or discard it.
// A successful commit bumps the graph version exactly once.
func (e *Engine) CommitBatch(ctx context.Context, caller string) error {
	if err := e.limiter.Allow(caller); err != nil {
		return err
	}

	e.mu.Lock()
	if e.batch == nil {
		e.mu.Unlock()
		return ErrNoBatch
	}
	staged := e.batch.staged
	started := time.Now()
	err := e.g.ApplyBatch(staged)
	if err == nil {
		e.batch = nil
	}
	e.mu.Unlock()

	observability.Engine().OnBatchCommit(ctx, len(staged), time.Since(started), err)
	if err != nil {
		e.logger.Warn("batch rejected", "staged", len(staged), "err", err)
		return err
	}
	e.logger.Info("batch committed", "staged", len(staged), "caller", caller)
	return nil
}

// DiscardBatch drops all staged relationships and closes the batch.
func (e *Engine) DiscardBatch() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.batch == nil {
		return ErrNoBatch
	}
	dropped := len(e.batch.staged)
	e.batch = nil
	e.logger.Debug("batch discarded", "staged", dropped)
	return nil
}

// InBatch reports whether a batch is open.
func (e *Engine) InBatch() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.batch != nil
}

// StagedCount reports how many relationships are staged.
func (e *Engine) StagedCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.batch == nil {
		return 0
	}
	return len(e.batch.staged)
}

// stageEdge validates endpoints and appends the edge to the open batch.
// Caller holds the write lock.
func (e *Engine) stageEdge(edge graph.Edge) error {
	if !e.g.HasNode(edge.From) {
		return graph.ErrUnknownSourceNode
	}
	if !e.g.HasNode(edge.To) {
		return graph.ErrUnknownTargetNode
	}
	e.batch.staged = append(e.batch.staged, edge)
	return nil
}
