package engine

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/docfoundry/docgraph/pkg/cache"
	"github.com/docfoundry/docgraph/pkg/consistency"
	derrors "github.com/docfoundry/docgraph/pkg/errors"
	"github.com/docfoundry/docgraph/pkg/graph"
	"github.com/docfoundry/docgraph/pkg/impact"
	"github.com/docfoundry/docgraph/pkg/observability"
)

// AnalyzeImpact computes the blast radius of a change to docID.
//
// Results are cached keyed by the analysis parameters plus the graph's
// instance ID and version, so a hit is always computed from the current
// graph generation. While a batch is open the cache is bypassed entirely:
// staged edges are not visible to analyses and must not pollute entries for
// the committed graph.
func (e *Engine) AnalyzeImpact(ctx context.Context, docID string, opts impact.Options) (*impact.Result, error) {
	if err := derrors.ValidateID(docID); err != nil {
		return nil, err
	}
	opts = e.fillImpactOpts(opts)

	observability.Engine().OnAnalysisStart(ctx, "impact", docID)
	started := time.Now()

	res, err := e.analyzeImpact(ctx, docID, opts)

	observability.Engine().OnAnalysisComplete(ctx, "impact", docID, time.Since(started), err)
	if err != nil {
		e.logger.Warn("impact analysis failed", "doc", docID, "err", err)
		return nil, err
	}
	e.logger.Debug("impact analyzed",
		"doc", docID, "total", res.TotalAffected, "severity", res.Severity)
	return res, err
}

func (e *Engine) analyzeImpact(ctx context.Context, docID string, opts impact.Options) (*impact.Result, error) {
	keyOpts := cache.ImpactKeyOpts{
		DocID:             docID,
		ChangeType:        string(opts.ChangeType),
		Strategy:          string(e.strategy),
		MaxDepth:          opts.MaxDepth,
		StrengthThreshold: opts.StrengthThreshold,
		CriticalThreshold: opts.CriticalThreshold,
	}

	snap, key, cacheable := e.snapshotForAnalysis(func(id string, ver uint64) string {
		return e.keyer.ImpactKey(id, ver, keyOpts)
	})

	if cacheable {
		if data, hit, err := e.cache.Get(ctx, key); err == nil && hit {
			var res impact.Result
			if json.Unmarshal(data, &res) == nil {
				observability.Cache().OnCacheHit(ctx, "impact")
				return &res, nil
			}
		}
		observability.Cache().OnCacheMiss(ctx, "impact")
	}

	res, err := e.analyzer.Analyze(ctx, snap, docID, opts)
	if err != nil {
		return nil, err
	}

	if cacheable {
		if data, err := json.Marshal(res); err == nil {
			_ = e.cache.Set(ctx, key, data, e.limits.CacheTTL())
			observability.Cache().OnCacheSet(ctx, "impact", len(data))
		}
	}
	return res, nil
}

// AnalyzeSuiteConsistency sweeps the suite for orphans, coverage gaps, and
// broken references. docIDs is the authoritative document list; expectedIDs
// is optional. Caching follows the same rules as AnalyzeImpact.
func (e *Engine) AnalyzeSuiteConsistency(ctx context.Context, docIDs, expectedIDs []string) (*consistency.Report, error) {
	docs := sortedCopy(docIDs)
	expected := sortedCopy(expectedIDs)

	observability.Engine().OnAnalysisStart(ctx, "consistency", "")
	started := time.Now()

	report, err := e.analyzeConsistency(ctx, docs, expected)

	observability.Engine().OnAnalysisComplete(ctx, "consistency", "", time.Since(started), err)
	if err != nil {
		e.logger.Warn("consistency analysis failed", "err", err)
		return nil, err
	}
	e.logger.Debug("consistency analyzed",
		"documents", report.TotalDocuments, "score", report.Score)
	return report, err
}

func (e *Engine) analyzeConsistency(ctx context.Context, docs, expected []string) (*consistency.Report, error) {
	keyOpts := cache.ConsistencyKeyOpts{Docs: docs, Expected: expected}

	snap, key, cacheable := e.snapshotForAnalysis(func(id string, ver uint64) string {
		return e.keyer.ConsistencyKey(id, ver, keyOpts)
	})

	if cacheable {
		if data, hit, err := e.cache.Get(ctx, key); err == nil && hit {
			var report consistency.Report
			if json.Unmarshal(data, &report) == nil {
				observability.Cache().OnCacheHit(ctx, "consistency")
				return &report, nil
			}
		}
		observability.Cache().OnCacheMiss(ctx, "consistency")
	}

	report, err := consistency.Analyze(ctx, snap, docs, expected)
	if err != nil {
		return nil, err
	}

	if cacheable {
		if data, err := json.Marshal(report); err == nil {
			_ = e.cache.Set(ctx, key, data, e.limits.CacheTTL())
			observability.Cache().OnCacheSet(ctx, "consistency", len(data))
		}
	}
	return report, nil
}

// FindCycles enumerates cycles across all relationship types, as a
// diagnostic for suites whose annotative edges have grown tangles.
func (e *Engine) FindCycles() ([][]string, error) {
	return e.Snapshot().FindCycles()
}

// snapshotForAnalysis clones the graph under a brief read section and
// returns it with the cache key for the cloned generation. cacheable is
// false while a batch is open.
func (e *Engine) snapshotForAnalysis(keyFn func(id string, ver uint64) string) (*graph.Graph, string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.g.Clone(), keyFn(e.g.ID(), e.g.Version()), e.batch == nil
}

func (e *Engine) fillImpactOpts(opts impact.Options) impact.Options {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = e.limits.MaxImpactDepth
	}
	if opts.ChangeType == "" {
		opts.ChangeType = impact.Modification
	}
	if opts.CriticalThreshold <= 0 {
		opts.CriticalThreshold = e.limits.CriticalThreshold
	}
	// Filled before keying so a defaulted run and an explicit run with the
	// same effective threshold share one cache entry.
	if opts.StrengthThreshold <= 0 {
		opts.StrengthThreshold = impact.DefaultStrengthThreshold
	}
	return opts
}

func sortedCopy(ids []string) []string {
	if ids == nil {
		return nil
	}
	out := make([]string, len(ids))
	copy(out, ids)
	sort.Strings(out)
	return out
}
