// Package engine is the façade over the document graph: every public
// operation composes validation, rate limiting, logging, and hooks around
// the core graph mutation or analysis, in that order and in plain sight.
//
// Concurrency follows a single-writer model: mutations take the write lock,
// reads take the read lock, and long-running analyses clone a snapshot under
// a brief read section and run against the immutable copy.
package engine

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/docfoundry/docgraph/pkg/cache"
	"github.com/docfoundry/docgraph/pkg/config"
	derrors "github.com/docfoundry/docgraph/pkg/errors"
	"github.com/docfoundry/docgraph/pkg/graph"
	"github.com/docfoundry/docgraph/pkg/graphio"
	"github.com/docfoundry/docgraph/pkg/impact"
	"github.com/docfoundry/docgraph/pkg/observability"
	"github.com/docfoundry/docgraph/pkg/ratelimit"
)

// Batch lifecycle errors.
var (
	// ErrBatchActive is returned when an operation requires no batch in
	// progress.
	ErrBatchActive = errors.New("batch already in progress")

	// ErrNoBatch is returned when a commit or discard finds no open batch.
	ErrNoBatch = errors.New("no batch in progress")
)

// Config assembles an Engine. The zero value works: every field has a
// usable default.
type Config struct {
	// Limits bounds traversal depth, metadata size, imports, rate limits,
	// and the cache. Zero-valued fields fall back to config.DefaultLimits.
	Limits config.Limits

	// Logger receives structured operation logs. Nil discards them.
	Logger *log.Logger

	// Cache stores serialized analysis results. Nil selects an in-process
	// LRU bounded by Limits.CacheEntries; pass cache.NewNullCache() to
	// disable caching.
	Cache cache.Cache

	// Keyer builds cache keys. Nil selects the default keyer.
	Keyer cache.Keyer

	// Strategy selects the impact analyzer. Empty selects basic traversal.
	Strategy impact.Strategy

	// SigningKey, when non-empty, signs exports and verifies imports with
	// HMAC-SHA256.
	SigningKey []byte
}

// Engine coordinates all graph access.
type Engine struct {
	mu sync.RWMutex
	g  *graph.Graph

	limits   config.Limits
	logger   *log.Logger
	cache    cache.Cache
	keyer    cache.Keyer
	analyzer impact.Analyzer
	strategy impact.Strategy
	limiter  *ratelimit.Limiter
	signKey  []byte

	batch *batchState
}

// New builds an Engine from cfg.
func New(cfg Config) (*Engine, error) {
	limits := mergeLimits(cfg.Limits)

	structural, err := parseStructuralTypes(limits.StructuralTypes)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	store := cfg.Cache
	if store == nil {
		store, err = cache.NewMemoryCache(limits.CacheEntries)
		if err != nil {
			return nil, err
		}
	}
	keyer := cfg.Keyer
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	analyzer, err := impact.NewAnalyzer(cfg.Strategy)
	if err != nil {
		return nil, err
	}

	return &Engine{
		g: graph.New(graph.Options{
			MaxTraversalDepth: limits.MaxTraversalDepth,
			StructuralTypes:   structural,
		}),
		limits:   limits,
		logger:   logger,
		cache:    store,
		keyer:    keyer,
		analyzer: analyzer,
		strategy: cfg.Strategy,
		limiter:  ratelimit.New(limits.MutationsPerMinute, limits.MutationBurst),
		signKey:  cfg.SigningKey,
	}, nil
}

// Close releases the cache backend.
func (e *Engine) Close() error {
	return e.cache.Close()
}

// AddDocument registers a document, updating its metadata if it already
// exists. The metadata is sanitized before storage.
func (e *Engine) AddDocument(ctx context.Context, caller, id string, meta graph.Metadata) error {
	if err := derrors.ValidateID(id); err != nil {
		return err
	}
	clean, err := derrors.SanitizeMetadata(meta, e.limits.MaxMetadataBytes, e.limits.MaxMetadataNesting)
	if err != nil {
		return err
	}
	if err := e.limiter.Allow(caller); err != nil {
		e.logger.Warn("mutation throttled", "op", "add_document", "caller", caller)
		return err
	}

	e.mu.Lock()
	created := e.g.AddNode(id, clean)
	e.mu.Unlock()

	observability.Engine().OnMutation(ctx, "add_document", caller, nil)
	e.logger.Debug("document added", "id", id, "created", created, "caller", caller)
	return nil
}

// AddRelationship creates or updates a typed, weighted edge between two
// documents. Structural relationships are cycle-checked; inside a batch the
// edge is staged instead and checked at commit.
func (e *Engine) AddRelationship(ctx context.Context, caller, from, to string, typ graph.RelType, strength float64, meta graph.Metadata) error {
	if err := derrors.ValidateID(from); err != nil {
		return err
	}
	if err := derrors.ValidateID(to); err != nil {
		return err
	}
	if err := derrors.ValidateStrength(strength); err != nil {
		return err
	}
	clean, err := derrors.SanitizeMetadata(meta, e.limits.MaxMetadataBytes, e.limits.MaxMetadataNesting)
	if err != nil {
		return err
	}
	if err := e.limiter.Allow(caller); err != nil {
		e.logger.Warn("mutation throttled", "op", "add_relationship", "caller", caller)
		return err
	}

	edge := graph.Edge{From: from, To: to, Type: typ, Strength: strength, Meta: clean}

	e.mu.Lock()
	if e.batch != nil {
		err = e.stageEdge(edge)
	} else {
		err = e.g.AddEdge(edge)
	}
	e.mu.Unlock()

	observability.Engine().OnMutation(ctx, "add_relationship", caller, err)
	if err != nil {
		e.logger.Warn("relationship rejected",
			"from", from, "to", to, "type", typ, "err", err)
		return err
	}
	e.logger.Debug("relationship added",
		"from", from, "to", to, "type", typ, "strength", strength, "caller", caller)
	return nil
}

// RemoveRelationship deletes an edge. Removing an absent edge is not an
// error; the first return reports whether anything was removed.
func (e *Engine) RemoveRelationship(ctx context.Context, caller, from, to string, typ graph.RelType) (bool, error) {
	if err := derrors.ValidateID(from); err != nil {
		return false, err
	}
	if err := derrors.ValidateID(to); err != nil {
		return false, err
	}
	if err := e.limiter.Allow(caller); err != nil {
		return false, err
	}

	e.mu.Lock()
	removed := e.g.RemoveEdge(from, to, typ)
	e.mu.Unlock()

	observability.Engine().OnMutation(ctx, "remove_relationship", caller, nil)
	e.logger.Debug("relationship removed",
		"from", from, "to", to, "type", typ, "removed", removed, "caller", caller)
	return removed, nil
}

// HasDocument reports whether a document exists.
func (e *Engine) HasDocument(id string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.g.HasNode(id)
}

// HasRelationship reports whether the exact edge exists.
func (e *Engine) HasRelationship(from, to string, typ graph.RelType) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.g.HasEdge(from, to, typ)
}

// GetDependencies returns the outgoing edges of a document.
func (e *Engine) GetDependencies(id string) []graph.Edge {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.g.Dependencies(id)
}

// GetDependents returns the incoming edges of a document.
func (e *Engine) GetDependents(id string) []graph.Edge {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.g.Dependents(id)
}

// DocumentCount reports the number of documents.
func (e *Engine) DocumentCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.g.NodeCount()
}

// RelationshipCount reports the number of relationships.
func (e *Engine) RelationshipCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.g.EdgeCount()
}

// Snapshot returns an isolated copy of the current graph.
func (e *Engine) Snapshot() *graph.Graph {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.g.Clone()
}

// ExportJSON writes the graph to w, signed when a signing key is configured.
func (e *Engine) ExportJSON(w io.Writer) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return graphio.WriteJSON(e.g, w, e.signKey)
}

// ExportDOT writes the graph as Graphviz DOT text.
func (e *Engine) ExportDOT(w io.Writer) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return graphio.WriteDOT(e.g, w)
}

// ImportJSON replaces the entire graph with the payload read from r. The
// payload is validated, bounded, and (when a signing key is configured)
// signature-checked before anything is replaced; on error the current graph
// is untouched. Imports are rejected while a batch is open.
func (e *Engine) ImportJSON(r io.Reader) error {
	structural, err := parseStructuralTypes(e.limits.StructuralTypes)
	if err != nil {
		return err
	}
	imported, err := graphio.ReadJSON(r, graphio.ImportOptions{
		MaxNodes:           e.limits.MaxImportNodes,
		MaxEdges:           e.limits.MaxImportEdges,
		MaxMetadataBytes:   e.limits.MaxMetadataBytes,
		MaxMetadataNesting: e.limits.MaxMetadataNesting,
		Key:                e.signKey,
		Graph: graph.Options{
			MaxTraversalDepth: e.limits.MaxTraversalDepth,
			StructuralTypes:   structural,
		},
	})
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.batch != nil {
		return ErrBatchActive
	}
	e.g = imported
	e.logger.Info("graph imported",
		"documents", imported.NodeCount(), "relationships", imported.EdgeCount())
	return nil
}

func mergeLimits(l config.Limits) config.Limits {
	d := config.DefaultLimits()
	if l.MaxTraversalDepth <= 0 {
		l.MaxTraversalDepth = d.MaxTraversalDepth
	}
	if l.MaxImpactDepth <= 0 {
		l.MaxImpactDepth = d.MaxImpactDepth
	}
	if l.MaxMetadataBytes <= 0 {
		l.MaxMetadataBytes = d.MaxMetadataBytes
	}
	if l.MaxMetadataNesting <= 0 {
		l.MaxMetadataNesting = d.MaxMetadataNesting
	}
	if l.MaxImportNodes <= 0 {
		l.MaxImportNodes = d.MaxImportNodes
	}
	if l.MaxImportEdges <= 0 {
		l.MaxImportEdges = d.MaxImportEdges
	}
	if l.CriticalThreshold <= 0 {
		l.CriticalThreshold = d.CriticalThreshold
	}
	// Zero selects the default rate; negative disables limiting.
	if l.MutationsPerMinute == 0 {
		l.MutationsPerMinute = d.MutationsPerMinute
	}
	if l.MutationBurst == 0 {
		l.MutationBurst = d.MutationBurst
	}
	if l.CacheEntries <= 0 {
		l.CacheEntries = d.CacheEntries
	}
	if l.CacheTTLSeconds <= 0 {
		l.CacheTTLSeconds = d.CacheTTLSeconds
	}
	return l
}

func parseStructuralTypes(names []string) ([]graph.RelType, error) {
	if len(names) == 0 {
		return nil, nil
	}
	types := make([]graph.RelType, 0, len(names))
	for _, n := range names {
		t, err := graph.ParseRelType(n)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, nil
}
