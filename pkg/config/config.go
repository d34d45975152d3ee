// Package config defines the explicit configuration passed to the docgraph
// engine at construction, plus TOML loading for the CLI.
//
// There is no process-wide configuration state: callers build a Limits value
// (usually starting from DefaultLimits) and hand it to the components that
// need it.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Limits bounds the engine's work and resource usage.
// The zero value is not usable - start from DefaultLimits.
type Limits struct {
	// MaxTraversalDepth bounds cycle-guard traversals (hops).
	MaxTraversalDepth int `toml:"max_traversal_depth"`

	// MaxImpactDepth is the default depth for impact analysis when the
	// caller does not specify one.
	MaxImpactDepth int `toml:"max_impact_depth"`

	// MaxMetadataBytes is the serialized-size ceiling for metadata maps.
	MaxMetadataBytes int `toml:"max_metadata_bytes"`

	// MaxMetadataNesting is the maximum nesting depth for metadata maps.
	MaxMetadataNesting int `toml:"max_metadata_nesting"`

	// MaxImportNodes and MaxImportEdges cap imported graph files.
	MaxImportNodes int `toml:"max_import_nodes"`
	MaxImportEdges int `toml:"max_import_edges"`

	// CriticalThreshold is the affected-document count at which a breaking
	// change is classified Critical.
	CriticalThreshold int `toml:"critical_threshold"`

	// MutationsPerMinute and MutationBurst configure the per-caller
	// mutation rate limiter.
	MutationsPerMinute int `toml:"mutations_per_minute"`
	MutationBurst      int `toml:"mutation_burst"`

	// CacheEntries bounds the in-memory result cache; CacheTTLSeconds is
	// the entry time-to-live.
	CacheEntries    int `toml:"cache_entries"`
	CacheTTLSeconds int `toml:"cache_ttl_seconds"`

	// StructuralTypes are the relationship type names subject to the DAG
	// invariant. Empty selects the engine default (depends_on, implements,
	// validates).
	StructuralTypes []string `toml:"structural_types"`
}

// DefaultLimits returns the engine's default ceilings, sized for a
// documentation project's graph (tens of thousands of nodes and edges).
func DefaultLimits() Limits {
	return Limits{
		MaxTraversalDepth:  10000,
		MaxImpactDepth:     10,
		MaxMetadataBytes:   64 * 1024,
		MaxMetadataNesting: 8,
		MaxImportNodes:     100000,
		MaxImportEdges:     100000,
		CriticalThreshold:  10,
		MutationsPerMinute: 600,
		MutationBurst:      60,
		CacheEntries:       1024,
		CacheTTLSeconds:    int((15 * time.Minute).Seconds()),
	}
}

// CacheTTL returns the cache time-to-live as a duration.
func (l Limits) CacheTTL() time.Duration {
	return time.Duration(l.CacheTTLSeconds) * time.Second
}

// File is the on-disk configuration shape consumed by the CLI.
type File struct {
	Limits Limits `toml:"limits"`
}

// Load reads a TOML configuration file and returns its limits merged over
// the defaults: zero-valued fields keep their default.
func Load(path string) (Limits, error) {
	var f File
	f.Limits = DefaultLimits()

	data, err := os.ReadFile(path)
	if err != nil {
		return Limits{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &f); err != nil {
		return Limits{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return f.Limits.withDefaults(), nil
}

// withDefaults fills zero-valued fields from DefaultLimits.
func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
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
	if l.MutationsPerMinute <= 0 {
		l.MutationsPerMinute = d.MutationsPerMinute
	}
	if l.MutationBurst <= 0 {
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
