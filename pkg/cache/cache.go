// Package cache provides pluggable result caching for analysis operations.
//
// Backends share the Cache interface: an in-process LRU with TTL, a Redis
// client for shared deployments, a file cache for CLI usage, and a no-op
// null cache for tests or disabled caching. Keys are built by Keyer and
// embed the graph's instance ID and version counter, so entries computed
// against a stale graph can never be served.
package cache

import (
	"context"
	"time"
)

// Cache is the backend-neutral store for serialized analysis results.
// Get reports a miss with (nil, false, nil); errors are reserved for
// backend failures.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// ImpactKeyOpts are the analysis parameters that distinguish impact results.
// Every option that can change the computed result must appear here.
type ImpactKeyOpts struct {
	DocID             string
	ChangeType        string
	Strategy          string
	MaxDepth          int
	StrengthThreshold float64
	CriticalThreshold int
}

// ConsistencyKeyOpts are the parameters that distinguish consistency
// reports. Docs and Expected must be sorted by the caller so equal sets
// produce equal keys.
type ConsistencyKeyOpts struct {
	Docs     []string
	Expected []string
}

// Keyer builds cache keys for analysis results. graphID and version pin the
// entry to one generation of one graph instance.
type Keyer interface {
	ImpactKey(graphID string, version uint64, opts ImpactKeyOpts) string
	ConsistencyKey(graphID string, version uint64, opts ConsistencyKeyOpts) string
}

// DefaultKeyer implements Keyer with hashed option blobs.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() *DefaultKeyer {
	return &DefaultKeyer{}
}

// ImpactKey builds a key for an impact analysis result.
func (k *DefaultKeyer) ImpactKey(graphID string, version uint64, opts ImpactKeyOpts) string {
	return hashKey("impact", graphID, version, opts)
}

// ConsistencyKey builds a key for a suite consistency report.
func (k *DefaultKeyer) ConsistencyKey(graphID string, version uint64, opts ConsistencyKeyOpts) string {
	return hashKey("consistency", graphID, version, opts)
}

// ScopedKeyer prefixes every key from an inner keyer, isolating tenants that
// share one backend.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer wraps inner with a key prefix. A nil inner uses the
// default keyer.
func NewScopedKeyer(inner Keyer, prefix string) *ScopedKeyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// ImpactKey prefixes the inner impact key.
func (k *ScopedKeyer) ImpactKey(graphID string, version uint64, opts ImpactKeyOpts) string {
	return k.prefix + k.inner.ImpactKey(graphID, version, opts)
}

// ConsistencyKey prefixes the inner consistency key.
func (k *ScopedKeyer) ConsistencyKey(graphID string, version uint64, opts ConsistencyKeyOpts) string {
	return k.prefix + k.inner.ConsistencyKey(graphID, version, opts)
}

var (
	_ Keyer = (*DefaultKeyer)(nil)
	_ Keyer = (*ScopedKeyer)(nil)
)
