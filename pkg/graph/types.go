package graph

import (
	"fmt"
	"time"
)

// Metadata stores sanitized key-value pairs attached to nodes or edges.
// Maps are treated as immutable once attached: clones share them, so callers
// must attach fresh maps rather than mutating in place.
type Metadata map[string]any

// RelType classifies the semantic link between two documents.
type RelType string

// Relationship types.
const (
	// DependsOn records that the source document depends on the target.
	DependsOn RelType = "depends_on"
	// References records an informational link to the target.
	References RelType = "references"
	// Implements records that the source implements what the target specifies.
	Implements RelType = "implements"
	// Validates records that the source validates the target.
	Validates RelType = "validates"
	// Documents records that the source documents the target.
	Documents RelType = "documents"
)

// relTypes is the set of known relationship types.
var relTypes = map[RelType]bool{
	DependsOn:  true,
	References: true,
	Implements: true,
	Validates:  true,
	Documents:  true,
}

// ParseRelType converts a string to a RelType.
// Returns an error for unknown type names.
func ParseRelType(s string) (RelType, error) {
	t := RelType(s)
	if !relTypes[t] {
		return "", fmt.Errorf("unknown relationship type: %q", s)
	}
	return t, nil
}

// DefaultStructuralTypes are the relationship types that participate in the
// DAG invariant by default. References and Documents are annotative links
// where mutual references are legitimate.
func DefaultStructuralTypes() []RelType {
	return []RelType{DependsOn, Implements, Validates}
}

// Node represents a document in the graph.
type Node struct {
	ID   string   // Validated document identifier
	Meta Metadata // Sanitized metadata (never nil after AddNode)
}

// Edge represents a typed, weighted, directed relationship between documents.
type Edge struct {
	From      string    // Source document id
	To        string    // Target document id
	Type      RelType   // Relationship type
	Strength  float64   // Relationship strength in [0, 1]
	Meta      Metadata  // Sanitized metadata (never nil after AddEdge)
	CreatedAt time.Time // Set on insertion if zero
}

// Options configures a Graph at construction.
type Options struct {
	// ID overrides the generated instance id. Imports set it from the
	// payload hash so identical payloads share a cache namespace; leave
	// empty everywhere else.
	ID string

	// MaxTraversalDepth bounds cycle-guard and cycle-enumeration traversals.
	// Exceeding the bound fails closed with a RESOURCE_LIMIT error, never a
	// false "no cycle". Zero selects DefaultMaxTraversalDepth.
	MaxTraversalDepth int

	// StructuralTypes are the relationship types subject to the DAG
	// invariant. Nil selects DefaultStructuralTypes.
	StructuralTypes []RelType
}

// DefaultMaxTraversalDepth bounds cycle-guard traversals when Options does
// not specify a limit.
const DefaultMaxTraversalDepth = 10000
