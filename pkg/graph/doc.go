// Package graph implements the directed relationship graph at the core of
// docgraph.
//
// Documents are nodes; typed, weighted relationships are directed edges. The
// graph maintains forward and reverse adjacency lists so that dependency and
// dependent lookups are both O(degree), and enforces a DAG invariant for
// structural relationship types: any edge insertion that would create a path
// back to its own source is rejected before mutation.
//
// Cycle detection is implemented with iterative, explicit-stack traversal and
// three-state coloring rather than language recursion, so deep or adversarial
// chains cannot overflow the call stack. All traversals are bounded by a
// configurable maximum depth and fail closed when the bound is exceeded.
//
// Graph is not safe for concurrent use without external synchronization; the
// engine package provides the single-writer, multiple-reader discipline.
package graph
