package graphio

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"

	derrors "github.com/docfoundry/docgraph/pkg/errors"
	"github.com/docfoundry/docgraph/pkg/graph"
)

// ImportOptions bounds and authenticates an import.
type ImportOptions struct {
	// MaxNodes and MaxEdges cap the payload size. Zero means no cap.
	MaxNodes int
	MaxEdges int

	// MaxMetadataBytes and MaxMetadataNesting bound each node's and edge's
	// metadata map. Zero selects the errors package defaults.
	MaxMetadataBytes   int
	MaxMetadataNesting int

	// Key, when non-empty, requires the payload to carry a valid
	// HMAC-SHA256 signature under this key.
	Key []byte

	// Graph configures the graph the payload is loaded into.
	Graph graph.Options
}

// pollutionKeys are metadata keys that hijack object prototypes in
// JavaScript consumers of the export format. They never survive an import.
var pollutionKeys = map[string]bool{
	"__proto__":   true,
	"constructor": true,
	"prototype":   true,
}

// ReadJSON decodes a JSON graph from r.
//
// The input must be an object with "nodes" and "edges" arrays as produced
// by [WriteJSON]. The payload is rebuilt through the same validation as
// live mutations, so ReadJSON returns an error if:
//   - The JSON is malformed
//   - The payload exceeds the node or edge ceilings
//   - A signature is required and missing or invalid
//   - A document ID or relationship strength fails validation
//   - Metadata contains a prototype-pollution key at any depth
//   - Metadata exceeds the size or nesting ceilings
//   - An edge references an unknown document
//   - The structural edges contain a cycle
//
// The returned graph's instance ID is derived from the payload content, so
// re-importing identical bytes addresses the same cache namespace.
//
// Nothing is partially imported: on any error the returned graph is nil.
func ReadJSON(r io.Reader, opts ImportOptions) (*graph.Graph, error) {
	var env envelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return nil, derrors.Wrap(derrors.ErrCodeInvalidImport, err, "decode")
	}

	if opts.MaxNodes > 0 && len(env.Nodes) > opts.MaxNodes {
		return nil, derrors.New(derrors.ErrCodeResourceLimit,
			"import has %d documents, limit is %d", len(env.Nodes), opts.MaxNodes)
	}
	if opts.MaxEdges > 0 && len(env.Edges) > opts.MaxEdges {
		return nil, derrors.New(derrors.ErrCodeResourceLimit,
			"import has %d relationships, limit is %d", len(env.Edges), opts.MaxEdges)
	}

	data, err := json.Marshal(payload{Nodes: env.Nodes, Edges: env.Edges, Metadata: env.Metadata})
	if err != nil {
		return nil, derrors.Wrap(derrors.ErrCodeInvalidImport, err, "encode payload")
	}
	if len(opts.Key) > 0 {
		if env.HMAC == "" {
			return nil, derrors.New(derrors.ErrCodeInvalidImport, "payload is not signed")
		}
		if !verify(opts.Key, data, env.HMAC) {
			return nil, derrors.New(derrors.ErrCodeInvalidImport, "signature verification failed")
		}
	}

	gopts := opts.Graph
	if gopts.ID == "" {
		sum := sha256.Sum256(data)
		gopts.ID = hex.EncodeToString(sum[:])
	}

	g := graph.New(gopts)
	for _, n := range env.Nodes {
		if err := derrors.ValidateID(n.ID); err != nil {
			return nil, derrors.Wrap(derrors.ErrCodeInvalidImport, err, "node %s", n.ID)
		}
		clean, err := cleanMeta(n.Meta, opts)
		if err != nil {
			return nil, derrors.Wrap(derrors.ErrCodeInvalidImport, err, "node %s", n.ID)
		}
		g.AddNode(n.ID, clean)
	}

	edges := make([]graph.Edge, 0, len(env.Edges))
	for _, e := range env.Edges {
		typ, err := graph.ParseRelType(e.Type)
		if err != nil {
			return nil, derrors.Wrap(derrors.ErrCodeInvalidImport, err, "edge %s->%s", e.From, e.To)
		}
		if err := derrors.ValidateStrength(e.Strength); err != nil {
			return nil, derrors.Wrap(derrors.ErrCodeInvalidImport, err, "edge %s->%s", e.From, e.To)
		}
		clean, err := cleanMeta(e.Meta, opts)
		if err != nil {
			return nil, derrors.Wrap(derrors.ErrCodeInvalidImport, err, "edge %s->%s", e.From, e.To)
		}
		edges = append(edges, graph.Edge{
			From:      e.From,
			To:        e.To,
			Type:      typ,
			Strength:  e.Strength,
			Meta:      clean,
			CreatedAt: e.CreatedAt,
		})
	}
	if err := g.ApplyBatch(edges); err != nil {
		return nil, err
	}
	return g, nil
}

// ImportJSON reads a JSON file at path and returns the decoded graph.
//
// ImportJSON opens the file, decodes it using [ReadJSON], and closes the
// file. It returns the same validation errors as [ReadJSON].
func ImportJSON(path string, opts ImportOptions) (*graph.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadJSON(f, opts)
}

// cleanMeta rejects prototype-pollution keys, then runs imported metadata
// through the same sanitizer as live mutations.
func cleanMeta(meta graph.Metadata, opts ImportOptions) (graph.Metadata, error) {
	if err := checkMeta(meta); err != nil {
		return nil, err
	}
	return derrors.SanitizeMetadata(meta, opts.MaxMetadataBytes, opts.MaxMetadataNesting)
}

// checkMeta rejects prototype-pollution keys at any nesting level,
// descending into both nested maps and arrays.
func checkMeta(meta graph.Metadata) error {
	for k, v := range meta {
		if pollutionKeys[k] {
			return fmt.Errorf("metadata key %q is not allowed", k)
		}
		if err := checkMetaValue(v); err != nil {
			return err
		}
	}
	return nil
}

func checkMetaValue(v any) error {
	switch val := v.(type) {
	case map[string]any:
		return checkMeta(val)
	case []any:
		for _, item := range val {
			if err := checkMetaValue(item); err != nil {
				return err
			}
		}
	}
	return nil
}
