package graphio

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/docfoundry/docgraph/pkg/graph"
)

// WriteJSON encodes a graph as JSON and writes it to w.
//
// The output includes all documents (with metadata) and relationships, plus
// a metadata block with the format version and totals. When key is non-empty
// the payload is signed with HMAC-SHA256 and the signature is embedded in
// the "hmac" field; [ReadJSON] with the same key verifies it on import.
func WriteJSON(g *graph.Graph, w io.Writer, key []byte) error {
	p := snapshot(g)

	env := envelope{Nodes: p.Nodes, Edges: p.Edges, Metadata: p.Metadata}
	if len(key) > 0 {
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("encode payload: %w", err)
		}
		env.HMAC = sign(key, data)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(env); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportJSON writes a graph to a JSON file at path.
// This is a convenience wrapper around [WriteJSON] for file-based output.
func ExportJSON(g *graph.Graph, path string, key []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteJSON(g, f, key)
}
