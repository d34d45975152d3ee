// Package graphio serializes document graphs to and from JSON, with
// optional HMAC signing, and renders DOT text for external tooling.
//
// Exports are deterministic: documents sort by ID and relationships by
// (source, target, type), so the same graph always produces the same bytes.
// Imports rebuild the graph through the same validated mutation path as
// live traffic; a payload that would violate an invariant (bad ID, broken
// reference, cycle) is rejected as a whole.
package graphio

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"time"

	"github.com/docfoundry/docgraph/pkg/graph"
)

// FormatVersion identifies the wire format. Bump on incompatible changes.
const FormatVersion = "1.0"

// envelope is the top-level JSON document.
type envelope struct {
	Nodes    []document     `json:"nodes"`
	Edges    []relationship `json:"edges"`
	Metadata exportMeta     `json:"metadata"`
	HMAC     string         `json:"hmac,omitempty"`
}

// payload is the signed portion of the envelope.
type payload struct {
	Nodes    []document     `json:"nodes"`
	Edges    []relationship `json:"edges"`
	Metadata exportMeta     `json:"metadata"`
}

type document struct {
	ID   string         `json:"id"`
	Meta graph.Metadata `json:"metadata,omitempty"`
}

type relationship struct {
	From      string         `json:"source"`
	To        string         `json:"target"`
	Type      string         `json:"type"`
	Strength  float64        `json:"strength"`
	Meta      graph.Metadata `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at,omitzero"`
}

type exportMeta struct {
	Version            string `json:"version"`
	TotalDocuments     int    `json:"total_documents"`
	TotalRelationships int    `json:"total_relationships"`
}

// snapshot flattens a graph into sorted wire form.
func snapshot(g *graph.Graph) payload {
	nodes := g.Nodes()
	docs := make([]document, 0, len(nodes))
	for _, n := range nodes {
		docs = append(docs, document{ID: n.ID, Meta: n.Meta})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })

	edges := g.Edges()
	rels := make([]relationship, 0, len(edges))
	for _, e := range edges {
		rels = append(rels, relationship{
			From:      e.From,
			To:        e.To,
			Type:      string(e.Type),
			Strength:  e.Strength,
			Meta:      e.Meta,
			CreatedAt: e.CreatedAt,
		})
	}
	sort.Slice(rels, func(i, j int) bool {
		if rels[i].From != rels[j].From {
			return rels[i].From < rels[j].From
		}
		if rels[i].To != rels[j].To {
			return rels[i].To < rels[j].To
		}
		return rels[i].Type < rels[j].Type
	})

	return payload{
		Nodes: docs,
		Edges: rels,
		Metadata: exportMeta{
			Version:            FormatVersion,
			TotalDocuments:     len(docs),
			TotalRelationships: len(rels),
		},
	}
}

// sign computes the hex HMAC-SHA256 of data under key.
func sign(key, data []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil))
}

// verify reports whether sig is a valid signature for data under key.
// Comparison is constant-time.
func verify(key, data []byte, sig string) bool {
	want, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return hmac.Equal(mac.Sum(nil), want)
}
