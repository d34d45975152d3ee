// Package consistency performs whole-suite health checks over the document
// graph: orphaned documents, coverage gaps, broken references, and an
// aggregate 0-100 score.
//
// Reports follow progressive disclosure: a short natural-language summary
// first, full structured lists in Details, and actionable recommendations
// for anything that lowered the score.
package consistency

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	derrors "github.com/docfoundry/docgraph/pkg/errors"
	"github.com/docfoundry/docgraph/pkg/graph"
)

// Score weights. Reference integrity and orphan hygiene dominate; coverage
// only matters when the caller supplies an expected set.
const (
	orphanWeight    = 0.4
	integrityWeight = 0.4
	coverageWeight  = 0.2
)

// maxSummaryLen bounds the natural-language summary.
const maxSummaryLen = 500

// BrokenReference describes an edge endpoint that does not resolve to a
// document in the suite.
type BrokenReference struct {
	From    string        `json:"from"`
	To      string        `json:"to"`
	Type    graph.RelType `json:"type"`
	Missing string        `json:"missing"` // The endpoint that failed to resolve
}

// Details holds the full issue lists backing the summary.
type Details struct {
	Orphans          []string          `json:"orphans"`
	Gaps             []string          `json:"gaps"`
	BrokenReferences []BrokenReference `json:"broken_references"`
	DependencyIssues []string          `json:"dependency_issues"`
}

// Report is the outcome of a suite consistency analysis.
type Report struct {
	ID                 string        `json:"id"`
	TotalDocuments     int           `json:"total_documents"`
	TotalRelationships int           `json:"total_relationships"`
	OrphanCount        int           `json:"orphan_count"`
	BrokenCount        int           `json:"broken_count"`
	CoveragePercent    float64       `json:"coverage_percent"`
	Score              float64       `json:"score"`
	Summary            string        `json:"summary"`
	Details            Details       `json:"details"`
	Recommendations    []string      `json:"recommendations"`
	Duration           time.Duration `json:"duration_ns"`
}

// Analyze sweeps the suite described by docIDs against the graph.
//
// docIDs is the authoritative list of documents that exist in storage;
// edges whose endpoints fall outside it are broken references. expectedIDs,
// when non-nil, is the set the suite should contain; members missing from
// docIDs are coverage gaps. The context deadline bounds the sweep.
func Analyze(ctx context.Context, g *graph.Graph, docIDs, expectedIDs []string) (*Report, error) {
	started := time.Now()

	docSet := make(map[string]bool, len(docIDs))
	for _, id := range docIDs {
		docSet[id] = true
	}

	report := &Report{
		ID:             uuid.NewString(),
		TotalDocuments: len(docSet),
	}

	// Orphans: suite documents with no structural edge in either direction.
	var orphans []string
	for id := range docSet {
		if err := ctx.Err(); err != nil {
			return nil, derrors.Wrap(derrors.ErrCodeResourceLimit, err, "consistency sweep cancelled")
		}
		if !hasStructuralEdge(g, id) {
			orphans = append(orphans, id)
		}
	}
	sort.Strings(orphans)

	// Gaps: expected documents missing from the suite.
	var gaps []string
	if expectedIDs != nil {
		for _, id := range expectedIDs {
			if !docSet[id] {
				gaps = append(gaps, id)
			}
		}
		sort.Strings(gaps)
	}

	// Broken references: suite edges with an endpoint outside the suite.
	var broken []BrokenReference
	suiteEdges := 0
	for _, e := range g.Edges() {
		if err := ctx.Err(); err != nil {
			return nil, derrors.Wrap(derrors.ErrCodeResourceLimit, err, "consistency sweep cancelled")
		}
		if !docSet[e.From] && !docSet[e.To] {
			continue
		}
		suiteEdges++
		missing := ""
		switch {
		case !docSet[e.From]:
			missing = e.From
		case !docSet[e.To]:
			missing = e.To
		}
		if missing != "" {
			broken = append(broken, BrokenReference{From: e.From, To: e.To, Type: e.Type, Missing: missing})
		}
	}
	sort.Slice(broken, func(i, j int) bool {
		if broken[i].From != broken[j].From {
			return broken[i].From < broken[j].From
		}
		return broken[i].To < broken[j].To
	})

	// Dependency issues: documents whose dependencies point at missing
	// endpoints. Changes to those documents cannot be traced reliably.
	issueSet := make(map[string]bool)
	for _, b := range broken {
		if docSet[b.From] {
			issueSet[b.From] = true
		}
	}
	issues := make([]string, 0, len(issueSet))
	for id := range issueSet {
		issues = append(issues, id)
	}
	sort.Strings(issues)

	report.TotalRelationships = suiteEdges
	report.OrphanCount = len(orphans)
	report.BrokenCount = len(broken)
	report.Details = Details{
		Orphans:          orphans,
		Gaps:             gaps,
		BrokenReferences: broken,
		DependencyIssues: issues,
	}

	report.CoveragePercent, report.Score = score(len(docSet), len(orphans), suiteEdges, len(broken), expectedIDs, gaps)
	report.Summary = summarize(report)
	report.Recommendations = recommend(report)
	report.Duration = time.Since(started)
	return report, nil
}

func hasStructuralEdge(g *graph.Graph, id string) bool {
	for _, e := range g.Dependencies(id) {
		if g.Structural(e.Type) {
			return true
		}
	}
	for _, e := range g.Dependents(id) {
		if g.Structural(e.Type) {
			return true
		}
	}
	return false
}

// score combines orphan hygiene, reference integrity, and coverage into a
// 0-100 figure. An empty suite scores 100: there is nothing inconsistent.
func score(docs, orphans, edges, broken int, expectedIDs, gaps []string) (coveragePct, total float64) {
	orphanRatio := 0.0
	if docs > 0 {
		orphanRatio = float64(orphans) / float64(docs)
	}

	integrity := 1.0
	if edges > 0 {
		integrity = 1.0 - float64(broken)/float64(edges)
	}

	coverage := 1.0
	if len(expectedIDs) > 0 {
		coverage = float64(len(expectedIDs)-len(gaps)) / float64(len(expectedIDs))
	}

	total = 100 * (orphanWeight*(1-orphanRatio) + integrityWeight*integrity + coverageWeight*coverage)
	if total < 0 {
		total = 0
	}
	if total > 100 {
		total = 100
	}
	return 100 * coverage, total
}

func summarize(r *Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Suite of %d documents with %d relationships scores %.0f/100.",
		r.TotalDocuments, r.TotalRelationships, r.Score)
	if r.OrphanCount > 0 {
		fmt.Fprintf(&b, " %d orphaned.", r.OrphanCount)
	}
	if r.BrokenCount > 0 {
		fmt.Fprintf(&b, " %d broken references.", r.BrokenCount)
	}
	if n := len(r.Details.Gaps); n > 0 {
		fmt.Fprintf(&b, " %d expected documents missing.", n)
	}
	if r.OrphanCount == 0 && r.BrokenCount == 0 && len(r.Details.Gaps) == 0 {
		b.WriteString(" No issues found.")
	}
	s := b.String()
	if len(s) > maxSummaryLen {
		s = s[:maxSummaryLen-3] + "..."
	}
	return s
}

func recommend(r *Report) []string {
	var recs []string
	if r.OrphanCount > 0 {
		recs = append(recs, fmt.Sprintf(
			"Link or retire %d orphaned documents; see details.orphans.", r.OrphanCount))
	}
	if r.BrokenCount > 0 {
		recs = append(recs, fmt.Sprintf(
			"Restore or remove %d broken references; see details.broken_references.", r.BrokenCount))
	}
	if n := len(r.Details.Gaps); n > 0 {
		recs = append(recs, fmt.Sprintf(
			"Create %d missing expected documents; see details.gaps.", n))
	}
	if len(recs) == 0 {
		recs = append(recs, "Suite is consistent; no action needed.")
	}
	return recs
}
