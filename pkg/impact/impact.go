// Package impact computes the set of documents affected by a change to one
// document, with a severity classification and an effort estimate.
//
// Analysis traverses the graph's reverse adjacency (who depends on the
// changed document) breadth-first: level 1 is the directly affected set,
// deeper levels up to the depth bound are indirectly affected. The direct
// set is a plain read of the reverse adjacency list and is exact; only the
// effort figure is an estimate.
//
// Two traversal strategies share the same BFS skeleton:
//   - StrategyBasic expands by hop depth (the default)
//   - StrategyWeighted expands while the cumulative relationship strength
//     along the path stays above a threshold
package impact

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	derrors "github.com/docfoundry/docgraph/pkg/errors"
	"github.com/docfoundry/docgraph/pkg/graph"
)

// ChangeType classifies the change being analyzed.
type ChangeType string

// Change types, ordered roughly by disruptiveness.
const (
	BreakingChange ChangeType = "breaking_change"
	Deletion       ChangeType = "deletion"
	Modification   ChangeType = "modification"
	Update         ChangeType = "update"
)

// changeWeights scale the raw affected count into a severity score.
var changeWeights = map[ChangeType]float64{
	BreakingChange: 1.0,
	Deletion:       0.8,
	Modification:   0.5,
	Update:         0.25,
}

// ParseChangeType converts a string to a ChangeType.
func ParseChangeType(s string) (ChangeType, error) {
	t := ChangeType(s)
	if _, ok := changeWeights[t]; !ok {
		return "", fmt.Errorf("unknown change type: %q", s)
	}
	return t, nil
}

// Severity classifies how badly a change disturbs the suite.
type Severity string

// Severity levels.
const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Strategy selects the traversal variant.
type Strategy string

// Traversal strategies.
const (
	StrategyBasic    Strategy = "basic"
	StrategyWeighted Strategy = "weighted"
)

// Options configures a single analysis run.
type Options struct {
	// MaxDepth bounds the traversal (level 1 = direct). Zero selects
	// DefaultMaxDepth.
	MaxDepth int

	// ChangeType scales severity and effort. Empty selects Modification.
	ChangeType ChangeType

	// CriticalThreshold is the affected count at which a breaking change
	// becomes Critical. Zero selects DefaultCriticalThreshold.
	CriticalThreshold int

	// StrengthThreshold is the cumulative-strength floor for the weighted
	// strategy. Zero selects DefaultStrengthThreshold. Ignored by the
	// basic strategy.
	StrengthThreshold float64
}

// Defaults applied when Options fields are zero.
const (
	DefaultMaxDepth          = 10
	DefaultCriticalThreshold = 10
	DefaultStrengthThreshold = 0.1
)

// Effort is a heuristic cost estimate for propagating a change.
// Points carry a ±Margin uncertainty band (20% of the point value); treat
// the figure as an estimate, never an exact cost.
type Effort struct {
	Points     float64 `json:"points"`
	Margin     float64 `json:"margin"`
	Confidence float64 `json:"confidence"`
}

// Result holds the outcome of one impact analysis.
type Result struct {
	DocumentID         string        `json:"document_id"`
	ChangeType         ChangeType    `json:"change_type"`
	Strategy           Strategy      `json:"strategy"`
	DirectlyAffected   []string      `json:"directly_affected"`
	IndirectlyAffected []string      `json:"indirectly_affected"`
	TotalAffected      int           `json:"total_affected"`
	Severity           Severity      `json:"severity"`
	Effort             Effort        `json:"effort"`
	Duration           time.Duration `json:"duration_ns"`
}

// Analyzer runs impact analysis against a graph snapshot.
type Analyzer interface {
	Analyze(ctx context.Context, g *graph.Graph, docID string, opts Options) (*Result, error)
}

// NewAnalyzer returns the analyzer for the given strategy.
// An empty strategy selects StrategyBasic.
func NewAnalyzer(s Strategy) (Analyzer, error) {
	switch s {
	case StrategyBasic, "":
		return &basicTraversal{}, nil
	case StrategyWeighted:
		return &weightedTraversal{}, nil
	default:
		return nil, derrors.New(derrors.ErrCodeInternal, "unknown impact strategy: %q", s)
	}
}

func (o Options) withDefaults() Options {
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	if o.ChangeType == "" {
		o.ChangeType = Modification
	}
	if o.CriticalThreshold <= 0 {
		o.CriticalThreshold = DefaultCriticalThreshold
	}
	if o.StrengthThreshold <= 0 {
		o.StrengthThreshold = DefaultStrengthThreshold
	}
	return o
}

// classifySeverity derives severity from the affected count and change type.
// A breaking change at or above the critical threshold is always Critical;
// everything else scales down through the weighted score.
func classifySeverity(total int, ct ChangeType, criticalThreshold int) Severity {
	if total == 0 {
		return SeverityLow
	}
	if ct == BreakingChange && total >= criticalThreshold {
		return SeverityCritical
	}
	score := float64(total) * changeWeights[ct]
	switch {
	case score >= float64(criticalThreshold):
		return SeverityCritical
	case score >= float64(criticalThreshold)/2:
		return SeverityHigh
	case score >= 1:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// estimateEffort produces the heuristic cost figure.
//
// Points grow with the affected count, the change weight, and the average
// relationship strength along the traversed edges; stronger couplings mean
// more rework per document. Confidence decays as the indirect share grows,
// since transitive effects are less certain than direct ones.
func estimateEffort(direct, indirect int, avgStrength float64, ct ChangeType) Effort {
	total := direct + indirect
	if total == 0 {
		return Effort{Points: 0, Margin: 0, Confidence: 1.0}
	}

	const basePointsPerDoc = 2.0
	points := float64(total) * basePointsPerDoc * changeWeights[ct] * (0.5 + avgStrength)
	points = math.Round(points*10) / 10

	indirectShare := float64(indirect) / float64(total)
	confidence := 0.95 - 0.45*indirectShare
	confidence = math.Round(confidence*100) / 100

	return Effort{
		Points:     points,
		Margin:     math.Round(points*0.2*10) / 10,
		Confidence: confidence,
	}
}

// finalize fills the derived Result fields shared by both strategies.
func finalize(res *Result, direct, indirect []string, strengthSum float64, edgeCount int, opts Options, started time.Time) {
	sort.Strings(direct)
	sort.Strings(indirect)
	res.DirectlyAffected = direct
	res.IndirectlyAffected = indirect
	res.TotalAffected = len(direct) + len(indirect)
	res.Severity = classifySeverity(res.TotalAffected, opts.ChangeType, opts.CriticalThreshold)

	avgStrength := 0.0
	if edgeCount > 0 {
		avgStrength = strengthSum / float64(edgeCount)
	}
	res.Effort = estimateEffort(len(direct), len(indirect), avgStrength, opts.ChangeType)
	res.Duration = time.Since(started)
}
