package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newCheckCmd(opts *rootOptions) *cobra.Command {
	var expected []string

	cmd := &cobra.Command{
		Use:   "check <graph.json>",
		Short: "Run a suite consistency report",
		Long: `Check loads a graph file and sweeps the suite for orphaned documents,
broken references, and coverage gaps, producing a 0-100 health score with
recommendations.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			e, err := loadEngine(ctx, opts, args[0], "", true)
			if err != nil {
				return err
			}
			defer e.Close()

			docIDs := make([]string, 0, e.DocumentCount())
			for _, n := range e.Snapshot().Nodes() {
				docIDs = append(docIDs, n.ID)
			}

			prog := newProgress(logger)
			spin := newSpinner(ctx, "checking suite consistency")
			spin.Start()
			report, err := e.AnalyzeSuiteConsistency(ctx, docIDs, expected)
			spin.Stop()
			if err != nil {
				return err
			}
			prog.done(fmt.Sprintf("Checked %d documents", report.TotalDocuments))

			fmt.Println(StyleTitle.Render("Suite consistency"))
			printKeyValue("score", fmt.Sprintf("%.0f/100", report.Score))
			printKeyValue("documents", fmt.Sprintf("%d", report.TotalDocuments))
			printKeyValue("relationships", fmt.Sprintf("%d", report.TotalRelationships))
			if len(expected) > 0 {
				printKeyValue("coverage", fmt.Sprintf("%.0f%%", report.CoveragePercent))
			}
			printDetail("%s", report.Summary)

			if report.OrphanCount > 0 {
				printWarning("%d orphaned: %s", report.OrphanCount,
					strings.Join(report.Details.Orphans, ", "))
			}
			for _, b := range report.Details.BrokenReferences {
				printError("broken reference %s %s %s (%s missing)", b.From, iconArrow, b.To, b.Missing)
			}
			if len(report.Details.Gaps) > 0 {
				printWarning("missing expected documents: %s",
					strings.Join(report.Details.Gaps, ", "))
			}
			for _, rec := range report.Recommendations {
				printInfo("%s", rec)
			}
			if report.Score == 100 {
				printSuccess("suite is consistent")
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&expected, "expected", nil, "document IDs the suite should contain")
	return cmd
}
