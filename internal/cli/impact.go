package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/docfoundry/docgraph/pkg/impact"
)

func newImpactCmd(opts *rootOptions) *cobra.Command {
	var (
		depth    int
		change   string
		strategy string
	)

	cmd := &cobra.Command{
		Use:   "impact <graph.json> <doc-id>",
		Short: "Compute the blast radius of a change to one document",
		Long: `Impact loads a graph file and reports every document affected by a change
to the given document: the direct dependents, the transitive ripple, a
severity classification, and an effort estimate.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)
			graphPath, docID := args[0], args[1]

			changeType := impact.Modification
			if change != "" {
				ct, err := impact.ParseChangeType(change)
				if err != nil {
					return err
				}
				changeType = ct
			}

			e, err := loadEngine(ctx, opts, graphPath, impact.Strategy(strategy), true)
			if err != nil {
				return err
			}
			defer e.Close()

			prog := newProgress(logger)
			spin := newSpinner(ctx, fmt.Sprintf("analyzing impact of %s", docID))
			spin.Start()
			res, err := e.AnalyzeImpact(ctx, docID, impact.Options{
				MaxDepth:   depth,
				ChangeType: changeType,
			})
			spin.Stop()
			if err != nil {
				return err
			}
			prog.done(fmt.Sprintf("Analyzed %d affected documents", res.TotalAffected))

			fmt.Println(StyleTitle.Render("Impact analysis"))
			printKeyValue("document", res.DocumentID)
			printKeyValue("change", string(res.ChangeType))
			printKeyValue("severity", renderSeverity(res.Severity))
			printKeyValue("affected", fmt.Sprintf("%d direct, %d indirect",
				len(res.DirectlyAffected), len(res.IndirectlyAffected)))
			printKeyValue("effort", fmt.Sprintf("%.1f ±%.1f points (%.0f%% confidence)",
				res.Effort.Points, res.Effort.Margin, res.Effort.Confidence*100))

			if len(res.DirectlyAffected) > 0 {
				printInfo("directly affected:")
				printDetail("%s", strings.Join(res.DirectlyAffected, ", "))
			}
			if len(res.IndirectlyAffected) > 0 {
				printInfo("indirectly affected:")
				printDetail("%s", strings.Join(res.IndirectlyAffected, ", "))
			}
			if res.TotalAffected == 0 {
				printSuccess("no documents depend on %s", docID)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&depth, "depth", 0, "maximum traversal depth (0 = configured default)")
	cmd.Flags().StringVar(&change, "change", "", "change type: breaking_change, deletion, modification, update")
	cmd.Flags().StringVar(&strategy, "strategy", "", "traversal strategy: basic or weighted")
	return cmd
}
