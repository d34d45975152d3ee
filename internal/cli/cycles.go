package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newCyclesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cycles <graph.json>",
		Short: "List dependency cycles across all relationship types",
		Long: `Cycles loads a graph file and enumerates every cycle, including cycles
through annotative relationship types that the structural invariant allows.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			e, err := loadEngine(ctx, opts, args[0], "", true)
			if err != nil {
				return err
			}
			defer e.Close()

			cycles, err := e.FindCycles()
			if err != nil {
				return err
			}

			if len(cycles) == 0 {
				printSuccess("no cycles in %d relationships", e.RelationshipCount())
				return nil
			}
			printWarning("%d cycles found", len(cycles))
			for _, path := range cycles {
				closed := append(path, path[0])
				printDetail("%s", strings.Join(closed, fmt.Sprintf(" %s ", iconArrow)))
			}
			return nil
		},
	}
}
