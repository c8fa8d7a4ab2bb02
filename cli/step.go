package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/petal-labs/loom"
	"github.com/petal-labs/loom/registry"
)

// NewStepCmd creates the "step" subcommand.
func NewStepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "step <file>",
		Short: "Walk a graph definition one generation at a time, printing each frontier",
		Args:  cobra.ExactArgs(1),
		RunE:  runStep,
	}

	cmd.Flags().IntP("max-steps", "n", 0, "Stop after this many generations (0 = until the frontier drains)")
	cmd.Flags().Bool("show-stash", true, "Print the stash after the walk")

	return cmd
}

func runStep(cmd *cobra.Command, args []string) error {
	filePath := args[0]
	maxSteps, _ := cmd.Flags().GetInt("max-steps")
	showStash, _ := cmd.Flags().GetBool("show-stash")
	out := cmd.OutOrStdout()

	d, err := loadDefinition(cmd, filePath)
	if err != nil {
		return err
	}
	s, err := d.Stepper(registry.Global())
	if err != nil {
		return definitionError(cmd, filePath, err)
	}

	generation := 0
	for {
		rows, err := s.Step()
		if err != nil {
			return exitError(exitRuntime, "step %d failed: %v", generation+1, err)
		}
		generation++
		printFrontier(out, generation, rows)
		if len(rows) == 0 {
			break
		}
		if maxSteps > 0 && generation >= maxSteps {
			fmt.Fprintf(out, "stopped after %d %s with %d %s pending\n",
				generation, pluralize("generation", generation),
				len(rows), pluralize("row", len(rows)))
			break
		}
	}

	if showStash {
		printStash(out, s.Peek())
	}
	return nil
}

// printFrontier writes the rows a generation produced, one per line.
func printFrontier(w io.Writer, generation int, rows []loom.Row) {
	fmt.Fprintf(w, "generation %d: %d %s\n", generation, len(rows), pluralize("row", len(rows)))
	for _, r := range rows {
		fmt.Fprintf(w, "  %s <- %s\n", r.Caller.DisplayName(), formatArgs(r.Args.Args))
	}
}

func printStash(w io.Writer, entries []loom.StashEntry) {
	fmt.Fprintf(w, "stash: %d %s\n", len(entries), pluralize("terminal", len(entries)))
	for _, e := range entries {
		for _, p := range e.Packs {
			fmt.Fprintf(w, "  %s: %s\n", e.Caller.DisplayName(), formatArgs(p.Args))
		}
	}
}
