package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/petal-labs/loom/registry"
	"github.com/petal-labs/loom/viz"
)

// NewRenderCmd creates the "render" subcommand.
func NewRenderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render <file>",
		Short: "Render a graph definition as Graphviz DOT",
		Args:  cobra.ExactArgs(1),
		RunE:  runRender,
	}

	cmd.Flags().StringP("out", "o", "", "Write DOT to file (default: stdout)")
	cmd.Flags().String("direction", "", "Rank direction: TB | LR (default TB)")
	cmd.Flags().String("title", "", "Graph title (default: the definition name)")

	return cmd
}

func runRender(cmd *cobra.Command, args []string) error {
	filePath := args[0]

	d, err := loadDefinition(cmd, filePath)
	if err != nil {
		return err
	}
	g, _, err := d.Build(registry.Global())
	if err != nil {
		return definitionError(cmd, filePath, err)
	}

	title, _ := cmd.Flags().GetString("title")
	direction, _ := cmd.Flags().GetString("direction")
	opts := viz.Options{Direction: direction}

	outPath, _ := cmd.Flags().GetString("out")
	if outPath != "" {
		if err := viz.WriteFile(outPath, g, title, opts); err != nil {
			return exitError(exitRuntime, "writing DOT file: %v", err)
		}
		return nil
	}

	fmt.Fprint(cmd.OutOrStdout(), viz.DOT(g, title, opts))
	return nil
}
