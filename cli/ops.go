package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/petal-labs/loom/registry"
)

// NewOpsCmd creates the "ops" subcommand.
func NewOpsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ops",
		Short: "List the registered operators usable in definition files",
		Args:  cobra.NoArgs,
		RunE:  runOps,
	}
}

func runOps(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSPEC\tDESCRIPTION")

	for _, def := range registry.Global().All() {
		spec := def.Name
		if def.NeedsOperand {
			spec = def.Name + ":<operand>"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", def.Name, spec, def.Description)
	}
	return w.Flush()
}
