package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/petal-labs/loom/loader"
	"github.com/petal-labs/loom/registry"
)

// NewValidateCmd creates the "validate" subcommand.
func NewValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a graph definition file without walking it",
		Args:  cobra.ExactArgs(1),
		RunE:  runValidate,
		// Match the root command: don't print usage on runtime errors.
		SilenceUsage: true,
	}

	cmd.Flags().String("format", "text", "Output format: text | json")
	cmd.Flags().Bool("strict", false, "Treat warnings as errors")

	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	filePath := args[0]
	format, _ := cmd.Flags().GetString("format")
	strict, _ := cmd.Flags().GetBool("strict")
	out := cmd.OutOrStdout()

	diags, err := validateDefinition(filePath)
	if err != nil {
		return err
	}

	printValidateDiagnostics(out, diags, format)

	hasErrs := loader.HasErrors(diags)
	hasWarns := len(warnings(diags)) > 0

	if hasErrs || (strict && hasWarns) {
		return exitError(exitValidation, "validation failed")
	}

	return nil
}

// validateDefinition loads the file and collects all diagnostics. Decode
// failures surface as a GD-000 diagnostic rather than an error so the
// output shape stays uniform.
func validateDefinition(filePath string) ([]loader.Diagnostic, error) {
	data, err := os.ReadFile(filePath) // #nosec G304 -- path from user CLI flag
	if err != nil {
		if os.IsNotExist(err) {
			return nil, exitError(exitFileNotFound, "file not found: %s", filePath)
		}
		return nil, fmt.Errorf("reading file: %w", err)
	}

	d, err := loader.LoadBytes(data, filePath)
	if err != nil {
		return []loader.Diagnostic{{
			Code:     "GD-000",
			Severity: loader.SeverityError,
			Message:  fmt.Sprintf("failed to parse file: %v", err),
		}}, nil
	}

	return d.Validate(registry.Global()), nil
}

// printValidateDiagnostics writes diagnostics to the writer in the
// requested format, followed by a summary line (for text format).
func printValidateDiagnostics(w io.Writer, diags []loader.Diagnostic, format string) {
	if format == "json" {
		printDiagnosticsJSON(w, diags)
		return
	}
	printDiagnosticsText(w, diags)
}

// printDiagnosticsText writes diagnostics as formatted text lines followed
// by a summary. Used by both the validate and run commands.
func printDiagnosticsText(w io.Writer, diags []loader.Diagnostic) {
	for _, d := range diags {
		sev := strings.ToUpper(d.Severity)
		if d.Path != "" {
			fmt.Fprintf(w, "%s [%s]: %s (at %s)\n", sev, d.Code, d.Message, d.Path)
		} else {
			fmt.Fprintf(w, "%s [%s]: %s\n", sev, d.Code, d.Message)
		}
	}

	errs := loader.Errors(diags)
	warns := warnings(diags)

	switch {
	case len(errs) == 0 && len(warns) == 0:
		fmt.Fprintln(w, "Valid!")
	case len(errs) == 0 && len(warns) > 0:
		fmt.Fprintf(w, "\nValid! (%d %s)\n", len(warns), pluralize("warning", len(warns)))
	default:
		fmt.Fprintf(w, "\n%d %s, %d %s\n",
			len(errs), pluralize("error", len(errs)),
			len(warns), pluralize("warning", len(warns)))
	}
}

func printDiagnosticsJSON(w io.Writer, diags []loader.Diagnostic) {
	// Output an empty array rather than null when there are no diagnostics.
	if diags == nil {
		diags = []loader.Diagnostic{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(diags)
}

func warnings(diags []loader.Diagnostic) []loader.Diagnostic {
	var warns []loader.Diagnostic
	for _, d := range diags {
		if d.Severity == loader.SeverityWarning {
			warns = append(warns, d)
		}
	}
	return warns
}

// pluralize returns the singular or plural form of a word based on count.
func pluralize(word string, count int) string {
	if count == 1 {
		return word
	}
	return word + "s"
}
