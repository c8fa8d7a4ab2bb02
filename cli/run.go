package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/petal-labs/loom"
	"github.com/petal-labs/loom/loader"
	loomotel "github.com/petal-labs/loom/otel"
	"github.com/petal-labs/loom/registry"
)

// Exit codes returned through ExitError.
const (
	exitSuccess      = 0
	exitValidation   = 1
	exitRuntime      = 2
	exitFileNotFound = 3
	exitInputParse   = 4
	exitTimeout      = 10
)

// NewRunCmd creates the "run" subcommand.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Walk a graph definition file to completion",
		Args:  cobra.ExactArgs(1),
		RunE:  runRun,
	}

	cmd.Flags().StringP("args", "a", "", "Initial walk arguments as an inline JSON array (overrides the file)")
	cmd.Flags().StringP("output", "o", "", "Write results to file (default: stdout)")
	cmd.Flags().String("format", "pretty", "Output format: json | text | pretty")
	cmd.Flags().Duration("timeout", time.Minute, "Walk timeout")
	cmd.Flags().Int("limit", 0, "Maximum generations to walk (0 = until the frontier drains)")
	cmd.Flags().Bool("concat", false, "Consolidate merge-node rows within each generation (overrides the file)")
	cmd.Flags().Bool("dry-run", false, "Load and validate only, do not walk")
	cmd.Flags().String("otel-endpoint", "", "OTLP/HTTP collector endpoint for walk traces (host:port)")
	cmd.Flags().Bool("otel-insecure", false, "Disable TLS towards the OTLP collector")

	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	filePath := args[0]

	d, err := loadDefinition(cmd, filePath)
	if err != nil {
		return err
	}
	if err := applyRunOverrides(cmd, d); err != nil {
		return err
	}

	// Dry run: validate and build, don't walk.
	if dry, _ := cmd.Flags().GetBool("dry-run"); dry {
		if _, _, err := d.Build(registry.Global()); err != nil {
			return definitionError(cmd, filePath, err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Validation successful.")
		return nil
	}

	s, err := d.Stepper(registry.Global())
	if err != nil {
		return definitionError(cmd, filePath, err)
	}

	shutdown, err := wireRunTracing(cmd, s)
	if err != nil {
		return err
	}
	defer shutdown()

	limit, _ := cmd.Flags().GetInt("limit")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	if err := walkToEnd(ctx, s, limit); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return exitError(exitTimeout, "walk timed out after %s", timeout)
		}
		return exitError(exitRuntime, "walk failed: %v", err)
	}

	return writeResults(cmd, s.Flush())
}

// loadDefinition reads and decodes a definition file, mapping the failure
// modes onto exit codes.
func loadDefinition(cmd *cobra.Command, filePath string) (*loader.Definition, error) {
	d, err := loader.Load(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, exitError(exitFileNotFound, "file not found: %s", filePath)
		}
		return nil, exitError(exitInputParse, "%v", err)
	}
	return d, nil
}

// definitionError maps a build failure onto an exit code, printing any
// validation diagnostics to stderr first.
func definitionError(cmd *cobra.Command, filePath string, err error) error {
	var diagErr *loader.DiagnosticError
	if errors.As(err, &diagErr) {
		printDiagnosticsText(cmd.ErrOrStderr(), diagErr.Diagnostics)
		return exitError(exitValidation, "validation failed: %s", filePath)
	}
	return exitError(exitValidation, "%v", err)
}

// applyRunOverrides folds the run flags into the loaded definition.
func applyRunOverrides(cmd *cobra.Command, d *loader.Definition) error {
	if cmd.Flags().Changed("concat") {
		concat, _ := cmd.Flags().GetBool("concat")
		d.Concat = concat
	}

	argsJSON, _ := cmd.Flags().GetString("args")
	if argsJSON == "" {
		return nil
	}
	var walkArgs []any
	if err := json.Unmarshal([]byte(argsJSON), &walkArgs); err != nil {
		return exitError(exitInputParse, "parsing --args: %v", err)
	}
	d.Args = walkArgs
	return nil
}

// wireRunTracing installs an OTLP trace exporter and a tracing handler on
// the stepper when --otel-endpoint is set. The returned shutdown func
// flushes the provider; it is a no-op when tracing is off.
func wireRunTracing(cmd *cobra.Command, s *loom.Stepper) (func(), error) {
	endpoint, _ := cmd.Flags().GetString("otel-endpoint")
	if endpoint == "" {
		return func() {}, nil
	}
	insecure, _ := cmd.Flags().GetBool("otel-insecure")

	tp, err := loomotel.InitTraceProvider(cmd.Context(), loomotel.ProviderConfig{
		Endpoint: endpoint,
		Insecure: insecure,
	})
	if err != nil {
		return nil, exitError(exitRuntime, "initializing tracing: %v", err)
	}

	h := loomotel.NewTracingHandler(tp.Tracer("loom-cli"))
	s.OnEvent(h.Handle)

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(shutdownCtx)
	}, nil
}

// walkToEnd runs the stepper in a goroutine so the walk can be abandoned
// on context expiry. The stepper itself is synchronous; an abandoned walk
// finishes its in-flight generation and is discarded.
func walkToEnd(ctx context.Context, s *loom.Stepper, limit int) error {
	done := make(chan error, 1)
	go func() {
		done <- s.RunToEnd(limit)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// writeResults formats the stash and writes it to --output or stdout.
func writeResults(cmd *cobra.Command, entries []loom.StashEntry) error {
	format, _ := cmd.Flags().GetString("format")
	outputPath, _ := cmd.Flags().GetString("output")

	var output string
	switch format {
	case "json":
		data, err := json.MarshalIndent(stashToJSON(entries), "", "  ")
		if err != nil {
			return exitError(exitRuntime, "marshaling output: %v", err)
		}
		output = string(data)
	case "text":
		output = formatText(entries)
	case "pretty":
		output = formatPretty(entries)
	default:
		return exitError(exitInputParse, "unknown format %q (use json, text, or pretty)", format)
	}

	if outputPath != "" {
		if err := os.WriteFile(outputPath, []byte(output+"\n"), 0600); err != nil {
			return exitError(exitRuntime, "writing output file: %v", err)
		}
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout(), output)
	return nil
}

// stashEntryJSON is the serializable form of one terminal's results.
type stashEntryJSON struct {
	Caller string  `json:"caller"`
	Packs  [][]any `json:"packs"`
}

func stashToJSON(entries []loom.StashEntry) []stashEntryJSON {
	// Output an empty array rather than null when the stash is empty.
	out := make([]stashEntryJSON, 0, len(entries))
	for _, e := range entries {
		packs := make([][]any, 0, len(e.Packs))
		for _, p := range e.Packs {
			packs = append(packs, p.Args)
		}
		out = append(out, stashEntryJSON{Caller: e.Caller.DisplayName(), Packs: packs})
	}
	return out
}

// formatText prints just the result values, one pack per line.
func formatText(entries []loom.StashEntry) string {
	var lines []string
	for _, e := range entries {
		for _, p := range e.Packs {
			lines = append(lines, formatArgs(p.Args))
		}
	}
	return strings.Join(lines, "\n")
}

// formatPretty returns a human-readable summary of the stash.
func formatPretty(entries []loom.StashEntry) string {
	var sb strings.Builder

	sb.WriteString("=== Results ===\n")
	if len(entries) == 0 {
		sb.WriteString("  (no terminal packs)\n")
		return sb.String()
	}
	for _, e := range entries {
		sb.WriteString(fmt.Sprintf("  %s:\n", e.Caller.DisplayName()))
		for _, p := range e.Packs {
			sb.WriteString(fmt.Sprintf("    %s\n", formatArgs(p.Args)))
		}
	}
	return sb.String()
}

func formatArgs(args []any) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprintf("%v", a)
	}
	return strings.Join(parts, " ")
}
