package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/textfsm/internal/compiler"
	"github.com/roach88/textfsm/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
	Strict bool   // lint findings fail the command
}

// CompilationResult describes a compiled template.
type CompilationResult struct {
	Template string                     `json:"template"`
	Digest   string                     `json:"digest"`
	Values   []ir.ValueDef              `json:"values"`
	States   []StateSummary             `json:"states"`
	Lint     []compiler.ValidationError `json:"lint,omitempty"`
}

// StateSummary describes one compiled state.
type StateSummary struct {
	Name      string        `json:"name"`
	Line      int           `json:"line,omitempty"`
	Synthetic bool          `json:"synthetic,omitempty"`
	Rules     []RuleSummary `json:"rules"`
}

// RuleSummary describes one compiled rule.
type RuleSummary struct {
	Line       int      `json:"line,omitempty"`
	Match      string   `json:"match"`
	Expanded   string   `json:"expanded"`
	Captures   []string `json:"captures,omitempty"`
	Backend    string   `json:"backend"`
	Transition string   `json:"transition"`
}

// CompilationStats holds summary statistics.
type CompilationStats struct {
	ValueCount        int
	StateCount        int
	RuleCount         int
	BacktrackingCount int
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <template>",
		Short: "Compile a template and summarize its states and rules",
		Long: `Compile a template, report fatal errors, and summarize the result:
declared values, states, and for every rule the expanded regex, the
regex backend chosen for it and its transition.

Lint findings (unused values, unreachable states, inert options) are
listed after the summary. With --strict they fail the command.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the compiled summary as JSON to this file")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "exit 1 when lint reports findings")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := opts.Formatter(cmd)
	logger := opts.Logger()

	formatter.VerboseLog("Compiling %s", path)
	tmpl, err := LoadTemplate(TemplateSource{Template: resolveInDir(path, opts.Config.TemplatesDir)}, logger)
	if err != nil {
		return reportError(formatter, err)
	}

	// Build result
	result := summarize(tmpl)

	// Write to file if --output specified
	if opts.Output != "" {
		if err := writeIRToFile(result, opts.Output); err != nil {
			return reportError(formatter, &LoadError{Code: ErrCodeGeneric, Message: "cannot write output", Path: opts.Output, Err: err})
		}
	}

	// Output success; lint findings are part of the result either way
	if formatter.Structured() {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		writeCompileText(formatter, result)
		if opts.Output != "" {
			fmt.Fprintf(formatter.Writer, "Wrote compiled summary to %s\n", opts.Output)
		}
	}

	// --strict turns lint findings into a failure after they are shown
	if opts.Strict && len(result.Lint) > 0 {
		return reportedExitError(ExitFailure, fmt.Sprintf("lint reported %d finding(s)", len(result.Lint)), nil)
	}
	return nil
}

// summarize flattens a compiled table into its serializable summary and
// lints it.
func summarize(tmpl *LoadedTemplate) *CompilationResult {
	table := tmpl.Table
	result := &CompilationResult{
		Template: tmpl.Path,
		Digest:   table.Digest(),
		Values:   table.Values(),
		Lint:     compiler.Validate(table),
	}
	// States in definition order, synthetic EOF last
	for _, s := range table.States() {
		summary := StateSummary{Name: s.Name, Line: s.Line, Synthetic: s.Synthetic, Rules: []RuleSummary{}}
		for _, r := range s.Rules {
			summary.Rules = append(summary.Rules, RuleSummary{
				Line:       r.Line,
				Match:      r.Match,
				Expanded:   r.Expanded,
				Captures:   r.Captures,
				Backend:    r.Backend().String(),
				Transition: r.Transition.String(),
			})
		}
		result.States = append(result.States, summary)
	}
	return result
}

// stats computes summary statistics from the compilation result.
func (r *CompilationResult) stats() CompilationStats {
	stats := CompilationStats{ValueCount: len(r.Values), StateCount: len(r.States)}
	for _, s := range r.States {
		stats.RuleCount += len(s.Rules)
		for _, rule := range s.Rules {
			if rule.Backend != "linear" {
				stats.BacktrackingCount++
			}
		}
	}
	return stats
}

// writeCompileText prints the human-readable summary. Rule detail is shown
// only when verbose.
func writeCompileText(formatter *OutputFormatter, result *CompilationResult) {
	w := formatter.Writer
	stats := result.stats()

	fmt.Fprintf(w, "✓ Compiled %s\n", filepath.Base(result.Template))
	fmt.Fprintf(w, "  %d value(s), %d state(s), %d rule(s)", stats.ValueCount, stats.StateCount, stats.RuleCount)
	if stats.BacktrackingCount > 0 {
		fmt.Fprintf(w, ", %d on the backtracking engine", stats.BacktrackingCount)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w)

	if len(result.Values) > 0 {
		fmt.Fprintln(w, "Values:")
		for _, v := range result.Values {
			fmt.Fprintf(w, "  %s %v (%s)\n", v.Name, v.Options, v.Pattern)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "States:")
	for _, s := range result.States {
		label := s.Name
		if s.Synthetic {
			label += " (implicit)"
		}
		fmt.Fprintf(w, "  %s: %d rule(s)\n", label, len(s.Rules))
		if !formatter.Verbose {
			continue
		}
		for _, r := range s.Rules {
			fmt.Fprintf(w, "    %s [%s] -> %s\n", r.Expanded, r.Backend, r.Transition)
		}
	}

	if len(result.Lint) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Lint:")
		for _, e := range result.Lint {
			fmt.Fprintf(w, "  %s\n", e.Error())
		}
	}
}

// writeIRToFile writes the compilation result to a file as indented JSON.
func writeIRToFile(result *CompilationResult, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling summary: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}
