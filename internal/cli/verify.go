package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/textfsm/internal/harness"
)

// VerifyOptions holds flags for the verify and verify-tree commands.
type VerifyOptions struct {
	*RootOptions
	KeepCase bool // compare without lowercasing value names
}

// harnessOptions maps the flags onto the harness. The harness lowercases
// value names by default; --keep-case replaces that with no conversions.
func (o *VerifyOptions) harnessOptions() []harness.Option {
	opts := []harness.Option{harness.WithLogger(o.Logger())}
	if o.KeepCase {
		opts = append(opts, harness.WithConversions())
	}
	return opts
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify <template> <raw> <sample.yml>",
		Short: "Check a template's output against a parsed_sample file",
		Long: `Parse raw with template and compare the records, after lowercasing value
names, with the parsed_sample list in an ntc-templates style YAML file.

Exits 1 when the records differ or the template fails.`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(opts, args[0], args[1], args[2], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.KeepCase, "keep-case", false, "compare value names as declared")

	return cmd
}

func runVerify(opts *VerifyOptions, templatePath, rawPath, samplePath string, cmd *cobra.Command) error {
	formatter := opts.Formatter(cmd)

	// Compile, parse and compare in one step. An error here means a file
	// could not be read; a failing comparison comes back as a Result.
	result, err := harness.Verify(templatePath, rawPath, samplePath, opts.harnessOptions()...)
	if err != nil {
		return reportError(formatter, &LoadError{Code: ErrCodeNotFound, Message: "cannot run verification", Err: err})
	}

	// Output success
	if result.Pass {
		if formatter.Structured() {
			return formatter.Success(result)
		}
		fmt.Fprintf(formatter.Writer, "✓ %s: %d record(s) match %s\n",
			filepath.Base(templatePath), len(result.Records), filepath.Base(samplePath))
		return nil
	}

	// Output the mismatch. Structured output carries the full result so the
	// caller sees parsed and expected records side by side.
	mismatch := result.Err()
	if formatter.Structured() {
		_ = formatter.Error(ErrCodeVerify, "parsed records differ from the sample", result)
	} else {
		fmt.Fprintf(formatter.Writer, "✗ %s\n", mismatch.Error())
	}
	return reportedExitError(ExitFailure, "verification failed", mismatch)
}

// NewVerifyTreeCommand creates the verify-tree command.
func NewVerifyTreeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify-tree <ntc-templates-checkout>",
		Short: "Verify every template against its test cases",
		Long: `Walk an ntc-templates checkout and verify every raw input under
tests/<platform>/<command>/ against the sample next to it, using the
template of the same name in ntc_templates/templates/.

Exits 1 when any case fails.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerifyTree(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.KeepCase, "keep-case", false, "compare value names as declared")

	return cmd
}

func runVerifyTree(opts *VerifyOptions, root string, cmd *cobra.Command) error {
	formatter := opts.Formatter(cmd)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Walk the checkout. Cases without a template or sample become warnings
	// on the report rather than failures.
	report, err := harness.RunTree(ctx, root, opts.harnessOptions()...)
	if err != nil {
		return reportError(formatter, &LoadError{Code: ErrCodeNotFound, Message: "cannot walk tree", Path: root, Err: err})
	}

	if formatter.Structured() {
		if report.Failed() > 0 {
			_ = formatter.Error(ErrCodeVerify, fmt.Sprintf("%d of %d case(s) failed", report.Failed(), len(report.Results)), report)
		} else if err := formatter.Success(report); err != nil {
			return err
		}
	} else {
		writeTreeText(formatter, report)
	}

	// Exit 1 once any case failed, after everything has been reported
	if report.Failed() > 0 {
		return reportedExitError(ExitFailure, fmt.Sprintf("%d case(s) failed", report.Failed()), nil)
	}
	return nil
}

// writeTreeText prints failures, passes when verbose, then warnings and a
// summary line.
func writeTreeText(formatter *OutputFormatter, report *harness.TreeReport) {
	w := formatter.Writer
	for _, res := range report.Results {
		if res.Pass {
			if formatter.Verbose {
				fmt.Fprintf(w, "✓ %s\n", res.Input)
			}
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", res.Err().Error())
	}
	for _, warning := range report.Warnings {
		fmt.Fprintf(w, "! %s\n", warning)
	}
	fmt.Fprintf(w, "%d template(s), %d platform(s): %d passed, %d failed\n",
		report.Templates, report.Families, report.Passed(), report.Failed())
}
