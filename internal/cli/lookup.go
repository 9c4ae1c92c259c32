package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/textfsm/internal/clitable"
)

// LookupOptions holds flags for the lookup command.
type LookupOptions struct {
	*RootOptions
	Index string
}

// LookupResult is the data payload of the lookup command.
type LookupResult struct {
	Platform  string       `json:"platform"`
	Command   string       `json:"command"`
	Templates []string     `json:"templates"`
	Row       clitable.Row `json:"row"`
}

// NewLookupCommand creates the lookup command.
func NewLookupCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LookupOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "lookup <platform> <command...>",
		Short: "Find the templates an index maps a command to",
		Long: `Look up platform and command in an index file and print the templates of
the first matching row. Commands may be abbreviated as far as the index
allows, e.g. "sh ver" for "sh[[ow]] ver[[sion]]".

Exits 1 when no row matches.`,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLookup(opts, args[0], strings.Join(args[1:], " "), cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Index, "index", "", "index file (default: index from config)")

	return cmd
}

func runLookup(opts *LookupOptions, platform, command string, cmd *cobra.Command) error {
	formatter := opts.Formatter(cmd)

	// The flag wins over the config file
	path := firstNonEmpty(opts.Index, opts.Config.Index)
	if path == "" {
		return reportError(formatter, &LoadError{Code: ErrCodeUsage, Message: "need --index"})
	}
	ix, err := clitable.Load(path)
	if err != nil {
		return reportError(formatter, &LoadError{Code: ErrCodeIndex, Message: "failed to load index", Path: path, Err: err})
	}

	// A miss is an answer, not a usage error: exit 1 and list the platforms
	// the index does know, which is usually what went wrong.
	dir, row, err := ix.Lookup(platform, command)
	if err != nil {
		_ = formatter.Error(ErrCodeIndex, err.Error(), map[string]interface{}{
			"index":     path,
			"platforms": ix.Platforms(),
		})
		return reportedExitError(ExitFailure, "lookup failed", err)
	}

	result := LookupResult{
		Platform:  platform,
		Command:   command,
		Templates: row.TemplatePaths(dir),
		Row:       row,
	}
	if formatter.Structured() {
		return formatter.Success(result)
	}
	for _, t := range result.Templates {
		fmt.Fprintln(formatter.Writer, t)
	}
	formatter.VerboseLog("matched %s line %d: %s", path, row.Line, row.Command)
	return nil
}
