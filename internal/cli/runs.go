package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/textfsm/internal/ir"
	"github.com/roach88/textfsm/internal/store"
)

// RunsOptions holds flags for the runs command.
type RunsOptions struct {
	*RootOptions
	Database string
	Replay   bool
	Template string // only runs of this template file's current text
	Limit    int
}

// RunDetail is one archived run with its records.
type RunDetail struct {
	Run     store.Run   `json:"run"`
	Records []ir.Record `json:"records"`
}

// ReplaySummary holds the overall replay result.
type ReplaySummary struct {
	Runs     []*store.ReplayResult `json:"runs"`
	Total    int                   `json:"total"`
	AllMatch bool                  `json:"all_match"`
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "List archived runs, show one, or replay them",
		Long: `Inspect the run archive written by "parse --db".

Without a run ID the archived runs are listed in the order they were
written. With a run ID that run and its records are shown.

With --replay each selected run's archived template is recompiled and run
over its archived input, and the records digest is compared with the one
recorded. A difference means parsing behavior changed since the run was
archived.

Exit codes:
  0 - Success; every replayed run matched
  1 - A replayed run diverged
  2 - Command error (database not found, unknown run, etc.)

Examples:
  textfsm runs --db ./runs.db
  textfsm runs --db ./runs.db 0190a5c4-...
  textfsm runs --db ./runs.db --replay --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			return runRuns(opts, id, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default: db from config)")
	cmd.Flags().BoolVar(&opts.Replay, "replay", false, "re-parse archived inputs and compare")
	cmd.Flags().StringVar(&opts.Template, "template", "", "only runs of this template's current text")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum runs to list (0 is unlimited)")

	return cmd
}

func runRuns(opts *RunsOptions, id string, cmd *cobra.Command) error {
	formatter := opts.Formatter(cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Resolve the database: flag, then config file
	db := firstNonEmpty(opts.Database, opts.Config.DB)
	if db == "" {
		return reportError(formatter, &LoadError{Code: ErrCodeUsage, Message: "need --db"})
	}
	// Opening creates a missing database; listing should not.
	if _, err := os.Stat(db); err != nil {
		return reportError(formatter, &LoadError{Code: ErrCodeNotFound, Message: "database not found", Path: db, Err: err})
	}
	st, err := store.Open(db)
	if err != nil {
		return reportError(formatter, &LoadError{Code: ErrCodeStore, Message: "failed to open database", Path: db, Err: err})
	}
	defer st.Close()

	// Select runs: one by ID, or a filtered list in seq order
	var runs []store.Run
	if id != "" {
		run, err := st.ReadRun(ctx, id)
		if err != nil {
			return reportError(formatter, storeError(err, "run not found"))
		}
		runs = []store.Run{run}
	} else {
		filter := store.RunFilter{Limit: opts.Limit}
		if opts.Template != "" {
			text, err := os.ReadFile(opts.Template)
			if err != nil {
				return reportError(formatter, &LoadError{Code: ErrCodeNotFound, Message: "cannot read template", Path: opts.Template, Err: err})
			}
			// Runs archive template text by digest, so filter on what the
			// file holds now rather than on its path.
			filter.TemplateDigest = ir.TemplateDigest(string(text))
		}
		runs, err = st.ListRuns(ctx, filter)
		if err != nil {
			return reportError(formatter, storeError(err, "failed to list runs"))
		}
	}

	if opts.Replay {
		return replayRuns(ctx, opts, st, runs, formatter)
	}
	if id != "" {
		return showRun(ctx, st, runs[0], formatter)
	}

	// Output the listing
	if formatter.Structured() {
		return formatter.Success(runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs archived.")
		return nil
	}
	tw := tabwriter.NewWriter(formatter.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tID\tTEMPLATE\tINPUT\tRECORDS")
	for _, r := range runs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\n", r.Seq, r.ID, r.TemplatePath, r.InputPath, r.RecordCount)
	}
	return tw.Flush()
}

// showRun prints one run's metadata and its archived records.
func showRun(ctx context.Context, st *store.Store, run store.Run, formatter *OutputFormatter) error {
	records, err := st.ReadRecords(ctx, run.ID)
	if err != nil {
		return reportError(formatter, storeError(err, "failed to read records"))
	}
	if formatter.Structured() {
		return formatter.Respond(CLIResponse{Status: "ok", Data: RunDetail{Run: run, Records: records}, TraceID: run.ID})
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Run %s (seq %d)\n", run.ID, run.Seq)
	fmt.Fprintf(w, "  template: %s (%s)\n", run.TemplatePath, run.TemplateDigest)
	fmt.Fprintf(w, "  input:    %s (%s)\n", run.InputPath, run.InputDigest)
	if run.Platform != "" || run.Command != "" {
		fmt.Fprintf(w, "  command:  %s %s\n", run.Platform, run.Command)
	}
	fmt.Fprintf(w, "  engine %s, records %s: %d record(s)\n", run.EngineVersion, run.RecordVersion, run.RecordCount)
	fmt.Fprintln(w)

	// Archived records carry every declared value, so the first record's
	// names are the table header.
	var names []string
	if len(records) > 0 {
		names = records[0].SortedKeys()
	}
	return writeRecordTables(w, ParseOutput{
		Template: run.TemplatePath,
		Values:   names,
		Results:  []ParseResult{{Input: run.InputPath, Records: records}},
	})
}

// replayRuns re-parses each run from its archived blobs and compares the
// records digest with the archived one.
func replayRuns(ctx context.Context, opts *RunsOptions, st *store.Store, runs []store.Run, formatter *OutputFormatter) error {
	summary := ReplaySummary{Runs: make([]*store.ReplayResult, 0, len(runs)), Total: len(runs), AllMatch: true}
	for _, run := range runs {
		res, err := st.Replay(ctx, run.ID, opts.Logger())
		if err != nil {
			return reportError(formatter, storeError(err, fmt.Sprintf("failed to replay run %s", run.ID)))
		}
		summary.Runs = append(summary.Runs, res)
		if !res.Match {
			summary.AllMatch = false
		}
	}

	if formatter.Structured() {
		if !summary.AllMatch {
			_ = formatter.Error(ErrCodeReplay, "replayed records differ from the archive", summary)
		} else if err := formatter.Success(summary); err != nil {
			return err
		}
	} else {
		w := formatter.Writer
		for _, res := range summary.Runs {
			mark := "✓"
			if !res.Match {
				mark = "✗"
			}
			fmt.Fprintf(w, "%s %s %s on %s\n", mark, res.Run.ID, res.Run.TemplatePath, res.Run.InputPath)
			if !res.Match || formatter.Verbose {
				fmt.Fprintf(w, "    archived %s\n    replayed %s\n", res.Run.RecordsDigest, res.RecordsDigest)
			}
		}
		fmt.Fprintf(w, "%d run(s) replayed\n", summary.Total)
	}

	if !summary.AllMatch {
		return reportedExitError(ExitFailure, "replay diverged", nil)
	}
	return nil
}

// storeError classifies a store failure: a missing row is not-found,
// anything else is a storage error.
func storeError(err error, message string) *LoadError {
	if errors.Is(err, sql.ErrNoRows) {
		return &LoadError{Code: ErrCodeNotFound, Message: message, Err: err}
	}
	return &LoadError{Code: ErrCodeStore, Message: message, Err: err}
}
