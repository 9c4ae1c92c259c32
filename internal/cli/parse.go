package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/textfsm/internal/engine"
	"github.com/roach88/textfsm/internal/ir"
	"github.com/roach88/textfsm/internal/store"
)

// stdinName is the input name for standard input.
const stdinName = "-"

// ParseOptions holds flags for the parse command.
type ParseOptions struct {
	*RootOptions
	TemplateSource

	LowercaseKeys bool
	Database      string
	MaxRecords    int
	Watch         bool

	// IDGenerator allows overriding archived run IDs (for testing).
	// If nil, the store uses UUIDv7.
	IDGenerator store.IDGenerator
}

// ParseResult is the outcome of parsing one input.
type ParseResult struct {
	Input   string      `json:"input"`
	RunID   string      `json:"run_id,omitempty"`
	Records []ir.Record `json:"records"`
}

// ParseOutput is the data payload of the parse command.
type ParseOutput struct {
	Template string        `json:"template"`
	Values   []string      `json:"values"`
	Results  []ParseResult `json:"results"`
}

// NewParseCommand creates the parse command.
func NewParseCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ParseOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "parse [input...]",
		Short: "Parse CLI output with a template",
		Long: `Run a template over one or more inputs and print the extracted records.

The template is given with --template, or looked up in an index file by
platform and command. With no inputs, or "-", standard input is parsed.

Example:
  textfsm parse --template cisco_ios_show_clock.textfsm clock.txt
  textfsm parse --index templates/index --platform cisco_ios --command "sh clock" clock.txt
  show_clock | textfsm parse -t show_clock.textfsm --format json --lowercase-keys`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Template, "template", "t", "", "template file")
	cmd.Flags().StringVar(&opts.Index, "index", "", "index file mapping platform and command to templates")
	cmd.Flags().StringVar(&opts.Platform, "platform", "", "platform for index lookup")
	cmd.Flags().StringVar(&opts.Command, "command", "", "CLI command for index lookup")
	cmd.Flags().BoolVar(&opts.LowercaseKeys, "lowercase-keys", false, "lowercase value names in output records")
	cmd.Flags().StringVar(&opts.Database, "db", "", "archive each run to this SQLite database")
	cmd.Flags().IntVar(&opts.MaxRecords, "max-records", 0, "fail when a parse emits more records (0 is unlimited)")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "re-parse when the template or an input changes")

	return cmd
}

func runParse(opts *ParseOptions, args []string, cmd *cobra.Command) error {
	logger := opts.Logger()
	formatter := opts.Formatter(cmd)
	cfg := opts.Config

	// No inputs means standard input, which cannot be watched
	if len(args) == 0 {
		args = []string{stdinName}
	}
	if opts.Watch && containsStdin(args) {
		return reportError(formatter, &LoadError{Code: ErrCodeUsage, Message: "--watch needs file inputs"})
	}

	// Resolve the template once; its text is re-read on every run so that
	// --watch picks up edits.
	src, err := ResolveTemplate(opts.TemplateSource, cfg, logger)
	if err != nil {
		return reportError(formatter, err)
	}

	// Open the archive if one is configured
	db := firstNonEmpty(opts.Database, cfg.DB)
	var st *store.Store
	if db != "" {
		var storeOpts []store.Option
		if opts.IDGenerator != nil {
			storeOpts = append(storeOpts, store.WithIDGenerator(opts.IDGenerator))
		}
		st, err = store.Open(db, storeOpts...)
		if err != nil {
			return reportError(formatter, &LoadError{Code: ErrCodeStore, Message: "failed to open database", Path: db, Err: err})
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
		logger.Debug("archiving runs", "db", db)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	p := &parser{
		src:    src,
		store:  st,
		logger: logger,
		stdin:  cmd.InOrStdin(),
		max:    opts.MaxRecords,
		lower:  opts.LowercaseKeys || cfg.LowercaseKeys,
	}
	// A zero flag falls back to the config file, where zero is unlimited
	if p.max == 0 {
		p.max = cfg.MaxRecords
	}

	// First run; without --watch this is the whole command
	if err := p.run(ctx, formatter, args); err != nil || !opts.Watch {
		return err
	}

	// Watch until interrupted
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	w, err := newFileWatcher(append([]string{src.Template}, args...), logger)
	if err != nil {
		return reportError(formatter, &LoadError{Code: ErrCodeGeneric, Message: "cannot watch files", Err: err})
	}
	defer w.Close()

	formatter.VerboseLog("watching %d file(s); press Ctrl-C to stop", len(args)+1)
	return w.Run(ctx, func(path string) {
		logger.Info("re-parsing", "changed", path)
		// Errors were already reported; keep watching.
		_ = p.run(ctx, formatter, args)
	})
}

// parser runs one template over a set of inputs.
type parser struct {
	src    TemplateSource
	store  *store.Store
	logger *slog.Logger
	stdin  io.Reader
	max    int
	lower  bool
}

// run loads the template afresh, parses every input and writes the output.
func (p *parser) run(ctx context.Context, formatter *OutputFormatter, inputs []string) error {
	tmpl, err := LoadTemplate(p.src, p.logger)
	if err != nil {
		return reportError(formatter, err)
	}

	// Column names follow the same conversion as the records
	out := ParseOutput{Template: tmpl.Path, Values: tmpl.Table.ValueNames()}
	if p.lower {
		for i, name := range out.Values {
			out.Values[i] = engine.LowerName(name)
		}
	}
	for _, name := range inputs {
		text, err := p.read(name)
		if err != nil {
			return reportError(formatter, err)
		}
		result, err := p.parseOne(ctx, tmpl, name, text)
		if err != nil {
			return reportError(formatter, err)
		}
		out.Results = append(out.Results, result)
	}

	// A single archived run is the natural trace ID for the response
	if formatter.Structured() {
		resp := CLIResponse{Status: "ok", Data: out}
		if len(out.Results) == 1 {
			resp.TraceID = out.Results[0].RunID
		}
		return formatter.Respond(resp)
	}
	return writeRecordTables(formatter.Writer, out)
}

// read returns an input's text; stdinName reads standard input.
func (p *parser) read(name string) (string, error) {
	if name != stdinName {
		return readInput(name)
	}
	data, err := io.ReadAll(p.stdin)
	if err != nil {
		return "", &LoadError{Code: ErrCodeNotFound, Message: "cannot read standard input", Err: err}
	}
	return string(data), nil
}

// parseOne parses text and archives the unconverted records, so a replay
// of the archived run reproduces its digest.
func (p *parser) parseOne(ctx context.Context, tmpl *LoadedTemplate, name, text string) (ParseResult, error) {
	logger := p.logger.With("template", tmpl.Path, "input", name)
	it := engine.New(tmpl.Table, engine.WithLogger(logger), engine.WithMaxRecords(p.max))
	raw, err := it.ParseText(text)
	if err != nil {
		return ParseResult{}, err
	}
	logger.Debug("parsed", "records", len(raw))
	// Encode as [] rather than null
	if raw == nil {
		raw = []ir.Record{}
	}

	result := ParseResult{Input: name, Records: raw}
	if p.lower {
		result.Records = engine.Convert(raw, engine.LowercaseKeys)
	}

	if p.store != nil {
		run, err := p.store.WriteRun(ctx, store.Run{
			TemplatePath: tmpl.Path,
			InputPath:    name,
			Platform:     tmpl.Platform,
			Command:      tmpl.Command,
		}, tmpl.Text, text, raw)
		if err != nil {
			return ParseResult{}, &LoadError{Code: ErrCodeStore, Message: "failed to archive run", Err: err}
		}
		result.RunID = run.ID
		logger.Info("archived run", "id", run.ID, "seq", run.Seq, "records_digest", run.RecordsDigest)
	}
	return result, nil
}

// writeRecordTables prints each input's records as an aligned table, one
// column per value in declaration order.
func writeRecordTables(w io.Writer, out ParseOutput) error {
	for i, result := range out.Results {
		if len(out.Results) > 1 {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "==> %s <==\n", result.Input)
		}
		if len(result.Records) == 0 {
			fmt.Fprintln(w, "(no records)")
			continue
		}

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, strings.Join(out.Values, "\t"))
		for _, rec := range result.Records {
			cells := make([]string, len(out.Values))
			for j, name := range out.Values {
				cells[j] = ir.ValueString(rec[name])
			}
			fmt.Fprintln(tw, strings.Join(cells, "\t"))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		if result.RunID != "" {
			fmt.Fprintf(w, "archived as run %s\n", result.RunID)
		}
	}
	return nil
}

// containsStdin reports whether any input names standard input.
func containsStdin(args []string) bool {
	for _, a := range args {
		if a == stdinName {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
