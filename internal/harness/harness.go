package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/textfsm/internal/compiler"
	"github.com/roach88/textfsm/internal/engine"
	"github.com/roach88/textfsm/internal/ir"
)

// Option configures a verification run.
type Option func(*Harness)

// WithLogger sets the logger for progress and template warnings.
// Defaults to a discarding logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) { h.logger = logger }
}

// WithConversions replaces the record conversions applied before comparison.
// Defaults to LowercaseKeys.
func WithConversions(convs ...engine.Conversion) Option {
	return func(h *Harness) { h.convs = convs }
}

// Harness compiles templates once and verifies captures against samples.
type Harness struct {
	logger    *slog.Logger
	convs     []engine.Conversion
	templates map[string]*compiler.StateTable
}

// New returns a harness.
func New(opts ...Option) *Harness {
	h := &Harness{
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		convs:     []engine.Conversion{engine.LowercaseKeys},
		templates: make(map[string]*compiler.StateTable),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Verify runs one case with a fresh harness.
func Verify(templatePath, rawPath, samplePath string, opts ...Option) (*Result, error) {
	return New(opts...).Verify(templatePath, rawPath, samplePath)
}

// Verify parses rawPath with the template and compares against the sample.
// File and sample errors are returned; compile and parse errors fail the
// result.
func (h *Harness) Verify(templatePath, rawPath, samplePath string) (*Result, error) {
	result := NewResult(templatePath, rawPath, samplePath)

	expected, err := LoadSample(samplePath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", samplePath, err)
	}
	result.Expected = expected

	// Compile and parse failures belong to the result, not the caller
	records, err := h.Parse(templatePath, rawPath)
	if err != nil {
		var ce *compiler.CompileError
		var re *engine.RuntimeError
		if !errors.As(err, &ce) && !errors.As(err, &re) {
			return nil, err
		}
		result.AddError(err.Error())
		return result, nil
	}
	result.Records = records
	result.AddDiffs(Compare(records, expected))

	h.logger.Debug("verified",
		"template", templatePath,
		"input", rawPath,
		"records", len(records),
		"pass", result.Pass,
	)
	return result, nil
}

// Parse runs the template over rawPath and applies the harness conversions.
func (h *Harness) Parse(templatePath, rawPath string) ([]ir.Record, error) {
	table, err := h.compile(templatePath)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(rawPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	records, err := engine.New(table, engine.WithLogger(h.logger)).ParseReader(f)
	if err != nil {
		return nil, err
	}
	return engine.Convert(records, h.convs...), nil
}

func (h *Harness) compile(path string) (*compiler.StateTable, error) {
	// Templates are compiled once per harness; a tree reuses each many times
	if table, ok := h.templates[path]; ok {
		return table, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open template: %w", err)
	}
	defer f.Close()

	table, err := compiler.CompileReader(f, compiler.WithLogger(h.logger.With("template", path)))
	if err != nil {
		return nil, err
	}
	h.templates[path] = table
	return table, nil
}

// RunTree verifies every case of an ntc-templates checkout.
func RunTree(ctx context.Context, root string, opts ...Option) (*TreeReport, error) {
	return New(opts...).RunTree(ctx, root)
}

// RunTree verifies every case under root. A case whose sample cannot be
// loaded fails with the load error; the run continues.
func (h *Harness) RunTree(ctx context.Context, root string) (*TreeReport, error) {
	report, cases, err := DiscoverTree(root)
	if err != nil {
		return nil, err
	}
	for _, w := range report.Warnings {
		h.logger.Warn(w)
	}

	for _, c := range cases {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		h.logger.Info("verify", "template", c.Template, "input", c.Raw, "sample", c.Sample)

		res, err := h.Verify(c.Template, c.Raw, c.Sample)
		if err != nil {
			res = NewResult(c.Template, c.Raw, c.Sample)
			res.AddError(err.Error())
		}
		if !res.Pass {
			h.logger.Warn("results differ", "template", c.Template, "input", c.Raw)
		}
		report.Results = append(report.Results, res)
	}
	return report, nil
}

// DiscoverTree lists the cases of an ntc-templates checkout in directory
// order. The report carries template and family counts and warnings.
func DiscoverTree(root string) (*TreeReport, []Case, error) {
	templateDir := filepath.Join(root, "ntc_templates", "templates")
	testsDir := filepath.Join(root, "tests")

	templates, err := filesWithExt(templateDir, ".textfsm")
	if err != nil {
		return nil, nil, fmt.Errorf("scan templates: %w", err)
	}
	known := make(map[string]bool, len(templates))
	for _, t := range templates {
		known[t] = true
	}
	families, err := subdirs(testsDir)
	if err != nil {
		return nil, nil, fmt.Errorf("scan tests: %w", err)
	}

	report := &TreeReport{Root: root, Templates: len(templates), Families: len(families)}
	var cases []Case
	for _, family := range families {
		sets, err := subdirs(filepath.Join(testsDir, family))
		if err != nil {
			return nil, nil, fmt.Errorf("scan test family %s: %w", family, err)
		}
		for _, set := range sets {
			name := family + "_" + set
			if !known[name] {
				report.Warnings = append(report.Warnings,
					fmt.Sprintf("no template for family %s test set %s", family, set))
				continue
			}
			setDir := filepath.Join(testsDir, family, set)
			raws, err := filesWithExt(setDir, ".raw")
			if err != nil {
				return nil, nil, fmt.Errorf("scan test set %s: %w", setDir, err)
			}
			for _, raw := range raws {
				sample := filepath.Join(setDir, raw+".yml")
				rawPath := filepath.Join(setDir, raw+".raw")
				if _, err := os.Stat(sample); err != nil {
					report.Warnings = append(report.Warnings,
						fmt.Sprintf("raw file %s has no sample", rawPath))
					continue
				}
				cases = append(cases, Case{
					Family:   family,
					Set:      set,
					Name:     raw,
					Template: filepath.Join(templateDir, name+".textfsm"),
					Raw:      rawPath,
					Sample:   sample,
				})
			}
		}
	}
	return report, cases, nil
}

// filesWithExt returns the base names (extension stripped) of regular files
// in dir with extension ext.
func filesWithExt(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && filepath.Ext(e.Name()) == ext {
			names = append(names, strings.TrimSuffix(e.Name(), ext))
		}
	}
	return names, nil
}

// subdirs returns directory names in dir that carry no extension.
func subdirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && filepath.Ext(e.Name()) == "" {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
