package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roach88/textfsm/internal/clitable"
	"github.com/roach88/textfsm/internal/compiler"
	"github.com/roach88/textfsm/internal/config"
	"github.com/roach88/textfsm/internal/engine"
)

// TemplateSource names a template directly or through an index lookup.
// Empty fields fall back to the config.
type TemplateSource struct {
	Template string
	Index    string
	Platform string
	Command  string
}

// LoadedTemplate is a template read from disk and compiled.
type LoadedTemplate struct {
	Path     string
	Text     string
	Table    *compiler.StateTable
	Platform string
	Command  string
}

// LoadError represents an error that occurred while locating or loading a
// template or input.
type LoadError struct {
	Code    string
	Message string
	Path    string
	Err     error
}

func (e *LoadError) Error() string {
	msg := e.Message
	if e.Path != "" {
		msg = e.Path + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ResolveTemplate returns the template path named by src. An explicit
// template wins; relative names missing from the working directory are
// looked up in the config's templates_dir. Otherwise the index maps
// platform and command to the first template of the matching row.
func ResolveTemplate(src TemplateSource, cfg config.Config, logger *slog.Logger) (TemplateSource, error) {
	if src.Template != "" {
		if src.Command != "" {
			return src, &LoadError{Code: ErrCodeUsage, Message: "--template and --command are mutually exclusive"}
		}
		src.Template = resolveInDir(src.Template, cfg.TemplatesDir)
		return src, nil
	}

	if src.Index == "" {
		src.Index = cfg.Index
	}
	if src.Platform == "" {
		src.Platform = cfg.Platform
	}
	if src.Index == "" || src.Command == "" {
		return src, &LoadError{Code: ErrCodeUsage, Message: "need --template, or --index and --command"}
	}

	ix, err := clitable.Load(src.Index)
	if err != nil {
		return src, &LoadError{Code: ErrCodeIndex, Message: "failed to load index", Path: src.Index, Err: err}
	}
	dir, row, err := ix.Lookup(src.Platform, src.Command)
	if err != nil {
		return src, &LoadError{Code: ErrCodeIndex, Message: "no template for command", Path: src.Index, Err: err}
	}
	paths := row.TemplatePaths(dir)
	if len(paths) > 1 {
		logger.Warn("index row lists several templates; using the first",
			"index", src.Index, "line", row.Line, "templates", row.Templates)
	}
	src.Template = paths[0]
	logger.Debug("resolved template", "platform", src.Platform, "command", src.Command, "template", src.Template)
	return src, nil
}

func resolveInDir(name, dir string) string {
	if dir == "" || filepath.IsAbs(name) {
		return name
	}
	if _, err := os.Stat(name); err == nil {
		return name
	}
	return filepath.Join(dir, name)
}

// LoadTemplate reads and compiles the template named by src.
func LoadTemplate(src TemplateSource, logger *slog.Logger) (*LoadedTemplate, error) {
	data, err := os.ReadFile(src.Template)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: "cannot read template", Path: src.Template, Err: err}
	}
	table, err := compiler.Compile(string(data), compiler.WithLogger(logger.With("template", src.Template)))
	if err != nil {
		return nil, &LoadError{Code: ErrCodeCompile, Message: "template failed to compile", Path: src.Template, Err: err}
	}
	return &LoadedTemplate{
		Path:     src.Template,
		Text:     string(data),
		Table:    table,
		Platform: src.Platform,
		Command:  src.Command,
	}, nil
}

// readInput reads a whole input file.
func readInput(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &LoadError{Code: ErrCodeNotFound, Message: "cannot read input", Path: path, Err: err}
	}
	return string(data), nil
}

// reportError writes err through the formatter and returns the matching
// exit error. Rule errors raised by a template fail the run; everything
// else is a command error.
func reportError(f *OutputFormatter, err error) error {
	code, exit := ErrCodeGeneric, ExitCommandError
	var details interface{}

	var (
		loadErr    *LoadError
		compileErr *compiler.CompileError
		runtimeErr *engine.RuntimeError
	)
	if errors.As(err, &loadErr) {
		code = loadErr.Code
	}
	switch {
	case errors.As(err, &compileErr):
		code, details = ErrCodeCompile, compileErr
	case errors.As(err, &runtimeErr):
		code, exit, details = ErrCodeParse, ExitFailure, runtimeDetails(runtimeErr)
	}

	_ = f.Error(code, err.Error(), details)
	return reportedExitError(exit, code, err)
}

func runtimeDetails(e *engine.RuntimeError) map[string]interface{} {
	d := map[string]interface{}{
		"code":  string(e.Code),
		"state": e.State,
	}
	if e.Line > 0 {
		d["line"] = e.Line
		d["line_text"] = e.LineText
	}
	if e.RuleLine > 0 {
		d["rule_line"] = e.RuleLine
	}
	return d
}
