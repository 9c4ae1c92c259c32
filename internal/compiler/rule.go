package compiler

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/textfsm/internal/ir"
	"github.com/roach88/textfsm/internal/pattern"
	"github.com/roach88/textfsm/internal/varsubst"
)

// Rule is a compiled rule: the match text with every variable reference
// spliced into a named group, compiled on one of the two regex backends.
type Rule struct {
	Match      string           `json:"match"`
	Expanded   string           `json:"expanded"`
	Captures   []string         `json:"captures,omitempty"`
	Pattern    *pattern.Pattern `json:"-"`
	Transition ir.Transition    `json:"transition"`
	Line       int              `json:"line,omitempty"`
}

// Backend reports which regex engine the rule runs on.
func (r *Rule) Backend() pattern.Kind { return r.Pattern.Kind() }

// Option configures compilation.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger routes compile warnings to logger instead of slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func buildOptions(opts []Option) options {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// CompileRule compiles one parsed rule against the declared values.
// state only labels errors and warnings.
func CompileRule(def ir.RuleDef, state string, values []ir.ValueDef, opts ...Option) (*Rule, error) {
	o := buildOptions(opts)
	rc := newRuleCompiler(values, o.logger)
	return rc.compile(def, state)
}

// ruleCompiler holds the cleaned value patterns shared by every rule of a
// template.
type ruleCompiler struct {
	patterns map[string]string
	logger   *slog.Logger
}

func newRuleCompiler(values []ir.ValueDef, logger *slog.Logger) *ruleCompiler {
	rc := &ruleCompiler{patterns: make(map[string]string, len(values)), logger: logger}
	for _, v := range values {
		rc.patterns[v.Name] = unescapeAngles(v.Pattern, logger, "value", v.Name, "line", v.Line)
	}
	return rc
}

func (rc *ruleCompiler) compile(def ir.RuleDef, state string) (*Rule, error) {
	rule := &Rule{Match: def.Match, Transition: def.Transition, Line: def.Line}

	match := def.Match
	if def.Action == "" {
		if trimmed := strings.TrimRight(match, " \t"); trimmed != match {
			rc.logger.Warn("stripped trailing whitespace from rule",
				"state", state, "line", def.Line, "match", match)
			match = trimmed
			rule.Match = trimmed
		}
	}
	match = unescapeAngles(match, rc.logger, "state", state, "line", def.Line)

	chunks, err := varsubst.Resolve(match)
	if err != nil {
		var se *varsubst.SyntaxError
		if errors.As(err, &se) {
			return nil, variableSyntaxError(*rule, state, se)
		}
		return nil, err
	}

	seen := make(map[string]bool)
	for _, c := range chunks {
		if c.Kind != varsubst.Variable {
			continue
		}
		if _, ok := rc.patterns[c.Value]; !ok {
			return nil, &CompileError{
				Code:     ErrUndefinedVariable,
				Line:     def.Line,
				State:    state,
				Fragment: "$" + c.Value,
				Offset:   c.Offset,
				Message:  fmt.Sprintf("rule %q references undeclared value %q", def.Match, c.Value),
			}
		}
		if !seen[c.Value] {
			seen[c.Value] = true
			rule.Captures = append(rule.Captures, c.Value)
		}
	}

	rule.Expanded = varsubst.Render(chunks, func(name string) string {
		return "(?<" + name + ">" + rc.patterns[name] + ")"
	})

	p, repairs, err := pattern.CompileRepairing(rule.Expanded)
	for _, r := range repairs {
		rc.logger.Warn("removed quantifier on zero-width assertion",
			"state", state, "line", def.Line,
			"quantifier", r.Removed, "offset", r.Offset, "pattern", r.Before)
	}
	if err != nil {
		var pe *pattern.Error
		if errors.As(err, &pe) {
			return nil, regexError(*rule, state, pe)
		}
		return nil, err
	}
	rule.Pattern = p
	return rule, nil
}

// unescapeAngles rewrites \< and \> to bare angle brackets, which RE2 rejects
// as unknown escapes. attrs label the warning.
func unescapeAngles(s string, logger *slog.Logger, attrs ...any) string {
	if !strings.Contains(s, `\<`) && !strings.Contains(s, `\>`) {
		return s
	}
	out := strings.NewReplacer(`\\`, `\\`, `\<`, "<", `\>`, ">").Replace(s)
	if out != s {
		logger.Warn("unescaped angle brackets in pattern", append(attrs, "pattern", s)...)
	}
	return out
}
