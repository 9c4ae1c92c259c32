// Package clitable maps a platform and a CLI command to the templates that
// parse its output, using an ntc-templates style index file:
//
//	# comments start with '#'
//	Template, Hostname, Platform, Command
//	cisco_ios_show_version.textfsm, .*, cisco_ios, sh[[ow]] ver[[sion]]
//
// Command cells may abbreviate with [[...]]: "sh[[ow]]" accepts "sh", "sho"
// and "show". Commands are matched from the start of the input command.
package clitable

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/roach88/textfsm/internal/pattern"
)

var (
	// ErrUnknownPlatform is returned by Lookup for a platform with no rows.
	ErrUnknownPlatform = errors.New("unknown platform")
	// ErrNoMatch is returned by Lookup when no row matches the command.
	ErrNoMatch = errors.New("no template matches command")
)

// Required and optional header columns.
const (
	ColTemplate = "Template"
	ColCommand  = "Command"
	ColPlatform = "Platform"
	ColHostname = "Hostname"
)

// Row is one index entry.
type Row struct {
	Templates []string `json:"templates" yaml:"templates"`
	Hostname  string   `json:"hostname,omitempty" yaml:"hostname,omitempty"`
	Platform  string   `json:"platform,omitempty" yaml:"platform,omitempty"`
	Command   string   `json:"command" yaml:"command"`
	Line      int      `json:"line" yaml:"line"`
}

// TemplatePaths resolves the row's template file names against dir.
func (r Row) TemplatePaths(dir string) []string {
	paths := make([]string, len(r.Templates))
	for i, t := range r.Templates {
		paths[i] = filepath.Join(dir, t)
	}
	return paths
}

type rule struct {
	row     int
	command *pattern.Pattern
}

// Index is a loaded index file.
type Index struct {
	path  string
	rows  []Row
	rules map[string][]rule
}

// Load reads an index file from disk.
func Load(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	defer f.Close()
	return Parse(f, path)
}

// Parse reads an index from r. path names the file; its directory is where
// the templates live.
func Parse(r io.Reader, path string) (*Index, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%s: read header: %w", path, err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(h)] = i
	}
	for _, required := range []string{ColTemplate, ColCommand} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%s: header has no %s column", path, required)
		}
	}

	ix := &Index{path: path, rules: make(map[string][]rule)}
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		line, _ := cr.FieldPos(0)

		cell := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		row := Row{
			Hostname: cell(ColHostname),
			Platform: cell(ColPlatform),
			Command:  cell(ColCommand),
			Line:     line,
		}
		for _, t := range strings.Split(cell(ColTemplate), ":") {
			if t = strings.TrimSpace(t); t != "" {
				row.Templates = append(row.Templates, t)
			}
		}
		if len(row.Templates) == 0 {
			return nil, fmt.Errorf("%s:%d: row has no template", path, line)
		}

		expr := "^(?:" + ExpandBrackets(row.Command) + ")"
		p, err := pattern.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: command %q: %w", path, line, row.Command, err)
		}

		ix.rules[row.Platform] = append(ix.rules[row.Platform], rule{row: len(ix.rows), command: p})
		ix.rows = append(ix.rows, row)
	}
	return ix, nil
}

// Path returns the index file path.
func (ix *Index) Path() string { return ix.path }

// Dir returns the directory holding the index, where its templates live.
func (ix *Index) Dir() string { return filepath.Dir(ix.path) }

// Rows returns every row in file order.
func (ix *Index) Rows() []Row { return slices.Clone(ix.rows) }

// Platforms returns the distinct platforms, sorted. Rows without a platform
// are listed under "".
func (ix *Index) Platforms() []string {
	out := make([]string, 0, len(ix.rules))
	for p := range ix.rules {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// Lookup returns the template directory and the first row of platform whose
// command pattern matches command.
func (ix *Index) Lookup(platform, command string) (string, Row, error) {
	rules, ok := ix.rules[platform]
	if !ok {
		return "", Row{}, fmt.Errorf("%w: %q", ErrUnknownPlatform, platform)
	}
	command = strings.TrimSpace(command)
	for _, r := range rules {
		matched, err := r.command.MatchString(command)
		if err != nil {
			return "", Row{}, fmt.Errorf("match command %q: %w", command, err)
		}
		if matched {
			return ix.Dir(), ix.rows[r.row], nil
		}
	}
	return "", Row{}, fmt.Errorf("%w: platform %q, command %q", ErrNoMatch, platform, command)
}

// ExpandBrackets rewrites every [[abc]] into the optional chain (a(b(c)?)?)?.
// An unterminated [[ is kept literally.
func ExpandBrackets(s string) string {
	var b strings.Builder
	for {
		start := strings.Index(s, "[[")
		if start < 0 {
			break
		}
		b.WriteString(s[:start])
		rest := s[start+2:]
		end := strings.Index(rest, "]]")
		if end < 0 {
			b.WriteString("[[")
			s = rest
			continue
		}
		b.WriteString(expandAbbrev(rest[:end]))
		s = rest[end+2:]
	}
	b.WriteString(s)
	return b.String()
}

func expandAbbrev(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	n := 0
	for _, r := range s {
		b.WriteByte('(')
		b.WriteRune(r)
		n++
	}
	b.WriteString(strings.Repeat(")?", n))
	return b.String()
}
