// Package varsubst splits rule match text into literal text, escaped dollars
// and variable references.
//
// The syntax is the one rule authors already know from shell-style
// templates:
//
//	$name      variable reference
//	${name}    variable reference, delimited
//	$$         a literal "$" (in a rule this is usually the end-of-line anchor)
//
// Any other "$" is a syntax error. The resolver knows nothing about declared
// values; that check belongs to the rule compiler.
package varsubst

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// ChunkKind tags a Chunk.
type ChunkKind int

const (
	// Text is literal pattern text, copied through verbatim.
	Text ChunkKind = iota
	// Dollar is an escaped "$$"; it renders as a single "$".
	Dollar
	// Variable is a reference to a declared value.
	Variable
)

func (k ChunkKind) String() string {
	switch k {
	case Text:
		return "Text"
	case Dollar:
		return "Dollar"
	case Variable:
		return "Variable"
	default:
		return fmt.Sprintf("ChunkKind(%d)", int(k))
	}
}

// Chunk is one lexical piece of a rule's match text.
// Value holds the literal text for Text chunks and the variable name for
// Variable chunks; it is "$" for Dollar chunks.
type Chunk struct {
	Kind   ChunkKind
	Value  string
	Offset int
}

// SyntaxError reports a "$" that does not start a valid reference.
type SyntaxError struct {
	Input    string
	Offset   int
	Fragment string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid variable reference %q at offset %d", e.Fragment, e.Offset)
}

// substLexer tokenizes match text. Rule order matters: the longest "$"
// forms are tried first and the bare "$" rule only catches invalid input.
var substLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "DollarDollar", Pattern: `\$\$`},
	{Name: "Braced", Pattern: `\$\{[_A-Za-z][_A-Za-z0-9]*\}`},
	{Name: "Var", Pattern: `\$[_A-Za-z][_A-Za-z0-9]*`},
	{Name: "Stray", Pattern: `\$`},
	{Name: "Text", Pattern: `[^$]+`},
})

var (
	tokDollarDollar = substLexer.Symbols()["DollarDollar"]
	tokBraced       = substLexer.Symbols()["Braced"]
	tokVar          = substLexer.Symbols()["Var"]
	tokStray        = substLexer.Symbols()["Stray"]
	tokText         = substLexer.Symbols()["Text"]
)

// Resolve splits match text into chunks. Adjacent literal text is returned as
// a single Text chunk.
func Resolve(input string) ([]Chunk, error) {
	lex, err := substLexer.LexString("", input)
	if err != nil {
		return nil, fmt.Errorf("lex match text: %w", err)
	}

	var chunks []Chunk
	for {
		tok, err := lex.Next()
		if err != nil {
			return nil, fmt.Errorf("lex match text: %w", err)
		}
		if tok.EOF() {
			break
		}

		offset := tok.Pos.Offset
		switch tok.Type {
		case tokDollarDollar:
			chunks = append(chunks, Chunk{Kind: Dollar, Value: "$", Offset: offset})
		case tokBraced:
			name := strings.TrimSuffix(strings.TrimPrefix(tok.Value, "${"), "}")
			chunks = append(chunks, Chunk{Kind: Variable, Value: name, Offset: offset})
		case tokVar:
			chunks = append(chunks, Chunk{Kind: Variable, Value: tok.Value[1:], Offset: offset})
		case tokText:
			if n := len(chunks); n > 0 && chunks[n-1].Kind == Text {
				chunks[n-1].Value += tok.Value
				continue
			}
			chunks = append(chunks, Chunk{Kind: Text, Value: tok.Value, Offset: offset})
		case tokStray:
			return nil, &SyntaxError{Input: input, Offset: offset, Fragment: fragmentAt(input, offset)}
		default:
			return nil, fmt.Errorf("unexpected token %q at offset %d", tok.Value, offset)
		}
	}
	return chunks, nil
}

// Variables returns the referenced variable names in order of appearance,
// keeping duplicates.
func Variables(chunks []Chunk) []string {
	var names []string
	for _, c := range chunks {
		if c.Kind == Variable {
			names = append(names, c.Value)
		}
	}
	return names
}

// Render reassembles chunks, substituting each variable through sub.
func Render(chunks []Chunk, sub func(name string) string) string {
	var b strings.Builder
	for _, c := range chunks {
		switch c.Kind {
		case Text, Dollar:
			b.WriteString(c.Value)
		case Variable:
			b.WriteString(sub(c.Value))
		}
	}
	return b.String()
}

// fragmentAt returns up to a few characters starting at offset, for errors.
func fragmentAt(s string, offset int) string {
	end := min(offset+8, len(s))
	return s[offset:end]
}
