package pattern

import "strings"

// findUnrepeatable scans expr for a quantifier applied directly to a
// zero-width assertion: an anchor (^ $ \b \B \A \z \Z \G) or a lookaround
// group. It returns the quantifier's offset and width.
func findUnrepeatable(expr string) (offset, width int, ok bool) {
	var groups []bool // true for lookaround groups
	// zeroWidth is true when the atom just scanned matches no text, so a
	// quantifier after it repeats an assertion.
	zeroWidth := false

	i := 0
	for i < len(expr) {
		c := expr[i]
		switch c {
		case '\\':
			if i+1 >= len(expr) {
				return 0, 0, false
			}
			next := expr[i+1]
			i += 2
			// \p{Greek}, \x{263a}: the braces are part of the escape, not a
			// quantifier.
			if (next == 'p' || next == 'P' || next == 'x') && i < len(expr) && expr[i] == '{' {
				if end := strings.IndexByte(expr[i:], '}'); end >= 0 {
					i += end + 1
				}
			}
			zeroWidth = strings.IndexByte("bBAzZG", next) >= 0
			continue

		case '[':
			// Metacharacters inside a class are literals
			i = skipClass(expr, i)
			zeroWidth = false
			continue

		case '(':
			lookaround := false
			i++
			if i < len(expr) && expr[i] == '?' {
				var skip int
				skip, lookaround = groupPrefix(expr[i+1:])
				i += 1 + skip
			}
			groups = append(groups, lookaround)
			zeroWidth = false
			continue

		case ')':
			// A closed group is zero-width only if it was a lookaround
			zeroWidth = false
			if n := len(groups); n > 0 {
				zeroWidth = groups[n-1]
				groups = groups[:n-1]
			}
			i++
			continue

		case '^', '$':
			zeroWidth = true
			i++
			continue

		case '*', '+', '?':
			if zeroWidth {
				return i, 1, true
			}
			i++
			// A lazy or possessive suffix belongs to this quantifier.
			if i < len(expr) && (expr[i] == '?' || expr[i] == '+') {
				i++
			}
			zeroWidth = false
			continue

		case '{':
			// A brace that does not form a quantifier is a literal
			if n := braceQuantifier(expr[i:]); n > 0 {
				if zeroWidth {
					return i, n, true
				}
				i += n
				zeroWidth = false
				continue
			}
		}

		zeroWidth = false
		i++
	}
	return 0, 0, false
}

// groupPrefix measures the part of a group opener after "(?" and reports
// whether it opens a lookaround.
func groupPrefix(s string) (skip int, lookaround bool) {
	switch {
	case strings.HasPrefix(s, "="), strings.HasPrefix(s, "!"):
		return 1, true
	case strings.HasPrefix(s, "<="), strings.HasPrefix(s, "<!"):
		return 2, true
	case strings.HasPrefix(s, "P<"), strings.HasPrefix(s, "<"):
		if end := strings.IndexByte(s, '>'); end >= 0 {
			return end + 1, false
		}
	case strings.HasPrefix(s, "'"):
		if end := strings.IndexByte(s[1:], '\''); end >= 0 {
			return end + 2, false
		}
	}

	// Flag groups: (?i) (?i:...) (?:...)
	n := 0
	for n < len(s) && (s[n] >= 'a' && s[n] <= 'z' || s[n] >= 'A' && s[n] <= 'Z' || s[n] == '-') {
		n++
	}
	if n < len(s) && s[n] == ':' {
		n++
	}
	return n, false
}

// skipClass returns the offset just past the character class opening at i.
func skipClass(expr string, i int) int {
	i++ // '['
	if i < len(expr) && expr[i] == '^' {
		i++
	}
	// A ']' first in the class is a literal
	if i < len(expr) && expr[i] == ']' {
		i++
	}
	for i < len(expr) {
		switch {
		case expr[i] == '\\':
			i += 2
		case strings.HasPrefix(expr[i:], "[:"):
			if end := strings.Index(expr[i+2:], ":]"); end >= 0 {
				i += end + 4
			} else {
				i++
			}
		case expr[i] == ']':
			return i + 1
		default:
			i++
		}
	}
	return len(expr)
}

// braceQuantifier returns the length of a {n}, {n,} or {n,m} quantifier at
// the start of s, or 0.
func braceQuantifier(s string) int {
	i := 1
	digits := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
		digits++
	}
	if digits == 0 {
		return 0
	}
	if i < len(s) && s[i] == ',' {
		i++
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
		}
	}
	if i < len(s) && s[i] == '}' {
		return i + 1
	}
	return 0
}
