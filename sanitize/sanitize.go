package sanitize

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// DefaultNumericReplacement is the token substituted for an illegal numeric
// literal when a Sanitizer does not specify one. Zero is a valid literal for
// every numeric type of the format, including integers.
const DefaultNumericReplacement = "0"

// IsIllegal returns whether r is a code point that is not permitted in XML 1.0
// character data.
func IsIllegal(r rune) bool {
	switch {
	case r == 0x9 || r == 0xA || r == 0xD:
		return false
	case 0x20 <= r && r <= 0xD7FF:
		return false
	case 0xE000 <= r && r <= 0xFFFD:
		return false
	case 0x10000 <= r && r <= 0x10FFFF:
		return false
	default:
		return true
	}
}

// illegalNumerics contains spellings of non-finite floats produced by common
// formatters (C runtimes, MSVC, .NET, Go, Roblox).
var illegalNumerics = map[string]struct{}{
	"nan": {}, "-nan": {}, "+nan": {},
	"NaN": {}, "-NaN": {}, "+NaN": {},
	"NAN": {}, "-NAN": {},
	"nan(ind)": {}, "-nan(ind)": {},
	"nan(snan)": {}, "-nan(snan)": {},
	"inf": {}, "-inf": {}, "+inf": {},
	"Inf": {}, "-Inf": {}, "+Inf": {},
	"INF": {}, "-INF": {}, "+INF": {},
	"infinity": {}, "-infinity": {}, "+infinity": {},
	"Infinity": {}, "-Infinity": {}, "+Infinity": {},
	"1.#IND": {}, "-1.#IND": {},
	"1.#INF": {}, "-1.#INF": {},
	"1.#QNAN": {}, "-1.#QNAN": {},
	"1.#SNAN": {}, "-1.#SNAN": {},
	"1.#IND00": {}, "-1.#IND00": {},
	"1.#INF00": {}, "-1.#INF00": {},
	"1.#QNAN0": {}, "-1.#QNAN0": {},
}

// IsIllegalNumeric returns whether s is exactly one of the known spellings of
// a non-finite float. Matching is case-sensitive and applies to the whole
// string.
func IsIllegalNumeric(s string) bool {
	_, ok := illegalNumerics[s]
	return ok
}

// Changes counts the modifications made by a Sanitizer.
type Changes struct {
	// Chars is the number of illegal characters removed. An invalid UTF-8
	// byte counts as one character.
	Chars int
	// Literals is the number of numeric spans replaced.
	Literals int
	// CharRefs is the number of character references removed.
	CharRefs int
}

// Add returns the sum of c and d.
func (c Changes) Add(d Changes) Changes {
	return Changes{
		Chars:    c.Chars + d.Chars,
		Literals: c.Literals + d.Literals,
		CharRefs: c.CharRefs + d.CharRefs,
	}
}

// Zero returns whether no changes were made.
func (c Changes) Zero() bool {
	return c == Changes{}
}

// Sanitizer transforms fragments into XML-safe fragments. The zero value is
// ready to use. A Sanitizer is not modified by its methods, and may be used
// concurrently.
type Sanitizer struct {
	// NumericReplacement is the token that replaces the content of a numeric
	// span matching an illegal numeric literal. If empty,
	// DefaultNumericReplacement is used.
	NumericReplacement string

	// Markup indicates that text spans contain raw XML markup rather than
	// character data. When true, character references that resolve to an
	// illegal character are removed as well.
	Markup bool
}

func (s Sanitizer) replacement() string {
	if s.NumericReplacement == "" {
		return DefaultNumericReplacement
	}
	return s.NumericReplacement
}

// Span returns the sanitized form of a single span, which has the same Kind.
func (s Sanitizer) Span(span Span) (Span, Changes) {
	var c Changes
	if span.Kind == Opaque {
		return span, c
	}
	text := span.Text
	text, c.Chars = filterChars(text)
	if s.Markup {
		text, c.CharRefs = stripCharRefs(text)
	}
	if span.Kind == Numeric && IsIllegalNumeric(text) {
		text = s.replacement()
		c.Literals++
	}
	return Span{Kind: span.Kind, Text: text}, c
}

// Sanitize returns a new fragment with each span sanitized. The result has
// the same number of spans as f, each with the same Kind.
func (s Sanitizer) Sanitize(f Fragment) (Fragment, Changes) {
	var total Changes
	out := make(Fragment, len(f))
	for i, span := range f {
		var c Changes
		out[i], c = s.Span(span)
		total = total.Add(c)
	}
	return out, total
}

// Sanitize sanitizes f with the default policy.
func Sanitize(f Fragment) Fragment {
	out, _ := Sanitizer{}.Sanitize(f)
	return out
}

// filterChars removes illegal characters and invalid UTF-8 from s.
func filterChars(s string) (string, int) {
	i := 0
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 || IsIllegal(r) {
			break
		}
		i += size
	}
	if i == len(s) {
		return s, 0
	}

	var b strings.Builder
	b.Grow(len(s))
	b.WriteString(s[:i])
	n := 0
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 || IsIllegal(r) {
			n++
		} else {
			b.WriteString(s[i : i+size])
		}
		i += size
	}
	return b.String(), n
}

// stripCharRefs removes numeric character references that refer to illegal
// characters. Removing a reference can join its neighbors into a new
// reference, so passes repeat until nothing is removed.
func stripCharRefs(s string) (string, int) {
	total := 0
	for {
		t, n := stripCharRefsOnce(s)
		if n == 0 {
			return s, total
		}
		s = t
		total += n
	}
}

func stripCharRefsOnce(s string) (string, int) {
	if !strings.Contains(s, "&#") {
		return s, 0
	}
	var b strings.Builder
	n := 0
	last := 0
	for i := 0; i < len(s); {
		j := strings.Index(s[i:], "&#")
		if j < 0 {
			break
		}
		i += j
		end, code, ok := scanCharRef(s, i)
		if end < 0 {
			i += 2
			continue
		}
		if ok && !IsIllegal(code) {
			i = end
			continue
		}
		b.WriteString(s[last:i])
		n++
		i = end
		last = end
	}
	if n == 0 {
		return s, 0
	}
	b.WriteString(s[last:])
	return b.String(), n
}

// scanCharRef scans a reference of the form &#N; or &#xH; starting at i.
// Returns the index after the semicolon, or -1 if the text is not a complete
// reference. ok is false if the value overflows.
func scanCharRef(s string, i int) (end int, code rune, ok bool) {
	p := i + 2
	base := 10
	if p < len(s) && s[p] == 'x' {
		base = 16
		p++
	}
	start := p
	for p < len(s) && isDigit(s[p], base) {
		p++
	}
	if p == start || p >= len(s) || s[p] != ';' {
		return -1, 0, false
	}
	v, err := strconv.ParseUint(s[start:p], base, 32)
	if err != nil || v > utf8.MaxRune {
		return p + 1, 0, false
	}
	return p + 1, rune(v), true
}

func isDigit(c byte, base int) bool {
	switch {
	case '0' <= c && c <= '9':
		return true
	case base == 16 && ('a' <= c && c <= 'f' || 'A' <= c && c <= 'F'):
		return true
	}
	return false
}
