// Package sanitize makes serialized document text safe to emit as XML 1.0.
//
// A document is represented as a Fragment: an ordered sequence of spans. Each
// span is either text, numeric text, or an opaque binary payload. Opaque spans
// are never inspected or modified, so binary blocks that happen to contain
// bytes resembling control characters or float spellings survive unchanged.
// Text spans have characters outside of the XML character range removed.
// Numeric spans additionally have non-finite float spellings (such as "nan"
// or "1.#IND") replaced with a fixed token.
//
// Both removal and replacement are lossy. A dropped character cannot be
// recovered, and a replaced NaN reads back as the replacement token.
package sanitize

import (
	"bytes"
	"io"
	"strings"
)

// Kind indicates how the content of a Span is treated.
type Kind uint8

const (
	// Text is free-form character data.
	Text Kind = iota
	// Numeric is character data representing a single numeric value.
	Numeric
	// Opaque is a binary payload that is passed through untouched.
	Opaque
)

func (k Kind) String() string {
	switch k {
	case Text:
		return "Text"
	case Numeric:
		return "Numeric"
	case Opaque:
		return "Opaque"
	default:
		return "Invalid"
	}
}

// Span is a contiguous region of a document.
type Span struct {
	Kind Kind

	// Text is the content of Text and Numeric spans.
	Text string

	// Data is the content of Opaque spans.
	Data []byte
}

// NewText returns a Text span.
func NewText(s string) Span {
	return Span{Kind: Text, Text: s}
}

// NewNumeric returns a Numeric span.
func NewNumeric(s string) Span {
	return Span{Kind: Numeric, Text: s}
}

// NewOpaque returns an Opaque span. The span refers to b directly.
func NewOpaque(b []byte) Span {
	return Span{Kind: Opaque, Data: b}
}

// Len returns the number of bytes of content in the span.
func (s Span) Len() int {
	if s.Kind == Opaque {
		return len(s.Data)
	}
	return len(s.Text)
}

// WriteTo writes the content of the span to w.
func (s Span) WriteTo(w io.Writer) (n int64, err error) {
	var nn int
	if s.Kind == Opaque {
		nn, err = w.Write(s.Data)
	} else {
		nn, err = io.WriteString(w, s.Text)
	}
	return int64(nn), err
}

// Fragment is an ordered sequence of spans. Concatenating the content of
// each span in order produces the document.
type Fragment []Span

// Len returns the total number of bytes of content in the fragment.
func (f Fragment) Len() int {
	n := 0
	for _, s := range f {
		n += s.Len()
	}
	return n
}

// WriteTo writes the concatenated content of each span to w.
func (f Fragment) WriteTo(w io.Writer) (n int64, err error) {
	for _, s := range f {
		nn, err := s.WriteTo(w)
		n += nn
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// Bytes returns the concatenated content of each span.
func (f Fragment) Bytes() []byte {
	var buf bytes.Buffer
	buf.Grow(f.Len())
	f.WriteTo(&buf)
	return buf.Bytes()
}

// String returns the concatenated content of each span.
func (f Fragment) String() string {
	var s strings.Builder
	s.Grow(f.Len())
	f.WriteTo(&s)
	return s.String()
}
