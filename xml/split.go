package xml

import (
	"bytes"

	"github.com/robloxapi/rbxrojo/sanitize"
)

// Class indicates how the content of an element is treated by a Sanitizer.
type Class uint8

const (
	// ClassText is character data. Illegal characters are removed.
	ClassText Class = iota
	// ClassNumeric is a single number, optionally surrounded by whitespace.
	ClassNumeric
	// ClassNumericList is a whitespace-separated list of numbers.
	ClassNumericList
	// ClassOpaque is binary data, usually base64, that is never modified.
	ClassOpaque
)

func (c Class) String() string {
	switch c {
	case ClassText:
		return "text"
	case ClassNumeric:
		return "numeric"
	case ClassNumericList:
		return "numeric list"
	case ClassOpaque:
		return "opaque"
	}
	return "invalid"
}

// Schema classifies the content of elements by tag name.
type Schema interface {
	Classify(tag string) Class
}

// SchemaFunc adapts a function to the Schema interface.
type SchemaFunc func(tag string) Class

func (f SchemaFunc) Classify(tag string) Class {
	return f(tag)
}

var (
	markComment = []byte("<!--")
	markCData   = []byte("<![CDATA[")
	markPI      = []byte("<?")
	markDecl    = []byte("<!")
	endComment  = []byte("-->")
	endPI       = []byte("?>")
	cdataEnd    = []byte("]]>")
)

// Split divides the raw bytes of a document into a fragment, without parsing
// the document into tags.
//
// The content of each element classified by schema as opaque, including any
// CDATA section, becomes one opaque span. The content of a numeric element
// becomes a numeric span, with surrounding whitespace kept as text. Each
// token of a numeric list becomes its own numeric span. Everything else,
// including markup, comments, and processing instructions, becomes text.
//
// The concatenation of the fragment is always equal to data. Malformed markup
// is treated as text.
func Split(data []byte, schema Schema) sanitize.Fragment {
	var f sanitize.Fragment
	last := 0
	i := 0
	for i < len(data) {
		j := bytes.IndexByte(data[i:], '<')
		if j < 0 {
			break
		}
		i += j
		rest := data[i:]
		switch {
		case bytes.HasPrefix(rest, markComment):
			i = skipPast(data, i+len(markComment), endComment)
			continue
		case bytes.HasPrefix(rest, markCData):
			i = skipPast(data, i+len(markCData), cdataEnd)
			continue
		case bytes.HasPrefix(rest, markPI):
			i = skipPast(data, i+len(markPI), endPI)
			continue
		case bytes.HasPrefix(rest, markDecl):
			i = skipPast(data, i+len(markDecl), []byte{'>'})
			continue
		case len(rest) > 1 && rest[1] == '/':
			i++
			continue
		}

		name, end, empty, ok := scanStartTag(data, i)
		if !ok {
			i++
			continue
		}
		i = end
		if empty {
			continue
		}
		class := schema.Classify(name)
		if class == ClassText {
			continue
		}
		stop := findEndTag(data, i, name)
		if stop < 0 {
			continue
		}
		content := data[i:stop]
		if class != ClassOpaque && bytes.IndexByte(content, '<') >= 0 {
			// Numeric elements never contain markup.
			continue
		}

		f = appendText(f, data[last:i])
		switch class {
		case ClassOpaque:
			if len(content) > 0 {
				f = append(f, sanitize.NewOpaque(append([]byte(nil), content...)))
			}
		case ClassNumeric:
			f = splitNumeric(f, content, false)
		case ClassNumericList:
			f = splitNumeric(f, content, true)
		}
		last = stop
		i = stop
	}
	return appendText(f, data[last:])
}

// skipPast returns the index after the first occurrence of end at or after
// i, or len(data) if there is none.
func skipPast(data []byte, i int, end []byte) int {
	if i > len(data) {
		return len(data)
	}
	j := bytes.Index(data[i:], end)
	if j < 0 {
		return len(data)
	}
	return i + j + len(end)
}

// scanStartTag scans the start tag beginning at data[i], which is '<'.
// Returns the name of the tag, the index after the closing '>', and whether
// the tag is empty.
func scanStartTag(data []byte, i int) (name string, end int, empty bool, ok bool) {
	p := i + 1
	for p < len(data) && isNameByte(data[p], nameTag) {
		p++
	}
	if p == i+1 {
		return "", 0, false, false
	}
	name = string(data[i+1 : p])
	var quote byte
	for ; p < len(data); p++ {
		b := data[p]
		switch {
		case quote != 0:
			if b == quote {
				quote = 0
			}
		case b == '"' || b == '\'':
			quote = b
		case b == '<':
			return "", 0, false, false
		case b == '>':
			return name, p + 1, data[p-1] == '/', true
		}
	}
	return "", 0, false, false
}

// findEndTag returns the index of the end tag matching name at or after i,
// comparing names without regard to case. Returns -1 if there is none.
func findEndTag(data []byte, i int, name string) int {
	for i < len(data) {
		j := bytes.Index(data[i:], []byte("</"))
		if j < 0 {
			return -1
		}
		i += j
		p := i + 2
		if p+len(name) <= len(data) && bytes.EqualFold(data[p:p+len(name)], []byte(name)) {
			p += len(name)
			for p < len(data) && isSpace(data[p]) {
				p++
			}
			if p < len(data) && data[p] == '>' {
				return i
			}
		}
		i += 2
	}
	return -1
}

func appendText(f sanitize.Fragment, b []byte) sanitize.Fragment {
	if len(b) == 0 {
		return f
	}
	if n := len(f); n > 0 && f[n-1].Kind == sanitize.Text {
		f[n-1].Text += string(b)
		return f
	}
	return append(f, sanitize.NewText(string(b)))
}

// splitNumeric appends the spans of numeric content to f. Whitespace becomes
// text. If list is false, the content between the leading and trailing
// whitespace is one numeric span, otherwise each token is a numeric span.
func splitNumeric(f sanitize.Fragment, content []byte, list bool) sanitize.Fragment {
	if !list {
		start := 0
		for start < len(content) && isSpace(content[start]) {
			start++
		}
		end := len(content)
		for end > start && isSpace(content[end-1]) {
			end--
		}
		f = appendText(f, content[:start])
		if end > start {
			f = append(f, sanitize.NewNumeric(string(content[start:end])))
		}
		return appendText(f, content[end:])
	}
	for i := 0; i < len(content); {
		j := i
		space := isSpace(content[i])
		for j < len(content) && isSpace(content[j]) == space {
			j++
		}
		if space {
			f = appendText(f, content[i:j])
		} else {
			f = append(f, sanitize.NewNumeric(string(content[i:j])))
		}
		i = j
	}
	return f
}
