package xml

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/robloxapi/rbxrojo/sanitize"
)

// reader is the state of a single ReadFrom. The first fatal error is kept in
// err, after which every read reports nothing.
type reader struct {
	r    *bufio.Reader
	doc  *Document
	text bytes.Buffer
	n    int64
	line int
	err  error
}

func (r *reader) fail(msg string) {
	if r.err == nil {
		r.err = &SyntaxError{Msg: msg, Line: r.line}
	}
}

func (r *reader) peek() (byte, bool) {
	if r.err != nil {
		return 0, false
	}
	p, err := r.r.Peek(1)
	if len(p) == 0 {
		if err != io.EOF {
			r.err = err
		}
		return 0, false
	}
	return p[0], true
}

func (r *reader) next() (byte, bool) {
	if r.err != nil {
		return 0, false
	}
	b, err := r.r.ReadByte()
	if err != nil {
		if err != io.EOF {
			r.err = err
		}
		return 0, false
	}
	r.n++
	if b == '\n' {
		r.line++
	}
	return b, true
}

// must is next, where the end of input is a syntax error.
func (r *reader) must() (byte, bool) {
	b, ok := r.next()
	if !ok {
		r.fail("unexpected EOF")
	}
	return b, ok
}

func (r *reader) expect(c byte, msg string) bool {
	b, ok := r.must()
	if ok && b != c {
		r.fail(msg)
		return false
	}
	return ok
}

// accept consumes s if the input continues with it. s must not contain a
// newline.
func (r *reader) accept(s string) bool {
	if r.err != nil {
		return false
	}
	if p, _ := r.r.Peek(len(s)); string(p) != s {
		return false
	}
	n, _ := r.r.Discard(len(s))
	r.n += int64(n)
	return true
}

// skipPast consumes the input up to and including s.
func (r *reader) skipPast(s string) bool {
	for !r.accept(s) {
		if _, ok := r.must(); !ok {
			return false
		}
	}
	return true
}

func (r *reader) spaces() string {
	var ws []byte
	for {
		b, ok := r.peek()
		if !ok || !isSpace(b) {
			return string(ws)
		}
		r.next()
		ws = append(ws, b)
	}
}

// skipMisc consumes one comment or processing instruction, if present.
func (r *reader) skipMisc() bool {
	if r.accept("<!--") {
		return r.skipPast("-->")
	}
	if r.accept("<?") {
		return r.skipPast("?>")
	}
	return false
}

// name consumes a non-empty run of name bytes. A missing name is left for
// the caller to report.
func (r *reader) name(typ int) (string, bool) {
	var s []byte
	for {
		b, ok := r.peek()
		if !ok || !isNameByte(b, typ) {
			return string(s), len(s) > 0
		}
		r.next()
		s = append(s, b)
	}
}

// ignoreStartTag records msg as a warning and skips the rest of a malformed
// start tag. The element is decoded but left out of the tree.
func (r *reader) ignoreStartTag(msg string) bool {
	r.doc.Warnings = append(r.doc.Warnings, &SyntaxError{Msg: msg, Line: r.line})
	r.skipPast(">")
	return false
}

// startTag decodes a start tag into tag, reporting whether it was well
// formed.
func (r *reader) startTag(tag *Tag) bool {
	if !r.expect('<', "expected start tag") {
		return false
	}
	if b, _ := r.peek(); b == '/' {
		r.fail("unexpected end tag")
		return false
	}
	var ok bool
	if tag.StartName, ok = r.name(nameTag); !ok {
		return r.ignoreStartTag("expected element name after <")
	}
	tag.Attr = make([]Attr, 0, 4)
	for {
		r.spaces()
		switch b, ok := r.peek(); {
		case !ok:
			r.fail("unexpected EOF")
			return false
		case b == '>':
			r.next()
			return true
		case r.accept("/>"):
			tag.Empty = true
			return true
		case b == '/':
			return r.ignoreStartTag("expected /> in element")
		}

		var a Attr
		if a.Name, ok = r.name(nameAttr); !ok {
			return r.ignoreStartTag("expected attribute name in element")
		}
		r.spaces()
		if !r.accept("=") {
			return r.ignoreStartTag("attribute name without = in element")
		}
		r.spaces()
		q, ok := r.must()
		if !ok {
			return false
		}
		if q != '"' && q != '\'' {
			r.fail("unquoted or missing attribute value in element")
			return false
		}
		value, ok := r.chars(q)
		if !ok {
			return false
		}
		a.Value = string(value)
		tag.Attr = append(tag.Attr, a)
	}
}

// endTag decodes the remainder of an end tag, following "</".
func (r *reader) endTag(tag *Tag) bool {
	var ok bool
	if tag.EndName, ok = r.name(nameTag); !ok {
		r.fail("expected element name after </")
		return false
	}
	r.spaces()
	return r.expect('>', "invalid characters between </"+tag.EndName+" and >")
}

// newline appends b to the text buffer, translating "\r" and "\r\n" to
// "\n".
func (r *reader) newline(b byte) {
	if b != '\r' {
		r.text.WriteByte(b)
		return
	}
	r.text.WriteByte('\n')
	if c, ok := r.peek(); ok && c == '\n' {
		r.next()
	}
}

// cdata decodes the content of a CDATA section, following "<![CDATA[".
func (r *reader) cdata() ([]byte, bool) {
	r.text.Reset()
	for !r.accept("]]>") {
		b, ok := r.next()
		if !ok {
			r.fail("unexpected EOF in CDATA section")
			return nil, false
		}
		r.newline(b)
	}
	return bytes.Clone(r.text.Bytes()), true
}

var entities = map[string]byte{
	"lt":   '<',
	"gt":   '>',
	"amp":  '&',
	"apos": '\'',
	"quot": '"',
}

// chars decodes character data. With a quote, the data ends at and consumes
// the quote. Otherwise it ends before the next '<' or the end of input.
func (r *reader) chars(quote byte) ([]byte, bool) {
	r.text.Reset()
	for {
		b, ok := r.peek()
		switch {
		case !ok && quote != 0:
			r.fail("unexpected EOF")
			return nil, false
		case !ok:
			return bytes.Clone(r.text.Bytes()), r.err == nil
		case b == '<' && quote != 0:
			r.fail("unescaped < inside quoted string")
			return nil, false
		case b == '<':
			return bytes.Clone(r.text.Bytes()), true
		}
		r.next()
		switch {
		case quote != 0 && b == quote:
			return bytes.Clone(r.text.Bytes()), true
		case b == '&':
			r.reference()
		default:
			r.newline(b)
		}
	}
}

// reference decodes the reference following '&' into the text buffer. An
// unterminated or unknown reference is kept as written. A reference to a
// character that is illegal in XML is dropped and counted.
func (r *reader) reference() {
	prefix, base := "", 0
	switch {
	case r.accept("#x"):
		prefix, base = "#x", 16
	case r.accept("#"):
		prefix, base = "#", 10
	default:
		name, _ := r.name(nameEntity)
		if !r.accept(";") {
			r.text.WriteString("&" + name)
		} else if c, ok := entities[name]; ok {
			r.text.WriteByte(c)
		} else {
			r.text.WriteString("&" + name + ";")
		}
		return
	}

	var digits []byte
	for {
		b, ok := r.peek()
		if !ok || !isDigit(b, base) {
			break
		}
		r.next()
		digits = append(digits, b)
	}
	if len(digits) == 0 || !r.accept(";") {
		r.text.WriteString("&" + prefix)
		r.text.Write(digits)
		return
	}
	n, err := strconv.ParseUint(string(digits), base, 32)
	if err != nil || n > utf8.MaxRune || sanitize.IsIllegal(rune(n)) {
		r.doc.Changes.CharRefs++
		return
	}
	r.text.WriteRune(rune(n))
}

func isDigit(b byte, base int) bool {
	switch {
	case '0' <= b && b <= '9':
		return true
	case base == 16:
		return 'a' <= b && b <= 'f' || 'A' <= b && b <= 'F'
	}
	return false
}

// prologue skips the XML declaration, comments, and whitespace before the
// root tag. The whitespace on the line of the root tag becomes the prefix.
func (r *reader) prologue() {
	ws := r.spaces()
	for r.skipMisc() {
		ws = r.spaces()
	}
	if i := strings.LastIndexByte(ws, '\n'); i >= 0 {
		ws = ws[i+1:]
	}
	r.doc.Prefix = ws
}

func (r *reader) checkRoot(tag *Tag) bool {
	if tag.StartName != "roblox" {
		r.fail("no roblox tag")
		return false
	}
	v, ok := tag.AttrValue("version")
	if !ok {
		r.fail("version attribute not specified")
		return false
	}
	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil {
		r.fail("no version number")
		return false
	}
	if n < 4 {
		r.fail("schemaVersionLoading<4")
		return false
	}
	return true
}

// detectIndent derives the indentation of the document from the whitespace
// that opens the content of the root tag.
func (r *reader) detectIndent(ws string) {
	i := strings.IndexByte(ws, '\n')
	if i < 0 {
		return
	}
	line := ws[i+1:]
	if strings.HasPrefix(line, r.doc.Prefix) {
		r.doc.Indent = line[len(r.doc.Prefix):]
	} else {
		r.doc.Prefix = ""
	}
}

// element decodes an element and its descendants. It returns nil if the
// element failed, or if its start tag was malformed, in which case r.err is
// nil.
func (r *reader) element(root bool) *Tag {
	tag := new(Tag)
	wellFormed := r.startTag(tag)
	if r.err != nil {
		return nil
	}
	if root && (!wellFormed || !r.checkRoot(tag)) {
		r.fail("no roblox tag")
		return nil
	}
	if tag.Empty {
		if !wellFormed {
			return nil
		}
		return tag
	}

	for r.accept("<![CDATA[") {
		data, ok := r.cdata()
		if !ok {
			return nil
		}
		if tag.CData == nil {
			tag.CData = []byte{}
		}
		tag.CData = append(tag.CData, data...)
	}

	indented := r.doc.Prefix != "" || r.doc.Indent != ""
	ws := r.spaces()
	if root {
		r.detectIndent(ws)
	}
	text, ok := r.chars(0)
	if !ok {
		return nil
	}
	tag.Text = string(text)

	for {
		r.spaces()
		for r.skipMisc() {
			r.spaces()
		}
		if r.accept("</") {
			if !r.endTag(tag) {
				return nil
			}
			break
		}
		b, ok := r.peek()
		if !ok {
			r.fail("unexpected EOF")
			return nil
		}
		if b != '<' {
			r.fail("expected tag")
			return nil
		}
		child := r.element(false)
		if r.err != nil {
			return nil
		}
		if child != nil {
			tag.Tags = append(tag.Tags, child)
		}
	}

	if !root && indented && ws == "" {
		tag.NoIndent = len(tag.CData) > 0 || tag.Text != "" || len(tag.Tags) > 0
	}
	if !wellFormed {
		return nil
	}
	return tag
}

// ReadFrom decodes a document from r, replacing the content of doc.
// References to characters that are illegal in XML are dropped and counted
// in Changes.
func (doc *Document) ReadFrom(r io.Reader) (n int64, err error) {
	if r == nil {
		return 0, errors.New("reader is nil")
	}
	*doc = Document{
		Sanitizer:   doc.Sanitizer,
		ExcludeRoot: doc.ExcludeRoot,
		Warnings:    doc.Warnings[:0],
	}

	d := &reader{r: bufio.NewReader(r), doc: doc, line: 1}
	d.prologue()
	doc.Root = d.element(true)
	if d.err != nil {
		doc.Root = nil
		return d.n, d.err
	}

	rest, err := io.ReadAll(d.r)
	d.n += int64(len(rest))
	if err != nil {
		return d.n, err
	}
	doc.Suffix = string(rest)

	if !doc.Changes.Zero() {
		doc.Warnings = append(doc.Warnings, SanitizeWarning{doc.Changes})
	}
	return d.n, nil
}
