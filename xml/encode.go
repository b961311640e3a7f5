package xml

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/robloxapi/rbxrojo/sanitize"
)

type countWriter struct {
	w io.Writer
	n int64
}

func (c *countWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// writer is the state of a single WriteTo. Errors are held by the buffered
// writer and surface when it is flushed.
type writer struct {
	*bufio.Writer
	doc *Document
}

func (w *writer) warnf(format string, a ...interface{}) {
	w.doc.Warnings = append(w.doc.Warnings, fmt.Errorf(format, a...))
}

func (w *writer) sanitize(span sanitize.Span) sanitize.Span {
	span, c := w.doc.Sanitizer.Span(span)
	w.doc.Changes = w.doc.Changes.Add(c)
	return span
}

func validName(name string, typ int) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		if !isNameByte(name[i], typ) {
			return false
		}
	}
	return true
}

// breakLine starts a new line at the given depth, when the document is
// indented.
func (w *writer) breakLine(depth int) {
	if w.doc.Prefix == "" && w.doc.Indent == "" {
		return
	}
	w.WriteByte('\n')
	w.WriteString(w.doc.Prefix)
	for i := 0; i < depth; i++ {
		w.WriteString(w.doc.Indent)
	}
}

// children filters the child tags that can be written, warning about the
// rest.
func (w *writer) children(tag *Tag) []*Tag {
	tags := make([]*Tag, 0, len(tag.Tags))
	for _, sub := range tag.Tags {
		if !validName(sub.StartName, nameTag) {
			w.warnf("ignored tag with malformed start name %q", sub.StartName)
			continue
		}
		tags = append(tags, sub)
	}
	return tags
}

func (w *writer) startTag(tag *Tag) {
	w.WriteByte('<')
	w.WriteString(tag.StartName)
	for _, a := range tag.Attr {
		if !validName(a.Name, nameAttr) {
			w.warnf("ignored attribute with malformed name %q", a.Name)
			continue
		}
		w.WriteString(" " + a.Name + `="`)
		w.escape(w.sanitize(sanitize.NewText(a.Value)).Text, false)
		w.WriteByte('"')
	}
	if tag.Empty {
		w.WriteString("/>")
		return
	}
	w.WriteByte('>')
}

func (w *writer) endTag(tag *Tag) {
	name := tag.EndName
	switch {
	case name == "":
		name = tag.StartName
	case !validName(name, nameTag):
		w.warnf("tag with malformed end name %q, used start name instead", name)
		name = tag.StartName
	}
	w.WriteString("</" + name + ">")
}

// content writes the CDATA and text of tag, sanitized according to its
// class. pretty indicates that the children of the tag will be indented.
func (w *writer) content(tag *Tag, pretty bool, depth int) {
	if tag.CData != nil {
		data := tag.CData
		if tag.Class != ClassOpaque {
			data = []byte(w.sanitize(sanitize.NewText(string(data))).Text)
		}
		// A terminator within the data is split across two sections.
		data = bytes.ReplaceAll(data, []byte("]]>"), []byte("]]]]><![CDATA[>"))
		w.WriteString("<![CDATA[")
		w.Write(data)
		w.WriteString("]]>")
	}
	if pretty {
		w.breakLine(depth)
	}

	switch tag.Class {
	case ClassOpaque:
		w.Write(w.sanitize(sanitize.NewOpaque([]byte(tag.Text))).Data)
	case ClassNumeric, ClassNumericList:
		lead := true
		for _, span := range splitNumeric(nil, []byte(tag.Text), tag.Class == ClassNumericList) {
			s := w.sanitize(span).Text
			w.escape(s, lead)
			lead = lead && s == ""
		}
	default:
		w.escape(w.sanitize(sanitize.NewText(tag.Text)).Text, true)
	}
}

// element writes tag at depth. Indentation is disabled for the whole subtree
// of a tag with NoIndent.
func (w *writer) element(tag *Tag, depth int, noIndent bool) {
	w.startTag(tag)
	if tag.Empty {
		return
	}
	noIndent = noIndent || tag.NoIndent
	tags := w.children(tag)
	w.content(tag, !noIndent && len(tags) > 0, depth+1)
	for i, sub := range tags {
		w.element(sub, depth+1, noIndent)
		if noIndent {
			continue
		}
		if i < len(tags)-1 {
			w.breakLine(depth + 1)
		} else {
			w.breakLine(depth)
		}
	}
	w.endTag(tag)
}

// inline writes the content of the root tag without the tag itself.
func (w *writer) inline(tag *Tag) {
	noIndent := tag.NoIndent
	tags := w.children(tag)
	w.content(tag, false, 0)
	for i, sub := range tags {
		if i > 0 && !noIndent {
			w.breakLine(0)
		}
		w.element(sub, 0, noIndent)
	}
}

// escape writes s with markup delimiters and carriage returns replaced by
// references. If lead is true, leading whitespace is also replaced. Other
// characters are written literally, as s is expected to be sanitized.
func (w *writer) escape(s string, lead bool) {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if lead && isSpace(c) {
			b.WriteString("&#" + strconv.Itoa(int(c)) + ";")
			continue
		}
		lead = false
		switch c {
		case '"':
			b.WriteString("&quot;")
		case '\'':
			b.WriteString("&apos;")
		case '&':
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '\r':
			b.WriteString("&#13;")
		default:
			b.WriteByte(c)
		}
	}
	w.WriteString(b.String())
}

// WriteTo encodes the document to w. The character data of each tag is
// sanitized according to its Class, and the result is counted in Changes.
func (doc *Document) WriteTo(w io.Writer) (n int64, err error) {
	doc.Changes = sanitize.Changes{}
	doc.Warnings = doc.Warnings[:0]
	if doc.Root == nil {
		return 0, errors.New("document has no root")
	}

	cw := &countWriter{w: w}
	e := &writer{Writer: bufio.NewWriter(cw), doc: doc}
	e.WriteString(doc.Prefix)
	if doc.ExcludeRoot {
		e.inline(doc.Root)
	} else if validName(doc.Root.StartName, nameTag) {
		e.element(doc.Root, 0, false)
	} else {
		e.warnf("ignored tag with malformed start name %q", doc.Root.StartName)
	}
	e.WriteString(doc.Suffix)
	err = e.Flush()

	if !doc.Changes.Zero() {
		doc.Warnings = append(doc.Warnings, SanitizeWarning{doc.Changes})
	}
	return cw.n, err
}
