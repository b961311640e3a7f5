// Package xml reads and writes the XML dialect of Roblox place and model
// files.
//
// A Document decodes into a tree of Tags. When a Document is written, all
// character data passes through its Sanitizer, so the output never holds a
// character that XML 1.0 forbids, whatever the Tags contain.
package xml

import (
	"fmt"
	"strconv"

	"github.com/robloxapi/rbxrojo/sanitize"
)

// Tag is one element of a Roblox XML document. Its content is more regular
// than general XML: any CDATA sections come first, then optional
// whitespace, then text, then child elements separated by whitespace.
type Tag struct {
	// StartName is the name written in the start tag.
	StartName string

	// EndName is the name written in the end tag. StartName is used when it
	// is empty.
	EndName string

	Attr []Attr

	// Empty marks a self-closing tag. Content is not written for an Empty
	// tag.
	Empty bool

	// Class selects how CData and Text are sanitized on output. The decoder
	// leaves it unset.
	Class Class

	// CData holds the content of the CDATA sections at the start of the
	// tag, joined together. It is nil when the tag has no section.
	CData []byte

	Text string

	// NoIndent disables indentation within the tag and its descendants. The
	// decoder sets it on a non-empty tag whose content is not preceded by
	// whitespace, if the document was found to be indented.
	NoIndent bool

	Tags []*Tag
}

// Attr is a name and value pair within a start tag.
type Attr struct {
	Name  string
	Value string
}

// AttrValue looks up the first attribute named name.
func (t Tag) AttrValue(name string) (value string, exists bool) {
	for _, a := range t.Attr {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// SetAttrValue assigns value to the first attribute named name, appending the
// attribute if it is missing. An empty value removes the attribute.
func (t *Tag) SetAttrValue(name, value string) {
	i := 0
	for ; i < len(t.Attr); i++ {
		if t.Attr[i].Name == name {
			break
		}
	}
	switch {
	case i == len(t.Attr) && value != "":
		t.Attr = append(t.Attr, Attr{Name: name, Value: value})
	case i == len(t.Attr):
	case value == "":
		t.Attr = append(t.Attr[:i], t.Attr[i+1:]...)
	default:
		t.Attr[i].Value = value
	}
}

// NewRoot returns the roblox tag that encloses a document, holding items.
func NewRoot(items ...*Tag) *Tag {
	root := &Tag{StartName: "roblox", Tags: items}
	root.Attr = []Attr{
		{"xmlns:xmime", "http://www.w3.org/2005/05/xmlmime"},
		{"xmlns:xsi", "http://www.w3.org/2001/XMLSchema-instance"},
		{"xsi:noNamespaceSchemaLocation", "http://www.roblox.com/roblox.xsd"},
		{"version", "4"},
	}
	return root
}

// NewItem returns an Item tag for an instance of class, with a Properties
// tag holding properties.
func NewItem(class, referent string, properties ...*Tag) *Tag {
	props := &Tag{StartName: "Properties", Tags: properties}
	return &Tag{
		StartName: "Item",
		Attr:      []Attr{{"class", class}, {"referent", referent}},
		Tags:      []*Tag{props},
	}
}

// NewProp returns a property tag of type valueType, whose text is sanitized
// according to class.
func NewProp(valueType, propName, value string, class Class) *Tag {
	t := &Tag{StartName: valueType, Class: class, Text: value, NoIndent: true}
	t.Attr = []Attr{{"name", propName}}
	return t
}

// Document is a complete XML document.
type Document struct {
	// Prefix begins every line. The decoder sets it to the whitespace that
	// precedes the root tag on its line.
	Prefix string

	// Indent is one level of indentation, repeated once per depth after
	// Prefix. The decoder takes it from the first indented line under the
	// root tag. Lines are broken only when Prefix or Indent is set.
	Indent string

	// Suffix is whatever follows the root tag.
	Suffix string

	// ExcludeRoot writes only the content of the root tag.
	ExcludeRoot bool

	Root *Tag

	// Sanitizer filters each span of character data written by WriteTo.
	Sanitizer sanitize.Sanitizer

	// Changes counts the modifications made by the last ReadFrom or
	// WriteTo.
	Changes sanitize.Changes

	// Warnings lists the non-fatal problems of the last ReadFrom or WriteTo.
	Warnings []error
}

// SyntaxError is a fatal problem in the markup of a document.
type SyntaxError struct {
	Msg  string
	Line int
}

func (e *SyntaxError) Error() string {
	return "XML syntax error on line " + strconv.Itoa(e.Line) + ": " + e.Msg
}

// SanitizeWarning is added to the warnings of a Document when its character
// data had to be modified.
type SanitizeWarning struct {
	sanitize.Changes
}

func (w SanitizeWarning) Error() string {
	return fmt.Sprintf("sanitized character data: %d characters removed, %d character references removed, %d numeric literals replaced",
		w.Chars, w.CharRefs, w.Literals)
}

const (
	nameTag = iota
	nameAttr
	nameEntity
)

// isNameByte reports whether c may appear in a name of type t. Names are
// runs of printable ASCII, minus the delimiters of the construct.
func isNameByte(c byte, t int) bool {
	if c < '!' || c > '~' || c == '>' {
		return false
	}
	switch t {
	case nameTag:
		return c != '/'
	case nameAttr:
		return c != '/' && c != '='
	case nameEntity:
		return c != ';' && c != '<' && c != '&'
	}
	return true
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f'
}
