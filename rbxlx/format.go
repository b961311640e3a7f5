// The rbxlx package implements a decoder and encoder for Roblox's XML file
// format.
//
// Character data passes through a sanitize.Sanitizer in both directions. When
// decoding, the raw document is split into spans with Schema and repaired
// before it is parsed, so that illegal characters, character references to
// illegal characters, and unparsable number spellings do not cause the parse
// to fail. When encoding, each span of character data is sanitized as it is
// written. The content of BinaryString and SharedString elements is never
// modified.
package rbxlx

import (
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/robloxapi/rbxrojo"
	"github.com/robloxapi/rbxrojo/errors"
	"github.com/robloxapi/rbxrojo/sanitize"
	"github.com/robloxapi/rbxrojo/xml"
)

// Decoder decodes a stream of bytes into a rbxrojo.Root.
type Decoder struct {
	// Sanitizer repairs the raw document before it is parsed. Markup is
	// always enabled.
	Sanitizer sanitize.Sanitizer

	// DiscardInvalidProperties determines how invalid properties are decoded.
	// If true, a property whose value fails to decode is discarded. If false,
	// the property is set to the zero value of its type.
	DiscardInvalidProperties bool
}

// Decode reads data from r and decodes it into root. Non-fatal problems,
// including any repairs made to the document, are returned as warnings.
func (d Decoder) Decode(r io.Reader) (root *rbxrojo.Root, warn, err error) {
	if r == nil {
		return nil, nil, errors.New("nil reader")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, err
	}

	var warns errors.Errors
	if !utf8.Valid(data) {
		warns = warns.Append(errors.New("document is not valid UTF-8; invalid bytes removed"))
	}

	s := d.Sanitizer
	s.Markup = true
	repaired, changes := s.Sanitize(xml.Split(data, Schema{}))
	if !changes.Zero() {
		warns = warns.Append(xml.SanitizeWarning{Changes: changes})
	}

	document := new(xml.Document)
	if _, err = document.ReadFrom(bytes.NewReader(repaired.Bytes())); err != nil {
		return nil, warns.Return(), fmt.Errorf("error parsing document: %w", err)
	}
	warns = warns.Append(document.Warnings...)

	root, cwarn, err := decodeTree(document, d.DiscardInvalidProperties)
	warns = warns.Append(cwarn...)
	if err != nil {
		return nil, warns.Return(), fmt.Errorf("error decoding data: %w", err)
	}
	return root, warns.Return(), nil
}

// Encoder encodes a rbxrojo.Root into a stream of bytes.
type Encoder struct {
	// Model indicates whether the root is encoded as a model rather than a
	// place. Models have no metadata.
	Model bool

	// Sanitizer is applied to every span of character data that is written.
	// Markup is always disabled.
	Sanitizer sanitize.Sanitizer

	// ExcludeExternal determines whether the standard External tags are
	// omitted.
	ExcludeExternal bool

	// ExcludeReferent determines whether the referent attribute of each Item
	// is omitted. References between instances cannot be decoded from a
	// document without referents.
	ExcludeReferent bool
}

// Encode formats root, writing the result to w. Sanitization of character
// data is reported as a warning.
func (e Encoder) Encode(w io.Writer, root *rbxrojo.Root) (warn, err error) {
	if w == nil {
		return nil, errors.New("nil writer")
	}
	enc := &treeEncoder{
		excludeReferent: e.ExcludeReferent,
		excludeExternal: e.ExcludeExternal,
		excludeMetadata: e.Model,
	}
	document, warns, err := enc.encode(root)
	if err != nil {
		return warns.Return(), fmt.Errorf("error encoding data: %w", err)
	}
	classify(document.Root, Schema{})
	document.Sanitizer = e.Sanitizer
	document.Sanitizer.Markup = false
	if _, err = document.WriteTo(w); err != nil {
		return warns.Return(), fmt.Errorf("error encoding format: %w", err)
	}
	warns = warns.Append(document.Warnings...)
	return warns.Return(), nil
}
