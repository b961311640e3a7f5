package rbxlx

import (
	"encoding/base64"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/robloxapi/rbxrojo"
	"github.com/robloxapi/rbxrojo/errors"
	"github.com/robloxapi/rbxrojo/xml"
)

// treeEncoder builds a document from an instance tree.
type treeEncoder struct {
	excludeReferent bool
	excludeExternal bool
	excludeMetadata bool

	refs   rbxrojo.References
	inTree map[*rbxrojo.Instance]bool
	// shared maps the hash of each shared string to its content.
	shared map[string][]byte
	warn   errors.Errors
}

func (e *treeEncoder) encode(root *rbxrojo.Root) (*xml.Document, errors.Errors, error) {
	if root == nil {
		return nil, nil, errors.New("root is nil")
	}
	e.refs = rbxrojo.References{}
	e.inTree = map[*rbxrojo.Instance]bool{}
	e.shared = map[string][]byte{}
	root.Descendants(func(inst *rbxrojo.Instance) bool {
		e.inTree[inst] = true
		return true
	})

	doc := &xml.Document{Indent: "\t", Root: xml.NewRoot()}
	tags := &doc.Root.Tags
	if !e.excludeMetadata {
		keys := make([]string, 0, len(root.Metadata))
		for key := range root.Metadata {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			meta := leaf("Meta", root.Metadata[key])
			meta.Attr = []xml.Attr{{Name: "name", Value: key}}
			*tags = append(*tags, meta)
		}
	}
	if !e.excludeExternal {
		*tags = append(*tags, leaf("External", "null"), leaf("External", "nil"))
	}
	for _, inst := range root.Instances {
		*tags = append(*tags, e.item(inst))
	}
	if len(e.shared) > 0 {
		*tags = append(*tags, e.sharedStrings())
	}
	return doc, e.warn, nil
}

func (e *treeEncoder) sharedStrings() *xml.Tag {
	hashes := make([]string, 0, len(e.shared))
	for hash := range e.shared {
		hashes = append(hashes, hash)
	}
	sort.Strings(hashes)
	table := &xml.Tag{StartName: "SharedStrings"}
	for _, hash := range hashes {
		entry := leaf("SharedString", encodeBase64(e.shared[hash]))
		entry.Attr = []xml.Attr{{Name: "md5", Value: base64.StdEncoding.EncodeToString([]byte(hash))}}
		table.Tags = append(table.Tags, entry)
	}
	return table
}

func (e *treeEncoder) item(inst *rbxrojo.Instance) *xml.Tag {
	names := make([]string, 0, len(inst.Properties))
	for name := range inst.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	props := make([]*xml.Tag, 0, len(names))
	for _, name := range names {
		tag, err := e.property(inst.Properties[name])
		if err != nil {
			e.warn = e.warn.Append(errors.At(inst.String()+"."+name, err))
		}
		if tag != nil {
			tag.Attr = []xml.Attr{{Name: "name", Value: name}}
			props = append(props, tag)
		}
	}

	item := xml.NewItem(inst.ClassName, e.refs.Get(inst), props...)
	if e.excludeReferent {
		item.SetAttrValue("referent", "")
	}
	for _, child := range inst.Children {
		item.Tags = append(item.Tags, e.item(child))
	}
	return item
}

// leaf returns a tag holding only text.
func leaf(name, text string) *xml.Tag {
	return &xml.Tag{StartName: name, Text: text, NoIndent: true}
}

// composite returns a tag with one child per component. names and values
// are parallel.
func composite(name string, names []string, values ...string) *xml.Tag {
	tag := &xml.Tag{StartName: name, Tags: make([]*xml.Tag, len(values))}
	for i, v := range values {
		tag.Tags[i] = leaf(names[i], v)
	}
	return tag
}

func formatAll(f ...float32) []string {
	s := make([]string, len(f))
	for i, v := range f {
		s[i] = formatFloat(v, 9)
	}
	return s
}

// numberList formats f as a space-terminated list, as used by sequences and
// ranges.
func numberList(f ...float32) string {
	var b strings.Builder
	for _, v := range f {
		b.WriteString(formatFloat(v, 6))
		b.WriteByte(' ')
	}
	return b.String()
}

// property returns the tag for value. A reference outside of the encoded
// tree is written as empty and reported as an error alongside the tag.
func (e *treeEncoder) property(value rbxrojo.Value) (*xml.Tag, error) {
	switch v := value.(type) {
	case rbxrojo.ValueString:
		return leaf("string", string(v)), nil
	case rbxrojo.ValueProtectedString:
		tag := leaf("ProtectedString", "")
		tag.CData = []byte(v)
		return tag, nil
	case rbxrojo.ValueBinaryString:
		return leaf("BinaryString", encodeBase64(v)), nil
	case rbxrojo.ValueSharedString:
		sum := blake2b.Sum256(v)
		hash := string(sum[:16])
		if _, ok := e.shared[hash]; !ok {
			e.shared[hash] = v
		}
		return leaf("SharedString", encodeBase64(sum[:16])), nil
	case rbxrojo.ValueContent:
		tag := &xml.Tag{StartName: "Content", NoIndent: true}
		if len(v) == 0 {
			tag.Tags = []*xml.Tag{{StartName: "null", NoIndent: true}}
		} else {
			tag.Tags = []*xml.Tag{leaf("url", string(v))}
		}
		return tag, nil

	case rbxrojo.ValueBool:
		return leaf("bool", v.String()), nil
	case rbxrojo.ValueInt:
		return leaf("int", v.String()), nil
	case rbxrojo.ValueInt64:
		return leaf("int64", v.String()), nil
	case rbxrojo.ValueToken:
		return leaf("token", v.String()), nil
	case rbxrojo.ValueFloat:
		return leaf("float", formatFloat(float32(v), 9)), nil
	case rbxrojo.ValueDouble:
		return leaf("double", strconv.FormatFloat(float64(v), 'g', 9, 64)), nil

	case rbxrojo.ValueReference:
		switch {
		case v.Instance == nil:
			return leaf("Ref", "null"), nil
		case !e.inTree[v.Instance]:
			return leaf("Ref", "null"), errors.New("referent outside of encoded tree written as null")
		}
		return leaf("Ref", e.refs.Get(v.Instance)), nil

	case rbxrojo.ValueVector2:
		return composite("Vector2", vector3Fields, formatAll(v.X, v.Y)...), nil
	case rbxrojo.ValueVector3:
		return composite("Vector3", vector3Fields, formatAll(v.X, v.Y, v.Z)...), nil
	case rbxrojo.ValueColor3:
		return composite("Color3", []string{"R", "G", "B"}, formatAll(v.R, v.G, v.B)...), nil
	case rbxrojo.ValueCFrame:
		f := append([]float32{v.Position.X, v.Position.Y, v.Position.Z}, v.Rotation[:]...)
		return composite("CoordinateFrame", append(vector3Fields[:3:3], rotationFields...), formatAll(f...)...), nil
	case rbxrojo.ValueUDim:
		return composite("UDim", []string{"S", "O"},
			formatFloat(v.Scale, 9), strconv.Itoa(int(v.Offset))), nil
	case rbxrojo.ValueUDim2:
		return composite("UDim2", []string{"XS", "XO", "YS", "YO"},
			formatFloat(v.X.Scale, 9), strconv.Itoa(int(v.X.Offset)),
			formatFloat(v.Y.Scale, 9), strconv.Itoa(int(v.Y.Offset))), nil
	case rbxrojo.ValueColor3uint8:
		packed := uint32(0xFF)<<24 | uint32(v.R)<<16 | uint32(v.G)<<8 | uint32(v.B)
		return leaf("Color3uint8", strconv.FormatUint(uint64(packed), 10)), nil

	case rbxrojo.ValueNumberRange:
		return leaf("NumberRange", numberList(v.Min, v.Max)), nil
	case rbxrojo.ValueNumberSequence:
		f := make([]float32, 0, len(v)*3)
		for _, k := range v {
			f = append(f, k.Time, k.Value, k.Envelope)
		}
		return leaf("NumberSequence", numberList(f...)), nil
	case rbxrojo.ValueColorSequence:
		f := make([]float32, 0, len(v)*5)
		for _, k := range v {
			f = append(f, k.Time, k.Value.R, k.Value.G, k.Value.B, k.Envelope)
		}
		return leaf("ColorSequence", numberList(f...)), nil
	}
	return nil, fmt.Errorf("cannot encode value of type %s", value.Type())
}

// formatFloat formats f with prec significant digits. Exponents are padded
// to three digits.
func formatFloat(f float32, prec int) string {
	s := strconv.FormatFloat(float64(f), 'g', prec, 32)
	mant, exp, ok := strings.Cut(s, "e")
	if !ok {
		return s
	}
	sign, digits := exp[:1], exp[1:]
	for len(digits) < 3 {
		digits = "0" + digits
	}
	return mant + "e" + sign + digits
}

// encodeBase64 encodes b as base64, broken into lines of 72 characters.
func encodeBase64(b []byte) string {
	s := base64.StdEncoding.EncodeToString(b)
	var out strings.Builder
	for len(s) > 72 {
		out.WriteString(s[:72])
		out.WriteByte('\n')
		s = s[72:]
	}
	out.WriteString(s)
	return out.String()
}
