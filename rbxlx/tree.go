package rbxlx

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/robloxapi/rbxrojo"
	"github.com/robloxapi/rbxrojo/errors"
	"github.com/robloxapi/rbxrojo/xml"
)

// tagTypes maps the lower-cased name of a property tag to the type of its
// value. Older files use some alternate names.
var tagTypes = map[string]rbxrojo.Type{
	"object":          rbxrojo.TypeReference,
	"cframe":          rbxrojo.TypeCFrame,
	"coordinateframe": rbxrojo.TypeCFrame,
}

func init() {
	for t := rbxrojo.TypeInvalid + 1; t.String() != "Invalid"; t++ {
		tagTypes[strings.ToLower(t.String())] = t
	}
}

// treeDecoder builds an instance tree from a parsed document. References and
// shared strings are collected while the tree is built and resolved at the
// end.
type treeDecoder struct {
	discardInvalid bool

	root    *rbxrojo.Root
	warn    errors.Errors
	refs    rbxrojo.References
	pending []rbxrojo.PropRef
	shared  []rbxrojo.PropRef
}

func decodeTree(doc *xml.Document, discardInvalid bool) (*rbxrojo.Root, errors.Errors, error) {
	if doc == nil || doc.Root == nil {
		return nil, nil, errors.New("no root tag")
	}
	d := &treeDecoder{
		discardInvalid: discardInvalid,
		root:           &rbxrojo.Root{},
		refs:           rbxrojo.References{},
	}
	d.root.Instances = d.items(nil, doc.Root.Tags, "")

	table := map[string][]byte{}
	for _, tag := range doc.Root.Tags {
		switch tag.StartName {
		case "Meta":
			d.meta(tag)
		case "SharedStrings":
			d.sharedStrings(table, tag)
		}
	}
	for _, ref := range d.shared {
		value, ok := table[ref.Reference]
		if !ok {
			d.warnAt(ref.Instance.String()+"."+ref.Property, errors.New("missing shared string"))
		}
		ref.Instance.Set(ref.Property, rbxrojo.ValueSharedString(value))
	}
	for _, ref := range d.pending {
		if !d.refs.Resolve(ref) {
			d.warnAt(ref.Instance.String()+"."+ref.Property, fmt.Errorf("unresolved referent %q", ref.Reference))
		}
	}
	return d.root, d.warn, nil
}

func (d *treeDecoder) warnAt(path string, err error) {
	d.warn = d.warn.Append(errors.At(path, err))
}

func (d *treeDecoder) meta(tag *xml.Tag) {
	key, ok := tag.AttrValue("name")
	if !ok {
		return
	}
	if d.root.Metadata == nil {
		d.root.Metadata = map[string]string{}
	}
	d.root.Metadata[key] = tag.Text
}

func (d *treeDecoder) sharedStrings(table map[string][]byte, tag *xml.Tag) {
	for _, entry := range tag.Tags {
		hash, ok := entry.AttrValue("md5")
		if entry.StartName != "SharedString" || !ok {
			continue
		}
		key, err := decodeBase64(hash)
		if err != nil {
			d.warn = d.warn.Append(fmt.Errorf("shared string key %q: %w", hash, err))
			continue
		}
		value, err := decodeBase64(content(entry))
		if err != nil {
			d.warn = d.warn.Append(fmt.Errorf("shared string %q: %w", hash, err))
			continue
		}
		table[string(key)] = value
	}
}

// items decodes the Item tags among tags into instances. The first
// Properties tag among them is applied to parent.
func (d *treeDecoder) items(parent *rbxrojo.Instance, tags []*xml.Tag, path string) []*rbxrojo.Instance {
	var instances []*rbxrojo.Instance
	propsDone := parent == nil
	for _, tag := range tags {
		switch {
		case tag.StartName == "Item":
			class, ok := tag.AttrValue("class")
			if !ok {
				d.warnAt(path, errors.New("item with missing class attribute"))
				continue
			}
			inst := rbxrojo.NewInstance(class)
			if ref, _ := tag.AttrValue("referent"); ref != "" {
				inst.Reference = ref
				if !rbxrojo.IsEmptyReference(ref) {
					d.refs[ref] = inst
				}
			}
			inst.Children = d.items(inst, tag.Tags, path+"/"+class)
			instances = append(instances, inst)

		case tag.StartName == "Properties" && !propsDone:
			propsDone = true
			for _, prop := range tag.Tags {
				d.property(parent, prop, path)
			}
		}
	}
	return instances
}

func (d *treeDecoder) property(inst *rbxrojo.Instance, tag *xml.Tag, path string) {
	name, ok := tag.AttrValue("name")
	if !ok {
		return
	}
	typ, ok := tagTypes[strings.ToLower(tag.StartName)]
	if !ok {
		d.warnAt(path+"."+name, fmt.Errorf("skipped property of unsupported type %q", tag.StartName))
		return
	}

	switch typ {
	case rbxrojo.TypeReference:
		if ref := content(tag); !rbxrojo.IsEmptyReference(ref) {
			d.pending = append(d.pending, rbxrojo.PropRef{Instance: inst, Property: name, Reference: ref})
			return
		}
		inst.Set(name, rbxrojo.ValueReference{})
		return

	case rbxrojo.TypeSharedString:
		// The content is the key of the value in the SharedStrings table.
		if key, err := decodeBase64(content(tag)); err == nil {
			d.shared = append(d.shared, rbxrojo.PropRef{Instance: inst, Property: name, Reference: string(key)})
			return
		}
	}

	value, err := parseValue(typ, tag)
	if err != nil {
		if d.discardInvalid {
			return
		}
		value = rbxrojo.NewValue(typ)
	}
	inst.Set(name, value)
}

// content returns the CDATA of tag if it has a section, even an empty one,
// and its text otherwise.
func content(tag *xml.Tag) string {
	if tag.CData != nil {
		return string(tag.CData)
	}
	return tag.Text
}

func decodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(strings.Join(strings.Fields(s), ""))
}

var errInvalid = errors.New("invalid value")

// parseInt parses a decimal integer, clamping values that are out of range.
func parseInt(s string, bits int) (int64, error) {
	n, err := strconv.ParseInt(s, 10, bits)
	if errors.Is(err, strconv.ErrRange) {
		err = nil
	}
	return n, err
}

// parseColor unpacks a color stored as a single 0xAARRGGBB integer.
func parseColor(s string) (r, g, b uint8, err error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if errors.Is(err, strconv.ErrRange) {
		err = nil
	}
	return uint8(n >> 16), uint8(n >> 8), uint8(n), err
}

// parseFloats parses a whitespace-separated list of numbers whose length is a
// multiple of n.
func parseFloats(s string, n int) ([]float32, error) {
	fields := strings.Fields(s)
	if len(fields)%n != 0 {
		return nil, errInvalid
	}
	f := make([]float32, len(fields))
	for i, field := range fields {
		v, err := strconv.ParseFloat(field, 32)
		if err != nil {
			return nil, err
		}
		f[i] = float32(v)
	}
	return f, nil
}

// fields reads the components of a composite property from its child tags.
// Only the first child of each name is used. A missing component, or an
// integer that fails to parse, makes the whole value invalid. A float that
// fails to parse reads as zero.
type fields struct {
	tag *xml.Tag
	err error
}

func (f *fields) find(name string) (string, bool) {
	for _, sub := range f.tag.Tags {
		if sub.StartName == name {
			return content(sub), true
		}
	}
	f.err = fmt.Errorf("missing component %s", name)
	return "", false
}

func (f *fields) float(name string, dst *float32) {
	if s, ok := f.find(name); ok {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 32); err == nil {
			*dst = float32(v)
		}
	}
}

func (f *fields) floats(dst []float32, names ...string) {
	for i, name := range names {
		f.float(name, &dst[i])
	}
}

func (f *fields) int32(name string, dst *int32) {
	if s, ok := f.find(name); ok {
		n, err := parseInt(strings.TrimSpace(s), 32)
		if err != nil {
			f.err = err
		}
		*dst = int32(n)
	}
}

func (f *fields) uint8(name string, dst *uint8) {
	var n int32
	f.int32(name, &n)
	*dst = uint8(n)
}

var (
	vector3Fields  = []string{"X", "Y", "Z"}
	rotationFields = []string{"R00", "R01", "R02", "R10", "R11", "R12", "R20", "R21", "R22"}
)

// parseValue decodes the value of a property tag of type typ.
func parseValue(typ rbxrojo.Type, tag *xml.Tag) (rbxrojo.Value, error) {
	s := content(tag)
	num := strings.TrimSpace(s)
	f := &fields{tag: tag}
	switch typ {
	case rbxrojo.TypeString:
		return rbxrojo.ValueString(s), nil
	case rbxrojo.TypeProtectedString:
		return rbxrojo.ValueProtectedString(s), nil

	case rbxrojo.TypeBinaryString:
		b, err := decodeBase64(s)
		return rbxrojo.ValueBinaryString(b), err
	case rbxrojo.TypeSharedString:
		b, err := decodeBase64(s)
		return rbxrojo.ValueSharedString(b), err

	case rbxrojo.TypeContent:
		if s != "" {
			return rbxrojo.ValueContent(s), nil
		}
		for _, sub := range tag.Tags {
			switch sub.StartName {
			case "url":
				return rbxrojo.ValueContent(content(sub)), nil
			case "null", "hash", "binary":
				return rbxrojo.ValueContent(nil), nil
			}
		}
		return nil, errInvalid

	case rbxrojo.TypeBool:
		switch {
		case strings.EqualFold(num, "true"):
			return rbxrojo.ValueBool(true), nil
		case strings.EqualFold(num, "false"):
			return rbxrojo.ValueBool(false), nil
		}
		return nil, errInvalid

	case rbxrojo.TypeInt:
		n, err := parseInt(num, 32)
		return rbxrojo.ValueInt(n), err
	case rbxrojo.TypeInt64:
		n, err := parseInt(num, 64)
		return rbxrojo.ValueInt64(n), err
	case rbxrojo.TypeToken:
		n, err := strconv.ParseUint(num, 10, 32)
		if errors.Is(err, strconv.ErrRange) {
			err = nil
		}
		return rbxrojo.ValueToken(n), err

	case rbxrojo.TypeFloat:
		n, err := strconv.ParseFloat(num, 32)
		return rbxrojo.ValueFloat(n), err
	case rbxrojo.TypeDouble:
		n, err := strconv.ParseFloat(num, 64)
		return rbxrojo.ValueDouble(n), err

	case rbxrojo.TypeVector2:
		var v rbxrojo.ValueVector2
		f.float("X", &v.X)
		f.float("Y", &v.Y)
		return v, f.err

	case rbxrojo.TypeVector3:
		var v [3]float32
		f.floats(v[:], vector3Fields...)
		return rbxrojo.ValueVector3{X: v[0], Y: v[1], Z: v[2]}, f.err

	case rbxrojo.TypeCFrame:
		var v rbxrojo.ValueCFrame
		var p [3]float32
		f.floats(p[:], vector3Fields...)
		f.floats(v.Rotation[:], rotationFields...)
		v.Position = rbxrojo.ValueVector3{X: p[0], Y: p[1], Z: p[2]}
		return v, f.err

	case rbxrojo.TypeColor3:
		if num != "" {
			r, g, b, err := parseColor(num)
			return rbxrojo.ValueColor3{R: float32(r) / 255, G: float32(g) / 255, B: float32(b) / 255}, err
		}
		var v rbxrojo.ValueColor3
		f.float("R", &v.R)
		f.float("G", &v.G)
		f.float("B", &v.B)
		return v, f.err

	case rbxrojo.TypeColor3uint8:
		if num != "" {
			r, g, b, err := parseColor(num)
			return rbxrojo.ValueColor3uint8{R: r, G: g, B: b}, err
		}
		var v rbxrojo.ValueColor3uint8
		f.uint8("R", &v.R)
		f.uint8("G", &v.G)
		f.uint8("B", &v.B)
		return v, f.err

	case rbxrojo.TypeUDim:
		var v rbxrojo.ValueUDim
		f.float("S", &v.Scale)
		f.int32("O", &v.Offset)
		return v, f.err

	case rbxrojo.TypeUDim2:
		var v rbxrojo.ValueUDim2
		f.float("XS", &v.X.Scale)
		f.int32("XO", &v.X.Offset)
		f.float("YS", &v.Y.Scale)
		f.int32("YO", &v.Y.Offset)
		return v, f.err

	case rbxrojo.TypeNumberRange:
		n, err := parseFloats(s, 1)
		if err != nil || len(n) < 2 {
			return nil, errInvalid
		}
		return rbxrojo.ValueNumberRange{Min: n[0], Max: n[1]}, nil

	case rbxrojo.TypeNumberSequence:
		n, err := parseFloats(s, 3)
		if err != nil {
			return nil, err
		}
		v := make(rbxrojo.ValueNumberSequence, 0, len(n)/3)
		for ; len(n) > 0; n = n[3:] {
			v = append(v, rbxrojo.ValueNumberSequenceKeypoint{Time: n[0], Value: n[1], Envelope: n[2]})
		}
		return v, nil

	case rbxrojo.TypeColorSequence:
		n, err := parseFloats(s, 5)
		if err != nil {
			return nil, err
		}
		v := make(rbxrojo.ValueColorSequence, 0, len(n)/5)
		for ; len(n) > 0; n = n[5:] {
			v = append(v, rbxrojo.ValueColorSequenceKeypoint{
				Time:     n[0],
				Value:    rbxrojo.ValueColor3{R: n[1], G: n[2], B: n[3]},
				Envelope: n[4],
			})
		}
		return v, nil
	}
	return nil, fmt.Errorf("unsupported type %s", typ)
}
