// Package declare builds instance trees from nested declarations, for use in
// tests.
//
// Dot-importing the package keeps declarations short:
//
//	import . "github.com/robloxapi/rbxrojo/declare"
//
//	root := Root{
//		Instance("Workspace", Service,
//			Instance("Part", Ref("p"), Name("Base")),
//		),
//	}.Declare()
package declare

import (
	"github.com/robloxapi/rbxrojo"
)

// primary is implemented by declarations that may appear in a Root.
type primary interface{ primary() }

// element is implemented by declarations that may appear in an Instance.
type element interface{ element() }

// Root declares a rbxrojo.Root from Instance and Metadata declarations.
type Root []primary

// Declare builds the root. Later metadata replaces earlier metadata with the
// same key.
func (d Root) Declare() *rbxrojo.Root {
	root := new(rbxrojo.Root)
	var b builder
	for _, p := range d {
		switch p := p.(type) {
		case metadata:
			if root.Metadata == nil {
				root.Metadata = make(map[string]string)
			}
			root.Metadata[p.key] = p.value
		case instance:
			root.Instances = append(root.Instances, b.instance(p))
		}
	}
	b.setProperties()
	return root
}

type metadata struct{ key, value string }

func (metadata) primary() {}

// Metadata declares an entry of the root's Metadata.
func Metadata(key, value string) metadata {
	return metadata{key: key, value: value}
}

type instance struct {
	class    string
	ref      Ref
	service  bool
	props    []property
	children []instance
}

func (instance) primary() {}
func (instance) element() {}

// Instance declares an instance of class. Property elements become
// properties, Instance elements become children, and Ref and Service
// elements annotate the instance itself.
func Instance(class string, elements ...element) instance {
	d := instance{class: class}
	for _, e := range elements {
		switch e := e.(type) {
		case property:
			d.props = append(d.props, e)
		case instance:
			d.children = append(d.children, e)
		case Ref:
			d.ref = e
		case service:
			d.service = true
		}
	}
	return d
}

// Declare builds the instance and its descendants.
func (d instance) Declare() *rbxrojo.Instance {
	var b builder
	inst := b.instance(d)
	b.setProperties()
	return inst
}

// builder creates instances first and sets properties afterwards, so that a
// reference can name an instance declared after it.
type builder struct {
	refs    rbxrojo.References
	pending []pendingProps
}

type pendingProps struct {
	inst  *rbxrojo.Instance
	props []property
}

func (b *builder) instance(d instance) *rbxrojo.Instance {
	inst := rbxrojo.NewInstance(d.class)
	inst.IsService = d.service
	if d.ref != "" {
		if b.refs == nil {
			b.refs = rbxrojo.References{}
		}
		inst.Reference = string(d.ref)
		b.refs[inst.Reference] = inst
	}
	b.pending = append(b.pending, pendingProps{inst: inst, props: d.props})
	for _, child := range d.children {
		inst.AddChild(b.instance(child))
	}
	return inst
}

func (b *builder) setProperties() {
	for _, p := range b.pending {
		for _, prop := range p.props {
			p.inst.Set(prop.name, prop.value(b.refs))
		}
	}
}

type property struct {
	name string
	typ  Type
	args []interface{}
}

func (property) element() {}

// Property declares a property of type typ. A single rbxrojo.Value of that
// type is used as is. Otherwise args are converted:
//
//	String, BinaryString, ProtectedString, Content, SharedString
//	                       one string or []byte
//	Bool                   one bool
//	Int, Int64, Token      one number
//	Float, Double          one number
//	UDim                   scale, offset
//	UDim2                  x scale, x offset, y scale, y offset
//	Vector2, NumberRange   2 numbers
//	Vector3, Color3        3 numbers
//	Color3uint8            3 numbers
//	CFrame                 position (3) followed by rotation (9)
//	Reference              a *rbxrojo.Instance or the string of a Ref
//	NumberSequence         time, value, envelope for each keypoint
//	ColorSequence          time, r, g, b, envelope for each keypoint
//
// Arguments that do not fit produce the zero value of the type.
func Property(name string, typ Type, args ...interface{}) property {
	return property{name: name, typ: typ, args: args}
}

// Declare returns the value of the property. References by string resolve to
// nothing.
func (p property) Declare() rbxrojo.Value {
	return p.value(nil)
}

// Name declares the Name property.
func Name(name string) property {
	return Property("Name", String, name)
}

// Ref names the enclosing instance for Reference properties, and becomes the
// Reference of the instance.
type Ref string

func (Ref) element() {}

type service struct{}

func (service) element() {}

// Service marks the enclosing instance as a service.
var Service service
