// The rbxrojo package converts Roblox instance trees into Rojo projects.
//
// Instance trees begin with a Root struct. A Root contains a list of child
// Instances, which in turn contain more child Instances, and so on. Each
// Instance has a set of properties, each holding a Value of a certain Type.
//
// Roots are decoded from Roblox's binary format by the "rbxl" sub-package,
// and from and to Roblox's XML format by the "rbxlx" sub-package. The "rojo"
// sub-package lays out a Root as a Rojo project directory. Text written to
// XML passes through the "sanitize" package, and instance names written to
// the filesystem pass through the "pathname" package.
package rbxrojo

import (
	"fmt"
)

// Root holds the top-level instances of a place or model, which have no
// parent instance.
type Root struct {
	Instances []*Instance

	// Metadata holds the key and value pairs stored beside the tree, such as
	// ExplicitAutoJoints. Models have none.
	Metadata map[string]string
}

// Descendants calls fn for every instance in the tree, depth-first, parents
// before children. If fn returns false, the children of the instance are
// skipped.
func (root *Root) Descendants(fn func(inst *Instance) bool) {
	for _, inst := range root.Instances {
		inst.walk(fn)
	}
}

// Instance is a node of an instance tree.
type Instance struct {
	ClassName string

	// Reference identifies the instance to reference properties within the
	// same file.
	Reference string

	// IsService marks a top-level service of a place, such as Workspace.
	IsService bool

	Properties map[string]Value
	Children   []*Instance
}

// NewInstance returns an empty instance of className with a fresh reference.
func NewInstance(className string) *Instance {
	inst := &Instance{ClassName: className, Properties: map[string]Value{}}
	inst.Reference = GenerateReference()
	return inst
}

// AddChild appends child to the children of the instance.
func (inst *Instance) AddChild(child *Instance) {
	inst.Children = append(inst.Children, child)
}

// Clone returns a copy of the instance. Each property and all descendants are
// copied as well. Copies receive new references, and references between
// copied instances are redirected to the copies.
func (inst *Instance) Clone() *Instance {
	copies := map[*Instance]*Instance{}
	clone := inst.clone(copies)
	for _, c := range copies {
		for name, value := range c.Properties {
			if ref, ok := value.(ValueReference); ok {
				if to, ok := copies[ref.Instance]; ok {
					c.Properties[name] = ValueReference{Instance: to}
				}
			}
		}
	}
	return clone
}

func (inst *Instance) clone(copies map[*Instance]*Instance) *Instance {
	c := NewInstance(inst.ClassName)
	c.IsService = inst.IsService
	copies[inst] = c
	for name, value := range inst.Properties {
		c.Properties[name] = value.Copy()
	}
	for _, child := range inst.Children {
		c.AddChild(child.clone(copies))
	}
	return c
}

// Descendants calls fn for the instance and each of its descendants,
// depth-first. If fn returns false, the children of that instance are
// skipped.
func (inst *Instance) Descendants(fn func(inst *Instance) bool) {
	inst.walk(fn)
}

func (inst *Instance) walk(fn func(inst *Instance) bool) {
	if !fn(inst) {
		return
	}
	for _, child := range inst.Children {
		child.walk(fn)
	}
}

// FindFirstChild returns the first child named name, or nil.
func (inst *Instance) FindFirstChild(name string) *Instance {
	for _, child := range inst.Children {
		if child.Name() == name {
			return child
		}
	}
	return nil
}

// Name returns the Name property, or "" if the instance has none.
func (inst *Instance) Name() string {
	switch name := inst.Properties["Name"].(type) {
	case ValueString:
		return string(name)
	case ValueProtectedString:
		return string(name)
	}
	return ""
}

// String returns the name of the instance, falling back to its class.
func (inst *Instance) String() string {
	name := inst.Name()
	if name == "" {
		name = inst.ClassName
	}
	return name
}

// GoString returns a representation used in test failures.
func (inst *Instance) GoString() string {
	return fmt.Sprintf("%s(%q)", inst.ClassName, inst.Name())
}

// SetName assigns the Name property.
func (inst *Instance) SetName(name string) {
	inst.Set("Name", ValueString(name))
}

// Get returns the value of property, or nil.
func (inst *Instance) Get(property string) Value {
	return inst.Properties[property]
}

// Set assigns value to property. A nil value removes the property.
func (inst *Instance) Set(property string, value Value) {
	switch {
	case value == nil:
		delete(inst.Properties, property)
	case inst.Properties == nil:
		inst.Properties = map[string]Value{property: value}
	default:
		inst.Properties[property] = value
	}
}
