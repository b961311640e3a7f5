package rbxl

import (
	"fmt"

	"github.com/robloxapi/rbxrojo"
	"github.com/robloxapi/rbxrojo/errors"
)

// nilInstance is the ID of the absent instance, used by the parent of a root.
const nilInstance = -1

// treeBuilder assembles an instance tree one chunk at a time. Chunks that
// break the structure of the tree are errors. Chunks that only lose data are
// warnings.
type treeBuilder struct {
	mode   Mode
	header header
	root   *rbxrojo.Root
	warn   errors.Errors

	groups    map[int32]instGroup
	instances map[int32]*rbxrojo.Instance
	shared    [][]byte
}

func newTreeBuilder(mode Mode, h header) *treeBuilder {
	return &treeBuilder{
		mode:      mode,
		header:    h,
		root:      new(rbxrojo.Root),
		groups:    make(map[int32]instGroup, min(h.classes, 1<<16)),
		instances: make(map[int32]*rbxrojo.Instance, min(h.instances, 1<<20)),
	}
}

func (b *treeBuilder) add(c *chunk) error {
	switch string(c.sig[:]) {
	case sigINST:
		g, err := c.instGroup()
		if err != nil {
			b.warn = append(b.warn, c.fail(err))
			return nil
		}
		return b.addGroup(c, g)
	case sigPROP:
		p, err := c.propColumn()
		if err != nil {
			b.warn = append(b.warn, c.fail(err))
			return nil
		}
		b.addColumn(c, p)
	case sigPRNT:
		p, err := c.parentLinks()
		if err != nil {
			b.warn = append(b.warn, c.fail(err))
			return nil
		}
		return b.link(c, p)
	case sigMETA:
		pairs, err := c.metadata()
		if err != nil {
			b.warn = append(b.warn, c.fail(err))
			return nil
		}
		if b.mode == Model {
			return nil
		}
		if b.root.Metadata == nil {
			b.root.Metadata = make(map[string]string, len(pairs))
		}
		for _, pair := range pairs {
			b.root.Metadata[pair[0]] = pair[1]
		}
	case sigSSTR:
		version, values, err := c.sharedStrings()
		if err != nil {
			b.warn = append(b.warn, c.fail(err))
			return nil
		}
		if version != 0 {
			b.warn = append(b.warn, c.failf("shared string table version %d", version))
		}
		b.shared = append(b.shared, values...)
	default:
		b.warn = append(b.warn, c.fail(ErrUnknownChunkSig))
	}
	return nil
}

func (b *treeBuilder) addGroup(c *chunk, g instGroup) error {
	if g.classID < 0 || uint32(g.classID) >= b.header.classes {
		return c.failf("class ID %d out of range", g.classID)
	}
	if _, ok := b.groups[g.classID]; ok {
		return c.failf("class ID %d used twice", g.classID)
	}
	for i, id := range g.ids {
		if id < 0 || uint32(id) >= b.header.instances {
			return c.failf("instance ID %d out of range", id)
		}
		if _, ok := b.instances[id]; ok {
			return c.failf("instance ID %d used twice", id)
		}
		inst := rbxrojo.NewInstance(g.className)
		inst.IsService = g.service != nil && g.service[i] == 1
		b.instances[id] = inst
	}
	b.groups[g.classID] = g
	return nil
}

// lookup returns the instance with the given ID. The nil instance is found.
func (b *treeBuilder) lookup(id int32) (*rbxrojo.Instance, bool) {
	if id == nilInstance {
		return nil, true
	}
	inst, ok := b.instances[id]
	return inst, ok
}

func (b *treeBuilder) addColumn(c *chunk, p propColumn) {
	g, ok := b.groups[p.classID]
	if !ok {
		b.warn = append(b.warn, c.failf("property %s has unknown class ID %d", p.name, p.classID))
		return
	}
	set := func(i int, v rbxrojo.Value) {
		b.instances[g.ids[i]].Properties[p.name] = v
	}

	switch p.typ {
	case typeReference:
		refs, err := refsFromBytes(p.data, len(g.ids))
		if err != nil {
			b.warn = append(b.warn, c.fail(ErrValue{Type: byte(p.typ), Cause: err}))
			return
		}
		for i, ref := range refs {
			referent, ok := b.lookup(ref)
			if !ok {
				b.warn = append(b.warn, c.failf("%s.%s refers to missing instance %d", g.className, p.name, ref))
			}
			set(i, rbxrojo.ValueReference{Instance: referent})
		}

	case typeSharedString:
		col := column{b: p.data, n: len(g.ids)}
		indexes := col.uint32s()
		if col.err != nil {
			b.warn = append(b.warn, c.fail(ErrValue{Type: byte(p.typ), Cause: col.err}))
			return
		}
		for i, index := range indexes {
			if int(index) >= len(b.shared) {
				b.warn = append(b.warn, c.failf("%s.%s refers to missing shared string %d", g.className, p.name, index))
				set(i, rbxrojo.ValueSharedString(nil))
				continue
			}
			set(i, rbxrojo.ValueSharedString(b.shared[index]))
		}

	default:
		values, err := decodeValues(p.typ, p.name, p.data, len(g.ids))
		if err != nil {
			b.warn = append(b.warn, c.fail(fmt.Errorf("%s.%s: %w", g.className, p.name, err)))
			return
		}
		for i, v := range values {
			set(i, v)
		}
	}
}

func (b *treeBuilder) link(c *chunk, p parentLinks) error {
	if p.version != 0 {
		return c.failf("parent link version %d", p.version)
	}
	if len(p.children) != len(p.parents) {
		return c.failf("%d children but %d parents", len(p.children), len(p.parents))
	}
	for i, id := range p.children {
		child := b.instances[id]
		if child == nil {
			b.warn = append(b.warn, c.failf("child %d is missing instance %d", i, id))
			continue
		}
		parent, ok := b.lookup(p.parents[i])
		if !ok {
			b.warn = append(b.warn, c.failf("parent of child %d is missing instance %d", i, p.parents[i]))
		}
		if parent == nil {
			b.root.Instances = append(b.root.Instances, child)
			continue
		}
		parent.Children = append(parent.Children, child)
	}
	return nil
}
