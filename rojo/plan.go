package rojo

import (
	"bytes"
	"fmt"
	"path"

	"github.com/hashicorp/go-hclog"

	"github.com/robloxapi/rbxrojo"
	"github.com/robloxapi/rbxrojo/errors"
	"github.com/robloxapi/rbxrojo/pathname"
	"github.com/robloxapi/rbxrojo/rbxlx"
	"github.com/robloxapi/rbxrojo/xml"
)

// scriptExtensions maps script classes to the suffix of their source file.
var scriptExtensions = map[string]string{
	"Script":       ".server.lua",
	"LocalScript":  ".client.lua",
	"ModuleScript": ".lua",
}

// initName is the stem of a file that defines its containing directory.
const initName = "init"

const (
	metaExt  = ".meta.json"
	modelExt = ".rbxmx"
)

type planner struct {
	opts    *options
	log     hclog.Logger
	policy  pathname.Policy
	project *Project
	scripts map[*rbxrojo.Instance]bool
}

// Plan computes the project for root. A place becomes a DataModel with one
// entry per service. A model becomes the content of the source directory.
//
// Within a directory, a script without children becomes a source file, and a
// script with children becomes a directory with an init file. An instance
// containing scripts becomes a directory, and any other instance becomes a
// model file.
func Plan(root *rbxrojo.Root, opt ...Option) (*Project, error) {
	if root == nil {
		return nil, errors.New("nil root")
	}
	opts, err := getOpts(opt...)
	if err != nil {
		return nil, err
	}
	p := &planner{
		opts:    opts,
		log:     opts.withLogger,
		policy:  opts.withPolicy.WithReservedNames(initName),
		project: &Project{Name: opts.withName},
		scripts: map[*rbxrojo.Instance]bool{},
	}
	for _, inst := range root.Instances {
		p.markScripts(inst)
	}

	src := opts.withSourceDir
	if opts.withModel {
		p.project.Tree = &Node{Path: src}
		p.dir(src)
		if err := p.children(src, root.Instances); err != nil {
			return nil, err
		}
	} else if err := p.place(src, root.Instances); err != nil {
		return nil, err
	}

	data, err := marshalFile(p.project)
	if err != nil {
		return nil, fmt.Errorf("encode project file: %w", err)
	}
	p.file(ProjectFile, data)
	p.log.Info("planned project", "name", p.project.Name,
		"files", len(p.project.Files), "renames", len(p.project.Renames))
	return p.project, nil
}

// markScripts records whether each instance is or contains a script.
func (p *planner) markScripts(inst *rbxrojo.Instance) bool {
	_, found := scriptExtensions[inst.ClassName]
	for _, child := range inst.Children {
		if p.markScripts(child) {
			found = true
		}
	}
	p.scripts[inst] = found
	return found
}

func (p *planner) place(src string, services []*rbxrojo.Instance) error {
	tree := &Node{ClassName: "DataModel"}
	p.project.Tree = tree

	// Keys of the tree only need to be distinct.
	keys := pathname.NewTable(pathname.Policy{})
	dirs := pathname.NewTable(p.policy)
	for _, service := range services {
		node := &Node{ClassName: service.ClassName, IgnoreUnknownInstances: true}
		tree.Children = append(tree.Children, Child{Name: keys.Normalize(service.String()), Node: node})
		if len(service.Children) == 0 {
			continue
		}
		dir := path.Join(src, p.segment(dirs, src, service, ""))
		node.Path = dir
		p.dir(dir)
		if err := p.children(dir, service.Children); err != nil {
			return err
		}
	}
	return nil
}

func (p *planner) children(dir string, children []*rbxrojo.Instance) error {
	table := pathname.NewTable(p.policy)
	for _, child := range children {
		if err := p.instance(dir, table, child); err != nil {
			return err
		}
	}
	return nil
}

func (p *planner) instance(dir string, table *pathname.Table, inst *rbxrojo.Instance) error {
	ext, isScript := scriptExtensions[inst.ClassName]
	switch {
	case isScript && len(inst.Children) == 0:
		seg := p.segment(table, dir, inst, ext, metaExt)
		p.file(path.Join(dir, seg+ext), source(inst))
		if disabled(inst) {
			return p.meta(path.Join(dir, seg+metaExt), meta{Properties: map[string]interface{}{"Disabled": true}})
		}
		return nil

	case isScript:
		sub := path.Join(dir, p.segment(table, dir, inst, ""))
		p.dir(sub)
		p.file(path.Join(sub, initName+ext), source(inst))
		if disabled(inst) {
			if err := p.meta(path.Join(sub, initName+metaExt), meta{Properties: map[string]interface{}{"Disabled": true}}); err != nil {
				return err
			}
		}
		return p.children(sub, inst.Children)

	case p.scripts[inst]:
		sub := path.Join(dir, p.segment(table, dir, inst, ""))
		p.dir(sub)
		if inst.ClassName != "Folder" {
			if err := p.meta(path.Join(sub, initName+metaExt), meta{ClassName: inst.ClassName}); err != nil {
				return err
			}
		}
		return p.children(sub, inst.Children)

	default:
		return p.model(path.Join(dir, p.segment(table, dir, inst, modelExt)+modelExt), inst)
	}
}

// segment returns the path segment of inst within dir, recording a rename
// when it differs from the name of the instance. exts are the suffixes of
// every entry the segment is used for.
func (p *planner) segment(table *pathname.Table, dir string, inst *rbxrojo.Instance, exts ...string) string {
	name := inst.Name()
	seg := table.NormalizeFile(name, exts...)
	if seg != name {
		p.project.Renames = append(p.project.Renames, Rename{Dir: dir, Name: name, Segment: seg})
		p.log.Info("renamed instance", "dir", dir, "name", name, "segment", seg)
	}
	return seg
}

func (p *planner) dir(dir string) {
	p.project.Dirs = append(p.project.Dirs, dir)
}

func (p *planner) file(name string, data []byte) {
	p.project.Files = append(p.project.Files, File{Path: name, Data: data})
	p.log.Debug("planned file", "path", name, "size", len(data))
}

func (p *planner) meta(name string, m meta) error {
	data, err := marshalFile(m)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	p.file(name, data)
	return nil
}

// model encodes inst and its descendants as a model file.
func (p *planner) model(name string, inst *rbxrojo.Instance) error {
	var buf bytes.Buffer
	enc := rbxlx.Encoder{Model: true, Sanitizer: p.opts.withSanitizer, ExcludeExternal: true}
	warn, err := enc.Encode(&buf, &rbxrojo.Root{Instances: []*rbxrojo.Instance{inst}})
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	p.warn(name, warn)
	p.file(name, buf.Bytes())
	return nil
}

func (p *planner) warn(name string, warn error) {
	for _, w := range errors.Errors(nil).Append(warn) {
		var sw xml.SanitizeWarning
		if errors.As(w, &sw) {
			p.project.Changes = p.project.Changes.Add(sw.Changes)
		}
		p.project.Warnings = append(p.project.Warnings, errors.At(name, w))
		p.log.Warn("model file", "path", name, "warning", w)
	}
}

func source(inst *rbxrojo.Instance) []byte {
	switch v := inst.Get("Source").(type) {
	case rbxrojo.ValueProtectedString:
		return []byte(v)
	case rbxrojo.ValueString:
		return []byte(v)
	}
	return []byte{}
}

func disabled(inst *rbxrojo.Instance) bool {
	return inst.Get("Disabled") == rbxrojo.ValueBool(true)
}
