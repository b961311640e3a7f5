// Package rojo lays out an instance tree as a Rojo project directory.
//
// Plan computes the whole project in memory: the project file, scripts as
// source files, and every other subtree as an XML model file. Write then
// materializes the project on disk. Instance names are mapped to file names
// with the pathname package, using one collision table per directory.
package rojo

import (
	"bytes"

	"github.com/goccy/go-json"

	"github.com/robloxapi/rbxrojo/sanitize"
)

// ProjectFile is the name of the project file within the project directory.
const ProjectFile = "default.project.json"

// Project is a planned Rojo project.
type Project struct {
	// Name is the name of the project.
	Name string

	// Tree is the root of the instance tree described by the project file.
	Tree *Node

	// Dirs lists the directories of the project, parents first.
	Dirs []string

	// Files lists the files of the project. Paths are slash-separated and
	// relative to the project directory.
	Files []File

	// Renames records every instance whose path segment differs from its
	// name.
	Renames []Rename

	// Changes accumulates the sanitization of model files.
	Changes sanitize.Changes

	// Warnings contains non-fatal problems encountered while encoding model
	// files.
	Warnings []error
}

// File is a file of a project.
type File struct {
	Path string
	Data []byte
}

// Rename records an instance name that was changed to produce a legal,
// unique path segment.
type Rename struct {
	// Dir is the directory containing the segment.
	Dir string
	// Name is the name of the instance.
	Name string
	// Segment is the name used on the filesystem.
	Segment string
}

// Node is a node of the instance tree in a project file.
type Node struct {
	ClassName              string
	Path                   string
	IgnoreUnknownInstances bool
	Children               []Child
}

// Child is a named child of a Node.
type Child struct {
	Name string
	Node *Node
}

// Child returns the child node with the given name, or nil.
func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c.Node
		}
	}
	return nil
}

func writeKey(b *bytes.Buffer, key string, value interface{}) error {
	if b.Len() > 1 {
		b.WriteByte(',')
	}
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	v, err := json.Marshal(value)
	if err != nil {
		return err
	}
	b.Write(k)
	b.WriteByte(':')
	b.Write(v)
	return nil
}

// MarshalJSON implements json.Marshaler. Keys starting with "$" are written
// first, followed by children in order.
func (n *Node) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	if n.ClassName != "" {
		if err := writeKey(&b, "$className", n.ClassName); err != nil {
			return nil, err
		}
	}
	if n.Path != "" {
		if err := writeKey(&b, "$path", n.Path); err != nil {
			return nil, err
		}
	}
	if n.IgnoreUnknownInstances {
		if err := writeKey(&b, "$ignoreUnknownInstances", true); err != nil {
			return nil, err
		}
	}
	for _, c := range n.Children {
		if err := writeKey(&b, c.Name, c.Node); err != nil {
			return nil, err
		}
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// MarshalJSON implements json.Marshaler, producing the content of a project
// file.
func (p *Project) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	if err := writeKey(&b, "name", p.Name); err != nil {
		return nil, err
	}
	if err := writeKey(&b, "tree", p.Tree); err != nil {
		return nil, err
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// meta is the content of a meta file, which applies to the instance of a
// script file or directory.
type meta struct {
	ClassName  string                 `json:"className,omitempty"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

// marshalFile encodes v as an indented JSON file.
func marshalFile(v interface{}) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, b, "", "  "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}
