package rbxlx

import (
	"github.com/robloxapi/rbxrojo/xml"
)

// Schema classifies the elements of Roblox XML files. The content of binary
// property types is opaque. Number types and the components of composite
// types are numeric. Sequences of numbers are numeric lists. Everything else
// is text.
type Schema struct{}

var schemaClasses = map[string]xml.Class{
	"BinaryString": xml.ClassOpaque,
	"SharedString": xml.ClassOpaque,

	"float":       xml.ClassNumeric,
	"double":      xml.ClassNumeric,
	"int":         xml.ClassNumeric,
	"int64":       xml.ClassNumeric,
	"token":       xml.ClassNumeric,
	"Color3uint8": xml.ClassNumeric,
	"X":           xml.ClassNumeric,
	"Y":           xml.ClassNumeric,
	"Z":           xml.ClassNumeric,
	"R00":         xml.ClassNumeric,
	"R01":         xml.ClassNumeric,
	"R02":         xml.ClassNumeric,
	"R10":         xml.ClassNumeric,
	"R11":         xml.ClassNumeric,
	"R12":         xml.ClassNumeric,
	"R20":         xml.ClassNumeric,
	"R21":         xml.ClassNumeric,
	"R22":         xml.ClassNumeric,
	"S":           xml.ClassNumeric,
	"O":           xml.ClassNumeric,
	"XS":          xml.ClassNumeric,
	"XO":          xml.ClassNumeric,
	"YS":          xml.ClassNumeric,
	"YO":          xml.ClassNumeric,
	"R":           xml.ClassNumeric,
	"G":           xml.ClassNumeric,
	"B":           xml.ClassNumeric,

	"NumberRange":    xml.ClassNumericList,
	"NumberSequence": xml.ClassNumericList,
	"ColorSequence":  xml.ClassNumericList,
}

// Classify implements xml.Schema.
func (Schema) Classify(tag string) xml.Class {
	return schemaClasses[tag]
}

// classify sets the class of tag and its descendants.
func classify(tag *xml.Tag, schema xml.Schema) {
	tag.Class = schema.Classify(tag.StartName)
	for _, sub := range tag.Tags {
		classify(sub, schema)
	}
}
