package rbxrojo

import (
	"bytes"
	"slices"
	"strconv"
	"strings"
)

// Type identifies the type of a property value.
type Type byte

const (
	TypeInvalid Type = iota
	TypeString
	TypeBinaryString
	TypeProtectedString
	TypeContent
	TypeBool
	TypeInt
	TypeInt64
	TypeFloat
	TypeDouble
	TypeToken
	TypeReference
	TypeSharedString
	TypeVector2
	TypeVector3
	TypeColor3
	TypeColor3uint8
	TypeCFrame
	TypeUDim
	TypeUDim2
	TypeNumberRange
	TypeNumberSequence
	TypeColorSequence
	typeCount
)

// typeNames holds the name of each type as it appears in XML files.
var typeNames = [typeCount]string{
	TypeInvalid:         "Invalid",
	TypeString:          "string",
	TypeBinaryString:    "BinaryString",
	TypeProtectedString: "ProtectedString",
	TypeContent:         "Content",
	TypeBool:            "bool",
	TypeInt:             "int",
	TypeInt64:           "int64",
	TypeFloat:           "float",
	TypeDouble:          "double",
	TypeToken:           "token",
	TypeReference:       "Ref",
	TypeSharedString:    "SharedString",
	TypeVector2:         "Vector2",
	TypeVector3:         "Vector3",
	TypeColor3:          "Color3",
	TypeColor3uint8:     "Color3uint8",
	TypeCFrame:          "CoordinateFrame",
	TypeUDim:            "UDim",
	TypeUDim2:           "UDim2",
	TypeNumberRange:     "NumberRange",
	TypeNumberSequence:  "NumberSequence",
	TypeColorSequence:   "ColorSequence",
}

// String returns the name of the type, or "Invalid".
func (t Type) String() string {
	if t >= typeCount {
		t = TypeInvalid
	}
	return typeNames[t]
}

// TypeFromString is the inverse of Type.String. Unknown names return
// TypeInvalid.
func TypeFromString(s string) Type {
	for t := TypeInvalid + 1; t < typeCount; t++ {
		if typeNames[t] == s {
			return t
		}
	}
	return TypeInvalid
}

// Value is the value of a property.
type Value interface {
	Type() Type
	String() string

	// Copy returns a deep copy of the value.
	Copy() Value
}

// NewValue returns the zero value of typ, or nil for an invalid type. The
// zero CFrame has the identity rotation.
func NewValue(typ Type) Value {
	switch typ {
	case TypeString:
		return ValueString(nil)
	case TypeBinaryString:
		return ValueBinaryString(nil)
	case TypeProtectedString:
		return ValueProtectedString(nil)
	case TypeContent:
		return ValueContent(nil)
	case TypeSharedString:
		return ValueSharedString(nil)
	case TypeBool:
		return ValueBool(false)
	case TypeInt:
		return ValueInt(0)
	case TypeInt64:
		return ValueInt64(0)
	case TypeFloat:
		return ValueFloat(0)
	case TypeDouble:
		return ValueDouble(0)
	case TypeToken:
		return ValueToken(0)
	case TypeReference:
		return ValueReference{}
	case TypeVector2:
		return ValueVector2{}
	case TypeVector3:
		return ValueVector3{}
	case TypeColor3:
		return ValueColor3{}
	case TypeColor3uint8:
		return ValueColor3uint8{}
	case TypeCFrame:
		return ValueCFrame{Rotation: identity}
	case TypeUDim:
		return ValueUDim{}
	case TypeUDim2:
		return ValueUDim2{}
	case TypeNumberRange:
		return ValueNumberRange{}
	case TypeNumberSequence:
		return ValueNumberSequence(nil)
	case TypeColorSequence:
		return ValueColorSequence(nil)
	}
	return nil
}

var identity = [9]float32{1, 0, 0, 0, 1, 0, 0, 0, 1}

func formatFloats(sep string, f ...float32) string {
	s := make([]string, len(f))
	for i, v := range f {
		s[i] = strconv.FormatFloat(float64(v), 'g', -1, 32)
	}
	return strings.Join(s, sep)
}

// String-like values.
type (
	ValueString []byte

	// ValueBinaryString is arbitrary data. XML files store it as base64,
	// which is never treated as text.
	ValueBinaryString []byte

	// ValueProtectedString is script source.
	ValueProtectedString []byte

	// ValueContent is an asset URL.
	ValueContent []byte

	// ValueSharedString is data stored once per file and referred to by its
	// hash.
	ValueSharedString []byte
)

func (ValueString) Type() Type          { return TypeString }
func (ValueBinaryString) Type() Type    { return TypeBinaryString }
func (ValueProtectedString) Type() Type { return TypeProtectedString }
func (ValueContent) Type() Type         { return TypeContent }
func (ValueSharedString) Type() Type    { return TypeSharedString }

func (v ValueString) String() string          { return string(v) }
func (v ValueBinaryString) String() string    { return string(v) }
func (v ValueProtectedString) String() string { return string(v) }
func (v ValueContent) String() string         { return string(v) }
func (v ValueSharedString) String() string    { return string(v) }

func (v ValueString) Copy() Value          { return ValueString(bytes.Clone(v)) }
func (v ValueBinaryString) Copy() Value    { return ValueBinaryString(bytes.Clone(v)) }
func (v ValueProtectedString) Copy() Value { return ValueProtectedString(bytes.Clone(v)) }
func (v ValueContent) Copy() Value         { return ValueContent(bytes.Clone(v)) }
func (v ValueSharedString) Copy() Value    { return ValueSharedString(bytes.Clone(v)) }

// Scalar values.
type (
	ValueBool   bool
	ValueInt    int32
	ValueInt64  int64
	ValueFloat  float32
	ValueDouble float64

	// ValueToken is the value of an enum item.
	ValueToken uint32
)

func (ValueBool) Type() Type   { return TypeBool }
func (ValueInt) Type() Type    { return TypeInt }
func (ValueInt64) Type() Type  { return TypeInt64 }
func (ValueFloat) Type() Type  { return TypeFloat }
func (ValueDouble) Type() Type { return TypeDouble }
func (ValueToken) Type() Type  { return TypeToken }

func (v ValueBool) String() string   { return strconv.FormatBool(bool(v)) }
func (v ValueInt) String() string    { return strconv.FormatInt(int64(v), 10) }
func (v ValueInt64) String() string  { return strconv.FormatInt(int64(v), 10) }
func (v ValueFloat) String() string  { return formatFloats("", float32(v)) }
func (v ValueDouble) String() string { return strconv.FormatFloat(float64(v), 'g', -1, 64) }
func (v ValueToken) String() string  { return strconv.FormatUint(uint64(v), 10) }

func (v ValueBool) Copy() Value   { return v }
func (v ValueInt) Copy() Value    { return v }
func (v ValueInt64) Copy() Value  { return v }
func (v ValueFloat) Copy() Value  { return v }
func (v ValueDouble) Copy() Value { return v }
func (v ValueToken) Copy() Value  { return v }

// ValueReference refers to another instance. A nil Instance is an empty
// reference.
type ValueReference struct {
	*Instance
}

func (ValueReference) Type() Type { return TypeReference }

func (v ValueReference) String() string {
	if v.Instance == nil {
		return "<nil>"
	}
	return v.Instance.String()
}

func (v ValueReference) Copy() Value { return v }

// Composite values.
type (
	ValueVector2 struct{ X, Y float32 }
	ValueVector3 struct{ X, Y, Z float32 }
	ValueColor3  struct{ R, G, B float32 }

	ValueColor3uint8 struct{ R, G, B byte }

	// ValueCFrame is a position and a row-major rotation matrix.
	ValueCFrame struct {
		Position ValueVector3
		Rotation [9]float32
	}

	ValueUDim struct {
		Scale  float32
		Offset int32
	}
	ValueUDim2 struct{ X, Y ValueUDim }

	ValueNumberRange struct{ Min, Max float32 }
)

func (ValueVector2) Type() Type     { return TypeVector2 }
func (ValueVector3) Type() Type     { return TypeVector3 }
func (ValueColor3) Type() Type      { return TypeColor3 }
func (ValueColor3uint8) Type() Type { return TypeColor3uint8 }
func (ValueCFrame) Type() Type      { return TypeCFrame }
func (ValueUDim) Type() Type        { return TypeUDim }
func (ValueUDim2) Type() Type       { return TypeUDim2 }
func (ValueNumberRange) Type() Type { return TypeNumberRange }

func (v ValueVector2) String() string     { return formatFloats(", ", v.X, v.Y) }
func (v ValueVector3) String() string     { return formatFloats(", ", v.X, v.Y, v.Z) }
func (v ValueColor3) String() string      { return formatFloats(", ", v.R, v.G, v.B) }
func (v ValueNumberRange) String() string { return formatFloats(", ", v.Min, v.Max) }

func (v ValueColor3uint8) String() string {
	return strconv.Itoa(int(v.R)) + ", " + strconv.Itoa(int(v.G)) + ", " + strconv.Itoa(int(v.B))
}

func (v ValueCFrame) String() string {
	return formatFloats(", ", append([]float32{v.Position.X, v.Position.Y, v.Position.Z}, v.Rotation[:]...)...)
}

func (v ValueUDim) String() string {
	return formatFloats("", v.Scale) + ", " + strconv.FormatInt(int64(v.Offset), 10)
}

func (v ValueUDim2) String() string {
	return "{" + v.X.String() + "}, {" + v.Y.String() + "}"
}

func (v ValueVector2) Copy() Value     { return v }
func (v ValueVector3) Copy() Value     { return v }
func (v ValueColor3) Copy() Value      { return v }
func (v ValueColor3uint8) Copy() Value { return v }
func (v ValueCFrame) Copy() Value      { return v }
func (v ValueUDim) Copy() Value        { return v }
func (v ValueUDim2) Copy() Value       { return v }
func (v ValueNumberRange) Copy() Value { return v }

// Sequence values.
type (
	ValueNumberSequenceKeypoint struct {
		Time, Value, Envelope float32
	}
	ValueNumberSequence []ValueNumberSequenceKeypoint

	ValueColorSequenceKeypoint struct {
		Time     float32
		Value    ValueColor3
		Envelope float32
	}
	ValueColorSequence []ValueColorSequenceKeypoint
)

func (ValueNumberSequence) Type() Type { return TypeNumberSequence }
func (ValueColorSequence) Type() Type  { return TypeColorSequence }

func (v ValueNumberSequence) String() string {
	f := make([]float32, 0, len(v)*3)
	for _, k := range v {
		f = append(f, k.Time, k.Value, k.Envelope)
	}
	return formatFloats(" ", f...)
}

func (v ValueColorSequence) String() string {
	f := make([]float32, 0, len(v)*5)
	for _, k := range v {
		f = append(f, k.Time, k.Value.R, k.Value.G, k.Value.B, k.Envelope)
	}
	return formatFloats(" ", f...)
}

func (v ValueNumberSequence) Copy() Value { return slices.Clone(v) }
func (v ValueColorSequence) Copy() Value  { return slices.Clone(v) }
