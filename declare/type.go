package declare

import (
	"reflect"

	"github.com/robloxapi/rbxrojo"
)

// Type is the type of a declared property.
type Type = rbxrojo.Type

const (
	String          = rbxrojo.TypeString
	BinaryString    = rbxrojo.TypeBinaryString
	ProtectedString = rbxrojo.TypeProtectedString
	Content         = rbxrojo.TypeContent
	Bool            = rbxrojo.TypeBool
	Int             = rbxrojo.TypeInt
	Int64           = rbxrojo.TypeInt64
	Float           = rbxrojo.TypeFloat
	Double          = rbxrojo.TypeDouble
	Token           = rbxrojo.TypeToken
	Reference       = rbxrojo.TypeReference
	SharedString    = rbxrojo.TypeSharedString
	Vector2         = rbxrojo.TypeVector2
	Vector3         = rbxrojo.TypeVector3
	Color3          = rbxrojo.TypeColor3
	Color3uint8     = rbxrojo.TypeColor3uint8
	CFrame          = rbxrojo.TypeCFrame
	UDim            = rbxrojo.TypeUDim
	UDim2           = rbxrojo.TypeUDim2
	NumberRange     = rbxrojo.TypeNumberRange
	NumberSequence  = rbxrojo.TypeNumberSequence
	ColorSequence   = rbxrojo.TypeColorSequence
)

// args converts declared arguments. Numbers of any kind are accepted where a
// number is expected, and anything else reads as zero.
type args []interface{}

func (a args) float(i int) float64 {
	v := reflect.ValueOf(a[i])
	switch {
	case v.CanFloat():
		return v.Float()
	case v.CanInt():
		return float64(v.Int())
	case v.CanUint():
		return float64(v.Uint())
	}
	return 0
}

func (a args) int(i int) int64 {
	v := reflect.ValueOf(a[i])
	switch {
	case v.CanInt():
		return v.Int()
	case v.CanUint():
		return int64(v.Uint())
	}
	return int64(a.float(i))
}

func (a args) f32(i int) float32 { return float32(a.float(i)) }

// floats returns every argument as a float32, or false when there are not
// exactly n of them. An n of 0 accepts any count that is a multiple of group.
func (a args) floats(n, group int) ([]float32, bool) {
	if n > 0 && len(a) != n || n == 0 && (len(a) == 0 || len(a)%group != 0) {
		return nil, false
	}
	f := make([]float32, len(a))
	for i := range a {
		f[i] = a.f32(i)
	}
	return f, true
}

func (a args) bytes() ([]byte, bool) {
	switch v := a[0].(type) {
	case string:
		return []byte(v), true
	case []byte:
		return v, true
	}
	return nil, false
}

func (p property) value(refs rbxrojo.References) rbxrojo.Value {
	if len(p.args) == 1 {
		if v, ok := p.args[0].(rbxrojo.Value); ok && v.Type() == p.typ {
			return v
		}
	}
	if len(p.args) > 0 {
		if v := convert(p.typ, args(p.args), refs); v != nil {
			return v
		}
	}
	return rbxrojo.NewValue(p.typ)
}

func convert(t Type, a args, refs rbxrojo.References) rbxrojo.Value {
	switch t {
	case String, BinaryString, ProtectedString, Content, SharedString:
		b, ok := a.bytes()
		if !ok {
			return nil
		}
		switch t {
		case String:
			return rbxrojo.ValueString(b)
		case BinaryString:
			return rbxrojo.ValueBinaryString(b)
		case ProtectedString:
			return rbxrojo.ValueProtectedString(b)
		case Content:
			return rbxrojo.ValueContent(b)
		}
		return rbxrojo.ValueSharedString(b)

	case Bool:
		if b, ok := a[0].(bool); ok {
			return rbxrojo.ValueBool(b)
		}
	case Int:
		return rbxrojo.ValueInt(a.int(0))
	case Int64:
		return rbxrojo.ValueInt64(a.int(0))
	case Token:
		return rbxrojo.ValueToken(a.int(0))
	case Float:
		return rbxrojo.ValueFloat(a.float(0))
	case Double:
		return rbxrojo.ValueDouble(a.float(0))

	case Reference:
		switch r := a[0].(type) {
		case *rbxrojo.Instance:
			return rbxrojo.ValueReference{Instance: r}
		case string:
			return rbxrojo.ValueReference{Instance: refs[r]}
		case Ref:
			return rbxrojo.ValueReference{Instance: refs[string(r)]}
		}

	case UDim:
		if len(a) == 2 {
			return rbxrojo.ValueUDim{Scale: a.f32(0), Offset: int32(a.int(1))}
		}
	case UDim2:
		if len(a) == 4 {
			return rbxrojo.ValueUDim2{
				X: rbxrojo.ValueUDim{Scale: a.f32(0), Offset: int32(a.int(1))},
				Y: rbxrojo.ValueUDim{Scale: a.f32(2), Offset: int32(a.int(3))},
			}
		}
	case Color3uint8:
		if len(a) == 3 {
			return rbxrojo.ValueColor3uint8{R: uint8(a.int(0)), G: uint8(a.int(1)), B: uint8(a.int(2))}
		}

	case Vector2:
		if f, ok := a.floats(2, 1); ok {
			return rbxrojo.ValueVector2{X: f[0], Y: f[1]}
		}
	case NumberRange:
		if f, ok := a.floats(2, 1); ok {
			return rbxrojo.ValueNumberRange{Min: f[0], Max: f[1]}
		}
	case Vector3:
		if f, ok := a.floats(3, 1); ok {
			return rbxrojo.ValueVector3{X: f[0], Y: f[1], Z: f[2]}
		}
	case Color3:
		if f, ok := a.floats(3, 1); ok {
			return rbxrojo.ValueColor3{R: f[0], G: f[1], B: f[2]}
		}
	case CFrame:
		if f, ok := a.floats(12, 1); ok {
			cf := rbxrojo.ValueCFrame{Position: rbxrojo.ValueVector3{X: f[0], Y: f[1], Z: f[2]}}
			copy(cf.Rotation[:], f[3:])
			return cf
		}

	case NumberSequence:
		if f, ok := a.floats(0, 3); ok {
			seq := make(rbxrojo.ValueNumberSequence, 0, len(f)/3)
			for ; len(f) > 0; f = f[3:] {
				seq = append(seq, rbxrojo.ValueNumberSequenceKeypoint{Time: f[0], Value: f[1], Envelope: f[2]})
			}
			return seq
		}
	case ColorSequence:
		if f, ok := a.floats(0, 5); ok {
			seq := make(rbxrojo.ValueColorSequence, 0, len(f)/5)
			for ; len(f) > 0; f = f[5:] {
				seq = append(seq, rbxrojo.ValueColorSequenceKeypoint{
					Time:     f[0],
					Value:    rbxrojo.ValueColor3{R: f[1], G: f[2], B: f[3]},
					Envelope: f[4],
				})
			}
			return seq
		}
	}
	return nil
}
