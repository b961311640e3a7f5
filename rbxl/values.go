package rbxl

import (
	"encoding/binary"
	"math"

	"github.com/robloxapi/rbxrojo"
)

const (
	// Primitive sizes.
	zb   = 1 // byte
	zi32 = 4 // int32
	zu32 = 4 // uint32
	zf32 = 4 // float32
	zi64 = 8 // int64
	zf64 = 8 // float64

	// Size of an instance ID.
	zReference = zi32
)

// Encodes signed integers so that the bytes of negative numbers are more
// similar to positive numbers, making them more compressible.
//
// https://developers.google.com/protocol-buffers/docs/encoding#types
func decodeZigzag32(n uint32) int32 {
	return int32((n >> 1) ^ uint32((int32(n&1)<<31)>>31))
}

func decodeZigzag64(n uint64) int64 {
	return int64((n >> 1) ^ uint64((int64(n&1)<<63)>>63))
}

// Decodes a Binary32 float with sign at LSB instead of MSB.
func decodeRobloxFloat(n uint32) float32 {
	f := (n >> 1) | (n << 31)
	return math.Float32frombits(f)
}

// deinterleave reverses the interleaving of an array of count elements, each
// size bytes long. In an interleaved array, the nth bytes of each element are
// grouped together:
//
//	Interleaved: AaBbCcDd
//	Original:    ABCDabcd
func deinterleave(b []byte, count, size int) []byte {
	r := make([]byte, len(b))
	for i := 0; i < count; i++ {
		for j := 0; j < size; j++ {
			r[i*size+j] = b[j*count+i]
		}
	}
	return r
}

// column reads a group of values stored one property per chunk.
type column struct {
	b   []byte
	n   int
	err error
}

// take returns the next size bytes, or nil if there are not enough bytes.
func (c *column) take(size int) []byte {
	if c.err != nil {
		return nil
	}
	if size < 0 || size > len(c.b) {
		c.err = errExpectedMoreBytes(size - len(c.b))
		return nil
	}
	p := c.b[:size]
	c.b = c.b[size:]
	return p
}

func (c *column) interleaved(size int) []byte {
	p := c.take(c.n * size)
	if p == nil {
		return nil
	}
	return deinterleave(p, c.n, size)
}

func (c *column) uint32s() []uint32 {
	a := make([]uint32, c.n)
	if p := c.interleaved(zu32); p != nil {
		for i := range a {
			a[i] = binary.BigEndian.Uint32(p[i*zu32:])
		}
	}
	return a
}

func (c *column) ints() []int32 {
	a := make([]int32, c.n)
	for i, v := range c.uint32s() {
		a[i] = decodeZigzag32(v)
	}
	return a
}

func (c *column) floats() []float32 {
	a := make([]float32, c.n)
	for i, v := range c.uint32s() {
		a[i] = decodeRobloxFloat(v)
	}
	return a
}

func (c *column) int64s() []int64 {
	a := make([]int64, c.n)
	if p := c.interleaved(zi64); p != nil {
		for i := range a {
			a[i] = decodeZigzag64(binary.BigEndian.Uint64(p[i*zi64:]))
		}
	}
	return a
}

func (c *column) uint32LE() uint32 {
	if p := c.take(zu32); p != nil {
		return binary.LittleEndian.Uint32(p)
	}
	return 0
}

func (c *column) float32LE() float32 {
	return math.Float32frombits(c.uint32LE())
}

// refsFromBytes decodes an array of count instance IDs. IDs are stored as
// interleaved zigzag integers, each relative to the previous ID.
func refsFromBytes(b []byte, count int) ([]int32, error) {
	c := column{b: b, n: count}
	refs := c.ints()
	for i := 1; i < len(refs); i++ {
		refs[i] += refs[i-1]
	}
	return refs, c.err
}

// stringTypes maps properties stored as strings in the binary format to the
// type they have in the XML format.
var stringTypes = map[string]rbxrojo.Type{
	"Source":                    rbxrojo.TypeProtectedString,
	"Tags":                      rbxrojo.TypeBinaryString,
	"AttributesSerialize":       rbxrojo.TypeBinaryString,
	"MaterialVariantSerialized": rbxrojo.TypeBinaryString,
}

func stringValue(property string, b []byte) rbxrojo.Value {
	switch stringTypes[property] {
	case rbxrojo.TypeProtectedString:
		return rbxrojo.ValueProtectedString(b)
	case rbxrojo.TypeBinaryString:
		return rbxrojo.ValueBinaryString(b)
	}
	return rbxrojo.ValueString(b)
}

// decodeValues decodes count values of type t from b. References and shared
// strings require information outside of the chunk and are decoded by the
// codec instead.
func decodeValues(t typeID, property string, b []byte, count int) ([]rbxrojo.Value, error) {
	c := &column{b: b, n: count}
	values := make([]rbxrojo.Value, count)
	switch t {
	case typeString:
		for i := range values {
			n := c.uint32LE()
			p := c.take(int(n))
			if c.err != nil {
				return nil, ErrValue{Type: byte(t), Cause: indexError{Index: i, Cause: c.err}}
			}
			values[i] = stringValue(property, append([]byte{}, p...))
		}

	case typeBool:
		p := c.take(count * zb)
		for i := range values {
			if p != nil {
				values[i] = rbxrojo.ValueBool(p[i] != 0)
			}
		}

	case typeInt:
		for i, v := range c.ints() {
			values[i] = rbxrojo.ValueInt(v)
		}

	case typeFloat:
		for i, v := range c.floats() {
			values[i] = rbxrojo.ValueFloat(v)
		}

	case typeDouble:
		p := c.take(count * zf64)
		for i := range values {
			if p != nil {
				values[i] = rbxrojo.ValueDouble(math.Float64frombits(binary.LittleEndian.Uint64(p[i*zf64:])))
			}
		}

	case typeUDim:
		scale, offset := c.floats(), c.ints()
		for i := range values {
			values[i] = rbxrojo.ValueUDim{Scale: scale[i], Offset: offset[i]}
		}

	case typeUDim2:
		sx, sy := c.floats(), c.floats()
		ox, oy := c.ints(), c.ints()
		for i := range values {
			values[i] = rbxrojo.ValueUDim2{
				X: rbxrojo.ValueUDim{Scale: sx[i], Offset: ox[i]},
				Y: rbxrojo.ValueUDim{Scale: sy[i], Offset: oy[i]},
			}
		}

	case typeColor3:
		r, g, b := c.floats(), c.floats(), c.floats()
		for i := range values {
			values[i] = rbxrojo.ValueColor3{R: r[i], G: g[i], B: b[i]}
		}

	case typeVector2:
		x, y := c.floats(), c.floats()
		for i := range values {
			values[i] = rbxrojo.ValueVector2{X: x[i], Y: y[i]}
		}

	case typeVector3:
		x, y, z := c.floats(), c.floats(), c.floats()
		for i := range values {
			values[i] = rbxrojo.ValueVector3{X: x[i], Y: y[i], Z: z[i]}
		}

	case typeCFrame:
		rotations := make([][9]float32, count)
		for i := range rotations {
			id := c.take(zb)
			if id == nil {
				break
			}
			if id[0] != 0 {
				m, ok := cframeSpecialMatrix[id[0]]
				if !ok {
					return nil, ErrValue{Type: byte(t), Cause: indexError{Index: i, Cause: errInvalidRotation(id[0])}}
				}
				rotations[i] = m
				continue
			}
			for j := range rotations[i] {
				rotations[i][j] = c.float32LE()
			}
		}
		x, y, z := c.floats(), c.floats(), c.floats()
		for i := range values {
			values[i] = rbxrojo.ValueCFrame{
				Position: rbxrojo.ValueVector3{X: x[i], Y: y[i], Z: z[i]},
				Rotation: rotations[i],
			}
		}

	case typeToken:
		for i, v := range c.uint32s() {
			values[i] = rbxrojo.ValueToken(v)
		}

	case typeNumberSequence:
		for i := range values {
			n := c.uint32LE()
			if c.err != nil || int(n) > len(c.b)/(3*zf32) {
				return nil, ErrValue{Type: byte(t), Cause: indexError{Index: i, Cause: errExpectedMoreBytes(int(n) * 3 * zf32)}}
			}
			v := make(rbxrojo.ValueNumberSequence, n)
			for j := range v {
				v[j].Time = c.float32LE()
				v[j].Value = c.float32LE()
				v[j].Envelope = c.float32LE()
			}
			values[i] = v
		}

	case typeColorSequence:
		for i := range values {
			n := c.uint32LE()
			if c.err != nil || int(n) > len(c.b)/(5*zf32) {
				return nil, ErrValue{Type: byte(t), Cause: indexError{Index: i, Cause: errExpectedMoreBytes(int(n) * 5 * zf32)}}
			}
			v := make(rbxrojo.ValueColorSequence, n)
			for j := range v {
				v[j].Time = c.float32LE()
				v[j].Value.R = c.float32LE()
				v[j].Value.G = c.float32LE()
				v[j].Value.B = c.float32LE()
				v[j].Envelope = c.float32LE()
			}
			values[i] = v
		}

	case typeNumberRange:
		for i := range values {
			lo := c.float32LE()
			hi := c.float32LE()
			values[i] = rbxrojo.ValueNumberRange{Min: lo, Max: hi}
		}

	case typeColor3uint8:
		r, g, b := c.take(count), c.take(count), c.take(count)
		for i := range values {
			if b != nil {
				values[i] = rbxrojo.ValueColor3uint8{R: r[i], G: g[i], B: b[i]}
			}
		}

	case typeInt64:
		for i, v := range c.int64s() {
			values[i] = rbxrojo.ValueInt64(v)
		}

	default:
		if !t.Valid() {
			return nil, ErrUnknownType(t)
		}
		return nil, ErrUnsupportedType(t)
	}
	if c.err != nil {
		return nil, ErrValue{Type: byte(t), Cause: c.err}
	}
	return values, nil
}
