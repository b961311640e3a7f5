// Package rbxl implements a decoder for Roblox's binary file format.
//
// A binary file consists of a header followed by a sequence of chunks. Each
// chunk may be compressed with LZ4 or ZSTD. Instances are grouped by class
// into INST chunks, their properties are stored column-wise in PROP chunks,
// and the tree structure is stored in a PRNT chunk.
//
// Files in the XML format are detected by their signature and passed to the
// rbxlx package, unless Decoder.NoXML is set.
package rbxl

// Mode indicates how the codec formats data.
type Mode uint8

const (
	Place Mode = iota // Data is handled as a Roblox place (RBXL) file.
	Model             // Data is handled as a Roblox model (RBXM) file.
)

// robloxSig is the signature a Roblox file (binary or XML).
const robloxSig = "<roblox"

// binaryMarker indicates the start of a binary file, rather than an XML file.
const binaryMarker = "!"

// binaryHeader is the header magic of a binary file.
const binaryHeader = "\x89\xff\r\n\x1a\n"

// zstdMagic begins the payload of a chunk compressed with ZSTD. Other
// compressed payloads are LZ4.
const zstdMagic = "\x28\xb5\x2f\xfd"

// Chunk signatures.
const (
	sigMETA = "META"
	sigSSTR = "SSTR"
	sigINST = "INST"
	sigPROP = "PROP"
	sigPRNT = "PRNT"
	sigEND  = "END\x00"
)

// typeID identifies the data type of a property chunk.
type typeID byte

const (
	typeInvalid            typeID = 0x0
	typeString             typeID = 0x1
	typeBool               typeID = 0x2
	typeInt                typeID = 0x3
	typeFloat              typeID = 0x4
	typeDouble             typeID = 0x5
	typeUDim               typeID = 0x6
	typeUDim2              typeID = 0x7
	typeRay                typeID = 0x8
	typeFaces              typeID = 0x9
	typeAxes               typeID = 0xA
	typeBrickColor         typeID = 0xB
	typeColor3             typeID = 0xC
	typeVector2            typeID = 0xD
	typeVector3            typeID = 0xE
	typeVector2int16       typeID = 0xF
	typeCFrame             typeID = 0x10
	typeCFrameQuat         typeID = 0x11
	typeToken              typeID = 0x12
	typeReference          typeID = 0x13
	typeVector3int16       typeID = 0x14
	typeNumberSequence     typeID = 0x15
	typeColorSequence      typeID = 0x16
	typeNumberRange        typeID = 0x17
	typeRect               typeID = 0x18
	typePhysicalProperties typeID = 0x19
	typeColor3uint8        typeID = 0x1A
	typeInt64              typeID = 0x1B
	typeSharedString       typeID = 0x1C
)

// Valid returns whether the type has a valid value.
func (t typeID) Valid() bool {
	return typeString <= t && t <= typeSharedString
}

var typeNames = [...]string{
	typeString:             "String",
	typeBool:               "Bool",
	typeInt:                "Int",
	typeFloat:              "Float",
	typeDouble:             "Double",
	typeUDim:               "UDim",
	typeUDim2:              "UDim2",
	typeRay:                "Ray",
	typeFaces:              "Faces",
	typeAxes:               "Axes",
	typeBrickColor:         "BrickColor",
	typeColor3:             "Color3",
	typeVector2:            "Vector2",
	typeVector3:            "Vector3",
	typeVector2int16:       "Vector2int16",
	typeCFrame:             "CFrame",
	typeCFrameQuat:         "CFrameQuat",
	typeToken:              "Token",
	typeReference:          "Reference",
	typeVector3int16:       "Vector3int16",
	typeNumberSequence:     "NumberSequence",
	typeColorSequence:      "ColorSequence",
	typeNumberRange:        "NumberRange",
	typeRect:               "Rect",
	typePhysicalProperties: "PhysicalProperties",
	typeColor3uint8:        "Color3uint8",
	typeInt64:              "Int64",
	typeSharedString:       "SharedString",
}

// String returns a string representation of the type. If the type is not
// valid, then the returned value will be "Invalid".
func (t typeID) String() string {
	if !t.Valid() {
		return "Invalid"
	}
	return typeNames[t]
}
