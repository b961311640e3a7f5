package rbxl

import (
	"bytes"
	"io"

	"github.com/anaminus/parse"

	"github.com/robloxapi/rbxrojo"
	"github.com/robloxapi/rbxrojo/errors"
	"github.com/robloxapi/rbxrojo/rbxlx"
)

// Decoder decodes files in the binary format, falling back to the XML format
// when the signature indicates it.
type Decoder struct {
	// Mode selects whether the file is read as a place or a model. Models do
	// not carry metadata.
	Mode Mode

	// NoXML causes XML files to be rejected with ErrXML.
	NoXML bool

	// XML decodes files detected as XML.
	XML rbxlx.Decoder
}

// header is the fixed-size header following the signature of a binary file.
type header struct {
	version   uint16
	classes   uint32
	instances uint32
	reserved  errReserve
}

// Decode reads a file from r. Warnings describe parts of the file that were
// skipped or repaired.
func (d Decoder) Decode(r io.Reader) (root *rbxrojo.Root, warn, err error) {
	if r == nil {
		return nil, nil, errors.New("nil reader")
	}
	fr := parse.NewBinaryReader(r)
	fail := func(cause error) error {
		fr.Add(0, cause)
		return DataError{Offset: fr.N(), Cause: fr.Err()}
	}

	sig := make([]byte, len(robloxSig+binaryMarker))
	switch {
	case fr.Bytes(sig):
		return nil, nil, fail(nil)
	case string(sig[:len(robloxSig)]) != robloxSig:
		return nil, nil, fail(ErrInvalidSig)
	case string(sig[len(robloxSig):]) != binaryMarker:
		if d.NoXML {
			return nil, nil, fail(ErrXML)
		}
		root, warn, err = d.XML.Decode(io.MultiReader(bytes.NewReader(sig), r))
		if err != nil {
			return nil, warn, XMLError{Cause: err}
		}
		return root, warn, nil
	}

	var warns errors.Errors
	h, err := readHeader(fr)
	if err != nil || fr.Err() != nil {
		return nil, nil, fail(err)
	}
	if h.reserved != (errReserve{}) {
		warns = append(warns, h.reserved)
	}

	b := newTreeBuilder(d.Mode, h)
	for i := 0; ; i++ {
		c := readChunk(fr, i)
		if c == nil {
			if errors.Is(fr.Err(), io.EOF) {
				warns = append(warns, ErrNoEndChunk)
				break
			}
			return nil, warns.Append(b.warn...).Return(), fail(nil)
		}
		if string(c.sig[:]) == sigEND {
			if c.compressed {
				warns = append(warns, ErrEndChunkCompressed)
			}
			if string(c.payload) != "</roblox>" {
				warns = append(warns, ErrEndChunkContent)
			}
			break
		}
		if err := b.add(c); err != nil {
			return nil, warns.Append(b.warn...).Return(), err
		}
	}
	return b.root, warns.Append(b.warn...).Return(), nil
}

// readHeader reads the header following the binary marker. A failed read
// returns no error and leaves the cause in fr.
func readHeader(fr *parse.BinaryReader) (h header, err error) {
	magic := make([]byte, len(binaryHeader))
	if fr.Bytes(magic) {
		return h, nil
	}
	if string(magic) != binaryHeader {
		return h, ErrCorruptHeader
	}
	if fr.Number(&h.version) {
		return h, nil
	}
	if h.version != 0 {
		return h, ErrUnrecognizedVersion(h.version)
	}
	fr.Number(&h.classes)
	fr.Number(&h.instances)
	fr.Bytes(h.reserved[:])
	return h, nil
}
