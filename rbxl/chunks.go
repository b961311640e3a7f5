package rbxl

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"slices"

	"github.com/anaminus/parse"
	"github.com/bkaradzic/go-lz4"
	"github.com/klauspost/compress/zstd"
)

// zstdDecoder is shared by all chunks. DecodeAll may be called concurrently.
var zstdDecoder = func() *zstd.Decoder {
	d, err := zstd.NewReader(nil)
	if err != nil {
		panic("rbxl: zstd decoder: " + err.Error())
	}
	return d
}()

// maxCompressionRatio bounds the decompressed size of a chunk relative to
// its stored size.
const maxCompressionRatio = 1024

// readStep is the largest buffer allocated ahead of data actually read.
const readStep = 1 << 16

// chunk is a decompressed chunk, located by its position in the file.
type chunk struct {
	index      int
	sig        [4]byte
	compressed bool
	payload    []byte
}

func (c *chunk) fail(cause error) error {
	return ChunkError{Index: c.index, Sig: c.sig, Cause: cause}
}

func (c *chunk) failf(format string, a ...interface{}) error {
	return c.fail(fmt.Errorf(format, a...))
}

// readChunk reads the next chunk from fr. It returns nil when fr fails, with
// the cause held by fr.
func readChunk(fr *parse.BinaryReader, index int) *chunk {
	c := &chunk{index: index}
	var stored, size, reserved uint32
	if fr.Bytes(c.sig[:]) || fr.Number(&stored) || fr.Number(&size) || fr.Number(&reserved) {
		return nil
	}
	if stored == 0 {
		c.payload = readBytes(fr, size)
		if c.payload == nil {
			return nil
		}
		return c
	}

	if uint64(size) > uint64(stored)*maxCompressionRatio {
		fr.Add(0, errChunkSize{Stored: stored, Size: size})
		return nil
	}
	data := readBytes(fr, stored)
	if data == nil {
		return nil
	}
	payload, err := decompress(data, size)
	if fr.Add(0, err) {
		return nil
	}
	c.compressed = true
	c.payload = payload
	return c
}

// readBytes reads n bytes from fr. The buffer grows with the data read, so a
// length that exceeds the input fails before it is fully allocated. Returns
// nil when fr fails.
func readBytes(fr *parse.BinaryReader, n uint32) []byte {
	buf := make([]byte, 0, min(n, readStep))
	for uint32(len(buf)) < n {
		k := int(min(n-uint32(len(buf)), readStep))
		buf = slices.Grow(buf, k)[:len(buf)+k]
		if fr.Bytes(buf[len(buf)-k:]) {
			return nil
		}
	}
	return buf
}

// decompress expands data into size bytes. A ZSTD frame is recognized by its
// magic number. Anything else is a raw LZ4 block.
func decompress(data []byte, size uint32) ([]byte, error) {
	if bytes.HasPrefix(data, []byte(zstdMagic)) {
		out, err := zstdDecoder.DecodeAll(data, make([]byte, 0, size))
		switch {
		case err != nil:
			return nil, fmt.Errorf("zstd: %w", err)
		case len(out) != int(size):
			return nil, fmt.Errorf("zstd: got %d bytes, header says %d", len(out), size)
		}
		return out, nil
	}

	// The lz4 package expects the block to be prefixed with its decoded size.
	block := binary.LittleEndian.AppendUint32(make([]byte, 0, len(data)+4), size)
	block = append(block, data...)
	out, err := lz4.Decode(make([]byte, size), block)
	if err != nil {
		return nil, fmt.Errorf("lz4: %w", err)
	}
	return out, nil
}

// payloadReader reads the fields of a chunk payload.
type payloadReader struct {
	*parse.BinaryReader
	buf *bytes.Reader
}

func (c *chunk) reader() payloadReader {
	buf := bytes.NewReader(c.payload)
	return payloadReader{BinaryReader: parse.NewBinaryReader(buf), buf: buf}
}

// bytes reads n bytes, failing without allocating when fewer remain.
func (r payloadReader) bytes(n int) []byte {
	if r.Err() != nil {
		return nil
	}
	if n > r.buf.Len() {
		r.Add(0, errExpectedMoreBytes(n-r.buf.Len()))
		return nil
	}
	b := make([]byte, n)
	if r.Bytes(b) {
		return nil
	}
	return b
}

// number reads a little-endian value into v, unless a read has failed.
func (r payloadReader) number(v interface{}) {
	if r.Err() == nil {
		r.Number(v)
	}
}

func (r payloadReader) u8() (v uint8) {
	r.number(&v)
	return v
}

func (r payloadReader) u32() (v uint32) {
	r.number(&v)
	return v
}

func (r payloadReader) i32() (v int32) {
	r.number(&v)
	return v
}

// str reads a string prefixed by its length.
func (r payloadReader) str() string {
	n := r.u32()
	if r.Err() != nil {
		return ""
	}
	return string(r.bytes(int(n)))
}

func (r payloadReader) refs(count uint32) []int32 {
	b := r.bytes(int(count) * zReference)
	if r.Err() != nil {
		return nil
	}
	refs, err := refsFromBytes(b, int(count))
	r.Add(0, err)
	return refs
}

func (r payloadReader) rest() []byte {
	if r.Err() != nil {
		return nil
	}
	b, _ := r.All()
	return b
}

func (r payloadReader) end() error {
	_, err := r.End()
	return err
}

// instGroup holds the instances of one class, read from an INST chunk.
type instGroup struct {
	classID   int32
	className string
	ids       []int32
	// service is nil unless the group carries service flags.
	service []byte
}

func (c *chunk) instGroup() (g instGroup, err error) {
	r := c.reader()
	g.classID = r.i32()
	g.className = r.str()
	flagged := r.u8() != 0
	count := r.u32()
	g.ids = r.refs(count)
	if flagged {
		g.service = r.bytes(int(count))
	}
	return g, r.end()
}

// propColumn holds one property of every instance in a group, read from a
// PROP chunk. The values are decoded once the size of the group is known.
type propColumn struct {
	classID int32
	name    string
	typ     typeID
	data    []byte
}

func (c *chunk) propColumn() (p propColumn, err error) {
	r := c.reader()
	p.classID = r.i32()
	p.name = r.str()
	p.typ = typeID(r.u8())
	p.data = r.rest()
	return p, r.end()
}

// parentLinks pairs each child with its parent, read from a PRNT chunk.
type parentLinks struct {
	version  uint8
	children []int32
	parents  []int32
}

func (c *chunk) parentLinks() (p parentLinks, err error) {
	r := c.reader()
	p.version = r.u8()
	count := r.u32()
	p.children = r.refs(count)
	p.parents = r.refs(count)
	return p, r.end()
}

// metadata reads the key-value pairs of a META chunk.
func (c *chunk) metadata() (pairs [][2]string, err error) {
	r := c.reader()
	count := r.u32()
	for i := uint32(0); i < count && r.Err() == nil; i++ {
		key := r.str()
		value := r.str()
		pairs = append(pairs, [2]string{key, value})
	}
	return pairs, r.end()
}

// sharedStrings reads the table of an SSTR chunk. The hash of each entry is
// skipped, as entries are referred to by index.
func (c *chunk) sharedStrings() (version uint32, values [][]byte, err error) {
	r := c.reader()
	version = r.u32()
	count := r.u32()
	for i := uint32(0); i < count && r.Err() == nil; i++ {
		r.bytes(16)
		values = append(values, []byte(r.str()))
	}
	return version, values, r.end()
}
