package rbxl

import (
	"errors"
	"fmt"
	"strings"
)

// Errors returned while reading the file header.
var (
	ErrInvalidSig    = errors.New("not a Roblox file")
	ErrXML           = errors.New("file is in the XML format")
	ErrCorruptHeader = errors.New("corrupt binary header")
)

// Warnings produced while reading chunks.
var (
	ErrUnknownChunkSig    = errors.New("unknown chunk signature")
	ErrEndChunkCompressed = errors.New("END chunk is compressed")
	ErrEndChunkContent    = errors.New("END chunk does not contain </roblox>")
	ErrNoEndChunk         = errors.New("file ended without an END chunk")
)

// ErrUnrecognizedVersion is returned for a binary header with a version other
// than 0.
type ErrUnrecognizedVersion uint16

func (err ErrUnrecognizedVersion) Error() string {
	return fmt.Sprintf("binary format version %d is not supported", uint16(err))
}

// ErrUnknownType is produced by a property chunk with a type byte outside of
// the known range.
type ErrUnknownType typeID

func (err ErrUnknownType) Error() string {
	return fmt.Sprintf("unknown data type 0x%02X", byte(err))
}

// ErrUnsupportedType is produced by a property chunk of a known type that has
// no corresponding value. The property is skipped.
type ErrUnsupportedType typeID

func (err ErrUnsupportedType) Error() string {
	return fmt.Sprintf("data type %s (0x%02X) is not supported", typeID(err), byte(err))
}

// ErrValue is produced by a column of values that could not be decoded.
type ErrValue struct {
	Type  byte
	Cause error
}

func (err ErrValue) Error() string {
	return fmt.Sprintf("%s values: %v", typeID(err.Type), err.Cause)
}

func (err ErrValue) Unwrap() error { return err.Cause }

// XMLError is returned when a file detected as XML fails to decode.
type XMLError struct {
	Cause error
}

func (err XMLError) Error() string {
	return fmt.Sprintf("xml: %v", err.Cause)
}

func (err XMLError) Unwrap() error { return err.Cause }

// DataError is returned when the file structure cannot be read. Offset is the
// number of bytes read when the error occurred.
type DataError struct {
	Offset int64
	Cause  error
}

func (err DataError) Error() string {
	if err.Cause == nil {
		return fmt.Sprintf("bad data at offset %d", err.Offset)
	}
	return fmt.Sprintf("offset %d: %v", err.Offset, err.Cause)
}

func (err DataError) Unwrap() error { return err.Cause }

// ChunkError locates an error within the chunk at Index.
type ChunkError struct {
	Index int
	Sig   [4]byte
	Cause error
}

func (err ChunkError) Error() string {
	return fmt.Sprintf("chunk %d (%s): %v", err.Index, strings.TrimRight(string(err.Sig[:]), "\x00"), err.Cause)
}

func (err ChunkError) Unwrap() error { return err.Cause }

type errReserve [8]byte

func (err errReserve) Error() string {
	return fmt.Sprintf("reserved header bytes are not zero: % 02X", err[:])
}

type errExpectedMoreBytes int

func (err errExpectedMoreBytes) Error() string {
	return fmt.Sprintf("missing %d bytes", int(err))
}

type errChunkSize struct {
	Stored, Size uint32
}

func (err errChunkSize) Error() string {
	return fmt.Sprintf("decompressed size %d is too large for %d stored bytes", err.Size, err.Stored)
}

type indexError struct {
	Index int
	Cause error
}

func (err indexError) Error() string {
	return fmt.Sprintf("value %d: %v", err.Index, err.Cause)
}

func (err indexError) Unwrap() error { return err.Cause }

type errInvalidRotation byte

func (err errInvalidRotation) Error() string {
	return fmt.Sprintf("rotation ID 0x%02X has no matrix", byte(err))
}
