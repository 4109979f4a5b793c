package appmsg

import "errors"

// Dictionary keys understood by the viewer and the companion sender
const (
	KeyImage   uint32 = 0 // Chunk payload (byte array), or the 1-byte image request
	KeyIndex   uint32 = 1 // Byte offset of the chunk in the reassembly buffer (int32)
	KeyMessage uint32 = 2 // Status text (NUL-terminated string)
)

// Encoding sizes
const (
	HeaderSize      = 1      // Tuple count
	TupleHeaderSize = 7      // Key (4) + type (1) + length (2)
	MaxTuples       = 255    // Count is a single byte
	MaxValueSize    = 0xFFFF // Length is a uint16
)

// TupleType identifies how a tuple value is encoded
type TupleType uint8

const (
	TypeByteArray TupleType = 0
	TypeCString   TupleType = 1
	TypeUint      TupleType = 2
	TypeInt       TupleType = 3
)

// String returns string representation of TupleType
func (t TupleType) String() string {
	switch t {
	case TypeByteArray:
		return "ByteArray"
	case TypeCString:
		return "CString"
	case TypeUint:
		return "Uint"
	case TypeInt:
		return "Int"
	default:
		return "Unknown"
	}
}

// Errors
var (
	ErrEmptyMessage    = errors.New("empty message")
	ErrTruncated       = errors.New("message truncated")
	ErrTrailingBytes   = errors.New("trailing bytes after last tuple")
	ErrUnknownType     = errors.New("unknown tuple type")
	ErrBadIntegerWidth = errors.New("integer tuple width must be 1, 2 or 4")
	ErrTooManyTuples   = errors.New("too many tuples")
	ErrValueTooLong    = errors.New("tuple value too long")
	ErrDuplicateKey    = errors.New("duplicate tuple key")
	ErrKeyNotFound     = errors.New("key not found")
	ErrWrongType       = errors.New("tuple has wrong type")
)
