package appmsg

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
)

// Tuple is a single key/value entry of a dictionary
type Tuple struct {
	Key   uint32
	Type  TupleType
	Value []byte // Raw value bytes as they appear on the wire
}

// Dictionary is the body of one message on the link.
// Tuples keep insertion order when serialized.
type Dictionary struct {
	Tuples []Tuple
}

// NewDictionary creates an empty dictionary
func NewDictionary() *Dictionary {
	return &Dictionary{}
}

// put adds or replaces the tuple for key
func (d *Dictionary) put(t Tuple) *Dictionary {
	for i := range d.Tuples {
		if d.Tuples[i].Key == t.Key {
			d.Tuples[i] = t
			return d
		}
	}
	d.Tuples = append(d.Tuples, t)
	return d
}

// PutBytes stores a byte array value
func (d *Dictionary) PutBytes(key uint32, data []byte) *Dictionary {
	return d.put(Tuple{Key: key, Type: TypeByteArray, Value: data})
}

// PutCString stores a NUL-terminated string value
func (d *Dictionary) PutCString(key uint32, s string) *Dictionary {
	value := make([]byte, len(s)+1)
	copy(value, s)
	return d.put(Tuple{Key: key, Type: TypeCString, Value: value})
}

// PutInt stores a signed integer using width bytes (1, 2 or 4)
func (d *Dictionary) PutInt(key uint32, v int32, width int) *Dictionary {
	return d.put(Tuple{Key: key, Type: TypeInt, Value: encodeInt(uint32(v), width)})
}

// PutUint stores an unsigned integer using width bytes (1, 2 or 4)
func (d *Dictionary) PutUint(key uint32, v uint32, width int) *Dictionary {
	return d.put(Tuple{Key: key, Type: TypeUint, Value: encodeInt(v, width)})
}

// Find returns the tuple for key
func (d *Dictionary) Find(key uint32) (*Tuple, bool) {
	for i := range d.Tuples {
		if d.Tuples[i].Key == key {
			return &d.Tuples[i], true
		}
	}
	return nil, false
}

// Has reports whether key is present
func (d *Dictionary) Has(key uint32) bool {
	_, ok := d.Find(key)
	return ok
}

// Len returns the number of tuples
func (d *Dictionary) Len() int {
	return len(d.Tuples)
}

// Int decodes an integer tuple. Signed tuples are sign-extended.
func (t *Tuple) Int() (int64, error) {
	if t.Type != TypeInt && t.Type != TypeUint {
		return 0, fmt.Errorf("key %d is %s: %w", t.Key, t.Type, ErrWrongType)
	}

	switch len(t.Value) {
	case 1:
		if t.Type == TypeInt {
			return int64(int8(t.Value[0])), nil
		}
		return int64(t.Value[0]), nil
	case 2:
		v := binary.LittleEndian.Uint16(t.Value)
		if t.Type == TypeInt {
			return int64(int16(v)), nil
		}
		return int64(v), nil
	case 4:
		v := binary.LittleEndian.Uint32(t.Value)
		if t.Type == TypeInt {
			return int64(int32(v)), nil
		}
		return int64(v), nil
	default:
		return 0, ErrBadIntegerWidth
	}
}

// CString returns the string value up to the first NUL byte
func (t *Tuple) CString() string {
	if i := bytes.IndexByte(t.Value, 0); i >= 0 {
		return string(t.Value[:i])
	}
	return string(t.Value)
}

// IsInteger reports whether the tuple carries an integer
func (t *Tuple) IsInteger() bool {
	return t.Type == TypeInt || t.Type == TypeUint
}

// Serialize converts the dictionary to wire format
func (d *Dictionary) Serialize() ([]byte, error) {
	if len(d.Tuples) > MaxTuples {
		return nil, ErrTooManyTuples
	}

	size := HeaderSize
	for _, t := range d.Tuples {
		if len(t.Value) > MaxValueSize {
			return nil, fmt.Errorf("key %d: %w", t.Key, ErrValueTooLong)
		}
		size += TupleHeaderSize + len(t.Value)
	}

	result := make([]byte, size)
	result[0] = byte(len(d.Tuples))

	pos := HeaderSize
	for _, t := range d.Tuples {
		binary.LittleEndian.PutUint32(result[pos:], t.Key)
		result[pos+4] = byte(t.Type)
		binary.LittleEndian.PutUint16(result[pos+5:], uint16(len(t.Value)))
		pos += TupleHeaderSize
		pos += copy(result[pos:], t.Value)
	}

	return result, nil
}

// Parse parses wire format data into a Dictionary.
// Tuple values alias data; callers that keep them must copy.
func Parse(data []byte) (*Dictionary, error) {
	if len(data) < HeaderSize {
		return nil, ErrEmptyMessage
	}

	count := int(data[0])
	d := &Dictionary{Tuples: make([]Tuple, 0, count)}

	pos := HeaderSize
	for i := 0; i < count; i++ {
		if len(data)-pos < TupleHeaderSize {
			return nil, fmt.Errorf("tuple %d header: %w", i, ErrTruncated)
		}

		key := binary.LittleEndian.Uint32(data[pos:])
		typ := TupleType(data[pos+4])
		length := int(binary.LittleEndian.Uint16(data[pos+5:]))
		pos += TupleHeaderSize

		if typ > TypeInt {
			return nil, fmt.Errorf("tuple %d (key %d) type %d: %w", i, key, typ, ErrUnknownType)
		}
		if len(data)-pos < length {
			return nil, fmt.Errorf("tuple %d (key %d) value: %w", i, key, ErrTruncated)
		}
		if (typ == TypeInt || typ == TypeUint) && length != 1 && length != 2 && length != 4 {
			return nil, fmt.Errorf("tuple %d (key %d): %w", i, key, ErrBadIntegerWidth)
		}
		if d.Has(key) {
			return nil, fmt.Errorf("tuple %d (key %d): %w", i, key, ErrDuplicateKey)
		}

		d.Tuples = append(d.Tuples, Tuple{
			Key:   key,
			Type:  typ,
			Value: data[pos : pos+length],
		})
		pos += length
	}

	if pos != len(data) {
		return nil, ErrTrailingBytes
	}

	return d, nil
}

// String returns a compact description of the dictionary
func (d *Dictionary) String() string {
	var sb strings.Builder
	sb.WriteString("Dictionary{")
	for i, t := range d.Tuples {
		if i > 0 {
			sb.WriteString(", ")
		}
		switch t.Type {
		case TypeCString:
			fmt.Fprintf(&sb, "%d:%q", t.Key, t.CString())
		case TypeInt, TypeUint:
			v, _ := t.Int()
			fmt.Fprintf(&sb, "%d:%d", t.Key, v)
		default:
			fmt.Fprintf(&sb, "%d:[%d bytes]", t.Key, len(t.Value))
		}
	}
	sb.WriteString("}")
	return sb.String()
}

// encodeInt encodes v little-endian into width bytes
func encodeInt(v uint32, width int) []byte {
	switch width {
	case 1:
		return []byte{byte(v)}
	case 2:
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, uint16(v))
		return b
	default:
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, v)
		return b
	}
}
