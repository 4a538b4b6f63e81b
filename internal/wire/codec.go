package wire

import (
	"encoding/binary"
	"fmt"
)

// LengthPrefixSize is the width of the big-endian total-length prefix that
// precedes every wire frame (length includes itself).
const LengthPrefixSize = 4

type typeTag byte

const (
	tagString typeTag = 1
	tagInt32  typeTag = 2
	tagInt64  typeTag = 3
	tagBool   typeTag = 4
	tagBytes  typeTag = 5
	tagFrame  typeTag = 6
)

// Encode produces the full wire form of f: the record payload prefixed
// with its own total length.
func Encode(f *Frame) ([]byte, error) {
	payload, err := encodeRecord(f)
	if err != nil {
		return nil, err
	}
	out := make([]byte, LengthPrefixSize+len(payload))
	binary.BigEndian.PutUint32(out, uint32(len(out)))
	copy(out[LengthPrefixSize:], payload)
	return out, nil
}

// Decode parses the record payload of a single frame (length prefix
// already stripped by the caller/parser).
func Decode(payload []byte) (*Frame, error) {
	f, rest, err := decodeRecord(payload)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("wire: %d trailing bytes after frame", len(rest))
	}
	return f, nil
}

// EncodeRecord encodes a frame without the outer length prefix. Channel log
// records and documents share the wire codec but not its transport framing
// (the log has its own CRC+length header), so they use this directly.
func EncodeRecord(f *Frame) ([]byte, error) {
	return encodeRecord(f)
}

// encodeRecord encodes a frame without the outer length prefix, so it can
// be reused both at the top level and for nested frames.
func encodeRecord(f *Frame) ([]byte, error) {
	buf := make([]byte, 0, 64)
	buf = appendLenPrefixedString(buf, string(f.Kind))

	if len(f.Fields) > 65535 {
		return nil, fmt.Errorf("wire: too many fields: %d", len(f.Fields))
	}
	fieldCount := make([]byte, 2)
	binary.BigEndian.PutUint16(fieldCount, uint16(len(f.Fields)))
	buf = append(buf, fieldCount...)

	for name, v := range f.Fields {
		buf = appendLenPrefixedString(buf, name)
		var err error
		buf, err = appendValue(buf, v)
		if err != nil {
			return nil, fmt.Errorf("wire: field %q: %w", name, err)
		}
	}
	return buf, nil
}

func appendValue(buf []byte, v any) ([]byte, error) {
	switch val := v.(type) {
	case string:
		buf = append(buf, byte(tagString))
		buf = appendLenPrefixedBytes(buf, []byte(val))
	case int32:
		buf = append(buf, byte(tagInt32))
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, uint32(val))
		buf = append(buf, b...)
	case int64:
		buf = append(buf, byte(tagInt64))
		b := make([]byte, 8)
		binary.BigEndian.PutUint64(b, uint64(val))
		buf = append(buf, b...)
	case bool:
		buf = append(buf, byte(tagBool))
		if val {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	case []byte:
		buf = append(buf, byte(tagBytes))
		buf = appendLenPrefixedBytes(buf, val)
	case *Frame:
		buf = append(buf, byte(tagFrame))
		nested, err := encodeRecord(val)
		if err != nil {
			return nil, err
		}
		buf = appendLenPrefixedBytes(buf, nested)
	default:
		return nil, fmt.Errorf("unsupported field type %T", v)
	}
	return buf, nil
}

func appendLenPrefixedString(buf []byte, s string) []byte {
	return appendLenPrefixedBytes(buf, []byte(s))
}

func appendLenPrefixedBytes(buf []byte, b []byte) []byte {
	lp := make([]byte, 4)
	binary.BigEndian.PutUint32(lp, uint32(len(b)))
	buf = append(buf, lp...)
	return append(buf, b...)
}

// decodeRecord decodes one record from the front of data, returning the
// unconsumed remainder.
func decodeRecord(data []byte) (*Frame, []byte, error) {
	kindStr, data, err := readLenPrefixedString(data)
	if err != nil {
		return nil, nil, err
	}

	if len(data) < 2 {
		return nil, nil, fmt.Errorf("wire: truncated field count")
	}
	fieldCount := binary.BigEndian.Uint16(data)
	data = data[2:]

	f := &Frame{Kind: Kind(kindStr), Fields: make(map[string]any, fieldCount)}
	for i := 0; i < int(fieldCount); i++ {
		var name string
		name, data, err = readLenPrefixedString(data)
		if err != nil {
			return nil, nil, err
		}
		var v any
		v, data, err = readValue(data)
		if err != nil {
			return nil, nil, err
		}
		f.Fields[name] = v
	}
	return f, data, nil
}

func readValue(data []byte) (any, []byte, error) {
	if len(data) < 1 {
		return nil, nil, fmt.Errorf("wire: truncated type tag")
	}
	tag := typeTag(data[0])
	data = data[1:]

	switch tag {
	case tagString:
		s, rest, err := readLenPrefixedString(data)
		return s, rest, err
	case tagInt32:
		if len(data) < 4 {
			return nil, nil, fmt.Errorf("wire: truncated int32")
		}
		return int32(binary.BigEndian.Uint32(data)), data[4:], nil
	case tagInt64:
		if len(data) < 8 {
			return nil, nil, fmt.Errorf("wire: truncated int64")
		}
		return int64(binary.BigEndian.Uint64(data)), data[8:], nil
	case tagBool:
		if len(data) < 1 {
			return nil, nil, fmt.Errorf("wire: truncated bool")
		}
		return data[0] != 0, data[1:], nil
	case tagBytes:
		b, rest, err := readLenPrefixedBytes(data)
		return b, rest, err
	case tagFrame:
		nested, rest, err := readLenPrefixedBytes(data)
		if err != nil {
			return nil, nil, err
		}
		f, trailing, err := decodeRecord(nested)
		if err != nil {
			return nil, nil, err
		}
		if len(trailing) != 0 {
			return nil, nil, fmt.Errorf("wire: trailing bytes in nested frame")
		}
		return f, rest, nil
	default:
		return nil, nil, fmt.Errorf("wire: unknown type tag %d", tag)
	}
}

func readLenPrefixedString(data []byte) (string, []byte, error) {
	b, rest, err := readLenPrefixedBytes(data)
	if err != nil {
		return "", nil, err
	}
	return string(b), rest, nil
}

func readLenPrefixedBytes(data []byte) ([]byte, []byte, error) {
	if len(data) < 4 {
		return nil, nil, fmt.Errorf("wire: truncated length prefix")
	}
	n := binary.BigEndian.Uint32(data)
	data = data[4:]
	if uint32(len(data)) < n {
		return nil, nil, fmt.Errorf("wire: truncated value: want %d bytes, have %d", n, len(data))
	}
	return data[:n], data[n:], nil
}
