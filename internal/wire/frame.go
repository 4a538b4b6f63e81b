// Package wire implements the length-prefixed, self-describing frame
// codec that carries every request and response of the protocol: a 4-byte
// big-endian length prefix followed by a record whose first field is
// always the frame kind.
package wire

// Kind identifies what a Frame is — the wire protocol's frame-kind tag.
type Kind string

const (
	KindConnect     Kind = "CONNECT"
	KindResponse    Kind = "RESPONSE"
	KindPublish     Kind = "PUBLISH"
	KindSubscribe   Kind = "SUBSCRIBE"
	KindSubResponse Kind = "SUBRESPONSE"
	KindAckEv       Kind = "ACKEV"
	KindUnsubscribe Kind = "UNSUBSCRIBE"
	KindQuery       Kind = "QUERY"
	KindQueryResult Kind = "QUERYRESULT"
	KindQueryAck    Kind = "QUERYACK"
	KindPing        Kind = "PING"
	KindStartTx     Kind = "STARTTX"
	KindCommitTx    Kind = "COMMITTX"
	KindAbortTx     Kind = "ABORTTX"
	// KindEvent is the subscription push frame. It is not named in the
	// frame table handed to us, which lists every request/response kind
	// but not the actual record-delivery frame a live subscription
	// pushes — an omission we fill in rather than invent a response
	// frame to double as both.
	KindEvent Kind = "EVENT"
	// KindDoc tags a document's fields when they're embedded as a nested
	// frame inside QUERYRESULT's result field.
	KindDoc Kind = "DOC"
)

// Frame is a typed record: a kind tag plus a mapping from field name to
// typed value. Supported field value types are string, int32, int64, bool,
// []byte, and *Frame (nested frames, e.g. PUBLISH's event field).
type Frame struct {
	Kind   Kind
	Fields map[string]any
}

// New creates an empty frame of the given kind.
func New(kind Kind) *Frame {
	return &Frame{Kind: kind, Fields: make(map[string]any)}
}

// WithString sets a string field and returns f for chaining.
func (f *Frame) WithString(name, v string) *Frame {
	f.Fields[name] = v
	return f
}

// WithInt32 sets an int32 field and returns f for chaining.
func (f *Frame) WithInt32(name string, v int32) *Frame {
	f.Fields[name] = v
	return f
}

// WithInt64 sets an int64 field and returns f for chaining.
func (f *Frame) WithInt64(name string, v int64) *Frame {
	f.Fields[name] = v
	return f
}

// WithBool sets a bool field and returns f for chaining.
func (f *Frame) WithBool(name string, v bool) *Frame {
	f.Fields[name] = v
	return f
}

// WithBytes sets a byte-string field and returns f for chaining.
func (f *Frame) WithBytes(name string, v []byte) *Frame {
	f.Fields[name] = v
	return f
}

// WithFrame sets a nested-frame field and returns f for chaining.
func (f *Frame) WithFrame(name string, v *Frame) *Frame {
	f.Fields[name] = v
	return f
}

// String returns field name as a string, with ok=false if absent or the
// wrong type.
func (f *Frame) String(name string) (string, bool) {
	v, ok := f.Fields[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Int32 returns field name as an int32.
func (f *Frame) Int32(name string) (int32, bool) {
	v, ok := f.Fields[name]
	if !ok {
		return 0, false
	}
	n, ok := v.(int32)
	return n, ok
}

// Int64 returns field name as an int64.
func (f *Frame) Int64(name string) (int64, bool) {
	v, ok := f.Fields[name]
	if !ok {
		return 0, false
	}
	n, ok := v.(int64)
	return n, ok
}

// Bool returns field name as a bool.
func (f *Frame) Bool(name string) (bool, bool) {
	v, ok := f.Fields[name]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// Bytes returns field name as a byte string.
func (f *Frame) Bytes(name string) ([]byte, bool) {
	v, ok := f.Fields[name]
	if !ok {
		return nil, false
	}
	b, ok := v.([]byte)
	return b, ok
}

// Nested returns field name as a nested frame.
func (f *Frame) Nested(name string) (*Frame, bool) {
	v, ok := f.Fields[name]
	if !ok {
		return nil, false
	}
	n, ok := v.(*Frame)
	return n, ok
}
