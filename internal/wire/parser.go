package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// MaxFrameSize bounds a single frame's total length (including the length
// prefix itself); anything larger is treated as a malformed/oversized
// frame and is protocol-fatal.
const MaxFrameSize = 16 * 1024 * 1024

// Parser is a purely byte-driven streaming frame decoder. It never
// blocks: Feed appends bytes as they arrive off the transport, and Next
// extracts as many complete frames as are buffered.
type Parser struct {
	buf bytes.Buffer
}

// Feed appends newly read bytes to the parser's accumulator.
func (p *Parser) Feed(data []byte) {
	p.buf.Write(data)
}

// Next attempts to extract one complete frame from the buffered bytes. It
// returns (nil, false, nil) if not enough bytes have been buffered yet.
// A non-nil error is always protocol-fatal.
func (p *Parser) Next() (*Frame, bool, error) {
	buffered := p.buf.Bytes()
	if len(buffered) < LengthPrefixSize {
		return nil, false, nil
	}

	total := binary.BigEndian.Uint32(buffered[:LengthPrefixSize])
	if total < LengthPrefixSize {
		return nil, false, fmt.Errorf("wire: invalid frame length %d", total)
	}
	if total > MaxFrameSize {
		return nil, false, fmt.Errorf("wire: frame too large: %d bytes", total)
	}
	if uint32(len(buffered)) < total {
		return nil, false, nil
	}

	payload := make([]byte, total-LengthPrefixSize)
	copy(payload, buffered[LengthPrefixSize:total])

	f, err := Decode(payload)
	if err != nil {
		return nil, false, err
	}

	p.buf.Next(int(total))
	return f, true, nil
}
