package log

import (
	"encoding/binary"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mewbase/mewbase/internal/metrics"
)

// crc32Table is shared across every append/read so the checksum algorithm
// stays consistent with what the teacher's segment writer used (IEEE).
var crc32Table = crc32.MakeTable(crc32.IEEE)

// ChannelLog is the append/read interface for one channel's on-disk chunk
// set (spec §4.4), backed by fixed-size pre-allocated chunk files named per
// fileName. All mutation is serialized by mu; reads take a snapshot of the
// write tail under the lock and then read without holding it.
type ChannelLog struct {
	dir       string
	channel   string
	chunkSize int64
	metrics   *metrics.ChannelMetrics

	mu               sync.Mutex
	head             *os.File
	headFileNumber   int
	writeOffset      int64
	nextRecordNumber int64
}

// openChannelLog opens (creating chunk 0 if necessary) the log for channel
// under dir, recovering the write tail by scanning the last chunk. An
// optional ChannelMetrics, following the teacher's optional-trailing-arg
// convention for collaborators that may not be wired in tests.
func openChannelLog(dir, channel string, chunkSize int64, channelMetrics ...*metrics.ChannelMetrics) (*ChannelLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	lastFileNumber, err := checkAndGetLastFile(dir, channel, chunkSize)
	if err != nil {
		return nil, err
	}

	var cm *metrics.ChannelMetrics
	if len(channelMetrics) > 0 {
		cm = channelMetrics[0]
	}
	cl := &ChannelLog{dir: dir, channel: channel, chunkSize: chunkSize, metrics: cm}

	if lastFileNumber < 0 {
		if err := cl.createChunk(0, 0); err != nil {
			return nil, err
		}
		lastFileNumber = 0
	}

	coord, err := coordOfLastRecord(dir, channel, lastFileNumber, chunkSize)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(filepath.Join(dir, fileName(channel, lastFileNumber)), os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}

	cl.head = f
	cl.headFileNumber = lastFileNumber
	cl.writeOffset = coord.ByteOffset
	if coord.ByteOffset == 0 {
		cl.writeOffset = HeaderSize
	}
	cl.nextRecordNumber = coord.RecordNumber + 1
	return cl, nil
}

// createChunk pre-allocates a new chunk file numbered fileNumber, stamping
// its header with firstRecordNumber.
func (cl *ChannelLog) createChunk(fileNumber int, firstRecordNumber int64) error {
	path := filepath.Join(cl.dir, fileName(cl.channel, fileNumber))
	if err := createAndFillFile(path, cl.chunkSize); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return err
	}
	header := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint64(header, uint64(firstRecordNumber))
	if _, err := f.WriteAt(header, 0); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	f.Close()
	return nil
}

// Append durably writes payload as the next record and returns its
// assigned record number.
func (cl *ChannelLog) Append(payload []byte) (int64, error) {
	start := time.Now()
	recordSize := int64(FrameSize) + int64(len(payload))
	if recordSize > cl.chunkSize-HeaderSize {
		return 0, RecordTooLargeError{Channel: cl.channel, Size: len(payload), Max: cl.chunkSize - HeaderSize - FrameSize}
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if cl.writeOffset+recordSize > cl.chunkSize {
		if err := cl.rotateLocked(); err != nil {
			return 0, err
		}
	}

	frame := make([]byte, recordSize)
	checksum := crc32.Checksum(payload, crc32Table)
	binary.LittleEndian.PutUint32(frame[0:ChecksumSize], checksum)
	binary.LittleEndian.PutUint32(frame[ChecksumSize:FrameSize], uint32(len(payload)))
	copy(frame[FrameSize:], payload)

	if _, err := cl.head.WriteAt(frame, cl.writeOffset); err != nil {
		return 0, err
	}
	if err := cl.head.Sync(); err != nil {
		return 0, err
	}

	recordNumber := cl.nextRecordNumber
	cl.writeOffset += recordSize
	cl.nextRecordNumber++
	cl.metrics.RecordAppend(cl.channel, len(payload), time.Since(start), recordNumber)
	return recordNumber, nil
}

// rotateLocked closes the current head chunk and opens/creates the next
// one. Caller must hold mu.
func (cl *ChannelLog) rotateLocked() error {
	if err := cl.head.Close(); err != nil {
		return err
	}
	next := cl.headFileNumber + 1
	if err := cl.createChunk(next, cl.nextRecordNumber); err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(cl.dir, fileName(cl.channel, next)), os.O_RDWR, 0o644)
	if err != nil {
		return err
	}
	cl.head = f
	cl.headFileNumber = next
	cl.writeOffset = HeaderSize
	cl.metrics.RecordChunkRotation(cl.channel)
	return nil
}

// LastRecordNumber returns the record number of the most recently appended
// record, or -1 if the channel is empty.
func (cl *ChannelLog) LastRecordNumber() int64 {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.nextRecordNumber - 1
}

// ReadAt reads the record at recordNumber. recordNumber must be >= 0.
func (cl *ChannelLog) ReadAt(recordNumber int64) (Record, error) {
	cl.mu.Lock()
	tail := cl.nextRecordNumber
	cl.mu.Unlock()
	if recordNumber >= tail {
		return Record{}, ErrNoRecord
	}

	coord, err := coordOfRecord(cl.dir, cl.channel, recordNumber, cl.chunkSize)
	if err != nil {
		return Record{}, err
	}
	if !coord.Valid() || coord.RecordNumber != recordNumber {
		return Record{}, io.EOF
	}
	return cl.readAtCoord(coord)
}

func (cl *ChannelLog) readAtCoord(coord Coord) (Record, error) {
	path := filepath.Join(cl.dir, fileName(cl.channel, coord.FileNumber))
	f, err := os.Open(path)
	if err != nil {
		return Record{}, err
	}
	defer f.Close()

	header := make([]byte, FrameSize)
	if _, err := f.ReadAt(header, coord.ByteOffset); err != nil {
		return Record{}, err
	}
	expectedCRC := binary.LittleEndian.Uint32(header[0:ChecksumSize])
	length := binary.LittleEndian.Uint32(header[ChecksumSize:FrameSize])

	payload := make([]byte, length)
	if _, err := f.ReadAt(payload, coord.ByteOffset+FrameSize); err != nil {
		return Record{}, err
	}
	actualCRC := crc32.Checksum(payload, crc32Table)
	if actualCRC != expectedCRC {
		return Record{}, ChecksumMismatchError{Channel: cl.channel, RecordNumber: coord.RecordNumber, Expected: expectedCRC, Actual: actualCRC}
	}

	return Record{RecordNumber: coord.RecordNumber, Payload: payload, WrittenAt: time.Now()}, nil
}

// Cursor returns a sequential reader starting at fromRecordNumber
// (exclusive: the first Next() call returns fromRecordNumber+1).
func (cl *ChannelLog) Cursor(fromRecordNumber int64) *Cursor {
	return &Cursor{log: cl, next: fromRecordNumber + 1}
}

// Cursor is a forward-only sequential reader over a ChannelLog. Subscription
// does not use it; its pump calls ReadAt directly.
type Cursor struct {
	log  *ChannelLog
	next int64
}

// ErrNoRecord is returned by Cursor.Next when the channel has no record at
// the cursor's current position yet (caller should wait for more writes).
var ErrNoRecord = io.EOF

// Next reads the next record in sequence, or ErrNoRecord if the log hasn't
// been written that far yet.
func (c *Cursor) Next() (Record, error) {
	rec, err := c.log.ReadAt(c.next)
	if err != nil {
		return Record{}, err
	}
	c.next++
	return rec, nil
}

// Peek returns the next record number this cursor will read.
func (c *Cursor) Peek() int64 { return c.next }

// Close is a no-op: the log's head file handle is owned by the ChannelLog,
// not the Cursor. It is kept for interface symmetry with consumers that
// range over cursors in a defer.
func (c *Cursor) Close() error { return nil }

// Close closes the channel log's head chunk file handle.
func (cl *ChannelLog) Close() error {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.head.Close()
}
