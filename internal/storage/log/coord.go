package log

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
)

// chunkFileRE matches "<channel>-<12 digits>.log".
var chunkFileRE = regexp.MustCompile(`^(.+)-(\d{12})\.log$`)

// fileName returns the on-disk chunk filename for the given channel and
// zero-based chunk number: "<channel>-<12-digit zero-padded number>.log".
func fileName(channel string, fileNumber int) string {
	return fmt.Sprintf("%s-%012d.log", channel, fileNumber)
}

// checkAndGetLastFile scans dir for chunks belonging to channel, validates
// that every chunk but the last is exactly chunkSize bytes and that chunk
// numbers are contiguous starting at 0, and returns the number of the last
// (head) chunk. It returns -1 if the channel has no chunks yet.
func checkAndGetLastFile(dir, channel string, chunkSize int64) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return -1, nil
		}
		return -1, err
	}

	numbers := make([]int, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := chunkFileRE.FindStringSubmatch(e.Name())
		if m == nil || m[1] != channel {
			continue
		}
		n, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		numbers = append(numbers, n)
	}
	if len(numbers) == 0 {
		return -1, nil
	}
	sort.Ints(numbers)
	for i, n := range numbers {
		if n != i {
			return -1, CorruptChunkError{Channel: channel, Reason: fmt.Sprintf("chunk numbers not contiguous from 0: got %v", numbers)}
		}
	}
	last := numbers[len(numbers)-1]
	for _, n := range numbers {
		if n == last {
			continue
		}
		info, err := os.Stat(filepath.Join(dir, fileName(channel, n)))
		if err != nil {
			return -1, err
		}
		if info.Size() != chunkSize {
			return -1, CorruptChunkError{Channel: channel, Reason: fmt.Sprintf("chunk %d has size %d, want %d", n, info.Size(), chunkSize)}
		}
	}
	return last, nil
}

// createAndFillFile creates a new chunk file pre-allocated to size bytes
// (zero-filled) and fsyncs it, so every subsequent append is an in-place
// write rather than a file-growing one.
func createAndFillFile(path string, size int64) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	buf := make([]byte, MaxCreateBufSize)
	remaining := size
	for remaining > 0 {
		n := int64(len(buf))
		if remaining < n {
			n = remaining
		}
		if _, err := f.Write(buf[:n]); err != nil {
			return err
		}
		remaining -= n
	}
	return f.Sync()
}

// skipOneRecord advances past one record frame starting at the reader's
// current position, returning the byte position immediately after it, or 0
// if there is no complete record to skip (end of written data in this
// chunk).
func skipOneRecord(r *bufio.Reader, pos int64, chunkSize int64) (int64, error) {
	if chunkSize-pos < FrameSize {
		return 0, nil
	}
	header := make([]byte, FrameSize)
	if _, err := io.ReadFull(r, header); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return 0, nil
		}
		return 0, err
	}
	length := binary.LittleEndian.Uint32(header[ChecksumSize:])
	if length == 0 {
		return 0, nil
	}
	recordSize := int64(FrameSize) + int64(length)
	if pos+recordSize > chunkSize {
		return 0, nil
	}
	if _, err := io.CopyN(io.Discard, r, int64(length)); err != nil {
		return 0, err
	}
	return pos + recordSize, nil
}

// coordOfLastRecord walks chunk fileNumber of channel from its header to
// find the last fully-written record, used at startup to discover the write
// tail. The returned RecordNumber is that record's number, but ByteOffset is
// the position just past it (where the next append goes), not the start of
// the record; for a chunk with no records it is HeaderSize. Returns the zero
// Coord if the chunk doesn't exist yet (channel never written to).
func coordOfLastRecord(dir, channel string, fileNumber int, chunkSize int64) (Coord, error) {
	path := filepath.Join(dir, fileName(channel, fileNumber))
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Coord{}, nil
		}
		return Coord{}, err
	}
	defer f.Close()

	headerBuf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(f, headerBuf); err != nil {
		return Coord{}, err
	}
	firstRecordNumber := int64(binary.LittleEndian.Uint64(headerBuf))

	r := bufio.NewReader(f)
	pos := int64(HeaderSize)
	coord := Coord{FileNumber: fileNumber, RecordNumber: firstRecordNumber - 1, ByteOffset: pos}

	for {
		next, err := skipOneRecord(r, pos, chunkSize)
		if err != nil {
			return Coord{}, err
		}
		if next == 0 {
			break
		}
		pos = next
		coord.RecordNumber++
		coord.ByteOffset = pos
	}
	return coord, nil
}

// findRecordInFile scans chunk fileNumber looking for recordNumber,
// returning the last valid coordinate reached (clamp-to-end semantics if
// recordNumber lies beyond what's written) and whether the exact record
// was found in this chunk.
func findRecordInFile(dir, channel string, fileNumber int, recordNumber, chunkSize int64) (Coord, bool, error) {
	path := filepath.Join(dir, fileName(channel, fileNumber))
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Coord{}, false, nil
		}
		return Coord{}, false, err
	}
	defer f.Close()

	headerBuf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(f, headerBuf); err != nil {
		return Coord{}, false, err
	}
	firstRecordNumber := int64(binary.LittleEndian.Uint64(headerBuf))

	r := bufio.NewReader(f)
	pos := int64(HeaderSize)
	coord := Coord{FileNumber: fileNumber, RecordNumber: firstRecordNumber - 1, ByteOffset: pos}

	for {
		if coord.RecordNumber == recordNumber && coord.Valid() {
			return coord, true, nil
		}
		next, err := skipOneRecord(r, pos, chunkSize)
		if err != nil {
			return Coord{}, false, err
		}
		if next == 0 {
			break
		}
		coord.RecordNumber++
		coord.ByteOffset = pos
		pos = next
	}
	return coord, coord.RecordNumber == recordNumber, nil
}

// coordOfRecord resolves the byte coordinate of recordNumber within
// channel's chunk set by scanning chunks in order. recordNumber <= 0
// resolves to the very start of chunk 0. A recordNumber beyond the last
// written record clamps to the last written position.
func coordOfRecord(dir, channel string, recordNumber, chunkSize int64) (Coord, error) {
	if recordNumber <= 0 {
		return Coord{FileNumber: 0, RecordNumber: 0, ByteOffset: HeaderSize}, nil
	}

	var last Coord
	fileNumber := 0
	for {
		coord, found, err := findRecordInFile(dir, channel, fileNumber, recordNumber, chunkSize)
		if err != nil {
			return Coord{}, err
		}
		if !coord.Valid() && fileNumber == 0 {
			return coord, nil
		}
		if coord.Valid() {
			last = coord
		}
		if found {
			return coord, nil
		}
		nextPath := filepath.Join(dir, fileName(channel, fileNumber+1))
		if _, err := os.Stat(nextPath); err != nil {
			return last, nil
		}
		fileNumber++
	}
}
