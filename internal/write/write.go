// Package write appends entries to an archive stream and emits the
// central directory.
package write

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/uwx/MaxineZip/internal/deflate"
	"github.com/uwx/MaxineZip/internal/dostime"
	"github.com/uwx/MaxineZip/internal/file"
	"github.com/uwx/MaxineZip/internal/format"
	"github.com/uwx/MaxineZip/internal/sizing"
	"github.com/uwx/MaxineZip/internal/ziptype"
)

// Compressor is the compression service used for entry payloads.
type Compressor interface {
	// Compress deflates data at level 1..deflate.MaxLevel.
	Compress(data []byte, level int) (deflate.Result, error)

	// Checksum returns the CRC-32 of data.
	Checksum(data []byte) uint32
}

// Charset selects how names and comments are encoded.
type Charset uint8

const (
	// CharsetAuto uses code page 437 for ASCII text and UTF-8 otherwise.
	CharsetAuto Charset = iota

	// CharsetUTF8 always sets the UTF-8 flag.
	CharsetUTF8

	// CharsetCP437 encodes in code page 437, falling back to UTF-8 when
	// the text is not representable.
	CharsetCP437
)

// EntrySpec describes an entry to add.
type EntrySpec struct {
	Name    string
	ModTime time.Time
	Level   int
	Comment string
	Charset Charset
}

// Writer appends local headers and payloads to a stream starting at a
// fixed position, then writes the central directory after them.
type Writer struct {
	stream io.WriteSeeker
	pos    int64
	codec  Compressor
	skip   []SkipCompressionFunc
}

// NewWriter creates a Writer that appends to stream at pos.
func NewWriter(stream io.WriteSeeker, pos int64, codec Compressor, skip []SkipCompressionFunc) *Writer {
	return &Writer{stream: stream, pos: pos, codec: codec, skip: skip}
}

// Pos returns the position the next record will be written at.
func (w *Writer) Pos() int64 {
	return w.pos
}

// Reset moves the write position, discarding nothing on its own.
func (w *Writer) Reset(pos int64) {
	w.pos = pos
}

// AddEntry compresses data according to spec and appends its local header
// and payload. It returns the entry describing what was written.
func (w *Writer) AddEntry(data []byte, spec EntrySpec) (Entry, error) {
	name := format.NormalizeName(spec.Name)
	if name == "" {
		return Entry{}, fmt.Errorf("%w: %q", ziptype.ErrInvalidName, spec.Name)
	}
	if !deflate.ValidLevel(spec.Level) {
		return Entry{}, fmt.Errorf("%w: %d", ziptype.ErrInvalidLevel, spec.Level)
	}
	size, err := sizing.ToUint32(int64(len(data)), ziptype.ErrSizeOverflow)
	if err != nil {
		return Entry{}, fmt.Errorf("add %s: %w", name, err)
	}
	offset, err := sizing.ToUint32(w.pos, ziptype.ErrSizeOverflow)
	if err != nil {
		return Entry{}, fmt.Errorf("add %s: header offset: %w", name, err)
	}

	// The comment only goes to the central record, but it takes part in
	// the charset decision.
	nameBytes, _, isUTF8, err := encodeTexts(name, spec.Comment, spec.Charset)
	if err != nil {
		return Entry{}, fmt.Errorf("add %s: %w", name, err)
	}
	modTime := spec.ModTime
	if modTime.IsZero() {
		modTime = time.Now()
	}

	entry := Entry{
		Name:           name,
		Method:         ziptype.MethodStore,
		Size:           size,
		CompressedSize: size,
		HeaderOffset:   offset,
		ModTime:        dostime.Quantize(dostime.Clamp(modTime)),
		Comment:        spec.Comment,
		UTF8:           isUTF8,
	}

	payload := data
	if spec.Level == deflate.MinLevel || len(data) == 0 || ShouldSkip(name, int64(len(data)), w.skip) {
		entry.CRC32 = w.codec.Checksum(data)
	} else {
		res, err := w.codec.Compress(data, spec.Level)
		if err != nil {
			return Entry{}, fmt.Errorf("compress %s: %w", name, err)
		}
		defer res.Release()
		entry.CRC32 = res.CRC32
		if res.Beneficial {
			entry.Method = ziptype.MethodDeflate
			entry.CompressedSize = uint32(len(res.Data)) //nolint:gosec // smaller than size
			payload = res.Data
		}
	}

	date, clock := dostime.Fields(entry.ModTime)
	h := format.LocalHeader{
		Flags:          flags(isUTF8),
		Method:         uint16(entry.Method),
		ModTime:        clock,
		ModDate:        date,
		CRC32:          entry.CRC32,
		CompressedSize: entry.CompressedSize,
		Size:           entry.Size,
		Name:           nameBytes,
	}
	header, err := h.AppendBinary(make([]byte, 0, format.LocalHeaderLen+len(nameBytes)))
	if err != nil {
		return Entry{}, fmt.Errorf("add %s: %w", name, err)
	}
	entry.HeaderSize = uint32(len(header)) //nolint:gosec // bounded by 16-bit name length

	if end := w.pos + int64(len(header)) + int64(len(payload)); end > math.MaxUint32 {
		return Entry{}, fmt.Errorf("add %s: archive exceeds 4 GiB: %w", name, ziptype.ErrSizeOverflow)
	}
	if err := w.write(header, payload); err != nil {
		return Entry{}, fmt.Errorf("write %s: %w", name, err)
	}
	return entry, nil
}

// Directory is the content of the central directory to finalize.
type Directory struct {
	// Replay holds central directory bytes copied verbatim before the
	// records generated from Entries.
	Replay []byte

	// ReplayCount is the number of records in Replay.
	ReplayCount int

	// Entries get one generated record each, in order.
	Entries []Entry

	// Comment is the raw archive comment.
	Comment []byte

	// MinEnd, when positive, is the smallest acceptable end position.
	// Streams that cannot be truncated set it to their current length so
	// no stale bytes are left after the end record.
	MinEnd int64
}

// Finalize writes the central directory and end record at the current
// position and returns the position just past the end record. Nothing is
// written when the end record would finish before dir.MinEnd.
func (w *Writer) Finalize(dir Directory) (int64, error) {
	buf, err := w.EncodeDirectory(dir)
	if err != nil {
		return 0, err
	}
	if end := w.pos + int64(len(buf)); end < dir.MinEnd {
		return 0, fmt.Errorf("finalize: end record at %d would leave %d stale bytes: %w",
			end, dir.MinEnd-end, ziptype.ErrNotTruncatable)
	}
	if err := w.write(buf); err != nil {
		return 0, fmt.Errorf("write central directory: %w", err)
	}
	return w.pos, nil
}

// EncodeDirectory returns the central directory and end record for dir as
// Finalize would write them at the current position.
func (w *Writer) EncodeDirectory(dir Directory) ([]byte, error) {
	total := dir.ReplayCount + len(dir.Entries)
	count, err := sizing.ToUint16(total, ziptype.ErrSizeOverflow)
	if err != nil {
		return nil, fmt.Errorf("finalize: %d entries: %w", total, err)
	}
	offset, err := sizing.ToUint32(w.pos, ziptype.ErrSizeOverflow)
	if err != nil {
		return nil, fmt.Errorf("finalize: directory offset: %w", err)
	}

	buf := make([]byte, 0, len(dir.Replay)+len(dir.Entries)*(format.CentralRecordLen+32)+format.EndRecordLen+len(dir.Comment))
	buf = append(buf, dir.Replay...)
	for i := range dir.Entries {
		buf, err = appendCentralRecord(buf, &dir.Entries[i])
		if err != nil {
			return nil, fmt.Errorf("finalize %s: %w", dir.Entries[i].Name, err)
		}
	}
	dirSize, err := sizing.ToUint32(int64(len(buf)), ziptype.ErrSizeOverflow)
	if err != nil {
		return nil, fmt.Errorf("finalize: directory size: %w", err)
	}
	if _, ok := sizing.AddUint32(offset, int64(dirSize)); !ok {
		return nil, fmt.Errorf("finalize: archive exceeds 4 GiB: %w", ziptype.ErrSizeOverflow)
	}

	end := format.EndRecord{
		EntriesThisDisk: count,
		Entries:         count,
		DirectorySize:   dirSize,
		DirectoryOffset: offset,
		Comment:         dir.Comment,
	}
	buf, err = end.AppendBinary(buf)
	if err != nil {
		return nil, fmt.Errorf("finalize: %w", err)
	}
	return buf, nil
}

func appendCentralRecord(buf []byte, entry *Entry) ([]byte, error) {
	charset := CharsetCP437
	if entry.UTF8 {
		charset = CharsetUTF8
	}
	nameBytes, commentBytes, isUTF8, err := encodeTexts(entry.Name, entry.Comment, charset)
	if err != nil {
		return buf, err
	}
	date, clock := dostime.Fields(entry.ModTime)
	rec := format.CentralRecord{
		VersionMadeBy:  format.VersionMadeBy,
		VersionNeeded:  format.VersionNeeded,
		Flags:          flags(isUTF8),
		Method:         uint16(entry.Method),
		ModTime:        clock,
		ModDate:        date,
		CRC32:          entry.CRC32,
		CompressedSize: entry.CompressedSize,
		Size:           entry.Size,
		Name:           nameBytes,
		Comment:        commentBytes,
		HeaderOffset:   entry.HeaderOffset,
	}
	return rec.AppendBinary(buf)
}

// write seeks to the current position and writes chunks in order,
// advancing the position by what was actually written.
func (w *Writer) write(chunks ...[]byte) error {
	if _, err := w.stream.Seek(w.pos, io.SeekStart); err != nil {
		return err
	}
	cw := &file.CountingWriter{W: w.stream}
	defer func() { w.pos += int64(cw.N) }() //nolint:gosec // bounded by the 4 GiB checks above
	for _, c := range chunks {
		if _, err := cw.Write(c); err != nil {
			return err
		}
	}
	return nil
}

// encodeTexts encodes name and comment under one charset decision, since
// a single flag covers both.
func encodeTexts(name, comment string, charset Charset) (nameBytes, commentBytes []byte, isUTF8 bool, err error) {
	switch charset {
	case CharsetUTF8:
		isUTF8 = true
	case CharsetAuto:
		isUTF8 = format.NeedsUTF8(name, comment)
	}
	if !isUTF8 {
		nameBytes, err = format.EncodeText(name, false)
		if err == nil {
			commentBytes, err = format.EncodeText(comment, false)
		}
		if errors.Is(err, format.ErrNotCP437) {
			isUTF8, err = true, nil
		}
		if err != nil {
			return nil, nil, false, err
		}
	}
	if isUTF8 {
		nameBytes, commentBytes = []byte(name), []byte(comment)
	}
	if len(nameBytes) > math.MaxUint16 || len(commentBytes) > math.MaxUint16 {
		return nil, nil, false, fmt.Errorf("name or comment longer than 65535 bytes: %w", ziptype.ErrSizeOverflow)
	}
	return nameBytes, commentBytes, isUTF8, nil
}

func flags(isUTF8 bool) uint16 {
	if isUTF8 {
		return format.FlagUTF8
	}
	return 0
}
