// Package directory locates the end of central directory record and parses
// the central directory into entries.
package directory

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/uwx/MaxineZip/internal/dostime"
	"github.com/uwx/MaxineZip/internal/format"
	"github.com/uwx/MaxineZip/internal/ziptype"
)

// searchWindows are the trailing window sizes scanned for the end record.
// The second covers the largest possible archive comment.
var searchWindows = []int64{1024, format.EndRecordLen + format.MaxCommentLen}

// Directory is the parsed catalog of an archive.
type Directory struct {
	// Entries in central directory order.
	Entries []ziptype.Entry

	// Comment is the raw archive comment.
	Comment []byte

	// Offset is where the central directory starts. New entries are
	// written from here, overwriting the old directory.
	Offset uint32

	// Raw holds the central directory bytes of the parsed records, for
	// verbatim replay on finalize.
	Raw []byte

	// Declared is the entry count stated by the end record.
	Declared int
}

// Read parses the directory of the archive in r, which is size bytes long.
// A nil logger discards output.
func Read(r io.ReaderAt, size int64, logger *slog.Logger) (*Directory, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	end, endOff, err := FindEnd(r, size)
	if err != nil {
		return nil, err
	}

	dirEnd := int64(end.DirectoryOffset) + int64(end.DirectorySize)
	if dirEnd > endOff {
		return nil, fmt.Errorf("%w: central directory [%d, %d) overlaps end record at %d",
			ziptype.ErrNotArchive, end.DirectoryOffset, dirEnd, endOff)
	}

	raw := make([]byte, end.DirectorySize)
	if n, err := r.ReadAt(raw, int64(end.DirectoryOffset)); n < len(raw) {
		return nil, fmt.Errorf("read central directory: %w", err)
	}

	entries, used := Parse(raw, int(end.Entries))
	if len(entries) < int(end.Entries) {
		logger.Warn("central directory ended early",
			"declared", end.Entries, "parsed", len(entries))
	}

	return &Directory{
		Entries:  entries,
		Comment:  end.Comment,
		Offset:   end.DirectoryOffset,
		Raw:      raw[:used],
		Declared: int(end.Entries),
	}, nil
}

// FindEnd scans backward from the end of r for the end of central directory
// record. A candidate is accepted only when its comment length ends exactly
// at the end of the stream, so signature bytes inside a comment are skipped.
// It returns the record, with Comment populated, and its offset.
func FindEnd(r io.ReaderAt, size int64) (format.EndRecord, int64, error) {
	if size < format.EndRecordLen {
		return format.EndRecord{}, 0, fmt.Errorf("%w: %d bytes is shorter than an end record", ziptype.ErrNotArchive, size)
	}
	for _, window := range searchWindows {
		window = min(window, size)
		buf := make([]byte, window)
		if n, err := r.ReadAt(buf, size-window); n < len(buf) {
			return format.EndRecord{}, 0, fmt.Errorf("read end record: %w", err)
		}
		if p := findEnd(buf); p >= 0 {
			rec, _, err := format.ParseEndRecord(buf[p:])
			if err != nil {
				return format.EndRecord{}, 0, fmt.Errorf("%w: %v", ziptype.ErrNotArchive, err)
			}
			rec.Comment = append([]byte(nil), buf[p+format.EndRecordLen:]...)
			return rec, size - window + int64(p), nil
		}
		if window == size {
			break
		}
	}
	return format.EndRecord{}, 0, fmt.Errorf("%w: end of central directory not found", ziptype.ErrNotArchive)
}

// findEnd returns the position in b of the last end record whose comment
// ties off at len(b), or -1.
func findEnd(b []byte) int {
	for i := len(b) - format.EndRecordLen; i >= 0; i-- {
		if b[i] != 'P' || b[i+1] != 'K' || b[i+2] != 0x05 || b[i+3] != 0x06 {
			continue
		}
		n := int(b[i+format.EndRecordLen-2]) | int(b[i+format.EndRecordLen-1])<<8
		if i+format.EndRecordLen+n == len(b) {
			return i
		}
	}
	return -1
}

// Parse decodes up to limit central directory records from raw. Parsing
// stops early, without error, at the first record whose signature or
// length is wrong. It returns the entries and the bytes they occupy.
func Parse(raw []byte, limit int) ([]ziptype.Entry, int) {
	entries := make([]ziptype.Entry, 0, limit)
	pos := 0
	for len(entries) < limit {
		rec, n, err := format.ParseCentralRecord(raw[pos:])
		if err != nil {
			break
		}
		entries = append(entries, entryFromRecord(&rec))
		pos += n
	}
	return entries, pos
}

func entryFromRecord(rec *format.CentralRecord) ziptype.Entry {
	isUTF8 := rec.Flags&format.FlagUTF8 != 0
	return ziptype.Entry{
		Name:           format.DecodeText(rec.Name, isUTF8),
		Method:         ziptype.Method(rec.Method),
		Size:           rec.Size,
		CompressedSize: rec.CompressedSize,
		CRC32:          rec.CRC32,
		HeaderOffset:   rec.HeaderOffset,
		ModTime:        dostime.Split(rec.ModDate, rec.ModTime),
		Comment:        format.DecodeText(rec.Comment, isUTF8),
		UTF8:           isUTF8,
	}
}
