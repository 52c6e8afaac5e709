package ziptype

import "time"

// Method identifies the compression method stored for an entry.
type Method uint16

const (
	MethodStore   Method = 0
	MethodDeflate Method = 8
)

// String returns the human-readable name of the method.
func (m Method) String() string {
	switch m {
	case MethodStore:
		return "store"
	case MethodDeflate:
		return "deflate"
	default:
		return "unknown"
	}
}

// Supported reports whether entries with this method can be extracted.
func (m Method) Supported() bool {
	return m == MethodStore || m == MethodDeflate
}

// Entry describes one item of the archive directory.
//
// Size, CompressedSize and CRC32 never change once the entry is written.
// Recompression produces fresh entries instead of mutating existing ones.
type Entry struct {
	// Name is the normalized path inside the archive ("dir/file.txt").
	Name string

	// Method is the compression method of the payload.
	Method Method

	// Size is the uncompressed size in bytes.
	Size uint32

	// CompressedSize is the payload size in bytes.
	// Equal to Size for stored entries.
	CompressedSize uint32

	// CRC32 is the checksum of the uncompressed content.
	CRC32 uint32

	// HeaderOffset is the absolute offset of the local header.
	HeaderOffset uint32

	// HeaderSize is the length of the local header including the name.
	// It is only known for entries written by this session.
	HeaderSize uint32

	// ModTime is the modification time at 2-second precision.
	ModTime time.Time

	// Comment is the optional per-entry comment.
	Comment string

	// UTF8 reports whether Name and Comment are encoded as UTF-8
	// rather than code page 437.
	UTF8 bool
}
