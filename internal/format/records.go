// Package format encodes and decodes the fixed-shape records of the ZIP
// container: local file header, central directory record, and end of
// central directory record. All fields are little-endian.
package format

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Record signatures ("PK" followed by the record kind).
const (
	LocalHeaderSignature   uint32 = 0x04034b50
	CentralRecordSignature uint32 = 0x02014b50
	EndRecordSignature     uint32 = 0x06054b50
)

// Fixed record lengths, signature included.
const (
	LocalHeaderLen   = 30
	CentralRecordLen = 46
	EndRecordLen     = 22
)

const (
	// VersionNeeded is "2.0", the minimum version for deflate.
	VersionNeeded uint16 = 0x0014

	// VersionMadeBy is "2.0" on the MS-DOS host.
	VersionMadeBy uint16 = 0x0014

	// FlagUTF8 marks names and comments as UTF-8 (general purpose bit 11).
	FlagUTF8 uint16 = 0x0800

	// MaxCommentLen is the largest archive comment the end record can describe.
	MaxCommentLen = 0xffff
)

// ErrSignature is returned when a record does not start with its signature.
var ErrSignature = errors.New("unexpected record signature")

// ErrShort is returned when a buffer is too small to hold a record.
var ErrShort = errors.New("record truncated")

// ErrFieldTooLong is returned when a variable field exceeds its 16-bit length.
var ErrFieldTooLong = errors.New("field too long")

// LocalHeader is the record written immediately before an entry's payload.
type LocalHeader struct {
	Flags          uint16
	Method         uint16
	ModTime        uint16
	ModDate        uint16
	CRC32          uint32
	CompressedSize uint32
	Size           uint32
	Name           []byte
	// ExtraLen is the length of the extra field. It is only populated
	// by ParseLocalHeader; extra fields are never written.
	ExtraLen uint16
}

// Len returns the encoded length including the name.
func (h *LocalHeader) Len() int {
	return LocalHeaderLen + len(h.Name) + int(h.ExtraLen)
}

// AppendBinary appends the encoded header to b.
func (h *LocalHeader) AppendBinary(b []byte) ([]byte, error) {
	if len(h.Name) > 0xffff {
		return b, fmt.Errorf("name length %d: %w", len(h.Name), ErrFieldTooLong)
	}
	le := binary.LittleEndian
	b = le.AppendUint32(b, LocalHeaderSignature)
	b = le.AppendUint16(b, VersionNeeded)
	b = le.AppendUint16(b, h.Flags)
	b = le.AppendUint16(b, h.Method)
	b = le.AppendUint16(b, h.ModTime)
	b = le.AppendUint16(b, h.ModDate)
	b = le.AppendUint32(b, h.CRC32)
	b = le.AppendUint32(b, h.CompressedSize)
	b = le.AppendUint32(b, h.Size)
	b = le.AppendUint16(b, uint16(len(h.Name)))
	b = le.AppendUint16(b, 0)
	return append(b, h.Name...), nil
}

// ParseLocalHeader decodes the fixed part of a local header from b.
// Name is left empty; the caller skips len(name)+ExtraLen bytes.
// The returned nameLen is the filename length stored in this header.
func ParseLocalHeader(b []byte) (h LocalHeader, nameLen uint16, err error) {
	if len(b) < LocalHeaderLen {
		return h, 0, ErrShort
	}
	r := reader(b)
	if r.uint32() != LocalHeaderSignature {
		return h, 0, ErrSignature
	}
	r.uint16() // version needed
	h.Flags = r.uint16()
	h.Method = r.uint16()
	h.ModTime = r.uint16()
	h.ModDate = r.uint16()
	h.CRC32 = r.uint32()
	h.CompressedSize = r.uint32()
	h.Size = r.uint32()
	nameLen = r.uint16()
	h.ExtraLen = r.uint16()
	return h, nameLen, nil
}

// CentralRecord is one entry of the central directory.
type CentralRecord struct {
	VersionMadeBy  uint16
	VersionNeeded  uint16
	Flags          uint16
	Method         uint16
	ModTime        uint16
	ModDate        uint16
	CRC32          uint32
	CompressedSize uint32
	Size           uint32
	Name           []byte
	ExtraLen       uint16
	Comment        []byte
	InternalAttr   uint16
	ExternalAttr   uint32
	HeaderOffset   uint32
}

// Len returns the encoded length including all variable fields.
func (r *CentralRecord) Len() int {
	return CentralRecordLen + len(r.Name) + int(r.ExtraLen) + len(r.Comment)
}

// AppendBinary appends the encoded record to b. Extra fields are never written.
func (r *CentralRecord) AppendBinary(b []byte) ([]byte, error) {
	if len(r.Name) > 0xffff || len(r.Comment) > 0xffff {
		return b, fmt.Errorf("name %d or comment %d bytes: %w", len(r.Name), len(r.Comment), ErrFieldTooLong)
	}
	le := binary.LittleEndian
	b = le.AppendUint32(b, CentralRecordSignature)
	b = le.AppendUint16(b, r.VersionMadeBy)
	b = le.AppendUint16(b, r.VersionNeeded)
	b = le.AppendUint16(b, r.Flags)
	b = le.AppendUint16(b, r.Method)
	b = le.AppendUint16(b, r.ModTime)
	b = le.AppendUint16(b, r.ModDate)
	b = le.AppendUint32(b, r.CRC32)
	b = le.AppendUint32(b, r.CompressedSize)
	b = le.AppendUint32(b, r.Size)
	b = le.AppendUint16(b, uint16(len(r.Name)))
	b = le.AppendUint16(b, 0)
	b = le.AppendUint16(b, uint16(len(r.Comment)))
	b = le.AppendUint16(b, 0) // disk number start
	b = le.AppendUint16(b, r.InternalAttr)
	b = le.AppendUint32(b, r.ExternalAttr)
	b = le.AppendUint32(b, r.HeaderOffset)
	b = append(b, r.Name...)
	return append(b, r.Comment...), nil
}

// ParseCentralRecord decodes the record at the start of b and returns its
// total encoded length. The Name and Comment slices alias b.
func ParseCentralRecord(b []byte) (rec CentralRecord, n int, err error) {
	if len(b) < CentralRecordLen {
		return rec, 0, ErrShort
	}
	r := reader(b)
	if r.uint32() != CentralRecordSignature {
		return rec, 0, ErrSignature
	}
	rec.VersionMadeBy = r.uint16()
	rec.VersionNeeded = r.uint16()
	rec.Flags = r.uint16()
	rec.Method = r.uint16()
	rec.ModTime = r.uint16()
	rec.ModDate = r.uint16()
	rec.CRC32 = r.uint32()
	rec.CompressedSize = r.uint32()
	rec.Size = r.uint32()
	nameLen := int(r.uint16())
	rec.ExtraLen = r.uint16()
	commentLen := int(r.uint16())
	r.uint16() // disk number start
	rec.InternalAttr = r.uint16()
	rec.ExternalAttr = r.uint32()
	rec.HeaderOffset = r.uint32()

	n = CentralRecordLen + nameLen + int(rec.ExtraLen) + commentLen
	if len(b) < n {
		return rec, 0, ErrShort
	}
	rest := b[CentralRecordLen:n]
	rec.Name = rest[:nameLen]
	rec.Comment = rest[nameLen+int(rec.ExtraLen):]
	return rec, n, nil
}

// EndRecord is the end of central directory record.
type EndRecord struct {
	DiskNumber      uint16
	DirectoryDisk   uint16
	EntriesThisDisk uint16
	Entries         uint16
	DirectorySize   uint32
	DirectoryOffset uint32
	Comment         []byte
}

// AppendBinary appends the encoded record to b.
func (e *EndRecord) AppendBinary(b []byte) ([]byte, error) {
	if len(e.Comment) > MaxCommentLen {
		return b, fmt.Errorf("archive comment length %d: %w", len(e.Comment), ErrFieldTooLong)
	}
	le := binary.LittleEndian
	b = le.AppendUint32(b, EndRecordSignature)
	b = le.AppendUint16(b, e.DiskNumber)
	b = le.AppendUint16(b, e.DirectoryDisk)
	b = le.AppendUint16(b, e.EntriesThisDisk)
	b = le.AppendUint16(b, e.Entries)
	b = le.AppendUint32(b, e.DirectorySize)
	b = le.AppendUint32(b, e.DirectoryOffset)
	b = le.AppendUint16(b, uint16(len(e.Comment)))
	return append(b, e.Comment...), nil
}

// ParseEndRecord decodes the fixed part of an end record from b and
// returns the comment length it declares. Comment is left empty.
func ParseEndRecord(b []byte) (e EndRecord, commentLen int, err error) {
	if len(b) < EndRecordLen {
		return e, 0, ErrShort
	}
	r := reader(b)
	if r.uint32() != EndRecordSignature {
		return e, 0, ErrSignature
	}
	e.DiskNumber = r.uint16()
	e.DirectoryDisk = r.uint16()
	e.EntriesThisDisk = r.uint16()
	e.Entries = r.uint16()
	e.DirectorySize = r.uint32()
	e.DirectoryOffset = r.uint32()
	commentLen = int(r.uint16())
	return e, commentLen, nil
}

// reader consumes little-endian fields from the front of a byte slice.
// Callers check the length up front.
type reader []byte

func (r *reader) uint16() uint16 {
	v := binary.LittleEndian.Uint16(*r)
	*r = (*r)[2:]
	return v
}

func (r *reader) uint32() uint32 {
	v := binary.LittleEndian.Uint32(*r)
	*r = (*r)[4:]
	return v
}
