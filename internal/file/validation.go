package file

import (
	"fmt"

	"github.com/uwx/MaxineZip/internal/ziptype"
)

// ValidateMethod checks that the entry's method can be extracted.
func ValidateMethod(entry *Entry) error {
	if !entry.Method.Supported() {
		return fmt.Errorf("%w: %d", ErrUnsupportedMethod, uint16(entry.Method))
	}
	return nil
}

// ValidateCompression checks that compression metadata is consistent.
// For stored entries, CompressedSize must equal Size.
func ValidateCompression(entry *Entry) error {
	if entry.Method == ziptype.MethodStore && entry.CompressedSize != entry.Size {
		return fmt.Errorf("%w: stored entry sizes differ (%d != %d)", ErrDecompression, entry.CompressedSize, entry.Size)
	}
	return nil
}

// ValidateRange checks that the payload starting at dataOffset lies within
// a source of the given size.
func ValidateRange(entry *Entry, dataOffset, sourceSize int64) error {
	end := dataOffset + int64(entry.CompressedSize)
	if dataOffset < 0 || end > sourceSize {
		return fmt.Errorf("%w: payload [%d, %d) beyond end of archive (%d)", ErrSizeOverflow, dataOffset, end, sourceSize)
	}
	return nil
}
