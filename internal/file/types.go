package file

import "github.com/uwx/MaxineZip/internal/ziptype"

// Re-export types from ziptype to keep call sites short.
type Entry = ziptype.Entry

// Re-export sentinel errors.
var (
	ErrEntryNotFound     = ziptype.ErrEntryNotFound
	ErrChecksumMismatch  = ziptype.ErrChecksumMismatch
	ErrDecompression     = ziptype.ErrDecompression
	ErrUnsupportedMethod = ziptype.ErrUnsupportedMethod
	ErrSizeOverflow      = ziptype.ErrSizeOverflow
)
