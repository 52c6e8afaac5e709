package maxinezip

import "github.com/uwx/MaxineZip/internal/ziptype"

// Errors re-exported from internal/ziptype.
var (
	// ErrNotArchive is returned when no valid end of central directory record exists.
	ErrNotArchive = ziptype.ErrNotArchive

	// ErrEntryNotFound is returned when an entry's local header is missing
	// at its recorded offset.
	ErrEntryNotFound = ziptype.ErrEntryNotFound

	// ErrChecksumMismatch is returned when extracted content does not match its CRC-32.
	ErrChecksumMismatch = ziptype.ErrChecksumMismatch

	// ErrDecompression is returned when a deflate stream cannot be decoded.
	ErrDecompression = ziptype.ErrDecompression

	// ErrUnsupportedMethod is returned for methods other than store and deflate.
	ErrUnsupportedMethod = ziptype.ErrUnsupportedMethod

	// ErrReadOnly is returned when writing to a session that cannot write.
	ErrReadOnly = ziptype.ErrReadOnly

	// ErrWriteOnly is returned when reading from a stream that cannot be read.
	ErrWriteOnly = ziptype.ErrWriteOnly

	// ErrNotTruncatable is returned when Recompress needs a stream that can be truncated.
	ErrNotTruncatable = ziptype.ErrNotTruncatable

	// ErrSizeOverflow is returned when content exceeds the 4 GiB or 65535 entry limits.
	ErrSizeOverflow = ziptype.ErrSizeOverflow

	// ErrInvalidLevel is returned for compression levels outside MinLevel..MaxLevel.
	ErrInvalidLevel = ziptype.ErrInvalidLevel

	// ErrInvalidName is returned when an entry name normalizes to the empty string.
	ErrInvalidName = ziptype.ErrInvalidName

	// ErrClosed is returned when using an archive after Close.
	ErrClosed = ziptype.ErrClosed
)
