package ziptype

import "errors"

var (
	// ErrNotArchive is returned when no valid end of central directory record exists.
	ErrNotArchive = errors.New("zip: not a valid archive")

	// ErrEntryNotFound is returned when the local header at an entry's
	// recorded offset does not carry the local header signature.
	ErrEntryNotFound = errors.New("zip: entry not found at expected offset")

	// ErrChecksumMismatch is returned when extracted content does not match its CRC-32.
	ErrChecksumMismatch = errors.New("zip: checksum mismatch")

	// ErrDecompression is returned when a deflate stream cannot be decoded.
	ErrDecompression = errors.New("zip: decompression failed")

	// ErrUnsupportedMethod is returned for compression methods other than store and deflate.
	ErrUnsupportedMethod = errors.New("zip: unsupported method")

	// ErrReadOnly is returned when writing is required but the stream is not writable.
	ErrReadOnly = errors.New("zip: archive is read-only")

	// ErrWriteOnly is returned when reading is required but the stream cannot be read.
	ErrWriteOnly = errors.New("zip: archive is write-only")

	// ErrNotTruncatable is returned when an in-place rewrite needs to truncate
	// a stream that does not support it.
	ErrNotTruncatable = errors.New("zip: stream cannot be truncated")

	// ErrSizeOverflow is returned when a value does not fit the 32-bit
	// or 16-bit fields of the format.
	ErrSizeOverflow = errors.New("zip: size overflow")

	// ErrInvalidLevel is returned for compression levels outside the supported range.
	ErrInvalidLevel = errors.New("zip: invalid compression level")

	// ErrInvalidName is returned when an entry name normalizes to the empty string.
	ErrInvalidName = errors.New("zip: invalid entry name")

	// ErrClosed is returned when using an archive after Close.
	ErrClosed = errors.New("zip: archive closed")
)
