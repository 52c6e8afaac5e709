package maxinezip

import (
	"io"

	"github.com/uwx/MaxineZip/internal/deflate"
	"github.com/uwx/MaxineZip/internal/write"
	"github.com/uwx/MaxineZip/internal/ziptype"
)

// Entry describes one item of the archive directory.
type Entry = ziptype.Entry

// Method identifies the compression method stored for an entry.
type Method = ziptype.Method

// Method constants.
const (
	MethodStore   = ziptype.MethodStore
	MethodDeflate = ziptype.MethodDeflate
)

// Compression level bounds.
const (
	// MinLevel stores entries without compression.
	MinLevel = deflate.MinLevel

	// MaxLevel is the highest supported level.
	MaxLevel = deflate.MaxLevel

	// SlowLevelThreshold is the first level that uses the exhaustive encoder.
	SlowLevelThreshold = deflate.SlowLevelThreshold

	// DefaultLevel is used by Add when no level is configured.
	DefaultLevel = 6
)

// SkipCompressionFunc returns true when an entry should be stored uncompressed.
type SkipCompressionFunc = write.SkipCompressionFunc

// DefaultSkipCompression skips entries smaller than minSize and names with
// already-compressed extensions.
var DefaultSkipCompression = write.DefaultSkipCompression

// CompressResult is the outcome of compressing one buffer. Release must be
// called on every result.
type CompressResult = deflate.Result

// NewCompressResult builds a CompressResult for Codec implementations.
var NewCompressResult = deflate.NewResult

// Codec is the compression service used by an archive. The default is a
// pooled deflate codec; replace it with WithCompressor.
type Codec interface {
	// Compress deflates data at level 1..MaxLevel and returns the CRC-32
	// of the input along with the stream.
	Compress(data []byte, level int) (CompressResult, error)

	// Checksum returns the CRC-32 of data.
	Checksum(data []byte) uint32

	// Decompress returns a reader inflating the deflate stream in r. The
	// release function is called once the reader is no longer used.
	Decompress(r io.Reader) (io.Reader, func(), error)
}

// NewCodec returns the default deflate codec.
func NewCodec() Codec {
	return deflate.New()
}
