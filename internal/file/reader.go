// Package file extracts and verifies entry content.
package file

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/uwx/MaxineZip/internal/crc"
	"github.com/uwx/MaxineZip/internal/format"
	"github.com/uwx/MaxineZip/internal/ziptype"
)

// DefaultChunkSize is the default size of the buffers content is streamed through.
const DefaultChunkSize = 32 << 10

// ByteSource provides random access to the archive bytes.
// Size may grow between calls when the archive is being appended to.
type ByteSource interface {
	io.ReaderAt
	Size() int64
}

// Decompressor inflates a deflate stream. The release function must be
// called once the returned reader is no longer used.
type Decompressor interface {
	Decompress(r io.Reader) (io.Reader, func(), error)
}

// Reader extracts and verifies entries from a ByteSource.
type Reader struct {
	source    ByteSource
	codec     Decompressor
	chunkSize int
	buffers   sync.Pool
}

// Option configures a Reader.
type Option func(*Reader)

// WithChunkSize sets the size of the buffers used to stream content.
// Values <= 0 use DefaultChunkSize.
func WithChunkSize(n int) Option {
	return func(r *Reader) {
		r.chunkSize = n
	}
}

// NewReader creates a Reader for entries stored in source.
func NewReader(source ByteSource, codec Decompressor, opts ...Option) *Reader {
	r := &Reader{
		source:    source,
		codec:     codec,
		chunkSize: DefaultChunkSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.chunkSize <= 0 {
		r.chunkSize = DefaultChunkSize
	}
	size := r.chunkSize
	r.buffers.New = func() any {
		b := make([]byte, size)
		return &b
	}
	return r
}

// DataOffset reads the local header of entry and returns the offset of its
// payload. The name and extra lengths come from the local header, which is
// authoritative for where the payload begins.
func (r *Reader) DataOffset(entry *Entry) (int64, error) {
	var buf [format.LocalHeaderLen]byte
	off := int64(entry.HeaderOffset)
	if n, err := r.source.ReadAt(buf[:], off); n < len(buf) {
		return 0, fmt.Errorf("%w: %s at %d: %v", ErrEntryNotFound, entry.Name, off, err)
	}
	h, nameLen, err := format.ParseLocalHeader(buf[:])
	if err != nil {
		return 0, fmt.Errorf("%w: %s at %d", ErrEntryNotFound, entry.Name, off)
	}
	return off + format.LocalHeaderLen + int64(nameLen) + int64(h.ExtraLen), nil
}

// Open returns a reader of the entry's uncompressed content. The content is
// not verified; use Verify for checked extraction. The caller must close
// the returned reader to release pooled decoder state.
func (r *Reader) Open(entry *Entry) (io.ReadCloser, error) {
	dataOffset, err := r.DataOffset(entry)
	if err != nil {
		return nil, err
	}
	if err := ValidateMethod(entry); err != nil {
		return nil, fmt.Errorf("open %s: %w", entry.Name, err)
	}
	if err := ValidateCompression(entry); err != nil {
		return nil, fmt.Errorf("open %s: %w", entry.Name, err)
	}
	if err := ValidateRange(entry, dataOffset, r.source.Size()); err != nil {
		return nil, fmt.Errorf("open %s: %w", entry.Name, err)
	}

	section := io.NewSectionReader(r.source, dataOffset, int64(entry.CompressedSize))
	if entry.Method == ziptype.MethodStore {
		return io.NopCloser(section), nil
	}
	dec, release, err := r.codec.Decompress(section)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompression, err)
	}
	return &releasingReader{Reader: dec, release: release}, nil
}

// Verify streams the entry's content to sink in bounded chunks while
// computing its CRC-32, then compares it with the recorded checksum.
//
// Content is delivered to sink even when verification fails, so callers
// may inspect partial output. It returns the number of bytes written.
func (r *Reader) Verify(entry *Entry, sink io.Writer) (uint64, error) {
	return r.VerifyContext(context.Background(), entry, sink)
}

// VerifyContext is Verify with cancellation checked between chunks.
func (r *Reader) VerifyContext(ctx context.Context, entry *Entry, sink io.Writer) (uint64, error) {
	rc, err := r.Open(entry)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	bufp, ok := r.buffers.Get().(*[]byte)
	if !ok {
		b := make([]byte, r.chunkSize)
		bufp = &b
	}
	defer r.buffers.Put(bufp)

	digest := crc.New()
	content := io.LimitReader(rc, int64(entry.Size))
	n, err := CopyWithContext(ctx, io.MultiWriter(sink, digest), content, *bufp)
	if err != nil {
		return n, mapReadError(entry, err)
	}
	if n != uint64(entry.Size) {
		return n, mapReadError(entry, io.ErrUnexpectedEOF)
	}
	if entry.Method == ziptype.MethodDeflate {
		if err := EnsureNoExtra(rc); err != nil {
			return n, corruptStream(entry, "inflates beyond %d bytes", entry.Size)
		}
	}

	if sum := digest.Sum32(); sum != entry.CRC32 {
		return n, fmt.Errorf("%s: %w (recorded %08x, computed %08x)", entry.Name, ErrChecksumMismatch, entry.CRC32, sum)
	}
	return n, nil
}

// ReadAll extracts and verifies the entry, returning its content.
func (r *Reader) ReadAll(ctx context.Context, entry *Entry) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(int(entry.Size))
	if _, err := r.VerifyContext(ctx, entry, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// mapReadError converts errors from a verified read to the appropriate
// error kinds.
func mapReadError(entry *Entry, err error) error {
	var sinkErr *sinkError
	if errors.As(err, &sinkErr) {
		return fmt.Errorf("extract %s: %w", entry.Name, sinkErr.err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("extract %s: %w", entry.Name, err)
	}
	if entry.Method == ziptype.MethodStore {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("read %s: short read of %d bytes: %w", entry.Name, entry.Size, err)
		}
		return fmt.Errorf("read %s: %w", entry.Name, err)
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return corruptStream(entry, "unexpected EOF")
	}
	return corruptStream(entry, "%v", err)
}

// corruptStream reports a deflate payload that failed to decode during a
// verified read. Its content cannot match the recorded checksum, so the
// error matches both ErrChecksumMismatch and ErrDecompression.
func corruptStream(entry *Entry, format string, args ...any) error {
	return fmt.Errorf("%w: %w: %s: %s", ErrChecksumMismatch, ErrDecompression, entry.Name, fmt.Sprintf(format, args...))
}

// releasingReader returns pooled decoder state on Close.
type releasingReader struct {
	io.Reader
	release func()
	once    sync.Once
}

// Close releases the decoder. It is safe to call more than once.
func (r *releasingReader) Close() error {
	r.once.Do(r.release)
	return nil
}
