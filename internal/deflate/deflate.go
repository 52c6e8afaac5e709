// Package deflate is the compressor service used by the archive writer and
// extractor. Levels below SlowLevelThreshold use the klauspost encoder at
// that level; levels at or above it run several encoders and keep the
// smallest stream.
package deflate

import (
	"bytes"
	stdflate "compress/flate"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/flate"

	"github.com/uwx/MaxineZip/internal/crc"
	"github.com/uwx/MaxineZip/internal/ziptype"
)

const (
	// MinLevel stores entries without compression.
	MinLevel = 0

	// MaxLevel is the highest supported level.
	MaxLevel = 12

	// SlowLevelThreshold is the first level that uses the exhaustive encoder.
	SlowLevelThreshold = 10
)

// Result is the outcome of compressing one buffer.
//
// Data may alias a pooled buffer and stays valid until Release is called.
// Release must be called exactly once on every Result, including results
// that were not beneficial.
type Result struct {
	// Data is the deflate stream, nil when not Beneficial.
	Data []byte

	// CRC32 is the checksum of the uncompressed input.
	CRC32 uint32

	// Beneficial reports whether Data is strictly smaller than the input.
	Beneficial bool

	release func()
}

// NewResult builds a Result. release is called by Result.Release and may be nil.
// Data is only kept when it is strictly smaller than inputLen.
func NewResult(data []byte, inputLen int, sum uint32, release func()) Result {
	r := Result{CRC32: sum, release: release}
	if len(data) < inputLen {
		r.Data = data
		r.Beneficial = true
	}
	return r
}

// Release returns the memory backing Data to its owner.
func (r *Result) Release() {
	if r.release != nil {
		r.release()
	}
	r.release = nil
	r.Data = nil
}

// Codec compresses and decompresses deflate streams with pooled state.
// A Codec is safe for concurrent use.
type Codec struct {
	encoders [SlowLevelThreshold]sync.Pool
	decoders sync.Pool
	buffers  sync.Pool
}

// New creates a Codec.
func New() *Codec {
	c := &Codec{}
	c.buffers.New = func() any { return new(bytes.Buffer) }
	return c
}

// ValidLevel reports whether level is within MinLevel..MaxLevel.
func ValidLevel(level int) bool {
	return level >= MinLevel && level <= MaxLevel
}

// Checksum returns the CRC-32 of data, for entries that are stored.
func (c *Codec) Checksum(data []byte) uint32 {
	return crc.Checksum(data)
}

// Compress deflates data at level (1..MaxLevel). The input CRC-32 is
// computed once and returned in every Result.
func (c *Codec) Compress(data []byte, level int) (Result, error) {
	if !ValidLevel(level) || level == MinLevel {
		return Result{}, fmt.Errorf("%w: %d", ziptype.ErrInvalidLevel, level)
	}
	sum := crc.Checksum(data)

	var (
		buf *bytes.Buffer
		err error
	)
	if level < SlowLevelThreshold {
		buf, err = c.fast(data, level)
	} else {
		buf, err = c.slow(data, level)
	}
	if err != nil {
		return Result{}, err
	}

	return NewResult(buf.Bytes(), len(data), sum, func() { c.putBuffer(buf) }), nil
}

// fast encodes with a pooled klauspost writer at level.
func (c *Codec) fast(data []byte, level int) (*bytes.Buffer, error) {
	buf := c.getBuffer()
	enc, err := c.encoder(level, buf)
	if err != nil {
		c.putBuffer(buf)
		return nil, err
	}
	defer c.encoders[level].Put(enc)

	if _, err := enc.Write(data); err != nil {
		c.putBuffer(buf)
		return nil, fmt.Errorf("deflate level %d: %w", level, err)
	}
	if err := enc.Close(); err != nil {
		c.putBuffer(buf)
		return nil, fmt.Errorf("deflate level %d: %w", level, err)
	}
	return buf, nil
}

// encoder returns a klauspost writer for level reset onto w.
func (c *Codec) encoder(level int, w io.Writer) (*flate.Writer, error) {
	if v, ok := c.encoders[level].Get().(*flate.Writer); ok {
		v.Reset(w)
		return v, nil
	}
	enc, err := flate.NewWriter(w, level)
	if err != nil {
		return nil, fmt.Errorf("create deflate encoder: %w", err)
	}
	return enc, nil
}

// candidate encodes data with one encoder configuration.
type candidate func(c *Codec, data []byte) (*bytes.Buffer, error)

// slowCandidates are tried in order; higher levels try more of them.
var slowCandidates = []candidate{
	func(c *Codec, data []byte) (*bytes.Buffer, error) { return c.fast(data, flate.BestCompression) },
	stdlibBest,
	func(c *Codec, data []byte) (*bytes.Buffer, error) { return c.fast(data, 8) },
	func(c *Codec, data []byte) (*bytes.Buffer, error) { return c.fast(data, 7) },
}

// slow runs level-SlowLevelThreshold+2 candidates and keeps the smallest output.
func (c *Codec) slow(data []byte, level int) (*bytes.Buffer, error) {
	n := min(level-SlowLevelThreshold+2, len(slowCandidates))
	var best *bytes.Buffer
	for _, try := range slowCandidates[:n] {
		buf, err := try(c, data)
		if err != nil {
			if best != nil {
				c.putBuffer(best)
			}
			return nil, err
		}
		if best == nil || buf.Len() < best.Len() {
			if best != nil {
				c.putBuffer(best)
			}
			best = buf
		} else {
			c.putBuffer(buf)
		}
	}
	return best, nil
}

// stdlibBest encodes with the standard library's encoder, whose match
// finder differs from klauspost's and sometimes wins on small inputs.
func stdlibBest(c *Codec, data []byte) (*bytes.Buffer, error) {
	buf := c.getBuffer()
	enc, err := stdflate.NewWriter(buf, stdflate.BestCompression)
	if err != nil {
		c.putBuffer(buf)
		return nil, fmt.Errorf("create deflate encoder: %w", err)
	}
	if _, err := enc.Write(data); err != nil {
		c.putBuffer(buf)
		return nil, fmt.Errorf("deflate: %w", err)
	}
	if err := enc.Close(); err != nil {
		c.putBuffer(buf)
		return nil, fmt.Errorf("deflate: %w", err)
	}
	return buf, nil
}

// Decompress returns a reader inflating the deflate stream in r.
// The caller must call the returned release function when done.
// If an error is returned, no release function needs to be called.
func (c *Codec) Decompress(r io.Reader) (io.Reader, func(), error) {
	dec, ok := c.decoders.Get().(io.ReadCloser)
	if ok {
		if err := dec.(flate.Resetter).Reset(r, nil); err != nil {
			ok = false
		}
	}
	if !ok {
		dec = flate.NewReader(r)
	}
	return dec, func() {
		_ = dec.(flate.Resetter).Reset(eofReader{}, nil) //nolint:errcheck // clearing state before pool return
		c.decoders.Put(dec)
	}, nil
}

func (c *Codec) getBuffer() *bytes.Buffer {
	buf, ok := c.buffers.Get().(*bytes.Buffer)
	if !ok {
		buf = new(bytes.Buffer)
	}
	buf.Reset()
	return buf
}

func (c *Codec) putBuffer(buf *bytes.Buffer) {
	c.buffers.Put(buf)
}

// eofReader detaches pooled decoders from their previous source.
type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }
