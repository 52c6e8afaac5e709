// Package testutil provides in-memory streams and content generators for tests.
package testutil

import (
	"bytes"
	"errors"
	"io"
	"math/rand/v2"
)

// MemFile is an in-memory file supporting read, write, seek, ReadAt and
// Truncate, standing in for *os.File in tests.
type MemFile struct {
	data []byte
	pos  int64
}

// NewMemFile returns a MemFile holding a copy of data, positioned at 0.
func NewMemFile(data []byte) *MemFile {
	return &MemFile{data: append([]byte(nil), data...)}
}

// Read implements io.Reader.
func (m *MemFile) Read(p []byte) (int, error) {
	if m.pos >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[m.pos:])
	m.pos += int64(n)
	return n, nil
}

// ReadAt implements io.ReaderAt semantics over the backing slice.
func (m *MemFile) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errors.New("negative offset")
	}
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Write implements io.Writer, extending the file as needed.
func (m *MemFile) Write(p []byte) (int, error) {
	end := m.pos + int64(len(p))
	if end > int64(len(m.data)) {
		m.data = append(m.data, make([]byte, end-int64(len(m.data)))...)
	}
	copy(m.data[m.pos:], p)
	m.pos = end
	return len(p), nil
}

// Seek implements io.Seeker.
func (m *MemFile) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = m.pos + offset
	case io.SeekEnd:
		abs = int64(len(m.data)) + offset
	default:
		return 0, errors.New("invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("negative position")
	}
	m.pos = abs
	return abs, nil
}

// Truncate changes the size of the file.
func (m *MemFile) Truncate(size int64) error {
	if size < 0 {
		return errors.New("negative size")
	}
	if size <= int64(len(m.data)) {
		m.data = m.data[:size]
		return nil
	}
	m.data = append(m.data, make([]byte, size-int64(len(m.data)))...)
	return nil
}

// Size returns the current length of the file.
func (m *MemFile) Size() int64 {
	return int64(len(m.data))
}

// Bytes returns the backing slice for tests that need to inspect or mutate data.
func (m *MemFile) Bytes() []byte {
	return m.data
}

// NoTruncate hides the Truncate method of a stream.
type NoTruncate struct {
	io.ReadWriteSeeker
}

// ErrInjected is returned by FailingWriter once its budget is used up.
var ErrInjected = errors.New("injected write failure")

// FailingWriter wraps a MemFile and fails writes after Budget bytes.
// A negative Budget never fails.
type FailingWriter struct {
	*MemFile
	Budget int
}

// Write implements io.Writer.
func (f *FailingWriter) Write(p []byte) (int, error) {
	if f.Budget < 0 {
		return f.MemFile.Write(p)
	}
	if len(p) > f.Budget {
		n, _ := f.MemFile.Write(p[:f.Budget])
		f.Budget = 0
		return n, ErrInjected
	}
	f.Budget -= len(p)
	return f.MemFile.Write(p)
}

// Compressible returns n bytes of repetitive text.
func Compressible(n int) []byte {
	const phrase = "archive container engine: local headers, central directory, end record. "
	return bytes.Repeat([]byte(phrase), n/len(phrase)+1)[:n]
}

// Random returns n pseudo-random bytes from seed.
func Random(n int, seed uint64) []byte {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(rng.UintN(256))
	}
	return b
}
