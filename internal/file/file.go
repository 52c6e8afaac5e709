package file

import (
	"fmt"
	"io"
	"io/fs"
	"path"
	"time"

	"github.com/uwx/MaxineZip/internal/crc"
	"github.com/uwx/MaxineZip/internal/ziptype"
)

// File implements fs.File for streaming reads with CRC-32 verification.
// The checksum is compared once the recorded size has been read; a
// mismatch is returned in place of io.EOF.
type File struct {
	reader        *Reader
	entry         Entry
	verifyOnClose bool

	rc        io.ReadCloser
	digest    *crc.Digest
	remaining uint32

	initialized bool
	initErr     error
	verified    bool
	verifyErr   error
}

// Interface compliance.
var _ fs.File = (*File)(nil)

// OpenFile creates a File for streaming reads of entry. Nothing is read
// until the first call to Read.
func (r *Reader) OpenFile(entry *Entry, verifyOnClose bool) *File {
	return &File{
		reader:        r,
		entry:         *entry,
		verifyOnClose: verifyOnClose,
	}
}

// Read implements io.Reader with incremental checksum verification.
func (f *File) Read(p []byte) (int, error) {
	if err := f.init(); err != nil {
		return 0, err
	}
	if f.verifyErr != nil {
		return 0, f.verifyErr
	}
	if len(p) == 0 {
		return 0, nil
	}
	if f.remaining == 0 {
		return f.readExtra()
	}

	if uint64(len(p)) > uint64(f.remaining) {
		p = p[:f.remaining]
	}
	n, err := f.rc.Read(p)
	if n > 0 {
		_, _ = f.digest.Write(p[:n]) //nolint:errcheck // digest writes never fail
		f.remaining -= uint32(n)     //nolint:gosec // n <= remaining
	}

	if err == io.EOF {
		if f.remaining != 0 {
			return n, mapReadError(&f.entry, io.ErrUnexpectedEOF)
		}
		if verifyErr := f.verify(); verifyErr != nil {
			return n, verifyErr
		}
		return n, io.EOF
	}
	if err != nil {
		return n, mapReadError(&f.entry, err)
	}
	return n, nil
}

// Stat returns file info.
func (f *File) Stat() (fs.FileInfo, error) {
	return NewInfo(&f.entry), nil
}

// Close releases decoder state and optionally drains the entry to verify
// its checksum.
func (f *File) Close() error {
	if err := f.init(); err != nil {
		return err
	}
	defer f.rc.Close()

	if f.verified || !f.verifyOnClose {
		return f.verifyErr
	}
	_, err := io.Copy(io.Discard, f)
	return err
}

func (f *File) init() error {
	if f.initialized {
		return f.initErr
	}
	f.initialized = true

	rc, err := f.reader.Open(&f.entry)
	if err != nil {
		f.initErr = err
		return f.initErr
	}
	f.rc = rc
	f.remaining = f.entry.Size
	f.digest = crc.New()
	return nil
}

// readExtra checks that a deflate stream ends where the recorded size says.
func (f *File) readExtra() (int, error) {
	if f.entry.Method == ziptype.MethodDeflate {
		if err := EnsureNoExtra(f.rc); err != nil {
			return 0, corruptStream(&f.entry, "inflates beyond %d bytes", f.entry.Size)
		}
	}
	if err := f.verify(); err != nil {
		return 0, err
	}
	return 0, io.EOF
}

func (f *File) verify() error {
	if f.verified {
		return f.verifyErr
	}
	if sum := f.digest.Sum32(); sum != f.entry.CRC32 {
		f.verifyErr = fmt.Errorf("%s: %w (recorded %08x, computed %08x)", f.entry.Name, ErrChecksumMismatch, f.entry.CRC32, sum)
	}
	f.verified = true
	return f.verifyErr
}

// Info implements fs.FileInfo for an entry.
type Info struct {
	entry Entry
}

// NewInfo creates an Info from an entry.
func NewInfo(entry *Entry) *Info {
	return &Info{entry: *entry}
}

func (fi *Info) Name() string       { return path.Base(fi.entry.Name) }
func (fi *Info) Size() int64        { return int64(fi.entry.Size) }
func (fi *Info) Mode() fs.FileMode  { return 0o444 }
func (fi *Info) ModTime() time.Time { return fi.entry.ModTime }
func (fi *Info) IsDir() bool        { return false }

// Sys returns the underlying ziptype.Entry.
func (fi *Info) Sys() any { return fi.entry }
