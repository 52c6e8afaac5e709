package maxinezip

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"unicode/utf8"

	"github.com/uwx/MaxineZip/internal/deflate"
	"github.com/uwx/MaxineZip/internal/directory"
	"github.com/uwx/MaxineZip/internal/file"
	"github.com/uwx/MaxineZip/internal/format"
	"github.com/uwx/MaxineZip/internal/write"
)

// truncater is implemented by streams that can shrink, such as *os.File.
type truncater interface {
	Truncate(size int64) error
}

// Archive is a session over one archive stream: the stream itself plus the
// ordered entry list parsed from or written to it.
//
// New entries are written where the central directory began; the directory
// is rewritten by Flush and Close. Until then the stream is not a valid
// archive. An Archive is not safe for concurrent use.
type Archive struct {
	ra     io.ReaderAt    // nil when the stream cannot be read
	ws     io.WriteSeeker // nil for read-only sessions
	trunc  truncater      // nil when the stream cannot shrink
	closer io.Closer      // set when the session owns the file

	entries     []Entry
	replay      []byte // central directory bytes of the entries parsed on open
	replayCount int
	comment     []byte
	size        int64
	base        int64 // central directory offset at open

	writer *write.Writer
	reader *file.Reader

	dirty  bool
	closed bool

	logger         *slog.Logger
	level          int
	pendingComment *string
	codec          Codec
	progress       ProgressFunc
	chunkSize      int
	skip           []SkipCompressionFunc
	forceUTF8      bool
	readOnly       bool
}

// Open parses the archive in stream. The stream is left positioned at the
// start of the central directory, where new entries will be written.
//
// The session can write when stream implements io.Writer, unless
// WithReadOnly is given. Recompress additionally needs a Truncate method.
func Open(stream io.ReadSeeker, opts ...Option) (*Archive, error) {
	a, err := newArchive(opts)
	if err != nil {
		return nil, err
	}
	if err := a.open(stream); err != nil {
		return nil, err
	}
	return a, nil
}

// OpenFile opens the archive at path for reading and writing, or for
// reading only with WithReadOnly. Close closes the file.
func OpenFile(path string, opts ...Option) (*Archive, error) {
	a, err := newArchive(opts)
	if err != nil {
		return nil, err
	}
	flag := os.O_RDWR
	if a.readOnly {
		flag = os.O_RDONLY
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, err
	}
	if err := a.open(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	a.closer = f
	return a, nil
}

// OpenReaderAt opens a read-only session over size bytes of ra, such as
// a remote archive served by the http package.
func OpenReaderAt(ra io.ReaderAt, size int64, opts ...Option) (*Archive, error) {
	a, err := newArchive(append(opts, WithReadOnly()))
	if err != nil {
		return nil, err
	}
	if a.pendingComment != nil {
		return nil, ErrReadOnly
	}
	a.ra = ra
	if err := a.load(size); err != nil {
		return nil, err
	}
	return a, nil
}

// Create starts a new archive at the beginning of stream. Existing content
// is overwritten and, when the stream supports it, truncated on Flush.
// Entries can be read back when stream also implements io.ReaderAt or
// io.Reader.
func Create(stream io.WriteSeeker, opts ...Option) (*Archive, error) {
	a, err := newArchive(opts)
	if err != nil {
		return nil, err
	}
	if a.readOnly {
		return nil, ErrReadOnly
	}
	a.create(stream)
	return a, nil
}

// CreateFile creates or truncates the file at path and starts a new
// archive in it. Close closes the file.
func CreateFile(path string, opts ...Option) (*Archive, error) {
	a, err := newArchive(opts)
	if err != nil {
		return nil, err
	}
	if a.readOnly {
		return nil, ErrReadOnly
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	a.create(f)
	a.closer = f
	return a, nil
}

func newArchive(opts []Option) (*Archive, error) {
	a := &Archive{level: DefaultLevel}
	for _, opt := range opts {
		opt(a)
	}
	if !deflate.ValidLevel(a.level) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLevel, a.level)
	}
	if a.codec == nil {
		a.codec = deflate.New()
	}
	if a.pendingComment != nil && len(*a.pendingComment) > format.MaxCommentLen {
		return nil, fmt.Errorf("archive comment: %w", ErrSizeOverflow)
	}
	a.reader = file.NewReader(source{a}, a.codec, file.WithChunkSize(a.chunkSize))
	return a, nil
}

func (a *Archive) open(stream io.ReadSeeker) error {
	size, err := stream.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("seek: %w", err)
	}
	a.ra = readerAt(stream)
	if ws, ok := stream.(io.WriteSeeker); ok && !a.readOnly {
		a.ws = ws
		a.trunc, _ = stream.(truncater)
	}
	if err := a.load(size); err != nil {
		return err
	}
	if _, err := stream.Seek(a.writePos(), io.SeekStart); err != nil {
		return fmt.Errorf("seek: %w", err)
	}
	if a.pendingComment != nil {
		if a.ws == nil {
			return ErrReadOnly
		}
		if err := a.checkShrink([]byte(*a.pendingComment)); err != nil {
			return err
		}
		a.comment = []byte(*a.pendingComment)
		a.dirty = true
	}
	return nil
}

// load parses the directory and positions the writer at its start.
func (a *Archive) load(size int64) error {
	dir, err := directory.Read(a.ra, size, a.log())
	if err != nil {
		return err
	}
	a.size = size
	a.entries = dir.Entries
	a.replay = dir.Raw
	a.replayCount = len(dir.Entries)
	a.comment = dir.Comment
	a.base = int64(dir.Offset)
	if a.ws != nil {
		a.writer = write.NewWriter(a.ws, int64(dir.Offset), a.codec, a.skip)
	}
	a.log().Info("opened archive", "entries", len(a.entries), "size", size)
	return nil
}

func (a *Archive) create(stream io.WriteSeeker) {
	a.ws = stream
	a.ra = readerAt(stream)
	a.trunc, _ = stream.(truncater)
	if size, err := stream.Seek(0, io.SeekEnd); err == nil {
		a.size = size
	}
	a.writer = write.NewWriter(stream, 0, a.codec, a.skip)
	if a.pendingComment != nil {
		a.comment = []byte(*a.pendingComment)
	}
	a.dirty = true
	a.log().Info("created archive", "level", a.level)
}

// log returns the logger, falling back to a discard logger if nil.
func (a *Archive) log() *slog.Logger {
	if a.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return a.logger
}

func (a *Archive) emit(ev ProgressEvent) {
	if a.progress != nil {
		a.progress(ev)
	}
}

func (a *Archive) writable() error {
	if a.closed {
		return ErrClosed
	}
	if a.writer == nil {
		return ErrReadOnly
	}
	return nil
}

func (a *Archive) readable() error {
	if a.closed {
		return ErrClosed
	}
	if a.ra == nil {
		return ErrWriteOnly
	}
	return nil
}

// writePos is where the next entry is written.
func (a *Archive) writePos() int64 {
	if a.writer == nil {
		return a.base
	}
	return a.writer.Pos()
}

// Add compresses data and appends it as entry name. The name is
// normalized: backslashes become slashes, and a drive prefix and leading
// or trailing slashes are removed.
func (a *Archive) Add(name string, data []byte, opts ...AddOption) (Entry, error) {
	if err := a.writable(); err != nil {
		return Entry{}, err
	}
	cfg := addConfig{level: a.level}
	for _, opt := range opts {
		opt(&cfg)
	}
	charset := write.CharsetAuto
	if a.forceUTF8 {
		charset = write.CharsetUTF8
	}
	entry, err := a.add(data, write.EntrySpec{
		Name:    name,
		ModTime: cfg.modTime,
		Level:   cfg.level,
		Comment: cfg.comment,
		Charset: charset,
	})
	if err != nil {
		return Entry{}, err
	}
	a.emit(ProgressEvent{
		Stage:       StageCompressing,
		Name:        entry.Name,
		BytesDone:   uint64(entry.Size),
		EntriesDone: len(a.entries),
	})
	return entry, nil
}

// AddReader reads r to EOF and adds the content as entry name.
func (a *Archive) AddReader(name string, r io.Reader, opts ...AddOption) (Entry, error) {
	if err := a.writable(); err != nil {
		return Entry{}, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return Entry{}, fmt.Errorf("read %s: %w", name, err)
	}
	return a.Add(name, data, opts...)
}

// AddFile adds the file at path. An empty name uses the base name of path.
// The modification time defaults to the file's.
func (a *Archive) AddFile(path, name string, opts ...AddOption) (Entry, error) {
	if err := a.writable(); err != nil {
		return Entry{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return Entry{}, err
	}
	if !info.Mode().IsRegular() {
		return Entry{}, fmt.Errorf("add %s: not a regular file", path)
	}
	data, err := os.ReadFile(path) //nolint:gosec // caller-chosen path
	if err != nil {
		return Entry{}, err
	}
	if name == "" {
		name = filepath.Base(path)
	}
	return a.Add(name, data, append([]AddOption{AddWithModTime(info.ModTime())}, opts...)...)
}

// add writes one entry. A failed write rewinds the position so the next
// entry overwrites the partial bytes; the session is dirty either way
// because the old directory region may have been overwritten.
func (a *Archive) add(data []byte, spec write.EntrySpec) (Entry, error) {
	pos := a.writer.Pos()
	a.dirty = true
	entry, err := a.writer.AddEntry(data, spec)
	a.size = max(a.size, a.writer.Pos())
	if err != nil {
		a.writer.Reset(pos)
		return Entry{}, err
	}
	a.entries = append(a.entries, entry)
	a.log().Debug("added entry",
		"name", entry.Name,
		"method", entry.Method.String(),
		"size", entry.Size,
		"compressed", entry.CompressedSize)
	return entry, nil
}

// Entries returns a copy of the entry list in directory order.
func (a *Archive) Entries() []Entry {
	return slices.Clone(a.entries)
}

// Len returns the number of entries.
func (a *Archive) Len() int {
	return len(a.entries)
}

// Lookup returns the first entry with the given name, normalized as in Add.
func (a *Archive) Lookup(name string) (Entry, bool) {
	name = format.NormalizeName(name)
	i := slices.IndexFunc(a.entries, func(e Entry) bool { return e.Name == name })
	if i < 0 {
		return Entry{}, false
	}
	return a.entries[i], true
}

// Extract returns a reader of the entry's uncompressed content. The content
// is not verified; use Verify, ReadFile or Open for checked reads. The
// caller must close the reader.
func (a *Archive) Extract(entry Entry) (io.ReadCloser, error) {
	if err := a.readable(); err != nil {
		return nil, err
	}
	return a.reader.Open(&entry)
}

// Verify streams the entry's content to sink, which may be nil, and checks
// its CRC-32. Content reaches sink even when the checksum does not match.
func (a *Archive) Verify(entry Entry, sink io.Writer) error {
	if err := a.readable(); err != nil {
		return err
	}
	if sink == nil {
		sink = io.Discard
	}
	if _, err := a.reader.Verify(&entry, sink); err != nil {
		return err
	}
	a.log().Debug("verified entry", "name", entry.Name, "size", entry.Size)
	return nil
}

// VerifyAll verifies every entry. It continues past failures and returns
// them joined; use errors.Is to test for ErrChecksumMismatch and friends.
// Cancelling ctx stops at the next chunk.
func (a *Archive) VerifyAll(ctx context.Context) error {
	if err := a.readable(); err != nil {
		return err
	}
	var (
		errs []error
		done uint64
	)
	for i := range a.entries {
		e := &a.entries[i]
		if _, err := a.reader.VerifyContext(ctx, e, io.Discard); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return errors.Join(append(errs, ctxErr)...)
			}
			a.log().Warn("entry failed verification", "name", e.Name, "error", err)
			errs = append(errs, err)
			continue
		}
		done += uint64(e.Size)
		a.emit(ProgressEvent{
			Stage:        StageVerifying,
			Name:         e.Name,
			BytesDone:    done,
			EntriesDone:  i + 1,
			EntriesTotal: len(a.entries),
		})
	}
	return errors.Join(errs...)
}

// Comment returns the archive comment. Comments that are not valid UTF-8
// are decoded as code page 437.
func (a *Archive) Comment() string {
	return format.DecodeText(a.comment, utf8.Valid(a.comment))
}

// SetComment replaces the archive comment. It is written on the next Flush.
func (a *Archive) SetComment(comment string) error {
	if err := a.writable(); err != nil {
		return err
	}
	if len(comment) > format.MaxCommentLen {
		return fmt.Errorf("archive comment: %w", ErrSizeOverflow)
	}
	if err := a.checkShrink([]byte(comment)); err != nil {
		return err
	}
	a.comment = []byte(comment)
	a.dirty = true
	return nil
}

// checkShrink refuses a comment that would end the archive before the
// current end of a stream that cannot be truncated.
func (a *Archive) checkShrink(comment []byte) error {
	if a.trunc != nil {
		return nil
	}
	dir := a.directory()
	dir.Comment = comment
	buf, err := a.writer.EncodeDirectory(dir)
	if err != nil {
		return err
	}
	if end := a.writer.Pos() + int64(len(buf)); end < a.size {
		return fmt.Errorf("archive comment: archive would shrink from %d to %d bytes: %w", a.size, end, ErrNotTruncatable)
	}
	return nil
}

// directory describes the central directory the session would write now.
func (a *Archive) directory() write.Directory {
	dir := write.Directory{
		Replay:      a.replay,
		ReplayCount: a.replayCount,
		Entries:     a.entries[a.replayCount:],
		Comment:     a.comment,
	}
	if a.trunc == nil {
		dir.MinEnd = a.size
	}
	return dir
}

// Size returns the length of the archive stream as far as the session
// knows it.
func (a *Archive) Size() int64 {
	return a.size
}

// Flush writes the central directory and end record if anything changed,
// making the stream a valid archive. The session stays open.
func (a *Archive) Flush() error {
	if a.closed {
		return ErrClosed
	}
	if !a.dirty {
		return nil
	}
	return a.finalize()
}

// Close flushes pending changes and closes the file if the session owns
// it. Closing twice is a no-op.
func (a *Archive) Close() error {
	if a.closed {
		return nil
	}
	var err error
	if a.dirty {
		err = a.finalize()
	}
	a.closed = true
	if a.closer != nil {
		err = errors.Join(err, a.closer.Close())
	}
	return err
}

// finalize writes the directory after the last entry. Records parsed on
// open are replayed verbatim; only entries added since get new records.
func (a *Archive) finalize() error {
	pos := a.writer.Pos()
	a.emit(ProgressEvent{
		Stage:        StageFinalizing,
		EntriesDone:  len(a.entries),
		EntriesTotal: len(a.entries),
	})
	end, err := a.writer.Finalize(a.directory())
	a.size = max(a.size, a.writer.Pos())
	a.writer.Reset(pos)
	if err != nil {
		return err
	}
	if a.trunc != nil && end < a.size {
		if err := a.trunc.Truncate(end); err != nil {
			return fmt.Errorf("truncate: %w", err)
		}
		a.size = end
	}
	a.dirty = false
	a.log().Info("finalized archive", "entries", len(a.entries), "size", end)
	return nil
}

// source adapts the session stream to file.ByteSource. Size follows the
// stream as entries are appended.
type source struct {
	a *Archive
}

func (s source) ReadAt(p []byte, off int64) (int, error) {
	if s.a.ra == nil {
		return 0, ErrWriteOnly
	}
	return s.a.ra.ReadAt(p, off)
}

func (s source) Size() int64 {
	return s.a.size
}

// readerAt returns random read access to stream, or nil when it cannot be read.
func readerAt(stream any) io.ReaderAt {
	switch s := stream.(type) {
	case io.ReaderAt:
		return s
	case io.ReadSeeker:
		return &seekReaderAt{rs: s}
	default:
		return nil
	}
}

// seekReaderAt emulates ReadAt with Seek and Read. It moves the stream
// position, which is safe because the writer seeks before every write.
type seekReaderAt struct {
	rs io.ReadSeeker
}

func (r *seekReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if _, err := r.rs.Seek(off, io.SeekStart); err != nil {
		return 0, err
	}
	n, err := io.ReadFull(r.rs, p)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = io.EOF
	}
	return n, err
}
