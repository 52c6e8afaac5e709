package maxinezip_test

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	maxinezip "github.com/uwx/MaxineZip"
	"github.com/uwx/MaxineZip/internal/testutil"
)

var modTime = time.Date(2022, time.March, 4, 5, 6, 8, 0, time.UTC)

type testFile struct {
	name string
	data []byte
}

func sampleFiles() []testFile {
	return []testFile{
		{"readme.txt", testutil.Compressible(6000)},
		{"bin/random.dat", testutil.Random(3000, 1)},
		{"empty", nil},
		{"small.txt", []byte("small")},
	}
}

// build creates an archive in memory from files at level.
func build(t *testing.T, files []testFile, opts ...maxinezip.Option) *testutil.MemFile {
	t.Helper()
	mem := testutil.NewMemFile(nil)
	a, err := maxinezip.Create(mem, opts...)
	require.NoError(t, err)
	for _, f := range files {
		_, err := a.Add(f.name, f.data, maxinezip.AddWithModTime(modTime))
		require.NoError(t, err)
	}
	require.NoError(t, a.Close())
	return mem
}

// payload returns the offset of an entry's data, using the lengths in its
// local header.
func payload(data []byte, e maxinezip.Entry) int {
	h := data[e.HeaderOffset:]
	return int(e.HeaderOffset) + 30 + int(binary.LittleEndian.Uint16(h[26:])) + int(binary.LittleEndian.Uint16(h[28:]))
}

// stdlibRead reads every entry with archive/zip, checking CRCs along the way.
func stdlibRead(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	out := make(map[string][]byte, len(zr.File))
	for _, zf := range zr.File {
		rc, err := zf.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		require.NoError(t, err, "stdlib read of %s", zf.Name)
		require.NoError(t, rc.Close())
		out[zf.Name] = content
	}
	return out
}

func TestRoundTripAllLevels(t *testing.T) {
	t.Parallel()

	for level := maxinezip.MinLevel; level <= maxinezip.MaxLevel; level++ {
		t.Run(strconv.Itoa(level), func(t *testing.T) {
			t.Parallel()

			files := sampleFiles()
			mem := build(t, files, maxinezip.WithLevel(level))

			a, err := maxinezip.Open(mem)
			require.NoError(t, err)
			defer a.Close()

			require.Equal(t, len(files), a.Len())
			require.NoError(t, a.VerifyAll(t.Context()))
			for i, f := range files {
				e := a.Entries()[i]
				assert.Equal(t, f.name, e.Name)
				assert.Equal(t, uint32(len(f.data)), e.Size)
				assert.Equal(t, crc32.ChecksumIEEE(f.data), e.CRC32)
				assert.Equal(t, modTime, e.ModTime)
				if level == 0 || e.Method == maxinezip.MethodStore {
					assert.Equal(t, e.Size, e.CompressedSize)
				} else {
					assert.Less(t, e.CompressedSize, e.Size)
				}

				got, err := a.ReadFile(f.name)
				require.NoError(t, err)
				assert.True(t, bytes.Equal(f.data, got), "content of %s", f.name)
			}

			readme, _ := a.Lookup("readme.txt")
			if level > 0 {
				assert.Equal(t, maxinezip.MethodDeflate, readme.Method)
			} else {
				assert.Equal(t, maxinezip.MethodStore, readme.Method)
			}

			std := stdlibRead(t, mem.Bytes())
			for _, f := range files {
				assert.True(t, bytes.Equal(f.data, std[f.name]), "stdlib content of %s", f.name)
			}
		})
	}
}

func TestIncompressibleFallsBackToStore(t *testing.T) {
	t.Parallel()

	for _, level := range []int{1, 6, 9, 12} {
		mem := build(t, []testFile{{"noise", testutil.Random(10_000, uint64(level))}}, maxinezip.WithLevel(level))
		a, err := maxinezip.Open(mem)
		require.NoError(t, err)
		e := a.Entries()[0]
		assert.Equal(t, maxinezip.MethodStore, e.Method, "level %d", level)
		assert.Equal(t, e.Size, e.CompressedSize, "level %d", level)
		require.NoError(t, a.Close())
	}
}

func TestDirectoryRoundTrip(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, 1, 50} {
		t.Run(strconv.Itoa(n), func(t *testing.T) {
			t.Parallel()

			files := make([]testFile, n)
			for i := range files {
				files[i] = testFile{
					name: "dir" + strconv.Itoa(i%5) + "/file" + strconv.Itoa(i) + ".txt",
					data: testutil.Compressible(100 + i*37),
				}
			}
			mem := build(t, files)

			a, err := maxinezip.Open(mem)
			require.NoError(t, err)
			defer a.Close()

			entries := a.Entries()
			require.Len(t, entries, n)
			for i, f := range files {
				assert.Equal(t, f.name, entries[i].Name)
				assert.Equal(t, uint32(len(f.data)), entries[i].Size)
				assert.Equal(t, crc32.ChecksumIEEE(f.data), entries[i].CRC32)
			}
		})
	}
}

func TestCorruptionDetection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		level int
	}{
		{"store", 0},
		{"deflate", 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mem := build(t, []testFile{
				{"first.txt", testutil.Compressible(4000)},
				{"second.txt", testutil.Compressible(5000)},
			}, maxinezip.WithLevel(tt.level))

			a, err := maxinezip.Open(mem)
			require.NoError(t, err)
			entries := a.Entries()
			require.NoError(t, a.Close())

			first := entries[0]
			mem.Bytes()[payload(mem.Bytes(), first)+int(first.CompressedSize)/2] ^= 0x55

			a, err = maxinezip.Open(mem)
			require.NoError(t, err)
			defer a.Close()

			err = a.Verify(entries[0], nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, maxinezip.ErrChecksumMismatch)
			assert.NoError(t, a.Verify(entries[1], nil))

			all := a.VerifyAll(t.Context())
			require.Error(t, all)
			assert.Contains(t, all.Error(), "first.txt")
			assert.NotContains(t, all.Error(), "second.txt")
		})
	}
}

func TestVerifyDeliversDataOnMismatch(t *testing.T) {
	t.Parallel()

	content := []byte("content that will be damaged")
	mem := build(t, []testFile{{"a", content}}, maxinezip.WithLevel(0))
	a, err := maxinezip.Open(mem)
	require.NoError(t, err)
	e := a.Entries()[0]
	mem.Bytes()[payload(mem.Bytes(), e)] = 'C'

	var sink bytes.Buffer
	err = a.Verify(e, &sink)
	assert.ErrorIs(t, err, maxinezip.ErrChecksumMismatch)
	assert.Equal(t, "Content that will be damaged", sink.String())
}

func TestLocalHeaderSignatureMismatch(t *testing.T) {
	t.Parallel()

	mem := build(t, []testFile{{"a", []byte("aaa")}, {"b", []byte("bbb")}})
	a, err := maxinezip.Open(mem)
	require.NoError(t, err)
	b := a.Entries()[1]
	mem.Bytes()[b.HeaderOffset] = 'X'

	_, err = a.Extract(b)
	assert.ErrorIs(t, err, maxinezip.ErrEntryNotFound)
	assert.ErrorIs(t, a.Verify(b, nil), maxinezip.ErrEntryNotFound)
	assert.NoError(t, a.Verify(a.Entries()[0], nil))
}

func TestDecoyComment(t *testing.T) {
	t.Parallel()

	decoy := "before PK\x05\x06" + strings.Repeat("\x00", 18) + " after"
	mem := build(t, []testFile{{"a.txt", []byte("hello")}}, maxinezip.WithComment(decoy))

	a, err := maxinezip.Open(mem)
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, decoy, a.Comment())
	require.Equal(t, 1, a.Len())
	got, err := a.ReadFile("a.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
}

func TestOpenNotArchive(t *testing.T) {
	t.Parallel()

	for _, data := range [][]byte{nil, []byte("PK"), bytes.Repeat([]byte("not a zip "), 500)} {
		_, err := maxinezip.Open(bytes.NewReader(data))
		assert.ErrorIs(t, err, maxinezip.ErrNotArchive)
	}
}

func TestReadStdlibArchive(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	want := map[string][]byte{
		"deflated.txt": testutil.Compressible(9000),
		"stored.bin":   testutil.Random(500, 7),
	}
	w, err := zw.CreateHeader(&zip.FileHeader{Name: "deflated.txt", Method: zip.Deflate, Modified: modTime})
	require.NoError(t, err)
	_, err = w.Write(want["deflated.txt"])
	require.NoError(t, err)
	w, err = zw.CreateHeader(&zip.FileHeader{Name: "stored.bin", Method: zip.Store, Modified: modTime})
	require.NoError(t, err)
	_, err = w.Write(want["stored.bin"])
	require.NoError(t, err)
	require.NoError(t, zw.SetComment("made by archive/zip"))
	require.NoError(t, zw.Close())

	a, err := maxinezip.Open(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, "made by archive/zip", a.Comment())
	require.NoError(t, a.VerifyAll(t.Context()))
	for name, content := range want {
		got, err := a.ReadFile(name)
		require.NoError(t, err)
		assert.True(t, bytes.Equal(content, got), "content of %s", name)
	}
	e, ok := a.Lookup("deflated.txt")
	require.True(t, ok)
	assert.Equal(t, maxinezip.MethodDeflate, e.Method)
}

func TestAppendToExistingArchive(t *testing.T) {
	t.Parallel()

	mem := build(t, []testFile{{"one", []byte("1")}, {"two", testutil.Compressible(800)}})
	before := append([]byte(nil), mem.Bytes()...)

	a, err := maxinezip.Open(mem)
	require.NoError(t, err)
	require.Equal(t, 2, a.Len())
	_, err = a.Add("three", testutil.Compressible(700))
	require.NoError(t, err)
	require.NoError(t, a.Close())

	got := stdlibRead(t, mem.Bytes())
	require.Len(t, got, 3)
	assert.Equal(t, "1", string(got["one"]))
	assert.Equal(t, testutil.Compressible(700), got["three"])

	reopened, err := maxinezip.Open(mem)
	require.NoError(t, err)
	defer reopened.Close()
	names := make([]string, 0, 3)
	for _, e := range reopened.Entries() {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"one", "two", "three"}, names)

	appendedAt := reopened.Entries()[2].HeaderOffset
	assert.Equal(t, before[:appendedAt], mem.Bytes()[:appendedAt], "existing entries untouched")
}

func TestOpenWithoutChangesWritesNothing(t *testing.T) {
	t.Parallel()

	mem := build(t, sampleFiles())
	before := append([]byte(nil), mem.Bytes()...)

	a, err := maxinezip.Open(mem)
	require.NoError(t, err)
	require.NoError(t, a.VerifyAll(t.Context()))
	require.NoError(t, a.Flush())
	require.NoError(t, a.Close())
	assert.Equal(t, before, mem.Bytes())
}

func TestFlushKeepsSessionOpen(t *testing.T) {
	t.Parallel()

	mem := testutil.NewMemFile(nil)
	a, err := maxinezip.Create(mem)
	require.NoError(t, err)

	_, err = a.Add("a", []byte("first"))
	require.NoError(t, err)
	require.NoError(t, a.Flush())
	assert.Len(t, stdlibRead(t, mem.Bytes()), 1)
	assert.Equal(t, mem.Size(), a.Size())

	_, err = a.Add("b", []byte("second"))
	require.NoError(t, err)
	require.NoError(t, a.Close())

	got := stdlibRead(t, mem.Bytes())
	assert.Equal(t, "first", string(got["a"]))
	assert.Equal(t, "second", string(got["b"]))
}

func TestSetCommentTruncatesTail(t *testing.T) {
	t.Parallel()

	mem := build(t, []testFile{{"a", []byte("x")}}, maxinezip.WithComment(strings.Repeat("long comment ", 100)))
	long := mem.Size()

	a, err := maxinezip.Open(mem)
	require.NoError(t, err)
	require.NoError(t, a.SetComment("short"))
	require.NoError(t, a.Close())

	assert.Less(t, mem.Size(), long)
	zr, err := zip.NewReader(bytes.NewReader(mem.Bytes()), mem.Size())
	require.NoError(t, err)
	assert.Equal(t, "short", zr.Comment)

	a, err = maxinezip.Open(mem)
	require.NoError(t, err)
	assert.ErrorIs(t, a.SetComment(strings.Repeat("x", 70_000)), maxinezip.ErrSizeOverflow)
	require.NoError(t, a.Close())
}

func TestNamesAndCharsets(t *testing.T) {
	t.Parallel()

	mem := testutil.NewMemFile(nil)
	a, err := maxinezip.Create(mem)
	require.NoError(t, err)

	e, err := a.Add(`C:\Users\docs\report.txt`, []byte("r"))
	require.NoError(t, err)
	assert.Equal(t, "Users/docs/report.txt", e.Name)
	assert.False(t, e.UTF8)

	e, err = a.Add("日本/ファイル.txt", []byte("j"), maxinezip.AddWithComment("コメント"))
	require.NoError(t, err)
	assert.True(t, e.UTF8)

	_, err = a.Add("///", []byte("x"))
	assert.ErrorIs(t, err, maxinezip.ErrInvalidName)
	require.NoError(t, a.Close())

	zr, err := zip.NewReader(bytes.NewReader(mem.Bytes()), mem.Size())
	require.NoError(t, err)
	require.Len(t, zr.File, 2)
	assert.Equal(t, "Users/docs/report.txt", zr.File[0].Name)
	assert.Equal(t, "日本/ファイル.txt", zr.File[1].Name)
	assert.Equal(t, "コメント", zr.File[1].Comment)
	assert.False(t, zr.File[0].NonUTF8)

	reopened, err := maxinezip.Open(mem)
	require.NoError(t, err)
	defer reopened.Close()
	got, ok := reopened.Lookup(`Users\docs\report.txt`)
	require.True(t, ok)
	assert.False(t, got.UTF8)
	got, ok = reopened.Lookup("日本/ファイル.txt")
	require.True(t, ok)
	assert.True(t, got.UTF8)
	assert.Equal(t, "コメント", got.Comment)

	_, ok = reopened.Lookup("missing")
	assert.False(t, ok)
}

func TestForceUTF8(t *testing.T) {
	t.Parallel()

	mem := testutil.NewMemFile(nil)
	a, err := maxinezip.Create(mem, maxinezip.WithForceUTF8())
	require.NoError(t, err)
	e, err := a.Add("plain.txt", []byte("p"))
	require.NoError(t, err)
	assert.True(t, e.UTF8)
	require.NoError(t, a.Close())
}

func TestInvalidLevel(t *testing.T) {
	t.Parallel()

	_, err := maxinezip.Create(testutil.NewMemFile(nil), maxinezip.WithLevel(13))
	assert.ErrorIs(t, err, maxinezip.ErrInvalidLevel)

	a, err := maxinezip.Create(testutil.NewMemFile(nil))
	require.NoError(t, err)
	_, err = a.Add("x", []byte("x"), maxinezip.AddWithLevel(-1))
	assert.ErrorIs(t, err, maxinezip.ErrInvalidLevel)
	assert.Equal(t, 0, a.Len())
	require.NoError(t, a.Close())
}

func TestReadOnlySessions(t *testing.T) {
	t.Parallel()

	data := build(t, sampleFiles()).Bytes()

	// bytes.Reader cannot be written to.
	byReader, err := maxinezip.Open(bytes.NewReader(data))
	require.NoError(t, err)

	mem := testutil.NewMemFile(data)
	byOption, err := maxinezip.Open(mem, maxinezip.WithReadOnly())
	require.NoError(t, err)

	byReaderAt, err := maxinezip.OpenReaderAt(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	for _, a := range []*maxinezip.Archive{byReader, byOption, byReaderAt} {
		_, err := a.Add("new", []byte("x"))
		assert.ErrorIs(t, err, maxinezip.ErrReadOnly)
		assert.ErrorIs(t, a.SetComment("c"), maxinezip.ErrReadOnly)
		assert.ErrorIs(t, a.Recompress(t.Context(), 9), maxinezip.ErrReadOnly)
		assert.NoError(t, a.VerifyAll(t.Context()))
		assert.NoError(t, a.Close())
	}
	assert.Equal(t, data, mem.Bytes())

	_, err = maxinezip.Open(bytes.NewReader(data), maxinezip.WithComment("c"))
	assert.ErrorIs(t, err, maxinezip.ErrReadOnly)
}

func TestClosedSession(t *testing.T) {
	t.Parallel()

	a, err := maxinezip.Create(testutil.NewMemFile(nil))
	require.NoError(t, err)
	e, err := a.Add("a", []byte("a"))
	require.NoError(t, err)
	require.NoError(t, a.Close())

	_, err = a.Add("b", nil)
	assert.ErrorIs(t, err, maxinezip.ErrClosed)
	assert.ErrorIs(t, a.Flush(), maxinezip.ErrClosed)
	assert.ErrorIs(t, a.Verify(e, nil), maxinezip.ErrClosed)
	_, err = a.ReadFile("a")
	assert.ErrorIs(t, err, maxinezip.ErrClosed)
	assert.NoError(t, a.Close())
}

func TestFailedAddIsOverwritten(t *testing.T) {
	t.Parallel()

	fw := &testutil.FailingWriter{MemFile: testutil.NewMemFile(nil), Budget: 40}
	a, err := maxinezip.Create(fw)
	require.NoError(t, err)

	_, err = a.Add("doomed.txt", testutil.Compressible(1000), maxinezip.AddWithLevel(0))
	require.ErrorIs(t, err, testutil.ErrInjected)
	assert.Equal(t, 0, a.Len())

	fw.Budget = -1
	e, err := a.Add("kept.txt", []byte("kept"))
	require.NoError(t, err)
	assert.Equal(t, uint32(0), e.HeaderOffset)
	require.NoError(t, a.Close())

	got := stdlibRead(t, fw.Bytes())
	require.Len(t, got, 1)
	assert.Equal(t, "kept", string(got["kept.txt"]))
}

func TestSkipCompression(t *testing.T) {
	t.Parallel()

	mem := testutil.NewMemFile(nil)
	a, err := maxinezip.Create(mem, maxinezip.WithLevel(9), maxinezip.WithSkipCompression(maxinezip.DefaultSkipCompression(0)))
	require.NoError(t, err)
	png, err := a.Add("image.png", testutil.Compressible(5000))
	require.NoError(t, err)
	txt, err := a.Add("notes.txt", testutil.Compressible(5000))
	require.NoError(t, err)
	require.NoError(t, a.Close())

	assert.Equal(t, maxinezip.MethodStore, png.Method)
	assert.Equal(t, maxinezip.MethodDeflate, txt.Method)
}

func TestFileBackedSession(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := filepath.Join(dir, "input.txt")
	content := testutil.Compressible(20_000)
	require.NoError(t, os.WriteFile(input, content, 0o600))
	stamp := time.Date(2019, time.July, 1, 12, 30, 44, 0, time.UTC)
	require.NoError(t, os.Chtimes(input, stamp, stamp))

	path := filepath.Join(dir, "out.zip")
	a, err := maxinezip.CreateFile(path, maxinezip.WithLevel(9))
	require.NoError(t, err)
	e, err := a.AddFile(input, "")
	require.NoError(t, err)
	assert.Equal(t, "input.txt", e.Name)
	// Stored as wall-clock time in the local zone, read back as UTC.
	assert.Equal(t, stamp.Local().Format(time.DateTime), e.ModTime.Format(time.DateTime))
	_, err = a.AddFile(input, "copies/renamed.txt", maxinezip.AddWithLevel(0))
	require.NoError(t, err)
	_, err = a.AddFile(dir, "")
	assert.Error(t, err, "directories are not added")
	require.NoError(t, a.Close())

	ro, err := maxinezip.OpenFile(path, maxinezip.WithReadOnly())
	require.NoError(t, err)
	require.NoError(t, ro.VerifyAll(t.Context()))
	got, err := ro.ReadFile("copies/renamed.txt")
	require.NoError(t, err)
	assert.Equal(t, content, got)
	_, err = ro.Add("x", nil)
	assert.ErrorIs(t, err, maxinezip.ErrReadOnly)
	require.NoError(t, ro.Close())

	rw, err := maxinezip.OpenFile(path)
	require.NoError(t, err)
	_, err = rw.AddReader("appended.txt", strings.NewReader("appended"))
	require.NoError(t, err)
	require.NoError(t, rw.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, stdlibRead(t, data), 3)

	_, err = maxinezip.OpenFile(filepath.Join(dir, "missing.zip"))
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestProgressAndLogging(t *testing.T) {
	t.Parallel()

	var (
		events []maxinezip.ProgressEvent
		logs   bytes.Buffer
	)
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	a, err := maxinezip.Create(testutil.NewMemFile(nil),
		maxinezip.WithLogger(logger),
		maxinezip.WithProgress(func(ev maxinezip.ProgressEvent) { events = append(events, ev) }))
	require.NoError(t, err)
	_, err = a.Add("a", []byte("aaaa"))
	require.NoError(t, err)
	require.NoError(t, a.VerifyAll(t.Context()))
	require.NoError(t, a.Close())

	require.Len(t, events, 3)
	assert.Equal(t, maxinezip.StageCompressing, events[0].Stage)
	assert.Equal(t, uint64(4), events[0].BytesDone)
	assert.Equal(t, maxinezip.StageVerifying, events[1].Stage)
	assert.Equal(t, 1, events[1].EntriesTotal)
	assert.Equal(t, maxinezip.StageFinalizing, events[2].Stage)

	out := logs.String()
	assert.Contains(t, out, "created archive")
	assert.Contains(t, out, "added entry")
	assert.Contains(t, out, "finalized archive")
}

func TestSeekOnlyStream(t *testing.T) {
	t.Parallel()

	mem := build(t, sampleFiles())
	a, err := maxinezip.Open(testutil.NoTruncate{ReadWriteSeeker: mem})
	require.NoError(t, err)
	require.NoError(t, a.VerifyAll(t.Context()))
	_, err = a.Add("more.txt", testutil.Compressible(300))
	require.NoError(t, err)
	require.NoError(t, a.Close())

	assert.Len(t, stdlibRead(t, mem.Bytes()), len(sampleFiles())+1)
}

func TestSeekOnlyStreamRefusesShrink(t *testing.T) {
	t.Parallel()

	const long = "a comment long enough to leave a tail behind"

	t.Run("shorter comment", func(t *testing.T) {
		t.Parallel()
		mem := build(t, sampleFiles(), maxinezip.WithComment(long))
		snapshot := bytes.Clone(mem.Bytes())

		a, err := maxinezip.Open(testutil.NoTruncate{ReadWriteSeeker: mem})
		require.NoError(t, err)
		err = a.SetComment("short")
		require.ErrorIs(t, err, maxinezip.ErrNotTruncatable)
		assert.Equal(t, long, a.Comment())
		require.NoError(t, a.Close())
		assert.Equal(t, snapshot, mem.Bytes())

		_, err = maxinezip.Open(testutil.NoTruncate{ReadWriteSeeker: mem}, maxinezip.WithComment("x"))
		require.ErrorIs(t, err, maxinezip.ErrNotTruncatable)
		assert.Equal(t, snapshot, mem.Bytes())
	})

	t.Run("longer comment", func(t *testing.T) {
		t.Parallel()
		mem := build(t, sampleFiles(), maxinezip.WithComment("short"))
		a, err := maxinezip.Open(testutil.NoTruncate{ReadWriteSeeker: mem})
		require.NoError(t, err)
		require.NoError(t, a.SetComment(long))
		require.NoError(t, a.Close())

		b, err := maxinezip.Open(mem, maxinezip.WithReadOnly())
		require.NoError(t, err)
		assert.Equal(t, long, b.Comment())
	})

	t.Run("shrink covered by new entry", func(t *testing.T) {
		t.Parallel()
		mem := build(t, sampleFiles(), maxinezip.WithComment(long))
		a, err := maxinezip.Open(testutil.NoTruncate{ReadWriteSeeker: mem})
		require.NoError(t, err)
		_, err = a.Add("more.txt", testutil.Compressible(300))
		require.NoError(t, err)
		require.NoError(t, a.SetComment(""))
		require.NoError(t, a.Close())

		b, err := maxinezip.Open(mem, maxinezip.WithReadOnly())
		require.NoError(t, err)
		assert.Empty(t, b.Comment())
		assert.Equal(t, len(sampleFiles())+1, b.Len())
	})

	t.Run("create over longer stream", func(t *testing.T) {
		t.Parallel()
		mem := testutil.NewMemFile(bytes.Repeat([]byte{0xAA}, 4096))
		a, err := maxinezip.Create(testutil.NoTruncate{ReadWriteSeeker: mem})
		require.NoError(t, err)
		_, err = a.Add("tiny.txt", []byte("tiny"))
		require.NoError(t, err)
		require.ErrorIs(t, a.Close(), maxinezip.ErrNotTruncatable)
	})
}
