// Package maxinezip reads and writes ZIP archives in place.
//
// An [Archive] is a session over one seekable stream: it parses the
// central directory on open, appends new entries where the old directory
// began, and rewrites the directory when flushed or closed. Only the store
// and deflate methods are supported, and archives are limited to 4 GiB.
//
// # Quick Start
//
// Create an archive:
//
//	a, err := maxinezip.CreateFile("out.zip", maxinezip.WithLevel(9))
//	if err != nil {
//	    return err
//	}
//	if _, err := a.Add("hello.txt", []byte("hello")); err != nil {
//	    return err
//	}
//	return a.Close()
//
// Open, verify and read:
//
//	a, err := maxinezip.OpenFile("out.zip", maxinezip.WithReadOnly())
//	if err != nil {
//	    return err
//	}
//	defer a.Close()
//	if err := a.VerifyAll(ctx); err != nil {
//	    return err
//	}
//	content, err := a.ReadFile("hello.txt")
//
// # Compression Levels
//
// Level 0 stores entries. Levels 1 through 9 use the fast deflate encoder at
// that level. Levels 10 through 12 try several encoders and keep the
// smallest stream, trading time for size. An entry whose compressed form is
// not strictly smaller than its content is stored instead.
//
// # Recompression
//
// [Archive.Recompress] rewrites every entry at a new level. All entries are
// extracted and verified into memory before the stream is truncated, so a
// corrupt entry leaves the archive untouched. A failure after truncation
// leaves the archive incomplete; operate on a copy when that matters.
//
// The package implements fs.FS, fs.StatFS and fs.ReadFileFS over the
// entries of an archive. Directories are not synthesized.
package maxinezip
