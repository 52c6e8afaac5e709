package maxinezip

import (
	"context"
	"io/fs"

	"github.com/uwx/MaxineZip/internal/file"
)

// Interface compliance.
var (
	_ fs.FS         = (*Archive)(nil)
	_ fs.StatFS     = (*Archive)(nil)
	_ fs.ReadFileFS = (*Archive)(nil)
)

// Open implements fs.FS.
//
// The returned file verifies the CRC-32 once the content has been read to
// EOF, returning ErrChecksumMismatch in place of io.EOF. Close drains
// unread content to complete the check.
func (a *Archive) Open(name string) (fs.File, error) {
	entry, err := a.lookupPath("open", name)
	if err != nil {
		return nil, err
	}
	return a.reader.OpenFile(&entry, true), nil
}

// Stat implements fs.StatFS. FileInfo.Sys returns the Entry.
func (a *Archive) Stat(name string) (fs.FileInfo, error) {
	entry, err := a.lookupPath("stat", name)
	if err != nil {
		return nil, err
	}
	return file.NewInfo(&entry), nil
}

// ReadFile implements fs.ReadFileFS. The content is verified before it is
// returned.
func (a *Archive) ReadFile(name string) ([]byte, error) {
	entry, err := a.lookupPath("readfile", name)
	if err != nil {
		return nil, err
	}
	data, err := a.reader.ReadAll(context.Background(), &entry)
	if err != nil {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: err}
	}
	return data, nil
}

func (a *Archive) lookupPath(op, name string) (Entry, error) {
	if err := a.readable(); err != nil {
		return Entry{}, &fs.PathError{Op: op, Path: name, Err: err}
	}
	if !fs.ValidPath(name) {
		return Entry{}, &fs.PathError{Op: op, Path: name, Err: fs.ErrInvalid}
	}
	entry, ok := a.Lookup(name)
	if !ok {
		return Entry{}, &fs.PathError{Op: op, Path: name, Err: fs.ErrNotExist}
	}
	return entry, nil
}
