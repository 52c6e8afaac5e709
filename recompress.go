package maxinezip

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/uwx/MaxineZip/internal/deflate"
	"github.com/uwx/MaxineZip/internal/write"
)

// Recompress rewrites every entry at level, in place, preserving names,
// modification times, comments and charsets.
//
// Every entry is extracted and verified into memory first; any failure at
// that stage returns before the stream is touched. The stream is then
// truncated and rewritten, and the directory is regenerated. A failure
// after truncation leaves an incomplete archive. ctx is only checked
// before truncation.
//
// The stream must be writable and implement Truncate(int64) error.
func (a *Archive) Recompress(ctx context.Context, level int) error {
	if err := a.writable(); err != nil {
		return err
	}
	if err := a.readable(); err != nil {
		return err
	}
	if a.trunc == nil {
		return ErrNotTruncatable
	}
	if !deflate.ValidLevel(level) {
		return fmt.Errorf("%w: %d", ErrInvalidLevel, level)
	}

	start := time.Now()
	before := a.size
	a.log().Info("recompressing archive", "entries", len(a.entries), "level", level)

	contents, err := a.extractAll(ctx)
	if err != nil {
		return fmt.Errorf("recompress: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("recompress: %w", err)
	}

	old := a.entries
	if err := a.truncate(); err != nil {
		return fmt.Errorf("recompress: truncate: %w", err)
	}

	var done uint64
	for i := range old {
		e := &old[i]
		charset := write.CharsetCP437
		if e.UTF8 {
			charset = write.CharsetUTF8
		}
		if _, err := a.add(contents[i], write.EntrySpec{
			Name:    e.Name,
			ModTime: e.ModTime,
			Level:   level,
			Comment: e.Comment,
			Charset: charset,
		}); err != nil {
			return fmt.Errorf("recompress: rewrite %s: %w", e.Name, err)
		}
		contents[i] = nil
		done += uint64(e.Size)
		a.emit(ProgressEvent{
			Stage:        StageCompressing,
			Name:         e.Name,
			BytesDone:    done,
			EntriesDone:  i + 1,
			EntriesTotal: len(old),
		})
	}

	if err := a.finalize(); err != nil {
		return fmt.Errorf("recompress: %w", err)
	}
	a.log().Info("recompressed archive",
		"entries", len(a.entries),
		"before", before,
		"after", a.size,
		"elapsed", time.Since(start))
	return nil
}

// extractAll reads and verifies every entry into memory, in order.
func (a *Archive) extractAll(ctx context.Context) ([][]byte, error) {
	contents := make([][]byte, len(a.entries))
	var done uint64
	for i := range a.entries {
		e := &a.entries[i]
		data, err := a.reader.ReadAll(ctx, e)
		if err != nil {
			return nil, err
		}
		contents[i] = data
		done += uint64(e.Size)
		a.emit(ProgressEvent{
			Stage:        StageVerifying,
			Name:         e.Name,
			BytesDone:    done,
			EntriesDone:  i + 1,
			EntriesTotal: len(a.entries),
		})
	}
	return contents, nil
}

// truncate empties the stream and the entry list. The entry list is kept
// when the stream refuses to shrink, so the session still describes it.
func (a *Archive) truncate() error {
	a.emit(ProgressEvent{Stage: StageTruncating, EntriesTotal: len(a.entries)})
	if _, err := a.ws.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if err := a.trunc.Truncate(0); err != nil {
		return err
	}
	a.entries = nil
	a.replay = nil
	a.replayCount = 0
	a.size = 0
	a.writer.Reset(0)
	a.dirty = true
	return nil
}
