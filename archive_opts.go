package maxinezip

import (
	"log/slog"
	"time"
)

// Option configures an Archive.
type Option func(*Archive)

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Archive) {
		a.logger = logger
	}
}

// WithLevel sets the compression level used by Add when no AddWithLevel
// option is given (default: DefaultLevel). Levels outside
// MinLevel..MaxLevel make the constructor fail with ErrInvalidLevel.
func WithLevel(level int) Option {
	return func(a *Archive) {
		a.level = level
	}
}

// WithComment sets the archive comment, replacing any existing one.
func WithComment(comment string) Option {
	return func(a *Archive) {
		a.pendingComment = &comment
	}
}

// WithCompressor replaces the compression service.
func WithCompressor(codec Codec) Option {
	return func(a *Archive) {
		a.codec = codec
	}
}

// WithProgress sets a callback for progress updates.
func WithProgress(fn ProgressFunc) Option {
	return func(a *Archive) {
		a.progress = fn
	}
}

// WithChunkSize sets the size of the buffers entries are streamed through
// during extraction and verification (default: 32 KiB).
func WithChunkSize(n int) Option {
	return func(a *Archive) {
		a.chunkSize = n
	}
}

// WithSkipCompression adds predicates that force entries to be stored.
func WithSkipCompression(fns ...SkipCompressionFunc) Option {
	return func(a *Archive) {
		a.skip = append(a.skip, fns...)
	}
}

// WithForceUTF8 marks every new entry as UTF-8, even when its name and
// comment are representable in code page 437.
func WithForceUTF8() Option {
	return func(a *Archive) {
		a.forceUTF8 = true
	}
}

// WithReadOnly opens the archive without write access. Add, SetComment
// and Recompress fail with ErrReadOnly.
func WithReadOnly() Option {
	return func(a *Archive) {
		a.readOnly = true
	}
}

// AddOption configures a single Add.
type AddOption func(*addConfig)

type addConfig struct {
	level   int
	modTime time.Time
	comment string
}

// AddWithLevel overrides the archive's level for this entry.
func AddWithLevel(level int) AddOption {
	return func(c *addConfig) {
		c.level = level
	}
}

// AddWithModTime sets the modification time (default: now). It is stored
// at 2-second precision, and times outside 1980..2107 are clamped to that
// range.
func AddWithModTime(t time.Time) AddOption {
	return func(c *addConfig) {
		c.modTime = t
	}
}

// AddWithComment sets the entry comment.
func AddWithComment(comment string) AddOption {
	return func(c *addConfig) {
		c.comment = comment
	}
}
