package file

import (
	"context"
	"io"
)

// CopyWithContext copies from src to dst through buf until EOF or error,
// checking for cancellation between reads. Peak memory stays bounded by
// len(buf). Failures writing to dst are reported as *sinkError.
//
//nolint:gocognit // Follows stdlib io.Copy pattern
func CopyWithContext(ctx context.Context, dst io.Writer, src io.Reader, buf []byte) (uint64, error) {
	var written uint64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		nr, er := src.Read(buf)
		if nr > 0 {
			nw, ew := dst.Write(buf[:nr])
			if nw > 0 {
				//nolint:gosec // nw is guaranteed non-negative by io.Writer contract
				if written > ^uint64(0)-uint64(nw) {
					return written, ErrOverflow
				}
				written += uint64(nw) //nolint:gosec // overflow checked above
			}
			if ew != nil {
				return written, &sinkError{err: ew}
			}
			if nw != nr {
				return written, &sinkError{err: io.ErrShortWrite}
			}
		}
		if er != nil {
			if er == io.EOF {
				return written, nil
			}
			return written, er
		}
	}
}

// sinkError marks a failure writing to the destination rather than
// reading the entry.
type sinkError struct {
	err error
}

func (e *sinkError) Error() string { return "write: " + e.err.Error() }

func (e *sinkError) Unwrap() error { return e.err }
