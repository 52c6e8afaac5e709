// Package http reads archives over HTTP range requests, so a remote archive
// can be listed and verified without downloading it.
package http //nolint:revive // intentional naming for domain clarity

import (
	"context"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"strconv"
	"strings"
)

// DefaultTailSize is how many trailing bytes NewSource prefetches. The end
// record and, for most archives, the whole central directory fall inside it.
const DefaultTailSize = 64 << 10

// ErrRangeUnsupported is returned when the server ignores Range headers.
var ErrRangeUnsupported = errors.New("http: range requests not supported")

// ErrChanged is returned when conditional reads detect that the remote
// content changed after the source was opened.
var ErrChanged = errors.New("http: remote content changed")

// Source implements random access reads via HTTP range requests.
// It satisfies io.ReaderAt plus Size, as the archive reader expects.
type Source struct {
	url                   string
	client                *nethttp.Client
	headers               nethttp.Header
	size                  int64
	etag                  string
	lastModified          string
	useConditionalHeaders bool

	tailSize int64
	tail     []byte
	tailOff  int64
}

// Option configures a Source.
type Option func(*Source)

// WithClient sets the HTTP client used for requests.
func WithClient(client *nethttp.Client) Option {
	return func(s *Source) {
		s.client = client
	}
}

// WithHeader sets a single header on each request.
func WithHeader(key, value string) Option {
	return func(s *Source) {
		if s.headers == nil {
			s.headers = make(nethttp.Header)
		}
		s.headers.Set(key, value)
	}
}

// WithConditionalHeaders sends If-Match or If-Unmodified-Since with every
// range read, so a remote that changes mid-read fails with ErrChanged
// instead of mixing bytes of two versions.
func WithConditionalHeaders() Option {
	return func(s *Source) {
		s.useConditionalHeaders = true
	}
}

// WithTailSize sets how many trailing bytes are prefetched and served from
// memory. Zero disables the prefetch.
func WithTailSize(n int64) Option {
	return func(s *Source) {
		s.tailSize = max(n, 0)
	}
}

// NewSource creates a Source backed by HTTP range requests. It issues one
// suffix range request that both reports the content size and prefetches
// the tail of the archive. ctx bounds only that request; later reads are
// bounded by the client's timeout or by ReadAtContext.
func NewSource(ctx context.Context, url string, opts ...Option) (*Source, error) {
	s := &Source{
		url:      url,
		client:   nethttp.DefaultClient,
		tailSize: DefaultTailSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		s.client = nethttp.DefaultClient
	}
	if err := s.fetchTail(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Size returns the total size of the remote content.
func (s *Source) Size() int64 {
	return s.size
}

// ReadAt reads len(p) bytes from the remote at the given offset. It
// implements [io.ReaderAt]. Reads inside the prefetched tail are served
// from memory.
func (s *Source) ReadAt(p []byte, off int64) (int, error) {
	return s.ReadAtContext(context.Background(), p, off)
}

// ReadAtContext is ReadAt with ctx bounding any remote request.
func (s *Source) ReadAtContext(ctx context.Context, p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if off < 0 {
		return 0, fmt.Errorf("read at %d: negative offset", off)
	}
	if off >= s.size {
		return 0, io.EOF
	}

	end := off + int64(len(p)) - 1
	expected := len(p)
	if end >= s.size {
		end = s.size - 1
		expected = int(end - off + 1)
	}

	var n int
	if s.tail != nil && off >= s.tailOff {
		n = copy(p[:expected], s.tail[off-s.tailOff:])
	} else {
		var err error
		n, err = s.readRemote(ctx, p[:expected], off, end)
		if err != nil {
			return n, err
		}
	}
	if expected < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (s *Source) readRemote(ctx context.Context, p []byte, off, end int64) (int, error) {
	resp, err := s.rangeRequest(ctx, fmt.Sprintf("bytes=%d-%d", off, end), true)
	if err != nil {
		return 0, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // best-effort drain for connection reuse
		_ = resp.Body.Close()
	}()

	switch resp.StatusCode {
	case nethttp.StatusPartialContent:
		// ok
	case nethttp.StatusRequestedRangeNotSatisfiable:
		return 0, io.EOF
	case nethttp.StatusPreconditionFailed:
		return 0, fmt.Errorf("%w: %s", ErrChanged, s.url)
	case nethttp.StatusOK:
		return 0, ErrRangeUnsupported
	default:
		return 0, fmt.Errorf("range request failed: %s", resp.Status)
	}
	return io.ReadFull(resp.Body, p)
}

// fetchTail learns the content size and validators, and caches the last
// tailSize bytes. With the prefetch disabled it requests a single byte.
func (s *Source) fetchTail(ctx context.Context) error {
	spec := "bytes=0-0"
	if s.tailSize > 0 {
		spec = "bytes=-" + strconv.FormatInt(s.tailSize, 10)
	}
	resp, err := s.rangeRequest(ctx, spec, false)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // best-effort drain for connection reuse
		_ = resp.Body.Close()
	}()

	switch resp.StatusCode {
	case nethttp.StatusPartialContent:
		// ok
	case nethttp.StatusOK:
		return ErrRangeUnsupported
	default:
		return fmt.Errorf("tail request failed: %s", resp.Status)
	}

	crange := resp.Header.Get("Content-Range")
	if crange == "" {
		return errors.New("tail response missing Content-Range")
	}
	start, size, err := parseContentRange(crange)
	if err != nil {
		return err
	}
	s.size = size
	s.etag = resp.Header.Get("ETag")
	s.lastModified = resp.Header.Get("Last-Modified")

	if s.tailSize > 0 {
		tail := make([]byte, size-start)
		if _, err := io.ReadFull(resp.Body, tail); err != nil {
			return fmt.Errorf("read tail: %w", err)
		}
		s.tail = tail
		s.tailOff = start
	}
	return nil
}

// newRequest creates an HTTP request with configured headers and optional conditional headers.
func (s *Source) newRequest(ctx context.Context, withConditions bool) (*nethttp.Request, error) {
	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodGet, s.url, nethttp.NoBody)
	if err != nil {
		return nil, err
	}
	for key, values := range s.headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	if req.Header.Get("Accept-Encoding") == "" {
		req.Header.Set("Accept-Encoding", "identity")
	}
	if withConditions && s.useConditionalHeaders {
		if s.etag != "" && req.Header.Get("If-Match") == "" {
			req.Header.Set("If-Match", s.etag)
		}
		if s.lastModified != "" && req.Header.Get("If-Unmodified-Since") == "" {
			req.Header.Set("If-Unmodified-Since", s.lastModified)
		}
	}
	return req, nil
}

// rangeRequest performs a GET request with the given Range header value.
func (s *Source) rangeRequest(ctx context.Context, spec string, withConditions bool) (*nethttp.Response, error) {
	req, err := s.newRequest(ctx, withConditions)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Range", spec)
	return s.client.Do(req)
}

// parseContentRange extracts the first byte position and the total size
// from a Content-Range header value of the form "bytes start-end/size".
func parseContentRange(value string) (start, size int64, err error) {
	invalid := fmt.Errorf("invalid Content-Range %q", value)
	value = strings.TrimSpace(value)
	if !strings.HasPrefix(value, "bytes ") {
		return 0, 0, invalid
	}
	span, total, ok := strings.Cut(strings.TrimPrefix(value, "bytes "), "/")
	if !ok || total == "*" {
		return 0, 0, invalid
	}
	first, _, ok := strings.Cut(span, "-")
	if !ok {
		return 0, 0, invalid
	}
	start, err = strconv.ParseInt(first, 10, 64)
	if err != nil {
		return 0, 0, invalid
	}
	size, err = strconv.ParseInt(total, 10, 64)
	if err != nil || size < 0 || start < 0 || start > size {
		return 0, 0, invalid
	}
	return start, size, nil
}
