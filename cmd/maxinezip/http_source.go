package main

import (
	"context"
	"log/slog"
	nethttp "net/http"
	"strings"
	"time"

	maxinezip "github.com/uwx/MaxineZip"
	ziphttp "github.com/uwx/MaxineZip/http"
)

// openTarget opens a read-only session over a local path or an http(s) URL.
func openTarget(ctx context.Context, target string, logger *slog.Logger) (*maxinezip.Archive, error) {
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		return maxinezip.OpenFile(target, maxinezip.WithReadOnly(), maxinezip.WithLogger(logger))
	}
	src, err := ziphttp.NewSource(ctx, target, ziphttp.WithClient(newHTTPClient()), ziphttp.WithConditionalHeaders())
	if err != nil {
		return nil, err
	}
	logger.Debug("opened remote archive", "url", target, "size", src.Size())
	return maxinezip.OpenReaderAt(src, src.Size(), maxinezip.WithLogger(logger))
}

func newHTTPClient() *nethttp.Client {
	transport := nethttp.DefaultTransport
	if base, ok := transport.(*nethttp.Transport); ok {
		transport = base.Clone()
	}
	return &nethttp.Client{Transport: transport, Timeout: 5 * time.Minute}
}
