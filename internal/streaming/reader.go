// Package streaming implements the polymorphic byte-source abstraction
// spec.md §4.5 requires: a lazy, finite, non-restartable chunk sequence
// over S3-native and HTTP(S) URLs, with retry/backoff baked into each
// reader rather than left to the caller.
package streaming

import (
	"context"
	"fmt"
	"io"
	"strings"

	pkgerrors "meetscribe/internal/errors"
)

// Reader opens a URL and returns a ReadCloser streaming its body. Callers
// read it to exhaustion and Close it; it cannot be rewound or reopened.
type Reader interface {
	Open(ctx context.Context, url string) (io.ReadCloser, error)
}

// windowSize is the per-read chunk size the S3 reader copies in, matching
// spec.md §4.5's "8 KiB windows".
const windowSize = 8 * 1024

// ForURL selects the Reader variant for url's scheme. Only s3:// and
// http(s):// are recognized; any other scheme is rejected at upload time
// per spec.md §6, so reaching this with an unknown scheme is itself a
// streaming error.
func ForURL(url string, s3 Reader, http Reader) (Reader, error) {
	switch {
	case strings.HasPrefix(url, "s3://"):
		return s3, nil
	case strings.HasPrefix(url, "http://"), strings.HasPrefix(url, "https://"):
		return http, nil
	default:
		return nil, &pkgerrors.StreamingError{URL: url, Err: fmt.Errorf("unsupported scheme")}
	}
}
