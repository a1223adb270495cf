package streaming

import (
	"context"
	"io"
	"math"
	"net/http"
	"time"

	pkgerrors "meetscribe/internal/errors"
)

// retriableStatus is the status-force-list spec.md §4.5 names for HTTP
// GET retries, grounded on the original implementation's
// urllib3.util.retry.Retry(status_forcelist=[429, 500, 502, 503, 504]).
var retriableStatus = map[int]bool{
	429: true,
	500: true,
	502: true,
	503: true,
	504: true,
}

// HTTPReader streams a presigned object-store URL or any other http(s)
// resource, retrying transport errors and the status-forcelist above with
// an exponential backoff factor of 2, up to maxAttempts tries.
type HTTPReader struct {
	client      *http.Client
	maxAttempts int
}

// NewHTTPReader builds an HTTPReader with a 300-second overall request
// timeout (spec.md §4.5).
func NewHTTPReader(maxAttempts int) *HTTPReader {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &HTTPReader{
		client:      &http.Client{Timeout: 300 * time.Second},
		maxAttempts: maxAttempts,
	}
}

func (r *HTTPReader) Open(ctx context.Context, url string) (io.ReadCloser, error) {
	var lastErr error
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		if attempt > 0 {
			wait := time.Duration(math.Pow(2, float64(attempt))) * time.Second
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, &pkgerrors.StreamingError{URL: url, Err: err}
		}

		resp, err := r.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if retriableStatus[resp.StatusCode] {
			resp.Body.Close()
			lastErr = &httpStatusError{status: resp.StatusCode}
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			resp.Body.Close()
			return nil, &pkgerrors.StreamingError{URL: url, Err: &httpStatusError{status: resp.StatusCode}}
		}

		return resp.Body, nil
	}

	return nil, &pkgerrors.NetworkRetryExhaustedError{URL: url, Attempts: r.maxAttempts, Err: lastErr}
}

type httpStatusError struct {
	status int
}

func (e *httpStatusError) Error() string {
	return "unexpected status code " + http.StatusText(e.status)
}
