package util

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Vendor calls get three attempts with a constant pause.
const (
	RetryAttempts = 3
	RetryDelay    = 500 * time.Millisecond
)

// Retry runs op until it succeeds, returns a Permanent error, the attempts are
// used up or ctx is done.
func Retry[T any](ctx context.Context, op func() (T, error)) (T, error) {
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(RetryDelay), RetryAttempts-1),
		ctx,
	)
	return backoff.RetryWithData(op, b)
}

// Permanent stops Retry immediately with err.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// StatusError turns a non-200 response into an error; 429 and 5xx stay
// retryable, everything else is permanent. The body is drained and truncated.
func StatusError(vendor string, resp *http.Response) error {
	x, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	err := fmt.Errorf("%s %d: %s", vendor, resp.StatusCode, strings.TrimSpace(string(x)))
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return err
	}
	return Permanent(err)
}
