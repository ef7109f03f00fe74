// Package sources contains the per-provider fetch adapters and the
// coordinator that fans out over them.
package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/morningbyte/morningbyte/internal/digest"
)

const userAgent = "morningbyte/1.0 (daily tech digest)"

// FailureKind classifies why a fetch failed.
type FailureKind string

const (
	FailureNetwork     FailureKind = "network"
	FailureTimeout     FailureKind = "timeout"
	FailureRateLimited FailureKind = "rate_limited"
	FailureMalformed   FailureKind = "malformed"
)

// FetchError is the only error type adapters return: a classified,
// whole-adapter failure.
type FetchError struct {
	Kind FailureKind
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Failure is one report entry: a failed source (or failed feed endpoint
// within the generic-feed adapter) with its classification.
type Failure struct {
	Source  string
	Kind    FailureKind
	Message string
}

// Result is a successful fetch. Partial carries per-endpoint failures for
// adapters that aggregate several independent endpoints (generic feeds);
// for every other adapter it is nil.
type Result struct {
	Articles []digest.Article
	Partial  []Failure
}

// Source is one provider adapter. Fetch returns either a Result or a
// *FetchError, never both and never a partial success (the generic-feed
// adapter reports per-feed trouble through Result.Partial instead).
type Source interface {
	Name() string
	Kind() digest.SourceKind
	MaxItems() int
	Fetch(ctx context.Context) (Result, error)
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

// getJSON fetches url and decodes the JSON body into v, classifying every
// failure mode along the way.
func getJSON(ctx context.Context, client *http.Client, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &FetchError{Kind: FailureNetwork, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return classify(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return &FetchError{Kind: FailureRateLimited, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	case resp.StatusCode >= 400:
		return &FetchError{Kind: FailureNetwork, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return &FetchError{Kind: FailureMalformed, Err: err}
	}
	return nil
}

// classify coerces an arbitrary error into a *FetchError. Deadline overruns
// become timeouts, everything unrecognized is a network failure.
func classify(err error) *FetchError {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &FetchError{Kind: FailureTimeout, Err: err}
	}
	var ne interface{ Timeout() bool }
	if errors.As(err, &ne) && ne.Timeout() {
		return &FetchError{Kind: FailureTimeout, Err: err}
	}
	return &FetchError{Kind: FailureNetwork, Err: err}
}
