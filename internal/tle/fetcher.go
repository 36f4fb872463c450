package tle

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

const (
	defaultSourceURL = "https://celestrak.org/NORAD/elements/gp.php?GROUP=active&FORMAT=tle"

	// DefaultFetchTimeout bounds a single catalog request.
	DefaultFetchTimeout = 60 * time.Second

	maxBodyBytes = 50 << 20
)

// FetchError is the single error shape for every catalog fetch failure:
// network errors, timeouts, non-200 responses and oversized bodies.
type FetchError struct {
	URL        string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("catalog fetch from %s failed: unexpected status code %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("catalog fetch from %s failed: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ErrorCode returns the stable code used in API responses.
func (e *FetchError) ErrorCode() string { return "catalog_fetch_failed" }

// Fetcher retrieves raw TLE catalog text from a primary source, falling back
// to mirror sources when the primary fails.
type Fetcher struct {
	sourceURL  string
	extraURLs  []string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewFetcher creates a Fetcher for the given source URL. Extra URLs are
// mirrors, consulted only when every source before them has failed.
func NewFetcher(sourceURL string, logger *slog.Logger, extraURLs ...string) *Fetcher {
	if sourceURL == "" {
		sourceURL = defaultSourceURL
	}
	return &Fetcher{
		sourceURL: sourceURL,
		extraURLs: extraURLs,
		httpClient: &http.Client{
			Timeout: DefaultFetchTimeout,
		},
		logger: logger,
	}
}

// SetTimeout changes the per-request timeout. Non-positive values are ignored.
func (f *Fetcher) SetTimeout(d time.Duration) {
	if d > 0 {
		f.httpClient.Timeout = d
	}
}

// SourceURL returns the configured source URL.
func (f *Fetcher) SourceURL() string {
	return f.sourceURL
}

// Fetch GETs the primary source and returns its body unparsed. When the
// primary fails, the extra sources are tried in order and the first success
// wins. If every source fails, the error is the *FetchError of the last one.
func (f *Fetcher) Fetch(ctx context.Context) ([]byte, error) {
	urls := append([]string{f.sourceURL}, f.extraURLs...)

	var lastErr error
	for i, u := range urls {
		body, err := f.fetchOne(ctx, u)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if i < len(urls)-1 {
			f.logger.Warn("TLE source failed, trying next mirror",
				"component", "tle_fetcher",
				"url", u,
				"error", err,
			)
		}
	}
	return nil, lastErr
}

func (f *Fetcher) fetchOne(ctx context.Context, url string) ([]byte, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: errors.Wrap(err, "creating request")}
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: errors.Wrap(err, "fetching TLE data")}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode, Err: errors.Errorf("status %s", resp.Status)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, &FetchError{URL: url, Err: errors.Wrap(err, "reading response body")}
	}
	if len(body) > maxBodyBytes {
		return nil, &FetchError{URL: url, Err: errors.Errorf("response exceeds %d byte limit", maxBodyBytes)}
	}

	f.logger.Debug("fetched TLE source",
		"component", "tle_fetcher",
		"url", url,
		"bytes", len(body),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return body, nil
}
