// Package crawler turns a documentation site into clean text: the sitemap
// resolver lists the site's page URLs and the extractor reduces one page's
// HTML to a plain-text body with provenance metadata.
//
// Both components treat the network as unreliable: fetches run under a
// bounded timeout and the shared retry policy, and failures carry sentinel
// errors so callers can distinguish a bad URL from a bad network day.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/siterag/siterag/internal/retry"
)

var (
	// ErrFetch indicates an HTTP transport failure or non-2xx response.
	ErrFetch = errors.New("fetch failed")

	// ErrInvalidURL indicates a URL rejected by the sanitizer.
	ErrInvalidURL = errors.New("invalid url")

	// ErrExtraction indicates no usable text survived cleaning.
	ErrExtraction = errors.New("no content extracted")
)

// DefaultTimeout bounds a single page or sitemap fetch.
const DefaultTimeout = 30 * time.Second

// maxResponseSize caps page bodies to keep a pathological page from
// exhausting memory.
const maxResponseSize = 10 << 20 // 10MB

// Page is the extraction result for one URL. It is immutable once built
// and consumed exactly once by the chunker.
type Page struct {
	URL      string
	Title    string
	Content  string
	Metadata Metadata
}

// Metadata preserves source provenance for every chunk derived from the
// page.
type Metadata struct {
	SourceURL     string
	Title         string
	ContentLength int
	ExtractedAt   time.Time
	ContentType   string
}

// fetch retrieves url with the retry policy applied and the response body
// size-capped. Non-2xx statuses are errors; 5xx texts match the retry
// predicate's transient patterns so they get retried, 4xx do not.
func fetch(ctx context.Context, client *http.Client, url string, cfg retry.Config) ([]byte, error) {
	return retry.Do(ctx, cfg, func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFetch, err)
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFetch, err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("%w: unexpected status %d", ErrFetch, resp.StatusCode)
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		if err != nil {
			return nil, fmt.Errorf("%w: read body: %v", ErrFetch, err)
		}
		return body, nil
	})
}
