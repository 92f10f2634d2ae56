package crawler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/siterag/siterag/internal/log"
	"github.com/siterag/siterag/internal/retry"
	"github.com/siterag/siterag/internal/security"
)

// The site moved hosts at some point; old sitemaps still carry the GitHub
// Pages origin. This is a one-off migration shim, not general rewriting.
const (
	legacyHost    = "https://muhammad-saad-ahmed.github.io/"
	canonicalHost = "https://hackathon-in-classnew.vercel.app/"
)

// SitemapResolver fetches a sitemap document and extracts its page URLs.
type SitemapResolver struct {
	client     *http.Client
	sitemapURL string
	retryCfg   retry.Config
	logger     log.Logger
}

// NewSitemapResolver creates a resolver for the given sitemap URL. A nil
// client gets a default with DefaultTimeout.
func NewSitemapResolver(client *http.Client, sitemapURL string, logger log.Logger) *SitemapResolver {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &SitemapResolver{
		client:     client,
		sitemapURL: sitemapURL,
		retryCfg:   retry.DefaultConfig(),
		logger:     logger,
	}
}

// Resolve fetches and parses the sitemap, returning sanitized page URLs in
// document order. Duplicates are kept as-is. A fetch failure is propagated
// (wrapping ErrFetch) rather than swallowed: an empty URL list downstream
// would be indistinguishable from success.
func (r *SitemapResolver) Resolve(ctx context.Context) ([]string, error) {
	r.logger.Info("fetching sitemap", "url", r.sitemapURL)

	body, err := fetch(ctx, r.client, r.sitemapURL, r.retryCfg)
	if err != nil {
		return nil, fmt.Errorf("sitemap %s: %w", r.sitemapURL, err)
	}

	// goquery parses via net/html, which handles sitemap XML the way a
	// lenient HTML parser would: unknown elements nest fine and <loc>
	// text comes through untouched.
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse sitemap %s: %w", r.sitemapURL, err)
	}

	var urls []string
	doc.Find("url").Each(func(_ int, sel *goquery.Selection) {
		loc := strings.TrimSpace(sel.Find("loc").First().Text())
		if loc == "" {
			return
		}

		loc = strings.ReplaceAll(loc, legacyHost, canonicalHost)

		sanitized, ok := security.SanitizeURL(loc)
		if !ok {
			r.logger.Warn("dropping unsafe sitemap entry", "loc", loc)
			return
		}
		urls = append(urls, sanitized)
	})

	r.logger.Info("sitemap resolved", "urls", len(urls))
	return urls, nil
}
