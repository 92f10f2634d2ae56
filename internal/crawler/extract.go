package crawler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/siterag/siterag/internal/log"
	"github.com/siterag/siterag/internal/retry"
	"github.com/siterag/siterag/internal/security"
)

// boilerplateSelectors are removed before any text is read. The class-based
// entries cover the wrappers documentation frameworks (Docusaurus in
// particular) put around navigation chrome.
var boilerplateSelectors = []string{
	"nav", "header", "footer", "aside",
	".nav", ".navbar", ".navigation",
	".header", ".topbar", ".header-wrapper",
	".footer", ".bottom", ".footer-wrapper",
	".sidebar", ".sidenav", ".side-nav",
	".toc", ".table-of-contents",
	".theme-edit-this-page",
	".pagination", ".pager",
	".social", ".share",
	".comments", ".disqus",
	".ads", ".advertisement",
}

// contentSelectors are tried in order; the first match supplies the body
// text. The list runs from the most specific documentation wrappers down
// to a bare article tag, with a final fallback to <body> in extract().
var contentSelectors = []string{
	"main",
	".main-wrapper",
	".container",
	".theme-doc-markdown",
	".markdown",
	".doc-content",
	".content",
	"article",
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// Extractor fetches one page and reduces its HTML to clean text.
type Extractor struct {
	client   *http.Client
	retryCfg retry.Config
	logger   log.Logger
}

// NewExtractor creates an Extractor. A nil client gets a default with
// DefaultTimeout.
func NewExtractor(client *http.Client, logger log.Logger) *Extractor {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Extractor{
		client:   client,
		retryCfg: retry.DefaultConfig(),
		logger:   logger,
	}
}

// Extract fetches url and returns its cleaned text content plus title and
// provenance metadata.
//
// The URL is re-validated even though sitemap entries were already
// sanitized; Extract is also reachable with operator-supplied URLs.
// Failures are per-URL: callers should log and continue, not abort a run.
func (e *Extractor) Extract(ctx context.Context, url string) (*Page, error) {
	sanitized, ok := security.SanitizeURL(url)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, url)
	}

	e.logger.Info("extracting", "url", sanitized)

	body, err := fetch(ctx, e.client, sanitized, e.retryCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %v", ErrExtraction, sanitized, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrExtraction, sanitized, err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = "No Title"
	}

	for _, selector := range boilerplateSelectors {
		doc.Find(selector).Remove()
	}
	doc.Find("script, style").Remove()

	var content string
	for _, selector := range contentSelectors {
		if sel := doc.Find(selector).First(); sel.Length() > 0 {
			content = selectionText(sel)
			break
		}
	}
	if content == "" {
		content = selectionText(doc.Find("body").First())
	}

	content = strings.TrimSpace(whitespaceRe.ReplaceAllString(content, " "))
	if content == "" {
		return nil, fmt.Errorf("%w: %s", ErrExtraction, sanitized)
	}

	page := &Page{
		URL:     sanitized,
		Title:   title,
		Content: content,
		Metadata: Metadata{
			SourceURL:     sanitized,
			Title:         title,
			ContentLength: len(content),
			ExtractedAt:   time.Now(),
			ContentType:   "docusaurus_page",
		},
	}

	e.logger.Info("extracted", "url", sanitized, "title", title, "content_length", len(content))
	return page, nil
}

// selectionText collects the selection's text nodes separated by single
// spaces, so text from adjacent elements does not run together. The
// whitespace collapse afterwards removes the extra separators again.
func selectionText(sel *goquery.Selection) string {
	var sb strings.Builder
	for _, node := range sel.Nodes {
		appendText(node, &sb)
	}
	return sb.String()
}

func appendText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		sb.WriteByte(' ')
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		appendText(c, sb)
	}
}
