package search

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	fetchTimeout = 10 * time.Second
	// maxPageText bounds how much extracted page text is fed into prompts
	maxPageText = 4000
)

// PageFetcher pulls readable text from a web page to enrich research
// context. Every failure is reported as a ToolError so callers can treat
// it as a skipped enrichment rather than a fatal condition.
type PageFetcher struct {
	client *http.Client
}

// NewPageFetcher creates a fetcher with a bounded request timeout
func NewPageFetcher() *PageFetcher {
	return &PageFetcher{
		client: &http.Client{Timeout: fetchTimeout},
	}
}

// FetchText downloads a page and extracts its readable text
func (f *PageFetcher) FetchText(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &ToolError{Query: url, Message: "invalid URL", Cause: err}
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; fitcheck/1.0)")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &ToolError{Query: url, Message: "fetch failed", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &ToolError{Query: url, Message: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", &ToolError{Query: url, Message: "failed to parse HTML", Cause: err}
	}

	return ExtractReadableText(doc), nil
}

// ExtractReadableText pulls headings and paragraph text out of a parsed
// document, skipping navigation and script noise.
func ExtractReadableText(doc *goquery.Document) string {
	doc.Find("script, style, nav, footer, header, noscript").Remove()

	var sb strings.Builder
	doc.Find("h1, h2, h3, p, li").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}
		if sb.Len()+len(text) > maxPageText {
			return
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	})

	return strings.TrimSpace(sb.String())
}
