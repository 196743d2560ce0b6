// Package search wraps external web search behind a uniform synchronous
// interface with failure isolation.
package search

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"
)

// defaultResultCount is how many results a single query returns
const defaultResultCount = 5

// Result is one web search hit
type Result struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// Searcher executes one synchronous web search per query, no pagination
type Searcher interface {
	Search(ctx context.Context, query string) ([]Result, error)
}

// GoogleSearcher implements Searcher over Google Custom Search
type GoogleSearcher struct {
	svc *customsearch.Service
	cx  string
	num int64
}

// NewGoogleSearcher creates a Custom Search backed searcher
func NewGoogleSearcher(ctx context.Context, apiKey, cx string) (*GoogleSearcher, error) {
	if apiKey == "" || cx == "" {
		return nil, fmt.Errorf("search API key and engine ID are required")
	}

	svc, err := customsearch.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create customsearch service: %w", err)
	}
	return &GoogleSearcher{svc: svc, cx: cx, num: defaultResultCount}, nil
}

// Search runs one query and returns its hits
func (s *GoogleSearcher) Search(ctx context.Context, query string) ([]Result, error) {
	resp, err := s.svc.Cse.List().Context(ctx).Cx(s.cx).Q(query).Num(s.num).Do()
	if err != nil {
		return nil, &ToolError{Query: query, Message: "request failed", Cause: err}
	}

	results := make([]Result, 0, len(resp.Items))
	for _, item := range resp.Items {
		results = append(results, Result{
			Title:   item.Title,
			Link:    item.Link,
			Snippet: item.Snippet,
		})
	}
	return results, nil
}

// FormatResults renders hits as a compact text block for prompt inclusion
func FormatResults(results []Result) string {
	if len(results) == 0 {
		return "No results."
	}

	var sb strings.Builder
	for i, r := range results {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, r.Title))
		if r.Snippet != "" {
			sb.WriteString(fmt.Sprintf("   %s\n", r.Snippet))
		}
		if r.Link != "" {
			sb.WriteString(fmt.Sprintf("   (%s)\n", r.Link))
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
