package search

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatResults(t *testing.T) {
	results := []Result{
		{Title: "Acme Corp Careers", Link: "https://acme.example/careers", Snippet: "Join our team"},
		{Title: "Acme Corp Engineering Blog", Link: "https://acme.example/blog"},
	}

	text := FormatResults(results)

	assert.Contains(t, text, "1. Acme Corp Careers")
	assert.Contains(t, text, "Join our team")
	assert.Contains(t, text, "2. Acme Corp Engineering Blog")
	assert.Contains(t, text, "(https://acme.example/blog)")
}

func TestFormatResults_Empty(t *testing.T) {
	assert.Equal(t, "No results.", FormatResults(nil))
}

func TestNewGoogleSearcher_RequiresCredentials(t *testing.T) {
	_, err := NewGoogleSearcher(context.Background(), "", "cx")
	assert.Error(t, err)

	_, err = NewGoogleSearcher(context.Background(), "key", "")
	assert.Error(t, err)
}

func TestToolError_Unwrap(t *testing.T) {
	cause := errors.New("quota exceeded")
	err := &ToolError{Query: "acme culture", Message: "request failed", Cause: cause}

	assert.Contains(t, err.Error(), "acme culture")
	assert.ErrorIs(t, err, cause)
}

func TestExtractReadableText(t *testing.T) {
	html := `<html><head><script>tracking()</script></head><body>
		<nav><a href="/">Home</a></nav>
		<h1>About Acme</h1>
		<p>We build developer tools.</p>
		<ul><li>Remote-first culture</li></ul>
		<footer>Copyright Acme</footer>
	</body></html>`

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	text := ExtractReadableText(doc)

	assert.Contains(t, text, "About Acme")
	assert.Contains(t, text, "We build developer tools.")
	assert.Contains(t, text, "Remote-first culture")
	assert.NotContains(t, text, "tracking()")
	assert.NotContains(t, text, "Copyright Acme")
	assert.NotContains(t, text, "Home")
}

func TestExtractReadableText_BoundsLength(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("<html><body>")
	for i := 0; i < 500; i++ {
		sb.WriteString("<p>")
		sb.WriteString(strings.Repeat("word ", 20))
		sb.WriteString("</p>")
	}
	sb.WriteString("</body></html>")

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(sb.String()))
	require.NoError(t, err)

	text := ExtractReadableText(doc)
	assert.LessOrEqual(t, len(text), maxPageText+1)
}
