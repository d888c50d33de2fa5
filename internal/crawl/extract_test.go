package crawl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractLinksResolvesRelativeHrefs(t *testing.T) {
	html := `<html><body><a href="/x">x</a><a href="https://other.test/y">y</a></body></html>`
	links, err := ExtractLinks(html, "https://example.test/page")
	require.NoError(t, err)
	assert.Contains(t, links, "https://example.test/x")
	assert.Contains(t, links, "https://other.test/y")
}

func TestExtractLinksSkipsFragmentsMailtoAndJavascript(t *testing.T) {
	html := `<html><body>
		<a href="#section">s</a>
		<a href="mailto:a@b.com">m</a>
		<a href="javascript:void(0)">j</a>
		<a href="/ok">ok</a>
	</body></html>`
	links, err := ExtractLinks(html, "https://example.test/")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.test/ok"}, links)
}

func TestExtractLinksDropsNonHTTPSchemes(t *testing.T) {
	html := `<html><body><a href="ftp://example.test/file">f</a></body></html>`
	links, err := ExtractLinks(html, "https://example.test/")
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestExtractMainContentFallsBackToFullDocumentWithoutArticleBody(t *testing.T) {
	html := `<html><body><p>hello world</p></body></html>`
	_, md, err := ExtractMainContent(html, "https://example.test/")
	require.NoError(t, err)
	assert.Contains(t, md, "hello world")
}

func TestMatchesPatternsExcludeWins(t *testing.T) {
	assert.False(t, matchesPatterns("https://example.test/private/a", []string{"*"}, []string{"*private*"}))
}

func TestMatchesPatternsNoIncludeMeansAllowAll(t *testing.T) {
	assert.True(t, matchesPatterns("https://example.test/anything", nil, nil))
}

func TestMatchesPatternsRequiresIncludeMatch(t *testing.T) {
	assert.False(t, matchesPatterns("https://example.test/blog/post", []string{"*docs*"}, nil))
	assert.True(t, matchesPatterns("https://example.test/docs/post", []string{"*docs*"}, nil))
}
