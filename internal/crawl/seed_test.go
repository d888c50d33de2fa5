package crawl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifySeedDetectsSitemap(t *testing.T) {
	assert.Equal(t, SeedSitemap, ClassifySeed("https://example.com/sitemap.xml"))
}

func TestClassifySeedDetectsLLMsTxt(t *testing.T) {
	assert.Equal(t, SeedLLMsTxt, ClassifySeed("https://example.com/llms.txt"))
}

func TestClassifySeedDefaultsToPage(t *testing.T) {
	assert.Equal(t, SeedPage, ClassifySeed("https://example.com/docs/intro"))
}

func TestExpandSitemapParsesURLSet(t *testing.T) {
	xml := []byte(`<?xml version="1.0"?>
<urlset><url><loc>https://example.com/a</loc></url><url><loc>https://example.com/b</loc></url></urlset>`)
	pages, nested, err := ExpandSitemap(xml)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/a", "https://example.com/b"}, pages)
	assert.Empty(t, nested)
}

func TestExpandSitemapParsesSitemapIndex(t *testing.T) {
	xml := []byte(`<?xml version="1.0"?>
<sitemapindex><sitemap><loc>https://example.com/sitemap-1.xml</loc></sitemap></sitemapindex>`)
	pages, nested, err := ExpandSitemap(xml)
	require.NoError(t, err)
	assert.Empty(t, pages)
	assert.Equal(t, []string{"https://example.com/sitemap-1.xml"}, nested)
}

func TestExpandLLMsTxtExtractsMarkdownLinks(t *testing.T) {
	text := "# Docs\n\n- [Intro](https://example.com/intro): the intro page\n- [API](https://example.com/api): reference\n"
	links := ExpandLLMsTxt(text)
	assert.Equal(t, []string{"https://example.com/intro", "https://example.com/api"}, links)
}

func TestExpandLLMsTxtDedupsRepeatedLinks(t *testing.T) {
	text := "[a](https://example.com/a) and again [a](https://example.com/a)"
	assert.Equal(t, []string{"https://example.com/a"}, ExpandLLMsTxt(text))
}
