package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCrawlWebsiteArgsApplyDefaultsFillsUnsetFields(t *testing.T) {
	got := CrawlWebsiteArgs{URL: "https://example.test"}.ApplyDefaults()
	assert.Equal(t, 3, got.MaxDepth)
	assert.Equal(t, 1000, got.MaxPages)
	require.NotNil(t, got.FollowLinks)
	assert.True(t, *got.FollowLinks)
	assert.Equal(t, 5, got.BatchSize)
	require.NotNil(t, got.JSEnabled)
	assert.True(t, *got.JSEnabled)
	require.NotNil(t, got.RespectRobotsTxt)
	assert.True(t, *got.RespectRobotsTxt)
}

func TestCrawlWebsiteArgsApplyDefaultsPreservesExplicitFalse(t *testing.T) {
	f := false
	got := CrawlWebsiteArgs{URL: "https://example.test", FollowLinks: &f, JSEnabled: &f, RespectRobotsTxt: &f}.ApplyDefaults()
	assert.False(t, *got.FollowLinks)
	assert.False(t, *got.JSEnabled)
	assert.False(t, *got.RespectRobotsTxt)
}

func TestIngestDocumentsRejectsEmptyPaths(t *testing.T) {
	h := &Handlers{}
	_, err := h.IngestDocuments(context.Background(), IngestDocumentsArgs{Collection: "c"})
	assert.ErrorContains(t, err, "invalid path")
}

func TestIngestDocumentsRejectsMissingCollection(t *testing.T) {
	h := &Handlers{}
	_, err := h.IngestDocuments(context.Background(), IngestDocumentsArgs{Paths: []string{"a.md"}})
	assert.ErrorContains(t, err, "collection")
}

func TestCrawlWebsiteRejectsMalformedURL(t *testing.T) {
	h := &Handlers{}
	_, err := h.CrawlWebsite(context.Background(), CrawlWebsiteArgs{URL: "http://%zz", Collection: "c"})
	assert.ErrorContains(t, err, "malformed URL")
}

func TestSearchDocumentsRejectsEmptyQuery(t *testing.T) {
	h := &Handlers{}
	_, err := h.SearchDocuments(context.Background(), SearchDocumentsArgs{Collection: "c"})
	assert.ErrorContains(t, err, "empty query")
}

func TestRemoveSourceRejectsMissingIdentity(t *testing.T) {
	h := &Handlers{}
	_, err := h.RemoveSource(context.Background(), RemoveSourceArgs{Collection: "c"})
	assert.ErrorContains(t, err, "source_path or source_url")
}

func TestToAnySliceConvertsEachElement(t *testing.T) {
	got := toAnySlice([]string{"a", "b"})
	assert.Equal(t, []any{"a", "b"}, got)
}

func TestToAnySliceEmptyInputYieldsEmptySlice(t *testing.T) {
	got := toAnySlice(nil)
	assert.Empty(t, got)
}
