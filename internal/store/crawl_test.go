package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeURLLowercasesSchemeAndHost(t *testing.T) {
	got, err := NormalizeURL("HTTPS://Example.COM/Path")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/Path", got)
}

func TestNormalizeURLStripsTrailingSlash(t *testing.T) {
	got, err := NormalizeURL("https://example.com/docs/")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/docs", got)
}

func TestNormalizeURLKeepsBareRootSlash(t *testing.T) {
	got, err := NormalizeURL("https://example.com/")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/", got)
}

func TestNormalizeURLDropsFragment(t *testing.T) {
	got, err := NormalizeURL("https://example.com/docs#section-2")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/docs", got)
}

func TestNormalizeURLDropsDefaultPort(t *testing.T) {
	got, err := NormalizeURL("https://example.com:443/docs")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/docs", got)
}

func TestNormalizeURLKeepsNonDefaultPort(t *testing.T) {
	got, err := NormalizeURL("https://example.com:8443/docs")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com:8443/docs", got)
}

func TestNormalizeURLRejectsUnparseable(t *testing.T) {
	_, err := NormalizeURL("://not a url")
	assert.Error(t, err)
}

func TestNormalizeURLSortsQueryParameters(t *testing.T) {
	a, err := NormalizeURL("https://example.com/search?b=2&a=1")
	require.NoError(t, err)
	b, err := NormalizeURL("https://example.com/search?a=1&b=2")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, "https://example.com/search?a=1&b=2", a)
}
