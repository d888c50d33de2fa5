package crawl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSameRegistrableDomainMatchesSubdomains(t *testing.T) {
	assert.True(t, sameRegistrableDomain("https://example.com/", "https://docs.example.com/guide"))
	assert.True(t, sameRegistrableDomain("https://www.example.com/", "https://example.com/about"))
}

func TestSameRegistrableDomainRejectsOtherDomains(t *testing.T) {
	assert.False(t, sameRegistrableDomain("https://example.com/", "https://other.test/y"))
}

func TestSameRegistrableDomainRejectsMalformedURL(t *testing.T) {
	assert.False(t, sameRegistrableDomain("https://example.com/", "://not a url"))
}
