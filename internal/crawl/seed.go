package crawl

import (
	"encoding/xml"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
)

// SeedKind classifies a crawl seed URL so it expands into the right set of
// initial frontier entries.
type SeedKind string

const (
	SeedPage    SeedKind = "page"
	SeedSitemap SeedKind = "sitemap"
	SeedLLMsTxt SeedKind = "llms_txt"
)

// ClassifySeed inspects a seed URL's path to decide how it should be
// expanded before crawling begins.
func ClassifySeed(rawURL string) SeedKind {
	u, err := url.Parse(rawURL)
	if err != nil {
		return SeedPage
	}
	base := strings.ToLower(path.Base(u.Path))
	switch {
	case base == "llms.txt":
		return SeedLLMsTxt
	case strings.HasSuffix(base, "sitemap.xml") || strings.Contains(base, "sitemap"):
		return SeedSitemap
	default:
		return SeedPage
	}
}

type sitemapURLSet struct {
	URLs []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

type sitemapIndex struct {
	Sitemaps []struct {
		Loc string `xml:"loc"`
	} `xml:"sitemap"`
}

// ExpandSitemap parses a sitemap.xml document (urlset or sitemap index,
// the latter returned as further sitemap URLs for the caller to fetch and
// re-expand) into its listed locations.
func ExpandSitemap(xmlBody []byte) (pages []string, nestedSitemaps []string, err error) {
	var urlset sitemapURLSet
	if err := xml.Unmarshal(xmlBody, &urlset); err == nil && len(urlset.URLs) > 0 {
		for _, u := range urlset.URLs {
			if loc := strings.TrimSpace(u.Loc); loc != "" {
				pages = append(pages, loc)
			}
		}
		return pages, nil, nil
	}
	var idx sitemapIndex
	if err := xml.Unmarshal(xmlBody, &idx); err != nil {
		return nil, nil, fmt.Errorf("crawl: parse sitemap: %w", err)
	}
	for _, s := range idx.Sitemaps {
		if loc := strings.TrimSpace(s.Loc); loc != "" {
			nestedSitemaps = append(nestedSitemaps, loc)
		}
	}
	return nil, nestedSitemaps, nil
}

var llmsLinkRe = regexp.MustCompile(`\[[^\]]*\]\((https?://[^\s)]+)\)`)

// ExpandLLMsTxt extracts the URLs referenced by an llms.txt document's
// markdown-style links ("- [Title](https://example.com/page): desc").
func ExpandLLMsTxt(text string) []string {
	matches := llmsLinkRe.FindAllStringSubmatch(text, -1)
	var out []string
	seen := map[string]bool{}
	for _, m := range matches {
		u := strings.TrimSpace(m[1])
		if u != "" && !seen[u] {
			seen[u] = true
			out = append(out, u)
		}
	}
	return out
}
