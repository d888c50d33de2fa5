package crawl

import (
	"fmt"
	"net/url"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

// ExtractMainContent converts a fetched page's HTML to canonical markdown,
// preferring the readability-extracted article body and falling back to
// the full document when extraction finds nothing article-shaped.
func ExtractMainContent(rawHTML, finalURL string) (title, markdown string, err error) {
	base, _ := url.Parse(finalURL)
	articleHTML := rawHTML
	if art, aerr := readability.FromReader(strings.NewReader(rawHTML), base); aerr == nil && strings.TrimSpace(art.Content) != "" {
		articleHTML = art.Content
		title = strings.TrimSpace(art.Title)
	}

	origin := ""
	if base != nil && base.Scheme != "" && base.Host != "" {
		origin = base.Scheme + "://" + base.Host
	}
	md, err := htmltomarkdown.ConvertString(articleHTML, converter.WithDomain(origin))
	if err != nil {
		return "", "", fmt.Errorf("crawl: html to markdown: %w", err)
	}
	md = strings.TrimSpace(md)
	if title != "" && !strings.HasPrefix(strings.TrimLeft(md, "\n"), "# ") {
		md = "# " + title + "\n\n" + md
	}
	return title, md, nil
}

// ExtractLinks walks the parsed HTML document for anchor hrefs, resolving
// each against baseURL and discarding anything that isn't http(s).
func ExtractLinks(rawHTML, baseURL string) ([]string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("crawl: parse base url: %w", err)
	}
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("crawl: parse html: %w", err)
	}

	var links []string
	seen := map[string]bool{}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key != "href" {
					continue
				}
				href := strings.TrimSpace(attr.Val)
				if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
					continue
				}
				ref, err := url.Parse(href)
				if err != nil {
					continue
				}
				resolved := base.ResolveReference(ref)
				if resolved.Scheme != "http" && resolved.Scheme != "https" {
					continue
				}
				resolved.Fragment = ""
				abs := resolved.String()
				if !seen[abs] {
					seen[abs] = true
					links = append(links, abs)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return links, nil
}
