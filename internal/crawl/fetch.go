// Package crawl implements the recursive web crawler: seed classification,
// robots.txt-aware frontier selection (store.Crawl backs the queue and the
// dedup table), fetch + main-content extraction, link discovery, and
// ingestion of each page as a web-sourced document.
package crawl

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

// FetchResult is a page fetch's raw outcome, before content extraction.
type FetchResult struct {
	StatusCode int
	HTML       string
	FinalURL   string
}

// Fetcher retrieves a page's HTML, optionally rendering JavaScript first.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, js bool, timeout time.Duration, userAgent string) (FetchResult, error)
}

// HTTPFetcher fetches pages with a plain HTTP client; it never executes
// JavaScript and ignores the js flag (callers route js requests to a
// ChromeFetcher instead).
type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewHTTPFetcher builds a fetcher with hardened transport defaults
// matching the teacher's article fetcher.
func NewHTTPFetcher(maxBytes int64) *HTTPFetcher {
	if maxBytes <= 0 {
		maxBytes = 8 * 1000 * 1000
	}
	dialer := &net.Dialer{Timeout: 7 * time.Second, KeepAlive: 30 * time.Second}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		TLSHandshakeTimeout:   7 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	return &HTTPFetcher{
		client:   &http.Client{Transport: transport},
		maxBytes: maxBytes,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string, js bool, timeout time.Duration, userAgent string) (FetchResult, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return FetchResult{}, fmt.Errorf("crawl: invalid url %q: %w", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return FetchResult{}, fmt.Errorf("crawl: unsupported scheme %q", u.Scheme)
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u.String(), nil)
	if err != nil {
		return FetchResult{}, err
	}
	if userAgent == "" {
		userAgent = "AmeliaBot/1.0 (+https://amelia.run/bot)"
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return FetchResult{}, err
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, f.maxBytes+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return FetchResult{}, fmt.Errorf("crawl: read body: %w", err)
	}
	if int64(len(body)) > f.maxBytes {
		return FetchResult{}, fmt.Errorf("crawl: response exceeds max bytes (%d)", f.maxBytes)
	}

	return FetchResult{
		StatusCode: resp.StatusCode,
		HTML:       string(body),
		FinalURL:   resp.Request.URL.String(),
	}, nil
}
