package crawl

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/amelia-run/amelia/internal/chunker"
	"github.com/amelia-run/amelia/internal/contenthash"
	"github.com/amelia-run/amelia/internal/embedder"
	"github.com/amelia-run/amelia/internal/ratelimiter"
	"github.com/amelia-run/amelia/internal/store"
)

// Options bounds a single crawl job's scope, mirroring crawl_website's
// tool parameters.
type Options struct {
	MaxDepth         int
	MaxPages         int
	FollowLinks      bool
	IncludePatterns  []string
	ExcludePatterns  []string
	BatchSize        int
	JSEnabled        bool
	RespectRobotsTxt bool
	UserAgent        string
	FetchTimeout     time.Duration
}

func (o Options) normalize() Options {
	if o.MaxDepth <= 0 {
		o.MaxDepth = 3
	}
	if o.MaxPages <= 0 {
		o.MaxPages = 1000
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 5
	}
	if o.UserAgent == "" {
		o.UserAgent = "AmeliaBot/1.0 (+https://amelia.run/bot)"
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = 20 * time.Second
	}
	return o
}

// Crawler drives the frontier held in store.Crawl: seeding, per-batch
// selection, fetch + extract + ingest, link discovery, and robots/rate
// limiting. Cycle safety and crash recovery derive entirely from the
// crawl_queue/crawled_urls tables, never from in-memory traversal state.
type Crawler struct {
	Store     *store.Store
	Fetcher   Fetcher
	JSFetcher Fetcher
	Robots    *RobotsChecker
	Limiter   *ratelimiter.HostLimiter
	Embedder  embedder.Embedder
	ChunkOpts chunker.Options
}

// Seed normalizes and classifies the seed URL, expanding sitemap/llms.txt
// seeds into their listed pages, and enqueues everything at depth 0.
func (c *Crawler) Seed(ctx context.Context, jobID, collection, seedURL string, opt Options) error {
	opt = opt.normalize()
	norm, err := store.NormalizeURL(seedURL)
	if err != nil {
		return fmt.Errorf("crawl: normalize seed url: %w", err)
	}

	switch ClassifySeed(norm) {
	case SeedSitemap:
		return c.seedSitemap(ctx, jobID, collection, norm, opt)
	case SeedLLMsTxt:
		return c.seedLLMsTxt(ctx, jobID, collection, norm, opt)
	default:
		_, err := c.Store.Crawl.Enqueue(ctx, jobID, collection, norm, "", norm, 0, opt.MaxDepth, 100)
		return err
	}
}

func (c *Crawler) seedSitemap(ctx context.Context, jobID, collection, sitemapURL string, opt Options) error {
	res, err := c.Fetcher.Fetch(ctx, sitemapURL, false, opt.FetchTimeout, opt.UserAgent)
	if err != nil {
		return fmt.Errorf("crawl: fetch sitemap %s: %w", sitemapURL, err)
	}
	pages, nested, err := ExpandSitemap([]byte(res.HTML))
	if err != nil {
		return err
	}
	for _, nestedURL := range nested {
		if err := c.seedSitemap(ctx, jobID, collection, nestedURL, opt); err != nil {
			return err
		}
	}
	for _, page := range pages {
		norm, err := store.NormalizeURL(page)
		if err != nil {
			continue
		}
		if _, err := c.Store.Crawl.Enqueue(ctx, jobID, collection, norm, sitemapURL, sitemapURL, 0, opt.MaxDepth, 50); err != nil {
			return err
		}
	}
	return nil
}

func (c *Crawler) seedLLMsTxt(ctx context.Context, jobID, collection, llmsURL string, opt Options) error {
	res, err := c.Fetcher.Fetch(ctx, llmsURL, false, opt.FetchTimeout, opt.UserAgent)
	if err != nil {
		return fmt.Errorf("crawl: fetch llms.txt %s: %w", llmsURL, err)
	}
	for _, page := range ExpandLLMsTxt(res.HTML) {
		norm, err := store.NormalizeURL(page)
		if err != nil {
			continue
		}
		if _, err := c.Store.Crawl.Enqueue(ctx, jobID, collection, norm, llmsURL, llmsURL, 0, opt.MaxDepth, 50); err != nil {
			return err
		}
	}
	return nil
}

// ProcessBatch selects up to opt.BatchSize pending frontier items and
// fetches, ingests, and link-expands each, respecting robots.txt and the
// per-host rate limiter. It returns the number of items it attempted.
func (c *Crawler) ProcessBatch(ctx context.Context, collection string, opt Options, circuitWindow time.Duration, circuitThreshold int) (int, error) {
	opt = opt.normalize()
	items, err := c.Store.Crawl.Select(ctx, collection, opt.BatchSize, circuitWindow, circuitThreshold)
	if err != nil {
		return 0, err
	}
	for _, item := range items {
		c.processOne(ctx, item, opt)
	}
	return len(items), nil
}

func (c *Crawler) processOne(ctx context.Context, item store.CrawlQueueItem, opt Options) {
	if err := c.Store.Crawl.MarkInProgress(ctx, item.ID); err != nil {
		return
	}

	already, err := c.Store.Crawl.AlreadyCrawled(ctx, item.Collection, item.URL)
	if err == nil && already {
		_ = c.Store.Crawl.MarkSkipped(ctx, item.ID, "already crawled")
		return
	}

	if opt.RespectRobotsTxt && c.Robots != nil && !c.Robots.Allowed(ctx, item.URL) {
		_ = c.Store.Crawl.MarkSkipped(ctx, item.ID, "disallowed by robots.txt")
		return
	}

	u, err := url.Parse(item.URL)
	if err != nil {
		_ = c.Store.Crawl.MarkFailed(ctx, item.ID, err)
		return
	}
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx, u.Hostname()); err != nil {
			_ = c.Store.Crawl.MarkFailed(ctx, item.ID, err)
			return
		}
	}

	fetcher := c.Fetcher
	if opt.JSEnabled && c.JSFetcher != nil {
		fetcher = c.JSFetcher
	}
	res, err := fetcher.Fetch(ctx, item.URL, opt.JSEnabled, opt.FetchTimeout, opt.UserAgent)
	if err != nil {
		_ = c.Store.Crawl.MarkFailed(ctx, item.ID, err)
		return
	}
	if res.StatusCode >= 400 {
		_ = c.Store.Crawl.MarkFailed(ctx, item.ID, fmt.Errorf("status %d", res.StatusCode))
		return
	}

	if err := c.ingestPage(ctx, item, res); err != nil {
		_ = c.Store.Crawl.MarkFailed(ctx, item.ID, err)
		return
	}
	_ = c.Store.Crawl.MarkCrawled(ctx, item.Collection, item.URL, res.StatusCode)
	_ = c.Store.Crawl.MarkDone(ctx, item.ID)

	if item.Depth < item.MaxDepth {
		c.discoverLinks(ctx, item, res, opt)
	}
}

func (c *Crawler) ingestPage(ctx context.Context, item store.CrawlQueueItem, res FetchResult) error {
	title, markdown, err := ExtractMainContent(res.HTML, res.FinalURL)
	if err != nil {
		return fmt.Errorf("crawl: extract %s: %w", item.URL, err)
	}
	canonical := contenthash.Canonicalize(markdown)
	hash := contenthash.Hash(canonical)

	identity := store.DocumentIdentity{
		Collection:  item.Collection,
		SourceURL:   item.URL,
		SourceType:  store.SourceWeb,
		FileType:    "html",
		Title:       title,
		ContentHash: hash,
	}
	tx, decision, err := c.Store.Documents.Upsert(ctx, identity)
	if err != nil {
		return err
	}
	if decision.Action == store.ActionSkipped {
		return nil
	}

	rawChunks := chunker.Split(canonical, c.ChunkOpts)
	if len(rawChunks) == 0 {
		return tx.Commit(ctx)
	}
	texts := make([]string, len(rawChunks))
	for i, ch := range rawChunks {
		texts[i] = ch.Text
	}
	vectors, err := c.Embedder.EmbedBatch(ctx, texts)
	if err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("crawl: embed %s: %w", item.URL, err)
	}
	if len(vectors) != len(rawChunks) {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("crawl: embedder returned %d vectors for %d chunks", len(vectors), len(rawChunks))
	}

	langConfig := store.ResolveLanguageConfig("en")
	items := make([]store.WriteChunk, len(rawChunks))
	for i, ch := range rawChunks {
		items[i] = store.WriteChunk{
			Chunk: store.Chunk{
				ChunkIndex: ch.Index,
				Content:    ch.Text,
				CharCount:  len([]rune(ch.Text)),
				WordCount:  len(strings.Fields(ch.Text)),
				Headers:    ch.Headers,
				Metadata:   map[string]string{"language": langConfig},
			},
			Vector: vectors[i],
		}
	}
	return store.PublishChunks(ctx, tx, decision.DocumentID, c.Embedder.Name(), items)
}

func (c *Crawler) discoverLinks(ctx context.Context, item store.CrawlQueueItem, res FetchResult, opt Options) {
	if !opt.FollowLinks {
		return
	}
	links, err := ExtractLinks(res.HTML, res.FinalURL)
	if err != nil {
		return
	}
	for _, link := range links {
		norm, err := store.NormalizeURL(link)
		if err != nil {
			continue
		}
		if !sameRegistrableDomain(item.SeedURL, norm) {
			continue
		}
		if !matchesPatterns(norm, opt.IncludePatterns, opt.ExcludePatterns) {
			continue
		}
		_, _ = c.Store.Crawl.Enqueue(ctx, item.JobID, item.Collection, norm, item.URL, item.SeedURL, item.Depth+1, item.MaxDepth, 0)
	}
}

// sameRegistrableDomain reports whether rawURL shares a registrable domain
// (e.g. "example.com") with seedURL, per the internal-links-only crawl scope.
// A host that can't be resolved to a registrable domain (bare IPs, single-
// label hosts) is compared verbatim instead.
func sameRegistrableDomain(seedURL, rawURL string) bool {
	seed, err := url.Parse(seedURL)
	if err != nil {
		return false
	}
	target, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	seedDomain := registrableDomain(seed.Hostname())
	targetDomain := registrableDomain(target.Hostname())
	return seedDomain != "" && seedDomain == targetDomain
}

func registrableDomain(host string) string {
	host = strings.ToLower(host)
	if net.ParseIP(host) != nil {
		return host
	}
	if etld1, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return etld1
	}
	return host
}

func matchesPatterns(rawURL string, include, exclude []string) bool {
	for _, pat := range exclude {
		if globMatch(pat, rawURL) {
			return false
		}
	}
	if len(include) == 0 {
		return true
	}
	for _, pat := range include {
		if globMatch(pat, rawURL) {
			return true
		}
	}
	return false
}

// globMatch matches s against a glob pattern in which '*' spans any run of
// characters, '/' included, and '?' matches exactly one character.
func globMatch(pattern, s string) bool {
	expr := regexp.QuoteMeta(pattern)
	expr = strings.ReplaceAll(expr, `\*`, ".*")
	expr = strings.ReplaceAll(expr, `\?`, ".")
	matched, err := regexp.MatchString("^"+expr+"$", s)
	return err == nil && matched
}
