package store

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Crawl is the crawl_queue + crawled_urls repository backing the web
// crawler. The selection query below is deliberately hand-written SQL
// rather than routed through a query builder: the per-domain circuit
// breaker and row-level backoff it expresses do not translate cleanly to
// one.
type Crawl struct {
	pool *pgxpool.Pool
}

// NewCrawl constructs the crawl repository over pool.
func NewCrawl(pool *pgxpool.Pool) *Crawl { return &Crawl{pool: pool} }

// Enqueue adds a URL to the frontier if it is not already queued for this
// collection, returning its queue id (existing or new).
func (c *Crawl) Enqueue(ctx context.Context, jobID, collection, rawURL, parentURL, seedURL string, depth, maxDepth, priority int) (string, error) {
	var id string
	err := c.pool.QueryRow(ctx, `
		INSERT INTO crawl_queue (job_id, url, collection, depth, max_depth, priority, parent_url, seed_url)
		VALUES ($1,$2,$3,$4,$5,$6,NULLIF($7,''),$8)
		ON CONFLICT (collection, url) DO UPDATE SET priority = GREATEST(crawl_queue.priority, EXCLUDED.priority)
		RETURNING id`,
		jobID, rawURL, collection, depth, maxDepth, priority, parentURL, seedURL).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("store: enqueue crawl url: %w", err)
	}
	return id, nil
}

// CountDone reports how many frontier items belonging to jobID have
// reached a terminal completed/skipped state, letting the coordinator enforce
// a job-scoped MaxPages limit that the collection-scoped crawled_urls
// table cannot express on its own.
func (c *Crawl) CountDone(ctx context.Context, jobID string) (int, error) {
	var n int
	err := c.pool.QueryRow(ctx, `
		SELECT count(*) FROM crawl_queue
		WHERE job_id = $1 AND status IN ('completed', 'skipped')`, jobID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: count done crawl items: %w", err)
	}
	return n, nil
}

// AlreadyCrawled reports whether url has already been fetched for
// collection, the frontier's primary dedup check.
func (c *Crawl) AlreadyCrawled(ctx context.Context, collection, rawURL string) (bool, error) {
	var exists bool
	err := c.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM crawled_urls WHERE collection=$1 AND url=$2)`,
		collection, rawURL).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("store: check crawled url: %w", err)
	}
	return exists, nil
}

// MarkCrawled records a URL as fetched, independent of crawl_queue so
// re-crawls of a collection never repeat a URL even across jobs.
func (c *Crawl) MarkCrawled(ctx context.Context, collection, rawURL string, statusCode int) error {
	_, err := c.pool.Exec(ctx, `
		INSERT INTO crawled_urls (collection, url, status_code) VALUES ($1,$2,$3)
		ON CONFLICT (collection, url) DO UPDATE SET crawled_at=now(), status_code=EXCLUDED.status_code`,
		collection, rawURL, statusCode)
	if err != nil {
		return fmt.Errorf("store: mark crawled: %w", err)
	}
	return nil
}

// Select returns up to limit pending rows whose backoff has elapsed.
// circuitWindow and circuitThreshold form a per-host breaker: a host with
// at least circuitThreshold failed rows attempted within the last
// circuitWindow is skipped, so a misbehaving host cannot monopolize the
// crawl workers.
func (c *Crawl) Select(ctx context.Context, collection string, limit int, circuitWindow time.Duration, circuitThreshold int) ([]CrawlQueueItem, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := c.pool.Query(ctx, `
		WITH candidates AS (
			SELECT * FROM crawl_queue
			WHERE collection = $1
				AND status = 'pending'
				AND (last_attempt_at IS NULL OR last_attempt_at <= now() - (POWER(2, retry_count) || ' seconds')::interval)
			ORDER BY priority DESC, discovered_at ASC
			FOR UPDATE SKIP LOCKED
			LIMIT $2 * 4
		)
		SELECT id, job_id, url, collection, depth, max_depth, priority, COALESCE(parent_url,''), seed_url,
			retry_count, last_attempt_at, COALESCE(last_error,''), status, discovered_at
		FROM candidates cq
		WHERE NOT EXISTS (
			SELECT 1 FROM crawl_queue recent
			WHERE recent.collection = cq.collection
				AND split_part(recent.url, '/', 3) = split_part(cq.url, '/', 3)
				AND recent.status = 'failed'
				AND recent.last_attempt_at >= now() - $3::interval
			GROUP BY recent.collection
			HAVING COUNT(*) >= $4
		)
		ORDER BY priority DESC, discovered_at ASC
		LIMIT $2`,
		collection, limit, circuitWindow, circuitThreshold)
	if err != nil {
		return nil, fmt.Errorf("store: select crawl candidates: %w", err)
	}
	defer rows.Close()
	var out []CrawlQueueItem
	for rows.Next() {
		var item CrawlQueueItem
		if err := rows.Scan(&item.ID, &item.JobID, &item.URL, &item.Collection, &item.Depth, &item.MaxDepth,
			&item.Priority, &item.ParentURL, &item.SeedURL, &item.RetryCount, &item.LastAttemptAt,
			&item.LastError, &item.Status, &item.DiscoveredAt); err != nil {
			return nil, fmt.Errorf("store: scan crawl candidate: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// MarkInProgress claims a queue item before fetching it.
func (c *Crawl) MarkInProgress(ctx context.Context, id string) error {
	_, err := c.pool.Exec(ctx, `
		UPDATE crawl_queue SET status='in_progress', last_attempt_at=now() WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("store: mark crawl in progress: %w", err)
	}
	return nil
}

// MarkDone records a successful fetch for a queue item. The dedup record is
// written separately by MarkCrawled.
func (c *Crawl) MarkDone(ctx context.Context, id string) error {
	_, err := c.pool.Exec(ctx, `UPDATE crawl_queue SET status='completed' WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("store: mark crawl done: %w", err)
	}
	return nil
}

// MarkFailed records a failed fetch attempt, bumping retry_count so the
// selection query's backoff window applies to the next attempt.
func (c *Crawl) MarkFailed(ctx context.Context, id string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	_, err := c.pool.Exec(ctx, `
		UPDATE crawl_queue SET status='failed', retry_count=retry_count+1, last_error=$1, last_attempt_at=now()
		WHERE id=$2`, msg, id)
	if err != nil {
		return fmt.Errorf("store: mark crawl failed: %w", err)
	}
	return nil
}

// MarkSkipped records a URL the crawler chose not to fetch (disallowed by
// robots.txt, max depth exceeded, non-HTML content type).
func (c *Crawl) MarkSkipped(ctx context.Context, id, reason string) error {
	_, err := c.pool.Exec(ctx, `
		UPDATE crawl_queue SET status='skipped', last_error=$1, last_attempt_at=now() WHERE id=$2`, reason, id)
	if err != nil {
		return fmt.Errorf("store: mark crawl skipped: %w", err)
	}
	return nil
}

// RecoverInProgress resets in_progress rows left behind by a crashed
// crawl worker back to pending, mirroring Jobs.Recover.
func (c *Crawl) RecoverInProgress(ctx context.Context) (int, error) {
	tag, err := c.pool.Exec(ctx, `UPDATE crawl_queue SET status='pending' WHERE status='in_progress'`)
	if err != nil {
		return 0, fmt.Errorf("store: recover crawl queue: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// NormalizeURL canonicalizes a URL for dedup purposes: lowercases the
// scheme and host, strips a trailing slash (except for the bare root path),
// drops the fragment, removes the default port for http/https, and sorts
// query parameters by key so equivalent URLs collapse to one frontier entry.
func NormalizeURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("store: parse url: %w", err)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	if (u.Scheme == "http" && hostPort(u) == "80") || (u.Scheme == "https" && hostPort(u) == "443") {
		u.Host = u.Hostname()
	}
	if u.Path != "/" {
		u.Path = trimTrailingSlash(u.Path)
	}
	if u.RawQuery != "" {
		u.RawQuery = sortedQuery(u.Query())
	}
	return u.String(), nil
}

func sortedQuery(q url.Values) string {
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		vals := q[k]
		sort.Strings(vals)
		for j, v := range vals {
			if i > 0 || j > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}

func hostPort(u *url.URL) string { return u.Port() }

func trimTrailingSlash(p string) string {
	if len(p) > 1 && p[len(p)-1] == '/' {
		return p[:len(p)-1]
	}
	return p
}
