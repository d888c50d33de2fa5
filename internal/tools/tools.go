// Package tools implements the JSON-RPC tool handlers an agent host calls
// to drive ingestion, crawling, transcription, search, and bookkeeping over
// a collection: ingest_documents, crawl_website, search_documents,
// list_sources, remove_source, get_statistics, get_job_status, cancel_job.
package tools

import (
	"context"
	"fmt"

	"github.com/amelia-run/amelia/internal/search"
	"github.com/amelia-run/amelia/internal/store"
)

// Handlers wires the store and search engine needed to answer every tool
// call; job-creating tools (ingest_documents, crawl_website) additionally
// need the job queue to hand work to the coordinator.
type Handlers struct {
	Store  *store.Store
	Search *search.Engine
}

// New builds a Handlers over st and engine.
func New(st *store.Store, engine *search.Engine) *Handlers {
	return &Handlers{Store: st, Search: engine}
}

// IngestDocumentsArgs is the ingest_documents tool's input.
type IngestDocumentsArgs struct {
	Paths                 []string `json:"paths"`
	Recursive             bool     `json:"recursive"`
	FilePatterns          []string `json:"file_patterns"`
	Collection            string   `json:"collection"`
	TranscriptionLanguage string   `json:"transcription_language,omitempty"`
}

// IngestDocumentsResult is the ingest_documents tool's output.
type IngestDocumentsResult struct {
	JobID         string `json:"job_id"`
	AcceptedCount int    `json:"accepted_count"`
}

// IngestDocuments validates the request and submits an ingest job, leaving
// the actual parse/chunk/embed work to the coordinator's dispatch loop.
func (h *Handlers) IngestDocuments(ctx context.Context, args IngestDocumentsArgs) (IngestDocumentsResult, error) {
	if len(args.Paths) == 0 {
		return IngestDocumentsResult{}, fmt.Errorf("tools: ingest_documents: invalid path: paths must not be empty")
	}
	if args.Collection == "" {
		return IngestDocumentsResult{}, fmt.Errorf("tools: ingest_documents: collection is required")
	}
	metadata := map[string]any{
		"paths":         toAnySlice(args.Paths),
		"recursive":     args.Recursive,
		"file_patterns": toAnySlice(args.FilePatterns),
	}
	if args.TranscriptionLanguage != "" {
		metadata["transcription_language"] = args.TranscriptionLanguage
	}
	jobID, err := h.Store.Jobs.Submit(ctx, store.JobIngest, args.Collection, metadata)
	if err != nil {
		return IngestDocumentsResult{}, fmt.Errorf("tools: ingest_documents: %w", err)
	}
	return IngestDocumentsResult{JobID: jobID, AcceptedCount: len(args.Paths)}, nil
}

// CrawlWebsiteArgs is the crawl_website tool's input, with the defaults
// the tool table specifies applied by ApplyDefaults.
type CrawlWebsiteArgs struct {
	URL              string   `json:"url"`
	Collection       string   `json:"collection"`
	MaxDepth         int      `json:"max_depth"`
	MaxPages         int      `json:"max_pages"`
	FollowLinks      *bool    `json:"follow_links,omitempty"`
	ExcludePatterns  []string `json:"exclude_patterns"`
	IncludePatterns  []string `json:"include_patterns"`
	BatchSize        int      `json:"batch_size"`
	JSEnabled        *bool    `json:"js_enabled,omitempty"`
	RespectRobotsTxt *bool    `json:"respect_robots_txt,omitempty"`
}

// ApplyDefaults fills unset fields with the tool table's documented
// defaults (max_depth=3, max_pages=1000, follow_links=true, batch_size=5,
// js_enabled=true, respect_robots_txt=true).
func (a CrawlWebsiteArgs) ApplyDefaults() CrawlWebsiteArgs {
	if a.MaxDepth <= 0 {
		a.MaxDepth = 3
	}
	if a.MaxPages == 0 {
		a.MaxPages = 1000
	}
	if a.FollowLinks == nil {
		a.FollowLinks = boolPtr(true)
	}
	if a.BatchSize <= 0 {
		a.BatchSize = 5
	}
	if a.JSEnabled == nil {
		a.JSEnabled = boolPtr(true)
	}
	if a.RespectRobotsTxt == nil {
		a.RespectRobotsTxt = boolPtr(true)
	}
	return a
}

func boolPtr(b bool) *bool { return &b }

// CrawlWebsiteResult is the crawl_website tool's output.
type CrawlWebsiteResult struct {
	JobID string `json:"job_id"`
}

// CrawlWebsite validates the seed URL and submits a crawl job.
func (h *Handlers) CrawlWebsite(ctx context.Context, args CrawlWebsiteArgs) (CrawlWebsiteResult, error) {
	if _, err := store.NormalizeURL(args.URL); err != nil {
		return CrawlWebsiteResult{}, fmt.Errorf("tools: crawl_website: malformed URL: %w", err)
	}
	if args.Collection == "" {
		return CrawlWebsiteResult{}, fmt.Errorf("tools: crawl_website: collection is required")
	}
	args = args.ApplyDefaults()
	metadata := map[string]any{
		"url":                args.URL,
		"max_depth":          args.MaxDepth,
		"max_pages":          args.MaxPages,
		"follow_links":       *args.FollowLinks,
		"exclude_patterns":   toAnySlice(args.ExcludePatterns),
		"include_patterns":   toAnySlice(args.IncludePatterns),
		"batch_size":         args.BatchSize,
		"js_enabled":         *args.JSEnabled,
		"respect_robots_txt": *args.RespectRobotsTxt,
	}
	jobID, err := h.Store.Jobs.Submit(ctx, store.JobCrawl, args.Collection, metadata)
	if err != nil {
		return CrawlWebsiteResult{}, fmt.Errorf("tools: crawl_website: %w", err)
	}
	return CrawlWebsiteResult{JobID: jobID}, nil
}

// SearchDocumentsArgs is the search_documents tool's input.
type SearchDocumentsArgs struct {
	Query      string            `json:"query"`
	NResults   int               `json:"n_results"`
	Collection string            `json:"collection"`
	Strategy   string            `json:"strategy"`
	Filters    map[string]string `json:"filters"`
}

// SearchHit is one ranked result in search_documents' response.
type SearchHit struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Score      float64 `json:"score"`
	Content    string  `json:"content"`
	Snippet    string  `json:"snippet"`
	Title      string  `json:"title"`
	SourcePath string  `json:"source_path,omitempty"`
	SourceURL  string  `json:"source_url,omitempty"`
	SourceType string  `json:"source_type"`
}

// SearchDocumentsResult is the search_documents tool's output.
type SearchDocumentsResult struct {
	Results      []SearchHit `json:"results"`
	StrategyUsed string      `json:"strategy_used"`
}

// contextualStrategy is the tool table's name for the engine's hybrid
// strategy; "contextual" is exposed to agent hosts since it describes the
// rerank-augmented behavior, but internally it's hybrid + rerank.
const contextualStrategy = "contextual"

// SearchDocuments runs a search and assembles the tool-facing hit list.
func (h *Handlers) SearchDocuments(ctx context.Context, args SearchDocumentsArgs) (SearchDocumentsResult, error) {
	if args.Query == "" {
		return SearchDocumentsResult{}, fmt.Errorf("tools: search_documents: empty query")
	}
	n := args.NResults
	if n <= 0 {
		n = 5
	}
	strategy := search.Strategy(args.Strategy)
	rerank := (*bool)(nil)
	if strategy == contextualStrategy {
		strategy = search.StrategyHybrid
		rerank = boolPtr(true)
	}
	if strategy == "" {
		strategy = search.StrategyAuto
	}
	req := search.Request{
		Collection: args.Collection,
		Query:      args.Query,
		K:          n,
		Strategy:   strategy,
		SourceType: args.Filters["source_type"],
		FileType:   args.Filters["file_type"],
		Domain:     args.Filters["domain"],
		Language:   args.Filters["language"],
		Rerank:     rerank,
	}
	resp, err := h.Search.Search(ctx, req)
	if err != nil {
		return SearchDocumentsResult{}, fmt.Errorf("tools: search_documents: %w", err)
	}
	hits := make([]SearchHit, len(resp.Items))
	for i, item := range resp.Items {
		hits[i] = SearchHit{
			ChunkID:    item.ChunkID,
			DocumentID: item.DocumentID,
			Score:      item.Score,
			Content:    item.Content,
			Snippet:    item.Snippet,
			Title:      item.Title,
			SourcePath: item.SourcePath,
			SourceURL:  item.SourceURL,
			SourceType: item.SourceType,
		}
	}
	return SearchDocumentsResult{Results: hits, StrategyUsed: string(resp.Strategy)}, nil
}

// ListSourcesArgs is the list_sources tool's input.
type ListSourcesArgs struct {
	Collection string `json:"collection"`
	SourceType string `json:"source_type"`
	Limit      int    `json:"limit"`
}

// SourceEntry is one row in list_sources' response.
type SourceEntry struct {
	ID         string `json:"id"`
	SourceType string `json:"source_type"`
	SourcePath string `json:"source_path,omitempty"`
	SourceURL  string `json:"source_url,omitempty"`
	Version    int    `json:"version"`
	IndexedAt  string `json:"indexed_at"`
}

// ListSources lists documents in a collection, optionally filtered by
// source type.
func (h *Handlers) ListSources(ctx context.Context, args ListSourcesArgs) ([]SourceEntry, error) {
	limit := args.Limit
	if limit <= 0 {
		limit = 100
	}
	sourceType := store.SourceType(args.SourceType)
	docs, err := h.Store.Documents.List(ctx, args.Collection, sourceType, limit)
	if err != nil {
		return nil, fmt.Errorf("tools: list_sources: %w", err)
	}
	out := make([]SourceEntry, len(docs))
	for i, d := range docs {
		out[i] = SourceEntry{
			ID:         d.ID,
			SourceType: string(d.SourceType),
			SourcePath: d.SourcePath,
			SourceURL:  d.SourceURL,
			Version:    d.Version,
			IndexedAt:  d.IndexedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
	}
	return out, nil
}

// RemoveSourceArgs is the remove_source tool's input.
type RemoveSourceArgs struct {
	SourcePath string `json:"source_path,omitempty"`
	SourceURL  string `json:"source_url,omitempty"`
	Collection string `json:"collection"`
}

// RemoveSourceResult is the remove_source tool's output.
type RemoveSourceResult struct {
	RemovedCount int `json:"removed_count"`
}

// RemoveSource deletes the document matching source_path or source_url
// (and its chunks/embeddings, via cascade).
func (h *Handlers) RemoveSource(ctx context.Context, args RemoveSourceArgs) (RemoveSourceResult, error) {
	if args.SourcePath == "" && args.SourceURL == "" {
		return RemoveSourceResult{}, fmt.Errorf("tools: remove_source: source_path or source_url is required")
	}
	n, err := h.Store.Documents.Remove(ctx, args.Collection, args.SourcePath, args.SourceURL)
	if err != nil {
		return RemoveSourceResult{}, fmt.Errorf("tools: remove_source: %w", err)
	}
	if n == 0 {
		return RemoveSourceResult{}, fmt.Errorf("tools: remove_source: not found")
	}
	return RemoveSourceResult{RemovedCount: n}, nil
}

// GetStatisticsArgs is the get_statistics tool's input.
type GetStatisticsArgs struct {
	Collection string `json:"collection"`
}

// GetStatisticsResult is the get_statistics tool's output.
type GetStatisticsResult struct {
	Documents    int            `json:"documents"`
	Chunks       int            `json:"chunks"`
	BySourceType map[string]int `json:"by_source_type"`
	ByFileType   map[string]int `json:"by_file_type"`
}

// GetStatistics reports document/chunk counts for a collection.
func (h *Handlers) GetStatistics(ctx context.Context, args GetStatisticsArgs) (GetStatisticsResult, error) {
	stats, err := h.Store.Chunks.CountForCollection(ctx, args.Collection)
	if err != nil {
		return GetStatisticsResult{}, fmt.Errorf("tools: get_statistics: %w", err)
	}
	return GetStatisticsResult{
		Documents:    stats.Documents,
		Chunks:       stats.Chunks,
		BySourceType: stats.BySourceType,
		ByFileType:   stats.ByFileType,
	}, nil
}

// GetJobStatusArgs is the get_job_status tool's input.
type GetJobStatusArgs struct {
	JobID string `json:"job_id"`
}

// GetJobStatusResult is the get_job_status tool's output, the coordinator's
// status(job_id) operation.
type GetJobStatusResult struct {
	JobID          string `json:"job_id"`
	JobType        string `json:"job_type"`
	Collection     string `json:"collection"`
	Status         string `json:"status"`
	Progress       int    `json:"progress"`
	TotalItems     int    `json:"total_items"`
	ProcessedItems int    `json:"processed_items"`
	ErrorMessage   string `json:"error_message,omitempty"`
	RetryCount     int    `json:"retry_count"`
}

// GetJobStatus reports a job's current lifecycle state and progress.
func (h *Handlers) GetJobStatus(ctx context.Context, args GetJobStatusArgs) (GetJobStatusResult, error) {
	if args.JobID == "" {
		return GetJobStatusResult{}, fmt.Errorf("tools: get_job_status: job_id is required")
	}
	job, ok, err := h.Store.Jobs.Get(ctx, args.JobID)
	if err != nil {
		return GetJobStatusResult{}, fmt.Errorf("tools: get_job_status: %w", err)
	}
	if !ok {
		return GetJobStatusResult{}, fmt.Errorf("tools: get_job_status: job %s not found", args.JobID)
	}
	return GetJobStatusResult{
		JobID:          job.ID,
		JobType:        string(job.JobType),
		Collection:     job.Collection,
		Status:         string(job.Status),
		Progress:       job.Progress,
		TotalItems:     job.TotalItems,
		ProcessedItems: job.ProcessedItems,
		ErrorMessage:   job.ErrorMessage,
		RetryCount:     job.RetryCount,
	}, nil
}

// CancelJobArgs is the cancel_job tool's input.
type CancelJobArgs struct {
	JobID string `json:"job_id"`
}

// CancelJobResult is the cancel_job tool's output.
type CancelJobResult struct {
	Cancelled bool `json:"cancelled"`
}

// CancelJob marks a pending or running job as cancelled so the dispatch
// loop and any in-flight batch stop retrying it, the coordinator's
// cancel(job_id) operation.
func (h *Handlers) CancelJob(ctx context.Context, args CancelJobArgs) (CancelJobResult, error) {
	if args.JobID == "" {
		return CancelJobResult{}, fmt.Errorf("tools: cancel_job: job_id is required")
	}
	if err := h.Store.Jobs.Cancel(ctx, args.JobID); err != nil {
		return CancelJobResult{}, fmt.Errorf("tools: cancel_job: %w", err)
	}
	return CancelJobResult{Cancelled: true}, nil
}

func toAnySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
