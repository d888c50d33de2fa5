// Package store is Amelia's persistence layer: document/chunk/embedding
// repositories, the full-text and vector indexes, and the durable job and
// crawl-queue tables the coordinator and crawler drive directly with SQL.
package store

import "time"

// SourceType classifies where a document's content originated.
type SourceType string

const (
	SourceLocal SourceType = "local"
	SourceWeb   SourceType = "web"
	SourceAudio SourceType = "audio"
)

// Document is a logical unit of ingested content, identified within a
// collection by its source_path (local/audio) or source_url (web).
type Document struct {
	ID               string
	Collection       string
	SourceType       SourceType
	SourcePath       string
	SourceURL        string
	FileType         string
	Title            string
	ContentHash      string
	Version          int
	IndexedAt        time.Time
	LastModified     time.Time
	CrawledAt        time.Time
	AudioDuration    float64
	LanguageDetected string
	TranscriptModel  string
}

// Chunk is a retrievable fragment of a document.
type Chunk struct {
	ID             string
	DocumentID     string
	ChunkIndex     int
	Content        string
	CharCount      int
	WordCount      int
	Headers        string
	Metadata       map[string]string
	StartTimestamp *float64
	EndTimestamp   *float64
}

// Embedding is the single dense vector owned by a chunk.
type Embedding struct {
	ChunkID   string
	Vector    []float32
	ModelName string
}

// JobType enumerates the kinds of asynchronous work the coordinator runs.
type JobType string

const (
	JobIngest     JobType = "ingest"
	JobCrawl      JobType = "crawl"
	JobTranscribe JobType = "transcribe"
)

// JobStatus is a job's lifecycle state.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobPaused    JobStatus = "paused"
)

// Job is a unit of asynchronous work tracked durably in the store.
type Job struct {
	ID             string
	JobType        JobType
	Collection     string
	Status         JobStatus
	Progress       int
	TotalItems     int
	ProcessedItems int
	ErrorMessage   string
	Metadata       map[string]any
	RetryCount     int
	MaxRetries     int
	NextRunAt      time.Time
	LastRetryAt    *time.Time
	BackoffDelay   int
	CreatedAt      time.Time
	UpdatedAt      time.Time
	CompletedAt    *time.Time
}

// CrawlStatus is a crawl_queue row's lifecycle state.
type CrawlStatus string

const (
	CrawlPending    CrawlStatus = "pending"
	CrawlInProgress CrawlStatus = "in_progress"
	CrawlCompleted  CrawlStatus = "completed"
	CrawlFailed     CrawlStatus = "failed"
	CrawlSkipped    CrawlStatus = "skipped"
)

// CrawlQueueItem is a URL pending or completed crawl within a job.
type CrawlQueueItem struct {
	ID            string
	JobID         string
	URL           string
	Collection    string
	Depth         int
	MaxDepth      int
	Priority      int
	ParentURL     string
	SeedURL       string
	RetryCount    int
	LastAttemptAt *time.Time
	LastError     string
	Status        CrawlStatus
	DiscoveredAt  time.Time
}

// CrawledURL is the dedup record for a normalized URL within a collection.
type CrawledURL struct {
	URL        string
	Collection string
	CrawledAt  time.Time
	StatusCode int
}

// EmbeddingDimension is fixed for the deployment per spec ("embedding
// dimension as a type"): any embedding of a different length is rejected.
const EmbeddingDimension = 1024
