// Package coordinator runs the single-threaded dispatch loop described in
// the store contract: a controller goroutine that polls store.Jobs for
// dispatchable work and hands each job to a per-type worker pool bounded
// by a semaphore, so no job type can starve the others.
package coordinator

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/amelia-run/amelia/internal/config"
	"github.com/amelia-run/amelia/internal/crawl"
	"github.com/amelia-run/amelia/internal/errkind"
	"github.com/amelia-run/amelia/internal/ingest"
	"github.com/amelia-run/amelia/internal/observability"
	"github.com/amelia-run/amelia/internal/store"
	"github.com/amelia-run/amelia/internal/transcribe"
)

// typeSemaphore pairs a weighted semaphore with the capacity it was built
// with, since semaphore.Weighted does not expose its own size.
type typeSemaphore struct {
	sem      *semaphore.Weighted
	capacity int64
}

// tryAcquireUpTo acquires as many of the requested n units as are free,
// returning how many it actually claimed (0..n).
func (s *typeSemaphore) tryAcquireUpTo(n int) int {
	acquired := 0
	for acquired < n {
		if !s.sem.TryAcquire(1) {
			break
		}
		acquired++
	}
	return acquired
}

func (s *typeSemaphore) release(n int) {
	if n > 0 {
		s.sem.Release(int64(n))
	}
}

// Coordinator polls for pending jobs at DispatchInterval and runs each one
// on a worker bounded by its job type's semaphore.
type Coordinator struct {
	Store      *store.Store
	Ingest     *ingest.Pipeline
	Crawl      *crawl.Crawler
	Transcribe *transcribe.Pipeline
	Config     config.JobConfig

	sems map[store.JobType]*typeSemaphore
}

// New builds a Coordinator with per-job-type semaphores sized from cfg.
func New(st *store.Store, ing *ingest.Pipeline, cr *crawl.Crawler, tr *transcribe.Pipeline, cfg config.JobConfig) *Coordinator {
	crawlConc := cfg.CrawlConcurrency
	if crawlConc <= 0 {
		crawlConc = 3
	}
	transcribeConc := cfg.TranscribeWorkers
	if transcribeConc <= 0 {
		transcribeConc = 2
	}
	ingestConc := cfg.IngestWorkers
	if ingestConc <= 0 {
		ingestConc = 5
	}
	return &Coordinator{
		Store:      st,
		Ingest:     ing,
		Crawl:      cr,
		Transcribe: tr,
		Config:     cfg,
		sems: map[store.JobType]*typeSemaphore{
			store.JobCrawl:      {sem: semaphore.NewWeighted(int64(crawlConc)), capacity: int64(crawlConc)},
			store.JobTranscribe: {sem: semaphore.NewWeighted(int64(transcribeConc)), capacity: int64(transcribeConc)},
			store.JobIngest:     {sem: semaphore.NewWeighted(int64(ingestConc)), capacity: int64(ingestConc)},
		},
	}
}

// Recover resets jobs and crawl_queue rows a crashed prior process left in
// a running/in_progress state back to pending, per the crash-recovery
// invariant; a job whose retries are exhausted is marked failed instead.
// It must run once before Run starts dispatching.
func (c *Coordinator) Recover(ctx context.Context) error {
	jobs, err := c.Store.Jobs.Recover(ctx)
	if err != nil {
		return fmt.Errorf("coordinator: recover jobs: %w", err)
	}
	rows, err := c.Store.Crawl.RecoverInProgress(ctx)
	if err != nil {
		return fmt.Errorf("coordinator: recover crawl queue: %w", err)
	}
	observability.LoggerFromContext(ctx).Info().Int("jobs", jobs).Int("crawl_rows", rows).Msg("coordinator: recovered interrupted work")
	return nil
}

// Run polls for dispatchable jobs at interval until ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context) error {
	interval := c.Config.DispatchInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.dispatchTick(ctx)
		}
	}
}

func (c *Coordinator) dispatchTick(ctx context.Context) {
	for _, jobType := range []store.JobType{store.JobIngest, store.JobCrawl, store.JobTranscribe} {
		ts := c.sems[jobType]
		claimed := ts.tryAcquireUpTo(int(ts.capacity))
		if claimed <= 0 {
			continue
		}
		jobs, err := c.Store.Jobs.Dispatch(ctx, jobType, claimed)
		if err != nil {
			observability.LoggerFromContext(ctx).Error().Err(err).Str("job_type", string(jobType)).Msg("coordinator: dispatch failed")
			ts.release(claimed)
			continue
		}
		if unused := claimed - len(jobs); unused > 0 {
			ts.release(unused)
		}
		for _, job := range jobs {
			job := job
			go func() {
				defer ts.release(1)
				c.runJob(ctx, job)
			}()
		}
	}
}

func (c *Coordinator) runJob(ctx context.Context, job store.Job) {
	ctx = observability.WithJobID(ctx, job.ID)
	log := observability.LoggerFromContext(ctx)

	var err error
	switch job.JobType {
	case store.JobIngest:
		err = c.runIngestJob(ctx, job)
	case store.JobCrawl:
		err = c.runCrawlJob(ctx, job)
	case store.JobTranscribe:
		err = c.runTranscribeJob(ctx, job)
	default:
		err = fmt.Errorf("coordinator: unknown job type %q", job.JobType)
	}
	if err != nil {
		log.Error().Err(err).Str("job_type", string(job.JobType)).Msg("coordinator: job failed")
		var failErr error
		if errkind.Retryable(err) {
			failErr = c.Store.Jobs.Fail(ctx, job.ID, err)
		} else {
			failErr = c.Store.Jobs.FailPermanently(ctx, job.ID, err)
		}
		if failErr != nil {
			log.Error().Err(failErr).Msg("coordinator: failed to record job failure")
		}
		return
	}
	if err := c.Store.Jobs.Complete(ctx, job.ID); err != nil {
		log.Error().Err(err).Msg("coordinator: failed to mark job complete")
	}
}

func metaString(md map[string]any, key string) string {
	v, _ := md[key].(string)
	return v
}

func metaBool(md map[string]any, key string, def bool) bool {
	if v, ok := md[key].(bool); ok {
		return v
	}
	return def
}

func metaInt(md map[string]any, key string, def int) int {
	switch v := md[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return def
	}
}

func metaStringSlice(md map[string]any, key string) []string {
	raw, ok := md[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
