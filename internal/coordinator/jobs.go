package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/amelia-run/amelia/internal/crawl"
	"github.com/amelia-run/amelia/internal/errkind"
	"github.com/amelia-run/amelia/internal/ingest"
	"github.com/amelia-run/amelia/internal/observability"
	"github.com/amelia-run/amelia/internal/store"
)

// fileOutcome is the shape recorded per file in a job's metadata.summary,
// shared between the document and audio paths of an ingest job.
type fileOutcome struct {
	Path   string `json:"path"`
	Action string `json:"action"`
	Error  string `json:"error,omitempty"`
}

// runIngestJob ingests every path named in job.Metadata["paths"], honoring
// recursive/file_patterns/transcription_language and routing .mp3/.wav/
// .m4a/.flac files to the transcription pipeline instead of the document
// parser.
func (c *Coordinator) runIngestJob(ctx context.Context, job store.Job) error {
	if c.Ingest == nil {
		return errkind.New(errkind.ConfigurationError, fmt.Errorf("coordinator: no ingest pipeline configured"))
	}
	rawPaths := metaStringSlice(job.Metadata, "paths")
	recursive := metaBool(job.Metadata, "recursive", false)
	patterns := metaStringSlice(job.Metadata, "file_patterns")
	languageHint := orAuto(metaString(job.Metadata, "transcription_language"))

	files, err := ingest.ResolveFiles(ingest.OSStatFS(), rawPaths, recursive, patterns)
	if err != nil {
		return errkind.New(errkind.PermanentInput, fmt.Errorf("coordinator: resolve paths: %w", err))
	}

	var docPaths, audioPaths []string
	for _, p := range files {
		if isAudioPath(p) {
			audioPaths = append(audioPaths, p)
		} else {
			docPaths = append(docPaths, p)
		}
	}

	total := len(files)
	processed := 0
	outcomes := make([]fileOutcome, 0, total)

	if len(docPaths) > 0 {
		summary := c.Ingest.Run(ctx, job.Collection, docPaths, func(done, _ int) {
			if err := c.Store.Jobs.UpdateProgress(ctx, job.ID, processed+done, total); err != nil {
				observability.LoggerFromContext(ctx).Warn().Err(err).Msg("coordinator: progress update failed")
			}
		})
		processed += len(docPaths)
		for _, o := range summary.Outcomes {
			outcomes = append(outcomes, fileOutcome{Path: o.Path, Action: string(o.Action), Error: o.Error})
		}
	}

	if len(audioPaths) > 0 && c.Transcribe == nil {
		for _, p := range audioPaths {
			outcomes = append(outcomes, fileOutcome{Path: p, Action: "error", Error: "no transcription pipeline configured"})
		}
		processed += len(audioPaths)
	} else {
		for _, p := range audioPaths {
			out, err := c.Transcribe.IngestAudio(ctx, job.Collection, p, languageHint)
			o := fileOutcome{Path: p, Action: string(out.Action)}
			if err != nil {
				o.Action = "error"
				o.Error = err.Error()
			}
			outcomes = append(outcomes, o)
			processed++
			if err := c.Store.Jobs.UpdateProgress(ctx, job.ID, processed, total); err != nil {
				observability.LoggerFromContext(ctx).Warn().Err(err).Msg("coordinator: progress update failed")
			}
		}
	}

	return c.Store.Jobs.Summarize(ctx, job.ID, outcomes)
}

func isAudioPath(path string) bool {
	for _, ext := range []string{".mp3", ".wav", ".m4a", ".flac"} {
		if len(path) >= len(ext) && path[len(path)-len(ext):] == ext {
			return true
		}
	}
	return false
}

func orAuto(hint string) string {
	if hint == "" {
		return "auto"
	}
	return hint
}

// runCrawlJob seeds and then repeatedly drains a crawl job's frontier
// until no row is selectable, max_pages is reached, or ctx is cancelled.
func (c *Coordinator) runCrawlJob(ctx context.Context, job store.Job) error {
	if c.Crawl == nil {
		return errkind.New(errkind.ConfigurationError, fmt.Errorf("coordinator: no crawl pipeline configured"))
	}
	seedURL := metaString(job.Metadata, "url")
	opt := crawl.Options{
		MaxDepth:         metaInt(job.Metadata, "max_depth", 3),
		MaxPages:         metaInt(job.Metadata, "max_pages", 1000),
		FollowLinks:      metaBool(job.Metadata, "follow_links", true),
		IncludePatterns:  metaStringSlice(job.Metadata, "include_patterns"),
		ExcludePatterns:  metaStringSlice(job.Metadata, "exclude_patterns"),
		BatchSize:        metaInt(job.Metadata, "batch_size", 5),
		JSEnabled:        metaBool(job.Metadata, "js_enabled", true),
		RespectRobotsTxt: metaBool(job.Metadata, "respect_robots_txt", true),
	}

	if opt.MaxPages == 0 {
		return c.Store.Jobs.UpdateProgress(ctx, job.ID, 0, 0)
	}

	if err := c.Crawl.Seed(ctx, job.ID, job.Collection, seedURL, opt); err != nil {
		return errkind.New(errkind.PermanentInput, fmt.Errorf("coordinator: seed crawl: %w", err))
	}

	const circuitWindow = 5 * time.Minute
	const circuitThreshold = 10
	processed := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		done, err := c.Store.Crawl.CountDone(ctx, job.ID)
		if err != nil {
			return err
		}
		if done >= opt.MaxPages {
			break
		}

		n, err := c.Crawl.ProcessBatch(ctx, job.Collection, opt, circuitWindow, circuitThreshold)
		if err != nil {
			return err
		}
		if n == 0 {
			break
		}
		processed += n
		if err := c.Store.Jobs.UpdateProgress(ctx, job.ID, processed, opt.MaxPages); err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).Msg("coordinator: progress update failed")
		}
	}
	return nil
}

// runTranscribeJob transcribes a single audio file named in
// job.Metadata["path"]. Bulk audio ingestion through ingest_documents
// routes per-file to this same pipeline via runIngestJob; a standalone
// transcribe job exists for callers that only have one file.
func (c *Coordinator) runTranscribeJob(ctx context.Context, job store.Job) error {
	if c.Transcribe == nil {
		return errkind.New(errkind.ConfigurationError, fmt.Errorf("coordinator: no transcription pipeline configured"))
	}
	path := metaString(job.Metadata, "path")
	languageHint := orAuto(metaString(job.Metadata, "transcription_language"))
	out, err := c.Transcribe.IngestAudio(ctx, job.Collection, path, languageHint)
	if err != nil {
		return err
	}
	return c.Store.Jobs.Summarize(ctx, job.ID, []fileOutcome{{Path: path, Action: string(out.Action)}})
}
