package transcribe

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/amelia-run/amelia/internal/chunker"
	"github.com/amelia-run/amelia/internal/contenthash"
	"github.com/amelia-run/amelia/internal/embedder"
	"github.com/amelia-run/amelia/internal/store"
)

// Outcome records what happened to a single audio file.
type Outcome struct {
	Path    string
	Action  store.IngestAction
	Version int
	Error   string
}

// Pipeline wires the ASR collaborator, store, and embedder needed to
// transcribe an audio file into a searchable, timestamped document.
type Pipeline struct {
	Store     *store.Store
	ASR       ASR
	Embedder  embedder.Embedder
	ChunkOpts chunker.Options
	ModelName string // whisper model identifier recorded on the document
}

// IngestAudio transcribes path, canonicalizes the transcript to markdown,
// and publishes timestamp-aware chunks. languageHint, if non-empty, is
// passed to the ASR backend; otherwise the backend's own detection is
// trusted and recorded on the document.
func (p *Pipeline) IngestAudio(ctx context.Context, collection, path, languageHint string) (Outcome, error) {
	transcript, err := p.ASR.Transcribe(ctx, path, languageHint)
	if err != nil {
		return Outcome{Path: path, Error: err.Error()}, fmt.Errorf("transcribe: %s: %w", path, err)
	}

	markdown := ToMarkdown(transcript)
	canonical := contenthash.Canonicalize(markdown)
	hash := contenthash.Hash(canonical)

	identity := store.DocumentIdentity{
		Collection:  collection,
		SourcePath:  path,
		SourceType:  store.SourceAudio,
		FileType:    strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."),
		Title:       filepath.Base(path),
		ContentHash: hash,
	}

	tx, decision, err := p.Store.Documents.Upsert(ctx, identity)
	if err != nil {
		return Outcome{Path: path, Error: err.Error()}, err
	}
	outcome := Outcome{Path: path, Action: decision.Action, Version: decision.Version}
	if decision.Action == store.ActionSkipped {
		return outcome, nil
	}

	segments := make([]chunker.Segment, len(transcript.Segments))
	for i, s := range transcript.Segments {
		segments[i] = chunker.Segment{Start: s.Start, End: s.End, Text: s.Text}
	}
	rawChunks := chunker.SplitSegments(segments, p.ChunkOpts)

	if len(rawChunks) > 0 {
		texts := make([]string, len(rawChunks))
		for i, c := range rawChunks {
			texts[i] = c.Text
		}
		vectors, err := p.Embedder.EmbedBatch(ctx, texts)
		if err != nil {
			_ = tx.Rollback(ctx)
			outcome.Error = err.Error()
			return outcome, fmt.Errorf("transcribe: embed %s: %w", path, err)
		}
		if len(vectors) != len(rawChunks) {
			_ = tx.Rollback(ctx)
			err := fmt.Errorf("transcribe: embedder returned %d vectors for %d chunks", len(vectors), len(rawChunks))
			outcome.Error = err.Error()
			return outcome, err
		}

		langConfig := store.ResolveLanguageConfig(transcript.DetectedLanguage)
		items := make([]store.WriteChunk, len(rawChunks))
		for i, c := range rawChunks {
			items[i] = store.WriteChunk{
				Chunk: store.Chunk{
					ChunkIndex:     c.Index,
					Content:        c.Text,
					CharCount:      len([]rune(c.Text)),
					WordCount:      len(strings.Fields(c.Text)),
					Metadata:       map[string]string{"language": langConfig},
					StartTimestamp: c.StartTimestamp,
					EndTimestamp:   c.EndTimestamp,
				},
				Vector: vectors[i],
			}
		}
		if err := store.PublishChunks(ctx, tx, decision.DocumentID, p.Embedder.Name(), items); err != nil {
			outcome.Error = err.Error()
			return outcome, fmt.Errorf("transcribe: publish chunks for %s: %w", path, err)
		}
	} else if err := tx.Commit(ctx); err != nil {
		return outcome, fmt.Errorf("transcribe: commit empty document %s: %w", path, err)
	}

	if err := p.Store.Documents.SetAudioMeta(ctx, decision.DocumentID, transcript.Duration, transcript.DetectedLanguage, p.ModelName); err != nil {
		return outcome, fmt.Errorf("transcribe: set audio metadata for %s: %w", path, err)
	}
	return outcome, nil
}
