package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// IngestAction reports what Documents.Upsert did, mirroring the
// created/skipped/updated vocabulary scenario 1 and 2 require.
type IngestAction string

const (
	ActionCreated IngestAction = "created"
	ActionSkipped IngestAction = "skipped"
	ActionUpdated IngestAction = "updated"
)

// IngestDecision is the outcome of resolving a document's identity against
// its previous content hash.
type IngestDecision struct {
	Action     IngestAction
	DocumentID string
	Version    int
}

// DocumentIdentity names a document by its collection-scoped unique key
// (source_path for local/audio, source_url for web).
type DocumentIdentity struct {
	Collection  string
	SourcePath  string
	SourceURL   string
	SourceType  SourceType
	FileType    string
	Title       string
	ContentHash string
}

// Documents is the document repository.
type Documents struct {
	pool *pgxpool.Pool
}

// NewDocuments constructs the document repository over pool.
func NewDocuments(pool *pgxpool.Pool) *Documents { return &Documents{pool: pool} }

// Upsert resolves the content-addressed lifecycle of §4.2 step 4: insert a
// new document at version 1, skip a content-identical re-ingestion, or bump
// the version and delete descendant chunks (cascading to embeddings and the
// BM25 index) when the content changed. The caller commits the rest of the
// ingestion (chunk/embedding writes) in the returned transaction, which must
// be committed or rolled back by the caller. On a skip the transaction is
// already committed here and a nil transaction is returned.
func (d *Documents) Upsert(ctx context.Context, id DocumentIdentity) (pgx.Tx, IngestDecision, error) {
	if id.SourcePath == "" && id.SourceURL == "" {
		return nil, IngestDecision{}, fmt.Errorf("store: document identity requires source_path or source_url")
	}

	tx, err := d.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, IngestDecision{}, fmt.Errorf("store: begin upsert: %w", err)
	}

	var (
		existingID   string
		existingHash string
		existingVer  int
	)
	var row pgx.Row
	if id.SourcePath != "" {
		row = tx.QueryRow(ctx, `SELECT id, content_hash, version FROM documents
			WHERE collection=$1 AND source_path=$2 FOR UPDATE`, id.Collection, id.SourcePath)
	} else {
		row = tx.QueryRow(ctx, `SELECT id, content_hash, version FROM documents
			WHERE collection=$1 AND source_url=$2 FOR UPDATE`, id.Collection, id.SourceURL)
	}
	err = row.Scan(&existingID, &existingHash, &existingVer)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		now := time.Now().UTC()
		var newID string
		insErr := tx.QueryRow(ctx, `
			INSERT INTO documents (collection, source_type, source_path, source_url, file_type, title,
				content_hash, version, indexed_at, last_modified, crawled_at)
			VALUES ($1,$2,NULLIF($3,''),NULLIF($4,''),$5,$6,$7,1,$8,$9,$10)
			RETURNING id`,
			id.Collection, string(id.SourceType), id.SourcePath, id.SourceURL, id.FileType, id.Title,
			id.ContentHash, now, docLastModified(id.SourceType, now), docCrawledAt(id.SourceType, now),
		).Scan(&newID)
		if insErr != nil {
			_ = tx.Rollback(ctx)
			return nil, IngestDecision{}, fmt.Errorf("store: insert document: %w", insErr)
		}
		return tx, IngestDecision{Action: ActionCreated, DocumentID: newID, Version: 1}, nil
	case err != nil:
		_ = tx.Rollback(ctx)
		return nil, IngestDecision{}, fmt.Errorf("store: lookup document: %w", err)
	}

	if existingHash == id.ContentHash {
		// Idempotent skip: commit without changes so the FOR UPDATE lock
		// releases, but nothing else is written.
		if cerr := tx.Commit(ctx); cerr != nil {
			return nil, IngestDecision{}, fmt.Errorf("store: commit skip: %w", cerr)
		}
		return nil, IngestDecision{Action: ActionSkipped, DocumentID: existingID, Version: existingVer}, nil
	}

	now := time.Now().UTC()
	newVersion := existingVer + 1
	if _, err := tx.Exec(ctx, `DELETE FROM chunks WHERE document_id=$1`, existingID); err != nil {
		_ = tx.Rollback(ctx)
		return nil, IngestDecision{}, fmt.Errorf("store: delete stale chunks: %w", err)
	}
	_, err = tx.Exec(ctx, `
		UPDATE documents SET content_hash=$1, version=$2, last_modified=$3, crawled_at=$4,
			title=COALESCE(NULLIF($5,''), title), file_type=COALESCE(NULLIF($6,''), file_type)
		WHERE id=$7`,
		id.ContentHash, newVersion, docLastModified(id.SourceType, now), docCrawledAt(id.SourceType, now),
		id.Title, id.FileType, existingID)
	if err != nil {
		_ = tx.Rollback(ctx)
		return nil, IngestDecision{}, fmt.Errorf("store: update document: %w", err)
	}
	return tx, IngestDecision{Action: ActionUpdated, DocumentID: existingID, Version: newVersion}, nil
}

func docLastModified(st SourceType, now time.Time) any {
	if st == SourceWeb {
		return nil
	}
	return now
}

func docCrawledAt(st SourceType, now time.Time) any {
	if st != SourceWeb {
		return nil
	}
	return now
}

// SetAudioMeta records document-level attributes populated by the
// transcription pipeline after a successful transcribe.
func (d *Documents) SetAudioMeta(ctx context.Context, documentID string, duration float64, languageDetected, transcriptModel string) error {
	_, err := d.pool.Exec(ctx, `
		UPDATE documents SET audio_duration=$1, language_detected=$2, transcript_model=$3 WHERE id=$4`,
		duration, languageDetected, transcriptModel, documentID)
	return err
}

// Get fetches a document by id.
func (d *Documents) Get(ctx context.Context, id string) (Document, bool, error) {
	row := d.pool.QueryRow(ctx, `
		SELECT id, collection, source_type, COALESCE(source_path,''), COALESCE(source_url,''),
			COALESCE(file_type,''), COALESCE(title,''), content_hash, version, indexed_at,
			COALESCE(last_modified, now()), COALESCE(crawled_at, now()), COALESCE(audio_duration,0),
			COALESCE(language_detected,''), COALESCE(transcript_model,'')
		FROM documents WHERE id=$1`, id)
	var doc Document
	err := row.Scan(&doc.ID, &doc.Collection, &doc.SourceType, &doc.SourcePath, &doc.SourceURL,
		&doc.FileType, &doc.Title, &doc.ContentHash, &doc.Version, &doc.IndexedAt,
		&doc.LastModified, &doc.CrawledAt, &doc.AudioDuration, &doc.LanguageDetected, &doc.TranscriptModel)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, false, nil
	}
	if err != nil {
		return Document{}, false, fmt.Errorf("store: get document: %w", err)
	}
	return doc, true, nil
}

// List returns documents in a collection, optionally filtered by source type.
func (d *Documents) List(ctx context.Context, collection string, sourceType SourceType, limit int) ([]Document, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, collection, source_type, COALESCE(source_path,''), COALESCE(source_url,''),
			COALESCE(file_type,''), COALESCE(title,''), content_hash, version, indexed_at,
			COALESCE(last_modified, now()), COALESCE(crawled_at, now())
		FROM documents WHERE collection=$1`
	args := []any{collection}
	if sourceType != "" && sourceType != "all" {
		query += ` AND source_type=$2 ORDER BY indexed_at DESC LIMIT $3`
		args = append(args, string(sourceType), limit)
	} else {
		query += ` ORDER BY indexed_at DESC LIMIT $2`
		args = append(args, limit)
	}
	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list documents: %w", err)
	}
	defer rows.Close()
	var out []Document
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.ID, &doc.Collection, &doc.SourceType, &doc.SourcePath, &doc.SourceURL,
			&doc.FileType, &doc.Title, &doc.ContentHash, &doc.Version, &doc.IndexedAt,
			&doc.LastModified, &doc.CrawledAt); err != nil {
			return nil, fmt.Errorf("store: scan document: %w", err)
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// Remove deletes documents matching the given source identity (cascades to
// chunks and embeddings), returning the number removed.
func (d *Documents) Remove(ctx context.Context, collection, sourcePath, sourceURL string) (int, error) {
	var tag pgconn.CommandTag
	var err error
	switch {
	case sourcePath != "":
		tag, err = d.pool.Exec(ctx, `DELETE FROM documents WHERE collection=$1 AND source_path=$2`, collection, sourcePath)
	case sourceURL != "":
		tag, err = d.pool.Exec(ctx, `DELETE FROM documents WHERE collection=$1 AND source_url=$2`, collection, sourceURL)
	default:
		return 0, fmt.Errorf("store: remove requires source_path or source_url")
	}
	if err != nil {
		return 0, fmt.Errorf("store: remove document: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
