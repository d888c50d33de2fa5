package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Bootstrap creates Amelia's schema if absent. It is idempotent
// (CREATE ... IF NOT EXISTS throughout) and safe to run on every startup,
// following the teacher's best-effort bootstrap idiom rather than a
// separate migration tool.
func Bootstrap(ctx context.Context, pool *pgxpool.Pool, embeddingDim int) error {
	if embeddingDim <= 0 {
		embeddingDim = EmbeddingDimension
	}
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE EXTENSION IF NOT EXISTS pg_trgm`,
		`CREATE TABLE IF NOT EXISTS documents (
			id                UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			collection        TEXT NOT NULL,
			source_type       TEXT NOT NULL,
			source_path       TEXT,
			source_url        TEXT,
			file_type         TEXT,
			title             TEXT,
			content_hash      TEXT NOT NULL,
			version           INT NOT NULL DEFAULT 1,
			indexed_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
			last_modified     TIMESTAMPTZ,
			crawled_at        TIMESTAMPTZ,
			audio_duration    DOUBLE PRECISION,
			language_detected TEXT,
			transcript_model  TEXT
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS documents_collection_path_uidx
			ON documents (collection, source_path) WHERE source_path IS NOT NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS documents_collection_url_uidx
			ON documents (collection, source_url) WHERE source_url IS NOT NULL`,
		`CREATE TABLE IF NOT EXISTS chunks (
			id              UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			document_id     UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			chunk_index     INT NOT NULL,
			content         TEXT NOT NULL,
			char_count      INT NOT NULL,
			word_count      INT NOT NULL,
			headers         TEXT,
			metadata        JSONB NOT NULL DEFAULT '{}'::jsonb,
			start_timestamp DOUBLE PRECISION,
			end_timestamp   DOUBLE PRECISION,
			ts              tsvector,
			UNIQUE (document_id, chunk_index)
		)`,
		`CREATE INDEX IF NOT EXISTS chunks_ts_idx ON chunks USING GIN (ts)`,
		`CREATE INDEX IF NOT EXISTS chunks_document_id_idx ON chunks (document_id)`,
		// Per-row dictionary selection: a GENERATED column cannot branch on
		// metadata, so the BM25 entry is maintained by a write-path trigger
		// instead, per the store contract's "trigger or equivalent hook".
		`CREATE OR REPLACE FUNCTION chunks_tsvector_refresh() RETURNS trigger AS $$
		DECLARE
			cfg regconfig;
		BEGIN
			BEGIN
				cfg := to_regconfig(COALESCE(NEW.metadata->>'language', 'english'));
			EXCEPTION WHEN OTHERS THEN
				cfg := NULL;
			END;
			IF cfg IS NULL THEN
				cfg := 'english'::regconfig;
			END IF;
			NEW.ts := to_tsvector(cfg, COALESCE(NEW.content, ''));
			RETURN NEW;
		END;
		$$ LANGUAGE plpgsql`,
		`DROP TRIGGER IF EXISTS chunks_tsvector_trigger ON chunks`,
		`CREATE TRIGGER chunks_tsvector_trigger
			BEFORE INSERT OR UPDATE OF content, metadata ON chunks
			FOR EACH ROW EXECUTE FUNCTION chunks_tsvector_refresh()`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS embeddings (
			chunk_id   UUID PRIMARY KEY REFERENCES chunks(id) ON DELETE CASCADE,
			vector     vector(%d) NOT NULL,
			model_name TEXT NOT NULL
		)`, embeddingDim),
		`CREATE INDEX IF NOT EXISTS embeddings_vector_hnsw_idx ON embeddings
			USING hnsw (vector vector_cosine_ops) WITH (m = 16, ef_construction = 64)`,
		`CREATE TABLE IF NOT EXISTS jobs (
			id              UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			job_type        TEXT NOT NULL,
			collection      TEXT NOT NULL,
			status          TEXT NOT NULL DEFAULT 'pending',
			progress        INT NOT NULL DEFAULT 0,
			total_items     INT NOT NULL DEFAULT 0,
			processed_items INT NOT NULL DEFAULT 0,
			error_message   TEXT,
			metadata        JSONB NOT NULL DEFAULT '{}'::jsonb,
			retry_count     INT NOT NULL DEFAULT 0,
			max_retries     INT NOT NULL DEFAULT 3,
			next_run_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
			last_retry_at   TIMESTAMPTZ,
			backoff_delay   INT NOT NULL DEFAULT 0,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
			completed_at    TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS jobs_dispatch_idx ON jobs (status, next_run_at)`,
		`CREATE TABLE IF NOT EXISTS crawled_urls (
			url         TEXT NOT NULL,
			collection  TEXT NOT NULL,
			crawled_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
			status_code INT,
			PRIMARY KEY (collection, url)
		)`,
		`CREATE TABLE IF NOT EXISTS crawl_queue (
			id              UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			job_id          UUID NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
			url             TEXT NOT NULL,
			collection      TEXT NOT NULL,
			depth           INT NOT NULL DEFAULT 0,
			max_depth       INT NOT NULL DEFAULT 3,
			priority        INT NOT NULL DEFAULT 0,
			parent_url      TEXT,
			seed_url        TEXT NOT NULL,
			retry_count     INT NOT NULL DEFAULT 0,
			last_attempt_at TIMESTAMPTZ,
			last_error      TEXT,
			status          TEXT NOT NULL DEFAULT 'pending',
			discovered_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (collection, url)
		)`,
		`CREATE INDEX IF NOT EXISTS crawl_queue_selection_idx
			ON crawl_queue (collection, status, priority DESC, discovered_at ASC)`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("store: bootstrap: %w", err)
		}
	}
	return nil
}
