package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Chunks is the chunk+embedding repository. Chunk and embedding rows are
// always written together inside the caller's transaction so a failed embed
// never leaves a document with a partial chunk set (§4.2 atomicity
// requirement).
type Chunks struct {
	pool *pgxpool.Pool
}

// NewChunks constructs the chunk repository over pool.
func NewChunks(pool *pgxpool.Pool) *Chunks { return &Chunks{pool: pool} }

// WriteChunk is one chunk paired with its embedding vector, staged for a
// single transactional publish.
type WriteChunk struct {
	Chunk  Chunk
	Vector []float32
}

// PublishChunks writes chunks and their embeddings inside tx (opened by
// Documents.Upsert) and commits. On any error the transaction is rolled
// back so the document keeps its prior, fully-formed chunk set.
func PublishChunks(ctx context.Context, tx pgx.Tx, documentID, modelName string, items []WriteChunk) error {
	for _, item := range items {
		if len(item.Vector) != EmbeddingDimension {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("store: embedding dimension mismatch: got %d want %d", len(item.Vector), EmbeddingDimension)
		}
	}

	for _, item := range items {
		md, err := json.Marshal(nonNilMetadata(item.Chunk.Metadata))
		if err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("store: marshal chunk metadata: %w", err)
		}
		var chunkID string
		err = tx.QueryRow(ctx, `
			INSERT INTO chunks (document_id, chunk_index, content, char_count, word_count, headers,
				metadata, start_timestamp, end_timestamp)
			VALUES ($1,$2,$3,$4,$5,NULLIF($6,''),$7,$8,$9)
			RETURNING id`,
			documentID, item.Chunk.ChunkIndex, item.Chunk.Content, item.Chunk.CharCount, item.Chunk.WordCount,
			item.Chunk.Headers, md, item.Chunk.StartTimestamp, item.Chunk.EndTimestamp,
		).Scan(&chunkID)
		if err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("store: insert chunk %d: %w", item.Chunk.ChunkIndex, err)
		}

		vecLit := toVectorLiteral(item.Vector)
		if _, err := tx.Exec(ctx, `
			INSERT INTO embeddings (chunk_id, vector, model_name) VALUES ($1, $2::vector, $3)`,
			chunkID, vecLit, modelName); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("store: insert embedding for chunk %d: %w", item.Chunk.ChunkIndex, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("store: commit chunks: %w", err)
	}
	return nil
}

func nonNilMetadata(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

// CountForCollection returns document and chunk counts broken down by
// source_type and file_type, for the get_statistics tool.
func (c *Chunks) CountForCollection(ctx context.Context, collection string) (Stats, error) {
	var s Stats
	s.BySourceType = map[string]int{}
	s.ByFileType = map[string]int{}

	if err := c.pool.QueryRow(ctx, `SELECT count(*) FROM documents WHERE collection=$1`, collection).Scan(&s.Documents); err != nil {
		return Stats{}, fmt.Errorf("store: count documents: %w", err)
	}
	if err := c.pool.QueryRow(ctx, `
		SELECT count(*) FROM chunks c JOIN documents d ON d.id=c.document_id WHERE d.collection=$1`,
		collection).Scan(&s.Chunks); err != nil {
		return Stats{}, fmt.Errorf("store: count chunks: %w", err)
	}
	rows, err := c.pool.Query(ctx, `
		SELECT source_type, count(*) FROM documents WHERE collection=$1 GROUP BY source_type`, collection)
	if err != nil {
		return Stats{}, fmt.Errorf("store: count by source_type: %w", err)
	}
	for rows.Next() {
		var k string
		var n int
		if err := rows.Scan(&k, &n); err != nil {
			rows.Close()
			return Stats{}, err
		}
		s.BySourceType[k] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Stats{}, err
	}

	rows, err = c.pool.Query(ctx, `
		SELECT COALESCE(file_type,'unknown'), count(*) FROM documents WHERE collection=$1 GROUP BY file_type`, collection)
	if err != nil {
		return Stats{}, fmt.Errorf("store: count by file_type: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var k string
		var n int
		if err := rows.Scan(&k, &n); err != nil {
			return Stats{}, err
		}
		s.ByFileType[k] = n
	}
	return s, rows.Err()
}

// Stats is the aggregate response for get_statistics.
type Stats struct {
	Documents    int
	Chunks       int
	BySourceType map[string]int
	ByFileType   map[string]int
}

// ChunkWithDocument is a chunk joined with the document fields a search
// result needs to render: title, source identity, and source type.
type ChunkWithDocument struct {
	Chunk
	DocumentTitle      string
	DocumentSourcePath string
	DocumentSourceURL  string
	DocumentSourceType SourceType
}

// GetWithDocument fetches chunks (joined with their owning document) by id,
// for assembling search results after a vector/BM25 candidate search
// returns bare chunk ids.
func (c *Chunks) GetWithDocument(ctx context.Context, chunkIDs []string) (map[string]ChunkWithDocument, error) {
	out := make(map[string]ChunkWithDocument, len(chunkIDs))
	if len(chunkIDs) == 0 {
		return out, nil
	}
	rows, err := c.pool.Query(ctx, `
		SELECT c.id, c.document_id, c.chunk_index, c.content, c.char_count, c.word_count,
			COALESCE(c.headers,''), c.metadata, c.start_timestamp, c.end_timestamp,
			COALESCE(d.title,''), COALESCE(d.source_path,''), COALESCE(d.source_url,''), d.source_type
		FROM chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE c.id = ANY($1)`, chunkIDs)
	if err != nil {
		return nil, fmt.Errorf("store: get chunks with document: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var cw ChunkWithDocument
		var md []byte
		if err := rows.Scan(&cw.ID, &cw.DocumentID, &cw.ChunkIndex, &cw.Content, &cw.CharCount, &cw.WordCount,
			&cw.Headers, &md, &cw.StartTimestamp, &cw.EndTimestamp,
			&cw.DocumentTitle, &cw.DocumentSourcePath, &cw.DocumentSourceURL, &cw.DocumentSourceType); err != nil {
			return nil, fmt.Errorf("store: scan chunk with document: %w", err)
		}
		if len(md) > 0 {
			_ = json.Unmarshal(md, &cw.Metadata)
		}
		out[cw.ID] = cw
	}
	return out, rows.Err()
}
