package store

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/qdrant/go-client/qdrant"
)

// VectorResult is a single nearest-neighbor hit, ranked by a strategy-
// specific score (cosine similarity for the Postgres backend).
type VectorResult struct {
	ChunkID string
	Score   float64
}

// VectorFilter restricts the candidate set. Fields are AND-ed; empty fields
// are ignored. The Qdrant backend does not filter on Domain.
type VectorFilter struct {
	Collection string
	SourceType string
	FileType   string
	Domain     string
	Language   string
}

// VectorIndex is the pluggable ANN collaborator behind vector_search.
type VectorIndex interface {
	Upsert(ctx context.Context, chunkID string, vector []float32, meta VectorFilter) error
	Delete(ctx context.Context, chunkID string) error
	SimilaritySearch(ctx context.Context, vector []float32, k int, filter VectorFilter) ([]VectorResult, error)
	Dimension() int
}

// NewVectorIndex resolves the configured ANN backend: "postgres" (default)
// keeps embeddings alongside the relational data and pushes filters into
// the same query pre-ANN; "qdrant" offloads the ANN search to a Qdrant
// collection, mirroring metadata into the point payload so it can filter
// there instead.
func NewVectorIndex(backend string, pool *pgxpool.Pool, dsn, collection string, dimension int) (VectorIndex, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", "postgres", "pgvector":
		return &pgVectorIndex{pool: pool, dimension: dimension}, nil
	case "qdrant":
		return newQdrantVectorIndex(dsn, collection, dimension)
	default:
		return nil, fmt.Errorf("store: unsupported vector backend %q", backend)
	}
}

type pgVectorIndex struct {
	pool      *pgxpool.Pool
	dimension int
}

func (p *pgVectorIndex) Dimension() int { return p.dimension }

// Upsert is a no-op for the Postgres backend: PublishChunks already wrote
// the embedding row alongside its chunk in the same transaction.
func (p *pgVectorIndex) Upsert(ctx context.Context, chunkID string, vector []float32, meta VectorFilter) error {
	return nil
}

// Delete is a no-op for the Postgres backend: deleting the owning chunk (or
// document) cascades to its embedding row.
func (p *pgVectorIndex) Delete(ctx context.Context, chunkID string) error { return nil }

func (p *pgVectorIndex) SimilaritySearch(ctx context.Context, vector []float32, k int, filter VectorFilter) ([]VectorResult, error) {
	if k <= 0 {
		k = 10
	}
	vecLit := toVectorLiteral(vector)
	query := `
		SELECT e.chunk_id, 1 - (e.vector <=> $1::vector) AS score
		FROM embeddings e
		JOIN chunks c ON c.id = e.chunk_id
		JOIN documents d ON d.id = c.document_id
		WHERE d.collection = $2`
	args := []any{vecLit, filter.Collection}
	n := 3
	if filter.SourceType != "" {
		query += fmt.Sprintf(" AND d.source_type = $%d", n)
		args = append(args, filter.SourceType)
		n++
	}
	if filter.FileType != "" {
		query += fmt.Sprintf(" AND d.file_type = $%d", n)
		args = append(args, filter.FileType)
		n++
	}
	if filter.Domain != "" {
		query += fmt.Sprintf(" AND d.source_url LIKE $%d", n)
		args = append(args, "%"+filter.Domain+"%")
		n++
	}
	if filter.Language != "" {
		query += fmt.Sprintf(" AND (c.metadata->>'language' = $%d OR d.language_detected = $%d)", n, n)
		args = append(args, filter.Language)
		n++
	}
	query += fmt.Sprintf(" ORDER BY e.vector <=> $1::vector, d.id, c.chunk_index LIMIT $%d", n)
	args = append(args, k)

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: vector search: %w", err)
	}
	defer rows.Close()
	out := make([]VectorResult, 0, k)
	for rows.Next() {
		var r VectorResult
		if err := rows.Scan(&r.ChunkID, &r.Score); err != nil {
			return nil, fmt.Errorf("store: scan vector hit: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func toVectorLiteral(v []float32) string {
	if len(v) == 0 {
		return "[]"
	}
	var b strings.Builder
	b.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(x), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

// qdrantVectorIndex offloads ANN search to Qdrant. Point IDs must be UUIDs,
// so non-UUID chunk ids are mapped deterministically and the original id is
// kept in the payload, the same scheme the rest of the example pack uses
// for Qdrant-backed vector stores.
type qdrantVectorIndex struct {
	client     *qdrant.Client
	collection string
	dimension  int
}

const qdrantOriginalIDField = "_chunk_id"

func newQdrantVectorIndex(dsn, collection string, dimension int) (VectorIndex, error) {
	if collection == "" {
		return nil, fmt.Errorf("store: qdrant collection name is required")
	}
	if dimension <= 0 {
		dimension = EmbeddingDimension
	}
	host, port, useTLS, apiKey, err := parseQdrantDSN(dsn)
	if err != nil {
		return nil, err
	}
	client, err := qdrant.NewClient(&qdrant.Config{Host: host, Port: port, UseTLS: useTLS, APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("store: create qdrant client: %w", err)
	}
	q := &qdrantVectorIndex{client: client, collection: collection, dimension: dimension}
	if err := q.ensureCollection(context.Background()); err != nil {
		client.Close()
		return nil, err
	}
	return q, nil
}

func parseQdrantDSN(dsn string) (host string, port int, useTLS bool, apiKey string, err error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", 0, false, "", fmt.Errorf("store: parse qdrant dsn: %w", err)
	}
	host = u.Hostname()
	if host == "" {
		host = "localhost"
	}
	portStr := u.Port()
	if portStr == "" {
		portStr = "6334"
	}
	port, err = strconv.Atoi(portStr)
	if err != nil {
		return "", 0, false, "", fmt.Errorf("store: invalid qdrant port: %w", err)
	}
	useTLS = u.Scheme == "https"
	apiKey = u.Query().Get("api_key")
	return host, port, useTLS, apiKey, nil
}

func (q *qdrantVectorIndex) Dimension() int { return q.dimension }

func (q *qdrantVectorIndex) ensureCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return fmt.Errorf("store: check qdrant collection: %w", err)
	}
	if exists {
		return nil
	}
	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(q.dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("store: create qdrant collection: %w", err)
	}
	return nil
}

func qdrantPointID(chunkID string) string {
	if _, err := uuid.Parse(chunkID); err == nil {
		return chunkID
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunkID)).String()
}

func (q *qdrantVectorIndex) Upsert(ctx context.Context, chunkID string, vector []float32, meta VectorFilter) error {
	pointID := qdrantPointID(chunkID)
	payload := map[string]any{
		qdrantOriginalIDField: chunkID,
		"collection":          meta.Collection,
		"source_type":         meta.SourceType,
		"file_type":           meta.FileType,
		"language":            meta.Language,
	}
	vec := make([]float32, len(vector))
	copy(vec, vector)
	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewIDUUID(pointID),
			Vectors: qdrant.NewVectorsDense(vec),
			Payload: qdrant.NewValueMap(payload),
		}},
	})
	if err != nil {
		return fmt.Errorf("store: qdrant upsert: %w", err)
	}
	return nil
}

func (q *qdrantVectorIndex) Delete(ctx context.Context, chunkID string) error {
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collection,
		Points:         qdrant.NewPointsSelector(qdrant.NewIDUUID(qdrantPointID(chunkID))),
	})
	if err != nil {
		return fmt.Errorf("store: qdrant delete: %w", err)
	}
	return nil
}

func (q *qdrantVectorIndex) SimilaritySearch(ctx context.Context, vector []float32, k int, filter VectorFilter) ([]VectorResult, error) {
	if k <= 0 {
		k = 10
	}
	must := []*qdrant.Condition{qdrant.NewMatch("collection", filter.Collection)}
	if filter.SourceType != "" {
		must = append(must, qdrant.NewMatch("source_type", filter.SourceType))
	}
	if filter.FileType != "" {
		must = append(must, qdrant.NewMatch("file_type", filter.FileType))
	}
	if filter.Language != "" {
		must = append(must, qdrant.NewMatch("language", filter.Language))
	}
	vec := make([]float32, len(vector))
	copy(vec, vector)
	limit := uint64(k)
	hits, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQueryDense(vec),
		Limit:          &limit,
		Filter:         &qdrant.Filter{Must: must},
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("store: qdrant search: %w", err)
	}
	out := make([]VectorResult, 0, len(hits))
	for _, hit := range hits {
		chunkID := ""
		if hit.Payload != nil {
			if v, ok := hit.Payload[qdrantOriginalIDField]; ok {
				chunkID = v.GetStringValue()
			}
		}
		if chunkID == "" {
			chunkID = hit.Id.GetUuid()
		}
		out = append(out, VectorResult{ChunkID: chunkID, Score: float64(hit.Score)})
	}
	return out, nil
}

func (q *qdrantVectorIndex) Close() error { return q.client.Close() }
