package observability

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type ctxFieldsKey struct{}

// WithJobID returns a context carrying a job_id field that LoggerFromContext
// attaches to every log line, mirroring the stage-tagged logging the
// ingestion and retrieval pipelines already do per call.
func WithJobID(ctx context.Context, jobID string) context.Context {
	return context.WithValue(ctx, ctxFieldsKey{}, jobID)
}

// LoggerFromContext returns a zerolog.Logger enriched with the job_id set by
// WithJobID, if any.
func LoggerFromContext(ctx context.Context) *zerolog.Logger {
	l := log.Logger
	if ctx == nil {
		return &l
	}
	if jobID, ok := ctx.Value(ctxFieldsKey{}).(string); ok && jobID != "" {
		l = l.With().Str("job_id", jobID).Logger()
	}
	return &l
}
