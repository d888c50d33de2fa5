package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Jobs is the durable job-queue repository backing the coordinator.
type Jobs struct {
	pool *pgxpool.Pool
}

// NewJobs constructs the job repository over pool.
func NewJobs(pool *pgxpool.Pool) *Jobs { return &Jobs{pool: pool} }

// Submit creates a pending job, ready for immediate dispatch.
func (j *Jobs) Submit(ctx context.Context, jobType JobType, collection string, metadata map[string]any) (string, error) {
	md, err := json.Marshal(nonNilAny(metadata))
	if err != nil {
		return "", fmt.Errorf("store: marshal job metadata: %w", err)
	}
	var id string
	err = j.pool.QueryRow(ctx, `
		INSERT INTO jobs (job_type, collection, status, metadata)
		VALUES ($1,$2,'pending',$3)
		RETURNING id`, string(jobType), collection, md).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("store: submit job: %w", err)
	}
	return id, nil
}

// Get fetches a job by id.
func (j *Jobs) Get(ctx context.Context, id string) (Job, bool, error) {
	row := j.pool.QueryRow(ctx, jobSelectColumns+` FROM jobs WHERE id=$1`, id)
	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Job{}, false, nil
	}
	if err != nil {
		return Job{}, false, fmt.Errorf("store: get job: %w", err)
	}
	return job, true, nil
}

// Cancel marks a pending or running job as failed with a cancellation
// message so it is not retried by the dispatch loop.
func (j *Jobs) Cancel(ctx context.Context, id string) error {
	tag, err := j.pool.Exec(ctx, `
		UPDATE jobs SET status='failed', error_message='cancelled', updated_at=now(), completed_at=now()
		WHERE id=$1 AND status IN ('pending','running')`, id)
	if err != nil {
		return fmt.Errorf("store: cancel job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("store: job %s is not pending or running", id)
	}
	return nil
}

// Dispatch atomically claims up to limit pending jobs of jobType whose
// next_run_at has elapsed, flipping them to running via a compare-and-set
// UPDATE so two coordinator instances never claim the same job.
func (j *Jobs) Dispatch(ctx context.Context, jobType JobType, limit int) ([]Job, error) {
	if limit <= 0 {
		limit = 1
	}
	rows, err := j.pool.Query(ctx, `
		UPDATE jobs SET status='running', updated_at=now()
		WHERE id IN (
			SELECT id FROM jobs
			WHERE job_type=$1 AND status='pending' AND next_run_at <= now()
			ORDER BY next_run_at ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, job_type, collection, status, progress, total_items, processed_items,
			COALESCE(error_message,''), metadata, retry_count, max_retries, next_run_at,
			last_retry_at, backoff_delay, created_at, updated_at, completed_at`,
		string(jobType), limit)
	if err != nil {
		return nil, fmt.Errorf("store: dispatch jobs: %w", err)
	}
	defer rows.Close()
	var out []Job
	for rows.Next() {
		job, err := scanJobRows(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan dispatched job: %w", err)
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

// UpdateProgress records incremental progress on a running job.
func (j *Jobs) UpdateProgress(ctx context.Context, id string, processed, total int) error {
	progress := 0
	if total > 0 {
		progress = int(math.Round(float64(processed) / float64(total) * 100))
	}
	_, err := j.pool.Exec(ctx, `
		UPDATE jobs SET processed_items=$1, total_items=$2, progress=$3, updated_at=now() WHERE id=$4`,
		processed, total, progress, id)
	if err != nil {
		return fmt.Errorf("store: update job progress: %w", err)
	}
	return nil
}

// Summarize merges a "summary" key into a job's metadata, the per-item
// outcome record the coordinator attaches once a job finishes processing
// its batch (e.g. which files were skipped vs created).
func (j *Jobs) Summarize(ctx context.Context, id string, summary any) error {
	md, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("store: marshal job summary: %w", err)
	}
	_, err = j.pool.Exec(ctx, `
		UPDATE jobs SET metadata = metadata || jsonb_build_object('summary', $1::jsonb), updated_at=now()
		WHERE id=$2`, md, id)
	if err != nil {
		return fmt.Errorf("store: record job summary: %w", err)
	}
	return nil
}

// Complete marks a job as completed.
func (j *Jobs) Complete(ctx context.Context, id string) error {
	_, err := j.pool.Exec(ctx, `
		UPDATE jobs SET status='completed', progress=100, updated_at=now(), completed_at=now() WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("store: complete job: %w", err)
	}
	return nil
}

// Fail records a failed attempt. If retry_count has not reached
// max_retries, the job is returned to pending with an exponential backoff
// of min(60, 2^(retry_count-1)) seconds before next_run_at; otherwise it is
// marked permanently failed.
func (j *Jobs) Fail(ctx context.Context, id string, cause error) error {
	var retryCount, maxRetries int
	err := j.pool.QueryRow(ctx, `SELECT retry_count, max_retries FROM jobs WHERE id=$1`, id).Scan(&retryCount, &maxRetries)
	if err != nil {
		return fmt.Errorf("store: fail job: load retry state: %w", err)
	}
	retryCount++
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	if retryCount > maxRetries {
		_, err = j.pool.Exec(ctx, `
			UPDATE jobs SET status='failed', retry_count=$1, error_message=$2, updated_at=now(), completed_at=now()
			WHERE id=$3 AND status='running'`, retryCount, msg, id)
		if err != nil {
			return fmt.Errorf("store: mark job failed: %w", err)
		}
		return nil
	}
	backoff := backoffSeconds(retryCount)
	_, err = j.pool.Exec(ctx, `
		UPDATE jobs SET status='pending', retry_count=$1, error_message=$2, backoff_delay=$3,
			last_retry_at=now(), next_run_at=now() + ($3 || ' seconds')::interval, updated_at=now()
		WHERE id=$4 AND status='running'`, retryCount, msg, backoff, id)
	if err != nil {
		return fmt.Errorf("store: reschedule job: %w", err)
	}
	return nil
}

// FailPermanently marks a job failed without scheduling a retry,
// regardless of retry_count, for errors the coordinator has classified as
// non-retryable (bad input, misconfiguration).
func (j *Jobs) FailPermanently(ctx context.Context, id string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	_, err := j.pool.Exec(ctx, `
		UPDATE jobs SET status='failed', error_message=$1, updated_at=now(), completed_at=now()
		WHERE id=$2`, msg, id)
	if err != nil {
		return fmt.Errorf("store: mark job permanently failed: %w", err)
	}
	return nil
}

// backoffSeconds implements min(60, 2^(retryCount-1)).
func backoffSeconds(retryCount int) int {
	if retryCount <= 0 {
		return 0
	}
	delay := int(math.Pow(2, float64(retryCount-1)))
	if delay > 60 {
		delay = 60
	}
	return delay
}

// Recover resets jobs left in 'running' by a process that crashed
// mid-dispatch. A job with retries remaining goes back to 'pending' with
// next_run_at pushed out by its backoff delay; one that has exhausted its
// retries is marked 'failed' with an interrupted message, per the
// crash-recovery invariant.
func (j *Jobs) Recover(ctx context.Context) (int, error) {
	rows, err := j.pool.Query(ctx, `SELECT id, retry_count, max_retries FROM jobs WHERE status='running'`)
	if err != nil {
		return 0, fmt.Errorf("store: recover jobs: load running: %w", err)
	}
	type stuck struct {
		id                   string
		retryCount, maxRetries int
	}
	var jobs []stuck
	for rows.Next() {
		var s stuck
		if err := rows.Scan(&s.id, &s.retryCount, &s.maxRetries); err != nil {
			rows.Close()
			return 0, fmt.Errorf("store: recover jobs: scan: %w", err)
		}
		jobs = append(jobs, s)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("store: recover jobs: %w", err)
	}
	rows.Close()

	for _, s := range jobs {
		retryCount := s.retryCount + 1
		if retryCount > s.maxRetries {
			_, err = j.pool.Exec(ctx, `
				UPDATE jobs SET status='failed', retry_count=$1, error_message='interrupted', updated_at=now(), completed_at=now()
				WHERE id=$2`, retryCount, s.id)
			if err != nil {
				return 0, fmt.Errorf("store: recover jobs: mark failed: %w", err)
			}
			continue
		}
		backoff := backoffSeconds(retryCount)
		_, err = j.pool.Exec(ctx, `
			UPDATE jobs SET status='pending', retry_count=$1, error_message='interrupted', backoff_delay=$2,
				last_retry_at=now(), next_run_at=now() + ($2 || ' seconds')::interval, updated_at=now()
			WHERE id=$3`, retryCount, backoff, s.id)
		if err != nil {
			return 0, fmt.Errorf("store: recover jobs: reschedule: %w", err)
		}
	}
	return len(jobs), nil
}

const jobSelectColumns = `
	SELECT id, job_type, collection, status, progress, total_items, processed_items,
		COALESCE(error_message,''), metadata, retry_count, max_retries, next_run_at,
		last_retry_at, backoff_delay, created_at, updated_at, completed_at`

func scanJob(row pgx.Row) (Job, error) {
	var job Job
	var md []byte
	var completedAt *time.Time
	err := row.Scan(&job.ID, &job.JobType, &job.Collection, &job.Status, &job.Progress, &job.TotalItems,
		&job.ProcessedItems, &job.ErrorMessage, &md, &job.RetryCount, &job.MaxRetries, &job.NextRunAt,
		&job.LastRetryAt, &job.BackoffDelay, &job.CreatedAt, &job.UpdatedAt, &completedAt)
	if err != nil {
		return Job{}, err
	}
	job.CompletedAt = completedAt
	if len(md) > 0 {
		_ = json.Unmarshal(md, &job.Metadata)
	}
	return job, nil
}

func scanJobRows(rows pgx.Rows) (Job, error) {
	var job Job
	var md []byte
	var completedAt *time.Time
	err := rows.Scan(&job.ID, &job.JobType, &job.Collection, &job.Status, &job.Progress, &job.TotalItems,
		&job.ProcessedItems, &job.ErrorMessage, &md, &job.RetryCount, &job.MaxRetries, &job.NextRunAt,
		&job.LastRetryAt, &job.BackoffDelay, &job.CreatedAt, &job.UpdatedAt, &completedAt)
	if err != nil {
		return Job{}, err
	}
	job.CompletedAt = completedAt
	if len(md) > 0 {
		_ = json.Unmarshal(md, &job.Metadata)
	}
	return job, nil
}

func nonNilAny(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
