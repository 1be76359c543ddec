// Package jobstore is the SQLite-backed implementation of
// internal/jobrunner.Repo.
package jobstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sqliteadapter "github.com/hjonck/leadscout-sub002/internal/adapter/sqlite"
	"github.com/hjonck/leadscout-sub002/internal/domain"
)

// Repo implements jobrunner.Repo against SQLite.
type Repo struct {
	db *sql.DB
	tx *sqliteadapter.TxManager
}

// New constructs a Repo over db.
func New(db *sql.DB) *Repo {
	return &Repo{db: db, tx: sqliteadapter.NewTxManager(db)}
}

func (r *Repo) q(ctx context.Context) sqliteadapter.Querier {
	return sqliteadapter.QuerierFromCtx(ctx, r.db)
}

// resumableStatuses are the Job.Status values eligible for resume,
// per spec.md §4.7.
var resumableStatuses = map[domain.JobStatus]bool{
	domain.JobStatusRunning: true,
	domain.JobStatusPaused:  true,
	domain.JobStatusFailed:  true,
}

// FindResumableJob returns the most recent job with inputFileHash if its
// status allows resuming, or nil if there is no such job or the most
// recent one is not resumable; older jobs are not considered.
func (r *Repo) FindResumableJob(ctx context.Context, inputFileHash string) (*domain.Job, error) {
	row := r.q(ctx).QueryRowContext(ctx, `
		SELECT job_id, input_file_hash, total_rows, last_committed_row, started_at, finished_at, status
		FROM jobs WHERE input_file_hash = ? ORDER BY started_at DESC LIMIT 1`, inputFileHash)

	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, sqliteadapter.MapError(err, "jobs", inputFileHash)
	}
	if !resumableStatuses[job.Status] {
		return nil, nil
	}
	return job, nil
}

// CreateJob inserts a new Job row.
func (r *Repo) CreateJob(ctx context.Context, job domain.Job) error {
	_, err := r.q(ctx).ExecContext(ctx, `
		INSERT INTO jobs (job_id, input_file_hash, total_rows, last_committed_row, started_at, finished_at, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		job.JobID, job.InputFileHash, job.TotalRows, job.LastCommittedRow,
		job.StartedAt.Format(time.RFC3339), nullableTime(job.FinishedAt), string(job.Status))
	if err != nil {
		return sqliteadapter.MapError(err, "jobs", job.JobID)
	}
	return nil
}

// GetJob returns a job by ID.
func (r *Repo) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	row := r.q(ctx).QueryRowContext(ctx, `
		SELECT job_id, input_file_hash, total_rows, last_committed_row, started_at, finished_at, status
		FROM jobs WHERE job_id = ?`, jobID)
	job, err := scanJob(row)
	if err != nil {
		return nil, sqliteadapter.MapError(err, "jobs", jobID)
	}
	return job, nil
}

// CommitBatch durably persists one batch: every JobRow in rows, the new
// last_committed_row watermark, in a single transaction (spec.md §4.7
// step 5). Journaling is write-ahead (see sqlite.Open), so readers never
// observe a partial batch.
func (r *Repo) CommitBatch(ctx context.Context, jobID string, rows []domain.JobRow, lastCommittedRow, batchID int) error {
	return r.tx.RunInTx(ctx, func(ctx context.Context) error {
		q := r.q(ctx)
		for _, row := range rows {
			_, err := q.ExecContext(ctx, `
				INSERT INTO job_rows (job_id, row_index, input_payload_hash, classification_json, error, committed_batch_id)
				VALUES (?, ?, ?, ?, ?, ?)
				ON CONFLICT(job_id, row_index) DO UPDATE SET
					input_payload_hash = excluded.input_payload_hash,
					classification_json = excluded.classification_json,
					error = excluded.error,
					committed_batch_id = excluded.committed_batch_id`,
				jobID, row.RowIndex, row.InputPayloadHash, nullableString(row.ClassificationJSON), nullableString(row.Error), row.CommittedBatchID)
			if err != nil {
				return sqliteadapter.MapError(err, "job_rows", fmt.Sprintf("%s/%d", jobID, row.RowIndex))
			}
		}
		_, err := q.ExecContext(ctx, `UPDATE jobs SET last_committed_row = ? WHERE job_id = ?`, lastCommittedRow, jobID)
		if err != nil {
			return sqliteadapter.MapError(err, "jobs", jobID)
		}
		return nil
	})
}

// UpdateJobStatus updates a job's status and, for terminal states, its
// finished_at timestamp.
func (r *Repo) UpdateJobStatus(ctx context.Context, jobID string, status domain.JobStatus, finishedAt *time.Time) error {
	_, err := r.q(ctx).ExecContext(ctx, `
		UPDATE jobs SET status = ?, finished_at = ? WHERE job_id = ?`,
		string(status), nullableTime(finishedAt), jobID)
	if err != nil {
		return sqliteadapter.MapError(err, "jobs", jobID)
	}
	return nil
}

// ListJobRows returns every row persisted for a job, ordered by index.
func (r *Repo) ListJobRows(ctx context.Context, jobID string) ([]domain.JobRow, error) {
	rows, err := r.q(ctx).QueryContext(ctx, `
		SELECT job_id, row_index, input_payload_hash, classification_json, error, committed_batch_id
		FROM job_rows WHERE job_id = ? ORDER BY row_index`, jobID)
	if err != nil {
		return nil, sqliteadapter.MapError(err, "job_rows", jobID)
	}
	defer rows.Close()

	var out []domain.JobRow
	for rows.Next() {
		var jr domain.JobRow
		var classificationJSON, errMsg sql.NullString
		if err := rows.Scan(&jr.JobID, &jr.RowIndex, &jr.InputPayloadHash, &classificationJSON, &errMsg, &jr.CommittedBatchID); err != nil {
			return nil, fmt.Errorf("scan job_row: %w", err)
		}
		jr.ClassificationJSON = classificationJSON.String
		jr.Error = errMsg.String
		out = append(out, jr)
	}
	return out, rows.Err()
}

// MethodBreakdown counts committed rows by their classification method,
// supplementing the spec from original_source/'s
// JobDatabase.get_job_statistics() method_breakdown field.
func (r *Repo) MethodBreakdown(ctx context.Context, jobID string) (map[string]int, error) {
	rows, err := r.ListJobRows(ctx, jobID)
	if err != nil {
		return nil, err
	}
	breakdown := make(map[string]int)
	for _, row := range rows {
		if row.ClassificationJSON == "" {
			continue
		}
		var c domain.Classification
		if err := json.Unmarshal([]byte(row.ClassificationJSON), &c); err != nil {
			continue
		}
		breakdown[string(c.Method)]++
	}
	return breakdown, nil
}

func scanJob(row *sql.Row) (*domain.Job, error) {
	var job domain.Job
	var startedAt string
	var finishedAt sql.NullString
	var status string
	if err := row.Scan(&job.JobID, &job.InputFileHash, &job.TotalRows, &job.LastCommittedRow, &startedAt, &finishedAt, &status); err != nil {
		return nil, err
	}
	var err error
	job.StartedAt, err = time.Parse(time.RFC3339, startedAt)
	if err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if finishedAt.Valid {
		t, err := time.Parse(time.RFC3339, finishedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse finished_at: %w", err)
		}
		job.FinishedAt = &t
	}
	job.Status = domain.JobStatus(status)
	return &job, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
