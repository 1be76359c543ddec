// Package jobrunner implements the resumable, checkpointed batch
// classification run described in spec.md §4.7.
package jobrunner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hjonck/leadscout-sub002/internal/domain"
)

// Repo is the persistence boundary jobrunner drives; implemented against
// SQLite by internal/adapter/sqlite/jobstore.
type Repo interface {
	FindResumableJob(ctx context.Context, inputFileHash string) (*domain.Job, error)
	CreateJob(ctx context.Context, job domain.Job) error
	GetJob(ctx context.Context, jobID string) (*domain.Job, error)
	CommitBatch(ctx context.Context, jobID string, rows []domain.JobRow, lastCommittedRow, batchID int) error
	UpdateJobStatus(ctx context.Context, jobID string, status domain.JobStatus, finishedAt *time.Time) error
	ListJobRows(ctx context.Context, jobID string) ([]domain.JobRow, error)
}

// Classifier is the cascade's view from jobrunner's perspective;
// satisfied by cascade.Orchestrator.
type Classifier interface {
	ClassifyName(ctx context.Context, raw string) domain.Classification
}

// RowSource streams InputRows until exhausted (io.EOF).
type RowSource interface {
	Next() (domain.InputRow, error)
}

// Config controls batch size, parallelism, and the failure tolerance
// of a run, per spec.md §6.
type Config struct {
	BatchSize      int     // B, default 100
	RowParallelism int     // P_ROW, default 8
	MaxErrorRatio  float64 // default 0.20
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.RowParallelism <= 0 {
		c.RowParallelism = 8
	}
	if c.MaxErrorRatio <= 0 {
		c.MaxErrorRatio = 0.20
	}
	return c
}

// Runner drives resumable classification jobs; see Run.
type Runner struct {
	repo   Repo
	cls    Classifier
	cfg    Config
	logger *slog.Logger
}

// New constructs a Runner.
func New(repo Repo, cls Classifier, cfg Config, logger *slog.Logger) *Runner {
	return &Runner{repo: repo, cls: cls, cfg: cfg.withDefaults(), logger: logger}
}

// errBatchFailed marks a batch whose error ratio exceeded cfg.MaxErrorRatio.
var errBatchFailed = errors.New("jobrunner: batch exceeded max error ratio")

// Run classifies every row src yields, resuming an existing job for the
// same input file (identified by its content hash) if one is running,
// paused, or failed, or starting a fresh job otherwise. It returns the
// job ID and writes each processed row to out. Rows at or before the
// job's last committed watermark are skipped so a crash mid-run can
// always resume without reclassifying already-committed rows.
func (r *Runner) Run(ctx context.Context, inputFileHash string, totalRows int, src RowSource, out *CSVWriter) (string, error) {
	job, err := r.repo.FindResumableJob(ctx, inputFileHash)
	if err != nil {
		return "", fmt.Errorf("jobrunner: find resumable job: %w", err)
	}
	if job == nil {
		job = &domain.Job{
			JobID:            uuid.NewString(),
			InputFileHash:    inputFileHash,
			TotalRows:        totalRows,
			LastCommittedRow: -1,
			StartedAt:        time.Now().UTC(),
			Status:           domain.JobStatusRunning,
		}
		if err := r.repo.CreateJob(ctx, *job); err != nil {
			return "", fmt.Errorf("jobrunner: create job: %w", err)
		}
		r.logger.Info("job started", slog.String("job_id", job.JobID), slog.Int("total_rows", totalRows))
	} else {
		r.logger.Info("job resumed", slog.String("job_id", job.JobID), slog.Int("last_committed_row", job.LastCommittedRow))
	}

	batchID := 0
	lastCommitted := job.LastCommittedRow

	for {
		batch, eof, err := r.readBatch(src, lastCommitted)
		if err != nil {
			return job.JobID, fmt.Errorf("jobrunner: read batch: %w", err)
		}
		if len(batch) == 0 {
			if eof {
				break
			}
			continue
		}

		rows, jobRows, errored, err := r.classifyBatch(ctx, batch)
		if err != nil {
			return job.JobID, err
		}

		errRatio := float64(errored) / float64(len(batch))
		if errRatio > r.cfg.MaxErrorRatio {
			now := time.Now().UTC()
			_ = r.repo.UpdateJobStatus(ctx, job.JobID, domain.JobStatusFailed, &now)
			return job.JobID, fmt.Errorf("%w: %d/%d rows errored in batch %d", errBatchFailed, errored, len(batch), batchID)
		}

		batchID++
		lastCommitted = batch[len(batch)-1].RowIndex
		for i := range jobRows {
			jobRows[i].JobID = job.JobID
			jobRows[i].CommittedBatchID = batchID
		}
		if err := r.repo.CommitBatch(ctx, job.JobID, jobRows, lastCommitted, batchID); err != nil {
			return job.JobID, fmt.Errorf("jobrunner: commit batch %d: %w", batchID, err)
		}

		for _, row := range rows {
			if err := out.Write(row); err != nil {
				return job.JobID, fmt.Errorf("jobrunner: write output row: %w", err)
			}
		}

		if eof {
			break
		}
	}

	if err := out.Flush(); err != nil {
		return job.JobID, fmt.Errorf("jobrunner: flush output: %w", err)
	}

	now := time.Now().UTC()
	if err := r.repo.UpdateJobStatus(ctx, job.JobID, domain.JobStatusDone, &now); err != nil {
		return job.JobID, fmt.Errorf("jobrunner: mark job done: %w", err)
	}
	r.logger.Info("job finished", slog.String("job_id", job.JobID))
	return job.JobID, nil
}

// readBatch pulls up to cfg.BatchSize rows from src, skipping any row
// at or before lastCommitted. It returns eof=true once src is exhausted,
// which may be on the same call that returns the final partial batch.
func (r *Runner) readBatch(src RowSource, lastCommitted int) ([]domain.InputRow, bool, error) {
	batch := make([]domain.InputRow, 0, r.cfg.BatchSize)
	for len(batch) < r.cfg.BatchSize {
		row, err := src.Next()
		if err != nil {
			if err == io.EOF {
				return batch, true, nil
			}
			return nil, false, err
		}
		if row.RowIndex <= lastCommitted {
			continue
		}
		batch = append(batch, row)
	}
	return batch, false, nil
}

// classifyBatch classifies every row in batch with bounded parallelism
// (cfg.RowParallelism), preserving input order in the returned slices.
func (r *Runner) classifyBatch(ctx context.Context, batch []domain.InputRow) ([]domain.OutputRow, []domain.JobRow, int, error) {
	outRows := make([]domain.OutputRow, len(batch))
	jobRows := make([]domain.JobRow, len(batch))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.RowParallelism)

	for i, row := range batch {
		i, row := i, row
		g.Go(func() error {
			outRows[i], jobRows[i] = r.classifyRow(gctx, row)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, 0, err
	}

	errored := 0
	for _, jr := range jobRows {
		if jr.Error != "" {
			errored++
		}
	}
	return outRows, jobRows, errored, nil
}

// errEmptyDirectorName is the row error surfaced when DirectorName is
// empty or normalizes to nothing (whitespace-only). Only DirectorName
// is ever classified; the core never falls back to EntityName.
const errEmptyDirectorName = "empty or malformed DirectorName"

func (r *Runner) classifyRow(ctx context.Context, row domain.InputRow) (domain.OutputRow, domain.JobRow) {
	if domain.NormalizeName(row.DirectorName) == "" {
		out := domain.OutputRow{
			InputRow:     row,
			Ethnicity:    domain.EthnicityUnknown,
			Status:       domain.RowStatusError,
			ErrorMessage: errEmptyDirectorName,
		}
		jr := domain.JobRow{
			RowIndex:         row.RowIndex,
			InputPayloadHash: hashRow(row),
			Error:            errEmptyDirectorName,
		}
		return out, jr
	}

	c := r.cls.ClassifyName(ctx, row.DirectorName)

	out := domain.OutputRow{
		InputRow:         row,
		Ethnicity:        c.Ethnicity,
		Confidence:       c.Confidence,
		Method:           c.Method,
		ProcessingTimeMs: c.ProcessingTimeMs,
		Status:           domain.RowStatusSuccess,
	}
	if c.Error != "" {
		out.Status = domain.RowStatusError
		out.ErrorMessage = c.Error
	}

	payload, _ := json.Marshal(c)
	jr := domain.JobRow{
		RowIndex:           row.RowIndex,
		InputPayloadHash:   hashRow(row),
		ClassificationJSON: string(payload),
		Error:              c.Error,
	}
	return out, jr
}

func hashRow(row domain.InputRow) string {
	h := sha256.New()
	_, _ = io.WriteString(h, row.EntityName+"|"+row.DirectorName+"|"+row.Keyword)
	return hex.EncodeToString(h.Sum(nil))
}

// HashFile computes the content hash used to identify a job's input
// file across resumed runs.
func HashFile(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("jobrunner: hash input file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
