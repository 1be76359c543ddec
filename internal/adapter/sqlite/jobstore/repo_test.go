package jobstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hjonck/leadscout-sub002/internal/adapter/sqlite/testhelper"
	"github.com/hjonck/leadscout-sub002/internal/domain"
)

func TestRepo_CreateJobThenFindResumable(t *testing.T) {
	t.Parallel()

	db := testhelper.SetupTestDB(t)
	repo := New(db)
	ctx := context.Background()

	job := domain.Job{
		JobID:            "job-1",
		InputFileHash:    "hash-abc",
		TotalRows:        10,
		LastCommittedRow: -1,
		StartedAt:        time.Now().UTC().Truncate(time.Second),
		Status:           domain.JobStatusRunning,
	}
	require.NoError(t, repo.CreateJob(ctx, job))

	found, err := repo.FindResumableJob(ctx, "hash-abc")
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, job.JobID, found.JobID)
}

func TestRepo_FindResumableJob_IgnoresDoneJobs(t *testing.T) {
	t.Parallel()

	db := testhelper.SetupTestDB(t)
	repo := New(db)
	ctx := context.Background()

	require.NoError(t, repo.CreateJob(ctx, domain.Job{
		JobID: "job-done", InputFileHash: "hash-done", TotalRows: 1,
		LastCommittedRow: 0, StartedAt: time.Now().UTC(), Status: domain.JobStatusDone,
	}))

	found, err := repo.FindResumableJob(ctx, "hash-done")
	require.NoError(t, err)
	require.Nil(t, found)
}

func TestRepo_CommitBatch_PersistsRowsAndWatermark(t *testing.T) {
	t.Parallel()

	db := testhelper.SetupTestDB(t)
	repo := New(db)
	ctx := context.Background()

	job := domain.Job{
		JobID: "job-2", InputFileHash: "hash-2", TotalRows: 3,
		LastCommittedRow: -1, StartedAt: time.Now().UTC(), Status: domain.JobStatusRunning,
	}
	require.NoError(t, repo.CreateJob(ctx, job))

	rows := []domain.JobRow{
		{JobID: "job-2", RowIndex: 0, InputPayloadHash: "h0", ClassificationJSON: `{"ethnicity":"african"}`, CommittedBatchID: 1},
		{JobID: "job-2", RowIndex: 1, InputPayloadHash: "h1", Error: "boom", CommittedBatchID: 1},
	}
	require.NoError(t, repo.CommitBatch(ctx, "job-2", rows, 1, 1))

	got, err := repo.GetJob(ctx, "job-2")
	require.NoError(t, err)
	require.Equal(t, 1, got.LastCommittedRow)

	listed, err := repo.ListJobRows(ctx, "job-2")
	require.NoError(t, err)
	require.Len(t, listed, 2)
	require.Equal(t, "boom", listed[1].Error)
}

func TestRepo_GetJob_MissingMapsToErrNotFound(t *testing.T) {
	t.Parallel()

	db := testhelper.SetupTestDB(t)
	repo := New(db)

	_, err := repo.GetJob(context.Background(), "does-not-exist")
	require.Error(t, err)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRepo_CreateJob_DuplicateMapsToErrAlreadyExists(t *testing.T) {
	t.Parallel()

	db := testhelper.SetupTestDB(t)
	repo := New(db)
	ctx := context.Background()

	job := domain.Job{
		JobID: "job-dup", InputFileHash: "hash-dup", TotalRows: 1,
		LastCommittedRow: -1, StartedAt: time.Now().UTC(), Status: domain.JobStatusRunning,
	}
	require.NoError(t, repo.CreateJob(ctx, job))

	err := repo.CreateJob(ctx, job)
	require.Error(t, err)
	require.ErrorIs(t, err, domain.ErrAlreadyExists, "a duplicate job_id must map to the domain sentinel, not a raw driver error")
}

func TestRepo_MethodBreakdown(t *testing.T) {
	t.Parallel()

	db := testhelper.SetupTestDB(t)
	repo := New(db)
	ctx := context.Background()

	require.NoError(t, repo.CreateJob(ctx, domain.Job{
		JobID: "job-3", InputFileHash: "hash-3", TotalRows: 2,
		LastCommittedRow: -1, StartedAt: time.Now().UTC(), Status: domain.JobStatusRunning,
	}))
	rows := []domain.JobRow{
		{JobID: "job-3", RowIndex: 0, InputPayloadHash: "h0", ClassificationJSON: `{"method":"rule"}`, CommittedBatchID: 1},
		{JobID: "job-3", RowIndex: 1, InputPayloadHash: "h1", ClassificationJSON: `{"method":"rule"}`, CommittedBatchID: 1},
	}
	require.NoError(t, repo.CommitBatch(ctx, "job-3", rows, 1, 1))

	breakdown, err := repo.MethodBreakdown(ctx, "job-3")
	require.NoError(t, err)
	require.Equal(t, 2, breakdown["rule"])
}
