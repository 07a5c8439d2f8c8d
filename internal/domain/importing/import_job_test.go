package importing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		name   string
		status JobStatus
		want   bool
	}{
		{"pending", JobStatusPending, false},
		{"in progress", JobStatusInProgress, false},
		{"completed", JobStatusCompleted, true},
		{"failed", JobStatusFailed, true},
		{"cancelled", JobStatusCancelled, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.IsTerminal())
		})
	}
}

func TestNewImportJob(t *testing.T) {
	userID := uuid.New()

	t.Run("success", func(t *testing.T) {
		job, err := NewImportJob(userID, SourceBookkeeping, nil)
		require.NoError(t, err)
		assert.Equal(t, userID, job.UserID)
		assert.Equal(t, JobStatusPending, job.Status)
		assert.NotEqual(t, uuid.Nil, job.ID)
		assert.Nil(t, job.CompletedAt)
		assert.Nil(t, job.DurationSeconds)
		assert.InDelta(t, 5, job.Progress(), 0.001)
	})

	t.Run("invalid source", func(t *testing.T) {
		_, err := NewImportJob(userID, ImportSource("ftp"), nil)
		assert.Error(t, err)
	})

	t.Run("nil user", func(t *testing.T) {
		_, err := NewImportJob(uuid.Nil, SourceBankFeed, nil)
		assert.Error(t, err)
	})
}

func TestImportJob_StateMachine(t *testing.T) {
	newJob := func(t *testing.T) *ImportJob {
		t.Helper()
		job, err := NewImportJob(uuid.New(), SourceBankFeed, nil)
		require.NoError(t, err)
		return job
	}

	t.Run("pending to in progress", func(t *testing.T) {
		job := newJob(t)
		require.NoError(t, job.Start(10))
		assert.Equal(t, JobStatusInProgress, job.Status)
		assert.Equal(t, 10, job.Counters.Total)
	})

	t.Run("cannot start twice", func(t *testing.T) {
		job := newJob(t)
		require.NoError(t, job.Start(10))
		assert.Error(t, job.Start(10))
	})

	t.Run("cannot complete from pending", func(t *testing.T) {
		job := newJob(t)
		assert.Error(t, job.Complete())
	})

	t.Run("terminal jobs are immutable", func(t *testing.T) {
		job := newJob(t)
		require.NoError(t, job.Start(1))
		require.NoError(t, job.Complete())

		assert.Error(t, job.Fail())
		assert.Error(t, job.Cancel())
		assert.Error(t, job.AddImported(1))
	})

	t.Run("fail from pending keeps counters", func(t *testing.T) {
		job := newJob(t)
		require.NoError(t, job.Fail())
		assert.Equal(t, JobStatusFailed, job.Status)
		assert.Equal(t, 0, job.Counters.Total)
	})
}

func TestImportJob_DurationStampedOnce(t *testing.T) {
	job, err := NewImportJob(uuid.New(), SourceBookkeeping, nil)
	require.NoError(t, err)
	require.NoError(t, job.Start(1))
	require.NoError(t, job.AddImported(1))
	require.NoError(t, job.Complete())

	require.NotNil(t, job.CompletedAt)
	require.NotNil(t, job.DurationSeconds)

	wantSeconds := int64(job.CompletedAt.Sub(job.StartedAt).Seconds())
	assert.Equal(t, wantSeconds, *job.DurationSeconds)

	stamped := *job.DurationSeconds
	completedAt := *job.CompletedAt
	time.Sleep(10 * time.Millisecond)

	// Further terminal attempts must not restamp
	assert.Error(t, job.Fail())
	assert.Equal(t, stamped, *job.DurationSeconds)
	assert.Equal(t, completedAt, *job.CompletedAt)
}

func TestImportJob_Counters(t *testing.T) {
	job, err := NewImportJob(uuid.New(), SourceBankFeed, nil)
	require.NoError(t, err)
	require.NoError(t, job.Start(100))

	require.NoError(t, job.AddImported(40))
	require.NoError(t, job.AddSkipped(10))
	require.NoError(t, job.AddErrored(3))

	assert.Equal(t, 53, job.Counters.Processed())
	assert.Error(t, job.AddImported(-1))
	assert.Equal(t, "40 of 100 imported, 10 skipped, 3 failed", job.Summary())
	assert.InDelta(t, 40.0, job.SuccessRate(), 0.001)
}

func TestImportJob_Progress(t *testing.T) {
	userID := uuid.New()

	t.Run("pending is 5", func(t *testing.T) {
		job, _ := NewImportJob(userID, SourceBookkeeping, nil)
		assert.InDelta(t, 5, job.Progress(), 0.001)
	})

	t.Run("structural phase is 25", func(t *testing.T) {
		job, _ := NewImportJob(userID, SourceBookkeeping, nil)
		require.NoError(t, job.Start(0))
		assert.InDelta(t, 25, job.Progress(), 0.001)
	})

	t.Run("mid run formula", func(t *testing.T) {
		job, _ := NewImportJob(userID, SourceBookkeeping, nil)
		require.NoError(t, job.Start(100))
		require.NoError(t, job.AddImported(40))
		require.NoError(t, job.AddSkipped(10))
		// 25 + 70 * 0.5
		assert.InDelta(t, 60, job.Progress(), 0.001)
	})

	t.Run("completed is 100", func(t *testing.T) {
		job, _ := NewImportJob(userID, SourceBookkeeping, nil)
		require.NoError(t, job.Start(10))
		require.NoError(t, job.Complete())
		assert.InDelta(t, 100, job.Progress(), 0.001)
	})

	t.Run("failed is capped at 95", func(t *testing.T) {
		job, _ := NewImportJob(userID, SourceBookkeeping, nil)
		require.NoError(t, job.Start(10))
		require.NoError(t, job.AddImported(10))
		require.NoError(t, job.Fail())
		assert.InDelta(t, 95, job.Progress(), 0.001)
	})

	t.Run("failed with zero total keeps last known value", func(t *testing.T) {
		job, _ := NewImportJob(userID, SourceBookkeeping, nil)
		require.NoError(t, job.Start(0))
		require.NoError(t, job.Fail())
		assert.InDelta(t, 25, job.Progress(), 0.001)
	})

	t.Run("failed while pending keeps 5", func(t *testing.T) {
		job, _ := NewImportJob(userID, SourceBookkeeping, nil)
		require.NoError(t, job.Fail())
		assert.InDelta(t, 5, job.Progress(), 0.001)
	})
}
