package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fincore/backend/internal/domain/importing"
	"github.com/fincore/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockDB creates a GORM connection backed by sqlmock
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return gormDB, mock, mockDB
}

func jobRows(jobID, userID uuid.UUID, status importing.JobStatus) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "created_at", "updated_at", "version", "user_id",
		"source", "status", "started_at",
		"total_items", "imported_items", "skipped_items", "error_items", "last_progress",
	}).AddRow(jobID, now, now, 1, userID, "bookkeeping", status, now, 10, 4, 1, 0, 60.0)
}

func TestGormImportJobRepository_FindByID(t *testing.T) {
	t.Run("finds existing job", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormImportJobRepository(gormDB)

		jobID := uuid.New()
		userID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "import_jobs" WHERE user_id = \$1 AND id = \$2 ORDER BY .* LIMIT .*`).
			WithArgs(userID, jobID, 1).
			WillReturnRows(jobRows(jobID, userID, importing.JobStatusInProgress))

		job, err := repo.FindByID(context.Background(), userID, jobID)
		require.NoError(t, err)

		assert.Equal(t, jobID, job.ID)
		assert.Equal(t, userID, job.UserID)
		assert.Equal(t, importing.JobStatusInProgress, job.Status)
		assert.Equal(t, 10, job.Counters.Total)
		assert.Equal(t, 5, job.Counters.Processed())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrNotFound for missing job", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormImportJobRepository(gormDB)

		userID := uuid.New()
		jobID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "import_jobs"`).
			WithArgs(userID, jobID, 1).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := repo.FindByID(context.Background(), userID, jobID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormImportJobRepository_FindByStatus(t *testing.T) {
	gormDB, mock, mockDB := newMockDB(t)
	defer mockDB.Close()
	repo := NewGormImportJobRepository(gormDB)

	userID := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "import_jobs" WHERE user_id = \$1 AND status = \$2`).
		WithArgs(userID, importing.JobStatusPending).
		WillReturnRows(jobRows(uuid.New(), userID, importing.JobStatusPending))

	jobs, err := repo.FindByStatus(context.Background(), userID, importing.JobStatusPending)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, importing.JobStatusPending, jobs[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormImportJobRepository_FindAll(t *testing.T) {
	gormDB, mock, mockDB := newMockDB(t)
	defer mockDB.Close()
	repo := NewGormImportJobRepository(gormDB)

	userID := uuid.New()
	status := importing.JobStatusCompleted

	mock.ExpectQuery(`SELECT count\(\*\) FROM "import_jobs"`).
		WithArgs(userID, status).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT \* FROM "import_jobs"`).
		WillReturnRows(jobRows(uuid.New(), userID, status))

	result, err := repo.FindAll(context.Background(), userID, importing.JobFilter{Status: &status}, 1, 20)
	require.NoError(t, err)

	assert.Equal(t, int64(1), result.TotalCount)
	require.Len(t, result.Items, 1)
	assert.Equal(t, status, result.Items[0].Status)
}
