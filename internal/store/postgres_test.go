package store

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobsift/jobsift/internal/model"
)

func TestPostgresStore_UpsertJob(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	st := NewPostgresWithPool(mock)

	mock.ExpectExec(`INSERT INTO jobs`).
		WithArgs("fp-1", "Acme Systems Pte Ltd", "Software Engineer", "Central",
			"Full Time", "Senior Executive", "Information Technology",
			6000, 8000, "2025-09-17", "https://jobs.example.sg/view/1",
			"2025-09-20T09:30:00Z", "", []byte(nil), "",
			pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = st.UpsertJob(context.Background(), &model.JobRecord{
		Fingerprint:     "fp-1",
		Company:         "Acme Systems Pte Ltd",
		Title:           "Software Engineer",
		Location:        "Central",
		JobType:         "Full Time",
		ExperienceLevel: "Senior Executive",
		Industry:        "Information Technology",
		SalaryLow:       6000,
		SalaryHigh:      8000,
		PostDate:        "2025-09-17",
		URL:             "https://jobs.example.sg/view/1",
		ScrapedAt:       "2025-09-20T09:30:00Z",
	})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ReplaceRequiredSkills(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	st := NewPostgresWithPool(mock)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM job_skills_required`).
		WithArgs("fp-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectExec(`INSERT INTO job_skills_required`).
		WithArgs("fp-1", "Go", 4).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO job_skills_required`).
		WithArgs("fp-1", "SQL", 3).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err = st.ReplaceRequiredSkills(context.Background(), "fp-1", []model.Skill{
		{Name: "Go", Level: 4},
		{Name: "SQL", Level: 3},
	})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateRunStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	st := NewPostgresWithPool(mock)

	mock.ExpectExec(`UPDATE runs SET status`).
		WithArgs("scraping", pgxmock.AnyArg(), "run-123").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = st.UpdateRunStatus(context.Background(), "run-123", model.RunStatusScraping)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateRunStatus_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	st := NewPostgresWithPool(mock)

	mock.ExpectExec(`UPDATE runs SET status`).
		WithArgs("failed", pgxmock.AnyArg(), "run-456").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = st.UpdateRunStatus(context.Background(), "run-456", model.RunStatusFailed)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	st := NewPostgresWithPool(mock)

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT id, status, summary, created_at, updated_at FROM runs`).
		WithArgs("run-123").
		WillReturnRows(pgxmock.NewRows([]string{"id", "status", "summary", "created_at", "updated_at"}).
			AddRow("run-123", model.RunStatusCompleted, []byte(`{"raw_scraped":12,"stored":9}`), now, now))

	run, err := st.GetRun(context.Background(), "run-123")

	require.NoError(t, err)
	assert.Equal(t, "run-123", run.ID)
	assert.Equal(t, model.RunStatusCompleted, run.Status)
	require.NotNil(t, run.Summary)
	assert.Equal(t, 12, run.Summary.RawScraped)
	assert.Equal(t, 9, run.Summary.Stored)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	st := NewPostgresWithPool(mock)

	mock.ExpectQuery(`SELECT id, status, summary, created_at, updated_at FROM runs`).
		WithArgs("absent").
		WillReturnRows(pgxmock.NewRows([]string{"id", "status", "summary", "created_at", "updated_at"}))

	_, err = st.GetRun(context.Background(), "absent")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	st := NewPostgresWithPool(mock)

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT id, status, summary, created_at, updated_at FROM runs`).
		WithArgs("failed", 5).
		WillReturnRows(pgxmock.NewRows([]string{"id", "status", "summary", "created_at", "updated_at"}).
			AddRow("run-1", model.RunStatusFailed, []byte(nil), now, now))

	runs, err := st.ListRuns(context.Background(), RunFilter{Status: model.RunStatusFailed, Limit: 5})

	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
	assert.Nil(t, runs[0].Summary)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RecentFingerprints(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	st := NewPostgresWithPool(mock)

	mock.ExpectQuery(`SELECT fingerprint FROM jobs`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"fingerprint"}).
			AddRow("fp-1").
			AddRow("fp-2"))

	fps, err := st.RecentFingerprints(context.Background(), 7*24*time.Hour)

	require.NoError(t, err)
	assert.Equal(t, []string{"fp-1", "fp-2"}, fps)
	assert.NoError(t, mock.ExpectationsWereMet())
}
