package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobsift/jobsift/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLite(filepath.Join(t.TempDir(), "jobsift.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func sampleJob(fp string) *model.JobRecord {
	return &model.JobRecord{
		Company:         "Acme Systems Pte Ltd",
		Title:           "Software Engineer",
		Location:        "Central",
		JobType:         "Full Time",
		ExperienceLevel: "Senior Executive",
		Industry:        "Information Technology",
		SalaryLow:       6000,
		SalaryHigh:      8000,
		PostDate:        "2025-09-17",
		URL:             "https://jobs.example.sg/view/" + fp,
		ScrapedAt:       "2025-09-20T09:30:00Z",
		Fingerprint:     fp,
	}
}

func TestUpsertJobInsertAndList(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.UpsertJob(ctx, sampleJob("fp-1")))

	jobs, err := st.ListJobs(ctx, JobFilter{})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	got := jobs[0]
	assert.Equal(t, "Acme Systems Pte Ltd", got.Company)
	assert.Equal(t, "Software Engineer", got.Title)
	assert.Equal(t, 6000, got.SalaryLow)
	assert.Equal(t, 8000, got.SalaryHigh)
	assert.Equal(t, "2025-09-17", got.PostDate)
	assert.Equal(t, "https://jobs.example.sg/view/fp-1", got.URL)
	assert.Nil(t, got.Enhanced)
}

func TestUpsertJobConflictUpdates(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.UpsertJob(ctx, sampleJob("fp-1")))

	updated := sampleJob("fp-1")
	updated.SalaryLow = 6500
	updated.JobDescription = "Full description text."
	updated.Enhanced = &model.EnhancedProfile{
		CompanyTier:    "SME",
		TitleClean:     "Software Engineer",
		SkillsRequired: []model.Skill{{Name: "Go", Level: 4}},
		TrustScore:     0.9,
	}
	updated.EnhancedAt = "2025-09-20T10:00:00Z"
	require.NoError(t, st.UpsertJob(ctx, updated))

	jobs, err := st.ListJobs(ctx, JobFilter{})
	require.NoError(t, err)
	require.Len(t, jobs, 1) // same fingerprint, no second row
	got := jobs[0]
	assert.Equal(t, 6500, got.SalaryLow)
	assert.Equal(t, "Full description text.", got.JobDescription)
	require.NotNil(t, got.Enhanced)
	assert.Equal(t, "SME", got.Enhanced.CompanyTier)
	assert.Equal(t, []model.Skill{{Name: "Go", Level: 4}}, got.Enhanced.SkillsRequired)
	assert.InDelta(t, 0.9, got.Enhanced.TrustScore, 1e-9)
}

func TestListJobsFilters(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	plain := sampleJob("fp-plain")
	require.NoError(t, st.UpsertJob(ctx, plain))

	enhanced := sampleJob("fp-enhanced")
	enhanced.Company = "Globex Pte Ltd"
	enhanced.Enhanced = &model.EnhancedProfile{CompanyTier: "MNC"}
	require.NoError(t, st.UpsertJob(ctx, enhanced))

	byCompany, err := st.ListJobs(ctx, JobFilter{Company: "Globex Pte Ltd"})
	require.NoError(t, err)
	require.Len(t, byCompany, 1)
	assert.Equal(t, "fp-enhanced", byCompany[0].Fingerprint)

	enhancedOnly, err := st.ListJobs(ctx, JobFilter{EnhancedOnly: true})
	require.NoError(t, err)
	require.Len(t, enhancedOnly, 1)
	assert.Equal(t, "fp-enhanced", enhancedOnly[0].Fingerprint)

	limited, err := st.ListJobs(ctx, JobFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	none, err := st.ListJobs(ctx, JobFilter{Company: "Nobody"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestReplaceSkills(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.UpsertJob(ctx, sampleJob("fp-1")))

	require.NoError(t, st.ReplaceRequiredSkills(ctx, "fp-1", []model.Skill{
		{Name: "Go", Level: 4},
		{Name: "SQL", Level: 3},
	}))
	require.NoError(t, st.ReplaceOptionalSkills(ctx, "fp-1", []string{"Docker", "Kubernetes"}))

	// Replacing again swaps the set instead of appending.
	require.NoError(t, st.ReplaceRequiredSkills(ctx, "fp-1", []model.Skill{
		{Name: "Python", Level: 5},
	}))

	rows, err := st.db.QueryContext(ctx,
		`SELECT name, level FROM job_skills_required WHERE job_fingerprint = ?`, "fp-1")
	require.NoError(t, err)
	defer rows.Close()

	var skills []model.Skill
	for rows.Next() {
		var sk model.Skill
		require.NoError(t, rows.Scan(&sk.Name, &sk.Level))
		skills = append(skills, sk)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []model.Skill{{Name: "Python", Level: 5}}, skills)

	var optionalCount int
	require.NoError(t, st.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM job_skills_optional WHERE job_fingerprint = ?`, "fp-1",
	).Scan(&optionalCount))
	assert.Equal(t, 2, optionalCount)
}

func TestRecentKeys(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.UpsertJob(ctx, sampleJob("fp-1")))
	noURL := sampleJob("fp-2")
	noURL.URL = ""
	require.NoError(t, st.UpsertJob(ctx, noURL))

	fps, err := st.RecentFingerprints(ctx, 7*24*time.Hour)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"fp-1", "fp-2"}, fps)

	urls, err := st.RecentURLs(ctx, 7*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://jobs.example.sg/view/fp-1"}, urls)

	// A zero-length window excludes everything already written.
	old, err := st.RecentFingerprints(ctx, -time.Hour)
	require.NoError(t, err)
	assert.Empty(t, old)
}

func TestRunLifecycle(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusQueued, run.Status)

	require.NoError(t, st.UpdateRunStatus(ctx, run.ID, model.RunStatusScraping))

	summary := &model.RunSummary{RawScraped: 10, Refined: 8, Enhanced: 7, Stored: 7}
	require.NoError(t, st.UpdateRunSummary(ctx, run.ID, model.RunStatusCompleted, summary))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusCompleted, got.Status)
	require.NotNil(t, got.Summary)
	assert.Equal(t, 10, got.Summary.RawScraped)
	assert.Equal(t, 7, got.Summary.Stored)
}

func TestRunUpdatesRequireExistingRun(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	err := st.UpdateRunStatus(ctx, "nope", model.RunStatusFailed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	err = st.UpdateRunSummary(ctx, "nope", model.RunStatusFailed, &model.RunSummary{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	_, err = st.GetRun(ctx, "nope")
	assert.Error(t, err)
}

func TestListRunsByStatus(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	first, err := st.CreateRun(ctx)
	require.NoError(t, err)
	second, err := st.CreateRun(ctx)
	require.NoError(t, err)
	require.NoError(t, st.UpdateRunStatus(ctx, second.ID, model.RunStatusFailed))

	failed, err := st.ListRuns(ctx, RunFilter{Status: model.RunStatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, second.ID, failed[0].ID)

	all, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	ids := []string{all[0].ID, all[1].ID}
	assert.ElementsMatch(t, []string{first.ID, second.ID}, ids)
}

func TestOpenSelectsDriver(t *testing.T) {
	dir := t.TempDir()

	st, err := Open(context.Background(), "sqlite", filepath.Join(dir, "a.db"))
	require.NoError(t, err)
	st.Close()

	st, err = Open(context.Background(), "", filepath.Join(dir, "b.db"))
	require.NoError(t, err)
	st.Close()

	_, err = Open(context.Background(), "oracle", "dsn")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oracle")
}
