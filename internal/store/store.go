package store

import (
	"context"
	"time"

	"github.com/jobsift/jobsift/internal/model"
)

// JobFilter specifies criteria for listing stored jobs.
type JobFilter struct {
	Company      string `json:"company,omitempty"`
	EnhancedOnly bool   `json:"enhanced_only,omitempty"`
	Limit        int    `json:"limit,omitempty"`
	Offset       int    `json:"offset,omitempty"`
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the scraping pipeline.
type Store interface {
	// Jobs. UpsertJob keys on the record fingerprint and preserves the
	// row's original created_at on conflict. The skill tables are
	// refreshed wholesale per job, never merged.
	UpsertJob(ctx context.Context, job *model.JobRecord) error
	ReplaceRequiredSkills(ctx context.Context, fingerprint string, skills []model.Skill) error
	ReplaceOptionalSkills(ctx context.Context, fingerprint string, skills []string) error
	ListJobs(ctx context.Context, filter JobFilter) ([]model.JobRecord, error)

	// Dedup support: keys of rows stored inside the window.
	RecentFingerprints(ctx context.Context, window time.Duration) ([]string, error)
	RecentURLs(ctx context.Context, window time.Duration) ([]string, error)

	// Runs
	CreateRun(ctx context.Context) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	UpdateRunSummary(ctx context.Context, runID string, status model.RunStatus, summary *model.RunSummary) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
