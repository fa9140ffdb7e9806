package model

import "time"

// Stage identifies one pipeline stage.
type Stage string

const (
	StageScrape      Stage = "scrape"
	StageRefine      Stage = "refine"
	StageConsolidate Stage = "consolidate"
	StageEnhance     Stage = "enhance"
	StagePersist     Stage = "persist"
)

// Stages lists the pipeline stages in execution order.
var Stages = []Stage{StageScrape, StageRefine, StageConsolidate, StageEnhance, StagePersist}

// RunStatus tracks a pipeline run through its lifecycle.
type RunStatus string

const (
	RunStatusQueued        RunStatus = "queued"
	RunStatusScraping      RunStatus = "scraping"
	RunStatusRefining      RunStatus = "refining"
	RunStatusConsolidating RunStatus = "consolidating"
	RunStatusEnhancing     RunStatus = "enhancing"
	RunStatusPersisting    RunStatus = "persisting"
	RunStatusCompleted     RunStatus = "completed"
	RunStatusFailed        RunStatus = "failed"
)

// Run is one pipeline invocation.
type Run struct {
	ID        string      `json:"id"`
	Status    RunStatus   `json:"status"`
	Summary   *RunSummary `json:"summary,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// RunSummary accumulates per-stage counters for one run.
type RunSummary struct {
	RawScraped        int `json:"raw_scraped"`
	Refined           int `json:"refined"`
	Consolidated      int `json:"consolidated"`
	Enhanced          int `json:"enhanced"`
	Stored            int `json:"stored"`
	Failed            int `json:"failed"`
	DuplicatesSkipped int `json:"duplicates_skipped"`
	ValidationRejects int `json:"validation_rejects"`
}

// DuplicateRate is the fraction of scraped records skipped as
// duplicates. Zero when nothing was scraped.
func (s *RunSummary) DuplicateRate() float64 {
	total := s.RawScraped + s.DuplicatesSkipped
	if total == 0 {
		return 0
	}
	return float64(s.DuplicatesSkipped) / float64(total)
}

// SuccessRate is the fraction of scraped records that made it through
// enhancement. Zero when nothing was scraped.
func (s *RunSummary) SuccessRate() float64 {
	if s.RawScraped == 0 {
		return 0
	}
	return float64(s.Enhanced) / float64(s.RawScraped)
}

// Artifact is the machine-readable output of a completed run: a
// metadata block plus the enhanced and failed record lists.
type Artifact struct {
	Metadata ArtifactMetadata `json:"metadata"`
	Enhanced []JobRecord      `json:"enhanced_jobs"`
	Failed   []FailedJob      `json:"failed_jobs"`
}

// ArtifactMetadata describes how and when an artifact was produced.
type ArtifactMetadata struct {
	GeneratedAt   time.Time  `json:"generated_at"`
	RunID         string     `json:"run_id"`
	Summary       RunSummary `json:"summary"`
	DuplicateRate float64    `json:"duplicate_rate"`
	SuccessRate   float64    `json:"success_rate"`
}
