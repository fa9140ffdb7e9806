package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobsift/jobsift/internal/model"
)

func writeCheckpointFile(t *testing.T, dir, name string, cp *Checkpoint) {
	t.Helper()
	data, err := json.Marshal(cp)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
}

func TestCheckpointRoundtrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "intermediate")

	cp := &Checkpoint{
		Stage: model.StageRefine,
		RunID: "run-42",
		Records: []model.JobRecord{
			{Company: "Acme", Title: "Engineer", SalaryLow: 5000, SalaryHigh: 7000, Fingerprint: "fp-1"},
		},
		Failed:  []model.FailedJob{{Job: model.JobRecord{Company: "Globex"}, Error: "rate limited"}},
		Summary: &model.RunSummary{RawScraped: 2, Refined: 1},
	}
	require.NoError(t, SaveCheckpoint(dir, cp))

	loaded, err := LatestCheckpoint(dir, model.StageRefine)
	require.NoError(t, err)
	assert.Equal(t, model.StageRefine, loaded.Stage)
	assert.Equal(t, "run-42", loaded.RunID)
	assert.False(t, loaded.CreatedAt.IsZero())
	require.Len(t, loaded.Records, 1)
	assert.Equal(t, "fp-1", loaded.Records[0].Fingerprint)
	require.Len(t, loaded.Failed, 1)
	assert.Equal(t, "rate limited", loaded.Failed[0].Error)
	require.NotNil(t, loaded.Summary)
	assert.Equal(t, 2, loaded.Summary.RawScraped)
}

func TestLatestCheckpointPicksNewestAcrossStages(t *testing.T) {
	dir := t.TempDir()

	// File names carry the stage and timestamp; "consolidate" sorts
	// before "scrape" alphabetically but its checkpoint is older.
	writeCheckpointFile(t, dir, "consolidate_20250918_110000.json",
		&Checkpoint{Stage: model.StageConsolidate, RunID: "old"})
	writeCheckpointFile(t, dir, "scrape_20250919_090000.json",
		&Checkpoint{Stage: model.StageScrape, RunID: "mid"})
	writeCheckpointFile(t, dir, "refine_20250919_093000.json",
		&Checkpoint{Stage: model.StageRefine, RunID: "new"})

	cp, err := LatestCheckpoint(dir, "")
	require.NoError(t, err)
	assert.Equal(t, "new", cp.RunID)
	assert.Equal(t, model.StageRefine, cp.Stage)
}

func TestLatestCheckpointFiltersByStage(t *testing.T) {
	dir := t.TempDir()

	writeCheckpointFile(t, dir, "scrape_20250919_090000.json",
		&Checkpoint{Stage: model.StageScrape, RunID: "scrape-old"})
	writeCheckpointFile(t, dir, "scrape_20250919_100000.json",
		&Checkpoint{Stage: model.StageScrape, RunID: "scrape-new"})
	writeCheckpointFile(t, dir, "enhance_20250919_110000.json",
		&Checkpoint{Stage: model.StageEnhance, RunID: "enhance"})

	cp, err := LatestCheckpoint(dir, model.StageScrape)
	require.NoError(t, err)
	assert.Equal(t, "scrape-new", cp.RunID)
}

func TestLatestCheckpointEmptyDir(t *testing.T) {
	_, err := LatestCheckpoint(t.TempDir(), "")
	assert.Error(t, err)
}

func TestLoadCheckpointRejectsMissingStage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bogus.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"run_id":"x"}`), 0o644))

	_, err := LoadCheckpoint(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no stage")
}

func TestLoadCheckpointMissingFile(t *testing.T) {
	_, err := LoadCheckpoint(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}
