package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/jobsift/jobsift/internal/model"
)

// persist upserts every enhanced record, refreshes its skill rows,
// marks its keys as seen, and writes the run artifact. Records the
// store rejects join the failed list so the artifact keeps them for
// manual reprocessing.
func (p *Pipeline) persist(ctx context.Context, runID string, enhanced []model.JobRecord, failed []model.FailedJob, summary *model.RunSummary) ([]model.FailedJob, error) {
	var seenKeys []string

	for i := range enhanced {
		rec := &enhanced[i]
		if err := p.store.UpsertJob(ctx, rec); err != nil {
			zap.L().Error("job not stored",
				zap.String("fingerprint", rec.Fingerprint),
				zap.Error(err))
			failed = append(failed, model.FailedJob{Job: *rec, Error: err.Error()})
			summary.Failed++
			continue
		}
		if rec.Enhanced != nil {
			if err := p.store.ReplaceRequiredSkills(ctx, rec.Fingerprint, rec.Enhanced.SkillsRequired); err != nil {
				zap.L().Warn("required skills not stored",
					zap.String("fingerprint", rec.Fingerprint),
					zap.Error(err))
			}
			if err := p.store.ReplaceOptionalSkills(ctx, rec.Fingerprint, rec.Enhanced.SkillsOptional); err != nil {
				zap.L().Warn("optional skills not stored",
					zap.String("fingerprint", rec.Fingerprint),
					zap.Error(err))
			}
		}

		summary.Stored++
		seenKeys = append(seenKeys, rec.Fingerprint)
		if rec.URL != "" {
			seenKeys = append(seenKeys, rec.URL)
		}
	}

	if p.seen != nil && len(seenKeys) > 0 {
		if err := p.seen.Add(ctx, seenKeys...); err != nil {
			zap.L().Warn("seen set not updated", zap.Error(err))
		}
	}

	if err := p.writeArtifact(runID, enhanced, failed, summary); err != nil {
		return failed, err
	}

	zap.L().Info("persistence done",
		zap.Int("stored", summary.Stored),
		zap.Int("failed_kept", len(failed)))
	return failed, nil
}

// writeArtifact dumps the run output as a timestamped JSON file.
func (p *Pipeline) writeArtifact(runID string, enhanced []model.JobRecord, failed []model.FailedJob, summary *model.RunSummary) error {
	dir := p.cfg.Pipeline.ArtifactDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "pipeline: create artifact dir %s", dir)
	}

	artifact := model.Artifact{
		Metadata: model.ArtifactMetadata{
			GeneratedAt:   time.Now().UTC(),
			RunID:         runID,
			Summary:       *summary,
			DuplicateRate: summary.DuplicateRate(),
			SuccessRate:   summary.SuccessRate(),
		},
		Enhanced: enhanced,
		Failed:   failed,
	}

	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return eris.Wrap(err, "pipeline: marshal artifact")
	}

	path := filepath.Join(dir, fmt.Sprintf("jobs_%s.json", time.Now().Format("20060102_150405")))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "pipeline: write artifact %s", path)
	}

	zap.L().Info("artifact written", zap.String("path", path))
	return nil
}
