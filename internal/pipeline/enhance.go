package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jobsift/jobsift/internal/model"
)

// enhance runs the LLM stage and splits the outcome into enhanced and
// failed records. Per-record failures stay in the run as values; they
// never abort the stage.
func (p *Pipeline) enhance(ctx context.Context, records []model.JobRecord, summary *model.RunSummary) ([]model.JobRecord, []model.FailedJob) {
	results := p.enhancer.Enhance(ctx, records)

	now := time.Now().UTC().Format(time.RFC3339)
	var enhanced []model.JobRecord
	var failed []model.FailedJob

	for _, res := range results {
		if res.Err != nil {
			failed = append(failed, model.FailedJob{
				Job:   res.Job,
				Error: res.Err.Error(),
			})
			continue
		}
		rec := res.Job
		rec.Enhanced = res.Profile
		rec.EnhancedAt = now
		enhanced = append(enhanced, rec)
	}

	summary.Enhanced = len(enhanced)
	summary.Failed = len(failed)
	zap.L().Info("enhancement done",
		zap.Int("enhanced", len(enhanced)),
		zap.Int("failed", len(failed)))
	return enhanced, failed
}
