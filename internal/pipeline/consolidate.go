package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jobsift/jobsift/internal/model"
)

// consolidate fetches each record's own job page, attaches the full
// description, and replaces the card text in RawText with the page
// body. A fetch failure leaves the record with its card text as the
// description; consolidation never drops a record.
func (p *Pipeline) consolidate(ctx context.Context, records []model.JobRecord, summary *model.RunSummary) []model.JobRecord {
	fetched := 0
	for i := range records {
		rec := &records[i]

		if rec.URL != "" && ctx.Err() == nil {
			page, err := p.fetchPage(ctx, rec.URL)
			if err != nil {
				zap.L().Warn("job page fetch failed",
					zap.String("url", rec.URL),
					zap.Error(err))
			} else if page.Body != "" {
				rec.JobDescription = page.Body
				rec.RawText = page.Body
				fetched++
			}
		}
		if rec.JobDescription == "" {
			rec.JobDescription = rec.RawText
		}
		rec.ConsolidatedAt = time.Now().UTC().Format(time.RFC3339)
	}

	summary.Consolidated = len(records)
	zap.L().Info("consolidation done",
		zap.Int("records", len(records)),
		zap.Int("full_descriptions", fetched))
	return records
}
