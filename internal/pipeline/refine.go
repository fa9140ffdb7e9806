package pipeline

import (
	"go.uber.org/zap"

	"github.com/jobsift/jobsift/internal/dedup"
	"github.com/jobsift/jobsift/internal/model"
	"github.com/jobsift/jobsift/internal/parser"
)

// refine re-validates the scraped records, drops the ones without a
// usable salary range, collapses fingerprint duplicates keeping the
// newest scrape, and resolves relative post dates to absolute ones.
func (p *Pipeline) refine(records []model.JobRecord, summary *model.RunSummary) []model.JobRecord {
	kept := records[:0]
	for i := range records {
		rec := &records[i]
		if !parser.IsValid(rec) {
			summary.ValidationRejects++
			continue
		}
		if !rec.HasSalary() {
			summary.ValidationRejects++
			continue
		}
		kept = append(kept, *rec)
	}

	survivors, removed := dedup.Merge(kept)
	summary.DuplicatesSkipped += removed

	for i := range survivors {
		rec := &survivors[i]
		raw := rec.PostDateRaw
		if raw == "" {
			raw = rec.PostDate
		}
		rec.PostDate = parser.ResolveDate(raw, rec.ScrapedAt)
	}

	summary.Refined = len(survivors)
	zap.L().Info("refinement done",
		zap.Int("in", len(records)),
		zap.Int("out", len(survivors)),
		zap.Int("merged", removed))
	return survivors
}
