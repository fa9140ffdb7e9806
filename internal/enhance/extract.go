package enhance

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/jobsift/jobsift/internal/dedup"
	"github.com/jobsift/jobsift/internal/model"
)

// ExtractRecord parses one raw card into a structured record with a
// single LLM call. This path trades throughput for accuracy on text
// the rule-based parser cannot handle.
func (o *Orchestrator) ExtractRecord(ctx context.Context, block model.RawBlock) (*model.JobRecord, error) {
	scrapedDate := block.CapturedAt.Format("2006-01-02")
	resp, err := o.call(ctx, parsePrompt(block.Text, scrapedDate))
	if err != nil {
		return nil, err
	}

	var rec model.JobRecord
	if err := json.Unmarshal([]byte(stripFences(resp.Text)), &rec); err != nil {
		return nil, eris.Wrap(err, "enhance: decoding extracted record")
	}
	if rec.Company == "" || rec.Company == model.Unknown {
		return nil, eris.New("enhance: extraction produced no company")
	}

	if rec.URL == "" {
		rec.URL = block.URL
	}
	rec.RawText = block.Text
	rec.ScrapedAt = block.CapturedAt.Format(time.RFC3339)
	rec.Fingerprint = dedup.Fingerprint(&rec)
	return &rec, nil
}

// ExtractRecords parses raw cards one call at a time and drops
// redundant extractions. The LLM occasionally emits the same job for
// overlapping card text, so results are deduplicated on a lowercased
// (company, title, salary) key before being returned.
func (o *Orchestrator) ExtractRecords(ctx context.Context, blocks []model.RawBlock) []model.JobRecord {
	var out []model.JobRecord
	seen := make(map[string]struct{})

	for i := range blocks {
		rec, err := o.ExtractRecord(ctx, blocks[i])
		if err != nil {
			zap.L().Warn("extraction failed",
				zap.Int("block", i),
				zap.Error(err))
			if ctx.Err() != nil {
				break
			}
			continue
		}

		key := extractionKey(rec)
		if _, dup := seen[key]; dup {
			zap.L().Debug("dropping redundant extraction",
				zap.String("company", rec.Company),
				zap.String("title", rec.Title))
			continue
		}
		seen[key] = struct{}{}
		out = append(out, *rec)
	}
	return out
}

func extractionKey(rec *model.JobRecord) string {
	return strings.ToLower(fmt.Sprintf("%s|%s|%d|%d",
		rec.Company, rec.Title, rec.SalaryLow, rec.SalaryHigh))
}
