package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/jobsift/jobsift/internal/dedup"
	"github.com/jobsift/jobsift/internal/model"
	"github.com/jobsift/jobsift/internal/parser"
	"github.com/jobsift/jobsift/internal/resilience"
	"github.com/jobsift/jobsift/pkg/fetcher"
)

var errNoJobs = eris.New("no jobs scraped from any source")

// fetchPage wraps the rendering service with retry so a transient
// upstream failure does not sink a whole source or job page.
func (p *Pipeline) fetchPage(ctx context.Context, pageURL string) (*fetcher.Page, error) {
	return resilience.DoVal(ctx, p.retry, func(ctx context.Context) (*fetcher.Page, error) {
		return p.fetcher.FetchPage(ctx, pageURL)
	})
}

// scrape walks every source listing page by page, parses job cards and
// admits only records not already seen on this page, in this run, or in
// the persisted window.
func (p *Pipeline) scrape(ctx context.Context, sources []Source, summary *model.RunSummary) ([]model.JobRecord, error) {
	state, err := p.dedupState(ctx)
	if err != nil {
		return nil, err
	}

	var out []model.JobRecord
	for _, source := range sources {
		n, err := p.scrapeSource(ctx, source, state, summary, &out)
		if err != nil {
			// One bad source should not sink the others.
			zap.L().Error("source failed",
				zap.String("source", source.URL),
				zap.Error(err))
			continue
		}
		zap.L().Info("source done",
			zap.String("source", source.URL),
			zap.Int("jobs", n))
	}

	if len(out) == 0 {
		return nil, errNoJobs
	}
	return out, nil
}

func (p *Pipeline) scrapeSource(ctx context.Context, source Source, state *dedup.State, summary *model.RunSummary, out *[]model.JobRecord) (int, error) {
	maxJobs := p.cfg.Scrape.MaxJobsPerURL
	maxPages := p.cfg.Scrape.MaxPages
	if source.MaxPages > 0 {
		maxPages = source.MaxPages
	}
	pageDelay := time.Duration(p.cfg.Scrape.PageDelaySecs * float64(time.Second))
	collected := 0

	for pageNum := 1; pageNum <= maxPages; pageNum++ {
		if err := ctx.Err(); err != nil {
			return collected, err
		}

		pageURL := fetcher.PageURL(source.URL, pageNum)
		page, err := p.fetchPage(ctx, pageURL)
		if err != nil {
			if pageNum == 1 {
				return collected, err
			}
			zap.L().Warn("page fetch failed, stopping pagination",
				zap.String("url", pageURL),
				zap.Error(err))
			break
		}
		if len(page.Blocks) == 0 {
			zap.L().Debug("empty page, stopping pagination",
				zap.String("url", pageURL),
				zap.Int("page", pageNum))
			break
		}

		state.ResetPage()
		added := 0
		for _, block := range page.Blocks {
			block.URL = fetcher.AbsoluteURL(source.URL, block.URL)
			if block.CapturedAt.IsZero() {
				block.CapturedAt = time.Now()
			}

			rec := parser.Parse(block)
			if rec == nil {
				summary.ValidationRejects++
				continue
			}
			rec.Fingerprint = dedup.Fingerprint(rec)
			if !state.Admit(rec) {
				summary.DuplicatesSkipped++
				continue
			}

			summary.RawScraped++
			*out = append(*out, *rec)
			added++
			collected++

			if maxJobs > 0 && collected >= maxJobs {
				zap.L().Info("per-source job cap reached",
					zap.String("source", source.URL),
					zap.Int("cap", maxJobs))
				return collected, nil
			}
		}

		zap.L().Info("page scraped",
			zap.String("url", pageURL),
			zap.Int("blocks", len(page.Blocks)),
			zap.Int("new", added))

		if pageDelay > 0 && pageNum < maxPages {
			select {
			case <-time.After(pageDelay):
			case <-ctx.Done():
				return collected, ctx.Err()
			}
		}
	}
	return collected, nil
}

// dedupState builds the run's dedup state, seeding the persisted scope
// from Redis when configured and from the database otherwise.
func (p *Pipeline) dedupState(ctx context.Context) (*dedup.State, error) {
	window := time.Duration(p.cfg.Dedup.WindowDays) * 24 * time.Hour

	if p.seen != nil {
		keys, err := p.seen.Load(ctx)
		if err != nil {
			// Redis being down degrades to database-backed keys.
			zap.L().Warn("seen set unavailable, falling back to store", zap.Error(err))
		} else {
			zap.L().Info("loaded seen set", zap.Int("keys", len(keys)))
			return dedup.NewState(p.cfg.Dedup.Strict, keys), nil
		}
	}

	fps, err := p.store.RecentFingerprints(ctx, window)
	if err != nil {
		return nil, err
	}
	urls, err := p.store.RecentURLs(ctx, window)
	if err != nil {
		return nil, err
	}
	zap.L().Info("loaded persisted keys",
		zap.Int("fingerprints", len(fps)),
		zap.Int("urls", len(urls)))
	return dedup.NewState(p.cfg.Dedup.Strict, fps, urls), nil
}
