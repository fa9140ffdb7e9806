package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/jobsift/jobsift/internal/config"
	"github.com/jobsift/jobsift/internal/dedup"
	"github.com/jobsift/jobsift/internal/enhance"
	"github.com/jobsift/jobsift/internal/model"
	"github.com/jobsift/jobsift/internal/resilience"
	"github.com/jobsift/jobsift/internal/store"
	"github.com/jobsift/jobsift/pkg/fetcher"
)

// Pipeline drives a run through its five stages in order. Each stage
// consumes the previous stage's output and writes a checkpoint, so a
// failed run can be resumed from the last stage that completed.
type Pipeline struct {
	cfg      *config.Config
	store    store.Store
	fetcher  fetcher.Fetcher
	enhancer *enhance.Orchestrator
	seen     *dedup.SeenSet // nil unless dedup.redis_url is set
	retry    resilience.RetryConfig
}

// New creates a Pipeline with all dependencies. seen may be nil.
func New(cfg *config.Config, st store.Store, f fetcher.Fetcher, o *enhance.Orchestrator, seen *dedup.SeenSet) *Pipeline {
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("renderer", "fetch_page")
	return &Pipeline{
		cfg:      cfg,
		store:    st,
		fetcher:  f,
		enhancer: o,
		seen:     seen,
		retry:    retry,
	}
}

// Source is one listing URL to scrape. MaxPages overrides the global
// page limit for this source when positive.
type Source struct {
	Name     string `yaml:"name" json:"name,omitempty"`
	URL      string `yaml:"url" json:"url"`
	MaxPages int    `yaml:"max_pages" json:"max_pages,omitempty"`
}

// stageStatus maps each stage to the run status reported while it is
// executing.
var stageStatus = map[model.Stage]model.RunStatus{
	model.StageScrape:      model.RunStatusScraping,
	model.StageRefine:      model.RunStatusRefining,
	model.StageConsolidate: model.RunStatusConsolidating,
	model.StageEnhance:     model.RunStatusEnhancing,
	model.StagePersist:     model.RunStatusPersisting,
}

// Run executes the full pipeline over the given sources.
func (p *Pipeline) Run(ctx context.Context, sources []Source) (*model.RunSummary, error) {
	if len(sources) == 0 {
		return nil, eris.New("pipeline: no source urls")
	}

	run, err := p.store.CreateRun(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}
	return p.execute(ctx, run.ID, model.StageScrape, sources, nil, nil, &model.RunSummary{})
}

// Resume restarts a run from the stage after the given checkpoint.
func (p *Pipeline) Resume(ctx context.Context, cp *Checkpoint) (*model.RunSummary, error) {
	next, err := nextStage(cp.Stage)
	if err != nil {
		return nil, err
	}

	runID := cp.RunID
	if runID == "" {
		run, err := p.store.CreateRun(ctx)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: create run")
		}
		runID = run.ID
	}

	zap.L().Info("resuming run",
		zap.String("run_id", runID),
		zap.String("from_checkpoint", string(cp.Stage)),
		zap.String("next_stage", string(next)))

	summary := cp.Summary
	if summary == nil {
		summary = &model.RunSummary{}
	}
	return p.execute(ctx, runID, next, nil, cp.Records, cp.Failed, summary)
}

// execute runs stages from start onward. records and failed carry the
// output of the stage preceding start; sources is only consulted when
// starting from scrape.
func (p *Pipeline) execute(ctx context.Context, runID string, start model.Stage, sources []Source, records []model.JobRecord, failed []model.FailedJob, summary *model.RunSummary) (*model.RunSummary, error) {
	log := zap.L().With(zap.String("run_id", runID))
	log.Info("pipeline: starting", zap.String("from", string(start)))

	setStatus := func(status model.RunStatus) {
		if statusErr := p.store.UpdateRunStatus(ctx, runID, status); statusErr != nil {
			log.Warn("pipeline: failed to update status", zap.Error(statusErr))
		}
	}

	// Stage tracking helper. A stage error fails the whole run; the
	// checkpoint of the last completed stage is what resume works from.
	runStage := func(stage model.Stage, fn func() error) error {
		setStatus(stageStatus[stage])
		start := time.Now()

		if err := fn(); err != nil {
			log.Error("pipeline: stage failed",
				zap.String("stage", string(stage)),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
				zap.Error(err))
			return eris.Wrapf(err, "pipeline: stage %s", stage)
		}

		log.Info("pipeline: stage complete",
			zap.String("stage", string(stage)),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()))

		cp := &Checkpoint{
			Stage:   stage,
			RunID:   runID,
			Records: records,
			Failed:  failed,
			Summary: summary,
		}
		if cpErr := SaveCheckpoint(p.cfg.Pipeline.CheckpointDir, cp); cpErr != nil {
			log.Warn("pipeline: checkpoint not written", zap.Error(cpErr))
		}
		return nil
	}

	fail := func(err error) (*model.RunSummary, error) {
		setStatus(model.RunStatusFailed)
		if sumErr := p.store.UpdateRunSummary(ctx, runID, model.RunStatusFailed, summary); sumErr != nil {
			log.Warn("pipeline: failed to save summary", zap.Error(sumErr))
		}
		return summary, err
	}

	active := false
	for _, stage := range model.Stages {
		if stage == start {
			active = true
		}
		if !active {
			continue
		}

		var err error
		switch stage {
		case model.StageScrape:
			err = runStage(stage, func() error {
				var scrapeErr error
				records, scrapeErr = p.scrape(ctx, sources, summary)
				return scrapeErr
			})
		case model.StageRefine:
			err = runStage(stage, func() error {
				records = p.refine(records, summary)
				return nil
			})
		case model.StageConsolidate:
			err = runStage(stage, func() error {
				records = p.consolidate(ctx, records, summary)
				return nil
			})
		case model.StageEnhance:
			err = runStage(stage, func() error {
				records, failed = p.enhance(ctx, records, summary)
				return nil
			})
		case model.StagePersist:
			err = runStage(stage, func() error {
				var persistErr error
				failed, persistErr = p.persist(ctx, runID, records, failed, summary)
				return persistErr
			})
		}
		if err != nil {
			return fail(err)
		}
	}

	if err := p.store.UpdateRunSummary(ctx, runID, model.RunStatusCompleted, summary); err != nil {
		log.Warn("pipeline: failed to save summary", zap.Error(err))
	}

	log.Info("pipeline: complete",
		zap.Int("raw_scraped", summary.RawScraped),
		zap.Int("refined", summary.Refined),
		zap.Int("enhanced", summary.Enhanced),
		zap.Int("stored", summary.Stored),
		zap.Int("failed", summary.Failed),
		zap.Float64("duplicate_rate", summary.DuplicateRate()),
		zap.Float64("success_rate", summary.SuccessRate()))

	return summary, nil
}

func nextStage(done model.Stage) (model.Stage, error) {
	for i, s := range model.Stages {
		if s == done {
			if i == len(model.Stages)-1 {
				return "", eris.New("pipeline: nothing to resume after persist")
			}
			return model.Stages[i+1], nil
		}
	}
	return "", eris.Errorf("pipeline: unknown stage %q", done)
}
