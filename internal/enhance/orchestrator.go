package enhance

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/jobsift/jobsift/internal/model"
	"github.com/jobsift/jobsift/internal/resilience"
	"github.com/jobsift/jobsift/pkg/llm"
)

// Result pairs an input record with its enhancement outcome. Exactly
// one Result is produced per input, in input order; a failed record
// carries Err and a nil Profile.
type Result struct {
	Job     model.JobRecord
	Profile *model.EnhancedProfile
	Err     error
}

// Options configures an Orchestrator.
type Options struct {
	// Mode selects the batching strategy, "parallel" or "serial".
	Mode string
	// BatchSize is the number of concurrent requests per wave in
	// parallel mode.
	BatchSize int
	// MaxBatchChars caps the prompt text per request in serial mode.
	MaxBatchChars int
	// BatchDelay paces consecutive batches.
	BatchDelay time.Duration

	Model       string
	MaxTokens   int64
	CallTimeout time.Duration
}

// Orchestrator drives LLM enhancement over a set of refined records.
type Orchestrator struct {
	client  llm.Client
	opts    Options
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// New creates an Orchestrator. Zero option fields fall back to
// defaults matching the configuration defaults.
func New(client llm.Client, opts Options) *Orchestrator {
	if opts.Mode == "" {
		opts.Mode = "parallel"
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 5
	}
	if opts.MaxBatchChars <= 0 {
		opts.MaxBatchChars = 50000
	}
	if opts.BatchDelay <= 0 {
		opts.BatchDelay = time.Second
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 2048
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 90 * time.Second
	}

	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("anthropic", "enhance")

	return &Orchestrator{
		client:  client,
		opts:    opts,
		limiter: rate.NewLimiter(rate.Every(opts.BatchDelay), 1),
		retry:   retry,
	}
}

// Enhance processes all records and returns one Result per input in
// input order. A failed record never aborts the run; its Result
// carries the error. Only context cancellation stops early.
func (o *Orchestrator) Enhance(ctx context.Context, jobs []model.JobRecord) []Result {
	if len(jobs) == 0 {
		return nil
	}

	zap.L().Info("starting enhancement",
		zap.Int("jobs", len(jobs)),
		zap.String("mode", o.opts.Mode))

	if o.opts.Mode == "serial" {
		return o.enhanceSerial(ctx, jobs)
	}
	return o.enhanceParallel(ctx, jobs)
}

// enhanceParallel issues one request per record, BatchSize at a time.
// Each goroutine writes only its own index, so the result slice needs
// no locking.
func (o *Orchestrator) enhanceParallel(ctx context.Context, jobs []model.JobRecord) []Result {
	results := make([]Result, len(jobs))
	for i := range jobs {
		results[i].Job = jobs[i]
	}

	for start := 0; start < len(jobs); start += o.opts.BatchSize {
		if err := o.limiter.Wait(ctx); err != nil {
			o.markCancelled(results, start, err)
			return results
		}

		end := start + o.opts.BatchSize
		if end > len(jobs) {
			end = len(jobs)
		}

		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				profile, err := o.enhanceOne(gctx, &jobs[i])
				results[i].Profile = profile
				results[i].Err = err
				return nil
			})
		}
		_ = g.Wait()

		if ctx.Err() != nil {
			o.markCancelled(results, end, ctx.Err())
			return results
		}

		zap.L().Debug("enhancement wave complete",
			zap.Int("done", end),
			zap.Int("total", len(jobs)))
	}
	return results
}

// enhanceSerial groups records into prompt-size-bounded batches and
// issues one request per batch. A batch that cannot be decoded fails
// as a whole.
func (o *Orchestrator) enhanceSerial(ctx context.Context, jobs []model.JobRecord) []Result {
	results := make([]Result, len(jobs))
	for i := range jobs {
		results[i].Job = jobs[i]
	}

	offset := 0
	for _, batch := range batchByChars(jobs, o.opts.MaxBatchChars) {
		if err := o.limiter.Wait(ctx); err != nil {
			o.markCancelled(results, offset, err)
			return results
		}

		profiles, err := o.enhanceBatch(ctx, batch)
		for i := range batch {
			if err != nil {
				results[offset+i].Err = err
			} else {
				results[offset+i].Profile = profiles[i]
			}
		}
		offset += len(batch)

		if ctx.Err() != nil {
			o.markCancelled(results, offset, ctx.Err())
			return results
		}
	}
	return results
}

func (o *Orchestrator) enhanceOne(ctx context.Context, job *model.JobRecord) (*model.EnhancedProfile, error) {
	resp, err := o.call(ctx, recordPrompt(job))
	if err != nil {
		return nil, err
	}
	return parseProfile(resp.Text)
}

func (o *Orchestrator) enhanceBatch(ctx context.Context, batch []model.JobRecord) ([]*model.EnhancedProfile, error) {
	resp, err := o.call(ctx, batchPrompt(batch))
	if err != nil {
		return nil, err
	}
	return parseProfileArray(resp.Text, len(batch))
}

func (o *Orchestrator) call(ctx context.Context, prompt string) (*llm.MessageResponse, error) {
	return resilience.DoVal(ctx, o.retry, func(ctx context.Context) (*llm.MessageResponse, error) {
		callCtx, cancel := context.WithTimeout(ctx, o.opts.CallTimeout)
		defer cancel()

		return o.client.CreateMessage(callCtx, llm.MessageRequest{
			Model:     o.opts.Model,
			MaxTokens: o.opts.MaxTokens,
			System:    systemPrompt,
			Messages:  []llm.Message{{Role: "user", Content: prompt}},
		})
	})
}

// markCancelled records the cancellation error on every result not yet
// processed.
func (o *Orchestrator) markCancelled(results []Result, from int, err error) {
	for i := from; i < len(results); i++ {
		if results[i].Profile == nil && results[i].Err == nil {
			results[i].Err = err
		}
	}
}

// batchByChars splits records into consecutive batches whose combined
// prompt text stays under the budget. A record that alone exceeds the
// budget still gets its own batch.
func batchByChars(jobs []model.JobRecord, maxChars int) [][]model.JobRecord {
	var batches [][]model.JobRecord
	var current []model.JobRecord
	size := 0

	for i := range jobs {
		cost := promptCost(&jobs[i])
		if len(current) > 0 && size+cost > maxChars {
			batches = append(batches, current)
			current = nil
			size = 0
		}
		current = append(current, jobs[i])
		size += cost
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}

func promptCost(job *model.JobRecord) int {
	desc := job.JobDescription
	if desc == "" {
		desc = job.RawText
	}
	if len(desc) > maxDescriptionChars {
		desc = desc[:maxDescriptionChars]
	}
	return len(job.Title) + len(job.Company) + len(job.Location) + len(desc) + 64
}
