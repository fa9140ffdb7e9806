package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/jobsift/jobsift/internal/dedup"
	"github.com/jobsift/jobsift/internal/enhance"
	"github.com/jobsift/jobsift/internal/pipeline"
	"github.com/jobsift/jobsift/internal/store"
	"github.com/jobsift/jobsift/pkg/fetcher"
	"github.com/jobsift/jobsift/pkg/llm"
)

// pipelineEnv holds the initialized store, clients, and pipeline needed
// by the run/resume/serve commands.
type pipelineEnv struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
	Seen     *dedup.SeenSet // may be nil
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Seen != nil {
		_ = pe.Seen.Close()
	}
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline sets up the store and all clients and builds the
// Pipeline. Callers should defer env.Close().
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	if err := cfg.ValidateForRun(); err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	fetchClient := fetcher.NewClient(cfg.Fetcher.BaseURL,
		fetcher.WithKey(cfg.Fetcher.Key),
		fetcher.WithTimeout(time.Duration(cfg.Fetcher.TimeoutSecs)*time.Second),
	)

	llmClient := llm.NewClient(cfg.LLM.Key)
	orchestrator := enhance.New(llmClient, enhance.Options{
		Mode:          cfg.Enhance.Mode,
		BatchSize:     cfg.Enhance.BatchSize,
		MaxBatchChars: cfg.Enhance.MaxBatchChars,
		BatchDelay:    time.Duration(cfg.Enhance.BatchDelaySecs * float64(time.Second)),
		Model:         cfg.LLM.Model,
		MaxTokens:     int64(cfg.LLM.MaxTokens),
		CallTimeout:   time.Duration(cfg.LLM.TimeoutSecs) * time.Second,
	})

	var seen *dedup.SeenSet
	if cfg.Dedup.RedisURL != "" {
		window := time.Duration(cfg.Dedup.WindowDays) * 24 * time.Hour
		seen, err = dedup.NewSeenSet(ctx, cfg.Dedup.RedisURL, window)
		if err != nil {
			zap.L().Warn("redis seen set init failed, using store-backed dedup", zap.Error(err))
			seen = nil
		}
	}

	p := pipeline.New(cfg, st, fetchClient, orchestrator, seen)

	return &pipelineEnv{
		Store:    st,
		Pipeline: p,
		Seen:     seen,
	}, nil
}
