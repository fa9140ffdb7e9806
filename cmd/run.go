package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/jobsift/jobsift/internal/pipeline"
)

var (
	runSourcesFile string
	runURLs        []string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full scraping pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var sources []pipeline.Source
		for _, u := range runURLs {
			sources = append(sources, pipeline.Source{URL: u})
		}
		if runSourcesFile != "" {
			fromFile, err := loadSources(runSourcesFile)
			if err != nil {
				return err
			}
			sources = append(sources, fromFile...)
		}
		if len(sources) == 0 {
			return eris.New("no sources: pass --url or --sources")
		}

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		summary, err := env.Pipeline.Run(ctx, sources)
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		zap.L().Info("run complete",
			zap.Int("scraped", summary.RawScraped),
			zap.Int("stored", summary.Stored),
			zap.Int("failed", summary.Failed),
			zap.Float64("duplicate_rate", summary.DuplicateRate()),
			zap.Float64("success_rate", summary.SuccessRate()),
		)
		return nil
	},
}

func loadSources(path string) ([]pipeline.Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read sources file %s", path)
	}

	var doc struct {
		Sources []pipeline.Source `yaml:"sources"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrapf(err, "parse sources file %s", path)
	}

	var sources []pipeline.Source
	for _, s := range doc.Sources {
		if s.URL != "" {
			sources = append(sources, s)
		}
	}
	if len(sources) == 0 {
		return nil, eris.Errorf("sources file %s lists no urls", path)
	}
	return sources, nil
}

func init() {
	runCmd.Flags().StringVar(&runSourcesFile, "sources", "", "YAML file listing source URLs")
	runCmd.Flags().StringSliceVar(&runURLs, "url", nil, "listing URL to scrape (repeatable)")
	rootCmd.AddCommand(runCmd)
}
