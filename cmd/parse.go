package main

import (
	"encoding/json"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jobsift/jobsift/internal/enhance"
	"github.com/jobsift/jobsift/internal/model"
	"github.com/jobsift/jobsift/pkg/llm"
)

var (
	parseInput string
	parseOut   string
)

var parseCmd = &cobra.Command{
	Use:   "parse",
	Short: "Parse a raw scrape dump with the LLM extractor",
	Long:  "Splits a raw text dump into job blocks and extracts one structured record per block via Claude. Useful for text the rule-based parser cannot handle.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if cfg.LLM.Key == "" {
			return eris.New("config: llm.key is required")
		}

		data, err := os.ReadFile(parseInput)
		if err != nil {
			return eris.Wrapf(err, "read input %s", parseInput)
		}

		blocks := splitDump(string(data))
		if len(blocks) == 0 {
			return eris.New("input contains no job blocks")
		}
		zap.L().Info("parsing dump",
			zap.String("input", parseInput),
			zap.Int("blocks", len(blocks)),
		)

		orchestrator := enhance.New(llm.NewClient(cfg.LLM.Key), enhance.Options{
			Model:       cfg.LLM.Model,
			MaxTokens:   int64(cfg.LLM.MaxTokens),
			CallTimeout: time.Duration(cfg.LLM.TimeoutSecs) * time.Second,
		})

		records := orchestrator.ExtractRecords(ctx, blocks)
		zap.L().Info("extraction done",
			zap.Int("blocks", len(blocks)),
			zap.Int("records", len(records)),
		)

		out := os.Stdout
		if parseOut != "" {
			f, err := os.Create(parseOut)
			if err != nil {
				return eris.Wrapf(err, "create output %s", parseOut)
			}
			defer f.Close()
			out = f
		}

		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	},
}

var blockSeparatorRE = regexp.MustCompile(`(?m)^={5,}\s*$`)

// splitDump cuts a raw scrape dump into per-job blocks on separator
// lines of equals signs.
func splitDump(text string) []model.RawBlock {
	now := time.Now()
	var blocks []model.RawBlock
	for _, chunk := range blockSeparatorRE.Split(text, -1) {
		chunk = strings.TrimSpace(chunk)
		if len(chunk) < 20 {
			continue
		}
		blocks = append(blocks, model.RawBlock{Text: chunk, CapturedAt: now})
	}
	return blocks
}

func init() {
	parseCmd.Flags().StringVar(&parseInput, "input", "", "raw text dump to parse (required)")
	parseCmd.Flags().StringVar(&parseOut, "out", "", "output JSON path (default stdout)")
	_ = parseCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(parseCmd)
}
