package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jobsift/jobsift/internal/model"
	"github.com/jobsift/jobsift/internal/pipeline"
)

var (
	resumeCheckpoint string
	resumeStage      string
)

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume a run from its last checkpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var cp *pipeline.Checkpoint
		var err error
		if resumeCheckpoint != "" {
			cp, err = pipeline.LoadCheckpoint(resumeCheckpoint)
		} else {
			cp, err = pipeline.LatestCheckpoint(cfg.Pipeline.CheckpointDir, model.Stage(resumeStage))
		}
		if err != nil {
			return err
		}

		zap.L().Info("checkpoint loaded",
			zap.String("stage", string(cp.Stage)),
			zap.Int("records", len(cp.Records)),
		)

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		summary, err := env.Pipeline.Resume(ctx, cp)
		if err != nil {
			return eris.Wrap(err, "pipeline resume")
		}

		zap.L().Info("resume complete",
			zap.Int("stored", summary.Stored),
			zap.Int("failed", summary.Failed),
		)
		return nil
	},
}

func init() {
	resumeCmd.Flags().StringVar(&resumeCheckpoint, "checkpoint", "", "checkpoint file to resume from (default: newest)")
	resumeCmd.Flags().StringVar(&resumeStage, "stage", "", "only consider checkpoints of this stage")
	rootCmd.AddCommand(resumeCmd)
}
