package main

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/jobsift/jobsift/internal/model"
	"github.com/jobsift/jobsift/internal/store"
)

var (
	exportOut          string
	exportCompany      string
	exportEnhancedOnly bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored jobs to an Excel workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
		if err != nil {
			return eris.Wrap(err, "open store")
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		jobs, err := st.ListJobs(ctx, store.JobFilter{
			Company:      exportCompany,
			EnhancedOnly: exportEnhancedOnly,
		})
		if err != nil {
			return eris.Wrap(err, "list jobs")
		}
		if len(jobs) == 0 {
			return eris.New("no jobs match the filter")
		}

		if err := writeWorkbook(ctx, exportOut, jobs); err != nil {
			return err
		}

		zap.L().Info("export complete",
			zap.String("path", exportOut),
			zap.Int("jobs", len(jobs)),
		)
		return nil
	},
}

var exportHeader = []string{
	"Company", "Title", "Location", "Job Type", "Experience Level",
	"Industry", "Salary Low", "Salary High", "Post Date", "URL",
	"Company Tier", "Job Family", "Seniority", "Remote Policy",
	"Required Skills", "Optional Skills", "Trust Score",
}

func writeWorkbook(ctx context.Context, path string, jobs []model.JobRecord) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Jobs")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range exportHeader {
		header.AddCell().Value = h
	}

	for i := range jobs {
		if err := ctx.Err(); err != nil {
			return err
		}
		addJobRow(sheet, &jobs[i])
	}

	return eris.Wrapf(file.Save(path), "export: save %s", path)
}

func addJobRow(sheet *xlsx.Sheet, job *model.JobRecord) {
	row := sheet.AddRow()
	row.AddCell().Value = job.Company
	row.AddCell().Value = job.Title
	row.AddCell().Value = job.Location
	row.AddCell().Value = job.JobType
	row.AddCell().Value = job.ExperienceLevel
	row.AddCell().Value = job.Industry
	row.AddCell().SetInt(job.SalaryLow)
	row.AddCell().SetInt(job.SalaryHigh)
	row.AddCell().Value = job.PostDate
	row.AddCell().Value = job.URL

	if job.Enhanced == nil {
		return
	}
	row.AddCell().Value = job.Enhanced.CompanyTier
	row.AddCell().Value = job.Enhanced.JobFamily
	row.AddCell().Value = job.Enhanced.SeniorityLevel
	row.AddCell().Value = job.Enhanced.RemotePolicy

	var required []string
	for _, sk := range job.Enhanced.SkillsRequired {
		required = append(required, sk.Name)
	}
	row.AddCell().Value = strings.Join(required, ", ")
	row.AddCell().Value = strings.Join(job.Enhanced.SkillsOptional, ", ")
	row.AddCell().SetFloat(job.Enhanced.TrustScore)
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "jobs.xlsx", "output workbook path")
	exportCmd.Flags().StringVar(&exportCompany, "company", "", "only export jobs from this company")
	exportCmd.Flags().BoolVar(&exportEnhancedOnly, "enhanced-only", false, "only export enhanced jobs")
	rootCmd.AddCommand(exportCmd)
}
