package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobsift/jobsift/internal/model"
)

const acmeBlock = `Acme Systems Pte Ltd
Senior Software Engineer
Central
Full Time
Senior Executive
Information Technology
$6,000 to $8,500
Posted 3 days ago`

func TestParse_FullBlock(t *testing.T) {
	captured := time.Date(2025, 9, 20, 9, 30, 0, 0, time.UTC)
	rec := Parse(model.RawBlock{
		Text:       acmeBlock,
		URL:        "https://jobs.example.sg/view/12345",
		CapturedAt: captured,
	})
	require.NotNil(t, rec)

	assert.Equal(t, "Acme Systems Pte Ltd", rec.Company)
	assert.Equal(t, "Senior Software Engineer", rec.Title)
	assert.Equal(t, "Central", rec.Location)
	assert.Equal(t, "Full Time", rec.JobType)
	assert.Equal(t, "Senior Executive", rec.ExperienceLevel)
	assert.Equal(t, "Information Technology", rec.Industry)
	assert.Equal(t, 6000, rec.SalaryLow)
	assert.Equal(t, 8500, rec.SalaryHigh)
	assert.Equal(t, "3 days ago", rec.PostDateRaw)
	assert.Equal(t, "https://jobs.example.sg/view/12345", rec.URL)
	assert.Equal(t, "2025-09-20T09:30:00Z", rec.ScrapedAt)
	assert.Equal(t, acmeBlock, rec.RawText)
}

func TestParse_MissingFieldsDefaultToUnknown(t *testing.T) {
	rec := Parse(model.RawBlock{Text: "Globex Pte Ltd\nOperations Coordinator"})
	require.NotNil(t, rec)

	assert.Equal(t, "Globex Pte Ltd", rec.Company)
	assert.Equal(t, "Operations Coordinator", rec.Title)
	assert.Equal(t, model.Unknown, rec.Location)
	assert.Equal(t, model.Unknown, rec.JobType)
	assert.Equal(t, model.Unknown, rec.ExperienceLevel)
	assert.Equal(t, model.Unknown, rec.Industry)
	assert.Zero(t, rec.SalaryLow)
	assert.Zero(t, rec.SalaryHigh)
}

func TestParse_TitleSkipsChatterAndBareTokens(t *testing.T) {
	block := `Initech Solutions
Typically replies in 2 days
East
Full Time
Data Analyst
$4,000 to $5,500`

	rec := Parse(model.RawBlock{Text: block})
	require.NotNil(t, rec)
	assert.Equal(t, "Data Analyst", rec.Title)
}

func TestParse_SeparatorLinesIgnored(t *testing.T) {
	block := `=== JOB 3 ===
Hooli Pte Ltd
Cloud Architect
===============
West`

	rec := Parse(model.RawBlock{Text: block})
	require.NotNil(t, rec)
	assert.Equal(t, "Hooli Pte Ltd", rec.Company)
	assert.Equal(t, "Cloud Architect", rec.Title)
	assert.Equal(t, "West", rec.Location)
}

func TestParse_CanonicalizesTokenCasing(t *testing.T) {
	block := `Vandelay Industries
Logistics Executive
ISLANDWIDE
FULL TIME`

	rec := Parse(model.RawBlock{Text: block})
	require.NotNil(t, rec)
	assert.Equal(t, "Islandwide", rec.Location)
	assert.Equal(t, "Full Time", rec.JobType)
}

func TestParse_EmptyBlock(t *testing.T) {
	assert.Nil(t, Parse(model.RawBlock{Text: ""}))
	assert.Nil(t, Parse(model.RawBlock{Text: "\n\n  \n"}))
}

func TestParse_RejectsCompanyEqualTitle(t *testing.T) {
	assert.Nil(t, Parse(model.RawBlock{Text: "Acme Corp\nAcme Corp"}))
}

func TestParse_OnlySalaryLineFeedsExtraction(t *testing.T) {
	// The card carries digits outside the salary line; they must not
	// leak into the extracted range.
	block := `Stark Industries
Mechanical Engineer 3
Contract
$5,000 to $7,000
Posted 12 days ago`

	rec := Parse(model.RawBlock{Text: block})
	require.NotNil(t, rec)
	assert.Equal(t, 5000, rec.SalaryLow)
	assert.Equal(t, 7000, rec.SalaryHigh)
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		name  string
		rec   model.JobRecord
		valid bool
	}{
		{"complete", model.JobRecord{Company: "Acme", Title: "Engineer"}, true},
		{"empty company", model.JobRecord{Company: "", Title: "Engineer"}, false},
		{"empty title", model.JobRecord{Company: "Acme", Title: ""}, false},
		{"unknown title sentinel passes", model.JobRecord{Company: "Acme", Title: model.Unknown}, true},
		{"company equals title", model.JobRecord{Company: "Acme", Title: "Acme"}, false},
		{"company is location token", model.JobRecord{Company: "Central", Title: "Engineer"}, false},
		{"title is job type token", model.JobRecord{Company: "Acme", Title: "Full Time"}, false},
		{"title is job type token lowercase", model.JobRecord{Company: "Acme", Title: "full time"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValid(&tt.rec))
		})
	}
}
