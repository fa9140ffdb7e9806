package parser

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jobsift/jobsift/internal/model"
)

func recordWithSalary(low, high int) *model.JobRecord {
	return &model.JobRecord{Company: "Acme", Title: "Engineer", SalaryLow: low, SalaryHigh: high}
}

func TestExtractSalary_Ranges(t *testing.T) {
	tests := []struct {
		text string
		low  int
		high int
	}{
		{"$6,000 to $8,000", 6000, 8000},
		{"$6,000to$8,000", 6000, 8000},
		{"$3,500 - $5,000", 3500, 5000},
		{"$4,200~$6,300", 4200, 6300},
		{"Salary: $2,800 to $3,600 per month", 2800, 3600},
		{"2,500 to 3,500 monthly", 2500, 3500},
		{"3,000 - 4,000 Monthly", 3000, 4000},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			low, high := ExtractSalary(tt.text)
			assert.Equal(t, tt.low, low)
			assert.Equal(t, tt.high, high)
		})
	}
}

func TestExtractSalary_DegenerateRangeYieldsZero(t *testing.T) {
	// An equal-bounds match is not a range, and must not fall through
	// to the digit-run heuristic.
	low, high := ExtractSalary("$6,000to$6,000")
	assert.Zero(t, low)
	assert.Zero(t, high)
}

func TestExtractSalary_NoSalary(t *testing.T) {
	low, high := ExtractSalary("no salary mentioned")
	assert.Zero(t, low)
	assert.Zero(t, high)
}

func TestExtractSalary_DigitRunFallback(t *testing.T) {
	low, high := ExtractSalary("between 4000 and 5500 depending on experience")
	assert.Equal(t, 4000, low)
	assert.Equal(t, 5500, high)
}

func TestExtractSalary_SingleDigitRunFillsBothBounds(t *testing.T) {
	low, high := ExtractSalary("around 4500")
	assert.Equal(t, 4500, low)
	assert.Equal(t, 4500, high)
}

func TestExtractSalary_PatternOrderPrefersDollarRange(t *testing.T) {
	low, high := ExtractSalary("$5,000 to $7,000, 1,000 to 2,000 monthly allowance")
	assert.Equal(t, 5000, low)
	assert.Equal(t, 7000, high)
}

func TestHasSalaryGate(t *testing.T) {
	for _, tt := range []struct {
		low, high int
		want      bool
	}{
		{6000, 8000, true},
		{0, 0, false},
		{0, 8000, false},
		{6000, 0, false},
	} {
		t.Run(fmt.Sprintf("%d_%d", tt.low, tt.high), func(t *testing.T) {
			rec := recordWithSalary(tt.low, tt.high)
			assert.Equal(t, tt.want, rec.HasSalary())
		})
	}
}
