package enhance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare json", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"plain fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  \n{\"a\":1}\n  ", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripFences(tt.in))
		})
	}
}

func TestParseProfile(t *testing.T) {
	p, err := parseProfile("```json\n" + `{
		"company_tier": "MNC",
		"title_clean": "Software Engineer",
		"skills_required": [{"name": "Go", "level": 4}],
		"trust_score": 0.9
	}` + "\n```")
	require.NoError(t, err)
	assert.Equal(t, "MNC", p.CompanyTier)
	assert.Equal(t, "Software Engineer", p.TitleClean)
	require.Len(t, p.SkillsRequired, 1)
	assert.Equal(t, "Go", p.SkillsRequired[0].Name)
	assert.Equal(t, 4, p.SkillsRequired[0].Level)
	assert.InDelta(t, 0.9, p.TrustScore, 1e-9)
}

func TestParseProfile_Invalid(t *testing.T) {
	_, err := parseProfile("the posting looks legitimate")
	assert.Error(t, err)
}

func TestParseProfileArray_ReordersByIdx(t *testing.T) {
	raw := `[
		{"company_tier": "SME", "idx": 1},
		{"company_tier": "MNC", "idx": 0}
	]`
	profiles, err := parseProfileArray(raw, 2)
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, "MNC", profiles[0].CompanyTier)
	assert.Equal(t, "SME", profiles[1].CompanyTier)
}

func TestParseProfileArray_PositionalWithoutIdx(t *testing.T) {
	raw := `[{"company_tier": "MNC"}, {"company_tier": "SME"}]`
	profiles, err := parseProfileArray(raw, 2)
	require.NoError(t, err)
	assert.Equal(t, "MNC", profiles[0].CompanyTier)
	assert.Equal(t, "SME", profiles[1].CompanyTier)
}

func TestParseProfileArray_PositionalOnDuplicateIdx(t *testing.T) {
	raw := `[{"company_tier": "MNC", "idx": 0}, {"company_tier": "SME", "idx": 0}]`
	profiles, err := parseProfileArray(raw, 2)
	require.NoError(t, err)
	assert.Equal(t, "MNC", profiles[0].CompanyTier)
	assert.Equal(t, "SME", profiles[1].CompanyTier)
}

func TestParseProfileArray_RepairsMissingBracket(t *testing.T) {
	raw := `[{"company_tier": "MNC", "idx": 0}, {"company_tier": "SME", "idx": 1}`
	profiles, err := parseProfileArray(raw, 2)
	require.NoError(t, err)
	assert.Equal(t, "MNC", profiles[0].CompanyTier)
	assert.Equal(t, "SME", profiles[1].CompanyTier)
}

func TestParseProfileArray_CountMismatch(t *testing.T) {
	_, err := parseProfileArray(`[{"company_tier": "MNC"}]`, 2)
	assert.Error(t, err)
}

func TestParseProfileArray_Garbage(t *testing.T) {
	_, err := parseProfileArray("here are the results:", 2)
	assert.Error(t, err)
}
