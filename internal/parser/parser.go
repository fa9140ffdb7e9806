// Package parser turns raw scraped text blocks into structured job
// records using ordered heuristic pattern matching. It never fails:
// fields that cannot be extracted default to sentinels, and only the
// validity gate can reject a block outright.
package parser

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jobsift/jobsift/internal/model"
)

const minTitleLength = 5

var (
	whitespaceRE = regexp.MustCompile(`\s+`)
	separatorRE  = regexp.MustCompile(`^=+$`)

	titleCaser = cases.Title(language.English)
)

// fieldRule binds a JobRecord field to an ordered list of patterns and
// an optional postprocess step. Rules are evaluated line-major: the
// first line with any match wins, and within that line the first
// pattern in order wins.
type fieldRule struct {
	field    string
	patterns []*regexp.Regexp
	post     func(string) string
}

var fieldRules = []fieldRule{
	{
		field: "location",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(Islandwide|Central|North|South|East|West)`),
			regexp.MustCompile(`(?i)(Singapore|SG)`),
			regexp.MustCompile(`(?i)(Remote|Hybrid)`),
		},
		post: canonicalToken,
	},
	{
		field: "job_type",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(Full Time|Part Time|Contract|Permanent|Temporary)`),
			regexp.MustCompile(`(?i)(Full-time|Part-time)`),
		},
		post: canonicalToken,
	},
	{
		field: "experience_level",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(Senior Executive|Senior Manager|Assistant Manager|Executive|Manager|Director)`),
			regexp.MustCompile(`(?i)(Entry Level|Mid Level|Senior Level)`),
			regexp.MustCompile(`(?i)(\d+)\s*Years?\s*Exp`),
		},
	},
	{
		field: "industry",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(Information Technology|Banking And Finance|Engineering|Healthcare|Education|Manufacturing|Retail|Construction)`),
			regexp.MustCompile(`(?i)\b(IT|Tech|Finance|Banking)\b`),
		},
	},
	{
		field: "post_date",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)Posted\s+(today|yesterday|\d+\s+days?\s+ago|\d+\s+weeks?\s+ago|\d+\s+months?\s+ago)`),
			regexp.MustCompile(`(\d{4}-\d{2}-\d{2})`),
			regexp.MustCompile(`(\d{1,2}\s+[A-Za-z]+\s+\d{4})`),
		},
	},
}

// Bare-token sets used by the title filter and the validity gate.
var (
	locationTokens = tokenSet(
		"North", "South", "East", "West", "Central", "Singapore", "Islandwide", "Remote", "Hybrid", "SG",
	)
	jobTypeTokens = tokenSet(
		"Full Time", "Part Time", "Contract", "Temporary", "Internship", "Permanent",
	)
	experienceTokens = tokenSet(
		"Professional", "Executive", "Senior Executive", "Senior Management", "Junior Executive",
		"Manager", "Director", "Senior Manager", "Assistant Manager",
	)
)

// tokenExceptions preserves casing the title caser would mangle.
var tokenExceptions = map[string]string{"sg": "SG", "it": "IT"}

func tokenSet(tokens ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[strings.ToLower(t)] = struct{}{}
	}
	return set
}

// canonicalToken maps a matched token to its vocabulary casing, so
// "FULL TIME" and "full time" both come out as "Full Time".
func canonicalToken(tok string) string {
	if canon, ok := tokenExceptions[strings.ToLower(tok)]; ok {
		return canon
	}
	return titleCaser.String(strings.ToLower(tok))
}

// Parse extracts a best-effort JobRecord from one raw block. It returns
// nil only when the validity gate rejects the block; every other
// extraction miss defaults to a sentinel.
func Parse(block model.RawBlock) *model.JobRecord {
	lines := splitLines(block.Text)
	if len(lines) == 0 {
		return nil
	}

	rec := &model.JobRecord{
		Location:        model.Unknown,
		JobType:         model.Unknown,
		ExperienceLevel: model.Unknown,
		Industry:        model.Unknown,
		URL:             block.URL,
		RawText:         block.Text,
	}
	if !block.CapturedAt.IsZero() {
		rec.ScrapedAt = block.CapturedAt.Format("2006-01-02T15:04:05Z07:00")
	}

	rec.Company = whitespaceRE.ReplaceAllString(lines[0], " ")
	rec.Title = extractTitle(lines)

	for _, rule := range fieldRules {
		value, ok := firstMatch(lines, rule.patterns)
		if !ok {
			continue
		}
		if rule.post != nil {
			value = rule.post(value)
		}
		switch rule.field {
		case "location":
			rec.Location = value
		case "job_type":
			rec.JobType = value
		case "experience_level":
			rec.ExperienceLevel = value
		case "industry":
			rec.Industry = value
		case "post_date":
			rec.PostDateRaw = value
		}
	}

	if line, ok := salaryLine(lines); ok {
		rec.SalaryLow, rec.SalaryHigh = ExtractSalary(line)
	}

	if !IsValid(rec) {
		return nil
	}
	return rec
}

// splitLines returns trimmed non-empty lines with separator and batch
// marker lines removed.
func splitLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || separatorRE.MatchString(line) {
			continue
		}
		if strings.HasPrefix(line, "===") || strings.HasSuffix(line, "===") {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// extractTitle picks the first of lines 2..6 that plausibly is a job
// title, falling back to the second line verbatim.
func extractTitle(lines []string) string {
	end := len(lines)
	if end > 6 {
		end = 6
	}
	for _, line := range lines[1:end] {
		upper := strings.ToUpper(line)
		if strings.Contains(upper, "TYPICALLY REPLIES") || strings.Contains(upper, "REPLIES IN") {
			continue
		}
		if len(line) < minTitleLength {
			continue
		}
		lower := strings.ToLower(line)
		if _, ok := locationTokens[lower]; ok {
			continue
		}
		if _, ok := jobTypeTokens[lower]; ok {
			continue
		}
		if _, ok := experienceTokens[lower]; ok {
			continue
		}
		return line
	}
	if len(lines) > 1 {
		return lines[1]
	}
	return model.Unknown
}

// firstMatch scans lines in order against an ordered pattern list and
// returns the first captured group.
func firstMatch(lines []string, patterns []*regexp.Regexp) (string, bool) {
	for _, line := range lines {
		for _, re := range patterns {
			if m := re.FindStringSubmatch(line); m != nil {
				return m[1], true
			}
		}
	}
	return "", false
}

// salaryLine finds the line most likely to carry the salary range.
func salaryLine(lines []string) (string, bool) {
	for _, line := range lines {
		if !strings.Contains(line, "$") {
			continue
		}
		lower := strings.ToLower(line)
		if strings.Contains(lower, "to") || strings.Contains(line, "-") ||
			strings.Contains(line, "~") || strings.Contains(lower, "salary") {
			return line, true
		}
	}
	return "", false
}

// IsValid is the parser's only hard rejection gate: company and title
// must be present and distinct, the company must not be a bare location
// token, and the title must not be a bare job-type token.
func IsValid(rec *model.JobRecord) bool {
	company := strings.TrimSpace(rec.Company)
	title := strings.TrimSpace(rec.Title)

	if company == "" || title == "" {
		return false
	}
	if company == title {
		return false
	}
	if _, ok := locationTokens[strings.ToLower(company)]; ok {
		return false
	}
	if _, ok := jobTypeTokens[strings.ToLower(title)]; ok {
		return false
	}
	return true
}
