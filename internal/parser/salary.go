package parser

import (
	"regexp"
	"strconv"
	"strings"
)

// Ordered salary patterns. Sites frequently omit the whitespace around
// the separator ("$6,000to$8,000"), so every separator is matched with
// optional surrounding space.
var salaryPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\$(\d{1,3}(?:,\d{3})*)\s*to\s*\$(\d{1,3}(?:,\d{3})*)`),
	regexp.MustCompile(`(?i)\$(\d{1,3}(?:,\d{3})*)\s*-\s*\$(\d{1,3}(?:,\d{3})*)`),
	regexp.MustCompile(`(?i)\$(\d{1,3}(?:,\d{3})*)\s*~\s*\$(\d{1,3}(?:,\d{3})*)`),
	regexp.MustCompile(`(?i)(\d{1,3}(?:,\d{3})*)\s*to\s*(\d{1,3}(?:,\d{3})*)\s*monthly`),
	regexp.MustCompile(`(?i)(\d{1,3}(?:,\d{3})*)\s*-\s*(\d{1,3}(?:,\d{3})*)\s*monthly`),
}

var digitRunRE = regexp.MustCompile(`\d+`)

// ExtractSalary parses a salary range out of free text, returning
// (0, 0) when no usable range is found. A matched range with equal or
// non-positive bounds is not a genuine range and yields (0, 0). When no
// pattern matches, plain digit runs are used as a last resort: two or
// more runs give low/high, a single run fills both bounds.
func ExtractSalary(text string) (int, int) {
	for _, re := range salaryPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		low, errLow := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
		high, errHigh := strconv.Atoi(strings.ReplaceAll(m[2], ",", ""))
		if errLow != nil || errHigh != nil {
			return 0, 0
		}
		if low == high || low <= 0 || high <= 0 {
			return 0, 0
		}
		return low, high
	}

	runs := digitRunRE.FindAllString(strings.ReplaceAll(text, ",", ""), -1)
	switch {
	case len(runs) >= 2:
		low, _ := strconv.Atoi(runs[0])
		high, _ := strconv.Atoi(runs[1])
		return low, high
	case len(runs) == 1:
		v, _ := strconv.Atoi(runs[0])
		return v, v
	default:
		return 0, 0
	}
}
