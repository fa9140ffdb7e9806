package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

var (
	daysAgoRE   = regexp.MustCompile(`(\d+)\s*days?\s*ago`)
	weeksAgoRE  = regexp.MustCompile(`(\d+)\s*weeks?\s*ago`)
	monthsAgoRE = regexp.MustCompile(`(\d+)\s*months?\s*ago`)
	isoDateRE   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	usDateRE    = regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}$`)
)

// ResolveDate converts a relative or partially-specified post date into
// an absolute YYYY-MM-DD string. The reference date is the calendar
// date of scrapedAt; when scrapedAt itself is unparsable the current
// date is used. Unparsable post dates resolve to the reference date —
// this function never fails.
func ResolveDate(postDate, scrapedAt string) string {
	ref := referenceDate(scrapedAt)

	raw := strings.TrimSpace(postDate)
	lower := strings.ToLower(raw)
	lower = strings.TrimPrefix(lower, "posted ")
	lower = strings.TrimSpace(lower)

	switch {
	case lower == "today":
		return ref.Format(dateLayout)
	case lower == "yesterday":
		return ref.AddDate(0, 0, -1).Format(dateLayout)
	case daysAgoRE.MatchString(lower):
		n, _ := strconv.Atoi(daysAgoRE.FindStringSubmatch(lower)[1])
		return ref.AddDate(0, 0, -n).Format(dateLayout)
	case weeksAgoRE.MatchString(lower):
		n, _ := strconv.Atoi(weeksAgoRE.FindStringSubmatch(lower)[1])
		return ref.AddDate(0, 0, -7*n).Format(dateLayout)
	case monthsAgoRE.MatchString(lower):
		// Months are approximated as 30 days. Existing data was
		// resolved this way, so calendar-month arithmetic would shift
		// stored dates.
		n, _ := strconv.Atoi(monthsAgoRE.FindStringSubmatch(lower)[1])
		return ref.AddDate(0, 0, -30*n).Format(dateLayout)
	case isoDateRE.MatchString(raw):
		return raw
	case usDateRE.MatchString(raw):
		if t, err := time.Parse("1/2/2006", raw); err == nil {
			return t.Format(dateLayout)
		}
	}

	if raw != "" {
		zap.L().Debug("parser: unparsable post date, using reference",
			zap.String("post_date", raw))
	}
	return ref.Format(dateLayout)
}

// referenceDate parses scrapedAt as ISO-8601, normalizing a trailing Z,
// and falls back to the current time.
func referenceDate(scrapedAt string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, scrapedAt); err == nil {
			return t
		}
	}
	return time.Now()
}
