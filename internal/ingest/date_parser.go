package ingest

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const isoDate = "2006-01-02"

var (
	isoDateRegex   = regexp.MustCompile(`\b(20\d{2})-(\d{2})-(\d{2})\b`)
	monthNameRegex = regexp.MustCompile(`\b(January|February|March|April|May|June|July|August|September|October|November|December|Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\s+(\d{1,2}),?\s+(20\d{2})\b`)
)

// parseDateRobust attempts to parse the date formats procurement portals use.
// Day-first numeric dates are preferred over month-first ones.
func parseDateRobust(text string) (time.Time, error) {
	text = cleanDateString(text)
	if text == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	// Try ISO format first (most reliable)
	if t, err := time.Parse(time.RFC3339, text); err == nil {
		return t, nil
	}
	if t, err := time.Parse(isoDate, text); err == nil {
		return toEndOfDay(t), nil
	}

	formats := []string{
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2 January 2006",
		"02 January 2006",
		"January 2, 2006",
		"Jan 2, 2006",
		"2 Jan 2006",
		"02 Jan 2006",
		"02-Jan-2006",
		"02-01-2006",
		"02/01/2006",
		"02.01.2006",
		"02-01-2006 15:04",
		"02/01/2006 15:04",
	}
	for _, format := range formats {
		if t, err := time.Parse(format, text); err == nil {
			// If format has time, return as is. If date only, end of day.
			if strings.Contains(format, ":") {
				return t, nil
			}
			return toEndOfDay(t), nil
		}
	}

	if t := parseDateWithRegex(text); !t.IsZero() {
		return toEndOfDay(t), nil
	}

	return time.Time{}, fmt.Errorf("unable to parse date: %s", text)
}

// toEndOfDay sets the time to 23:59:59.999999999 UTC
func toEndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999999999, time.UTC)
}

// parseDateWithRegex finds a date embedded in surrounding text.
func parseDateWithRegex(text string) time.Time {
	if m := isoDateRegex.FindString(text); m != "" {
		if t, err := time.Parse(isoDate, m); err == nil {
			return t
		}
	}

	if matches := monthNameRegex.FindStringSubmatch(text); len(matches) == 4 {
		dateStr := fmt.Sprintf("%s %s, %s", matches[1], matches[2], matches[3])
		if t, err := time.Parse("January 2, 2006", dateStr); err == nil {
			return t
		}
		if t, err := time.Parse("Jan 2, 2006", dateStr); err == nil {
			return t
		}
	}

	return time.Time{}
}

// cleanDateString removes common prefixes and cleans up date strings
func cleanDateString(s string) string {
	prefixes := []string{
		"Closing date:", "Deadline:", "Last date:", "Due date:",
		"Bid submission end date:", "Published date:",
	}
	sLower := strings.ToLower(s)
	for _, p := range prefixes {
		if idx := strings.Index(sLower, strings.ToLower(p)); idx != -1 {
			s = s[idx+len(p):]
			sLower = sLower[idx+len(p):]
		}
	}
	return strings.TrimSpace(s)
}

// normalizeDate rewrites a parseable date as an ISO calendar date. Values
// that cannot be parsed are returned trimmed but otherwise untouched.
func normalizeDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	t, err := parseDateRobust(raw)
	if err != nil {
		return raw
	}
	return t.Format(isoDate)
}

// parseDeadline resolves a record deadline to the instant it lapses.
func parseDeadline(raw string) (time.Time, bool) {
	t, err := parseDateRobust(raw)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}
