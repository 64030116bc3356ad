package synthesis

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateResolver interprets a free-form deadline phrase when no date pattern
// matches. Implementations return an ISO date or empty when the phrase
// cannot be resolved.
type DateResolver interface {
	ResolveDate(ctx context.Context, phrase string) (string, error)
}

var (
	isoDate     = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	slashedDate = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	dashedDate  = regexp.MustCompile(`\b(\d{1,2})-(\d{1,2})-(\d{4})\b`)
	// "2 March 2026" and "March 2, 2026".
	dayMonthDate = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?\s+([A-Za-z]+),?\s+(\d{4})\b`)
	monthDayDate = regexp.MustCompile(`\b([A-Za-z]+)\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})\b`)
)

// ParseDate extracts an ISO due date from a deadline phrase using fixed
// patterns: ISO, MM/DD/YYYY, MM-DD-YYYY, day-month-name, month-name-day.
// The returned bool reports whether any pattern matched.
func ParseDate(phrase string) (string, bool) {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" {
		return "", false
	}

	if m := isoDate.FindStringSubmatch(phrase); m != nil {
		return validate(m[1], m[2], m[3])
	}
	if m := slashedDate.FindStringSubmatch(phrase); m != nil {
		return validate(m[3], m[1], m[2])
	}
	if m := dashedDate.FindStringSubmatch(phrase); m != nil {
		return validate(m[3], m[1], m[2])
	}
	if m := dayMonthDate.FindStringSubmatch(phrase); m != nil {
		if month, ok := monthNumber(m[2]); ok {
			return validate(m[3], month, m[1])
		}
	}
	if m := monthDayDate.FindStringSubmatch(phrase); m != nil {
		if month, ok := monthNumber(m[1]); ok {
			return validate(m[3], month, m[2])
		}
	}
	return "", false
}

func validate(year, month, day string) (string, bool) {
	y, errY := strconv.Atoi(year)
	m, errM := strconv.Atoi(month)
	d, errD := strconv.Atoi(day)
	if errY != nil || errM != nil || errD != nil {
		return "", false
	}
	candidate := fmt.Sprintf("%04d-%02d-%02d", y, m, d)
	parsed, err := time.Parse("2006-01-02", candidate)
	if err != nil {
		return "", false
	}
	return parsed.Format("2006-01-02"), true
}

func monthNumber(name string) (string, bool) {
	parsed, err := time.Parse("January", normalizeMonth(name))
	if err != nil {
		parsed, err = time.Parse("Jan", normalizeMonth(name))
		if err != nil {
			return "", false
		}
	}
	return fmt.Sprintf("%02d", int(parsed.Month())), true
}

func normalizeMonth(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
