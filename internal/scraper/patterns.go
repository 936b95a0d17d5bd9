package scraper

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"event-scout/internal/domain/event"
)

// Event-indicator patterns, tried in order. A line (or name/description)
// "looks like an event" if any of them matches.
var eventIndicatorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(conference|summit|meetup|event|hackathon|workshop)\b`),
	regexp.MustCompile(`(?i)\b(20\d{2})\b.{0,30}\b(conference|summit|meetup|event|hackathon|workshop)\b`),
	regexp.MustCompile(`(?i)\b(conference|summit|meetup|event|hackathon|workshop)\b.{0,30}\b(20\d{2})\b`),
	regexp.MustCompile(`(?i)\b(join us|save the date|register)\b`),
}

var urlPattern = regexp.MustCompile(`(?i)https?://|www\.`)

// Ordered date patterns: first match wins per candidate. Downstream dedup
// windows depend on these producing the same dates every run, so do not
// reorder or merge them.
var (
	monthNames = `jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sep(?:t|tember)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?`

	// "February 20-28, 2025" or "February 20, 2025"
	dateMonthDayYear = regexp.MustCompile(`(?i)\b(` + monthNames + `)\.?\s+(\d{1,2})(?:\s*[-–]\s*\d{1,2})?\s*,?\s+(\d{4})\b`)
	// "2/20/2025"
	dateSlash = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	// "2025-02-20"
	dateISO = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	// "20 February 2025"
	dateDayMonthYear = regexp.MustCompile(`(?i)\b(\d{1,2})\s+(` + monthNames + `)\.?\s+(\d{4})\b`)
)

// "City, Region" or "City, Region, Country". Capitalized comma-separated
// segments; applied only to lines with no URL in them.
var locationPattern = regexp.MustCompile(`\b([A-Z][A-Za-z.'\x60-]+(?:\s+[A-Z][A-Za-z.'\x60-]+)*),\s+([A-Z][A-Za-z.'\x60-]+(?:\s+[A-Z][A-Za-z.'\x60-]+)*)(?:,\s+([A-Z][A-Za-z.'\x60-]+(?:\s+[A-Z][A-Za-z.'\x60-]+)*))?`)

var monthByPrefix = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

func monthFromName(name string) (time.Month, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if len(name) < 3 {
		return 0, false
	}
	m, ok := monthByPrefix[name[:3]]
	return m, ok
}

// matchesEventIndicator reports whether s matches any built-in indicator or
// any of the source's extra keyword hints.
func matchesEventIndicator(s string, extra []string) bool {
	for _, re := range eventIndicatorPatterns {
		if re.MatchString(s) {
			return true
		}
	}
	lower := strings.ToLower(s)
	for _, kw := range extra {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func containsURL(s string) bool {
	return urlPattern.MatchString(s)
}

// extractDate tries the ordered date patterns against one line and returns
// the first parseable match.
func extractDate(line string) *time.Time {
	if m := dateMonthDayYear.FindStringSubmatch(line); m != nil {
		if t, ok := makeDate(m[3], m[1], m[2]); ok {
			return &t
		}
	}
	if m := dateSlash.FindStringSubmatch(line); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if t, ok := civilDate(year, time.Month(month), day); ok {
			return &t
		}
	}
	if m := dateISO.FindStringSubmatch(line); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		if t, ok := civilDate(year, time.Month(month), day); ok {
			return &t
		}
	}
	if m := dateDayMonthYear.FindStringSubmatch(line); m != nil {
		if t, ok := makeDate(m[3], m[2], m[1]); ok {
			return &t
		}
	}
	return nil
}

func makeDate(yearStr, monthName, dayStr string) (time.Time, bool) {
	month, ok := monthFromName(monthName)
	if !ok {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return time.Time{}, false
	}
	day, err := strconv.Atoi(dayStr)
	if err != nil {
		return time.Time{}, false
	}
	return civilDate(year, month, day)
}

func civilDate(year int, month time.Month, day int) (time.Time, bool) {
	if year < 1900 || year > 2200 || month < time.January || month > time.December || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	// Reject rollovers like Feb 30.
	if t.Day() != day || t.Month() != month {
		return time.Time{}, false
	}
	return t, true
}

// extractLocation returns a structured location from one line, or nil. Lines
// containing a URL are skipped: path segments look like comma lists too often.
func extractLocation(line string) *event.Location {
	if containsURL(line) {
		return nil
	}
	m := locationPattern.FindStringSubmatch(line)
	if m == nil {
		return nil
	}
	loc := &event.Location{
		Full:   strings.TrimSpace(m[0]),
		City:   strings.TrimSpace(m[1]),
		Region: strings.TrimSpace(m[2]),
	}
	return loc
}

// cleanText collapses whitespace and strips markdown heading/list markers.
func cleanText(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "#")
	s = strings.TrimPrefix(s, "- ")
	s = strings.TrimPrefix(s, "* ")
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimSpace(s)
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return strings.TrimSpace(s[:max])
}
