package interpreter

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// timeRange is a half-open-free inclusive window extracted from an utterance.
type timeRange struct {
	start time.Time
	end   time.Time
	// span is the matched substring, removed before topic extraction.
	span string
}

// timeRule is one entry of the ordered time extraction table. Rules are
// evaluated in order and the first match wins; an utterance yields at most
// one time range.
type timeRule struct {
	name  string
	re    *regexp.Regexp
	apply func(m []string, now time.Time) (timeRange, bool)
}

var monthsByName = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may": time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

// "may" doubles as a modal verb, so the month rule only accepts it next to
// a preposition or a year; every other month name matches bare.
var (
	monthRe = regexp.MustCompile(
		`\b(january|february|march|april|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sep|oct|nov|dec)\b\.?(?:,?\s*(20\d\d))?`)
	mayRe = regexp.MustCompile(`\b(?:in|during|for)\s+(may)\b(?:,?\s*(20\d\d))?|\b(may)\s+(20\d\d)\b`)

	relativeRe = regexp.MustCompile(`\b(this|next|last)\s+(day|week|month|year)\b`)
	namedDayRe = regexp.MustCompile(`\b(today|tomorrow|yesterday)\b`)
	inUnitsRe  = regexp.MustCompile(`\bin\s+(\d+)\s+(day|week|month|year)s?\b`)
	agoRe      = regexp.MustCompile(`\b(\d+)\s+(day|week|month|year)s?\s+ago\b`)
	numericRe  = regexp.MustCompile(`\b(\d{1,2})[-/](\d{1,2})(?:[-/](\d{2,4}))?\b`)
	bareRe     = regexp.MustCompile(`\b(upcoming|future|scheduled|recent|past)\b`)
)

// timeRules is the canonical extraction order: month names, relative units,
// counted offsets, numeric dates, then the bare keywords.
var timeRules = []timeRule{
	{"month", monthRe, applyMonth},
	{"may-month", mayRe, applyMay},
	{"relative", relativeRe, applyRelative},
	{"named-day", namedDayRe, applyNamedDay},
	{"in-units", inUnitsRe, applyInUnits},
	{"units-ago", agoRe, applyAgo},
	{"numeric-date", numericRe, applyNumericDate},
	{"bare-keyword", bareRe, applyBareKeyword},
}

// extractTimeRange runs the rule table over the lowercased utterance.
func extractTimeRange(query string, now time.Time) (timeRange, bool) {
	for _, rule := range timeRules {
		m := rule.re.FindStringSubmatch(query)
		if m == nil {
			continue
		}
		if tr, ok := rule.apply(m, now); ok {
			tr.span = m[0]
			return tr, true
		}
	}
	return timeRange{}, false
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// startOfWeek anchors weeks on Monday.
func startOfWeek(t time.Time) time.Time {
	day := startOfDay(t)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func startOfYear(t time.Time) time.Time {
	return time.Date(t.Year(), 1, 1, 0, 0, 0, 0, t.Location())
}

func monthWindow(year int, month time.Month, loc *time.Location) timeRange {
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return timeRange{start: start, end: start.AddDate(0, 1, 0).Add(-time.Second)}
}

func applyMonth(m []string, now time.Time) (timeRange, bool) {
	month, ok := monthsByName[strings.TrimSuffix(m[1], ".")]
	if !ok {
		return timeRange{}, false
	}
	year := now.Year()
	if m[2] != "" {
		year, _ = strconv.Atoi(m[2])
	}
	return monthWindow(year, month, now.Location()), true
}

func applyMay(m []string, now time.Time) (timeRange, bool) {
	year := now.Year()
	switch {
	case m[1] != "": // "in may" / "during may 2024"
		if m[2] != "" {
			year, _ = strconv.Atoi(m[2])
		}
	case m[3] != "": // "may 2024"
		year, _ = strconv.Atoi(m[4])
	default:
		return timeRange{}, false
	}
	return monthWindow(year, time.May, now.Location()), true
}

func applyRelative(m []string, now time.Time) (timeRange, bool) {
	var start time.Time
	var unit func(time.Time, int) time.Time

	switch m[2] {
	case "day":
		start = startOfDay(now)
		unit = func(t time.Time, n int) time.Time { return t.AddDate(0, 0, n) }
	case "week":
		start = startOfWeek(now)
		unit = func(t time.Time, n int) time.Time { return t.AddDate(0, 0, 7*n) }
	case "month":
		start = startOfMonth(now)
		unit = func(t time.Time, n int) time.Time { return t.AddDate(0, n, 0) }
	case "year":
		start = startOfYear(now)
		unit = func(t time.Time, n int) time.Time { return t.AddDate(n, 0, 0) }
	default:
		return timeRange{}, false
	}

	switch m[1] {
	case "next":
		start = unit(start, 1)
	case "last":
		start = unit(start, -1)
	}
	return timeRange{start: start, end: unit(start, 1).Add(-time.Second)}, true
}

func applyNamedDay(m []string, now time.Time) (timeRange, bool) {
	start := startOfDay(now)
	switch m[1] {
	case "tomorrow":
		start = start.AddDate(0, 0, 1)
	case "yesterday":
		start = start.AddDate(0, 0, -1)
	}
	return timeRange{start: start, end: start.AddDate(0, 0, 1).Add(-time.Second)}, true
}

// unitDays approximates a month as 30 days for counted offsets, matching
// the original system's behavior.
func unitDays(unit string) int {
	switch unit {
	case "day":
		return 1
	case "week":
		return 7
	case "month":
		return 30
	case "year":
		return 365
	}
	return 0
}

func applyInUnits(m []string, now time.Time) (timeRange, bool) {
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return timeRange{}, false
	}
	days := unitDays(m[2])
	if days == 0 {
		return timeRange{}, false
	}
	start := startOfDay(now).AddDate(0, 0, n*days)
	return timeRange{start: start, end: start.AddDate(0, 0, days).Add(-time.Second)}, true
}

func applyAgo(m []string, now time.Time) (timeRange, bool) {
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return timeRange{}, false
	}
	days := unitDays(m[2])
	if days == 0 {
		return timeRange{}, false
	}
	start := startOfDay(now).AddDate(0, 0, -n*days)
	return timeRange{start: start, end: now}, true
}

// applyNumericDate parses MM/DD[/YYYY], flipping to DD/MM when the first
// number cannot be a month.
func applyNumericDate(m []string, now time.Time) (timeRange, bool) {
	first, _ := strconv.Atoi(m[1])
	second, _ := strconv.Atoi(m[2])

	year := now.Year()
	if m[3] != "" {
		y, _ := strconv.Atoi(m[3])
		if y < 100 {
			y += 2000
		}
		year = y
	}

	month, day := first, second
	if first > 12 {
		month, day = second, first
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return timeRange{}, false
	}

	start := time.Date(year, time.Month(month), day, 0, 0, 0, 0, now.Location())
	if start.Day() != day {
		// Normalized overflow, e.g. 2/31: not a real date.
		return timeRange{}, false
	}
	return timeRange{start: start, end: start.AddDate(0, 0, 1).Add(-time.Second)}, true
}

func applyBareKeyword(m []string, now time.Time) (timeRange, bool) {
	switch m[1] {
	case "upcoming", "future", "scheduled":
		return timeRange{start: now, end: now.AddDate(0, 0, 365)}, true
	case "recent":
		return timeRange{start: now.AddDate(0, 0, -30), end: now}, true
	case "past":
		return timeRange{start: now.AddDate(0, 0, -365), end: now}, true
	}
	return timeRange{}, false
}
