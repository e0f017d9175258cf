package eventcollect

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/extract"
)

var (
	slashDateRe = regexp.MustCompile(`\b(\d{1,2})[/\-](\d{1,2})(?:[/\-](\d{2,4}))?\b`)
	weekdayRe   = regexp.MustCompile(`(?i)\b(?:(?:next|this|on)\s+)?(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
	clockRe     = regexp.MustCompile(`(?i)\b(\d{1,2})(?::(\d{2}))?\s*(am|pm|a\.m\.|p\.m\.)?`)
	wordRe      = regexp.MustCompile(`[a-z']+`)
)

// Answers to these fields are read as yes or no.
var yesNoFields = map[string]bool{
	"childcareArranged": true,
	"parentAttendance":  true,
	"fastingRequired":   true,
	"bringRecords":      true,
}

var (
	yesWords = map[string]bool{"yes": true, "yeah": true, "yep": true, "sure": true, "true": true, "absolutely": true, "definitely": true}
	noWords  = map[string]bool{"no": true, "nope": true, "nah": true, "not": true, "false": true, "don't": true}
)

// parseAnswer normalizes a reply for field. Dates become YYYY-MM-DD,
// times HH:MM, yes/no fields booleans. Anything unreadable is kept as
// typed.
func parseAnswer(field, answer string, now time.Time) any {
	answer = strings.TrimSpace(answer)
	switch {
	case field == "date" || field == "startDate" || field == "endDate":
		if d, ok := parseDate(answer, now); ok {
			return d.Format(time.DateOnly)
		}
	case field == "time" || field == "endTime":
		if hm, ok := parseClock(answer); ok {
			return hm
		}
	case yesNoFields[field]:
		if b, ok := parseYesNo(answer); ok {
			return b
		}
	}
	return answer
}

func parseDate(s string, now time.Time) (time.Time, bool) {
	loc := now.Location()
	if t, ok := extract.ParseTime(s, loc); ok {
		return t, true
	}
	lower := strings.ToLower(s)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	switch {
	case strings.Contains(lower, "tomorrow"):
		return today.AddDate(0, 0, 1), true
	case strings.Contains(lower, "today") || strings.Contains(lower, "tonight"):
		return today, true
	}
	if m := weekdayRe.FindStringSubmatch(lower); m != nil {
		target := weekdayIndex(m[1])
		days := int(target) - int(today.Weekday())
		if days <= 0 {
			days += 7
		}
		return today.AddDate(0, 0, days), true
	}
	if m := slashDateRe.FindStringSubmatch(s); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		year := now.Year()
		if m[3] != "" {
			year, _ = strconv.Atoi(m[3])
			if year < 100 {
				year += 2000
			}
		}
		if month < 1 || month > 12 || day < 1 || day > 31 {
			return time.Time{}, false
		}
		return time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc), true
	}
	return time.Time{}, false
}

func weekdayIndex(name string) time.Weekday {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), name) {
			return d
		}
	}
	return time.Sunday
}

func parseClock(s string) (string, bool) {
	lower := strings.ToLower(s)
	switch {
	case strings.Contains(lower, "noon"):
		return "12:00", true
	case strings.Contains(lower, "midnight"):
		return "00:00", true
	}
	m := clockRe.FindStringSubmatch(lower)
	if m == nil {
		return "", false
	}
	hour, _ := strconv.Atoi(m[1])
	minute := 0
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	switch strings.ReplaceAll(m[3], ".", "") {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}
	if hour > 23 || minute > 59 {
		return "", false
	}
	return fmt.Sprintf("%02d:%02d", hour, minute), true
}

func parseYesNo(s string) (bool, bool) {
	words := wordRe.FindAllString(strings.ToLower(s), -1)
	for _, w := range words {
		if yesWords[w] {
			return true, true
		}
	}
	for _, w := range words {
		if noWords[w] {
			return false, true
		}
	}
	return false, false
}

// startTime combines the collected date and time. dated is false when
// no date could be read; hasTime is false for an all-day start.
func startTime(data map[string]any, loc *time.Location) (start time.Time, hasTime, dated bool) {
	d, ok := extract.ParseTime(firstOf(data, "date", "startDate"), loc)
	if !ok {
		return time.Time{}, false, false
	}
	hm, err := time.Parse("15:04", str(data, "time"))
	if err != nil {
		return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc), false, true
	}
	return time.Date(d.Year(), d.Month(), d.Day(), hm.Hour(), hm.Minute(), 0, 0, loc), true, true
}

// endTime is the collected end date, or one hour after start.
func endTime(data map[string]any, start time.Time, loc *time.Location) time.Time {
	if d, ok := extract.ParseTime(str(data, "endDate"), loc); ok && !d.Before(start) {
		return time.Date(d.Year(), d.Month(), d.Day(), start.Hour(), start.Minute(), 0, 0, loc)
	}
	if hm, err := time.Parse("15:04", str(data, "endTime")); err == nil {
		end := time.Date(start.Year(), start.Month(), start.Day(), hm.Hour(), hm.Minute(), 0, 0, loc)
		if end.After(start) {
			return end
		}
	}
	return start.Add(time.Hour)
}
