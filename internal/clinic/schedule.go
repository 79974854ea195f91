package clinic

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock time without a date.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// Minutes returns minutes since midnight.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

// String renders the time as "3:04 PM".
func (t TimeOfDay) String() string {
	hour := t.Hour % 12
	if hour == 0 {
		hour = 12
	}
	suffix := "AM"
	if t.Hour >= 12 {
		suffix = "PM"
	}
	return fmt.Sprintf("%d:%02d %s", hour, t.Minute, suffix)
}

var (
	meridiemPattern = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?\s*(AM|PM)$`)
	clockPattern    = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)

	dayFirstPattern  = regexp.MustCompile(`^(\d{1,2})[-/](\d{1,2})[-/](\d{4})$`)
	yearFirstPattern = regexp.MustCompile(`^(\d{4})[-/](\d{1,2})[-/](\d{1,2})$`)
)

// ParseHumanTime reads "H:MM AM", "H AM" or 24-hour "HH:MM". A '.' may replace
// ':'. The second result is false when the text cannot be read; it never
// defaults to midnight.
func ParseHumanTime(text string) (TimeOfDay, bool) {
	s := strings.ToUpper(strings.TrimSpace(text))
	s = strings.ReplaceAll(s, ".", ":")
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return TimeOfDay{}, false
	}

	if m := meridiemPattern.FindStringSubmatch(s); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute := 0
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		if hour < 1 || hour > 12 || minute > 59 {
			return TimeOfDay{}, false
		}
		hour %= 12
		if m[3] == "PM" {
			hour += 12
		}
		return TimeOfDay{Hour: hour, Minute: minute}, true
	}

	if m := clockPattern.FindStringSubmatch(s); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		if hour > 23 || minute > 59 {
			return TimeOfDay{}, false
		}
		return TimeOfDay{Hour: hour, Minute: minute}, true
	}

	return TimeOfDay{}, false
}

// WithinHours reports whether timeText falls inside the clinic's opening
// hours, inclusive at both ends. Unknown hours or unreadable times fail closed.
func WithinHours(timeText string, c Record) bool {
	candidate, ok := ParseHumanTime(timeText)
	if !ok {
		return false
	}
	open, ok := ParseHumanTime(c.OpenTime)
	if !ok {
		return false
	}
	closing, ok := ParseHumanTime(c.CloseTime)
	if !ok {
		return false
	}
	return open.Minutes() <= candidate.Minutes() && candidate.Minutes() <= closing.Minutes()
}

// ResolveDate turns "today", "tomorrow", D-M-YYYY or YYYY-M-D into a calendar
// date in now's location. Dates that do not exist on the calendar are rejected.
func ResolveDate(text string, now time.Time) (time.Time, bool) {
	s := strings.ToLower(strings.TrimSpace(text))
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch s {
	case "today":
		return today, true
	case "tomorrow":
		return today.AddDate(0, 0, 1), true
	}

	var day, month, year int
	if m := dayFirstPattern.FindStringSubmatch(s); m != nil {
		day, _ = strconv.Atoi(m[1])
		month, _ = strconv.Atoi(m[2])
		year, _ = strconv.Atoi(m[3])
	} else if m := yearFirstPattern.FindStringSubmatch(s); m != nil {
		year, _ = strconv.Atoi(m[1])
		month, _ = strconv.Atoi(m[2])
		day, _ = strconv.Atoi(m[3])
	} else {
		return time.Time{}, false
	}

	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, now.Location())
	// time.Date normalizes overflow such as 31-02 into March.
	if d.Day() != day || int(d.Month()) != month {
		return time.Time{}, false
	}
	return d, true
}

// FallsOnClosedDay reports whether dateText resolves to a weekday listed in the
// clinic's closed days. Unresolvable dates return false; callers validate
// syntax before asking.
func FallsOnClosedDay(dateText string, c Record, now time.Time) bool {
	d, ok := ResolveDate(dateText, now)
	if !ok {
		return false
	}
	return IsClosedOn(c, d.Weekday())
}

// IsClosedOn reports whether weekday is one of the clinic's closed days.
func IsClosedOn(c Record, weekday time.Weekday) bool {
	for _, day := range c.ClosedDays {
		if strings.EqualFold(strings.TrimSpace(day), weekday.String()) {
			return true
		}
	}
	return false
}
