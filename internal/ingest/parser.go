package ingest

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/wolfman30/clinic-booking-assistant/internal/clinic"
)

const (
	weekdayPattern = `(?:monday|tuesday|wednesday|thursday|friday|saturday|sunday)`
	clockPattern   = `\d{1,2}(?:[:.]\d{2})?\s*(?:AM|PM)`
	hoursExpr      = `(?i)` + weekdayPattern + `\s*(?:to|–|-)\s*` + weekdayPattern + `\s*[:\-]?\s*(` + clockPattern + `)\s*(?:–|-|to)\s*(` + clockPattern + `)`
)

var (
	namePattern     = regexp.MustCompile(`(?i)(?:clinic name|clinic)\s*[:\-]\s*(.+)`)
	hoursPattern    = regexp.MustCompile(hoursExpr)
	closedOnPattern = regexp.MustCompile(`(?i)closed\s+on\s+([a-z ,&]+)`)
	closedAfterDay  = regexp.MustCompile(`(?i)(` + weekdayPattern + `)s?\s*[:\-–]\s*closed`)
	weekdayWord     = regexp.MustCompile(`(?i)` + weekdayPattern)
	servicePattern  = regexp.MustCompile(`(?i)^\s*(?:[-•*]|\d+[.)]?)?\s*(.+?)\s*[–\-:]\s*(?:₹|rs\.?|inr)\s*([\d,]+)`)
	spaceRun        = regexp.MustCompile(`\s+`)
)

var weekdayOrder = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// ParseClinic extracts a clinic record from document text. Fields that cannot
// be found stay empty; a missing name falls back to fallbackName.
func ParseClinic(text, fallbackName string) clinic.Record {
	rec := clinic.Record{Name: parseName(text)}
	if rec.Name == "" {
		rec.Name = strings.TrimSpace(fallbackName)
	}
	if m := hoursPattern.FindStringSubmatch(text); m != nil {
		rec.OpenTime = normalizeClock(m[1])
		rec.CloseTime = normalizeClock(m[2])
	}
	rec.ClosedDays = parseClosedDays(text)
	rec.Services = parseServices(text)
	return rec
}

func parseName(text string) string {
	m := namePattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func normalizeClock(s string) string {
	return strings.ToUpper(spaceRun.ReplaceAllString(strings.TrimSpace(s), " "))
}

func parseClosedDays(text string) []string {
	found := make(map[string]bool)
	for _, m := range closedOnPattern.FindAllStringSubmatch(text, -1) {
		for _, day := range weekdayWord.FindAllString(m[1], -1) {
			found[canonicalDay(day)] = true
		}
	}
	for _, m := range closedAfterDay.FindAllStringSubmatch(text, -1) {
		found[canonicalDay(m[1])] = true
	}

	var days []string
	for _, d := range weekdayOrder {
		if found[d] {
			days = append(days, d)
		}
	}
	return days
}

func canonicalDay(s string) string {
	s = strings.ToLower(s)
	return strings.ToUpper(s[:1]) + s[1:]
}

func parseServices(text string) []clinic.Service {
	var services []clinic.Service
	seen := make(map[string]bool)
	for _, line := range strings.Split(text, "\n") {
		m := servicePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name := strings.TrimSpace(m[1])
		price, err := strconv.Atoi(strings.ReplaceAll(m[2], ",", ""))
		if name == "" || err != nil {
			continue
		}
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		services = append(services, clinic.Service{Name: name, Price: price})
	}
	return services
}

// NameFromFile turns "green_valley-dental.pdf" into "Green Valley Dental".
func NameFromFile(filename string) string {
	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	words := strings.FieldsFunc(stem, func(r rune) bool {
		return r == '_' || r == '-' || unicode.IsSpace(r)
	})
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
