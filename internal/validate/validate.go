// Package validate holds the field-level checks used while collecting a booking.
// Every function is total: it never panics and only reports syntactic shape.
package validate

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phonePattern = regexp.MustCompile(`^[6-9]\d{9}$`)

	dayFirstDate  = regexp.MustCompile(`^\d{1,2}[-/]\d{1,2}[-/]\d{4}$`)
	yearFirstDate = regexp.MustCompile(`^\d{4}[-/]\d{1,2}[-/]\d{1,2}$`)

	meridiemTime = regexp.MustCompile(`^\d{1,2}([:.]\d{2})?\s?(am|pm)$`)
	clockTime    = regexp.MustCompile(`^\d{1,2}[:.]\d{2}$`)
)

// NotEmpty reports whether s has any non-space content.
func NotEmpty(s string) bool {
	return strings.TrimSpace(s) != ""
}

// Email reports whether s looks like local@domain.tld.
func Email(s string) bool {
	return emailPattern.MatchString(strings.TrimSpace(s))
}

// Date accepts "today", "tomorrow", D-M-YYYY or YYYY-M-D with '-' or '/' separators.
// Month and day ranges are not checked here.
func Date(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "today", "tomorrow":
		return true
	}
	return dayFirstDate.MatchString(s) || yearFirstDate.MatchString(s)
}

// Time accepts "H[:MM] am|pm" or a bare "HH:MM". A '.' may stand in for ':'.
func Time(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return meridiemTime.MatchString(s) || clockTime.MatchString(s)
}

// Phone accepts a 10-digit Indian mobile number.
func Phone(s string) bool {
	return phonePattern.MatchString(strings.TrimSpace(s))
}

// Name accepts any non-empty text that is not made up only of digits.
func Name(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
