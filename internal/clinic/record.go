// Package clinic holds the clinic directory built from uploaded documents and
// the availability and schedule rules evaluated against it.
package clinic

import "strings"

// Service is a bookable service and its price in rupees.
type Service struct {
	Name  string `json:"name"`
	Price int    `json:"price"`
}

// Record describes one clinic as extracted from its document.
// OpenTime and CloseTime are either both set or both empty.
type Record struct {
	Name       string    `json:"name"`
	OpenTime   string    `json:"open_time,omitempty"`
	CloseTime  string    `json:"close_time,omitempty"`
	ClosedDays []string  `json:"closed_days"`
	Services   []Service `json:"services"`
}

// HasHours reports whether both opening and closing times are known.
func (r Record) HasHours() bool {
	return r.OpenTime != "" && r.CloseTime != ""
}

// ServiceMatching returns the first service whose name contains query,
// compared case-insensitively.
func (r Record) ServiceMatching(query string) (Service, bool) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return Service{}, false
	}
	for _, s := range r.Services {
		if strings.Contains(strings.ToLower(s.Name), q) {
			return s, true
		}
	}
	return Service{}, false
}

// HasServiceNamed reports whether the clinic offers a service whose full name
// equals name, ignoring case.
func (r Record) HasServiceNamed(name string) bool {
	name = strings.TrimSpace(name)
	for _, s := range r.Services {
		if strings.EqualFold(s.Name, name) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers can keep it past a directory swap.
func (r Record) Clone() Record {
	out := r
	out.ClosedDays = append([]string(nil), r.ClosedDays...)
	out.Services = append([]Service(nil), r.Services...)
	return out
}
