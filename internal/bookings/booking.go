// Package bookings persists confirmed appointments and the customers who made them.
package bookings

import (
	"strings"
	"time"
)

// Booking is a confirmed appointment joined with its customer. ClinicName is
// a plain copy of the clinic's name at booking time.
type Booking struct {
	ID            int64     `json:"id"`
	CustomerID    int64     `json:"customer_id"`
	Service       string    `json:"service"`
	ClinicName    string    `json:"clinic"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
	CustomerName  string    `json:"customer_name"`
	CustomerEmail string    `json:"email"`
	CustomerPhone string    `json:"phone"`
	CreatedAt     time.Time `json:"created_at"`
}

// Filter narrows a listing. Empty fields match everything.
type Filter struct {
	Clinic string
	Date   string
}

func (f Filter) matches(b Booking) bool {
	if f.Clinic != "" && b.ClinicName != f.Clinic {
		return false
	}
	if f.Date != "" && b.Date != f.Date {
		return false
	}
	return true
}

// normalizeEmail makes email the single customer dedup key regardless of case.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (b Booking) validate() error {
	switch {
	case strings.TrimSpace(b.CustomerEmail) == "":
		return ErrMissingEmail
	case strings.TrimSpace(b.ClinicName) == "":
		return ErrMissingClinic
	case strings.TrimSpace(b.Service) == "":
		return ErrMissingService
	}
	return nil
}
