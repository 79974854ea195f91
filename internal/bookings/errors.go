package bookings

import "errors"

var (
	// ErrMissingEmail is returned when a booking has no customer email.
	ErrMissingEmail = errors.New("bookings: customer email required")
	// ErrMissingClinic is returned when a booking has no clinic name.
	ErrMissingClinic = errors.New("bookings: clinic required")
	// ErrMissingService is returned when a booking has no service.
	ErrMissingService = errors.New("bookings: service required")
)
