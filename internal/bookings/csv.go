package bookings

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

var csvHeader = []string{
	"booking_id", "customer_name", "email", "phone",
	"clinic", "service", "date", "time", "created_at",
}

// WriteCSV exports bookings in the same column order as the admin listing.
func WriteCSV(w io.Writer, rows []Booking) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("bookings: write csv header: %w", err)
	}
	for _, b := range rows {
		record := []string{
			strconv.FormatInt(b.ID, 10),
			b.CustomerName,
			b.CustomerEmail,
			b.CustomerPhone,
			b.ClinicName,
			b.Service,
			b.Date,
			b.Time,
			b.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("bookings: write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("bookings: flush csv: %w", err)
	}
	return nil
}
