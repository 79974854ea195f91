package clinic

import (
	"fmt"
	"strings"
)

// FormatWorkingHours lists opening hours and closed days for each clinic.
func FormatWorkingHours(clinics []Record) string {
	var b strings.Builder
	b.WriteString("Here are the working hours:\n")
	for _, c := range clinics {
		open, closing := c.OpenTime, c.CloseTime
		if !c.HasHours() {
			open, closing = "Not specified", "Not specified"
		}
		fmt.Fprintf(&b, "\n**%s**\n", c.Name)
		fmt.Fprintf(&b, "- Open: %s – %s\n", open, closing)
		if len(c.ClosedDays) > 0 {
			fmt.Fprintf(&b, "- Closed on %s\n", strings.Join(c.ClosedDays, ", "))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatServices lists each clinic's services with prices.
func FormatServices(clinics []Record) string {
	var b strings.Builder
	b.WriteString("Here are the services available:\n")
	for _, c := range clinics {
		fmt.Fprintf(&b, "\n**%s**\n", c.Name)
		if len(c.Services) == 0 {
			b.WriteString("- No services listed\n")
			continue
		}
		for _, s := range c.Services {
			fmt.Fprintf(&b, "- %s – %s\n", s.Name, FormatPrice(s.Price))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatPrice renders a rupee amount.
func FormatPrice(price int) string {
	return fmt.Sprintf("₹%d", price)
}
