package booking

import (
	"fmt"
	"strings"

	"github.com/wolfman30/clinic-booking-assistant/internal/clinic"
)

const (
	msgUploadFirst      = "📄 Please upload clinic PDF(s) first so I can verify available clinics, services, and timings."
	msgAskService       = "Sure 🙂 I can help you book an appointment.\n\nWhat **service** do you need?"
	msgServiceMissing   = "❌ This service is currently unavailable."
	msgChooseClinic     = "❌ Please choose a valid clinic from the list."
	msgAskDateAfterPick = "Great 👍 What **date** would you prefer?"
	msgInvalidDate      = "❌ Please enter a valid date (DD-MM-YYYY / today / tomorrow)."
	msgAskTime          = "What **time** works best for you?"
	msgInvalidTime      = "❌ Please enter a valid time (e.g., 10 AM, 11:30 AM, 14:00)."
	msgAskName          = "May I know your **full name**?"
	msgInvalidName      = "❌ Please enter a valid full name."
	msgAskEmail         = "Please share your **email address**."
	msgInvalidEmail     = "❌ Please enter a valid email address."
	msgAskPhone         = "Please share your **phone number**."
	msgInvalidPhone     = "❌ Please enter a valid 10-digit phone number."
	msgConfirmed        = "🎉 **Your appointment is confirmed!** A confirmation email has been sent."
	msgConfirmedNoEmail = "⚠️ Appointment booked, but email could not be sent."
	msgSaveFailed       = "⚠️ Sorry, I couldn't save your booking just now. Reply **YES** to try again or **NO** to cancel."
	msgCancelled        = "❌ Booking cancelled."
	msgDirectoryChanged = "⚠️ The clinic information was updated while you were booking, so I've cancelled this booking. Say \"book an appointment\" to start again."
	msgNoBooking        = "⚠️ Something went wrong. Let’s start again."
)

func msgServiceAt(service string, c clinic.Record) string {
	return fmt.Sprintf("✅ **%s** is available at **%s**.\n\nWhat **date** would you prefer?", service, c.Name)
}

func msgPickClinic(candidates []clinic.Record) string {
	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = "- " + c.Name
	}
	return "This service is available at multiple clinics:\n\n" +
		strings.Join(names, "\n") +
		"\n\nPlease choose a **clinic name**."
}

func msgClosedDay(c clinic.Record, weekday string) string {
	return fmt.Sprintf("❌ %s is closed on %ss. Please choose another date.", c.Name, weekday)
}

func msgOutsideHours(c clinic.Record) string {
	return fmt.Sprintf("❌ Selected time is outside working hours (%s – %s).", c.OpenTime, c.CloseTime)
}

func msgHoursUnknown(c clinic.Record) string {
	return fmt.Sprintf("❌ Working hours for %s are not listed in the uploaded documents, so I can't confirm a time. Type **cancel** to stop or try another booking later.", c.Name)
}

// Summary renders the details shown for final confirmation.
func Summary(s Session) string {
	clinicName := ""
	if s.Clinic != nil {
		clinicName = s.Clinic.Name
	}
	service := s.Service
	if s.ServicePrice > 0 {
		service = fmt.Sprintf("%s (%s)", s.Service, clinic.FormatPrice(s.ServicePrice))
	}
	var b strings.Builder
	b.WriteString("✅ **Please confirm your booking details:**\n\n")
	fmt.Fprintf(&b, "- **Service:** %s\n", service)
	fmt.Fprintf(&b, "- **Clinic:** %s\n", clinicName)
	fmt.Fprintf(&b, "- **Date:** %s\n", s.Date)
	fmt.Fprintf(&b, "- **Time:** %s\n", s.Time)
	fmt.Fprintf(&b, "- **Name:** %s\n", s.Name)
	fmt.Fprintf(&b, "- **Email:** %s\n", s.Email)
	fmt.Fprintf(&b, "- **Phone:** %s\n", s.Phone)
	b.WriteString("\nReply **YES** to confirm or **NO** to cancel.")
	return b.String()
}
