package conversation

import "strings"

// Route names how a turn was answered. Used as a metrics label.
type Route string

const (
	RouteBooking            Route = "booking"
	RouteBookingStart       Route = "booking_start"
	RouteGreeting           Route = "greeting"
	RouteWorkingHours       Route = "working_hours"
	RouteServiceList        Route = "service_list"
	RouteServiceUnavailable Route = "service_unavailable"
	RouteNothingToCancel    Route = "nothing_to_cancel"
	RouteDocuments          Route = "documents"
)

var greetings = map[string]struct{}{
	"hi": {}, "hello": {}, "hey": {}, "good morning": {}, "good evening": {},
}

var (
	bookingKeywords      = []string{"book", "booking", "appointment", "schedule", "reserve", "slot", "consultation", "visit"}
	workingHoursKeywords = []string{"working hours", "opening hours", "timings", "open time", "close time"}
	serviceListKeywords  = []string{"services", "available services", "what are the services", "list services", "services available"}
	serviceLikeKeywords  = []string{"service", "treatment", "consultation", "checkup", "therapy", "care", "appointment for"}
)

// The detectors expect trimmed, lowercased text.

func isGreeting(text string) bool {
	_, ok := greetings[text]
	return ok
}

func isBookingIntent(text string) bool {
	return containsAny(text, bookingKeywords)
}

func isWorkingHoursQuery(text string) bool {
	return containsAny(text, workingHoursKeywords)
}

func isServiceListQuery(text string) bool {
	return containsAny(text, serviceListKeywords)
}

func looksLikeServiceQuery(text string) bool {
	return containsAny(text, serviceLikeKeywords)
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
