package clinic

import "time"

// saturday is 14 June 2025, so "tomorrow" resolves to a Sunday.
var saturday = time.Date(2025, time.June, 14, 10, 30, 0, 0, time.UTC)

func sunrise() Record {
	return Record{
		Name:       "Sunrise Clinic",
		OpenTime:   "09:00 AM",
		CloseTime:  "05:00 PM",
		ClosedDays: []string{"Sunday"},
		Services:   []Service{{Name: "Dental Checkup", Price: 500}, {Name: "Teeth Whitening", Price: 2500}},
	}
}

func greenValley() Record {
	return Record{
		Name:       "Green Valley Dental Care",
		OpenTime:   "10.00 AM",
		CloseTime:  "7.30 PM",
		ClosedDays: []string{"Saturday", "Sunday"},
		Services:   []Service{{Name: "Dental Cleaning", Price: 800}, {Name: "Root Canal", Price: 6000}},
	}
}
