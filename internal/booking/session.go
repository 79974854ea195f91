// Package booking drives the multi-turn appointment booking conversation.
package booking

import (
	"fmt"

	"github.com/wolfman30/clinic-booking-assistant/internal/clinic"
)

// Stage is the field currently being collected.
type Stage int

const (
	Idle Stage = iota
	AwaitingService
	AwaitingClinic
	AwaitingDate
	AwaitingTime
	AwaitingName
	AwaitingEmail
	AwaitingPhone
	AwaitingConfirmation
)

var stageNames = [...]string{
	Idle:                 "Idle",
	AwaitingService:      "AwaitingService",
	AwaitingClinic:       "AwaitingClinic",
	AwaitingDate:         "AwaitingDate",
	AwaitingTime:         "AwaitingTime",
	AwaitingName:         "AwaitingName",
	AwaitingEmail:        "AwaitingEmail",
	AwaitingPhone:        "AwaitingPhone",
	AwaitingConfirmation: "AwaitingConfirmation",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("Stage(%d)", int(s))
	}
	return stageNames[s]
}

// MarshalText encodes the stage by name so persisted sessions stay readable.
func (s Stage) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= len(stageNames) {
		return nil, fmt.Errorf("booking: unknown stage %d", int(s))
	}
	return []byte(stageNames[s]), nil
}

// UnmarshalText decodes a stage name.
func (s *Stage) UnmarshalText(text []byte) error {
	for i, name := range stageNames {
		if name == string(text) {
			*s = Stage(i)
			return nil
		}
	}
	return fmt.Errorf("booking: unknown stage %q", string(text))
}

// Session is one conversation's in-progress booking. It is a value: each turn
// takes a Session and returns the next one.
//
// Fields fill strictly in stage order. Clinic is a copy taken when the clinic
// was chosen and is set from AwaitingDate onward; Candidates is set only while
// AwaitingClinic. DirectoryVersion pins the directory snapshot the session
// started on.
type Session struct {
	Stage            Stage           `json:"stage"`
	DirectoryVersion uint64          `json:"directory_version,omitempty"`
	Service          string          `json:"service,omitempty"`
	ServicePrice     int             `json:"service_price,omitempty"`
	Clinic           *clinic.Record  `json:"clinic,omitempty"`
	Candidates       []clinic.Record `json:"candidate_clinics,omitempty"`
	Date             string          `json:"date,omitempty"`
	Time             string          `json:"time,omitempty"`
	Name             string          `json:"name,omitempty"`
	Email            string          `json:"email,omitempty"`
	Phone            string          `json:"phone,omitempty"`
}

// NewSession returns an idle session with every field empty.
func NewSession() Session {
	return Session{}
}

// Active reports whether a booking is in progress.
func (s Session) Active() bool {
	return s.Stage != Idle
}
