package booking

import (
	"context"
	"strings"
	"time"

	"github.com/wolfman30/clinic-booking-assistant/internal/bookings"
	"github.com/wolfman30/clinic-booking-assistant/internal/clinic"
	"github.com/wolfman30/clinic-booking-assistant/internal/observability/metrics"
	"github.com/wolfman30/clinic-booking-assistant/internal/validate"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

// Recorder persists a confirmed booking.
type Recorder interface {
	Confirm(ctx context.Context, b bookings.Booking) (bookings.Booking, error)
}

// Notifier tells the customer about a stored booking.
type Notifier interface {
	SendConfirmation(ctx context.Context, b bookings.Booking) error
}

// Outcome names how a turn ended the booking flow, if it did.
type Outcome string

const (
	OutcomeNone             Outcome = ""
	OutcomeConfirmed        Outcome = "confirmed"
	OutcomeConfirmedNoEmail Outcome = "confirmed_without_email"
	OutcomeCancelled        Outcome = "cancelled"
	OutcomeSaveFailed       Outcome = "save_failed"
	OutcomeDirectoryChanged Outcome = "directory_changed"
)

// Reply is the text to show the user plus what happened.
type Reply struct {
	Text     string
	Rejected bool
	Outcome  Outcome
	Booking  *bookings.Booking
}

// Machine advances booking sessions one utterance at a time. It holds no
// per-conversation state and is safe for concurrent use.
type Machine struct {
	recorder Recorder
	notifier Notifier
	logger   *logging.Logger
	metrics  *metrics.AssistantMetrics
	now      func() time.Time
}

// Option configures a Machine.
type Option func(*Machine)

// WithClock overrides the clock used to resolve "today" and "tomorrow".
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// WithMetrics records rejections and outcomes.
func WithMetrics(am *metrics.AssistantMetrics) Option {
	return func(m *Machine) { m.metrics = am }
}

// NewMachine creates a booking state machine. notifier may be nil, in which
// case every confirmation is reported as booked without email.
func NewMachine(recorder Recorder, notifier Notifier, logger *logging.Logger, opts ...Option) *Machine {
	if recorder == nil {
		panic("booking: recorder required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	m := &Machine{
		recorder: recorder,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type stepFunc func(m *Machine, ctx context.Context, s Session, dir *clinic.Directory, input string) (Session, Reply)

var transitions = map[Stage]stepFunc{
	AwaitingService:      (*Machine).stepService,
	AwaitingClinic:       (*Machine).stepClinic,
	AwaitingDate:         (*Machine).stepDate,
	AwaitingTime:         (*Machine).stepTime,
	AwaitingName:         (*Machine).stepName,
	AwaitingEmail:        (*Machine).stepEmail,
	AwaitingPhone:        (*Machine).stepPhone,
	AwaitingConfirmation: (*Machine).stepConfirmation,
}

var cancelWords = map[string]struct{}{
	"cancel": {}, "stop": {}, "quit": {}, "exit": {},
}

// IsCancel reports whether input explicitly abandons the booking.
func IsCancel(input string) bool {
	_, ok := cancelWords[strings.ToLower(strings.TrimSpace(input))]
	return ok
}

// answersStage reports whether input is an exact answer to the question the
// session is waiting on. A service or clinic literally named "Exit" is picked,
// not treated as a cancel word.
func answersStage(s Session, dir *clinic.Directory, input string) bool {
	switch s.Stage {
	case AwaitingService:
		return dir.HasExactService(input)
	case AwaitingClinic:
		_, ok := clinic.FindByExactName(s.Candidates, input)
		return ok
	}
	return false
}

// Start opens a booking against dir. With no clinics loaded the session stays idle.
func (m *Machine) Start(dir *clinic.Directory) (Session, Reply) {
	if dir.Empty() {
		return NewSession(), Reply{Text: msgUploadFirst}
	}
	return Session{Stage: AwaitingService, DirectoryVersion: dir.Version()}, Reply{Text: msgAskService}
}

// Step feeds one utterance to the session's current stage. dir must be the
// snapshot taken at the start of this turn.
func (m *Machine) Step(ctx context.Context, s Session, dir *clinic.Directory, input string) (Session, Reply) {
	input = strings.TrimSpace(input)

	step, ok := transitions[s.Stage]
	if !ok {
		return NewSession(), Reply{Text: msgNoBooking, Outcome: OutcomeCancelled}
	}
	if s.DirectoryVersion != dir.Version() {
		m.logger.Info("booking reset after directory change",
			"stage", s.Stage.String(),
			"session_version", s.DirectoryVersion,
			"directory_version", dir.Version(),
		)
		m.metrics.ObserveBookingOutcome(string(OutcomeDirectoryChanged))
		return NewSession(), Reply{Text: msgDirectoryChanged, Outcome: OutcomeDirectoryChanged}
	}
	if IsCancel(input) && !answersStage(s, dir, input) {
		m.metrics.ObserveBookingOutcome(string(OutcomeCancelled))
		return NewSession(), Reply{Text: msgCancelled, Outcome: OutcomeCancelled}
	}

	next, reply := step(m, ctx, s, dir, input)
	if reply.Rejected {
		m.metrics.ObserveRejection(s.Stage.String())
	}
	if reply.Outcome != OutcomeNone {
		m.metrics.ObserveBookingOutcome(string(reply.Outcome))
	}
	return next, reply
}

func reject(s Session, text string) (Session, Reply) {
	return s, Reply{Text: text, Rejected: true}
}

func (m *Machine) stepService(_ context.Context, s Session, dir *clinic.Directory, input string) (Session, Reply) {
	matches := dir.ClinicsOfferingService(input)
	if len(matches) == 0 {
		return reject(s, msgServiceMissing)
	}
	if len(matches) == 1 {
		s = selectClinic(s, matches[0], input)
		return s, Reply{Text: msgServiceAt(s.Service, *s.Clinic)}
	}
	s.Service = input
	s.Candidates = matches
	s.Stage = AwaitingClinic
	return s, Reply{Text: msgPickClinic(matches)}
}

func (m *Machine) stepClinic(_ context.Context, s Session, _ *clinic.Directory, input string) (Session, Reply) {
	chosen, ok := clinic.FindByExactName(s.Candidates, input)
	if !ok {
		return reject(s, msgChooseClinic)
	}
	return selectClinic(s, chosen, s.Service), Reply{Text: msgAskDateAfterPick}
}

// selectClinic pins a copy of c and replaces the user's service text with the
// clinic's own service name.
func selectClinic(s Session, c clinic.Record, query string) Session {
	chosen := c.Clone()
	s.Clinic = &chosen
	s.Candidates = nil
	s.Service = query
	if svc, ok := chosen.ServiceMatching(query); ok {
		s.Service = svc.Name
		s.ServicePrice = svc.Price
	}
	s.Stage = AwaitingDate
	return s
}

func (m *Machine) stepDate(_ context.Context, s Session, _ *clinic.Directory, input string) (Session, Reply) {
	if !validate.Date(input) {
		return reject(s, msgInvalidDate)
	}
	now := m.now()
	date, ok := clinic.ResolveDate(input, now)
	if !ok {
		return reject(s, msgInvalidDate)
	}
	if clinic.FallsOnClosedDay(input, *s.Clinic, now) {
		return reject(s, msgClosedDay(*s.Clinic, date.Weekday().String()))
	}
	s.Date = date.Format("2006-01-02")
	s.Stage = AwaitingTime
	return s, Reply{Text: msgAskTime}
}

func (m *Machine) stepTime(_ context.Context, s Session, _ *clinic.Directory, input string) (Session, Reply) {
	if !validate.Time(input) {
		return reject(s, msgInvalidTime)
	}
	t, ok := clinic.ParseHumanTime(input)
	if !ok {
		return reject(s, msgInvalidTime)
	}
	if !s.Clinic.HasHours() {
		return reject(s, msgHoursUnknown(*s.Clinic))
	}
	if !clinic.WithinHours(input, *s.Clinic) {
		return reject(s, msgOutsideHours(*s.Clinic))
	}
	s.Time = t.String()
	s.Stage = AwaitingName
	return s, Reply{Text: msgAskName}
}

func (m *Machine) stepName(_ context.Context, s Session, _ *clinic.Directory, input string) (Session, Reply) {
	if !validate.NotEmpty(input) || !validate.Name(input) {
		return reject(s, msgInvalidName)
	}
	s.Name = input
	s.Stage = AwaitingEmail
	return s, Reply{Text: msgAskEmail}
}

func (m *Machine) stepEmail(_ context.Context, s Session, _ *clinic.Directory, input string) (Session, Reply) {
	if !validate.Email(input) {
		return reject(s, msgInvalidEmail)
	}
	s.Email = input
	s.Stage = AwaitingPhone
	return s, Reply{Text: msgAskPhone}
}

func (m *Machine) stepPhone(_ context.Context, s Session, _ *clinic.Directory, input string) (Session, Reply) {
	if !validate.Phone(input) {
		return reject(s, msgInvalidPhone)
	}
	s.Phone = input
	s.Stage = AwaitingConfirmation
	return s, Reply{Text: Summary(s)}
}

func (m *Machine) stepConfirmation(ctx context.Context, s Session, _ *clinic.Directory, input string) (Session, Reply) {
	if !strings.EqualFold(input, "yes") {
		return NewSession(), Reply{Text: msgCancelled, Outcome: OutcomeCancelled}
	}

	saved, err := m.recorder.Confirm(ctx, bookings.Booking{
		Service:       s.Service,
		ClinicName:    s.Clinic.Name,
		Date:          s.Date,
		Time:          s.Time,
		CustomerName:  s.Name,
		CustomerEmail: s.Email,
		CustomerPhone: s.Phone,
	})
	if err != nil {
		// The session is kept as-is so the user can retry with YES.
		m.logger.Error("failed to save booking", "clinic", s.Clinic.Name, "error", err)
		return s, Reply{Text: msgSaveFailed, Outcome: OutcomeSaveFailed}
	}

	reply := Reply{Text: msgConfirmed, Outcome: OutcomeConfirmed, Booking: &saved}
	if err := m.notify(ctx, saved); err != nil {
		m.logger.Error("failed to send booking confirmation", "booking_id", saved.ID, "error", err)
		m.metrics.ObserveNotification(false)
		reply.Text = msgConfirmedNoEmail
		reply.Outcome = OutcomeConfirmedNoEmail
	} else {
		m.metrics.ObserveNotification(true)
	}
	return NewSession(), reply
}

func (m *Machine) notify(ctx context.Context, b bookings.Booking) error {
	if m.notifier == nil {
		return errNoNotifier
	}
	return m.notifier.SendConfirmation(ctx, b)
}
