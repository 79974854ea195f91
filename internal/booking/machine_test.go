package booking

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-booking-assistant/internal/bookings"
	"github.com/wolfman30/clinic-booking-assistant/internal/clinic"
	"github.com/wolfman30/clinic-booking-assistant/internal/observability/metrics"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

// saturday is 14 June 2025; "tomorrow" is a Sunday and 16-06-2025 a Monday.
var saturday = time.Date(2025, time.June, 14, 10, 0, 0, 0, time.UTC)

type fakeRecorder struct {
	saved []bookings.Booking
	errs  []error
}

func (f *fakeRecorder) Confirm(ctx context.Context, b bookings.Booking) (bookings.Booking, error) {
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return bookings.Booking{}, err
		}
	}
	b.ID = int64(len(f.saved) + 1)
	b.CreatedAt = saturday
	f.saved = append(f.saved, b)
	return b, nil
}

type fakeNotifier struct {
	sent []bookings.Booking
	err  error
}

func (f *fakeNotifier) SendConfirmation(ctx context.Context, b bookings.Booking) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, b)
	return nil
}

func sunriseClinic() clinic.Record {
	return clinic.Record{
		Name:       "Sunrise Clinic",
		OpenTime:   "09:00 AM",
		CloseTime:  "05:00 PM",
		ClosedDays: []string{"Sunday"},
		Services:   []clinic.Service{{Name: "Dental Checkup", Price: 500}},
	}
}

func lotusClinic() clinic.Record {
	return clinic.Record{
		Name:       "Lotus Dental Care",
		OpenTime:   "10:00 AM",
		CloseTime:  "07:00 PM",
		ClosedDays: []string{"Saturday"},
		Services:   []clinic.Service{{Name: "Dental Cleaning", Price: 800}},
	}
}

type harness struct {
	t        *testing.T
	machine  *Machine
	recorder *fakeRecorder
	notifier *fakeNotifier
	dir      *clinic.Directory
	session  Session
}

func newHarness(t *testing.T, records ...clinic.Record) *harness {
	t.Helper()
	rec := &fakeRecorder{}
	notif := &fakeNotifier{}
	return &harness{
		t:        t,
		machine:  NewMachine(rec, notif, logging.Discard(), WithClock(func() time.Time { return saturday })),
		recorder: rec,
		notifier: notif,
		dir:      clinic.NewDirectory(1, records),
	}
}

func (h *harness) start() Reply {
	h.t.Helper()
	var reply Reply
	h.session, reply = h.machine.Start(h.dir)
	return reply
}

func (h *harness) say(input string) Reply {
	h.t.Helper()
	var reply Reply
	h.session, reply = h.machine.Step(context.Background(), h.session, h.dir, input)
	return reply
}

func TestEndToEndBooking(t *testing.T) {
	h := newHarness(t, sunriseClinic())

	reply := h.start()
	assert.Contains(t, reply.Text, "What **service** do you need?")
	assert.Equal(t, AwaitingService, h.session.Stage)

	reply = h.say("dental")
	assert.Equal(t, AwaitingDate, h.session.Stage)
	assert.Contains(t, reply.Text, "**Dental Checkup** is available at **Sunrise Clinic**")
	require.NotNil(t, h.session.Clinic)
	assert.Equal(t, "Sunrise Clinic", h.session.Clinic.Name)

	reply = h.say("tomorrow")
	assert.True(t, reply.Rejected)
	assert.Equal(t, "❌ Sunrise Clinic is closed on Sundays. Please choose another date.", reply.Text)
	assert.Equal(t, AwaitingDate, h.session.Stage)

	reply = h.say("16-06-2025")
	assert.Equal(t, msgAskTime, reply.Text)
	assert.Equal(t, "2025-06-16", h.session.Date)

	reply = h.say("6 PM")
	assert.True(t, reply.Rejected)
	assert.Equal(t, "❌ Selected time is outside working hours (09:00 AM – 05:00 PM).", reply.Text)

	reply = h.say("2 PM")
	assert.Equal(t, msgAskName, reply.Text)
	assert.Equal(t, "2:00 PM", h.session.Time)

	assert.Equal(t, msgAskEmail, h.say("Asha Rao").Text)
	assert.Equal(t, msgAskPhone, h.say("asha@example.com").Text)

	reply = h.say("9876543210")
	assert.Equal(t, AwaitingConfirmation, h.session.Stage)
	for _, want := range []string{
		"- **Service:** Dental Checkup (₹500)",
		"- **Clinic:** Sunrise Clinic",
		"- **Date:** 2025-06-16",
		"- **Time:** 2:00 PM",
		"- **Name:** Asha Rao",
		"- **Email:** asha@example.com",
		"- **Phone:** 9876543210",
		"Reply **YES** to confirm or **NO** to cancel.",
	} {
		assert.Contains(t, reply.Text, want)
	}

	reply = h.say("YES")
	assert.Equal(t, msgConfirmed, reply.Text)
	assert.Equal(t, OutcomeConfirmed, reply.Outcome)
	assert.Equal(t, NewSession(), h.session)

	require.Len(t, h.recorder.saved, 1)
	saved := h.recorder.saved[0]
	assert.Equal(t, bookings.Booking{
		ID:            1,
		Service:       "Dental Checkup",
		ClinicName:    "Sunrise Clinic",
		Date:          "2025-06-16",
		Time:          "2:00 PM",
		CustomerName:  "Asha Rao",
		CustomerEmail: "asha@example.com",
		CustomerPhone: "9876543210",
		CreatedAt:     saturday,
	}, saved)
	require.Len(t, h.notifier.sent, 1)
	require.NotNil(t, reply.Booking)
	assert.Equal(t, int64(1), reply.Booking.ID)
}

func TestStartWithEmptyDirectory(t *testing.T) {
	h := newHarness(t)
	reply := h.start()
	assert.Equal(t, msgUploadFirst, reply.Text)
	assert.False(t, h.session.Active())
}

func TestServiceUnavailableStays(t *testing.T) {
	h := newHarness(t, sunriseClinic())
	h.start()

	reply := h.say("botox")
	assert.True(t, reply.Rejected)
	assert.Equal(t, msgServiceMissing, reply.Text)
	assert.Equal(t, AwaitingService, h.session.Stage)
	assert.Empty(t, h.session.Service)
}

func TestMultipleClinicsRequireExactChoice(t *testing.T) {
	h := newHarness(t, sunriseClinic(), lotusClinic())
	h.start()

	reply := h.say("dental")
	assert.Equal(t, AwaitingClinic, h.session.Stage)
	assert.Contains(t, reply.Text, "- Sunrise Clinic\n- Lotus Dental Care")
	require.Len(t, h.session.Candidates, 2)
	assert.Nil(t, h.session.Clinic)

	reply = h.say("Lotus")
	assert.True(t, reply.Rejected)
	assert.Equal(t, msgChooseClinic, reply.Text)
	assert.Equal(t, AwaitingClinic, h.session.Stage)

	reply = h.say("lotus dental care")
	assert.Equal(t, msgAskDateAfterPick, reply.Text)
	assert.Equal(t, AwaitingDate, h.session.Stage)
	assert.Nil(t, h.session.Candidates)
	require.NotNil(t, h.session.Clinic)
	assert.Equal(t, "Lotus Dental Care", h.session.Clinic.Name)
	assert.Equal(t, "Dental Cleaning", h.session.Service)
	assert.Equal(t, 800, h.session.ServicePrice)

	// Lotus closes on Saturdays, which today is.
	reply = h.say("today")
	assert.True(t, reply.Rejected)
	assert.Contains(t, reply.Text, "closed on Saturdays")
}

func TestDateValidation(t *testing.T) {
	h := newHarness(t, sunriseClinic())
	h.start()
	h.say("checkup")

	for _, bad := range []string{"next monday", "16-06-25", "31-02-2025", "31-99-2025"} {
		reply := h.say(bad)
		assert.True(t, reply.Rejected, bad)
		assert.Equal(t, msgInvalidDate, reply.Text, bad)
		assert.Equal(t, AwaitingDate, h.session.Stage, bad)
		assert.Empty(t, h.session.Date, bad)
	}

	reply := h.say("2025/06/17")
	assert.False(t, reply.Rejected)
	assert.Equal(t, "2025-06-17", h.session.Date)
}

func TestTimeFormatsJudgedIdentically(t *testing.T) {
	for _, input := range []string{"2 PM", "14:00", "2:00 pm", "14.00"} {
		h := newHarness(t, sunriseClinic())
		h.start()
		h.say("dental")
		h.say("today")

		reply := h.say(input)
		assert.False(t, reply.Rejected, input)
		assert.Equal(t, "2:00 PM", h.session.Time, input)
	}
}

func TestTimeValidation(t *testing.T) {
	h := newHarness(t, sunriseClinic())
	h.start()
	h.say("dental")
	h.say("today")

	cases := []struct {
		input string
		want  string
	}{
		{"whenever", msgInvalidTime},
		{"13 PM", msgInvalidTime},
		{"8:59 AM", "❌ Selected time is outside working hours (09:00 AM – 05:00 PM)."},
		{"17:01", "❌ Selected time is outside working hours (09:00 AM – 05:00 PM)."},
	}
	for _, tc := range cases {
		reply := h.say(tc.input)
		assert.True(t, reply.Rejected, tc.input)
		assert.Equal(t, tc.want, reply.Text, tc.input)
		assert.Equal(t, AwaitingTime, h.session.Stage)
	}

	assert.False(t, h.say("5 PM").Rejected, "closing time is inclusive")
}

func TestUnknownHoursRejectEveryTime(t *testing.T) {
	c := sunriseClinic()
	c.OpenTime, c.CloseTime = "", ""
	h := newHarness(t, c)
	h.start()
	h.say("dental")
	h.say("today")

	reply := h.say("11 AM")
	assert.True(t, reply.Rejected)
	assert.Contains(t, reply.Text, "Working hours for Sunrise Clinic are not listed")
	assert.Equal(t, AwaitingTime, h.session.Stage)
}

func advanceToName(h *harness) {
	h.start()
	h.say("dental")
	h.say("today")
	h.say("10 AM")
}

func TestContactValidation(t *testing.T) {
	h := newHarness(t, sunriseClinic())
	advanceToName(h)

	assert.Equal(t, msgInvalidName, h.say("12345").Text)
	assert.Equal(t, AwaitingName, h.session.Stage)
	h.say("Asha Rao")

	assert.Equal(t, msgInvalidEmail, h.say("asha.example.com").Text)
	assert.Equal(t, AwaitingEmail, h.session.Stage)
	h.say("asha@example.com")

	assert.Equal(t, msgInvalidPhone, h.say("5123456789").Text)
	assert.Equal(t, msgInvalidPhone, h.say("91234567890").Text)
	assert.Equal(t, AwaitingPhone, h.session.Stage)
	assert.Empty(t, h.session.Phone)

	h.say("9123456789")
	assert.Equal(t, AwaitingConfirmation, h.session.Stage)
}

func confirmReady(h *harness) {
	advanceToName(h)
	h.say("Asha Rao")
	h.say("asha@example.com")
	h.say("9876543210")
}

func TestAnythingButYesCancels(t *testing.T) {
	h := newHarness(t, sunriseClinic())
	confirmReady(h)

	reply := h.say("yes please")
	assert.Equal(t, msgCancelled, reply.Text)
	assert.Equal(t, OutcomeCancelled, reply.Outcome)
	assert.Equal(t, NewSession(), h.session)
	assert.Empty(t, h.recorder.saved)
}

func TestSaveFailureKeepsSessionForRetry(t *testing.T) {
	h := newHarness(t, sunriseClinic())
	h.recorder.errs = []error{errors.New("db down")}
	confirmReady(h)
	before := h.session

	reply := h.say("yes")
	assert.Equal(t, msgSaveFailed, reply.Text)
	assert.Equal(t, OutcomeSaveFailed, reply.Outcome)
	assert.Equal(t, before, h.session)
	assert.Empty(t, h.notifier.sent)

	reply = h.say("yes")
	assert.Equal(t, msgConfirmed, reply.Text)
	assert.Len(t, h.recorder.saved, 1)
	assert.False(t, h.session.Active())
}

func TestNotificationFailureStillConfirms(t *testing.T) {
	h := newHarness(t, sunriseClinic())
	h.notifier.err = errors.New("smtp down")
	confirmReady(h)

	reply := h.say("Yes")
	assert.Equal(t, msgConfirmedNoEmail, reply.Text)
	assert.Equal(t, OutcomeConfirmedNoEmail, reply.Outcome)
	assert.Len(t, h.recorder.saved, 1)
	assert.Equal(t, NewSession(), h.session)
}

func TestNilNotifierDowngradesToPartialSuccess(t *testing.T) {
	rec := &fakeRecorder{}
	m := NewMachine(rec, nil, logging.Discard(), WithClock(func() time.Time { return saturday }))
	h := &harness{t: t, machine: m, recorder: rec, notifier: &fakeNotifier{}, dir: clinic.NewDirectory(1, []clinic.Record{sunriseClinic()})}
	confirmReady(h)

	assert.Equal(t, msgConfirmedNoEmail, h.say("yes").Text)
	assert.Len(t, rec.saved, 1)
}

func TestCancelWordResetsFromAnyStage(t *testing.T) {
	h := newHarness(t, sunriseClinic())
	h.start()
	h.say("dental")
	h.say("today")

	reply := h.say(" Cancel ")
	assert.Equal(t, msgCancelled, reply.Text)
	assert.Equal(t, NewSession(), h.session)
}

func TestExactAnswerWinsOverCancelWord(t *testing.T) {
	quitClinic := clinic.Record{
		Name:      "Harbor Wellness",
		OpenTime:  "09:00 AM",
		CloseTime: "05:00 PM",
		Services:  []clinic.Service{{Name: "Quit", Price: 1200}},
	}
	stopClinic := sunriseClinic()
	stopClinic.Name = "Stop"

	t.Run("service named like a cancel word", func(t *testing.T) {
		h := newHarness(t, quitClinic)
		h.start()
		reply := h.say("QUIT")
		assert.Equal(t, OutcomeNone, reply.Outcome)
		assert.Equal(t, AwaitingDate, h.session.Stage)
		assert.Equal(t, "Quit", h.session.Service)
		assert.Equal(t, 1200, h.session.ServicePrice)
	})

	t.Run("clinic named like a cancel word", func(t *testing.T) {
		h := newHarness(t, sunriseClinic(), stopClinic)
		h.start()
		h.say("dental")
		require.Equal(t, AwaitingClinic, h.session.Stage)

		reply := h.say("stop")
		assert.Equal(t, msgAskDateAfterPick, reply.Text)
		require.NotNil(t, h.session.Clinic)
		assert.Equal(t, "Stop", h.session.Clinic.Name)
	})

	t.Run("cancel word that answers nothing still cancels", func(t *testing.T) {
		h := newHarness(t, quitClinic)
		h.start()
		reply := h.say("exit")
		assert.Equal(t, OutcomeCancelled, reply.Outcome)
		assert.Equal(t, NewSession(), h.session)
	})
}

func TestDirectorySwapResetsInFlightSession(t *testing.T) {
	h := newHarness(t, sunriseClinic())
	h.start()
	h.say("dental")

	// documents were removed: an empty directory with a newer version
	h.dir = clinic.NewDirectory(2, nil)
	reply := h.say("today")
	assert.Equal(t, msgDirectoryChanged, reply.Text)
	assert.Equal(t, OutcomeDirectoryChanged, reply.Outcome)
	assert.Equal(t, NewSession(), h.session)
	assert.Empty(t, h.recorder.saved)
}

func TestPersistedSessionResetsAfterRestart(t *testing.T) {
	h := newHarness(t, sunriseClinic())
	h.dir = clinic.NewRegistry().Replace([]clinic.Record{sunriseClinic()})
	advanceToName(h)
	h.say("Asha Rao")
	require.Equal(t, AwaitingEmail, h.session.Stage)

	raw, err := json.Marshal(h.session)
	require.NoError(t, err)

	// a new process whose library no longer has the clinic
	time.Sleep(time.Millisecond)
	h.dir = clinic.NewRegistry().Replace(nil)
	var restored Session
	require.NoError(t, json.Unmarshal(raw, &restored))
	h.session = restored

	reply := h.say("asha@example.com")
	assert.Equal(t, OutcomeDirectoryChanged, reply.Outcome)
	assert.Equal(t, NewSession(), h.session)
	h.say("yes")
	assert.Empty(t, h.recorder.saved)
}

func TestStepOnIdleSession(t *testing.T) {
	h := newHarness(t, sunriseClinic())
	reply := h.say("hello")
	assert.Equal(t, msgNoBooking, reply.Text)
	assert.False(t, h.session.Active())
}

func TestMachineRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	am := metrics.NewAssistantMetrics(reg)
	rec := &fakeRecorder{}
	m := NewMachine(rec, &fakeNotifier{}, logging.Discard(), WithClock(func() time.Time { return saturday }), WithMetrics(am))
	h := &harness{t: t, machine: m, recorder: rec, dir: clinic.NewDirectory(1, []clinic.Record{sunriseClinic()})}

	h.start()
	h.say("botox")
	h.say("dental")
	h.say("tomorrow")
	h.say("cancel")

	assert.Equal(t, 2, seriesCount(t, reg, "clinic_assistant_booking_rejections_total"), "one series per rejecting stage")
	assert.Equal(t, 1, seriesCount(t, reg, "clinic_assistant_bookings_total"))
}

func seriesCount(t *testing.T, reg *prometheus.Registry, name string) int {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return len(mf.GetMetric())
		}
	}
	return 0
}

func TestNewMachineRequiresRecorder(t *testing.T) {
	assert.Panics(t, func() { NewMachine(nil, nil, nil) })
}
