package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/clinic-booking-assistant/internal/bookings"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

type recordingSender struct {
	sent []EmailMessage
	err  error
}

func (r *recordingSender) Send(ctx context.Context, msg EmailMessage) error {
	r.sent = append(r.sent, msg)
	return r.err
}

func confirmedBooking() bookings.Booking {
	return bookings.Booking{
		ID:            42,
		Service:       "Dental Checkup",
		ClinicName:    "Sunrise <Clinic>",
		Date:          "2025-06-16",
		Time:          "2:00 PM",
		CustomerName:  "Asha Rao",
		CustomerEmail: "asha@example.com",
		CustomerPhone: "9876543210",
	}
}

func TestConfirmationMessage(t *testing.T) {
	msg, err := ConfirmationMessage(confirmedBooking())
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", msg.To)
	assert.Equal(t, "Appointment Confirmed – Sunrise <Clinic>", msg.Subject)
	assert.Contains(t, msg.Body, "Hello Asha Rao,")
	assert.Contains(t, msg.Body, "Service: Dental Checkup")
	assert.Contains(t, msg.Body, "Time: 2:00 PM")
	assert.Contains(t, msg.HTML, "Sunrise &lt;Clinic&gt;")
}

func TestConfirmationMessageRequiresEmail(t *testing.T) {
	b := confirmedBooking()
	b.CustomerEmail = ""
	_, err := ConfirmationMessage(b)
	assert.Error(t, err)
}

func TestConfirmationNotifier(t *testing.T) {
	sender := &recordingSender{}
	n := NewConfirmationNotifier(sender, logging.Discard())

	require.NoError(t, n.SendConfirmation(context.Background(), confirmedBooking()))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "Asha Rao", sender.sent[0].ToName)

	sender.err = errors.New("smtp down")
	assert.ErrorContains(t, n.SendConfirmation(context.Background(), confirmedBooking()), "smtp down")
}

func TestConfirmationNotifierWithoutSender(t *testing.T) {
	n := NewConfirmationNotifier(nil, logging.Discard())
	assert.ErrorIs(t, n.SendConfirmation(context.Background(), confirmedBooking()), ErrEmailNotConfigured)
}
