package notify

import (
	"bytes"
	"context"
	"fmt"
	htmltemplate "html/template"
	"strings"
	"text/template"

	"github.com/wolfman30/clinic-booking-assistant/internal/bookings"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

const confirmationText = `Hello {{.CustomerName}},

Your appointment has been successfully confirmed.

Clinic: {{.ClinicName}}
Service: {{.Service}}
Date: {{.Date}}
Time: {{.Time}}

Please arrive 10 minutes early and carry any relevant medical records.

Regards,
{{.ClinicName}}
`

const confirmationHTML = `<p>Hello {{.CustomerName}},</p>
<p>Your appointment has been successfully confirmed.</p>
<ul>
<li><strong>Clinic:</strong> {{.ClinicName}}</li>
<li><strong>Service:</strong> {{.Service}}</li>
<li><strong>Date:</strong> {{.Date}}</li>
<li><strong>Time:</strong> {{.Time}}</li>
</ul>
<p>Please arrive 10 minutes early and carry any relevant medical records.</p>
<p>Regards,<br>{{.ClinicName}}</p>
`

var (
	confirmationTextTmpl = template.Must(template.New("confirmation_text").Option("missingkey=error").Parse(confirmationText))
	confirmationHTMLTmpl = htmltemplate.Must(htmltemplate.New("confirmation_html").Option("missingkey=error").Parse(confirmationHTML))
)

// ConfirmationNotifier emails the customer once a booking is stored.
type ConfirmationNotifier struct {
	sender EmailSender
	logger *logging.Logger
}

// NewConfirmationNotifier wraps sender. A nil sender is allowed; every send
// then fails with ErrEmailNotConfigured.
func NewConfirmationNotifier(sender EmailSender, logger *logging.Logger) *ConfirmationNotifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &ConfirmationNotifier{sender: sender, logger: logger}
}

// SendConfirmation emails the booking details to the customer.
func (n *ConfirmationNotifier) SendConfirmation(ctx context.Context, b bookings.Booking) error {
	if n == nil || n.sender == nil {
		return ErrEmailNotConfigured
	}
	msg, err := ConfirmationMessage(b)
	if err != nil {
		return err
	}
	if err := n.sender.Send(ctx, msg); err != nil {
		return err
	}
	n.logger.Info("booking confirmation sent", "booking_id", b.ID, "clinic", b.ClinicName)
	return nil
}

// ConfirmationMessage renders the confirmation email for b.
func ConfirmationMessage(b bookings.Booking) (EmailMessage, error) {
	if strings.TrimSpace(b.CustomerEmail) == "" {
		return EmailMessage{}, fmt.Errorf("notify: booking %d has no email", b.ID)
	}
	var text, html bytes.Buffer
	if err := confirmationTextTmpl.Execute(&text, b); err != nil {
		return EmailMessage{}, fmt.Errorf("notify: render confirmation: %w", err)
	}
	if err := confirmationHTMLTmpl.Execute(&html, b); err != nil {
		return EmailMessage{}, fmt.Errorf("notify: render confirmation html: %w", err)
	}
	clinic := b.ClinicName
	if clinic == "" {
		clinic = "Clinic"
	}
	return EmailMessage{
		To:      b.CustomerEmail,
		ToName:  b.CustomerName,
		Subject: fmt.Sprintf("Appointment Confirmed – %s", clinic),
		Body:    text.String(),
		HTML:    html.String(),
	}, nil
}
