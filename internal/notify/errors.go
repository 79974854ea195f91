package notify

import "errors"

// ErrEmailNotConfigured is returned at send time when no email provider credentials were supplied.
var ErrEmailNotConfigured = errors.New("notify: email provider not configured")
