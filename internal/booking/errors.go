package booking

import "errors"

var errNoNotifier = errors.New("booking: no notifier configured")
