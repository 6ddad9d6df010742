package calendar

import "errors"

var (
	// ErrUnknownSource is returned for a source id absent from the
	// registry.
	ErrUnknownSource = errors.New("unknown calendar source")

	// ErrCalendarIDMissing means neither the env override nor the
	// configured id yields a calendar id.
	ErrCalendarIDMissing = errors.New("calendar id not configured")

	// ErrCredentialsMissing means no service-account JSON is available.
	ErrCredentialsMissing = errors.New("service account credentials missing")

	// ErrInvalidCredentials wraps unreadable service-account JSON or keys.
	ErrInvalidCredentials = errors.New("invalid service account credentials")
)
