package notify

import "errors"

// Sentinel errors for delivery.
var (
	// ErrChannelNotConfigured means the batch's channel environment variable
	// is unset or blank.
	ErrChannelNotConfigured = errors.New("delivery channel not configured")

	// ErrDeliveryFailed wraps any failure of the delivery collaborator.
	ErrDeliveryFailed = errors.New("delivery failed")

	// ErrEmptyMessage is returned for blank message text.
	ErrEmptyMessage = errors.New("empty message")
)
