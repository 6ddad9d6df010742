// Package extract orchestrates meeting extraction: it dispatches every
// configured source to its markup strategy, merges calendar records, removes
// duplicates and restricts the result to the operational date window.
package extract

import "errors"

// Sentinel errors for extraction.
var (
	// ErrNoParser indicates that no parser is registered for a source type.
	ErrNoParser = errors.New("no parser registered for source type")

	// ErrRendererUnavailable indicates a render was requested without a renderer.
	ErrRendererUnavailable = errors.New("script renderer unavailable")

	// ErrEmptyPage indicates that the transport returned no body.
	ErrEmptyPage = errors.New("empty page")
)
