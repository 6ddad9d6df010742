package extract

import (
	"time"

	"politikk-moter/internal/domain/entity"
)

// Render wait profiles per source type.
const (
	defaultSettle       = 2500 * time.Millisecond
	slowSettle          = 4 * time.Second
	elementsSelector    = "table, .meeting, .møte, .calendar"
	elementsSelectorMax = 8 * time.Second
)

// RenderProfile returns the render request for a source. Card-list pages wait
// for their meeting container; store sources capture the client cache.
func RenderProfile(src entity.SourceConfig) RenderRequest {
	req := RenderRequest{URL: src.URL, Settle: defaultSettle}
	switch src.Type {
	case entity.SourceTypeElements:
		req.Settle = slowSettle
		req.WaitSelector = elementsSelector
		req.SelectorTimeout = elementsSelectorMax
	case entity.SourceTypeOnACOS:
		req.Settle = slowSettle
	case entity.SourceTypeStore:
		req.Settle = slowSettle
		req.CaptureStore = true
	}
	return req
}
