// Package capture implements the capture-to-popup pipeline: region
// selection, screenshot cropping, popup hand-off, and the sequential
// OCR-then-parse processing, coordinated across the content, background,
// and popup contexts.
package capture

import (
	"context"
)

// SessionState names the explicit states of one capture session.
type SessionState string

const (
	StateIdle            SessionState = "idle"
	StateSelecting       SessionState = "selecting"
	StateCaptured        SessionState = "captured"
	StatePopupOpening    SessionState = "popup-opening"
	StatePopupReady      SessionState = "popup-ready"
	StateProcessingOCR   SessionState = "processing-ocr"
	StateProcessingParse SessionState = "processing-parse"
	StateDone            SessionState = "done"
	StateFailed          SessionState = "failed"
)

// MinSelectionSize is the minimum selection edge in pixels; smaller drags
// abort the session silently.
const MinSelectionSize = 10

// Rect is a selection rectangle in CSS pixels, prior to device pixel ratio
// scaling.
type Rect struct {
	X, Y, Width, Height int
}

// BelowMinimum reports whether either edge is under the selection
// threshold.
func (r Rect) BelowMinimum() bool {
	return r.Width < MinSelectionSize || r.Height < MinSelectionSize
}

// ScreenCapturer produces a full-viewport screenshot as PNG bytes. Only
// the privileged context holds one; content asks for captures over the
// bus.
type ScreenCapturer interface {
	CaptureViewport(ctx context.Context) ([]byte, error)
}

// ScreenshotResult is the response payload for a screenshot request.
type ScreenshotResult struct {
	PNG []byte
	Err string
}

// ImagePayload carries the cropped capture across context boundaries as
// base64 PNG.
type ImagePayload struct {
	Base64 string
}

// StageEvent reports a pipeline stage transition from the popup back to
// the session coordinator.
type StageEvent struct {
	Stage SessionState
	Err   string
}
