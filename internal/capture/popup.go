package capture

import (
	"context"
	"fmt"

	"github.com/jbird-nerd/CalendarCaptureExtension/internal/bus"
	"github.com/jbird-nerd/CalendarCaptureExtension/internal/logger"
	"github.com/jbird-nerd/CalendarCaptureExtension/internal/provider"
	"github.com/jbird-nerd/CalendarCaptureExtension/internal/router"
)

// PopupOutcome is what the popup ends up showing: the recognized text,
// the extracted event, or the error that stopped the pipeline.
type PopupOutcome struct {
	Text  string
	Event *provider.Event
	Err   string
}

// Popup is the popup-context processor. It announces readiness, receives
// the capture, and runs OCR followed by parse, strictly in sequence. Each
// request is tagged with a fresh ID; responses to superseded requests are
// discarded.
type Popup struct {
	bus      *bus.Bus
	progress chan<- StageEvent
	latest   bus.Latest
	logger   *logger.Logger
}

// NewPopup creates a popup processor. progress may be nil; if set it must
// be buffered by the caller.
func NewPopup(b *bus.Bus, progress chan<- StageEvent, log *logger.Logger) *Popup {
	if log == nil {
		log = logger.Get()
	}
	return &Popup{bus: b, progress: progress, logger: log}
}

// Run executes the popup lifecycle once and returns the outcome. A
// pipeline failure is reported in the outcome, not as an error; errors
// mean the popup itself could not operate.
func (p *Popup) Run(ctx context.Context) (*PopupOutcome, error) {
	ep := p.bus.Register(bus.ContextPopup, 16)
	defer p.bus.Unregister(ep)
	defer p.latest.Clear()

	if err := ep.Send(bus.ContextBackground, bus.Envelope{
		Type:      bus.MsgPopupReady,
		RequestID: bus.NewRequestID(),
	}); err != nil {
		return nil, fmt.Errorf("announce popup ready: %w", err)
	}
	p.report(StatePopupReady, "")

	image, err := p.awaitImage(ctx, ep)
	if err != nil {
		return nil, err
	}

	p.report(StateProcessingOCR, "")
	ocr, err := p.request(ctx, ep, bus.MsgRunOCR, router.OCRRequest{ImageBase64: image})
	if err != nil {
		return nil, err
	}
	if !ocr.OK {
		p.report(StateFailed, ocr.Error)
		return &PopupOutcome{Err: ocr.Error}, nil
	}

	p.report(StateProcessingParse, "")
	parsed, err := p.request(ctx, ep, bus.MsgRunParse, router.ParseRequest{Text: ocr.Text})
	if err != nil {
		return nil, err
	}
	if !parsed.OK {
		p.report(StateFailed, parsed.Error)
		return &PopupOutcome{Text: ocr.Text, Err: parsed.Error}, nil
	}

	p.report(StateDone, "")
	return &PopupOutcome{Text: ocr.Text, Event: parsed.Event}, nil
}

func (p *Popup) awaitImage(ctx context.Context, ep *bus.Endpoint) (string, error) {
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case env, ok := <-ep.Inbox():
			if !ok {
				return "", fmt.Errorf("popup endpoint closed before image delivery")
			}
			if env.Type != bus.MsgDeliverImage {
				p.logger.WithFields("type", env.Type).Debug("Ignoring envelope while waiting for image")
				continue
			}
			payload, ok := env.Payload.(ImagePayload)
			if !ok {
				return "", fmt.Errorf("deliver-image payload must be an ImagePayload")
			}
			return payload.Base64, nil
		}
	}
}

// request sends one routed request and waits for its response. Responses
// carrying a request ID other than the latest one are stale and dropped.
func (p *Popup) request(ctx context.Context, ep *bus.Endpoint, msgType bus.MessageType, payload any) (router.Result, error) {
	id := p.latest.Begin()
	if err := ep.Send(bus.ContextBackground, bus.Envelope{
		Type:      msgType,
		RequestID: id,
		Payload:   payload,
	}); err != nil {
		return router.Result{}, fmt.Errorf("send %s: %w", msgType, err)
	}

	for {
		select {
		case <-ctx.Done():
			return router.Result{}, ctx.Err()
		case env, ok := <-ep.Inbox():
			if !ok {
				return router.Result{}, fmt.Errorf("popup endpoint closed while awaiting %s", msgType)
			}
			if env.Type != bus.MsgResponse {
				continue
			}
			if !p.latest.Accept(env.RequestID) {
				p.logger.WithRequestID(env.RequestID).Debug("Discarding stale response")
				continue
			}
			result, ok := env.Payload.(router.Result)
			if !ok {
				return router.Result{}, fmt.Errorf("response payload must be a router.Result")
			}
			return result, nil
		}
	}
}

func (p *Popup) report(stage SessionState, errMsg string) {
	if p.progress == nil {
		return
	}
	select {
	case p.progress <- StageEvent{Stage: stage, Err: errMsg}:
	default:
		p.logger.WithFields("stage", stage).Debug("Progress channel full, dropping stage event")
	}
}
