package capture

import (
	"context"

	"github.com/jbird-nerd/CalendarCaptureExtension/internal/bus"
	"github.com/jbird-nerd/CalendarCaptureExtension/internal/logger"
	"github.com/jbird-nerd/CalendarCaptureExtension/internal/router"
)

// PopupOpener launches a popup context and returns a function that closes
// it. The background keeps at most one popup open at a time.
type PopupOpener func(ctx context.Context) (close func(), err error)

// BackgroundConfig holds the privileged-context dependencies.
type BackgroundConfig struct {
	Bus         *bus.Bus
	Router      *router.Router
	Capturer    ScreenCapturer
	OpenPopup   PopupOpener
	OpenOptions func()
	Logger      *logger.Logger
}

// Background is the privileged context loop. It serves screenshot
// requests, manages the single popup window and its image hand-off, and
// delegates every other request to the router.
type Background struct {
	bus         *bus.Bus
	router      *router.Router
	capturer    ScreenCapturer
	openPopup   PopupOpener
	openOptions func()
	logger      *logger.Logger

	handoff    Handoff
	closePopup func()
}

// NewBackground wires the privileged context.
func NewBackground(cfg BackgroundConfig) *Background {
	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}
	return &Background{
		bus:         cfg.Bus,
		router:      cfg.Router,
		capturer:    cfg.Capturer,
		openPopup:   cfg.OpenPopup,
		openOptions: cfg.OpenOptions,
		logger:      log,
	}
}

// Run attaches to the bus as the background context and serves envelopes
// until ctx is cancelled or the endpoint is replaced.
func (bg *Background) Run(ctx context.Context) {
	ep := bg.bus.Register(bus.ContextBackground, 32)
	for {
		select {
		case <-ctx.Done():
			bg.bus.Unregister(ep)
			return
		case env, ok := <-ep.Inbox():
			if !ok {
				return
			}
			bg.handle(ctx, ep, env)
		}
	}
}

func (bg *Background) handle(ctx context.Context, ep *bus.Endpoint, env bus.Envelope) {
	switch env.Type {
	case bus.MsgScreenshot:
		bg.reply(ep, env, bg.screenshot(ctx))
	case bus.MsgOpenPopup:
		bg.handleOpenPopup(ctx, env)
	case bus.MsgPopupReady:
		bg.handlePopupReady(ep, env)
	case bus.MsgOpenOptions:
		if bg.openOptions != nil {
			bg.openOptions()
		}
	default:
		bg.reply(ep, env, bg.router.Handle(ctx, env))
	}
}

func (bg *Background) screenshot(ctx context.Context) ScreenshotResult {
	if bg.capturer == nil {
		return ScreenshotResult{Err: "no screen capturer available"}
	}
	png, err := bg.capturer.CaptureViewport(ctx)
	if err != nil {
		bg.logger.WithError(err).Warn("Viewport capture failed")
		return ScreenshotResult{Err: err.Error()}
	}
	return ScreenshotResult{PNG: png}
}

// handleOpenPopup stores the capture for later delivery and replaces any
// popup already on screen. A capture that arrives before the previous one
// was delivered simply overwrites it.
func (bg *Background) handleOpenPopup(ctx context.Context, env bus.Envelope) {
	payload, ok := env.Payload.(ImagePayload)
	if !ok {
		bg.logger.WithRequestID(env.RequestID).Warn("open-popup payload must be an ImagePayload")
		return
	}
	bg.handoff.Set(payload.Base64)

	if bg.closePopup != nil {
		bg.closePopup()
		bg.closePopup = nil
	}
	if bg.openPopup == nil {
		return
	}
	closeFn, err := bg.openPopup(ctx)
	if err != nil {
		bg.logger.WithError(err).Error("Failed to open popup")
		bg.handoff.Clear()
		return
	}
	bg.closePopup = closeFn
}

func (bg *Background) handlePopupReady(ep *bus.Endpoint, env bus.Envelope) {
	img, ok := bg.handoff.Take()
	if !ok {
		bg.logger.Debug("Popup ready with no pending image")
		return
	}
	if err := ep.Send(bus.ContextPopup, bus.Envelope{
		Type:      bus.MsgDeliverImage,
		RequestID: env.RequestID,
		Payload:   ImagePayload{Base64: img},
	}); err != nil {
		bg.logger.WithError(err).Warn("Popup vanished before image delivery")
	}
}

func (bg *Background) reply(ep *bus.Endpoint, env bus.Envelope, payload any) {
	if env.From == "" {
		return
	}
	if err := ep.Send(env.From, bus.Envelope{
		Type:      bus.MsgResponse,
		RequestID: env.RequestID,
		Payload:   payload,
	}); err != nil {
		bg.logger.WithRequestID(env.RequestID).WithFields("to", env.From).Debug("Dropping response, target context gone")
	}
}
