package capture

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/jbird-nerd/CalendarCaptureExtension/internal/bus"
	"github.com/jbird-nerd/CalendarCaptureExtension/internal/logger"
	"github.com/jbird-nerd/CalendarCaptureExtension/internal/provider"
	"github.com/jbird-nerd/CalendarCaptureExtension/internal/router"
)

// SessionConfig holds the content-context dependencies.
type SessionConfig struct {
	Bus              *bus.Bus
	DevicePixelRatio float64
	Logger           *logger.Logger
}

// Session is the content-context side of one capture. It owns the state
// machine from the user gesture through selection and hand-off, then
// follows the popup's progress to a terminal state.
type Session struct {
	bus      *bus.Bus
	ep       *bus.Endpoint
	dpr      float64
	progress chan StageEvent
	logger   *logger.Logger

	mu      sync.Mutex
	state   SessionState
	image   string
	lastErr string
}

// NewSession creates an idle session attached to the content endpoint.
func NewSession(cfg SessionConfig) *Session {
	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}
	dpr := cfg.DevicePixelRatio
	if dpr <= 0 {
		dpr = 1
	}
	return &Session{
		bus:      cfg.Bus,
		ep:       cfg.Bus.Register(bus.ContextContent, 16),
		dpr:      dpr,
		progress: make(chan StageEvent, 8),
		logger:   log,
	}
}

// State returns the current session state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == "" {
		return StateIdle
	}
	return s.state
}

// LastError returns the message that moved the session to Failed.
func (s *Session) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Progress is the channel popups report stage transitions on.
func (s *Session) Progress() chan StageEvent {
	return s.progress
}

func (s *Session) setState(state SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

func (s *Session) fail(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateFailed
	s.lastErr = msg
}

// Begin starts a capture. Configuration is checked first: without a
// stored credential and a selected method for both steps the session
// stays idle and the options surface is opened instead.
func (s *Session) Begin(ctx context.Context) error {
	switch s.State() {
	case StateIdle, StateDone, StateFailed:
	default:
		return fmt.Errorf("capture already in progress (state %s)", s.State())
	}

	view, err := s.fetchSettings(ctx)
	if err != nil {
		return err
	}
	if !view.ConfigurationComplete() {
		s.logger.Info("Configuration incomplete, opening options instead of capturing")
		if err := s.ep.Send(bus.ContextBackground, bus.Envelope{
			Type:      bus.MsgOpenOptions,
			RequestID: bus.NewRequestID(),
		}); err != nil {
			s.logger.WithError(err).Warn("Failed to request options surface")
		}
		return provider.ErrConfigurationIncomplete
	}

	s.mu.Lock()
	s.state = StateSelecting
	s.image = ""
	s.lastErr = ""
	s.mu.Unlock()
	return nil
}

// Cancel aborts an in-progress selection, as on Escape. It has no effect
// in any other state.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateSelecting {
		s.state = StateIdle
	}
}

// CompleteSelection ends the drag. Selections under the minimum size
// abort silently without requesting a screenshot; otherwise the viewport
// is captured and cropped to the selection.
func (s *Session) CompleteSelection(ctx context.Context, sel Rect) error {
	if s.State() != StateSelecting {
		return fmt.Errorf("no selection in progress (state %s)", s.State())
	}
	if sel.BelowMinimum() {
		s.logger.WithFields("width", sel.Width, "height", sel.Height).Debug("Selection below minimum size, aborting")
		s.setState(StateIdle)
		return nil
	}

	shot, err := s.requestScreenshot(ctx)
	if err != nil {
		s.fail(err.Error())
		return err
	}
	cropped, err := CropPNG(shot, sel, s.dpr)
	if err != nil {
		s.fail(err.Error())
		return err
	}

	s.mu.Lock()
	s.image = base64.StdEncoding.EncodeToString(cropped)
	s.state = StateCaptured
	s.mu.Unlock()
	return nil
}

// OpenPopup hands the capture to the background, which stores it and
// opens the popup window.
func (s *Session) OpenPopup(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateCaptured {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("nothing captured to hand off (state %s)", state)
	}
	image := s.image
	s.mu.Unlock()

	if err := s.ep.Send(bus.ContextBackground, bus.Envelope{
		Type:      bus.MsgOpenPopup,
		RequestID: bus.NewRequestID(),
		Payload:   ImagePayload{Base64: image},
	}); err != nil {
		s.fail(err.Error())
		return err
	}
	s.setState(StatePopupOpening)
	return nil
}

// Track consumes popup stage events until the session reaches Done or
// Failed. A Failed stage halts the pipeline; there is no automatic retry.
func (s *Session) Track(ctx context.Context) (SessionState, error) {
	for {
		select {
		case <-ctx.Done():
			return s.State(), ctx.Err()
		case ev := <-s.progress:
			if ev.Stage == StateFailed {
				s.fail(ev.Err)
			} else {
				s.setState(ev.Stage)
			}
			if ev.Stage == StateDone || ev.Stage == StateFailed {
				return ev.Stage, nil
			}
		}
	}
}

func (s *Session) fetchSettings(ctx context.Context) (*router.SettingsView, error) {
	id := bus.NewRequestID()
	if err := s.ep.Send(bus.ContextBackground, bus.Envelope{
		Type:      bus.MsgGetSettings,
		RequestID: id,
	}); err != nil {
		return nil, fmt.Errorf("request settings: %w", err)
	}
	env, err := s.awaitResponse(ctx, id)
	if err != nil {
		return nil, err
	}
	result, ok := env.Payload.(router.Result)
	if !ok || !result.OK || result.Settings == nil {
		return nil, fmt.Errorf("settings request failed")
	}
	return result.Settings, nil
}

func (s *Session) requestScreenshot(ctx context.Context) ([]byte, error) {
	id := bus.NewRequestID()
	if err := s.ep.Send(bus.ContextBackground, bus.Envelope{
		Type:      bus.MsgScreenshot,
		RequestID: id,
	}); err != nil {
		return nil, fmt.Errorf("request screenshot: %w", err)
	}
	env, err := s.awaitResponse(ctx, id)
	if err != nil {
		return nil, err
	}
	res, ok := env.Payload.(ScreenshotResult)
	if !ok {
		return nil, fmt.Errorf("screenshot response payload must be a ScreenshotResult")
	}
	if res.Err != "" {
		return nil, fmt.Errorf("screenshot failed: %s", res.Err)
	}
	return res.PNG, nil
}

func (s *Session) awaitResponse(ctx context.Context, requestID string) (bus.Envelope, error) {
	for {
		select {
		case <-ctx.Done():
			return bus.Envelope{}, ctx.Err()
		case env, ok := <-s.ep.Inbox():
			if !ok {
				return bus.Envelope{}, fmt.Errorf("content endpoint closed")
			}
			if env.Type != bus.MsgResponse || env.RequestID != requestID {
				s.logger.WithRequestID(env.RequestID).Debug("Dropping unexpected envelope")
				continue
			}
			return env, nil
		}
	}
}
