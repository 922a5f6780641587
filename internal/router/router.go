// Package router implements the privileged-context dispatcher: it receives
// typed requests from unprivileged contexts, resolves credentials and model
// selections from the settings store, invokes the matching provider
// adapter, and returns a uniform success/error envelope with redacted
// debug information.
package router

import (
	"context"
	"fmt"
	"time"

	"github.com/jbird-nerd/CalendarCaptureExtension/internal/bus"
	"github.com/jbird-nerd/CalendarCaptureExtension/internal/discovery"
	"github.com/jbird-nerd/CalendarCaptureExtension/internal/logger"
	"github.com/jbird-nerd/CalendarCaptureExtension/internal/provider"
	"github.com/jbird-nerd/CalendarCaptureExtension/internal/settings"
)

// testParseText exercises parse providers from the capability test action.
const testParseText = "Team standup tomorrow at 9:30 AM in Room 4"

// testImageBase64 is a 1x1 white PNG used to exercise OCR providers.
const testImageBase64 = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR4nGP4//8/AwAI/AL+hc2rNAAAAABJRU5ErkJggg=="

// OCRRequest is the payload of a run-ocr envelope.
type OCRRequest struct {
	ImageBase64 string
}

// ParseRequest is the payload of a run-parse envelope.
type ParseRequest struct {
	Text string
}

// ValidateKeyRequest is the payload of a validate-key envelope.
type ValidateKeyRequest struct {
	Vendor provider.Vendor
}

// SettingsView is the non-secret settings snapshot returned to
// unprivileged contexts. Raw credentials never leave the background
// context; callers only learn whether one is stored and its last known
// validity.
type SettingsView struct {
	Selections    map[provider.Capability]settings.Selection
	ModelLists    map[provider.ID][]string
	HasCredential map[provider.Vendor]bool
	KeyValidity   map[provider.Vendor]bool
}

// ConfigurationComplete reports whether at least one credential is stored
// and both capabilities have a method selection.
func (v *SettingsView) ConfigurationComplete() bool {
	anyCredential := false
	for _, has := range v.HasCredential {
		if has {
			anyCredential = true
			break
		}
	}
	if !anyCredential {
		return false
	}
	_, haveOCR := v.Selections[provider.CapabilityOCR]
	_, haveParse := v.Selections[provider.CapabilityParse]
	return haveOCR && haveParse
}

// Result is the uniform response payload for every routed request. Failures
// of any kind, including panics and network errors, collapse into
// OK=false with a message; callers cannot observe the difference beyond
// the text.
type Result struct {
	OK       bool             `json:"ok"`
	Text     string           `json:"text,omitempty"`
	Event    *provider.Event  `json:"event,omitempty"`
	Models   []string         `json:"models,omitempty"`
	Valid    bool             `json:"valid,omitempty"`
	Settings *SettingsView    `json:"settings,omitempty"`
	Error    string           `json:"error,omitempty"`
	Debug    *provider.Debug  `json:"debug,omitempty"`
}

// Config holds the router dependencies.
type Config struct {
	Registry  *provider.Registry
	Discovery *discovery.Service
	Store     *settings.Store
	Logger    *logger.Logger
}

// Router is the single entry point of the privileged context.
type Router struct {
	registry  *provider.Registry
	discovery *discovery.Service
	store     *settings.Store
	state     *State
	logger    *logger.Logger
}

// New creates a router. Session state starts from the stored credentials.
func New(cfg Config) *Router {
	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}
	return &Router{
		registry:  cfg.Registry,
		discovery: cfg.Discovery,
		store:     cfg.Store,
		state:     NewState(cfg.Store.Credentials()),
		logger:    log,
	}
}

// State exposes the session state for UI surfaces in the same context.
func (r *Router) State() *State {
	return r.state
}

// Handle dispatches one request envelope. It never panics across the
// context boundary; every failure path funnels into Result{OK: false}.
func (r *Router) Handle(ctx context.Context, env bus.Envelope) (result Result) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.WithFields("type", env.Type, "panic", rec).Error("Request handler panicked")
			result = Result{OK: false, Error: fmt.Sprintf("internal error: %v", rec)}
		}
	}()

	log := r.logger.WithRequestID(env.RequestID).WithFields("type", env.Type)
	log.Debug("Dispatching request")

	switch env.Type {
	case bus.MsgRunOCR:
		return r.handleRunOCR(ctx, env)
	case bus.MsgRunParse:
		return r.handleRunParse(ctx, env)
	case bus.MsgTestProvider:
		return r.handleTestProvider(ctx, env)
	case bus.MsgListModels:
		return r.handleListModels(ctx, env)
	case bus.MsgValidateKey:
		return r.handleValidateKey(ctx, env)
	case bus.MsgGetSettings:
		return Result{OK: true, Settings: r.settingsView()}
	default:
		return Result{OK: false, Error: fmt.Sprintf("unknown request type %q", env.Type)}
	}
}

func (r *Router) handleRunOCR(ctx context.Context, env bus.Envelope) Result {
	payload, ok := env.Payload.(OCRRequest)
	if !ok {
		return Result{OK: false, Error: "run-ocr payload must be an OCRRequest"}
	}
	return r.execute(ctx, provider.CapabilityOCR, env, provider.Request{
		ImageBase64: payload.ImageBase64,
		Now:         time.Now(),
	})
}

func (r *Router) handleRunParse(ctx context.Context, env bus.Envelope) Result {
	payload, ok := env.Payload.(ParseRequest)
	if !ok {
		return Result{OK: false, Error: "run-parse payload must be a ParseRequest"}
	}
	return r.execute(ctx, provider.CapabilityParse, env, provider.Request{
		Text: payload.Text,
		Now:  time.Now(),
	})
}

// handleTestProvider exercises an explicitly named provider/model pair with
// a canned input, bypassing the persisted selection.
func (r *Router) handleTestProvider(ctx context.Context, env bus.Envelope) Result {
	id := provider.ID(env.Provider)
	if !id.Valid() {
		return Result{OK: false, Error: fmt.Sprintf("unknown provider %q", env.Provider)}
	}
	req := provider.Request{Now: time.Now()}
	if id.Capability() == provider.CapabilityOCR {
		req.ImageBase64 = testImageBase64
	} else {
		req.Text = testParseText
	}
	return r.execute(ctx, id.Capability(), env, req)
}

// execute resolves the provider, model, and credentials for a capability
// and runs the adapter once. Adapter failures are reported, never retried.
func (r *Router) execute(ctx context.Context, capability provider.Capability, env bus.Envelope, req provider.Request) Result {
	id, model, err := r.resolveSelection(capability, env)
	if err != nil {
		return Result{OK: false, Error: err.Error()}
	}
	req.Model = model

	adapter, err := r.registry.Get(id)
	if err != nil {
		return Result{OK: false, Error: err.Error()}
	}

	// Secrets come from the store, never from the unprivileged envelope.
	resp, err := adapter.Execute(ctx, r.store.Credentials(), req)

	result := Result{}
	if resp != nil {
		result.Debug = redactDebug(resp.Debug)
	}
	if err != nil {
		r.logger.WithProvider(string(id)).WithError(err).Debug("Adapter execution failed")
		result.OK = false
		result.Error = err.Error()
		return result
	}

	result.OK = true
	result.Text = resp.Text
	result.Event = resp.Event
	return result
}

// resolveSelection applies the explicit override carried by the envelope,
// falling back to the persisted selection for the capability.
func (r *Router) resolveSelection(capability provider.Capability, env bus.Envelope) (provider.ID, string, error) {
	if env.Provider != "" {
		id := provider.ID(env.Provider)
		if !id.Valid() {
			return "", "", fmt.Errorf("unknown provider %q", env.Provider)
		}
		if id.Capability() != capability {
			return "", "", fmt.Errorf("provider %s does not offer %s", id, capability)
		}
		model := env.Model
		if model == "" {
			if models := r.store.ModelList(id); len(models) > 0 {
				model = models[0]
			}
		}
		if model == "" {
			return "", "", provider.ErrNoModelSelected
		}
		return id, model, nil
	}

	sel, ok := r.store.Selection(capability)
	if !ok || sel.Model == "" {
		return "", "", provider.ErrNoModelSelected
	}
	if !sel.Provider.Valid() || sel.Provider.Capability() != capability {
		return "", "", fmt.Errorf("persisted selection for %s names unusable provider %q", capability, sel.Provider)
	}
	model := sel.Model
	if env.Model != "" {
		model = env.Model
	}
	return sel.Provider, model, nil
}

func (r *Router) handleListModels(ctx context.Context, env bus.Envelope) Result {
	id := provider.ID(env.Provider)
	if !id.Valid() {
		return Result{OK: false, Error: fmt.Sprintf("unknown provider %q", env.Provider)}
	}

	models, err := r.discovery.Discover(ctx, id, r.store.Credentials())
	if err != nil {
		return Result{OK: false, Error: err.Error()}
	}

	r.store.SetModelList(id, models)
	if err := r.store.Save(); err != nil {
		r.logger.WithError(err).Warn("Failed to persist discovered model list")
	}
	return Result{OK: true, Models: models}
}

func (r *Router) handleValidateKey(ctx context.Context, env bus.Envelope) Result {
	payload, ok := env.Payload.(ValidateKeyRequest)
	if !ok {
		return Result{OK: false, Error: "validate-key payload must be a ValidateKeyRequest"}
	}

	valid := r.discovery.ValidateKey(ctx, payload.Vendor, r.store.Credential(payload.Vendor))
	r.state.SetKeyValid(payload.Vendor, valid)
	return Result{OK: true, Valid: valid}
}

func (r *Router) settingsView() *SettingsView {
	view := &SettingsView{
		Selections:    map[provider.Capability]settings.Selection{},
		ModelLists:    map[provider.ID][]string{},
		HasCredential: map[provider.Vendor]bool{},
		KeyValidity:   r.state.KeyValidity(),
	}
	for _, capability := range []provider.Capability{provider.CapabilityOCR, provider.CapabilityParse} {
		if sel, ok := r.store.Selection(capability); ok {
			view.Selections[capability] = sel
		}
	}
	for _, id := range provider.All() {
		if models := r.store.ModelList(id); len(models) > 0 {
			view.ModelLists[id] = models
		}
	}
	for _, vendor := range provider.Vendors() {
		view.HasCredential[vendor] = r.store.Credential(vendor) != ""
	}
	return view
}
