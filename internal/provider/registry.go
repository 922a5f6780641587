package provider

import (
	"fmt"
	"net/http"

	"github.com/jbird-nerd/CalendarCaptureExtension/internal/logger"
)

// Endpoints holds optional per-vendor base URL overrides, used to point
// adapters at test servers or proxies. Empty fields mean the public APIs.
type Endpoints struct {
	OpenAI       string
	Gemini       string
	Claude       string
	GoogleVision string
}

// Registry owns one adapter per provider ID.
type Registry struct {
	adapters map[ID]Adapter
}

// NewRegistry builds the closed adapter set. httpClient is shared by the
// adapters that speak raw HTTP; nil gets a default client.
func NewRegistry(endpoints Endpoints, httpClient *http.Client, log *logger.Logger) *Registry {
	if log == nil {
		log = logger.Get()
	}

	adapters := map[ID]Adapter{
		OpenAI:       NewOpenAIAdapter(OpenAI, endpoints.OpenAI, log),
		OpenAIVision: NewOpenAIAdapter(OpenAIVision, endpoints.OpenAI, log),
		Gemini:       NewGeminiAdapter(Gemini, endpoints.Gemini, httpClient, log),
		GeminiVision: NewGeminiAdapter(GeminiVision, endpoints.Gemini, httpClient, log),
		Claude:       NewClaudeAdapter(Claude, endpoints.Claude, log),
		ClaudeVision: NewClaudeAdapter(ClaudeVision, endpoints.Claude, log),
		GoogleVision: NewGoogleVisionAdapter(endpoints.GoogleVision, log),
	}

	return &Registry{adapters: adapters}
}

// Get returns the adapter for a provider ID.
func (r *Registry) Get(id ID) (Adapter, error) {
	adapter, ok := r.adapters[id]
	if !ok {
		return nil, fmt.Errorf("unsupported provider: %s", id)
	}
	return adapter, nil
}
