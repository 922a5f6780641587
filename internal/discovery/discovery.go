// Package discovery enumerates usable model identifiers per provider and
// validates vendor API keys.
package discovery

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/openai/openai-go"
	openaiopt "github.com/openai/openai-go/option"

	"github.com/jbird-nerd/CalendarCaptureExtension/internal/logger"
	"github.com/jbird-nerd/CalendarCaptureExtension/internal/provider"
)

// GeminiDocsURL is the public documentation page scraped for Gemini model
// identifiers; Gemini exposes no key-scoped list endpoint suitable here.
const GeminiDocsURL = "https://ai.google.dev/gemini-api/docs/models"

// geminiSeedModels is the fallback list used when the docs scrape fails.
var geminiSeedModels = []string{"gemini-2.0-flash", "gemini-1.5-flash"}

// googleVisionModels is the fixed pseudo model list for Cloud Vision, which
// has no model selection of its own.
var googleVisionModels = []string{"document-text-detection"}

var geminiModelPattern = regexp.MustCompile(`gemini-[0-9][a-z0-9.]*(?:-[a-z0-9]+)*`)

// Config holds the discovery service dependencies.
type Config struct {
	// Endpoints overrides vendor API base URLs (tests, proxies)
	Endpoints provider.Endpoints

	// GeminiDocsURL overrides the scraped documentation page
	GeminiDocsURL string

	// HTTPClient is used for the docs scrape and raw validation calls
	HTTPClient *http.Client

	// Policy overrides the embedded filter policy
	Policy *Policy

	Logger *logger.Logger
}

// Service implements model discovery and key validation. Neither operation
// retries internally; callers re-invoke explicitly.
type Service struct {
	endpoints provider.Endpoints
	docsURL   string
	client    *http.Client
	policy    *Policy
	logger    *logger.Logger
}

// NewService creates a discovery service.
func NewService(cfg Config) *Service {
	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}
	docsURL := cfg.GeminiDocsURL
	if docsURL == "" {
		docsURL = GeminiDocsURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	policy := cfg.Policy
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &Service{
		endpoints: cfg.Endpoints,
		docsURL:   docsURL,
		client:    client,
		policy:    policy,
		logger:    log,
	}
}

// Discover fetches the candidate model identifiers for a provider and
// applies the capability-specific filter policy. The returned order is the
// vendor's listing order; the first entry is the preferred default.
func (s *Service) Discover(ctx context.Context, id provider.ID, creds provider.Credentials) ([]string, error) {
	if !id.Valid() {
		return nil, fmt.Errorf("unsupported provider: %s", id)
	}

	var (
		candidates []string
		err        error
	)
	switch id.Vendor() {
	case provider.VendorOpenAI:
		candidates, err = s.listOpenAIModels(ctx, creds)
	case provider.VendorClaude:
		candidates, err = s.listClaudeModels(ctx, creds)
	case provider.VendorGemini:
		candidates = s.scrapeGeminiModels(ctx)
	case provider.VendorGoogle:
		candidates = googleVisionModels
	}
	if err != nil {
		return nil, err
	}

	filtered := s.policy.Filter(id.Vendor(), id.Capability(), candidates)
	s.logger.WithProvider(string(id)).WithFields(
		"candidates", len(candidates),
		"filtered", len(filtered),
	).Debug("Model discovery completed")
	return filtered, nil
}

func (s *Service) listOpenAIModels(ctx context.Context, creds provider.Credentials) ([]string, error) {
	key := creds.Get(provider.VendorOpenAI)
	if key == "" {
		return nil, provider.MissingCredential(provider.VendorOpenAI)
	}

	opts := []openaiopt.RequestOption{
		openaiopt.WithAPIKey(key),
		openaiopt.WithMaxRetries(0),
	}
	if s.endpoints.OpenAI != "" {
		opts = append(opts, openaiopt.WithBaseURL(s.endpoints.OpenAI))
	}
	client := openai.NewClient(opts...)

	page, err := client.Models.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list openai models: %w", err)
	}

	var ids []string
	for _, model := range page.Data {
		ids = append(ids, model.ID)
	}
	return ids, nil
}

func (s *Service) listClaudeModels(ctx context.Context, creds provider.Credentials) ([]string, error) {
	key := creds.Get(provider.VendorClaude)
	if key == "" {
		return nil, provider.MissingCredential(provider.VendorClaude)
	}

	opts := []anthropicopt.RequestOption{
		anthropicopt.WithAPIKey(key),
		anthropicopt.WithMaxRetries(0),
		anthropicopt.WithHeader("anthropic-dangerous-direct-browser-access", "true"),
	}
	if s.endpoints.Claude != "" {
		opts = append(opts, anthropicopt.WithBaseURL(s.endpoints.Claude))
	}
	client := anthropic.NewClient(opts...)

	page, err := client.Models.List(ctx, anthropic.ModelListParams{})
	if err != nil {
		return nil, fmt.Errorf("list anthropic models: %w", err)
	}

	var ids []string
	for _, model := range page.Data {
		ids = append(ids, model.ID)
	}
	return ids, nil
}

// scrapeGeminiModels extracts model identifiers from the public docs page.
// Failure falls back to the fixed seed list; degraded, but never empty.
func (s *Service) scrapeGeminiModels(ctx context.Context) []string {
	models, err := s.fetchGeminiDocs(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("Gemini docs scrape failed, falling back to seed model list")
		return geminiSeedModels
	}
	if len(models) == 0 {
		s.logger.Warn("Gemini docs scrape found no model identifiers, falling back to seed model list")
		return geminiSeedModels
	}
	return models
}

func (s *Service) fetchGeminiDocs(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.docsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch docs page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch docs page: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read docs page: %w", err)
	}

	matches := geminiModelPattern.FindAllString(string(body), -1)
	seen := map[string]bool{}
	var models []string
	for _, m := range matches {
		if !seen[m] {
			seen[m] = true
			models = append(models, m)
		}
	}
	return models, nil
}
