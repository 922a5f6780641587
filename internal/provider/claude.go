package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/jbird-nerd/CalendarCaptureExtension/internal/logger"
)

const (
	claudeDefaultBaseURL = "https://api.anthropic.com"

	claudeOCRTokenBudget   = 2048
	claudeParseTokenBudget = 512
)

// ClaudeAdapter serves the claude and claude-vision providers through the
// Anthropic messages API. Requests carry the API version header and the
// direct-browser-access header required by the original client environment.
type ClaudeAdapter struct {
	id      ID
	baseURL string
	logger  *logger.Logger
}

// NewClaudeAdapter creates an adapter for one of the Claude provider IDs.
func NewClaudeAdapter(id ID, baseURL string, log *logger.Logger) *ClaudeAdapter {
	if log == nil {
		log = logger.Get()
	}
	if baseURL == "" {
		baseURL = claudeDefaultBaseURL
	}
	return &ClaudeAdapter{id: id, baseURL: strings.TrimRight(baseURL, "/"), logger: log}
}

// ID returns the provider identifier this adapter serves.
func (a *ClaudeAdapter) ID() ID {
	return a.id
}

// Execute performs one messages call for OCR or parse.
func (a *ClaudeAdapter) Execute(ctx context.Context, creds Credentials, req Request) (*Response, error) {
	key := creds.Get(VendorClaude)
	if key == "" {
		return nil, MissingCredential(VendorClaude)
	}

	client := anthropic.NewClient(
		option.WithAPIKey(key),
		option.WithBaseURL(a.baseURL),
		option.WithMaxRetries(0),
		option.WithHeader("anthropic-dangerous-direct-browser-access", "true"),
	)

	var params anthropic.MessageNewParams
	switch a.id.Capability() {
	case CapabilityOCR:
		params = anthropic.MessageNewParams{
			Model:     anthropic.Model(req.Model),
			MaxTokens: claudeOCRTokenBudget,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(
					anthropic.NewTextBlock(ocrPrompt),
					anthropic.NewImageBlockBase64("image/png", req.ImageBase64),
				),
			},
			Temperature: anthropic.Float(0),
		}
	case CapabilityParse:
		params = anthropic.MessageNewParams{
			Model:     anthropic.Model(req.Model),
			MaxTokens: claudeParseTokenBudget,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(
					anthropic.NewTextBlock(parsePromptDelimited(req.Now, req.Text)),
				),
			},
			Temperature: anthropic.Float(0),
		}
	default:
		return nil, fmt.Errorf("provider %s has no capability", a.id)
	}

	debug := a.debugFor(req.Model, params)

	a.logger.WithProvider(string(a.id)).WithFields("model", req.Model).Debug("Calling Anthropic messages API")
	resp, err := client.Messages.New(ctx, params)
	if err != nil {
		return &Response{Debug: debug}, mapClaudeError(err)
	}

	content := ""
	for _, block := range resp.Content {
		if block.Type == "text" {
			content = block.Text
			break
		}
	}
	if content == "" {
		return &Response{Debug: debug}, MalformedResponse("no text content in message")
	}

	if a.id.Capability() == CapabilityOCR {
		return &Response{Text: strings.TrimSpace(content), Debug: debug}, nil
	}

	// Claude answers in prose around the payload; the event JSON must sit
	// between <json> tags or the response counts as malformed.
	delimited, ok := extractDelimited(content)
	if !ok {
		return &Response{Debug: debug}, MalformedResponse("no <json> delimiter in message")
	}
	var event Event
	if err := json.Unmarshal([]byte(delimited), &event); err != nil {
		return &Response{Debug: debug}, MalformedResponse(fmt.Sprintf("delimited event JSON: %v", err))
	}
	return &Response{Event: &event, Debug: debug}, nil
}

func (a *ClaudeAdapter) debugFor(model string, params anthropic.MessageNewParams) *Debug {
	payload, err := json.Marshal(params)
	if err != nil {
		payload = []byte("{}")
	}
	return &Debug{
		Endpoint: a.baseURL + "/v1/messages",
		Model:    model,
		Payload:  payload,
	}
}

func mapClaudeError(err error) error {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		return NewUpstreamError(apierr.StatusCode, apierr.Error())
	}
	return fmt.Errorf("anthropic request: %w", err)
}
