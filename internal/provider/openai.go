package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/jbird-nerd/CalendarCaptureExtension/internal/logger"
)

const (
	openaiDefaultBaseURL = "https://api.openai.com/v1"

	// ocrTokenBudget is the first-attempt completion budget for OCR calls;
	// ocrTokenBudgetExpanded is used for the single retry after a
	// token-limit failure (a documented OpenAI vision quirk, not a generic
	// retry policy).
	ocrTokenBudget         = 1024
	ocrTokenBudgetExpanded = 4096

	parseTokenBudget = 512
)

// OpenAIAdapter serves the openai and openai-vision providers through the
// chat completions API.
type OpenAIAdapter struct {
	id      ID
	baseURL string
	logger  *logger.Logger
}

// NewOpenAIAdapter creates an adapter for one of the OpenAI provider IDs.
// baseURL overrides the API endpoint; empty means the public endpoint.
func NewOpenAIAdapter(id ID, baseURL string, log *logger.Logger) *OpenAIAdapter {
	if log == nil {
		log = logger.Get()
	}
	if baseURL == "" {
		baseURL = openaiDefaultBaseURL
	}
	return &OpenAIAdapter{id: id, baseURL: baseURL, logger: log}
}

// ID returns the provider identifier this adapter serves.
func (a *OpenAIAdapter) ID() ID {
	return a.id
}

// Execute performs one chat completion call for OCR or parse.
func (a *OpenAIAdapter) Execute(ctx context.Context, creds Credentials, req Request) (*Response, error) {
	key := creds.Get(VendorOpenAI)
	if key == "" {
		return nil, MissingCredential(VendorOpenAI)
	}

	client := openai.NewClient(
		option.WithAPIKey(key),
		option.WithBaseURL(a.baseURL),
		option.WithMaxRetries(0),
	)

	switch a.id.Capability() {
	case CapabilityOCR:
		return a.ocr(ctx, &client, req)
	case CapabilityParse:
		return a.parse(ctx, &client, req)
	}
	return nil, fmt.Errorf("provider %s has no capability", a.id)
}

func (a *OpenAIAdapter) ocr(ctx context.Context, client *openai.Client, req Request) (*Response, error) {
	a.logger.WithProvider(string(a.id)).WithFields("model", req.Model).Debug("Running OCR with OpenAI")

	params := a.ocrParams(req, ocrTokenBudget)
	debug := a.debugFor(req.Model, params)

	resp, err := client.Chat.Completions.New(ctx, params)
	retry := false
	if err != nil {
		retry = isTokenLimitError(err)
	} else if truncatedEmpty(resp) {
		retry = true
		err = MalformedResponse("completion truncated at token budget with empty content")
	}
	if retry {
		// One retry with an expanded budget, then surface whatever happens.
		a.logger.WithProvider(string(a.id)).Debug("Token budget exhausted, retrying once with expanded budget")
		params = a.ocrParams(req, ocrTokenBudgetExpanded)
		debug = a.debugFor(req.Model, params)
		resp, err = client.Chat.Completions.New(ctx, params)
		if err == nil && truncatedEmpty(resp) {
			err = MalformedResponse("completion truncated at token budget with empty content")
		}
	}
	if err != nil {
		return &Response{Debug: debug}, mapOpenAIError(err)
	}

	if len(resp.Choices) == 0 {
		return &Response{Debug: debug}, MalformedResponse("no choices in completion")
	}
	return &Response{
		Text:  strings.TrimSpace(resp.Choices[0].Message.Content),
		Debug: debug,
	}, nil
}

func (a *OpenAIAdapter) parse(ctx context.Context, client *openai.Client, req Request) (*Response, error) {
	a.logger.WithProvider(string(a.id)).WithFields("model", req.Model).Debug("Parsing event with OpenAI")

	params := openai.ChatCompletionNewParams{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(parsePrompt(req.Now, req.Text)),
		},
		MaxTokens:   openai.Int(parseTokenBudget),
		Temperature: openai.Float(0),
	}
	debug := a.debugFor(req.Model, params)

	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return &Response{Debug: debug}, mapOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return &Response{Debug: debug}, MalformedResponse("no choices in completion")
	}

	event, err := decodeEvent(resp.Choices[0].Message.Content)
	if err != nil {
		return &Response{Debug: debug}, err
	}
	return &Response{Event: event, Debug: debug}, nil
}

func (a *OpenAIAdapter) ocrParams(req Request, maxTokens int64) openai.ChatCompletionNewParams {
	return openai.ChatCompletionNewParams{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(ocrPrompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: fmt.Sprintf("data:image/png;base64,%s", req.ImageBase64),
				}),
			}),
		},
		MaxTokens:   openai.Int(maxTokens),
		Temperature: openai.Float(0),
	}
}

func (a *OpenAIAdapter) debugFor(model string, params openai.ChatCompletionNewParams) *Debug {
	payload, err := json.Marshal(params)
	if err != nil {
		payload = []byte("{}")
	}
	return &Debug{
		Endpoint: a.baseURL + "/chat/completions",
		Model:    model,
		Payload:  payload,
	}
}

// truncatedEmpty reports a completion that hit the token budget before
// producing any content.
func truncatedEmpty(resp *openai.ChatCompletion) bool {
	if resp == nil || len(resp.Choices) == 0 {
		return false
	}
	c := resp.Choices[0]
	return c.FinishReason == "length" && strings.TrimSpace(c.Message.Content) == ""
}

// isTokenLimitError matches the vendor messages OpenAI uses for completion
// and context token limits.
func isTokenLimitError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "max_tokens") ||
		strings.Contains(msg, "max tokens") ||
		strings.Contains(msg, "context length") ||
		strings.Contains(msg, "context_length")
}

func mapOpenAIError(err error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		return NewUpstreamError(apierr.StatusCode, apierr.Error())
	}
	return fmt.Errorf("openai request: %w", err)
}

// decodeEvent decodes a model answer into an Event, tolerating a markdown
// code fence around the JSON.
func decodeEvent(content string) (*Event, error) {
	cleaned := stripCodeFences(content)
	var event Event
	if err := json.Unmarshal([]byte(cleaned), &event); err != nil {
		return nil, MalformedResponse(fmt.Sprintf("event JSON: %v", err))
	}
	if event.Title == "" && event.Start == "" {
		return nil, MalformedResponse("event JSON missing title and start")
	}
	return &event, nil
}
