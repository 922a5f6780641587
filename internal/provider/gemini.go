package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/jbird-nerd/CalendarCaptureExtension/internal/logger"
)

const geminiDefaultBaseURL = "https://generativelanguage.googleapis.com"

// GeminiAdapter serves the gemini and gemini-vision providers through the
// generateContent REST API. The key travels as a query parameter, which is
// why the debug endpoint is part of what the router redacts.
type GeminiAdapter struct {
	id      ID
	baseURL string
	client  *http.Client
	logger  *logger.Logger
}

// geminiRequest is the generateContent request body.
type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

// NewGeminiAdapter creates an adapter for one of the Gemini provider IDs.
func NewGeminiAdapter(id ID, baseURL string, client *http.Client, log *logger.Logger) *GeminiAdapter {
	if log == nil {
		log = logger.Get()
	}
	if baseURL == "" {
		baseURL = geminiDefaultBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}
	return &GeminiAdapter{id: id, baseURL: strings.TrimRight(baseURL, "/"), client: client, logger: log}
}

// ID returns the provider identifier this adapter serves.
func (a *GeminiAdapter) ID() ID {
	return a.id
}

// Execute performs one generateContent call for OCR or parse.
func (a *GeminiAdapter) Execute(ctx context.Context, creds Credentials, req Request) (*Response, error) {
	key := creds.Get(VendorGemini)
	if key == "" {
		return nil, MissingCredential(VendorGemini)
	}

	var parts []geminiPart
	switch a.id.Capability() {
	case CapabilityOCR:
		parts = []geminiPart{
			{Text: ocrPrompt},
			{InlineData: &geminiInlineData{MimeType: "image/png", Data: req.ImageBase64}},
		}
	case CapabilityParse:
		parts = []geminiPart{{Text: parsePrompt(req.Now, req.Text)}}
	default:
		return nil, fmt.Errorf("provider %s has no capability", a.id)
	}

	body := geminiRequest{
		Contents:         []geminiContent{{Parts: parts}},
		GenerationConfig: &geminiGenerationConfig{Temperature: 0},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", a.baseURL, url.PathEscape(req.Model))
	debug := &Debug{
		Endpoint: endpoint + "?key=" + key,
		Model:    req.Model,
		Payload:  payload,
	}

	a.logger.WithProvider(string(a.id)).WithFields("model", req.Model).Debug("Calling Gemini generateContent")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"?key="+url.QueryEscape(key), bytes.NewReader(payload))
	if err != nil {
		return &Response{Debug: debug}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := a.client.Do(httpReq)
	if err != nil {
		return &Response{Debug: debug}, fmt.Errorf("gemini request: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return &Response{Debug: debug}, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		msg := gjson.GetBytes(respBody, "error.message").String()
		if msg == "" {
			msg = string(respBody)
		}
		return &Response{Debug: debug}, NewUpstreamError(httpResp.StatusCode, msg)
	}

	text := gjson.GetBytes(respBody, "candidates.0.content.parts.0.text")
	if !text.Exists() {
		return &Response{Debug: debug}, MalformedResponse("no candidate text in generateContent response")
	}

	if a.id.Capability() == CapabilityOCR {
		return &Response{Text: strings.TrimSpace(text.String()), Debug: debug}, nil
	}

	event, err := decodeEvent(text.String())
	if err != nil {
		return &Response{Debug: debug}, err
	}
	return &Response{Event: event, Debug: debug}, nil
}
