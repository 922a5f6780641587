// Package provider implements adapters for the cloud vision and LLM APIs
// that back OCR and event parsing.
package provider

import (
	"context"
	"encoding/json"
	"time"
)

// Capability identifies what an adapter does with its input.
type Capability string

const (
	// CapabilityOCR extracts text from an image
	CapabilityOCR Capability = "ocr"

	// CapabilityParse turns extracted text into calendar event fields
	CapabilityParse Capability = "parse"
)

// Vendor identifies the upstream API operator and the credential that applies.
type Vendor string

const (
	VendorOpenAI Vendor = "openai"
	VendorGemini Vendor = "gemini"
	VendorClaude Vendor = "claude"
	VendorGoogle Vendor = "google"
)

// Vendors lists all known vendors in a stable order.
func Vendors() []Vendor {
	return []Vendor{VendorOpenAI, VendorGemini, VendorClaude, VendorGoogle}
}

// ID is the closed set of (capability, vendor) pairs the system can route to.
type ID string

const (
	// OpenAI is OpenAI chat completions used for parsing
	OpenAI ID = "openai"

	// OpenAIVision is OpenAI chat completions with image content used for OCR
	OpenAIVision ID = "openai-vision"

	// Gemini is the Gemini generateContent API used for parsing
	Gemini ID = "gemini"

	// GeminiVision is the Gemini generateContent API with inline image data used for OCR
	GeminiVision ID = "gemini-vision"

	// Claude is the Anthropic messages API used for parsing
	Claude ID = "claude"

	// ClaudeVision is the Anthropic messages API with image blocks used for OCR
	ClaudeVision ID = "claude-vision"

	// GoogleVision is the Google Cloud Vision annotate API (OCR only)
	GoogleVision ID = "google-vision"
)

// All returns every provider ID in a stable order.
func All() []ID {
	return []ID{OpenAI, OpenAIVision, Gemini, GeminiVision, Claude, ClaudeVision, GoogleVision}
}

// ForCapability returns the provider IDs offering the given capability.
func ForCapability(c Capability) []ID {
	var ids []ID
	for _, id := range All() {
		if id.Capability() == c {
			ids = append(ids, id)
		}
	}
	return ids
}

// Valid reports whether id is a known provider identifier.
func (id ID) Valid() bool {
	switch id {
	case OpenAI, OpenAIVision, Gemini, GeminiVision, Claude, ClaudeVision, GoogleVision:
		return true
	}
	return false
}

// Vendor returns the vendor whose credential applies to this provider.
func (id ID) Vendor() Vendor {
	switch id {
	case OpenAI, OpenAIVision:
		return VendorOpenAI
	case Gemini, GeminiVision:
		return VendorGemini
	case Claude, ClaudeVision:
		return VendorClaude
	case GoogleVision:
		return VendorGoogle
	}
	return ""
}

// Capability returns the capability this provider implements.
func (id ID) Capability() Capability {
	switch id {
	case OpenAIVision, GeminiVision, ClaudeVision, GoogleVision:
		return CapabilityOCR
	case OpenAI, Gemini, Claude:
		return CapabilityParse
	}
	return ""
}

// Credentials maps a vendor to its opaque secret. Secrets are resolved in
// the privileged context only and never appear verbatim in logs or debug
// payloads that leave it.
type Credentials map[Vendor]string

// Get returns the secret for a vendor, or "" when none is stored.
func (c Credentials) Get(v Vendor) string {
	if c == nil {
		return ""
	}
	return c[v]
}

// Event holds the calendar event fields produced by a parse provider.
// Start and End are local ISO-8601 timestamps ("2006-01-02T15:04:05") for
// timed events or plain dates ("2006-01-02") when HasTime is false.
type Event struct {
	Title    string `json:"title"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Location string `json:"location"`
	HasTime  bool   `json:"hasTime"`
}

// Request is the generic input an adapter translates into a vendor call.
type Request struct {
	// Model is the vendor model identifier to invoke
	Model string

	// ImageBase64 is the base64-encoded PNG for OCR requests (no data: prefix)
	ImageBase64 string

	// Text is the raw text for parse requests
	Text string

	// Now anchors relative date phrases; parse prompts instruct the model to
	// resolve them to the next future occurrence after this instant
	Now time.Time
}

// Debug captures the resolved endpoint and the exact outbound payload of a
// vendor call for diagnostics. It is pre-redaction; the router replaces
// secret and image fields before the envelope leaves the privileged context.
type Debug struct {
	Endpoint string          `json:"endpoint"`
	Model    string          `json:"model"`
	Payload  json.RawMessage `json:"payload"`
}

// Response is the generic result of an adapter call.
type Response struct {
	// Text is the extracted text (OCR capability)
	Text string

	// Event is the parsed calendar event (parse capability)
	Event *Event

	// Debug is always populated, on success and on upstream failure alike
	Debug *Debug
}

// Adapter translates generic requests into one vendor-specific HTTP call
// and the vendor response back into a generic result. Adapters never retry
// on their own beyond documented vendor quirks.
type Adapter interface {
	// ID returns the provider identifier this adapter serves
	ID() ID

	// Execute performs one call against the vendor API. It fails with
	// ErrMissingCredential before any network I/O when the vendor secret
	// is empty.
	Execute(ctx context.Context, creds Credentials, req Request) (*Response, error)
}
