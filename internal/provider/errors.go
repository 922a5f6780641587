package provider

import (
	"errors"
	"fmt"
	"strings"
)

const maxVendorMessageChars = 200

var (
	// ErrMissingCredential indicates the vendor secret for a request was empty.
	// Surfaced before any network call is attempted.
	ErrMissingCredential = errors.New("missing credential")

	// ErrMalformedResponse indicates the vendor returned a 2xx response whose
	// body could not be decoded into the expected shape.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrNoModelSelected indicates no model selection exists for the
	// requested capability and none was supplied as an override.
	ErrNoModelSelected = errors.New("no model selected")

	// ErrConfigurationIncomplete indicates no usable provider/model pair
	// exists at pipeline start.
	ErrConfigurationIncomplete = errors.New("configuration incomplete")
)

// UpstreamError represents a non-2xx vendor HTTP response or a vendor-level
// error object inside an otherwise successful response.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error %d: %s", e.Status, e.Message)
}

// NewUpstreamError builds an UpstreamError with the vendor message truncated
// and scrubbed of anything that looks like an API key.
func NewUpstreamError(status int, message string) *UpstreamError {
	return &UpstreamError{
		Status:  status,
		Message: sanitizeVendorMessage(message),
	}
}

// MissingCredential wraps ErrMissingCredential with the vendor it concerns.
func MissingCredential(v Vendor) error {
	return fmt.Errorf("%w for vendor %s", ErrMissingCredential, v)
}

// MalformedResponse wraps ErrMalformedResponse with a short reason.
func MalformedResponse(reason string) error {
	return fmt.Errorf("%w: %s", ErrMalformedResponse, reason)
}

// sanitizeVendorMessage truncates a vendor error body and scrubs key-shaped
// substrings so upstream failures are safe to log and surface.
func sanitizeVendorMessage(input string) string {
	scrubbed := scrubSecretPatterns(input)
	runes := []rune(scrubbed)
	if len(runes) <= maxVendorMessageChars {
		return scrubbed
	}
	return string(runes[:maxVendorMessageChars]) + "..."
}

func scrubSecretPatterns(input string) string {
	out := input
	for _, prefix := range []string{"sk-", "AIza", "key="} {
		from := 0
		for from < len(out) {
			idx := strings.Index(out[from:], prefix)
			if idx < 0 {
				break
			}
			idx += from
			end := idx + len(prefix)
			for end < len(out) {
				ch := out[end]
				if (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') ||
					ch == '-' || ch == '_' || ch == '.' {
					end++
					continue
				}
				break
			}
			// A bare prefix with nothing key-shaped after it is not a
			// secret; skip it and keep scanning.
			if end == idx+len(prefix) {
				from = end
				continue
			}
			out = out[:idx] + "[REDACTED]" + out[end:]
			from = idx + len("[REDACTED]")
		}
	}
	return out
}
