package router

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/jbird-nerd/CalendarCaptureExtension/internal/provider"
)

// RedactionPlaceholder replaces secret and image fields in debug payloads
// before an envelope leaves the privileged context.
const RedactionPlaceholder = "[REDACTED]"

var keyParamPattern = regexp.MustCompile(`key=[^&\s"]+`)

// redactDebug returns a copy of a debug record safe to hand to an
// unprivileged context: key query parameters and inline image data are
// replaced with the fixed placeholder.
func redactDebug(d *provider.Debug) *provider.Debug {
	if d == nil {
		return nil
	}
	return &provider.Debug{
		Endpoint: keyParamPattern.ReplaceAllString(d.Endpoint, "key="+RedactionPlaceholder),
		Model:    d.Model,
		Payload:  redactPayload(d.Payload),
	}
}

func redactPayload(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return raw
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		// Unparsable payloads are replaced wholesale rather than leaked.
		return json.RawMessage(`"` + RedactionPlaceholder + `"`)
	}
	v = redactValue("", "", v)
	out, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`"` + RedactionPlaceholder + `"`)
	}
	return out
}

// redactValue walks the payload tree. Image bytes appear as data URLs
// (OpenAI), as "data" fields inside source/inline_data blocks (Claude,
// Gemini), or as the "content" field of a vision image object.
func redactValue(parentKey, key string, v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, child := range val {
			val[k] = redactValue(key, k, child)
		}
		return val
	case []any:
		for i, child := range val {
			val[i] = redactValue(parentKey, key, child)
		}
		return val
	case string:
		if strings.HasPrefix(val, "data:image") {
			return RedactionPlaceholder
		}
		if key == "data" && (parentKey == "source" || parentKey == "inline_data" || parentKey == "inlineData") {
			return RedactionPlaceholder
		}
		if key == "content" && parentKey == "image" {
			return RedactionPlaceholder
		}
		return keyParamPattern.ReplaceAllString(val, "key="+RedactionPlaceholder)
	default:
		return v
	}
}
