package provider

import (
	"fmt"
	"strings"
	"time"
)

// ocrPrompt instructs a vision model to act as a plain text extractor.
const ocrPrompt = `Extract all text visible in this image.
Return only the extracted text, preserving line breaks and reading order.
Do not describe the image and do not add any commentary.`

// parseInstructions is the shared event-extraction contract. Date
// resolution is delegated to the model: relative and recurring phrases
// ("next Tuesday", "every Friday", "tomorrow at noon") must resolve to the
// next future occurrence after the supplied current time. Adapters do not
// verify the result locally.
const parseInstructions = `You convert text into a single calendar event.

Current local time: %s (%s).

Produce a JSON object with exactly these fields:
  "title":    short event title
  "start":    local ISO-8601 start, "2006-01-02T15:04:05" when a time of day
              is known, otherwise the plain date "2006-01-02"
  "end":      local ISO-8601 end in the same format as "start"; when the text
              gives no duration, use one hour after "start" for timed events
              or the same date for all-day events
  "location": place or address, "" when none is mentioned
  "hasTime":  true when the text specifies a time of day, false for all-day

Rules:
- Resolve any relative or recurring date phrase to its NEXT occurrence
  strictly after the current time given above.
- Never emit timestamps in the past.
- Do not invent details that are not in the text.`

// parsePrompt builds the parse prompt for vendors expected to answer with
// bare JSON.
func parsePrompt(now time.Time, text string) string {
	var b strings.Builder
	fmt.Fprintf(&b, parseInstructions, now.Format("2006-01-02T15:04:05"), now.Weekday())
	b.WriteString("\n\nRespond with ONLY the JSON object, no markdown, no explanation.\n\nText:\n")
	b.WriteString(text)
	return b.String()
}

// parsePromptDelimited builds the parse prompt for vendors that wrap their
// answer in prose; the JSON object must appear between <json> and </json>
// tags so the adapter can cut it out before decoding.
func parsePromptDelimited(now time.Time, text string) string {
	var b strings.Builder
	fmt.Fprintf(&b, parseInstructions, now.Format("2006-01-02T15:04:05"), now.Weekday())
	b.WriteString("\n\nWrap the JSON object in <json> and </json> tags. Output nothing else inside the tags.\n\nText:\n")
	b.WriteString(text)
	return b.String()
}

// stripCodeFences removes a surrounding markdown code fence from a model
// answer, tolerating an optional language tag.
func stripCodeFences(s string) string {
	out := strings.TrimSpace(s)
	if !strings.HasPrefix(out, "```") {
		return out
	}
	out = strings.TrimPrefix(out, "```")
	if idx := strings.Index(out, "\n"); idx >= 0 && !strings.HasPrefix(out, "{") {
		out = out[idx+1:]
	}
	out = strings.TrimSuffix(strings.TrimSpace(out), "```")
	return strings.TrimSpace(out)
}

// extractDelimited returns the content between <json> and </json>, or
// ok=false when the tags are absent or out of order.
func extractDelimited(s string) (string, bool) {
	const openTag, closeTag = "<json>", "</json>"
	start := strings.Index(s, openTag)
	if start < 0 {
		return "", false
	}
	rest := s[start+len(openTag):]
	end := strings.Index(rest, closeTag)
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}
