package provider

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/jbird-nerd/CalendarCaptureExtension/internal/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "console"})
	if err != nil {
		t.Fatalf("logger.New() error = %v", err)
	}
	return log
}

func testNow() time.Time {
	return time.Date(2026, 8, 30, 10, 0, 0, 0, time.Local)
}

// chatCompletionJSON builds an OpenAI chat completion response body.
func chatCompletionJSON(content, finishReason string) string {
	return fmt.Sprintf(`{
		"id": "chatcmpl-test",
		"object": "chat.completion",
		"created": 1,
		"model": "gpt-4o",
		"choices": [{
			"index": 0,
			"message": {"role": "assistant", "content": %q},
			"finish_reason": %q
		}]
	}`, content, finishReason)
}

// claudeMessageJSON builds an Anthropic messages response body.
func claudeMessageJSON(text string) string {
	return fmt.Sprintf(`{
		"id": "msg_test",
		"type": "message",
		"role": "assistant",
		"model": "claude-sonnet-4-20250514",
		"content": [{"type": "text", "text": %q}],
		"stop_reason": "end_turn",
		"stop_sequence": null,
		"usage": {"input_tokens": 10, "output_tokens": 10}
	}`, text)
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
