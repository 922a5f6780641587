package provider

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGeminiAdapter_OCRSuccess(t *testing.T) {
	var gotPath, gotKey, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		writeJSON(w, http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"Picnic Saturday at noon"}]}}]}`)
	}))
	defer srv.Close()

	adapter := NewGeminiAdapter(GeminiVision, srv.URL, srv.Client(), testLogger(t))
	creds := Credentials{VendorGemini: "AIzaTest"}

	resp, err := adapter.Execute(context.Background(), creds, Request{
		Model:       "gemini-2.0-flash",
		ImageBase64: "aGVsbG8=",
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if resp.Text != "Picnic Saturday at noon" {
		t.Errorf("unexpected text %q", resp.Text)
	}
	if gotPath != "/v1beta/models/gemini-2.0-flash:generateContent" {
		t.Errorf("unexpected path %s", gotPath)
	}
	if gotKey != "AIzaTest" {
		t.Errorf("expected key query parameter, got %q", gotKey)
	}
	if !strings.Contains(gotBody, `"inline_data"`) {
		t.Error("expected inline_data image part in request body")
	}
	if !strings.Contains(gotBody, `"mime_type":"image/png"`) {
		t.Error("expected image/png mime type in request body")
	}
}

func TestGeminiAdapter_ParseSuccess(t *testing.T) {
	eventJSON := `{\"title\":\"Picnic\",\"start\":\"2026-09-05T12:00:00\",\"end\":\"2026-09-05T13:00:00\",\"location\":\"Riverside Park\",\"hasTime\":true}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"`+eventJSON+`"}]}}]}`)
	}))
	defer srv.Close()

	adapter := NewGeminiAdapter(Gemini, srv.URL, srv.Client(), testLogger(t))
	creds := Credentials{VendorGemini: "AIzaTest"}

	resp, err := adapter.Execute(context.Background(), creds, Request{
		Model: "gemini-2.0-flash",
		Text:  "Picnic Saturday at noon in Riverside Park",
		Now:   testNow(),
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if resp.Event == nil || resp.Event.Title != "Picnic" {
		t.Fatalf("expected Picnic event, got %+v", resp.Event)
	}
}

func TestGeminiAdapter_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusBadRequest, `{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`)
	}))
	defer srv.Close()

	adapter := NewGeminiAdapter(Gemini, srv.URL, srv.Client(), testLogger(t))
	creds := Credentials{VendorGemini: "AIzaTest"}

	_, err := adapter.Execute(context.Background(), creds, Request{Model: "gemini-2.0-flash", Text: "x", Now: testNow()})
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upstream.Status != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", upstream.Status)
	}
	if !strings.Contains(upstream.Message, "API key not valid") {
		t.Errorf("expected vendor message, got %q", upstream.Message)
	}
}

func TestGeminiAdapter_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"candidates":[]}`)
	}))
	defer srv.Close()

	adapter := NewGeminiAdapter(GeminiVision, srv.URL, srv.Client(), testLogger(t))
	creds := Credentials{VendorGemini: "AIzaTest"}

	_, err := adapter.Execute(context.Background(), creds, Request{Model: "gemini-2.0-flash", ImageBase64: "aGVsbG8="})
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestGeminiAdapter_MissingCredential(t *testing.T) {
	adapter := NewGeminiAdapter(Gemini, "http://127.0.0.1:1", nil, testLogger(t))

	_, err := adapter.Execute(context.Background(), Credentials{}, Request{Model: "gemini-2.0-flash", Text: "x"})
	if !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}
}

func TestGeminiAdapter_DebugEndpointCarriesKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`)
	}))
	defer srv.Close()

	adapter := NewGeminiAdapter(GeminiVision, srv.URL, srv.Client(), testLogger(t))
	creds := Credentials{VendorGemini: "AIzaSecret"}

	resp, err := adapter.Execute(context.Background(), creds, Request{Model: "gemini-2.0-flash", ImageBase64: "aGVsbG8="})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	// The raw debug record includes the key; redaction happens at the
	// routing boundary, not here.
	if !strings.Contains(resp.Debug.Endpoint, "key=AIzaSecret") {
		t.Errorf("expected raw key in debug endpoint, got %s", resp.Debug.Endpoint)
	}
}
