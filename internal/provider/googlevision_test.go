package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGoogleVisionAdapter_OCRSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "images:annotate") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		writeJSON(w, http.StatusOK, `{"responses":[{"fullTextAnnotation":{"text":"Yoga class\nMonday 6 PM\n"}}]}`)
	}))
	defer srv.Close()

	adapter := NewGoogleVisionAdapter(srv.URL, testLogger(t))
	creds := Credentials{VendorGoogle: "AIzaTest"}

	resp, err := adapter.Execute(context.Background(), creds, Request{ImageBase64: "aGVsbG8="})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if resp.Text != "Yoga class\nMonday 6 PM" {
		t.Errorf("unexpected text %q", resp.Text)
	}
}

func TestGoogleVisionAdapter_TextAnnotationFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"responses":[{"textAnnotations":[{"description":"fallback text"}]}]}`)
	}))
	defer srv.Close()

	adapter := NewGoogleVisionAdapter(srv.URL, testLogger(t))
	creds := Credentials{VendorGoogle: "AIzaTest"}

	resp, err := adapter.Execute(context.Background(), creds, Request{ImageBase64: "aGVsbG8="})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if resp.Text != "fallback text" {
		t.Errorf("unexpected text %q", resp.Text)
	}
}

func TestGoogleVisionAdapter_PerImageError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"responses":[{"error":{"code":3,"message":"Bad image data"}}]}`)
	}))
	defer srv.Close()

	adapter := NewGoogleVisionAdapter(srv.URL, testLogger(t))
	creds := Credentials{VendorGoogle: "AIzaTest"}

	_, err := adapter.Execute(context.Background(), creds, Request{ImageBase64: "not-a-png"})
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if !strings.Contains(upstream.Message, "Bad image data") {
		t.Errorf("expected vendor message, got %q", upstream.Message)
	}
}

func TestGoogleVisionAdapter_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusForbidden, `{"error":{"code":403,"message":"The caller does not have permission","status":"PERMISSION_DENIED"}}`)
	}))
	defer srv.Close()

	adapter := NewGoogleVisionAdapter(srv.URL, testLogger(t))
	creds := Credentials{VendorGoogle: "AIzaTest"}

	_, err := adapter.Execute(context.Background(), creds, Request{ImageBase64: "aGVsbG8="})
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upstream.Status != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", upstream.Status)
	}
}

func TestGoogleVisionAdapter_MissingCredential(t *testing.T) {
	adapter := NewGoogleVisionAdapter("http://127.0.0.1:1", testLogger(t))

	_, err := adapter.Execute(context.Background(), Credentials{}, Request{ImageBase64: "aGVsbG8="})
	if !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}
}
