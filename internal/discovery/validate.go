package discovery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/openai/openai-go"
	openaiopt "github.com/openai/openai-go/option"
	"google.golang.org/api/googleapi"
	gapioption "google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"

	"github.com/jbird-nerd/CalendarCaptureExtension/internal/provider"
)

// ValidateKey issues one minimal authenticated call for a vendor and
// reports whether the secret was accepted. It never mutates cached model
// lists and never retries; a network failure counts as not validated.
func (s *Service) ValidateKey(ctx context.Context, v provider.Vendor, secret string) bool {
	if secret == "" {
		return false
	}

	var valid bool
	switch v {
	case provider.VendorOpenAI:
		valid = s.validateOpenAIKey(ctx, secret)
	case provider.VendorClaude:
		valid = s.validateClaudeKey(ctx, secret)
	case provider.VendorGemini:
		valid = s.validateGeminiKey(ctx, secret)
	case provider.VendorGoogle:
		valid = s.validateGoogleKey(ctx, secret)
	default:
		return false
	}

	s.logger.WithFields("vendor", v, "valid", valid).Debug("Key validation completed")
	return valid
}

func (s *Service) validateOpenAIKey(ctx context.Context, secret string) bool {
	opts := []openaiopt.RequestOption{
		openaiopt.WithAPIKey(secret),
		openaiopt.WithMaxRetries(0),
	}
	if s.endpoints.OpenAI != "" {
		opts = append(opts, openaiopt.WithBaseURL(s.endpoints.OpenAI))
	}
	client := openai.NewClient(opts...)

	_, err := client.Models.List(ctx)
	return err == nil
}

func (s *Service) validateClaudeKey(ctx context.Context, secret string) bool {
	opts := []anthropicopt.RequestOption{
		anthropicopt.WithAPIKey(secret),
		anthropicopt.WithMaxRetries(0),
		anthropicopt.WithHeader("anthropic-dangerous-direct-browser-access", "true"),
	}
	if s.endpoints.Claude != "" {
		opts = append(opts, anthropicopt.WithBaseURL(s.endpoints.Claude))
	}
	client := anthropic.NewClient(opts...)

	_, err := client.Models.List(ctx, anthropic.ModelListParams{})
	return err == nil
}

// validateGeminiKey probes the key-scoped models listing. The response body
// is discarded; listing results never feed discovery, which scrapes the
// docs page instead.
func (s *Service) validateGeminiKey(ctx context.Context, secret string) bool {
	base := s.endpoints.Gemini
	if base == "" {
		base = "https://generativelanguage.googleapis.com"
	}
	endpoint := fmt.Sprintf("%s/v1beta/models?key=%s", base, url.QueryEscape(secret))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode == http.StatusOK
}

// validateGoogleKey issues an intentionally empty annotate call. Cloud
// Vision rejects a bad key with 403; any other outcome, including the 400
// the empty request earns, means the key itself was accepted.
func (s *Service) validateGoogleKey(ctx context.Context, secret string) bool {
	opts := []gapioption.ClientOption{gapioption.WithAPIKey(secret)}
	if s.endpoints.GoogleVision != "" {
		opts = append(opts, gapioption.WithEndpoint(s.endpoints.GoogleVision))
	}
	svc, err := vision.NewService(ctx, opts...)
	if err != nil {
		return false
	}

	_, err = svc.Images.Annotate(&vision.BatchAnnotateImagesRequest{}).Context(ctx).Do()
	if err == nil {
		return true
	}
	var apierr *googleapi.Error
	if errors.As(err, &apierr) {
		return apierr.Code != http.StatusForbidden
	}
	return false
}
