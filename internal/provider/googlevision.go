package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"

	"github.com/jbird-nerd/CalendarCaptureExtension/internal/logger"
)

const googleVisionDefaultBaseURL = "https://vision.googleapis.com"

// GoogleVisionAdapter serves the google-vision provider through the Cloud
// Vision images:annotate API. OCR only; there is no parse counterpart.
type GoogleVisionAdapter struct {
	baseURL string
	logger  *logger.Logger
}

// NewGoogleVisionAdapter creates the Cloud Vision OCR adapter.
func NewGoogleVisionAdapter(baseURL string, log *logger.Logger) *GoogleVisionAdapter {
	if log == nil {
		log = logger.Get()
	}
	if baseURL == "" {
		baseURL = googleVisionDefaultBaseURL
	}
	return &GoogleVisionAdapter{baseURL: strings.TrimRight(baseURL, "/"), logger: log}
}

// ID returns the provider identifier this adapter serves.
func (a *GoogleVisionAdapter) ID() ID {
	return GoogleVision
}

// Execute performs one DOCUMENT_TEXT_DETECTION annotate call.
func (a *GoogleVisionAdapter) Execute(ctx context.Context, creds Credentials, req Request) (*Response, error) {
	key := creds.Get(VendorGoogle)
	if key == "" {
		return nil, MissingCredential(VendorGoogle)
	}

	svc, err := vision.NewService(ctx,
		option.WithAPIKey(key),
		option.WithEndpoint(a.baseURL),
	)
	if err != nil {
		return nil, fmt.Errorf("create vision service: %w", err)
	}

	annotate := &vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{
			{
				Image:        &vision.Image{Content: req.ImageBase64},
				Features:     []*vision.Feature{{Type: "DOCUMENT_TEXT_DETECTION"}},
				ImageContext: &vision.ImageContext{LanguageHints: []string{"en"}},
			},
		},
	}

	payload, err := json.Marshal(annotate)
	if err != nil {
		payload = []byte("{}")
	}
	debug := &Debug{
		Endpoint: a.baseURL + "/v1/images:annotate?key=" + key,
		Model:    req.Model,
		Payload:  payload,
	}

	a.logger.WithProvider(string(GoogleVision)).Debug("Calling Cloud Vision images:annotate")

	resp, err := svc.Images.Annotate(annotate).Context(ctx).Do()
	if err != nil {
		return &Response{Debug: debug}, mapGoogleError(err)
	}
	if len(resp.Responses) == 0 {
		return &Response{Debug: debug}, MalformedResponse("empty annotate response")
	}

	r := resp.Responses[0]
	if r.Error != nil {
		return &Response{Debug: debug}, NewUpstreamError(int(r.Error.Code), r.Error.Message)
	}

	text := ""
	if r.FullTextAnnotation != nil {
		text = r.FullTextAnnotation.Text
	} else if len(r.TextAnnotations) > 0 {
		text = r.TextAnnotations[0].Description
	}
	return &Response{Text: strings.TrimSpace(text), Debug: debug}, nil
}

func mapGoogleError(err error) error {
	var apierr *googleapi.Error
	if errors.As(err, &apierr) {
		return NewUpstreamError(apierr.Code, apierr.Message)
	}
	return fmt.Errorf("vision request: %w", err)
}
