package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

// GenaiGenerator calls the Gemini API through the official SDK.
type GenaiGenerator struct {
	client *genai.Client
}

// NewGenaiGenerator creates a Gemini API client for apiKey.
func NewGenaiGenerator(ctx context.Context, apiKey string) (*GenaiGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: api key is empty")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: new client: %w", err)
	}
	return &GenaiGenerator{client: client}, nil
}

// Generate implements Generator.
func (g *GenaiGenerator) Generate(ctx context.Context, model string, req GenerateRequest) (string, error) {
	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	for _, img := range req.Images {
		parts = append(parts, genai.NewPartFromBytes(img.Data, img.MIMEType))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	gc := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(req.Temperature)),
		MaxOutputTokens: int32(req.MaxOutputTokens),
	}
	if req.System != "" {
		gc.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	resp, err := g.client.Models.GenerateContent(ctx, model, contents, gc)
	if err != nil {
		return "", convertGenaiError(err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", &StatusError{Code: 503, Message: "no candidates"}
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", &StatusError{Code: 503, Message: "empty text"}
	}
	return text, nil
}

// convertGenaiError maps SDK API errors to StatusError, carrying the
// server's RetryInfo delay when present.
func convertGenaiError(err error) error {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	return fmt.Errorf("%w: %w", &StatusError{
		Code:       apiErr.Code,
		Status:     apiErr.Status,
		Message:    apiErr.Message,
		RetryAfter: retryInfoDelay(apiErr.Details),
	}, err)
}

// retryInfoDelay reads google.rpc.RetryInfo.retryDelay (e.g. "17s") from error details.
func retryInfoDelay(details []map[string]any) time.Duration {
	for _, d := range details {
		t, _ := d["@type"].(string)
		if !strings.HasSuffix(t, "RetryInfo") {
			continue
		}
		raw, _ := d["retryDelay"].(string)
		if dur, err := time.ParseDuration(raw); err == nil && dur > 0 {
			return dur
		}
	}
	return 0
}
