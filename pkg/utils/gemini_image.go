package utils

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiImageClient edits the source photo into a simulated result.
type GeminiImageClient struct {
	client *genai.Client
	model  string
}

func NewGeminiImageClient(ctx context.Context, apiKey, model string) (*GeminiImageClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini image client: %w", err)
	}
	return &GeminiImageClient{client: client, model: model}, nil
}

func (c *GeminiImageClient) Name() string { return "gemini-image" }

func (c *GeminiImageClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	content := &genai.Content{
		Role: "user",
		Parts: []*genai.Part{
			genai.NewPartFromText(req.Prompt),
			genai.NewPartFromBytes(req.Image, req.ImageMimeType),
		},
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, []*genai.Content{content}, &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	})
	if err != nil {
		return nil, newProviderError(c.Name(), err)
	}

	out := &GenerateResponse{}
	var text strings.Builder
	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 && out.Image == nil {
				out.Image = part.InlineData.Data
				out.ImageMimeType = part.InlineData.MIMEType
			}
			if part.Text != "" {
				text.WriteString(part.Text)
			}
		}
	}
	out.Text = text.String()

	if out.Image == nil {
		msg := "no image generated"
		if out.Text != "" {
			msg += ". Model output: " + out.Text
		}
		return nil, &ProviderError{Provider: c.Name(), Message: msg, Err: errEmptyOutput}
	}
	return out, nil
}
