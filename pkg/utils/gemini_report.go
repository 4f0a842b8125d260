package utils

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiReportClient produces consultation reports as JSON text.
type GeminiReportClient struct {
	client *genai.Client
	model  string
}

func NewGeminiReportClient(ctx context.Context, apiKey, model string) (*GeminiReportClient, error) {
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiReportClient{
		client: client,
		model:  model,
	}, nil
}

func (c *GeminiReportClient) Name() string { return "gemini" }

func (c *GeminiReportClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	m := c.client.GenerativeModel(c.model)
	m.ResponseMIMEType = "application/json"
	m.SetTemperature(0.2)

	resp, err := m.GenerateContent(ctx,
		genai.Text(req.Prompt),
		genai.Blob{MIMEType: req.ImageMimeType, Data: req.Image},
	)
	if err != nil {
		return nil, newProviderError(c.Name(), err)
	}

	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
		if sb.Len() > 0 {
			break
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return nil, newProviderError(c.Name(), errEmptyOutput)
	}
	return &GenerateResponse{Text: sb.String()}, nil
}

func (c *GeminiReportClient) Close() error {
	return c.client.Close()
}
