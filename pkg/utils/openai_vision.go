package utils

import (
	"context"
	"encoding/base64"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIReportClient asks a vision chat model for the consultation report.
type OpenAIReportClient struct {
	client *openai.Client
	model  string
}

func NewOpenAIReportClient(apiKey, model string) *OpenAIReportClient {
	return NewOpenAIReportClientWithConfig(openai.DefaultConfig(apiKey), model)
}

func NewOpenAIReportClientWithConfig(cfg openai.ClientConfig, model string) *OpenAIReportClient {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIReportClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (c *OpenAIReportClient) Name() string { return "openai" }

func (c *OpenAIReportClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	dataURL := "data:" + req.ImageMimeType + ";base64," + base64.StdEncoding.EncodeToString(req.Image)
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: req.Prompt},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    dataURL,
							Detail: openai.ImageURLDetailAuto,
						},
					},
				},
			},
		},
	})
	if err != nil {
		return nil, newProviderError(c.Name(), err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, newProviderError(c.Name(), errEmptyOutput)
	}
	return &GenerateResponse{Text: resp.Choices[0].Message.Content}, nil
}
