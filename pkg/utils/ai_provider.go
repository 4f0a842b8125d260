package utils

import (
	"context"
	"errors"
	"fmt"
)

type Modality string

const (
	ModalityText  Modality = "text"
	ModalityImage Modality = "image"
)

type GenerateRequest struct {
	Prompt        string
	Image         []byte
	ImageMimeType string
	Modality      Modality
}

type GenerateResponse struct {
	Text          string
	Image         []byte
	ImageMimeType string
}

// AIProvider sends one prompt plus source photo to a generative model.
// Implementations make a single attempt; retries are the caller's decision.
type AIProvider interface {
	Name() string
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// ProviderSet pairs the model used for consultation reports with the one
// used for simulated images.
type ProviderSet struct {
	Report AIProvider
	Image  AIProvider
}

// ProviderError carries the provider's own message so it can be shown to
// the clinician.
type ProviderError struct {
	Provider string
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Provider, e.Message)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

var errEmptyOutput = errors.New("empty output")

func newProviderError(provider string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Message: err.Error(), Err: err}
}

func validateRequest(req GenerateRequest) error {
	if req.Prompt == "" {
		return fmt.Errorf("%w: prompt", ErrMissingInput)
	}
	if len(req.Image) == 0 || req.ImageMimeType == "" {
		return fmt.Errorf("%w: source image", ErrMissingInput)
	}
	return nil
}
