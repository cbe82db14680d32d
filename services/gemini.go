package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"
)

// TextRequest is one stateless generation call.
type TextRequest struct {
	System string
	Prompt string
	// JSON asks the model for a JSON body. Callers still parse defensively.
	JSON        bool
	Temperature float32
}

// TextGenerator is the generative text backend used for questions and reports.
type TextGenerator interface {
	GenerateText(ctx context.Context, req TextRequest) (string, error)
}

var ErrEmptyGeneration = errors.New("model returned an empty response")

// GeminiService calls the Gemini API.
type GeminiService struct {
	client *genai.Client
	model  string
}

func NewGeminiService(ctx context.Context, apiKey, model string) (*GeminiService, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is not configured")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GeminiService{client: client, model: model}, nil
}

func (g *GeminiService) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	config := &genai.GenerateContentConfig{}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.JSON {
		config.ResponseMIMEType = "application/json"
	}
	if req.Temperature > 0 {
		config.Temperature = genai.Ptr(req.Temperature)
	}

	result, err := retryGeneration(ctx, "gemini", func() (string, error) {
		result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), config)
		if err != nil {
			return "", fmt.Errorf("failed to generate content: %w", err)
		}
		text := strings.TrimSpace(result.Text())
		if text == "" {
			return "", ErrEmptyGeneration
		}
		return text, nil
	})
	if err != nil {
		return "", err
	}

	slog.Debug("Gemini generation finished", "model", g.model, "response_length", len(result))
	return result, nil
}
