package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const elevenLabsBaseURL = "https://api.elevenlabs.io/v1/text-to-speech/"

type ElevenLabsService struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

type ElevenLabsRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings VoiceSettings `json:"voice_settings"`
}

type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

func NewElevenLabsService(apiKey, model string) (*ElevenLabsService, error) {
	if apiKey == "" {
		return nil, errors.New("elevenlabs api key is not configured")
	}
	return &ElevenLabsService{
		apiKey:  apiKey,
		model:   model,
		baseURL: elevenLabsBaseURL,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

// Voices returns the stock voice pool for gender, or every voice when gender
// is unset.
func (e *ElevenLabsService) Voices(gender string) []string {
	switch strings.ToLower(gender) {
	case "female":
		return femaleVoices
	case "male":
		return maleVoices
	default:
		return append(append([]string(nil), femaleVoices...), maleVoices...)
	}
}

func (e *ElevenLabsService) TextToSpeech(ctx context.Context, text, voiceID string) ([]byte, error) {
	request := ElevenLabsRequest{
		Text:    text,
		ModelID: e.model,
		VoiceSettings: VoiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.5,
		},
	}

	jsonData, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+voiceID, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("elevenlabs API error: %d - %s", resp.StatusCode, string(body))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}

	slog.Debug("Generated audio from ElevenLabs", "text_length", len(text), "voice_id", voiceID)
	return audio, nil
}
