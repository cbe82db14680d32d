package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/krshsl/praxis/interviewer/metrics"
	"github.com/sashabaranov/go-openai"
)

// WhisperTranscriber transcribes answer audio with segment timestamps. The
// API client is built once on first use and shared by every session.
type WhisperTranscriber struct {
	apiKey   string
	model    string
	language string

	once    sync.Once
	client  *openai.Client
	initErr error
}

func NewWhisperTranscriber(apiKey, model, language string) *WhisperTranscriber {
	if model == "" {
		model = openai.Whisper1
	}
	return &WhisperTranscriber{apiKey: apiKey, model: model, language: language}
}

func (w *WhisperTranscriber) init() (*openai.Client, error) {
	w.once.Do(func() {
		if w.apiKey == "" {
			w.initErr = errors.New("openai api key is not configured")
			return
		}
		w.client = openai.NewClientWithConfig(openai.DefaultConfig(w.apiKey))
	})
	return w.client, w.initErr
}

func (w *WhisperTranscriber) Transcribe(ctx context.Context, path string) (*metrics.Transcription, error) {
	client, err := w.init()
	if err != nil {
		return nil, err
	}

	resp, err := client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		FilePath: path,
		Language: w.language,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to transcribe audio: %w", err)
	}

	return toTranscription(resp), nil
}

func toTranscription(resp openai.AudioResponse) *metrics.Transcription {
	t := &metrics.Transcription{
		Text:     strings.TrimSpace(resp.Text),
		Language: resp.Language,
		Duration: resp.Duration,
	}
	for _, seg := range resp.Segments {
		t.Segments = append(t.Segments, metrics.Segment{
			Start: seg.Start,
			End:   seg.End,
			Text:  strings.TrimSpace(seg.Text),
		})
	}
	return t
}
