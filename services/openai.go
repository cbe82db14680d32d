package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// OpenAIService generates text through the chat completions API.
type OpenAIService struct {
	client *openai.Client
	model  string
}

func NewOpenAIService(apiKey, model string) (*OpenAIService, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key is not configured")
	}
	return &OpenAIService{
		client: openai.NewClientWithConfig(openai.DefaultConfig(apiKey)),
		model:  model,
	}, nil
}

func (o *OpenAIService) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	var messages []openai.ChatCompletionMessage
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})

	chat := openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    messages,
		Temperature: req.Temperature,
	}
	if req.JSON {
		chat.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	return retryGeneration(ctx, "openai", func() (string, error) {
		resp, err := o.client.CreateChatCompletion(ctx, chat)
		if err != nil {
			return "", fmt.Errorf("failed to create chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", ErrEmptyGeneration
		}
		text := strings.TrimSpace(resp.Choices[0].Message.Content)
		if text == "" {
			return "", ErrEmptyGeneration
		}
		return text, nil
	})
}

// openAIVoices are the stock voices the speech endpoint accepts.
var openAIVoices = []string{
	string(openai.VoiceAlloy),
	string(openai.VoiceEcho),
	string(openai.VoiceFable),
	string(openai.VoiceNova),
	string(openai.VoiceOnyx),
	string(openai.VoiceShimmer),
}

// OpenAISpeech is the alternate text to speech backend.
type OpenAISpeech struct {
	client *openai.Client
}

func NewOpenAISpeech(apiKey string) (*OpenAISpeech, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key is not configured")
	}
	return &OpenAISpeech{client: openai.NewClientWithConfig(openai.DefaultConfig(apiKey))}, nil
}

func (o *OpenAISpeech) Voices(string) []string {
	return openAIVoices
}

func (o *OpenAISpeech) TextToSpeech(ctx context.Context, text, voice string) ([]byte, error) {
	resp, err := o.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.TTSModel1,
		Input:          text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create speech: %w", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read speech audio: %w", err)
	}
	slog.Debug("Generated audio from OpenAI", "text_length", len(text), "voice", voice)
	return audio, nil
}
