package session

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var errEmptyAnswer = errors.New("empty answer payload")

type answerEnvelope struct {
	AudioDataBase64 string `json:"audio_data_base64"`
	Audio           string `json:"audio"`
}

// DecodeAnswer extracts the recorded audio from an inbound frame. Text frames
// carry base64, either bare, as a data URL, or inside a JSON envelope. Binary
// frames are taken as raw audio.
func DecodeAnswer(in Inbound) ([]byte, error) {
	if in.Binary {
		if len(in.Data) == 0 {
			return nil, errEmptyAnswer
		}
		return in.Data, nil
	}

	payload := string(bytes.TrimSpace(in.Data))
	if strings.HasPrefix(payload, "{") {
		var env answerEnvelope
		if err := json.Unmarshal([]byte(payload), &env); err != nil {
			return nil, fmt.Errorf("failed to parse answer envelope: %w", err)
		}
		payload = env.AudioDataBase64
		if payload == "" {
			payload = env.Audio
		}
	}

	if strings.HasPrefix(payload, "data:") {
		if i := strings.Index(payload, ","); i >= 0 {
			payload = payload[i+1:]
		}
	}
	if payload == "" {
		return nil, errEmptyAnswer
	}

	audio, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		if raw, rawErr := base64.RawStdEncoding.DecodeString(payload); rawErr == nil {
			audio = raw
		} else {
			return nil, fmt.Errorf("failed to decode answer audio: %w", err)
		}
	}
	if len(audio) == 0 {
		return nil, errEmptyAnswer
	}
	return audio, nil
}
