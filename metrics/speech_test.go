package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpeech(t *testing.T) {
	tests := []struct {
		name        string
		input       *Transcription
		wantRate    float64
		wantSilence float64
	}{
		{
			name: "two segments with a one second gap",
			input: &Transcription{
				Text:     "a b c d",
				Segments: []Segment{{Start: 0, End: 2}, {Start: 3, End: 5}},
			},
			wantRate:    48,
			wantSilence: 20,
		},
		{
			name: "continuous speech has no silence",
			input: &Transcription{
				Text:     "one two three four five six",
				Segments: []Segment{{Start: 0, End: 3}, {Start: 3, End: 6}},
			},
			wantRate:    60,
			wantSilence: 0,
		},
		{
			name: "leading pause counts as silence",
			input: &Transcription{
				Text:     "hello there",
				Segments: []Segment{{Start: 2, End: 4}},
			},
			wantRate:    30,
			wantSilence: 50,
		},
		{name: "nil transcription", input: nil},
		{name: "no segments", input: &Transcription{Text: "words without timing"}},
		{
			name:  "empty transcript",
			input: &Transcription{Text: "   ", Segments: []Segment{{Start: 0, End: 4}}},
		},
		{
			name:  "zero duration",
			input: &Transcription{Text: "a", Segments: []Segment{{Start: 0, End: 0}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Speech(tt.input)
			assert.InDelta(t, tt.wantRate, got.SpeechRate, 1e-9)
			assert.InDelta(t, tt.wantSilence, got.SilenceRatio, 1e-9)
		})
	}
}

func TestMean(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.InDelta(t, 2.0, Mean([]float64{1, 2, 3}), 1e-9)
}
