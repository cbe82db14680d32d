// Package metrics derives delivery scores from transcription timing and
// client landmark telemetry. Every function here is pure.
package metrics

import (
	"math"
	"strings"
)

// Segment is one timed span reported by the transcription engine, in seconds.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcription is the raw result kept alongside an answer.
type Transcription struct {
	Text     string    `json:"text"`
	Language string    `json:"language,omitempty"`
	Duration float64   `json:"duration,omitempty"`
	Segments []Segment `json:"segments"`
}

type SpeechMetrics struct {
	SpeechRate   float64 `json:"speech_rate"`   // words per minute
	SilenceRatio float64 `json:"silence_ratio"` // percent of total duration
}

// Speech computes speaking rate and silence ratio for one answer.
//
// Duration is the end of the last segment. Silence is that duration minus the
// summed length of every segment, so only gaps the engine reported count.
// Words are whitespace tokens of the full transcript, which undercounts
// agglutinative languages.
func Speech(t *Transcription) SpeechMetrics {
	if t == nil || len(t.Segments) == 0 || strings.TrimSpace(t.Text) == "" {
		return SpeechMetrics{}
	}

	duration := t.Segments[len(t.Segments)-1].End
	if duration <= 0 {
		return SpeechMetrics{}
	}

	var spoken float64
	for _, s := range t.Segments {
		if s.End > s.Start {
			spoken += s.End - s.Start
		}
	}

	words := len(strings.Fields(t.Text))
	silence := math.Max(duration-spoken, 0)

	return SpeechMetrics{
		SpeechRate:   float64(words) / (duration / 60),
		SilenceRatio: silence / duration * 100,
	}
}

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
