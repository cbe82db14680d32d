package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/singleflight"
)

// SpeechBackend is a text to speech provider.
type SpeechBackend interface {
	// Voices returns the voice pool for gender ("male", "female" or empty).
	Voices(gender string) []string
	TextToSpeech(ctx context.Context, text, voice string) ([]byte, error)
}

// AudioCache stores synthesized audio on disk keyed by text and voice.
type AudioCache struct {
	cacheDir string
}

func NewAudioCache(cacheDir string) (*AudioCache, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audio cache directory: %w", err)
	}
	return &AudioCache{cacheDir: cacheDir}, nil
}

func (ac *AudioCache) key(text, voice string) string {
	hash := sha256.Sum256([]byte(text + ":" + voice))
	return hex.EncodeToString(hash[:])
}

func (ac *AudioCache) path(key string) string {
	return filepath.Join(ac.cacheDir, key+".mp3")
}

func (ac *AudioCache) Get(text, voice string) ([]byte, bool) {
	data, err := os.ReadFile(ac.path(ac.key(text, voice)))
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Error("Failed to read cached audio", "error", err)
		}
		return nil, false
	}
	return data, len(data) > 0
}

// Set writes through a temp file so readers never see a partial entry.
func (ac *AudioCache) Set(text, voice string, audio []byte) error {
	final := ac.path(ac.key(text, voice))
	tmp, err := os.CreateTemp(ac.cacheDir, "tts-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(audio); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close cache file: %w", err)
	}
	return os.Rename(tmp.Name(), final)
}

// Stats returns the number of cached clips and their total size.
func (ac *AudioCache) Stats() (int, int64, error) {
	entries, err := os.ReadDir(ac.cacheDir)
	if err != nil {
		return 0, 0, err
	}

	var totalSize int64
	fileCount := 0
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".mp3" {
			fileCount++
			if info, err := entry.Info(); err == nil {
				totalSize += info.Size()
			}
		}
	}
	return fileCount, totalSize, nil
}

// CachedSynthesizer picks a stable voice per key and serves repeated
// questions from the audio cache.
type CachedSynthesizer struct {
	backend SpeechBackend
	cache   *AudioCache
	gender  string
	group   singleflight.Group
}

func NewCachedSynthesizer(backend SpeechBackend, cache *AudioCache, gender string) *CachedSynthesizer {
	return &CachedSynthesizer{backend: backend, cache: cache, gender: gender}
}

func (s *CachedSynthesizer) Synthesize(ctx context.Context, text, voiceKey string) ([]byte, error) {
	voice := PickDeterministicVoice(voiceKey, s.backend.Voices(s.gender))

	if s.cache != nil {
		if audio, ok := s.cache.Get(text, voice); ok {
			slog.Debug("Audio cache hit", "voice", voice, "text_length", len(text))
			return audio, nil
		}
	}

	v, err, _ := s.group.Do(voice+"\x00"+text, func() (any, error) {
		audio, err := s.backend.TextToSpeech(ctx, text, voice)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if err := s.cache.Set(text, voice, audio); err != nil {
				slog.Warn("Failed to cache audio", "error", err)
			}
		}
		return audio, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize speech: %w", err)
	}
	return v.([]byte), nil
}
