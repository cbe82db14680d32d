package session

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeAnswer(t *testing.T) {
	audio := []byte{0x1a, 0x45, 0xdf, 0xa3, 0x01}
	encoded := base64.StdEncoding.EncodeToString(audio)

	tests := []struct {
		name    string
		in      Inbound
		want    []byte
		wantErr bool
	}{
		{name: "bare base64", in: Inbound{Data: []byte(encoded)}, want: audio},
		{name: "surrounding whitespace", in: Inbound{Data: []byte("  " + encoded + "\n")}, want: audio},
		{name: "data url", in: Inbound{Data: []byte("data:audio/webm;base64," + encoded)}, want: audio},
		{name: "json envelope", in: Inbound{Data: []byte(`{"type":"audio","audio_data_base64":"` + encoded + `"}`)}, want: audio},
		{name: "json audio field", in: Inbound{Data: []byte(`{"audio":"` + encoded + `"}`)}, want: audio},
		{name: "unpadded base64", in: Inbound{Data: []byte(base64.RawStdEncoding.EncodeToString(audio))}, want: audio},
		{name: "binary frame", in: Inbound{Binary: true, Data: audio}, want: audio},
		{name: "empty text", in: Inbound{Data: []byte("")}, wantErr: true},
		{name: "empty binary", in: Inbound{Binary: true}, wantErr: true},
		{name: "garbage", in: Inbound{Data: []byte("not*base64!")}, wantErr: true},
		{name: "broken json", in: Inbound{Data: []byte(`{"audio_data_base64":`)}, wantErr: true},
		{name: "json without audio", in: Inbound{Data: []byte(`{"type":"audio"}`)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeAnswer(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCleanForSpeech(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "[Technical] How does a map grow?", want: "How does a map grow?"},
		{in: "【인성】 자기소개를 해주세요.", want: "자기소개를 해주세요."},
		{in: "**Bold** and `code` and # heading", want: "Bold and code and heading"},
		{in: "Great job! 🎉✨ Next one", want: "Great job! Next one"},
		{in: "<b>Tagged</b>\tquestion\n", want: "Tagged question"},
		{in: "❤️ only symbols ⭐", want: "only symbols"},
		{in: "[Tag only]", want: ""},
		{in: "Plain question, with punctuation?", want: "Plain question, with punctuation?"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanForSpeech(tt.in))
		})
	}
}
