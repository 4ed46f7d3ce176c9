package synth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dgnsrekt/lukija/internal/speech"
)

func TestGoogle_Synthesize(t *testing.T) {
	var got googleRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Goog-Api-Key") != "avain" {
			t.Errorf("api key header = %q", r.Header.Get("X-Goog-Api-Key"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"audioContent": base64.StdEncoding.EncodeToString([]byte("RIFF....WAVE")),
		})
	}))
	defer srv.Close()

	g, err := NewGoogle(GoogleConfig{APIKey: "avain", Endpoint: srv.URL, SampleRate: 24000})
	if err != nil {
		t.Fatalf("NewGoogle failed: %v", err)
	}

	audio, err := g.Synthesize(context.Background(), "Mitä kuuluu?", speech.VoiceParams{
		Language: "fi-FI", Name: "fi-FI-Wavenet-A", Rate: 1.25,
	})
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	if audio.MIMEType != "audio/wav" || string(audio.Data) != "RIFF....WAVE" {
		t.Errorf("audio = %q %q", audio.MIMEType, audio.Data)
	}
	if got.Input.Text != "Mitä kuuluu?" {
		t.Errorf("text = %q", got.Input.Text)
	}
	if got.Voice.LanguageCode != "fi-FI" || got.Voice.Name != "fi-FI-Wavenet-A" {
		t.Errorf("voice = %+v", got.Voice)
	}
	if got.AudioConfig.AudioEncoding != "LINEAR16" || got.AudioConfig.SampleRateHertz != 24000 || got.AudioConfig.SpeakingRate != 1.25 {
		t.Errorf("audio config = %+v", got.AudioConfig)
	}
}

func TestGoogle_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		text     string
		wantCode speech.ErrorCode
		wantMsg  string
	}{
		{
			name:     "api error message",
			status:   http.StatusForbidden,
			body:     `{"error":{"code":403,"message":"API key not valid","status":"PERMISSION_DENIED"}}`,
			text:     "Moi.",
			wantCode: speech.ErrorCodeSynthesisFailed,
			wantMsg:  "API key not valid",
		},
		{
			name:     "rate limited",
			status:   http.StatusTooManyRequests,
			body:     `{}`,
			text:     "Moi.",
			wantCode: speech.ErrorCodeRateLimited,
			wantMsg:  "HTTP 429",
		},
		{
			name:     "empty audio",
			status:   http.StatusOK,
			body:     `{"audioContent":""}`,
			text:     "Moi.",
			wantCode: speech.ErrorCodeSynthesisFailed,
			wantMsg:  "no audio",
		},
		{
			name:     "empty text",
			status:   http.StatusOK,
			text:     "",
			wantCode: speech.ErrorCodeSynthesisFailed,
			wantMsg:  "nothing to synthesize",
		},
		{
			name:     "text too long",
			status:   http.StatusOK,
			text:     strings.Repeat("a", maxGoogleText+1),
			wantCode: speech.ErrorCodeSynthesisFailed,
			wantMsg:  "too long",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			g, _ := NewGoogle(GoogleConfig{APIKey: "k", Endpoint: srv.URL})
			_, err := g.Synthesize(context.Background(), tt.text, speech.DefaultVoiceParams())

			var se *speech.SynthesisError
			if !errors.As(err, &se) {
				t.Fatalf("error = %v, want SynthesisError", err)
			}
			if se.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", se.Code, tt.wantCode)
			}
			if !strings.Contains(se.Error(), tt.wantMsg) {
				t.Errorf("message %q does not contain %q", se.Error(), tt.wantMsg)
			}
		})
	}
}

func TestNewGoogle_RequiresKey(t *testing.T) {
	if _, err := NewGoogle(GoogleConfig{}); err == nil {
		t.Error("expected error without API key")
	}
}
