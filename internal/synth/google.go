package synth

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/lukija/internal/speech"
)

// DefaultGoogleEndpoint is the public text:synthesize endpoint.
const DefaultGoogleEndpoint = "https://texttospeech.googleapis.com/v1/text:synthesize"

// Google limits a request to 5000 bytes of input.
const maxGoogleText = 5000

// GoogleConfig holds configuration for the Google engine.
type GoogleConfig struct {
	APIKey     string
	Endpoint   string        // Defaults to DefaultGoogleEndpoint
	SampleRate int           // LINEAR16 output rate, defaults to 44100
	Timeout    time.Duration // Per request, 0 for none
	Client     *http.Client  // Optional
}

// Google synthesizes speech with the Cloud Text-to-Speech REST API. Results
// are WAV (LINEAR16 with header).
type Google struct {
	apiKey     string
	endpoint   string
	sampleRate int
	client     *http.Client
}

var _ speech.Synthesizer = (*Google)(nil)

// NewGoogle creates a Google engine.
func NewGoogle(cfg GoogleConfig) (*Google, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("google engine requires an API key")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultGoogleEndpoint
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 44100
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: cfg.Timeout}
	}

	return &Google{
		apiKey:     cfg.APIKey,
		endpoint:   cfg.Endpoint,
		sampleRate: cfg.SampleRate,
		client:     cfg.Client,
	}, nil
}

type googleRequest struct {
	Input struct {
		Text string `json:"text"`
	} `json:"input"`
	Voice struct {
		LanguageCode string `json:"languageCode"`
		Name         string `json:"name,omitempty"`
	} `json:"voice"`
	AudioConfig struct {
		AudioEncoding   string  `json:"audioEncoding"`
		SampleRateHertz int     `json:"sampleRateHertz"`
		SpeakingRate    float64 `json:"speakingRate,omitempty"`
	} `json:"audioConfig"`
}

type googleResponse struct {
	AudioContent string `json:"audioContent"`
	Error        *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Synthesize implements speech.Synthesizer.
func (g *Google) Synthesize(ctx context.Context, text string, params speech.VoiceParams) (speech.Audio, error) {
	if text == "" {
		return speech.Audio{}, speech.NewSynthesisError("nothing to synthesize", speech.ErrEmptyText)
	}
	if len(text) > maxGoogleText {
		return speech.Audio{}, speech.NewSynthesisError(
			fmt.Sprintf("text too long: %d bytes (max %d)", len(text), maxGoogleText), nil)
	}

	var req googleRequest
	req.Input.Text = text
	req.Voice.LanguageCode = params.Language
	if req.Voice.LanguageCode == "" {
		req.Voice.LanguageCode = speech.DefaultVoiceParams().Language
	}
	req.Voice.Name = params.Name
	req.AudioConfig.AudioEncoding = "LINEAR16"
	req.AudioConfig.SampleRateHertz = g.sampleRate
	req.AudioConfig.SpeakingRate = params.Rate

	body, err := json.Marshal(req)
	if err != nil {
		return speech.Audio{}, speech.NewSynthesisError("failed to encode request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return speech.Audio{}, speech.NewSynthesisError("failed to create request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json; charset=utf-8")
	httpReq.Header.Set("X-Goog-Api-Key", g.apiKey)

	start := time.Now()
	resp, err := g.client.Do(httpReq)
	if err != nil {
		return speech.Audio{}, speech.NewSynthesisError("speech service unreachable", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return speech.Audio{}, speech.NewSynthesisError("failed to read response", err)
	}

	var out googleResponse
	if err := json.Unmarshal(raw, &out); err != nil && resp.StatusCode == http.StatusOK {
		return speech.Audio{}, speech.NewSynthesisError("malformed response", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := http.StatusText(resp.StatusCode)
		if out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		serr := speech.NewSynthesisError(fmt.Sprintf("speech service error (HTTP %d): %s", resp.StatusCode, msg), nil)
		if resp.StatusCode == http.StatusTooManyRequests {
			serr.Code = speech.ErrorCodeRateLimited
		}
		return speech.Audio{}, serr
	}

	data, err := base64.StdEncoding.DecodeString(out.AudioContent)
	if err != nil {
		return speech.Audio{}, speech.NewSynthesisError("invalid audio content", err)
	}
	if len(data) == 0 {
		return speech.Audio{}, speech.NewSynthesisError("speech service returned no audio", nil)
	}

	log.Debug("Google synthesis done", "chars", utf8.RuneCountInString(text), "bytes", len(data), "took", time.Since(start))

	return speech.Audio{Data: data, MIMEType: "audio/wav"}, nil
}
