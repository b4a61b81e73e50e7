package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
)

const (
	defaultElevenLabsBaseURL    = "https://api.elevenlabs.io/v1"
	defaultElevenLabsVoiceID    = "21m00Tcm4TlvDq8ikWAM"
	defaultElevenLabsModelID    = "eleven_multilingual_v2"
	defaultElevenLabsOutputFmt  = "pcm_24000"
	defaultElevenLabsChunkSize  = 1024
	defaultElevenLabsStability  = 0.5
	defaultElevenLabsClarity    = 0.75
	elevenLabsStreamBufferSize  = 10
)

// ElevenLabsConfig configures the primary TTS provider.
type ElevenLabsConfig struct {
	APIKey       string
	APIBaseURL   string
	VoiceID      string
	ModelID      string
	OutputFormat string
	ChunkSize    int
	Stability    float64
	Clarity      float64
}

// NewElevenLabsConfigFromEnv builds a config from ELEVEN_LABS_* environment
// variables, filling in defaults for anything unset.
func NewElevenLabsConfigFromEnv() ElevenLabsConfig {
	cfg := ElevenLabsConfig{
		APIKey:       os.Getenv("ELEVEN_LABS_API_KEY"),
		APIBaseURL:   defaultElevenLabsBaseURL,
		VoiceID:      defaultElevenLabsVoiceID,
		ModelID:      defaultElevenLabsModelID,
		OutputFormat: defaultElevenLabsOutputFmt,
		ChunkSize:    defaultElevenLabsChunkSize,
		Stability:    defaultElevenLabsStability,
		Clarity:      defaultElevenLabsClarity,
	}
	if v := os.Getenv("ELEVEN_LABS_API_BASE_URL"); v != "" {
		cfg.APIBaseURL = v
	}
	if v := os.Getenv("ELEVEN_LABS_VOICE_ID"); v != "" {
		cfg.VoiceID = v
	}
	return cfg
}

type elevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
	// Speed is ElevenLabs' native playback-rate knob; the dispatcher's
	// adaptive rate is applied here directly instead of via SSML.
	Speed float64 `json:"speed,omitempty"`
}

type elevenLabsRequest struct {
	Text                   string                  `json:"text"`
	ModelID                string                  `json:"model_id"`
	VoiceSettings          elevenLabsVoiceSettings `json:"voice_settings"`
	ApplyTextNormalization string                  `json:"apply_text_normalization"`
}

// ElevenLabsTTS is the primary, request-mode-only provider: a streaming
// HTTP POST per utterance.
type ElevenLabsTTS struct {
	cfg        ElevenLabsConfig
	httpClient *http.Client
}

// NewElevenLabsTTS builds a provider from cfg, filling in defaults for any
// zero-valued field.
func NewElevenLabsTTS(cfg ElevenLabsConfig) *ElevenLabsTTS {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultElevenLabsBaseURL
	}
	if cfg.VoiceID == "" {
		cfg.VoiceID = defaultElevenLabsVoiceID
	}
	if cfg.ModelID == "" {
		cfg.ModelID = defaultElevenLabsModelID
	}
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = defaultElevenLabsOutputFmt
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = defaultElevenLabsChunkSize
	}
	if cfg.Stability == 0 {
		cfg.Stability = defaultElevenLabsStability
	}
	if cfg.Clarity == 0 {
		cfg.Clarity = defaultElevenLabsClarity
	}
	return &ElevenLabsTTS{cfg: cfg, httpClient: &http.Client{}}
}

func (e *ElevenLabsTTS) Name() string { return "elevenlabs" }

// Synthesize streams PCM/MPEG audio for one utterance, applying rate as
// ElevenLabs' native speed parameter (clamped to the provider's [0.7, 1.2]
// accepted range).
func (e *ElevenLabsTTS) Synthesize(ctx context.Context, text, language, voiceHint string, rate float64) (<-chan []byte, error) {
	voiceID := e.cfg.VoiceID
	if voiceHint != "" {
		voiceID = voiceHint
	}

	reqBody := elevenLabsRequest{
		Text:    text,
		ModelID: e.cfg.ModelID,
		VoiceSettings: elevenLabsVoiceSettings{
			Stability:       e.cfg.Stability,
			SimilarityBoost: e.cfg.Clarity,
			UseSpeakerBoost: true,
			Speed:           clampSpeed(rate),
		},
		ApplyTextNormalization: "auto",
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal elevenlabs request: %w", err)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s/stream?output_format=%s&enable_logging=false",
		e.cfg.APIBaseURL, voiceID, e.cfg.OutputFormat)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build elevenlabs request: %w", err)
	}
	req.Header.Set("xi-api-key", e.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/pcm")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("elevenlabs returned %d: %s", resp.StatusCode, string(body))
	}

	out := make(chan []byte, elevenLabsStreamBufferSize)
	go func() {
		defer close(out)
		defer resp.Body.Close()
		buf := make([]byte, e.cfg.ChunkSize)
		for {
			n, readErr := resp.Body.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				select {
				case out <- chunk:
				case <-ctx.Done():
					return
				}
			}
			if readErr != nil {
				return
			}
		}
	}()
	return out, nil
}

func clampSpeed(rate float64) float64 {
	if rate <= 0 {
		return 1.0
	}
	if rate < 0.7 {
		return 0.7
	}
	if rate > 1.2 {
		return 1.2
	}
	return rate
}

// GetAvailableVoices lists the voices available to the configured API key.
func (e *ElevenLabsTTS) GetAvailableVoices(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.cfg.APIBaseURL+"/voices", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("xi-api-key", e.cfg.APIKey)
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}
