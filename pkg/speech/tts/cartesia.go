package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	cartesiaBaseURL = "https://api.cartesia.ai"
	cartesiaVersion = "2025-04-16"
	cartesiaModel   = "sonic-3"

	// Fallback voice; deployments should configure their own.
	cartesiaDefaultVoice = "a0e99841-438c-4a64-b679-ae501e7d6091"
)

// Cartesia synthesizes speech through the Cartesia bytes endpoint.
type Cartesia struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
}

// NewCartesia creates a Cartesia provider.
func NewCartesia(apiKey string) *Cartesia {
	return &Cartesia{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    cartesiaBaseURL,
	}
}

// Name returns the provider identifier.
func (c *Cartesia) Name() string { return "cartesia" }

type cartesiaRequest struct {
	ModelID      string           `json:"model_id"`
	Transcript   string           `json:"transcript"`
	Voice        cartesiaVoice    `json:"voice"`
	OutputFormat map[string]any   `json:"output_format"`
	Language     *string          `json:"language,omitempty"`
	Generation   *cartesiaGenOpts `json:"generation_config,omitempty"`
}

type cartesiaVoice struct {
	Mode string `json:"mode"`
	ID   string `json:"id"`
}

type cartesiaGenOpts struct {
	Speed float64 `json:"speed,omitempty"`
}

// Synthesize converts text to a single audio artifact.
func (c *Cartesia) Synthesize(ctx context.Context, text string, opts SynthesizeOptions) (*Synthesis, error) {
	voice := opts.Voice
	if voice == "" {
		voice = cartesiaDefaultVoice
	}

	reqBody := cartesiaRequest{
		ModelID:      cartesiaModel,
		Transcript:   text,
		Voice:        cartesiaVoice{Mode: "id", ID: voice},
		OutputFormat: outputFormat(opts),
	}
	if opts.Speed != 0 {
		reqBody.Generation = &cartesiaGenOpts{Speed: opts.Speed}
	}
	if opts.Language != "" {
		reqBody.Language = &opts.Language
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tts/bytes", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Cartesia-Version", cartesiaVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cartesia request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("cartesia error %d: %s", resp.StatusCode, string(errBody))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	return &Synthesis{Audio: audio, Format: format(opts)}, nil
}

func format(opts SynthesizeOptions) string {
	if opts.Format == "" {
		return "mp3"
	}
	return opts.Format
}

func outputFormat(opts SynthesizeOptions) map[string]any {
	sampleRate := opts.SampleRate
	if sampleRate == 0 {
		sampleRate = 44100
	}

	switch format(opts) {
	case "wav":
		return map[string]any{
			"container":   "wav",
			"encoding":    "pcm_s16le",
			"sample_rate": sampleRate,
		}
	case "pcm":
		return map[string]any{
			"container":   "raw",
			"encoding":    "pcm_s16le",
			"sample_rate": sampleRate,
		}
	default:
		return map[string]any{
			"container":   "mp3",
			"bit_rate":    128000,
			"sample_rate": sampleRate,
		}
	}
}
