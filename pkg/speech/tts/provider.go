// Package tts provides text-to-speech synthesis providers.
package tts

import "context"

// SynthesizeOptions configures one synthesis call.
type SynthesizeOptions struct {
	Voice      string  // Provider voice identifier
	Speed      float64 // Speed multiplier; 0 means provider default
	Language   string  // Language code
	Format     string  // "mp3", "wav", or "pcm"
	SampleRate int     // Sample rate; 0 means provider default
}

// Synthesis is a finished audio artifact.
type Synthesis struct {
	Audio  []byte
	Format string
}

// Provider is the interface for text-to-speech services.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// Synthesize converts text to audio.
	Synthesize(ctx context.Context, text string, opts SynthesizeOptions) (*Synthesis, error)
}
