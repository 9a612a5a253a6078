// Package audio defines the capture-side contracts consumed by the
// assistant loop: wake-word detection and bounded voice recording, plus a
// lightweight RMS voice activity detector used to find end of speech.
package audio

import (
	"context"
	"errors"
	"time"
)

// ErrNoSpeech is returned by a recorder when the capture window closed
// without any detected speech.
var ErrNoSpeech = errors.New("no speech detected")

// Clip is a finite captured audio artifact ready to send to the model.
type Clip struct {
	MIMEType string
	Data     []byte
}

// RecordOptions bounds one capture.
type RecordOptions struct {
	// MaxDuration caps the total capture length.
	MaxDuration time.Duration
	// SilenceWindow is how long the signal must stay quiet after speech
	// before the recording is considered complete.
	SilenceWindow time.Duration
	// RequireSpeech makes the recorder return ErrNoSpeech instead of an
	// empty clip when the window closes without voice activity. Used for
	// follow-up listening so silence hands control back to the wake word.
	RequireSpeech bool
	// Confidence overrides the detector's voice probability threshold
	// when > 0. Follow-up listening raises it so playback echo and room
	// noise do not count as a reply.
	Confidence float64
}

// WakeDetector blocks until the wake word is heard.
type WakeDetector interface {
	WaitForWake(ctx context.Context) error
}

// Recorder captures one utterance, ending at silence or timeout.
type Recorder interface {
	Record(ctx context.Context, opts RecordOptions) (*Clip, error)
}

// FrameSource yields successive raw PCM frames from a capture device.
type FrameSource interface {
	// ReadFrame returns the next frame of 16-bit little-endian PCM.
	ReadFrame(ctx context.Context) ([]byte, error)
}
