package audio

import (
	"context"
	"errors"
	"io"
	"time"
)

// VADRecorder captures PCM frames from a source until voice activity ends
// or the capture window closes, and packages the result as a WAV clip.
type VADRecorder struct {
	source     FrameSource
	params     VADParams
	sampleRate int
}

// NewVADRecorder creates a recorder over the given frame source.
func NewVADRecorder(source FrameSource, params VADParams, sampleRate int) *VADRecorder {
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	return &VADRecorder{source: source, params: params, sampleRate: sampleRate}
}

// Record captures one utterance. The recording ends when speech was heard
// and the signal has stayed quiet for opts.SilenceWindow, or when
// opts.MaxDuration elapses, whichever comes first.
func (r *VADRecorder) Record(ctx context.Context, opts RecordOptions) (*Clip, error) {
	params := r.params
	if opts.SilenceWindow > 0 {
		params.StopWindow = opts.SilenceWindow
	}
	if opts.Confidence > 0 {
		params.Confidence = opts.Confidence
	}
	vad := NewVAD(params)

	var deadline time.Time
	if opts.MaxDuration > 0 {
		deadline = time.Now().Add(opts.MaxDuration)
	}

	var pcm []byte
	spoke := false
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		frame, err := r.source.ReadFrame(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		pcm = append(pcm, frame...)

		state := vad.Process(frame)
		if vad.Speaking() {
			spoke = true
		}
		if spoke && state == VADQuiet {
			break
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			break
		}
	}

	if !spoke && opts.RequireSpeech {
		return nil, ErrNoSpeech
	}
	return &Clip{MIMEType: "audio/wav", Data: EncodeWAV(pcm, r.sampleRate)}, nil
}
