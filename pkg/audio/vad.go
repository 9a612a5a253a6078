package audio

import (
	"encoding/binary"
	"math"
	"time"
)

// VAD states.
type VADState int

const (
	VADQuiet VADState = iota
	VADStarting
	VADSpeaking
	VADStopping
)

const (
	pcmBytesPerSample = 2
	pcmMaxAmplitude   = 32768.0
	// maxExpectedRMS is the expected ceiling for normalized voice audio.
	maxExpectedRMS = 0.5
	// smoothingAlpha is the exponential smoothing factor applied to RMS.
	smoothingAlpha = 0.3
)

// VADParams tunes the detector.
type VADParams struct {
	// MinVolume is the RMS floor below which probability is zero.
	MinVolume float64
	// Confidence is the probability threshold for voice activity.
	Confidence float64
	// StartWindow is how long activity must persist before the detector
	// commits to VADSpeaking.
	StartWindow time.Duration
	// StopWindow is how long silence must persist before the detector
	// returns to VADQuiet.
	StopWindow time.Duration
}

// DefaultVADParams matches a quiet indoor room.
func DefaultVADParams() VADParams {
	return VADParams{
		MinVolume:   0.01,
		Confidence:  0.5,
		StartWindow: 200 * time.Millisecond,
		StopWindow:  time.Second,
	}
}

// VAD is an RMS-based voice activity detector over 16-bit little-endian
// PCM frames. It smooths volume exponentially and debounces transitions
// through starting/stopping states so brief noise or pauses do not flip
// the decision. Not safe for concurrent use.
type VAD struct {
	params      VADParams
	state       VADState
	stateStart  time.Time
	smoothedRMS float64
	now         func() time.Time
}

// NewVAD creates a detector in the quiet state.
func NewVAD(params VADParams) *VAD {
	v := &VAD{params: params, now: time.Now}
	v.stateStart = v.now()
	return v
}

// Process analyzes one frame and returns the resulting state.
func (v *VAD) Process(frame []byte) VADState {
	rms := frameRMS(frame)
	v.smoothedRMS = smoothingAlpha*rms + (1-smoothingAlpha)*v.smoothedRMS

	active := v.probability(v.smoothedRMS) >= v.params.Confidence
	now := v.now()
	elapsed := now.Sub(v.stateStart)

	next := v.state
	switch v.state {
	case VADQuiet:
		if active {
			next = VADStarting
		}
	case VADStarting:
		if !active {
			next = VADQuiet
		} else if elapsed >= v.params.StartWindow {
			next = VADSpeaking
		}
	case VADSpeaking:
		if !active {
			next = VADStopping
		}
	case VADStopping:
		if active {
			next = VADSpeaking
		} else if elapsed >= v.params.StopWindow {
			next = VADQuiet
		}
	}

	if next != v.state {
		v.state = next
		v.stateStart = now
	}
	return v.state
}

// Speaking reports whether the detector currently hears voice.
func (v *VAD) Speaking() bool {
	return v.state == VADSpeaking || v.state == VADStopping
}

// Reset clears accumulated state for a new capture.
func (v *VAD) Reset() {
	v.state = VADQuiet
	v.stateStart = v.now()
	v.smoothedRMS = 0
}

func (v *VAD) probability(rms float64) float64 {
	if rms <= v.params.MinVolume {
		return 0
	}
	p := (rms - v.params.MinVolume) / (maxExpectedRMS - v.params.MinVolume)
	return math.Min(math.Max(p, 0), 1)
}

func frameRMS(frame []byte) float64 {
	numSamples := len(frame) / pcmBytesPerSample
	if numSamples == 0 {
		return 0
	}
	var sumSquares float64
	for i := 0; i < numSamples; i++ {
		sample := int16(binary.LittleEndian.Uint16(frame[i*pcmBytesPerSample:]))
		normalized := float64(sample) / pcmMaxAmplitude
		sumSquares += normalized * normalized
	}
	return math.Sqrt(sumSquares / float64(numSamples))
}
