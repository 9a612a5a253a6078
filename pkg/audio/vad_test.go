package audio

import (
	"context"
	"encoding/binary"
	"io"
	"testing"
	"time"
)

// pcmFrame builds a frame of n 16-bit samples at the given amplitude.
func pcmFrame(amplitude int16, n int) []byte {
	frame := make([]byte, n*2)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(frame[i*2:], uint16(amplitude))
	}
	return frame
}

// fakeClock advances a fixed step per call.
type fakeClock struct {
	now  time.Time
	step time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.now = c.now.Add(c.step)
	return c.now
}

func newTestVAD(stopWindow time.Duration) (*VAD, *fakeClock) {
	params := DefaultVADParams()
	params.StartWindow = 50 * time.Millisecond
	params.StopWindow = stopWindow
	clock := &fakeClock{now: time.Unix(0, 0), step: 30 * time.Millisecond}
	v := NewVAD(params)
	v.now = clock.Now
	v.stateStart = clock.now
	return v, clock
}

func TestVADDetectsSpeechAndSilence(t *testing.T) {
	v, _ := newTestVAD(100 * time.Millisecond)

	voice := pcmFrame(12000, 160)
	silence := pcmFrame(0, 160)

	for i := 0; i < 10; i++ {
		v.Process(voice)
	}
	if !v.Speaking() {
		t.Fatal("sustained loud frames should register as speech")
	}

	for i := 0; i < 20; i++ {
		v.Process(silence)
	}
	if v.Speaking() {
		t.Fatal("sustained silence should return to quiet")
	}
}

func TestVADIgnoresShortBlip(t *testing.T) {
	v, _ := newTestVAD(time.Second)

	v.Process(pcmFrame(12000, 160))
	v.Process(pcmFrame(0, 160))
	v.Process(pcmFrame(0, 160))
	for i := 0; i < 10; i++ {
		v.Process(pcmFrame(0, 160))
	}
	if v.Speaking() {
		t.Fatal("a single loud frame should not commit to speaking")
	}
}

func TestVADBridgesShortPause(t *testing.T) {
	v, _ := newTestVAD(time.Second)

	voice := pcmFrame(12000, 160)
	for i := 0; i < 10; i++ {
		v.Process(voice)
	}
	// A short pause well inside the stop window.
	v.Process(pcmFrame(0, 160))
	v.Process(pcmFrame(0, 160))
	if !v.Speaking() {
		t.Fatal("a brief pause should not end speech")
	}
	for i := 0; i < 8; i++ {
		v.Process(voice)
	}
	if !v.Speaking() {
		t.Fatal("resumed voice should stay in speaking state")
	}
}

func TestVADReset(t *testing.T) {
	v, _ := newTestVAD(100 * time.Millisecond)
	for i := 0; i < 10; i++ {
		v.Process(pcmFrame(12000, 160))
	}
	v.Reset()
	if v.Speaking() {
		t.Fatal("reset should return to quiet")
	}
}

// scriptedSource plays back a fixed frame sequence, then EOF.
type scriptedSource struct {
	frames [][]byte
}

func (s *scriptedSource) ReadFrame(_ context.Context) ([]byte, error) {
	if len(s.frames) == 0 {
		return nil, io.EOF
	}
	frame := s.frames[0]
	s.frames = s.frames[1:]
	return frame, nil
}

func TestVADRecorderCapturesUtterance(t *testing.T) {
	var frames [][]byte
	for i := 0; i < 20; i++ {
		frames = append(frames, pcmFrame(12000, 160))
	}
	for i := 0; i < 60; i++ {
		frames = append(frames, pcmFrame(0, 160))
	}

	params := DefaultVADParams()
	params.StartWindow = 0
	params.StopWindow = 0
	r := NewVADRecorder(&scriptedSource{frames: frames}, params, 16000)

	clip, err := r.Record(context.Background(), RecordOptions{
		MaxDuration: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if clip.MIMEType != "audio/wav" {
		t.Errorf("mime = %q", clip.MIMEType)
	}
	if len(clip.Data) <= 44 {
		t.Errorf("clip has no audio payload (%d bytes)", len(clip.Data))
	}
	if string(clip.Data[0:4]) != "RIFF" || string(clip.Data[8:12]) != "WAVE" {
		t.Error("clip is not a WAV container")
	}
}

func TestVADRecorderRequireSpeech(t *testing.T) {
	var frames [][]byte
	for i := 0; i < 30; i++ {
		frames = append(frames, pcmFrame(0, 160))
	}
	r := NewVADRecorder(&scriptedSource{frames: frames}, DefaultVADParams(), 16000)

	_, err := r.Record(context.Background(), RecordOptions{
		MaxDuration:   time.Second,
		RequireSpeech: true,
	})
	if err != ErrNoSpeech {
		t.Fatalf("err = %v, want ErrNoSpeech", err)
	}
}

func TestVADRecorderContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewVADRecorder(&scriptedSource{}, DefaultVADParams(), 16000)
	if _, err := r.Record(ctx, RecordOptions{}); err == nil {
		t.Fatal("expected context error")
	}
}

func TestEncodeWAVHeader(t *testing.T) {
	pcm := pcmFrame(100, 8)
	data := EncodeWAV(pcm, 16000)
	if len(data) != 44+len(pcm) {
		t.Fatalf("len = %d, want %d", len(data), 44+len(pcm))
	}
	if got := binary.LittleEndian.Uint32(data[24:28]); got != 16000 {
		t.Errorf("sample rate = %d", got)
	}
	if got := binary.LittleEndian.Uint32(data[40:44]); got != uint32(len(pcm)) {
		t.Errorf("data size = %d, want %d", got, len(pcm))
	}
}
