// Package speech implements the spoken-output pipeline: an ordered
// two-stage queue where synthesis of the next utterance overlaps playback
// of the current one, while playback strictly preserves submission order.
package speech

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/aria-voice/aria/pkg/speech/tts"
)

// Priority classifies a speech job.
type Priority int

const (
	// PriorityNormal is regular dialogue output.
	PriorityNormal Priority = iota
	// PriorityReminder marks a reminder announcement, which is preceded by
	// a notification chime. It still queues FIFO behind existing work.
	PriorityReminder
)

// playbackRetries is how many times a failed playback is retried with a
// freshly synthesized artifact before the utterance is dropped.
const playbackRetries = 2

// Player plays a finished audio artifact synchronously.
type Player interface {
	// Play blocks until the artifact has finished playing.
	Play(ctx context.Context, audio []byte, format string) error
	// Stop interrupts any in-progress playback.
	Stop()
}

type job struct {
	text     string
	priority Priority
	gen      int64
}

type playItem struct {
	audio  []byte // nil when synthesis failed
	text   string
	chime  bool
	gen    int64
}

// Pipeline is the speech output pipeline. Create with New, then call Start
// exactly once; the two workers run until the context is cancelled.
type Pipeline struct {
	provider tts.Provider
	player   Player
	synthOpt tts.SynthesizeOptions
	chime    []byte
	logger   *slog.Logger

	synthQ chan job
	playQ  chan playItem

	generation atomic.Int64
	pending    atomic.Int64
	speaking   atomic.Bool
}

// Option configures the pipeline.
type Option func(*Pipeline)

// WithSynthesizeOptions sets the voice configuration used for every job.
func WithSynthesizeOptions(opts tts.SynthesizeOptions) Option {
	return func(p *Pipeline) { p.synthOpt = opts }
}

// WithChime sets the pre-rendered notification chime played before
// reminder announcements.
func WithChime(audio []byte) Option {
	return func(p *Pipeline) { p.chime = audio }
}

// WithQueueSize sets the capacity of each stage's queue.
func WithQueueSize(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.synthQ = make(chan job, n)
			p.playQ = make(chan playItem, n)
		}
	}
}

// New creates a pipeline. The provider and player are required.
func New(provider tts.Provider, player Player, logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{
		provider: provider,
		player:   player,
		logger:   logger,
		synthQ:   make(chan job, 64),
		playQ:    make(chan playItem, 64),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the synthesis and playback workers. Exactly one of each
// per pipeline instance; they exit when ctx is cancelled.
func (p *Pipeline) Start(ctx context.Context) {
	go p.synthesisWorker(ctx)
	go p.playbackWorker(ctx)
}

// Enqueue submits text for synthesis and eventual playback. Jobs are
// spoken in enqueue order regardless of per-item synthesis latency.
func (p *Pipeline) Enqueue(text string, priority Priority) {
	if text == "" {
		return
	}
	p.pending.Add(1)
	p.synthQ <- job{text: text, priority: priority, gen: p.generation.Load()}
}

// CancelAll discards all queued work and interrupts in-progress playback.
// Synthesis already in flight is not aborted; its output is discarded at
// the playback stage.
func (p *Pipeline) CancelAll() {
	p.generation.Add(1)
	p.player.Stop()
}

// IsSpeaking reports whether playback is currently in progress. It is a
// best-effort observable, not a synchronization primitive.
func (p *Pipeline) IsSpeaking() bool {
	return p.speaking.Load()
}

// Idle reports whether no work is queued or playing.
func (p *Pipeline) Idle() bool {
	return p.pending.Load() == 0 && !p.speaking.Load()
}

// WaitIdle blocks until the pipeline is idle or ctx is cancelled. Used by
// follow-up listening and by shutdown to drain pending speech.
func (p *Pipeline) WaitIdle(ctx context.Context) error {
	ticker := time.NewTicker(25 * time.Millisecond)
	defer ticker.Stop()
	for {
		if p.Idle() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (p *Pipeline) synthesisWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-p.synthQ:
			if j.gen != p.generation.Load() {
				p.pending.Add(-1)
				continue
			}

			if j.priority == PriorityReminder && len(p.chime) > 0 {
				p.pending.Add(1)
				p.playQ <- playItem{audio: p.chime, chime: true, gen: j.gen}
			}

			audio := p.synthesize(ctx, j.text)
			p.playQ <- playItem{audio: audio, text: j.text, gen: j.gen}
		}
	}
}

func (p *Pipeline) synthesize(ctx context.Context, text string) []byte {
	syn, err := p.provider.Synthesize(ctx, text, p.synthOpt)
	if err != nil {
		p.logger.Warn("speech synthesis failed", "error", err)
		return nil
	}
	return syn.Audio
}

func (p *Pipeline) playbackWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case item := <-p.playQ:
			if item.gen != p.generation.Load() {
				p.pending.Add(-1)
				continue
			}

			p.speaking.Store(true)
			p.play(ctx, item)
			p.speaking.Store(false)
			p.pending.Add(-1)
		}
	}
}

// play plays one artifact, regenerating it on playback failure up to the
// retry cap, then gives up and moves on. A Play error observed after the
// generation advanced is the kill from CancelAll's Stop, not a device
// failure, so the item is dropped instead of retried.
func (p *Pipeline) play(ctx context.Context, item playItem) {
	audio := item.audio
	for attempt := 0; ; attempt++ {
		if item.gen != p.generation.Load() {
			return
		}
		if audio == nil {
			p.logger.Warn("no audio artifact to play", "text", item.text)
			return
		}
		err := p.player.Play(ctx, audio, p.format())
		if err == nil {
			return
		}
		if item.gen != p.generation.Load() {
			return
		}
		if item.chime || attempt >= playbackRetries {
			p.logger.Warn("playback failed, skipping utterance", "error", err, "attempts", attempt+1)
			return
		}
		p.logger.Warn("playback failed, regenerating audio", "error", err, "attempt", attempt+1)
		audio = p.synthesize(ctx, item.text)
	}
}

func (p *Pipeline) format() string {
	if p.synthOpt.Format == "" {
		return "mp3"
	}
	return p.synthOpt.Format
}
