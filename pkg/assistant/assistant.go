// Package assistant runs the top-level activation loop: wait for the
// wake word, record an utterance, hand it to the dialogue session, and
// optionally keep listening for follow-ups while speech drains.
package assistant

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/aria-voice/aria/pkg/audio"
	"github.com/aria-voice/aria/pkg/core/types"
	"github.com/aria-voice/aria/pkg/session"
	"github.com/aria-voice/aria/pkg/speech"
)

// State of the activation loop.
type State int

const (
	StateStopped State = iota
	StateWaitingForWake
	StateRecording
	StateProcessing
	StateFollowUp
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateWaitingForWake:
		return "waiting_for_wake"
	case StateRecording:
		return "recording"
	case StateProcessing:
		return "processing"
	case StateFollowUp:
		return "follow_up"
	default:
		return "unknown"
	}
}

// Dialogue is the session surface the loop needs.
type Dialogue interface {
	StartTurn(ctx context.Context, input []types.Part, emit session.EmitFunc) error
}

// Speaker is the output pipeline surface the loop needs.
type Speaker interface {
	Enqueue(text string, priority speech.Priority)
	CancelAll()
	WaitIdle(ctx context.Context) error
	IsSpeaking() bool
}

// Config tunes the loop's capture windows.
type Config struct {
	// RecordMaxDuration caps one utterance capture.
	RecordMaxDuration time.Duration
	// SilenceWindow ends a capture after this much quiet.
	SilenceWindow time.Duration
	// FollowUpEnabled keeps the microphone open after the assistant
	// finishes speaking, so the user can reply without the wake word.
	FollowUpEnabled bool
	// FollowUpWindow caps how long the follow-up capture waits for
	// speech before handing control back to the wake word.
	FollowUpWindow time.Duration
	// FollowUpConfidence raises the voice threshold during follow-up
	// listening. Zero keeps the recorder's default.
	FollowUpConfidence float64
}

// DefaultConfig matches hands-free conversational use.
func DefaultConfig() Config {
	return Config{
		RecordMaxDuration:  30 * time.Second,
		SilenceWindow:      1500 * time.Millisecond,
		FollowUpEnabled:    true,
		FollowUpWindow:     6 * time.Second,
		FollowUpConfidence: 0.75,
	}
}

// Assistant owns the activation loop. Start and Stop may be called
// repeatedly; the control panel uses them to restart the loop with
// fresh configuration.
type Assistant struct {
	wake     audio.WakeDetector
	recorder audio.Recorder
	dialogue Dialogue
	speaker  Speaker
	cfg      Config
	logger   *slog.Logger
	events   *Events

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	state   State
	running bool
}

// New creates a stopped assistant.
func New(wake audio.WakeDetector, recorder audio.Recorder, dialogue Dialogue, speaker Speaker, cfg Config, logger *slog.Logger) *Assistant {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assistant{
		wake:     wake,
		recorder: recorder,
		dialogue: dialogue,
		speaker:  speaker,
		cfg:      cfg,
		logger:   logger,
		events:   NewEvents(),
	}
}

// Events exposes the live feed for the control panel.
func (a *Assistant) Events() *Events { return a.events }

// State reports the loop's current state.
func (a *Assistant) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Running reports whether the loop is active.
func (a *Assistant) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}

// Start launches the activation loop. It is a no-op when already running.
func (a *Assistant) Start(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.done = make(chan struct{})
	a.running = true
	go a.run(runCtx)
}

// Stop terminates the loop and waits for it to exit.
func (a *Assistant) Stop() {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	cancel, done := a.cancel, a.done
	a.mu.Unlock()

	cancel()
	<-done

	a.mu.Lock()
	a.running = false
	a.setStateLocked(StateStopped)
	a.mu.Unlock()
}

// AnnounceReminder enqueues a due-reminder announcement with reminder
// priority. It satisfies the scheduler's announcer contract.
func (a *Assistant) AnnounceReminder(text string) {
	a.speaker.Enqueue(text, speech.PriorityReminder)
}

func (a *Assistant) run(ctx context.Context) {
	defer close(a.done)
	a.logger.Info("assistant loop started")

	for {
		a.setState(StateWaitingForWake)
		if err := a.wake.WaitForWake(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			a.logger.Error("wake detection failed", "error", err)
			continue
		}

		// Wake during playback is a barge-in: drop everything queued and
		// give the microphone a quiet room.
		a.speaker.CancelAll()

		clip := a.record(ctx, audio.RecordOptions{
			MaxDuration:   a.cfg.RecordMaxDuration,
			SilenceWindow: a.cfg.SilenceWindow,
		})
		if ctx.Err() != nil {
			return
		}
		if clip == nil {
			continue
		}

		for clip != nil {
			a.processTurn(ctx, clip)
			if ctx.Err() != nil {
				return
			}
			if !a.cfg.FollowUpEnabled {
				break
			}
			clip = a.followUp(ctx)
		}
	}
}

func (a *Assistant) record(ctx context.Context, opts audio.RecordOptions) *audio.Clip {
	a.setState(StateRecording)
	clip, err := a.recorder.Record(ctx, opts)
	if err != nil {
		if ctx.Err() == nil && !errors.Is(err, audio.ErrNoSpeech) {
			a.logger.Error("recording failed", "error", err)
		}
		return nil
	}
	a.events.Publish(Event{Kind: EventListened})
	return clip
}

func (a *Assistant) processTurn(ctx context.Context, clip *audio.Clip) {
	a.setState(StateProcessing)
	input := []types.Part{types.NewAudio(clip.MIMEType, clip.Data)}
	err := a.dialogue.StartTurn(ctx, input, func(text string) {
		a.speaker.Enqueue(text, speech.PriorityNormal)
		a.events.Publish(Event{Kind: EventSpoken, Text: text})
	})
	if err != nil && ctx.Err() == nil {
		a.logger.Error("turn failed", "error", err)
	}
}

// followUp waits for the assistant to finish speaking, then listens for
// a reply without requiring the wake word. Silence returns nil and the
// loop falls back to wake detection.
func (a *Assistant) followUp(ctx context.Context) *audio.Clip {
	a.setState(StateFollowUp)
	if err := a.speaker.WaitIdle(ctx); err != nil {
		return nil
	}
	return a.record(ctx, audio.RecordOptions{
		MaxDuration:   a.cfg.FollowUpWindow,
		SilenceWindow: a.cfg.SilenceWindow,
		RequireSpeech: true,
		Confidence:    a.cfg.FollowUpConfidence,
	})
}

func (a *Assistant) setState(s State) {
	a.mu.Lock()
	a.setStateLocked(s)
	a.mu.Unlock()
}

func (a *Assistant) setStateLocked(s State) {
	if a.state == s {
		return
	}
	a.state = s
	a.events.Publish(Event{Kind: EventState, State: s.String()})
}
