package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aria-voice/aria/internal/dotenv"
	"github.com/aria-voice/aria/pkg/assistant"
	"github.com/aria-voice/aria/pkg/audio"
	"github.com/aria-voice/aria/pkg/config"
	"github.com/aria-voice/aria/pkg/panel"
	"github.com/aria-voice/aria/pkg/provider/gemini"
	"github.com/aria-voice/aria/pkg/reminder"
	"github.com/aria-voice/aria/pkg/session"
	"github.com/aria-voice/aria/pkg/speech"
	"github.com/aria-voice/aria/pkg/speech/tts"
	"github.com/aria-voice/aria/pkg/tools"
)

type ariaDeps struct {
	loadEnv      func() error
	loadConfig   func() (config.Config, error)
	signalNotify func(chan<- os.Signal, ...os.Signal)
	signalStop   func(chan<- os.Signal)
}

func defaultAriaDeps() ariaDeps {
	return ariaDeps{
		loadEnv:    dotenv.Load,
		loadConfig: config.LoadFromEnv,
		signalNotify: func(c chan<- os.Signal, sig ...os.Signal) {
			signal.Notify(c, sig...)
		},
		signalStop: signal.Stop,
	}
}

func runAssistant(ctx context.Context, logger *slog.Logger, deps ariaDeps) error {
	if err := deps.loadEnv(); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	cfg, err := deps.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Dialogue transport.
	transport, err := gemini.New(runCtx, cfg.GeminiAPIKey, gemini.WithModel(cfg.GeminiModel))
	if err != nil {
		return fmt.Errorf("create dialogue transport: %w", err)
	}

	// Persisted state.
	history := session.OpenHistory(cfg.HistoryPath, cfg.MaxHistoryLength)
	store := reminder.NewStore(cfg.RemindersPath)

	// Tool surface.
	registry, err := tools.NewSuite(tools.SuiteConfig{
		OpenWeatherAPIKey: cfg.OpenWeatherAPIKey,
		NewsAPIKey:        cfg.NewsAPIKey,
		GoogleAPIKey:      cfg.GoogleAPIKey,
		GoogleCSEID:       cfg.GoogleCSEID,
		GoogleCloudAPIKey: cfg.GoogleCloudAPIKey,
		DiscordBotToken:   cfg.DiscordBotToken,
		NotesPath:         cfg.NotesPath,
	}, store)
	if err != nil {
		return fmt.Errorf("build tool suite: %w", err)
	}

	persona, err := os.ReadFile(cfg.PromptPath)
	if err != nil {
		logger.Warn("persona prompt not found, using empty persona", "path", cfg.PromptPath)
	}
	dialogue := session.New(transport, registry, history,
		session.PromptSpec{Persona: string(persona), PersonaFile: cfg.PromptPath, Location: cfg.Location},
		logger,
		session.WithMaxRetries(cfg.MaxRetries),
		session.WithRetryDelay(cfg.RetryDelay),
	)

	// Speech output.
	var chime []byte
	if cfg.ChimePath != "" {
		if chime, err = os.ReadFile(cfg.ChimePath); err != nil {
			logger.Warn("chime file not readable, reminders play without one", "path", cfg.ChimePath, "error", err)
		}
	}
	pipeline := speech.New(
		tts.NewCartesia(cfg.CartesiaAPIKey),
		speech.NewCommandPlayer(cfg.PlayerCommand),
		logger,
		speech.WithSynthesizeOptions(tts.SynthesizeOptions{Voice: cfg.CartesiaVoice, Speed: cfg.SpeechSpeed}),
		speech.WithChime(chime),
		speech.WithQueueSize(cfg.QueueSize),
	)
	pipeline.Start(runCtx)

	// Capture side.
	frames := audio.NewCommandFrameSource("")
	defer frames.Close()
	recorder := audio.NewVADRecorder(frames, audio.DefaultVADParams(), 16000)
	wake := audio.NewLineWake(os.Stdin)

	asst := assistant.New(wake, recorder, dialogue, pipeline, assistant.Config{
		RecordMaxDuration:  cfg.RecordMaxDuration,
		SilenceWindow:      cfg.SilenceWindow,
		FollowUpEnabled:    cfg.FollowUpEnabled,
		FollowUpWindow:     cfg.FollowUpWindow,
		FollowUpConfidence: cfg.FollowUpConfidence,
	}, logger)
	asst.Start(runCtx)
	defer asst.Stop()

	// Background reminder scheduler, alive for the whole process.
	scheduler := reminder.NewScheduler(store, dialogue, asst, cfg.ReminderPollInterval, logger)
	go scheduler.Run(runCtx)

	// Control panel.
	panelErr := make(chan error, 1)
	if cfg.PanelAddr != "" {
		srv := panel.NewServer(asst, cfg.PromptPath, cfg.EnvPath, logger)
		go func() {
			panelErr <- srv.Run(cfg.PanelAddr)
		}()
		logger.Info("control panel listening", "addr", cfg.PanelAddr)
	}

	logger.Info("assistant ready", "model", cfg.GeminiModel, "follow_up", cfg.FollowUpEnabled)

	sigCh := make(chan os.Signal, 1)
	deps.signalNotify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer deps.signalStop(sigCh)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-panelErr:
		return fmt.Errorf("control panel: %w", err)
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	}

	asst.Stop()

	// Let queued speech finish before tearing the pipeline down.
	drainCtx, drainCancel := context.WithTimeout(context.Background(), cfg.RecordMaxDuration)
	defer drainCancel()
	if err := pipeline.WaitIdle(drainCtx); err != nil {
		logger.Warn("speech did not drain before shutdown", "error", err)
	}
	return nil
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := runAssistant(context.Background(), logger, defaultAriaDeps()); err != nil && err != context.Canceled {
		logger.Error("assistant exited", "error", err)
		os.Exit(1)
	}
}
