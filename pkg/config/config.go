// Package config loads all runtime settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Model transport.
	GeminiAPIKey string
	GeminiModel  string

	// Speech synthesis.
	CartesiaAPIKey string
	CartesiaVoice  string
	SpeechSpeed    float64
	PlayerCommand  string
	ChimePath      string

	// Tool backends. Any key left empty disables the matching tool at
	// call time, not at registration time.
	OpenWeatherAPIKey string
	NewsAPIKey        string
	GoogleAPIKey      string
	GoogleCSEID       string
	GoogleCloudAPIKey string
	DiscordBotToken   string

	// Persisted state.
	HistoryPath   string
	RemindersPath string
	NotesPath     string
	PromptPath    string
	EnvPath       string

	// Persona context.
	Location string

	// Dialogue tuning.
	MaxHistoryLength int
	MaxRetries       int
	RetryDelay       time.Duration

	// Reminder scheduler.
	ReminderPollInterval time.Duration

	// Capture windows.
	RecordMaxDuration time.Duration
	SilenceWindow     time.Duration
	FollowUpEnabled    bool
	FollowUpWindow     time.Duration
	FollowUpConfidence float64

	// Speech pipeline.
	QueueSize int

	// Control panel. Empty disables the panel.
	PanelAddr string
}

func LoadFromEnv() (Config, error) {
	cfg := Config{
		GeminiAPIKey:         os.Getenv("GEMINI_API_KEY"),
		GeminiModel:          envOr("ARIA_MODEL", "gemini-2.0-flash"),
		CartesiaAPIKey:       os.Getenv("CARTESIA_API_KEY"),
		CartesiaVoice:        os.Getenv("ARIA_VOICE_ID"),
		SpeechSpeed:          envFloat64Or("ARIA_SPEECH_SPEED", 0),
		PlayerCommand:        envOr("ARIA_PLAYER_COMMAND", "mpv"),
		ChimePath:            os.Getenv("ARIA_CHIME_PATH"),
		OpenWeatherAPIKey:    os.Getenv("OPENWEATHER_API_KEY"),
		NewsAPIKey:           os.Getenv("NEWSDATA_API_KEY"),
		GoogleAPIKey:         os.Getenv("GOOGLE_API_KEY"),
		GoogleCSEID:          os.Getenv("GOOGLE_CSE_ID"),
		GoogleCloudAPIKey:    os.Getenv("GOOGLE_CLOUD_API_KEY"),
		DiscordBotToken:      os.Getenv("DISCORD_BOT_TOKEN"),
		HistoryPath:          envOr("ARIA_HISTORY_PATH", "data/history.bin"),
		RemindersPath:        envOr("ARIA_REMINDERS_PATH", "data/reminders.json"),
		NotesPath:            envOr("ARIA_NOTES_PATH", "data/notes.json"),
		PromptPath:           envOr("ARIA_PROMPT_PATH", "data/prompt.txt"),
		EnvPath:              envOr("ARIA_ENV_PATH", ".env"),
		Location:             os.Getenv("ARIA_LOCATION"),
		MaxHistoryLength:     envIntOr("ARIA_MAX_HISTORY_LENGTH", 13),
		MaxRetries:           envIntOr("ARIA_MAX_RETRIES", 2),
		RetryDelay:           envDurationOr("ARIA_RETRY_DELAY", 3*time.Second),
		ReminderPollInterval: envDurationOr("ARIA_REMINDER_POLL_INTERVAL", time.Second),
		RecordMaxDuration:    envDurationOr("ARIA_RECORD_MAX_DURATION", 30*time.Second),
		SilenceWindow:        envDurationOr("ARIA_SILENCE_WINDOW", 1500*time.Millisecond),
		FollowUpEnabled:      envBoolOr("ARIA_FOLLOW_UP_ENABLED", true),
		FollowUpWindow:       envDurationOr("ARIA_FOLLOW_UP_WINDOW", 6*time.Second),
		FollowUpConfidence:   envFloat64Or("ARIA_FOLLOW_UP_CONFIDENCE", 0.75),
		QueueSize:            envIntOr("ARIA_SPEECH_QUEUE_SIZE", 64),
		PanelAddr:            envOr("ARIA_PANEL_ADDR", ":8090"),
	}

	if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
		return Config{}, fmt.Errorf("GEMINI_API_KEY must be set")
	}
	if strings.TrimSpace(cfg.CartesiaAPIKey) == "" {
		return Config{}, fmt.Errorf("CARTESIA_API_KEY must be set")
	}
	if cfg.MaxHistoryLength <= 0 {
		return Config{}, fmt.Errorf("ARIA_MAX_HISTORY_LENGTH must be > 0")
	}
	if cfg.MaxRetries < 0 {
		return Config{}, fmt.Errorf("ARIA_MAX_RETRIES must be >= 0")
	}
	if cfg.RetryDelay < 0 {
		return Config{}, fmt.Errorf("ARIA_RETRY_DELAY must be >= 0")
	}
	if cfg.ReminderPollInterval <= 0 {
		return Config{}, fmt.Errorf("ARIA_REMINDER_POLL_INTERVAL must be > 0")
	}
	if cfg.RecordMaxDuration <= 0 {
		return Config{}, fmt.Errorf("ARIA_RECORD_MAX_DURATION must be > 0")
	}
	if cfg.SilenceWindow <= 0 {
		return Config{}, fmt.Errorf("ARIA_SILENCE_WINDOW must be > 0")
	}
	if cfg.FollowUpWindow <= 0 {
		return Config{}, fmt.Errorf("ARIA_FOLLOW_UP_WINDOW must be > 0")
	}
	if cfg.QueueSize <= 0 {
		return Config{}, fmt.Errorf("ARIA_SPEECH_QUEUE_SIZE must be > 0")
	}

	return cfg, nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envIntOr(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func envFloat64Or(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return f
}

func envBoolOr(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return b
}

// envDurationOr accepts Go duration syntax, or a bare integer meaning
// milliseconds.
func envDurationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(raw); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return def
}
