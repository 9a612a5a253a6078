package tools

import (
	"fmt"
	"net/http"

	"github.com/aria-voice/aria/pkg/reminder"
)

// SuiteConfig carries the credentials and file paths for the standard tool
// suite. Tools whose keys are empty still register and return a structured
// error result when called, so the model learns the capability is
// unavailable instead of hallucinating around a missing tool.
type SuiteConfig struct {
	OpenWeatherAPIKey string
	NewsAPIKey        string
	GoogleAPIKey      string
	GoogleCSEID       string
	GoogleCloudAPIKey string
	DiscordBotToken   string

	NotesPath string

	HTTPClient *http.Client
}

// NewSuite builds the assistant's full tool registry: weather, news, web
// search, directions, places, notes, messaging, and the reminder pair
// backed by the given store.
func NewSuite(cfg SuiteConfig, store *reminder.Store) (*Registry, error) {
	registry := NewRegistry()

	weather := NewWeatherService(cfg.OpenWeatherAPIKey, cfg.HTTPClient)
	news := NewNewsService(cfg.NewsAPIKey, cfg.HTTPClient)
	search := NewSearchService(cfg.GoogleAPIKey, cfg.GoogleCSEID, cfg.HTTPClient)
	places := NewPlacesService(cfg.GoogleCloudAPIKey, cfg.HTTPClient)
	directions := NewDirectionsService(cfg.GoogleCloudAPIKey, places, cfg.HTTPClient)
	notes := NewNotesService(cfg.NotesPath)
	reminders := NewReminderTools(store)

	messages, err := NewMessageService(cfg.DiscordBotToken)
	if err != nil {
		return nil, fmt.Errorf("message service: %w", err)
	}

	registry.MustRegister(weather.Descriptor(), weather.Handle)
	registry.MustRegister(news.Descriptor(), news.Handle)
	registry.MustRegister(search.Descriptor(), search.Handle)
	registry.MustRegister(directions.Descriptor(), directions.Handle)
	registry.MustRegister(places.Descriptor(), places.Handle)
	registry.MustRegister(notes.Descriptor(), notes.Handle)
	registry.MustRegister(messages.Descriptor(), messages.Handle)
	registry.MustRegister(reminders.SetDescriptor(), reminders.HandleSet)
	registry.MustRegister(reminders.GetDescriptor(), reminders.HandleGet)

	return registry, nil
}
