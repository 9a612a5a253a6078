package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aria-voice/aria/pkg/core/types"
)

const routesComputeURL = "https://routes.googleapis.com/directions/v2:computeRoutes"

var errMissingGoogleCloudKey = errors.New("Google Cloud API key not found")

var validTravelModes = map[string]bool{
	"DRIVE":   true,
	"WALK":    true,
	"BICYCLE": true,
	"TRANSIT": true,
}

// DirectionsService computes routes through the Google Routes API, using the
// places service to resolve free-form location queries first.
type DirectionsService struct {
	apiKey     string
	places     *PlacesService
	httpClient *http.Client
	baseURL    string
}

// NewDirectionsService creates a directions service.
func NewDirectionsService(apiKey string, places *PlacesService, client *http.Client) *DirectionsService {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &DirectionsService{
		apiKey:     apiKey,
		places:     places,
		httpClient: client,
		baseURL:    routesComputeURL,
	}
}

// Descriptor declares the get_directions tool.
func (s *DirectionsService) Descriptor() types.ToolDescriptor {
	return types.ToolDescriptor{
		Name:        "get_directions",
		Description: "Get directions, including time and steps, between two locations.",
		Parameters: types.ObjectSchema(map[string]*types.Schema{
			"origin":      types.StringSchema("Starting location."),
			"destination": types.StringSchema("Ending location."),
			"travel_mode": types.EnumSchema("Mode of travel. Default is DRIVE.", "DRIVE", "WALK", "BICYCLE", "TRANSIT"),
		}, "origin", "destination"),
	}
}

// Handle implements the get_directions tool.
func (s *DirectionsService) Handle(ctx context.Context, args map[string]any) any {
	if s.apiKey == "" {
		return Errorf("Google Cloud API key not found")
	}

	origin := stringArg(args, "origin", "")
	destination := stringArg(args, "destination", "")
	if origin == "" || destination == "" {
		return Errorf("origin and destination are required")
	}

	travelMode := strings.ToUpper(stringArg(args, "travel_mode", "DRIVE"))
	if !validTravelModes[travelMode] {
		return Errorf("invalid travel mode %q, choose DRIVE, WALK, BICYCLE, or TRANSIT", travelMode)
	}

	originAddr := s.resolveAddress(ctx, origin)
	destAddr := s.resolveAddress(ctx, destination)

	body := map[string]any{
		"origin":                   map[string]any{"address": originAddr},
		"destination":              map[string]any{"address": destAddr},
		"travelMode":               travelMode,
		"computeAlternativeRoutes": false,
		"languageCode":             "en-US",
		"units":                    "IMPERIAL",
	}
	if travelMode == "DRIVE" {
		body["routingPreference"] = "TRAFFIC_AWARE"
		body["routeModifiers"] = map[string]any{"avoidTolls": true}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return Errorf("directions request failed: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(payload))
	if err != nil {
		return Errorf("directions request failed: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", s.apiKey)
	req.Header.Set("X-Goog-FieldMask", "routes.duration,routes.distanceMeters,routes.legs.steps.navigationInstruction")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return Errorf("directions request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Errorf("directions request failed with status %d", resp.StatusCode)
	}

	var result struct {
		Routes []struct {
			Duration       string `json:"duration"`
			DistanceMeters int    `json:"distanceMeters"`
			Legs           []struct {
				Steps []struct {
					NavigationInstruction struct {
						Instructions string `json:"instructions"`
					} `json:"navigationInstruction"`
				} `json:"steps"`
			} `json:"legs"`
		} `json:"routes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Errorf("invalid response from directions API: %v", err)
	}
	if len(result.Routes) == 0 {
		return Errorf("no routes found")
	}

	route := result.Routes[0]
	steps := []string{}
	for _, leg := range route.Legs {
		for _, step := range leg.Steps {
			if step.NavigationInstruction.Instructions != "" {
				steps = append(steps, step.NavigationInstruction.Instructions)
			}
		}
	}

	return map[string]any{
		"origin":      originAddr,
		"destination": destAddr,
		"duration":    formatRouteDuration(route.Duration),
		"distance":    fmt.Sprintf("%.2f miles", float64(route.DistanceMeters)/1609.34),
		"steps":       steps,
	}
}

// resolveAddress swaps a free-form query for the top place-search address.
// The original query is kept when the lookup yields nothing.
func (s *DirectionsService) resolveAddress(ctx context.Context, query string) string {
	if s.places == nil {
		return query
	}
	results, err := s.places.Search(ctx, query, false)
	if err != nil || len(results) == 0 {
		return query
	}
	return results[0].Address
}

// formatRouteDuration converts the API's "1234s" duration to "20m 34s" or
// "1h 5m" form.
func formatRouteDuration(raw string) string {
	seconds, err := strconv.Atoi(strings.TrimSuffix(raw, "s"))
	if err != nil {
		return raw
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm %ds", minutes, secs)
}

func statusError(code int) error {
	return fmt.Errorf("status %d", code)
}
