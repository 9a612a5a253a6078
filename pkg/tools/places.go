package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/aria-voice/aria/pkg/core/types"
)

const placesSearchURL = "https://places.googleapis.com/v1/places:searchText"

// PlacesService performs text searches against the Google Places API.
type PlacesService struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
}

// NewPlacesService creates a places service.
func NewPlacesService(apiKey string, client *http.Client) *PlacesService {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &PlacesService{apiKey: apiKey, httpClient: client, baseURL: placesSearchURL}
}

// Descriptor declares the get_place_information tool.
func (s *PlacesService) Descriptor() types.ToolDescriptor {
	return types.ToolDescriptor{
		Name:        "get_place_information",
		Description: "Perform a place search and return names, addresses and ratings.",
		Parameters: types.ObjectSchema(map[string]*types.Schema{
			"query":    types.StringSchema("The place or business to search for."),
			"open_now": types.BoolSchema("Return only places that are open for business at the time the query is sent."),
		}, "query"),
	}
}

// PlaceResult is one place search hit.
type PlaceResult struct {
	Name    string   `json:"name"`
	Address string   `json:"address"`
	Types   []string `json:"types"`
	Rating  float64  `json:"rating"`
}

// Handle implements the get_place_information tool.
func (s *PlacesService) Handle(ctx context.Context, args map[string]any) any {
	query := stringArg(args, "query", "")
	if query == "" {
		return Errorf("query is required")
	}
	results, err := s.Search(ctx, query, boolArg(args, "open_now", false))
	if err != nil {
		return Errorf("places request failed: %v", err)
	}
	return map[string]any{"status": "OK", "results": results}
}

// Search runs a text search. Also used by the directions service to resolve
// free-form origin/destination queries to addresses.
func (s *PlacesService) Search(ctx context.Context, query string, openNow bool) ([]PlaceResult, error) {
	if s.apiKey == "" {
		return nil, errMissingGoogleCloudKey
	}

	body := map[string]any{
		"textQuery":      query,
		"maxResultCount": 5,
	}
	if openNow {
		body["openNow"] = true
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", s.apiKey)
	req.Header.Set("X-Goog-FieldMask", "places.displayName,places.formattedAddress,places.types,places.rating")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode)
	}

	var data struct {
		Places []struct {
			DisplayName struct {
				Text string `json:"text"`
			} `json:"displayName"`
			FormattedAddress string   `json:"formattedAddress"`
			Types            []string `json:"types"`
			Rating           float64  `json:"rating"`
		} `json:"places"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, err
	}

	results := make([]PlaceResult, 0, len(data.Places))
	for _, p := range data.Places {
		results = append(results, PlaceResult{
			Name:    p.DisplayName.Text,
			Address: p.FormattedAddress,
			Types:   p.Types,
			Rating:  p.Rating,
		})
	}
	return results, nil
}
