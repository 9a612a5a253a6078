package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/aria-voice/aria/pkg/core/types"
)

const customSearchURL = "https://www.googleapis.com/customsearch/v1"

// SearchService performs web searches through the Google Custom Search API.
type SearchService struct {
	apiKey     string
	engineID   string
	httpClient *http.Client
	baseURL    string
}

// NewSearchService creates a search service.
func NewSearchService(apiKey, engineID string, client *http.Client) *SearchService {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &SearchService{
		apiKey:     apiKey,
		engineID:   engineID,
		httpClient: client,
		baseURL:    customSearchURL,
	}
}

// Descriptor declares the google_search tool.
func (s *SearchService) Descriptor() types.ToolDescriptor {
	return types.ToolDescriptor{
		Name:        "google_search",
		Description: "Use Google search and return the top 5 results.",
		Parameters: types.ObjectSchema(map[string]*types.Schema{
			"query": types.StringSchema("The search query."),
		}, "query"),
	}
}

// Handle implements the google_search tool.
func (s *SearchService) Handle(ctx context.Context, args map[string]any) any {
	if s.apiKey == "" || s.engineID == "" {
		return Errorf("Google API key or search engine ID not found")
	}

	query := stringArg(args, "query", "")
	if query == "" {
		return Errorf("query is required")
	}

	q := url.Values{}
	q.Set("key", s.apiKey)
	q.Set("cx", s.engineID)
	q.Set("q", query)
	q.Set("gl", "uk")
	q.Set("num", "5")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return Errorf("search request failed: %v", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return Errorf("search request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Errorf("search request failed with status %d", resp.StatusCode)
	}

	var data struct {
		Items []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return Errorf("invalid response from search API: %v", err)
	}

	results := make([]map[string]any, 0, len(data.Items))
	for _, item := range data.Items {
		results = append(results, map[string]any{
			"title":   item.Title,
			"link":    item.Link,
			"snippet": item.Snippet,
		})
	}
	return results
}
