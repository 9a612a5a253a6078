package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/aria-voice/aria/pkg/core/types"
)

const newsdataLatestURL = "https://newsdata.io/api/1/latest"

// NewsService fetches headlines from newsdata.io.
type NewsService struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string

	country string
	domain  string
}

// NewNewsService creates a news service.
func NewNewsService(apiKey string, client *http.Client) *NewsService {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &NewsService{
		apiKey:     apiKey,
		httpClient: client,
		baseURL:    newsdataLatestURL,
		country:    "gb",
		domain:     "bbc.com",
	}
}

// Descriptor declares the get_news tool.
func (s *NewsService) Descriptor() types.ToolDescriptor {
	return types.ToolDescriptor{
		Name:        "get_news",
		Description: "Get news articles. If no query is provided, the top news is fetched.",
		Parameters: types.ObjectSchema(map[string]*types.Schema{
			"query": types.StringSchema("The search query. If not provided the top news is fetched."),
		}),
	}
}

// Handle implements the get_news tool.
func (s *NewsService) Handle(ctx context.Context, args map[string]any) any {
	if s.apiKey == "" {
		return Errorf("News API key not found")
	}

	q := url.Values{}
	q.Set("apikey", s.apiKey)
	q.Set("country", s.country)
	q.Set("prioritydomain", "top")
	q.Set("size", "5")
	q.Set("domainurl", s.domain)
	q.Set("language", "en")
	if query := stringArg(args, "query", ""); query != "" {
		q.Set("q", query)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return Errorf("news request failed: %v", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return Errorf("news request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Errorf("news request failed with status %d", resp.StatusCode)
	}

	var data struct {
		Status       string `json:"status"`
		TotalResults int    `json:"totalResults"`
		Results      []struct {
			Title       string `json:"title"`
			Link        string `json:"link"`
			Description string `json:"description"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return Errorf("invalid response from news API: %v", err)
	}

	if len(data.Results) > 5 {
		data.Results = data.Results[:5]
	}
	articles := make([]map[string]any, 0, len(data.Results))
	for _, a := range data.Results {
		articles = append(articles, map[string]any{
			"title":       a.Title,
			"link":        a.Link,
			"description": a.Description,
		})
	}

	return map[string]any{
		"status":       data.Status,
		"totalResults": fmt.Sprintf("%d", data.TotalResults),
		"results":      articles,
	}
}
