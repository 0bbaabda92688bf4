package news

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
)

// GNews fetches articles from a GNews-compatible search API.
type GNews struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	query      string
	lang       string
	country    string
	maxResults int
}

// NewGNews creates a GNews API provider.
func NewGNews(baseURL, apiKey, query, lang, country string, maxResults int) *GNews {
	if baseURL == "" {
		baseURL = "https://gnews.io/api/v4"
	}
	if lang == "" {
		lang = "en"
	}
	if country == "" {
		country = "us"
	}
	if maxResults <= 0 {
		maxResults = 10
	}
	return &GNews{
		client:     &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		apiKey:     apiKey,
		query:      query,
		lang:       lang,
		country:    country,
		maxResults: maxResults,
	}
}

func (g *GNews) Name() string { return "gnews" }

// WithQuery returns a copy of the provider fetching a different search term.
func (g *GNews) WithQuery(query string) *GNews {
	clone := *g
	clone.query = query
	return &clone
}

type gnewsResponse struct {
	Articles []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Content     string `json:"content"`
		URL         string `json:"url"`
		Image       string `json:"image"`
		PublishedAt string `json:"publishedAt"`
		Source      struct {
			Name string `json:"name"`
			URL  string `json:"url"`
		} `json:"source"`
	} `json:"articles"`
}

func (g *GNews) Fetch(ctx context.Context) ([]Article, error) {
	q := url.Values{}
	q.Set("q", g.query)
	q.Set("lang", g.lang)
	q.Set("country", g.country)
	q.Set("max", fmt.Sprintf("%d", g.maxResults))
	q.Set("apikey", g.apiKey)

	endpoint := g.baseURL + "/search?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create gnews request: %w", err)
	}
	req.Header.Set("User-Agent", "newsrec/1.0")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch gnews %q: %w", g.query, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gnews %q status %d", g.query, resp.StatusCode)
	}

	var payload gnewsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode gnews response: %w", err)
	}

	now := time.Now().UTC()
	articles := make([]Article, 0, len(payload.Articles))
	for _, raw := range payload.Articles {
		var published *time.Time
		if raw.PublishedAt != "" {
			if t, err := time.Parse(time.RFC3339, raw.PublishedAt); err == nil {
				utc := t.UTC()
				published = &utc
			}
		}

		a := Article{
			Title:       raw.Title,
			Description: raw.Description,
			Content:     raw.Content,
			URL:         raw.URL,
			ImageURL:    raw.Image,
			PublishedAt: published,
			SourceName:  raw.Source.Name,
			SourceURL:   raw.Source.URL,
			Language:    g.lang,
			Country:     g.country,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		a.EnsureID()
		articles = append(articles, a)
	}

	return articles, nil
}
