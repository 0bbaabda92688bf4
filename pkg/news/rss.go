package news

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

// RSSFeed is a named RSS/Atom feed URL.
type RSSFeed struct {
	Name string
	URL  string
}

// RSS collects articles from RSS/Atom feeds.
type RSS struct {
	client  *http.Client
	parser  *gofeed.Parser
	feeds   []RSSFeed
	lang    string
	country string
}

// NewRSS creates a new RSS provider.
func NewRSS(feeds []RSSFeed, lang, country string) *RSS {
	return &RSS{
		client:  &http.Client{Timeout: 30 * time.Second},
		parser:  gofeed.NewParser(),
		feeds:   feeds,
		lang:    lang,
		country: country,
	}
}

func (r *RSS) Name() string { return "rss" }

func (r *RSS) Fetch(ctx context.Context) ([]Article, error) {
	var all []Article

	for _, feed := range r.feeds {
		articles, err := r.fetchFeed(ctx, feed)
		if err != nil {
			// One broken feed must not sink the rest.
			fmt.Printf("  rss feed %s error: %v\n", feed.Name, err)
			continue
		}
		all = append(all, articles...)
	}

	return all, nil
}

func (r *RSS) fetchFeed(ctx context.Context, feed RSSFeed) ([]Article, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create rss request %s: %w", feed.Name, err)
	}
	req.Header.Set("User-Agent", "newsrec/1.0")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch rss %s: %w", feed.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rss %s status %d", feed.Name, resp.StatusCode)
	}

	parsed, err := r.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse rss %s: %w", feed.Name, err)
	}

	now := time.Now().UTC()
	var articles []Article

	for _, entry := range parsed.Items {
		var published *time.Time
		if entry.PublishedParsed != nil {
			utc := entry.PublishedParsed.UTC()
			published = &utc
		} else if entry.UpdatedParsed != nil {
			utc := entry.UpdatedParsed.UTC()
			published = &utc
		}

		link := entry.Link
		if link == "" && len(entry.Links) > 0 {
			link = entry.Links[0]
		}

		image := ""
		if entry.Image != nil {
			image = entry.Image.URL
		}

		a := Article{
			Title:       entry.Title,
			Description: Truncate(StripHTML(entry.Description), 500),
			Content:     StripHTML(entry.Content),
			URL:         link,
			ImageURL:    image,
			PublishedAt: published,
			SourceName:  feed.Name,
			SourceURL:   parsed.Link,
			Language:    r.lang,
			Country:     r.country,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		a.EnsureID()
		articles = append(articles, a)
	}

	return articles, nil
}

// StripHTML reduces feed markup to plain text. Feeds routinely wrap
// descriptions in HTML, which would pollute vectorization downstream.
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(doc.Text())
}

// Truncate cuts a string to maxLen with an ellipsis marker.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
