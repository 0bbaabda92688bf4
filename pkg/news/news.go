package news

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"time"
)

// idLength is the number of hex characters kept from the content hash.
const idLength = 16

// Article is the standardized data model for all providers.
type Article struct {
	ID          string     `json:"news_id" db:"id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	Content     string     `json:"content" db:"content"`
	URL         string     `json:"url" db:"url"`
	ImageURL    string     `json:"image_url" db:"image_url"`
	PublishedAt *time.Time `json:"published_at" db:"published_at"`
	SourceName  string     `json:"source_name" db:"source_name"`
	SourceURL   string     `json:"source_url" db:"source_url"`
	Language    string     `json:"language" db:"language"`
	Country     string     `json:"country" db:"country"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`

	// Labels assigned by the classifier. PredictedLabels is the thresholded
	// set; TopLabels ranks the strongest candidates regardless of threshold.
	PredictedLabels []string `json:"predicted_labels" db:"-"`
	TopLabels       []string `json:"top_labels" db:"-"`

	// Raw JSON-encoded forms of the label columns. Populated only at the
	// persistence boundary; in-memory code uses the decoded slices above.
	PredictedJSON string `json:"-" db:"predicted_labels"`
	TopJSON       string `json:"-" db:"top_labels"`

	// ClickCount is filled by popularity queries, zero elsewhere.
	ClickCount int `json:"click_count,omitempty" db:"click_count"`
}

// Provider is the interface every article source must implement.
type Provider interface {
	Name() string
	Fetch(ctx context.Context) ([]Article, error)
}

// ArticleID derives the stable identifier for an article: a truncated hash
// of the canonical URL, falling back to the title, then to an arbitrary
// fallback value when both are empty. Re-ingesting the same URL always
// yields the same ID.
func ArticleID(url, title, fallback string) string {
	identifier := url
	if identifier == "" {
		identifier = title
	}
	if identifier == "" {
		identifier = fallback
	}
	sum := md5.Sum([]byte(identifier))
	return hex.EncodeToString(sum[:])[:idLength]
}

// EnsureID fills in the article's ID and defaults when missing.
func (a *Article) EnsureID() {
	if a.ID == "" {
		a.ID = ArticleID(a.URL, a.Title, time.Now().UTC().Format(time.RFC3339Nano))
	}
	if a.Language == "" {
		a.Language = "en"
	}
	if a.Country == "" {
		a.Country = "us"
	}
}
