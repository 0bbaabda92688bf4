package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/pranavkulkarni/newsrec/pkg/news"
)

// ErrNotFound signals a point lookup on an absent row.
var ErrNotFound = errors.New("store: not found")

// Interaction records a single user event against an article. Rows are
// append-only; the article reference is soft and never blocks inserts.
type Interaction struct {
	ID        int64     `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	ArticleID string    `db:"article_id" json:"news_id"`
	Type      string    `db:"interaction_type" json:"interaction_type"`
	Timestamp time.Time `db:"timestamp" json:"timestamp"`
}

// HistoryEntry is an interaction joined with its article where the article
// still exists; the joined fields are nil otherwise.
type HistoryEntry struct {
	Interaction
	Title         *string `db:"title" json:"title"`
	URL           *string `db:"url" json:"url"`
	PredictedJSON *string `db:"predicted_labels" json:"-"`
	TopJSON       *string `db:"top_labels" json:"-"`

	PredictedLabels []string `db:"-" json:"predicted_labels"`
	TopLabels       []string `db:"-" json:"top_labels"`
}

// UserStats aggregates a user's interaction history. FavoriteCategory is
// the head of the most frequent stored top-label array, grouped on its
// exact serialized form.
type UserStats struct {
	UserID           string `json:"user_id"`
	TotalClicks      int    `json:"total_clicks"`
	UniqueArticles   int    `json:"unique_articles"`
	FavoriteCategory string `json:"favorite_category,omitempty"`
}

// Articles is the article persistence interface.
type Articles interface {
	Upsert(ctx context.Context, a *news.Article) error
	BatchUpsert(ctx context.Context, articles []news.Article) int
	Get(ctx context.Context, id string) (*news.Article, error)
	Exists(ctx context.Context, id string) (bool, error)
	ListAll(ctx context.Context, limit int) ([]news.Article, error)
	ListByCategory(ctx context.Context, category string) ([]news.Article, error)
	Popular(ctx context.Context, limit int) ([]news.Article, error)
	PruneOlderThan(ctx context.Context, days int) (int64, error)
}

// Interactions is the interaction log interface.
type Interactions interface {
	Record(ctx context.Context, userID, articleID, interactionType string) error
	History(ctx context.Context, userID string, limit int) ([]HistoryEntry, error)
	ClickedIDs(ctx context.Context, userID string) ([]string, error)
	CountFor(ctx context.Context, articleID string) (int, error)
	Statistics(ctx context.Context, userID string) (*UserStats, error)
}

// Store is the combined persistence interface.
type Store interface {
	Articles
	Interactions
	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db  *sqlx.DB
	log zerolog.Logger
}

// New opens a SQLite database and runs migrations. WAL allows concurrent
// readers; busy_timeout bounds how long a writer waits for the lock before
// the write fails.
func New(path string, log zerolog.Logger) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db, log: log}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// encodeLabels produces the canonical stored form of a label collection.
// An empty or nil set encodes as "[]" so decoding never sees NULL.
func encodeLabels(labels []string) string {
	if len(labels) == 0 {
		return "[]"
	}
	data, err := json.Marshal(labels)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// decodeLabels is the single decode boundary for stored label arrays.
// Malformed rows degrade to an empty set rather than failing the read.
func (s *SQLiteStore) decodeLabels(raw string) []string {
	if raw == "" || raw == "[]" {
		return []string{}
	}
	var labels []string
	if err := json.Unmarshal([]byte(raw), &labels); err != nil {
		s.log.Warn().Str("raw", raw).Err(err).Msg("malformed label encoding, using empty set")
		return []string{}
	}
	return labels
}

func (s *SQLiteStore) decodeArticle(a *news.Article) {
	a.PredictedLabels = s.decodeLabels(a.PredictedJSON)
	a.TopLabels = s.decodeLabels(a.TopJSON)
}
