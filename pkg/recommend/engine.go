package recommend

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/pranavkulkarni/newsrec/internal/store"
	"github.com/pranavkulkarni/newsrec/pkg/news"
)

// topCategoryCount caps the ranked category list in a preference profile.
const topCategoryCount = 5

// Engine derives preference profiles from click history and turns them
// into recommendations. It owns no persistent state of its own.
type Engine struct {
	articles     store.Articles
	interactions store.Interactions
	log          zerolog.Logger
}

// NewEngine creates a recommendation engine over the two stores.
func NewEngine(articles store.Articles, interactions store.Interactions, log zerolog.Logger) *Engine {
	return &Engine{articles: articles, interactions: interactions, log: log}
}

// Preferences is a user's derived category profile. It is computed on
// demand and never stored.
type Preferences struct {
	UserID         string         `json:"user_id"`
	TotalClicks    int            `json:"total_clicks"`
	UniqueArticles int            `json:"unique_news_clicked"`
	CategoryCounts map[string]int `json:"preferred_categories"`
	TopCategories  []string       `json:"most_clicked_categories"`
}

// Preferences flattens the top-label list of every article in the user's
// history into one frequency count per label. Ties in the ranked list are
// broken by first-seen order during the flattening pass, which makes the
// ordering deterministic. A user with no history gets a zeroed profile,
// not an error.
func (e *Engine) Preferences(ctx context.Context, userID string) (*Preferences, error) {
	history, err := e.interactions.History(ctx, userID, 0)
	if err != nil {
		return nil, fmt.Errorf("load history for %s: %w", userID, err)
	}

	prefs := &Preferences{
		UserID:         userID,
		CategoryCounts: map[string]int{},
		TopCategories:  []string{},
	}
	if len(history) == 0 {
		return prefs, nil
	}

	prefs.TotalClicks = len(history)

	unique := make(map[string]bool)
	firstSeen := make(map[string]int)
	for _, entry := range history {
		unique[entry.ArticleID] = true
		for _, label := range entry.TopLabels {
			if _, seen := firstSeen[label]; !seen {
				firstSeen[label] = len(firstSeen)
			}
			prefs.CategoryCounts[label]++
		}
	}
	prefs.UniqueArticles = len(unique)

	ranked := make([]string, 0, len(prefs.CategoryCounts))
	for label := range prefs.CategoryCounts {
		ranked = append(ranked, label)
	}
	sort.Slice(ranked, func(i, j int) bool {
		ci, cj := prefs.CategoryCounts[ranked[i]], prefs.CategoryCounts[ranked[j]]
		if ci != cj {
			return ci > cj
		}
		return firstSeen[ranked[i]] < firstSeen[ranked[j]]
	})
	if len(ranked) > topCategoryCount {
		ranked = ranked[:topCategoryCount]
	}
	prefs.TopCategories = ranked

	return prefs, nil
}

// Recommend returns up to limit unseen articles from the user's single top
// category, ordered by publication time as ListByCategory returns them.
// Users without a profile get the global popularity ranking instead. The
// single-category strategy is deliberate; there is no blended
// multi-category ranking.
func (e *Engine) Recommend(ctx context.Context, userID string, limit int) ([]news.Article, error) {
	if limit <= 0 {
		limit = 10
	}

	prefs, err := e.Preferences(ctx, userID)
	if err != nil {
		return nil, err
	}

	if len(prefs.TopCategories) == 0 {
		e.log.Debug().Str("user", userID).Msg("no profile, falling back to popular")
		return e.articles.Popular(ctx, limit)
	}

	top := prefs.TopCategories[0]
	candidates, err := e.articles.ListByCategory(ctx, top)
	if err != nil {
		return nil, fmt.Errorf("list category %q: %w", top, err)
	}

	clicked, err := e.interactions.ClickedIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("clicked ids for %s: %w", userID, err)
	}
	seen := make(map[string]bool, len(clicked))
	for _, id := range clicked {
		seen[id] = true
	}

	recommendations := make([]news.Article, 0, limit)
	for _, a := range candidates {
		if seen[a.ID] {
			continue
		}
		recommendations = append(recommendations, a)
		if len(recommendations) == limit {
			break
		}
	}

	return recommendations, nil
}
