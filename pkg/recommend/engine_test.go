package recommend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pranavkulkarni/newsrec/internal/store"
	"github.com/pranavkulkarni/newsrec/pkg/news"
)

func newTestEngine(t *testing.T) (*Engine, *store.SQLiteStore) {
	t.Helper()

	db, err := store.New(filepath.Join(t.TempDir(), "test.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewEngine(db, db, zerolog.Nop()), db
}

func seedArticle(t *testing.T, db *store.SQLiteStore, url, title string, top []string) string {
	t.Helper()

	published := time.Now().UTC()
	a := news.Article{
		Title:           title,
		URL:             url,
		PublishedAt:     &published,
		PredictedLabels: top[:1],
		TopLabels:       top,
	}
	if err := db.Upsert(context.Background(), &a); err != nil {
		t.Fatalf("seed %s: %v", title, err)
	}
	return a.ID
}

func TestPreferencesEmptyHistory(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)

	prefs, err := e.Preferences(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("preferences: %v", err)
	}
	if prefs.UserID != "nobody" || prefs.TotalClicks != 0 || prefs.UniqueArticles != 0 {
		t.Fatalf("expected zeroed profile, got %+v", prefs)
	}
	if prefs.CategoryCounts == nil || len(prefs.CategoryCounts) != 0 {
		t.Fatalf("category counts must be an empty map, got %v", prefs.CategoryCounts)
	}
	if prefs.TopCategories == nil || len(prefs.TopCategories) != 0 {
		t.Fatalf("top categories must be an empty list, got %v", prefs.TopCategories)
	}
}

func TestPreferencesFlattensTopLabels(t *testing.T) {
	t.Parallel()

	e, db := newTestEngine(t)
	ctx := context.Background()

	id := seedArticle(t, db, "https://x.test/a", "A", []string{"sports", "news", "finance"})
	if err := db.Record(ctx, "u1", id, "click"); err != nil {
		t.Fatalf("record: %v", err)
	}

	prefs, err := e.Preferences(ctx, "u1")
	if err != nil {
		t.Fatalf("preferences: %v", err)
	}
	if prefs.TotalClicks != 1 || prefs.UniqueArticles != 1 {
		t.Fatalf("counts: %+v", prefs)
	}
	for _, label := range []string{"sports", "news", "finance"} {
		if prefs.CategoryCounts[label] != 1 {
			t.Fatalf("label %s: got %d, want 1", label, prefs.CategoryCounts[label])
		}
	}
	// All three counts tie at one; first-seen order in the stored list
	// decides the ranking.
	want := []string{"sports", "news", "finance"}
	for i := range want {
		if prefs.TopCategories[i] != want[i] {
			t.Fatalf("ranking: got %v, want %v", prefs.TopCategories, want)
		}
	}
}

func TestPreferencesRanksByFrequency(t *testing.T) {
	t.Parallel()

	e, db := newTestEngine(t)
	ctx := context.Background()

	a := seedArticle(t, db, "https://x.test/a", "A", []string{"finance", "business", "news"})
	b := seedArticle(t, db, "https://x.test/b", "B", []string{"business", "technology", "news"})

	for _, id := range []string{a, a, b} {
		if err := db.Record(ctx, "u1", id, "click"); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	prefs, err := e.Preferences(ctx, "u1")
	if err != nil {
		t.Fatalf("preferences: %v", err)
	}
	if prefs.TotalClicks != 3 || prefs.UniqueArticles != 2 {
		t.Fatalf("counts: %+v", prefs)
	}
	// business and news appear in every click, finance twice, technology
	// once. The tied leaders must rank ahead of the rest.
	if prefs.CategoryCounts["news"] != 3 || prefs.CategoryCounts["business"] != 3 ||
		prefs.CategoryCounts["finance"] != 2 || prefs.CategoryCounts["technology"] != 1 {
		t.Fatalf("counts: %v", prefs.CategoryCounts)
	}
	leaders := map[string]bool{prefs.TopCategories[0]: true, prefs.TopCategories[1]: true}
	if !leaders["business"] || !leaders["news"] {
		t.Fatalf("tied leaders not ranked first: %v", prefs.TopCategories)
	}
	if prefs.TopCategories[2] != "finance" || prefs.TopCategories[3] != "technology" {
		t.Fatalf("tail of ranking wrong: %v", prefs.TopCategories)
	}
}

func TestRecommendExcludesClicked(t *testing.T) {
	t.Parallel()

	e, db := newTestEngine(t)
	ctx := context.Background()

	clicked := seedArticle(t, db, "https://x.test/s1", "S1", []string{"sports", "news", "finance"})
	fresh := seedArticle(t, db, "https://x.test/s2", "S2", []string{"sports", "news", "finance"})
	seedArticle(t, db, "https://x.test/b", "B", []string{"business", "finance", "news"})

	if err := db.Record(ctx, "u1", clicked, "click"); err != nil {
		t.Fatalf("record: %v", err)
	}

	got, err := e.Recommend(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if len(got) != 1 || got[0].ID != fresh {
		t.Fatalf("expected only the unclicked sports article, got %v", got)
	}
}

func TestRecommendFallsBackToPopular(t *testing.T) {
	t.Parallel()

	e, db := newTestEngine(t)
	ctx := context.Background()

	hot := seedArticle(t, db, "https://x.test/hot", "Hot", []string{"sports", "news", "finance"})
	seedArticle(t, db, "https://x.test/cold", "Cold", []string{"business", "finance", "news"})

	// Another user's clicks drive popularity; the requesting user has no
	// history at all.
	for i := 0; i < 2; i++ {
		if err := db.Record(ctx, "other", hot, "click"); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	got, err := e.Recommend(ctx, "newcomer", 10)
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected both articles, got %d", len(got))
	}
	if got[0].ID != hot {
		t.Fatalf("expected the most clicked article first, got %s", got[0].Title)
	}
}

func TestRecommendLimit(t *testing.T) {
	t.Parallel()

	e, db := newTestEngine(t)
	ctx := context.Background()

	clicked := seedArticle(t, db, "https://x.test/s0", "S0", []string{"sports", "news", "finance"})
	seedArticle(t, db, "https://x.test/s1", "S1", []string{"sports", "news", "finance"})
	seedArticle(t, db, "https://x.test/s2", "S2", []string{"sports", "news", "finance"})
	seedArticle(t, db, "https://x.test/s3", "S3", []string{"sports", "news", "finance"})

	if err := db.Record(ctx, "u1", clicked, "click"); err != nil {
		t.Fatalf("record: %v", err)
	}

	got, err := e.Recommend(ctx, "u1", 2)
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("limit not applied: got %d", len(got))
	}
	for _, a := range got {
		if a.ID == clicked {
			t.Fatalf("clicked article leaked into recommendations: %s", a.ID)
		}
	}
}
