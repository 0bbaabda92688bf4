package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/pranavkulkarni/newsrec/internal/store"
	"github.com/pranavkulkarni/newsrec/pkg/classifier"
	"github.com/pranavkulkarni/newsrec/pkg/news"
	"github.com/pranavkulkarni/newsrec/pkg/recommend"
)

func newTestServer(t *testing.T) (*Server, *store.SQLiteStore) {
	t.Helper()

	dir := t.TempDir()
	db, err := store.New(filepath.Join(dir, "test.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	engine := recommend.NewEngine(db, db, zerolog.Nop())
	pipeline := classifier.NewPipeline(
		classifier.NewModels(filepath.Join(dir, "absent-model.json")), zerolog.Nop())
	return New(db, engine, pipeline, nil, 0, zerolog.Nop()), db
}

func seedArticle(t *testing.T, db *store.SQLiteStore, url, title string, top []string) string {
	t.Helper()

	published := time.Now().UTC()
	a := news.Article{
		Title:           title,
		Description:     "desc",
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

func doRequest(t *testing.T, h http.Handler, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestHealth(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	rec := doRequest(t, s.Router(), http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health status: %d", rec.Code)
	}
}

func TestRequireUser(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	router := s.Router()

	for _, path := range []string{"/api/news/feed", "/api/news/recommendations", "/api/user/stats", "/api/user/history"} {
		rec := doRequest(t, router, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s without identity: got %d, want 401", path, rec.Code)
		}
		body := decodeBody(t, rec)
		if body["error"] != "not authenticated" {
			t.Fatalf("%s error body: %v", path, body)
		}
	}

	// Categories stays open.
	rec := doRequest(t, router, http.MethodGet, "/api/categories", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("categories should not require identity: %d", rec.Code)
	}
}

func TestCategories(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	rec := doRequest(t, s.Router(), http.MethodGet, "/api/categories", "", nil)

	body := decodeBody(t, rec)
	cats, ok := body["categories"].([]any)
	if !ok || len(cats) != len(Categories) {
		t.Fatalf("categories payload: %v", body)
	}
	if cats[0] != "all" {
		t.Fatalf(`first category must be "all", got %v`, cats[0])
	}
}

func TestFeed(t *testing.T) {
	t.Parallel()

	s, db := newTestServer(t)
	seedArticle(t, db, "https://x.test/s", "Sports story", []string{"sports", "news", "finance"})
	seedArticle(t, db, "https://x.test/b", "Business story", []string{"business", "finance", "news"})

	rec := doRequest(t, s.Router(), http.MethodGet, "/api/news/feed", "u1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("feed status: %d", rec.Code)
	}
	body := decodeBody(t, rec)
	items, ok := body["news"].([]any)
	if !ok || len(items) != 2 {
		t.Fatalf("feed payload: %v", body)
	}

	rec = doRequest(t, s.Router(), http.MethodGet, "/api/news/feed?category=sports", "u1", nil)
	body = decodeBody(t, rec)
	items = body["news"].([]any)
	if len(items) != 1 {
		t.Fatalf("filtered feed: %v", body)
	}
	item := items[0].(map[string]any)
	if item["title"] != "Sports story" {
		t.Fatalf("wrong article in filtered feed: %v", item)
	}
	if _, hasID := item["news_id"]; !hasID {
		t.Fatalf("feed item missing news_id: %v", item)
	}
}

func TestClickAndHistory(t *testing.T) {
	t.Parallel()

	s, db := newTestServer(t)
	id := seedArticle(t, db, "https://x.test/s", "Sports story", []string{"sports", "news", "finance"})
	router := s.Router()

	rec := doRequest(t, router, http.MethodPost, "/api/news/click", "u1",
		map[string]string{"news_id": id})
	if rec.Code != http.StatusOK {
		t.Fatalf("click status: %d body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, router, http.MethodPost, "/api/news/click", "u1", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("click without news_id: got %d, want 400", rec.Code)
	}

	rec = doRequest(t, router, http.MethodGet, "/api/user/history", "u1", nil)
	body := decodeBody(t, rec)
	history, ok := body["history"].([]any)
	if !ok || len(history) != 1 {
		t.Fatalf("history payload: %v", body)
	}
	entry := history[0].(map[string]any)
	if entry["news_id"] != id || entry["interaction_type"] != "click" {
		t.Fatalf("history entry: %v", entry)
	}
	if entry["title"] != "Sports story" {
		t.Fatalf("history entry not joined with article: %v", entry)
	}
}

func TestRecommendationsFlow(t *testing.T) {
	t.Parallel()

	s, db := newTestServer(t)
	clicked := seedArticle(t, db, "https://x.test/s1", "S1", []string{"sports", "news", "finance"})
	seedArticle(t, db, "https://x.test/s2", "S2", []string{"sports", "news", "finance"})
	router := s.Router()

	rec := doRequest(t, router, http.MethodPost, "/api/news/click", "u1",
		map[string]string{"news_id": clicked})
	if rec.Code != http.StatusOK {
		t.Fatalf("click status: %d", rec.Code)
	}

	rec = doRequest(t, router, http.MethodGet, "/api/news/recommendations", "u1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("recommendations status: %d", rec.Code)
	}
	body := decodeBody(t, rec)
	items := body["news"].([]any)
	if len(items) != 1 {
		t.Fatalf("expected one unclicked recommendation, got %v", body)
	}
	if items[0].(map[string]any)["title"] != "S2" {
		t.Fatalf("wrong recommendation: %v", items[0])
	}
}

func TestUserStats(t *testing.T) {
	t.Parallel()

	s, db := newTestServer(t)
	id := seedArticle(t, db, "https://x.test/s", "S", []string{"sports", "news", "finance"})
	router := s.Router()

	doRequest(t, router, http.MethodPost, "/api/news/click", "u1",
		map[string]string{"news_id": id})

	rec := doRequest(t, router, http.MethodGet, "/api/user/stats", "u1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stats status: %d", rec.Code)
	}
	body := decodeBody(t, rec)

	stats, ok := body["stats"].(map[string]any)
	if !ok {
		t.Fatalf("stats payload: %v", body)
	}
	if stats["total_clicks"].(float64) != 1 || stats["favorite_category"] != "sports" {
		t.Fatalf("stats: %v", stats)
	}

	prefs, ok := body["preferences"].(map[string]any)
	if !ok {
		t.Fatalf("preferences payload: %v", body)
	}
	if prefs["total_clicks"].(float64) != 1 {
		t.Fatalf("preferences: %v", prefs)
	}
	top := prefs["most_clicked_categories"].([]any)
	if len(top) != 3 || top[0] != "sports" {
		t.Fatalf("preference ranking: %v", top)
	}
}

func TestFetchNewsWithoutProvider(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	rec := doRequest(t, s.Router(), http.MethodPost, "/admin/fetch-news", "admin",
		map[string]string{"query": "sports"})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("fetch without provider: got %d, want 503", rec.Code)
	}
}

func TestFetchNewsIngestsAndDegrades(t *testing.T) {
	t.Parallel()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"articles":[{"title":"T","description":"D","content":"C",` +
			`"url":"https://example.test/t","publishedAt":"2026-08-29T18:00:00Z",` +
			`"source":{"name":"Example","url":"https://example.test"}}]}`))
	}))
	defer upstream.Close()

	s, db := newTestServer(t)
	s.fetcher = news.NewGNews(upstream.URL, "key", "technology", "en", "us", 10)

	rec := doRequest(t, s.Router(), http.MethodPost, "/admin/fetch-news", "admin",
		map[string]string{"query": "technology"})
	if rec.Code != http.StatusOK {
		t.Fatalf("fetch status: %d body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["count"].(float64) != 1 {
		t.Fatalf("ingest count: %v", body)
	}
	// The test server has no model artifact, so the degradation warning
	// must surface.
	if body["warning"] == nil {
		t.Fatalf("expected classifier warning, got %v", body)
	}

	stored, err := db.ListAll(context.Background(), 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stored) != 1 || stored[0].Title != "T" {
		t.Fatalf("article not persisted: %v", stored)
	}
}
