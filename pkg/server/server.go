package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/pranavkulkarni/newsrec/internal/store"
	"github.com/pranavkulkarni/newsrec/pkg/classifier"
	"github.com/pranavkulkarni/newsrec/pkg/news"
	"github.com/pranavkulkarni/newsrec/pkg/recommend"
)

// Categories is the label universe exposed to the presentation layer.
var Categories = []string{
	"all", "technology", "sports", "finance", "health",
	"entertainment", "news", "travel", "lifestyle", "foodanddrink",
	"autos", "movies", "music", "tv", "video", "weather",
}

// Server provides the HTTP API consumed by the presentation layer. The
// session/auth layer lives upstream; the caller identifies the user via
// the X-User-ID header.
type Server struct {
	store    store.Store
	engine   *recommend.Engine
	pipeline *classifier.Pipeline
	fetcher  *news.GNews
	port     int
	log      zerolog.Logger
}

// New creates a new HTTP server. fetcher may be nil when the API provider
// is disabled; the ingest endpoint then reports a failure.
func New(s store.Store, engine *recommend.Engine, pipeline *classifier.Pipeline,
	fetcher *news.GNews, port int, log zerolog.Logger) *Server {
	if port == 0 {
		port = 8080
	}
	return &Server{
		store:    s,
		engine:   engine,
		pipeline: pipeline,
		fetcher:  fetcher,
		port:     port,
		log:      log,
	}
}

// Router assembles the route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(countRequests)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/categories", s.handleCategories)
		r.Group(func(r chi.Router) {
			r.Use(s.requireUser)
			r.Get("/news/feed", s.handleFeed)
			r.Get("/news/recommendations", s.handleRecommendations)
			r.Post("/news/click", s.handleClick)
			r.Get("/user/stats", s.handleUserStats)
			r.Get("/user/history", s.handleUserHistory)
		})
	})

	r.With(s.requireUser).Post("/admin/fetch-news", s.handleFetchNews)

	return r
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.log.Info().Str("addr", addr).Msg("newsrec server listening")
	return http.ListenAndServe(addr, s.Router())
}

// requireUser rejects requests without a caller-supplied user identity.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-User-ID") == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func userID(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"categories": Categories})
}

// feedItem is the wire shape of one article in feed-style responses.
type feedItem struct {
	ID              string   `json:"news_id"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	URL             string   `json:"url"`
	ImageURL        string   `json:"image_url"`
	PublishedAt     string   `json:"published_at"`
	SourceName      string   `json:"source_name"`
	TopLabels       []string `json:"top_labels"`
	PredictedLabels []string `json:"predicted_labels"`
}

func toFeedItem(a news.Article) feedItem {
	published := ""
	if a.PublishedAt != nil {
		published = a.PublishedAt.Format("2006-01-02T15:04:05Z07:00")
	}
	return feedItem{
		ID:              a.ID,
		Title:           a.Title,
		Description:     news.Truncate(a.Description, 200),
		URL:             a.URL,
		ImageURL:        a.ImageURL,
		PublishedAt:     published,
		SourceName:      a.SourceName,
		TopLabels:       a.TopLabels,
		PredictedLabels: a.PredictedLabels,
	}
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	if category == "" {
		category = "all"
	}
	limit := queryInt(r, "limit", 20)

	var (
		articles []news.Article
		err      error
	)
	if category == "all" {
		articles, err = s.store.ListAll(r.Context(), limit)
	} else {
		articles, err = s.store.ListByCategory(r.Context(), category)
		if err == nil && len(articles) > limit {
			articles = articles[:limit]
		}
	}
	if err != nil {
		s.fail(w, "load feed", err)
		return
	}

	items := make([]feedItem, 0, len(articles))
	for _, a := range articles {
		items = append(items, toFeedItem(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{"news": items})
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 10)

	articles, err := s.engine.Recommend(r.Context(), userID(r), limit)
	if err != nil {
		s.fail(w, "build recommendations", err)
		return
	}

	items := make([]feedItem, 0, len(articles))
	for _, a := range articles {
		items = append(items, toFeedItem(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{"news": items})
}

func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	var body struct {
		NewsID string `json:"news_id"`
		Type   string `json:"interaction_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.NewsID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "news_id required"})
		return
	}

	if err := s.store.Record(r.Context(), userID(r), body.NewsID, body.Type); err != nil {
		s.fail(w, "record interaction", err)
		return
	}

	interactionsRecorded.Inc()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "click recorded"})
}

func (s *Server) handleUserStats(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)

	stats, err := s.store.Statistics(r.Context(), uid)
	if err != nil {
		s.fail(w, "load user statistics", err)
		return
	}

	prefs, err := s.engine.Preferences(r.Context(), uid)
	if err != nil {
		s.fail(w, "derive preferences", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"stats":       stats,
		"preferences": prefs,
	})
}

func (s *Server) handleUserHistory(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)

	history, err := s.store.History(r.Context(), userID(r), limit)
	if err != nil {
		s.fail(w, "load user history", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"history": history})
}

// handleFetchNews runs the full ingest pipeline: fetch, classify, persist.
// A missing model bundle degrades to unlabeled ingestion and is reported
// in the response instead of failing it.
func (s *Server) handleFetchNews(w http.ResponseWriter, r *http.Request) {
	if s.fetcher == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "news provider not configured"})
		return
	}

	var body struct {
		Query      string `json:"query"`
		MaxResults int    `json:"max_results"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if body.Query == "" {
		body.Query = "technology"
	}

	provider := s.fetcher.WithQuery(body.Query)
	articles, err := provider.Fetch(r.Context())
	if err != nil {
		s.fail(w, "fetch news", err)
		return
	}
	if len(articles) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no news found"})
		return
	}

	articles, classifyErr := s.pipeline.Classify(articles)
	count := s.store.BatchUpsert(r.Context(), articles)
	articlesIngested.Add(float64(count))

	resp := map[string]any{
		"success": true,
		"message": fmt.Sprintf("fetched and saved %d news items", count),
		"count":   count,
	}
	if classifyErr != nil {
		resp["warning"] = "classifier unavailable, articles saved without labels"
	}
	writeJSON(w, http.StatusOK, resp)
}

// fail reports a caller-facing failure without leaking store internals.
func (s *Server) fail(w http.ResponseWriter, action string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	s.log.Error().Err(err).Msg(action + " failed")
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": action + " failed"})
}

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
