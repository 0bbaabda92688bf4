package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/pranavkulkarni/newsrec/internal/config"
	"github.com/pranavkulkarni/newsrec/internal/logging"
	"github.com/pranavkulkarni/newsrec/internal/scheduler"
	"github.com/pranavkulkarni/newsrec/internal/store"
	"github.com/pranavkulkarni/newsrec/pkg/classifier"
	"github.com/pranavkulkarni/newsrec/pkg/news"
	"github.com/pranavkulkarni/newsrec/pkg/recommend"
	"github.com/pranavkulkarni/newsrec/pkg/server"
)

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

type app struct {
	cfg      *config.Config
	log      zerolog.Logger
	store    *store.SQLiteStore
	pipeline *classifier.Pipeline
	engine   *recommend.Engine
	fetcher  *news.GNews
}

// buildApp wires config, store, pipeline, and engine. The caller must
// Close the returned app on every exit path.
func buildApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logging.New(cfg.Log.Level)

	db, err := store.New(cfg.Database.Path, log)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	models := classifier.NewModels(cfg.Model.Path)
	pipeline := classifier.NewPipeline(models, log)
	engine := recommend.NewEngine(db, db, log)

	var fetcher *news.GNews
	if cfg.Fetch.Enabled {
		fetcher = news.NewGNews(cfg.Fetch.BaseURL, cfg.Fetch.APIKey, "",
			cfg.Fetch.Language, cfg.Fetch.Country, cfg.Fetch.MaxResults)
	}

	return &app{
		cfg:      cfg,
		log:      log,
		store:    db,
		pipeline: pipeline,
		engine:   engine,
		fetcher:  fetcher,
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Error().Err(err).Msg("close store")
	}
}

func (a *app) providers(queries []string, maxResults int) []news.Provider {
	var providers []news.Provider

	if a.fetcher != nil {
		if len(queries) == 0 {
			queries = a.cfg.Fetch.Queries
		}
		base := a.fetcher
		if maxResults > 0 {
			base = news.NewGNews(a.cfg.Fetch.BaseURL, a.cfg.Fetch.APIKey, "",
				a.cfg.Fetch.Language, a.cfg.Fetch.Country, maxResults)
		}
		for _, q := range queries {
			providers = append(providers, base.WithQuery(q))
		}
	}

	if a.cfg.RSS.Enabled {
		feeds := make([]news.RSSFeed, len(a.cfg.RSS.Feeds))
		for i, f := range a.cfg.RSS.Feeds {
			feeds[i] = news.RSSFeed{Name: f.Name, URL: f.URL}
		}
		providers = append(providers, news.NewRSS(feeds, a.cfg.Fetch.Language, a.cfg.Fetch.Country))
	}

	return providers
}

func runIngest(queries []string, maxResults int) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	providers := a.providers(queries, maxResults)
	if len(providers) == 0 {
		return fmt.Errorf("no providers enabled (check fetch/rss config)")
	}

	ctx := context.Background()
	total := 0

	for _, provider := range providers {
		fmt.Fprintf(os.Stderr, "fetching from %s...\n", provider.Name())
		articles, err := provider.Fetch(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  error: %v\n", err)
			continue
		}

		articles, classifyErr := a.pipeline.Classify(articles)
		if classifyErr != nil {
			fmt.Fprintf(os.Stderr, "  classifier unavailable, saving unlabeled: %v\n", classifyErr)
		}

		count := a.store.BatchUpsert(ctx, articles)
		fmt.Fprintf(os.Stderr, "  saved %d articles\n", count)
		total += count
	}

	fmt.Fprintf(os.Stderr, "\ntotal: %d articles from %d providers\n", total, len(providers))
	return nil
}

func runServe(port int) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if port == 0 {
		port = a.cfg.Server.Port
	}

	srv := server.New(a.store, a.engine, a.pipeline, a.fetcher, port, a.log)
	return srv.ListenAndServe()
}

func runDaemon(port int) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if port == 0 {
		port = a.cfg.Server.Port
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sched := scheduler.New(a.store, a.providers(nil, 0), a.pipeline,
		a.cfg.Schedule.ParseIngestInterval(),
		a.cfg.Schedule.ParsePruneInterval(),
		a.cfg.Retention.Days,
		a.log,
	)

	// Start scheduler in background.
	go func() {
		if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
			a.log.Error().Err(err).Msg("scheduler error")
		}
	}()

	srv := server.New(a.store, a.engine, a.pipeline, a.fetcher, port, a.log)
	go func() {
		<-ctx.Done()
		fmt.Fprintln(os.Stderr, "\nshutting down...")
	}()

	return srv.ListenAndServe()
}

func runRecommend(userID string, limit int, jsonOutput bool) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	articles, err := a.engine.Recommend(context.Background(), userID, limit)
	if err != nil {
		return fmt.Errorf("recommend for %s: %w", userID, err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(articles)
	}

	if len(articles) == 0 {
		fmt.Println("no recommendations (try ingesting articles first: newsrec ingest)")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tLABELS\tTITLE")
	for _, article := range articles {
		fmt.Fprintf(w, "%s\t%s\t%s\n",
			article.ID,
			strings.Join(article.TopLabels, ","),
			news.Truncate(article.Title, 80))
	}
	return w.Flush()
}

func runStats(userID string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()

	stats, err := a.store.Statistics(ctx, userID)
	if err != nil {
		return fmt.Errorf("statistics for %s: %w", userID, err)
	}

	prefs, err := a.engine.Preferences(ctx, userID)
	if err != nil {
		return fmt.Errorf("preferences for %s: %w", userID, err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"stats":       stats,
		"preferences": prefs,
	})
}

func runPrune(days int) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if days == 0 {
		days = a.cfg.Retention.Days
	}

	deleted, err := a.store.PruneOlderThan(context.Background(), days)
	if err != nil {
		return fmt.Errorf("prune: %w", err)
	}

	fmt.Fprintf(os.Stderr, "deleted %d articles older than %d days\n", deleted, days)
	return nil
}
