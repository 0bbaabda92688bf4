package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/pranavkulkarni/newsrec/internal/store"
	"github.com/pranavkulkarni/newsrec/pkg/classifier"
	"github.com/pranavkulkarni/newsrec/pkg/news"
)

// Scheduler runs periodic batch ingestion and retention pruning.
type Scheduler struct {
	store         store.Store
	providers     []news.Provider
	pipeline      *classifier.Pipeline
	ingestInt     time.Duration
	pruneInt      time.Duration
	retentionDays int
	log           zerolog.Logger
}

// New creates a new scheduler.
func New(
	s store.Store,
	providers []news.Provider,
	pipeline *classifier.Pipeline,
	ingestInt, pruneInt time.Duration,
	retentionDays int,
	log zerolog.Logger,
) *Scheduler {
	if ingestInt == 0 {
		ingestInt = time.Hour
	}
	if pruneInt == 0 {
		pruneInt = 24 * time.Hour
	}
	if retentionDays == 0 {
		retentionDays = 30
	}
	return &Scheduler{
		store:         s,
		providers:     providers,
		pipeline:      pipeline,
		ingestInt:     ingestInt,
		pruneInt:      pruneInt,
		retentionDays: retentionDays,
		log:           log,
	}
}

// Run starts the scheduler loop. Blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ingestTicker := time.NewTicker(s.ingestInt)
	pruneTicker := time.NewTicker(s.pruneInt)
	defer ingestTicker.Stop()
	defer pruneTicker.Stop()

	// Run immediately on start.
	s.log.Info().Msg("scheduler: initial ingest")
	s.ingestAll(ctx)

	s.log.Info().
		Dur("ingest_every", s.ingestInt).
		Dur("prune_every", s.pruneInt).
		Msg("scheduler running")

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("scheduler stopped")
			return ctx.Err()
		case <-ingestTicker.C:
			s.ingestAll(ctx)
		case <-pruneTicker.C:
			s.prune(ctx)
		}
	}
}

// ingestAll fetches from every provider sequentially, classifies, and
// persists. One provider's failure never blocks another's.
func (s *Scheduler) ingestAll(ctx context.Context) {
	total := 0
	for _, provider := range s.providers {
		articles, err := provider.Fetch(ctx)
		if err != nil {
			s.log.Error().Str("provider", provider.Name()).Err(err).Msg("fetch failed")
			continue
		}
		if len(articles) == 0 {
			continue
		}

		articles, classifyErr := s.pipeline.Classify(articles)
		if classifyErr != nil {
			s.log.Warn().Str("provider", provider.Name()).Err(classifyErr).
				Msg("ingesting without labels")
		}

		count := s.store.BatchUpsert(ctx, articles)
		s.log.Info().Str("provider", provider.Name()).Int("count", count).Msg("ingested")
		total += count
	}
	s.log.Info().Int("total", total).Msg("ingest pass complete")
}

func (s *Scheduler) prune(ctx context.Context) {
	deleted, err := s.store.PruneOlderThan(ctx, s.retentionDays)
	if err != nil {
		s.log.Error().Err(err).Msg("prune failed")
		return
	}
	s.log.Info().Int64("deleted", deleted).Int("days", s.retentionDays).Msg("pruned old articles")
}
