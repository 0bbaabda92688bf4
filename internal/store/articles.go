package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/pranavkulkarni/newsrec/pkg/news"
)

// Upsert inserts or fully overwrites an article keyed by its deterministic
// identifier. created_at survives re-ingestion; everything else is replaced.
func (s *SQLiteStore) Upsert(ctx context.Context, a *news.Article) error {
	a.EnsureID()

	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	a.PredictedJSON = encodeLabels(a.PredictedLabels)
	a.TopJSON = encodeLabels(a.TopLabels)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO articles (id, title, description, content, url, image_url,
			published_at, source_name, source_url, language, country,
			predicted_labels, top_labels, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			content = excluded.content,
			url = excluded.url,
			image_url = excluded.image_url,
			published_at = excluded.published_at,
			source_name = excluded.source_name,
			source_url = excluded.source_url,
			language = excluded.language,
			country = excluded.country,
			predicted_labels = excluded.predicted_labels,
			top_labels = excluded.top_labels,
			updated_at = excluded.updated_at
	`, a.ID, a.Title, a.Description, a.Content, a.URL, a.ImageURL,
		a.PublishedAt, a.SourceName, a.SourceURL, a.Language, a.Country,
		a.PredictedJSON, a.TopJSON, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert article %s: %w", a.ID, err)
	}
	return nil
}

// BatchUpsert applies Upsert per record and returns the success count.
// One record's failure never aborts the rest of the batch.
func (s *SQLiteStore) BatchUpsert(ctx context.Context, articles []news.Article) int {
	count := 0
	for i := range articles {
		if err := s.Upsert(ctx, &articles[i]); err != nil {
			s.log.Error().Str("id", articles[i].ID).Err(err).Msg("batch upsert record failed")
			continue
		}
		count++
	}
	return count
}

// Get returns the decoded article or ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*news.Article, error) {
	var a news.Article
	err := s.db.GetContext(ctx, &a, "SELECT * FROM articles WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get article %s: %w", id, err)
	}
	s.decodeArticle(&a)
	return &a, nil
}

// Exists reports whether an article row is present.
func (s *SQLiteStore) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.GetContext(ctx, &one, "SELECT 1 FROM articles WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("article exists %s: %w", id, err)
	}
	return true, nil
}

// ListAll returns articles ordered by publication time descending, with
// unpublished rows sorting last. limit <= 0 means no cap.
func (s *SQLiteStore) ListAll(ctx context.Context, limit int) ([]news.Article, error) {
	builder := sq.Select("*").From("articles").
		OrderBy("published_at IS NULL", "published_at DESC")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	var articles []news.Article
	if err := s.db.SelectContext(ctx, &articles, query, args...); err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}

	for i := range articles {
		s.decodeArticle(&articles[i])
	}
	return articles, nil
}

// ListByCategory returns articles whose thresholded set or top-label list
// contains the category. The LIKE pattern is anchored on the stored JSON
// quotes so "us" cannot match inside "business"; the decoded membership
// check below makes the match exact regardless of storage encoding.
func (s *SQLiteStore) ListByCategory(ctx context.Context, category string) ([]news.Article, error) {
	pattern := `%"` + category + `"%`
	builder := sq.Select("*").From("articles").
		Where(sq.Or{
			sq.Like{"predicted_labels": pattern},
			sq.Like{"top_labels": pattern},
		}).
		OrderBy("published_at IS NULL", "published_at DESC")

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build category query: %w", err)
	}

	var candidates []news.Article
	if err := s.db.SelectContext(ctx, &candidates, query, args...); err != nil {
		return nil, fmt.Errorf("list articles by category %q: %w", category, err)
	}

	var articles []news.Article
	for i := range candidates {
		s.decodeArticle(&candidates[i])
		if containsLabel(candidates[i].PredictedLabels, category) ||
			containsLabel(candidates[i].TopLabels, category) {
			articles = append(articles, candidates[i])
		}
	}
	return articles, nil
}

// Popular ranks articles by total interaction count, publication time
// breaking ties. The join runs against the indexed article_id column and
// the output is capped, so cost stays bounded as the log grows.
func (s *SQLiteStore) Popular(ctx context.Context, limit int) ([]news.Article, error) {
	if limit <= 0 {
		limit = 10
	}

	builder := sq.Select("a.*", "COUNT(i.id) AS click_count").
		From("articles a").
		LeftJoin("interactions i ON a.id = i.article_id").
		GroupBy("a.id").
		OrderBy("click_count DESC", "a.published_at DESC").
		Limit(uint64(limit))

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build popular query: %w", err)
	}

	var articles []news.Article
	if err := s.db.SelectContext(ctx, &articles, query, args...); err != nil {
		return nil, fmt.Errorf("list popular articles: %w", err)
	}

	for i := range articles {
		s.decodeArticle(&articles[i])
	}
	return articles, nil
}

// PruneOlderThan deletes articles published (or, lacking a publication time,
// created) more than the given number of days ago. Returns rows deleted.
func (s *SQLiteStore) PruneOlderThan(ctx context.Context, days int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days)

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM articles
		WHERE (published_at IS NOT NULL AND published_at < ?)
		   OR (published_at IS NULL AND created_at < ?)
	`, cutoff, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune articles: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune rows affected: %w", err)
	}
	return deleted, nil
}

func containsLabel(labels []string, category string) bool {
	for _, l := range labels {
		if l == category {
			return true
		}
	}
	return false
}
