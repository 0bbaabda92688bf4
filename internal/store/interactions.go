package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// Record appends one interaction with a server-assigned timestamp. The
// article reference is deliberately soft: a missing article logs a warning
// but the write still succeeds, so click logging is never blocked by gaps
// in article ingestion.
func (s *SQLiteStore) Record(ctx context.Context, userID, articleID, interactionType string) error {
	if interactionType == "" {
		interactionType = "click"
	}

	exists, err := s.Exists(ctx, articleID)
	if err != nil {
		s.log.Warn().Str("article_id", articleID).Err(err).Msg("existence check failed")
	} else if !exists {
		s.log.Warn().Str("article_id", articleID).Msg("interaction references unknown article")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO interactions (user_id, article_id, interaction_type, timestamp)
		VALUES (?, ?, ?, ?)
	`, userID, articleID, interactionType, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("record interaction %s/%s: %w", userID, articleID, err)
	}
	return nil
}

// History returns the user's interactions newest first, left-joined with
// article title/url/labels. Articles deleted since the click yield nils.
func (s *SQLiteStore) History(ctx context.Context, userID string, limit int) ([]HistoryEntry, error) {
	builder := sq.Select("i.*", "a.title", "a.url", "a.predicted_labels", "a.top_labels").
		From("interactions i").
		LeftJoin("articles a ON i.article_id = a.id").
		Where(sq.Eq{"i.user_id": userID}).
		OrderBy("i.timestamp DESC")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build history query: %w", err)
	}

	var entries []HistoryEntry
	if err := s.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("user history %s: %w", userID, err)
	}

	for i := range entries {
		entries[i].PredictedLabels = s.decodeOptionalLabels(entries[i].PredictedJSON)
		entries[i].TopLabels = s.decodeOptionalLabels(entries[i].TopJSON)
	}
	return entries, nil
}

// ClickedIDs returns the distinct article IDs the user has clicked,
// ordered by the most recent click first.
func (s *SQLiteStore) ClickedIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := s.db.SelectContext(ctx, &ids, `
		SELECT article_id
		FROM interactions
		WHERE user_id = ? AND interaction_type = 'click'
		GROUP BY article_id
		ORDER BY MAX(timestamp) DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("clicked ids %s: %w", userID, err)
	}
	return ids, nil
}

// CountFor returns the total interaction count for one article.
func (s *SQLiteStore) CountFor(ctx context.Context, articleID string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM interactions WHERE article_id = ?", articleID)
	if err != nil {
		return 0, fmt.Errorf("interaction count %s: %w", articleID, err)
	}
	return count, nil
}

// Statistics aggregates a user's history. The favorite category groups on
// the exact serialized top-label array and takes the head of the winner,
// which is a coarser measure than the recommendation engine's per-label
// frequency count; both views are exposed to callers on purpose.
func (s *SQLiteStore) Statistics(ctx context.Context, userID string) (*UserStats, error) {
	stats := &UserStats{UserID: userID}

	err := s.db.GetContext(ctx, &stats.TotalClicks,
		"SELECT COUNT(*) FROM interactions WHERE user_id = ?", userID)
	if err != nil {
		return nil, fmt.Errorf("user stats total %s: %w", userID, err)
	}

	err = s.db.GetContext(ctx, &stats.UniqueArticles,
		"SELECT COUNT(DISTINCT article_id) FROM interactions WHERE user_id = ?", userID)
	if err != nil {
		return nil, fmt.Errorf("user stats unique %s: %w", userID, err)
	}

	var topJSON string
	err = s.db.GetContext(ctx, &topJSON, `
		SELECT a.top_labels
		FROM interactions i
		JOIN articles a ON i.article_id = a.id
		WHERE i.user_id = ? AND a.top_labels != '[]'
		GROUP BY a.top_labels
		ORDER BY COUNT(*) DESC
		LIMIT 1
	`, userID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user stats favorite %s: %w", userID, err)
	}
	if labels := s.decodeLabels(topJSON); len(labels) > 0 {
		stats.FavoriteCategory = labels[0]
	}

	return stats, nil
}

func (s *SQLiteStore) decodeOptionalLabels(raw *string) []string {
	if raw == nil {
		return []string{}
	}
	return s.decodeLabels(*raw)
}
