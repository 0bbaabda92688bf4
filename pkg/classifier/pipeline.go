package classifier

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/pranavkulkarni/newsrec/pkg/news"
)

const (
	// Threshold is the probability cutoff for the primary label set.
	Threshold = 0.3
	// TopK is the size of the ranked label list kept per article.
	TopK = 3
)

// Pipeline assigns topical labels to article batches using a shared,
// read-only model bundle.
type Pipeline struct {
	models *Models
	log    zerolog.Logger
}

// NewPipeline creates a classification pipeline over a bundle cache.
func NewPipeline(models *Models, log zerolog.Logger) *Pipeline {
	return &Pipeline{models: models, log: log}
}

// Classify labels every article in the batch in place and returns it.
// When the bundle cannot be loaded the batch is returned unmodified along
// with the error: ingestion without labels is still useful, so this is a
// degradation the caller reports rather than a fatal failure.
func (p *Pipeline) Classify(articles []news.Article) ([]news.Article, error) {
	if len(articles) == 0 {
		return articles, nil
	}

	bundle, err := p.models.Get()
	if err != nil {
		p.log.Warn().Err(err).Msg("model bundle unavailable, ingesting unlabeled")
		return articles, fmt.Errorf("load model bundle: %w", err)
	}

	want := bundle.Classifier.NumFeatures
	native := bundle.Vectorizer.Width()
	if native != want {
		p.log.Debug().Int("vectorizer", native).Int("classifier", want).
			Msg("aligning feature width")
	}

	for i := range articles {
		vec := bundle.Vectorizer.Transform(assembleText(&articles[i])).Align(want)
		scores := bundle.Classifier.Scores(vec)
		articles[i].PredictedLabels = thresholded(scores, bundle.Labels)
		articles[i].TopLabels = topRanked(scores, bundle.Labels)
	}

	p.log.Info().Int("count", len(articles)).Str("model", bundle.Version).
		Msg("classified articles")
	return articles, nil
}

// assembleText concatenates title, description, and body with separator
// punctuation. Missing fields are empty strings, never skipped, so the
// field order seen at training time is preserved.
func assembleText(a *news.Article) string {
	return a.Title + ". " + a.Description + ". " + a.Content
}

// thresholded selects every label whose score clears the cutoff.
func thresholded(scores []float64, labels []string) []string {
	var selected []string
	for j, score := range scores {
		if score > Threshold && j < len(labels) {
			selected = append(selected, labels[j])
		}
	}
	return selected
}

// topRanked returns the TopK labels by score descending, ties broken by
// label index order. Independent of the threshold, so the list is never
// empty even when nothing clears the cutoff.
func topRanked(scores []float64, labels []string) []string {
	indices := make([]int, len(scores))
	for j := range indices {
		indices[j] = j
	}
	sort.SliceStable(indices, func(a, b int) bool {
		return scores[indices[a]] > scores[indices[b]]
	})

	k := TopK
	if k > len(indices) {
		k = len(indices)
	}

	top := make([]string, 0, k)
	for _, j := range indices[:k] {
		if j < len(labels) {
			top = append(top, labels[j])
		}
	}
	return top
}
