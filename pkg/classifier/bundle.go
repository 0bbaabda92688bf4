package classifier

import (
	"fmt"
	"math"
	"os"
	"sync"

	"github.com/goccy/go-json"
)

// Bundle is the versioned model artifact: a multi-label classifier, the
// label binarizer (label name per output position), and the text
// vectorizer. The three components are trained together and loaded
// together; a partial bundle is a load error, never a silent substitution.
type Bundle struct {
	Version    string      `json:"version"`
	Labels     []string    `json:"labels"`
	Vectorizer *Vectorizer `json:"vectorizer"`
	Classifier *Model      `json:"classifier"`
}

// Model holds the estimator weights. Exactly one of two shapes is
// populated: Estimators carries one binary estimator per label, Coef and
// Intercept carry a single multi-output estimator.
type Model struct {
	NumFeatures int         `json:"num_features"`
	Estimators  []Estimator `json:"estimators,omitempty"`
	Coef        [][]float64 `json:"coef,omitempty"`
	Intercept   []float64   `json:"intercept,omitempty"`
}

// Estimator is a single per-label logistic estimator.
type Estimator struct {
	Weights   []float64 `json:"weights"`
	Intercept float64   `json:"intercept"`
}

// LoadBundle reads and validates a model bundle file.
func LoadBundle(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model bundle %s: %w", path, err)
	}

	var bundle Bundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("parse model bundle %s: %w", path, err)
	}

	if err := bundle.validate(); err != nil {
		return nil, fmt.Errorf("invalid model bundle %s: %w", path, err)
	}
	return &bundle, nil
}

func (b *Bundle) validate() error {
	if len(b.Labels) == 0 {
		return fmt.Errorf("no labels")
	}
	if b.Vectorizer == nil || len(b.Vectorizer.Vocabulary) == 0 {
		return fmt.Errorf("missing vectorizer")
	}
	if b.Classifier == nil || b.Classifier.NumFeatures <= 0 {
		return fmt.Errorf("missing classifier")
	}

	switch {
	case len(b.Classifier.Estimators) > 0:
		if len(b.Classifier.Estimators) != len(b.Labels) {
			return fmt.Errorf("%d estimators for %d labels",
				len(b.Classifier.Estimators), len(b.Labels))
		}
	case len(b.Classifier.Coef) > 0:
		if len(b.Classifier.Coef) != len(b.Labels) {
			return fmt.Errorf("%d coefficient rows for %d labels",
				len(b.Classifier.Coef), len(b.Labels))
		}
	default:
		return fmt.Errorf("classifier has neither estimators nor coefficients")
	}
	return nil
}

// Scores produces one probability per known label for an aligned vector.
func (m *Model) Scores(v Vector) []float64 {
	if len(m.Estimators) > 0 {
		scores := make([]float64, len(m.Estimators))
		for j, est := range m.Estimators {
			scores[j] = sigmoid(dot(v, est.Weights) + est.Intercept)
		}
		return scores
	}

	scores := make([]float64, len(m.Coef))
	for j, weights := range m.Coef {
		z := dot(v, weights)
		if j < len(m.Intercept) {
			z += m.Intercept[j]
		}
		scores[j] = sigmoid(z)
	}
	return scores
}

func dot(v Vector, weights []float64) float64 {
	sum := 0.0
	for idx, val := range v.Values {
		if idx < len(weights) {
			sum += val * weights[idx]
		}
	}
	return sum
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

// Models owns the process-wide bundle cache: lazily loaded, read-only after
// load, with an explicit Reload for artifact rotation. Load failures are
// not cached, so an artifact that shows up later is picked up on the next
// Get.
type Models struct {
	path string

	mu     sync.RWMutex
	bundle *Bundle
}

// NewModels creates a bundle cache for the given artifact path. Nothing is
// read until the first Get.
func NewModels(path string) *Models {
	return &Models{path: path}
}

// Get returns the cached bundle, loading it on first use.
func (m *Models) Get() (*Bundle, error) {
	m.mu.RLock()
	if m.bundle != nil {
		defer m.mu.RUnlock()
		return m.bundle, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bundle != nil {
		return m.bundle, nil
	}

	bundle, err := LoadBundle(m.path)
	if err != nil {
		return nil, err
	}
	m.bundle = bundle
	return bundle, nil
}

// Reload swaps in a freshly loaded bundle. On failure the previous bundle
// stays in place.
func (m *Models) Reload() error {
	bundle, err := LoadBundle(m.path)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.bundle = bundle
	m.mu.Unlock()
	return nil
}
