package classifier

import (
	"math"
	"strings"
	"unicode"
)

// Vector is a sparse feature vector with an explicit width.
type Vector struct {
	Width  int
	Values map[int]float64
}

// Align pads or truncates the vector to the given width. The policy is
// positional: padding appends zero columns at the tail, truncation drops
// tail columns. It assumes vocabulary drift between training and
// inference artifacts only ever appends to or removes from the tail.
func (v Vector) Align(width int) Vector {
	if v.Width == width {
		return v
	}
	if v.Width < width {
		v.Width = width
		return v
	}

	trimmed := make(map[int]float64, len(v.Values))
	for idx, val := range v.Values {
		if idx < width {
			trimmed[idx] = val
		}
	}
	return Vector{Width: width, Values: trimmed}
}

// Vectorizer is a pre-fitted term-frequency vectorizer with optional IDF
// weighting and L2 normalization.
type Vectorizer struct {
	Vocabulary  map[string]int `json:"vocabulary"`
	IDF         []float64      `json:"idf,omitempty"`
	NumFeatures int            `json:"num_features,omitempty"`
	Norm        string         `json:"norm,omitempty"`
}

// Width returns the vectorizer's native output width, which may differ
// from the classifier's expected input width.
func (v *Vectorizer) Width() int {
	if v.NumFeatures > 0 {
		return v.NumFeatures
	}
	if len(v.IDF) > 0 {
		return len(v.IDF)
	}
	max := -1
	for _, idx := range v.Vocabulary {
		if idx > max {
			max = idx
		}
	}
	return max + 1
}

// Transform vectorizes one text into a sparse feature vector: term counts
// over the fixed vocabulary, scaled by IDF when present, then normalized.
func (v *Vectorizer) Transform(text string) Vector {
	counts := make(map[int]float64)
	for _, token := range tokenize(text) {
		if idx, ok := v.Vocabulary[token]; ok {
			counts[idx]++
		}
	}

	for idx := range counts {
		if idx < len(v.IDF) {
			counts[idx] *= v.IDF[idx]
		}
	}

	if v.Norm == "l2" {
		sumSquares := 0.0
		for _, val := range counts {
			sumSquares += val * val
		}
		if sumSquares > 0 {
			norm := math.Sqrt(sumSquares)
			for idx := range counts {
				counts[idx] /= norm
			}
		}
	}

	return Vector{Width: v.Width(), Values: counts}
}

// tokenize lowercases and splits on non-alphanumerics, dropping
// single-character tokens.
func tokenize(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	var tokens []string
	for _, w := range words {
		if len(w) >= 2 {
			tokens = append(tokens, w)
		}
	}
	return tokens
}
