// Package force computes simulation and visual parameters from emotion
// categories and accumulated link traffic.
package force

import "github.com/abelbrown/emograph/internal/palette"

// Weights maps an emotion category to its force multiplier.
type Weights map[string]float64

// DefaultWeights are the empirical multipliers per category. Rarer categories
// carry larger multipliers so their nodes pull together more tightly.
func DefaultWeights() Weights {
	return Weights{
		palette.Sadness:      0.28,
		palette.Surprise:     0.39,
		palette.Anticipation: 0.53,
		palette.Joy:          0.56,
		palette.Anger:        1.17,
		palette.Fear:         2.05,
		palette.Trust:        2.12,
		palette.Disgust:      9.26,
	}
}

// Of returns the multiplier for category, or 1.0 if unknown.
func (w Weights) Of(category string) float64 {
	if v, ok := w[category]; ok {
		return v
	}
	return 1.0
}

// Merge returns a copy of w with overrides applied.
func (w Weights) Merge(overrides map[string]float64) Weights {
	out := make(Weights, len(w)+len(overrides))
	for k, v := range w {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}
