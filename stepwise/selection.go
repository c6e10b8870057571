package stepwise

import (
	"math"

	"github.com/YuminosukeSato/stepwise/core/dataset"
)

// StopReason records why the elimination loop ended.
type StopReason string

const (
	// StopNone means no fit has completed.
	StopNone StopReason = ""
	// StopNoFeatures means the base model reported no feature p-values.
	StopNoFeatures StopReason = "no_features"
	// StopSignificant means every remaining feature had p <= aout.
	StopSignificant StopReason = "significant"
	// StopExhausted means the last feature column was removed.
	StopExhausted StopReason = "exhausted"
	// StopMaxIterations means the round bound was reached.
	StopMaxIterations StopReason = "max_iterations"
)

// Step is one removal round of a fit.
type Step struct {
	// Iteration is the zero-based round number.
	Iteration int `json:"iteration"`
	// Feature is the column removed in this round.
	Feature string `json:"feature"`
	// PValue is the p-value of Feature when it was removed.
	PValue float64 `json:"p_value"`
	// Remaining is the number of feature columns left after the removal.
	Remaining int `json:"remaining"`
}

// selectLeastSignificant returns the feature with the largest p-value.
// Equal maxima go to the feature that comes first in df's column order,
// so the choice does not depend on map iteration. NaN ranks above any
// number.
func selectLeastSignificant(df *dataset.Dataframe, pvalues map[string]float64) (string, float64) {
	names := make([]string, 0, len(pvalues))
	for name := range pvalues {
		names = append(names, name)
	}

	best, bestRank := "", math.Inf(-1)
	for _, name := range df.Order(names) {
		rank := pvalues[name]
		if math.IsNaN(rank) {
			rank = math.Inf(1)
		}
		if best == "" || rank > bestRank {
			best, bestRank = name, rank
		}
	}
	return best, pvalues[best]
}
