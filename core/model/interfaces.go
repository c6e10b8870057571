// Package model defines the contracts between the stepwise controller and
// the base regression models it drives, and the registry that creates them.
package model

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/stepwise/core/dataset"
)

// Regressor is a trainable regression model bound to a storage namespace.
//
// A Regressor is created through a Factory with its namespace, the shared
// storage configuration and opaque parameters. A freshly constructed model
// is unfitted; Load restores the state a previous Save left in the
// namespace.
type Regressor interface {
	// Fit trains the model on the feature columns and target of df.
	Fit(df *dataset.Dataframe) error

	// Predict returns one prediction per row of df. df must contain every
	// feature column the model was trained on.
	Predict(df *dataset.Dataframe) (*mat.VecDense, error)

	// Save writes the trained state into the model's namespace.
	Save() error

	// Load restores the trained state from the model's namespace.
	Load() error

	// Delete releases the model and removes its persisted state.
	Delete() error

	// Close releases the model and keeps its persisted state.
	Close() error
}

// StepwiseCompatible is implemented by regressors that report per-feature
// significance after training.
type StepwiseCompatible interface {
	// FeaturePValues returns one p-value per feature column seen in Fit,
	// plus dataset.ConstantColumn when an intercept is modeled.
	FeaturePValues() (map[string]float64, error)
}

// Summarizer is implemented by regressors that can describe their fitted
// coefficients.
type Summarizer interface {
	Summary() (*Summary, error)
}
