package linear

import (
	"github.com/YuminosukeSato/stepwise/pkg/errors"
	"github.com/YuminosukeSato/stepwise/pkg/log"
)

// OLSParams configures an OLS model.
type OLSParams struct {
	// FitIntercept adds the constant column to the design matrix.
	FitIntercept bool `yaml:"fit_intercept" json:"fit_intercept"`
}

// DefaultOLSParams returns the parameters used when none are given.
func DefaultOLSParams() OLSParams {
	return OLSParams{FitIntercept: true}
}

// RidgeParams configures a Ridge model.
type RidgeParams struct {
	// Alpha is the L2 penalty. The intercept is not penalized.
	Alpha float64 `yaml:"alpha" json:"alpha" validate:"gte=0"`

	// FitIntercept adds the constant column to the design matrix.
	FitIntercept bool `yaml:"fit_intercept" json:"fit_intercept"`
}

// DefaultRidgeParams returns the parameters used when none are given.
func DefaultRidgeParams() RidgeParams {
	return RidgeParams{Alpha: 1.0, FitIntercept: true}
}

func olsParams(params any) (OLSParams, error) {
	switch p := params.(type) {
	case nil:
		return DefaultOLSParams(), nil
	case OLSParams:
		return p, nil
	case *OLSParams:
		if p == nil {
			return DefaultOLSParams(), nil
		}
		return *p, nil
	default:
		return OLSParams{}, errors.NewValidationError("params", "OLS expects linear.OLSParams", params)
	}
}

func ridgeParams(params any) (RidgeParams, error) {
	var p RidgeParams
	switch v := params.(type) {
	case nil:
		return DefaultRidgeParams(), nil
	case RidgeParams:
		p = v
	case *RidgeParams:
		if v == nil {
			return DefaultRidgeParams(), nil
		}
		p = *v
	default:
		return RidgeParams{}, errors.NewValidationError("params", "Ridge expects linear.RidgeParams", params)
	}
	if p.Alpha < 0 {
		return RidgeParams{}, errors.NewValidationError("alpha", "must be non-negative", p.Alpha)
	}
	return p, nil
}

// Option configures a model at construction.
type Option func(*estimator)

// WithLogger sets the logger of the model.
func WithLogger(logger log.Logger) Option {
	return func(e *estimator) {
		e.logger = logger
	}
}

// WithParallelThreshold sets the row count above which the design matrix is
// built in parallel.
func WithParallelThreshold(rows int) Option {
	return func(e *estimator) {
		e.parallelThreshold = rows
	}
}
