package linear

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/stepwise/core/dataset"
	"github.com/YuminosukeSato/stepwise/core/model"
	"github.com/YuminosukeSato/stepwise/pkg/errors"
	"github.com/YuminosukeSato/stepwise/storage"
)

const ridgeName = "Ridge"

// Ridge は L2 正則化付き線形回帰モデル。
// p 値を持たないため、ステップワイズ法の基底モデルには使えない。
type Ridge struct {
	*estimator
	params RidgeParams
}

// NewRidge creates an unfitted Ridge model bound to namespace. params may be
// nil, RidgeParams or *RidgeParams.
func NewRidge(namespace string, conf *storage.Configuration, params any, opts ...Option) (*Ridge, error) {
	p, err := ridgeParams(params)
	if err != nil {
		return nil, err
	}
	e, err := newEstimator(ridgeName, namespace, conf, opts)
	if err != nil {
		return nil, err
	}
	return &Ridge{estimator: e, params: p}, nil
}

// Fit は (X^T X + αI) w = X^T y を解いて学習する。切片は正則化しない。
func (m *Ridge) Fit(df *dataset.Dataframe) error {
	const op = "Ridge.Fit"
	y, err := m.checkTraining(op, df)
	if err != nil {
		return err
	}
	X, names, err := m.designMatrix(op, df, m.params.FitIntercept)
	if err != nil {
		return err
	}

	_, k := X.Dims()
	var A mat.Dense
	A.Mul(X.T(), X)
	for j, name := range names {
		if name == dataset.ConstantColumn {
			continue
		}
		A.Set(j, j, A.At(j, j)+m.params.Alpha)
	}

	var XTy mat.VecDense
	XTy.MulVec(X.T(), y)

	beta := mat.NewVecDense(k, nil)
	if err := beta.SolveVec(&A, &XTy); err != nil {
		return errors.NewModelError(op, "singular matrix", errors.ErrSingularMatrix)
	}
	if err := errors.CheckNumericalStability(op, beta.RawVector().Data, 0); err != nil {
		return err
	}

	return m.finish(X, y, beta, names, fittedState{
		FitIntercept: m.params.FitIntercept,
		Alpha:        m.params.Alpha,
	})
}

// Load restores the fitted state and the parameters it was trained with.
func (m *Ridge) Load() error {
	if err := m.estimator.Load(); err != nil {
		return err
	}
	m.params.FitIntercept = m.fitted.FitIntercept
	m.params.Alpha = m.fitted.Alpha
	return nil
}

// Summary describes the fitted coefficients and the penalty they were
// trained with.
func (m *Ridge) Summary() (*model.Summary, error) {
	s, err := m.estimator.Summary()
	if err != nil {
		return nil, err
	}
	s.Hyperparameters["alpha"] = m.fitted.Alpha
	return s, nil
}
