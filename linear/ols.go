package linear

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/stepwise/core/dataset"
	"github.com/YuminosukeSato/stepwise/pkg/errors"
	"github.com/YuminosukeSato/stepwise/storage"
)

const olsName = "OLS"

// OLS は最小二乗法による線形回帰モデル。
// 学習後、各係数の t 検定による p 値を FeaturePValues で返す。
type OLS struct {
	*estimator
	params OLSParams
}

// NewOLS creates an unfitted OLS model bound to namespace. params may be
// nil, OLSParams or *OLSParams.
func NewOLS(namespace string, conf *storage.Configuration, params any, opts ...Option) (*OLS, error) {
	p, err := olsParams(params)
	if err != nil {
		return nil, err
	}
	e, err := newEstimator(olsName, namespace, conf, opts)
	if err != nil {
		return nil, err
	}
	return &OLS{estimator: e, params: p}, nil
}

// Fit はモデルを訓練データで学習させる
// 正規方程式 w = (X^T * X)^(-1) * X^T * y を使用
func (m *OLS) Fit(df *dataset.Dataframe) error {
	const op = "OLS.Fit"
	y, err := m.checkTraining(op, df)
	if err != nil {
		return err
	}
	X, names, err := m.designMatrix(op, df, m.params.FitIntercept)
	if err != nil {
		return err
	}

	n, k := X.Dims()
	dof := n - k
	if dof <= 0 {
		return errors.NewValueError(op, fmt.Sprintf("need more samples than coefficients (samples=%d, coefficients=%d)", n, k))
	}

	var XTX mat.Dense
	XTX.Mul(X.T(), X)

	// 逆行列を計算
	var XTXInv mat.Dense
	if err := XTXInv.Inverse(&XTX); err != nil {
		return errors.NewModelError(op, "singular matrix", errors.ErrSingularMatrix)
	}

	var XTy mat.VecDense
	XTy.MulVec(X.T(), y)

	beta := mat.NewVecDense(k, nil)
	beta.MulVec(&XTXInv, &XTy)
	if err := errors.CheckNumericalStability(op, beta.RawVector().Data, 0); err != nil {
		return err
	}

	// 残差分散 σ² = RSS / (n - k)
	var yHat, resid mat.VecDense
	yHat.MulVec(X, beta)
	resid.SubVec(y, &yHat)
	sigma2 := mat.Dot(&resid, &resid) / float64(dof)
	if err := errors.CheckScalar(op, sigma2, 0); err != nil {
		return err
	}

	tdist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(dof)}
	pvalues := make(map[string]float64, k)
	for j, name := range names {
		se := math.Sqrt(math.Max(0, sigma2*XTXInv.At(j, j)))
		pvalues[name] = twoSidedPValue(beta.AtVec(j), se, tdist)
	}

	return m.finish(X, y, beta, names, fittedState{
		FitIntercept: m.params.FitIntercept,
		PValues:      pvalues,
	})
}

// twoSidedPValue は H0: β = 0 に対する両側 t 検定の p 値を返す
func twoSidedPValue(beta, se float64, dist distuv.StudentsT) float64 {
	if se == 0 || math.IsNaN(se) {
		// 残差が 0 の場合は係数が 0 かどうかで決まる
		if beta != 0 {
			return 0
		}
		return 1
	}
	t := math.Abs(beta) / se
	return errors.ClipValue(2*dist.Survival(t), 0, 1)
}

// FeaturePValues returns the p-value of every coefficient, keyed by feature
// name. The intercept is reported under dataset.ConstantColumn.
func (m *OLS) FeaturePValues() (map[string]float64, error) {
	if err := m.state.RequireFitted("FeaturePValues"); err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(m.fitted.PValues))
	for k, v := range m.fitted.PValues {
		out[k] = v
	}
	return out, nil
}

// Load restores the fitted state and the parameters it was trained with.
func (m *OLS) Load() error {
	if err := m.estimator.Load(); err != nil {
		return err
	}
	m.params.FitIntercept = m.fitted.FitIntercept
	return nil
}
