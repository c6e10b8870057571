// Package linear provides linear base regression models bound to a storage
// namespace: OLS, which reports t-test p-values and can drive stepwise
// elimination, and Ridge, which does not.
package linear

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/stepwise/core/dataset"
	"github.com/YuminosukeSato/stepwise/core/model"
	"github.com/YuminosukeSato/stepwise/core/parallel"
	"github.com/YuminosukeSato/stepwise/metrics"
	"github.com/YuminosukeSato/stepwise/pkg/errors"
	"github.com/YuminosukeSato/stepwise/pkg/log"
	"github.com/YuminosukeSato/stepwise/storage"
)

const (
	stateKey = "state"

	// 並列処理の閾値（この値以下の行数では逐次処理を使用）
	defaultParallelThreshold = 1000
)

// fittedState はストレージに保存される学習済みの状態
type fittedState struct {
	Model        model.ModelState
	FitIntercept bool
	Alpha        float64
	Features     []string
	Coefficients []float64
	Intercept    float64
	PValues      map[string]float64
	R2           float64
}

// estimator は OLS と Ridge に共通する学習済み状態・予測・永続化を持つ
type estimator struct {
	name              string
	state             *model.StateManager
	conn              storage.Connector
	logger            log.Logger
	parallelThreshold int
	fitted            fittedState
	closed            bool
}

func newEstimator(name, namespace string, conf *storage.Configuration, opts []Option) (*estimator, error) {
	if conf == nil {
		return nil, errors.NewValueError(name+".New", "storage configuration is nil")
	}
	conn, err := conf.Open(namespace)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: open namespace", name)
	}

	e := &estimator{
		name:              name,
		state:             model.NewStateManager(name),
		conn:              conn,
		parallelThreshold: defaultParallelThreshold,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = log.GetLoggerWithName("linear")
	}
	e.logger = e.logger.With(log.ModelNameKey, name, log.NamespaceKey, namespace)
	return e, nil
}

// checkTraining は学習データを検証し、目的変数を返す
func (e *estimator) checkTraining(op string, df *dataset.Dataframe) (*mat.VecDense, error) {
	if e.closed {
		return nil, errors.Wrap(errors.ErrDeleted, op)
	}
	if df == nil || df.IsDeleted() {
		return nil, errors.NewValueError(op, "training data is nil or deleted")
	}
	if !df.HasY() {
		return nil, errors.NewValueError(op, "training data has no target")
	}
	if df.Rows() == 0 {
		return nil, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	return df.Y(), nil
}

// designMatrix は特徴量列（と切片列）から計画行列を作る。
// 切片がある場合、列0 が dataset.ConstantColumn になる。
func (e *estimator) designMatrix(op string, df *dataset.Dataframe, intercept bool) (*mat.Dense, []string, error) {
	features := df.XColumns()
	cols := make([][]float64, len(features))
	for j, name := range features {
		cols[j], _ = df.Column(name)
	}

	offset := 0
	if intercept {
		offset = 1
	}
	k := len(features) + offset
	if k == 0 {
		return nil, nil, errors.NewValueError(op, "no feature columns and no intercept to fit")
	}

	n := df.Rows()
	X := mat.NewDense(n, k, nil)

	// ParallelizeWithThresholdを使用して、データサイズに応じて並列化
	parallel.ParallelizeWithThreshold(n, e.parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			if intercept {
				X.Set(i, 0, 1.0) // 切片項
			}
			for j := range cols {
				X.Set(i, j+offset, cols[j][i])
			}
		}
	})

	names := features
	if intercept {
		names = append([]string{dataset.ConstantColumn}, features...)
	}
	return X, names, nil
}

// finish は係数を切片と重みに分離し、学習済み状態を保存する
func (e *estimator) finish(X *mat.Dense, y, beta *mat.VecDense, names []string, st fittedState) error {
	n, _ := X.Dims()

	var yHat mat.VecDense
	yHat.MulVec(X, beta)
	r2, err := metrics.R2Score(y, &yHat)
	if err != nil {
		return err
	}

	st.Features = nil
	st.Coefficients = nil
	for j, name := range names {
		if name == dataset.ConstantColumn {
			st.Intercept = beta.AtVec(j)
			continue
		}
		st.Features = append(st.Features, name)
		st.Coefficients = append(st.Coefficients, beta.AtVec(j))
	}
	st.R2 = r2
	e.fitted = st

	e.state.SetDimensions(len(st.Features), n)
	e.state.SetFitted()

	e.logger.Debug("Model fitted",
		log.SamplesKey, n,
		log.FeaturesKey, len(st.Features),
		log.R2ScoreKey, r2,
	)
	return e.Save()
}

// Predict は入力データに対する予測を行う: y = X * weights + intercept
func (e *estimator) Predict(df *dataset.Dataframe) (*mat.VecDense, error) {
	op := e.name + ".Predict"
	if e.closed {
		return nil, errors.Wrap(errors.ErrDeleted, op)
	}
	if err := e.state.RequireFitted("Predict"); err != nil {
		return nil, err
	}
	if df == nil || df.IsDeleted() {
		return nil, errors.NewValueError(op, "data is nil or deleted")
	}
	n := df.Rows()
	if n == 0 {
		return nil, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}

	X, err := df.Select(e.fitted.Features)
	if err != nil {
		return nil, errors.Wrap(err, op)
	}

	pred := mat.NewVecDense(n, nil)
	if X != nil {
		pred.MulVec(X, mat.NewVecDense(len(e.fitted.Coefficients), e.fitted.Coefficients))
	}
	for i := 0; i < n; i++ {
		pred.SetVec(i, pred.AtVec(i)+e.fitted.Intercept)
	}
	return pred, nil
}

// Save writes the fitted state into the model's namespace.
func (e *estimator) Save() error {
	if e.closed {
		return errors.Wrap(errors.ErrDeleted, e.name+".Save")
	}
	if err := e.state.RequireFitted("Save"); err != nil {
		return err
	}
	st := e.fitted
	st.Model = e.state.GetState()
	if err := e.conn.Put(stateKey, st); err != nil {
		return errors.Wrapf(err, "%s: save", e.name)
	}
	return nil
}

// Load restores the fitted state saved in the model's namespace.
func (e *estimator) Load() error {
	if e.closed {
		return errors.Wrap(errors.ErrDeleted, e.name+".Load")
	}
	var st fittedState
	if err := e.conn.Get(stateKey, &st); err != nil {
		return errors.Wrapf(err, "%s: load", e.name)
	}
	e.fitted = st
	e.state.SetState(st.Model)
	return nil
}

// Delete removes the persisted state and releases the model. Calling it
// again is a no-op.
func (e *estimator) Delete() error {
	if e.closed {
		return nil
	}
	err := e.conn.Clear()
	e.release()
	return errors.CombineErrors(err, e.conn.Close())
}

// Close releases the model and keeps the persisted state. Calling it again
// is a no-op.
func (e *estimator) Close() error {
	if e.closed {
		return nil
	}
	e.release()
	return e.conn.Close()
}

func (e *estimator) release() {
	e.closed = true
	e.fitted = fittedState{}
	e.state.Reset()
}

// IsFitted reports whether the model holds a fitted or loaded state.
func (e *estimator) IsFitted() bool {
	return e.state.IsFitted()
}

// Features returns the feature columns the model was fitted on, in order.
func (e *estimator) Features() []string {
	return append([]string(nil), e.fitted.Features...)
}

// Summary describes the fitted coefficients.
func (e *estimator) Summary() (*model.Summary, error) {
	if err := e.state.RequireFitted("Summary"); err != nil {
		return nil, err
	}
	s := &model.Summary{
		ModelType:    e.name,
		Features:     e.Features(),
		Coefficients: append([]float64(nil), e.fitted.Coefficients...),
		Intercept:    e.fitted.Intercept,
		Hyperparameters: map[string]interface{}{
			"fit_intercept": e.fitted.FitIntercept,
		},
		Metadata: map[string]interface{}{
			"r2": e.fitted.R2,
		},
	}
	if len(e.fitted.PValues) > 0 {
		s.PValues = make(map[string]float64, len(e.fitted.PValues))
		for k, v := range e.fitted.PValues {
			s.PValues[k] = v
		}
	}
	_, nSamples := e.state.GetDimensions()
	s.Metadata["n_samples"] = nSamples
	return s, nil
}
