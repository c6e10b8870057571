// Package stepwise implements backward-elimination stepwise regression.
//
// A Regression repeatedly trains a base regression model, removes the
// feature with the largest p-value while it exceeds the exit threshold, and
// finally retrains the base model on the surviving features. Base models are
// created through a model.Registry and must implement
// model.StepwiseCompatible.
//
//	params, err := stepwise.NewTrainingParameters(linear.KindOLS, stepwise.WithAout(0.05))
//	reg, err := stepwise.New("housing", storage.NewMemoryConfiguration(), params)
//	err = reg.Fit(train)
//	pred, err := reg.Predict(test)
//	defer reg.Delete()
package stepwise

import (
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/stepwise/core/dataset"
	"github.com/YuminosukeSato/stepwise/core/model"
	"github.com/YuminosukeSato/stepwise/pkg/errors"
	"github.com/YuminosukeSato/stepwise/pkg/log"
	"github.com/YuminosukeSato/stepwise/storage"
)

const (
	modelName        = "StepwiseRegression"
	knowledgeBaseKey = "knowledge_base"
)

// knowledgeBase is the persisted state of a Regression. Base-model
// parameters are not part of it; the kept delegate stores its own.
type knowledgeBase struct {
	MaxIterations *int
	Aout          float64
	Kind          model.Kind
	Selected      []string
	History       []Step
	StopReason    StopReason
	Trainings     int
	State         model.ModelState
}

// Regression is a backward-elimination stepwise regression bound to the
// namespace dbName of a storage configuration. The kept base model lives in
// the namespace dbName + ".regressor".
//
// A Regression is not safe for concurrent use.
type Regression struct {
	name   string
	id     string
	conf   *storage.Configuration
	conn   storage.Connector
	params *TrainingParameters
	logger log.Logger
	state  *model.StateManager

	// regressor is the active delegate. It is nil before Fit and after Load
	// until the first Predict.
	regressor model.Regressor

	selected   []string
	history    []Step
	stopReason StopReason
	trainings  int
	closed     bool
	deleted    bool
}

// Option configures a Regression.
type Option func(*regressionOptions)

type regressionOptions struct {
	logger   log.Logger
	registry *model.Registry
}

// WithLogger sets the logger of the Regression.
func WithLogger(logger log.Logger) Option {
	return func(o *regressionOptions) {
		o.logger = logger
	}
}

// WithModels sets the registry Load resolves the persisted regression kind
// in. New takes the registry from its TrainingParameters.
func WithModels(r *model.Registry) Option {
	return func(o *regressionOptions) {
		o.registry = r
	}
}

// New creates an unfitted Regression.
func New(dbName string, conf *storage.Configuration, params *TrainingParameters, opts ...Option) (*Regression, error) {
	if params == nil {
		return nil, errors.NewValidationError("params", "training parameters are required", nil)
	}
	return newRegression(dbName, conf, params, applyOptions(opts))
}

// Load reopens a Regression previously fitted under dbName. The kept base
// model is restored lazily on the first Predict.
func Load(dbName string, conf *storage.Configuration, opts ...Option) (*Regression, error) {
	o := applyOptions(opts)
	r, err := newRegression(dbName, conf, nil, o)
	if err != nil {
		return nil, err
	}

	var kb knowledgeBase
	if err := r.conn.Get(knowledgeBaseKey, &kb); err != nil {
		return nil, errors.CombineErrors(errors.Wrapf(err, "stepwise: load %s", dbName), r.conn.Close())
	}

	paramOpts := []ParamOption{WithAout(kb.Aout), WithRegistry(o.registry)}
	if kb.MaxIterations != nil {
		paramOpts = append(paramOpts, WithMaxIterations(*kb.MaxIterations))
	}
	params, err := NewTrainingParameters(kb.Kind, paramOpts...)
	if err != nil {
		return nil, errors.CombineErrors(errors.Wrapf(err, "stepwise: load %s", dbName), r.conn.Close())
	}

	r.params = params
	r.selected = kb.Selected
	r.history = kb.History
	r.stopReason = kb.StopReason
	r.trainings = kb.Trainings
	r.state.SetState(kb.State)

	r.logger.Info("Model loaded",
		log.OperationKey, log.OperationLoad,
		log.FeaturesKey, len(r.selected),
	)
	return r, nil
}

func applyOptions(opts []Option) regressionOptions {
	var o regressionOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		o.registry = model.DefaultRegistry()
	}
	return o
}

func newRegression(dbName string, conf *storage.Configuration, params *TrainingParameters, o regressionOptions) (*Regression, error) {
	if conf == nil {
		return nil, errors.NewValueError("stepwise.New", "storage configuration is nil")
	}
	conn, err := conf.Open(dbName)
	if err != nil {
		return nil, errors.Wrapf(err, "stepwise: open %s", dbName)
	}

	r := &Regression{
		name:   dbName,
		id:     uuid.NewString(),
		conf:   conf,
		conn:   conn,
		params: params,
		state:  model.NewStateManager(modelName),
	}
	logger := o.logger
	if logger == nil {
		logger = log.GetLoggerWithName("stepwise")
	}
	r.logger = logger.With(
		log.ModelNameKey, modelName,
		log.EstimatorIDKey, r.id,
		log.NamespaceKey, dbName,
	)
	return r, nil
}

func (r *Regression) delegates() *delegates {
	return &delegates{
		namespace: delegateNamespace(r.name),
		conf:      r.conf,
		registry:  r.params.Registry(),
		kind:      r.params.RegressionKind(),
		params:    r.params.RegressionParams(),
		logger:    r.logger,
	}
}

// Fit runs backward elimination on training and keeps the base model
// retrained on the selected features. training is not modified.
//
// A previously kept base model is deleted before the new fit starts, so a
// failed Fit leaves the Regression unfitted.
func (r *Regression) Fit(training *dataset.Dataframe) error {
	const op = "StepwiseRegression.Fit"
	if r.closed {
		return errors.Wrap(errors.ErrDeleted, op)
	}
	if training == nil || training.IsDeleted() {
		return errors.NewValueError(op, "training data is nil or deleted")
	}

	start := time.Now()
	aout := r.params.Aout()
	maxIter, bounded := r.params.MaxIterations()
	logger := r.logger.With(log.OperationKey, log.OperationFit, log.PhaseKey, log.PhaseTraining)
	logger.Info("Fit started",
		log.SamplesKey, training.Rows(),
		log.FeaturesKey, training.XColumnSize(),
		log.ThresholdKey, aout,
	)

	if err := r.disposeActive(); err != nil {
		return errors.Wrap(err, "stepwise: delete previous delegate")
	}
	r.resetFit()

	d := r.delegates()
	work := training.Copy()
	defer work.Delete()

	reason := StopNone
	removedLast := false
	iter := 0
	for ; !bounded || iter < maxIter; iter++ {
		pvalues, err := d.scores(work)
		if err != nil {
			logger.Error("Elimination round failed", err, log.IterationKey, iter)
			return errors.Wrapf(err, "stepwise: round %d", iter)
		}
		removedLast = false

		delete(pvalues, dataset.ConstantColumn)
		for name := range pvalues {
			if !work.HasColumn(name) {
				logger.Debug("Ignoring p-value of unknown column", log.IterationKey, iter, log.FeatureKey, name)
				delete(pvalues, name)
			}
		}
		if len(pvalues) == 0 {
			reason = StopNoFeatures
			break
		}

		feature, pmax := selectLeastSignificant(work, pvalues)
		if pmax <= aout {
			reason = StopSignificant
			break
		}

		work.DropColumns(feature)
		removedLast = true
		step := Step{Iteration: iter, Feature: feature, PValue: pmax, Remaining: work.XColumnSize()}
		r.history = append(r.history, step)
		logger.Info("Feature removed",
			log.IterationKey, iter,
			log.FeatureKey, feature,
			log.PValueKey, pmax,
			log.RemainingKey, step.Remaining,
		)

		if work.XColumnSize() == 0 {
			reason = StopExhausted
			break
		}
	}
	if reason == StopNone {
		reason = StopMaxIterations
	}

	active, err := d.final(work)
	if err != nil {
		logger.Error("Final retrain failed", err)
		return err
	}
	r.regressor = active
	r.selected = work.XColumns()
	r.stopReason = reason
	r.trainings = d.trainings
	r.state.SetDimensions(len(r.selected), training.Rows())
	r.state.SetFitted()

	if reason == StopMaxIterations && maxIter > 0 && removedLast {
		errors.Warn(errors.NewConvergenceWarning(modelName, maxIter,
			"the last round still removed a feature; increase MaxIterations to continue elimination"))
	}

	if err := r.Save(); err != nil {
		return err
	}

	logger.Info("Fit finished",
		log.StopReasonKey, string(reason),
		log.FeaturesKey, len(r.selected),
		log.TrainingsKey, r.trainings,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

func (r *Regression) resetFit() {
	r.state.Reset()
	r.selected = nil
	r.history = nil
	r.stopReason = StopNone
	r.trainings = 0
}

// disposeActive deletes the active delegate, clearing the slot.
func (r *Regression) disposeActive() error {
	if r.regressor == nil {
		return nil
	}
	m := r.regressor
	r.regressor = nil
	return errors.SafeExecute("delegate.Delete", m.Delete)
}

// Predict forwards newData to the kept base model.
func (r *Regression) Predict(newData *dataset.Dataframe) (*mat.VecDense, error) {
	const op = "StepwiseRegression.Predict"
	if r.closed {
		return nil, errors.Wrap(errors.ErrDeleted, op)
	}
	if err := r.state.RequireFitted("Predict"); err != nil {
		return nil, err
	}
	active, err := r.active()
	if err != nil {
		return nil, err
	}
	return active.Predict(newData)
}

// active returns the active delegate, restoring it from storage if needed.
func (r *Regression) active() (model.Regressor, error) {
	if r.regressor != nil {
		return r.regressor, nil
	}
	m, err := r.delegates().resolve()
	if err != nil {
		return nil, err
	}
	r.regressor = m
	r.logger.Debug("Delegate restored", log.OperationKey, log.OperationPredict, log.PhaseKey, log.PhaseInference)
	return m, nil
}

// Save writes the parameters, selected features and history into the
// Regression's namespace. Fit calls it.
func (r *Regression) Save() error {
	if r.closed {
		return errors.Wrap(errors.ErrDeleted, "StepwiseRegression.Save")
	}
	if err := r.state.RequireFitted("Save"); err != nil {
		return err
	}
	kb := knowledgeBase{
		Aout:       r.params.Aout(),
		Kind:       r.params.RegressionKind(),
		Selected:   r.selected,
		History:    r.history,
		StopReason: r.stopReason,
		Trainings:  r.trainings,
		State:      r.state.GetState(),
	}
	if n, ok := r.params.MaxIterations(); ok {
		kb.MaxIterations = &n
	}
	if err := r.conn.Put(knowledgeBaseKey, kb); err != nil {
		return errors.Wrapf(err, "stepwise: save %s", r.name)
	}
	return nil
}

// Delete deletes the kept base model and every persisted state of the
// Regression. After Close it still removes both namespaces from the storage
// configuration, which must not be closed yet. Calling it again is a no-op.
func (r *Regression) Delete() error {
	if r.deleted {
		return nil
	}
	r.deleted = true

	var err error
	if r.closed {
		err = errors.CombineErrors(r.conf.Drop(delegateNamespace(r.name)), r.conf.Drop(r.name))
		r.logger.Info("Model deleted", log.OperationKey, log.OperationDelete)
		return err
	}
	if r.regressor != nil {
		err = r.disposeActive()
	} else {
		err = r.conf.Drop(delegateNamespace(r.name))
	}
	err = errors.CombineErrors(err, r.conn.Clear())
	err = errors.CombineErrors(err, r.release())
	r.logger.Info("Model deleted", log.OperationKey, log.OperationDelete)
	return err
}

// Close releases the kept base model and the Regression without removing
// persisted state. Calling it again is a no-op.
func (r *Regression) Close() error {
	if r.closed {
		return nil
	}
	var err error
	if r.regressor != nil {
		m := r.regressor
		r.regressor = nil
		err = errors.SafeExecute("delegate.Close", m.Close)
	}
	return errors.CombineErrors(err, r.release())
}

func (r *Regression) release() error {
	r.closed = true
	r.resetFit()
	return r.conn.Close()
}

// Name returns the namespace the Regression is bound to.
func (r *Regression) Name() string { return r.name }

// ID returns the identifier used in log records.
func (r *Regression) ID() string { return r.id }

// TrainingParameters returns the parameters of the Regression.
func (r *Regression) TrainingParameters() *TrainingParameters { return r.params }

// IsFitted reports whether the Regression was fitted or loaded.
func (r *Regression) IsFitted() bool { return r.state.IsFitted() }

// SelectedFeatures returns the features the kept base model was trained on.
func (r *Regression) SelectedFeatures() []string {
	return append([]string(nil), r.selected...)
}

// History returns the removal rounds of the last fit in order.
func (r *Regression) History() []Step {
	return append([]Step(nil), r.history...)
}

// StopReason returns why the last fit's elimination loop ended.
func (r *Regression) StopReason() StopReason { return r.stopReason }

// Trainings returns how many base-model trainings the last fit ran,
// including the final retrain.
func (r *Regression) Trainings() int { return r.trainings }

// Summary describes the kept base model when it implements
// model.Summarizer.
func (r *Regression) Summary() (*model.Summary, error) {
	if r.closed {
		return nil, errors.Wrap(errors.ErrDeleted, "StepwiseRegression.Summary")
	}
	if err := r.state.RequireFitted("Summary"); err != nil {
		return nil, err
	}
	active, err := r.active()
	if err != nil {
		return nil, err
	}
	s, ok := active.(model.Summarizer)
	if !ok {
		return nil, errors.NewValueError("StepwiseRegression.Summary",
			"base model "+string(r.params.RegressionKind())+" does not provide a summary")
	}
	return s.Summary()
}
