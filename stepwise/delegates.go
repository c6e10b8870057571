package stepwise

import (
	"github.com/YuminosukeSato/stepwise/core/dataset"
	"github.com/YuminosukeSato/stepwise/core/model"
	"github.com/YuminosukeSato/stepwise/pkg/errors"
	"github.com/YuminosukeSato/stepwise/pkg/log"
	"github.com/YuminosukeSato/stepwise/storage"
)

// delegates creates, trains and disposes of the base models of one
// Regression. All of them share one namespace, so at most one may be live
// at a time.
type delegates struct {
	namespace string
	conf      *storage.Configuration
	registry  *model.Registry
	kind      model.Kind
	params    any
	logger    log.Logger

	// trainings counts base-model Fit calls.
	trainings int
}

func delegateNamespace(dbName string) string {
	return dbName + ".regressor"
}

func (d *delegates) newDelegate(params any) (model.Regressor, error) {
	m, err := d.registry.New(d.kind, d.namespace, d.conf, params)
	if err != nil {
		return nil, errors.Wrapf(err, "stepwise: create %s delegate", d.kind)
	}
	d.logger.Debug("Delegate created", log.NamespaceKey, d.namespace)
	return m, nil
}

func (d *delegates) train(m model.Regressor, df *dataset.Dataframe) error {
	d.trainings++
	return errors.SafeExecute(string(d.kind)+".Fit", func() error {
		return m.Fit(df)
	})
}

// dispose deletes m and its persisted state.
func (d *delegates) dispose(m model.Regressor) error {
	err := errors.SafeExecute(string(d.kind)+".Delete", m.Delete)
	d.logger.Debug("Delegate deleted", log.NamespaceKey, d.namespace)
	return err
}

// scores trains a throwaway delegate on df and returns its feature
// p-values. The delegate is deleted before scores returns, on every path.
func (d *delegates) scores(df *dataset.Dataframe) (pvalues map[string]float64, err error) {
	m, err := d.newDelegate(d.params)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = errors.CombineErrors(err, d.dispose(m))
	}()

	sc, ok := m.(model.StepwiseCompatible)
	if !ok {
		return nil, errors.Wrapf(errors.ErrIncompatibleModel, "stepwise: kind %s", d.kind)
	}
	if err := d.train(m, df); err != nil {
		return nil, errors.Wrapf(err, "stepwise: train %s delegate", d.kind)
	}
	err = errors.SafeExecute(string(d.kind)+".FeaturePValues", func() error {
		var qerr error
		pvalues, qerr = sc.FeaturePValues()
		return qerr
	})
	if err != nil {
		return nil, errors.Wrapf(err, "stepwise: query %s p-values", d.kind)
	}
	return pvalues, nil
}

// final trains the delegate that is kept after the fit. On failure it is
// deleted.
func (d *delegates) final(df *dataset.Dataframe) (model.Regressor, error) {
	m, err := d.newDelegate(d.params)
	if err != nil {
		return nil, err
	}
	if err := d.train(m, df); err != nil {
		return nil, errors.CombineErrors(
			errors.Wrapf(err, "stepwise: train final %s delegate", d.kind),
			d.dispose(m),
		)
	}
	return m, nil
}

// resolve recreates the kept delegate from its persisted state.
func (d *delegates) resolve() (model.Regressor, error) {
	m, err := d.newDelegate(nil)
	if err != nil {
		return nil, err
	}
	if err := m.Load(); err != nil {
		return nil, errors.CombineErrors(
			errors.Wrapf(err, "stepwise: load %s delegate", d.kind),
			m.Close(),
		)
	}
	return m, nil
}
