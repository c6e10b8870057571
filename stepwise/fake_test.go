package stepwise

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/stepwise/core/dataset"
	"github.com/YuminosukeSato/stepwise/core/model"
	"github.com/YuminosukeSato/stepwise/pkg/errors"
	"github.com/YuminosukeSato/stepwise/storage"
)

const fakeKind model.Kind = "fake"

// recorder tracks every fake delegate created by one registry.
type recorder struct {
	created int
	deleted int
	closed  int
	live    int
	maxLive int
	fits    [][]string
	params  []any

	// pvalues returns the p-values a delegate trained on features reports.
	pvalues func(features []string) map[string]float64

	// failFit makes the n-th Fit call (1-based) fail; panicFit panics instead.
	failFit  int
	panicFit int
	// failQuery makes FeaturePValues fail.
	failQuery bool
}

func (r *recorder) fitCount() int { return len(r.fits) }

// fakeModel is a base model whose p-values are scripted by its recorder.
type fakeModel struct {
	rec      *recorder
	conn     storage.Connector
	features []string
	fitted   bool
	done     bool
}

func newFakeRegistry(rec *recorder) *model.Registry {
	reg := model.NewRegistry()
	model.MustRegister(reg, fakeKind, func(ns string, conf *storage.Configuration, params any) (*fakeModel, error) {
		conn, err := conf.Open(ns)
		if err != nil {
			return nil, err
		}
		rec.created++
		rec.live++
		if rec.live > rec.maxLive {
			rec.maxLive = rec.live
		}
		rec.params = append(rec.params, params)
		return &fakeModel{rec: rec, conn: conn}, nil
	}, nil)
	return reg
}

func (m *fakeModel) Fit(df *dataset.Dataframe) error {
	m.rec.fits = append(m.rec.fits, df.XColumns())
	n := m.rec.fitCount()
	if n == m.rec.panicFit {
		panic("fake model exploded")
	}
	if n == m.rec.failFit {
		return errors.New("fake fit failed")
	}
	m.features = df.XColumns()
	m.fitted = true
	return m.Save()
}

func (m *fakeModel) FeaturePValues() (map[string]float64, error) {
	if m.rec.failQuery {
		return nil, errors.New("fake query failed")
	}
	return m.rec.pvalues(m.features), nil
}

// Predict returns the number of features for every row.
func (m *fakeModel) Predict(df *dataset.Dataframe) (*mat.VecDense, error) {
	if !m.fitted {
		return nil, errors.NewNotFittedError("fake", "Predict")
	}
	out := mat.NewVecDense(df.Rows(), nil)
	for i := 0; i < df.Rows(); i++ {
		out.SetVec(i, float64(len(m.features)))
	}
	return out, nil
}

func (m *fakeModel) Save() error { return m.conn.Put("features", m.features) }

func (m *fakeModel) Load() error {
	if err := m.conn.Get("features", &m.features); err != nil {
		return err
	}
	m.fitted = true
	return nil
}

func (m *fakeModel) Delete() error {
	if m.done {
		return nil
	}
	m.done = true
	m.rec.deleted++
	m.rec.live--
	return errors.CombineErrors(m.conn.Clear(), m.conn.Close())
}

func (m *fakeModel) Close() error {
	if m.done {
		return nil
	}
	m.done = true
	m.rec.closed++
	m.rec.live--
	return m.conn.Close()
}

// table returns a p-value script that looks up each present feature in p
// and adds a highly insignificant constant.
func table(p map[string]float64) func([]string) map[string]float64 {
	return func(features []string) map[string]float64 {
		out := map[string]float64{dataset.ConstantColumn: 0.99}
		for _, f := range features {
			out[f] = p[f]
		}
		return out
	}
}

// plainModel lacks FeaturePValues.
type plainModel struct{ fakeModel }

func (*plainModel) FeaturePValues() {}
