package linear

import (
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/stepwise/core/dataset"
	"github.com/YuminosukeSato/stepwise/core/model"
	"github.com/YuminosukeSato/stepwise/pkg/errors"
	"github.com/YuminosukeSato/stepwise/pkg/log"
	"github.com/YuminosukeSato/stepwise/storage"
)

// signalData は y = 1 + 2a - 3b + ノイズ、noise 列は y と無関係
func signalData(t *testing.T, n int) *dataset.Dataframe {
	t.Helper()
	rng := rand.New(rand.NewPCG(7, 11))
	a := make([]float64, n)
	b := make([]float64, n)
	noise := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		a[i] = rng.Float64()*2 - 1
		b[i] = rng.Float64()*2 - 1
		noise[i] = rng.Float64()*2 - 1
		y[i] = 1 + 2*a[i] - 3*b[i] + rng.NormFloat64()*0.1
	}
	df, err := dataset.FromColumns([]string{"a", "b", "noise"}, [][]float64{a, b, noise}, y)
	if err != nil {
		t.Fatalf("FromColumns: %v", err)
	}
	return df
}

func newTestOLS(t *testing.T, conf *storage.Configuration, params any) *OLS {
	t.Helper()
	logger, _ := log.NewTestLogger(log.LevelDebug)
	m, err := NewOLS("test.regressor", conf, params, WithLogger(logger))
	if err != nil {
		t.Fatalf("NewOLS: %v", err)
	}
	return m
}

func TestOLSFit(t *testing.T) {
	conf := storage.NewMemoryConfiguration()
	defer conf.Close()

	m := newTestOLS(t, conf, nil)
	if err := m.Fit(signalData(t, 200)); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	s, err := m.Summary()
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]float64{"a": 2, "b": -3, "noise": 0}
	for name, w := range want {
		got, ok := s.Coefficient(name)
		if !ok {
			t.Fatalf("missing coefficient %q", name)
		}
		if math.Abs(got-w) > 0.1 {
			t.Errorf("coef[%s] = %v, want ≈ %v", name, got, w)
		}
	}
	if math.Abs(s.Intercept-1) > 0.1 {
		t.Errorf("intercept = %v, want ≈ 1", s.Intercept)
	}
	if r2 := s.Metadata["r2"].(float64); r2 < 0.99 {
		t.Errorf("r2 = %v, want > 0.99", r2)
	}
	if _, ok := s.Hyperparameters["alpha"]; ok {
		t.Errorf("OLS summary reports alpha: %v", s.Hyperparameters)
	}
}

func TestOLSFeaturePValues(t *testing.T) {
	conf := storage.NewMemoryConfiguration()
	defer conf.Close()

	m := newTestOLS(t, conf, nil)
	if _, err := m.FeaturePValues(); err == nil {
		t.Error("FeaturePValues before Fit should fail")
	}
	if err := m.Fit(signalData(t, 200)); err != nil {
		t.Fatal(err)
	}

	p, err := m.FeaturePValues()
	if err != nil {
		t.Fatal(err)
	}
	if len(p) != 4 {
		t.Fatalf("got %d p-values, want 4 (3 features + constant): %v", len(p), p)
	}
	if _, ok := p[dataset.ConstantColumn]; !ok {
		t.Errorf("p-values should include %s", dataset.ConstantColumn)
	}
	for name, v := range p {
		if v < 0 || v > 1 {
			t.Errorf("p[%s] = %v out of [0,1]", name, v)
		}
	}
	if p["a"] > 1e-6 || p["b"] > 1e-6 {
		t.Errorf("signal features should be significant: a=%v b=%v", p["a"], p["b"])
	}
	if p["noise"] <= p["a"] || p["noise"] <= p["b"] {
		t.Errorf("noise p-value %v should exceed signal p-values", p["noise"])
	}

	// 返されたマップを変更しても内部状態は変わらない
	p["a"] = 0.9
	again, _ := m.FeaturePValues()
	if again["a"] == 0.9 {
		t.Error("FeaturePValues must return a copy")
	}
}

func TestOLSWithoutIntercept(t *testing.T) {
	conf := storage.NewMemoryConfiguration()
	defer conf.Close()

	m := newTestOLS(t, conf, OLSParams{FitIntercept: false})
	if err := m.Fit(signalData(t, 100)); err != nil {
		t.Fatal(err)
	}
	p, _ := m.FeaturePValues()
	if _, ok := p[dataset.ConstantColumn]; ok {
		t.Error("no constant p-value expected without intercept")
	}
	if len(p) != 3 {
		t.Errorf("got %d p-values, want 3", len(p))
	}
}

func TestTwoSidedPValue(t *testing.T) {
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: 10}
	tests := []struct {
		name     string
		beta, se float64
		want     float64
		tol      float64
	}{
		{"zero se nonzero beta", 1.5, 0, 0, 0},
		{"zero se zero beta", 0, 0, 1, 0},
		{"zero t", 0, 1, 1, 1e-12},
		// t=2.228 は自由度10の両側5%点
		{"critical value", 2.228, 1, 0.05, 1e-3},
		{"symmetric", -2.228, 1, 0.05, 1e-3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := twoSidedPValue(tt.beta, tt.se, dist)
			if math.Abs(got-tt.want) > tt.tol {
				t.Errorf("twoSidedPValue(%v, %v) = %v, want %v", tt.beta, tt.se, got, tt.want)
			}
		})
	}
}

func TestOLSInterceptOnly(t *testing.T) {
	conf := storage.NewMemoryConfiguration()
	defer conf.Close()

	df, err := dataset.FromColumns(nil, nil, []float64{1, 2, 3, 6})
	if err != nil {
		t.Fatal(err)
	}
	m := newTestOLS(t, conf, nil)
	if err := m.Fit(df); err != nil {
		t.Fatalf("Fit with zero features: %v", err)
	}
	pred, err := m.Predict(df)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < pred.Len(); i++ {
		if math.Abs(pred.AtVec(i)-3) > 1e-9 {
			t.Errorf("pred[%d] = %v, want mean 3", i, pred.AtVec(i))
		}
	}
	p, _ := m.FeaturePValues()
	if len(p) != 1 {
		t.Errorf("intercept-only model should report only the constant, got %v", p)
	}
}

func TestOLSFitErrors(t *testing.T) {
	conf := storage.NewMemoryConfiguration()
	defer conf.Close()

	dup, _ := dataset.FromColumns([]string{"a", "b"},
		[][]float64{{1, 2, 3, 4}, {2, 4, 6, 8}}, []float64{1, 2, 3, 4})
	few, _ := dataset.FromColumns([]string{"a", "b"},
		[][]float64{{1, 2}, {3, 5}}, []float64{1, 2})
	noY, _ := dataset.FromColumns([]string{"a"}, [][]float64{{1, 2, 3}}, nil)
	empty, _ := dataset.FromColumns([]string{"a"}, [][]float64{{}}, []float64{})
	deleted, _ := dataset.FromColumns([]string{"a"}, [][]float64{{1, 2, 3}}, []float64{1, 2, 3})
	deleted.Delete()

	tests := []struct {
		name   string
		df     *dataset.Dataframe
		target error
	}{
		{"singular", dup, errors.ErrSingularMatrix},
		{"not enough samples", few, nil},
		{"no target", noY, nil},
		{"empty", empty, errors.ErrEmptyData},
		{"deleted", deleted, nil},
		{"nil", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestOLS(t, conf, nil)
			defer m.Delete()
			err := m.Fit(tt.df)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.target != nil && !errors.Is(err, tt.target) {
				t.Errorf("error = %v, want %v", err, tt.target)
			}
			if m.IsFitted() {
				t.Error("failed Fit must leave the model unfitted")
			}
		})
	}
}

func TestOLSPredict(t *testing.T) {
	conf := storage.NewMemoryConfiguration()
	defer conf.Close()

	m := newTestOLS(t, conf, nil)
	_, err := m.Predict(signalData(t, 10))
	var nfe *errors.NotFittedError
	if !errors.As(err, &nfe) {
		t.Fatalf("Predict before Fit = %v, want NotFittedError", err)
	}

	train := signalData(t, 100)
	if err := m.Fit(train); err != nil {
		t.Fatal(err)
	}

	// 学習時にない列が追加されていても、学習した列だけで予測する
	a, _ := train.Column("a")
	b, _ := train.Column("b")
	noise, _ := train.Column("noise")
	extra := make([]float64, len(a))
	wider, err := dataset.FromColumns([]string{"extra", "b", "noise", "a"}, [][]float64{extra, b, noise, a}, nil)
	if err != nil {
		t.Fatal(err)
	}

	got, err := m.Predict(wider)
	if err != nil {
		t.Fatal(err)
	}
	want, _ := m.Predict(train)
	if !mat.EqualApprox(got, want, 1e-9) {
		t.Error("prediction must not depend on column order or extra columns")
	}

	narrow, _ := dataset.FromColumns([]string{"a"}, [][]float64{a}, nil)
	if _, err := m.Predict(narrow); err == nil {
		t.Error("expected error for missing feature column")
	}
}

func TestOLSPersistence(t *testing.T) {
	conf := storage.NewMemoryConfiguration()
	defer conf.Close()

	df := signalData(t, 50)
	m := newTestOLS(t, conf, nil)
	if err := m.Fit(df); err != nil {
		t.Fatal(err)
	}
	want, _ := m.Predict(df)
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	if err := m.Close(); err != nil {
		t.Errorf("second Close = %v, want nil", err)
	}
	if _, err := m.Predict(df); !errors.Is(err, errors.ErrDeleted) {
		t.Errorf("Predict after Close = %v, want ErrDeleted", err)
	}

	// Close は保存済みの状態を残す
	loaded := newTestOLS(t, conf, nil)
	if err := loaded.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	got, err := loaded.Predict(df)
	if err != nil {
		t.Fatal(err)
	}
	if !mat.EqualApprox(got, want, 1e-12) {
		t.Error("loaded model predicts differently")
	}
	if p, err := loaded.FeaturePValues(); err != nil || len(p) != 4 {
		t.Errorf("loaded p-values = %v, %v", p, err)
	}

	// Delete は保存済みの状態を消す
	if err := loaded.Delete(); err != nil {
		t.Fatal(err)
	}
	if err := loaded.Delete(); err != nil {
		t.Errorf("second Delete = %v, want nil", err)
	}
	again := newTestOLS(t, conf, nil)
	if err := again.Load(); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Load after Delete = %v, want ErrNotFound", err)
	}
}

func TestRidge(t *testing.T) {
	conf := storage.NewMemoryConfiguration()
	defer conf.Close()
	df := signalData(t, 200)

	ols := newTestOLS(t, conf, nil)
	if err := ols.Fit(df); err != nil {
		t.Fatal(err)
	}
	olsSummary, _ := ols.Summary()

	unpenalized, err := NewRidge("ridge0", conf, RidgeParams{Alpha: 0, FitIntercept: true})
	if err != nil {
		t.Fatal(err)
	}
	if err := unpenalized.Fit(df); err != nil {
		t.Fatal(err)
	}
	s0, _ := unpenalized.Summary()
	for i, c := range s0.Coefficients {
		if math.Abs(c-olsSummary.Coefficients[i]) > 1e-8 {
			t.Errorf("alpha=0 coef[%d] = %v, want OLS %v", i, c, olsSummary.Coefficients[i])
		}
	}

	heavy, err := NewRidge("ridge1", conf, &RidgeParams{Alpha: 1e4, FitIntercept: true})
	if err != nil {
		t.Fatal(err)
	}
	if err := heavy.Fit(df); err != nil {
		t.Fatal(err)
	}
	s1, _ := heavy.Summary()
	if math.Abs(s1.Coefficients[1]) >= math.Abs(s0.Coefficients[1]) {
		t.Errorf("large alpha should shrink coefficients: %v vs %v", s1.Coefficients, s0.Coefficients)
	}
	if s1.Hyperparameters["alpha"] != 1e4 {
		t.Errorf("summary alpha = %v", s1.Hyperparameters["alpha"])
	}

	// デフォルト値で作っても Load 後は保存された alpha を報告する
	restored, err := NewRidge("ridge1", conf, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := restored.Load(); err != nil {
		t.Fatal(err)
	}
	s2, err := restored.Summary()
	if err != nil {
		t.Fatal(err)
	}
	if s2.Hyperparameters["alpha"] != 1e4 {
		t.Errorf("restored summary alpha = %v, want 1e4", s2.Hyperparameters["alpha"])
	}
}

func TestInvalidParams(t *testing.T) {
	conf := storage.NewMemoryConfiguration()
	defer conf.Close()

	var vErr *errors.ValidationError
	if _, err := NewOLS("m", conf, "fit_intercept"); !errors.As(err, &vErr) {
		t.Errorf("NewOLS with bad params = %v, want ValidationError", err)
	}
	if _, err := NewRidge("m", conf, RidgeParams{Alpha: -1}); !errors.As(err, &vErr) {
		t.Errorf("NewRidge with negative alpha = %v, want ValidationError", err)
	}
	if _, err := NewOLS("m", nil, nil); err == nil {
		t.Error("NewOLS without configuration should fail")
	}
}

func TestRegisteredKinds(t *testing.T) {
	reg := model.DefaultRegistry()
	if !reg.IsStepwiseCompatible(KindOLS) {
		t.Error("OLS must be stepwise compatible")
	}
	if reg.IsStepwiseCompatible(KindRidge) {
		t.Error("Ridge must not be stepwise compatible")
	}

	entry, err := reg.Lookup(KindRidge)
	if err != nil {
		t.Fatal(err)
	}
	p, ok := entry.Params().(*RidgeParams)
	if !ok || *p != DefaultRidgeParams() {
		t.Errorf("Ridge Params() = %#v", entry.Params())
	}

	custom := model.NewRegistry()
	if err := Register(custom); err != nil {
		t.Fatal(err)
	}
	if err := Register(custom); err == nil {
		t.Error("registering twice should fail")
	}
}

var (
	_ model.Regressor          = (*OLS)(nil)
	_ model.StepwiseCompatible = (*OLS)(nil)
	_ model.Summarizer         = (*OLS)(nil)
	_ model.Regressor          = (*Ridge)(nil)
)
