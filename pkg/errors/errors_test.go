package errors

import (
	"fmt"
	"strings"
	"testing"
)

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name    string
		op      string
		kind    string
		err     error
		wantMsg string
	}{
		{
			name:    "with original error",
			op:      "Fit",
			kind:    "invalid input",
			err:     fmt.Errorf("test error"),
			wantMsg: "stepwise: Fit: invalid input: test error",
		},
		{
			name:    "without original error",
			op:      "Predict",
			kind:    "not fitted",
			err:     nil,
			wantMsg: "stepwise: Predict: not fitted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)

			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}

			// スタックトレースの存在確認
			formatted := fmt.Sprintf("%+v", err)
			if !strings.Contains(formatted, "errors_test.go") {
				t.Error("Expected stack trace to contain test file name")
			}

			var modelErr *ModelError
			if !As(err, &modelErr) {
				t.Error("Error should be castable to *ModelError")
			}
		})
	}
}

func TestModelErrorUnwrapsSentinel(t *testing.T) {
	err := NewModelError("OLS.Fit", "singular matrix", ErrSingularMatrix)
	if !Is(err, ErrSingularMatrix) {
		t.Error("expected ModelError to match ErrSingularMatrix")
	}
	wrapped := Wrapf(err, "round %d", 3)
	if !Is(wrapped, ErrSingularMatrix) {
		t.Error("expected wrapped ModelError to match ErrSingularMatrix")
	}
}

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("Predict", 3, 2, 1)

	want := "stepwise: Predict: dimension mismatch on axis 1 (features). Expected 3, got 2"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var dimErr *DimensionError
	if !As(err, &dimErr) {
		t.Fatal("Error should be castable to *DimensionError")
	}
	if dimErr.Expected != 3 || dimErr.Got != 2 {
		t.Errorf("unexpected fields: %+v", dimErr)
	}
}

func TestNewNotFittedError(t *testing.T) {
	err := NewNotFittedError("StepwiseRegression", "Predict")

	want := "stepwise: StepwiseRegression: this model is not fitted yet. Call Fit() before using Predict()"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var nfErr *NotFittedError
	if !As(err, &nfErr) {
		t.Error("Error should be castable to *NotFittedError")
	}
}

func TestValidationErrorWithCause(t *testing.T) {
	err := NewValidationErrorWithCause("regression_kind", "does not report p-values", "ridge", ErrIncompatibleModel)

	if !Is(err, ErrIncompatibleModel) {
		t.Error("expected ValidationError to match ErrIncompatibleModel")
	}

	var vErr *ValidationError
	if !As(err, &vErr) {
		t.Fatal("Error should be castable to *ValidationError")
	}
	if vErr.ParamName != "regression_kind" {
		t.Errorf("ParamName = %q", vErr.ParamName)
	}
	if !strings.Contains(err.Error(), "ridge") {
		t.Errorf("message should contain the rejected value: %v", err)
	}

	plain := NewValidationError("aout", "must be in (0, 1]", 2.0)
	if Is(plain, ErrIncompatibleModel) {
		t.Error("plain ValidationError must not match ErrIncompatibleModel")
	}
}

func TestWarn(t *testing.T) {
	var got []error
	SetWarningHandler(func(w error) { got = append(got, w) })
	defer ResetWarningHandler()

	Warn(NewConvergenceWarning("StepwiseRegression", 2, ""))

	if len(got) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(got))
	}
	var cw *ConvergenceWarning
	if !As(got[0], &cw) {
		t.Fatalf("expected ConvergenceWarning, got %T", got[0])
	}
	if !strings.Contains(cw.Error(), "after 2 iterations") {
		t.Errorf("unexpected message: %s", cw.Error())
	}
}

func TestWarnRouting(t *testing.T) {
	var handler, zl int
	SetZerologWarnFunc(func(error) { zl++ })
	defer func() {
		SetZerologWarnFunc(nil)
		ResetWarningHandler()
	}()

	Warn(NewUndefinedMetricWarning("r2", "constant target", 0))
	if zl != 1 {
		t.Errorf("zerolog=%d, want 1 without a custom handler", zl)
	}

	SetWarningHandler(func(error) { handler++ })
	Warn(NewUndefinedMetricWarning("r2", "constant target", 0))
	if zl != 1 || handler != 1 {
		t.Errorf("zerolog=%d handler=%d, want 1 and 1", zl, handler)
	}

	SetWarningHandler(nil)
	Warn(NewUndefinedMetricWarning("r2", "constant target", 0))
	if zl != 1 || handler != 1 {
		t.Errorf("nil handler should silence warnings, zerolog=%d handler=%d", zl, handler)
	}
}

func TestCheckNumericalStability(t *testing.T) {
	if err := CheckNumericalStability("coef", []float64{1, 2, 3}, 0); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	nan := 0.0
	nan = nan / nan
	err := CheckNumericalStability("coef", []float64{1, nan}, 4)
	if err == nil {
		t.Fatal("expected error for NaN")
	}
	var nErr *NumericalInstabilityError
	if !As(err, &nErr) {
		t.Fatalf("expected NumericalInstabilityError, got %T", err)
	}
	if nErr.Iteration != 4 {
		t.Errorf("Iteration = %d, want 4", nErr.Iteration)
	}
}

func TestClipValue(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-0.1, 0},
		{0.5, 0.5},
		{1.2, 1},
	}
	for _, tt := range tests {
		if got := ClipValue(tt.in, 0, 1); got != tt.want {
			t.Errorf("ClipValue(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
