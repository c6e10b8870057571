// Package metrics computes regression error and goodness-of-fit scores.
package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/stepwise/pkg/errors"
)

// residuals は入力を検証し、yTrue - yPred と yTrue を返す
func residuals(op string, yTrue, yPred mat.Vector) (diff, truth []float64, err error) {
	if yTrue == nil || yPred == nil || yTrue.Len() == 0 {
		return nil, nil, errors.NewValueError(op, "empty vector")
	}
	n := yTrue.Len()
	if yPred.Len() != n {
		return nil, nil, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}

	diff = make([]float64, n)
	truth = make([]float64, n)
	for i := 0; i < n; i++ {
		truth[i] = yTrue.AtVec(i)
		diff[i] = truth[i] - yPred.AtVec(i)
	}
	return diff, truth, nil
}

// MSE は平均二乗誤差（Mean Squared Error）を計算する
func MSE(yTrue, yPred mat.Vector) (float64, error) {
	diff, _, err := residuals("MSE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	// MSE = (1/n) * Σ(yTrue - yPred)²
	var sum float64
	for _, d := range diff {
		sum += d * d
	}
	return sum / float64(len(diff)), nil
}

// MSEMatrix は n×1 行列形式の入力に対してMSEを計算する
func MSEMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	rTrue, cTrue := yTrue.Dims()
	rPred, cPred := yPred.Dims()

	if rTrue == 0 || cTrue == 0 {
		return 0, errors.NewValueError("MSEMatrix", "empty matrix")
	}
	if rTrue != rPred || cTrue != cPred {
		return 0, errors.NewDimensionError("MSEMatrix", rTrue, rPred, 0)
	}
	if cTrue != 1 {
		return 0, errors.NewValueError("MSEMatrix", "must be a column vector (n×1 matrix)")
	}

	return MSE(mat.NewVecDense(rTrue, mat.Col(nil, 0, yTrue)), mat.NewVecDense(rPred, mat.Col(nil, 0, yPred)))
}

// RMSE は平方根平均二乗誤差（Root Mean Squared Error）を計算する
func RMSE(yTrue, yPred mat.Vector) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE は平均絶対誤差（Mean Absolute Error）を計算する
func MAE(yTrue, yPred mat.Vector) (float64, error) {
	diff, _, err := residuals("MAE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var sum float64
	for _, d := range diff {
		sum += math.Abs(d)
	}
	return sum / float64(len(diff)), nil
}

// R2Score は決定係数（R²）を計算する
//
// yTrue に分散がない場合 R² は定義されないため、UndefinedMetricWarning を
// 発行して 0 を返す。
func R2Score(yTrue, yPred mat.Vector) (float64, error) {
	diff, truth, err := residuals("R2Score", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	yMean := stat.Mean(truth, nil)
	var tss, rss float64
	for i, d := range diff {
		tss += (truth[i] - yMean) * (truth[i] - yMean)
		rss += d * d
	}

	if tss == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("R2Score", "yTrue has no variance", 0))
		return 0, nil
	}

	// R² = 1 - RSS/TSS
	return 1 - rss/tss, nil
}

// MAPE は平均絶対パーセンテージ誤差を計算する。yTrue が 0 の要素は除外する。
func MAPE(yTrue, yPred mat.Vector) (float64, error) {
	diff, truth, err := residuals("MAPE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var sum float64
	validCount := 0
	for i, d := range diff {
		if truth[i] != 0 { // ゼロ除算を避ける
			sum += math.Abs(d) / math.Abs(truth[i])
			validCount++
		}
	}
	if validCount == 0 {
		return 0, errors.NewValueError("MAPE", "all yTrue values are zero")
	}
	return (sum / float64(validCount)) * 100, nil
}

// ExplainedVarianceScore は説明分散スコア 1 - Var(yTrue - yPred) / Var(yTrue) を計算する
func ExplainedVarianceScore(yTrue, yPred mat.Vector) (float64, error) {
	diff, truth, err := residuals("ExplainedVarianceScore", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	_, varYTrue := stat.PopMeanVariance(truth, nil)
	_, varDiff := stat.PopMeanVariance(diff, nil)
	if varYTrue == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("ExplainedVarianceScore", "yTrue has no variance", 0))
		return 0, nil
	}
	return 1 - varDiff/varYTrue, nil
}

// Report bundles the regression metrics of one prediction.
type Report struct {
	MSE  float64 `json:"mse"`
	RMSE float64 `json:"rmse"`
	MAE  float64 `json:"mae"`
	R2   float64 `json:"r2"`
}

// Evaluate computes every metric of Report.
func Evaluate(yTrue, yPred mat.Vector) (Report, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return Report{}, err
	}
	mae, err := MAE(yTrue, yPred)
	if err != nil {
		return Report{}, err
	}
	r2, err := R2Score(yTrue, yPred)
	if err != nil {
		return Report{}, err
	}
	return Report{MSE: mse, RMSE: math.Sqrt(mse), MAE: mae, R2: r2}, nil
}
