package model

import (
	"encoding/json"

	"github.com/YuminosukeSato/stepwise/pkg/errors"
)

// Summary は学習済みモデルの係数とメタデータを表す構造体（レポート・CLI出力用）
type Summary struct {
	// ModelType はモデルの種類（OLS, Ridge等）
	ModelType string `json:"model_type"`

	// Features は係数に対応する特徴量の名前
	Features []string `json:"features"`

	// Coefficients は重み係数
	Coefficients []float64 `json:"coefficients"`

	// Intercept は切片
	Intercept float64 `json:"intercept"`

	// PValues は特徴量ごとのp値（計算しないモデルでは空）
	PValues map[string]float64 `json:"p_values,omitempty"`

	// Hyperparameters はモデルのハイパーパラメータ
	Hyperparameters map[string]interface{} `json:"hyperparameters,omitempty"`

	// Metadata は追加のメタデータ（学習時の統計等）
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// ToJSON はSummaryをJSON形式にシリアライズ
func (s *Summary) ToJSON() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "model: marshal summary")
	}
	return data, nil
}

// Validate はSummaryの妥当性を検証
func (s *Summary) Validate() error {
	if s.ModelType == "" {
		return errors.NewValidationError("model_type", "model_type is required", s.ModelType)
	}
	if len(s.Features) != len(s.Coefficients) {
		return errors.NewDimensionError("Summary.Validate", len(s.Features), len(s.Coefficients), 1)
	}
	return nil
}

// Coefficient returns the coefficient of feature.
func (s *Summary) Coefficient(feature string) (float64, bool) {
	for i, name := range s.Features {
		if name == feature {
			return s.Coefficients[i], true
		}
	}
	return 0, false
}
