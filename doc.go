// Package stepwise is the root of a Go library for backward-elimination
// stepwise regression on top of gonum.
//
// A stepwise regression repeatedly fits a base regression model, asks it for
// per-feature p-values and drops the least significant feature while its
// p-value is above a threshold (aout). The model fitted on the surviving
// features is kept in a storage namespace and used for prediction.
//
// # Installation
//
//	go get github.com/YuminosukeSato/stepwise
//
// # Quick Start
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/stepwise/core/dataset"
//	    "github.com/YuminosukeSato/stepwise/linear"
//	    "github.com/YuminosukeSato/stepwise/stepwise"
//	    "github.com/YuminosukeSato/stepwise/storage"
//	)
//
//	func main() {
//	    df, err := dataset.FromColumns(
//	        []string{"a", "b", "c"},
//	        [][]float64{a, b, c},
//	        y,
//	    )
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    conf := storage.NewBadgerConfiguration("stepwise-data")
//	    defer conf.Close()
//
//	    params, err := stepwise.NewTrainingParameters(linear.KindOLS, stepwise.WithAout(0.05))
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    reg, err := stepwise.New("prices", conf, params)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer reg.Close()
//
//	    if err := reg.Fit(df); err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println("Selected:", reg.SelectedFeatures())
//	}
//
// # Packages
//
//   - stepwise: the elimination loop, training parameters and persistence
//   - linear: OLS (with p-values) and Ridge base models
//   - core/model: Regressor interfaces, capability check and model registry
//   - core/dataset: named-column Dataframe with the reserved constant column
//   - core/parallel: chunked parallel execution helpers
//   - storage: namespaced key/value persistence (memory, BadgerDB)
//   - metrics: regression metrics (MSE, RMSE, MAE, R²)
//   - report: elimination history tables and plots
//   - config: YAML and environment configuration
//   - cmd/stepwise: command line interface
//
// # License
//
// stepwise is released under the MIT License.
package stepwise
