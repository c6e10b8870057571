package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/stepwise/core/dataset"
	"github.com/YuminosukeSato/stepwise/metrics"
	"github.com/YuminosukeSato/stepwise/pkg/errors"
	"github.com/YuminosukeSato/stepwise/report"
	"github.com/YuminosukeSato/stepwise/stepwise"
)

func readCSV(path, target string) (*dataset.Dataframe, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	return dataset.ReadCSV(f, target)
}

func newFitCmd(a *app) *cobra.Command {
	var (
		dataPath string
		target   string
		name     string
		plotPath string
		aout     float64
		maxIter  int
	)
	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Fit a stepwise regression and store it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			params, err := a.cfg.TrainingParameters(a.registry)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("aout") {
				if err := params.SetAout(aout); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("max-iterations") {
				if err := params.SetMaxIterations(maxIter); err != nil {
					return err
				}
			}

			df, err := readCSV(dataPath, target)
			if err != nil {
				return err
			}
			if name == "" {
				name = uuid.NewString()
			}

			conf := a.store()
			defer func() { err = errors.CombineErrors(err, conf.Close()) }()

			reg, err := stepwise.New(name, conf, params, stepwise.WithModels(a.registry))
			if err != nil {
				return err
			}
			defer func() { err = errors.CombineErrors(err, reg.Close()) }()

			if err := reg.Fit(df); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "model: %s\n", reg.Name())
			writeResult(cmd, reg)
			if plotPath != "" {
				if err := report.SaveHistoryPlot(reg.History(), params.Aout(), plotPath); err != nil {
					return err
				}
				fmt.Fprintf(out, "plot: %s\n", plotPath)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&dataPath, "data", "", "training CSV with a header row")
	f.StringVar(&target, "target", "y", "name of the target column")
	f.StringVar(&name, "name", "", "model name in the store (random when empty)")
	f.StringVar(&plotPath, "plot", "", "write the p-value history plot to this file (.png, .svg, .pdf)")
	f.Float64Var(&aout, "aout", stepwise.DefaultAout, "p-value threshold for removal")
	f.IntVar(&maxIter, "max-iterations", 0, "maximum number of elimination rounds")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

func writeResult(cmd *cobra.Command, reg *stepwise.Regression) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "selected: %s\n", strings.Join(reg.SelectedFeatures(), ", "))
	fmt.Fprintf(out, "stop reason: %s\n", reg.StopReason())
	fmt.Fprintf(out, "trainings: %d\n", reg.Trainings())
	if len(reg.History()) > 0 {
		fmt.Fprintln(out)
		_ = report.WriteHistory(out, reg.History())
	}
}

func newPredictCmd(a *app) *cobra.Command {
	var (
		dataPath string
		target   string
		name     string
	)
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict with a stored model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			df, err := readCSV(dataPath, target)
			if err != nil {
				return err
			}

			conf := a.store()
			defer func() { err = errors.CombineErrors(err, conf.Close()) }()

			reg, err := stepwise.Load(name, conf, stepwise.WithModels(a.registry))
			if err != nil {
				return err
			}
			defer func() { err = errors.CombineErrors(err, reg.Close()) }()

			pred, err := reg.Predict(df)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for i := 0; i < pred.Len(); i++ {
				fmt.Fprintf(out, "%g\n", pred.AtVec(i))
			}
			if target == "" {
				return nil
			}
			rep, err := metrics.Evaluate(df.Y(), pred)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "mse=%g rmse=%g mae=%g r2=%g\n", rep.MSE, rep.RMSE, rep.MAE, rep.R2)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&dataPath, "data", "", "CSV with the model's feature columns")
	f.StringVar(&target, "target", "", "optional target column; enables error metrics on stderr")
	f.StringVar(&name, "name", "", "model name in the store")
	_ = cmd.MarkFlagRequired("data")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newShowCmd(a *app) *cobra.Command {
	var (
		name   string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a stored model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			conf := a.store()
			defer func() { err = errors.CombineErrors(err, conf.Close()) }()

			reg, err := stepwise.Load(name, conf, stepwise.WithModels(a.registry))
			if err != nil {
				return err
			}
			defer func() { err = errors.CombineErrors(err, reg.Close()) }()

			summary, err := reg.Summary()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				data, err := summary.ToJSON()
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(out, "%s\n", data)
				return err
			}

			params := reg.TrainingParameters()
			fmt.Fprintf(out, "model: %s\n", reg.Name())
			fmt.Fprintf(out, "regression: %s\n", params.RegressionKind())
			fmt.Fprintf(out, "aout: %g\n", params.Aout())
			writeResult(cmd, reg)
			fmt.Fprintln(out)
			fmt.Fprintf(out, "intercept: %.6g\n", summary.Intercept)
			for i, feature := range summary.Features {
				fmt.Fprintf(out, "coef %s: %.6g\n", feature, summary.Coefficients[i])
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "model name in the store")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the model summary as JSON")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a stored model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			conf := a.store()
			defer func() { err = errors.CombineErrors(err, conf.Close()) }()

			reg, err := stepwise.Load(name, conf, stepwise.WithModels(a.registry))
			if err != nil {
				return err
			}
			if err := reg.Delete(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted: %s\n", name)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "model name in the store")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
