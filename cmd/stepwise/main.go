// Command stepwise fits backward-elimination regressions on CSV data and
// keeps them in a BadgerDB store for later prediction.
//
//	stepwise fit --data train.csv --target y --name prices --plot history.png
//	stepwise predict --data new.csv --name prices
//	stepwise show --name prices
//	stepwise delete --name prices
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/stepwise/config"
	"github.com/YuminosukeSato/stepwise/core/model"
	"github.com/YuminosukeSato/stepwise/linear"
	"github.com/YuminosukeSato/stepwise/pkg/log"
	"github.com/YuminosukeSato/stepwise/storage"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds the state shared by every subcommand of one invocation.
type app struct {
	configPath string
	storePath  string
	logLevel   string

	cfg      config.Config
	registry *model.Registry
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "stepwise",
		Short: "Backward-elimination stepwise regression",
		Long: `stepwise removes the least significant feature from a regression one
round at a time until every remaining feature is significant, then keeps
the final model in a local store.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "path to a YAML configuration file")
	flags.StringVar(&a.storePath, "store", "", "BadgerDB directory (overrides storage.path)")
	flags.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error (overrides logging.level)")

	root.AddCommand(
		newFitCmd(a),
		newPredictCmd(a),
		newShowCmd(a),
		newDeleteCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.storePath != "" {
		cfg.Storage.Backend = string(storage.BackendBadger)
		cfg.Storage.Path = a.storePath
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := log.SetupLoggerTo(cmd.ErrOrStderr(), cfg.Logging.Level); err != nil {
		return err
	}

	a.cfg = cfg
	a.registry = model.NewRegistry()
	return linear.Register(a.registry)
}

// store opens the configured storage. The caller closes it.
func (a *app) store() *storage.Configuration {
	conf := a.cfg.StorageConfiguration()
	conf.SetLogger(log.GetLoggerWithName("storage"))
	return conf
}
