// Package config loads the settings of the stepwise CLI: storage backend,
// log level and stepwise training parameters. Values come from defaults,
// then an optional YAML file, then STEPWISE_* environment variables.
package config

import (
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/stepwise/core/model"
	"github.com/YuminosukeSato/stepwise/pkg/errors"
	"github.com/YuminosukeSato/stepwise/stepwise"
	"github.com/YuminosukeSato/stepwise/storage"
)

// Environment variables overriding file values.
const (
	EnvMaxIterations = "STEPWISE_MAX_ITERATIONS"
	EnvAout          = "STEPWISE_AOUT"
	EnvStoragePath   = "STEPWISE_STORAGE_PATH"
	EnvLogLevel      = "STEPWISE_LOG_LEVEL"
)

var configValidate *validator.Validate

func init() {
	configValidate = validator.New()
}

// Config is the top-level configuration.
type Config struct {
	Storage  StorageConfig  `yaml:"storage"`
	Logging  LoggingConfig  `yaml:"logging"`
	Stepwise StepwiseConfig `yaml:"stepwise"`
}

// StorageConfig selects the backend models are persisted in.
type StorageConfig struct {
	Backend    string `yaml:"backend" validate:"oneof=memory badger"`
	Path       string `yaml:"path" validate:"required_if=Backend badger"`
	SyncWrites bool   `yaml:"sync_writes"`
}

// LoggingConfig sets the log level.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
}

// StepwiseConfig holds the training parameters. RegressionParams is decoded
// into the parameter type of the chosen regression kind.
type StepwiseConfig struct {
	MaxIterations    *int      `yaml:"max_iterations" validate:"omitempty,gte=0"`
	Aout             float64   `yaml:"aout" validate:"gt=0,lte=1"`
	Regression       string    `yaml:"regression" validate:"required"`
	RegressionParams yaml.Node `yaml:"regression_params" validate:"-"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Storage:  StorageConfig{Backend: string(storage.BackendBadger), Path: "stepwise-data"},
		Logging:  LoggingConfig{Level: "info"},
		Stepwise: StepwiseConfig{Aout: stepwise.DefaultAout, Regression: "ols"},
	}
}

// Load reads path (skipped when empty) over the defaults, applies
// environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrapf(err, "config: read %s", path)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, errors.Wrapf(err, "config: parse %s", path)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result. The
// environment is not consulted.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "config: parse")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvMaxIterations); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			return errors.NewValidationErrorWithCause(EnvMaxIterations, "not an integer", v, err)
		}
		c.Stepwise.MaxIterations = &i
	}
	if v := os.Getenv(EnvAout); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.NewValidationErrorWithCause(EnvAout, "not a number", v, err)
		}
		c.Stepwise.Aout = f
	}
	if v := os.Getenv(EnvStoragePath); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	return nil
}

// Validate checks every field.
func (c Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return errors.NewValidationError(fe.Namespace(), "failed '"+fe.Tag()+"' rule", fe.Value())
		}
		return errors.Wrap(err, "config: validate")
	}
	return nil
}

// StorageConfiguration returns the storage configuration described by c.
func (c Config) StorageConfiguration() *storage.Configuration {
	if storage.Backend(c.Storage.Backend) == storage.BackendMemory {
		return storage.NewMemoryConfiguration()
	}
	conf := storage.NewBadgerConfiguration(c.Storage.Path)
	conf.Badger.SyncWrites = c.Storage.SyncWrites
	return conf
}

// TrainingParameters builds validated stepwise parameters, resolving the
// regression kind and its parameter type in reg.
func (c Config) TrainingParameters(reg *model.Registry) (*stepwise.TrainingParameters, error) {
	kind := model.Kind(c.Stepwise.Regression)
	opts := []stepwise.ParamOption{
		stepwise.WithAout(c.Stepwise.Aout),
		stepwise.WithRegistry(reg),
	}
	if c.Stepwise.MaxIterations != nil {
		opts = append(opts, stepwise.WithMaxIterations(*c.Stepwise.MaxIterations))
	}

	if !c.Stepwise.RegressionParams.IsZero() {
		entry, err := reg.Lookup(kind)
		if err != nil {
			return nil, errors.NewValidationErrorWithCause("stepwise.regression", "unknown regression kind", kind, err)
		}
		if entry.Params == nil {
			return nil, errors.NewValidationError("stepwise.regression_params", "regression kind takes no parameters", kind)
		}
		params := entry.Params()
		if err := c.Stepwise.RegressionParams.Decode(params); err != nil {
			return nil, errors.NewValidationErrorWithCause("stepwise.regression_params", "cannot decode", kind, err)
		}
		if err := configValidate.Struct(params); err != nil {
			return nil, errors.NewValidationErrorWithCause("stepwise.regression_params", "invalid", kind, err)
		}
		opts = append(opts, stepwise.WithRegressionParams(params))
	}
	return stepwise.NewTrainingParameters(kind, opts...)
}
