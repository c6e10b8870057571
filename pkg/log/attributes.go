// Standard attribute keys. Keys follow a hierarchical "group.name" scheme so
// records from different components can be filtered the same way.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the type of model, e.g. "StepwiseRegression", "OLS".
	ModelNameKey = "model.name"

	// EstimatorIDKey is a unique identifier for one model instance.
	EstimatorIDKey = "estimator.id"

	// OperationKey specifies the operation being performed ("fit", "predict", ...).
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is performing the operation.
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of model lifecycle.
	PhaseKey = "ml.phase"

	// NamespaceKey is the storage namespace a model is bound to.
	NamespaceKey = "storage.namespace"
)

// Data Shape
const (
	// SamplesKey indicates the number of samples (rows) in the dataset.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns) in the dataset.
	FeaturesKey = "data.features"
)

// Performance and training progress
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// R2ScoreKey records R² of a fitted regression on its training data.
	R2ScoreKey = "metrics.r2_score"

	// IterationKey records the current elimination round.
	IterationKey = "training.iteration"

	// TrainingsKey records how many base-model trainings a fit performed.
	TrainingsKey = "training.count"
)

// Stepwise elimination
const (
	// FeatureKey names the feature a record is about.
	FeatureKey = "stepwise.feature"

	// PValueKey records a feature p-value.
	PValueKey = "stepwise.pvalue"

	// ThresholdKey records the exit threshold (aout).
	ThresholdKey = "stepwise.threshold"

	// RemainingKey records the number of feature columns left in the working copy.
	RemainingKey = "stepwise.remaining"

	// StopReasonKey records why the elimination loop stopped.
	StopReasonKey = "stepwise.stop_reason"
)

// Error Context
const (
	// ErrorCodeKey provides a structured error code for programmatic handling.
	ErrorCodeKey = "error.code"

	// SuggestionKey provides helpful suggestions for resolving issues.
	SuggestionKey = "error.suggestion"
)

// Standard attribute values.
const (
	OperationFit     = "fit"
	OperationPredict = "predict"
	OperationDelete  = "delete"
	OperationLoad    = "load"

	PhaseTraining  = "training"
	PhaseInference = "inference"

	ErrorNotFitted      = "NOT_FITTED"
	ErrorEmptyData      = "EMPTY_DATA"
	ErrorInvalidInput   = "INVALID_INPUT"
	ErrorSingularMatrix = "SINGULAR_MATRIX"
	ErrorIncompatible   = "INCOMPATIBLE_MODEL"
	ErrorUnknownModel   = "UNKNOWN_MODEL"
	ErrorNotFound       = "NOT_FOUND"
	ErrorDeleted        = "DELETED"
)
