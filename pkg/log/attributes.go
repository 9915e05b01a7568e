// Package log defines standard attribute keys for treetrim operations.
//
// Keys follow a hierarchical naming convention ("model.name", "data.samples")
// so that log lines from fitting, serialization and evaluation can be filtered
// uniformly.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the type of model. Examples: "TreeModel", "DecisionTreeClassifier"
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	OperationKey = "ml.operation"

	// ComponentKey identifies which component is performing the operation.
	ComponentKey = "ml.component"

	// SessionIDKey identifies a training session handle.
	SessionIDKey = "session.id"
)

// Data Shape and Characteristics
const (
	// SamplesKey indicates the number of samples (rows) in the dataset.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns) in the dataset.
	FeaturesKey = "data.features"

	// ClassesKey indicates the size of the class-label vocabulary.
	ClassesKey = "data.classes"

	// FilteredKey lists the feature names removed before training.
	FilteredKey = "data.filtered"
)

// Tree Structure
const (
	// NodeCountKey records the number of nodes of a fitted tree.
	NodeCountKey = "tree.node_count"

	// DepthKey records the depth of a fitted tree.
	DepthKey = "tree.depth"

	// CriterionKey records the impurity criterion.
	CriterionKey = "tree.criterion"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// AccuracyKey records cross-validated accuracy.
	AccuracyKey = "metrics.accuracy"

	// FoldsKey records the number of cross-validation folds.
	FoldsKey = "cv.folds"
)

// Error Context
const (
	// ErrorCodeKey provides a structured error code for programmatic handling.
	ErrorCodeKey = "error.code"
)

// Hyperparameters and Configuration
const (
	// HyperParamsKey contains model hyperparameters as a structured object.
	HyperParamsKey = "model.hyperparams"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"
)

// Standard attribute value constants.
const (
	OperationFit       = "fit"
	OperationPredict   = "predict"
	OperationSerialize = "serialize"
	OperationSummary   = "summary"
	OperationCrossVal  = "cross_val_predict"
	OperationFilter    = "filter_features"
	OperationTrim      = "trim"
	OperationRender    = "render"

	ErrorNotFitted       = "NOT_FITTED"
	ErrorFeatureNotFound = "FEATURE_NOT_FOUND"
	ErrorInvalidInput    = "INVALID_INPUT"
	ErrorInduction       = "INDUCTION_FAILURE"
	ErrorEvaluation      = "EVALUATION_FAILURE"
)
