package trimmer

import (
	"fmt"

	"github.com/YuminosukeSato/treetrim/pkg/errors"
	"github.com/YuminosukeSato/treetrim/sklearn/tree"
)

const (
	// impurityDecreaseBump turns the inducer's strict split-prevention rule into
	// an inclusive threshold: a split whose decrease equals the configured
	// value is blocked.
	impurityDecreaseBump = 1e-4

	// deterministicSeed is used when RandomState is set.
	deterministicSeed = 7

	defaultCVFolds = 5
)

// Hyperparameters configure training and evaluation of a TreeModel.
type Hyperparameters struct {
	Criterion string `yaml:"criterion" json:"criterion"`
	// MaxDepth <= 0 grows the tree until leaves are pure.
	MaxDepth            int     `yaml:"max_depth" json:"max_depth"`
	MinSamplesSplit     int     `yaml:"min_samples_split" json:"min_samples_split"`
	MinSamplesLeaf      int     `yaml:"min_samples_leaf" json:"min_samples_leaf"`
	MinImpurityDecrease float64 `yaml:"min_impurity_decrease" json:"min_impurity_decrease"`
	// RandomState selects a fixed seed; otherwise ties between equally good
	// splits are broken differently on every fit.
	RandomState   bool     `yaml:"random_state" json:"random_state"`
	FilterFeature []string `yaml:"filter_feature,omitempty" json:"filter_feature,omitempty"`
	CVFolds       int      `yaml:"cv_folds" json:"cv_folds"`
}

// DefaultHyperparameters returns the defaults offered by the tree form.
func DefaultHyperparameters() Hyperparameters {
	return Hyperparameters{
		Criterion:       tree.CriterionGini,
		MaxDepth:        20,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		RandomState:     true,
		CVFolds:         defaultCVFolds,
	}
}

// Validate rejects values the inducer cannot work with.
func (h Hyperparameters) Validate() error {
	if _, err := tree.CriterionByName(h.Criterion); err != nil {
		return err
	}
	if h.MinSamplesSplit < 2 {
		return errors.NewValidationError("min_samples_split", "must be at least 2", h.MinSamplesSplit)
	}
	if h.MinSamplesLeaf < 1 {
		return errors.NewValidationError("min_samples_leaf", "must be at least 1", h.MinSamplesLeaf)
	}
	if h.MinImpurityDecrease < 0 {
		return errors.NewValidationError("min_impurity_decrease", "must be non-negative", h.MinImpurityDecrease)
	}
	if h.CVFolds < 2 {
		return errors.NewValidationError("cv_folds", "must be at least 2", h.CVFolds)
	}
	return nil
}

// EffectiveMinImpurityDecrease is the threshold handed to the inducer.
func (h Hyperparameters) EffectiveMinImpurityDecrease() float64 {
	if h.MinImpurityDecrease == 0 {
		return 0
	}
	return h.MinImpurityDecrease + impurityDecreaseBump
}

// Seed returns the inducer seed, negative when unseeded.
func (h Hyperparameters) Seed() int64 {
	if h.RandomState {
		return deterministicSeed
	}
	return -1
}

// InductionParams returns the resolved parameters for an Inducer.
func (h Hyperparameters) InductionParams() InductionParams {
	return InductionParams{
		Criterion:           h.Criterion,
		MaxDepth:            h.MaxDepth,
		MinSamplesSplit:     h.MinSamplesSplit,
		MinSamplesLeaf:      h.MinSamplesLeaf,
		MinImpurityDecrease: h.EffectiveMinImpurityDecrease(),
		Seed:                h.Seed(),
	}
}

// Update is a single hyperparameter change, such as one proposed by a trim
// suggestion.
type Update struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

func (u Update) String() string {
	return fmt.Sprintf("%s=%g", u.Name, u.Value)
}

// Apply returns a copy of h with u applied.
func (h Hyperparameters) Apply(u Update) (Hyperparameters, error) {
	switch u.Name {
	case "max_depth":
		h.MaxDepth = int(u.Value)
	case "min_samples_split":
		h.MinSamplesSplit = int(u.Value)
	case "min_samples_leaf":
		h.MinSamplesLeaf = int(u.Value)
	case "min_impurity_decrease":
		h.MinImpurityDecrease = u.Value
	default:
		return h, errors.NewValidationError(u.Name, "not an adjustable hyperparameter", u.Value)
	}
	h.FilterFeature = append([]string(nil), h.FilterFeature...)
	return h, h.Validate()
}
