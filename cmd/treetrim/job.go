package main

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/treetrim/pkg/errors"
	"github.com/YuminosukeSato/treetrim/trimmer"
)

// Job is a training request read from a YAML file:
//
//	feature_names: [A, B]
//	features:
//	  - [0, 0]
//	  - [1, 1]
//	target: [no, yes]
//	parameters:
//	  max_depth: 3
//
// Missing parameters keep their defaults.
type Job struct {
	FeatureNames []string                `yaml:"feature_names"`
	Features     [][]float64             `yaml:"features"`
	Target       []string                `yaml:"target"`
	Parameters   trimmer.Hyperparameters `yaml:"parameters"`
}

// LoadJob reads and parses a job file.
func LoadJob(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read job file %s", path)
	}
	return ParseJob(data)
}

// ParseJob parses a YAML job description.
func ParseJob(data []byte) (*Job, error) {
	job := &Job{Parameters: trimmer.DefaultHyperparameters()}
	if err := yaml.Unmarshal(data, job); err != nil {
		return nil, errors.Wrap(err, "parse job")
	}
	if err := job.Parameters.Validate(); err != nil {
		return nil, err
	}
	return job, nil
}

// Dataset builds the training dataset described by the job.
func (j *Job) Dataset() (*trimmer.Dataset, error) {
	target := make([]trimmer.Label, len(j.Target))
	for i, t := range j.Target {
		target[i] = trimmer.Label(t)
	}
	return trimmer.NewDataset(j.Features, j.FeatureNames, target)
}
