// Package automl runs a model-training step against a table. The only
// implementation is a deterministic mock that produces plausible scores.
package automl

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/KaramelBytes/tabloom-cli/internal/dataset"
)

// Task is the kind of model to train.
type Task string

const (
	Classification Task = "classification"
	Regression     Task = "regression"
)

// ParseTask validates a task name.
func ParseTask(s string) (Task, error) {
	switch t := Task(strings.ToLower(strings.TrimSpace(s))); t {
	case Classification, Regression:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTask, s)
}

var (
	ErrInvalidTask    = errors.New("task must be classification or regression")
	ErrUnknownTarget  = errors.New("target column not found")
	ErrInvalidFeature = errors.New("invalid feature column")
	ErrNotEnoughData  = errors.New("not enough rows with a target value")
	ErrUnknownTrainer = errors.New("unknown trainer")
)

// TrainConfig selects the target and task. Features defaults to every other
// column. TestSplit defaults to 0.2.
type TrainConfig struct {
	TargetColumn string   `json:"targetColumn"`
	Task         Task     `json:"taskType"`
	Features     []string `json:"features,omitempty"`
	TestSplit    float64  `json:"testSplit"`
}

// FeatureImportance is one feature's share of the model's explanatory power.
type FeatureImportance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// ModelScore is one candidate algorithm's validation score.
type ModelScore struct {
	Model string  `json:"model"`
	Score float64 `json:"score"`
}

// ModelResults is what a training run reports. Accuracy and ConfusionMatrix
// are set for classification, R2Score and MSE for regression.
type ModelResults struct {
	BestModel            string              `json:"bestModel"`
	Task                 Task                `json:"taskType"`
	TargetColumn         string              `json:"targetColumn"`
	Accuracy             *float64            `json:"accuracy"`
	R2Score              *float64            `json:"r2Score"`
	MSE                  *float64            `json:"mse"`
	CrossValidationScore float64             `json:"crossValidationScore"`
	FeatureImportance    []FeatureImportance `json:"featureImportance"`
	ConfusionMatrix      [][]int             `json:"confusionMatrix,omitempty"`
	Leaderboard          []ModelScore        `json:"leaderboard"`
	TrainRows            int                 `json:"trainRows"`
	TestRows             int                 `json:"testRows"`
}

// Score is accuracy for classification and R² for regression.
func (r *ModelResults) Score() float64 {
	switch {
	case r.Accuracy != nil:
		return *r.Accuracy
	case r.R2Score != nil:
		return *r.R2Score
	}
	return 0
}

// Trainer trains a model on a table.
type Trainer interface {
	Name() string
	Train(ctx context.Context, t *dataset.Table, cfg TrainConfig) (*ModelResults, error)
}

// New returns the trainer registered under name. Only "mock" exists.
func New(name string, seed int64) (Trainer, error) {
	switch strings.ToLower(name) {
	case "", "mock":
		return NewMockTrainer(seed), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownTrainer, name)
}

var (
	ClassificationAlgorithms = []string{
		"Logistic Regression", "Support Vector Machine", "Decision Tree",
		"Random Forest", "Naive Bayes", "Neural Network",
	}
	RegressionAlgorithms = []string{
		"Linear Regression", "Polynomial Regression", "Support Vector Regression",
		"Decision Tree Regression", "Random Forest Regression", "Neural Network",
	}
)

// validate checks the config against the table and fills defaults.
func validate(t *dataset.Table, cfg TrainConfig) (TrainConfig, error) {
	if t == nil {
		return cfg, ErrNotEnoughData
	}
	task, err := ParseTask(string(cfg.Task))
	if err != nil {
		return cfg, err
	}
	cfg.Task = task
	if !t.HasColumn(cfg.TargetColumn) {
		return cfg, fmt.Errorf("%w: %q", ErrUnknownTarget, cfg.TargetColumn)
	}
	if len(cfg.Features) == 0 {
		for _, c := range t.Columns {
			if c != cfg.TargetColumn {
				cfg.Features = append(cfg.Features, c)
			}
		}
	} else {
		for _, f := range cfg.Features {
			if f == cfg.TargetColumn {
				return cfg, fmt.Errorf("%w: target %q cannot also be a feature", ErrInvalidFeature, f)
			}
			if !t.HasColumn(f) {
				return cfg, fmt.Errorf("%w: unknown column %q", ErrInvalidFeature, f)
			}
		}
	}
	if cfg.TestSplit <= 0 || cfg.TestSplit >= 1 {
		cfg.TestSplit = 0.2
	}
	return cfg, nil
}
