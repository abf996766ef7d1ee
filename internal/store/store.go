// Package store persists datasets and training results per user. Two
// backends exist: JSON files on disk and a SQL database through sqlx.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/KaramelBytes/tabloom-cli/internal/automl"
	"github.com/KaramelBytes/tabloom-cli/internal/dataset"
	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned when a record does not exist for the user.
	ErrNotFound = errors.New("not found")
	// ErrInvalidUser is returned for empty or unsafe user ids.
	ErrInvalidUser = errors.New("invalid user id")
)

// Dataset is an uploaded table and, once cleaned, its working copy.
type Dataset struct {
	ID         string             `json:"id"`
	UserID     string             `json:"userId"`
	Name       string             `json:"name"`
	Filename   string             `json:"filename"`
	Uploaded   *dataset.Table     `json:"uploadedData"`
	Cleaned    *dataset.Table     `json:"cleanedData,omitempty"`
	Operations []string           `json:"operations,omitempty"`
	Statistics dataset.Statistics `json:"statistics"`
	CreatedAt  time.Time          `json:"createdAt"`
	UpdatedAt  time.Time          `json:"updatedAt"`
}

// Result is a stored training run.
type Result struct {
	ID             string               `json:"id"`
	UserID         string               `json:"userId"`
	DatasetID      string               `json:"datasetId,omitempty"`
	ModelName      string               `json:"modelName"`
	TargetColumn   string               `json:"targetColumn"`
	TaskType       automl.Task          `json:"taskType"`
	Results        *automl.ModelResults `json:"results"`
	TrainingConfig automl.TrainConfig   `json:"trainingConfig"`
	CreatedAt      time.Time            `json:"createdAt"`
}

// Store is the persistence boundary. Save methods assign an id and
// timestamps when missing.
type Store interface {
	SaveDataset(ctx context.Context, d *Dataset) error
	GetDataset(ctx context.Context, userID, id string) (*Dataset, error)
	// ListDatasets returns the user's datasets, most recently updated first.
	ListDatasets(ctx context.Context, userID string) ([]*Dataset, error)
	DeleteDataset(ctx context.Context, userID, id string) error
	SaveResult(ctx context.Context, r *Result) error
	// ListResults returns the user's results, newest first.
	ListResults(ctx context.Context, userID string) ([]*Result, error)
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	// Driver is fs, sqlite3 or postgres.
	Driver string
	// DSN is the database connection string for SQL drivers.
	DSN string
	// Dir is the root directory for the fs driver.
	Dir string
}

// Open returns the backend named by cfg.Driver.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Driver {
	case "", "fs":
		return NewFS(cfg.Dir, logger)
	case "sqlite3", "sqlite", "postgres":
		return NewSQL(ctx, cfg.Driver, cfg.DSN, logger)
	}
	return nil, fmt.Errorf("unknown store driver %q (use fs, sqlite3 or postgres)", cfg.Driver)
}

// prepareDataset fills id and timestamps and derives statistics from the
// most recent table.
func prepareDataset(d *Dataset, now time.Time, newID func() string) {
	if d.ID == "" {
		d.ID = newID()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	switch {
	case d.Cleaned != nil:
		d.Statistics = d.Cleaned.Statistics.Clone()
	case d.Uploaded != nil:
		d.Statistics = d.Uploaded.Statistics.Clone()
	}
	if d.Filename == "" && d.Uploaded != nil {
		d.Filename = d.Uploaded.Filename
	}
	if d.Name == "" {
		d.Name = d.Filename
	}
}

func prepareResult(r *Result, now time.Time, newID func() string) {
	if r.ID == "" {
		r.ID = newID()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	if r.Results != nil {
		if r.ModelName == "" {
			r.ModelName = r.Results.BestModel
		}
		if r.TargetColumn == "" {
			r.TargetColumn = r.Results.TargetColumn
		}
		if r.TaskType == "" {
			r.TaskType = r.Results.Task
		}
	}
}
