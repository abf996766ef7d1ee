package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/KaramelBytes/tabloom-cli/internal/automl"
	"github.com/KaramelBytes/tabloom-cli/internal/utils"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS datasets (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		filename TEXT NOT NULL,
		uploaded_data TEXT NOT NULL,
		cleaned_data TEXT,
		operations TEXT NOT NULL,
		statistics TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_datasets_user ON datasets (user_id, updated_at)`,
	`CREATE TABLE IF NOT EXISTS model_results (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		dataset_id TEXT,
		model_name TEXT NOT NULL,
		target_column TEXT NOT NULL,
		task_type TEXT NOT NULL,
		results TEXT NOT NULL,
		training_config TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_results_user ON model_results (user_id, created_at)`,
}

// datasetRow is the column layout of the datasets table. Tables and lists
// are stored as JSON text.
type datasetRow struct {
	ID         string         `db:"id"`
	UserID     string         `db:"user_id"`
	Name       string         `db:"name"`
	Filename   string         `db:"filename"`
	Uploaded   string         `db:"uploaded_data"`
	Cleaned    sql.NullString `db:"cleaned_data"`
	Operations string         `db:"operations"`
	Statistics string         `db:"statistics"`
	CreatedAt  time.Time      `db:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at"`
}

type resultRow struct {
	ID             string         `db:"id"`
	UserID         string         `db:"user_id"`
	DatasetID      sql.NullString `db:"dataset_id"`
	ModelName      string         `db:"model_name"`
	TargetColumn   string         `db:"target_column"`
	TaskType       string         `db:"task_type"`
	Results        string         `db:"results"`
	TrainingConfig string         `db:"training_config"`
	CreatedAt      time.Time      `db:"created_at"`
}

// SQLStore persists records in sqlite3 or postgres.
type SQLStore struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewSQL connects, and creates the schema when it does not exist.
func NewSQL(ctx context.Context, driver, dsn string, logger *zap.Logger) (*SQLStore, error) {
	if driver == "sqlite" {
		driver = "sqlite3"
	}
	if dsn == "" {
		return nil, fmt.Errorf("%s store: dsn not set", driver)
	}
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}
	if driver == "sqlite3" {
		// A single connection keeps :memory: databases shared and avoids
		// writer contention.
		db.SetMaxOpenConns(1)
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("sql store ready", zap.String("driver", driver))
	return &SQLStore{db: db, logger: logger}, nil
}

func (s *SQLStore) Close() error { return s.db.Close() }

func marshalText(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}
	return string(b), nil
}

func (s *SQLStore) SaveDataset(ctx context.Context, d *Dataset) error {
	if !utils.SafeName(d.UserID) {
		return fmt.Errorf("%w: %q", ErrInvalidUser, d.UserID)
	}
	prepareDataset(d, time.Now().UTC(), uuid.NewString)
	row := datasetRow{
		ID:        d.ID,
		UserID:    d.UserID,
		Name:      d.Name,
		Filename:  d.Filename,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	var err error
	if row.Uploaded, err = marshalText(d.Uploaded); err != nil {
		return err
	}
	if d.Cleaned != nil {
		txt, err := marshalText(d.Cleaned)
		if err != nil {
			return err
		}
		row.Cleaned = sql.NullString{String: txt, Valid: true}
	}
	if row.Operations, err = marshalText(d.Operations); err != nil {
		return err
	}
	if row.Statistics, err = marshalText(d.Statistics); err != nil {
		return err
	}

	query := `INSERT INTO datasets (
		id, user_id, name, filename, uploaded_data, cleaned_data, operations, statistics, created_at, updated_at
	) VALUES (
		:id, :user_id, :name, :filename, :uploaded_data, :cleaned_data, :operations, :statistics, :created_at, :updated_at
	) ON CONFLICT (id) DO UPDATE SET
		name = excluded.name,
		filename = excluded.filename,
		uploaded_data = excluded.uploaded_data,
		cleaned_data = excluded.cleaned_data,
		operations = excluded.operations,
		statistics = excluded.statistics,
		updated_at = excluded.updated_at`
	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("failed to save dataset: %w", err)
	}
	s.logger.Debug("dataset saved", zap.String("user", d.UserID), zap.String("id", d.ID))
	return nil
}

func (s *SQLStore) GetDataset(ctx context.Context, userID, id string) (*Dataset, error) {
	var row datasetRow
	query := s.db.Rebind(`SELECT * FROM datasets WHERE user_id = ? AND id = ?`)
	if err := s.db.GetContext(ctx, &row, query, userID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("dataset %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get dataset: %w", err)
	}
	return row.decode()
}

func (s *SQLStore) ListDatasets(ctx context.Context, userID string) ([]*Dataset, error) {
	var rows []datasetRow
	query := s.db.Rebind(`SELECT * FROM datasets WHERE user_id = ? ORDER BY updated_at DESC`)
	if err := s.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("failed to query datasets: %w", err)
	}
	out := make([]*Dataset, 0, len(rows))
	for _, r := range rows {
		d, err := r.decode()
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *SQLStore) DeleteDataset(ctx context.Context, userID, id string) error {
	query := s.db.Rebind(`DELETE FROM datasets WHERE user_id = ? AND id = ?`)
	res, err := s.db.ExecContext(ctx, query, userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete dataset: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("dataset %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *SQLStore) SaveResult(ctx context.Context, r *Result) error {
	if !utils.SafeName(r.UserID) {
		return fmt.Errorf("%w: %q", ErrInvalidUser, r.UserID)
	}
	prepareResult(r, time.Now().UTC(), uuid.NewString)
	row := resultRow{
		ID:           r.ID,
		UserID:       r.UserID,
		DatasetID:    sql.NullString{String: r.DatasetID, Valid: r.DatasetID != ""},
		ModelName:    r.ModelName,
		TargetColumn: r.TargetColumn,
		TaskType:     string(r.TaskType),
		CreatedAt:    r.CreatedAt,
	}
	var err error
	if row.Results, err = marshalText(r.Results); err != nil {
		return err
	}
	if row.TrainingConfig, err = marshalText(r.TrainingConfig); err != nil {
		return err
	}
	query := `INSERT INTO model_results (
		id, user_id, dataset_id, model_name, target_column, task_type, results, training_config, created_at
	) VALUES (
		:id, :user_id, :dataset_id, :model_name, :target_column, :task_type, :results, :training_config, :created_at
	)`
	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}
	return nil
}

func (s *SQLStore) ListResults(ctx context.Context, userID string) ([]*Result, error) {
	var rows []resultRow
	query := s.db.Rebind(`SELECT * FROM model_results WHERE user_id = ? ORDER BY created_at DESC`)
	if err := s.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	out := make([]*Result, 0, len(rows))
	for _, row := range rows {
		r := &Result{
			ID:           row.ID,
			UserID:       row.UserID,
			DatasetID:    row.DatasetID.String,
			ModelName:    row.ModelName,
			TargetColumn: row.TargetColumn,
			TaskType:     automl.Task(row.TaskType),
			CreatedAt:    row.CreatedAt,
		}
		if err := json.Unmarshal([]byte(row.Results), &r.Results); err != nil {
			return nil, fmt.Errorf("failed to unmarshal results: %w", err)
		}
		if err := json.Unmarshal([]byte(row.TrainingConfig), &r.TrainingConfig); err != nil {
			return nil, fmt.Errorf("failed to unmarshal training config: %w", err)
		}
		out = append(out, r)
	}
	return out, nil
}

func (r datasetRow) decode() (*Dataset, error) {
	d := &Dataset{
		ID:        r.ID,
		UserID:    r.UserID,
		Name:      r.Name,
		Filename:  r.Filename,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if err := json.Unmarshal([]byte(r.Uploaded), &d.Uploaded); err != nil {
		return nil, fmt.Errorf("failed to unmarshal uploaded data: %w", err)
	}
	if r.Cleaned.Valid {
		if err := json.Unmarshal([]byte(r.Cleaned.String), &d.Cleaned); err != nil {
			return nil, fmt.Errorf("failed to unmarshal cleaned data: %w", err)
		}
	}
	if err := json.Unmarshal([]byte(r.Operations), &d.Operations); err != nil {
		return nil, fmt.Errorf("failed to unmarshal operations: %w", err)
	}
	if err := json.Unmarshal([]byte(r.Statistics), &d.Statistics); err != nil {
		return nil, fmt.Errorf("failed to unmarshal statistics: %w", err)
	}
	return d, nil
}
