package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/KaramelBytes/tabloom-cli/internal/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FSStore keeps one JSON document per record under
// <dir>/<user>/{datasets,results}/<id>.json.
type FSStore struct {
	mu     sync.RWMutex
	dir    string
	logger *zap.Logger
}

// NewFS returns a filesystem store rooted at dir, creating it if needed.
func NewFS(dir string, logger *zap.Logger) (*FSStore, error) {
	if dir == "" {
		return nil, errors.New("fs store: data directory not set")
	}
	dir = utils.ExpandHome(dir)
	if err := utils.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("ensure data dir: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FSStore{dir: dir, logger: logger}, nil
}

func (s *FSStore) Close() error { return nil }

func (s *FSStore) path(userID, kind, id string) (string, error) {
	if !utils.SafeName(userID) {
		return "", fmt.Errorf("%w: %q", ErrInvalidUser, userID)
	}
	if id != "" && !utils.SafeName(id) {
		return "", fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	p := filepath.Join(s.dir, userID, kind)
	if id != "" {
		p = filepath.Join(p, id+".json")
	}
	return p, nil
}

func (s *FSStore) write(userID, kind, id string, v any) error {
	p, err := s.path(userID, kind, id)
	if err != nil {
		return err
	}
	if err := utils.EnsureDir(filepath.Dir(p)); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	data, err := utils.PrettyJSON(v)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(p, data)
}

func (s *FSStore) read(userID, kind, id string, v any) error {
	p, err := s.path(userID, kind, id)
	if err != nil {
		return err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s %s: %w", strings.TrimSuffix(kind, "s"), id, ErrNotFound)
		}
		return fmt.Errorf("read %s: %w", p, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("parse %s: %w", p, err)
	}
	return nil
}

// ids lists record ids of a kind for a user; a missing directory is empty.
func (s *FSStore) ids(userID, kind string) ([]string, error) {
	dir, err := s.path(userID, kind, "")
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		out = append(out, strings.TrimSuffix(e.Name(), ".json"))
	}
	return out, nil
}

func (s *FSStore) SaveDataset(ctx context.Context, d *Dataset) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prepareDataset(d, time.Now().UTC(), uuid.NewString)
	if err := s.write(d.UserID, "datasets", d.ID, d); err != nil {
		return fmt.Errorf("save dataset: %w", err)
	}
	s.logger.Debug("dataset saved", zap.String("user", d.UserID), zap.String("id", d.ID))
	return nil
}

func (s *FSStore) GetDataset(ctx context.Context, userID, id string) (*Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var d Dataset
	if err := s.read(userID, "datasets", id, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *FSStore) ListDatasets(ctx context.Context, userID string) ([]*Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids, err := s.ids(userID, "datasets")
	if err != nil {
		return nil, err
	}
	out := make([]*Dataset, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var d Dataset
		if err := s.read(userID, "datasets", id, &d); err != nil {
			s.logger.Warn("skipping unreadable dataset", zap.String("id", id), zap.Error(err))
			continue
		}
		out = append(out, &d)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (s *FSStore) DeleteDataset(ctx context.Context, userID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.path(userID, "datasets", id)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("dataset %s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("delete dataset: %w", err)
	}
	s.logger.Debug("dataset deleted", zap.String("user", userID), zap.String("id", id))
	return nil
}

func (s *FSStore) SaveResult(ctx context.Context, r *Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prepareResult(r, time.Now().UTC(), uuid.NewString)
	if err := s.write(r.UserID, "results", r.ID, r); err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}

func (s *FSStore) ListResults(ctx context.Context, userID string) ([]*Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids, err := s.ids(userID, "results")
	if err != nil {
		return nil, err
	}
	out := make([]*Result, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var r Result
		if err := s.read(userID, "results", id, &r); err != nil {
			s.logger.Warn("skipping unreadable result", zap.String("id", id), zap.Error(err))
			continue
		}
		out = append(out, &r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
