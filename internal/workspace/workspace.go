// Package workspace holds the state a user session keeps around a table: the
// original upload, the working copy, the change log and the operation
// history. The cleaning engine itself stays stateless.
package workspace

import (
	"errors"
	"fmt"
	"sync"

	"github.com/KaramelBytes/tabloom-cli/internal/cleaning"
	"github.com/KaramelBytes/tabloom-cli/internal/dataset"
	"go.uber.org/zap"
)

// View selects which table a caller wants to look at.
type View string

const (
	ViewOriginal View = "original"
	ViewCleaned  View = "cleaned"
)

// ParseView accepts "original" or "cleaned"; empty means cleaned.
func ParseView(s string) (View, error) {
	switch View(s) {
	case "", ViewCleaned:
		return ViewCleaned, nil
	case ViewOriginal:
		return ViewOriginal, nil
	}
	return "", fmt.Errorf("invalid view %q (use original or cleaned)", s)
}

// ErrNoTable is returned when an operation needs a loaded table.
var ErrNoTable = errors.New("no table loaded")

// Workspace is safe for concurrent use; operations on it are serialised.
type Workspace struct {
	mu       sync.Mutex
	logger   *zap.Logger
	original *dataset.Table
	working  *dataset.Table
	changes  []cleaning.ChangeRecord
	history  []cleaning.Operation
}

// New returns an empty workspace. A nil logger disables logging.
func New(logger *zap.Logger) *Workspace {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Workspace{logger: logger}
}

// Load replaces the current table and clears the change log and history.
// Loading nil empties the workspace.
func (w *Workspace) Load(t *dataset.Table) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t == nil {
		w.original, w.working = nil, nil
		w.changes, w.history = nil, nil
		w.logger.Debug("workspace cleared")
		return
	}
	w.original = t.Clone()
	w.working = t.Clone()
	w.changes = nil
	w.history = nil
	w.logger.Debug("table loaded",
		zap.String("filename", t.Filename),
		zap.Int("rows", t.Statistics.TotalRows),
		zap.Int("columns", t.Statistics.TotalColumns))
}

// Apply runs op on the working table. On error the workspace is unchanged.
func (w *Workspace) Apply(op cleaning.Operation) ([]cleaning.ChangeRecord, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.working == nil {
		return nil, ErrNoTable
	}
	res, err := cleaning.Apply(w.working, op)
	if err != nil {
		return nil, err
	}
	w.working = res.Table
	w.changes = append(w.changes, res.Changes...)
	w.history = append(w.history, op)
	w.logger.Info("cleaning operation applied",
		zap.String("operation", string(op)),
		zap.Int("changes", len(res.Changes)),
		zap.Int("rows", res.Table.Statistics.TotalRows),
		zap.Int("missing", res.Table.Statistics.MissingValues))
	return append([]cleaning.ChangeRecord(nil), res.Changes...), nil
}

// Revert restores the original table and clears the log and history.
func (w *Workspace) Revert() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.original == nil {
		return ErrNoTable
	}
	w.working = w.original.Clone()
	w.changes = nil
	w.history = nil
	w.logger.Info("reverted to original", zap.String("filename", w.original.Filename))
	return nil
}

// Table returns a copy of the requested table, or nil when nothing is loaded.
func (w *Workspace) Table(v View) *dataset.Table {
	w.mu.Lock()
	defer w.mu.Unlock()
	if v == ViewOriginal {
		return w.original.Clone()
	}
	return w.working.Clone()
}

// Changes returns the change log in application order.
func (w *Workspace) Changes() []cleaning.ChangeRecord {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]cleaning.ChangeRecord(nil), w.changes...)
}

// History returns the applied operations in order.
func (w *Workspace) History() []cleaning.Operation {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]cleaning.Operation(nil), w.history...)
}

// Summary is a compact, serialisable view of the workspace.
type Summary struct {
	Filename    string               `json:"filename"`
	Columns     []string             `json:"columns"`
	Original    dataset.Statistics   `json:"original"`
	Working     dataset.Statistics   `json:"working"`
	History     []cleaning.Operation `json:"history"`
	ChangeCount int                  `json:"changeCount"`
}

// Summary describes the current state. It returns ErrNoTable when empty.
func (w *Workspace) Summary() (Summary, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.working == nil {
		return Summary{}, ErrNoTable
	}
	return Summary{
		Filename:    w.working.Filename,
		Columns:     append([]string(nil), w.working.Columns...),
		Original:    w.original.Statistics.Clone(),
		Working:     w.working.Statistics.Clone(),
		History:     append([]cleaning.Operation(nil), w.history...),
		ChangeCount: len(w.changes),
	}, nil
}
