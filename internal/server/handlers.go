package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/tabloom-cli/internal/automl"
	"github.com/KaramelBytes/tabloom-cli/internal/cleaning"
	"github.com/KaramelBytes/tabloom-cli/internal/dataset"
	"github.com/KaramelBytes/tabloom-cli/internal/parser"
	"github.com/KaramelBytes/tabloom-cli/internal/store"
	"github.com/KaramelBytes/tabloom-cli/internal/view"
	"github.com/KaramelBytes/tabloom-cli/internal/workspace"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type sessionResponse struct {
	ID        string `json:"id"`
	DatasetID string `json:"datasetId,omitempty"`
	workspace.Summary
}

type operationInfo struct {
	Name        cleaning.Operation `json:"name"`
	Description string             `json:"description"`
}

func (s *Server) userID(r *http.Request) string {
	if u := strings.TrimSpace(r.Header.Get("X-User-ID")); u != "" {
		return u
	}
	return s.opts.UserID
}

// session resolves the {sessionID} parameter, writing a 404 when absent.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session, bool) {
	sess, ok := s.sessions.get(s.userID(r), chi.URLParam(r, "sessionID"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return sess, true
}

func (s *Server) respondSession(w http.ResponseWriter, r *http.Request, status int, sess *session) {
	sum, err := sess.ws.Summary()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, status, sessionResponse{ID: sess.id, DatasetID: sess.dataset(), Summary: sum})
}

func (s *Server) handleListOperations(w http.ResponseWriter, r *http.Request) {
	out := make([]operationInfo, len(cleaning.Operations))
	for i, op := range cleaning.Operations {
		out[i] = operationInfo{Name: op, Description: op.Description()}
	}
	writeJSON(w, http.StatusOK, out)
}

// handleCreateSession parses a multipart upload into a new session.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > s.opts.MaxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "file too large")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.ParseTimeout)
	defer cancel()
	t, err := parser.Parse(ctx, file, header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	sess := s.sessions.create(s.userID(r))
	sess.ws.Load(t)
	s.logger.Info("session created",
		zap.String("session", sess.id),
		zap.String("filename", t.Filename),
		zap.Int("rows", t.Statistics.TotalRows))
	s.respondSession(w, r, http.StatusCreated, sess)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.respondSession(w, r, http.StatusOK, sess)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.remove(s.userID(r), chi.URLParam(r, "sessionID")) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// queryFromRequest reads view parameters from the URL query.
func (s *Server) queryFromRequest(r *http.Request) (view.Query, workspace.View, error) {
	qv := r.URL.Query()
	q := view.Query{
		Search:     qv.Get("search"),
		Column:     qv.Get("column"),
		DataType:   dataset.ColumnType(qv.Get("type")),
		SortColumn: qv.Get("sort"),
		PageSize:   s.opts.PageSize,
	}
	if q.DataType != "" && q.DataType != "all" && !q.DataType.Valid() {
		return q, "", fmt.Errorf("invalid type %q", q.DataType)
	}
	order, err := view.ParseSortOrder(qv.Get("order"))
	if err != nil {
		return q, "", err
	}
	q.SortOrder = order
	for name, dst := range map[string]*int{"page": &q.Page, "page_size": &q.PageSize} {
		if raw := qv.Get(name); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				return q, "", fmt.Errorf("invalid %s %q", name, raw)
			}
			*dst = n
		}
	}
	mode, err := workspace.ParseView(qv.Get("view"))
	return q, mode, err
}

func (s *Server) handleRows(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	q, mode, err := s.queryFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	t := sess.ws.Table(mode)
	if t == nil {
		s.fail(w, r, workspace.ErrNoTable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"columns":   t.Columns,
		"dataTypes": t.Statistics.DataTypes,
		"view":      mode,
		"page":      view.Apply(t, q),
	})
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var body struct {
		Operation string `json:"operation"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	op, err := cleaning.ParseOperation(body.Operation)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	changes, err := sess.ws.Apply(op)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sum, err := sess.ws.Summary()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"operation": op,
		"changes":   changes,
		"session":   sessionResponse{ID: sess.id, DatasetID: sess.dataset(), Summary: sum},
	})
}

func (s *Server) handleChanges(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"changes": sess.ws.Changes(),
		"history": sess.ws.History(),
	})
}

func (s *Server) handleRevert(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.ws.Revert(); err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondSession(w, r, http.StatusOK, sess)
}

// handleSave stores the session's original and cleaned tables as a dataset.
// Saving again updates the same dataset.
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var body struct {
		Name string `json:"name"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}
	d := &store.Dataset{
		ID:       sess.dataset(),
		UserID:   sess.userID,
		Name:     strings.TrimSpace(body.Name),
		Uploaded: sess.ws.Table(workspace.ViewOriginal),
	}
	if d.ID != "" {
		if prev, err := s.store.GetDataset(r.Context(), sess.userID, d.ID); err == nil {
			d.CreatedAt = prev.CreatedAt
			if d.Name == "" {
				d.Name = prev.Name
			}
		}
	}
	if history := sess.ws.History(); len(history) > 0 {
		d.Cleaned = sess.ws.Table(workspace.ViewCleaned)
		for _, op := range history {
			d.Operations = append(d.Operations, string(op))
		}
	}
	if err := s.store.SaveDataset(r.Context(), d); err != nil {
		s.fail(w, r, err)
		return
	}
	sess.setDataset(d.ID)
	writeJSON(w, http.StatusOK, datasetInfo(d))
}

func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var body struct {
		Target    string   `json:"target"`
		Task      string   `json:"task"`
		Features  []string `json:"features"`
		TestSplit float64  `json:"testSplit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	t := sess.ws.Table(workspace.ViewCleaned)
	if t == nil {
		s.fail(w, r, workspace.ErrNoTable)
		return
	}
	cfg := automl.TrainConfig{
		TargetColumn: body.Target,
		Task:         automl.Task(body.Task),
		Features:     body.Features,
		TestSplit:    body.TestSplit,
	}
	res, err := s.trainer.Train(r.Context(), t, cfg)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rec := &store.Result{
		UserID:         sess.userID,
		DatasetID:      sess.dataset(),
		Results:        res,
		TrainingConfig: cfg,
	}
	if err := s.store.SaveResult(r.Context(), rec); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"resultId": rec.ID,
		"results":  res,
		"insights": automl.Insights(res, t.Statistics),
	})
}

// handleExport downloads the selected table as CSV (default) or XLSX.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	mode, err := workspace.ParseView(r.URL.Query().Get("view"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	t := sess.ws.Table(mode)
	if t == nil {
		s.fail(w, r, workspace.ErrNoTable)
		return
	}
	base := strings.TrimSuffix(t.Filename, path.Ext(t.Filename))
	if base == "" {
		base = "data"
	}
	switch format := r.URL.Query().Get("format"); format {
	case "", "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", base+"_"+string(mode)+".csv"))
		err = dataset.WriteCSV(w, t)
	case "xlsx":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", base+"_"+string(mode)+".xlsx"))
		err = dataset.WriteXLSX(w, t)
	default:
		writeError(w, http.StatusBadRequest, "format must be csv or xlsx")
		return
	}
	if err != nil {
		s.logger.Error("export failed", zap.Error(err))
	}
}

type datasetSummary struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Filename   string             `json:"filename"`
	Operations []string           `json:"operations"`
	Statistics dataset.Statistics `json:"statistics"`
	CreatedAt  time.Time          `json:"createdAt"`
	UpdatedAt  time.Time          `json:"updatedAt"`
}

func datasetInfo(d *store.Dataset) datasetSummary {
	return datasetSummary{
		ID:         d.ID,
		Name:       d.Name,
		Filename:   d.Filename,
		Operations: d.Operations,
		Statistics: d.Statistics,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListDatasets(r.Context(), s.userID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]datasetSummary, len(list))
	for i, d := range list {
		out[i] = datasetInfo(d)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetDataset(w http.ResponseWriter, r *http.Request) {
	d, err := s.store.GetDataset(r.Context(), s.userID(r), chi.URLParam(r, "datasetID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleDeleteDataset(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteDataset(r.Context(), s.userID(r), chi.URLParam(r, "datasetID")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleOpenDataset starts a session from a stored dataset. The cleaned table
// becomes the new original when present; saving that session creates a new
// dataset so the stored upload is kept.
func (s *Server) handleOpenDataset(w http.ResponseWriter, r *http.Request) {
	user := s.userID(r)
	d, err := s.store.GetDataset(r.Context(), user, chi.URLParam(r, "datasetID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	t := d.Cleaned
	if t == nil {
		t = d.Uploaded
	}
	if t == nil {
		s.fail(w, r, errors.New("stored dataset has no table"))
		return
	}
	sess := s.sessions.create(user)
	sess.ws.Load(t)
	s.respondSession(w, r, http.StatusCreated, sess)
}

func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListResults(r.Context(), s.userID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
