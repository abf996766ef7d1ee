package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/KaramelBytes/tabloom-cli/internal/automl"
	"github.com/KaramelBytes/tabloom-cli/internal/cleaning"
	"github.com/KaramelBytes/tabloom-cli/internal/parser"
	"github.com/KaramelBytes/tabloom-cli/internal/store"
	"github.com/KaramelBytes/tabloom-cli/internal/workspace"
	"go.uber.org/zap"
)

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, parser.ErrUnsupportedFormat),
		errors.Is(err, cleaning.ErrUnknownOperation),
		errors.Is(err, automl.ErrInvalidTask),
		errors.Is(err, automl.ErrUnknownTarget),
		errors.Is(err, automl.ErrInvalidFeature),
		errors.Is(err, store.ErrInvalidUser):
		return http.StatusBadRequest
	case errors.Is(err, parser.ErrMalformedInput),
		errors.Is(err, automl.ErrNotEnoughData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, workspace.ErrNoTable):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	s.logger.Warn("request failed",
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.Error(err))
	writeError(w, status, msg)
}
