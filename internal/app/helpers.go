package app

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/klabast/wb-services/agenda/internal/agenda"
	"github.com/klabast/wb-services/agenda/internal/calendar"
	"github.com/klabast/wb-services/agenda/internal/modal"
)

// writeJSON encodes v with status and logs encoding failures.
func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encode response", "err", err)
	}
}

// writeError answers with {"error": msg}.
func writeError(w http.ResponseWriter, logger *slog.Logger, status int, msg string) {
	writeJSON(w, logger, status, map[string]string{"error": msg})
}

// decodeJSON reads the request body into v. An empty body leaves v as is.
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

var errMissingStart = errors.New("start is required")

// httpError carries a status decided by the handler itself.
type httpError struct {
	status int
	msg    string
	err    error
}

func (e *httpError) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *httpError) Unwrap() error { return e.err }

func badRequest(err error) error {
	return &httpError{status: http.StatusBadRequest, msg: ErrInvalidRequestBody, err: err}
}

func notFound(msg string) error {
	return &httpError{status: http.StatusNotFound, msg: msg}
}

// writeFailure maps a domain error to its status. Validation failures are
// expected and answered with 422; storage failures are logged and become
// 503.
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	var (
		herr *httpError
		verr *modal.ValidationError
	)
	switch {
	case errors.As(err, &herr):
		writeError(w, s.logger, herr.status, herr.msg)
	case errors.As(err, &verr):
		writeJSON(w, s.logger, http.StatusUnprocessableEntity, map[string][]string{"errors": verr.Reasons})
	case agenda.IsStorageFailure(err):
		s.logger.Error("storage failure", "err", err, "path", r.URL.Path)
		writeError(w, s.logger, http.StatusServiceUnavailable, ErrStorageUnavailable)
	case errors.Is(err, agenda.ErrUnknownCollection):
		writeError(w, s.logger, http.StatusNotFound, ErrUnknownCollection)
	case errors.Is(err, calendar.ErrUnknownAppointment):
		writeError(w, s.logger, http.StatusNotFound, ErrAppointmentNotFound)
	case errors.Is(err, calendar.ErrUnknownView),
		errors.Is(err, calendar.ErrUnknownDirection),
		errors.Is(err, modal.ErrUnknownField),
		errors.Is(err, modal.ErrInvalidValue):
		writeError(w, s.logger, http.StatusBadRequest, err.Error())
	case errors.Is(err, modal.ErrNotOpen), errors.Is(err, modal.ErrNotEditing):
		writeError(w, s.logger, http.StatusConflict, err.Error())
	default:
		s.logger.Error("request failed", "err", err, "path", r.URL.Path)
		writeError(w, s.logger, http.StatusInternalServerError, ErrInternalServer)
	}
}
