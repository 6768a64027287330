package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/klabast/wb-services/agenda/internal/agenda"
	"github.com/klabast/wb-services/agenda/internal/modal"
)

// listCollection returns one persisted collection
// URL: /api/collections/{collection}
func (s *Server) listCollection(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.List(r.Context(), agenda.Collection(chi.URLParam(r, "collection")))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, records)
}

// workerEvents returns the calendar events of one worker
// URL: /api/workers/{id}/events
func (s *Server) workerEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.store.EventsForWorker(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, events)
}

func (s *Server) listAppointments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var (
		appts []agenda.Appointment
		err   error
	)
	if worker := r.URL.Query().Get("worker"); worker != "" {
		appts, err = s.store.AppointmentsForWorker(ctx, worker)
	} else {
		appts, err = s.store.Appointments(ctx)
	}
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, appts)
}

func (s *Server) getAppointment(w http.ResponseWriter, r *http.Request) {
	appt, ok, err := s.store.Appointment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if !ok {
		writeError(w, s.logger, http.StatusNotFound, ErrAppointmentNotFound)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, appt)
}

// createAppointment stores a new appointment, or replaces the stored one
// whose id the body carries
func (s *Server) createAppointment(w http.ResponseWriter, r *http.Request) {
	var appt agenda.Appointment
	if err := decodeJSON(r, &appt); err != nil {
		writeError(w, s.logger, http.StatusBadRequest, ErrInvalidRequestBody)
		return
	}
	s.saveAppointment(w, r, appt)
}

func (s *Server) updateAppointment(w http.ResponseWriter, r *http.Request) {
	var appt agenda.Appointment
	if err := decodeJSON(r, &appt); err != nil {
		writeError(w, s.logger, http.StatusBadRequest, ErrInvalidRequestBody)
		return
	}
	appt.ID = chi.URLParam(r, "id")
	_, ok, err := s.store.Appointment(r.Context(), appt.ID)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if !ok {
		writeError(w, s.logger, http.StatusNotFound, ErrAppointmentNotFound)
		return
	}
	s.saveAppointment(w, r, appt)
}

// saveAppointment runs the record through the same checks as the form and
// reports overlapping bookings alongside the stored record. A record stored
// under a new ID answers 201.
func (s *Server) saveAppointment(w http.ResponseWriter, r *http.Request, appt agenda.Appointment) {
	ctx := r.Context()
	form := modal.NewController(s.store, modal.Options{Location: s.location, Logger: s.logger})
	form.Open(appt)
	warnings, err := form.Warnings(ctx)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	saved, err := form.Save(ctx)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	status := http.StatusOK
	if saved.ID != appt.ID {
		status = http.StatusCreated
	}
	writeJSON(w, s.logger, status, map[string]any{
		"appointment": saved,
		"conflicts":   conflictsOrEmpty(warnings),
	})
}

func (s *Server) deleteAppointment(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.store.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if !deleted {
		writeError(w, s.logger, http.StatusNotFound, ErrAppointmentNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func conflictsOrEmpty(c []agenda.Conflict) []agenda.Conflict {
	if c == nil {
		return []agenda.Conflict{}
	}
	return c
}
