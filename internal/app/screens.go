package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/klabast/wb-services/agenda/internal/agenda"
	"github.com/klabast/wb-services/agenda/internal/calendar"
	"github.com/klabast/wb-services/agenda/internal/modal"
)

// screenOp is an operation on one locked screen. It returns the response
// body.
type screenOp func(r *http.Request, sc *Screen) (any, error)

// onScreen resolves {id}, runs op under the screen lock and writes its
// result.
func (s *Server) onScreen(op screenOp) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc, ok := s.screens.Get(chi.URLParam(r, "id"))
		if !ok {
			writeError(w, s.logger, http.StatusNotFound, ErrScreenNotFound)
			return
		}
		var body any
		err := sc.Do(func() error {
			var err error
			body, err = op(r, sc)
			return err
		})
		if err != nil {
			s.writeFailure(w, r, err)
			return
		}
		writeJSON(w, s.logger, http.StatusOK, body)
	}
}

// createScreen opens a new agenda page on today's date
func (s *Server) createScreen(w http.ResponseWriter, r *http.Request) {
	sc, err := s.screens.Create(r.Context())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	var st ScreenState
	_ = sc.Do(func() error {
		st = sc.state()
		return nil
	})
	writeJSON(w, s.logger, http.StatusCreated, st)
}

func (s *Server) deleteScreen(w http.ResponseWriter, r *http.Request) {
	if !s.screens.Remove(chi.URLParam(r, "id")) {
		writeError(w, s.logger, http.StatusNotFound, ErrScreenNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getScreen(_ *http.Request, sc *Screen) (any, error) {
	return sc.state(), nil
}

func (s *Server) screenView(r *http.Request, sc *Screen) (any, error) {
	var req struct {
		View string `json:"view"`
	}
	if err := decodeJSON(r, &req); err != nil {
		return nil, badRequest(err)
	}
	v, err := calendar.ParseView(req.View)
	if err != nil {
		return nil, err
	}
	if err := sc.coordinator.ChangeView(v); err != nil {
		return nil, err
	}
	return sc.state(), nil
}

func (s *Server) screenNavigate(r *http.Request, sc *Screen) (any, error) {
	var req struct {
		Direction string `json:"direction"`
	}
	if err := decodeJSON(r, &req); err != nil {
		return nil, badRequest(err)
	}
	dir, err := calendar.ParseDirection(req.Direction)
	if err != nil {
		return nil, err
	}
	if err := sc.coordinator.Navigate(dir); err != nil {
		return nil, err
	}
	return sc.state(), nil
}

func (s *Server) screenToday(_ *http.Request, sc *Screen) (any, error) {
	sc.coordinator.Today()
	return sc.state(), nil
}

func (s *Server) screenRefresh(r *http.Request, sc *Screen) (any, error) {
	if err := sc.coordinator.Refresh(r.Context()); err != nil {
		return nil, err
	}
	return sc.state(), nil
}

func (s *Server) screenRebuild(r *http.Request, sc *Screen) (any, error) {
	if err := sc.coordinator.Rebuild(r.Context()); err != nil {
		return nil, err
	}
	return sc.state(), nil
}

// screenScroll records that the user scrolled one worker's calendar and
// mirrors the position onto the others
func (s *Server) screenScroll(r *http.Request, sc *Screen) (any, error) {
	var req struct {
		Worker    string  `json:"worker"`
		ScrollTop float64 `json:"scrollTop"`
	}
	if err := decodeJSON(r, &req); err != nil {
		return nil, badRequest(err)
	}
	surface, ok := sc.mirror.Surface(req.Worker)
	if !ok {
		return nil, notFound(ErrWorkerNotFound)
	}
	surface.SetScrollTop(req.ScrollTop)
	mirrored := sc.mirror.HandleScroll(surface)
	return map[string]any{"mirrored": mirrored, "screen": sc.state()}, nil
}

// screenDateClick opens the form for a new appointment in the clicked slot
func (s *Server) screenDateClick(r *http.Request, sc *Screen) (any, error) {
	var req struct {
		Worker string `json:"worker"`
		Start  string `json:"start"`
	}
	if err := decodeJSON(r, &req); err != nil {
		return nil, badRequest(err)
	}
	if _, ok := sc.coordinator.Widget(req.Worker); !ok {
		return nil, notFound(ErrWorkerNotFound)
	}
	start, err := modal.ParseTime(req.Start, s.location)
	if err != nil {
		return nil, err
	}
	if start.IsZero() {
		return nil, badRequest(errMissingStart)
	}
	sc.modal.Open(sc.coordinator.DateClick(req.Worker, start))
	return sc.modal.State(), nil
}

// screenEventClick opens the form on the clicked appointment
func (s *Server) screenEventClick(r *http.Request, sc *Screen) (any, error) {
	var req struct {
		ID string `json:"id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		return nil, badRequest(err)
	}
	appt, err := sc.coordinator.EventClick(r.Context(), req.ID)
	if err != nil {
		return nil, err
	}
	sc.modal.Open(appt)
	return sc.modal.State(), nil
}

// modalResponse is the form state plus informational overlaps.
type modalResponse struct {
	modal.State
	Conflicts []agenda.Conflict `json:"conflicts"`
}

func formResponse(r *http.Request, m *modal.Controller) (any, error) {
	conflicts, err := m.Warnings(r.Context())
	if err != nil {
		return nil, err
	}
	return modalResponse{State: m.State(), Conflicts: conflictsOrEmpty(conflicts)}, nil
}

func (s *Server) getModal(r *http.Request, sc *Screen) (any, error) {
	return formResponse(r, sc.modal)
}

func (s *Server) modalOpen(r *http.Request, sc *Screen) (any, error) {
	var appt agenda.Appointment
	if err := decodeJSON(r, &appt); err != nil {
		return nil, badRequest(err)
	}
	sc.modal.Open(appt)
	return formResponse(r, sc.modal)
}

func (s *Server) modalField(r *http.Request, sc *Screen) (any, error) {
	var req struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	}
	if err := decodeJSON(r, &req); err != nil {
		return nil, badRequest(err)
	}
	if !sc.modal.IsOpen() {
		return nil, modal.ErrNotOpen
	}
	if err := sc.modal.SetField(r.Context(), req.Name, req.Value); err != nil {
		return nil, err
	}
	return formResponse(r, sc.modal)
}

// modalSave saves the form; on success the form closes and every calendar
// of the screen is refreshed
func (s *Server) modalSave(r *http.Request, sc *Screen) (any, error) {
	conflicts, err := sc.modal.Warnings(r.Context())
	if err != nil {
		return nil, err
	}
	saved, err := sc.modal.Save(r.Context())
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"appointment": saved,
		"conflicts":   conflictsOrEmpty(conflicts),
		"screen":      sc.state(),
	}, nil
}

// modalDelete deletes the appointment being edited. The body carries the
// user's answer to the confirmation prompt; without it nothing is deleted.
func (s *Server) modalDelete(r *http.Request, sc *Screen) (any, error) {
	var req struct {
		Confirmed bool `json:"confirmed"`
	}
	if err := decodeJSON(r, &req); err != nil {
		return nil, badRequest(err)
	}
	deleted, err := sc.modal.Delete(withConfirmation(r.Context(), req.Confirmed))
	if err != nil {
		return nil, err
	}
	resp := map[string]any{"deleted": deleted, "screen": sc.state()}
	if !req.Confirmed {
		resp["prompt"] = modal.DeletePrompt
	}
	return resp, nil
}

func (s *Server) modalClose(_ *http.Request, sc *Screen) (any, error) {
	sc.modal.Close()
	return sc.modal.State(), nil
}
