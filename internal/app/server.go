package app

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/klabast/wb-services/agenda/internal/agenda"
	"github.com/klabast/wb-services/agenda/internal/calendar"
)

// Server serves the agenda page and its JSON API.
type Server struct {
	store    *agenda.Store
	screens  *Registry
	logger   *slog.Logger
	static   fs.FS
	location *time.Location
	now      func() time.Time
}

// ServerOptions configures a Server.
type ServerOptions struct {
	Store   *agenda.Store
	Screens *Registry
	Logger  *slog.Logger
	// Static holds index.html and the page assets.
	Static   fs.FS
	Location *time.Location
	Now      func() time.Time
}

// NewServer wires the handlers to their dependencies.
func NewServer(opts ServerOptions) *Server {
	s := &Server{
		store:    opts.Store,
		screens:  opts.Screens,
		logger:   opts.Logger,
		static:   opts.Static,
		location: opts.Location,
		now:      opts.Now,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.location == nil {
		s.location = time.Local
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Get("/", s.serveIndex)
	if s.static != nil {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(s.static))))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/config", s.getConfig)
		r.Get("/collections/{collection}", s.listCollection)

		r.Route("/workers/{id}", func(r chi.Router) {
			r.Get("/events", s.workerEvents)
			r.Get("/calendar.ics", s.workerFeed)
			r.Get("/export", s.workerExport)
		})

		r.Route("/appointments", func(r chi.Router) {
			r.Get("/", s.listAppointments)
			r.Post("/", s.createAppointment)
			r.Get("/{id}", s.getAppointment)
			r.Put("/{id}", s.updateAppointment)
			r.Delete("/{id}", s.deleteAppointment)
		})

		r.Post("/screens", s.createScreen)
		r.Route("/screens/{id}", func(r chi.Router) {
			r.Get("/", s.onScreen(s.getScreen))
			r.Delete("/", s.deleteScreen)
			r.Post("/view", s.onScreen(s.screenView))
			r.Post("/navigate", s.onScreen(s.screenNavigate))
			r.Post("/today", s.onScreen(s.screenToday))
			r.Post("/refresh", s.onScreen(s.screenRefresh))
			r.Post("/rebuild", s.onScreen(s.screenRebuild))
			r.Post("/scroll", s.onScreen(s.screenScroll))
			r.Post("/date-click", s.onScreen(s.screenDateClick))
			r.Post("/event-click", s.onScreen(s.screenEventClick))
			r.Get("/modal", s.onScreen(s.getModal))
			r.Post("/modal/open", s.onScreen(s.modalOpen))
			r.Post("/modal/field", s.onScreen(s.modalField))
			r.Post("/modal/save", s.onScreen(s.modalSave))
			r.Post("/modal/delete", s.onScreen(s.modalDelete))
			r.Post("/modal/close", s.onScreen(s.modalClose))
		})
	})
	return r
}

// Handler is Routes wrapped in OpenTelemetry instrumentation.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.Routes(), ServiceName)
}

// accessLog writes one slog record per request.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("storage: " + err.Error()))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// serveIndex serves the agenda page
func (s *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	if s.static == nil {
		http.NotFound(w, r)
		return
	}
	page, err := fs.ReadFile(s.static, "index.html")
	if err != nil {
		s.logger.Error("read index page", "err", err)
		http.Error(w, ErrInternalServer, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(page); err != nil {
		s.logger.Error("write index page", "err", err)
	}
}

// getConfig returns the reference data the page needs to build its forms
// and toolbar.
func (s *Server) getConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workers, err := s.store.Workers(ctx)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	clients, err := s.store.Clients(ctx)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	services, err := s.store.Services(ctx)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	positions, err := s.store.Positions(ctx)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	views := make([]map[string]string, 0, len(calendar.Views))
	for _, v := range calendar.Views {
		views = append(views, map[string]string{"id": string(v), "name": v.LibraryName(), "button": v.ButtonID()})
	}
	writeJSON(w, s.logger, http.StatusOK, map[string]any{
		"workers":   workers,
		"clients":   clients,
		"services":  services,
		"positions": positions,
		"views":     views,
		"timezone":  s.location.String(),
		"today":     s.now().In(s.location).Format(time.DateOnly),
	})
}
