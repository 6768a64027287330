package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/klabast/wb-services/agenda/internal/agenda"
	"github.com/klabast/wb-services/agenda/internal/calendar"
	"github.com/klabast/wb-services/agenda/internal/modal"
	"github.com/klabast/wb-services/agenda/internal/scroll"
)

// ScreenOptions is what every new screen is built with.
type ScreenOptions struct {
	Location *time.Location
	View     calendar.View
	Grid     calendar.GridOptions
	// Now defaults to time.Now.
	Now    func() time.Time
	Logger *slog.Logger
}

// Screen is one open agenda page: its calendars, appointment form and
// scroll mirror. All access goes through Do, which serializes operations
// the way a single UI thread would.
type Screen struct {
	ID string

	mu          sync.Mutex
	coordinator *calendar.Coordinator
	modal       *modal.Controller
	mirror      *scroll.Mirror
	now         func() time.Time
	lastUsed    time.Time
}

func newScreen(ctx context.Context, id string, store *agenda.Store, opts ScreenOptions) (*Screen, error) {
	mirror := scroll.NewMirror(scroll.Options{})
	form := modal.NewController(store, modal.Options{
		Confirmer: modal.ConfirmFunc(confirmationFromContext),
		Location:  opts.Location,
		Logger:    opts.Logger,
	})
	coord, err := calendar.NewCoordinator(ctx, store, calendar.GridFactory(opts.Grid), calendar.Options{
		Location: opts.Location,
		Now:      opts.Now,
		View:     opts.View,
		Logger:   opts.Logger,
		FirstDay: opts.Grid.FirstDay,
	})
	if err != nil {
		return nil, err
	}
	coord.OnRender(mirror.Hook())
	mirror.Attach(scroll.Surfaces(coord.Widgets()))
	form.SetRefresher(coord)

	return &Screen{
		ID:          id,
		coordinator: coord,
		modal:       form,
		mirror:      mirror,
		now:         opts.Now,
		lastUsed:    opts.Now(),
	}, nil
}

// Do runs fn with exclusive access to the screen.
func (s *Screen) Do(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = s.now()
	return fn()
}

// Coordinator, Modal and Mirror are only used inside Do.
func (s *Screen) Coordinator() *calendar.Coordinator { return s.coordinator }

func (s *Screen) Modal() *modal.Controller { return s.modal }

func (s *Screen) Mirror() *scroll.Mirror { return s.mirror }

func (s *Screen) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// ScreenState is the JSON view of a screen.
type ScreenState struct {
	ID           string               `json:"id"`
	View         calendar.View        `json:"view"`
	ViewName     string               `json:"viewName"`
	Date         string               `json:"date"`
	DateLabel    string               `json:"dateLabel"`
	ActiveButton string               `json:"activeButton"`
	ScrollTop    float64              `json:"scrollTop"`
	Calendars    []calendar.GridState `json:"calendars"`
	Holidays     map[string]string    `json:"holidays"`
	Modal        modal.State          `json:"modal"`
}

// state snapshots the screen. Callers hold it through Do.
func (s *Screen) state() ScreenState {
	c := s.coordinator
	st := ScreenState{
		ID:           s.ID,
		View:         c.View(),
		ViewName:     c.View().LibraryName(),
		Date:         c.Date().Format(time.DateOnly),
		DateLabel:    c.DateLabel(),
		ActiveButton: c.ActiveButton(),
		ScrollTop:    s.mirror.Position(),
		Calendars:    []calendar.GridState{},
		Holidays:     map[string]string{},
		Modal:        s.modal.State(),
	}
	for _, w := range c.Widgets() {
		if g, ok := w.(*calendar.Grid); ok {
			st.Calendars = append(st.Calendars, g.State())
		}
	}
	if len(st.Calendars) > 0 {
		first := st.Calendars[0]
		st.Holidays = calendar.HolidaysBetween(first.RangeStart, first.RangeEnd)
	}
	return st
}

func (s *Screen) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mirror.Close()
	s.modal.Close()
}

// Registry holds the open screens.
type Registry struct {
	store *agenda.Store
	opts  ScreenOptions

	mu      sync.Mutex
	screens map[string]*Screen
}

// NewRegistry returns an empty registry whose screens read from store.
func NewRegistry(store *agenda.Store, opts ScreenOptions) *Registry {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Registry{store: store, opts: opts, screens: make(map[string]*Screen)}
}

// Create builds a new screen on today's date.
func (r *Registry) Create(ctx context.Context) (*Screen, error) {
	id := uuid.NewString()
	s, err := newScreen(ctx, id, r.store, r.opts)
	if err != nil {
		return nil, fmt.Errorf("create screen: %w", err)
	}
	r.mu.Lock()
	r.screens[id] = s
	r.mu.Unlock()
	r.opts.Logger.Debug("screen created", "screen", id)
	return s, nil
}

// Get returns the screen with id.
func (r *Registry) Get(id string) (*Screen, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.screens[id]
	return s, ok
}

// Remove disposes of the screen with id.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	s, ok := r.screens[id]
	delete(r.screens, id)
	r.mu.Unlock()
	if ok {
		s.close()
	}
	return ok
}

// Len is the number of open screens.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.screens)
}

// Prune disposes of screens unused for longer than idle.
func (r *Registry) Prune(idle time.Duration) int {
	cutoff := r.opts.Now().Add(-idle)
	r.mu.Lock()
	var stale []*Screen
	for id, s := range r.screens {
		if s.idleSince().Before(cutoff) {
			stale = append(stale, s)
			delete(r.screens, id)
		}
	}
	r.mu.Unlock()

	for _, s := range stale {
		s.close()
		r.opts.Logger.Debug("screen expired", "screen", s.ID)
	}
	return len(stale)
}

// RunJanitor prunes idle screens every interval until ctx is done.
func (r *Registry) RunJanitor(ctx context.Context, idle, interval time.Duration) {
	if idle <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := r.Prune(idle); n > 0 {
				r.opts.Logger.Info("expired idle screens", "count", n)
			}
		}
	}
}

type confirmationKey struct{}

// withConfirmation records the user's answer to a confirmation prompt.
func withConfirmation(ctx context.Context, confirmed bool) context.Context {
	return context.WithValue(ctx, confirmationKey{}, confirmed)
}

func confirmationFromContext(ctx context.Context, _ string) (bool, error) {
	ok, _ := ctx.Value(confirmationKey{}).(bool)
	return ok, nil
}
