// Package calendar keeps one calendar widget per worker on the same date and
// view, and tells interested parties after every re-render.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/klabast/wb-services/agenda/internal/agenda"
)

var (
	ErrUnknownView        = errors.New("unknown view")
	ErrUnknownDirection   = errors.New("unknown direction")
	ErrUnknownAppointment = errors.New("unknown appointment")
)

// Source is what the coordinator needs from the appointment store.
type Source interface {
	Workers(ctx context.Context) ([]agenda.Worker, error)
	EventsForWorker(ctx context.Context, workerID string) ([]agenda.Event, error)
}

// AppointmentSource is implemented by sources that can resolve a clicked
// event back to its appointment.
type AppointmentSource interface {
	Appointment(ctx context.Context, id string) (agenda.Appointment, bool, error)
}

// WidgetFactory builds the widget for worker, initially showing date in view.
type WidgetFactory func(worker agenda.Worker, view View, date time.Time) Widget

// RenderKind names the operation that re-rendered the widgets.
type RenderKind string

const (
	RenderRebuild    RenderKind = "rebuild"
	RenderViewChange RenderKind = "view-change"
	RenderNavigate   RenderKind = "navigate"
	RenderToday      RenderKind = "today"
	RenderRefresh    RenderKind = "refresh"
)

// RenderEvent is passed to hooks once an operation has finished rendering.
type RenderEvent struct {
	Kind    RenderKind
	View    View
	Date    time.Time
	Widgets []Widget
}

// RenderHook runs after every render-affecting operation.
type RenderHook func(RenderEvent)

// Options configures a Coordinator.
type Options struct {
	Location *time.Location
	// Now defaults to time.Now.
	Now    func() time.Time
	View   View
	Logger *slog.Logger
	// FirstDay is used to step the date when no widget exists.
	FirstDay time.Weekday
}

// Coordinator owns the current view and date of one calendar screen and
// fans every command out to all worker widgets. It is not safe for
// concurrent use; callers serialize access per screen.
type Coordinator struct {
	source   Source
	factory  WidgetFactory
	loc      *time.Location
	now      func() time.Time
	logger   *slog.Logger
	firstDay time.Weekday

	view    View
	date    time.Time
	widgets []Widget
	hooks   []RenderHook
}

// NewCoordinator creates the coordinator on today's date and builds one
// widget per worker.
func NewCoordinator(ctx context.Context, source Source, factory WidgetFactory, opts Options) (*Coordinator, error) {
	c := &Coordinator{
		source:   source,
		factory:  factory,
		loc:      opts.Location,
		now:      opts.Now,
		logger:   opts.Logger,
		firstDay: opts.FirstDay,
		view:     opts.View,
	}
	if c.loc == nil {
		c.loc = time.Local
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.view == "" {
		c.view = ViewDay
	}
	c.date = c.today()

	if err := c.build(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Coordinator) today() time.Time {
	return startOfDay(c.now().In(c.loc))
}

// OnRender registers hook to run after every render-affecting operation.
func (c *Coordinator) OnRender(hook RenderHook) {
	c.hooks = append(c.hooks, hook)
}

func (c *Coordinator) rendered(kind RenderKind) {
	ev := RenderEvent{Kind: kind, View: c.view, Date: c.date, Widgets: c.Widgets()}
	for _, hook := range c.hooks {
		hook(ev)
	}
}

// View returns the current view.
func (c *Coordinator) View() View { return c.view }

// Date returns the current date.
func (c *Coordinator) Date() time.Time { return c.date }

// DateLabel is the toolbar text for the current date.
func (c *Coordinator) DateLabel() string { return FormatLongDate(c.date) }

// ActiveButton is the ID of the highlighted view button.
func (c *Coordinator) ActiveButton() string { return c.view.ButtonID() }

// Widgets returns the current widgets in worker order.
func (c *Coordinator) Widgets() []Widget {
	return append([]Widget(nil), c.widgets...)
}

// Widget returns the widget of workerID.
func (c *Coordinator) Widget(workerID string) (Widget, bool) {
	for _, w := range c.widgets {
		if w.WorkerID() == workerID {
			return w, true
		}
	}
	return nil, false
}

// ChangeView re-renders every widget in v.
func (c *Coordinator) ChangeView(v View) error {
	switch v {
	case ViewDay, ViewWeek, ViewMonth, ViewList:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownView, v)
	}
	c.view = v
	for _, w := range c.widgets {
		w.ChangeView(v)
	}
	c.rendered(RenderViewChange)
	return nil
}

// Navigate steps every widget one unit of the current view. The first
// widget's resulting date becomes the shared date.
func (c *Coordinator) Navigate(dir Direction) error {
	if dir != Prev && dir != Next {
		return fmt.Errorf("%w: %q", ErrUnknownDirection, dir)
	}
	for _, w := range c.widgets {
		w.Step(dir)
	}
	if len(c.widgets) > 0 {
		c.date = c.widgets[0].Date()
	} else {
		c.date = StepDate(c.view, c.date, c.firstDay, dir)
	}
	c.rendered(RenderNavigate)
	return nil
}

// Today moves every widget back to the current day.
func (c *Coordinator) Today() {
	c.date = c.today()
	for _, w := range c.widgets {
		w.GotoDate(c.date)
	}
	c.rendered(RenderToday)
}

// Refresh reloads every widget's events from the source, replacing each
// event source wholesale.
func (c *Coordinator) Refresh(ctx context.Context) error {
	for _, w := range c.widgets {
		events, err := c.source.EventsForWorker(ctx, w.WorkerID())
		if err != nil {
			return fmt.Errorf("refresh worker %s: %w", w.WorkerID(), err)
		}
		w.SetEvents(events)
	}
	c.rendered(RenderRefresh)
	return nil
}

// Rebuild discards every widget and creates one per current worker.
func (c *Coordinator) Rebuild(ctx context.Context) error {
	return c.build(ctx)
}

func (c *Coordinator) build(ctx context.Context) error {
	workers, err := c.source.Workers(ctx)
	if err != nil {
		return fmt.Errorf("load workers: %w", err)
	}

	widgets := make([]Widget, 0, len(workers))
	for _, worker := range workers {
		events, err := c.source.EventsForWorker(ctx, worker.ID)
		if err != nil {
			return fmt.Errorf("load events for worker %s: %w", worker.ID, err)
		}
		w := c.factory(worker, c.view, c.date)
		w.SetEvents(events)
		widgets = append(widgets, w)
	}
	c.widgets = widgets
	c.logger.Debug("calendar widgets built", "workers", len(widgets), "view", c.view)
	c.rendered(RenderRebuild)
	return nil
}

// DateClick builds the draft appointment for a click on an empty slot of
// workerID's calendar: one hour starting at t.
func (c *Coordinator) DateClick(workerID string, t time.Time) agenda.Appointment {
	return agenda.Appointment{
		WorkerID: workerID,
		Start:    t,
		End:      t.Add(DefaultSlotLength),
	}
}

// EventClick resolves a click on event id into the stored appointment to
// edit.
func (c *Coordinator) EventClick(ctx context.Context, id string) (agenda.Appointment, error) {
	lookup, ok := c.source.(AppointmentSource)
	if !ok {
		return agenda.Appointment{}, fmt.Errorf("%w: %s", ErrUnknownAppointment, id)
	}
	appt, found, err := lookup.Appointment(ctx, id)
	if err != nil {
		return agenda.Appointment{}, fmt.Errorf("load appointment %s: %w", id, err)
	}
	if !found {
		return agenda.Appointment{}, fmt.Errorf("%w: %s", ErrUnknownAppointment, id)
	}
	return appt, nil
}

// DefaultSlotLength is the length of a draft created by clicking a slot.
const DefaultSlotLength = 60 * time.Minute
