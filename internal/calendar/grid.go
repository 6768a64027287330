package calendar

import (
	"time"

	"github.com/klabast/wb-services/agenda/internal/agenda"
)

// Widget is one worker's calendar instance as the coordinator drives it.
type Widget interface {
	WorkerID() string
	// ChangeView re-renders the widget in v.
	ChangeView(v View)
	// Step moves the widget one unit of its current view.
	Step(dir Direction)
	GotoDate(t time.Time)
	// Date is the widget's current date.
	Date() time.Time
	// SetEvents replaces the whole event source.
	SetEvents(events []agenda.Event)
}

// GridOptions configures a Grid. Zero values pick the salon defaults.
type GridOptions struct {
	FirstDay time.Weekday
	// SlotMin and SlotMax bound the visible hours of the time-grid views,
	// as offsets from midnight.
	SlotMin time.Duration
	SlotMax time.Duration
}

// DefaultGridOptions shows 08:00-20:00 with weeks starting on Monday.
var DefaultGridOptions = GridOptions{
	FirstDay: time.Monday,
	SlotMin:  8 * time.Hour,
	SlotMax:  20 * time.Hour,
}

// Grid is the server-side model of a worker's calendar widget: its view,
// date, event source and scroll position. Any re-render resets the scroll
// position to the top.
type Grid struct {
	worker    agenda.Worker
	view      View
	date      time.Time
	opts      GridOptions
	events    []agenda.Event
	scrollTop float64
	renders   int
}

// NewGrid creates a Grid for worker showing date in view.
func NewGrid(worker agenda.Worker, view View, date time.Time, opts GridOptions) *Grid {
	if opts.SlotMax <= opts.SlotMin {
		opts.SlotMin, opts.SlotMax = DefaultGridOptions.SlotMin, DefaultGridOptions.SlotMax
	}
	return &Grid{worker: worker, view: view, date: date, opts: opts, renders: 1}
}

// GridFactory returns a WidgetFactory producing Grids with opts.
func GridFactory(opts GridOptions) WidgetFactory {
	return func(worker agenda.Worker, view View, date time.Time) Widget {
		return NewGrid(worker, view, date, opts)
	}
}

func (g *Grid) WorkerID() string { return g.worker.ID }

func (g *Grid) Worker() agenda.Worker { return g.worker }

func (g *Grid) View() View { return g.view }

func (g *Grid) Date() time.Time { return g.date }

func (g *Grid) ChangeView(v View) {
	g.view = v
	g.render()
}

func (g *Grid) Step(dir Direction) {
	g.date = StepDate(g.view, g.date, g.opts.FirstDay, dir)
	g.render()
}

func (g *Grid) GotoDate(t time.Time) {
	g.date = t
	g.render()
}

func (g *Grid) SetEvents(events []agenda.Event) {
	g.events = append([]agenda.Event(nil), events...)
	g.render()
}

func (g *Grid) render() {
	g.scrollTop = 0
	g.renders++
}

// Renders counts how many times the grid has been (re)drawn.
func (g *Grid) Renders() int { return g.renders }

// Events returns the whole event source.
func (g *Grid) Events() []agenda.Event {
	return append([]agenda.Event(nil), g.events...)
}

// VisibleRange is the half-open date range currently on screen.
func (g *Grid) VisibleRange() (time.Time, time.Time) {
	return VisibleRange(g.view, g.date, g.opts.FirstDay)
}

// VisibleEvents returns the events intersecting the visible range.
func (g *Grid) VisibleEvents() []agenda.Event {
	start, end := g.VisibleRange()
	out := []agenda.Event{}
	for _, e := range g.events {
		if agenda.Overlaps(e.Start, e.End, start, end) {
			out = append(out, e)
		}
	}
	return out
}

// SurfaceID identifies the grid's scroll surface.
func (g *Grid) SurfaceID() string { return g.worker.ID }

func (g *Grid) ScrollTop() float64 { return g.scrollTop }

func (g *Grid) SetScrollTop(top float64) {
	if top < 0 {
		top = 0
	}
	g.scrollTop = top
}

// GridState is the JSON snapshot of a Grid.
type GridState struct {
	Worker      agenda.Worker  `json:"worker"`
	View        string         `json:"view"`
	Date        time.Time      `json:"date"`
	RangeStart  time.Time      `json:"rangeStart"`
	RangeEnd    time.Time      `json:"rangeEnd"`
	SlotMinTime string         `json:"slotMinTime"`
	SlotMaxTime string         `json:"slotMaxTime"`
	ScrollTop   float64        `json:"scrollTop"`
	Events      []agenda.Event `json:"events"`
}

// State snapshots the grid for the page.
func (g *Grid) State() GridState {
	start, end := g.VisibleRange()
	return GridState{
		Worker:      g.worker,
		View:        g.view.LibraryName(),
		Date:        g.date,
		RangeStart:  start,
		RangeEnd:    end,
		SlotMinTime: formatClock(g.opts.SlotMin),
		SlotMaxTime: formatClock(g.opts.SlotMax),
		ScrollTop:   g.scrollTop,
		Events:      g.VisibleEvents(),
	}
}

func formatClock(d time.Duration) string {
	return time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC).Add(d).Format("15:04:05")
}
