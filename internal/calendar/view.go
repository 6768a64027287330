package calendar

import (
	"fmt"
	"strings"
	"time"
)

// View is the granularity every worker calendar shows.
type View string

const (
	ViewDay   View = "day"
	ViewWeek  View = "week"
	ViewMonth View = "month"
	ViewList  View = "list"
)

// Views lists the supported views in toolbar order.
var Views = []View{ViewDay, ViewWeek, ViewMonth, ViewList}

// ParseView accepts both the short names and the calendar library's view
// names (timeGridDay, timeGridWeek, dayGridMonth, listWeek).
func ParseView(s string) (View, error) {
	switch strings.TrimSpace(s) {
	case "day", "timeGridDay":
		return ViewDay, nil
	case "week", "timeGridWeek":
		return ViewWeek, nil
	case "month", "dayGridMonth":
		return ViewMonth, nil
	case "list", "listWeek":
		return ViewList, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownView, s)
}

// LibraryName is the view name understood by the browser calendar widget.
func (v View) LibraryName() string {
	switch v {
	case ViewWeek:
		return "timeGridWeek"
	case ViewMonth:
		return "dayGridMonth"
	case ViewList:
		return "listWeek"
	default:
		return "timeGridDay"
	}
}

// ButtonID is the toolbar button highlighted while v is active.
func (v View) ButtonID() string { return string(v) + "-view" }

// Direction is a navigation step.
type Direction string

const (
	Prev Direction = "prev"
	Next Direction = "next"
)

// ParseDirection validates a navigation direction.
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.TrimSpace(s)) {
	case Prev:
		return Prev, nil
	case Next:
		return Next, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDirection, s)
}

func (d Direction) sign() int {
	if d == Prev {
		return -1
	}
	return 1
}

// startOfDay truncates t to local midnight in t's location.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// VisibleRange returns the half-open range [start, end) a widget in view v
// shows around date. Weeks start on firstDay.
func VisibleRange(v View, date time.Time, firstDay time.Weekday) (time.Time, time.Time) {
	day := startOfDay(date)
	switch v {
	case ViewWeek, ViewList:
		offset := (int(day.Weekday()) - int(firstDay) + 7) % 7
		start := day.AddDate(0, 0, -offset)
		return start, start.AddDate(0, 0, 7)
	case ViewMonth:
		start := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
		return start, start.AddDate(0, 1, 0)
	default:
		return day, day.AddDate(0, 0, 1)
	}
}

// StepDate moves date one unit of v in direction dir. Like the browser
// widget, the result is the start of the neighbouring range, so stepping
// from 31 January in month view lands on 1 February.
func StepDate(v View, date time.Time, firstDay time.Weekday, dir Direction) time.Time {
	start, _ := VisibleRange(v, date, firstDay)
	switch v {
	case ViewWeek, ViewList:
		return start.AddDate(0, 0, 7*dir.sign())
	case ViewMonth:
		return start.AddDate(0, dir.sign(), 0)
	default:
		return start.AddDate(0, 0, dir.sign())
	}
}
