package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/klabast/wb-services/agenda/internal/agenda"
)

func TestVisibleRange(t *testing.T) {
	sat := time.Date(2025, 3, 29, 15, 0, 0, 0, time.UTC)
	day := func(m time.Month, d int) time.Time { return time.Date(2025, m, d, 0, 0, 0, 0, time.UTC) }

	tests := []struct {
		view      View
		wantStart time.Time
		wantEnd   time.Time
	}{
		{ViewDay, day(3, 29), day(3, 30)},
		{ViewWeek, day(3, 24), day(3, 31)},
		{ViewList, day(3, 24), day(3, 31)},
		{ViewMonth, day(3, 1), day(4, 1)},
	}
	for _, tt := range tests {
		t.Run(string(tt.view), func(t *testing.T) {
			start, end := VisibleRange(tt.view, sat, time.Monday)
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantEnd, end)
		})
	}

	// A Sunday belongs to the week that started the Monday before.
	start, _ := VisibleRange(ViewWeek, day(3, 30), time.Monday)
	assert.Equal(t, day(3, 24), start)
}

func TestStepDate(t *testing.T) {
	jan31 := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), StepDate(ViewMonth, jan31, time.Monday, Next))
	assert.Equal(t, time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), StepDate(ViewMonth, jan31, time.Monday, Prev))
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), StepDate(ViewDay, jan31, time.Monday, Next))
	assert.Equal(t, time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC), StepDate(ViewWeek, jan31, time.Monday, Prev))
}

func TestGridVisibleEventsAndScrollReset(t *testing.T) {
	at := func(d, h int) time.Time { return time.Date(2025, 3, d, h, 0, 0, 0, time.UTC) }
	g := NewGrid(agenda.Worker{ID: "1", Name: "Margaryta"}, ViewDay, at(29, 0), DefaultGridOptions)
	g.SetEvents([]agenda.Event{
		{ID: "a", Start: at(29, 10), End: at(29, 11)},
		{ID: "b", Start: at(30, 10), End: at(30, 11)},
	})

	assert.Len(t, g.Events(), 2)
	visible := g.VisibleEvents()
	assert.Len(t, visible, 1)
	assert.Equal(t, "a", visible[0].ID)

	g.SetScrollTop(120)
	assert.Equal(t, 120.0, g.ScrollTop())
	g.ChangeView(ViewWeek)
	assert.Zero(t, g.ScrollTop(), "re-render resets the scroll position")
	assert.Len(t, g.VisibleEvents(), 2)

	g.SetScrollTop(-5)
	assert.Zero(t, g.ScrollTop())

	state := g.State()
	assert.Equal(t, "timeGridWeek", state.View)
	assert.Equal(t, "08:00:00", state.SlotMinTime)
	assert.Equal(t, "20:00:00", state.SlotMaxTime)
}

func TestParseView(t *testing.T) {
	for _, s := range []string{"day", "timeGridDay"} {
		v, err := ParseView(s)
		assert.NoError(t, err)
		assert.Equal(t, ViewDay, v)
	}
	v, err := ParseView("dayGridMonth")
	assert.NoError(t, err)
	assert.Equal(t, ViewMonth, v)
	assert.Equal(t, "listWeek", ViewList.LibraryName())

	_, err = ParseView("agenda")
	assert.ErrorIs(t, err, ErrUnknownView)

	_, err = ParseDirection("sideways")
	assert.ErrorIs(t, err, ErrUnknownDirection)
}

func TestFormatLongDate(t *testing.T) {
	assert.Equal(t, "sabato 29 marzo 2025", FormatLongDate(time.Date(2025, 3, 29, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "lunedì 1 dicembre 2025", FormatLongDate(time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)))
}
