package app

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klabast/wb-services/agenda/internal/agenda"
	"github.com/klabast/wb-services/agenda/internal/calendar"
	"github.com/klabast/wb-services/agenda/internal/modal"
)

func (e *testEnv) newScreen(t *testing.T) ScreenState {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/screens", "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[ScreenState](t, w)
}

func TestCreateScreen(t *testing.T) {
	env := newTestEnv(t)
	st := env.newScreen(t)

	assert.NotEmpty(t, st.ID)
	assert.Equal(t, calendar.ViewDay, st.View)
	assert.Equal(t, "timeGridDay", st.ViewName)
	assert.Equal(t, "2025-03-29", st.Date)
	assert.Equal(t, "sabato 29 marzo 2025", st.DateLabel)
	assert.Equal(t, "day-view", st.ActiveButton)
	require.Len(t, st.Calendars, 8)
	assert.Equal(t, "Margaryta", st.Calendars[0].Worker.Name)
	assert.Len(t, st.Calendars[0].Events, 2)
	assert.Len(t, st.Calendars[1].Events, 1)
	assert.Equal(t, "08:00:00", st.Calendars[0].SlotMinTime)
	assert.False(t, st.Modal.Open)
	assert.Equal(t, 1, env.screens.Len())
}

func TestScreenNavigation(t *testing.T) {
	env := newTestEnv(t)
	id := env.newScreen(t).ID
	base := "/api/screens/" + id

	w := env.do(t, http.MethodPost, base+"/view", `{"view":"week"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	st := decode[ScreenState](t, w)
	assert.Equal(t, "timeGridWeek", st.ViewName)
	assert.Equal(t, "week-view", st.ActiveButton)
	for _, c := range st.Calendars {
		assert.Equal(t, "timeGridWeek", c.View)
	}

	w = env.do(t, http.MethodPost, base+"/navigate", `{"direction":"next"}`)
	require.Equal(t, http.StatusOK, w.Code)
	st = decode[ScreenState](t, w)
	assert.Equal(t, "2025-03-31", st.Date)
	assert.Equal(t, "lunedì 31 marzo 2025", st.DateLabel)
	for _, c := range st.Calendars {
		assert.Empty(t, c.Events, "no appointments in the following week")
	}

	w = env.do(t, http.MethodPost, base+"/today", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2025-03-29", decode[ScreenState](t, w).Date)

	w = env.do(t, http.MethodPost, base+"/view", `{"view":"year"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = env.do(t, http.MethodPost, base+"/navigate", `{"direction":"sideways"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScreenRefreshAndRebuild(t *testing.T) {
	env := newTestEnv(t)
	id := env.newScreen(t).ID
	base := "/api/screens/" + id

	_, err := env.store.Delete(context.Background(), "3")
	require.NoError(t, err)

	w := env.do(t, http.MethodPost, base+"/refresh", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[ScreenState](t, w).Calendars[1].Events)

	w = env.do(t, http.MethodPost, base+"/rebuild", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[ScreenState](t, w).Calendars, 8)

	env.medium.broken = true
	w = env.do(t, http.MethodPost, base+"/refresh", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestScreenScrollMirrors(t *testing.T) {
	env := newTestEnv(t)
	id := env.newScreen(t).ID

	w := env.do(t, http.MethodPost, "/api/screens/"+id+"/scroll", `{"worker":"2","scrollTop":240}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Mirrored bool        `json:"mirrored"`
		Screen   ScreenState `json:"screen"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Mirrored)
	assert.Equal(t, 240.0, resp.Screen.ScrollTop)
	for _, c := range resp.Screen.Calendars {
		assert.Equal(t, 240.0, c.ScrollTop, c.Worker.Name)
	}

	w = env.do(t, http.MethodPost, "/api/screens/"+id+"/scroll", `{"worker":"99","scrollTop":10}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestScreenBookingFlow(t *testing.T) {
	env := newTestEnv(t)
	id := env.newScreen(t).ID
	base := "/api/screens/" + id

	w := env.do(t, http.MethodPost, base+"/date-click", `{"worker":"3","start":"2025-03-29 12:00"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	form := decode[modal.State](t, w)
	assert.True(t, form.Open)
	assert.Equal(t, modal.ModeCreate, form.Mode)
	assert.False(t, form.ShowDelete)
	assert.Equal(t, "3", form.WorkerID)
	require.NotNil(t, form.End)
	assert.Equal(t, time.Date(2025, 3, 29, 13, 0, 0, 0, time.UTC), form.End.UTC())

	w = env.do(t, http.MethodPost, base+"/modal/save", "")
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, []string{modal.MsgClientRequired, modal.MsgServiceRequired, modal.MsgPositionRequired, modal.MsgInvalidPrice},
		decode[map[string][]string](t, w)["errors"])

	for _, f := range []string{
		`{"name":"client","value":"1"}`,
		`{"name":"service","value":"3"}`,
		`{"name":"position","value":"2"}`,
		`{"name":"price","value":"25"}`,
	} {
		w = env.do(t, http.MethodPost, base+"/modal/field", f)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	form = decode[modal.State](t, w)
	require.NotNil(t, form.End)
	assert.Equal(t, time.Date(2025, 3, 29, 12, 30, 0, 0, time.UTC), form.End.UTC(), "Ceretta lasts 30 minutes")

	w = env.do(t, http.MethodPost, base+"/modal/field", `{"name":"colour","value":"red"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, base+"/modal/save", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var saved struct {
		Appointment agenda.Appointment `json:"appointment"`
		Screen      ScreenState        `json:"screen"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &saved))
	assert.NotEmpty(t, saved.Appointment.ID)
	assert.False(t, saved.Screen.Modal.Open)
	require.Len(t, saved.Screen.Calendars[2].Events, 1)
	assert.Equal(t, "Sofia Bianchi - Ceretta", saved.Screen.Calendars[2].Events[0].Title)

	// Edit it again and delete it, declining first.
	w = env.do(t, http.MethodPost, base+"/event-click", `{"id":"`+saved.Appointment.ID+`"}`)
	require.Equal(t, http.StatusOK, w.Code)
	form = decode[modal.State](t, w)
	assert.Equal(t, modal.ModeEdit, form.Mode)
	assert.Equal(t, modal.TitleEdit, form.Title)
	assert.True(t, form.ShowDelete)
	assert.Equal(t, "25", form.Price)

	w = env.do(t, http.MethodPost, base+"/modal/delete", "")
	require.Equal(t, http.StatusOK, w.Code)
	declined := decode[map[string]any](t, w)
	assert.Equal(t, false, declined["deleted"])
	assert.Equal(t, modal.DeletePrompt, declined["prompt"])

	w = env.do(t, http.MethodPost, base+"/modal/delete", `{"confirmed":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	var deleted struct {
		Deleted bool        `json:"deleted"`
		Screen  ScreenState `json:"screen"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &deleted))
	assert.True(t, deleted.Deleted)
	assert.Empty(t, deleted.Screen.Calendars[2].Events)
	assert.False(t, deleted.Screen.Modal.Open)
}

func TestScreenModalOpenAndClose(t *testing.T) {
	env := newTestEnv(t)
	base := "/api/screens/" + env.newScreen(t).ID

	w := env.do(t, http.MethodPost, base+"/modal/open", `{"workerId":"1","positionId":"4","start":"2025-03-29T14:30:00Z","end":"2025-03-29T15:30:00Z"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Open      bool              `json:"open"`
		Conflicts []agenda.Conflict `json:"conflicts"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Open)
	require.Len(t, resp.Conflicts, 1, "worker 1 is busy 14:00-15:00")
	assert.Equal(t, "2", resp.Conflicts[0].Appointment.ID)

	w = env.do(t, http.MethodPost, base+"/modal/close", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[modal.State](t, w).Open)

	w = env.do(t, http.MethodPost, base+"/modal/field", `{"name":"client","value":"1"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	w = env.do(t, http.MethodPost, base+"/modal/delete", `{"confirmed":true}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestScreenEventClickUnknown(t *testing.T) {
	env := newTestEnv(t)
	base := "/api/screens/" + env.newScreen(t).ID

	w := env.do(t, http.MethodPost, base+"/event-click", `{"id":"missing"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = env.do(t, http.MethodPost, base+"/date-click", `{"worker":"42","start":"2025-03-29 12:00"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = env.do(t, http.MethodPost, base+"/date-click", `{"worker":"1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScreenLifecycle(t *testing.T) {
	env := newTestEnv(t)
	id := env.newScreen(t).ID

	w := env.do(t, http.MethodGet, "/api/screens/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, decode[ScreenState](t, w).ID)

	w = env.do(t, http.MethodDelete, "/api/screens/"+id, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = env.do(t, http.MethodGet, "/api/screens/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = env.do(t, http.MethodPost, "/api/screens/"+id+"/today", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestScreensAreIndependent(t *testing.T) {
	env := newTestEnv(t)
	a := env.newScreen(t).ID
	b := env.newScreen(t).ID

	w := env.do(t, http.MethodPost, "/api/screens/"+a+"/view", `{"view":"month"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/screens/"+b, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, calendar.ViewDay, decode[ScreenState](t, w).View)
}

func TestRegistryPrune(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	now := testNow
	env.screens.opts.Now = func() time.Time { return now }
	old, err := env.screens.Create(ctx)
	require.NoError(t, err)

	now = now.Add(20 * time.Minute)
	fresh, err := env.screens.Create(ctx)
	require.NoError(t, err)

	now = now.Add(15 * time.Minute)
	assert.Equal(t, 1, env.screens.Prune(30*time.Minute))
	_, ok := env.screens.Get(old.ID)
	assert.False(t, ok)
	_, ok = env.screens.Get(fresh.ID)
	assert.True(t, ok)

	// Using a screen keeps it alive.
	now = now.Add(25 * time.Minute)
	require.NoError(t, fresh.Do(func() error { return nil }))
	now = now.Add(10 * time.Minute)
	assert.Zero(t, env.screens.Prune(30*time.Minute))
}

func TestScreenAccessors(t *testing.T) {
	env := newTestEnv(t)
	sc, err := env.screens.Create(context.Background())
	require.NoError(t, err)

	require.NoError(t, sc.Do(func() error {
		assert.Len(t, sc.Coordinator().Widgets(), 8)
		assert.False(t, sc.Modal().IsOpen())
		assert.Zero(t, sc.Mirror().Position())
		return nil
	}))
}

func TestScreenHolidays(t *testing.T) {
	env := newTestEnv(t)
	st := env.newScreen(t)
	assert.Empty(t, st.Holidays)

	base := "/api/screens/" + st.ID
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, base+"/view", `{"view":"month"}`).Code)
	w := env.do(t, http.MethodPost, base+"/navigate", `{"direction":"next"}`)
	require.Equal(t, http.StatusOK, w.Code)
	st = decode[ScreenState](t, w)
	assert.Equal(t, "Festa della Liberazione", st.Holidays["2025-04-25"])
	assert.Equal(t, "Lunedì dell'Angelo", st.Holidays["2025-04-21"])
}
