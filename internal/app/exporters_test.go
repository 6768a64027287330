package app

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klabast/wb-services/agenda/internal/agenda"
)

func TestWorkerFeed(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/workers/1/calendar.ics", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "text/calendar")
	assert.Empty(t, w.Header().Get("Content-Disposition"), "subscriptions are served inline")
	etag := w.Header().Get("ETag")
	assert.NotEmpty(t, etag)

	body := w.Body.String()
	for _, want := range []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:" + ICSProductID,
		"METHOD:PUBLISH",
		"X-PUBLISHED-TTL:PT1H",
		"X-WR-CALNAME:Agenda Margaryta",
		"UID:1@agenda",
		"DTSTART:20250329T100000Z",
		"DTEND:20250329T110000Z",
		"SUMMARY:Sofia Bianchi - Manicure",
		"LOCATION:Postazione 1",
		"END:VCALENDAR",
	} {
		assert.Contains(t, body, want)
	}
	assert.Equal(t, 2, strings.Count(body, "BEGIN:VEVENT"))
	assert.NotContains(t, body, "BEGIN:VALARM")
	assert.Contains(t, body, "X-WR-TIMEZONE:UTC")
	assert.NotContains(t, body, "X-PUBLISHED-TTL;")
	assert.NotContains(t, body, "X-WR-CALNAME;")
}

func TestWorkerFeedETag(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/workers/1/calendar.ics", "")
	require.Equal(t, http.StatusOK, w.Code)
	etag := w.Header().Get("ETag")

	req := httptest.NewRequest(http.MethodGet, "/api/workers/1/calendar.ics", nil)
	req.Header.Set("If-None-Match", etag)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/workers/1/calendar.ics", nil)
	req.Header.Set("If-None-Match", `"stale", W/`+etag)
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotModified, rec.Code, "weak tag in a list")

	// Any change to the worker's appointments produces a new tag.
	_, err := env.store.Delete(t.Context(), "2")
	require.NoError(t, err)
	w = env.do(t, http.MethodGet, "/api/workers/1/calendar.ics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEqual(t, etag, w.Header().Get("ETag"))
}

func TestWorkerExport(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name        string
		query       string
		status      int
		contentType string
		contains    []string
	}{
		{
			name:        "ics with reminder",
			query:       "format=ics&reminder=30",
			status:      http.StatusOK,
			contentType: "text/calendar",
			contains:    []string{"BEGIN:VALARM", "ACTION:DISPLAY", "-P0DT0H30M", "DESCRIPTION:Prezzo: 30.00"},
		},
		{
			name:        "csv",
			query:       "format=csv",
			status:      http.StatusOK,
			contentType: "text/csv",
			contains: []string{
				"Data,Inizio,Fine,Appuntamento,Postazione,Prezzo,Note\n",
				"2025-03-29,10:00,11:00,Sofia Bianchi - Manicure,Postazione 1,30.00,\n",
				"2025-03-29,14:00,15:00,Giulia Rossi - Pedicure,Postazione 1,35.00,\n",
			},
		},
		{
			name:        "json",
			query:       "format=json",
			status:      http.StatusOK,
			contentType: "application/json",
			contains:    []string{`"worker":{"id":"1","name":"Margaryta"}`, `"title":"Sofia Bianchi - Manicure"`},
		},
		{name: "bad format", query: "format=pdf", status: http.StatusBadRequest},
		{name: "bad date", query: "format=csv&from=29/03/2025", status: http.StatusBadRequest},
		{name: "bad reminder", query: "format=ics&reminder=soon", status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodGet, "/api/workers/1/export?"+tt.query, "")
			require.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.contentType != "" {
				assert.Contains(t, w.Header().Get("Content-Type"), tt.contentType)
				assert.Contains(t, w.Header().Get("Content-Disposition"), "agenda_margaryta.")
			}
			for _, want := range tt.contains {
				assert.Contains(t, w.Body.String(), want)
			}
		})
	}
}

func TestWorkerExportRangeFilters(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/api/workers/1/export?format=csv&from=2025-03-30", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Data,Inizio,Fine,Appuntamento,Postazione,Prezzo,Note\n", w.Body.String())
}

func TestExportUnknownWorker(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/api/workers/42/export?format=csv", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = env.do(t, http.MethodGet, "/api/workers/42/calendar.ics", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFilterEvents(t *testing.T) {
	at := func(day int) time.Time { return time.Date(2025, 3, day, 10, 0, 0, 0, time.UTC) }
	events := []agenda.Event{{ID: "a", Start: at(1)}, {ID: "b", Start: at(10)}, {ID: "c", Start: at(20)}}

	got := filterEvents(events, at(10), at(20))
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)
	assert.Len(t, filterEvents(events, time.Time{}, time.Time{}), 3)
}

func TestIsoTrigger(t *testing.T) {
	assert.Equal(t, "-P0DT0H15M", isoTrigger(15*time.Minute))
	assert.Equal(t, "-P1DT2H0M", isoTrigger(26*time.Hour))
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "margaryta", slug("Margaryta"))
	assert.Equal(t, "anna_maria", slug("Anna  Maria"))
	assert.Equal(t, "worker", slug("***"))
}

func TestEtagMatches(t *testing.T) {
	const etag = `"abc"`
	tests := []struct {
		header string
		want   bool
	}{
		{`"abc"`, true},
		{`W/"abc"`, true},
		{`"x", "abc"`, true},
		{`"x",W/"abc"`, true},
		{`*`, true},
		{`"abd"`, false},
		{``, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, etagMatches(tt.header, etag), "header %q", tt.header)
	}
}
