package app

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/blake2b"

	"github.com/klabast/wb-services/agenda/internal/agenda"
)

// workerAgenda is everything an export needs about one worker.
type workerAgenda struct {
	Worker    agenda.Worker
	Events    []agenda.Event
	Positions map[string]string
}

// loadWorkerAgenda gathers the worker's events with the names they refer to.
// ok is false when the worker does not exist.
func (s *Server) loadWorkerAgenda(ctx context.Context, workerID string) (workerAgenda, bool, error) {
	workers, err := s.store.Workers(ctx)
	if err != nil {
		return workerAgenda{}, false, err
	}
	var wa workerAgenda
	found := false
	for _, w := range workers {
		if w.ID == workerID {
			wa.Worker, found = w, true
			break
		}
	}
	if !found {
		return workerAgenda{}, false, nil
	}

	if wa.Events, err = s.store.EventsForWorker(ctx, workerID); err != nil {
		return workerAgenda{}, false, err
	}
	positions, err := s.store.Positions(ctx)
	if err != nil {
		return workerAgenda{}, false, err
	}
	wa.Positions = make(map[string]string, len(positions))
	for _, p := range positions {
		wa.Positions[p.ID] = p.Name
	}
	return wa, true, nil
}

// filterEvents keeps the events starting in [from, to); a zero bound is open.
func filterEvents(events []agenda.Event, from, to time.Time) []agenda.Event {
	out := make([]agenda.Event, 0, len(events))
	for _, e := range events {
		if !from.IsZero() && e.Start.Before(from) {
			continue
		}
		if !to.IsZero() && !e.Start.Before(to) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// ETag hashes the events with BLAKE2b so an unchanged agenda yields the
// same tag.
func (wa workerAgenda) ETag() (string, error) {
	data, err := json.Marshal(struct {
		Worker agenda.Worker
		Events []agenda.Event
	}{wa.Worker, wa.Events})
	if err != nil {
		return "", err
	}
	sum := blake2b.Sum256(data)
	return `"` + hex.EncodeToString(sum[:16]) + `"`, nil
}

// icsOptions tweaks the generated calendar.
type icsOptions struct {
	// Subscription adds the publishing headers calendar apps poll with.
	Subscription bool
	// Reminder adds a display alarm this long before every appointment.
	Reminder time.Duration
	Location *time.Location
	Now      time.Time
}

// setExtension sets an X- property without a VALUE parameter. SetText
// would tag it VALUE=TEXT since extensions have no default type.
func setExtension(props ical.Props, name, value string) {
	prop := ical.NewProp(name)
	prop.Value = value
	props.Set(prop)
}

// BuildICS renders the worker's appointments as an iCalendar.
func (wa workerAgenda) BuildICS(opts icsOptions) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, ICSProductID)
	cal.Props.SetText(ical.PropCalendarScale, "GREGORIAN")
	setExtension(cal.Props, "X-WR-CALNAME", "Agenda "+wa.Worker.Name)
	if opts.Location != nil {
		setExtension(cal.Props, "X-WR-TIMEZONE", opts.Location.String())
	}
	if opts.Subscription {
		cal.Props.SetText(ical.PropMethod, "PUBLISH")
		setExtension(cal.Props, "X-PUBLISHED-TTL", ICSFeedTTL)
	}

	stamp := opts.Now.UTC()
	for _, e := range wa.Events {
		event := ical.NewEvent()
		event.Props.SetText(ical.PropUID, e.ID+"@agenda")
		event.Props.SetDateTime(ical.PropDateTimeStamp, stamp)
		event.Props.SetDateTime(ical.PropDateTimeStart, e.Start.UTC())
		event.Props.SetDateTime(ical.PropDateTimeEnd, e.End.UTC())
		event.Props.SetText(ical.PropSummary, e.Title)
		if desc := eventDescription(e); desc != "" {
			event.Props.SetText(ical.PropDescription, desc)
		}
		if name, ok := wa.Positions[e.ExtendedProps.PositionID]; ok {
			event.Props.SetText(ical.PropLocation, name)
		}
		event.Props.SetText(ical.PropStatus, "CONFIRMED")

		if opts.Reminder > 0 {
			alarm := ical.NewComponent(ical.CompAlarm)
			alarm.Props.SetText(ical.PropAction, "DISPLAY")
			alarm.Props.SetText(ical.PropDescription, "Promemoria: "+e.Title)
			alarm.Props.SetText(ical.PropTrigger, isoTrigger(opts.Reminder))
			event.Children = append(event.Children, alarm)
		}
		cal.Children = append(cal.Children, event.Component)
	}
	return cal
}

func eventDescription(e agenda.Event) string {
	var parts []string
	if e.ExtendedProps.Price > 0 {
		parts = append(parts, "Prezzo: "+formatPrice(e.ExtendedProps.Price))
	}
	if e.ExtendedProps.Notes != "" {
		parts = append(parts, e.ExtendedProps.Notes)
	}
	return strings.Join(parts, "\n")
}

// isoTrigger formats a reminder lead time as a negative ISO 8601 duration.
func isoTrigger(before time.Duration) string {
	minutes := int(before.Minutes())
	days := minutes / (24 * 60)
	hours := minutes % (24 * 60) / 60
	minutes %= 60
	return fmt.Sprintf("-P%dDT%dH%dM", days, hours, minutes)
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', 2, 64)
}

// workerFeed serves the worker's subscription calendar
// URL: /api/workers/{id}/calendar.ics
func (s *Server) workerFeed(w http.ResponseWriter, r *http.Request) {
	wa, ok, err := s.loadWorkerAgenda(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if !ok {
		writeError(w, s.logger, http.StatusNotFound, ErrWorkerNotFound)
		return
	}

	// Subscriptions carry last year onwards.
	now := s.now().In(s.location)
	from := time.Date(now.Year()-1, time.January, 1, 0, 0, 0, 0, s.location)
	wa.Events = filterEvents(wa.Events, from, time.Time{})

	etag, err := wa.ETag()
	if err != nil {
		s.logger.Error("hash feed", "err", err)
		writeError(w, s.logger, http.StatusInternalServerError, ErrInternalServer)
		return
	}
	w.Header().Set("ETag", etag)
	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	cal := wa.BuildICS(icsOptions{Subscription: true, Location: s.location, Now: now})
	s.writeICS(w, cal)
}

// workerExport handles downloads in ICS, CSV or JSON format
// URL: /api/workers/{id}/export?format=ics&from=2025-03-01&to=2025-04-01&reminder=30
func (s *Server) workerExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := s.parseDateParam(q.Get("from"))
	if err != nil {
		writeError(w, s.logger, http.StatusBadRequest, ErrInvalidDate)
		return
	}
	to, err := s.parseDateParam(q.Get("to"))
	if err != nil {
		writeError(w, s.logger, http.StatusBadRequest, ErrInvalidDate)
		return
	}
	format := q.Get("format")
	if format == "" {
		format = "ics"
	}
	if format != "ics" && format != "csv" && format != "json" {
		writeError(w, s.logger, http.StatusBadRequest, ErrInvalidFormat)
		return
	}

	wa, ok, err := s.loadWorkerAgenda(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if !ok {
		writeError(w, s.logger, http.StatusNotFound, ErrWorkerNotFound)
		return
	}
	wa.Events = filterEvents(wa.Events, from, to)

	filename := fmt.Sprintf("agenda_%s.%s", slug(wa.Worker.Name), format)
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)

	switch format {
	case "ics":
		var reminder time.Duration
		if v := q.Get("reminder"); v != "" {
			minutes, err := strconv.Atoi(v)
			if err != nil || minutes < 0 {
				w.Header().Del("Content-Disposition")
				writeError(w, s.logger, http.StatusBadRequest, ErrInvalidFormat)
				return
			}
			reminder = time.Duration(minutes) * time.Minute
		}
		cal := wa.BuildICS(icsOptions{Reminder: reminder, Location: s.location, Now: s.now()})
		s.writeICS(w, cal)
	case "csv":
		s.writeCSV(w, wa)
	case "json":
		writeJSON(w, s.logger, http.StatusOK, map[string]any{
			"worker":       wa.Worker,
			"appointments": wa.Events,
		})
	}
}

func (s *Server) parseDateParam(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation(time.DateOnly, v, s.location)
}

func (s *Server) writeICS(w http.ResponseWriter, cal *ical.Calendar) {
	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		s.logger.Error("encode calendar", "err", err)
		w.Header().Del("Content-Disposition")
		writeError(w, s.logger, http.StatusInternalServerError, ErrFailedToGenerateICS)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	if _, err := w.Write(buf.Bytes()); err != nil {
		s.logger.Error("write calendar", "err", err)
	}
}

// writeCSV writes one row per appointment, times in the service location.
func (s *Server) writeCSV(w http.ResponseWriter, wa workerAgenda) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	cw := csv.NewWriter(w)
	rows := [][]string{{"Data", "Inizio", "Fine", "Appuntamento", "Postazione", "Prezzo", "Note"}}
	for _, e := range wa.Events {
		start, end := e.Start.In(s.location), e.End.In(s.location)
		rows = append(rows, []string{
			start.Format(time.DateOnly),
			start.Format("15:04"),
			end.Format("15:04"),
			e.Title,
			wa.Positions[e.ExtendedProps.PositionID],
			formatPrice(e.ExtendedProps.Price),
			e.ExtendedProps.Notes,
		})
	}
	if err := cw.WriteAll(rows); err != nil {
		s.logger.Error("write csv export", "err", err)
	}
}

// slug lowercases name and keeps only letters and digits.
func slug(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else if b.Len() > 0 && !strings.HasSuffix(b.String(), "_") {
			b.WriteByte('_')
		}
	}
	out := strings.TrimSuffix(b.String(), "_")
	if out == "" {
		return "worker"
	}
	return out
}

// etagMatches reports whether an If-None-Match header names etag. Weak
// tags compare equal to their strong form.
func etagMatches(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == "*" || candidate == etag {
			return true
		}
	}
	return false
}
