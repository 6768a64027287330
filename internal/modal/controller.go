// Package modal implements the appointment form: opening it for a new or
// stored appointment, keeping the end time in step with the service,
// validating, and saving or deleting through the store.
package modal

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/klabast/wb-services/agenda/internal/agenda"
)

// Mode tells whether the form creates a new appointment or edits one.
type Mode string

const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
)

// Store is the part of the appointment store the form uses.
type Store interface {
	Service(ctx context.Context, id string) (agenda.Service, bool, error)
	Save(ctx context.Context, a agenda.Appointment) (agenda.Appointment, error)
	Delete(ctx context.Context, id string) (bool, error)
	Overlapping(ctx context.Context, candidate agenda.Appointment) ([]agenda.Conflict, error)
}

// Refresher reloads the calendars after a change.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

// AlwaysConfirm accepts every question.
var AlwaysConfirm = ConfirmFunc(func(context.Context, string) (bool, error) { return true, nil })

// Form holds the field values as the user entered them. A zero Start or
// End means the field is empty. Price stays raw text until saved.
type Form struct {
	ClientID   string
	ServiceID  string
	WorkerID   string
	PositionID string
	Start      time.Time
	End        time.Time
	Price      string
	Notes      string
}

// Options configures a Controller.
type Options struct {
	Refresher Refresher
	// Confirmer defaults to AlwaysConfirm.
	Confirmer Confirmer
	// Location is used to parse field values without a zone.
	Location *time.Location
	Logger   *slog.Logger
}

// Controller is the single appointment form of a screen. It is not safe for
// concurrent use.
type Controller struct {
	store     Store
	refresher Refresher
	confirmer Confirmer
	loc       *time.Location
	logger    *slog.Logger

	open bool
	mode Mode
	id   string
	form Form
}

// NewController returns a closed form backed by store.
func NewController(store Store, opts Options) *Controller {
	c := &Controller{
		store:     store,
		refresher: opts.Refresher,
		confirmer: opts.Confirmer,
		loc:       opts.Location,
		logger:    opts.Logger,
	}
	if c.confirmer == nil {
		c.confirmer = AlwaysConfirm
	}
	if c.loc == nil {
		c.loc = time.Local
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// SetRefresher replaces the refresher, used once the calendars exist.
func (c *Controller) SetRefresher(r Refresher) { c.refresher = r }

// Open shows the form for appt. A stored appointment (non-empty ID) opens
// in edit mode; anything else opens a new appointment prefilled with
// whatever appt carries.
func (c *Controller) Open(appt agenda.Appointment) {
	c.open = true
	c.id = appt.ID
	c.mode = ModeCreate
	if appt.ID != "" {
		c.mode = ModeEdit
	}
	c.form = Form{
		ClientID:   appt.ClientID,
		ServiceID:  appt.ServiceID,
		WorkerID:   appt.WorkerID,
		PositionID: appt.PositionID,
		Start:      appt.Start,
		End:        appt.End,
		Notes:      appt.Notes,
	}
	if appt.Price != 0 {
		c.form.Price = strconv.FormatFloat(appt.Price, 'f', -1, 64)
	}
}

// Close hides the form and discards its state.
func (c *Controller) Close() {
	c.open = false
	c.mode = ""
	c.id = ""
	c.form = Form{}
}

// IsOpen reports whether the form is shown.
func (c *Controller) IsOpen() bool { return c.open }

// Mode returns the current mode, empty when closed.
func (c *Controller) Mode() Mode { return c.mode }

// Form returns a copy of the field values.
func (c *Controller) Form() Form { return c.form }

func (c *Controller) SetClient(id string)   { c.form.ClientID = id }
func (c *Controller) SetWorker(id string)   { c.form.WorkerID = id }
func (c *Controller) SetPosition(id string) { c.form.PositionID = id }
func (c *Controller) SetEnd(t time.Time)    { c.form.End = t }
func (c *Controller) SetPrice(raw string)   { c.form.Price = raw }
func (c *Controller) SetNotes(notes string) { c.form.Notes = notes }

// SetStart sets the start time. Only the first pick, made while the field
// is still empty, moves the end time along with it.
func (c *Controller) SetStart(ctx context.Context, t time.Time) error {
	initial := c.form.Start.IsZero()
	c.form.Start = t
	if !initial || t.IsZero() {
		return nil
	}
	return c.updateEnd(ctx)
}

// OnServiceChange selects serviceID and, if a start time is chosen, sets
// the end time to start plus the service duration.
func (c *Controller) OnServiceChange(ctx context.Context, serviceID string) error {
	c.form.ServiceID = serviceID
	if serviceID == "" || c.form.Start.IsZero() {
		return nil
	}
	return c.updateEnd(ctx)
}

func (c *Controller) updateEnd(ctx context.Context) error {
	if c.form.ServiceID == "" {
		return nil
	}
	svc, ok, err := c.store.Service(ctx, c.form.ServiceID)
	if err != nil {
		return fmt.Errorf("load service %s: %w", c.form.ServiceID, err)
	}
	if !ok {
		return nil
	}
	c.form.End = c.form.Start.Add(time.Duration(svc.Duration) * time.Minute)
	return nil
}

// SetField sets a field from its text form. Times accept RFC 3339 or
// "2006-01-02 15:04" in the form's location; empty clears the field.
func (c *Controller) SetField(ctx context.Context, name, value string) error {
	switch name {
	case "client", "clientId":
		c.SetClient(value)
	case "service", "serviceId":
		return c.OnServiceChange(ctx, value)
	case "worker", "workerId":
		c.SetWorker(value)
	case "position", "positionId":
		c.SetPosition(value)
	case "start":
		t, err := c.parseTime(value)
		if err != nil {
			return err
		}
		return c.SetStart(ctx, t)
	case "end":
		t, err := c.parseTime(value)
		if err != nil {
			return err
		}
		c.SetEnd(t)
	case "price":
		c.SetPrice(value)
	case "notes":
		c.SetNotes(value)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return nil
}

// timeLayouts are tried in order for zone-less input.
var timeLayouts = []string{"2006-01-02 15:04", "2006-01-02T15:04", "2006-01-02T15:04:05"}

func (c *Controller) parseTime(value string) (time.Time, error) {
	return ParseTime(value, c.loc)
}

// ParseTime reads a form time: RFC 3339, or a zone-less layout taken in
// loc. Empty input is the zero time.
func ParseTime(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: time %q", ErrInvalidValue, value)
}

// Validate returns every reason the form cannot be saved, in field order.
func (c *Controller) Validate() []string {
	var reasons []string
	f := c.form
	if f.ClientID == "" {
		reasons = append(reasons, MsgClientRequired)
	}
	if f.ServiceID == "" {
		reasons = append(reasons, MsgServiceRequired)
	}
	if f.WorkerID == "" {
		reasons = append(reasons, MsgWorkerRequired)
	}
	if f.PositionID == "" {
		reasons = append(reasons, MsgPositionRequired)
	}
	if f.Start.IsZero() {
		reasons = append(reasons, MsgStartRequired)
	}
	if f.End.IsZero() {
		reasons = append(reasons, MsgEndRequired)
	}
	if !f.Start.IsZero() && !f.End.IsZero() && !f.End.After(f.Start) {
		reasons = append(reasons, MsgEndBeforeStart)
	}
	if _, ok := parsePrice(f.Price); !ok {
		reasons = append(reasons, MsgInvalidPrice)
	}
	return reasons
}

// parsePrice accepts a positive decimal, with either '.' or ',' as the
// separator.
func parsePrice(raw string) (float64, bool) {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	if raw == "" {
		return 0, false
	}
	p, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
		return 0, false
	}
	return p, true
}

// Appointment builds the record the form describes, without validating.
func (c *Controller) Appointment() agenda.Appointment {
	price, _ := parsePrice(c.form.Price)
	return agenda.Appointment{
		ID:         c.id,
		ClientID:   c.form.ClientID,
		WorkerID:   c.form.WorkerID,
		ServiceID:  c.form.ServiceID,
		PositionID: c.form.PositionID,
		Start:      c.form.Start,
		End:        c.form.End,
		Price:      price,
		Notes:      c.form.Notes,
	}
}

// Save validates and persists the form, then closes it and refreshes the
// calendars. On a validation failure the store is not touched and the
// error is a *ValidationError.
func (c *Controller) Save(ctx context.Context) (agenda.Appointment, error) {
	if !c.open {
		return agenda.Appointment{}, ErrNotOpen
	}
	if reasons := c.Validate(); len(reasons) > 0 {
		return agenda.Appointment{}, &ValidationError{Reasons: reasons}
	}

	saved, err := c.store.Save(ctx, c.Appointment())
	if err != nil {
		return agenda.Appointment{}, fmt.Errorf("save appointment: %w", err)
	}
	c.Close()
	c.refresh(ctx)
	return saved, nil
}

// Delete removes the stored appointment being edited once the user
// confirms. A declined confirmation is not an error and leaves the form
// open.
func (c *Controller) Delete(ctx context.Context) (bool, error) {
	if !c.open {
		return false, ErrNotOpen
	}
	if c.mode != ModeEdit {
		return false, ErrNotEditing
	}
	ok, err := c.confirmer.Confirm(ctx, DeletePrompt)
	if err != nil {
		return false, fmt.Errorf("confirm delete: %w", err)
	}
	if !ok {
		return false, nil
	}

	deleted, err := c.store.Delete(ctx, c.id)
	if err != nil {
		return false, fmt.Errorf("delete appointment %s: %w", c.id, err)
	}
	c.Close()
	c.refresh(ctx)
	return deleted, nil
}

// refresh runs after a successful write; failures are logged only.
func (c *Controller) refresh(ctx context.Context) {
	if c.refresher == nil {
		return
	}
	if err := c.refresher.Refresh(ctx); err != nil {
		c.logger.Error("refresh calendars after change failed", "err", err)
	}
}

// Warnings lists the stored appointments that overlap the form's time
// range on the same worker or position. They never block Save.
func (c *Controller) Warnings(ctx context.Context) ([]agenda.Conflict, error) {
	if !c.open || c.form.Start.IsZero() || !c.form.End.After(c.form.Start) {
		return nil, nil
	}
	conflicts, err := c.store.Overlapping(ctx, c.Appointment())
	if err != nil {
		return nil, fmt.Errorf("check overlaps: %w", err)
	}
	return conflicts, nil
}

// State is the JSON view of the form.
type State struct {
	Open       bool       `json:"open"`
	Mode       Mode       `json:"mode,omitempty"`
	Title      string     `json:"title,omitempty"`
	ShowDelete bool       `json:"showDelete"`
	ID         string     `json:"id,omitempty"`
	ClientID   string     `json:"clientId"`
	ServiceID  string     `json:"serviceId"`
	WorkerID   string     `json:"workerId"`
	PositionID string     `json:"positionId"`
	Start      *time.Time `json:"start,omitempty"`
	End        *time.Time `json:"end,omitempty"`
	Price      string     `json:"price"`
	Notes      string     `json:"notes"`
}

// State returns a snapshot of the form.
func (c *Controller) State() State {
	s := State{
		Open:       c.open,
		Mode:       c.mode,
		ShowDelete: c.mode == ModeEdit,
		ID:         c.id,
		ClientID:   c.form.ClientID,
		ServiceID:  c.form.ServiceID,
		WorkerID:   c.form.WorkerID,
		PositionID: c.form.PositionID,
		Price:      c.form.Price,
		Notes:      c.form.Notes,
	}
	switch c.mode {
	case ModeCreate:
		s.Title = TitleCreate
	case ModeEdit:
		s.Title = TitleEdit
	}
	if !c.form.Start.IsZero() {
		t := c.form.Start
		s.Start = &t
	}
	if !c.form.End.IsZero() {
		t := c.form.End
		s.End = &t
	}
	return s
}
