package modal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klabast/wb-services/agenda/internal/agenda"
	"github.com/klabast/wb-services/agenda/internal/kv"
)

// spyStore counts the writes reaching a real store.
type spyStore struct {
	*agenda.Store
	saves   int
	deletes int
}

func (s *spyStore) Save(ctx context.Context, a agenda.Appointment) (agenda.Appointment, error) {
	s.saves++
	return s.Store.Save(ctx, a)
}

func (s *spyStore) Delete(ctx context.Context, id string) (bool, error) {
	s.deletes++
	return s.Store.Delete(ctx, id)
}

type countingRefresher struct {
	calls int
	err   error
}

func (r *countingRefresher) Refresh(context.Context) error {
	r.calls++
	return r.err
}

func at(hour, minute int) time.Time {
	return time.Date(2025, 3, 29, hour, minute, 0, 0, time.UTC)
}

func newController(t *testing.T) (*Controller, *spyStore, *countingRefresher) {
	t.Helper()
	store := agenda.NewStore(kv.NewMemory(), agenda.Options{Location: time.UTC})
	require.NoError(t, store.Initialize(context.Background()))
	spy := &spyStore{Store: store}
	ref := &countingRefresher{}
	c := NewController(spy, Options{Refresher: ref, Location: time.UTC})
	return c, spy, ref
}

// fill opens a create form with every field valid.
func fill(t *testing.T, c *Controller) {
	t.Helper()
	ctx := context.Background()
	c.Open(agenda.Appointment{WorkerID: "1"})
	c.SetClient("1")
	require.NoError(t, c.OnServiceChange(ctx, "1"))
	c.SetPosition("1")
	require.NoError(t, c.SetStart(ctx, at(16, 0)))
	c.SetPrice("30")
}

func TestOpenModes(t *testing.T) {
	c, _, _ := newController(t)

	c.Open(agenda.Appointment{WorkerID: "2", Start: at(9, 0), End: at(10, 0)})
	s := c.State()
	assert.True(t, s.Open)
	assert.Equal(t, ModeCreate, s.Mode)
	assert.Equal(t, TitleCreate, s.Title)
	assert.False(t, s.ShowDelete)
	assert.Equal(t, "2", s.WorkerID)
	assert.Empty(t, s.Price)

	c.Open(agenda.Appointment{ID: "id1", ClientID: "1", Price: 30, Notes: "x"})
	s = c.State()
	assert.Equal(t, ModeEdit, s.Mode)
	assert.Equal(t, TitleEdit, s.Title)
	assert.True(t, s.ShowDelete)
	assert.Equal(t, "30", s.Price)
	assert.Equal(t, "x", s.Notes)

	c.Close()
	assert.Equal(t, State{}, c.State())
}

func TestValidateCollectsAllReasons(t *testing.T) {
	c, _, _ := newController(t)
	c.Open(agenda.Appointment{})
	assert.Equal(t, []string{
		MsgClientRequired,
		MsgServiceRequired,
		MsgWorkerRequired,
		MsgPositionRequired,
		MsgStartRequired,
		MsgEndRequired,
		MsgInvalidPrice,
	}, c.Validate())
}

func TestSaveMissingClientNeverCallsStore(t *testing.T) {
	c, spy, ref := newController(t)
	fill(t, c)
	c.SetClient("")

	_, err := c.Save(context.Background())
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{MsgClientRequired}, verr.Reasons)
	assert.Zero(t, spy.saves)
	assert.Zero(t, ref.calls)
	assert.True(t, c.IsOpen())
}

func TestSaveEndBeforeStart(t *testing.T) {
	c, spy, _ := newController(t)
	fill(t, c)
	ctx := context.Background()
	require.NoError(t, c.SetField(ctx, "start", "2025-03-29 10:00"))
	require.NoError(t, c.SetField(ctx, "end", "2025-03-29 09:00"))

	assert.Contains(t, c.Validate(), MsgEndBeforeStart)
	_, err := c.Save(ctx)
	assert.True(t, IsValidationError(err))
	assert.Zero(t, spy.saves)
}

func TestEqualStartAndEndIsRejected(t *testing.T) {
	c, _, _ := newController(t)
	fill(t, c)
	c.SetEnd(at(16, 0))
	assert.Equal(t, []string{MsgEndBeforeStart}, c.Validate())
}

func TestPriceValidation(t *testing.T) {
	c, _, _ := newController(t)
	fill(t, c)

	tests := []struct {
		price string
		valid bool
	}{
		{"30", true},
		{"12.50", true},
		{"12,50", true},
		{"0", false},
		{"-5", false},
		{"abc", false},
		{"", false},
		{"NaN", false},
		{"Inf", false},
	}
	for _, tt := range tests {
		t.Run(tt.price, func(t *testing.T) {
			c.SetPrice(tt.price)
			if tt.valid {
				assert.Empty(t, c.Validate())
			} else {
				assert.Equal(t, []string{MsgInvalidPrice}, c.Validate())
			}
		})
	}
}

func TestServiceChangeSetsEnd(t *testing.T) {
	c, _, _ := newController(t)
	ctx := context.Background()
	c.Open(agenda.Appointment{})
	require.NoError(t, c.SetStart(ctx, at(10, 0)))
	assert.True(t, c.Form().End.IsZero(), "no service chosen yet")

	// Massaggio lasts 90 minutes.
	require.NoError(t, c.OnServiceChange(ctx, "4"))
	assert.Equal(t, at(11, 30), c.Form().End)

	// Ceretta lasts 30.
	require.NoError(t, c.OnServiceChange(ctx, "3"))
	assert.Equal(t, at(10, 30), c.Form().End)
}

func TestLaterStartChangeKeepsEnd(t *testing.T) {
	c, _, _ := newController(t)
	ctx := context.Background()
	c.Open(agenda.Appointment{})
	require.NoError(t, c.OnServiceChange(ctx, "1"))

	require.NoError(t, c.SetStart(ctx, at(10, 0)))
	assert.Equal(t, at(11, 0), c.Form().End, "initial pick recomputes end")

	require.NoError(t, c.SetStart(ctx, at(12, 0)))
	assert.Equal(t, at(11, 0), c.Form().End)
}

func TestServiceChangeUnknownServiceKeepsEnd(t *testing.T) {
	c, _, _ := newController(t)
	ctx := context.Background()
	c.Open(agenda.Appointment{Start: at(10, 0), End: at(11, 0)})
	require.NoError(t, c.OnServiceChange(ctx, "missing"))
	assert.Equal(t, at(11, 0), c.Form().End)
}

func TestSaveCreates(t *testing.T) {
	c, spy, ref := newController(t)
	fill(t, c)
	c.SetNotes("prima volta")
	ctx := context.Background()

	saved, err := c.Save(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, at(17, 0), saved.End)
	assert.Equal(t, 30.0, saved.Price)
	assert.Equal(t, 1, spy.saves)
	assert.Equal(t, 1, ref.calls)
	assert.False(t, c.IsOpen())

	stored, ok, err := spy.Appointment(ctx, saved.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "prima volta", stored.Notes)
}

func TestSaveEditKeepsID(t *testing.T) {
	c, spy, _ := newController(t)
	ctx := context.Background()
	appt, ok, err := spy.Appointment(ctx, "1")
	require.NoError(t, err)
	require.True(t, ok)

	c.Open(appt)
	c.SetPrice("45")
	saved, err := c.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1", saved.ID)

	all, err := spy.Appointments(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, 45.0, all[0].Price)
}

func TestSaveRefreshFailureStillSucceeds(t *testing.T) {
	c, spy, ref := newController(t)
	ref.err = errors.New("boom")
	fill(t, c)
	_, err := c.Save(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, spy.saves)
}

func TestSaveClosed(t *testing.T) {
	c, _, _ := newController(t)
	_, err := c.Save(context.Background())
	assert.ErrorIs(t, err, ErrNotOpen)
}

func TestDeleteDeclined(t *testing.T) {
	c, spy, ref := newController(t)
	var prompt string
	c.confirmer = ConfirmFunc(func(_ context.Context, p string) (bool, error) {
		prompt = p
		return false, nil
	})
	c.Open(agenda.Appointment{ID: "id1"})

	deleted, err := c.Delete(context.Background())
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Equal(t, DeletePrompt, prompt)
	assert.Zero(t, spy.deletes)
	assert.Zero(t, ref.calls)
	assert.True(t, c.IsOpen())
}

func TestDeleteAccepted(t *testing.T) {
	c, spy, ref := newController(t)
	ctx := context.Background()
	c.Open(agenda.Appointment{ID: "2"})

	deleted, err := c.Delete(ctx)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Equal(t, 1, spy.deletes)
	assert.Equal(t, 1, ref.calls)
	assert.False(t, c.IsOpen())

	_, ok, err := spy.Appointment(ctx, "2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeleteRequiresStoredAppointment(t *testing.T) {
	c, _, _ := newController(t)
	ctx := context.Background()
	_, err := c.Delete(ctx)
	assert.ErrorIs(t, err, ErrNotOpen)

	c.Open(agenda.Appointment{})
	_, err = c.Delete(ctx)
	assert.ErrorIs(t, err, ErrNotEditing)
}

func TestSetField(t *testing.T) {
	c, _, _ := newController(t)
	ctx := context.Background()
	c.Open(agenda.Appointment{})

	require.NoError(t, c.SetField(ctx, "client", "2"))
	require.NoError(t, c.SetField(ctx, "service", "3"))
	require.NoError(t, c.SetField(ctx, "start", "2025-03-29T10:00:00Z"))
	require.NoError(t, c.SetField(ctx, "price", "25"))

	f := c.Form()
	assert.Equal(t, "2", f.ClientID)
	assert.Equal(t, at(10, 0), f.Start)
	assert.Equal(t, at(10, 30), f.End)
	assert.Equal(t, "25", f.Price)

	require.NoError(t, c.SetField(ctx, "start", ""))
	assert.True(t, c.Form().Start.IsZero())

	assert.ErrorIs(t, c.SetField(ctx, "colour", "red"), ErrUnknownField)
	assert.ErrorIs(t, c.SetField(ctx, "end", "tomorrow"), ErrInvalidValue)
}

func TestWarningsReportOverlaps(t *testing.T) {
	c, _, _ := newController(t)
	ctx := context.Background()
	// Worker 1 is booked 10:00-11:00.
	c.Open(agenda.Appointment{WorkerID: "1", PositionID: "9", Start: at(10, 30), End: at(11, 30)})

	conflicts, err := c.Warnings(ctx)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "1", conflicts[0].Appointment.ID)
	assert.True(t, conflicts[0].SameWorker)

	require.NoError(t, c.SetStart(ctx, at(11, 0)))
	conflicts, err = c.Warnings(ctx)
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}
