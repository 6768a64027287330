// Package agenda owns the salon's records (workers, clients, services,
// positions, appointments) on top of a key-value medium, one key per
// collection, and derives the per-worker calendar events from them.
package agenda

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/klabast/wb-services/agenda/internal/kv"
)

const (
	// KeyPrefix namespaces every persisted key.
	KeyPrefix = "agenda_"
	// SchemaVersionKey holds the layout version of the persisted collections.
	SchemaVersionKey = KeyPrefix + "schema_version"
	// SchemaVersion is the layout this package reads and writes.
	SchemaVersion = 1
)

// Options configures a Store. Zero values pick defaults.
type Options struct {
	Logger *slog.Logger
	// Location is used for the seed appointments' wall-clock times.
	Location *time.Location
	// NewID overrides GenerateID, mainly for tests.
	NewID func() string
}

// Store is the appointment store. Reads go straight to the medium; every
// mutation rewrites the whole collection under a mutex.
type Store struct {
	kv     kv.Store
	logger *slog.Logger
	loc    *time.Location
	newID  func() string

	mu sync.Mutex
}

// NewStore returns a Store persisting into medium.
func NewStore(medium kv.Store, opts Options) *Store {
	s := &Store{kv: medium, logger: opts.Logger, loc: opts.Location, newID: opts.NewID}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.newID == nil {
		s.newID = func() string { return uuid.NewString() }
	}
	return s
}

// Initialize seeds all collections if the workers collection has never been
// persisted. Calling it on a populated store only checks the schema version.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	version, hasVersion, err := s.schemaVersion(ctx)
	if err != nil {
		return err
	}
	if hasVersion && version > SchemaVersion {
		return &StorageFailure{Op: "initialize", Key: SchemaVersionKey,
			Err: fmt.Errorf("stored schema version %d is newer than supported version %d", version, SchemaVersion)}
	}

	_, hasWorkers, err := s.kv.Get(ctx, Workers.Key())
	if err != nil {
		return &StorageFailure{Op: "read", Key: Workers.Key(), Err: err}
	}

	if !hasWorkers {
		seed := SeedData(s.loc)
		// Workers go last: their presence marks a completed seed.
		steps := []struct {
			c    Collection
			data any
		}{
			{Clients, seed.Clients},
			{Services, seed.Services},
			{Positions, seed.Positions},
			{Appointments, seed.Appointments},
			{Workers, seed.Workers},
		}
		for _, step := range steps {
			if err := s.write(ctx, step.c.Key(), step.data); err != nil {
				return err
			}
		}
		s.logger.Info("seeded agenda store",
			"workers", len(seed.Workers),
			"clients", len(seed.Clients),
			"services", len(seed.Services),
			"positions", len(seed.Positions),
			"appointments", len(seed.Appointments),
		)
	}

	if !hasVersion {
		if err := s.write(ctx, SchemaVersionKey, SchemaVersion); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) schemaVersion(ctx context.Context) (int, bool, error) {
	raw, ok, err := s.kv.Get(ctx, SchemaVersionKey)
	if err != nil {
		return 0, false, &StorageFailure{Op: "read", Key: SchemaVersionKey, Err: err}
	}
	if !ok {
		return 0, false, nil
	}
	v, err := strconv.Atoi(string(raw))
	if err != nil {
		return 0, false, &StorageFailure{Op: "decode", Key: SchemaVersionKey, Err: err}
	}
	return v, true, nil
}

// List returns the records of c in persisted order as a typed slice
// ([]Worker, []Client, []Service, []Position or []Appointment).
func (s *Store) List(ctx context.Context, c Collection) (any, error) {
	switch c {
	case Workers:
		return s.Workers(ctx)
	case Clients:
		return s.Clients(ctx)
	case Services:
		return s.Services(ctx)
	case Positions:
		return s.Positions(ctx)
	case Appointments:
		return s.Appointments(ctx)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCollection, c)
	}
}

func (s *Store) Workers(ctx context.Context) ([]Worker, error) {
	return load[Worker](ctx, s.kv, Workers.Key())
}

func (s *Store) Clients(ctx context.Context) ([]Client, error) {
	return load[Client](ctx, s.kv, Clients.Key())
}

func (s *Store) Services(ctx context.Context) ([]Service, error) {
	return load[Service](ctx, s.kv, Services.Key())
}

func (s *Store) Positions(ctx context.Context) ([]Position, error) {
	return load[Position](ctx, s.kv, Positions.Key())
}

func (s *Store) Appointments(ctx context.Context) ([]Appointment, error) {
	return load[Appointment](ctx, s.kv, Appointments.Key())
}

// Service returns the service with id, if any.
func (s *Store) Service(ctx context.Context, id string) (Service, bool, error) {
	services, err := s.Services(ctx)
	if err != nil {
		return Service{}, false, err
	}
	for _, svc := range services {
		if svc.ID == id {
			return svc, true, nil
		}
	}
	return Service{}, false, nil
}

// Appointment returns the appointment with id, if any.
func (s *Store) Appointment(ctx context.Context, id string) (Appointment, bool, error) {
	appts, err := s.Appointments(ctx)
	if err != nil {
		return Appointment{}, false, err
	}
	for _, a := range appts {
		if a.ID == id {
			return a, true, nil
		}
	}
	return Appointment{}, false, nil
}

// AppointmentsForWorker returns the appointments whose WorkerID equals workerID.
func (s *Store) AppointmentsForWorker(ctx context.Context, workerID string) ([]Appointment, error) {
	appts, err := s.Appointments(ctx)
	if err != nil {
		return nil, err
	}
	out := []Appointment{}
	for _, a := range appts {
		if a.WorkerID == workerID {
			out = append(out, a)
		}
	}
	return out, nil
}

// EventsForWorker projects the worker's appointments into calendar events
// titled "<client> - <service>".
func (s *Store) EventsForWorker(ctx context.Context, workerID string) ([]Event, error) {
	appts, err := s.AppointmentsForWorker(ctx, workerID)
	if err != nil {
		return nil, err
	}
	clients, err := s.Clients(ctx)
	if err != nil {
		return nil, err
	}
	services, err := s.Services(ctx)
	if err != nil {
		return nil, err
	}

	clientNames := make(map[string]string, len(clients))
	for _, c := range clients {
		clientNames[c.ID] = c.Name
	}
	serviceNames := make(map[string]string, len(services))
	for _, svc := range services {
		serviceNames[svc.ID] = svc.Name
	}

	events := make([]Event, 0, len(appts))
	for _, a := range appts {
		events = append(events, ToEvent(a, clientNames, serviceNames))
	}
	return events, nil
}

// ToEvent builds the Event for a using the given id→name lookups.
func ToEvent(a Appointment, clientNames, serviceNames map[string]string) Event {
	client, ok := clientNames[a.ClientID]
	if !ok {
		client = FallbackClientLabel
	}
	service, ok := serviceNames[a.ServiceID]
	if !ok {
		service = FallbackServiceLabel
	}
	return Event{
		ID:    a.ID,
		Title: client + " - " + service,
		Start: a.Start,
		End:   a.End,
		ExtendedProps: EventProps{
			ClientID:   a.ClientID,
			ServiceID:  a.ServiceID,
			WorkerID:   a.WorkerID,
			PositionID: a.PositionID,
			Price:      a.Price,
			Notes:      a.Notes,
		},
	}
}

// Save replaces the appointment with a.ID in place, or appends a with a
// freshly generated ID when a.ID is empty or unknown. It returns the stored
// record.
func (s *Store) Save(ctx context.Context, a Appointment) (Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	appts, err := s.Appointments(ctx)
	if err != nil {
		return Appointment{}, err
	}

	replaced := false
	if a.ID != "" {
		for i := range appts {
			if appts[i].ID == a.ID {
				appts[i] = a
				replaced = true
				break
			}
		}
	}
	if !replaced {
		a.ID = s.GenerateID()
		appts = append(appts, a)
	}

	if err := s.write(ctx, Appointments.Key(), appts); err != nil {
		return Appointment{}, err
	}
	s.logger.Debug("appointment saved", "id", a.ID, "worker_id", a.WorkerID, "replaced", replaced)
	return a, nil
}

// Delete removes the appointment with id. It reports false, without
// touching the medium, when no such appointment exists.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	appts, err := s.Appointments(ctx)
	if err != nil {
		return false, err
	}
	kept := make([]Appointment, 0, len(appts))
	for _, a := range appts {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	if len(kept) == len(appts) {
		return false, nil
	}
	if err := s.write(ctx, Appointments.Key(), kept); err != nil {
		return false, err
	}
	s.logger.Debug("appointment deleted", "id", id)
	return true, nil
}

// GenerateID returns a new appointment identifier (a random UUID by default).
func (s *Store) GenerateID() string { return s.newID() }

// Ping checks the underlying medium.
func (s *Store) Ping(ctx context.Context) error { return s.kv.Ping(ctx) }

func (s *Store) write(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return &StorageFailure{Op: "encode", Key: key, Err: err}
	}
	if err := s.kv.Set(ctx, key, data); err != nil {
		return &StorageFailure{Op: "write", Key: key, Err: err}
	}
	return nil
}

func load[T any](ctx context.Context, medium kv.Store, key string) ([]T, error) {
	raw, ok, err := medium.Get(ctx, key)
	if err != nil {
		return nil, &StorageFailure{Op: "read", Key: key, Err: err}
	}
	out := []T{}
	if !ok || len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &StorageFailure{Op: "decode", Key: key, Err: err}
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}
