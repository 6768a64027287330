package agenda

import "time"

// Worker is a staff member with their own calendar column.
type Worker struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Client is a customer appointments are booked for.
type Client struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Service is a bookable treatment. Duration is in minutes and drives the
// default appointment length.
type Service struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Duration int    `json:"duration"`
}

// Position is a physical station an appointment occupies.
type Position struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Appointment references the other collections by ID. Dangling references
// are tolerated.
type Appointment struct {
	ID         string    `json:"id,omitempty"`
	ClientID   string    `json:"clientId"`
	WorkerID   string    `json:"workerId"`
	ServiceID  string    `json:"serviceId"`
	PositionID string    `json:"positionId"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Price      float64   `json:"price"`
	Notes      string    `json:"notes"`
}

// Event is the display-ready projection of an Appointment consumed by a
// calendar widget.
type Event struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Start         time.Time  `json:"start"`
	End           time.Time  `json:"end"`
	ExtendedProps EventProps `json:"extendedProps"`
}

// EventProps carries the raw appointment fields along with an Event.
type EventProps struct {
	ClientID   string  `json:"clientId"`
	ServiceID  string  `json:"serviceId"`
	WorkerID   string  `json:"workerId"`
	PositionID string  `json:"positionId"`
	Price      float64 `json:"price"`
	Notes      string  `json:"notes"`
}

// Collection names one persisted record list.
type Collection string

const (
	Workers      Collection = "workers"
	Clients      Collection = "clients"
	Services     Collection = "services"
	Positions    Collection = "positions"
	Appointments Collection = "appointments"
)

// Collections lists every collection in seed order.
var Collections = []Collection{Workers, Clients, Services, Positions, Appointments}

// Key returns the persisted key for c.
func (c Collection) Key() string { return KeyPrefix + string(c) }

// Valid reports whether c is a known collection.
func (c Collection) Valid() bool {
	for _, known := range Collections {
		if c == known {
			return true
		}
	}
	return false
}

// Fallback labels used when a foreign key does not resolve.
const (
	FallbackClientLabel  = "Cliente"
	FallbackServiceLabel = "Servizio"
)
