package agenda

import "time"

// Dataset is the full record set of all five collections.
type Dataset struct {
	Workers      []Worker      `json:"workers"`
	Clients      []Client      `json:"clients"`
	Services     []Service     `json:"services"`
	Positions    []Position    `json:"positions"`
	Appointments []Appointment `json:"appointments"`
}

// SeedData returns the dataset loaded into an empty store. Appointment times
// are wall-clock times in loc.
func SeedData(loc *time.Location) Dataset {
	if loc == nil {
		loc = time.Local
	}
	at := func(hour, minute int) time.Time {
		return time.Date(2025, time.March, 29, hour, minute, 0, 0, loc)
	}

	return Dataset{
		Workers: []Worker{
			{ID: "1", Name: "Margaryta"},
			{ID: "2", Name: "Daria"},
			{ID: "3", Name: "Maria"},
			{ID: "4", Name: "Baria"},
			{ID: "5", Name: "Miroslava"},
			{ID: "6", Name: "Federico"},
			{ID: "7", Name: "Luciana"},
			{ID: "8", Name: "Cristiana"},
		},
		Clients: []Client{
			{ID: "1", Name: "Sofia Bianchi"},
			{ID: "2", Name: "Giulia Rossi"},
			{ID: "3", Name: "Anna Verdi"},
			{ID: "4", Name: "Laura Neri"},
		},
		Services: []Service{
			{ID: "1", Name: "Manicure", Duration: 60},
			{ID: "2", Name: "Pedicure", Duration: 60},
			{ID: "3", Name: "Ceretta", Duration: 30},
			{ID: "4", Name: "Massaggio", Duration: 90},
		},
		Positions: []Position{
			{ID: "1", Name: "Postazione 1"},
			{ID: "2", Name: "Postazione 2"},
			{ID: "3", Name: "Postazione 3"},
			{ID: "4", Name: "Postazione 4"},
			{ID: "5", Name: "Postazione 5"},
		},
		Appointments: []Appointment{
			{ID: "1", ClientID: "1", WorkerID: "1", ServiceID: "1", PositionID: "1", Start: at(10, 0), End: at(11, 0), Price: 30},
			{ID: "2", ClientID: "2", WorkerID: "1", ServiceID: "2", PositionID: "1", Start: at(14, 0), End: at(15, 0), Price: 35},
			{ID: "3", ClientID: "3", WorkerID: "2", ServiceID: "3", PositionID: "2", Start: at(11, 0), End: at(11, 30), Price: 25},
		},
	}
}
