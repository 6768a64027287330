package calendar

import "time"

// Holidays returns the Italian national public holidays of year, keyed by
// YYYY-MM-DD.
func Holidays(year int) map[string]string {
	holidays := map[string]string{
		dateKey(year, 1, 1):   "Capodanno",
		dateKey(year, 1, 6):   "Epifania",
		dateKey(year, 4, 25):  "Festa della Liberazione",
		dateKey(year, 5, 1):   "Festa dei Lavoratori",
		dateKey(year, 6, 2):   "Festa della Repubblica",
		dateKey(year, 8, 15):  "Ferragosto",
		dateKey(year, 11, 1):  "Ognissanti",
		dateKey(year, 12, 8):  "Immacolata Concezione",
		dateKey(year, 12, 25): "Natale",
		dateKey(year, 12, 26): "Santo Stefano",
	}

	easter := easterSunday(year)
	holidays[easter.Format(time.DateOnly)] = "Pasqua"
	holidays[easter.AddDate(0, 0, 1).Format(time.DateOnly)] = "Lunedì dell'Angelo"
	return holidays
}

// HolidaysBetween returns the holidays in the half-open range [start, end).
func HolidaysBetween(start, end time.Time) map[string]string {
	out := map[string]string{}
	for year := start.Year(); year <= end.Year(); year++ {
		for day, name := range Holidays(year) {
			d, _ := time.ParseInLocation(time.DateOnly, day, start.Location())
			if !d.Before(start) && d.Before(end) {
				out[day] = name
			}
		}
	}
	return out
}

// easterSunday uses the Meeus/Jones/Butcher algorithm.
func easterSunday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := ((h + l - 7*m + 114) % 31) + 1

	// Noon keeps the date stable when formatted in any zone.
	return time.Date(year, time.Month(month), day, 12, 0, 0, 0, time.UTC)
}

func dateKey(year, month, day int) string {
	return time.Date(year, time.Month(month), day, 12, 0, 0, 0, time.UTC).Format(time.DateOnly)
}
