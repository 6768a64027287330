package calendar

import (
	"fmt"
	"time"
)

var italianWeekdays = [...]string{
	"domenica", "lunedì", "martedì", "mercoledì", "giovedì", "venerdì", "sabato",
}

var italianMonths = [...]string{
	"gennaio", "febbraio", "marzo", "aprile", "maggio", "giugno",
	"luglio", "agosto", "settembre", "ottobre", "novembre", "dicembre",
}

// FormatLongDate renders t the way the toolbar label shows it, e.g.
// "sabato 29 marzo 2025".
func FormatLongDate(t time.Time) string {
	return fmt.Sprintf("%s %d %s %d", italianWeekdays[t.Weekday()], t.Day(), italianMonths[t.Month()-1], t.Year())
}
