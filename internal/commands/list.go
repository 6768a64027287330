package commands

import (
	"context"
	"flag"
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/klabast/wb-services/agenda/internal/agenda"
)

// List handles the list subcommand: it prints the appointments of one
// worker, or of everyone, optionally limited to one day.
func List(ctx context.Context, args []string, stdio IO) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(stdio.Err)
	configPath := configFlag(fs)
	worker := fs.String("worker", "", "Only show this worker's appointments")
	day := fs.String("date", "", "Only show this day (YYYY-MM-DD)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sess, err := openSession(ctx, *configPath, stdio)
	if err != nil {
		return err
	}
	defer sess.Close()

	loc, err := sess.cfg.Location()
	if err != nil {
		return err
	}
	var from, to time.Time
	if *day != "" {
		from, err = time.ParseInLocation(time.DateOnly, *day, loc)
		if err != nil {
			return fmt.Errorf("invalid -date %q: %w", *day, err)
		}
		to = from.AddDate(0, 0, 1)
	}

	workers, err := sess.store.Workers(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(stdio.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tOPERATORE\tINIZIO\tFINE\tAPPUNTAMENTO\tPREZZO")
	for _, w := range workers {
		if *worker != "" && w.ID != *worker {
			continue
		}
		events, err := sess.store.EventsForWorker(ctx, w.ID)
		if err != nil {
			return err
		}
		sort.SliceStable(events, func(i, j int) bool { return events[i].Start.Before(events[j].Start) })
		for _, e := range events {
			if !from.IsZero() && !agenda.Overlaps(e.Start, e.End, from, to) {
				continue
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%.2f\n",
				e.ID, w.Name,
				e.Start.In(loc).Format("2006-01-02 15:04"),
				e.End.In(loc).Format("15:04"),
				e.Title, e.ExtendedProps.Price)
		}
	}
	return tw.Flush()
}
