package commands

import (
	"context"
	"flag"
	"fmt"

	"github.com/klabast/wb-services/agenda/internal/agenda"
)

// Seed handles the seed subcommand: it initializes the configured storage
// with the sample salon data if it is empty and prints what it holds.
func Seed(ctx context.Context, args []string, stdio IO) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	fs.SetOutput(stdio.Err)
	configPath := configFlag(fs)
	fs.Usage = func() {
		fmt.Fprintf(stdio.Err, "Usage: agenda seed [OPTIONS]\n\n")
		fmt.Fprintf(stdio.Err, "Seeds empty storage with sample workers, clients, services and positions.\n\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	sess, err := openSession(ctx, *configPath, stdio)
	if err != nil {
		return err
	}
	defer sess.Close()

	for _, c := range agenda.Collections {
		records, err := sess.store.List(ctx, c)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdio.Out, "%-13s %d\n", c, count(records))
	}
	return nil
}

func count(records any) int {
	switch r := records.(type) {
	case []agenda.Worker:
		return len(r)
	case []agenda.Client:
		return len(r)
	case []agenda.Service:
		return len(r)
	case []agenda.Position:
		return len(r)
	case []agenda.Appointment:
		return len(r)
	}
	return 0
}
