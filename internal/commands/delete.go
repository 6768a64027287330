package commands

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/klabast/wb-services/agenda/internal/modal"
)

var ErrConfirmationRequired = errors.New("stdin is not a terminal; pass -yes to delete without confirmation")

// Delete handles the delete subcommand. It asks for confirmation on the
// terminal unless -yes is given.
func Delete(ctx context.Context, args []string, stdio IO) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	fs.SetOutput(stdio.Err)
	configPath := configFlag(fs)
	yes := fs.Bool("yes", false, "Delete without asking")
	fs.Usage = func() {
		fmt.Fprintf(stdio.Err, "Usage: agenda delete [OPTIONS] APPOINTMENT_ID\n\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("expected exactly one appointment id")
	}
	id := fs.Arg(0)

	confirmer := modal.AlwaysConfirm
	if !*yes {
		tc := &TerminalConfirmer{In: stdio.In, Out: stdio.Out}
		if !tc.interactive() {
			return ErrConfirmationRequired
		}
		confirmer = modal.ConfirmFunc(tc.Confirm)
	}

	sess, err := openSession(ctx, *configPath, stdio)
	if err != nil {
		return err
	}
	defer sess.Close()

	appt, ok, err := sess.store.Appointment(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("appointment %s not found", id)
	}

	form := modal.NewController(sess.store, modal.Options{Confirmer: confirmer, Logger: sess.logger})
	form.Open(appt)
	deleted, err := form.Delete(ctx)
	if err != nil {
		return err
	}
	if deleted {
		fmt.Fprintf(stdio.Out, "Appuntamento %s eliminato\n", id)
	} else {
		fmt.Fprintln(stdio.Out, "Annullato")
	}
	return nil
}

// TerminalConfirmer asks yes/no questions on a terminal, reading a single
// key press.
type TerminalConfirmer struct {
	In  io.Reader
	Out io.Writer
}

func (c *TerminalConfirmer) fd() (int, bool) {
	f, ok := c.In.(*os.File)
	if !ok {
		return 0, false
	}
	return int(f.Fd()), true
}

func (c *TerminalConfirmer) interactive() bool {
	fd, ok := c.fd()
	return ok && term.IsTerminal(fd)
}

// Confirm prints prompt and waits for s/y (yes) or anything else (no).
func (c *TerminalConfirmer) Confirm(_ context.Context, prompt string) (bool, error) {
	fmt.Fprintf(c.Out, "%s [s/N] ", prompt)

	fd, ok := c.fd()
	if !ok || !term.IsTerminal(fd) {
		return readAnswer(c.In, c.Out)
	}
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		// Fall back to line input
		return readAnswer(c.In, c.Out)
	}
	defer term.Restore(fd, oldState)

	var buf [1]byte
	if _, err := c.In.Read(buf[:]); err != nil {
		return false, err
	}
	fmt.Fprint(c.Out, "\r\n")
	return isYes(string(buf[:])), nil
}

// readAnswer reads one line of input.
func readAnswer(in io.Reader, out io.Writer) (bool, error) {
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(out)
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	}
	return isYes(line), nil
}

func isYes(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "s", "si", "sì", "y", "yes":
		return true
	}
	return false
}
